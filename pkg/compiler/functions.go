package compiler

import "pascalvm/pkg/ast"

// FunctionDef is a procedure or function known to the compiler.
type FunctionDef struct {
	Name   string
	Kind   ast.ProcKind
	Params VarList
}

// IsFunction reports whether calls yield a value.
func (f *FunctionDef) IsFunction() bool { return f.Kind == ast.FunctionKind }

// DefineFunction appends a definition. Names are not checked for
// duplicates here; LookupFunction returns the last definition.
func (s *State) DefineFunction(name string, kind ast.ProcKind) *FunctionDef {
	if s.limits.Functions > 0 && len(s.functions) >= s.limits.Functions {
		s.fail(ResourceExhaustion, "function table full (%d entries), cannot define %q", s.limits.Functions, name)
		return nil
	}
	fn := &FunctionDef{Name: name, Kind: kind}
	s.functions = append(s.functions, fn)
	return fn
}

// AddParameter appends a formal parameter to fn.
func (s *State) AddParameter(fn *FunctionDef, name string, size int, byRef bool) bool {
	if size < 0 {
		s.fail(TypeMismatch, "array parameter %q of %q must have a positive size, got %d", name, fn.Name, size)
		return false
	}
	if fn.Params.Index(name) >= 0 {
		s.fail(DuplicateName, "parameter %q of %q is already declared", name, fn.Name)
		return false
	}
	if _, ok := s.labels[name]; ok {
		s.fail(DuplicateName, "parameter %q of %q collides with label %q", name, fn.Name, name)
		return false
	}
	if s.limits.Locals > 0 && len(fn.Params) >= s.limits.Locals {
		s.fail(ResourceExhaustion, "parameter list of %q full (%d entries)", fn.Name, s.limits.Locals)
		return false
	}
	fn.Params = append(fn.Params, VarSlot{Name: name, Size: size, ByRef: byRef})
	return true
}

// LookupFunction scans the table and returns the last definition of name.
func (s *State) LookupFunction(name string) (*FunctionDef, *CompileError) {
	for i := len(s.functions) - 1; i >= 0; i-- {
		if s.functions[i].Name == name {
			return s.functions[i], nil
		}
	}
	return nil, newError(UndefinedFunction, "%q is not defined", name)
}
