package compiler

import (
	"fmt"
	"sort"
	"strings"
)

// VarSlot is one declared variable or parameter.
type VarSlot struct {
	Name  string
	Size  int // element count, 0 for scalars
	ByRef bool
}

// IsArray reports whether the slot holds an array.
func (v VarSlot) IsArray() bool { return v.Size > 0 }

// Cells is the number of stack cells the slot occupies in an activation
// record. A reference parameter holds one address regardless of its type.
func (v VarSlot) Cells() int {
	if v.Size > 0 && !v.ByRef {
		return v.Size
	}
	return 1
}

// VarList is an ordered scope. Order decides frame offsets.
type VarList []VarSlot

// Index returns the position of name in the list, or -1.
func (l VarList) Index(name string) int {
	for i, v := range l {
		if v.Name == name {
			return i
		}
	}
	return -1
}

// Cells sums the frame cells of every slot.
func (l VarList) Cells() int {
	n := 0
	for _, v := range l {
		n += v.Cells()
	}
	return n
}

// VarClass is the shape of a resolved variable reference:
// {scalar, element, whole array} x {global, local}.
type VarClass int

const (
	GlobalScalar VarClass = iota
	GlobalElement
	GlobalArray
	LocalScalar
	LocalElement
	LocalArray
)

var varClassNames = [...]string{"global scalar", "global element", "global array", "local scalar", "local element", "local array"}

func (c VarClass) String() string { return varClassNames[c] }

// Local reports whether the variable lives in the current activation record.
func (c VarClass) Local() bool { return c >= LocalScalar }

// Scalar reports whether the reference addresses one cell without a runtime
// index computation.
func (c VarClass) Scalar() bool { return c == GlobalScalar || c == LocalScalar }

// Element reports whether the reference needs a computed element address.
func (c VarClass) Element() bool { return c == GlobalElement || c == LocalElement }

// Whole reports whether the reference denotes an entire array.
func (c VarClass) Whole() bool { return c == GlobalArray || c == LocalArray }

// Variable is a resolved reference.
type Variable struct {
	Slot  VarSlot
	Class VarClass
	index int
}

// RegisterVariable declares name in the active scope: the current
// activation's list when inside a body, the global list otherwise.
func (s *State) RegisterVariable(name string, size int, byRef bool) bool {
	scope, limit := &s.globals, s.limits.Globals
	if s.current != nil {
		scope, limit = &s.current.Vars, s.limits.Locals
	}
	if size < 0 {
		s.fail(TypeMismatch, "array %q must have a positive size, got %d", name, size)
		return false
	}
	if scope.Index(name) >= 0 {
		s.fail(DuplicateName, "variable %q is already declared", name)
		return false
	}
	if _, ok := s.labels[name]; ok {
		s.fail(DuplicateName, "variable %q collides with label %q", name, name)
		return false
	}
	if limit > 0 && len(*scope) >= limit {
		s.fail(ResourceExhaustion, "variable table full (%d entries), cannot declare %q", limit, name)
		return false
	}
	*scope = append(*scope, VarSlot{Name: name, Size: size, ByRef: byRef})
	return true
}

// ResolveVariable finds name, local scope first. literalIndex is non-nil when
// the index expression folded to a constant; a constant index of 0 addresses
// the array base directly and resolves as a scalar.
func (s *State) ResolveVariable(name string, hasIndex bool, literalIndex *int) (Variable, *CompileError) {
	var (
		slot  VarSlot
		index = -1
		local bool
	)
	if s.current != nil {
		if index = s.current.Vars.Index(name); index >= 0 {
			slot, local = s.current.Vars[index], true
		}
	}
	if index < 0 {
		if index = s.globals.Index(name); index >= 0 {
			slot = s.globals[index]
		}
	}
	if index < 0 {
		return Variable{}, newError(UndefinedVariable, "%q is not declared", name)
	}

	var class VarClass
	switch {
	case !slot.IsArray() && hasIndex:
		return Variable{}, newError(TypeMismatch, "%q is not an array and cannot be indexed", name)
	case !slot.IsArray():
		class = GlobalScalar
	case !hasIndex:
		class = GlobalArray
	case literalIndex != nil && *literalIndex == 0:
		class = GlobalScalar
	default:
		class = GlobalElement
	}
	if local {
		class += LocalScalar
	}
	return Variable{Slot: slot, Class: class, index: index}, nil
}

// RegisterLabel adds name to the label namespace, which is shared with
// global variables.
func (s *State) RegisterLabel(name string) bool {
	if _, ok := s.labels[name]; ok {
		s.fail(DuplicateName, "label %q is already defined", name)
		return false
	}
	if s.globals.Index(name) >= 0 {
		s.fail(DuplicateName, "label %q collides with global variable %q", name, name)
		return false
	}
	if s.limits.Labels > 0 && len(s.labels) >= s.limits.Labels {
		s.fail(ResourceExhaustion, "label table full (%d entries), cannot define %q", s.limits.Labels, name)
		return false
	}
	s.labels[name] = struct{}{}
	return true
}

// GenerateLabel returns a fresh registered label m$N.
func (s *State) GenerateLabel() string {
	s.nextLabel++
	name := fmt.Sprintf("m$%d", s.nextLabel)
	s.RegisterLabel(name)
	return name
}

// HasLabel reports whether name is a registered label.
func (s *State) HasLabel(name string) bool {
	_, ok := s.labels[name]
	return ok
}

// Globals returns the global scope in declaration order.
func (s *State) Globals() VarList {
	return s.globals
}

// String returns a deterministically ordered dump of the tables.
func (s *State) String() string {
	var sb strings.Builder
	if len(s.globals) > 0 {
		sb.WriteString("Globals:\n")
		for _, v := range s.globals {
			fmt.Fprintf(&sb, "  %-20s  (Size: %d)\n", v.Name, v.Size)
		}
	} else {
		sb.WriteString("Globals: (empty)\n")
	}

	if len(s.functions) > 0 {
		sb.WriteString("Functions:\n")
		for _, fn := range s.functions {
			fmt.Fprintf(&sb, "  %-20s  %s, %d params\n", fn.Name, fn.Kind, len(fn.Params))
		}
	}

	if s.current != nil {
		fmt.Fprintf(&sb, "Locals (%s, pushed %d):\n", s.current.Function.Name, s.current.Pushed)
		for i, v := range s.current.Vars {
			kind := "local"
			if i < s.current.NumParams {
				kind = "param"
			}
			fmt.Fprintf(&sb, "  %-20s  %s (Size: %d, ByRef: %t, Offset: %d)\n", v.Name, kind, v.Size, v.ByRef, s.current.Offset(i))
		}
	}

	labels := make([]string, 0, len(s.labels))
	for name := range s.labels {
		labels = append(labels, name)
	}
	sort.Strings(labels)
	fmt.Fprintf(&sb, "Labels: %s\n", strings.Join(labels, " "))
	return sb.String()
}
