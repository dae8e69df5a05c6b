package compiler

import (
	"io"
	"strings"
	"testing"

	"pascalvm/pkg/ast"
)

// assertContains checks if the generated code contains the expected substring.
func assertContains(t *testing.T, code, expected string) {
	t.Helper()
	if !strings.Contains(code, expected) {
		t.Errorf("Expected code to contain %q, but it didn't.\nCode:\n%s", expected, code)
	}
}

func assertNotContains(t *testing.T, code, unexpected string) {
	t.Helper()
	if strings.Contains(code, unexpected) {
		t.Errorf("Expected code NOT to contain %q, but it did.\nCode:\n%s", unexpected, code)
	}
}

func quiet() Option { return WithDiagnostics(io.Discard) }

func generate(prog *ast.Program, opts ...Option) *Output {
	return Generate(prog, append([]Option{quiet()}, opts...)...)
}

func kinds(errs []*CompileError) []Kind {
	out := make([]Kind, len(errs))
	for i, e := range errs {
		out[i] = e.Kind
	}
	return out
}

// Node builders.

func lit(v int) *ast.IntLiteral      { return &ast.IntLiteral{Value: v} }
func ref(name string) *ast.VarCall   { return &ast.VarCall{Name: name} }
func paren(e ast.Expr) ast.Expr      { return &ast.Parenthesized{Inner: e} }
func neg(e ast.Expr) ast.Expr        { return &ast.Negation{Operand: e} }
func elem(name string, i ast.Expr) *ast.ArrayCall {
	return &ast.ArrayCall{Name: name, Index: i}
}

func bin(l ast.Expr, op ast.ArithOp, r ast.Expr) *ast.BinaryExpr {
	return &ast.BinaryExpr{Op: op, Left: l, Right: r}
}

func cond(l ast.Expr, op ast.RelOp, r ast.Expr) *ast.Condition {
	return &ast.Condition{Left: l, Op: op, Right: r}
}

func set(target, value ast.Expr) *ast.Assignment {
	return &ast.Assignment{Target: target, Value: value}
}

func call(name string, args ...ast.Expr) *ast.ProcedureCall {
	return &ast.ProcedureCall{Name: name, Args: args}
}

func ret(e ast.Expr) *ast.Return { return &ast.Return{Value: e} }

func scalar(name string) *ast.VarDecl { return &ast.VarDecl{Name: name} }

func array(name string, size int) *ast.VarDecl {
	return &ast.VarDecl{Name: name, IsArray: true, Size: size}
}

func vars(decls ...*ast.VarDecl) []*ast.VarSection {
	return []*ast.VarSection{{Decls: decls}}
}

func byValue(d *ast.VarDecl) ast.Param { return &ast.CopyParameter{Decl: d} }
func byRef(d *ast.VarDecl) ast.Param   { return &ast.ReferenceParameter{Decl: d} }

func function(name string, params []ast.Param, locals []*ast.VarSection, body ...ast.Instruction) *ast.Procedure {
	return &ast.Procedure{Kind: ast.FunctionKind, Name: name, Params: params, VarSections: locals, Instructions: body, ClosingName: name}
}

func procedure(name string, params []ast.Param, locals []*ast.VarSection, body ...ast.Instruction) *ast.Procedure {
	p := function(name, params, locals, body...)
	p.Kind = ast.ProcedureKind
	return p
}

func program(globals []*ast.VarSection, procs []*ast.Procedure, body ...ast.Instruction) *ast.Program {
	return &ast.Program{
		Name:        "p",
		VarSections: globals,
		Procedures:  procs,
		Body:        &ast.Body{Instructions: body, Name: "p"},
	}
}
