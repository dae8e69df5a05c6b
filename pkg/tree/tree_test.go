package tree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pascalvm/pkg/ast"
)

func TestParse_Program(t *testing.T) {
	src := `
(program demo
  (varSections
    (varSection (varDeclaration x) (varDeclaration a 5))
    (varSection (varDeclaration y)))
  (procedures
    (procedure functionHeader sq
      (paramList (copyParameter (varDeclaration n)) (referenceParameter (varDeclaration r)))
      (varSections (varSection (varDeclaration t)))
      (instructionSequence (returnStatement (expression n * n)))
      sq))
  (body
    (instructionSequence
      (assignment (varCall x) (expression 2 + 3))
      (assignment (arrayCall a 1) (procedureCall sq (paramListCall 4 y))))
    demo))`

	prog, err := Parse(src)
	require.NoError(t, err)

	assert.Equal(t, "demo", prog.Name)
	require.Len(t, prog.VarSections, 2)
	assert.Equal(t, []*ast.VarDecl{{Name: "x"}, {Name: "a", IsArray: true, Size: 5}}, prog.VarSections[0].Decls)
	assert.Equal(t, "y", prog.VarSections[1].Decls[0].Name)

	require.Len(t, prog.Procedures, 1)
	sq := prog.Procedures[0]
	assert.Equal(t, ast.FunctionKind, sq.Kind)
	assert.Equal(t, "sq", sq.Name)
	assert.Equal(t, "sq", sq.ClosingName)
	require.Len(t, sq.Params, 2)
	assert.IsType(t, &ast.CopyParameter{}, sq.Params[0])
	assert.IsType(t, &ast.ReferenceParameter{}, sq.Params[1])
	assert.Equal(t, "r", sq.Params[1].Declaration().Name)
	assert.Equal(t, "t", sq.VarSections[0].Decls[0].Name)
	require.Len(t, sq.Instructions, 1)
	assert.Equal(t, "RETURN n * n", sq.Instructions[0].String())

	require.NotNil(t, prog.Body)
	assert.Equal(t, "demo", prog.Body.Name)
	require.Len(t, prog.Body.Instructions, 2)
	assert.Equal(t, "x := 2 + 3", prog.Body.Instructions[0].String())
	assert.Equal(t, "a[1] := sq(4, y)", prog.Body.Instructions[1].String())
}

func TestParse_Expressions(t *testing.T) {
	tests := []struct {
		src  string
		want ast.Expr
	}{
		{"7", &ast.IntLiteral{Value: 7}},
		{"-7", &ast.IntLiteral{Value: -7}},
		{"(value 3)", &ast.IntLiteral{Value: 3}},
		{"(value x)", &ast.VarCall{Name: "x"}},
		{"x", &ast.VarCall{Name: "x"}},
		{"(varCall x)", &ast.VarCall{Name: "x"}},
		{"(arrayCall a i)", &ast.ArrayCall{Name: "a", Index: &ast.VarCall{Name: "i"}}},
		{"(expression x)", &ast.Parenthesized{Inner: &ast.VarCall{Name: "x"}}},
		{"(negation y)", &ast.Negation{Operand: &ast.VarCall{Name: "y"}}},
		{"(expression 6 DIV 2)", &ast.BinaryExpr{Op: ast.Div, Left: &ast.IntLiteral{Value: 6}, Right: &ast.IntLiteral{Value: 2}}},
		{"(expression 6 mod 2)", &ast.BinaryExpr{Op: ast.Mod, Left: &ast.IntLiteral{Value: 6}, Right: &ast.IntLiteral{Value: 2}}},
		{"(expression a - b)", &ast.BinaryExpr{Op: ast.Sub, Left: &ast.VarCall{Name: "a"}, Right: &ast.VarCall{Name: "b"}}},
		{"(procedureCall f)", &ast.ProcedureCall{Name: "f"}},
	}
	for _, tt := range tests {
		src := "(program p (body (instructionSequence (assignment x " + tt.src + ")) p))"
		prog, err := Parse(src)
		require.NoError(t, err, tt.src)
		got := prog.Body.Instructions[0].(*ast.Assignment).Value
		assert.Equal(t, tt.want, got, tt.src)
	}
}

func TestParse_Instructions(t *testing.T) {
	src := `
(program p (body (instructionSequence
  (whileLoop (condition i < 10) (instructionSequence (assignment i (expression i + 1))))
  (repeatLoop (instructionSequence) (condition i >= 0))
  (forLoop i 1 10 (positiveAdvancement 2) (instructionSequence))
  (forLoop i 10 1 (negativeAdvancement 3) (instructionSequence))
  (forLoop i 0 5 1 (instructionSequence))
  (conditionalInstruction (condition x # y) (instructionSequence))
  (conditionalInstruction (condition x <> y) (instructionSequence) (elseSection))
  (conditionalInstruction (condition x = y) (instructionSequence) (elseSection (instructionSequence (returnStatement))))
  (procedureCall show (paramListCall x)))
  p))`

	prog, err := Parse(src)
	require.NoError(t, err)
	in := prog.Body.Instructions
	require.Len(t, in, 9)

	w := in[0].(*ast.WhileLoop)
	assert.Equal(t, ast.Lt, w.Cond.Op)
	assert.Len(t, w.Body, 1)

	r := in[1].(*ast.RepeatLoop)
	assert.Equal(t, ast.Ge, r.Cond.Op)
	assert.Empty(t, r.Body)

	assert.Equal(t, 2, in[2].(*ast.ForLoop).Step)
	assert.Equal(t, -3, in[3].(*ast.ForLoop).Step)
	assert.Equal(t, 1, in[4].(*ast.ForLoop).Step)
	assert.Equal(t, "i", in[4].(*ast.ForLoop).Var)

	c := in[5].(*ast.Conditional)
	assert.Equal(t, ast.Ne, c.Cond.Op)
	assert.False(t, c.HasElse)

	// An empty elseSection is no ELSE at all.
	assert.False(t, in[6].(*ast.Conditional).HasElse)

	c = in[7].(*ast.Conditional)
	assert.True(t, c.HasElse)
	require.Len(t, c.Else, 1)
	assert.Nil(t, c.Else[0].(*ast.Return).Value)

	call := in[8].(*ast.ProcedureCall)
	assert.Equal(t, "show", call.Name)
	assert.Equal(t, []ast.Expr{&ast.VarCall{Name: "x"}}, call.Args)
}

func TestParse_ProcedureHeaders(t *testing.T) {
	src := `
(program p
  (procedures
    (procedure (procedureHeader) show (instructionSequence) show)
    (procedure functionHeader one (instructionSequence (returnStatement 1)) other))
  (body (instructionSequence) p))`

	prog, err := Parse(src)
	require.NoError(t, err)
	require.Len(t, prog.Procedures, 2)
	assert.Equal(t, ast.ProcedureKind, prog.Procedures[0].Kind)
	assert.Equal(t, ast.FunctionKind, prog.Procedures[1].Kind)
	// Closing names are decoded as written and checked by the compiler.
	assert.Equal(t, "other", prog.Procedures[1].ClosingName)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"syntax", "(program p", "unclosed list"},
		{"not a program", "(module m)", "expected (program ...)"},
		{"no body", "(program p (varSections))", `program "p" has no body`},
		{"too short", "(program p)", "program needs a name and a body"},
		{"unknown section", "(program p (stuff) (body (instructionSequence) p))", "unexpected (stuff) in program"},
		{"bad declaration", "(program p (varSections (varSection (varDeclaration))) (body (instructionSequence) p))", "varDeclaration takes a name"},
		{"bad size", "(program p (varSections (varSection (varDeclaration a b))) (body (instructionSequence) p))", "expected integer"},
		{"bad header", "(program p (procedures (procedure header f (instructionSequence) f)) (body (instructionSequence) p))", "expected procedureHeader or functionHeader"},
		{"bad parameter", "(program p (procedures (procedure procedureHeader f (paramList (param (varDeclaration a))) f)) (body (instructionSequence) p))", "expected copyParameter or referenceParameter"},
		{"unknown instruction", "(program p (body (instructionSequence (goto l)) p))", "unknown instruction (goto l)"},
		{"bad relop", "(program p (body (instructionSequence (whileLoop (condition x ~ y) (instructionSequence))) p))", "unknown relational operator ~"},
		{"bad arithop", "(program p (body (instructionSequence (assignment x (expression x ^ y))) p))", "unknown arithmetic operator ^"},
		{"bad advancement", "(program p (body (instructionSequence (forLoop i 0 1 (step 1) (instructionSequence))) p))", "expected advancement"},
		{"bad expression", "(program p (body (instructionSequence (assignment x (plus 1 2))) p))", "unknown expression (plus 1 2)"},
		{"long return", "(program p (body (instructionSequence (returnStatement 1 2)) p))", "returnStatement takes at most one expression"},
		{"body closing name", "(program p (body (instructionSequence) 3))", "expected identifier, got 3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.src)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
			assert.Contains(t, err.Error(), "line 1")
		})
	}
}

func TestParse_ErrorLine(t *testing.T) {
	src := "(program p\n  (body\n    (instructionSequence\n      (jump))\n    p))"
	_, err := Parse(src)
	require.Error(t, err)
	assert.Equal(t, "line 4: unknown instruction (jump)", err.Error())
}
