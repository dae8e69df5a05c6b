// Package ast defines the syntax tree consumed by the compiler backend.
//
// There is one Go type per grammar nonterminal. Lists in the grammar
// (varDeclarations, instructionSequence, paramListCall, ...) are plain slices.
// Trees are strict: no node is shared between two parents.
package ast

import (
	"fmt"
	"strings"
)

//  Operators

// ArithOp is a binary arithmetic operator.
type ArithOp int

const (
	Add ArithOp = iota
	Sub
	Mul
	Div
	Mod
)

func (op ArithOp) String() string {
	switch op {
	case Add:
		return "+"
	case Sub:
		return "-"
	case Mul:
		return "*"
	case Div:
		return "DIV"
	case Mod:
		return "MOD"
	}
	return fmt.Sprintf("ArithOp(%d)", int(op))
}

// RelOp is a relational operator used in conditions.
type RelOp int

const (
	Eq RelOp = iota
	Ne
	Lt
	Gt
	Le
	Ge
)

func (op RelOp) String() string {
	switch op {
	case Eq:
		return "="
	case Ne:
		return "<>"
	case Lt:
		return "<"
	case Gt:
		return ">"
	case Le:
		return "<="
	case Ge:
		return ">="
	}
	return fmt.Sprintf("RelOp(%d)", int(op))
}

//  Expression nodes

// Expr is implemented by every node that produces a value.
type Expr interface {
	exprNode()
	String() string
}

// IntLiteral is an integer constant.
//
//	x := 10
//	     ^^  IntLiteral{Value: 10}
type IntLiteral struct {
	Value int
}

func (*IntLiteral) exprNode()        {}
func (l *IntLiteral) String() string { return fmt.Sprintf("%d", l.Value) }

// VarCall reads (or, as an assignment target, names) a variable. Used on an
// array it denotes the whole array.
//
//	y := x
//	     ^  VarCall{Name: "x"}
type VarCall struct {
	Name string
}

func (*VarCall) exprNode()        {}
func (v *VarCall) String() string { return v.Name }

// ArrayCall is an indexed array element.
//
//	a[i + 1]
//	^ ^^^^^
//	| Index
//	Name
type ArrayCall struct {
	Name  string
	Index Expr
}

func (*ArrayCall) exprNode()        {}
func (a *ArrayCall) String() string { return fmt.Sprintf("%s[%s]", a.Name, a.Index) }

// BinaryExpr represents Left Op Right.
type BinaryExpr struct {
	Op    ArithOp
	Left  Expr
	Right Expr
}

func (*BinaryExpr) exprNode() {}
func (b *BinaryExpr) String() string {
	return fmt.Sprintf("%s %s %s", b.Left, b.Op, b.Right)
}

// Parenthesized is a bracketed subexpression.
type Parenthesized struct {
	Inner Expr
}

func (*Parenthesized) exprNode()        {}
func (p *Parenthesized) String() string { return fmt.Sprintf("(%s)", p.Inner) }

// Negation is unary minus.
//
//	-x
type Negation struct {
	Operand Expr
}

func (*Negation) exprNode()        {}
func (n *Negation) String() string { return fmt.Sprintf("-%s", n.Operand) }

//  Conditions

// Condition compares two expressions. Conditions only appear in control flow.
type Condition struct {
	Left  Expr
	Op    RelOp
	Right Expr
}

func (c *Condition) String() string {
	return fmt.Sprintf("%s %s %s", c.Left, c.Op, c.Right)
}

//  Instructions

// Instruction is implemented by every statement node.
type Instruction interface {
	instructionNode()
	String() string
}

// Assignment stores Value into Target. Target is a *VarCall or *ArrayCall.
//
//	a[2] := x + 1
type Assignment struct {
	Target Expr
	Value  Expr
}

func (*Assignment) instructionNode() {}
func (a *Assignment) String() string { return fmt.Sprintf("%s := %s", a.Target, a.Value) }

// WhileLoop tests Cond before every iteration.
type WhileLoop struct {
	Cond *Condition
	Body []Instruction
}

func (*WhileLoop) instructionNode() {}
func (w *WhileLoop) String() string {
	return fmt.Sprintf("WHILE %s DO\n%sEND", w.Cond, block(w.Body))
}

// RepeatLoop runs Body until Cond holds.
type RepeatLoop struct {
	Body []Instruction
	Cond *Condition
}

func (*RepeatLoop) instructionNode() {}
func (r *RepeatLoop) String() string {
	return fmt.Sprintf("REPEAT\n%sUNTIL %s", block(r.Body), r.Cond)
}

// ForLoop counts Var from Init towards Bound by Step.
//
//	FOR i := 1 TO n BY 2 DO ... END
//
// Step is never zero; its sign fixes the direction.
type ForLoop struct {
	Var   string
	Init  Expr
	Bound Expr
	Step  int
	Body  []Instruction
}

func (*ForLoop) instructionNode() {}
func (f *ForLoop) String() string {
	return fmt.Sprintf("FOR %s := %s TO %s BY %d DO\n%sEND", f.Var, f.Init, f.Bound, f.Step, block(f.Body))
}

// Conditional is IF/THEN with an optional ELSE. HasElse distinguishes an
// absent else-section from an empty one.
type Conditional struct {
	Cond    *Condition
	Then    []Instruction
	HasElse bool
	Else    []Instruction
}

func (*Conditional) instructionNode() {}
func (c *Conditional) String() string {
	if !c.HasElse {
		return fmt.Sprintf("IF %s THEN\n%sEND", c.Cond, block(c.Then))
	}
	return fmt.Sprintf("IF %s THEN\n%sELSE\n%sEND", c.Cond, block(c.Then), block(c.Else))
}

// ProcedureCall invokes a procedure or function. It is both an instruction
// and, for functions, an expression.
//
//	f(x, a)
type ProcedureCall struct {
	Name string
	Args []Expr
}

func (*ProcedureCall) instructionNode() {}
func (*ProcedureCall) exprNode()        {}
func (p *ProcedureCall) String() string {
	args := make([]string, len(p.Args))
	for i, a := range p.Args {
		args[i] = a.String()
	}
	return fmt.Sprintf("%s(%s)", p.Name, strings.Join(args, ", "))
}

// Return leaves the enclosing function, procedure or program. Value is nil
// for a bare RETURN.
type Return struct {
	Value Expr
}

func (*Return) instructionNode() {}
func (r *Return) String() string {
	if r.Value == nil {
		return "RETURN"
	}
	return fmt.Sprintf("RETURN %s", r.Value)
}

//  Declarations

// VarDecl declares a scalar, or an array of Size cells when IsArray is set.
//
//	VAR a[5];
type VarDecl struct {
	Name    string
	IsArray bool
	Size    int
}

func (d *VarDecl) String() string {
	if d.IsArray {
		return fmt.Sprintf("%s[%d]", d.Name, d.Size)
	}
	return d.Name
}

// VarSection groups declarations under one VAR keyword.
type VarSection struct {
	Decls []*VarDecl
}

// Param is a formal parameter.
type Param interface {
	paramNode()
	Declaration() *VarDecl
}

// CopyParameter is passed by value. Arrays are copied element by element.
type CopyParameter struct {
	Decl *VarDecl
}

func (*CopyParameter) paramNode()              {}
func (p *CopyParameter) Declaration() *VarDecl { return p.Decl }

// ReferenceParameter is passed by address.
type ReferenceParameter struct {
	Decl *VarDecl
}

func (*ReferenceParameter) paramNode()              {}
func (p *ReferenceParameter) Declaration() *VarDecl { return p.Decl }

// ProcKind tells procedures (no result) from functions.
type ProcKind int

const (
	ProcedureKind ProcKind = iota
	FunctionKind
)

func (k ProcKind) String() string {
	if k == FunctionKind {
		return "FUNCTION"
	}
	return "PROCEDURE"
}

// Procedure is a procedure or function definition. ClosingName is the
// identifier after the final END and must equal Name.
type Procedure struct {
	Kind         ProcKind
	Name         string
	Params       []Param
	VarSections  []*VarSection
	Instructions []Instruction
	ClosingName  string
}

// Body is the main program block.
type Body struct {
	Instructions []Instruction
	Name         string
}

// Program is the root of the tree.
type Program struct {
	Name        string
	VarSections []*VarSection
	Procedures  []*Procedure
	Body        *Body
}

func block(instrs []Instruction) string {
	var sb strings.Builder
	for _, in := range instrs {
		for _, line := range strings.Split(in.String(), "\n") {
			sb.WriteString("  ")
			sb.WriteString(line)
			sb.WriteString("\n")
		}
	}
	return sb.String()
}
