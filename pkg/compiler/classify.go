package compiler

import "pascalvm/pkg/ast"

// ExprClass drives how an expression is generated.
type ExprClass int

const (
	// Invalid marks an expression that failed checking.
	Invalid ExprClass = iota
	// Literal folds to a constant and is used as an immediate operand.
	Literal
	// SingleVariable is a scalar usable directly as a memory operand.
	SingleVariable
	// WholeArray is an unindexed array name.
	WholeArray
	// Computed needs its own instruction sequence.
	Computed
)

func (c ExprClass) String() string {
	switch c {
	case Literal:
		return "literal"
	case SingleVariable:
		return "single variable"
	case WholeArray:
		return "whole array"
	case Computed:
		return "computed"
	}
	return "invalid"
}

// Classify categorizes e in the current scope. It does not report; the
// returned error is for the caller to report.
func (s *State) Classify(e ast.Expr) (ExprClass, *CompileError) {
	switch e := e.(type) {
	case nil:
		return Invalid, newError(StructuralMismatch, "missing expression")
	case *ast.IntLiteral:
		return Literal, nil
	case *ast.Parenthesized:
		return s.Classify(e.Inner)
	case *ast.Negation:
		c, err := s.Classify(e.Operand)
		switch {
		case err != nil:
			return Invalid, err
		case c == WholeArray:
			return Invalid, newError(TypeMismatch, "cannot negate whole array %s", e.Operand)
		case c == Literal:
			return Literal, nil
		}
		return Computed, nil
	case *ast.BinaryExpr:
		lc, err := s.Classify(e.Left)
		if err != nil {
			return Invalid, err
		}
		rc, err := s.Classify(e.Right)
		if err != nil {
			return Invalid, err
		}
		if lc == WholeArray || rc == WholeArray {
			return Invalid, newError(TypeMismatch, "whole array cannot be an operand of %s in %s", e.Op, e)
		}
		if lc == Literal && rc == Literal {
			if _, ok := Fold(e); ok {
				return Literal, nil
			}
		}
		return Computed, nil
	case *ast.VarCall:
		v, err := s.ResolveVariable(e.Name, false, nil)
		if err != nil {
			return Invalid, err
		}
		if v.Class.Whole() {
			return WholeArray, nil
		}
		return SingleVariable, nil
	case *ast.ArrayCall:
		ic, err := s.Classify(e.Index)
		if err != nil {
			return Invalid, err
		}
		if ic == WholeArray {
			return Invalid, newError(TypeMismatch, "whole array cannot index %q", e.Name)
		}
		var lit *int
		if ic == Literal {
			n, _ := Fold(e.Index)
			lit = &n
		}
		v, err := s.ResolveVariable(e.Name, true, lit)
		if err != nil {
			return Invalid, err
		}
		if v.Class.Scalar() {
			return SingleVariable, nil
		}
		return Computed, nil
	case *ast.ProcedureCall:
		return Computed, nil
	}
	return Invalid, newError(StructuralMismatch, "unexpected expression node %T", e)
}

// Fold evaluates a constant expression. Division truncates toward zero and
// the remainder takes the sign of the dividend. ok is false when e contains
// a non-constant or divides by zero.
func Fold(e ast.Expr) (value int, ok bool) {
	switch e := e.(type) {
	case *ast.IntLiteral:
		return e.Value, true
	case *ast.Parenthesized:
		return Fold(e.Inner)
	case *ast.Negation:
		v, ok := Fold(e.Operand)
		return -v, ok
	case *ast.BinaryExpr:
		l, ok := Fold(e.Left)
		if !ok {
			return 0, false
		}
		r, ok := Fold(e.Right)
		if !ok {
			return 0, false
		}
		switch e.Op {
		case ast.Add:
			return l + r, true
		case ast.Sub:
			return l - r, true
		case ast.Mul:
			return l * r, true
		case ast.Div:
			if r == 0 {
				return 0, false
			}
			return l / r, true
		case ast.Mod:
			if r == 0 {
				return 0, false
			}
			return l % r, true
		}
	}
	return 0, false
}

// unwrap strips parentheses.
func unwrap(e ast.Expr) ast.Expr {
	for {
		p, ok := e.(*ast.Parenthesized)
		if !ok {
			return e
		}
		e = p.Inner
	}
}

// elementAccess returns e as an array element access, which can be used
// through a pushed address instead of a pushed value.
func elementAccess(e ast.Expr) (*ast.ArrayCall, bool) {
	a, ok := unwrap(e).(*ast.ArrayCall)
	return a, ok
}
