package compiler

import (
	"fmt"

	"pascalvm/pkg/ast"
)

var arithMnemonics = map[ast.ArithOp]string{
	ast.Add: "ADD",
	ast.Sub: "SUB",
	ast.Mul: "MUL",
	ast.Div: "DIV",
	ast.Mod: "MOD",
}

// Jumps taken when the comparison holds, and when it does not. CMP sets the
// flags from acc - operand.
var (
	jumpIfTrue = map[ast.RelOp]string{
		ast.Eq: "JMPZ", ast.Ne: "JMPNZ", ast.Lt: "JMPN", ast.Gt: "JMPP", ast.Le: "JMPNP", ast.Ge: "JMPNN",
	}
	jumpIfFalse = map[ast.RelOp]string{
		ast.Eq: "JMPNZ", ast.Ne: "JMPZ", ast.Lt: "JMPNN", ast.Gt: "JMPNP", ast.Le: "JMPP", ast.Ge: "JMPN",
	}
)

// mirror returns the operator that holds after swapping both sides.
func mirror(op ast.RelOp) ast.RelOp {
	switch op {
	case ast.Lt:
		return ast.Gt
	case ast.Gt:
		return ast.Lt
	case ast.Le:
		return ast.Ge
	case ast.Ge:
		return ast.Le
	}
	return op
}

// checkExpr classifies e and reports any failure.
func (cg *CodeGen) checkExpr(e ast.Expr) ExprClass {
	c, err := cg.Classify(e)
	if err != nil {
		cg.report(err)
		return Invalid
	}
	return c
}

// classOf classifies an expression that already passed checkExpr.
func (cg *CodeGen) classOf(e ast.Expr) ExprClass {
	c, _ := cg.Classify(e)
	return c
}

// resolve looks up the variable behind a VarCall or ArrayCall that already
// passed checking.
func (cg *CodeGen) resolve(e ast.Expr) (Variable, bool) {
	switch e := unwrap(e).(type) {
	case *ast.VarCall:
		v, err := cg.ResolveVariable(e.Name, false, nil)
		return v, err == nil
	case *ast.ArrayCall:
		var lit *int
		if n, ok := Fold(e.Index); ok {
			lit = &n
		}
		v, err := cg.ResolveVariable(e.Name, true, lit)
		return v, err == nil
	}
	return Variable{}, false
}

// operand returns the immediate or memory operand of a Literal or
// SingleVariable expression.
func (cg *CodeGen) operand(e ast.Expr) string {
	if n, ok := Fold(e); ok {
		return fmt.Sprintf("$%d", n)
	}
	v, _ := cg.resolve(e)
	return cg.varOperand(v)
}

// genExpr leaves the value of a checked expression in the accumulator.
func (cg *CodeGen) genExpr(e ast.Expr) {
	switch cg.classOf(e) {
	case Literal, SingleVariable:
		cg.emit("LOAD", cg.operand(e))
		return
	}

	switch e := e.(type) {
	case *ast.Parenthesized:
		cg.genExpr(e.Inner)
	case *ast.Negation:
		cg.combine(func() { cg.emit("LOAD", "$0") }, "SUB", e.Operand)
	case *ast.BinaryExpr:
		cg.genBinary(e)
	case *ast.ArrayCall:
		cg.pushAddress(e)
		cg.emit("LOAD", "@0(SP)")
		cg.release(1)
	case *ast.ProcedureCall:
		cg.genCall(e, true)
	}
}

// combine emits loadLeft followed by "op right". When right needs its own
// instruction sequence it goes first: an element's address, or its value,
// is pushed and the operation reads it from the stack.
func (cg *CodeGen) combine(loadLeft func(), op string, right ast.Expr) {
	if cg.classOf(right) != Computed {
		loadLeft()
		cg.emit(op, cg.operand(right))
		return
	}
	if elem, ok := elementAccess(right); ok {
		cg.pushAddress(elem)
		loadLeft()
		cg.emit(op, "@0(SP)")
		cg.release(1)
		return
	}
	cg.genExpr(right)
	cg.pushAcc()
	loadLeft()
	cg.emit(op, "0(SP)")
	cg.release(1)
}

func (cg *CodeGen) genBinary(b *ast.BinaryExpr) {
	// x + -y is x - y, and x - -y is x + y.
	if b.Op == ast.Add || b.Op == ast.Sub {
		if neg, ok := unwrap(b.Right).(*ast.Negation); ok {
			op := ast.Sub
			if b.Op == ast.Sub {
				op = ast.Add
			}
			cg.genExpr(&ast.BinaryExpr{Op: op, Left: b.Left, Right: neg.Operand})
			return
		}
	}

	mnemonic := arithMnemonics[b.Op]
	commutative := b.Op == ast.Add || b.Op == ast.Mul
	_, rightIsElement := elementAccess(b.Right)
	if commutative && cg.classOf(b.Left) != Computed && cg.classOf(b.Right) == Computed && !rightIsElement {
		cg.genExpr(b.Right)
		cg.emit(mnemonic, cg.operand(b.Left))
		return
	}
	cg.combine(func() { cg.genExpr(b.Left) }, mnemonic, b.Right)
}

// genCondition emits a comparison and a jump to target taken when the
// condition evaluates to want.
func (cg *CodeGen) genCondition(c *ast.Condition, target string, want bool) {
	if c == nil {
		cg.fail(StructuralMismatch, "missing condition")
		return
	}
	lc, rc := cg.checkExpr(c.Left), cg.checkExpr(c.Right)
	if lc == Invalid || rc == Invalid {
		return
	}
	if lc == WholeArray || rc == WholeArray {
		cg.fail(TypeMismatch, "whole array cannot be compared in %s", c)
		return
	}

	left, op, right := c.Left, c.Op, c.Right
	if _, isElement := elementAccess(right); lc != Computed && rc == Computed && !isElement {
		left, right, op = right, left, mirror(op)
	}
	cg.combine(func() { cg.genExpr(left) }, "CMP", right)

	jumps := jumpIfFalse
	if want {
		jumps = jumpIfTrue
	}
	cg.emit(jumps[op], target)
}

// pushAddress pushes the address of a variable, array element or whole
// array.
func (cg *CodeGen) pushAddress(e ast.Expr) {
	v, _ := cg.resolve(e)
	if a, ok := unwrap(e).(*ast.ArrayCall); ok && v.Class.Element() {
		cg.genExpr(a.Index)
		cg.emit("ADD", cg.baseAddress(v))
	} else {
		cg.emit("LOAD", cg.baseAddress(v))
	}
	cg.pushAcc()
}

// genCall checks and emits a call. As a value the result is left in the
// accumulator.
func (cg *CodeGen) genCall(call *ast.ProcedureCall, asValue bool) {
	fn, err := cg.LookupFunction(call.Name)
	if err != nil {
		cg.report(err)
		return
	}
	if asValue && !fn.IsFunction() {
		cg.fail(TypeMismatch, "procedure %q does not return a value", fn.Name)
		return
	}
	switch {
	case len(call.Args) < len(fn.Params):
		cg.fail(ArgumentCountMismatch, "too few arguments in call to %q: want %d, got %d", fn.Name, len(fn.Params), len(call.Args))
		return
	case len(call.Args) > len(fn.Params):
		cg.fail(ArgumentCountMismatch, "too many arguments in call to %q: want %d, got %d", fn.Name, len(fn.Params), len(call.Args))
		return
	}

	ok := true
	for i, p := range fn.Params {
		if !cg.checkArgument(fn, i, p, call.Args[i]) {
			ok = false
		}
	}
	if !ok {
		return
	}

	for i, p := range fn.Params {
		arg := call.Args[i]
		switch {
		case p.IsArray() && !p.ByRef:
			src, _ := cg.resolve(arg)
			cg.copyArgument(src)
		case p.ByRef:
			cg.pushAddress(arg)
		default:
			cg.genExpr(arg)
			cg.pushAcc()
		}
	}
	cg.emit("JSR", fn.Name)
	cg.release(fn.Params.Cells())
}

func (cg *CodeGen) checkArgument(fn *FunctionDef, i int, p VarSlot, arg ast.Expr) bool {
	c := cg.checkExpr(arg)
	switch {
	case c == Invalid:
		return false
	case p.IsArray():
		if c != WholeArray {
			cg.fail(ArgumentKindMismatch, "argument %d of %q must be an array of size %d, got %s", i+1, fn.Name, p.Size, arg)
			return false
		}
		src, _ := cg.resolve(arg)
		if src.Slot.Size != p.Size {
			cg.fail(ArraySizeMismatch, "argument %d of %q must be an array of size %d, got %q of size %d",
				i+1, fn.Name, p.Size, src.Slot.Name, src.Slot.Size)
			return false
		}
	case c == WholeArray:
		cg.fail(ArgumentKindMismatch, "argument %d of %q must be a scalar, got array %s", i+1, fn.Name, arg)
		return false
	case p.ByRef:
		switch unwrap(arg).(type) {
		case *ast.VarCall, *ast.ArrayCall:
		default:
			cg.fail(ArgumentKindMismatch, "argument %d of %q is passed by reference and must be a variable, got %s", i+1, fn.Name, arg)
			return false
		}
	}
	return true
}

// copyArgument reserves room for a by-value array argument and copies src
// into it through an address cell pushed above the reserved block.
func (cg *CodeGen) copyArgument(src Variable) {
	n := src.Slot.Size
	cg.reserve(n)
	cg.emit("LOAD", cg.baseAddress(src))
	cg.pushAcc()
	for i := 0; i < n; i++ {
		if i > 0 {
			cg.emit("LOAD", "0(SP)")
			cg.emit("ADD", "$1")
			cg.emit("STORE", "0(SP)")
		}
		cg.emit("LOAD", "@0(SP)")
		cg.emit("STORE", fmt.Sprintf("%d(SP)", i+1))
	}
	cg.release(1)
}
