package compiler

import (
	"fmt"
	"strings"

	"pascalvm/pkg/ast"
)

// CodeGen walks a Program and emits assembly text in execution order, so
// stack-relative operands always see the push count of their own instruction.
type CodeGen struct {
	*State
	out strings.Builder
}

func newCodeGen(st *State) *CodeGen {
	return &CodeGen{State: st}
}

// emit writes one instruction. Short mnemonics get an extra tab so operands
// line up.
func (cg *CodeGen) emit(op string, operand string) {
	switch {
	case operand == "":
		fmt.Fprintf(&cg.out, "\t%s\n", op)
	case len(op) < 4:
		fmt.Fprintf(&cg.out, "\t%s\t\t%s\n", op, operand)
	default:
		fmt.Fprintf(&cg.out, "\t%s\t%s\n", op, operand)
	}
}

func (cg *CodeGen) label(name string) {
	fmt.Fprintf(&cg.out, "%s:\n", name)
}

func (cg *CodeGen) pushAcc() {
	cg.emit("PUSH", "")
	cg.push(1)
}

// reserve emits RSV for transient cells that belong to the current expression.
func (cg *CodeGen) reserve(n int) {
	cg.emit("RSV", fmt.Sprintf("%d", n))
	cg.push(n)
}

func (cg *CodeGen) release(n int) {
	if n == 0 {
		return
	}
	cg.emit("REL", fmt.Sprintf("$%d", n))
	cg.pop(n)
}

// declare registers a VAR declaration in the active scope.
func (cg *CodeGen) declare(d *ast.VarDecl) {
	if d == nil {
		cg.fail(StructuralMismatch, "missing variable declaration")
		return
	}
	size, ok := cg.declSize(d)
	if !ok {
		return
	}
	cg.RegisterVariable(d.Name, size, false)
}

func (cg *CodeGen) declSize(d *ast.VarDecl) (int, bool) {
	if !d.IsArray {
		return 0, true
	}
	if d.Size < 1 {
		cg.fail(TypeMismatch, "array %q must have a positive size, got %d", d.Name, d.Size)
		return 0, false
	}
	return d.Size, true
}

func (cg *CodeGen) genProgram(p *ast.Program) {
	if p == nil || p.Body == nil {
		cg.fail(StructuralMismatch, "program has no body")
		return
	}
	cg.program = p.Name
	start, end := p.Name+"$Start", p.Name+"$End"

	cg.emit("JMP", start)

	for _, sec := range p.VarSections {
		if sec == nil {
			cg.fail(StructuralMismatch, "missing var section")
			continue
		}
		for _, d := range sec.Decls {
			cg.declare(d)
		}
	}

	for _, proc := range p.Procedures {
		cg.genProcedure(proc)
	}

	if p.Body.Name != p.Name {
		cg.fail(NameMismatch, "program %q is closed by %q", p.Name, p.Body.Name)
	}
	cg.RegisterLabel(start)
	cg.label(start)
	cg.genBlock(p.Body.Instructions)
	cg.RegisterLabel(end)
	cg.label(end)
	cg.emit("HOLD", "")

	for _, g := range cg.globals {
		cg.label(g.Name)
		for i := 0; i < max(g.Size, 1); i++ {
			cg.emit("WORD", "0")
		}
	}
}

func (cg *CodeGen) genProcedure(p *ast.Procedure) {
	if p == nil {
		cg.fail(StructuralMismatch, "missing procedure")
		return
	}
	if p.ClosingName != p.Name {
		cg.fail(NameMismatch, "%s %q is closed by %q", strings.ToLower(p.Kind.String()), p.Name, p.ClosingName)
		return
	}

	fn := cg.DefineFunction(p.Name, p.Kind)
	if fn == nil {
		return
	}
	for _, param := range p.Params {
		if param == nil || param.Declaration() == nil {
			cg.fail(StructuralMismatch, "missing parameter declaration in %q", p.Name)
			continue
		}
		d := param.Declaration()
		size, ok := cg.declSize(d)
		if !ok {
			continue
		}
		_, byRef := param.(*ast.ReferenceParameter)
		cg.AddParameter(fn, d.Name, size, byRef)
	}

	cg.enter(fn)
	defer cg.leave()

	for _, sec := range p.VarSections {
		if sec == nil {
			cg.fail(StructuralMismatch, "missing var section in %q", p.Name)
			continue
		}
		for _, d := range sec.Decls {
			cg.declare(d)
		}
	}

	if fn.IsFunction() && !alwaysReturns(p.Instructions) {
		cg.fail(MissingReturn, "function %q does not return a value on every path", p.Name)
	}

	end := p.Name + "$End"
	if cg.RegisterLabel(p.Name) {
		cg.RegisterLabel(end)
	}

	locals := cg.current.LocalCells()
	cg.label(p.Name)
	if locals > 0 {
		cg.emit("RSV", fmt.Sprintf("%d", locals))
	}
	cg.genBlock(p.Instructions)
	cg.label(end)
	if locals > 0 {
		cg.emit("REL", fmt.Sprintf("$%d", locals))
	}
	cg.emit("RTS", "")

	cg.log.Debug("generated procedure", "name", p.Name, "kind", p.Kind.String(),
		"params", len(fn.Params), "frame_cells", cg.current.Vars.Cells())
}

func (cg *CodeGen) genBlock(instrs []ast.Instruction) {
	for _, in := range instrs {
		cg.genInstruction(in)
	}
}

func (cg *CodeGen) genInstruction(in ast.Instruction) {
	switch in := in.(type) {
	case *ast.Assignment:
		cg.genAssignment(in)
	case *ast.WhileLoop:
		cg.genWhile(in)
	case *ast.RepeatLoop:
		cg.genRepeat(in)
	case *ast.ForLoop:
		cg.genFor(in)
	case *ast.Conditional:
		cg.genConditional(in)
	case *ast.ProcedureCall:
		cg.genCall(in, false)
	case *ast.Return:
		cg.genReturn(in)
	default:
		cg.fail(StructuralMismatch, "unexpected instruction node %T", in)
	}
}

func (cg *CodeGen) genAssignment(a *ast.Assignment) {
	target, ok := cg.resolveTarget(a.Target)
	if !ok {
		return
	}
	vc := cg.checkExpr(a.Value)
	if vc == Invalid {
		return
	}

	switch {
	case target.Class.Whole():
		if vc != WholeArray {
			cg.fail(TypeMismatch, "cannot assign %s to whole array %q", a.Value, target.Slot.Name)
			return
		}
		src, _ := cg.resolve(a.Value)
		if src.Slot.Size != target.Slot.Size {
			cg.fail(ArraySizeMismatch, "cannot assign array %q of size %d to %q of size %d",
				src.Slot.Name, src.Slot.Size, target.Slot.Name, target.Slot.Size)
			return
		}
		cg.copyArray(target, src)
	case vc == WholeArray:
		cg.fail(TypeMismatch, "cannot assign whole array %s to %s", a.Value, a.Target)
	case target.Class.Scalar():
		cg.genExpr(a.Value)
		cg.emit("STORE", cg.varOperand(target))
	default:
		cg.pushAddress(a.Target)
		cg.genExpr(a.Value)
		cg.emit("STORE", "@0(SP)")
		cg.release(1)
	}
}

// resolveTarget checks an assignment target and resolves it.
func (cg *CodeGen) resolveTarget(e ast.Expr) (Variable, bool) {
	switch t := e.(type) {
	case *ast.VarCall:
		v, err := cg.ResolveVariable(t.Name, false, nil)
		if err != nil {
			cg.report(err)
			return Variable{}, false
		}
		return v, true
	case *ast.ArrayCall:
		if cg.checkExpr(t) == Invalid {
			return Variable{}, false
		}
		v, _ := cg.resolve(t)
		return v, true
	}
	cg.fail(StructuralMismatch, "assignment target %v is not a variable", e)
	return Variable{}, false
}

// copyArray copies src into dst element by element through two address
// cells on the stack: destination at 1(SP), source at 0(SP).
func (cg *CodeGen) copyArray(dst, src Variable) {
	cg.emit("LOAD", cg.baseAddress(dst))
	cg.pushAcc()
	cg.emit("LOAD", cg.baseAddress(src))
	cg.pushAcc()
	for i := 0; i < dst.Slot.Size; i++ {
		if i > 0 {
			for _, cell := range []string{"1(SP)", "0(SP)"} {
				cg.emit("LOAD", cell)
				cg.emit("ADD", "$1")
				cg.emit("STORE", cell)
			}
		}
		cg.emit("LOAD", "@0(SP)")
		cg.emit("STORE", "@1(SP)")
	}
	cg.release(2)
}

func (cg *CodeGen) genWhile(w *ast.WhileLoop) {
	top, end := cg.GenerateLabel(), cg.GenerateLabel()
	cg.label(top)
	cg.genCondition(w.Cond, end, false)
	cg.genBlock(w.Body)
	cg.emit("JMP", top)
	cg.label(end)
}

func (cg *CodeGen) genRepeat(r *ast.RepeatLoop) {
	top := cg.GenerateLabel()
	cg.label(top)
	cg.genBlock(r.Body)
	cg.genCondition(r.Cond, top, false)
}

func (cg *CodeGen) genConditional(c *ast.Conditional) {
	elseLabel := cg.GenerateLabel()
	var end string
	if c.HasElse {
		end = cg.GenerateLabel()
	}
	cg.genCondition(c.Cond, elseLabel, false)
	cg.genBlock(c.Then)
	if c.HasElse {
		cg.emit("JMP", end)
	}
	cg.label(elseLabel)
	if c.HasElse {
		cg.genBlock(c.Else)
		cg.label(end)
	}
}

func (cg *CodeGen) genFor(f *ast.ForLoop) {
	if f.Step == 0 {
		cg.fail(StructuralMismatch, "for loop over %q has a zero step", f.Var)
		return
	}
	v, err := cg.ResolveVariable(f.Var, false, nil)
	if err != nil {
		cg.report(err)
		return
	}
	if v.Class.Whole() {
		cg.fail(TypeMismatch, "loop variable %q cannot be a whole array", f.Var)
		return
	}

	// Separate views of the loop variable: one to store into, one to read.
	cg.genAssignment(&ast.Assignment{Target: &ast.VarCall{Name: f.Var}, Value: f.Init})

	switch cg.checkExpr(f.Bound) {
	case Invalid:
		return
	case WholeArray:
		cg.fail(TypeMismatch, "loop bound %s cannot be a whole array", f.Bound)
		return
	}
	top, end := cg.GenerateLabel(), cg.GenerateLabel()
	cg.genExpr(f.Bound)
	cg.pushAcc()

	counter := &ast.VarCall{Name: f.Var}
	exit, advance, step := "JMPP", "ADD", f.Step
	if f.Step < 0 {
		exit, advance, step = "JMPN", "SUB", -f.Step
	}

	cg.label(top)
	cg.genExpr(counter)
	cg.emit("CMP", "0(SP)")
	cg.emit(exit, end)
	cg.genBlock(f.Body)
	cg.genExpr(counter)
	cg.emit(advance, fmt.Sprintf("$%d", step))
	cg.emit("JMPV", end)
	target, _ := cg.resolve(&ast.VarCall{Name: f.Var})
	cg.emit("STORE", cg.varOperand(target))
	cg.emit("JMP", top)
	cg.label(end)
	cg.release(1)
}

func (cg *CodeGen) genReturn(r *ast.Return) {
	end, isFunc, owner := cg.program+"$End", false, fmt.Sprintf("program %q", cg.program)
	if cg.current != nil {
		fn := cg.current.Function
		end, isFunc = fn.Name+"$End", fn.IsFunction()
		owner = fmt.Sprintf("%s %q", strings.ToLower(fn.Kind.String()), fn.Name)
	}

	switch {
	case r.Value == nil && isFunc:
		cg.fail(TypeMismatch, "%s must return a value", owner)
		return
	case r.Value != nil && !isFunc:
		cg.fail(TypeMismatch, "%s cannot return a value", owner)
		return
	}

	if r.Value != nil {
		switch cg.checkExpr(r.Value) {
		case Invalid:
			return
		case WholeArray:
			cg.fail(TypeMismatch, "cannot return whole array %s", r.Value)
			return
		}
		cg.genExpr(r.Value)
	}
	if n := cg.pushed(); n > 0 {
		cg.emit("REL", fmt.Sprintf("$%d", n))
	}
	cg.emit("JMP", end)
}
