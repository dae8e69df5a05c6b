// Package tree decodes the S-expression form of a parsed program into an
// ast.Program. Each nonterminal is a list headed by its name:
//
//	(program demo
//	  (varSections (varSection (varDeclaration x) (varDeclaration a 5)))
//	  (procedures ...)
//	  (body (instructionSequence (assignment (varCall x) (expression 2 + 3))) demo))
//
// Integers and bare symbols may stand in for (value n) and (varCall x).
package tree

import (
	"fmt"
	"strings"

	"pascalvm/pkg/ast"
	"pascalvm/pkg/sexpr"
)

// Parse reads a tree document.
func Parse(src string) (*ast.Program, error) {
	n, err := sexpr.Parse(src)
	if err != nil {
		return nil, err
	}
	return Decode(n)
}

// Decode converts a parsed document.
func Decode(n *sexpr.Node) (*ast.Program, error) {
	if n.Head() != "program" {
		return nil, errorf(n, "expected (program ...), got %s", n)
	}
	args := n.Args()
	if len(args) < 2 {
		return nil, errorf(n, "program needs a name and a body")
	}
	name, err := symbol(args[0])
	if err != nil {
		return nil, err
	}
	prog := &ast.Program{Name: name}
	for _, arg := range args[1:] {
		switch arg.Head() {
		case "varSections":
			if prog.VarSections, err = varSections(arg); err != nil {
				return nil, err
			}
		case "procedures":
			for _, p := range arg.Args() {
				proc, err := procedure(p)
				if err != nil {
					return nil, err
				}
				prog.Procedures = append(prog.Procedures, proc)
			}
		case "body":
			if prog.Body, err = body(arg); err != nil {
				return nil, err
			}
		default:
			return nil, errorf(arg, "unexpected %s in program", arg)
		}
	}
	if prog.Body == nil {
		return nil, errorf(n, "program %q has no body", name)
	}
	return prog, nil
}

func errorf(n *sexpr.Node, format string, args ...any) error {
	return fmt.Errorf("line %d: %s", n.Line, fmt.Sprintf(format, args...))
}

func symbol(n *sexpr.Node) (string, error) {
	if n.Type != sexpr.NodeSymbol {
		return "", errorf(n, "expected identifier, got %s", n)
	}
	return n.Text, nil
}

func expectHead(n *sexpr.Node, head string) error {
	if n.Head() != head {
		return errorf(n, "expected (%s ...), got %s", head, n)
	}
	return nil
}

func varSections(n *sexpr.Node) ([]*ast.VarSection, error) {
	var out []*ast.VarSection
	for _, sec := range n.Args() {
		if err := expectHead(sec, "varSection"); err != nil {
			return nil, err
		}
		vs := &ast.VarSection{}
		for _, d := range sec.Args() {
			decl, err := varDeclaration(d)
			if err != nil {
				return nil, err
			}
			vs.Decls = append(vs.Decls, decl)
		}
		out = append(out, vs)
	}
	return out, nil
}

func varDeclaration(n *sexpr.Node) (*ast.VarDecl, error) {
	if err := expectHead(n, "varDeclaration"); err != nil {
		return nil, err
	}
	args := n.Args()
	if len(args) < 1 || len(args) > 2 {
		return nil, errorf(n, "varDeclaration takes a name and an optional size")
	}
	name, err := symbol(args[0])
	if err != nil {
		return nil, err
	}
	decl := &ast.VarDecl{Name: name}
	if len(args) == 2 {
		size, err := args[1].Int()
		if err != nil {
			return nil, err
		}
		decl.IsArray, decl.Size = true, size
	}
	return decl, nil
}

func procedure(n *sexpr.Node) (*ast.Procedure, error) {
	if err := expectHead(n, "procedure"); err != nil {
		return nil, err
	}
	args := n.Args()
	if len(args) < 3 {
		return nil, errorf(n, "procedure needs a header, a name and a closing name")
	}

	proc := &ast.Procedure{}
	header := args[0].Head()
	if args[0].Type == sexpr.NodeSymbol {
		header = args[0].Text
	}
	switch header {
	case "procedureHeader":
		proc.Kind = ast.ProcedureKind
	case "functionHeader":
		proc.Kind = ast.FunctionKind
	default:
		return nil, errorf(args[0], "expected procedureHeader or functionHeader, got %s", args[0])
	}

	var err error
	if proc.Name, err = symbol(args[1]); err != nil {
		return nil, err
	}
	if proc.ClosingName, err = symbol(args[len(args)-1]); err != nil {
		return nil, err
	}

	for _, arg := range args[2 : len(args)-1] {
		switch arg.Head() {
		case "paramList":
			for _, p := range arg.Args() {
				param, err := parameter(p)
				if err != nil {
					return nil, err
				}
				proc.Params = append(proc.Params, param)
			}
		case "varSections":
			if proc.VarSections, err = varSections(arg); err != nil {
				return nil, err
			}
		case "instructionSequence":
			if proc.Instructions, err = instructionSequence(arg); err != nil {
				return nil, err
			}
		default:
			return nil, errorf(arg, "unexpected %s in procedure %q", arg, proc.Name)
		}
	}
	return proc, nil
}

func parameter(n *sexpr.Node) (ast.Param, error) {
	args := n.Args()
	if len(args) != 1 {
		return nil, errorf(n, "parameter takes one varDeclaration")
	}
	decl, err := varDeclaration(args[0])
	if err != nil {
		return nil, err
	}
	switch n.Head() {
	case "copyParameter":
		return &ast.CopyParameter{Decl: decl}, nil
	case "referenceParameter":
		return &ast.ReferenceParameter{Decl: decl}, nil
	}
	return nil, errorf(n, "expected copyParameter or referenceParameter, got %s", n)
}

func body(n *sexpr.Node) (*ast.Body, error) {
	args := n.Args()
	if len(args) != 2 {
		return nil, errorf(n, "body takes an instructionSequence and a closing name")
	}
	instrs, err := instructionSequence(args[0])
	if err != nil {
		return nil, err
	}
	name, err := symbol(args[1])
	if err != nil {
		return nil, err
	}
	return &ast.Body{Instructions: instrs, Name: name}, nil
}

func instructionSequence(n *sexpr.Node) ([]ast.Instruction, error) {
	if err := expectHead(n, "instructionSequence"); err != nil {
		return nil, err
	}
	var out []ast.Instruction
	for _, item := range n.Args() {
		in, err := instruction(item)
		if err != nil {
			return nil, err
		}
		out = append(out, in)
	}
	return out, nil
}

func instruction(n *sexpr.Node) (ast.Instruction, error) {
	args := n.Args()
	switch n.Head() {
	case "assignment":
		if len(args) != 2 {
			return nil, errorf(n, "assignment takes a target and a value")
		}
		target, err := expression(args[0])
		if err != nil {
			return nil, err
		}
		value, err := expression(args[1])
		if err != nil {
			return nil, err
		}
		return &ast.Assignment{Target: target, Value: value}, nil

	case "whileLoop":
		if len(args) != 2 {
			return nil, errorf(n, "whileLoop takes a condition and an instructionSequence")
		}
		cond, err := condition(args[0])
		if err != nil {
			return nil, err
		}
		instrs, err := instructionSequence(args[1])
		if err != nil {
			return nil, err
		}
		return &ast.WhileLoop{Cond: cond, Body: instrs}, nil

	case "repeatLoop":
		if len(args) != 2 {
			return nil, errorf(n, "repeatLoop takes an instructionSequence and a condition")
		}
		instrs, err := instructionSequence(args[0])
		if err != nil {
			return nil, err
		}
		cond, err := condition(args[1])
		if err != nil {
			return nil, err
		}
		return &ast.RepeatLoop{Body: instrs, Cond: cond}, nil

	case "forLoop":
		return forLoop(n)

	case "conditionalInstruction":
		if len(args) < 2 || len(args) > 3 {
			return nil, errorf(n, "conditionalInstruction takes a condition, an instructionSequence and an optional elseSection")
		}
		cond, err := condition(args[0])
		if err != nil {
			return nil, err
		}
		then, err := instructionSequence(args[1])
		if err != nil {
			return nil, err
		}
		c := &ast.Conditional{Cond: cond, Then: then}
		if len(args) == 3 {
			if err := expectHead(args[2], "elseSection"); err != nil {
				return nil, err
			}
			switch els := args[2].Args(); len(els) {
			case 0:
			case 1:
				c.HasElse = true
				if c.Else, err = instructionSequence(els[0]); err != nil {
					return nil, err
				}
			default:
				return nil, errorf(args[2], "elseSection takes at most one instructionSequence")
			}
		}
		return c, nil

	case "procedureCall":
		return procedureCall(n)

	case "returnStatement":
		switch len(args) {
		case 0:
			return &ast.Return{}, nil
		case 1:
			value, err := expression(args[0])
			if err != nil {
				return nil, err
			}
			return &ast.Return{Value: value}, nil
		}
		return nil, errorf(n, "returnStatement takes at most one expression")
	}
	return nil, errorf(n, "unknown instruction %s", n)
}

func forLoop(n *sexpr.Node) (ast.Instruction, error) {
	args := n.Args()
	if len(args) != 5 {
		return nil, errorf(n, "forLoop takes a variable, start, bound, advancement and instructionSequence")
	}
	name, err := symbol(args[0])
	if err != nil {
		return nil, err
	}
	init, err := expression(args[1])
	if err != nil {
		return nil, err
	}
	bound, err := expression(args[2])
	if err != nil {
		return nil, err
	}

	var step int
	adv := args[3]
	switch adv.Head() {
	case "positiveAdvancement", "negativeAdvancement":
		if len(adv.Args()) != 1 {
			return nil, errorf(adv, "%s takes one integer", adv.Head())
		}
		if step, err = adv.Args()[0].Int(); err != nil {
			return nil, err
		}
		if adv.Head() == "negativeAdvancement" {
			step = -step
		}
	default:
		if step, err = adv.Int(); err != nil {
			return nil, errorf(adv, "expected advancement, got %s", adv)
		}
	}

	instrs, err := instructionSequence(args[4])
	if err != nil {
		return nil, err
	}
	return &ast.ForLoop{Var: name, Init: init, Bound: bound, Step: step, Body: instrs}, nil
}

func procedureCall(n *sexpr.Node) (*ast.ProcedureCall, error) {
	args := n.Args()
	if len(args) < 1 || len(args) > 2 {
		return nil, errorf(n, "procedureCall takes a name and an optional paramListCall")
	}
	name, err := symbol(args[0])
	if err != nil {
		return nil, err
	}
	call := &ast.ProcedureCall{Name: name}
	if len(args) == 2 {
		if err := expectHead(args[1], "paramListCall"); err != nil {
			return nil, err
		}
		for _, a := range args[1].Args() {
			e, err := expression(a)
			if err != nil {
				return nil, err
			}
			call.Args = append(call.Args, e)
		}
	}
	return call, nil
}

func condition(n *sexpr.Node) (*ast.Condition, error) {
	if err := expectHead(n, "condition"); err != nil {
		return nil, err
	}
	args := n.Args()
	if len(args) != 3 {
		return nil, errorf(n, "condition takes an expression, an operator and an expression")
	}
	op, ok := relOps[args[1].Text]
	if !ok || args[1].Type != sexpr.NodeSymbol {
		return nil, errorf(args[1], "unknown relational operator %s", args[1])
	}
	left, err := expression(args[0])
	if err != nil {
		return nil, err
	}
	right, err := expression(args[2])
	if err != nil {
		return nil, err
	}
	return &ast.Condition{Left: left, Op: op, Right: right}, nil
}

var relOps = map[string]ast.RelOp{
	"=": ast.Eq, "<>": ast.Ne, "!=": ast.Ne, "#": ast.Ne,
	"<": ast.Lt, ">": ast.Gt, "<=": ast.Le, ">=": ast.Ge,
}

var arithOps = map[string]ast.ArithOp{
	"+": ast.Add, "-": ast.Sub, "*": ast.Mul,
	"/": ast.Div, "div": ast.Div, "%": ast.Mod, "mod": ast.Mod,
}

func expression(n *sexpr.Node) (ast.Expr, error) {
	switch n.Type {
	case sexpr.NodeInteger:
		v, err := n.Int()
		if err != nil {
			return nil, err
		}
		return &ast.IntLiteral{Value: v}, nil
	case sexpr.NodeSymbol:
		return &ast.VarCall{Name: n.Text}, nil
	}

	args := n.Args()
	switch n.Head() {
	case "expression":
		switch len(args) {
		case 1:
			inner, err := expression(args[0])
			if err != nil {
				return nil, err
			}
			return &ast.Parenthesized{Inner: inner}, nil
		case 3:
			op, ok := arithOps[strings.ToLower(args[1].Text)]
			if !ok || args[1].Type != sexpr.NodeSymbol {
				return nil, errorf(args[1], "unknown arithmetic operator %s", args[1])
			}
			left, err := expression(args[0])
			if err != nil {
				return nil, err
			}
			right, err := expression(args[2])
			if err != nil {
				return nil, err
			}
			return &ast.BinaryExpr{Op: op, Left: left, Right: right}, nil
		}
		return nil, errorf(n, "expression takes one operand or operand, operator, operand")

	case "negation":
		if len(args) != 1 {
			return nil, errorf(n, "negation takes one expression")
		}
		operand, err := expression(args[0])
		if err != nil {
			return nil, err
		}
		return &ast.Negation{Operand: operand}, nil

	case "value":
		if len(args) != 1 {
			return nil, errorf(n, "value takes one item")
		}
		return expression(args[0])

	case "varCall":
		if len(args) != 1 {
			return nil, errorf(n, "varCall takes a name")
		}
		name, err := symbol(args[0])
		if err != nil {
			return nil, err
		}
		return &ast.VarCall{Name: name}, nil

	case "arrayCall":
		if len(args) != 2 {
			return nil, errorf(n, "arrayCall takes a name and an index")
		}
		name, err := symbol(args[0])
		if err != nil {
			return nil, err
		}
		index, err := expression(args[1])
		if err != nil {
			return nil, err
		}
		return &ast.ArrayCall{Name: name, Index: index}, nil

	case "procedureCall":
		return procedureCall(n)
	}
	return nil, errorf(n, "unknown expression %s", n)
}
