package compiler

import "pascalvm/pkg/ast"

// alwaysReturns reports whether every path through seq ends in a RETURN.
// A statement guarantees it when it is a RETURN, an IF whose THEN and
// non-empty ELSE both guarantee it, or a REPEAT whose body does. WHILE and
// FOR bodies may not run at all.
func alwaysReturns(seq []ast.Instruction) bool {
	for _, in := range seq {
		switch in := in.(type) {
		case *ast.Return:
			return true
		case *ast.Conditional:
			if in.HasElse && len(in.Else) > 0 && alwaysReturns(in.Then) && alwaysReturns(in.Else) {
				return true
			}
		case *ast.RepeatLoop:
			if alwaysReturns(in.Body) {
				return true
			}
		}
	}
	return false
}
