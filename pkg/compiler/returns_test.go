package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"pascalvm/pkg/ast"
)

func TestAlwaysReturns(t *testing.T) {
	c := cond(ref("x"), ast.Eq, lit(0))
	r := ret(lit(1))
	noop := set(ref("x"), lit(0))

	tests := []struct {
		name string
		seq  []ast.Instruction
		want bool
	}{
		{"empty", nil, false},
		{"plain return", []ast.Instruction{r}, true},
		{"return after statements", []ast.Instruction{noop, noop, r}, true},
		{"if without else", []ast.Instruction{&ast.Conditional{Cond: c, Then: []ast.Instruction{r}}}, false},
		{"if with empty else", []ast.Instruction{&ast.Conditional{Cond: c, Then: []ast.Instruction{r}, HasElse: true}}, false},
		{"if and else return", []ast.Instruction{&ast.Conditional{
			Cond: c, Then: []ast.Instruction{r}, HasElse: true, Else: []ast.Instruction{noop, r},
		}}, true},
		{"only else returns", []ast.Instruction{&ast.Conditional{
			Cond: c, Then: []ast.Instruction{noop}, HasElse: true, Else: []ast.Instruction{r},
		}}, false},
		{"if without else then return", []ast.Instruction{&ast.Conditional{Cond: c, Then: []ast.Instruction{noop}}, r}, true},
		{"while body", []ast.Instruction{&ast.WhileLoop{Cond: c, Body: []ast.Instruction{r}}}, false},
		{"for body", []ast.Instruction{&ast.ForLoop{Var: "x", Init: lit(0), Bound: lit(1), Step: 1, Body: []ast.Instruction{r}}}, false},
		{"repeat body", []ast.Instruction{&ast.RepeatLoop{Body: []ast.Instruction{r}, Cond: c}}, true},
		{"nested", []ast.Instruction{&ast.Conditional{
			Cond: c,
			Then: []ast.Instruction{&ast.Conditional{Cond: c, Then: []ast.Instruction{r}, HasElse: true, Else: []ast.Instruction{r}}},
			HasElse: true,
			Else:    []ast.Instruction{&ast.RepeatLoop{Body: []ast.Instruction{r}, Cond: c}},
		}}, true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, alwaysReturns(tt.seq), tt.name)
	}
}
