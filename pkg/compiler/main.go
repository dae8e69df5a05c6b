// Package compiler translates a Pascal-like syntax tree into assembly for an
// accumulator machine with an explicit operand stack.
//
// Pipeline: tree text → tree.Parse → Generate → assembly text → asm.Assemble
package compiler
