package compiler

import (
	"errors"
	"fmt"

	"pascalvm/pkg/asm"
	"pascalvm/pkg/ast"
	"pascalvm/pkg/tree"
)

// Output is the result of one compilation. Assembly produced alongside a
// failure is not meant to be executed.
type Output struct {
	Assembly string
	OK       bool
	Errors   []*CompileError
}

// Err joins the diagnostics, or returns nil on success.
func (o *Output) Err() error {
	if o.OK {
		return nil
	}
	errs := make([]error, len(o.Errors))
	for i, e := range o.Errors {
		errs[i] = e
	}
	return errors.Join(errs...)
}

// Generate compiles prog. Every diagnostic is reported; generation carries
// on after each one so a single pass surfaces independent errors.
func Generate(prog *ast.Program, opts ...Option) *Output {
	cg := newCodeGen(NewState(opts...))
	cg.genProgram(prog)

	cg.log.Debug("compiled program", "name", cg.program, "globals", len(cg.globals),
		"functions", len(cg.functions), "labels", len(cg.labels), "ok", !cg.Failed())

	return &Output{
		Assembly: cg.out.String(),
		OK:       !cg.Failed(),
		Errors:   cg.Errors(),
	}
}

// Compile parses a tree document, generates assembly and assembles it.
// The Output is returned whenever generation ran, even if it failed.
func Compile(src string, opts ...Option) (*Output, *asm.Program, error) {
	prog, err := tree.Parse(src)
	if err != nil {
		return nil, nil, fmt.Errorf("parse error: %w", err)
	}

	out := Generate(prog, opts...)
	if !out.OK {
		return out, nil, fmt.Errorf("compilation failed: %w", out.Err())
	}

	program, err := asm.Assemble(out.Assembly)
	if err != nil {
		return out, nil, fmt.Errorf("assembly error: %w", err)
	}
	return out, program, nil
}
