package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"pascalvm/pkg/asm"
	"pascalvm/pkg/cli"
	"pascalvm/pkg/compiler"
	"pascalvm/pkg/logger"
	"pascalvm/pkg/tree"
	"pascalvm/pkg/utils"
	"pascalvm/pkg/vm"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	config, err := cli.ParseArgs(args)
	if errors.Is(err, flag.ErrHelp) {
		cli.PrintHelp(stdout)
		return 0
	}
	if err != nil {
		fmt.Fprintln(stderr, err)
		cli.PrintHelp(stderr)
		return 2
	}
	if config.ShowHelp {
		cli.PrintHelp(stdout)
		return 0
	}
	if config.InPath == "" {
		fmt.Fprintln(stderr, "nothing to do: provide a tree file")
		cli.PrintHelp(stderr)
		return 2
	}
	if err := logger.InitLoggerTo(stderr, config.LogLevel); err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}
	log := logger.GetLogger()

	source, err := utils.ReadSource(config.InPath, config.Encoding)
	if err != nil {
		fmt.Fprintf(stderr, "failed to read input file %q: %v\n", config.InPath, err)
		return 1
	}

	prog, err := tree.Parse(source)
	if err != nil {
		fmt.Fprintf(stderr, "%s: %v\n", config.InPath, err)
		return 1
	}

	out := compiler.Generate(prog, compiler.WithDiagnostics(stderr), compiler.WithLogger(log))
	if !out.OK {
		fmt.Fprintf(stderr, "compilation failed with %d error(s)\n", len(out.Errors))
		return 1
	}

	if err := utils.WriteFileLocked(config.OutPath, []byte(out.Assembly)); err != nil {
		fmt.Fprintf(stderr, "failed to write assembly file %q: %v\n", config.OutPath, err)
		return 1
	}
	log.Info("compiled", "in", config.InPath, "out", config.OutPath)

	if !config.Run {
		return 0
	}

	image, err := asm.Assemble(out.Assembly)
	if err != nil {
		fmt.Fprintf(stderr, "assembly failed: %v\n", err)
		return 1
	}

	opts := []vm.Option{vm.WithMaxSteps(config.MaxSteps), vm.WithStackSize(config.StackSize), vm.WithLogger(log)}
	if config.Trace {
		opts = append(opts, vm.WithTrace(stderr))
	}
	machine := vm.New(image, opts...)
	if err := machine.Run(); err != nil {
		fmt.Fprintf(stderr, "run failed: %v\n", err)
		return 1
	}

	for _, sec := range prog.VarSections {
		for _, d := range sec.Decls {
			n := 1
			if d.IsArray {
				n = d.Size
			}
			words, err := machine.Words(d.Name, n)
			if err != nil {
				fmt.Fprintf(stderr, "read %s: %v\n", d.Name, err)
				return 1
			}
			if d.IsArray {
				fmt.Fprintf(stdout, "%s = %v\n", d.Name, words)
			} else {
				fmt.Fprintf(stdout, "%s = %d\n", d.Name, words[0])
			}
		}
	}
	return 0
}
