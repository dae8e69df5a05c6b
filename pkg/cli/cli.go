// Package cli parses the pascalvm command line.
package cli

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"pascalvm/pkg/logger"
	"pascalvm/pkg/utils"
	"pascalvm/pkg/vm"
)

// Config holds the settings of one invocation.
type Config struct {
	InPath    string // tree file
	OutPath   string // assembly output, default InPath with .asm
	Run       bool   // execute the result on the VM
	Trace     bool   // trace VM execution to stderr
	LogLevel  string // debug, info, warn, error
	Encoding  string // charset of the tree file
	MaxSteps  int
	StackSize int
	ShowHelp  bool
}

// ParseArgs parses args (without the program name). Environment variables
// fill in settings whose flags were left at their defaults.
func ParseArgs(args []string) (*Config, error) {
	fs := flag.NewFlagSet("pascalvm", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	config := &Config{}
	fs.StringVar(&config.InPath, "in", "", "input tree file")
	fs.StringVar(&config.OutPath, "out", "", "output assembly file (default: input with .asm extension)")
	fs.BoolVar(&config.Run, "run", false, "run the compiled program on the VM")
	fs.BoolVar(&config.Trace, "trace", false, "trace VM execution to stderr")
	fs.StringVar(&config.LogLevel, "log-level", "info", "log level (debug, info, warn, error)")
	fs.StringVar(&config.Encoding, "encoding", "utf-8", "character encoding of the input file")
	fs.IntVar(&config.MaxSteps, "max-steps", vm.DefaultMaxSteps, "VM step budget")
	fs.IntVar(&config.StackSize, "stack", vm.DefaultStackSize, "VM stack size in cells")
	fs.BoolVar(&config.ShowHelp, "help", false, "show help")
	fs.BoolVar(&config.ShowHelp, "h", false, "show help (shorthand)")

	if err := fs.Parse(reorderArgs(args)); err != nil {
		return nil, err
	}

	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })

	if !set["log-level"] {
		if env := os.Getenv("LOG_LEVEL"); env != "" {
			config.LogLevel = strings.ToLower(env)
		}
	}
	if !set["encoding"] {
		if env := os.Getenv("PASCALVM_ENCODING"); env != "" {
			config.Encoding = env
		}
	}
	if !set["max-steps"] {
		if env := os.Getenv("PASCALVM_MAX_STEPS"); env != "" {
			n, err := strconv.Atoi(env)
			if err != nil {
				return nil, fmt.Errorf("invalid PASCALVM_MAX_STEPS %q: %w", env, err)
			}
			config.MaxSteps = n
		}
	}

	if config.InPath == "" && fs.NArg() > 0 {
		config.InPath = fs.Arg(0)
	}
	if fs.NArg() > 1 {
		return nil, fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args()[1:], " "))
	}
	if config.OutPath == "" && config.InPath != "" {
		config.OutPath = utils.DefaultOutputPath(config.InPath, ".asm")
	}

	if _, err := logger.ParseLevel(config.LogLevel); err != nil {
		return nil, fmt.Errorf("%w (must be debug, info, warn, or error)", err)
	}
	if _, err := utils.LookupEncoding(config.Encoding); err != nil {
		return nil, err
	}
	if config.MaxSteps <= 0 {
		return nil, fmt.Errorf("max steps must be positive, got %d", config.MaxSteps)
	}
	if config.StackSize <= 0 {
		return nil, fmt.Errorf("stack size must be positive, got %d", config.StackSize)
	}

	return config, nil
}

var boolFlags = map[string]bool{"run": true, "trace": true, "help": true, "h": true}

// reorderArgs moves flags ahead of positional arguments so the tree file may
// come first.
func reorderArgs(args []string) []string {
	var flags, positional []string
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if len(arg) < 2 || arg[0] != '-' {
			positional = append(positional, arg)
			continue
		}
		flags = append(flags, arg)
		name := strings.TrimLeft(arg, "-")
		if strings.Contains(name, "=") || boolFlags[name] {
			continue
		}
		if i+1 < len(args) {
			i++
			flags = append(flags, args[i])
		}
	}
	return append(flags, positional...)
}

// PrintHelp writes usage text to w.
func PrintHelp(w io.Writer) {
	fmt.Fprint(w, `pascalvm - compile syntax trees to accumulator-machine assembly

Usage:
  pascalvm [options] <tree-file>

Options:
  -in <file>          input tree file (or pass it as the argument)
  -out <file>         output assembly file (default: input with .asm)
  -run                run the program on the VM and print its globals
  -trace              trace VM execution to stderr
  -log-level <level>  debug, info, warn, error (default: info)
  -encoding <name>    input charset, e.g. utf-8, windows-1252, shift_jis
  -max-steps <n>      VM step budget (default: 1000000)
  -stack <cells>      VM stack size (default: 4096)
  -h, -help           show this help

Environment Variables:
  LOG_LEVEL=<level>          log level
  PASCALVM_ENCODING=<name>   input charset
  PASCALVM_MAX_STEPS=<n>     VM step budget
`)
}
