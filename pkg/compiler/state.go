package compiler

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"pascalvm/pkg/logger"
)

// Limits caps the size of the compiler's tables. Zero means unlimited.
// Exceeding a cap is reported as ResourceExhaustion.
type Limits struct {
	Globals   int
	Locals    int
	Labels    int
	Functions int
}

// Option configures a State.
type Option func(*State)

// WithLogger sets the structured logger used for debug tracing.
func WithLogger(l *slog.Logger) Option {
	return func(s *State) { s.log = l }
}

// WithDiagnostics sets where diagnostics are written as they are reported.
func WithDiagnostics(w io.Writer) Option {
	return func(s *State) { s.diag = w }
}

// WithLimits sets table capacities.
func WithLimits(l Limits) Option {
	return func(s *State) { s.limits = l }
}

// State is the whole mutable context of one compilation: symbol tables,
// function table, label namespace, the current activation and the sticky
// failure flag. Every generation step is a method on it.
type State struct {
	globals   VarList
	functions []*FunctionDef
	labels    map[string]struct{}
	nextLabel int
	current   *Activation
	program   string

	failed bool
	errors []*CompileError

	limits Limits
	diag   io.Writer
	log    *slog.Logger
}

// NewState returns an empty compilation state.
func NewState(opts ...Option) *State {
	s := &State{
		labels: make(map[string]struct{}),
		diag:   os.Stderr,
		log:    logger.GetLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Failed reports whether any diagnostic has been raised. Once set it stays set.
func (s *State) Failed() bool {
	return s.failed
}

// Errors returns the diagnostics reported so far, in order.
func (s *State) Errors() []*CompileError {
	return s.errors
}

func (s *State) report(err *CompileError) {
	if err.Function == "" && s.current != nil {
		err.Function = s.current.Function.Name
	}
	s.failed = true
	s.errors = append(s.errors, err)
	if s.diag != nil {
		fmt.Fprintln(s.diag, err)
	}
	s.log.Debug("diagnostic", "kind", err.Kind.String(), "function", err.Function, "message", err.Message)
}

func (s *State) fail(kind Kind, format string, args ...any) {
	s.report(newError(kind, format, args...))
}

// push records one cell pushed by emitted code.
func (s *State) push(n int) {
	if s.current != nil {
		s.current.Pushed += n
	}
}

// pop records n cells released by emitted code.
func (s *State) pop(n int) {
	if s.current != nil {
		s.current.Pushed -= n
	}
}

// pushed returns the outstanding pushes of the current activation.
func (s *State) pushed() int {
	if s.current == nil {
		return 0
	}
	return s.current.Pushed
}
