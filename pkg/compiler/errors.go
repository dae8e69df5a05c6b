package compiler

import "fmt"

// Kind classifies a compile diagnostic.
type Kind int

const (
	StructuralMismatch Kind = iota
	NameMismatch
	DuplicateName
	UndefinedVariable
	UndefinedFunction
	TypeMismatch
	ArgumentCountMismatch
	ArgumentKindMismatch
	ArraySizeMismatch
	MissingReturn
	ResourceExhaustion
)

var kindNames = [...]string{
	StructuralMismatch:    "structural mismatch",
	NameMismatch:          "name mismatch",
	DuplicateName:         "duplicate name",
	UndefinedVariable:     "undefined variable",
	UndefinedFunction:     "undefined function",
	TypeMismatch:          "type mismatch",
	ArgumentCountMismatch: "argument count mismatch",
	ArgumentKindMismatch:  "argument kind mismatch",
	ArraySizeMismatch:     "array size mismatch",
	MissingReturn:         "missing return",
	ResourceExhaustion:    "resource exhaustion",
}

func (k Kind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// CompileError is a single diagnostic. Function is the procedure or function
// whose body was being generated, empty at program level.
type CompileError struct {
	Kind     Kind
	Message  string
	Function string
}

func (e *CompileError) Error() string {
	if e.Function != "" {
		return fmt.Sprintf("in %s: %s: %s", e.Function, e.Kind, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func newError(kind Kind, format string, args ...any) *CompileError {
	return &CompileError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}
