// Package vm executes assembled programs on a single-accumulator machine
// with a downward-growing operand stack.
package vm

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"

	"pascalvm/pkg/asm"
	"pascalvm/pkg/logger"
)

const (
	DefaultStackSize = 4096
	DefaultMaxSteps  = 1_000_000
)

var (
	ErrStackOverflow  = errors.New("stack overflow")
	ErrStackUnderflow = errors.New("stack underflow")
	ErrDivideByZero   = errors.New("division by zero")
	ErrStepLimit      = errors.New("step limit exceeded")
	ErrBadAddress     = errors.New("address out of range")
	ErrBadInstruction = errors.New("not an instruction")
)

// Option configures a VM.
type Option func(*VM)

func WithStackSize(cells int) Option { return func(m *VM) { m.stackSize = cells } }

// WithMaxSteps bounds Run. Zero means unbounded.
func WithMaxSteps(n int) Option { return func(m *VM) { m.MaxSteps = n } }

// WithTrace writes one line per executed instruction to w.
func WithTrace(w io.Writer) Option { return func(m *VM) { m.Trace = w } }

func WithLogger(l *slog.Logger) Option { return func(m *VM) { m.log = l } }

// VM is the machine state. Memory holds the program image at addresses
// [0, len(Code)) followed by the stack. SP points at the top stack cell and
// starts one past the end of memory.
type VM struct {
	Program *asm.Program
	Memory  []int64

	ACC int64
	PC  int
	SP  int

	Z bool // last result zero
	N bool // last result negative
	P bool // last result positive
	V bool // last arithmetic overflowed

	Halted   bool
	Steps    int
	MaxSteps int

	Trace io.Writer

	stackSize int
	log       *slog.Logger
}

// New loads prog into a fresh machine.
func New(prog *asm.Program, opts ...Option) *VM {
	m := &VM{
		Program:   prog,
		MaxSteps:  DefaultMaxSteps,
		stackSize: DefaultStackSize,
		log:       logger.GetLogger(),
	}
	for _, opt := range opts {
		opt(m)
	}

	m.Memory = make([]int64, len(prog.Code)+m.stackSize)
	for addr, in := range prog.Code {
		if in.Op == asm.OpWORD {
			m.Memory[addr] = in.Arg.Value
		}
	}
	m.SP = len(m.Memory)
	return m
}

func (m *VM) stackBase() int { return len(m.Program.Code) }

// writable reports whether addr is a data cell: a WORD or a stack cell.
func (m *VM) writable(addr int) bool {
	if addr < 0 || addr >= len(m.Memory) {
		return false
	}
	return addr >= m.stackBase() || m.Program.Code[addr].Op == asm.OpWORD
}

func (m *VM) read(addr int) (int64, error) {
	if !m.writable(addr) {
		return 0, fmt.Errorf("read at %d: %w", addr, ErrBadAddress)
	}
	return m.Memory[addr], nil
}

func (m *VM) write(addr int, v int64) error {
	if !m.writable(addr) {
		return fmt.Errorf("write at %d: %w", addr, ErrBadAddress)
	}
	m.Memory[addr] = v
	return nil
}

func (m *VM) push(v int64) error {
	if m.SP-1 < m.stackBase() {
		return ErrStackOverflow
	}
	m.SP--
	m.Memory[m.SP] = v
	return nil
}

func (m *VM) pop() (int64, error) {
	if m.SP >= len(m.Memory) {
		return 0, ErrStackUnderflow
	}
	v := m.Memory[m.SP]
	m.SP++
	return v, nil
}

// address resolves a memory operand to a cell address.
func (m *VM) address(o asm.Operand) (int, error) {
	switch o.Mode {
	case asm.ModeDirect:
		return int(o.Value), nil
	case asm.ModeStack:
		return m.SP + int(o.Value), nil
	case asm.ModeIndirect:
		p, err := m.read(m.SP + int(o.Value))
		if err != nil {
			return 0, err
		}
		return int(p), nil
	}
	return 0, fmt.Errorf("operand %s is not a memory reference: %w", o, ErrBadAddress)
}

func (m *VM) value(o asm.Operand) (int64, error) {
	switch o.Mode {
	case asm.ModeImmediate, asm.ModeAddress:
		return o.Value, nil
	case asm.ModeStackAddress:
		return int64(m.SP) + o.Value, nil
	}
	addr, err := m.address(o)
	if err != nil {
		return 0, err
	}
	return m.read(addr)
}

func (m *VM) setFlags(result int64, overflow bool) {
	m.Z = result == 0
	m.N = result < 0
	m.P = result > 0
	m.V = overflow
}

func arith(op asm.Opcode, a, b int64) (int64, bool, error) {
	switch op {
	case asm.OpADD:
		r := a + b
		return r, (a >= 0) == (b >= 0) && (r >= 0) != (a >= 0), nil
	case asm.OpSUB:
		r := a - b
		return r, (a >= 0) != (b >= 0) && (r >= 0) != (a >= 0), nil
	case asm.OpMUL:
		r := a * b
		return r, a != 0 && (r/a != b || (a == -1 && b == math.MinInt64)), nil
	case asm.OpDIV:
		if b == 0 {
			return 0, false, ErrDivideByZero
		}
		return a / b, a == math.MinInt64 && b == -1, nil
	case asm.OpMOD:
		if b == 0 {
			return 0, false, ErrDivideByZero
		}
		return a % b, false, nil
	}
	return 0, false, fmt.Errorf("%s: %w", op, ErrBadInstruction)
}

// Step executes one instruction.
func (m *VM) Step() error {
	if m.Halted {
		return nil
	}
	if m.PC < 0 || m.PC >= len(m.Program.Code) || m.Program.Code[m.PC].Op == asm.OpWORD {
		return fmt.Errorf("pc %d: %w", m.PC, ErrBadInstruction)
	}

	in := m.Program.Code[m.PC]
	if m.Trace != nil {
		fmt.Fprintf(m.Trace, "%04d  %-20s ACC=%d SP=%d\n", m.PC, in, m.ACC, m.SP)
	}
	m.PC++
	m.Steps++

	jump := func(cond bool) {
		if cond {
			m.PC = int(in.Arg.Value)
		}
	}

	switch in.Op {
	case asm.OpLOAD:
		v, err := m.value(in.Arg)
		if err != nil {
			return err
		}
		m.ACC = v

	case asm.OpSTORE:
		addr, err := m.address(in.Arg)
		if err != nil {
			return err
		}
		return m.write(addr, m.ACC)

	case asm.OpADD, asm.OpSUB, asm.OpMUL, asm.OpDIV, asm.OpMOD:
		v, err := m.value(in.Arg)
		if err != nil {
			return err
		}
		r, overflow, err := arith(in.Op, m.ACC, v)
		if err != nil {
			return err
		}
		m.ACC = r
		m.setFlags(r, overflow)

	case asm.OpCMP:
		v, err := m.value(in.Arg)
		if err != nil {
			return err
		}
		m.Z, m.N, m.P, m.V = m.ACC == v, m.ACC < v, m.ACC > v, false

	case asm.OpPUSH:
		return m.push(m.ACC)

	case asm.OpREL:
		if m.SP+int(in.Arg.Value) > len(m.Memory) {
			return ErrStackUnderflow
		}
		m.SP += int(in.Arg.Value)

	case asm.OpRSV:
		n := int(in.Arg.Value)
		if m.SP-n < m.stackBase() {
			return ErrStackOverflow
		}
		m.SP -= n
		clear(m.Memory[m.SP : m.SP+n])

	case asm.OpJMP:
		jump(true)
	case asm.OpJMPZ:
		jump(m.Z)
	case asm.OpJMPNZ:
		jump(!m.Z)
	case asm.OpJMPN:
		jump(m.N)
	case asm.OpJMPNN:
		jump(!m.N)
	case asm.OpJMPP:
		jump(m.P)
	case asm.OpJMPNP:
		jump(!m.P)
	case asm.OpJMPV:
		jump(m.V)

	case asm.OpJSR:
		if err := m.push(int64(m.PC)); err != nil {
			return err
		}
		jump(true)

	case asm.OpRTS:
		ret, err := m.pop()
		if err != nil {
			return err
		}
		m.PC = int(ret)

	case asm.OpHOLD:
		m.Halted = true

	default:
		return fmt.Errorf("%s: %w", in.Op, ErrBadInstruction)
	}
	return nil
}

// Run executes until HOLD, a fault, or the step budget runs out.
func (m *VM) Run() error {
	for !m.Halted {
		if m.MaxSteps > 0 && m.Steps >= m.MaxSteps {
			m.log.Warn("vm stopped", "reason", ErrStepLimit, "steps", m.Steps, "pc", m.PC)
			return ErrStepLimit
		}
		pc := m.PC
		if err := m.Step(); err != nil {
			line := m.Program.SourceMap[pc]
			m.log.Warn("vm fault", "pc", pc, "line", line, "err", err)
			return fmt.Errorf("at address %d (line %d): %w", pc, line, err)
		}
	}
	m.log.Debug("vm halted", "steps", m.Steps, "pc", m.PC)
	return nil
}

// Word returns the cell at a label.
func (m *VM) Word(label string) (int64, error) {
	words, err := m.Words(label, 1)
	if err != nil {
		return 0, err
	}
	return words[0], nil
}

// Words returns n cells starting at a label.
func (m *VM) Words(label string, n int) ([]int64, error) {
	addr, ok := m.Program.Labels[label]
	if !ok {
		return nil, fmt.Errorf("unknown label %q", label)
	}
	out := make([]int64, n)
	for i := range out {
		v, err := m.read(addr + i)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}
