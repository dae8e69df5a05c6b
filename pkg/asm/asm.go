// Package asm assembles the accumulator-machine assembly emitted by the
// compiler into a Program the vm package can execute.
//
// Every instruction and every WORD occupies one cell of the address space,
// in source order starting at 0.
package asm

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

type Opcode int

const (
	OpLOAD Opcode = iota
	OpSTORE
	OpADD
	OpSUB
	OpMUL
	OpDIV
	OpMOD
	OpCMP
	OpPUSH
	OpREL
	OpRSV
	OpJMP
	OpJMPZ
	OpJMPNZ
	OpJMPN
	OpJMPNN
	OpJMPP
	OpJMPNP
	OpJMPV
	OpJSR
	OpRTS
	OpHOLD
	OpWORD
)

var opNames = [...]string{
	OpLOAD: "LOAD", OpSTORE: "STORE", OpADD: "ADD", OpSUB: "SUB", OpMUL: "MUL",
	OpDIV: "DIV", OpMOD: "MOD", OpCMP: "CMP", OpPUSH: "PUSH", OpREL: "REL",
	OpRSV: "RSV", OpJMP: "JMP", OpJMPZ: "JMPZ", OpJMPNZ: "JMPNZ", OpJMPN: "JMPN",
	OpJMPNN: "JMPNN", OpJMPP: "JMPP", OpJMPNP: "JMPNP", OpJMPV: "JMPV",
	OpJSR: "JSR", OpRTS: "RTS", OpHOLD: "HOLD", OpWORD: "WORD",
}

func (op Opcode) String() string {
	if op >= 0 && int(op) < len(opNames) {
		return opNames[op]
	}
	return fmt.Sprintf("Opcode(%d)", int(op))
}

var zeroOperandOps = map[string]Opcode{
	"PUSH": OpPUSH,
	"RTS":  OpRTS,
	"HOLD": OpHOLD,
}

// valueOps read any operand form.
var valueOps = map[string]Opcode{
	"LOAD": OpLOAD,
	"ADD":  OpADD,
	"SUB":  OpSUB,
	"MUL":  OpMUL,
	"DIV":  OpDIV,
	"MOD":  OpMOD,
	"CMP":  OpCMP,
}

var labelOps = map[string]Opcode{
	"JMP":   OpJMP,
	"JMPZ":  OpJMPZ,
	"JMPNZ": OpJMPNZ,
	"JMPN":  OpJMPN,
	"JMPNN": OpJMPNN,
	"JMPP":  OpJMPP,
	"JMPNP": OpJMPNP,
	"JMPV":  OpJMPV,
	"JSR":   OpJSR,
}

// Mode is an operand addressing form.
type Mode int

const (
	ModeNone         Mode = iota
	ModeImmediate         // $5
	ModeAddress           // $name, the address of a label
	ModeStackAddress      // $2(SP), the address SP+2
	ModeDirect            // name
	ModeStack             // 2(SP)
	ModeIndirect          // @2(SP), through the address held at SP+2
	ModeCount             // bare integer of RSV and WORD
)

// Operand is a parsed operand. Value holds the literal, the stack offset, or
// the resolved address of Label.
type Operand struct {
	Mode  Mode
	Value int64
	Label string
}

func (o Operand) String() string {
	switch o.Mode {
	case ModeImmediate:
		return fmt.Sprintf("$%d", o.Value)
	case ModeAddress:
		return "$" + o.Label
	case ModeStackAddress:
		return fmt.Sprintf("$%d(SP)", o.Value)
	case ModeDirect:
		return o.Label
	case ModeStack:
		return fmt.Sprintf("%d(SP)", o.Value)
	case ModeIndirect:
		return fmt.Sprintf("@%d(SP)", o.Value)
	case ModeCount:
		return fmt.Sprintf("%d", o.Value)
	}
	return ""
}

// Instruction is one assembled cell.
type Instruction struct {
	Op   Opcode
	Arg  Operand
	Line int
}

func (in Instruction) String() string {
	if in.Arg.Mode == ModeNone {
		return in.Op.String()
	}
	return fmt.Sprintf("%s %s", in.Op, in.Arg)
}

// Program is an assembled image. Code[a] is the cell at address a.
type Program struct {
	Code      []Instruction
	Labels    map[string]int
	SourceMap map[int]int // address -> source line
}

type Assembler struct {
	labels map[string]int
}

type parsedLine struct {
	lineNo   int
	labels   []string
	mnemonic string
	operands []string
}

func NewAssembler() *Assembler {
	return &Assembler{
		labels: make(map[string]int),
	}
}

func Assemble(code string) (*Program, error) {
	return NewAssembler().Assemble(code)
}

func (a *Assembler) Assemble(code string) (*Program, error) {
	lines := strings.Split(code, "\n")

	if err := a.pass1(lines); err != nil {
		return nil, err
	}

	return a.pass2(lines)
}

func (a *Assembler) pass1(lines []string) error {
	address := 0

	for i, raw := range lines {
		lineNo := i + 1
		p, err := parseLine(raw, lineNo)
		if err != nil {
			return err
		}

		for _, lbl := range p.labels {
			if _, exists := a.labels[lbl]; exists {
				return fmt.Errorf("duplicate label '%s' on line %d", lbl, lineNo)
			}
			a.labels[lbl] = address
		}

		if p.mnemonic == "" {
			continue
		}
		if !knownMnemonic(p.mnemonic) {
			return fmt.Errorf("unknown instruction on line %d: %s", lineNo, p.mnemonic)
		}
		address++
	}

	return nil
}

func (a *Assembler) pass2(lines []string) (*Program, error) {
	prog := &Program{
		Labels:    a.labels,
		SourceMap: make(map[int]int),
	}

	for i, raw := range lines {
		lineNo := i + 1
		p, err := parseLine(raw, lineNo)
		if err != nil {
			return nil, err
		}
		if p.mnemonic == "" {
			continue
		}

		mnemonic := p.mnemonic
		ops := p.operands
		instr := Instruction{Line: lineNo}

		if opcode, ok := zeroOperandOps[mnemonic]; ok {
			if len(ops) != 0 {
				return nil, fmt.Errorf("%s expects 0 operands on line %d", mnemonic, lineNo)
			}
			instr.Op = opcode
		} else {
			if len(ops) != 1 {
				return nil, fmt.Errorf("%s expects 1 operand on line %d", mnemonic, lineNo)
			}
			arg, err := a.parseOperand(ops[0], lineNo)
			if err != nil {
				return nil, err
			}
			instr.Arg = arg

			valueOp, isValue := valueOps[mnemonic]
			switch {
			case isValue:
				instr.Op = valueOp
				if arg.Mode == ModeCount {
					return nil, fmt.Errorf("%s needs an addressing form, got '%s' on line %d", mnemonic, ops[0], lineNo)
				}
			case mnemonic == "STORE":
				instr.Op = OpSTORE
				if arg.Mode != ModeDirect && arg.Mode != ModeStack && arg.Mode != ModeIndirect {
					return nil, fmt.Errorf("STORE needs a memory operand, got '%s' on line %d", ops[0], lineNo)
				}
			case mnemonic == "REL":
				instr.Op = OpREL
				if arg.Mode != ModeImmediate || arg.Value < 0 {
					return nil, fmt.Errorf("REL needs a non-negative immediate, got '%s' on line %d", ops[0], lineNo)
				}
			case mnemonic == "RSV" || mnemonic == "WORD":
				instr.Op = OpWORD
				if mnemonic == "RSV" {
					instr.Op = OpRSV
				}
				if arg.Mode != ModeCount || (instr.Op == OpRSV && arg.Value < 0) {
					return nil, fmt.Errorf("%s needs a count, got '%s' on line %d", mnemonic, ops[0], lineNo)
				}
			default:
				instr.Op = labelOps[mnemonic]
				if arg.Mode != ModeDirect {
					return nil, fmt.Errorf("%s needs a label, got '%s' on line %d", mnemonic, ops[0], lineNo)
				}
			}
		}

		prog.SourceMap[len(prog.Code)] = lineNo
		prog.Code = append(prog.Code, instr)
	}

	return prog, nil
}

func parseLine(raw string, lineNo int) (parsedLine, error) {
	p := parsedLine{lineNo: lineNo}

	line := strings.TrimSpace(stripComments(raw))
	if line == "" {
		return p, nil
	}

	for {
		colon := strings.IndexByte(line, ':')
		if colon <= 0 {
			break
		}

		beforeColon := strings.TrimSpace(line[:colon])
		if strings.ContainsAny(beforeColon, " \t") {
			break
		}

		if !isIdentifier(beforeColon) {
			return p, fmt.Errorf("invalid label '%s' on line %d", beforeColon, lineNo)
		}

		p.labels = append(p.labels, beforeColon)
		line = strings.TrimSpace(line[colon+1:])
		if line == "" {
			return p, nil
		}
	}

	fields := strings.Fields(line)
	p.mnemonic = strings.ToUpper(fields[0])
	if len(fields) > 1 {
		p.operands = fields[1:]
	}

	return p, nil
}

func stripComments(line string) string {
	if semicolon := strings.IndexByte(line, ';'); semicolon >= 0 {
		return line[:semicolon]
	}
	return line
}

func (a *Assembler) parseOperand(token string, lineNo int) (Operand, error) {
	switch {
	case strings.HasPrefix(token, "@"):
		off, ok := parseStackRef(token[1:])
		if !ok {
			return Operand{}, fmt.Errorf("invalid indirect operand '%s' on line %d", token, lineNo)
		}
		return Operand{Mode: ModeIndirect, Value: off}, nil

	case strings.HasPrefix(token, "$"):
		rest := token[1:]
		if v, err := strconv.ParseInt(rest, 10, 64); err == nil {
			return Operand{Mode: ModeImmediate, Value: v}, nil
		}
		if off, ok := parseStackRef(rest); ok {
			return Operand{Mode: ModeStackAddress, Value: off}, nil
		}
		addr, err := a.lookup(rest, lineNo)
		if err != nil {
			return Operand{}, err
		}
		return Operand{Mode: ModeAddress, Value: int64(addr), Label: rest}, nil

	case strings.HasSuffix(token, "(SP)"):
		off, ok := parseStackRef(token)
		if !ok {
			return Operand{}, fmt.Errorf("invalid stack operand '%s' on line %d", token, lineNo)
		}
		return Operand{Mode: ModeStack, Value: off}, nil
	}

	if v, err := strconv.ParseInt(token, 10, 64); err == nil {
		return Operand{Mode: ModeCount, Value: v}, nil
	}
	addr, err := a.lookup(token, lineNo)
	if err != nil {
		return Operand{}, err
	}
	return Operand{Mode: ModeDirect, Value: int64(addr), Label: token}, nil
}

func (a *Assembler) lookup(label string, lineNo int) (int, error) {
	if addr, ok := a.labels[label]; ok {
		return addr, nil
	}
	if isIdentifier(label) {
		return 0, fmt.Errorf("undefined label '%s' on line %d", label, lineNo)
	}
	return 0, fmt.Errorf("invalid operand '%s' on line %d", label, lineNo)
}

// parseStackRef parses "n(SP)" with a non-negative n.
func parseStackRef(s string) (int64, bool) {
	num, ok := strings.CutSuffix(strings.ToUpper(s), "(SP)")
	if !ok {
		return 0, false
	}
	off, err := strconv.ParseInt(num, 10, 64)
	if err != nil || off < 0 {
		return 0, false
	}
	return off, true
}

func knownMnemonic(mnemonic string) bool {
	if _, ok := zeroOperandOps[mnemonic]; ok {
		return true
	}
	if _, ok := valueOps[mnemonic]; ok {
		return true
	}
	if _, ok := labelOps[mnemonic]; ok {
		return true
	}
	switch mnemonic {
	case "STORE", "REL", "RSV", "WORD":
		return true
	}
	return false
}

// isIdentifier accepts compiler identifiers and generated labels such as
// m$3 or main$End.
func isIdentifier(s string) bool {
	if s == "" {
		return false
	}

	for i, r := range s {
		if i == 0 {
			if !unicode.IsLetter(r) && r != '_' {
				return false
			}
			continue
		}

		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' && r != '$' {
			return false
		}
	}

	return true
}
