package asm

import (
	"reflect"
	"strings"
	"testing"
)

func TestHelperFunctions(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"abc", true},
		{"_abc", true},
		{"abc1", true},
		{"m$3", true},
		{"main$End", true},
		{"1abc", false},
		{"$abc", false},
		{"", false},
		{"ab-c", false},
	}
	for _, tc := range tests {
		if got := isIdentifier(tc.input); got != tc.want {
			t.Errorf("isIdentifier(%q) = %v; want %v", tc.input, got, tc.want)
		}
	}

	for _, m := range []string{"LOAD", "STORE", "PUSH", "REL", "RSV", "JMPNP", "JSR", "RTS", "HOLD", "WORD"} {
		if !knownMnemonic(m) {
			t.Errorf("knownMnemonic(%q) = false; want true", m)
		}
	}
	if knownMnemonic("LDI") {
		t.Errorf("knownMnemonic(\"LDI\") = true; want false")
	}

	refs := []struct {
		input string
		want  int64
		ok    bool
	}{
		{"0(SP)", 0, true},
		{"12(sp)", 12, true},
		{"-1(SP)", 0, false},
		{"x(SP)", 0, false},
		{"12", 0, false},
	}
	for _, tc := range refs {
		got, ok := parseStackRef(tc.input)
		if ok != tc.ok || got != tc.want {
			t.Errorf("parseStackRef(%q) = %d, %v; want %d, %v", tc.input, got, ok, tc.want, tc.ok)
		}
	}
}

func TestParseLine(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		want    parsedLine
		wantErr bool
	}{
		{
			name: "instruction with operand",
			line: "\tLOAD\t$5",
			want: parsedLine{lineNo: 1, mnemonic: "LOAD", operands: []string{"$5"}},
		},
		{
			name: "label only",
			line: "p$Start:",
			want: parsedLine{lineNo: 1, labels: []string{"p$Start"}},
		},
		{
			name: "label and instruction",
			line: "loop: jmp loop ; forever",
			want: parsedLine{lineNo: 1, labels: []string{"loop"}, mnemonic: "JMP", operands: []string{"loop"}},
		},
		{
			name: "two labels",
			line: "a: b: HOLD",
			want: parsedLine{lineNo: 1, labels: []string{"a", "b"}, mnemonic: "HOLD"},
		},
		{
			name: "comment only",
			line: "   ; nothing here",
			want: parsedLine{lineNo: 1},
		},
		{
			name:    "bad label",
			line:    "1bad: HOLD",
			wantErr: true,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := parseLine(tc.line, 1)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("parseLine(%q) succeeded; want error", tc.line)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseLine(%q) failed: %v", tc.line, err)
			}
			if !reflect.DeepEqual(got, tc.want) {
				t.Errorf("parseLine(%q) = %+v; want %+v", tc.line, got, tc.want)
			}
		})
	}
}

func TestAssemble(t *testing.T) {
	code := `
	JMP		start
start:
	LOAD	$-3
	ADD		x
	SUB		@1(SP)
	MUL		2(SP)
	LOAD	$x
	LOAD	$4(SP)
	STORE	x
	STORE	0(SP)
	STORE	@0(SP)
	RSV		2
	REL		$2
	PUSH
	JSR		start
	RTS
	HOLD
x:
	WORD	0
	WORD	7
`
	prog, err := Assemble(code)
	if err != nil {
		t.Fatalf("Assemble failed: %v", err)
	}

	want := []Instruction{
		{Op: OpJMP, Arg: Operand{Mode: ModeDirect, Value: 1, Label: "start"}},
		{Op: OpLOAD, Arg: Operand{Mode: ModeImmediate, Value: -3}},
		{Op: OpADD, Arg: Operand{Mode: ModeDirect, Value: 16, Label: "x"}},
		{Op: OpSUB, Arg: Operand{Mode: ModeIndirect, Value: 1}},
		{Op: OpMUL, Arg: Operand{Mode: ModeStack, Value: 2}},
		{Op: OpLOAD, Arg: Operand{Mode: ModeAddress, Value: 16, Label: "x"}},
		{Op: OpLOAD, Arg: Operand{Mode: ModeStackAddress, Value: 4}},
		{Op: OpSTORE, Arg: Operand{Mode: ModeDirect, Value: 16, Label: "x"}},
		{Op: OpSTORE, Arg: Operand{Mode: ModeStack, Value: 0}},
		{Op: OpSTORE, Arg: Operand{Mode: ModeIndirect, Value: 0}},
		{Op: OpRSV, Arg: Operand{Mode: ModeCount, Value: 2}},
		{Op: OpREL, Arg: Operand{Mode: ModeImmediate, Value: 2}},
		{Op: OpPUSH},
		{Op: OpJSR, Arg: Operand{Mode: ModeDirect, Value: 1, Label: "start"}},
		{Op: OpRTS},
		{Op: OpHOLD},
		{Op: OpWORD, Arg: Operand{Mode: ModeCount, Value: 0}},
		{Op: OpWORD, Arg: Operand{Mode: ModeCount, Value: 7}},
	}
	if len(prog.Code) != len(want) {
		t.Fatalf("got %d cells; want %d", len(prog.Code), len(want))
	}
	for i, w := range want {
		got := prog.Code[i]
		got.Line = 0
		if !reflect.DeepEqual(got, w) {
			t.Errorf("cell %d = %+v; want %+v", i, got, w)
		}
	}

	if prog.Labels["start"] != 1 || prog.Labels["x"] != 16 {
		t.Errorf("labels = %v; want start=1 x=16", prog.Labels)
	}
}

func TestAssemble_Errors(t *testing.T) {
	tests := []struct {
		name string
		code string
		want string
	}{
		{"unknown instruction", "LDI R0, 1", "unknown instruction on line 1"},
		{"duplicate label", "a: HOLD\na: HOLD", "duplicate label 'a' on line 2"},
		{"undefined label", "JMP nowhere", "undefined label 'nowhere' on line 1"},
		{"missing operand", "LOAD", "LOAD expects 1 operand on line 1"},
		{"extra operand", "PUSH 1", "PUSH expects 0 operands on line 1"},
		{"store immediate", "STORE $1", "STORE needs a memory operand"},
		{"jump to stack", "JMP 0(SP)", "JMP needs a label"},
		{"negative rel", "REL $-1", "REL needs a non-negative immediate"},
		{"rel without dollar", "REL 1", "REL needs a non-negative immediate"},
		{"rsv label", "x: WORD 0\nRSV x", "RSV needs a count"},
		{"load count", "LOAD 5", "LOAD needs an addressing form"},
		{"bad indirect", "LOAD @x", "invalid indirect operand"},
		{"bad operand", "LOAD 1+2", "invalid operand '1+2'"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Assemble(tc.code)
			if err == nil {
				t.Fatalf("Assemble(%q) succeeded; want error containing %q", tc.code, tc.want)
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Errorf("Assemble(%q) error = %q; want it to contain %q", tc.code, err, tc.want)
			}
		})
	}
}

func TestAssemble_LabelsAreCaseSensitive(t *testing.T) {
	prog, err := Assemble("Loop: JMP loop\nloop: HOLD")
	if err != nil {
		t.Fatalf("Assemble failed: %v", err)
	}
	if prog.Code[0].Arg.Value != 1 {
		t.Errorf("JMP loop resolved to %d; want 1", prog.Code[0].Arg.Value)
	}
}

func TestStripComments(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"LOAD $1 ; comment", "LOAD $1 "},
		{"; only", ""},
		{"HOLD", "HOLD"},
	}
	for _, tc := range tests {
		if got := stripComments(tc.in); got != tc.want {
			t.Errorf("stripComments(%q) = %q; want %q", tc.in, got, tc.want)
		}
	}
}

func TestInstructionString(t *testing.T) {
	tests := []struct {
		in   Instruction
		want string
	}{
		{Instruction{Op: OpPUSH}, "PUSH"},
		{Instruction{Op: OpLOAD, Arg: Operand{Mode: ModeImmediate, Value: 5}}, "LOAD $5"},
		{Instruction{Op: OpADD, Arg: Operand{Mode: ModeAddress, Label: "a"}}, "ADD $a"},
		{Instruction{Op: OpLOAD, Arg: Operand{Mode: ModeStackAddress, Value: 3}}, "LOAD $3(SP)"},
		{Instruction{Op: OpSTORE, Arg: Operand{Mode: ModeIndirect, Value: 1}}, "STORE @1(SP)"},
		{Instruction{Op: OpRSV, Arg: Operand{Mode: ModeCount, Value: 2}}, "RSV 2"},
		{Instruction{Op: OpJMP, Arg: Operand{Mode: ModeDirect, Label: "m$1"}}, "JMP m$1"},
	}
	for _, tc := range tests {
		if got := tc.in.String(); got != tc.want {
			t.Errorf("String() = %q; want %q", got, tc.want)
		}
	}
	if got := Opcode(99).String(); got != "Opcode(99)" {
		t.Errorf("Opcode(99).String() = %q", got)
	}
}
