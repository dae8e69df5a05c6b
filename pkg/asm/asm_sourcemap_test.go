package asm

import (
	"testing"
)

func TestAssembleSourceMap(t *testing.T) {
	code := `
; Line 2: comment
	LOAD	$10		; Line 3: address 0

start:			; Line 5: label for address 1
	ADD		$1		; Line 6: address 1
	HOLD			; Line 7: address 2
x:	WORD	0		; Line 8: address 3
`
	prog, err := Assemble(code)
	if err != nil {
		t.Fatalf("Assemble failed: %v", err)
	}

	tests := []struct {
		addr int
		line int
	}{
		{0, 3},
		{1, 6},
		{2, 7},
		{3, 8},
	}
	for _, tc := range tests {
		if got := prog.SourceMap[tc.addr]; got != tc.line {
			t.Errorf("SourceMap[%d] = %d; want %d", tc.addr, got, tc.line)
		}
	}
	if got := prog.Labels["start"]; got != 1 {
		t.Errorf("Labels[start] = %d; want 1", got)
	}
	if got := prog.Labels["x"]; got != 3 {
		t.Errorf("Labels[x] = %d; want 3", got)
	}
}
