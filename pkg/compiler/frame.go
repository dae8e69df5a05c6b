package compiler

import "fmt"

// Activation describes the procedure or function whose body is being
// generated.
//
// Stack layout at entry, after RSV of the locals (SP at the top):
//
//	0(SP)        last declared local
//	...          earlier locals
//	K(SP)        return address pushed by JSR
//	K+1(SP)      last parameter
//	...          earlier parameters, first parameter deepest
//
// Every slot is addressed through its lowest cell; element i of an array
// slot is at that offset plus i.
type Activation struct {
	Function  *FunctionDef
	Vars      VarList // parameters followed by locals
	NumParams int
	Pushed    int // cells pushed by code emitted so far and not yet released
}

func newActivation(fn *FunctionDef) *Activation {
	return &Activation{
		Function:  fn,
		Vars:      append(VarList(nil), fn.Params...),
		NumParams: len(fn.Params),
	}
}

// LocalCells is the number of cells reserved on entry for locals.
func (a *Activation) LocalCells() int {
	return a.Vars[a.NumParams:].Cells()
}

// Offset returns the SP-relative offset of the lowest cell of Vars[i],
// valid for an instruction emitted while Pushed cells are outstanding.
func (a *Activation) Offset(i int) int {
	frame := a.Vars.Cells()
	stack := frame + 1 + a.Pushed
	off := a.Vars[i+1:].Cells() + stack - frame
	if i >= a.NumParams {
		off-- // locals sit above the return address
	}
	return off
}

func (s *State) enter(fn *FunctionDef) {
	s.current = newActivation(fn)
}

func (s *State) leave() {
	s.current = nil
}

// varOperand is the memory operand for a scalar reference or for element 0
// of an array reference.
func (s *State) varOperand(v Variable) string {
	if !v.Class.Local() {
		return v.Slot.Name
	}
	off := s.current.Offset(v.index)
	if v.Slot.ByRef {
		return fmt.Sprintf("@%d(SP)", off)
	}
	return fmt.Sprintf("%d(SP)", off)
}

// baseAddress is the operand that, loaded or added, yields the address of
// the variable's first cell.
func (s *State) baseAddress(v Variable) string {
	if !v.Class.Local() {
		return "$" + v.Slot.Name
	}
	off := s.current.Offset(v.index)
	if v.Slot.ByRef {
		return fmt.Sprintf("%d(SP)", off)
	}
	return fmt.Sprintf("$%d(SP)", off)
}
