package bridge

import (
	"errors"
	"fmt"

	abi "github.com/wippyai/hostbridge"
)

// Condition names translated panics are reported under. The mapping is part
// of the wire contract with the host and must not drift.
const (
	condOverflow   = "overflow-error"
	condUnderflow  = "underflow-error"
	condRange      = "range-error"
	condOutOfRange = "out-of-range"
	condMemoryFull = "memory-full"
	condConvert    = "convert-error"
	condGeneric    = "error"
)

// Sentinel errors module code can wrap (or panic with) to pick the condition
// a trampoline reports. Anything else maps to the generic "error" condition.
var (
	ErrOverflow   = errors.New("arithmetic overflow")
	ErrUnderflow  = errors.New("arithmetic underflow")
	ErrRange      = errors.New("value out of range")
	ErrOutOfRange = errors.New("index out of range")
	ErrNoMemory   = errors.New("allocation failure")
)

// Error is a pending non-local exit read back from the host: either a raised
// condition (Signal) or a tagged escape (Throw). It never represents normal
// completion; "no error" is the absence of an Error, not a value of it.
//
// The two payload Values are interpreted as (condition symbol, data) for a
// Signal and (catch tag, value) for a Throw. Like all Values they are only
// valid while the Env they came from is active.
type Error struct {
	exit abi.FuncallExit
	sym  Value
	data Value
}

// NewError builds an Error from an exit kind and its two payloads. exit must
// not be FuncallExitReturn.
func NewError(exit abi.FuncallExit, sym, data Value) *Error {
	return &Error{exit: exit, sym: sym, data: data}
}

// Signal builds a raised-condition Error from a symbol and its data list.
func Signal(sym, data Value) *Error {
	return NewError(abi.FuncallExitSignal, sym, data)
}

// Throw builds an escape Error from a catch tag and a value.
func Throw(tag, value Value) *Error {
	return NewError(abi.FuncallExitThrow, tag, value)
}

// Exit returns how the call exited. It is never FuncallExitReturn.
func (e *Error) Exit() abi.FuncallExit { return e.exit }

// Symbol returns the condition symbol of a Signal.
func (e *Error) Symbol() Value { return e.sym }

// Data returns the data list of a Signal.
func (e *Error) Data() Value { return e.data }

// Tag returns the catch tag of a Throw.
func (e *Error) Tag() Value { return e.sym }

// Value returns the value carried by a Throw.
func (e *Error) Value() Value { return e.data }

// Report re-raises the error into env's pending slot. If an exit is already
// pending the host ignores it: the first error wins.
func (e *Error) Report(env *Env) {
	switch e.exit {
	case abi.FuncallExitThrow:
		env.tab.NonLocalExitThrow(e.sym.ref, e.data.ref)
	default:
		env.tab.NonLocalExitSignal(e.sym.ref, e.data.ref)
	}
}

// Error implements the error interface with a best-effort description. The
// condition symbol is resolved through the owning Env, which must still be
// active.
func (e *Error) Error() string {
	name := "?"
	if r := e.sym.Name(); r.HasValue() {
		name = r.Value()
	}
	return fmt.Sprintf("%s %s", e.exit, name)
}
