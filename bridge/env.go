package bridge

import (
	"fmt"
	"os"
	"time"

	abi "github.com/wippyai/hostbridge"
	"github.com/wippyai/hostbridge/result"
)

// ValueResult is the outcome of a fallible host operation producing a Value.
type ValueResult = result.Result[Value, *Error]

// VoidResult is the outcome of a fallible host operation with no payload.
type VoidResult = result.Result[result.Void, *Error]

// Env wraps the host environment table for the dynamic extent of one call
// across the boundary. It owns conversion between Go values and host handles
// and the pending-error channel. An Env must not be used from more than one
// goroutine, and not after the call it was supplied for returns.
type Env struct {
	tab *abi.Env
}

// New wraps a host environment table.
func New(tab *abi.Env) *Env {
	return &Env{tab: tab}
}

// Table returns the underlying ABI table.
func (e *Env) Table() *abi.Env { return e.tab }

// check reads and clears a pending exit, if any. Every wrapper that relies on
// an operation's return value calls it immediately after the table call.
func (e *Env) check() *Error {
	if e.tab.NonLocalExitCheck() == abi.FuncallExitReturn {
		return nil
	}
	exit, sym, data := e.tab.NonLocalExitGet()
	e.tab.NonLocalExitClear()
	return &Error{
		exit: exit,
		sym:  Value{ref: sym, env: e},
		data: Value{ref: data, env: e},
	}
}

// checked wraps a raw handle, surfacing a pending exit instead of the handle.
func (e *Env) checked(ref abi.Ref) ValueResult {
	if err := e.check(); err != nil {
		return result.Err[Value, *Error](err)
	}
	return result.Ok[Value, *Error](Value{ref: ref, env: e})
}

// Intern returns the canonical symbol named s.
func (e *Env) Intern(s string) ValueResult {
	return e.checked(e.tab.Intern(s))
}

// Nil returns the nil symbol.
func (e *Env) Nil() ValueResult { return e.Intern("nil") }

// T returns the t symbol.
func (e *Env) T() ValueResult { return e.Intern("t") }

// MakeInt creates a host integer.
func (e *Env) MakeInt(v int64) ValueResult {
	return e.checked(e.tab.MakeInteger(v))
}

// MakeFloat creates a host floating-point number.
func (e *Env) MakeFloat(v float64) ValueResult {
	return e.checked(e.tab.MakeFloat(v))
}

// MakeString creates a multibyte host string. The bytes must be valid UTF-8;
// embedded NUL bytes are allowed.
func (e *Env) MakeString(s string) ValueResult {
	return e.checked(e.tab.MakeString([]byte(s)))
}

// MakeBytes creates a unibyte host string with no restriction on byte values.
func (e *Env) MakeBytes(b []byte) ValueResult {
	return e.checked(e.tab.MakeUnibyteString(b))
}

// MakeTime creates a host timestamp with nanosecond precision.
func (e *Env) MakeTime(d time.Duration) ValueResult {
	ns := d.Nanoseconds()
	return e.checked(e.tab.MakeTime(ns/1e9, ns%1e9))
}

// MakeUserPtr embeds an arbitrary Go value in a host object. fin, if not
// nil, runs when the host garbage-collects the object; it must not interact
// with the host.
func (e *Env) MakeUserPtr(p any, fin func(any)) ValueResult {
	return e.checked(e.tab.MakeUserPtr(fin, p))
}

// MakeFunction creates a host function from a raw ABI callback. data is
// passed back to fn on every invocation.
func (e *Env) MakeFunction(minArity, maxArity int, fn abi.Func, doc string, data any) ValueResult {
	return e.checked(e.tab.MakeFunction(minArity, maxArity, fn, doc, data))
}

// MakeWrapped creates a host function from a wrapped-form Go function.
func (e *Env) MakeWrapped(minArity, maxArity int, fn WrappedFunc, doc string) ValueResult {
	return e.MakeFunction(minArity, maxArity, wrappedTrampoline(fn), doc, nil)
}

// MakeUniversal creates a host function from a fully typed Go function. The
// arity is derived from the signature; see Register for the accepted shapes.
func (e *Env) MakeUniversal(fn any, doc string) ValueResult {
	tramp, arity, err := universalTrampoline(fn)
	if err != nil {
		e.signalName(condConvert, err.Error())
		return result.Err[Value, *Error](e.check())
	}
	return e.MakeFunction(arity, arity, tramp, doc, nil)
}

// Funcall invokes a host function value with already-converted arguments.
func (e *Env) Funcall(fn Value, args []Value) ValueResult {
	refs := make([]abi.Ref, len(args))
	for i, a := range args {
		refs[i] = a.ref
	}
	return e.checked(e.tab.Funcall(fn.ref, refs))
}

// Call invokes a host function, converting each argument from its Go type.
// fn may be a symbol name, a Value, or a GlobalRef. Arguments may be Value,
// GlobalRef, ValueResult, bool, string, []byte, time.Duration, integers, or
// floats.
func (e *Env) Call(fn any, args ...any) ValueResult {
	var fnRef abi.Ref
	switch f := fn.(type) {
	case string:
		r := e.Intern(f)
		if r.HasError() {
			return r
		}
		fnRef = r.Value().ref
	case Value:
		fnRef = f.ref
	case GlobalRef:
		fnRef = f.ref
	default:
		e.signalName(condConvert, fmt.Sprintf("cannot call value of type %T", fn))
		return result.Err[Value, *Error](e.check())
	}

	refs := make([]abi.Ref, len(args))
	for i, a := range args {
		r := e.lift(a)
		if r.HasError() {
			return r
		}
		refs[i] = r.Value().ref
	}
	return e.checked(e.tab.Funcall(fnRef, refs))
}

// DefAlias binds fn to the symbol named name in the host namespace.
func (e *Env) DefAlias(name string, fn Value) VoidResult {
	return e.Call("defalias", e.Intern(name), fn).Discard()
}

// Provide announces the named feature to the host.
func (e *Env) Provide(feature string) VoidResult {
	return e.Call("provide", e.Intern(feature)).Discard()
}

// List builds a host list from the given arguments. Zero arguments yield the
// empty list.
func (e *Env) List(args ...any) ValueResult {
	return e.Call("list", args...)
}

// Message displays a formatted message through the host.
func (e *Env) Message(format string, args ...any) VoidResult {
	return e.Call("message", "%s", fmt.Sprintf(format, args...)).Discard()
}

// PendingExit reports how the last operation exited without consuming the
// pending state. It never fails.
func (e *Env) PendingExit() abi.FuncallExit {
	return e.tab.NonLocalExitCheck()
}

// PendingError retrieves the pending exit without clearing it. Calling it
// with no exit pending returns an Error whose use is undefined.
func (e *Env) PendingError() *Error {
	exit, sym, data := e.tab.NonLocalExitGet()
	return &Error{
		exit: exit,
		sym:  Value{ref: sym, env: e},
		data: Value{ref: data, env: e},
	}
}

// ClearPending resets the pending exit so PendingExit reads Return again and
// the host takes no action when the current call returns.
func (e *Env) ClearPending() {
	e.tab.NonLocalExitClear()
}

// SignalError requests that the host raise err's condition once the current
// call returns. A no-op while another exit is pending; the first error wins.
func (e *Env) SignalError(err *Error) {
	e.tab.NonLocalExitSignal(err.sym.ref, err.data.ref)
}

// ThrowError requests a non-local jump to err's catch tag once the current
// call returns. A no-op while another exit is pending.
func (e *Env) ThrowError(err *Error) {
	e.tab.NonLocalExitThrow(err.sym.ref, err.data.ref)
}

// signalName raises a named condition with a message, touching only the ABI
// table directly: it must stay usable from panic barriers where no further
// error handling is possible. Allocation failures inside it simply leave the
// earlier pending exit in place.
func (e *Env) signalName(cond, msg string) {
	what := e.tab.MakeString([]byte(msg))
	data := e.tab.Funcall(e.tab.Intern("list"), []abi.Ref{what})
	e.tab.NonLocalExitSignal(e.tab.Intern(cond), data)
}

// ShouldQuit reports that the user asked the host to interrupt. Long-running
// module code should poll it and return promptly when it turns true.
func (e *Env) ShouldQuit() bool {
	return e.tab.ShouldQuit()
}

// ProcessInput lets the host handle pending input. A Quit result means the
// module should abandon its work and return; host state may have changed
// arbitrarily when it returns Continue.
func (e *Env) ProcessInput() abi.ProcessInputResult {
	return e.tab.ProcessInput()
}

// OpenChannel opens a descriptor tied to a pipe-like host object. The file
// is usable from any goroutine, with or without an active Env; closing it is
// the caller's responsibility.
func (e *Env) OpenChannel(process Value) result.Result[*os.File, *Error] {
	f, ok := e.tab.OpenChannel(process.ref)
	if err := e.check(); err != nil {
		return result.Err[*os.File, *Error](err)
	}
	if !ok || f == nil {
		e.signalName(condGeneric, "open-channel: no descriptor")
		return result.Err[*os.File, *Error](e.check())
	}
	return result.Ok[*os.File, *Error](f)
}
