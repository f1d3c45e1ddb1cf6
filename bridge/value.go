package bridge

import (
	"time"

	abi "github.com/wippyai/hostbridge"
	"github.com/wippyai/hostbridge/result"
)

// Value is a handle to a host value paired with the Env it came from. Values
// copy freely (they are handle-sized) but do not own the underlying object:
// they are valid only while their Env is active. Using a Value after its Env
// ended is undefined; keep a GlobalRef for anything that must live longer.
type Value struct {
	ref abi.Ref
	env *Env
}

// Wrap pairs a raw handle with the Env it belongs to.
func Wrap(ref abi.Ref, env *Env) Value {
	return Value{ref: ref, env: env}
}

// Raw returns the underlying handle.
func (v Value) Raw() abi.Ref { return v.ref }

// Env returns the call context the value is bound to.
func (v Value) Env() *Env { return v.env }

// TypeOf returns the host-observable type symbol, exactly as the host's own
// type-of reports it.
func (v Value) TypeOf() Value {
	return Value{ref: v.env.tab.TypeOf(v.ref), env: v.env}
}

// Type decodes the representation tag bits of the handle directly.
//
// Unofficial API: the layout is host-version dependent, so the fast path is
// gated on the TaggedRefs capability. When it reports false, fall back to
// TypeOf.
func (v Value) Type() (abi.Tag, bool) {
	if !v.env.tab.TaggedRefs {
		return 0, false
	}
	return abi.Tag(v.ref) & abi.TagMask, true
}

// Bool reports whether the value is not nil. Multiple handles may represent
// nil, so comparing against an interned nil is not equivalent.
func (v Value) Bool() bool {
	return v.env.tab.IsNotNil(v.ref)
}

// Eq reports whether both handles name the same host object, like the host's
// eq. Distinct handles may still be eq; value equality needs the host's
// equal instead.
func (v Value) Eq(o Value) bool {
	return v.env.tab.Eq(v.ref, o.ref)
}

// Name returns the symbol's name.
func (v Value) Name() result.Result[string, *Error] {
	return result.AndThen(v.env.Call("symbol-name", v), Value.AsString)
}

// SymbolValue returns the symbol's current value binding.
func (v Value) SymbolValue() ValueResult {
	return v.env.Call("symbol-value", v)
}

// Global pins the value beyond the extent of its Env. The reference must be
// released exactly once with GlobalRef.Free.
func (v Value) Global() GlobalRef {
	return GlobalRef{ref: v.env.tab.MakeGlobalRef(v.ref)}
}

// Call invokes the value as a host function.
func (v Value) Call(args ...any) ValueResult {
	return v.env.Call(v, args...)
}

// Interactive marks a module function as callable interactively using the
// given specification string.
func (v Value) Interactive(spec string) VoidResult {
	s := v.env.MakeString(spec)
	if s.HasError() {
		return s.Discard()
	}
	v.env.tab.MakeInteractive(v.ref, s.Value().ref)
	if err := v.env.check(); err != nil {
		return result.Err[result.Void, *Error](err)
	}
	return result.Ok[result.Void, *Error](result.Void{})
}

// Size returns the number of elements of a vector value. On a non-vector the
// host raises wrong-type-argument and the return value is meaningless.
func (v Value) Size() int {
	return v.env.tab.VecSize(v.ref)
}

// Get returns the i-th element of a vector without local bounds checking:
// an out-of-range index raises the host's own args-out-of-range, which the
// caller observes on its next checked operation.
func (v Value) Get(i int) Value {
	return Value{ref: v.env.tab.VecGet(v.ref, i), env: v.env}
}

// Set stores elem at index i, with the same error convention as Get.
func (v Value) Set(i int, elem Value) {
	v.env.tab.VecSet(v.ref, i, elem.ref)
}

// At returns the i-th element of a vector, surfacing the host's diagnosis
// for bad indexes or a non-vector value.
func (v Value) At(i int) ValueResult {
	return v.env.checked(v.env.tab.VecGet(v.ref, i))
}

// AsInt extracts a host integer. A non-integer raises wrong-type-argument; a
// value outside the representable range raises overflow-error. Both surface
// as the host's own conditions.
func (v Value) AsInt() result.Result[int64, *Error] {
	x := v.env.tab.ExtractInteger(v.ref)
	if err := v.env.check(); err != nil {
		return result.Err[int64, *Error](err)
	}
	return result.Ok[int64, *Error](x)
}

// AsFloat extracts a host floating-point number.
func (v Value) AsFloat() result.Result[float64, *Error] {
	x := v.env.tab.ExtractFloat(v.ref)
	if err := v.env.check(); err != nil {
		return result.Err[float64, *Error](err)
	}
	return result.Ok[float64, *Error](x)
}

// AsBytes extracts string contents using the two-pass protocol: query the
// required size, copy, and trim the terminator the host appends. Embedded
// NUL bytes survive the round trip.
func (v Value) AsBytes() result.Result[[]byte, *Error] {
	n, _ := v.env.tab.CopyStringContents(v.ref, nil)
	if err := v.env.check(); err != nil {
		return result.Err[[]byte, *Error](err)
	}

	buf := make([]byte, n)
	v.env.tab.CopyStringContents(v.ref, buf)
	if err := v.env.check(); err != nil {
		return result.Err[[]byte, *Error](err)
	}

	if n > 0 {
		buf = buf[:n-1] // drop the trailing NUL
	}
	return result.Ok[[]byte, *Error](buf)
}

// AsString extracts string contents as a Go string.
func (v Value) AsString() result.Result[string, *Error] {
	return result.Map(v.AsBytes(), func(b []byte) string { return string(b) })
}

// AsDuration extracts a host timestamp with nanosecond precision.
func (v Value) AsDuration() result.Result[time.Duration, *Error] {
	sec, nsec := v.env.tab.ExtractTime(v.ref)
	if err := v.env.check(); err != nil {
		return result.Err[time.Duration, *Error](err)
	}
	return result.Ok[time.Duration, *Error](time.Duration(sec)*time.Second + time.Duration(nsec))
}

// AsUserPtr extracts the Go value embedded in a user pointer object.
func (v Value) AsUserPtr() result.Result[any, *Error] {
	p := v.env.tab.GetUserPtr(v.ref)
	if err := v.env.check(); err != nil {
		return result.Err[any, *Error](err)
	}
	return result.Ok[any, *Error](p)
}

// ResetUserPtr replaces the embedded Go value of a user pointer object.
func (v Value) ResetUserPtr(p any) {
	v.env.tab.SetUserPtr(v.ref, p)
}

// Finalizer returns the finalizer of a user pointer object, or nil.
func (v Value) Finalizer() func(any) {
	return v.env.tab.GetUserFinalizer(v.ref)
}

// SetFinalizer replaces the finalizer of a user pointer object. fin may be
// nil to remove it.
func (v Value) SetFinalizer(fin func(any)) {
	v.env.tab.SetUserFinalizer(v.ref, fin)
}
