package bridge

import (
	"errors"
	"fmt"
	"reflect"

	abi "github.com/wippyai/hostbridge"
	"github.com/wippyai/hostbridge/result"
)

// WrappedFunc is the wrapped-form module function shape: arguments arrive as
// bound Values and the error branch of the result is reported into the
// pending slot by the trampoline.
type WrappedFunc func(e *Env, args []Value) ValueResult

// wrappedTrampoline adapts a WrappedFunc to the fixed ABI callback shape.
// Panics escaping fn are translated to host conditions instead of crossing
// the boundary.
func wrappedTrampoline(fn WrappedFunc) abi.Func {
	return func(tab *abi.Env, refs []abi.Ref, _ any) (ret abi.Ref) {
		e := New(tab)
		defer panicBarrier(e, false, &ret)

		args := make([]Value, len(refs))
		for i, r := range refs {
			args[i] = Value{ref: r, env: e}
		}
		res := fn(e, args)
		if res.HasError() {
			res.Err().Report(e)
			return 0
		}
		return res.Value().ref
	}
}

// universalTrampoline adapts a fully typed Go function to the ABI callback
// shape. The signature must be func(*Env, T1, ..., Tn) or the same with a
// single return value; the arity is n, fixed. Returns the callback, the
// derived arity, and a diagnosis for unsupported signatures.
func universalTrampoline(fn any) (abi.Func, int, error) {
	t := reflect.TypeOf(fn)
	if t == nil || t.Kind() != reflect.Func {
		return nil, 0, fmt.Errorf("export must be a function, got %T", fn)
	}
	if t.IsVariadic() {
		return nil, 0, errors.New("export must not be variadic")
	}
	if t.NumIn() == 0 || t.In(0) != reflect.TypeOf((*Env)(nil)) {
		return nil, 0, errors.New("export must take *bridge.Env as its first parameter")
	}
	if t.NumOut() > 1 {
		return nil, 0, errors.New("export must return at most one value")
	}

	arity := t.NumIn() - 1
	extract := make([]extractor, arity)
	for i := range extract {
		ex, err := extractorFor(t.In(i + 1))
		if err != nil {
			return nil, 0, fmt.Errorf("parameter %d: %w", i+1, err)
		}
		extract[i] = ex
	}

	fv := reflect.ValueOf(fn)
	tramp := func(tab *abi.Env, refs []abi.Ref, _ any) (ret abi.Ref) {
		e := New(tab)
		defer panicBarrier(e, true, &ret)

		if len(refs) != arity {
			e.signalName(condConvert, fmt.Sprintf("expected %d arguments, got %d", arity, len(refs)))
			return 0
		}
		in := make([]reflect.Value, arity+1)
		in[0] = reflect.ValueOf(e)
		for i, ex := range extract {
			v, err := ex(e, refs[i])
			if err != nil {
				err.Report(e)
				return 0
			}
			in[i+1] = v
		}

		out := fv.Call(in)
		if t.NumOut() == 0 {
			return e.tab.Intern("nil")
		}
		r := e.lift(out[0].Interface())
		if r.HasError() {
			r.Err().Report(e)
			return 0
		}
		return r.Value().ref
	}
	return tramp, arity, nil
}

// panicBarrier is deferred at the top of every trampoline. It converts a
// panic into a pending host condition and forces the null return handle, so
// no Go panic ever unwinds into the host.
func panicBarrier(e *Env, typed bool, ret *abi.Ref) {
	r := recover()
	if r == nil {
		return
	}
	cond, msg := classifyPanic(r, typed)
	e.signalName(cond, msg)
	*ret = 0
}

// classifyPanic maps a recovered panic value to a condition name. Sentinel
// range errors keep their dedicated conditions; a wrong-variant result access
// maps to the conversion condition only in the typed trampoline, where it
// means an argument failed to marshal.
func classifyPanic(r any, typed bool) (cond, msg string) {
	switch v := r.(type) {
	case *result.BadAccessError:
		if typed {
			return condConvert, v.Msg
		}
		return condGeneric, v.Msg
	case error:
		switch {
		case errors.Is(v, ErrOverflow):
			return condOverflow, v.Error()
		case errors.Is(v, ErrUnderflow):
			return condUnderflow, v.Error()
		case errors.Is(v, ErrRange):
			return condRange, v.Error()
		case errors.Is(v, ErrOutOfRange):
			return condOutOfRange, v.Error()
		case errors.Is(v, ErrNoMemory):
			return condMemoryFull, v.Error()
		}
		return condGeneric, v.Error()
	case string:
		return condGeneric, v
	}
	return condGeneric, fmt.Sprint(r)
}
