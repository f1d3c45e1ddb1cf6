package bridge

import (
	"fmt"
	"math"
	"reflect"
	"time"

	abi "github.com/wippyai/hostbridge"
	"github.com/wippyai/hostbridge/result"
)

// lift converts a Go value to a host handle. It accepts Values, GlobalRefs,
// ValueResults, nil, booleans, strings, byte slices, the integer and float
// kinds, and durations; anything else raises the conversion condition.
func (e *Env) lift(a any) ValueResult {
	switch v := a.(type) {
	case nil:
		return e.Nil()
	case Value:
		return result.Ok[Value, *Error](v)
	case GlobalRef:
		return result.Ok[Value, *Error](v.Bind(e))
	case ValueResult:
		return v
	case result.Void:
		return e.Nil()
	case bool:
		if v {
			return e.T()
		}
		return e.Nil()
	case string:
		return e.MakeString(v)
	case []byte:
		return e.MakeBytes(v)
	case int:
		return e.MakeInt(int64(v))
	case int8:
		return e.MakeInt(int64(v))
	case int16:
		return e.MakeInt(int64(v))
	case int32:
		return e.MakeInt(int64(v))
	case int64:
		return e.MakeInt(v)
	case uint:
		return e.liftUint(uint64(v))
	case uint8:
		return e.MakeInt(int64(v))
	case uint16:
		return e.MakeInt(int64(v))
	case uint32:
		return e.MakeInt(int64(v))
	case uint64:
		return e.liftUint(v)
	case uintptr:
		return e.liftUint(uint64(v))
	case float32:
		return e.MakeFloat(float64(v))
	case float64:
		return e.MakeFloat(v)
	case time.Duration:
		return e.MakeTime(v)
	}

	// Named types with a convertible kind still lift.
	switch rv := reflect.ValueOf(a); rv.Kind() {
	case reflect.Bool:
		if rv.Bool() {
			return e.T()
		}
		return e.Nil()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return e.MakeInt(rv.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return e.liftUint(rv.Uint())
	case reflect.Float32, reflect.Float64:
		return e.MakeFloat(rv.Float())
	case reflect.String:
		return e.MakeString(rv.String())
	}

	e.signalName(condConvert, fmt.Sprintf("cannot convert %T to a host value", a))
	return result.Err[Value, *Error](e.check())
}

func (e *Env) liftUint(v uint64) ValueResult {
	if v > math.MaxInt64 {
		e.signalName(condOverflow, fmt.Sprintf("%d does not fit a host integer", v))
		return result.Err[Value, *Error](e.check())
	}
	return e.MakeInt(int64(v))
}

// extractor pulls one typed argument out of a raw handle. Host-diagnosed
// failures (wrong type, host-side overflow) come back as an *Error; local
// range failures panic with the sentinel errors so the barrier reports them
// under their dedicated conditions.
type extractor func(e *Env, ref abi.Ref) (reflect.Value, *Error)

// extractorFor compiles an extractor for one parameter type of a typed
// export. Called once per parameter at registration time.
func extractorFor(t reflect.Type) (extractor, error) {
	if t == reflect.TypeOf(Value{}) {
		return func(e *Env, ref abi.Ref) (reflect.Value, *Error) {
			return reflect.ValueOf(Value{ref: ref, env: e}), nil
		}, nil
	}
	if t == reflect.TypeOf(time.Duration(0)) {
		return func(e *Env, ref abi.Ref) (reflect.Value, *Error) {
			r := (Value{ref: ref, env: e}).AsDuration()
			if r.HasError() {
				return reflect.Value{}, r.Err()
			}
			return reflect.ValueOf(r.Value()), nil
		}, nil
	}
	if t == reflect.TypeOf([]byte(nil)) {
		return func(e *Env, ref abi.Ref) (reflect.Value, *Error) {
			r := (Value{ref: ref, env: e}).AsBytes()
			if r.HasError() {
				return reflect.Value{}, r.Err()
			}
			return reflect.ValueOf(r.Value()), nil
		}, nil
	}

	switch t.Kind() {
	case reflect.Bool:
		return func(e *Env, ref abi.Ref) (reflect.Value, *Error) {
			return reflect.ValueOf(e.tab.IsNotNil(ref)).Convert(t), nil
		}, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		bits := t.Bits()
		return func(e *Env, ref abi.Ref) (reflect.Value, *Error) {
			r := (Value{ref: ref, env: e}).AsInt()
			if r.HasError() {
				return reflect.Value{}, r.Err()
			}
			x := r.Value()
			if bits < 64 {
				if x > 1<<(bits-1)-1 {
					panic(fmt.Errorf("%w: %d exceeds %d-bit integer", ErrOverflow, x, bits))
				}
				if x < -1<<(bits-1) {
					panic(fmt.Errorf("%w: %d exceeds %d-bit integer", ErrUnderflow, x, bits))
				}
			}
			return reflect.ValueOf(x).Convert(t), nil
		}, nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		bits := t.Bits()
		return func(e *Env, ref abi.Ref) (reflect.Value, *Error) {
			r := (Value{ref: ref, env: e}).AsInt()
			if r.HasError() {
				return reflect.Value{}, r.Err()
			}
			x := r.Value()
			if x < 0 {
				panic(fmt.Errorf("%w: %d is negative", ErrUnderflow, x))
			}
			if bits < 64 && uint64(x) > 1<<bits-1 {
				panic(fmt.Errorf("%w: %d exceeds %d-bit integer", ErrOverflow, x, bits))
			}
			return reflect.ValueOf(uint64(x)).Convert(t), nil
		}, nil
	case reflect.Float32, reflect.Float64:
		return func(e *Env, ref abi.Ref) (reflect.Value, *Error) {
			r := (Value{ref: ref, env: e}).AsFloat()
			if r.HasError() {
				return reflect.Value{}, r.Err()
			}
			return reflect.ValueOf(r.Value()).Convert(t), nil
		}, nil
	case reflect.String:
		return func(e *Env, ref abi.Ref) (reflect.Value, *Error) {
			r := (Value{ref: ref, env: e}).AsString()
			if r.HasError() {
				return reflect.Value{}, r.Err()
			}
			return reflect.ValueOf(r.Value()).Convert(t), nil
		}, nil
	case reflect.Interface:
		if t.NumMethod() == 0 {
			return func(e *Env, ref abi.Ref) (reflect.Value, *Error) {
				r := (Value{ref: ref, env: e}).AsUserPtr()
				if r.HasError() {
					return reflect.Value{}, r.Err()
				}
				v := reflect.New(t).Elem()
				if r.Value() != nil {
					v.Set(reflect.ValueOf(r.Value()))
				}
				return v, nil
			}, nil
		}
	}
	return nil, fmt.Errorf("unsupported parameter type %s", t)
}
