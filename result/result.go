// Package result provides a tagged success-or-error container used for every
// fallible call across the host boundary, where panics must not escape and
// Go's (T, error) pair cannot thread a typed host error through combinator
// chains.
package result

import "fmt"

// Void is the success payload of operations that produce no value.
type Void struct{}

// BadAccessError is the panic payload raised when Value or Err is called on
// the wrong variant. It marks a local logic defect in module code; it is
// never reported through the host error channel.
type BadAccessError struct {
	Msg string
	// Payload carries the value of the variant that was actually populated,
	// so a recovery barrier can still inspect the original error.
	Payload any
}

func (e *BadAccessError) Error() string { return e.Msg }

// Result holds exactly one of a success value T or an error value E.
// The zero Result is an error Result holding E's zero value.
type Result[T, E any] struct {
	value T
	err   E
	ok    bool
}

// Ok returns a Result in the success state.
func Ok[T, E any](v T) Result[T, E] {
	return Result[T, E]{value: v, ok: true}
}

// Err returns a Result in the error state.
func Err[T, E any](e E) Result[T, E] {
	return Result[T, E]{err: e}
}

// HasValue reports whether the Result is in the success state.
func (r Result[T, E]) HasValue() bool { return r.ok }

// HasError reports whether the Result is in the error state.
func (r Result[T, E]) HasError() bool { return !r.ok }

// Value returns the success value. It panics with *BadAccessError when the
// Result holds an error.
func (r Result[T, E]) Value() T {
	if !r.ok {
		panic(&BadAccessError{Msg: "result: Value called on error Result", Payload: r.err})
	}
	return r.value
}

// Err returns the error value. It panics with *BadAccessError when the
// Result holds a success value.
func (r Result[T, E]) Err() E {
	if r.ok {
		panic(&BadAccessError{Msg: "result: Err called on success Result", Payload: r.value})
	}
	return r.err
}

// Expect returns the success value or panics with *BadAccessError carrying
// msg.
func (r Result[T, E]) Expect(msg string) T {
	if !r.ok {
		panic(&BadAccessError{Msg: msg, Payload: r.err})
	}
	return r.value
}

// ExpectErr returns the error value or panics with *BadAccessError carrying
// msg.
func (r Result[T, E]) ExpectErr(msg string) E {
	if r.ok {
		panic(&BadAccessError{Msg: msg, Payload: r.value})
	}
	return r.err
}

// ValueOr returns the success value, or fallback when the Result holds an
// error.
func (r Result[T, E]) ValueOr(fallback T) T {
	if r.ok {
		return r.value
	}
	return fallback
}

// ValueOrElse returns the success value, or f applied to the error. f runs
// only in the error state.
func (r Result[T, E]) ValueOrElse(f func(E) T) T {
	if r.ok {
		return r.value
	}
	return f(r.err)
}

// Get splits the Result into Go's comma-ok shape without panicking.
func (r Result[T, E]) Get() (T, bool) { return r.value, r.ok }

// Discard drops the success payload, keeping only the outcome.
func (r Result[T, E]) Discard() Result[Void, E] {
	if r.ok {
		return Ok[Void, E](Void{})
	}
	return Err[Void, E](r.err)
}

func (r Result[T, E]) String() string {
	if r.ok {
		return fmt.Sprintf("Ok(%v)", r.value)
	}
	return fmt.Sprintf("Err(%v)", r.err)
}

// The combinators below are package functions because Go methods cannot
// introduce type parameters.

// Map transforms the success value, leaving an error Result untouched.
// f is not invoked in the error state.
func Map[T, U, E any](r Result[T, E], f func(T) U) Result[U, E] {
	if r.ok {
		return Ok[U, E](f(r.value))
	}
	return Err[U, E](r.err)
}

// MapErr transforms the error value, leaving a success Result untouched.
// f is not invoked in the success state.
func MapErr[T, E, F any](r Result[T, E], f func(E) F) Result[T, F] {
	if r.ok {
		return Ok[T, F](r.value)
	}
	return Err[T, F](f(r.err))
}

// AndThen chains a dependent fallible step. It short-circuits: once a Result
// holds an error, f is never invoked and the error propagates untouched.
func AndThen[T, U, E any](r Result[T, E], f func(T) Result[U, E]) Result[U, E] {
	if r.ok {
		return f(r.value)
	}
	return Err[U, E](r.err)
}

// OrElse is the recovery mirror of AndThen: f is invoked only in the error
// state and a success value passes through untouched.
func OrElse[T, E, F any](r Result[T, E], f func(E) Result[T, F]) Result[T, F] {
	if r.ok {
		return Ok[T, F](r.value)
	}
	return f(r.err)
}
