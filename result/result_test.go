package result

import (
	"testing"
	"testing/quick"
)

func TestHasValueHasError(t *testing.T) {
	ok := Ok[int, string](2)
	if !ok.HasValue() || ok.HasError() {
		t.Errorf("Ok: HasValue=%v HasError=%v", ok.HasValue(), ok.HasError())
	}

	er := Err[int, string]("boom")
	if er.HasValue() || !er.HasError() {
		t.Errorf("Err: HasValue=%v HasError=%v", er.HasValue(), er.HasError())
	}
}

func TestZeroValueIsError(t *testing.T) {
	var r Result[int, string]
	if !r.HasError() {
		t.Error("zero Result should be in the error state")
	}
}

func TestValueAndErr(t *testing.T) {
	if got := Ok[int, string](2).Value(); got != 2 {
		t.Errorf("Value = %d, want 2", got)
	}
	if got := Err[int, string]("boom").Err(); got != "boom" {
		t.Errorf("Err = %q, want boom", got)
	}
}

func TestWrongVariantAccessPanics(t *testing.T) {
	t.Run("Value on error", func(t *testing.T) {
		defer func() {
			b, ok := recover().(*BadAccessError)
			if !ok {
				t.Fatal("expected *BadAccessError panic")
			}
			if b.Payload != "boom" {
				t.Errorf("payload = %v, want boom", b.Payload)
			}
		}()
		Err[int, string]("boom").Value()
	})

	t.Run("Err on success", func(t *testing.T) {
		defer func() {
			if _, ok := recover().(*BadAccessError); !ok {
				t.Fatal("expected *BadAccessError panic")
			}
		}()
		Ok[int, string](2).Err()
	})
}

func TestExpect(t *testing.T) {
	if got := Ok[int, int](2).Expect("dummy"); got != 2 {
		t.Errorf("Expect = %d, want 2", got)
	}

	defer func() {
		b, ok := recover().(*BadAccessError)
		if !ok {
			t.Fatal("expected *BadAccessError panic")
		}
		if b.Msg != "dummy" {
			t.Errorf("msg = %q, want dummy", b.Msg)
		}
	}()
	Err[int, int](3).Expect("dummy")
}

func TestExpectErr(t *testing.T) {
	if got := Err[int, int](3).ExpectErr("dummy"); got != 3 {
		t.Errorf("ExpectErr = %d, want 3", got)
	}

	defer func() {
		b, ok := recover().(*BadAccessError)
		if !ok {
			t.Fatal("expected *BadAccessError panic")
		}
		if b.Msg != "dummy" {
			t.Errorf("msg = %q, want dummy", b.Msg)
		}
	}()
	Ok[int, int](2).ExpectErr("dummy")
}

func TestValueOr(t *testing.T) {
	if got := Ok[int, int](2).ValueOr(3); got != 2 {
		t.Errorf("ValueOr on Ok = %d, want 2", got)
	}
	if got := Err[int, int](9).ValueOr(3); got != 3 {
		t.Errorf("ValueOr on Err = %d, want 3", got)
	}
}

func TestValueOrElse(t *testing.T) {
	calls := 0
	f := func(e int) int { calls++; return e * 2 }

	if got := Ok[int, int](2).ValueOrElse(f); got != 2 {
		t.Errorf("ValueOrElse on Ok = %d, want 2", got)
	}
	if calls != 0 {
		t.Errorf("fallback evaluated %d times on Ok, want 0", calls)
	}

	if got := Err[int, int](3).ValueOrElse(f); got != 6 {
		t.Errorf("ValueOrElse on Err = %d, want 6", got)
	}
	if calls != 1 {
		t.Errorf("fallback evaluated %d times on Err, want 1", calls)
	}
}

func TestDiscard(t *testing.T) {
	if d := Ok[int, string](2).Discard(); !d.HasValue() {
		t.Error("Discard of Ok lost the success state")
	}
	d := Err[int, string]("boom").Discard()
	if !d.HasError() || d.Err() != "boom" {
		t.Errorf("Discard of Err = %v", d)
	}
}

func TestMapLeavesErrorUntouched(t *testing.T) {
	calls := 0
	r := Map(Err[int, string]("boom"), func(x int) int { calls++; return x + 1 })
	if calls != 0 {
		t.Errorf("f invoked %d times on error branch, want 0", calls)
	}
	if r.Err() != "boom" {
		t.Errorf("error = %q, want boom", r.Err())
	}
}

func TestMapComposition(t *testing.T) {
	f := func(x int) int { return x + 3 }
	g := func(x int) int { return x * 7 }

	law := func(x int, isErr bool) bool {
		var r Result[int, string]
		if isErr {
			r = Err[int, string]("e")
		} else {
			r = Ok[int, string](x)
		}
		lhs := Map(Map(r, f), g)
		rhs := Map(r, func(v int) int { return g(f(v)) })
		return lhs == rhs
	}
	if err := quick.Check(law, nil); err != nil {
		t.Error(err)
	}
}

func TestMapErr(t *testing.T) {
	calls := 0
	r := MapErr(Ok[int, string](2), func(e string) string { calls++; return e + "!" })
	if calls != 0 {
		t.Errorf("f invoked %d times on success branch, want 0", calls)
	}
	if r.Value() != 2 {
		t.Errorf("value = %d, want 2", r.Value())
	}

	e := MapErr(Err[int, string]("boom"), func(e string) int { return len(e) })
	if e.Err() != 4 {
		t.Errorf("mapped error = %d, want 4", e.Err())
	}
}

func TestAndThenShortCircuits(t *testing.T) {
	calls := 0
	step := func(x int) Result[int, string] {
		calls++
		return Ok[int, string](x + 1)
	}

	r := AndThen(Ok[int, string](1), func(x int) Result[int, string] {
		calls++
		return Err[int, string]("stop")
	})
	r = AndThen(r, step)
	r = AndThen(r, step)

	if calls != 1 {
		t.Errorf("steps after the error ran: %d calls, want 1", calls)
	}
	if r.Err() != "stop" {
		t.Errorf("error = %q, want stop", r.Err())
	}
}

func TestAndThenChainsSuccess(t *testing.T) {
	r := AndThen(Ok[int, string](2), func(x int) Result[string, string] {
		if x < 0 {
			return Err[string, string]("negative")
		}
		return Ok[string, string]("ok")
	})
	if r.Value() != "ok" {
		t.Errorf("value = %q, want ok", r.Value())
	}
}

func TestOrElse(t *testing.T) {
	calls := 0
	recovery := func(e string) Result[int, string] {
		calls++
		return Ok[int, string](42)
	}

	r := OrElse(Ok[int, string](2), recovery)
	if calls != 0 {
		t.Errorf("recovery invoked %d times on success, want 0", calls)
	}
	if r.Value() != 2 {
		t.Errorf("value = %d, want 2", r.Value())
	}

	r = OrElse(Err[int, string]("boom"), recovery)
	if calls != 1 || r.Value() != 42 {
		t.Errorf("recovery calls=%d value=%v", calls, r)
	}
}

func TestGet(t *testing.T) {
	if v, ok := Ok[int, string](5).Get(); !ok || v != 5 {
		t.Errorf("Get = (%d, %v), want (5, true)", v, ok)
	}
	if _, ok := Err[int, string]("x").Get(); ok {
		t.Error("Get on Err reported ok")
	}
}
