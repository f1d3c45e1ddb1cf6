package bridge_test

import (
	"bufio"
	"bytes"
	"testing"
	"testing/quick"
	"time"

	abi "github.com/wippyai/hostbridge"
	"github.com/wippyai/hostbridge/bridge"
	"github.com/wippyai/hostbridge/emulator"
	"github.com/wippyai/hostbridge/result"
)

func newEnv() (*emulator.Host, *bridge.Env) {
	h := emulator.New()
	return h, bridge.New(h.NewEnv())
}

// condition fails the test unless err is a signal of the named condition.
func condition(t *testing.T, h *emulator.Host, err *bridge.Error, want string) {
	t.Helper()
	if err == nil {
		t.Fatal("expected an error")
	}
	if err.Exit() != abi.FuncallExitSignal {
		t.Fatalf("exit = %v, want signal", err.Exit())
	}
	if err.Symbol().Raw() != h.Intern(want) {
		t.Fatalf("condition = %s, want %s", err.Symbol().Name().ValueOr("?"), want)
	}
}

func TestIntRoundTrip(t *testing.T) {
	_, e := newEnv()

	f := func(v int64) bool {
		v >>= abi.TagBits // stay inside the host's fixnum range
		r := e.MakeInt(v)
		return r.HasValue() && r.Value().AsInt().Expect("extract") == v
	}
	if err := quick.Check(f, nil); err != nil {
		t.Error(err)
	}
}

func TestFloatRoundTrip(t *testing.T) {
	_, e := newEnv()

	for _, v := range []float64{0, 1.5, -2.25, 1e100} {
		got := e.MakeFloat(v).Expect("make").AsFloat().Expect("extract")
		if got != v {
			t.Errorf("round trip of %g: got %g", v, got)
		}
	}
}

func TestStringRoundTrip(t *testing.T) {
	_, e := newEnv()

	for _, s := range []string{"", "foo", "with\x00nul", "héllo", "tab\tand\nnewline"} {
		got := e.MakeString(s).Expect("make").AsString().Expect("extract")
		if got != s {
			t.Errorf("round trip of %q: got %q", s, got)
		}
	}
}

func FuzzStringRoundTrip(f *testing.F) {
	f.Add([]byte("seed"))
	f.Add([]byte{0, 1, 2})
	f.Add([]byte{})
	f.Fuzz(func(t *testing.T, b []byte) {
		_, e := newEnv()
		r := e.MakeBytes(b)
		if r.HasError() {
			t.Fatalf("MakeBytes(%q) failed", b)
		}
		got := r.Value().AsBytes().Expect("extract")
		if !bytes.Equal(got, b) {
			t.Errorf("round trip of %q: got %q", b, got)
		}
	})
}

func TestMakeStringRejectsInvalidUTF8(t *testing.T) {
	h, e := newEnv()

	r := e.MakeString(string([]byte{0xff, 0xfe}))
	if r.HasValue() {
		t.Fatal("invalid UTF-8 accepted")
	}
	condition(t, h, r.Err(), "wrong-type-argument")

	if e.MakeBytes([]byte{0xff, 0xfe}).HasError() {
		t.Error("unibyte constructor rejected raw bytes")
	}
}

func TestExtractWrongTypeSignals(t *testing.T) {
	h, e := newEnv()

	s := e.MakeString("not a number").Expect("make")
	r := s.AsInt()
	if r.HasValue() {
		t.Fatal("AsInt succeeded on a string")
	}
	condition(t, h, r.Err(), "wrong-type-argument")

	// The failed extraction consumed the pending exit: the env is usable.
	if e.MakeInt(1).HasError() {
		t.Error("env unusable after a consumed error")
	}
}

func TestDurationRoundTrip(t *testing.T) {
	_, e := newEnv()

	want := 90*time.Second + 123456789*time.Nanosecond
	got := e.MakeTime(want).Expect("make").AsDuration().Expect("extract")
	if got != want {
		t.Errorf("round trip of %v: got %v", want, got)
	}
}

func TestTypeFastPath(t *testing.T) {
	_, e := newEnv()

	cases := []struct {
		name string
		v    bridge.ValueResult
		want abi.Tag
	}{
		{"int", e.MakeInt(7), abi.TagInt0},
		{"float", e.MakeFloat(1.5), abi.TagFloat},
		{"string", e.MakeString("s"), abi.TagString},
		{"symbol", e.Intern("foo"), abi.TagSymbol},
	}
	for _, tc := range cases {
		tag, ok := tc.v.Expect(tc.name).Type()
		if !ok {
			t.Fatalf("%s: fast path unavailable on a tagging host", tc.name)
		}
		if tag != tc.want {
			t.Errorf("%s: tag = %d, want %d", tc.name, tag, tc.want)
		}
	}
}

func TestTypeOfNames(t *testing.T) {
	_, e := newEnv()

	name := e.MakeInt(7).Expect("make").TypeOf().Name().Expect("name")
	if name != "integer" {
		t.Errorf("type-of 7 = %s", name)
	}
}

func TestVectorOps(t *testing.T) {
	h, e := newEnv()

	vec := e.Call("vector", 1, "foo", 1.2).Expect("vector")
	if n := vec.Size(); n != 3 {
		t.Fatalf("Size = %d, want 3", n)
	}
	if got := vec.At(0).Expect("at 0").AsInt().Expect("int"); got != 1 {
		t.Errorf("vec[0] = %d", got)
	}
	if got := vec.At(1).Expect("at 1").AsString().Expect("string"); got != "foo" {
		t.Errorf("vec[1] = %q", got)
	}

	same := e.Call("vector", 1, "foo", 1.2).Expect("vector")
	if vec.Eq(same) {
		t.Error("distinct vectors are eq")
	}
	if !e.Call("equal", vec, same).Expect("equal").Bool() {
		t.Error("structurally identical vectors are not equal")
	}

	vec.Set(1, e.MakeString("bar").Expect("make"))
	if got := vec.At(1).Expect("at 1").AsString().Expect("string"); got != "bar" {
		t.Errorf("vec[1] after Set = %q", got)
	}

	r := vec.At(5)
	if r.HasValue() {
		t.Fatal("out-of-range index succeeded")
	}
	condition(t, h, r.Err(), "args-out-of-range")
}

func TestPendingExitStateMachine(t *testing.T) {
	_, e := newEnv()

	first := e.Intern("first-error").Expect("intern")
	second := e.Intern("second-error").Expect("intern")
	data := e.List(1).Expect("list")

	e.SignalError(bridge.Signal(first, data))
	if e.PendingExit() != abi.FuncallExitSignal {
		t.Fatal("no pending signal")
	}
	e.SignalError(bridge.Signal(second, data))
	if e.PendingError().Symbol().Raw() != first.Raw() {
		t.Error("second signal replaced the first")
	}

	e.ClearPending()
	if e.PendingExit() != abi.FuncallExitReturn {
		t.Fatal("clear did not reset the pending exit")
	}

	tag := e.Intern("exit-tag").Expect("intern")
	e.ThrowError(bridge.Throw(tag, data))
	err := e.PendingError()
	if err.Exit() != abi.FuncallExitThrow || err.Tag().Raw() != tag.Raw() {
		t.Errorf("throw not observed: %v", err.Exit())
	}
	e.ClearPending()
}

func TestGlobalRefOutlivesEnv(t *testing.T) {
	h, e := newEnv()

	g := e.MakeString("keep").Expect("make").Global()
	if h.PinCount(g.Raw()) != 1 {
		t.Fatalf("pin count = %d", h.PinCount(g.Raw()))
	}

	e2 := bridge.New(h.NewEnv())
	if got := g.Bind(e2).AsString().Expect("extract"); got != "keep" {
		t.Errorf("pinned value = %q", got)
	}
	g.Free(e2)
	if h.PinCount(g.Raw()) != 0 {
		t.Error("pin survived Free")
	}
}

func TestDefAliasAndCallByName(t *testing.T) {
	_, e := newEnv()

	double := e.MakeWrapped(1, 1, func(e *bridge.Env, args []bridge.Value) bridge.ValueResult {
		return result.AndThen(args[0].AsInt(), func(n int64) bridge.ValueResult {
			return e.MakeInt(2 * n)
		})
	}, "Double an integer.").Expect("make")

	if r := e.DefAlias("test-double", double); r.HasError() {
		t.Fatalf("defalias: %v", r.Err())
	}
	got := e.Call("test-double", 21).Expect("call").AsInt().Expect("int")
	if got != 42 {
		t.Errorf("test-double 21 = %d", got)
	}
}

func TestMessage(t *testing.T) {
	h, e := newEnv()

	if r := e.Message("x=%d and %s", 7, "y"); r.HasError() {
		t.Fatal("message failed")
	}
	if h.LastMessage() != "x=7 and y" {
		t.Errorf("message = %q", h.LastMessage())
	}
}

func TestUserPtr(t *testing.T) {
	_, e := newEnv()

	type payload struct{ n int }
	p := &payload{n: 7}
	v := e.MakeUserPtr(p, nil).Expect("make")
	got := v.AsUserPtr().Expect("extract")
	if got != p {
		t.Errorf("user ptr = %v", got)
	}

	v.ResetUserPtr(&payload{n: 8})
	if got := v.AsUserPtr().Expect("extract").(*payload); got.n != 8 {
		t.Errorf("after reset n = %d", got.n)
	}

	ran := false
	v.SetFinalizer(func(any) { ran = true })
	fin := v.Finalizer()
	if fin == nil {
		t.Fatal("finalizer not stored")
	}
	fin(nil)
	if !ran {
		t.Error("finalizer did not run")
	}
}

func TestQuitAndProcessInput(t *testing.T) {
	h, e := newEnv()

	if e.ShouldQuit() {
		t.Fatal("quit before SetQuit")
	}
	if e.ProcessInput() != abi.ProcessInputContinue {
		t.Fatal("ProcessInput before SetQuit")
	}
	h.SetQuit(true)
	if !e.ShouldQuit() {
		t.Error("SetQuit not observed")
	}
	if e.ProcessInput() != abi.ProcessInputQuit {
		t.Error("ProcessInput ignores quit")
	}
}

func TestOpenChannel(t *testing.T) {
	h, e := newEnv()

	proc := e.Call("make-pipe-process", "chan").Expect("make-pipe-process")
	f := e.OpenChannel(proc).Expect("open channel")
	defer f.Close()

	done := make(chan string, 1)
	go func() {
		line, _ := bufio.NewReader(h.ProcessOutput(proc.Raw())).ReadString('\n')
		done <- line
	}()
	if _, err := f.WriteString("ping\n"); err != nil {
		t.Fatal(err)
	}
	if got := <-done; got != "ping\n" {
		t.Errorf("read %q", got)
	}
}
