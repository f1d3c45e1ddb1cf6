package emulator

import (
	"bufio"
	"testing"
	"testing/quick"

	abi "github.com/wippyai/hostbridge"
)

func TestFixnumRoundTrip(t *testing.T) {
	h := New()
	e := h.NewEnv()

	cases := []int64{0, 1, -1, 42, -42, 1 << 40, -(1 << 40)}
	for _, want := range cases {
		got := e.ExtractInteger(e.MakeInteger(want))
		if e.NonLocalExitCheck() != abi.FuncallExitReturn {
			t.Fatalf("pending exit after round trip of %d", want)
		}
		if got != want {
			t.Errorf("round trip of %d: got %d", want, got)
		}
	}

	f := func(v int64) bool {
		// Fixnums lose the top tag bits; stay inside the representable range.
		v >>= abi.TagBits
		return e.ExtractInteger(e.MakeInteger(v)) == v
	}
	if err := quick.Check(f, nil); err != nil {
		t.Error(err)
	}
}

func TestRefsCarryTypeTags(t *testing.T) {
	h := New()
	e := h.NewEnv()

	if !e.TaggedRefs {
		t.Fatal("emulator must report tagged refs")
	}
	cases := []struct {
		name string
		ref  abi.Ref
		want abi.Tag
	}{
		{"integer", e.MakeInteger(7), abi.TagInt0},
		{"float", e.MakeFloat(1.5), abi.TagFloat},
		{"string", e.MakeString([]byte("s")), abi.TagString},
		{"symbol", e.Intern("foo"), abi.TagSymbol},
		{"cons", e.MakeTime(1, 0), abi.TagCons},
	}
	for _, tc := range cases {
		if got := abi.Tag(tc.ref) & abi.TagMask; got != tc.want {
			t.Errorf("%s: tag = %d, want %d", tc.name, got, tc.want)
		}
	}
}

func TestExtractIntegerWrongType(t *testing.T) {
	h := New()
	e := h.NewEnv()

	e.ExtractInteger(e.MakeFloat(1.5))
	exit, sym, _ := e.NonLocalExitGet()
	if exit != abi.FuncallExitSignal {
		t.Fatalf("exit = %v, want signal", exit)
	}
	if sym != h.Intern("wrong-type-argument") {
		t.Errorf("condition = %s, want wrong-type-argument", h.textOf(sym))
	}
}

func TestInvalidUTF8Signals(t *testing.T) {
	h := New()
	e := h.NewEnv()

	if ref := e.MakeString([]byte{0xff, 0xfe}); ref != 0 {
		t.Errorf("MakeString returned %v for invalid UTF-8", ref)
	}
	if e.NonLocalExitCheck() != abi.FuncallExitSignal {
		t.Fatal("expected a pending signal")
	}
	e.NonLocalExitClear()

	// The unibyte constructor takes arbitrary bytes.
	if ref := e.MakeUnibyteString([]byte{0xff, 0xfe}); ref == 0 {
		t.Error("MakeUnibyteString rejected raw bytes")
	}
	if e.NonLocalExitCheck() != abi.FuncallExitReturn {
		t.Error("unexpected pending exit")
	}
}

func TestCopyStringContentsProtocol(t *testing.T) {
	h := New()
	e := h.NewEnv()

	s := e.MakeString([]byte("ab\x00c"))
	n, ok := e.CopyStringContents(s, nil)
	if !ok || n != 5 {
		t.Fatalf("size query = (%d, %v), want (5, true)", n, ok)
	}

	short := make([]byte, n-1)
	if _, ok := e.CopyStringContents(s, short); ok {
		t.Error("short buffer accepted")
	}
	if e.NonLocalExitCheck() != abi.FuncallExitSignal {
		t.Fatal("short buffer did not signal")
	}
	e.NonLocalExitClear()

	buf := make([]byte, n)
	if _, ok := e.CopyStringContents(s, buf); !ok {
		t.Fatal("copy failed")
	}
	if string(buf) != "ab\x00c\x00" {
		t.Errorf("buf = %q", buf)
	}
}

func TestPendingExitFirstErrorWins(t *testing.T) {
	h := New()
	e := h.NewEnv()

	first := h.Intern("first-error")
	second := h.Intern("second-error")
	e.NonLocalExitSignal(first, e.MakeInteger(1))
	e.NonLocalExitSignal(second, e.MakeInteger(2))

	_, sym, _ := e.NonLocalExitGet()
	if sym != first {
		t.Error("second signal replaced the first")
	}

	// Operations while pending are no-ops returning zero values.
	if ref := e.MakeInteger(7); ref != 0 {
		t.Errorf("MakeInteger while pending = %v, want 0", ref)
	}
	if ref := e.Intern("foo"); ref != 0 {
		t.Errorf("Intern while pending = %v, want 0", ref)
	}

	e.NonLocalExitClear()
	if e.NonLocalExitCheck() != abi.FuncallExitReturn {
		t.Error("clear did not reset the pending exit")
	}
	e.NonLocalExitSignal(second, e.MakeInteger(2))
	if _, sym, _ := e.NonLocalExitGet(); sym != second {
		t.Error("signal after clear was ignored")
	}
}

func TestFuncallArity(t *testing.T) {
	h := New()
	e := h.NewEnv()

	eq := e.Intern("eq")
	one := e.MakeInteger(1)
	if ref := e.Funcall(eq, []abi.Ref{one}); ref != 0 {
		t.Errorf("under-application returned %v", ref)
	}
	exit, sym, _ := e.NonLocalExitGet()
	if exit != abi.FuncallExitSignal || sym != h.Intern("wrong-number-of-arguments") {
		t.Errorf("exit = %v sym = %s", exit, h.textOf(sym))
	}
	e.NonLocalExitClear()

	if got := e.Funcall(eq, []abi.Ref{one, one}); got != h.Intern("t") {
		t.Errorf("(eq 1 1) = %s", h.textOf(got))
	}
}

func TestVoidFunctionSignals(t *testing.T) {
	h := New()
	e := h.NewEnv()

	e.Funcall(e.Intern("no-such-function"), nil)
	exit, sym, _ := e.NonLocalExitGet()
	if exit != abi.FuncallExitSignal || sym != h.Intern("void-function") {
		t.Errorf("exit = %v sym = %s", exit, h.textOf(sym))
	}
}

func TestLengthAndEqualBuiltins(t *testing.T) {
	h := New()
	e := h.NewEnv()

	vec := e.Funcall(e.Intern("vector"), []abi.Ref{
		e.MakeInteger(1),
		e.MakeString([]byte("foo")),
		e.MakeFloat(1.2),
	})
	if n := e.ExtractInteger(e.Funcall(e.Intern("length"), []abi.Ref{vec})); n != 3 {
		t.Errorf("(length vec) = %d, want 3", n)
	}

	same := e.Funcall(e.Intern("vector"), []abi.Ref{
		e.MakeInteger(1),
		e.MakeString([]byte("foo")),
		e.MakeFloat(1.2),
	})
	if e.IsNotNil(e.Funcall(e.Intern("eq"), []abi.Ref{vec, same})) {
		t.Error("distinct vectors are eq")
	}
	if !e.IsNotNil(e.Funcall(e.Intern("equal"), []abi.Ref{vec, same})) {
		t.Error("structurally identical vectors are not equal")
	}
	if e.NonLocalExitCheck() != abi.FuncallExitReturn {
		t.Fatal("unexpected pending exit")
	}
}

func TestVectorBoundsSignal(t *testing.T) {
	h := New()
	e := h.NewEnv()

	vec := e.Funcall(e.Intern("vector"), []abi.Ref{e.MakeInteger(1)})
	e.VecGet(vec, 5)
	exit, sym, _ := e.NonLocalExitGet()
	if exit != abi.FuncallExitSignal || sym != h.Intern("args-out-of-range") {
		t.Errorf("exit = %v sym = %s", exit, h.textOf(sym))
	}
}

func TestModuleFunctionGetsFreshEnv(t *testing.T) {
	h := New()
	e := h.NewEnv()

	var seen []*abi.Env
	fn := e.MakeFunction(0, 0, func(env *abi.Env, args []abi.Ref, data any) abi.Ref {
		seen = append(seen, env)
		return env.Intern("nil")
	}, "", nil)

	e.Funcall(fn, nil)
	e.Funcall(fn, nil)
	if len(seen) != 2 {
		t.Fatalf("function ran %d times", len(seen))
	}
	if seen[0] == seen[1] || seen[0] == e {
		t.Error("invocations shared an environment table")
	}
}

func TestGlobalRefPinning(t *testing.T) {
	h := New()
	e := h.NewEnv()

	v := e.MakeString([]byte("pinned"))
	g := e.MakeGlobalRef(v)
	if h.PinCount(g) != 1 {
		t.Fatalf("pin count = %d, want 1", h.PinCount(g))
	}
	e.FreeGlobalRef(g)
	if h.PinCount(g) != 0 {
		t.Errorf("pin count after free = %d", h.PinCount(g))
	}

	e.FreeGlobalRef(g)
	if e.NonLocalExitCheck() != abi.FuncallExitSignal {
		t.Error("double free did not signal")
	}
}

func TestPipeProcessChannel(t *testing.T) {
	h := New()
	e := h.NewEnv()

	proc := e.Funcall(e.Intern("make-pipe-process"), []abi.Ref{
		e.Intern(":name"), e.MakeString([]byte("chan")),
	})
	w, ok := e.OpenChannel(proc)
	if !ok {
		t.Fatal("OpenChannel failed")
	}
	defer w.Close()

	done := make(chan string, 1)
	go func() {
		line, _ := bufio.NewReader(h.ProcessOutput(proc)).ReadString('\n')
		done <- line
	}()
	if _, err := w.WriteString("hello\n"); err != nil {
		t.Fatal(err)
	}
	if got := <-done; got != "hello\n" {
		t.Errorf("read %q", got)
	}
}

func TestMessageFormatting(t *testing.T) {
	h := New()
	e := h.NewEnv()

	e.Funcall(e.Intern("message"), []abi.Ref{
		e.MakeString([]byte("%s and %s")),
		e.MakeString([]byte("this")),
		e.MakeInteger(42),
	})
	if h.LastMessage() != "this and 42" {
		t.Errorf("message = %q", h.LastMessage())
	}
}

func TestProvideAndFeaturep(t *testing.T) {
	h := New()
	e := h.NewEnv()

	feat := e.Intern("my-feature")
	if e.IsNotNil(e.Funcall(e.Intern("featurep"), []abi.Ref{feat})) {
		t.Fatal("feature present before provide")
	}
	e.Funcall(e.Intern("provide"), []abi.Ref{feat})
	if !e.IsNotNil(e.Funcall(e.Intern("featurep"), []abi.Ref{feat})) {
		t.Error("feature absent after provide")
	}
}

func TestDefaliasChainResolves(t *testing.T) {
	h := New()
	e := h.NewEnv()

	alias := e.Intern("identity-check")
	e.Funcall(e.Intern("defalias"), []abi.Ref{alias, e.Intern("eq")})
	one := e.MakeInteger(1)
	if got := e.Funcall(alias, []abi.Ref{one, one}); got != h.Intern("t") {
		t.Errorf("aliased call = %s", h.textOf(got))
	}
}
