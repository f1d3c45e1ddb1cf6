package emulator

import (
	"os"

	abi "github.com/wippyai/hostbridge"
)

// NewEnv builds an environment table backed by this host. Every operation
// honors the pending-exit protocol: while an exit is pending it does nothing
// and returns a zero value, except for the non-local-exit group itself.
func (h *Host) NewEnv() *abi.Env {
	e := &abi.Env{
		Size:       abi.EnvSize(),
		TaggedRefs: true,
		Data:       h,
	}

	e.Intern = func(name string) abi.Ref {
		if h.pendingP() {
			return 0
		}
		return h.intern(name)
	}
	e.TypeOf = func(v abi.Ref) abi.Ref {
		if h.pendingP() {
			return 0
		}
		return h.intern(h.typeName(v))
	}
	e.IsNotNil = func(v abi.Ref) bool {
		if h.pendingP() {
			return false
		}
		return v != h.nilRef
	}
	e.Eq = func(a, b abi.Ref) bool {
		if h.pendingP() {
			return false
		}
		return a == b
	}

	e.MakeInteger = func(v int64) abi.Ref {
		if h.pendingP() {
			return 0
		}
		return fixnum(v)
	}
	e.ExtractInteger = func(v abi.Ref) int64 {
		if h.pendingP() {
			return 0
		}
		if !isFixnum(v) {
			h.signal("wrong-type-argument", h.intern("integerp"), v)
			return 0
		}
		return fixnumValue(v)
	}
	e.MakeFloat = func(v float64) abi.Ref {
		if h.pendingP() {
			return 0
		}
		return h.makeFloat(v)
	}
	e.ExtractFloat = func(v abi.Ref) float64 {
		if h.pendingP() {
			return 0
		}
		if isFixnum(v) {
			return float64(fixnumValue(v))
		}
		if o := h.objectOf(v); o != nil && o.kind == objFloat {
			return o.f
		}
		h.signal("wrong-type-argument", h.intern("numberp"), v)
		return 0
	}

	e.MakeString = func(s []byte) abi.Ref {
		if h.pendingP() {
			return 0
		}
		return h.makeString(s, true)
	}
	e.MakeUnibyteString = func(s []byte) abi.Ref {
		if h.pendingP() {
			return 0
		}
		return h.makeString(s, false)
	}
	e.CopyStringContents = func(v abi.Ref, buf []byte) (int, bool) {
		if h.pendingP() {
			return 0, false
		}
		o := h.objectOf(v)
		if o == nil || o.kind != objString {
			h.signal("wrong-type-argument", h.intern("stringp"), v)
			return 0, false
		}
		need := len(o.str) + 1
		if buf == nil {
			return need, true
		}
		if len(buf) < need {
			h.signal("args-out-of-range", v, fixnum(int64(len(buf))))
			return 0, false
		}
		copy(buf, o.str)
		buf[len(o.str)] = 0
		return need, true
	}

	e.MakeTime = func(sec, nsec int64) abi.Ref {
		if h.pendingP() {
			return 0
		}
		// (TICKS . HZ) at nanosecond resolution.
		return h.cons(fixnum(sec*1e9+nsec), fixnum(1e9))
	}
	e.ExtractTime = func(v abi.Ref) (int64, int64) {
		if h.pendingP() {
			return 0, 0
		}
		if isFixnum(v) {
			return fixnumValue(v), 0
		}
		if o := h.objectOf(v); o != nil && o.kind == objCons && isFixnum(o.car) && isFixnum(o.cdr) {
			ticks, hz := fixnumValue(o.car), fixnumValue(o.cdr)
			if hz > 0 {
				ns := ticks * (1e9 / hz)
				return ns / 1e9, ns % 1e9
			}
		}
		h.signal("wrong-type-argument", h.intern("timestampp"), v)
		return 0, 0
	}

	e.MakeUserPtr = func(fin func(any), p any) abi.Ref {
		if h.pendingP() {
			return 0
		}
		return h.alloc(object{kind: objUserPtr, ptr: p, fin: fin})
	}
	e.GetUserPtr = func(v abi.Ref) any {
		if h.pendingP() {
			return nil
		}
		if o := h.objectOf(v); o != nil && o.kind == objUserPtr {
			return o.ptr
		}
		h.signal("wrong-type-argument", h.intern("user-ptrp"), v)
		return nil
	}
	e.SetUserPtr = func(v abi.Ref, p any) {
		if h.pendingP() {
			return
		}
		if o := h.objectOf(v); o != nil && o.kind == objUserPtr {
			o.ptr = p
			return
		}
		h.signal("wrong-type-argument", h.intern("user-ptrp"), v)
	}
	e.GetUserFinalizer = func(v abi.Ref) func(any) {
		if h.pendingP() {
			return nil
		}
		if o := h.objectOf(v); o != nil && o.kind == objUserPtr {
			return o.fin
		}
		h.signal("wrong-type-argument", h.intern("user-ptrp"), v)
		return nil
	}
	e.SetUserFinalizer = func(v abi.Ref, fin func(any)) {
		if h.pendingP() {
			return
		}
		if o := h.objectOf(v); o != nil && o.kind == objUserPtr {
			o.fin = fin
			return
		}
		h.signal("wrong-type-argument", h.intern("user-ptrp"), v)
	}

	e.MakeFunction = func(minArity, maxArity int, fn abi.Func, doc string, data any) abi.Ref {
		if h.pendingP() {
			return 0
		}
		return h.alloc(object{kind: objFunc, fn: &function{
			minArity: minArity,
			maxArity: maxArity,
			doc:      doc,
			mod:      fn,
			data:     data,
		}})
	}
	e.MakeInteractive = func(fn abi.Ref, spec abi.Ref) {
		if h.pendingP() {
			return
		}
		o := h.objectOf(fn)
		if o == nil || o.kind != objFunc || o.fn.mod == nil {
			h.signal("wrong-type-argument", h.intern("module-function-p"), fn)
			return
		}
		o.fn.spec = spec
	}
	e.Funcall = func(fn abi.Ref, args []abi.Ref) abi.Ref {
		return h.funcall(fn, args)
	}

	e.VecSize = func(v abi.Ref) int {
		if h.pendingP() {
			return 0
		}
		if o := h.objectOf(v); o != nil && o.kind == objVector {
			return len(o.vec)
		}
		h.signal("wrong-type-argument", h.intern("vectorp"), v)
		return 0
	}
	e.VecGet = func(v abi.Ref, i int) abi.Ref {
		if h.pendingP() {
			return 0
		}
		o := h.objectOf(v)
		if o == nil || o.kind != objVector {
			h.signal("wrong-type-argument", h.intern("vectorp"), v)
			return 0
		}
		if i < 0 || i >= len(o.vec) {
			h.signal("args-out-of-range", v, fixnum(int64(i)))
			return 0
		}
		return o.vec[i]
	}
	e.VecSet = func(v abi.Ref, i int, elem abi.Ref) {
		if h.pendingP() {
			return
		}
		o := h.objectOf(v)
		if o == nil || o.kind != objVector {
			h.signal("wrong-type-argument", h.intern("vectorp"), v)
			return
		}
		if i < 0 || i >= len(o.vec) {
			h.signal("args-out-of-range", v, fixnum(int64(i)))
			return
		}
		o.vec[i] = elem
	}

	e.NonLocalExitCheck = func() abi.FuncallExit {
		return h.pending.exit
	}
	e.NonLocalExitGet = func() (abi.FuncallExit, abi.Ref, abi.Ref) {
		return h.pending.exit, h.pending.sym, h.pending.data
	}
	e.NonLocalExitSignal = func(symbol, data abi.Ref) {
		if h.pendingP() {
			return
		}
		h.pending = pendingExit{exit: abi.FuncallExitSignal, sym: symbol, data: data}
	}
	e.NonLocalExitThrow = func(tag, value abi.Ref) {
		h.throwTo(tag, value)
	}
	e.NonLocalExitClear = func() {
		h.pending = pendingExit{}
	}

	e.MakeGlobalRef = func(v abi.Ref) abi.Ref {
		if h.pendingP() {
			return 0
		}
		h.globals[v]++
		return v
	}
	e.FreeGlobalRef = func(v abi.Ref) {
		if h.pendingP() {
			return
		}
		if h.globals[v] == 0 {
			h.signal("error", h.makeString([]byte("free of unpinned global reference"), true))
			return
		}
		h.globals[v]--
		if h.globals[v] == 0 {
			delete(h.globals, v)
		}
	}

	e.ShouldQuit = func() bool {
		return h.quit
	}
	e.ProcessInput = func() abi.ProcessInputResult {
		if h.quit {
			return abi.ProcessInputQuit
		}
		if h.processInput != nil {
			return h.processInput()
		}
		return abi.ProcessInputContinue
	}

	e.OpenChannel = func(process abi.Ref) (*os.File, bool) {
		if h.pendingP() {
			return nil, false
		}
		o := h.objectOf(process)
		if o == nil || o.kind != objProcess {
			h.signal("wrong-type-argument", h.intern("processp"), process)
			return nil, false
		}
		return o.proc.w, true
	}

	return e
}
