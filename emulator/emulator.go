package emulator

import (
	"os"
	"unicode/utf8"

	abi "github.com/wippyai/hostbridge"
	"go.uber.org/zap"
)

type objKind int

const (
	objNone objKind = iota
	objSymbol
	objString
	objCons
	objVector
	objFloat
	objUserPtr
	objFunc
	objProcess
)

type symbol struct {
	name  string
	value abi.Ref // 0 = unbound
	fn    abi.Ref // 0 = void function cell
}

type function struct {
	minArity int
	maxArity int
	doc      string
	spec     abi.Ref // interactive specification, 0 when absent
	builtin  func(h *Host, args []abi.Ref) abi.Ref
	mod      abi.Func
	data     any
}

type pipeProcess struct {
	name string
	r    *os.File
	w    *os.File
}

type object struct {
	kind objKind

	sym       *symbol
	str       []byte
	multibyte bool
	car, cdr  abi.Ref
	vec       []abi.Ref
	f         float64
	ptr       any
	fin       func(any)
	fn        *function
	proc      *pipeProcess
}

type pendingExit struct {
	exit abi.FuncallExit
	sym  abi.Ref
	data abi.Ref
}

// Host is an in-process implementation of the ABI a real embedding host
// supplies. The zero Host is not usable; construct one with New.
//
// Heap refs are LSB-tagged: fixnums carry their value shifted past the tag
// bits, everything else is a heap index with the tag of its representation.
// Slot zero of the heap is reserved so no live value collides with the null
// sentinel.
type Host struct {
	objs     []object
	symbols  map[string]abi.Ref
	features map[string]bool
	globals  map[abi.Ref]int

	pending pendingExit

	nilRef abi.Ref
	tRef   abi.Ref

	quit         bool
	processInput func() abi.ProcessInputResult

	lastMessage string
}

// New constructs a Host with the builtin functions installed.
func New() *Host {
	h := &Host{
		objs:     make([]object, 1), // slot 0 reserved
		symbols:  make(map[string]abi.Ref),
		features: make(map[string]bool),
		globals:  make(map[abi.Ref]int),
	}
	h.nilRef = h.intern("nil")
	h.tRef = h.intern("t")
	h.symbolOf(h.nilRef).value = h.nilRef
	h.symbolOf(h.tRef).value = h.tRef
	h.installBuiltins()
	return h
}

// Runtime returns the bootstrap table a module entry point receives.
func (h *Host) Runtime() *abi.Runtime {
	return &abi.Runtime{
		Size:           abi.RuntimeSize(),
		GetEnvironment: h.NewEnv,
	}
}

// ref encoding

func fixnum(v int64) abi.Ref {
	return abi.Ref(uintptr(v)<<abi.TagBits) | abi.Ref(abi.TagInt0)
}

func fixnumValue(r abi.Ref) int64 {
	return int64(uintptr(r)) >> abi.TagBits
}

func isFixnum(r abi.Ref) bool {
	t := abi.Tag(r) & abi.TagMask
	return t == abi.TagInt0 || t == abi.TagInt1
}

func tagFor(k objKind) abi.Tag {
	switch k {
	case objSymbol:
		return abi.TagSymbol
	case objString:
		return abi.TagString
	case objCons:
		return abi.TagCons
	case objFloat:
		return abi.TagFloat
	}
	return abi.TagVectorLike
}

func (h *Host) alloc(o object) abi.Ref {
	idx := uintptr(len(h.objs))
	h.objs = append(h.objs, o)
	return abi.Ref(idx<<abi.TagBits) | abi.Ref(tagFor(o.kind))
}

// objectOf returns the heap object behind r, or nil for fixnums and garbage.
func (h *Host) objectOf(r abi.Ref) *object {
	if isFixnum(r) {
		return nil
	}
	idx := int(uintptr(r) >> abi.TagBits)
	if idx <= 0 || idx >= len(h.objs) {
		return nil
	}
	return &h.objs[idx]
}

func (h *Host) kindOf(r abi.Ref) objKind {
	if isFixnum(r) {
		return objNone
	}
	if o := h.objectOf(r); o != nil {
		return o.kind
	}
	return objNone
}

func (h *Host) symbolOf(r abi.Ref) *symbol {
	if o := h.objectOf(r); o != nil && o.kind == objSymbol {
		return o.sym
	}
	return nil
}

// pending-exit protocol

func (h *Host) pendingP() bool {
	return h.pending.exit != abi.FuncallExitReturn
}

// signal sets the pending exit to a raised condition. A no-op while another
// exit is pending: the first error wins.
func (h *Host) signal(cond string, data ...abi.Ref) {
	if h.pendingP() {
		return
	}
	sym := h.intern(cond)
	h.pending = pendingExit{exit: abi.FuncallExitSignal, sym: sym, data: h.listOf(data)}
	Logger().Debug("condition signaled", zap.String("condition", cond))
}

func (h *Host) throwTo(tag, value abi.Ref) {
	if h.pendingP() {
		return
	}
	h.pending = pendingExit{exit: abi.FuncallExitThrow, sym: tag, data: value}
}

// interning and construction

func (h *Host) intern(name string) abi.Ref {
	if r, ok := h.symbols[name]; ok {
		return r
	}
	r := h.alloc(object{kind: objSymbol, sym: &symbol{name: name}})
	h.symbols[name] = r
	return r
}

func (h *Host) makeString(b []byte, multibyte bool) abi.Ref {
	if multibyte && !utf8.Valid(b) {
		h.signal("wrong-type-argument", h.intern("utf8-string-p"), h.alloc(object{
			kind: objString,
			str:  append([]byte(nil), b...),
		}))
		return 0
	}
	return h.alloc(object{kind: objString, str: append([]byte(nil), b...), multibyte: multibyte})
}

func (h *Host) cons(car, cdr abi.Ref) abi.Ref {
	return h.alloc(object{kind: objCons, car: car, cdr: cdr})
}

func (h *Host) listOf(elems []abi.Ref) abi.Ref {
	out := h.nilRef
	for i := len(elems) - 1; i >= 0; i-- {
		out = h.cons(elems[i], out)
	}
	return out
}

func (h *Host) makeFloat(v float64) abi.Ref {
	return h.alloc(object{kind: objFloat, f: v})
}

// function resolution and calling

// resolveFunction follows symbol function cells, including short alias
// chains, down to a function object.
func (h *Host) resolveFunction(fn abi.Ref) *function {
	for i := 0; i < 16; i++ {
		o := h.objectOf(fn)
		if o == nil {
			return nil
		}
		switch o.kind {
		case objFunc:
			return o.fn
		case objSymbol:
			if o.sym.fn == 0 {
				return nil
			}
			fn = o.sym.fn
		default:
			return nil
		}
	}
	return nil
}

func (h *Host) funcall(fn abi.Ref, args []abi.Ref) abi.Ref {
	if h.pendingP() {
		return 0
	}
	f := h.resolveFunction(fn)
	if f == nil {
		h.signal("void-function", fn)
		return 0
	}
	n := len(args)
	if n < f.minArity || (f.maxArity != abi.Variadic && n > f.maxArity) {
		h.signal("wrong-number-of-arguments", fn, fixnum(int64(n)))
		return 0
	}
	if f.builtin != nil {
		ret := f.builtin(h, args)
		if h.pendingP() {
			return 0
		}
		return ret
	}
	// Module functions run against a fresh environment per invocation.
	ret := f.mod(h.NewEnv(), args, f.data)
	if h.pendingP() {
		return 0
	}
	return ret
}

// test and tooling hooks

// SetQuit controls what ShouldQuit reports to module code.
func (h *Host) SetQuit(quit bool) { h.quit = quit }

// SetProcessInput overrides the ProcessInput behavior; nil restores the
// default, which reports Continue.
func (h *Host) SetProcessInput(f func() abi.ProcessInputResult) { h.processInput = f }

// LastMessage returns the text of the most recent message builtin call.
func (h *Host) LastMessage() string { return h.lastMessage }

// PinCount returns how often r is currently pinned by global references.
func (h *Host) PinCount(r abi.Ref) int { return h.globals[r] }

// ProcessOutput returns the read side of a pipe process created with
// make-pipe-process: everything module code writes to the descriptor from
// OpenChannel is readable here.
func (h *Host) ProcessOutput(r abi.Ref) *os.File {
	if o := h.objectOf(r); o != nil && o.kind == objProcess {
		return o.proc.r
	}
	return nil
}

// Funcall invokes a function from host level, like evaluated user code
// would. It returns the result and how the call exited; a non-Return exit is
// consumed.
func (h *Host) Funcall(fn abi.Ref, args []abi.Ref) (abi.Ref, abi.FuncallExit) {
	ret := h.funcall(fn, args)
	exit := h.pending.exit
	h.pending = pendingExit{}
	return ret, exit
}

// Intern exposes interning at host level for tests and tooling.
func (h *Host) Intern(name string) abi.Ref { return h.intern(name) }
