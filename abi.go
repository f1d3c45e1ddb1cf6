package hostbridge

import (
	"os"
	"unsafe"
)

// Ref is an opaque handle to a host-owned value. The zero Ref is the null
// sentinel returned by failed callbacks; it never names a live value.
type Ref uintptr

// Variadic is the max-arity marker for functions accepting an unbounded
// number of arguments.
const Variadic = -1

// FuncallExit reports how the last host operation on an Env finished.
type FuncallExit int

const (
	// FuncallExitReturn means the operation returned normally.
	FuncallExitReturn FuncallExit = 0
	// FuncallExitSignal means a named condition was raised.
	FuncallExitSignal FuncallExit = 1
	// FuncallExitThrow means a tagged non-local jump was requested.
	FuncallExitThrow FuncallExit = 2
)

func (e FuncallExit) String() string {
	switch e {
	case FuncallExitReturn:
		return "return"
	case FuncallExitSignal:
		return "signal"
	case FuncallExitThrow:
		return "throw"
	}
	return "unknown"
}

// ProcessInputResult is returned by Env.ProcessInput.
type ProcessInputResult int

const (
	// ProcessInputContinue means module code may keep running.
	ProcessInputContinue ProcessInputResult = 0
	// ProcessInputQuit means module code should return to the host promptly.
	ProcessInputQuit ProcessInputResult = 1
)

// Tag is the raw representation tag stored in the low bits of a Ref on hosts
// that use LSB tagging. Reading it is an unofficial fast path: the layout is
// host-version dependent and only valid when Env.TaggedRefs is true.
type Tag uintptr

const (
	TagSymbol     Tag = 0
	TagUnused     Tag = 1
	TagInt0       Tag = 2
	TagCons       Tag = 3
	TagString     Tag = 4
	TagVectorLike Tag = 5
	TagInt1       Tag = 6
	TagFloat      Tag = 7

	// TagBits is the number of low bits a tagged Ref reserves for the tag.
	TagBits = 3
	// TagMask extracts the tag from a tagged Ref.
	TagMask = 1<<TagBits - 1
)

// Func is the fixed callback shape through which the host invokes module
// functions. Implementations must never panic across this boundary; doing so
// is undefined behavior in the host. Failures are reported by setting the
// pending non-local exit on env and returning the zero Ref.
type Func func(env *Env, args []Ref, data any) Ref

// Env is the host environment function table. The host supplies one for the
// dynamic extent of a single call across the boundary.
//
// Every operation other than the non-local-exit group participates in the
// pending-error protocol: while an exit is pending the operation does nothing
// and its return value is unspecified. Callers must consult
// NonLocalExitCheck before trusting any result.
type Env struct {
	// Size is the size of the table the host was built with. It grows
	// monotonically between host releases.
	Size uintptr

	// TaggedRefs reports whether Refs carry LSB type tags that Tag can
	// decode. Bridges must fall back to TypeOf when false.
	TaggedRefs bool

	// Private host state. Opaque to the module.
	Data any

	Intern   func(name string) Ref
	TypeOf   func(v Ref) Ref
	IsNotNil func(v Ref) bool
	Eq       func(a, b Ref) bool

	MakeInteger    func(v int64) Ref
	ExtractInteger func(v Ref) int64
	MakeFloat      func(v float64) Ref
	ExtractFloat   func(v Ref) float64

	// MakeString creates a multibyte string and requires valid UTF-8;
	// MakeUnibyteString accepts arbitrary bytes.
	MakeString        func(s []byte) Ref
	MakeUnibyteString func(s []byte) Ref

	// CopyStringContents implements the two-pass extraction protocol. With a
	// nil buf it returns the required buffer size including the trailing NUL
	// byte. With a buffer of at least that size it copies the contents plus
	// the terminator and returns the same size. A short buffer or a
	// non-string value raises a condition and returns ok=false.
	CopyStringContents func(v Ref, buf []byte) (n int, ok bool)

	// MakeTime builds a host timestamp from seconds and nanoseconds;
	// ExtractTime is its inverse.
	MakeTime    func(sec, nsec int64) Ref
	ExtractTime func(v Ref) (sec, nsec int64)

	MakeUserPtr      func(fin func(any), p any) Ref
	GetUserPtr       func(v Ref) any
	SetUserPtr       func(v Ref, p any)
	GetUserFinalizer func(v Ref) func(any)
	SetUserFinalizer func(v Ref, fin func(any))

	MakeFunction    func(minArity, maxArity int, fn Func, doc string, data any) Ref
	MakeInteractive func(fn Ref, spec Ref)
	Funcall         func(fn Ref, args []Ref) Ref

	VecSize func(v Ref) int
	VecGet  func(v Ref, i int) Ref
	VecSet  func(v Ref, i int, elem Ref)

	// Non-local exit management. These are the only operations that run
	// normally while an exit is pending. Signal and Throw are no-ops when an
	// exit is already pending: the first error wins until an explicit Clear.
	NonLocalExitCheck  func() FuncallExit
	NonLocalExitGet    func() (exit FuncallExit, symbol, data Ref)
	NonLocalExitSignal func(symbol, data Ref)
	NonLocalExitThrow  func(tag, value Ref)
	NonLocalExitClear  func()

	// MakeGlobalRef pins a value beyond the extent of this Env. The result
	// must be released exactly once with FreeGlobalRef.
	MakeGlobalRef func(v Ref) Ref
	FreeGlobalRef func(v Ref)

	// ShouldQuit reports that the user asked the host to interrupt;
	// ProcessInput additionally lets the host handle pending input. Long
	// loops are expected to poll one of them and return promptly.
	ShouldQuit   func() bool
	ProcessInput func() ProcessInputResult

	// OpenChannel returns a descriptor tied to a pipe-like host object. It is
	// the only handle usable from other goroutines without an active Env;
	// closing it is the caller's job.
	OpenChannel func(process Ref) (*os.File, bool)
}

// Runtime is the bootstrap table handed to the module entry point.
type Runtime struct {
	Size           uintptr
	GetEnvironment func() *Env
}

// RuntimeSize returns the runtime table size this module was built against.
func RuntimeSize() uintptr { return unsafe.Sizeof(Runtime{}) }

// EnvSize returns the environment table size this module was built against.
func EnvSize() uintptr { return unsafe.Sizeof(Env{}) }
