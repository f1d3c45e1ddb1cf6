package bridge

import (
	"fmt"
	"sync"

	abi "github.com/wippyai/hostbridge"
	"go.uber.org/zap"
)

// Defun is one pending export: a named host function waiting to be defined
// when the host hands over its runtime table.
type Defun struct {
	name     string
	doc      string
	minArity int
	maxArity int
	fn       abi.Func
	data     any
}

// Name returns the symbol the function will be bound to.
func (d Defun) Name() string { return d.name }

// Doc returns the documentation string.
func (d Defun) Doc() string { return d.doc }

// Arity returns the accepted argument range. Max is abi.Variadic for
// unbounded functions.
func (d Defun) Arity() (min, max int) { return d.minArity, d.maxArity }

// Registry collects exports between package initialization and module
// initialization. Registration happens from init functions and variable
// initializers, which the runtime serializes, but Registry locks anyway so
// tests can drive it concurrently.
type Registry struct {
	mu     sync.Mutex
	defuns []Defun
}

// Add queues one export.
func (r *Registry) Add(d Defun) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.defuns = append(r.defuns, d)
}

// Exports returns a snapshot of the queued exports in registration order.
func (r *Registry) Exports() []Defun {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Defun, len(r.defuns))
	copy(out, r.defuns)
	return out
}

// Clear drops all queued exports.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.defuns = nil
}

// Define creates and binds every queued export in registration order,
// stopping at the first failure. The queue is not consumed; Define may run
// against more than one host.
func (r *Registry) Define(e *Env) *Error {
	log := Logger()
	for _, d := range r.Exports() {
		fn := e.MakeFunction(d.minArity, d.maxArity, d.fn, d.doc, d.data)
		if fn.HasError() {
			return fn.Err()
		}
		if res := e.DefAlias(d.name, fn.Value()); res.HasError() {
			return res.Err()
		}
		log.Debug("defined module function",
			zap.String("name", d.name),
			zap.Int("min_arity", d.minArity),
			zap.Int("max_arity", d.maxArity))
	}
	return nil
}

var defaultRegistry Registry

// DefaultRegistry returns the registry drained by Init.
func DefaultRegistry() *Registry { return &defaultRegistry }

// RegisterRaw queues an export whose implementation already matches the ABI
// callback shape. data is passed back to fn on every invocation.
func RegisterRaw(name string, minArity, maxArity int, fn abi.Func, doc string, data any) Defun {
	d := Defun{name: name, doc: doc, minArity: minArity, maxArity: maxArity, fn: fn, data: data}
	defaultRegistry.Add(d)
	return d
}

// RegisterWrapped queues an export in wrapped form.
func RegisterWrapped(name string, minArity, maxArity int, fn WrappedFunc, doc string) Defun {
	d := Defun{name: name, doc: doc, minArity: minArity, maxArity: maxArity, fn: wrappedTrampoline(fn)}
	defaultRegistry.Add(d)
	return d
}

// Register queues a fully typed export, deriving the exact arity from the
// signature. It panics on an unsupported signature: registration runs at
// package initialization, where a bad export is a build defect and must not
// be deferred to runtime.
func Register(name string, fn any, doc string) Defun {
	tramp, arity, err := universalTrampoline(fn)
	if err != nil {
		panic(fmt.Sprintf("bridge: register %q: %v", name, err))
	}
	d := Defun{name: name, doc: doc, minArity: arity, maxArity: arity, fn: tramp}
	defaultRegistry.Add(d)
	return d
}

// Init statuses returned to the host loader. Anything non-zero makes the
// host refuse the module.
const (
	InitOK              = 0
	InitRuntimeTooSmall = 1
	InitEnvTooSmall     = 2
	InitDefineFailed    = 3
)

// Init is the module entry point body: it verifies the host is at least as
// new as the tables this module was compiled against, defines every queued
// export, and announces feature. Size checks run before anything touches the
// tables, since a smaller table means the fields this build expects may not
// exist.
func Init(rt *abi.Runtime, feature string) int {
	log := Logger()
	if rt.Size < abi.RuntimeSize() {
		log.Error("host runtime table too small",
			zap.Uintptr("host_size", rt.Size),
			zap.Uintptr("required", abi.RuntimeSize()))
		return InitRuntimeTooSmall
	}
	tab := rt.GetEnvironment()
	if tab.Size < abi.EnvSize() {
		log.Error("host environment table too small",
			zap.Uintptr("host_size", tab.Size),
			zap.Uintptr("required", abi.EnvSize()))
		return InitEnvTooSmall
	}

	e := New(tab)
	if err := defaultRegistry.Define(e); err != nil {
		log.Error("defining module functions failed", zap.String("error", err.Error()))
		return InitDefineFailed
	}
	if res := e.Provide(feature); res.HasError() {
		log.Error("providing feature failed", zap.String("feature", feature))
		return InitDefineFailed
	}
	log.Debug("module initialized",
		zap.String("feature", feature),
		zap.Int("exports", len(defaultRegistry.Exports())))
	return InitOK
}
