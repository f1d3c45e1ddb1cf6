package bridge

import (
	abi "github.com/wippyai/hostbridge"
)

// GlobalRef pins a host value beyond the extent of any single Env. It carries
// no Env of its own: bind it to the current one before use, and release it
// exactly once with Free. A GlobalRef is safe to store across calls but, like
// everything else, may only be touched from the host's thread.
type GlobalRef struct {
	ref abi.Ref
}

// Raw returns the underlying handle.
func (g GlobalRef) Raw() abi.Ref { return g.ref }

// Bind attaches the pinned value to the given call context.
func (g GlobalRef) Bind(e *Env) Value {
	return Value{ref: g.ref, env: e}
}

// Free releases the pin. The GlobalRef must not be used afterwards.
func (g GlobalRef) Free(e *Env) {
	e.tab.FreeGlobalRef(g.ref)
}
