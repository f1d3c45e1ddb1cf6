// Package bridge provides the safe, typed layer over the hostbridge ABI.
//
// The host reports failures through a pending non-local-exit slot rather than
// panics, and every callback crossing the boundary must return normally. This
// package enforces both rules: each host operation is followed by a pending
// check whose outcome is threaded through result.Result values, and every
// ABI-facing entry point runs behind a recover barrier that translates panics
// into host conditions.
//
// # Strategies
//
// Module functions are exported through one of three adaptation strategies,
// chosen at registration time:
//
//   - RegisterRaw: the function already matches the ABI callback shape.
//   - RegisterWrapped: func(*Env, []Value) ValueResult; arguments are wrapped
//     and the error branch is reported into the pending slot.
//   - Register: a fully typed Go signature func(*Env, T1, ..., Tn) R; the
//     arity is derived from the signature and arguments are marshaled through
//     typed extraction.
//
// Registrations happen as package initialization side effects:
//
//	var _ = bridge.Register("my-add", func(e *bridge.Env, a, b int64) int64 {
//		return a + b
//	}, "Add two integers.")
//
// and are drained exactly once by Init, which the module entry point calls
// with the runtime table supplied by the host.
package bridge
