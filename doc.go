// Package hostbridge defines the function-table ABI between native Go code
// and an embedded Lisp-style extension runtime.
//
// The host runtime represents values opaquely, reports failures through a
// pending non-local-exit slot instead of panics, and requires every function
// crossing the boundary to return normally. This package holds only the ABI
// surface shared by both sides; the higher-level packages build on it:
//
//	hostbridge/          Root package with the Ref handle and Env table
//	├── bridge/          Safe wrappers: Env, Value, trampolines, registry
//	├── result/          Result[T, E] container used for fallible calls
//	├── emulator/        Reference in-process host used by tests and tools
//	└── cmd/bridgerepl/  Demo tool for browsing and calling exported functions
//
// # ABI Versioning
//
// Both Runtime and Env begin with a Size field. Sizes only grow between host
// releases; a module built against a newer table than the host provides must
// refuse to load. bridge.Init performs that check and returns the load status
// the host expects (0 success, 1 runtime too old, 2 environment too old).
//
// # Lifetime Rules
//
// A Ref is only meaningful while the Env it was obtained from is active, that
// is, for the dynamic extent of one call across the boundary. Refs must not
// be stored beyond that extent; use a global reference for values that have
// to survive. The Env table itself is owned by the host and must never be
// used from more than one goroutine. The single exception is the descriptor
// returned by OpenChannel, which stays usable from any goroutine.
package hostbridge
