// Package emulator provides an in-process host implementing the hostbridge
// ABI tables. It exists so bridge code and module functions can be exercised
// without a real embedding host: refs are LSB-tagged the way a tagging host
// lays them out, the pending-exit protocol is enforced on every operation,
// and a small set of builtins (list, vector, length, equal, defalias,
// provide, message, make-pipe-process and friends) covers what the bridge
// layer itself calls.
//
// A Host is single-goroutine, like the real thing; only descriptors obtained
// through OpenChannel may be used concurrently.
package emulator
