// Package rawmem is the narrow unsafe boundary between the STM runtime and
// live process memory.
//
// Every speculative read, validation probe, and commit-time writeback
// ultimately lands here. The rest of the runtime (hashing, indexing,
// coalescing, the attempt state machine) never touches unsafe directly;
// keeping raw access behind these three functions keeps the unsafe surface
// auditable.
//
// Addresses are uintptr word addresses supplied by the caller. The caller
// guarantees that each address stays valid and reachable for the lifetime of
// the transaction attempt that logged it. In practice that means heap or
// package-level words obtained through AddrOf; goroutine stack words are not
// safe because the runtime may move stacks.
package rawmem

import "unsafe"

// ReadWord loads the 64-bit word at addr from live memory.
//
// This is an ordinary, non-atomic load. Any cross-thread ordering the caller
// needs (e.g. relative to a committing writer) must be established by the
// enclosing commit protocol, not here.
//
//go:nosplit
func ReadWord(addr uintptr) uint64 {
	return *(*uint64)(unsafe.Pointer(addr))
}

// WriteWord stores val to the 64-bit word at addr in live memory.
//
// Like ReadWord, this is a plain store. It is only safe to call while the
// enclosing runtime holds whatever commit ordering it relies on.
//
//go:nosplit
func WriteWord(addr uintptr, val uint64) {
	*(*uint64)(unsafe.Pointer(addr)) = val
}

// AddrOf returns the word address of a caller-owned uint64.
//
// The returned value is only meaningful while p remains reachable; callers
// keep the containing object alive for at least the duration of the attempt.
//
// Example:
//
//	var balance uint64
//	addr := rawmem.AddrOf(&balance)
//	v := rawmem.ReadWord(addr) // == balance
//
//go:nosplit
func AddrOf(p *uint64) uintptr {
	return uintptr(unsafe.Pointer(p))
}
