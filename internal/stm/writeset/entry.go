package writeset

import "github.com/kolkov/gostm/internal/stm/rawmem"

// Entry is one buffered speculative write: a word address and the value
// destined for it at commit. Entries live in the dense array of exactly one
// WriteSet and are never shared across attempts.
//
// This is the word-granular entry kind: coalescing a repeated write to the
// same address overwrites Val wholesale. A byte-granular kind (tracking a
// valid-byte mask per entry) would share the same insert/find/validate/
// writeback contract; only this kind is implemented.
type Entry struct {
	Addr uintptr
	Val  uint64
}

// update coalesces a later write to the same address into this entry.
// Last write wins. If the surrounding program has an internal data race this
// is observable as write reordering, which is acceptable: the structure only
// guarantees correctness for race-free transactional code.
func (e *Entry) update(val uint64) {
	e.Val = val
}

// validate reports whether live memory still holds the value this entry
// buffered. A mismatch means some other party modified the word since it was
// logged, so the attempt's view is stale.
func (e *Entry) validate() bool {
	return rawmem.ReadWord(e.Addr) == e.Val
}

// writeback applies the buffered value to live memory. Called only during
// commit, under the runtime's commit ordering.
func (e *Entry) writeback() {
	rawmem.WriteWord(e.Addr, e.Val)
}
