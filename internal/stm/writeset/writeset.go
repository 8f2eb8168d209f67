package writeset

import "math/bits"

// hashMultiplier is the fixed odd multiplicative-hash constant from CLRS
// (2^32 / golden ratio). Multiplying and keeping the high-order bits of the
// low 32-bit half spreads the small, aligned integers that word addresses
// tend to be.
const hashMultiplier = 2654435769

// indexSlot is one slot of the sparse index. A slot is empty iff stamp
// differs from the owning WriteSet's current generation; when occupied it
// references the dense-array position holding the entry for addr.
type indexSlot struct {
	stamp uint64
	addr  uintptr
	pos   uint32
}

// WriteSet is the per-attempt write buffer. See the package documentation
// for the structural overview and ownership rules.
//
// Invariants maintained across every operation:
//
//   - every slot stamped with the current generation references a dense
//     position whose entry address equals the slot address;
//   - at most one index-visible entry exists per distinct address;
//   - the index length is a power of two, and any length change fully
//     rehashes all visible entries;
//   - immediately after any Insert, visible entries * 3 < index length.
type WriteSet struct {
	slots []indexSlot // sparse index, length always a power of two
	shift uint32      // 32 - log2(len(slots)), for the multiplicative hash
	stamp uint64      // current generation; starts at 1 so zeroed slots read empty

	list []Entry // dense array; list[:size] are this attempt's entries
	size int
}

// nextPow2 returns the smallest power of two >= n (and at least 4, the
// smallest index worth probing).
func nextPow2(n int) int {
	s := 4
	for s < n {
		s <<= 1
	}
	return s
}

// New constructs a WriteSet sized for roughly capacityHint buffered writes.
// The hint bounds neither structure: the dense array doubles when full and
// the index doubles when the load factor reaches 1/3. Allocation happens
// once here and on growth; Reset never frees, so a long-lived WriteSet
// reuses the same storage across every attempt.
func New(capacityHint int) *WriteSet {
	if capacityHint < 1 {
		capacityHint = 1
	}
	ilen := nextPow2(3 * capacityHint)
	return &WriteSet{
		slots: make([]indexSlot, ilen),
		shift: 32 - uint32(bits.TrailingZeros(uint(ilen))),
		stamp: 1,
		list:  make([]Entry, capacityHint),
	}
}

// hash maps an address to its home slot in the current index.
//
//go:nosplit
func (w *WriteSet) hash(addr uintptr) uint32 {
	return uint32((uint64(addr)*hashMultiplier)&0xFFFFFFFF) >> w.shift
}

// Insert buffers a speculative write of val to addr.
//
// Returns true if the write coalesced into an existing entry for addr
// (last write wins, position unchanged) and false if a new entry was
// appended. After a new entry the dense array grows if it just filled, and
// the index rebuilds into a doubled table if the load factor reached 1/3 -
// the two triggers are independent. Amortized O(1).
func (w *WriteSet) Insert(addr uintptr, val uint64) bool {
	mask := uint32(len(w.slots) - 1)
	h := w.hash(addr)

	// Probe for addr. The load-factor bound guarantees an empty slot exists,
	// so the walk terminates.
	for w.slots[h].stamp == w.stamp {
		if w.slots[h].addr != addr {
			h = (h + 1) & mask
			continue
		}
		// Existing entry for this word: coalesce.
		w.list[w.slots[h].pos].update(val)
		return true
	}

	// New address: append to the dense array (guaranteed to have room, see
	// grow below) and claim the empty slot the probe stopped on.
	w.list[w.size] = Entry{Addr: addr, Val: val}
	w.slots[h] = indexSlot{stamp: w.stamp, addr: addr, pos: uint32(w.size)}
	w.size++

	// Grow before the next insert could overflow.
	if w.size == len(w.list) {
		w.grow()
	}

	// Rebuild before probe chains can lengthen past the 1/3 load factor.
	if w.size*3 >= len(w.slots) {
		w.rebuild()
	}
	return false
}

// Find reports the value this attempt has buffered for addr, if any.
// This is what gives transactional code read-your-own-writes semantics
// without touching live memory. A miss is a normal result, not an error.
func (w *WriteSet) Find(addr uintptr) (uint64, bool) {
	mask := uint32(len(w.slots) - 1)
	h := w.hash(addr)

	for w.slots[h].stamp == w.stamp {
		if w.slots[h].addr != addr {
			h = (h + 1) & mask
			continue
		}
		return w.list[w.slots[h].pos].Val, true
	}
	return 0, false
}

// Remove withdraws the visibility of at most one entry for addr: subsequent
// Finds miss, and a later Insert of the same address appends a fresh entry.
// The dense entry itself stays in place until Reset, so positions never
// shift under an iterator.
//
// Vacating a slot in the middle of a probe cluster would desynchronize
// lookups for addresses inserted after it, so the remainder of the cluster
// is locally rehashed: each following occupied slot is vacated and
// re-inserted as if fresh.
func (w *WriteSet) Remove(addr uintptr) {
	mask := uint32(len(w.slots) - 1)
	h := w.hash(addr)

	for w.slots[h].stamp == w.stamp {
		if w.slots[h].addr != addr {
			h = (h + 1) & mask
			continue
		}

		// Mark the slot empty by backdating its stamp.
		w.slots[h].stamp = w.stamp - 1

		// Local rehash of the rest of the cluster.
		j := (h + 1) & mask
		for w.slots[j].stamp == w.stamp {
			a, p := w.slots[j].addr, w.slots[j].pos
			w.slots[j].stamp = w.stamp - 1
			w.reinsert(a, p)
			j = (j + 1) & mask
		}
		return
	}
}

// reinsert places an already-buffered entry back into the index at its home
// cluster. Only called for addresses known to be absent from the index.
func (w *WriteSet) reinsert(addr uintptr, pos uint32) {
	mask := uint32(len(w.slots) - 1)
	h := w.hash(addr)
	for w.slots[h].stamp == w.stamp {
		h = (h + 1) & mask
	}
	w.slots[h] = indexSlot{stamp: w.stamp, addr: addr, pos: pos}
}

// grow doubles the dense array. Runs before the insert that filled the old
// array returns, so no insert ever observes a transient overflow.
func (w *WriteSet) grow() {
	next := make([]Entry, 2*len(w.list))
	copy(next, w.list[:w.size])
	w.list = next
}

// rebuild doubles the index and rehashes every visible slot into it.
// Rehashing walks the old index rather than the dense array so that entries
// whose visibility was withdrawn by Remove stay invisible.
func (w *WriteSet) rebuild() {
	old := w.slots
	ilen := 2 * len(old)
	w.slots = make([]indexSlot, ilen)
	w.shift = 32 - uint32(bits.TrailingZeros(uint(ilen)))
	mask := uint32(ilen - 1)

	for i := range old {
		if old[i].stamp != w.stamp {
			continue
		}
		h := w.hash(old[i].addr)
		for w.slots[h].stamp == w.stamp {
			h = (h + 1) & mask
		}
		w.slots[h] = indexSlot{stamp: w.stamp, addr: old[i].addr, pos: old[i].pos}
	}
}

// Validate re-reads live memory for every buffered entry in insertion order
// and reports whether each word still holds its buffered value. The first
// mismatch returns false: some other party modified a word this attempt
// depends on, so committing would publish stale state.
func (w *WriteSet) Validate() bool {
	for i := 0; i < w.size; i++ {
		if !w.list[i].validate() {
			return false
		}
	}
	return true
}

// Writeback applies every buffered entry to live memory, unconditionally,
// in insertion order. Caller's contract: call only while holding whatever
// lock or ordering makes this attempt the sole committer. Not checked
// here - see the package documentation.
func (w *WriteSet) Writeback() {
	for i := 0; i < w.size; i++ {
		w.list[i].writeback()
	}
}

// WritebackProtected is the stack-protection writeback variant: it applies
// every buffered entry except those whose address falls in [lo, hi), the
// caller's live frame range. Committing in place on the executing stack must
// not clobber the frames doing the committing.
func (w *WriteSet) WritebackProtected(lo, hi uintptr) {
	for i := 0; i < w.size; i++ {
		if w.list[i].Addr >= lo && w.list[i].Addr < hi {
			continue
		}
		w.list[i].writeback()
	}
}

// Reset logically empties the set in O(1): the size drops to zero and the
// generation bump implicitly empties every index slot. The backing arrays
// are kept for the next attempt.
func (w *WriteSet) Reset() {
	w.size = 0
	w.stamp++

	// Generation wraparound: a bumped-to-zero stamp could alias slots
	// written before the set was ever reset, so fall back to a physical
	// clear. Amortized away over 2^64 resets.
	if w.stamp != 0 {
		return
	}
	w.resetInternal()
}

// resetInternal physically empties the index after stamp wraparound.
func (w *WriteSet) resetInternal() {
	clear(w.slots)
	w.stamp = 1
}

// Size returns the number of buffered entries, including entries whose
// visibility Remove withdrew. Zero means the attempt never buffered a write,
// which lets the runtime commit it without any validate/writeback work.
func (w *WriteSet) Size() int {
	return w.size
}

// Entries returns the buffered writes in insertion order. Coalescing updates
// values in place, so positions are stable. The slice aliases internal
// storage and is valid until the next Insert or Reset.
func (w *WriteSet) Entries() []Entry {
	return w.list[:w.size]
}
