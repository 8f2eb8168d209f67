package txn

import (
	"sync"
	"sync/atomic"

	"github.com/kolkov/gostm/internal/stm/clock"
	"github.com/kolkov/gostm/internal/stm/rawmem"
	"github.com/kolkov/gostm/internal/stm/writeset"
)

// defaultWriteCapacity sizes a fresh attempt's write set. Most transactions
// touch a handful of words; the set doubles on demand past this.
const defaultWriteCapacity = 64

// readLogEntry records one transactional load from live memory: the word
// address and the value observed at load time. Commit re-checks that the
// word still holds this value.
type readLogEntry struct {
	addr uintptr
	val  uint64
}

// Stats is a snapshot of runtime-wide commit statistics.
type Stats struct {
	Commits         uint64 // attempts that committed (including read-only and silent)
	Aborts          uint64 // attempts that failed validation and were retried
	ReadOnlyCommits uint64 // commits with an empty write set
	SilentCommits   uint64 // commits whose every buffered word already held its value
}

// Runtime holds the state shared by all transactions: the commit clock, the
// writer-serializing commit mutex, attempt pooling, and statistics.
type Runtime struct {
	clk *clock.Clock

	// commitMu serializes writing commits and snapshot extensions. Writeback
	// happens entirely inside this lock, so two committers never interleave
	// stores and validation never races a half-applied commit.
	commitMu sync.Mutex

	// pool recycles Txn instances - and with them their write set and read
	// log allocations - across attempts and goroutines.
	pool sync.Pool

	commits         atomic.Uint64
	aborts          atomic.Uint64
	readOnlyCommits atomic.Uint64
	silentCommits   atomic.Uint64
}

// NewRuntime creates an STM runtime with a fresh commit clock.
func NewRuntime() *Runtime {
	r := &Runtime{clk: clock.New()}
	r.pool.New = func() any {
		return &Txn{
			rt: r,
			ws: writeset.New(defaultWriteCapacity),
		}
	}
	return r
}

// Stats returns a snapshot of the runtime's commit counters.
func (r *Runtime) Stats() Stats {
	return Stats{
		Commits:         r.commits.Load(),
		Aborts:          r.aborts.Load(),
		ReadOnlyCommits: r.readOnlyCommits.Load(),
		SilentCommits:   r.silentCommits.Load(),
	}
}

// Txn is one transactional execution context. It owns a write set and a read
// log that are reused across attempts; Begin logically empties both in O(1).
//
// A Txn is accumulating between Begin and the Commit decision; Load and
// Store are defined only in that window. It must not be shared between
// goroutines.
type Txn struct {
	rt    *Runtime
	ws    *writeset.WriteSet
	reads []readLogEntry
	start clock.Timestamp

	// doomed marks an attempt whose read log failed mid-attempt
	// re-validation. Execution continues (values returned after the failed
	// extension are current, not torn), but Commit is guaranteed to abort.
	doomed bool
}

// Acquire returns a pooled transaction bound to this runtime. Release it
// with Release when the enclosing logical operation is done; Atomic does
// both automatically.
func (r *Runtime) Acquire() *Txn {
	return r.pool.Get().(*Txn)
}

// Release returns a transaction to the pool. The caller must not use it
// afterwards.
func (r *Runtime) Release(t *Txn) {
	r.pool.Put(t)
}

// Begin starts a fresh attempt: O(1) write-set reset, truncated read log,
// and a new clock snapshot.
func (t *Txn) Begin() {
	t.ws.Reset()
	t.reads = t.reads[:0]
	t.doomed = false
	t.start = t.rt.clk.Sample()
}

// Load performs a transactional read of the word at addr.
//
// The attempt's own buffered write wins first - read-your-own-writes without
// touching live memory. Otherwise the live word is read and logged for
// commit-time validation. If a writer committed since this attempt's
// snapshot, the snapshot is extended (re-validated and moved forward) before
// the value is returned, so the attempt never silently mixes values from two
// different commit epochs.
func (t *Txn) Load(addr uintptr) uint64 {
	if v, ok := t.ws.Find(addr); ok {
		return v
	}

	v := rawmem.ReadWord(addr)
	if t.rt.clk.Sample() != t.start {
		t.extendSnapshot()
		v = rawmem.ReadWord(addr)
	}
	t.reads = append(t.reads, readLogEntry{addr: addr, val: v})
	return v
}

// Store buffers a transactional write of val to addr. Nothing reaches live
// memory until Commit; repeated stores to one address coalesce in the write
// set.
func (t *Txn) Store(addr uintptr, val uint64) {
	t.ws.Insert(addr, val)
}

// WriteCount returns the number of distinct words this attempt has stored
// to. Zero identifies a read-only attempt.
func (t *Txn) WriteCount() int {
	return t.ws.Size()
}

// extendSnapshot moves the attempt's snapshot up to the current clock after
// an intervening commit. Runs under the commit lock so it cannot observe a
// half-applied writeback. If the read log no longer validates, the attempt
// is doomed and will abort at Commit.
func (t *Txn) extendSnapshot() {
	t.rt.commitMu.Lock()
	if !t.validateReads() {
		t.doomed = true
	}
	t.start = t.rt.clk.Sample()
	t.rt.commitMu.Unlock()
}

// validateReads re-reads every logged word and reports whether each still
// holds the value this attempt observed. Caller holds the commit lock, or is
// on the read-only fast path where no writer can be mid-writeback.
func (t *Txn) validateReads() bool {
	for i := range t.reads {
		if rawmem.ReadWord(t.reads[i].addr) != t.reads[i].val {
			return false
		}
	}
	return true
}

// Commit attempts to publish the attempt. It returns true if the attempt
// committed and false if validation failed and the caller should retry from
// Begin.
//
// Read-only attempts (empty write set) skip the writeback machinery
// entirely: if no writer committed since the snapshot they commit with no
// locking at all, otherwise one validation sweep under the commit lock
// decides. Writing attempts validate the read log, then the write targets:
// if every buffered word already holds its buffered value the commit is
// silent (nothing to publish, the clock does not advance); otherwise the
// clock advances and writeback runs before the lock is released.
func (t *Txn) Commit() bool {
	rt := t.rt

	if t.doomed {
		rt.aborts.Add(1)
		return false
	}

	if t.ws.Size() == 0 {
		if rt.clk.Sample() == t.start {
			rt.commits.Add(1)
			rt.readOnlyCommits.Add(1)
			return true
		}
		rt.commitMu.Lock()
		ok := t.validateReads()
		rt.commitMu.Unlock()
		if !ok {
			rt.aborts.Add(1)
			return false
		}
		rt.commits.Add(1)
		rt.readOnlyCommits.Add(1)
		return true
	}

	rt.commitMu.Lock()
	if !t.validateReads() {
		rt.commitMu.Unlock()
		rt.aborts.Add(1)
		return false
	}

	if t.ws.Validate() {
		// Every buffered word already holds its buffered value: the commit
		// is a no-op to every other thread. Skip writeback and leave the
		// clock alone so readers are not forced to re-validate.
		rt.commitMu.Unlock()
		rt.commits.Add(1)
		rt.silentCommits.Add(1)
		return true
	}

	// Advance before writing back: a concurrent load that races the
	// writeback below is guaranteed to observe the clock change and extend
	// its snapshot (blocking on the commit lock until the writeback is
	// complete) instead of consuming a half-applied commit.
	rt.clk.Advance()
	t.ws.Writeback()
	rt.commitMu.Unlock()

	rt.commits.Add(1)
	return true
}

// Atomic executes fn transactionally, retrying on conflict until the
// attempt commits. If fn returns an error the attempt is abandoned without
// retry and the error is returned; nothing has touched live memory, so no
// undo is needed.
func (r *Runtime) Atomic(fn func(*Txn) error) error {
	t := r.Acquire()
	defer r.Release(t)

	for {
		t.Begin()
		if err := fn(t); err != nil {
			return err
		}
		if t.Commit() {
			return nil
		}
	}
}
