package stm

import (
	"github.com/kolkov/gostm/internal/stm/rawmem"
	"github.com/kolkov/gostm/internal/stm/txn"
)

// defaultRuntime is the process-wide runtime behind the package-level API.
// All Atomic blocks in a process share one commit clock and commit lock,
// which is what makes their commits mutually ordered.
var defaultRuntime = txn.NewRuntime()

// Tx is a handle on one transaction attempt, passed to the Atomic callback.
// It is valid only inside that callback and only on the calling goroutine.
type Tx struct {
	inner *txn.Txn
}

// Load performs a transactional read of the word at addr.
//
// If this attempt already stored to addr, the buffered value is returned
// (read-your-own-writes); otherwise the live word is read and logged so the
// commit can detect conflicting modification.
func (tx *Tx) Load(addr uintptr) uint64 {
	return tx.inner.Load(addr)
}

// Store buffers a transactional write of val to addr. The write reaches
// live memory only if the surrounding Atomic block commits.
func (tx *Tx) Store(addr uintptr, val uint64) {
	tx.inner.Store(addr, val)
}

// Atomic executes fn as a transaction, retrying it until an attempt commits
// without conflicts.
//
// If fn returns an error, the attempt is abandoned without retry and the
// error is returned; no store made by fn has touched live memory.
//
// fn may run multiple times, so it must be free of side effects other than
// Load/Store on transactional words (no I/O, no channel sends). On attempts
// that will retry, fn can observe an inconsistent multi-word view before the
// abort is decided; fn must not panic or loop on values that only make sense
// together (the committed attempt's view is always consistent).
func Atomic(fn func(tx *Tx) error) error {
	return defaultRuntime.Atomic(func(t *txn.Txn) error {
		return fn(&Tx{inner: t})
	})
}

// AddrOf returns the transactional address of a uint64 word.
//
// The word must be a heap or package-level variable; addresses of local
// variables are not safe because goroutine stacks move.
func AddrOf(p *uint64) uintptr {
	return rawmem.AddrOf(p)
}

// Stats is a snapshot of the shared runtime's commit counters.
type Stats struct {
	// Commits counts attempts that committed, including read-only and
	// silent commits.
	Commits uint64

	// Aborts counts attempts that failed validation and were retried.
	Aborts uint64

	// ReadOnlyCommits counts commits whose attempts never stored anything;
	// they skip the writeback machinery entirely.
	ReadOnlyCommits uint64

	// SilentCommits counts commits whose every buffered word already held
	// its buffered value, so nothing needed publishing.
	SilentCommits uint64
}

// ReadStats returns a snapshot of the shared runtime's statistics.
//
// Example:
//
//	s := stm.ReadStats()
//	fmt.Printf("commits=%d aborts=%d\n", s.Commits, s.Aborts)
func ReadStats() Stats {
	s := defaultRuntime.Stats()
	return Stats{
		Commits:         s.Commits,
		Aborts:          s.Aborts,
		ReadOnlyCommits: s.ReadOnlyCommits,
		SilentCommits:   s.SilentCommits,
	}
}
