// Package writeset implements the per-attempt redo log of the STM runtime.
//
// A WriteSet buffers every speculative write made during one transaction
// attempt and answers "what did this attempt already write to address X"
// in O(1). It is the hot-path structure of the whole runtime: every
// transactional store inserts into it, every transactional load consults it
// first, and commit walks it twice (validate, then writeback).
//
// The design is a hybrid of two structures sharing one generation counter:
//
//   - a dense, append-only array of Entry values, iterated in insertion
//     order for validation and writeback;
//   - a sparse, open-addressed index mapping an address to its position in
//     the dense array. Index slots are stamped with the generation at which
//     they were written; a slot is empty iff its stamp differs from the
//     current generation. There is no sentinel address - a real address can
//     collide with any fixed sentinel, so emptiness is only ever the stamp
//     comparison.
//
// The generation stamp is what makes Reset O(1): bumping the counter
// implicitly empties every index slot without touching them. The rare
// counter wraparound falls back to a physical clear so a stale stamp can
// never alias the new generation.
//
// Ownership and state machine: a WriteSet belongs to exactly one transaction
// context and is never shared between attempts or goroutines; there is no
// internal locking. Between Reset and the commit decision the set is
// accumulating and all operations are defined; after the decision the caller
// must Reset before touching it again. Writeback is only meaningful
// immediately after a successful Validate - that ordering is the caller's
// contract and is deliberately not checked here, because a check would cost
// every insert on the hot path.
package writeset
