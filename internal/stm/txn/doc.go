// Package txn implements the transaction-attempt runtime around the write
// set: per-attempt read logging, the global commit protocol, and the retry
// loop behind the public stm.Atomic API.
//
// The runtime is value-validating: each transactional load of a word not yet
// written by the attempt logs the observed value, and commit re-checks every
// logged word under the commit lock. Writers serialize on a single commit
// mutex and publish through the global commit clock; readers use clock
// samples to detect that a writer committed mid-attempt and re-validate
// their log before continuing on a fresher snapshot.
//
// Committed attempts always observed a consistent snapshot, but execution is
// not opaque: an attempt whose snapshot extension fails validation is doomed
// yet keeps running until Commit aborts it, so the attempt body can observe
// an inconsistent multi-word view on attempts that will retry. Attempt
// bodies must tolerate torn reads - no dividing by a difference that "cannot"
// be zero, no indexing by an invariant that "always" holds.
//
// A Txn is single-owner for the duration of an attempt - the structure has
// no internal locking of its own state. Aborting needs no undo: buffered
// writes only reach live memory inside Commit, after validation, so a
// failed or abandoned attempt is discarded by the next Begin.
package txn
