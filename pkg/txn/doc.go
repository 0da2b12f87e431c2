// Package txn implements the logical single-writer transaction and
// snapshot mechanism of spec §4.9: an operation log of inverse-able
// records per transaction; commit discards the log, rollback applies
// inverses in reverse order. This replaces the teacher's raft-replicated
// FSM log with a local, non-distributed undo log — the same
// Op-plus-dispatch shape, without the replication machinery spec.md's
// Non-goals exclude.
package txn
