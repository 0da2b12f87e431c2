package txn

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cuemby/graphdb/internal/gdlog"
	"github.com/cuemby/graphdb/internal/gderrors"
)

// Status is the lifecycle state of a Transaction.
type Status string

const (
	StatusActive     Status = "active"
	StatusCommitted  Status = "committed"
	StatusRolledBack Status = "rolled_back"
)

// Record is one logged mutation: Op names it for diagnostics, Undo
// reverses its observable effect. The facade supplies Undo as a closure
// over its own inverse call (e.g. a CreateNode record's Undo calls
// DeleteNode with the saved id).
type Record struct {
	Op   string
	Undo func() error
}

// Transaction tracks one logical transaction's log and metadata (spec
// §3's Transaction entity).
type Transaction struct {
	ID             string
	Status         Status
	IsolationLevel string
	SnapshotID     string
	CreatedAt      time.Time
	Timeout        time.Duration

	mu  sync.Mutex
	log []Record
}

// Append records op as having just been applied, with undo reversing it.
// Appends are ignored once the transaction is no longer active.
func (t *Transaction) Append(op string, undo func() error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.Status != StatusActive {
		return
	}
	t.log = append(t.log, Record{Op: op, Undo: undo})
}

// Expired reports whether t has outlived its advisory timeout (spec §5:
// "Transactions carry an optional timeout (advisory...)").
func (t *Transaction) Expired() bool {
	if t.Timeout <= 0 {
		return false
	}
	return time.Since(t.CreatedAt) > t.Timeout
}

// Manager assigns transaction ids, owns every active/finished
// Transaction, and maintains the bounded advisory snapshot list.
type Manager struct {
	mu   sync.Mutex
	txns map[string]*Transaction

	snapshots    []Snapshot
	maxSnapshots int
}

// Snapshot is an advisory, copy-on-demand record of engine state (spec
// §3/GLOSSARY) — never required for rollback correctness.
type Snapshot struct {
	ID        string
	Label     string
	CreatedAt time.Time
	Payload   any
}

// NewManager returns a transaction manager bounding its advisory
// snapshot list to maxSnapshots entries (0 disables snapshotting).
func NewManager(maxSnapshots int) *Manager {
	return &Manager{txns: make(map[string]*Transaction), maxSnapshots: maxSnapshots}
}

// Begin starts a new active transaction.
func (m *Manager) Begin(isolationLevel string, timeout time.Duration) *Transaction {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := &Transaction{
		ID:             uuid.NewString(),
		Status:         StatusActive,
		IsolationLevel: isolationLevel,
		CreatedAt:      time.Now(),
		Timeout:        timeout,
	}
	m.txns[t.ID] = t
	return t
}

// Get looks up a transaction by id.
func (m *Manager) Get(id string) (*Transaction, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.txns[id]
	return t, ok
}

// Commit discards t's log and marks it committed. Committing an
// already-finished transaction fails (spec §7: double-commit).
func (m *Manager) Commit(id string) error {
	t, ok := m.Get(id)
	if !ok {
		return gderrors.TransactionError("unknown transaction " + id)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.Status != StatusActive {
		return gderrors.TransactionError("commit of a non-active transaction " + id)
	}
	t.Status = StatusCommitted
	t.log = nil
	return nil
}

// Rollback applies t's undo log in reverse order and marks it rolled
// back. A rollback failure leaves the transaction rolled-back anyway
// (spec §7: "rollback failures are fatal... caller should treat the
// database as degraded") but reports the first error encountered.
func (m *Manager) Rollback(id string) error {
	t, ok := m.Get(id)
	if !ok {
		return gderrors.TransactionError("unknown transaction " + id)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.Status != StatusActive {
		return gderrors.TransactionError("rollback of a non-active transaction " + id)
	}

	var firstErr error
	for i := len(t.log) - 1; i >= 0; i-- {
		rec := t.log[i]
		if err := rec.Undo(); err != nil {
			gdlog.WithTxn(t.ID).Error().Str("op", rec.Op).Err(err).Msg("rollback undo failed")
			if firstErr == nil {
				firstErr = gderrors.TransactionError("undo of " + rec.Op + " failed: " + err.Error())
			}
		}
	}
	t.Status = StatusRolledBack
	t.log = nil
	return firstErr
}

// Snapshot records an advisory copy of payload, evicting the oldest
// snapshot if the list would exceed maxSnapshots.
func (m *Manager) Snapshot(label string, payload any) Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := Snapshot{ID: uuid.NewString(), Label: label, CreatedAt: time.Now(), Payload: payload}
	if m.maxSnapshots <= 0 {
		return s
	}
	m.snapshots = append(m.snapshots, s)
	if len(m.snapshots) > m.maxSnapshots {
		m.snapshots = m.snapshots[len(m.snapshots)-m.maxSnapshots:]
	}
	return s
}

// Snapshots returns the currently retained advisory snapshots, most
// recent last.
func (m *Manager) Snapshots() []Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Snapshot, len(m.snapshots))
	copy(out, m.snapshots)
	return out
}
