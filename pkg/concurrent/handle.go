// Package concurrent wraps a Database in a single coarse reader/writer
// lock (C13), so the same engine can be shared safely across goroutines.
// Reads run in parallel; writes are serialized and exclude readers. A
// Handle is cheap to clone — clones share the lock and the underlying
// Database, never a copy of either.
package concurrent

import (
	"sync"

	"github.com/cuemby/graphdb/pkg/cache"
	"github.com/cuemby/graphdb/pkg/graph"
	"github.com/cuemby/graphdb/pkg/graphdb"
	"github.com/cuemby/graphdb/pkg/txn"
	"github.com/cuemby/graphdb/pkg/values"
)

// Handle is a goroutine-safe facade over a Database (spec §4.10 / §5).
// The zero Handle is not usable; construct with NewHandle.
type Handle struct {
	mu *sync.RWMutex
	db *graphdb.Database
}

// NewHandle wraps db in a fresh lock. db must not be mutated directly
// outside of any Handle cloned from this one.
func NewHandle(db *graphdb.Database) *Handle {
	return &Handle{mu: &sync.RWMutex{}, db: db}
}

// Clone returns a new Handle sharing this one's lock and Database, safe
// to hand to another goroutine.
func (h *Handle) Clone() *Handle {
	return &Handle{mu: h.mu, db: h.db}
}

// Stats is a point-in-time snapshot of engine-wide counts and cache
// hit/miss rates, taken under the read lock. Two Stats calls on
// different goroutines may observe different snapshots — they are
// each internally consistent, not monotonic across calls (spec §4.10).
type Stats struct {
	NodeCount     int64
	RelCount      int64
	NodeCache     cache.Stats
	AdjacencyHits cache.Stats
	QueryCache    cache.Stats
	IndexCache    cache.Stats
}

// Stats takes a consistent snapshot of counts and cache statistics.
func (h *Handle) Stats() (Stats, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	nc, err := h.db.NodeCount()
	if err != nil {
		return Stats{}, err
	}
	rc, err := h.db.RelCount()
	if err != nil {
		return Stats{}, err
	}
	return Stats{
		NodeCount:     nc,
		RelCount:      rc,
		NodeCache:     h.db.NodeCache().Stats(),
		AdjacencyHits: h.db.AdjCache().Stats(),
		QueryCache:    h.db.QueryCache().Stats(),
		IndexCache:    h.db.IndexCache().Stats(),
	}, nil
}

// ---- reads (RLock: any number run concurrently) ----

func (h *Handle) GetNode(id int64) (*graph.Node, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.db.GetNode(id)
}

func (h *Handle) GetRel(id int64) (*graph.Relationship, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.db.GetRel(id)
}

func (h *Handle) Out(nodeID int64) ([]int64, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.db.Out(nodeID)
}

func (h *Handle) In(nodeID int64) ([]int64, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.db.In(nodeID)
}

func (h *Handle) NodeCount() (int64, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.db.NodeCount()
}

func (h *Handle) RelCount() (int64, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.db.RelCount()
}

// IterNodes holds the read lock for the whole iteration, consistent
// with the single-coarse-lock discipline (spec §5: "no nested locking").
func (h *Handle) IterNodes(fn func(*graph.Node) error) error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.db.IterNodes(fn)
}

func (h *Handle) IterRels(fn func(*graph.Relationship) error) error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.db.IterRels(fn)
}

// ---- writes (Lock: exclude readers and other writers) ----

func (h *Handle) CreateNode(labels []string, props values.Properties, tx *txn.Transaction) (*graph.Node, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.db.CreateNode(labels, props, tx)
}

func (h *Handle) UpdateNodeProps(id int64, patch values.Properties, tx *txn.Transaction) (*graph.Node, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.db.UpdateNodeProps(id, patch, tx)
}

func (h *Handle) DeleteNode(id int64, tx *txn.Transaction) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.db.DeleteNode(id, tx)
}

func (h *Handle) CreateRel(start, end int64, relType string, props values.Properties, tx *txn.Transaction) (*graph.Relationship, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.db.CreateRel(start, end, relType, props, tx)
}

func (h *Handle) UpdateRelProps(id int64, patch values.Properties, tx *txn.Transaction) (*graph.Relationship, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.db.UpdateRelProps(id, patch, tx)
}

func (h *Handle) DeleteRel(id int64, tx *txn.Transaction) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.db.DeleteRel(id, tx)
}

// ---- transactions ----
//
// Transaction bookkeeping mutates the shared txn manager, so Begin/Commit
// /Rollback take the writer lock even though Commit/Rollback only replay
// an undo log rather than touching the engine's data structures directly.

func (h *Handle) BeginTxn(isolationLevel string) *txn.Transaction {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.db.BeginTxn(isolationLevel)
}

func (h *Handle) CommitTxn(t *txn.Transaction) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.db.CommitTxn(t)
}

func (h *Handle) RollbackTxn(t *txn.Transaction) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.db.RollbackTxn(t)
}

// Database returns the wrapped Database for callers that need to build a
// pkg/query.Pipeline, pkg/algo call, or pkg/cypher.Executor against it.
// Callers doing so directly bypass this Handle's locking and must
// coordinate externally (e.g. hold their own reference for the lifetime
// of a single synchronous operation, matching C8's documented
// single-thread contract).
func (h *Handle) Database() *graphdb.Database { return h.db }
