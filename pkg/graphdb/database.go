package graphdb

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/cuemby/graphdb/internal/gderrors"
	"github.com/cuemby/graphdb/pkg/cache"
	"github.com/cuemby/graphdb/pkg/constraints"
	"github.com/cuemby/graphdb/pkg/graph"
	"github.com/cuemby/graphdb/pkg/index"
	"github.com/cuemby/graphdb/pkg/storage"
	"github.com/cuemby/graphdb/pkg/txn"
	"github.com/cuemby/graphdb/pkg/values"
)

// Database is the single entry point composing storage, indexes,
// constraints, caches, and transactions (C8). It is not internally
// synchronized; pkg/concurrent layers locking on top for multi-goroutine
// use (spec §5).
type Database struct {
	engine      storage.Engine
	indexes     *index.Manager
	constraints *constraints.Manager
	txns        *txn.Manager

	nodeCache *cache.NodeCache
	adjCache  *cache.AdjacencyCache
	queryCh   *cache.QueryCache
	indexCh   *cache.IndexCache

	registry *prometheus.Registry

	// asyncMu serializes ParallelCreateNodes/StreamCreateNodes goroutines
	// against the otherwise-unsynchronized engine (spec §4.2.6); the
	// synchronous methods above never take it.
	asyncMu sync.Mutex
}

// NewDatabase opens a Database per cfg. BackendBolt opens (or creates) a
// bbolt file under cfg.DataDir; BackendMemory starts empty.
func NewDatabase(cfg Config) (*Database, error) {
	var engine storage.Engine
	switch cfg.Backend {
	case BackendBolt:
		e, err := storage.NewBoltEngine(cfg.DataDir)
		if err != nil {
			return nil, gderrors.StorageError("open bolt engine", err)
		}
		engine = e
	default:
		engine = storage.NewMemoryEngine()
	}

	reg := prometheus.NewRegistry()
	db := &Database{
		engine:      engine,
		indexes:     index.NewManager(),
		constraints: constraints.NewManager(),
		txns:        txn.NewManager(cfg.MaxSnapshots),
		nodeCache:   cache.NewNodeCache(cfg.NodeCache.MaxEntries, cfg.NodeCache.TTL, reg),
		adjCache:    cache.NewAdjacencyCache(cfg.AdjacencyCache.MaxEntries, cfg.AdjacencyCache.TTL, reg),
		queryCh:     cache.NewQueryCache(cfg.QueryCache.MaxEntries, cfg.QueryCache.TTL, reg),
		indexCh:     cache.NewIndexCache(cfg.IndexCache.MaxEntries, cfg.IndexCache.TTL, reg),
		registry:    reg,
	}
	return db, nil
}

// Close releases the underlying storage engine (a no-op for the in-memory
// backend).
func (db *Database) Close() error { return db.engine.Close() }

// Registry exposes the database's private prometheus registry so a caller
// can wire /metrics.
func (db *Database) Registry() *prometheus.Registry { return db.registry }

// lookupFor returns a constraints.LookupFunc backed by this database's
// index manager, decoupling pkg/constraints from pkg/index (see
// pkg/constraints's doc comment).
func (db *Database) lookupFor() constraints.LookupFunc {
	return func(label, prop string, v values.Value) []int64 {
		return db.indexes.FindExact(label, prop, v)
	}
}

// AddConstraint registers a uniqueness or existence constraint (spec
// §4.4).
func (db *Database) AddConstraint(kind constraints.Kind, label, prop string) error {
	return db.constraints.Add(constraints.Constraint{Kind: kind, Label: label, Prop: prop})
}

// DropConstraint removes a previously registered constraint.
func (db *Database) DropConstraint(kind constraints.Kind, label, prop string) {
	db.constraints.Drop(constraints.Constraint{Kind: kind, Label: label, Prop: prop})
}

// RegisterComposite, RegisterFullText, and RegisterRange expose the index
// manager's registration calls (spec §4.3); they must be called before
// the labels/properties they cover are populated, since indexes are
// maintained incrementally rather than backfilled.
func (db *Database) RegisterComposite(name, label string, props []string) error {
	return db.indexes.RegisterComposite(name, label, props)
}

func (db *Database) RegisterFullText(label, prop string) error {
	return db.indexes.RegisterFullText(label, prop)
}

func (db *Database) RegisterRange(label, prop string) error {
	return db.indexes.RegisterRange(label, prop)
}

// BeginTxn starts a new logical transaction (spec §4.9). Pass the
// returned *txn.Transaction to mutating calls to have them logged for
// rollback.
func (db *Database) BeginTxn(isolationLevel string) *txn.Transaction {
	return db.txns.Begin(isolationLevel, 0)
}

// BeginTxnWithTimeout is BeginTxn with an advisory expiry (spec §5).
func (db *Database) BeginTxnWithTimeout(isolationLevel string, timeout time.Duration) *txn.Transaction {
	return db.txns.Begin(isolationLevel, timeout)
}

// CommitTxn discards t's undo log.
func (db *Database) CommitTxn(t *txn.Transaction) error { return db.txns.Commit(t.ID) }

// RollbackTxn replays t's undo log in reverse order, restoring the engine,
// indexes, and caches to their pre-transaction state.
func (db *Database) RollbackTxn(t *txn.Transaction) error { return db.txns.Rollback(t.ID) }

// CreateNode validates constraints, writes the node, maintains indexes,
// and populates the node cache, in that order (spec §4.2.1): a rejected
// constraint leaves no partial mutation behind.
func (db *Database) CreateNode(labels []string, props values.Properties, tx *txn.Transaction) (*graph.Node, error) {
	if verdict := db.constraints.Validate(0, labels, props, db.lookupFor()); !verdict.Valid {
		return nil, gderrors.ConstraintViolation("", "", verdict.Message)
	}

	id, err := db.engine.PutNode(0, labels, props)
	if err != nil {
		return nil, err
	}
	n, _, err := db.engine.GetNode(id)
	if err != nil {
		return nil, err
	}

	db.indexes.OnInsert(n)
	db.nodeCache.Put(n)
	db.queryCh.InvalidateTouching(firstLabel(labels), propKeys(props))

	if tx != nil {
		tx.Append("create_node", func() error {
			return db.undoCreateNode(n)
		})
	}
	return n, nil
}

func (db *Database) undoCreateNode(n *graph.Node) error {
	if _, err := db.engine.DeleteNode(n.ID); err != nil {
		return err
	}
	db.indexes.OnDelete(n)
	db.nodeCache.Invalidate(n.ID)
	db.adjCache.InvalidateNode(n.ID)
	return nil
}

// GetNode returns a node by id, consulting the node cache first.
func (db *Database) GetNode(id int64) (*graph.Node, error) {
	if n, ok := db.nodeCache.Get(id); ok {
		return n, nil
	}
	n, ok, err := db.engine.GetNode(id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, gderrors.NotFound("node", id)
	}
	db.nodeCache.Put(n)
	return n, nil
}

// UpdateNodeProps patches a node's properties (spec §4.2.2): re-validates
// constraints against the merged result, excluding the node's own id from
// uniqueness collisions.
func (db *Database) UpdateNodeProps(id int64, patch values.Properties, tx *txn.Transaction) (*graph.Node, error) {
	before, ok, err := db.engine.GetNode(id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, gderrors.NotFound("node", id)
	}

	merged := before.Props.Merge(patch)
	if verdict := db.constraints.Validate(id, before.Labels, merged, db.lookupFor()); !verdict.Valid {
		return nil, gderrors.ConstraintViolation("", "", verdict.Message)
	}

	if _, err := db.engine.UpdateNodeProps(id, patch); err != nil {
		return nil, err
	}
	after, _, err := db.engine.GetNode(id)
	if err != nil {
		return nil, err
	}

	db.indexes.OnUpdate(before, after)
	db.nodeCache.Put(after)
	db.queryCh.InvalidateTouching(firstLabel(before.Labels), propKeys(patch))

	if tx != nil {
		tx.Append("update_node_props", func() error {
			if _, err := db.engine.UpdateNodeProps(id, before.Props); err != nil {
				return err
			}
			restored, _, err := db.engine.GetNode(id)
			if err != nil {
				return err
			}
			db.indexes.OnUpdate(after, restored)
			db.nodeCache.Put(restored)
			return nil
		})
	}
	return after, nil
}

// DeleteNode removes a node and every relationship incident to it (spec
// §4.2.3). Cache entries for the node itself and for every neighbor whose
// adjacency list changed are invalidated.
func (db *Database) DeleteNode(id int64, tx *txn.Transaction) error {
	n, ok, err := db.engine.GetNode(id)
	if err != nil {
		return err
	}
	if !ok {
		return gderrors.NotFound("node", id)
	}

	outIDs, _ := db.engine.Out(id)
	inIDs, _ := db.engine.In(id)
	removedRels, neighbors := db.collectIncidentRels(outIDs, inIDs, id)

	if _, err := db.engine.DeleteNode(id); err != nil {
		return err
	}

	db.indexes.OnDelete(n)
	db.nodeCache.Invalidate(id)
	db.adjCache.InvalidateNode(id)
	for _, nb := range neighbors {
		db.adjCache.InvalidateNode(nb)
	}
	db.queryCh.InvalidateTouching(firstLabel(n.Labels), propKeys(n.Props))

	if tx != nil {
		tx.Append("delete_node", func() error {
			restoredID, err := db.engine.PutNode(n.ID, n.Labels, n.Props)
			if err != nil {
				return err
			}
			restored, _, err := db.engine.GetNode(restoredID)
			if err != nil {
				return err
			}
			db.indexes.OnInsert(restored)
			db.nodeCache.Put(restored)
			for _, r := range removedRels {
				if _, err := db.engine.PutRel(r.ID, r.Start, r.End, r.Type, r.Props); err != nil {
					return err
				}
				db.adjCache.InvalidateNode(r.Start)
				db.adjCache.InvalidateNode(r.End)
			}
			return nil
		})
	}
	return nil
}

// collectIncidentRels fetches the relationship records for outIDs/inIDs
// before the cascading delete removes them, so DeleteNode can invalidate
// neighbor caches and build an undo record.
func (db *Database) collectIncidentRels(outIDs, inIDs []int64, nodeID int64) ([]*graph.Relationship, []int64) {
	seen := make(map[int64]bool)
	var rels []*graph.Relationship
	var neighbors []int64
	addNeighbor := func(id int64) {
		if id != nodeID && !seen[id] {
			seen[id] = true
			neighbors = append(neighbors, id)
		}
	}
	for _, rid := range append(append([]int64{}, outIDs...), inIDs...) {
		r, ok, err := db.engine.GetRel(rid)
		if err != nil || !ok {
			continue
		}
		rels = append(rels, r)
		addNeighbor(r.OtherEnd(nodeID))
	}
	return rels, neighbors
}

// CreateRel validates both endpoints exist, writes the relationship, and
// invalidates the adjacency cache for both endpoints (spec §4.2.1).
func (db *Database) CreateRel(start, end int64, relType string, props values.Properties, tx *txn.Transaction) (*graph.Relationship, error) {
	if _, err := db.GetNode(start); err != nil {
		return nil, err
	}
	if _, err := db.GetNode(end); err != nil {
		return nil, err
	}

	id, err := db.engine.PutRel(0, start, end, relType, props)
	if err != nil {
		return nil, err
	}
	r, _, err := db.engine.GetRel(id)
	if err != nil {
		return nil, err
	}

	db.adjCache.InvalidateNode(start)
	db.adjCache.InvalidateNode(end)

	if tx != nil {
		tx.Append("create_rel", func() error {
			if _, err := db.engine.DeleteRel(r.ID); err != nil {
				return err
			}
			db.adjCache.InvalidateNode(start)
			db.adjCache.InvalidateNode(end)
			return nil
		})
	}
	return r, nil
}

// GetRel returns a relationship by id.
func (db *Database) GetRel(id int64) (*graph.Relationship, error) {
	r, ok, err := db.engine.GetRel(id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, gderrors.NotFound("relationship", id)
	}
	return r, nil
}

// UpdateRelProps patches a relationship's properties (spec §4.2.2).
func (db *Database) UpdateRelProps(id int64, patch values.Properties, tx *txn.Transaction) (*graph.Relationship, error) {
	before, ok, err := db.engine.GetRel(id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, gderrors.NotFound("relationship", id)
	}

	if _, err := db.engine.UpdateRelProps(id, patch); err != nil {
		return nil, err
	}
	after, _, err := db.engine.GetRel(id)
	if err != nil {
		return nil, err
	}

	if tx != nil {
		tx.Append("update_rel_props", func() error {
			_, err := db.engine.UpdateRelProps(id, before.Props)
			return err
		})
	}
	return after, nil
}

// DeleteRel removes a relationship, invalidating the adjacency cache for
// both endpoints (spec §4.2.3).
func (db *Database) DeleteRel(id int64, tx *txn.Transaction) error {
	r, ok, err := db.engine.GetRel(id)
	if err != nil {
		return err
	}
	if !ok {
		return gderrors.NotFound("relationship", id)
	}

	if _, err := db.engine.DeleteRel(id); err != nil {
		return err
	}
	db.adjCache.InvalidateNode(r.Start)
	db.adjCache.InvalidateNode(r.End)

	if tx != nil {
		tx.Append("delete_rel", func() error {
			if _, err := db.engine.PutRel(r.ID, r.Start, r.End, r.Type, r.Props); err != nil {
				return err
			}
			db.adjCache.InvalidateNode(r.Start)
			db.adjCache.InvalidateNode(r.End)
			return nil
		})
	}
	return nil
}

// Out returns the relationship ids leaving nodeID, consulting the
// adjacency cache first.
func (db *Database) Out(nodeID int64) ([]int64, error) {
	return db.adjacency(nodeID, graph.Out)
}

// In returns the relationship ids entering nodeID, consulting the
// adjacency cache first.
func (db *Database) In(nodeID int64) ([]int64, error) {
	return db.adjacency(nodeID, graph.In)
}

func (db *Database) adjacency(nodeID int64, dir graph.Direction) ([]int64, error) {
	if ids, ok := db.adjCache.Get(nodeID, dir); ok {
		return ids, nil
	}
	var ids []int64
	var err error
	if dir == graph.In {
		ids, err = db.engine.In(nodeID)
	} else {
		ids, err = db.engine.Out(nodeID)
	}
	if err != nil {
		return nil, err
	}
	db.adjCache.Put(nodeID, dir, ids)
	return ids, nil
}

// NodeCount and RelCount report current totals from the storage engine.
func (db *Database) NodeCount() (int64, error) { return db.engine.NodeCount() }
func (db *Database) RelCount() (int64, error)  { return db.engine.RelCount() }

// IterNodes and IterRels expose the storage engine's full scans, used by
// DOT export, algorithm snapshots, and unlabeled Cypher node scans.
func (db *Database) IterNodes(fn func(*graph.Node) error) error { return db.engine.IterNodes(fn) }
func (db *Database) IterRels(fn func(*graph.Relationship) error) error {
	return db.engine.IterRels(fn)
}

// Indexes exposes the index manager for the fluent pipeline and Cypher
// executor, which need direct access to FindExact/FindComposite/Search/
// Range*/FindByLabel.
func (db *Database) Indexes() *index.Manager { return db.indexes }

// QueryCache exposes the query-result cache for the fluent pipeline's
// cached variants.
func (db *Database) QueryCache() *cache.QueryCache { return db.queryCh }

// IndexCache exposes the index lookup cache.
func (db *Database) IndexCache() *cache.IndexCache { return db.indexCh }

// NodeCache exposes the node cache, e.g. for the concurrent facade's
// point-in-time stats snapshot.
func (db *Database) NodeCache() *cache.NodeCache { return db.nodeCache }

// AdjCache exposes the adjacency cache.
func (db *Database) AdjCache() *cache.AdjacencyCache { return db.adjCache }

// Snapshot and Snapshots expose the transaction manager's advisory
// snapshot facility (spec §4.9).
func (db *Database) Snapshot(label string, payload any) txn.Snapshot {
	return db.txns.Snapshot(label, payload)
}

func (db *Database) Snapshots() []txn.Snapshot { return db.txns.Snapshots() }

func firstLabel(labels []string) string {
	if len(labels) == 0 {
		return ""
	}
	return labels[0]
}

func propKeys(props values.Properties) []string {
	out := make([]string, 0, len(props))
	for k := range props {
		out = append(out, k)
	}
	return out
}
