package storage

import (
	"sync"

	"github.com/cuemby/graphdb/internal/gderrors"
	"github.com/cuemby/graphdb/pkg/graph"
	"github.com/cuemby/graphdb/pkg/values"
)

// MemoryEngine is a dense, map-backed Engine with per-node out/in
// adjacency lists. It is not internally synchronized — per spec §5, the
// synchronous facade is single-threaded by design and concurrency is
// layered on by pkg/concurrent.
type MemoryEngine struct {
	mu sync.Mutex // guards only the id counters and tx flag; data maps are
	// exposed to a single logical writer per spec §5.

	nodes map[int64]*graph.Node
	rels  map[int64]*graph.Relationship
	out   map[int64][]int64
	in    map[int64][]int64

	nextNodeID int64
	nextRelID  int64

	txActive bool
}

// NewMemoryEngine creates an empty in-memory engine.
func NewMemoryEngine() *MemoryEngine {
	return &MemoryEngine{
		nodes: make(map[int64]*graph.Node),
		rels:  make(map[int64]*graph.Relationship),
		out:   make(map[int64][]int64),
		in:    make(map[int64][]int64),
	}
}

func (e *MemoryEngine) PutNode(id int64, labels []string, props values.Properties) (int64, error) {
	e.mu.Lock()
	if id <= 0 {
		e.nextNodeID++
		id = e.nextNodeID
	} else if id > e.nextNodeID {
		e.nextNodeID = id
	}
	e.mu.Unlock()

	dedup := make([]string, 0, len(labels))
	seen := make(map[string]bool, len(labels))
	for _, l := range labels {
		if l == "" || seen[l] {
			continue
		}
		seen[l] = true
		dedup = append(dedup, l)
	}

	e.nodes[id] = &graph.Node{ID: id, Labels: dedup, Props: props.Clone()}
	if _, ok := e.out[id]; !ok {
		e.out[id] = nil
	}
	if _, ok := e.in[id]; !ok {
		e.in[id] = nil
	}
	return id, nil
}

func (e *MemoryEngine) GetNode(id int64) (*graph.Node, bool, error) {
	n, ok := e.nodes[id]
	if !ok {
		return nil, false, nil
	}
	return n.Clone(), true, nil
}

func (e *MemoryEngine) DeleteNode(id int64) (bool, error) {
	if _, ok := e.nodes[id]; !ok {
		return false, nil
	}

	for _, rid := range append([]int64{}, e.out[id]...) {
		_, _ = e.DeleteRel(rid)
	}
	for _, rid := range append([]int64{}, e.in[id]...) {
		_, _ = e.DeleteRel(rid)
	}

	delete(e.nodes, id)
	delete(e.out, id)
	delete(e.in, id)
	return true, nil
}

func (e *MemoryEngine) UpdateNodeProps(id int64, patch values.Properties) (bool, error) {
	n, ok := e.nodes[id]
	if !ok {
		return false, nil
	}
	n.Props = n.Props.Merge(patch)
	return true, nil
}

func (e *MemoryEngine) PutRel(id, start, end int64, relType string, props values.Properties) (int64, error) {
	if _, ok := e.nodes[start]; !ok {
		return 0, gderrors.NotFound("node", start)
	}
	if _, ok := e.nodes[end]; !ok {
		return 0, gderrors.NotFound("node", end)
	}

	e.mu.Lock()
	if id <= 0 {
		e.nextRelID++
		id = e.nextRelID
	} else if id > e.nextRelID {
		e.nextRelID = id
	}
	e.mu.Unlock()

	e.rels[id] = &graph.Relationship{ID: id, Start: start, End: end, Type: relType, Props: props.Clone()}
	e.out[start] = append(e.out[start], id)
	e.in[end] = append(e.in[end], id)
	return id, nil
}

func (e *MemoryEngine) GetRel(id int64) (*graph.Relationship, bool, error) {
	r, ok := e.rels[id]
	if !ok {
		return nil, false, nil
	}
	return r.Clone(), true, nil
}

func (e *MemoryEngine) DeleteRel(id int64) (bool, error) {
	r, ok := e.rels[id]
	if !ok {
		return false, nil
	}
	e.out[r.Start] = removeID(e.out[r.Start], id)
	e.in[r.End] = removeID(e.in[r.End], id)
	delete(e.rels, id)
	return true, nil
}

func (e *MemoryEngine) UpdateRelProps(id int64, patch values.Properties) (bool, error) {
	r, ok := e.rels[id]
	if !ok {
		return false, nil
	}
	r.Props = r.Props.Merge(patch)
	return true, nil
}

func (e *MemoryEngine) Out(nodeID int64) ([]int64, error) {
	out := e.out[nodeID]
	cp := make([]int64, len(out))
	copy(cp, out)
	return cp, nil
}

func (e *MemoryEngine) In(nodeID int64) ([]int64, error) {
	in := e.in[nodeID]
	cp := make([]int64, len(in))
	copy(cp, in)
	return cp, nil
}

func (e *MemoryEngine) IterNodes(fn func(*graph.Node) error) error {
	for _, n := range e.nodes {
		if err := fn(n.Clone()); err != nil {
			return err
		}
	}
	return nil
}

func (e *MemoryEngine) IterRels(fn func(*graph.Relationship) error) error {
	for _, r := range e.rels {
		if err := fn(r.Clone()); err != nil {
			return err
		}
	}
	return nil
}

func (e *MemoryEngine) NodeCount() (int64, error) { return int64(len(e.nodes)), nil }
func (e *MemoryEngine) RelCount() (int64, error)  { return int64(len(e.rels)), nil }

func (e *MemoryEngine) Begin() (Tx, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.txActive {
		return nil, gderrors.TransactionError("a transaction is already active on this engine handle")
	}
	e.txActive = true
	return &memoryTx{engine: e}, nil
}

// Flush is a no-op for the in-memory backend (spec §4.1).
func (e *MemoryEngine) Flush() error { return nil }

func (e *MemoryEngine) Close() error { return nil }

type memoryTx struct {
	engine    *MemoryEngine
	committed bool
	rolled    bool
}

func (t *memoryTx) Commit() error {
	t.engine.mu.Lock()
	defer t.engine.mu.Unlock()
	if t.committed || t.rolled {
		return gderrors.TransactionError("double-commit or commit-after-rollback")
	}
	t.committed = true
	t.engine.txActive = false
	return nil
}

func (t *memoryTx) Rollback() error {
	t.engine.mu.Lock()
	defer t.engine.mu.Unlock()
	if t.committed || t.rolled {
		return gderrors.TransactionError("rollback of an already-finished transaction")
	}
	t.rolled = true
	t.engine.txActive = false
	return nil
}

func removeID(ids []int64, target int64) []int64 {
	for i, id := range ids {
		if id == target {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}
