package storage

import (
	"github.com/cuemby/graphdb/pkg/graph"
	"github.com/cuemby/graphdb/pkg/values"
)

// Engine is the narrow contract both backends satisfy (spec §4.1, C2).
// The facade is polymorphic over Engine; it never knows which backend it
// holds.
type Engine interface {
	// PutNode assigns an id if id <= 0 and stores the record, returning
	// the final id.
	PutNode(id int64, labels []string, props values.Properties) (int64, error)
	GetNode(id int64) (*graph.Node, bool, error)
	DeleteNode(id int64) (bool, error)
	UpdateNodeProps(id int64, patch values.Properties) (bool, error)

	// PutRel assigns an id if id <= 0. The engine re-validates that
	// start/end exist (the facade also validates defensively) and
	// appends to both incidence lists.
	PutRel(id, start, end int64, relType string, props values.Properties) (int64, error)
	GetRel(id int64) (*graph.Relationship, bool, error)
	DeleteRel(id int64) (bool, error)
	UpdateRelProps(id int64, patch values.Properties) (bool, error)

	// Out/In return relationship ids incident to nodeID in insertion
	// order.
	Out(nodeID int64) ([]int64, error)
	In(nodeID int64) ([]int64, error)

	IterNodes(fn func(*graph.Node) error) error
	IterRels(fn func(*graph.Relationship) error) error

	NodeCount() (int64, error)
	RelCount() (int64, error)

	// Begin/Commit/Rollback support the logical, best-effort transaction
	// discipline of spec §4.1: commit of an empty transaction is a
	// no-op, double-commit fails, rollback without a prior begin fails.
	Begin() (Tx, error)

	Flush() error
	Close() error
}

// Tx is an opaque transaction handle. Engines with no native transaction
// concept (MemoryEngine) still enforce the begin/commit/rollback
// discipline described in spec §4.1.
type Tx interface {
	Commit() error
	Rollback() error
}
