package graphdb

import (
	"github.com/cuemby/graphdb/pkg/graph"
	"github.com/cuemby/graphdb/pkg/txn"
	"github.com/cuemby/graphdb/pkg/values"
)

// NodeSpec is one element of a BatchCreateNodes call.
type NodeSpec struct {
	Labels []string
	Props  values.Properties
}

// RelSpec is one element of a BatchCreateRels call.
type RelSpec struct {
	Start, End int64
	Type       string
	Props      values.Properties
}

// BatchCreateNodes creates every spec in order, equivalent to calling
// CreateNode sequentially (spec §4.2.5: batches get contiguous ids, not a
// distinct code path). It stops at the first failure, leaving every
// already-created node in place — callers wanting all-or-nothing should
// pass a transaction and roll it back on error.
func (db *Database) BatchCreateNodes(specs []NodeSpec, tx *txn.Transaction) ([]*graph.Node, error) {
	out := make([]*graph.Node, 0, len(specs))
	for _, s := range specs {
		n, err := db.CreateNode(s.Labels, s.Props, tx)
		if err != nil {
			return out, err
		}
		out = append(out, n)
	}
	return out, nil
}

// BatchCreateRels is BatchCreateNodes's relationship counterpart.
func (db *Database) BatchCreateRels(specs []RelSpec, tx *txn.Transaction) ([]*graph.Relationship, error) {
	out := make([]*graph.Relationship, 0, len(specs))
	for _, s := range specs {
		r, err := db.CreateRel(s.Start, s.End, s.Type, s.Props, tx)
		if err != nil {
			return out, err
		}
		out = append(out, r)
	}
	return out, nil
}
