package cypher

import (
	"github.com/cuemby/graphdb/pkg/graph"
	"github.com/cuemby/graphdb/pkg/values"
)

// ResultKind discriminates the result variants of spec §4.7.
type ResultKind int

const (
	KindNodes ResultKind = iota
	KindCreated
	KindUpdated
	KindDeleted
	KindTxStarted
	KindTxCommitted
	KindTxRolledBack
)

// Row is one projected output row, keyed by RETURN/WITH column name.
type Row map[string]values.Value

// CreatedPayload reports what a CREATE/MERGE-create produced.
type CreatedPayload struct {
	Nodes []*graph.Node
	Rels  []*graph.Relationship
}

// UpdatedPayload reports nodes touched by SET or by a MERGE's ON CREATE
// SET / ON MATCH SET items.
type UpdatedPayload struct {
	Nodes []*graph.Node
}

// DeletedPayload reports ids removed by DELETE.
type DeletedPayload struct {
	Nodes []int64
	Rels  []int64
}

// Result is the outcome of executing one statement.
type Result struct {
	Kind    ResultKind
	Columns []string
	Rows    []Row
	Created CreatedPayload
	Updated UpdatedPayload
	Deleted DeletedPayload
}
