package graphdb

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cuemby/graphdb/pkg/graph"
)

// ExportDOT renders the entire graph as Graphviz DOT, a supplemental
// feature for ad-hoc inspection during development (not a query-language
// surface). Each node's DOT label is its id followed by its labels,
// sorted and comma-joined ("3:Person,User"), or the bare id when it has
// none; each edge's label is its relationship type. No colors or
// tooltips are emitted.
func (db *Database) ExportDOT() (string, error) {
	var b strings.Builder
	b.WriteString("digraph graphdb {\n")
	b.WriteString("  rankdir=LR;\n")

	var nodeErr error
	if err := db.IterNodes(func(n *graph.Node) error {
		b.WriteString(fmt.Sprintf("  %d [label=%q];\n", n.ID, nodeLabel(n)))
		return nil
	}); err != nil {
		nodeErr = err
	}
	if nodeErr != nil {
		return "", nodeErr
	}

	if err := db.IterRels(func(r *graph.Relationship) error {
		b.WriteString(fmt.Sprintf("  %d -> %d [label=%q];\n", r.Start, r.End, r.Type))
		return nil
	}); err != nil {
		return "", err
	}

	b.WriteString("}\n")
	return b.String(), nil
}

func nodeLabel(n *graph.Node) string {
	labels := append([]string{}, n.Labels...)
	sort.Strings(labels)
	if len(labels) == 0 {
		return fmt.Sprintf("%d", n.ID)
	}
	return fmt.Sprintf("%d:%s", n.ID, strings.Join(labels, ","))
}
