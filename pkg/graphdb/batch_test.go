package graphdb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/graphdb/pkg/values"
)

func TestBatchCreateNodesAssignsContiguousIDs(t *testing.T) {
	db := newTestDB(t)
	specs := []NodeSpec{
		{Labels: []string{"Person"}, Props: values.Properties{"name": values.Text("Ada")}},
		{Labels: []string{"Person"}, Props: values.Properties{"name": values.Text("Alan")}},
		{Labels: []string{"Person"}, Props: values.Properties{"name": values.Text("Grace")}},
	}
	nodes, err := db.BatchCreateNodes(specs, nil)
	require.NoError(t, err)
	require.Len(t, nodes, 3)
	assert.Equal(t, []int64{1, 2, 3}, []int64{nodes[0].ID, nodes[1].ID, nodes[2].ID})
}

func TestBatchCreateRelsStopsAtFirstFailure(t *testing.T) {
	db := newTestDB(t)
	a, err := db.CreateNode([]string{"Person"}, nil, nil)
	require.NoError(t, err)
	b, err := db.CreateNode([]string{"Person"}, nil, nil)
	require.NoError(t, err)

	specs := []RelSpec{
		{Start: a.ID, End: b.ID, Type: "KNOWS"},
		{Start: a.ID, End: 999, Type: "KNOWS"},
	}
	rels, err := db.BatchCreateRels(specs, nil)
	assert.Error(t, err)
	assert.Len(t, rels, 1)
}

func TestParallelCreateNodesPreservesOrderAndCount(t *testing.T) {
	db := newTestDB(t)
	specs := make([]NodeSpec, 20)
	for i := range specs {
		specs[i] = NodeSpec{Labels: []string{"Person"}, Props: values.Properties{"i": values.Int(int64(i))}}
	}

	results := db.ParallelCreateNodes(specs, 4)
	require.Len(t, results, 20)
	for i, r := range results {
		require.NoError(t, r.Err)
		assert.Equal(t, i, r.Index)
		v, _ := r.Node.Props["i"].AsInt()
		assert.Equal(t, int64(i), v)
	}

	count, err := db.NodeCount()
	require.NoError(t, err)
	assert.Equal(t, int64(20), count)
}

func TestStreamCreateNodesEmitsChunks(t *testing.T) {
	db := newTestDB(t)
	specs := make([]NodeSpec, 7)
	for i := range specs {
		specs[i] = NodeSpec{Labels: []string{"Person"}}
	}

	ch := db.StreamCreateNodes(specs, 3)
	var total int
	var chunkSizes []int
	for res := range ch {
		require.NoError(t, res.Err)
		chunkSizes = append(chunkSizes, len(res.Nodes))
		total += len(res.Nodes)
	}
	assert.Equal(t, 7, total)
	assert.Equal(t, []int{3, 3, 1}, chunkSizes)
}

func TestExportDOTIncludesNodesAndRels(t *testing.T) {
	db := newTestDB(t)
	a, err := db.CreateNode([]string{"Person"}, nil, nil)
	require.NoError(t, err)
	b, err := db.CreateNode([]string{"Person"}, nil, nil)
	require.NoError(t, err)
	_, err = db.CreateRel(a.ID, b.ID, "KNOWS", nil, nil)
	require.NoError(t, err)

	dot, err := db.ExportDOT()
	require.NoError(t, err)
	assert.Contains(t, dot, "digraph graphdb")
	assert.Contains(t, dot, "1 -> 2")
	assert.Contains(t, dot, `label="KNOWS"`)
}
