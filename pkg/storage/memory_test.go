package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/graphdb/pkg/graph"
	"github.com/cuemby/graphdb/pkg/values"
)

func TestMemoryEngineNodeLifecycle(t *testing.T) {
	e := NewMemoryEngine()

	id, err := e.PutNode(0, []string{"Person", "Person"}, values.Properties{"name": values.Text("Ada")})
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)

	n, ok, err := e.GetNode(id)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []string{"Person"}, n.Labels)
	assert.Equal(t, "Ada", n.Props["name"].String())

	updated, err := e.UpdateNodeProps(id, values.Properties{"age": values.Int(36)})
	require.NoError(t, err)
	assert.True(t, updated)

	n, _, _ = e.GetNode(id)
	assert.Equal(t, "Ada", n.Props["name"].String())
	age, _ := n.Props["age"].AsInt()
	assert.Equal(t, int64(36), age)

	deleted, err := e.DeleteNode(id)
	require.NoError(t, err)
	assert.True(t, deleted)

	_, ok, _ = e.GetNode(id)
	assert.False(t, ok)
}

func TestMemoryEngineRelAdjacencyAndCascadeDelete(t *testing.T) {
	e := NewMemoryEngine()
	a, _ := e.PutNode(0, []string{"Person"}, nil)
	b, _ := e.PutNode(0, []string{"Person"}, nil)

	relID, err := e.PutRel(0, a, b, "KNOWS", values.Properties{"since": values.Int(2020)})
	require.NoError(t, err)

	out, err := e.Out(a)
	require.NoError(t, err)
	assert.Equal(t, []int64{relID}, out)

	in, err := e.In(b)
	require.NoError(t, err)
	assert.Equal(t, []int64{relID}, in)

	_, err = e.PutRel(0, a, 999, "KNOWS", nil)
	assert.Error(t, err)

	_, err = e.DeleteNode(a)
	require.NoError(t, err)

	_, ok, _ := e.GetRel(relID)
	assert.False(t, ok, "deleting a node must cascade-delete its incident relationships")

	in, _ = e.In(b)
	assert.Empty(t, in)
}

func TestMemoryEngineTransactionDiscipline(t *testing.T) {
	e := NewMemoryEngine()

	tx, err := e.Begin()
	require.NoError(t, err)

	_, err = e.Begin()
	assert.Error(t, err, "a second concurrent Begin on the same handle must fail")

	require.NoError(t, tx.Commit())
	assert.Error(t, tx.Commit(), "double commit must fail")

	tx2, err := e.Begin()
	require.NoError(t, err)
	require.NoError(t, tx2.Rollback())
	assert.Error(t, tx2.Rollback(), "rollback of an already-finished transaction must fail")
}

func TestMemoryEngineIterationAndCounts(t *testing.T) {
	e := NewMemoryEngine()
	for i := 0; i < 5; i++ {
		_, _ = e.PutNode(0, []string{"Item"}, nil)
	}
	n, err := e.NodeCount()
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)

	seen := 0
	err = e.IterNodes(func(node *graph.Node) error {
		seen++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 5, seen)
}
