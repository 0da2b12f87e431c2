package graphdb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/graphdb/pkg/constraints"
	"github.com/cuemby/graphdb/pkg/values"
)

func newTestDB(t *testing.T) *Database {
	t.Helper()
	db, err := NewDatabase(DefaultConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestCreateAndGetNode(t *testing.T) {
	db := newTestDB(t)
	n, err := db.CreateNode([]string{"Person"}, values.Properties{"name": values.Text("Ada")}, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n.ID)

	got, err := db.GetNode(n.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ada", mustText(t, got.Props["name"]))
}

func TestGetNodeMissingIsNotFound(t *testing.T) {
	db := newTestDB(t)
	_, err := db.GetNode(999)
	assert.Error(t, err)
}

func TestUniqueConstraintRejectsDuplicate(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, db.AddConstraint(constraints.KindUnique, "Person", "email"))

	_, err := db.CreateNode([]string{"Person"}, values.Properties{"email": values.Text("a@x.com")}, nil)
	require.NoError(t, err)

	_, err = db.CreateNode([]string{"Person"}, values.Properties{"email": values.Text("a@x.com")}, nil)
	assert.Error(t, err)
}

func TestExistenceConstraintRejectsMissingProp(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, db.AddConstraint(constraints.KindExistence, "Person", "name"))

	_, err := db.CreateNode([]string{"Person"}, values.Properties{}, nil)
	assert.Error(t, err)
}

func TestUpdateNodePropsExcludesSelfFromUniqueCheck(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, db.AddConstraint(constraints.KindUnique, "Person", "email"))

	n, err := db.CreateNode([]string{"Person"}, values.Properties{"email": values.Text("a@x.com")}, nil)
	require.NoError(t, err)

	updated, err := db.UpdateNodeProps(n.ID, values.Properties{"email": values.Text("a@x.com")}, nil)
	require.NoError(t, err, "re-saving a node's own unique value must not collide with itself")
	assert.Equal(t, "a@x.com", mustText(t, updated.Props["email"]))
}

func TestCreateRelRequiresBothEndpoints(t *testing.T) {
	db := newTestDB(t)
	a, err := db.CreateNode([]string{"Person"}, nil, nil)
	require.NoError(t, err)

	_, err = db.CreateRel(a.ID, 999, "KNOWS", nil, nil)
	assert.Error(t, err)
}

func TestDeleteNodeCascadesAndInvalidatesAdjacencyCache(t *testing.T) {
	db := newTestDB(t)
	a, err := db.CreateNode([]string{"Person"}, nil, nil)
	require.NoError(t, err)
	b, err := db.CreateNode([]string{"Person"}, nil, nil)
	require.NoError(t, err)
	_, err = db.CreateRel(a.ID, b.ID, "KNOWS", nil, nil)
	require.NoError(t, err)

	// Warm b's In-adjacency cache entry before deleting a.
	_, err = db.In(b.ID)
	require.NoError(t, err)

	require.NoError(t, db.DeleteNode(a.ID, nil))

	_, err = db.GetNode(a.ID)
	assert.Error(t, err)

	inIDs, err := db.In(b.ID)
	require.NoError(t, err)
	assert.Empty(t, inIDs, "deleting a must clear b's incoming relationship")
}

func TestCreateNodeRollbackRemovesNode(t *testing.T) {
	db := newTestDB(t)
	tx := db.BeginTxn("read_committed")

	n, err := db.CreateNode([]string{"Person"}, values.Properties{"name": values.Text("Ada")}, tx)
	require.NoError(t, err)

	require.NoError(t, db.RollbackTxn(tx))

	_, err = db.GetNode(n.ID)
	assert.Error(t, err, "rolled-back create must be undone")
}

func TestDeleteNodeRollbackRestoresNodeAndRel(t *testing.T) {
	db := newTestDB(t)
	a, err := db.CreateNode([]string{"Person"}, values.Properties{"name": values.Text("Ada")}, nil)
	require.NoError(t, err)
	b, err := db.CreateNode([]string{"Person"}, nil, nil)
	require.NoError(t, err)
	rel, err := db.CreateRel(a.ID, b.ID, "KNOWS", nil, nil)
	require.NoError(t, err)

	tx := db.BeginTxn("read_committed")
	require.NoError(t, db.DeleteNode(a.ID, tx))
	require.NoError(t, db.RollbackTxn(tx))

	restored, err := db.GetNode(a.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ada", mustText(t, restored.Props["name"]))

	_, err = db.GetRel(rel.ID)
	assert.NoError(t, err, "the incident relationship must also be restored")
}

func TestNodeCacheServesRepeatedGet(t *testing.T) {
	db := newTestDB(t)
	n, err := db.CreateNode([]string{"Person"}, nil, nil)
	require.NoError(t, err)

	_, err = db.GetNode(n.ID)
	require.NoError(t, err)
	stats := db.nodeCache.Stats()
	assert.GreaterOrEqual(t, stats.Hits, int64(1))
}

func mustText(t *testing.T, v values.Value) string {
	t.Helper()
	s, ok := v.AsText()
	require.True(t, ok)
	return s
}
