package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/graphdb/pkg/graphdb"
	"github.com/cuemby/graphdb/pkg/values"
)

func newTestDB(t *testing.T) *graphdb.Database {
	t.Helper()
	db, err := graphdb.NewDatabase(graphdb.DefaultConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestFromLabelAndWherePropIntGt(t *testing.T) {
	db := newTestDB(t)
	_, err := db.CreateNode([]string{"Person"}, values.Properties{"age": values.Int(20)}, nil)
	require.NoError(t, err)
	_, err = db.CreateNode([]string{"Person"}, values.Properties{"age": values.Int(40)}, nil)
	require.NoError(t, err)
	_, err = db.CreateNode([]string{"Company"}, values.Properties{"age": values.Int(99)}, nil)
	require.NoError(t, err)

	nodes, err := New(db).FromLabel("Person").WherePropIntGt("age", 30).CollectNodes()
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	v, _ := nodes[0].Props["age"].AsInt()
	assert.Equal(t, int64(40), v)
}

func TestOutHopFollowsRelType(t *testing.T) {
	db := newTestDB(t)
	a, err := db.CreateNode([]string{"Person"}, nil, nil)
	require.NoError(t, err)
	b, err := db.CreateNode([]string{"Person"}, nil, nil)
	require.NoError(t, err)
	c, err := db.CreateNode([]string{"Person"}, nil, nil)
	require.NoError(t, err)
	_, err = db.CreateRel(a.ID, b.ID, "KNOWS", nil, nil)
	require.NoError(t, err)
	_, err = db.CreateRel(a.ID, c.ID, "BLOCKS", nil, nil)
	require.NoError(t, err)

	nodes, err := New(db).FromLabel("Person").WherePropEq("__never__", values.Bool(true)).CollectNodes()
	require.NoError(t, err)
	assert.Empty(t, nodes)

	p := New(db)
	p.ids = []int64{a.ID}
	nodes, err = p.Out("KNOWS").CollectNodes()
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	assert.Equal(t, b.ID, nodes[0].ID)
}

func TestDistinctRemovesDuplicates(t *testing.T) {
	db := newTestDB(t)
	a, err := db.CreateNode([]string{"Person"}, nil, nil)
	require.NoError(t, err)
	b, err := db.CreateNode([]string{"Person"}, nil, nil)
	require.NoError(t, err)
	_, err = db.CreateRel(a.ID, b.ID, "KNOWS", nil, nil)
	require.NoError(t, err)
	_, err = db.CreateRel(a.ID, b.ID, "KNOWS", nil, nil)
	require.NoError(t, err)

	p := New(db)
	p.ids = []int64{a.ID}
	count, err := p.Out("KNOWS").Distinct().Count()
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestOrderBySkipLimit(t *testing.T) {
	db := newTestDB(t)
	ages := []int64{30, 10, 50, 20, 40}
	for _, age := range ages {
		_, err := db.CreateNode([]string{"Person"}, values.Properties{"age": values.Int(age)}, nil)
		require.NoError(t, err)
	}

	nodes, err := New(db).FromLabel("Person").OrderBy("age", true).Paginate(1, 2).CollectNodes()
	require.NoError(t, err)
	require.Len(t, nodes, 2)
	v0, _ := nodes[0].Props["age"].AsInt()
	v1, _ := nodes[1].Props["age"].AsInt()
	assert.Equal(t, []int64{20, 30}, []int64{v0, v1})
}

func TestPercentileContMedian(t *testing.T) {
	db := newTestDB(t)
	for _, score := range []int64{60, 70, 80, 90, 100} {
		_, err := db.CreateNode([]string{"Score"}, values.Properties{"score": values.Int(score)}, nil)
		require.NoError(t, err)
	}

	v, err := New(db).FromLabel("Score").PercentileCont("score", 0.5)
	require.NoError(t, err)
	f, ok := v.AsFloat()
	require.True(t, ok)
	assert.InDelta(t, 80, f, 1e-9)
}

func TestVarianceAndStdev(t *testing.T) {
	db := newTestDB(t)
	for _, age := range []int64{20, 25, 30, 35, 40} {
		_, err := db.CreateNode([]string{"Person"}, values.Properties{"age": values.Int(age)}, nil)
		require.NoError(t, err)
	}

	variance, err := New(db).FromLabel("Person").Variance("age")
	require.NoError(t, err)
	vf, _ := variance.AsFloat()
	assert.InDelta(t, 62.5, vf, 1e-9)

	stdev, err := New(db).FromLabel("Person").Stdev("age")
	require.NoError(t, err)
	sf, _ := stdev.AsFloat()
	assert.InDelta(t, 7.9057, sf, 1e-3)
}

func TestVarianceNullBelowTwoSamples(t *testing.T) {
	db := newTestDB(t)
	_, err := db.CreateNode([]string{"Person"}, values.Properties{"age": values.Int(10)}, nil)
	require.NoError(t, err)

	v, err := New(db).FromLabel("Person").Variance("age")
	require.NoError(t, err)
	assert.True(t, v.IsNull())
}

func TestPercentileContInvalidPctIsNull(t *testing.T) {
	db := newTestDB(t)
	_, err := db.CreateNode([]string{"Score"}, values.Properties{"score": values.Int(10)}, nil)
	require.NoError(t, err)

	v, err := New(db).FromLabel("Score").PercentileCont("score", 1.5)
	require.NoError(t, err)
	assert.True(t, v.IsNull())
}

func TestCollectNodesCachedPopulatesAndServesCache(t *testing.T) {
	db := newTestDB(t)
	_, err := db.CreateNode([]string{"Person"}, values.Properties{"age": values.Int(10)}, nil)
	require.NoError(t, err)

	first, err := NewCached(db).FromLabel("Person").CollectNodesCached()
	require.NoError(t, err)
	require.Len(t, first, 1)

	stats := db.QueryCache().Stats()
	assert.Equal(t, int64(1), stats.Entries)

	second, err := NewCached(db).FromLabel("Person").CollectNodesCached()
	require.NoError(t, err)
	assert.Equal(t, first[0].ID, second[0].ID)
	assert.GreaterOrEqual(t, db.QueryCache().Stats().Hits, int64(1))
}

func TestFromLabelAndPropEqUsesExactIndex(t *testing.T) {
	db := newTestDB(t)
	_, err := db.CreateNode([]string{"Person"}, values.Properties{"city": values.Text("London")}, nil)
	require.NoError(t, err)
	_, err = db.CreateNode([]string{"Person"}, values.Properties{"city": values.Text("Paris")}, nil)
	require.NoError(t, err)

	nodes, err := New(db).FromLabelAndPropEq("Person", "city", values.Text("Paris")).CollectNodes()
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	city, _ := nodes[0].Props["city"].AsText()
	assert.Equal(t, "Paris", city)
}
