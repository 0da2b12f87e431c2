package algo

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

// diamond builds a -> b -> d, a -> c -> d, all :KNOWS.
func diamond(t *testing.T, db *graphdb.Database) (a, b, c, d int64) {
	t.Helper()
	na, err := db.CreateNode([]string{"Person"}, nil, nil)
	require.NoError(t, err)
	nb, err := db.CreateNode([]string{"Person"}, nil, nil)
	require.NoError(t, err)
	nc, err := db.CreateNode([]string{"Person"}, nil, nil)
	require.NoError(t, err)
	nd, err := db.CreateNode([]string{"Person"}, nil, nil)
	require.NoError(t, err)
	_, err = db.CreateRel(na.ID, nb.ID, "KNOWS", nil, nil)
	require.NoError(t, err)
	_, err = db.CreateRel(nb.ID, nd.ID, "KNOWS", nil, nil)
	require.NoError(t, err)
	_, err = db.CreateRel(na.ID, nc.ID, "KNOWS", nil, nil)
	require.NoError(t, err)
	_, err = db.CreateRel(nc.ID, nd.ID, "KNOWS", nil, nil)
	require.NoError(t, err)
	return na.ID, nb.ID, nc.ID, nd.ID
}

func TestBFSShortestPath(t *testing.T) {
	db := newTestDB(t)
	a, _, _, d := diamond(t, db)

	path, found, err := BFS(db, a, d)
	require.NoError(t, err)
	require.True(t, found)
	assert.Len(t, path, 3)
	assert.Equal(t, a, path[0])
	assert.Equal(t, d, path[len(path)-1])
}

func TestBFSSameNodeIsSingleton(t *testing.T) {
	db := newTestDB(t)
	a, _, _, _ := diamond(t, db)
	path, found, err := BFS(db, a, a)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, []int64{a}, path)
}

func TestBFSUnreachableReturnsNotFound(t *testing.T) {
	db := newTestDB(t)
	a, err := db.CreateNode([]string{"Person"}, nil, nil)
	require.NoError(t, err)
	b, err := db.CreateNode([]string{"Person"}, nil, nil)
	require.NoError(t, err)

	_, found, err := BFS(db, a.ID, b.ID)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestAllShortestPathsFindsBothDiamondRoutes(t *testing.T) {
	db := newTestDB(t)
	a, b, c, d := diamond(t, db)

	paths, err := AllShortestPaths(db, a, d)
	require.NoError(t, err)
	require.Len(t, paths, 2)
	for _, p := range paths {
		assert.Len(t, p, 3)
	}
	viaB := []int64{a, b, d}
	viaC := []int64{a, c, d}
	assert.ElementsMatch(t, [][]int64{viaB, viaC}, paths)
}

func TestDijkstraUsesWeightProperty(t *testing.T) {
	db := newTestDB(t)
	a, err := db.CreateNode([]string{"Stop"}, nil, nil)
	require.NoError(t, err)
	b, err := db.CreateNode([]string{"Stop"}, nil, nil)
	require.NoError(t, err)
	c, err := db.CreateNode([]string{"Stop"}, nil, nil)
	require.NoError(t, err)
	_, err = db.CreateRel(a.ID, c.ID, "ROAD", values.Properties{"weight": values.Float(10)}, nil)
	require.NoError(t, err)
	_, err = db.CreateRel(a.ID, b.ID, "ROAD", values.Properties{"weight": values.Float(1)}, nil)
	require.NoError(t, err)
	_, err = db.CreateRel(b.ID, c.ID, "ROAD", values.Properties{"weight": values.Float(1)}, nil)
	require.NoError(t, err)

	path, cost, found, err := Dijkstra(db, a.ID, c.ID)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, []int64{a.ID, b.ID, c.ID}, path)
	assert.InDelta(t, 2, cost, 1e-9)
}

func TestAStarWithEuclideanHeuristicMatchesDijkstraCost(t *testing.T) {
	db := newTestDB(t)
	a, err := db.CreateNode([]string{"Stop"}, values.Properties{"x": values.Float(0), "y": values.Float(0)}, nil)
	require.NoError(t, err)
	b, err := db.CreateNode([]string{"Stop"}, values.Properties{"x": values.Float(1), "y": values.Float(0)}, nil)
	require.NoError(t, err)
	c, err := db.CreateNode([]string{"Stop"}, values.Properties{"x": values.Float(2), "y": values.Float(0)}, nil)
	require.NoError(t, err)
	_, err = db.CreateRel(a.ID, b.ID, "ROAD", nil, nil)
	require.NoError(t, err)
	_, err = db.CreateRel(b.ID, c.ID, "ROAD", nil, nil)
	require.NoError(t, err)

	h := EuclideanHeuristic(db, c.ID)
	path, cost, found, err := AStar(db, a.ID, c.ID, h)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, []int64{a.ID, b.ID, c.ID}, path)
	assert.InDelta(t, 2, cost, 1e-9)
}

func TestDegreeCentralityNormalizesByNMinusOne(t *testing.T) {
	db := newTestDB(t)
	a, b, c, _ := diamond(t, db)
	_ = c
	centrality, err := DegreeCentrality(db)
	require.NoError(t, err)
	assert.InDelta(t, 2.0/3.0, centrality[a], 1e-9)
	assert.InDelta(t, 1.0/3.0, centrality[b], 1e-9)
}

func TestPageRankSumsToOne(t *testing.T) {
	db := newTestDB(t)
	diamond(t, db)
	ranks, err := PageRank(db, 0.85, 50)
	require.NoError(t, err)
	var sum float64
	for _, r := range ranks {
		sum += r
	}
	assert.InDelta(t, 1.0, sum, 1e-6)
}

func TestConnectedComponentsMergesDiamond(t *testing.T) {
	db := newTestDB(t)
	a, b, c, d := diamond(t, db)
	isolated, err := db.CreateNode([]string{"Person"}, nil, nil)
	require.NoError(t, err)

	components, err := ConnectedComponents(db)
	require.NoError(t, err)
	assert.Equal(t, components[a], components[b])
	assert.Equal(t, components[a], components[c])
	assert.Equal(t, components[a], components[d])
	assert.NotEqual(t, components[a], components[isolated.ID])
}

func TestSCCSeparatesDiamondIntoSingletons(t *testing.T) {
	db := newTestDB(t)
	a, b, c, d := diamond(t, db)
	scc, err := SCC(db)
	require.NoError(t, err)
	// a diamond DAG has no cycles: every node is its own SCC.
	assert.NotEqual(t, scc[a], scc[b])
	assert.NotEqual(t, scc[b], scc[d])
	assert.NotEqual(t, scc[c], scc[d])
}

func TestSCCDetectsCycle(t *testing.T) {
	db := newTestDB(t)
	a, err := db.CreateNode([]string{"Person"}, nil, nil)
	require.NoError(t, err)
	b, err := db.CreateNode([]string{"Person"}, nil, nil)
	require.NoError(t, err)
	_, err = db.CreateRel(a.ID, b.ID, "KNOWS", nil, nil)
	require.NoError(t, err)
	_, err = db.CreateRel(b.ID, a.ID, "KNOWS", nil, nil)
	require.NoError(t, err)

	scc, err := SCC(db)
	require.NoError(t, err)
	assert.Equal(t, scc[a.ID], scc[b.ID])
}

func TestKCorePeelsLowDegreeNodes(t *testing.T) {
	db := newTestDB(t)
	a, b, c, d := diamond(t, db)
	leaf, err := db.CreateNode([]string{"Person"}, nil, nil)
	require.NoError(t, err)
	_, err = db.CreateRel(a, leaf.ID, "KNOWS", nil, nil)
	require.NoError(t, err)

	survivors, err := KCore(db, 2)
	require.NoError(t, err)
	_, leafSurvives := survivors[leaf.ID]
	assert.False(t, leafSurvives, "degree-1 leaf must be peeled at k=2")
	_, aSurvives := survivors[a]
	_, bSurvives := survivors[b]
	_, cSurvives := survivors[c]
	_, dSurvives := survivors[d]
	assert.True(t, aSurvives && bSurvives && cSurvives && dSurvives)
}

func TestTriangleCountFindsSingleTriangle(t *testing.T) {
	db := newTestDB(t)
	a, err := db.CreateNode([]string{"Person"}, nil, nil)
	require.NoError(t, err)
	b, err := db.CreateNode([]string{"Person"}, nil, nil)
	require.NoError(t, err)
	c, err := db.CreateNode([]string{"Person"}, nil, nil)
	require.NoError(t, err)
	_, err = db.CreateRel(a.ID, b.ID, "KNOWS", nil, nil)
	require.NoError(t, err)
	_, err = db.CreateRel(b.ID, c.ID, "KNOWS", nil, nil)
	require.NoError(t, err)
	_, err = db.CreateRel(c.ID, a.ID, "KNOWS", nil, nil)
	require.NoError(t, err)

	stats, err := TriangleCount(db)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Total)
	assert.Equal(t, 1, stats.PerNode[a.ID])
	assert.InDelta(t, 1.0, stats.LocalClustering[a.ID], 1e-9)
	assert.InDelta(t, 1.0, stats.GlobalClustering, 1e-9)
}

func TestLouvainGroupsDenseTriangleTogether(t *testing.T) {
	db := newTestDB(t)
	a, err := db.CreateNode([]string{"Person"}, nil, nil)
	require.NoError(t, err)
	b, err := db.CreateNode([]string{"Person"}, nil, nil)
	require.NoError(t, err)
	c, err := db.CreateNode([]string{"Person"}, nil, nil)
	require.NoError(t, err)
	_, err = db.CreateRel(a.ID, b.ID, "KNOWS", nil, nil)
	require.NoError(t, err)
	_, err = db.CreateRel(b.ID, c.ID, "KNOWS", nil, nil)
	require.NoError(t, err)
	_, err = db.CreateRel(c.ID, a.ID, "KNOWS", nil, nil)
	require.NoError(t, err)

	communities, err := Louvain(db, 10)
	require.NoError(t, err)
	assert.Equal(t, communities[a.ID], communities[b.ID])
	assert.Equal(t, communities[b.ID], communities[c.ID])
}
