package cypher

import (
	"fmt"
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

func userProps(name string, age int64, city string) values.Properties {
	return values.Properties{
		"name": values.Text(name),
		"age":  values.Int(age),
		"city": values.Text(city),
	}
}

func seedUsers(t *testing.T, db *graphdb.Database) (alice, bob, charlie int64) {
	t.Helper()
	a, err := db.CreateNode([]string{"User"}, userProps("Alice", 30, "NYC"), nil)
	require.NoError(t, err)
	b, err := db.CreateNode([]string{"User"}, userProps("Bob", 25, "LA"), nil)
	require.NoError(t, err)
	c, err := db.CreateNode([]string{"User"}, userProps("Charlie", 35, "NYC"), nil)
	require.NoError(t, err)
	return a.ID, b.ID, c.ID
}

func idsOf(t *testing.T, res *Result, col string) []int64 {
	t.Helper()
	var out []int64
	for _, r := range res.Rows {
		v, ok := r[col].AsInt()
		require.True(t, ok, "column %q is not an int id in row %v", col, r)
		out = append(out, v)
	}
	return out
}

func TestMatchFollowsRelationship(t *testing.T) {
	db := newTestDB(t)
	alice, err := db.CreateNode([]string{"User"}, userProps("Alice", 30, "NYC"), nil)
	require.NoError(t, err)
	bob, err := db.CreateNode([]string{"User"}, userProps("Bob", 25, "LA"), nil)
	require.NoError(t, err)
	_, err = db.CreateRel(alice.ID, bob.ID, "FRIEND", nil, nil)
	require.NoError(t, err)

	ex := NewExecutor(db)
	res, err := ex.Execute(`MATCH (a:User {name: 'Alice'})-[:FRIEND]->(b) RETURN b`)
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, []int64{bob.ID}, idsOf(t, res, "b"))
}

func TestMatchParsesPatternColumns(t *testing.T) {
	db := newTestDB(t)
	alice, err := db.CreateNode([]string{"User"}, userProps("Alice", 30, "NYC"), nil)
	require.NoError(t, err)
	bob, err := db.CreateNode([]string{"User"}, userProps("Bob", 25, "LA"), nil)
	require.NoError(t, err)
	_, err = db.CreateRel(alice.ID, bob.ID, "FRIEND", nil, nil)
	require.NoError(t, err)

	ex := NewExecutor(db)
	res, err := ex.Execute(`MATCH (a:User)-[:FRIEND]->(b:User) RETURN a, b`)
	require.NoError(t, err)
	require.Len(t, res.Columns, 2)
	require.Len(t, res.Rows, 1)
}

func TestWhereFiltersByProperty(t *testing.T) {
	db := newTestDB(t)
	alice, bob, _ := seedUsers(t, db)
	_ = bob

	ex := NewExecutor(db)
	res, err := ex.Execute(`MATCH (u:User) WHERE u.name = 'Alice' RETURN u`)
	require.NoError(t, err)
	assert.Equal(t, []int64{alice}, idsOf(t, res, "u"))
}

func TestWhereSupportsComparisonAndBoolean(t *testing.T) {
	db := newTestDB(t)
	_, _, charlie := seedUsers(t, db)

	ex := NewExecutor(db)
	res, err := ex.Execute(`MATCH (u:User) WHERE u.age > 30 AND u.city = 'NYC' RETURN u`)
	require.NoError(t, err)
	assert.Equal(t, []int64{charlie}, idsOf(t, res, "u"))
}

func TestWhereSupportsInList(t *testing.T) {
	db := newTestDB(t)
	alice, _, charlie := seedUsers(t, db)

	ex := NewExecutor(db)
	res, err := ex.Execute(`MATCH (u:User) WHERE u.name IN ['Alice', 'Charlie'] RETURN u`)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{alice, charlie}, idsOf(t, res, "u"))
}

func TestWhereSupportsRegex(t *testing.T) {
	db := newTestDB(t)
	alice, _, charlie := seedUsers(t, db)

	ex := NewExecutor(db)
	res, err := ex.Execute(`MATCH (u:User) WHERE u.name =~ 'A.*|C.*' RETURN u`)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{alice, charlie}, idsOf(t, res, "u"))
}

func TestOptionalMatchKeepsUnmatchedRow(t *testing.T) {
	db := newTestDB(t)
	alice, err := db.CreateNode([]string{"User"}, userProps("Alice", 30, "NYC"), nil)
	require.NoError(t, err)

	ex := NewExecutor(db)
	res, err := ex.Execute(`MATCH (a:User) OPTIONAL MATCH (a)-[:FRIEND]->(b) RETURN a, b.name`)
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, alice, mustInt(t, res.Rows[0]["a"]))
	assert.True(t, res.Rows[0]["b.name"].IsNull())
}

func mustInt(t *testing.T, v values.Value) int64 {
	t.Helper()
	n, ok := v.AsInt()
	require.True(t, ok)
	return n
}

func TestCreatePattern(t *testing.T) {
	db := newTestDB(t)
	ex := NewExecutor(db)
	res, err := ex.Execute(`CREATE (n:Person {name: 'David', age: 28})`)
	require.NoError(t, err)
	require.Equal(t, KindCreated, res.Kind)
	require.Len(t, res.Created.Nodes, 1)
	assert.Equal(t, values.Text("David"), res.Created.Nodes[0].Props["name"])
}

func TestCreateRelationshipChain(t *testing.T) {
	db := newTestDB(t)
	ex := NewExecutor(db)
	res, err := ex.Execute(`CREATE (a:Person {name: 'A'})-[:KNOWS]->(b:Person {name: 'B'})`)
	require.NoError(t, err)
	require.Len(t, res.Created.Nodes, 2)
	require.Len(t, res.Created.Rels, 1)
}

func TestMergeCreatesNewNode(t *testing.T) {
	db := newTestDB(t)
	seedUsers(t, db)
	ex := NewExecutor(db)
	res, err := ex.Execute(`MERGE (n:User {name: 'David', age: 28, city: 'SF'})`)
	require.NoError(t, err)
	require.Equal(t, KindCreated, res.Kind)
	require.Len(t, res.Created.Nodes, 1)
}

func TestMergeMatchesExistingNode(t *testing.T) {
	db := newTestDB(t)
	alice, _, _ := seedUsers(t, db)
	ex := NewExecutor(db)
	res, err := ex.Execute(`MERGE (n:User {name: 'Alice', age: 30, city: 'NYC'})`)
	require.NoError(t, err)
	require.Equal(t, KindNodes, res.Kind)
	n, err := db.NodeCount()
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	_ = alice
}

func TestMergeOnCreateSet(t *testing.T) {
	db := newTestDB(t)
	seedUsers(t, db)
	ex := NewExecutor(db)
	res, err := ex.Execute(`MERGE (n:User {name: 'David', age: 28, city: 'SF'}) ON CREATE SET n.status = 'new'`)
	require.NoError(t, err)
	require.Equal(t, KindCreated, res.Kind)
	node, err := db.GetNode(res.Created.Nodes[0].ID)
	require.NoError(t, err)
	assert.Equal(t, values.Text("new"), node.Props["status"])
}

func TestMergeOnMatchSet(t *testing.T) {
	db := newTestDB(t)
	alice, _, _ := seedUsers(t, db)
	ex := NewExecutor(db)
	res, err := ex.Execute(`MERGE (n:User {name: 'Alice', age: 30, city: 'NYC'}) ON MATCH SET n.status = 'existing'`)
	require.NoError(t, err)
	require.Equal(t, KindUpdated, res.Kind)
	node, err := db.GetNode(alice)
	require.NoError(t, err)
	assert.Equal(t, values.Text("existing"), node.Props["status"])
}

func TestSetUpdatesProperty(t *testing.T) {
	db := newTestDB(t)
	alice, _, _ := seedUsers(t, db)
	ex := NewExecutor(db)
	res, err := ex.Execute(`MATCH (u:User {name: 'Alice'}) SET u.city = 'SF'`)
	require.NoError(t, err)
	require.Equal(t, KindUpdated, res.Kind)
	node, err := db.GetNode(alice)
	require.NoError(t, err)
	assert.Equal(t, values.Text("SF"), node.Props["city"])
}

func TestDeleteRemovesNode(t *testing.T) {
	db := newTestDB(t)
	alice, _, _ := seedUsers(t, db)
	ex := NewExecutor(db)
	res, err := ex.Execute(`MATCH (u:User {name: 'Alice'}) DETACH DELETE u`)
	require.NoError(t, err)
	require.Equal(t, KindDeleted, res.Kind)
	assert.Contains(t, res.Deleted.Nodes, alice)
	_, err = db.GetNode(alice)
	assert.Error(t, err)
}

func TestUnionAllPreservesDuplicates(t *testing.T) {
	db := newTestDB(t)
	seedUsers(t, db)
	ex := NewExecutor(db)
	res, err := ex.Execute(`MATCH (u:User) WHERE u.city = 'NYC' RETURN u UNION ALL MATCH (u:User) WHERE u.age > 30 RETURN u`)
	require.NoError(t, err)
	assert.Len(t, res.Rows, 3)
}

func TestUnionDedupes(t *testing.T) {
	db := newTestDB(t)
	seedUsers(t, db)
	ex := NewExecutor(db)
	res, err := ex.Execute(`MATCH (u:User) WHERE u.city = 'NYC' RETURN u UNION MATCH (u:User) WHERE u.age > 30 RETURN u`)
	require.NoError(t, err)
	assert.Len(t, res.Rows, 2)
	ids := idsOf(t, res, "u")
	assert.Equal(t, len(ids), len(uniqueInts(ids)))
}

func uniqueInts(in []int64) []int64 {
	seen := map[int64]bool{}
	var out []int64
	for _, v := range in {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}

func TestAggregateCount(t *testing.T) {
	db := newTestDB(t)
	seedUsers(t, db)
	ex := NewExecutor(db)
	res, err := ex.Execute(`MATCH (u:User) RETURN COUNT(*) AS total`)
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, int64(3), mustInt(t, res.Rows[0]["total"]))
}

func TestAggregateAvg(t *testing.T) {
	db := newTestDB(t)
	seedUsers(t, db)
	ex := NewExecutor(db)
	res, err := ex.Execute(`MATCH (u:User) RETURN AVG(u.age) AS avgAge`)
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	f, ok := res.Rows[0]["avgAge"].AsFloat()
	require.True(t, ok)
	assert.InDelta(t, 30.0, f, 0.001)
}

func TestReturnDistinctOrderByLimit(t *testing.T) {
	db := newTestDB(t)
	seedUsers(t, db)
	ex := NewExecutor(db)
	res, err := ex.Execute(`MATCH (u:User) RETURN DISTINCT u.city AS city ORDER BY city LIMIT 2`)
	require.NoError(t, err)
	require.Len(t, res.Rows, 2)
	first, _ := res.Rows[0]["city"].AsText()
	second, _ := res.Rows[1]["city"].AsText()
	assert.True(t, first <= second)
}

func TestVariableLengthPathFindsDistinctEndpoints(t *testing.T) {
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

	ex := NewExecutor(db)
	res, err := ex.Execute(`MATCH (a:Person)-[:KNOWS*1..2]->(x) RETURN x`)
	require.NoError(t, err)
	ids := idsOf(t, res, "x")
	assert.ElementsMatch(t, []int64{b.ID, c.ID}, uniqueInts(ids))
}

func TestTransactionLifecycle(t *testing.T) {
	db := newTestDB(t)
	ex := NewExecutor(db)

	res, err := ex.Execute(`BEGIN TRANSACTION`)
	require.NoError(t, err)
	assert.Equal(t, KindTxStarted, res.Kind)

	res, err = ex.Execute(`COMMIT`)
	require.NoError(t, err)
	assert.Equal(t, KindTxCommitted, res.Kind)

	_, err = ex.Execute(`ROLLBACK`)
	assert.Error(t, err)
}

func TestParseRejectsGarbage(t *testing.T) {
	_, err := Parse(`THIS IS NOT CYPHER !!!`)
	assert.Error(t, err)
}

func TestMultiplePatternsIntersectOnSharedNonStartVariable(t *testing.T) {
	db := newTestDB(t)
	a, err := db.CreateNode([]string{"Person"}, userProps("Alice", 30, "NYC"), nil)
	require.NoError(t, err)
	b, err := db.CreateNode([]string{"Person"}, userProps("Bob", 25, "LA"), nil)
	require.NoError(t, err)
	c, err := db.CreateNode([]string{"Person"}, userProps("Charlie", 35, "NYC"), nil)
	require.NoError(t, err)
	// a -> b, c -> b: every row the join keeps must have the second
	// pattern's endpoint (b) agree with the first pattern's endpoint (b),
	// so y can only be a or c (whichever also points at b), never
	// something unrelated to b.
	_, err = db.CreateRel(a.ID, b.ID, "KNOWS", nil, nil)
	require.NoError(t, err)
	_, err = db.CreateRel(c.ID, b.ID, "KNOWS", nil, nil)
	require.NoError(t, err)

	ex := NewExecutor(db)
	res, err := ex.Execute(`MATCH (x:Person)-[:KNOWS]->(b:Person), (y:Person)-[:KNOWS]->(b) WHERE x.name = 'Alice' RETURN y`)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{a.ID, c.ID}, idsOf(t, res, "y"))
}

func TestMultiplePatternsRejectMismatchedSharedVariable(t *testing.T) {
	db := newTestDB(t)
	a, err := db.CreateNode([]string{"Person"}, userProps("Alice", 30, "NYC"), nil)
	require.NoError(t, err)
	b, err := db.CreateNode([]string{"Person"}, userProps("Bob", 25, "LA"), nil)
	require.NoError(t, err)
	c, err := db.CreateNode([]string{"Person"}, userProps("Charlie", 35, "NYC"), nil)
	require.NoError(t, err)
	d, err := db.CreateNode([]string{"Person"}, userProps("David", 28, "SF"), nil)
	require.NoError(t, err)
	// a -[:KNOWS]-> b, c -[:LIVES_IN]-> d: the two patterns share `m` as
	// their endpoint, but no single node is reachable via both relation
	// types, so the join must produce nothing.
	_, err = db.CreateRel(a.ID, b.ID, "KNOWS", nil, nil)
	require.NoError(t, err)
	_, err = db.CreateRel(c.ID, d.ID, "LIVES_IN", nil, nil)
	require.NoError(t, err)

	ex := NewExecutor(db)
	res, err := ex.Execute(`MATCH (x:Person)-[:KNOWS]->(m:Person), (y:Person)-[:LIVES_IN]->(m) RETURN x, y`)
	require.NoError(t, err)
	assert.Empty(t, res.Rows)
}

func TestForeachSetsPropertyOnEachListItem(t *testing.T) {
	db := newTestDB(t)
	a, err := db.CreateNode([]string{"Person"}, userProps("Alice", 30, "NYC"), nil)
	require.NoError(t, err)
	b, err := db.CreateNode([]string{"Person"}, userProps("Bob", 25, "LA"), nil)
	require.NoError(t, err)

	ex := NewExecutor(db)
	query := fmt.Sprintf(`FOREACH (x IN [%d, %d, 999999] | SET x.visited = true)`, a.ID, b.ID)
	res, err := ex.Execute(query)
	require.NoError(t, err)
	require.Equal(t, KindUpdated, res.Kind)
	assert.Len(t, res.Updated.Nodes, 2)

	na, err := db.GetNode(a.ID)
	require.NoError(t, err)
	assert.Equal(t, values.Bool(true), na.Props["visited"])
	nb, err := db.GetNode(b.ID)
	require.NoError(t, err)
	assert.Equal(t, values.Bool(true), nb.Props["visited"])
}

func TestForeachSkipsItemsThatDoNotResolveToLiveNodes(t *testing.T) {
	db := newTestDB(t)
	ex := NewExecutor(db)
	res, err := ex.Execute(`FOREACH (x IN [123456] | SET x.flag = true)`)
	require.NoError(t, err)
	assert.Equal(t, KindNodes, res.Kind)
	assert.Empty(t, res.Updated.Nodes)
}

func TestForeachUsesMatchedVariable(t *testing.T) {
	db := newTestDB(t)
	alice, _, _ := seedUsers(t, db)

	ex := NewExecutor(db)
	res, err := ex.Execute(`MATCH (u:User {name: 'Alice'}) FOREACH (x IN [u] | SET x.flag = true)`)
	require.NoError(t, err)
	require.Equal(t, KindUpdated, res.Kind)
	node, err := db.GetNode(alice)
	require.NoError(t, err)
	assert.Equal(t, values.Bool(true), node.Props["flag"])
}

func TestCallSubqueryRunsIndependentlyOfOuterBindings(t *testing.T) {
	db := newTestDB(t)
	alice, _, charlie := seedUsers(t, db)

	ex := NewExecutor(db)
	res, err := ex.Execute(`CALL { MATCH (p:User) WHERE p.age > 28 RETURN p } RETURN p`)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{alice, charlie}, idsOf(t, res, "p"))
}

func TestCallSubqueryWithAggregation(t *testing.T) {
	db := newTestDB(t)
	seedUsers(t, db)

	ex := NewExecutor(db)
	res, err := ex.Execute(`CALL { MATCH (p:User) RETURN COUNT(*) AS total } RETURN total`)
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, int64(3), mustInt(t, res.Rows[0]["total"]))
}

func TestCallSubqueryWithOrderByAndLimit(t *testing.T) {
	db := newTestDB(t)
	seedUsers(t, db)

	ex := NewExecutor(db)
	res, err := ex.Execute(`CALL { MATCH (p:User) RETURN p.age AS age ORDER BY age DESC LIMIT 2 } RETURN age`)
	require.NoError(t, err)
	require.Len(t, res.Rows, 2)
	assert.Equal(t, int64(35), mustInt(t, res.Rows[0]["age"]))
	assert.Equal(t, int64(30), mustInt(t, res.Rows[1]["age"]))
}

func TestCallParsesOptionalInClause(t *testing.T) {
	db := newTestDB(t)
	seedUsers(t, db)

	ex := NewExecutor(db)
	res, err := ex.Execute(`CALL { MATCH (p:User) RETURN p } IN (p) RETURN p`)
	require.NoError(t, err)
	assert.Len(t, res.Rows, 3)
}
