// Package cypher implements a Cypher-like query frontend over the
// graphdb facade (spec §4.7): a lexer and participle-driven parser
// producing an AST, and an executor that lowers
// MATCH/WHERE/WITH/RETURN/CREATE/MERGE/DELETE/SET/FOREACH/CALL clauses
// and BEGIN/COMMIT/ROLLBACK transaction statements directly onto
// pkg/graphdb (pkg/query is not used).
//
// Supported: MATCH and OPTIONAL MATCH with node/relationship patterns
// (including variable-length relationship hops `*min..max`, BFS'd with a
// per-path visited set per §9); comma-separated patterns in one MATCH
// intersect on any variable they share, not only a shared starting
// variable. WHERE with AND/OR/NOT/comparisons/parens/IN/IS [NOT] NULL/
// EXISTS/regex `=~`, WITH (with WHERE and AS; a WITH carrying ORDER BY/
// SKIP/LIMIT is parsed but rejected with an execution error),
// RETURN with DISTINCT/AS/ORDER BY/SKIP/LIMIT, aggregations (COUNT/SUM/
// AVG/MIN/MAX/COLLECT/STDEV/PERCENTILECONT/PERCENTILEDISC), CREATE,
// MERGE with ON CREATE SET/ON MATCH SET, DELETE/DETACH DELETE, SET,
// FOREACH (var IN [list] | updates) applying CREATE/MERGE/SET/DELETE per
// list item with the loop variable bound (items that don't resolve to a
// live node are skipped), CALL { subquery } with an optional IN (vars)
// clause (parsed but not yet used to scope visibility, matching the
// reference implementation), UNION/UNION ALL, and BEGIN|START/COMMIT/
// ROLLBACK [TRANSACTION].
package cypher
