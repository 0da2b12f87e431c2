package cypher

import (
	"regexp"
	"sort"
	"strings"

	"github.com/cuemby/graphdb/internal/gderrors"
	"github.com/cuemby/graphdb/pkg/graph"
	"github.com/cuemby/graphdb/pkg/graphdb"
	"github.com/cuemby/graphdb/pkg/txn"
	"github.com/cuemby/graphdb/pkg/values"
)

// Executor runs parsed statements against a Database, carrying at most
// one active transaction across calls (spec §4.9).
type Executor struct {
	db *graphdb.Database
	tx *txn.Transaction
}

// NewExecutor builds an Executor bound to db.
func NewExecutor(db *graphdb.Database) *Executor {
	return &Executor{db: db}
}

// Execute parses and runs a single statement.
func (e *Executor) Execute(query string) (*Result, error) {
	stmt, err := Parse(query)
	if err != nil {
		return nil, gderrors.ParseErrorAt(0, err.Error())
	}
	if stmt.Tx != nil {
		return e.execTx(stmt.Tx)
	}
	return e.execQueryStatement(stmt.Query)
}

func (e *Executor) execTx(t *TxStatement) (*Result, error) {
	switch strings.ToUpper(t.Kind) {
	case "BEGIN", "START":
		if e.tx != nil {
			return nil, gderrors.TransactionError("a transaction is already active")
		}
		e.tx = e.db.BeginTxn("read_committed")
		return &Result{Kind: KindTxStarted}, nil
	case "COMMIT":
		if e.tx == nil {
			return nil, gderrors.TransactionError("no active transaction to commit")
		}
		if err := e.db.CommitTxn(e.tx); err != nil {
			return nil, err
		}
		e.tx = nil
		return &Result{Kind: KindTxCommitted}, nil
	case "ROLLBACK":
		if e.tx == nil {
			return nil, gderrors.TransactionError("no active transaction to roll back")
		}
		if err := e.db.RollbackTxn(e.tx); err != nil {
			return nil, err
		}
		e.tx = nil
		return &Result{Kind: KindTxRolledBack}, nil
	default:
		return nil, gderrors.ExecutionError("unknown transaction statement " + t.Kind)
	}
}

func (e *Executor) execQueryStatement(qs *QueryStatement) (*Result, error) {
	res, err := e.execQuery(qs.First)
	if err != nil {
		return nil, err
	}
	for _, u := range qs.Unions {
		rhs, err := e.execQuery(u.Query)
		if err != nil {
			return nil, err
		}
		res = unionResults(res, rhs, u.All)
	}
	return res, nil
}

// unionResults combines two row-shaped results per spec §4.7: UNION
// dedupes by row content, UNION ALL concatenates preserving order
// (left before right). Non-row results (Created/Updated/Deleted) from
// the right side are ignored; unioning mutations isn't meaningful.
func unionResults(left, right *Result, all bool) *Result {
	if left.Kind != KindNodes || right.Kind != KindNodes {
		return left
	}
	out := &Result{Kind: KindNodes, Columns: left.Columns}
	out.Rows = append(out.Rows, left.Rows...)
	if all {
		out.Rows = append(out.Rows, right.Rows...)
		return out
	}
	seen := make(map[string]bool, len(left.Rows))
	for _, r := range left.Rows {
		seen[rowKey(r, out.Columns)] = true
	}
	for _, r := range right.Rows {
		k := rowKey(r, out.Columns)
		if seen[k] {
			continue
		}
		seen[k] = true
		out.Rows = append(out.Rows, r)
	}
	return out
}

func rowKey(r Row, columns []string) string {
	var b strings.Builder
	for _, c := range columns {
		b.WriteString(r[c].String())
		b.WriteByte(0)
	}
	return b.String()
}

// execQuery runs one clause sequence, threading bindings through rows
// and accumulating mutation payloads until a terminal projection.
func (e *Executor) execQuery(q *Query) (*Result, error) {
	rows := []*envRow{newEnvRow()}
	var created CreatedPayload
	var updated UpdatedPayload
	var deleted DeletedPayload
	var final *Result

	for i, clause := range q.Clauses {
		var err error
		switch {
		case clause.Match != nil:
			rows, err = e.execMatch(clause.Match, rows)
		case clause.Where != nil:
			rows, err = e.execWhere(clause.Where, rows)
		case clause.With != nil:
			isLast := i == len(q.Clauses)-1
			switch {
			case clause.With.OrderBy != nil || clause.With.Skip != nil || clause.With.Limit != nil:
				err = gderrors.ExecutionError("WITH followed by ORDER BY/SKIP/LIMIT is not supported")
			case isLast:
				final, err = e.projectRows(clause.With.Items, rows, clause.With.Distinct, nil, nil, nil)
			default:
				rows, err = e.execWith(clause.With, rows)
			}
		case clause.Return != nil:
			final, err = e.projectRows(clause.Return.Items, rows, clause.Return.Distinct, clause.Return.OrderBy, clause.Return.Skip, clause.Return.Limit)
		case clause.Create != nil:
			var c CreatedPayload
			rows, c, err = e.execCreate(clause.Create, rows)
			created.Nodes = append(created.Nodes, c.Nodes...)
			created.Rels = append(created.Rels, c.Rels...)
		case clause.Merge != nil:
			var c CreatedPayload
			var u UpdatedPayload
			rows, c, u, err = e.execMerge(clause.Merge, rows)
			created.Nodes = append(created.Nodes, c.Nodes...)
			created.Rels = append(created.Rels, c.Rels...)
			updated.Nodes = append(updated.Nodes, u.Nodes...)
		case clause.Set != nil:
			var u UpdatedPayload
			rows, u, err = e.execSet(clause.Set, rows)
			updated.Nodes = append(updated.Nodes, u.Nodes...)
		case clause.Delete != nil:
			var d DeletedPayload
			rows, d, err = e.execDelete(clause.Delete, rows)
			deleted.Nodes = append(deleted.Nodes, d.Nodes...)
			deleted.Rels = append(deleted.Rels, d.Rels...)
		case clause.Foreach != nil:
			var c CreatedPayload
			var u UpdatedPayload
			var d DeletedPayload
			rows, c, u, d, err = e.execForeach(clause.Foreach, rows)
			created.Nodes = append(created.Nodes, c.Nodes...)
			created.Rels = append(created.Rels, c.Rels...)
			updated.Nodes = append(updated.Nodes, u.Nodes...)
			deleted.Nodes = append(deleted.Nodes, d.Nodes...)
			deleted.Rels = append(deleted.Rels, d.Rels...)
		case clause.Call != nil:
			rows, err = e.execCall(clause.Call, rows)
		}
		if err != nil {
			return nil, err
		}
	}

	if final != nil {
		return final, nil
	}
	switch {
	case len(deleted.Nodes) > 0 || len(deleted.Rels) > 0:
		return &Result{Kind: KindDeleted, Deleted: deleted}, nil
	case len(created.Nodes) > 0 || len(created.Rels) > 0:
		return &Result{Kind: KindCreated, Created: created}, nil
	case len(updated.Nodes) > 0:
		return &Result{Kind: KindUpdated, Updated: updated}, nil
	default:
		return &Result{Kind: KindNodes}, nil
	}
}

// envRow is one tuple of pattern-variable bindings carried between
// clauses. A variable absent from nodes/rels/scalars projects to null
// (used by OPTIONAL MATCH's missing bindings, spec §4.7).
type envRow struct {
	nodes   map[string]*graph.Node
	rels    map[string][]*graph.Relationship
	scalars map[string]values.Value
}

func newEnvRow() *envRow {
	return &envRow{nodes: map[string]*graph.Node{}, rels: map[string][]*graph.Relationship{}, scalars: map[string]values.Value{}}
}

func (r *envRow) clone() *envRow {
	out := newEnvRow()
	for k, v := range r.nodes {
		out.nodes[k] = v
	}
	for k, v := range r.rels {
		out.rels[k] = v
	}
	for k, v := range r.scalars {
		out.scalars[k] = v
	}
	return out
}

// ---- MATCH ----

type patRow struct {
	env *envRow
	tip *graph.Node
}

type hopResult struct {
	node *graph.Node
	path []*graph.Relationship
}

func (e *Executor) execMatch(m *MatchClause, rows []*envRow) ([]*envRow, error) {
	var err error
	for _, pat := range m.Patterns {
		rows, err = e.matchPattern(pat, rows, m.Optional)
		if err != nil {
			return nil, err
		}
	}
	return rows, nil
}

func (e *Executor) matchPattern(pat *Pattern, rows []*envRow, optional bool) ([]*envRow, error) {
	var out []*envRow
	for _, row := range rows {
		expanded, err := e.expandPatternFromRow(pat, row)
		if err != nil {
			return nil, err
		}
		if len(expanded) == 0 {
			if optional {
				out = append(out, row)
			}
			continue
		}
		out = append(out, expanded...)
	}
	return out, nil
}

func (e *Executor) expandPatternFromRow(pat *Pattern, row *envRow) ([]*envRow, error) {
	starts, err := e.seedStartNodes(pat.Start, row)
	if err != nil {
		return nil, err
	}
	frontier := make([]patRow, 0, len(starts))
	for _, n := range starts {
		env := row.clone()
		if pat.Start.Var != "" {
			env.nodes[pat.Start.Var] = n
		}
		frontier = append(frontier, patRow{env: env, tip: n})
	}
	for _, step := range pat.Steps {
		var next []patRow
		for _, pr := range frontier {
			results, err := e.expandStep(pr, step)
			if err != nil {
				return nil, err
			}
			next = append(next, results...)
		}
		frontier = next
	}
	out := make([]*envRow, 0, len(frontier))
	for _, pr := range frontier {
		out = append(out, pr.env)
	}
	return out, nil
}

func (e *Executor) seedStartNodes(np *NodePattern, row *envRow) ([]*graph.Node, error) {
	if np.Var != "" {
		if n, ok := row.nodes[np.Var]; ok {
			if nodeMatchesPattern(n, np) {
				return []*graph.Node{n}, nil
			}
			return nil, nil
		}
	}
	return e.scanNodes(np)
}

func (e *Executor) scanNodes(np *NodePattern) ([]*graph.Node, error) {
	var candidates []*graph.Node
	if len(np.Labels) > 0 {
		for _, id := range e.db.Indexes().FindByLabel(np.Labels[0]) {
			n, err := e.db.GetNode(id)
			if err != nil {
				continue
			}
			candidates = append(candidates, n)
		}
	} else {
		if err := e.db.IterNodes(func(n *graph.Node) error {
			candidates = append(candidates, n.Clone())
			return nil
		}); err != nil {
			return nil, err
		}
	}
	out := candidates[:0]
	for _, n := range candidates {
		if nodeMatchesPattern(n, np) {
			out = append(out, n)
		}
	}
	return out, nil
}

func nodeMatchesPattern(n *graph.Node, np *NodePattern) bool {
	for _, l := range np.Labels {
		if !n.HasLabel(l) {
			return false
		}
	}
	for _, pp := range np.Props {
		v := literalValue(pp.Value)
		nv, ok := n.Props[pp.Key]
		if !ok || !nv.Equal(v) {
			return false
		}
	}
	return true
}

type hopDirection int

const (
	dirOut hopDirection = iota
	dirIn
	dirBoth
)

func relDirection(rel *RelPattern) hopDirection {
	switch {
	case rel.Left && !rel.Right:
		return dirIn
	case rel.Right && !rel.Left:
		return dirOut
	default:
		return dirBoth
	}
}

// hopRange interprets the rel pattern's `*`/`min..max` marker: no `*` is
// a fixed single hop; bare `*` is 1..unbounded; `*n` is exactly n hops;
// `*min..max` and `*min..` (unbounded) per spec §4.7.
func hopRange(rel *RelPattern) (min, max int, unbounded bool) {
	if !rel.VarLen {
		return 1, 1, false
	}
	min = 1
	if rel.MinHops != nil {
		min = int(*rel.MinHops)
	}
	if !rel.Range {
		if rel.MinHops == nil {
			return 1, 0, true
		}
		return min, min, false
	}
	if rel.MaxHops != nil {
		return min, int(*rel.MaxHops), false
	}
	return min, 0, true
}

func containsType(types []string, t string) bool {
	if len(types) == 0 {
		return true
	}
	for _, x := range types {
		if x == t {
			return true
		}
	}
	return false
}

func (e *Executor) neighborsOf(nodeID int64, dir hopDirection) ([]*graph.Relationship, error) {
	var relIDs []int64
	switch dir {
	case dirOut:
		ids, err := e.db.Out(nodeID)
		if err != nil {
			return nil, err
		}
		relIDs = ids
	case dirIn:
		ids, err := e.db.In(nodeID)
		if err != nil {
			return nil, err
		}
		relIDs = ids
	default:
		outIDs, err := e.db.Out(nodeID)
		if err != nil {
			return nil, err
		}
		inIDs, err := e.db.In(nodeID)
		if err != nil {
			return nil, err
		}
		relIDs = append(append([]int64{}, outIDs...), inIDs...)
	}
	seen := make(map[int64]bool, len(relIDs))
	rels := make([]*graph.Relationship, 0, len(relIDs))
	for _, rid := range relIDs {
		if seen[rid] {
			continue
		}
		seen[rid] = true
		r, err := e.db.GetRel(rid)
		if err != nil {
			continue
		}
		rels = append(rels, r)
	}
	return rels, nil
}

func (e *Executor) expandStep(pr patRow, step *PatternStep) ([]patRow, error) {
	min, max, unbounded := hopRange(step.Rel)
	dir := relDirection(step.Rel)

	var ends []hopResult
	var err error
	if min == 1 && max == 1 && !unbounded {
		ends, err = e.singleHop(pr.tip, step.Rel, dir)
	} else {
		ends, err = e.variableHop(pr.tip, step.Rel, dir, min, max, unbounded)
	}
	if err != nil {
		return nil, err
	}

	// If step.Node.Var is already bound (by an earlier step or an earlier
	// comma-separated pattern in the same MATCH), this hop must land on
	// that same node: patterns intersect by any shared variable, not
	// just a shared starting variable (spec §4.7).
	var bound *graph.Node
	if step.Node.Var != "" {
		bound = pr.env.nodes[step.Node.Var]
	}

	out := make([]patRow, 0, len(ends))
	for _, ep := range ends {
		if !nodeMatchesPattern(ep.node, step.Node) {
			continue
		}
		if bound != nil && ep.node.ID != bound.ID {
			continue
		}
		env := pr.env.clone()
		if step.Rel.Var != "" {
			env.rels[step.Rel.Var] = ep.path
		}
		if step.Node.Var != "" {
			env.nodes[step.Node.Var] = ep.node
		}
		out = append(out, patRow{env: env, tip: ep.node})
	}
	return out, nil
}

func (e *Executor) singleHop(tip *graph.Node, rel *RelPattern, dir hopDirection) ([]hopResult, error) {
	rels, err := e.neighborsOf(tip.ID, dir)
	if err != nil {
		return nil, err
	}
	var out []hopResult
	for _, r := range rels {
		if !containsType(rel.Types, r.Type) {
			continue
		}
		other := r.OtherEnd(tip.ID)
		n, err := e.db.GetNode(other)
		if err != nil {
			continue
		}
		out = append(out, hopResult{node: n, path: []*graph.Relationship{r}})
	}
	return out, nil
}

// variableHop enumerates all distinct endpoints reachable within
// [min,max] hops (unbounded searches up to hopCeiling = 64 hops), using a
// per-path visited set so alternative paths through a shared node aren't
// pruned (spec §9), then dedups by final endpoint id (spec §4.7).
func (e *Executor) variableHop(tip *graph.Node, rel *RelPattern, dir hopDirection, min, max int, unbounded bool) ([]hopResult, error) {
	const hopCeiling = 64
	if unbounded {
		max = hopCeiling
	}

	type frame struct {
		node    *graph.Node
		path    []*graph.Relationship
		visited map[int64]bool
	}
	start := frame{node: tip, path: nil, visited: map[int64]bool{tip.ID: true}}
	queue := []frame{start}

	seenEndpoint := map[int64]bool{}
	var out []hopResult

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		depth := len(cur.path)
		if depth >= max {
			continue
		}
		rels, err := e.neighborsOf(cur.node.ID, dir)
		if err != nil {
			return nil, err
		}
		for _, r := range rels {
			if !containsType(rel.Types, r.Type) {
				continue
			}
			otherID := r.OtherEnd(cur.node.ID)
			if cur.visited[otherID] {
				continue
			}
			other, err := e.db.GetNode(otherID)
			if err != nil {
				continue
			}
			path := append(append([]*graph.Relationship{}, cur.path...), r)
			nextDepth := depth + 1
			if nextDepth >= min && !seenEndpoint[otherID] {
				seenEndpoint[otherID] = true
				out = append(out, hopResult{node: other, path: path})
			}
			if nextDepth < max {
				visited := make(map[int64]bool, len(cur.visited)+1)
				for k := range cur.visited {
					visited[k] = true
				}
				visited[otherID] = true
				queue = append(queue, frame{node: other, path: path, visited: visited})
			}
		}
	}
	return out, nil
}

// ---- WHERE ----

func (e *Executor) execWhere(w *WhereClause, rows []*envRow) ([]*envRow, error) {
	var out []*envRow
	for _, row := range rows {
		ok, err := e.evalExpr(w.Expr, row)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, row)
		}
	}
	return out, nil
}

func (e *Executor) evalExpr(ex *Expr, row *envRow) (bool, error) {
	v, err := e.evalAnd(ex.Left, row)
	if err != nil {
		return false, err
	}
	for _, rhs := range ex.Rest {
		r, err := e.evalAnd(rhs.Right, row)
		if err != nil {
			return false, err
		}
		v = v || r
	}
	return v, nil
}

func (e *Executor) evalAnd(a *AndExpr, row *envRow) (bool, error) {
	v, err := e.evalNot(a.Left, row)
	if err != nil {
		return false, err
	}
	for _, rhs := range a.Rest {
		r, err := e.evalNot(rhs.Right, row)
		if err != nil {
			return false, err
		}
		v = v && r
	}
	return v, nil
}

func (e *Executor) evalNot(n *NotExpr, row *envRow) (bool, error) {
	v, err := e.evalPredicate(n.Atom, row)
	if err != nil {
		return false, err
	}
	if n.Not {
		return !v, nil
	}
	return v, nil
}

func (e *Executor) evalPredicate(p *Predicate, row *envRow) (bool, error) {
	switch {
	case p.Paren != nil:
		return e.evalExpr(p.Paren, row)
	case p.Exists != nil:
		v, err := e.evalValueExpr(p.Exists.Target, row)
		if err != nil {
			return false, err
		}
		return !v.IsNull(), nil
	case p.Compare != nil:
		return e.evalCompare(p.Compare, row)
	default:
		return false, gderrors.ExecutionError("empty predicate")
	}
}

func (e *Executor) evalCompare(c *CompareExpr, row *envRow) (bool, error) {
	left, err := e.evalValueExpr(c.Left, row)
	if err != nil {
		return false, err
	}
	if c.Tail == nil {
		return !left.IsNull(), nil
	}
	t := c.Tail
	switch {
	case t.Cmp != nil:
		right, err := e.evalValueExpr(t.Cmp.Right, row)
		if err != nil {
			return false, err
		}
		return compareOp(t.Cmp.Op, left, right), nil
	case t.InList != nil:
		for _, ve := range t.InList.List {
			v, err := e.evalValueExpr(ve, row)
			if err != nil {
				return false, err
			}
			if left.Equal(v) {
				return true, nil
			}
		}
		return false, nil
	case t.IsNull != nil:
		if t.IsNull.Not {
			return !left.IsNull(), nil
		}
		return left.IsNull(), nil
	case t.Regex != nil:
		pattern := "^(?:" + unquoteString(t.Regex.Pattern) + ")$"
		re, err := regexp.Compile(pattern)
		if err != nil {
			return false, gderrors.ExecutionError("invalid regex: " + err.Error())
		}
		text, ok := left.AsText()
		if !ok {
			return false, nil
		}
		return re.MatchString(text), nil
	default:
		return false, gderrors.ExecutionError("empty comparison tail")
	}
}

func compareOp(op string, a, b values.Value) bool {
	switch op {
	case "=":
		return a.Equal(b)
	case "<>":
		return !a.Equal(b)
	case "<":
		return a.Compare(b) < 0
	case "<=":
		return a.Compare(b) <= 0
	case ">":
		return a.Compare(b) > 0
	case ">=":
		return a.Compare(b) >= 0
	default:
		return false
	}
}

func (e *Executor) evalValueExpr(v *ValueExpr, row *envRow) (values.Value, error) {
	switch {
	case v.FuncCall != nil:
		vals, err := e.aggregateArg(v.FuncCall, [][]*envRow{{row}})
		if err != nil {
			return values.Null(), err
		}
		if len(vals) == 0 {
			return values.Null(), nil
		}
		return vals[0], nil
	case v.PropAcc != nil:
		return propValue(row, v.PropAcc.Var, v.PropAcc.Prop), nil
	case v.Literal != nil:
		return literalValue(v.Literal), nil
	default:
		if n, ok := row.nodes[v.Var]; ok {
			return values.Int(n.ID), nil
		}
		if sv, ok := row.scalars[v.Var]; ok {
			return sv, nil
		}
		return values.Null(), nil
	}
}

func propValue(row *envRow, varName, prop string) values.Value {
	if n, ok := row.nodes[varName]; ok {
		if v, ok := n.Props[prop]; ok {
			return v
		}
		return values.Null()
	}
	if rs, ok := row.rels[varName]; ok && len(rs) > 0 {
		if v, ok := rs[len(rs)-1].Props[prop]; ok {
			return v
		}
	}
	return values.Null()
}

func literalValue(lit *Literal) values.Value {
	switch {
	case lit.Str != nil:
		return values.Text(unquoteString(*lit.Str))
	case lit.Flt != nil:
		return values.Float(*lit.Flt)
	case lit.Int != nil:
		return values.Int(*lit.Int)
	case lit.True:
		return values.Bool(true)
	case lit.False:
		return values.Bool(false)
	default:
		return values.Null()
	}
}

func unquoteString(s string) string {
	if len(s) >= 2 {
		s = s[1 : len(s)-1]
	}
	s = strings.ReplaceAll(s, `\'`, `'`)
	s = strings.ReplaceAll(s, `\\`, `\`)
	return s
}

// ---- WITH ----

func (e *Executor) execWith(w *WithClause, rows []*envRow) ([]*envRow, error) {
	res, err := e.projectRows(w.Items, rows, w.Distinct, nil, nil, nil)
	if err != nil {
		return nil, err
	}
	out := make([]*envRow, 0, len(res.Rows))
	for _, r := range res.Rows {
		env := newEnvRow()
		for _, col := range res.Columns {
			env.scalars[col] = r[col]
		}
		out = append(out, env)
	}
	return out, nil
}

// ---- RETURN / WITH projection, ORDER BY, SKIP, LIMIT, aggregation ----

func projColumnName(item *ProjItem) string {
	if item.Alias != nil {
		return *item.Alias
	}
	switch {
	case item.Expr.FuncCall != nil:
		return strings.ToLower(item.Expr.FuncCall.Name)
	case item.Expr.PropAcc != nil:
		return item.Expr.PropAcc.Var + "." + item.Expr.PropAcc.Prop
	default:
		return item.Expr.Var
	}
}

func hasAggregation(items []*ProjItem) bool {
	for _, it := range items {
		if it.Expr.FuncCall != nil {
			return true
		}
	}
	return false
}

func (e *Executor) projectRows(items []*ProjItem, rows []*envRow, distinct bool, orderBy *OrderByPart, skip, limit *int64) (*Result, error) {
	columns := make([]string, len(items))
	for i, it := range items {
		columns[i] = projColumnName(it)
	}

	var outRows []Row
	if hasAggregation(items) {
		row, err := e.aggregateRow(items, columns, rows)
		if err != nil {
			return nil, err
		}
		outRows = []Row{row}
	} else {
		for _, r := range rows {
			row := Row{}
			for i, it := range items {
				v, err := e.evalValueExpr(it.Expr, r)
				if err != nil {
					return nil, err
				}
				row[columns[i]] = v
			}
			outRows = append(outRows, row)
		}
	}

	if distinct {
		outRows = dedupRows(outRows, columns)
	}

	if orderBy != nil {
		sort.SliceStable(outRows, func(i, j int) bool {
			for _, item := range orderBy.Items {
				name := projColumnName(&ProjItem{Expr: item.Expr})
				vi, vj := outRows[i][name], outRows[j][name]
				c := vi.Compare(vj)
				if c == 0 {
					continue
				}
				if item.Desc {
					return c > 0
				}
				return c < 0
			}
			return false
		})
	}

	if skip != nil {
		n := int(*skip)
		if n > len(outRows) {
			n = len(outRows)
		}
		outRows = outRows[n:]
	}
	if limit != nil {
		n := int(*limit)
		if n < len(outRows) {
			outRows = outRows[:n]
		}
	}

	return &Result{Kind: KindNodes, Columns: columns, Rows: outRows}, nil
}

func dedupRows(rows []Row, columns []string) []Row {
	seen := map[string]bool{}
	var out []Row
	for _, r := range rows {
		k := rowKey(r, columns)
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, r)
	}
	return out
}

// aggregateRow computes one output row with every projection item
// evaluated as an aggregate over the full row set (GROUP BY is not part
// of this frontend's supported surface; an aggregating RETURN/WITH
// treats the whole input as a single group per spec §4.7).
func (e *Executor) aggregateRow(items []*ProjItem, columns []string, rows []*envRow) (Row, error) {
	out := Row{}
	for i, it := range items {
		if it.Expr.FuncCall != nil {
			vals, err := e.aggregateArg(it.Expr.FuncCall, groupRows(rows))
			if err != nil {
				return nil, err
			}
			if len(vals) == 0 {
				out[columns[i]] = values.Null()
			} else {
				out[columns[i]] = vals[0]
			}
			continue
		}
		if len(rows) == 0 {
			out[columns[i]] = values.Null()
			continue
		}
		v, err := e.evalValueExpr(it.Expr, rows[0])
		if err != nil {
			return nil, err
		}
		out[columns[i]] = v
	}
	return out, nil
}

func groupRows(rows []*envRow) [][]*envRow {
	if len(rows) == 0 {
		return nil
	}
	return [][]*envRow{rows}
}

// aggregateArg evaluates fn's argument over every row in the first (and
// only) group and returns a single-element slice with the aggregate
// result.
func (e *Executor) aggregateArg(fn *FuncCall, groups [][]*envRow) ([]values.Value, error) {
	if len(groups) == 0 {
		return nil, nil
	}
	rows := groups[0]
	name := strings.ToUpper(fn.Name)

	if name == "COUNT" && fn.Call.Star {
		return []values.Value{values.Int(int64(len(rows)))}, nil
	}

	var samples []values.Value
	for _, r := range rows {
		if len(fn.Call.Args) == 0 {
			continue
		}
		v, err := e.evalValueExpr(fn.Call.Args[0], r)
		if err != nil {
			return nil, err
		}
		if v.IsNull() {
			continue
		}
		samples = append(samples, v)
	}
	if fn.Call.Distinct {
		samples = dedupValues(samples)
	}

	switch name {
	case "COUNT":
		return []values.Value{values.Int(int64(len(samples)))}, nil
	case "COLLECT":
		return samples, nil
	case "SUM":
		var sum float64
		for _, s := range samples {
			if f, ok := s.Numeric(); ok {
				sum += f
			}
		}
		return []values.Value{values.Float(sum)}, nil
	case "AVG":
		if len(samples) == 0 {
			return []values.Value{values.Null()}, nil
		}
		var sum float64
		for _, s := range samples {
			if f, ok := s.Numeric(); ok {
				sum += f
			}
		}
		return []values.Value{values.Float(sum / float64(len(samples)))}, nil
	case "MIN":
		return []values.Value{extremum(samples, true)}, nil
	case "MAX":
		return []values.Value{extremum(samples, false)}, nil
	case "STDEV":
		return []values.Value{stdev(samples)}, nil
	case "PERCENTILECONT":
		return []values.Value{percentileCont(samples, percentileArg(e, fn, rows))}, nil
	case "PERCENTILEDISC":
		return []values.Value{percentileDisc(samples, percentileArg(e, fn, rows))}, nil
	default:
		return nil, gderrors.ExecutionError("unknown aggregate " + fn.Name)
	}
}

func percentileArg(e *Executor, fn *FuncCall, rows []*envRow) float64 {
	if len(fn.Call.Args) < 2 || len(rows) == 0 {
		return 0
	}
	v, err := e.evalValueExpr(fn.Call.Args[1], rows[0])
	if err != nil {
		return 0
	}
	f, _ := v.Numeric()
	return f
}

func dedupValues(vs []values.Value) []values.Value {
	var out []values.Value
	for _, v := range vs {
		dup := false
		for _, o := range out {
			if v.Equal(o) {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, v)
		}
	}
	return out
}

func extremum(vs []values.Value, wantMin bool) values.Value {
	if len(vs) == 0 {
		return values.Null()
	}
	best := vs[0]
	for _, v := range vs[1:] {
		c := v.Compare(best)
		if (wantMin && c < 0) || (!wantMin && c > 0) {
			best = v
		}
	}
	return best
}

func numericSamples(vs []values.Value) []float64 {
	out := make([]float64, 0, len(vs))
	for _, v := range vs {
		if f, ok := v.Numeric(); ok {
			out = append(out, f)
		}
	}
	sort.Float64s(out)
	return out
}

func sampleVariance(samples []float64) (float64, bool) {
	n := len(samples)
	if n < 2 {
		return 0, false
	}
	var mean float64
	for _, s := range samples {
		mean += s
	}
	mean /= float64(n)
	var sq float64
	for _, s := range samples {
		d := s - mean
		sq += d * d
	}
	return sq / float64(n-1), true
}

func stdev(vs []values.Value) values.Value {
	samples := numericSamples(vs)
	v, ok := sampleVariance(samples)
	if !ok {
		return values.Null()
	}
	return values.Float(sqrtFloat(v))
}

func sqrtFloat(f float64) float64 {
	if f <= 0 {
		return 0
	}
	x := f
	for i := 0; i < 40; i++ {
		x = 0.5 * (x + f/x)
	}
	return x
}

func percentileCont(vs []values.Value, pct float64) values.Value {
	samples := numericSamples(vs)
	if len(samples) == 0 || pct < 0 || pct > 1 {
		return values.Null()
	}
	rank := pct * float64(len(samples)-1)
	lo := int(rank)
	hi := lo
	if float64(lo) < rank {
		hi = lo + 1
	}
	if hi >= len(samples) {
		hi = len(samples) - 1
	}
	frac := rank - float64(lo)
	return values.Float(samples[lo] + frac*(samples[hi]-samples[lo]))
}

func percentileDisc(vs []values.Value, pct float64) values.Value {
	samples := numericSamples(vs)
	if len(samples) == 0 || pct < 0 || pct > 1 {
		return values.Null()
	}
	idx := int(pct * float64(len(samples)-1))
	return values.Float(samples[idx])
}

// ---- CREATE ----

func (e *Executor) execCreate(c *CreateClause, rows []*envRow) ([]*envRow, CreatedPayload, error) {
	var payload CreatedPayload
	var out []*envRow
	for _, row := range rows {
		env, p, err := e.createPattern(c.Patterns, row)
		if err != nil {
			return nil, payload, err
		}
		payload.Nodes = append(payload.Nodes, p.Nodes...)
		payload.Rels = append(payload.Rels, p.Rels...)
		out = append(out, env)
	}
	if len(rows) == 0 {
		env, p, err := e.createPattern(c.Patterns, newEnvRow())
		if err != nil {
			return nil, payload, err
		}
		payload.Nodes = append(payload.Nodes, p.Nodes...)
		payload.Rels = append(payload.Rels, p.Rels...)
		out = append(out, env)
	}
	return out, payload, nil
}

func (e *Executor) createPattern(patterns []*Pattern, row *envRow) (*envRow, CreatedPayload, error) {
	env := row.clone()
	var payload CreatedPayload
	for _, pat := range patterns {
		tip, isNew, err := e.createOrReuseNode(pat.Start, env)
		if err != nil {
			return nil, payload, err
		}
		if isNew {
			payload.Nodes = append(payload.Nodes, tip)
		}
		for _, step := range pat.Steps {
			next, isNewNode, err := e.createOrReuseNode(step.Node, env)
			if err != nil {
				return nil, payload, err
			}
			if isNewNode {
				payload.Nodes = append(payload.Nodes, next)
			}
			start, end := tip.ID, next.ID
			if relDirection(step.Rel) == dirIn {
				start, end = end, start
			}
			relType := "RELATED"
			if len(step.Rel.Types) > 0 {
				relType = step.Rel.Types[0]
			}
			props := propsFromPairs(nil)
			r, err := e.db.CreateRel(start, end, relType, props, e.tx)
			if err != nil {
				return nil, payload, err
			}
			payload.Rels = append(payload.Rels, r)
			if step.Rel.Var != "" {
				env.rels[step.Rel.Var] = []*graph.Relationship{r}
			}
			tip = next
		}
	}
	return env, payload, nil
}

func (e *Executor) createOrReuseNode(np *NodePattern, env *envRow) (*graph.Node, bool, error) {
	if np.Var != "" {
		if n, ok := env.nodes[np.Var]; ok {
			return n, false, nil
		}
	}
	props := propsFromPairs(np.Props)
	n, err := e.db.CreateNode(np.Labels, props, e.tx)
	if err != nil {
		return nil, false, err
	}
	if np.Var != "" {
		env.nodes[np.Var] = n
	}
	return n, true, nil
}

func propsFromPairs(pairs []*PropPair) values.Properties {
	if len(pairs) == 0 {
		return nil
	}
	props := make(values.Properties, len(pairs))
	for _, p := range pairs {
		props[p.Key] = literalValue(p.Value)
	}
	return props
}

// ---- MERGE ----

func (e *Executor) execMerge(m *MergeClause, rows []*envRow) ([]*envRow, CreatedPayload, UpdatedPayload, error) {
	var created CreatedPayload
	var updated UpdatedPayload
	if len(rows) == 0 {
		rows = []*envRow{newEnvRow()}
	}
	var out []*envRow
	for _, row := range rows {
		env, wasCreated, err := e.mergePattern(m.Pattern, row)
		if err != nil {
			return nil, created, updated, err
		}
		setList := m.OnMatch
		if wasCreated {
			setList = m.OnCreate
		}
		for _, item := range setList {
			n, ok := env.nodes[item.Var]
			if !ok {
				continue
			}
			v, err := e.evalValueExpr(item.Expr, env)
			if err != nil {
				return nil, created, updated, err
			}
			patch := values.Properties{item.Prop: v}
			updatedNode, err := e.db.UpdateNodeProps(n.ID, patch, e.tx)
			if err != nil {
				return nil, created, updated, err
			}
			env.nodes[item.Var] = updatedNode
			updated.Nodes = append(updated.Nodes, updatedNode)
		}
		if wasCreated {
			if n, ok := env.nodes[mergeVar(m.Pattern)]; ok {
				created.Nodes = append(created.Nodes, n)
			}
		}
		out = append(out, env)
	}
	return out, created, updated, nil
}

func mergeVar(pat *Pattern) string { return pat.Start.Var }

// mergePattern matches pat against existing data; if every step fully
// matches, it binds the existing entities. Otherwise it creates
// whichever nodes/relationships are missing (spec §4.7: MERGE for a
// relationship pattern creates missing endpoints and the relationship).
func (e *Executor) mergePattern(pat *Pattern, row *envRow) (*envRow, bool, error) {
	matched, err := e.expandPatternFromRow(pat, row)
	if err != nil {
		return nil, false, err
	}
	if len(matched) > 0 {
		return matched[0], false, nil
	}
	env, _, err := e.createPattern([]*Pattern{pat}, row)
	return env, true, err
}

// ---- SET ----

func (e *Executor) execSet(s *SetClause, rows []*envRow) ([]*envRow, UpdatedPayload, error) {
	var updated UpdatedPayload
	var out []*envRow
	for _, row := range rows {
		env := row.clone()
		for _, item := range s.Items {
			n, ok := env.nodes[item.Var]
			if !ok {
				continue
			}
			v, err := e.evalValueExpr(item.Expr, env)
			if err != nil {
				return nil, updated, err
			}
			patch := values.Properties{item.Prop: v}
			updatedNode, err := e.db.UpdateNodeProps(n.ID, patch, e.tx)
			if err != nil {
				return nil, updated, err
			}
			env.nodes[item.Var] = updatedNode
			updated.Nodes = append(updated.Nodes, updatedNode)
		}
		out = append(out, env)
	}
	return out, updated, nil
}

// ---- DELETE ----

func (e *Executor) execDelete(d *DeleteClause, rows []*envRow) ([]*envRow, DeletedPayload, error) {
	var deleted DeletedPayload
	var out []*envRow
	for _, row := range rows {
		env := row.clone()
		for _, v := range d.Vars {
			if n, ok := env.nodes[v]; ok {
				if err := e.db.DeleteNode(n.ID, e.tx); err != nil {
					return nil, deleted, err
				}
				deleted.Nodes = append(deleted.Nodes, n.ID)
				delete(env.nodes, v)
				continue
			}
			if rs, ok := env.rels[v]; ok {
				for _, r := range rs {
					if err := e.db.DeleteRel(r.ID, e.tx); err != nil {
						return nil, deleted, err
					}
					deleted.Rels = append(deleted.Rels, r.ID)
				}
				delete(env.rels, v)
			}
		}
		out = append(out, env)
	}
	return out, deleted, nil
}

// ---- FOREACH ----

// execForeach evaluates the list once per incoming row, then runs the
// updating clauses once per list item with var bound to that item's
// node. Items that don't resolve to a live node are skipped silently
// (spec §4.7); the loop variable and any bindings the updates produce
// do not escape into the outer row.
func (e *Executor) execForeach(f *ForeachClause, rows []*envRow) ([]*envRow, CreatedPayload, UpdatedPayload, DeletedPayload, error) {
	var created CreatedPayload
	var updated UpdatedPayload
	var deleted DeletedPayload
	out := make([]*envRow, 0, len(rows))
	for _, row := range rows {
		env := row.clone()
		for _, ve := range f.List {
			n := e.resolveForeachNode(ve, env)
			if n == nil {
				continue
			}
			loopRows := []*envRow{env.clone()}
			loopRows[0].nodes[f.Var] = n
			for _, upd := range f.Updates {
				var err error
				switch {
				case upd.Create != nil:
					var c CreatedPayload
					loopRows, c, err = e.execCreate(upd.Create, loopRows)
					created.Nodes = append(created.Nodes, c.Nodes...)
					created.Rels = append(created.Rels, c.Rels...)
				case upd.Merge != nil:
					var c CreatedPayload
					var u UpdatedPayload
					loopRows, c, u, err = e.execMerge(upd.Merge, loopRows)
					created.Nodes = append(created.Nodes, c.Nodes...)
					created.Rels = append(created.Rels, c.Rels...)
					updated.Nodes = append(updated.Nodes, u.Nodes...)
				case upd.Set != nil:
					var u UpdatedPayload
					loopRows, u, err = e.execSet(upd.Set, loopRows)
					updated.Nodes = append(updated.Nodes, u.Nodes...)
				case upd.Delete != nil:
					var d DeletedPayload
					loopRows, d, err = e.execDelete(upd.Delete, loopRows)
					deleted.Nodes = append(deleted.Nodes, d.Nodes...)
					deleted.Rels = append(deleted.Rels, d.Rels...)
				default:
					err = gderrors.ExecutionError("FOREACH only supports CREATE, MERGE, SET, and DELETE updates")
				}
				if err != nil {
					return nil, created, updated, deleted, err
				}
			}
		}
		out = append(out, env)
	}
	return out, created, updated, deleted, nil
}

// resolveForeachNode resolves one FOREACH list item to a live node: a
// bare variable already bound to a node, or an expression evaluating to
// an existing node id. Anything else yields nil, and the caller skips it.
func (e *Executor) resolveForeachNode(ve *ValueExpr, row *envRow) *graph.Node {
	if ve.Var != "" {
		if n, ok := row.nodes[ve.Var]; ok {
			return n
		}
	}
	v, err := e.evalValueExpr(ve, row)
	if err != nil || v.IsNull() {
		return nil
	}
	id, ok := v.AsInt()
	if !ok {
		return nil
	}
	n, err := e.db.GetNode(id)
	if err != nil {
		return nil
	}
	return n
}

// ---- CALL ----

// execCall runs the subquery once per incoming row against its own
// fresh binding environment, then merges each resulting row's projected
// columns into the outer row as scalars (the same shape execWith uses to
// hand bindings to downstream clauses). InputVars is parsed but not yet
// used to scope what the subquery can see, matching the reference
// implementation it's grounded on.
func (e *Executor) execCall(c *CallClause, rows []*envRow) ([]*envRow, error) {
	if len(rows) == 0 {
		rows = []*envRow{newEnvRow()}
	}
	var out []*envRow
	for _, row := range rows {
		res, err := e.execQuery(c.Body)
		if err != nil {
			return nil, err
		}
		if res.Kind != KindNodes {
			out = append(out, row.clone())
			continue
		}
		for _, r := range res.Rows {
			env := row.clone()
			for _, col := range res.Columns {
				env.scalars[col] = r[col]
			}
			out = append(out, env)
		}
	}
	return out, nil
}
