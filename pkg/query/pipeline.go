package query

import (
	"sort"
	"strconv"
	"strings"

	"github.com/cuemby/graphdb/internal/gderrors"
	"github.com/cuemby/graphdb/pkg/graph"
	"github.com/cuemby/graphdb/pkg/graphdb"
	"github.com/cuemby/graphdb/pkg/values"
)

// Pipeline is the fluent builder. Methods mutate and return the receiver
// so calls chain: New(db).FromLabel("Person").WherePropIntGt("age", 30).Count().
type Pipeline struct {
	db  *graphdb.Database
	ids []int64
	err error

	useCache bool
	ops      []string
	labels   map[string]struct{}
	props    map[string]struct{}
}

// New starts an uncached pipeline against db.
func New(db *graphdb.Database) *Pipeline {
	return &Pipeline{db: db, labels: make(map[string]struct{}), props: make(map[string]struct{})}
}

// NewCached starts a pipeline whose CollectNodesCached terminal consults
// and populates db's query cache (spec §4.6).
func NewCached(db *graphdb.Database) *Pipeline {
	p := New(db)
	p.useCache = true
	return p
}

func (p *Pipeline) recordOp(parts ...string) {
	p.ops = append(p.ops, strings.Join(parts, "\x1f"))
}

func (p *Pipeline) touchLabel(l string) {
	if l != "" {
		p.labels[l] = struct{}{}
	}
}

func (p *Pipeline) touchProp(prop string) { p.props[prop] = struct{}{} }

// recordErr classifies err: a not-found error means the id it came from
// is stale (deleted mid-traversal) and is silently dropped; anything else
// is a real failure that halts the pipeline.
func (p *Pipeline) recordErr(err error) (handled bool) {
	if gderr, ok := err.(*gderrors.Error); ok && gderr.Kind == gderrors.KindNotFound {
		return true
	}
	p.err = err
	return false
}

// FromLabel seeds the working set with every node carrying label (spec
// §4.6). Backed directly by the always-maintained label index, so there
// is no scan fallback to fall back to.
func (p *Pipeline) FromLabel(label string) *Pipeline {
	if p.err != nil {
		return p
	}
	p.touchLabel(label)
	p.recordOp("from_label", label)
	p.ids = p.db.Indexes().FindByLabel(label)
	return p
}

// FromLabelAndPropEq seeds the working set with nodes carrying label and
// prop == v, backed by the always-maintained exact index.
func (p *Pipeline) FromLabelAndPropEq(label, prop string, v values.Value) *Pipeline {
	if p.err != nil {
		return p
	}
	p.touchLabel(label)
	p.touchProp(prop)
	p.recordOp("from_label_and_prop_eq", label, prop, v.String())
	p.ids = p.db.Indexes().FindExact(label, prop, v)
	return p
}

func (p *Pipeline) filter(opName string, pred func(*graph.Node) bool) *Pipeline {
	if p.err != nil {
		return p
	}
	kept := make([]int64, 0, len(p.ids))
	for _, id := range p.ids {
		n, err := p.db.GetNode(id)
		if err != nil {
			if !p.recordErr(err) {
				return p
			}
			continue
		}
		if pred(n) {
			kept = append(kept, id)
		}
	}
	p.ids = kept
	_ = opName
	return p
}

// WherePropEq keeps only nodes whose prop equals v.
func (p *Pipeline) WherePropEq(prop string, v values.Value) *Pipeline {
	p.touchProp(prop)
	p.recordOp("where_prop_eq", prop, v.String())
	return p.filter("where_prop_eq", func(n *graph.Node) bool {
		val, ok := n.Props[prop]
		return ok && val.Equal(v)
	})
}

// WherePropIntGt keeps only nodes whose numeric prop is greater than n.
func (p *Pipeline) WherePropIntGt(prop string, n int64) *Pipeline {
	p.touchProp(prop)
	p.recordOp("where_prop_int_gt", prop, strconv.FormatInt(n, 10))
	return p.filter("where_prop_int_gt", func(nd *graph.Node) bool {
		val, ok := nd.Props[prop]
		if !ok {
			return false
		}
		num, isNum := val.Numeric()
		return isNum && num > float64(n)
	})
}

// WherePropBetween keeps only nodes whose prop lies in [lo, hi] by Value
// order.
func (p *Pipeline) WherePropBetween(prop string, lo, hi values.Value) *Pipeline {
	p.touchProp(prop)
	p.recordOp("where_prop_between", prop, lo.String(), hi.String())
	return p.filter("where_prop_between", func(n *graph.Node) bool {
		val, ok := n.Props[prop]
		if !ok {
			return false
		}
		return val.Compare(lo) >= 0 && val.Compare(hi) <= 0
	})
}

func (p *Pipeline) hop(opName, relType string, forward, backward bool) *Pipeline {
	if p.err != nil {
		return p
	}
	p.recordOp(opName, relType)
	seen := make(map[int64]struct{})
	var next []int64
	add := func(id int64) {
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			next = append(next, id)
		}
	}
	walk := func(relIDs []int64, err error, otherEnd func(*graph.Relationship) int64) bool {
		if err != nil {
			return p.recordErr(err)
		}
		for _, rid := range relIDs {
			r, err := p.db.GetRel(rid)
			if err != nil {
				if !p.recordErr(err) {
					return false
				}
				continue
			}
			if relType != "" && r.Type != relType {
				continue
			}
			add(otherEnd(r))
		}
		return true
	}

	for _, id := range p.ids {
		if forward {
			relIDs, err := p.db.Out(id)
			if !walk(relIDs, err, func(r *graph.Relationship) int64 { return r.End }) {
				p.ids = next
				return p
			}
		}
		if backward {
			relIDs, err := p.db.In(id)
			if !walk(relIDs, err, func(r *graph.Relationship) int64 { return r.Start }) {
				p.ids = next
				return p
			}
		}
	}
	p.ids = next
	return p
}

// Out extends the working set by one outgoing hop over relationships of
// relType (all types if relType is "").
func (p *Pipeline) Out(relType string) *Pipeline { return p.hop("out", relType, true, false) }

// In extends by one incoming hop.
func (p *Pipeline) In(relType string) *Pipeline { return p.hop("in", relType, false, true) }

// Both extends by one hop in either direction.
func (p *Pipeline) Both(relType string) *Pipeline { return p.hop("both", relType, true, true) }

// Distinct removes duplicate ids, preserving first-seen order.
func (p *Pipeline) Distinct() *Pipeline {
	if p.err != nil {
		return p
	}
	p.recordOp("distinct")
	seen := make(map[int64]struct{}, len(p.ids))
	out := make([]int64, 0, len(p.ids))
	for _, id := range p.ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	p.ids = out
	return p
}

// OrderBy stably sorts the working set by prop's Value order.
func (p *Pipeline) OrderBy(prop string, ascending bool) *Pipeline {
	if p.err != nil {
		return p
	}
	p.touchProp(prop)
	p.recordOp("order_by", prop, strconv.FormatBool(ascending))

	type keyed struct {
		id  int64
		val values.Value
	}
	rows := make([]keyed, 0, len(p.ids))
	for _, id := range p.ids {
		n, err := p.db.GetNode(id)
		if err != nil {
			if !p.recordErr(err) {
				return p
			}
			continue
		}
		v := n.Props[prop] // zero Value is Null, sorts first — matches Value order
		rows = append(rows, keyed{id: id, val: v})
	}
	sort.SliceStable(rows, func(i, j int) bool {
		c := rows[i].val.Compare(rows[j].val)
		if ascending {
			return c < 0
		}
		return c > 0
	})
	out := make([]int64, len(rows))
	for i, r := range rows {
		out[i] = r.id
	}
	p.ids = out
	return p
}

// Skip drops the first n ids. Operates purely on the id slice, so no
// node record is ever fetched for a skipped entry (spec §4.6).
func (p *Pipeline) Skip(n int) *Pipeline {
	if p.err != nil {
		return p
	}
	p.recordOp("skip", strconv.Itoa(n))
	if n >= len(p.ids) {
		p.ids = nil
		return p
	}
	if n > 0 {
		p.ids = p.ids[n:]
	}
	return p
}

// Limit keeps only the first n ids.
func (p *Pipeline) Limit(n int) *Pipeline {
	if p.err != nil {
		return p
	}
	p.recordOp("limit", strconv.Itoa(n))
	if n < len(p.ids) {
		p.ids = p.ids[:n]
	}
	return p
}

// Paginate is Skip(offset).Limit(pageSize).
func (p *Pipeline) Paginate(offset, pageSize int) *Pipeline {
	return p.Skip(offset).Limit(pageSize)
}

// Fingerprint returns a deterministic string identifying this pipeline's
// sequence of operations, used as the query cache key.
func (p *Pipeline) Fingerprint() string { return strings.Join(p.ops, "|") }

func (p *Pipeline) touchedLabels() []string {
	out := make([]string, 0, len(p.labels))
	for l := range p.labels {
		out = append(out, l)
	}
	return out
}

func (p *Pipeline) touchedProps() []string {
	out := make([]string, 0, len(p.props))
	for pr := range p.props {
		out = append(out, pr)
	}
	return out
}
