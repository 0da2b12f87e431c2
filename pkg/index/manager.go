package index

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/cuemby/graphdb/internal/gderrors"
	"github.com/cuemby/graphdb/pkg/graph"
	"github.com/cuemby/graphdb/pkg/values"
)

type exactKey struct {
	label, prop string
	val         string
}

type compositeDef struct {
	label string
	props []string
}

type compositeIndex struct {
	def     compositeDef
	buckets map[string]map[int64]struct{}
}

type ftDef struct{ label, prop string }

type ftIndex struct {
	postings map[string]map[int64]struct{}
	// idTokens remembers which tokens an id contributed, so OnDelete can
	// remove exactly those postings without re-tokenizing stale text.
	idTokens map[int64][]string
}

type rangeEntry struct {
	val values.Value
	id  int64
}

type rangeIndex struct {
	entries []rangeEntry // kept sorted by val
}

// Manager owns all four secondary-index kinds and keeps them consistent
// with primary storage via OnInsert/OnUpdate/OnDelete, called from the
// facade's own mutation path (spec §4.3.5).
type Manager struct {
	mu sync.RWMutex

	// label is the implicit lazily-built label→ids bucket that seeds
	// from_label (spec §4.6); it is maintained the same way as the exact
	// index but keyed on label alone.
	label map[string]map[int64]struct{}

	exact map[exactKey]map[int64]struct{}

	composites   map[string]*compositeIndex
	compositesBy map[string][]string // label -> composite names touching it

	fulltext   map[ftDef]*ftIndex
	ftByLabel  map[string][]ftDef
	rangeIdx   map[ftDef]*rangeIndex
	rangeByLbl map[string][]ftDef

	caser cases.Caser
}

// NewManager returns an empty index manager.
func NewManager() *Manager {
	return &Manager{
		label:        make(map[string]map[int64]struct{}),
		exact:        make(map[exactKey]map[int64]struct{}),
		composites:   make(map[string]*compositeIndex),
		compositesBy: make(map[string][]string),
		fulltext:     make(map[ftDef]*ftIndex),
		ftByLabel:    make(map[string][]ftDef),
		rangeIdx:     make(map[ftDef]*rangeIndex),
		rangeByLbl:   make(map[string][]ftDef),
		caser:        cases.Lower(language.Und),
	}
}

// RegisterComposite creates a named composite index over (label, props).
// It fails if a composite of the same name already exists.
func (m *Manager) RegisterComposite(name, label string, props []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.composites[name]; exists {
		return gderrors.ConstraintViolation(label, name, fmt.Sprintf("composite index %q already exists", name))
	}
	m.composites[name] = &compositeIndex{
		def:     compositeDef{label: label, props: append([]string{}, props...)},
		buckets: make(map[string]map[int64]struct{}),
	}
	m.compositesBy[label] = append(m.compositesBy[label], name)
	return nil
}

// RegisterFullText creates an inverted index over (label, prop).
func (m *Manager) RegisterFullText(label, prop string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := ftDef{label: label, prop: prop}
	if _, exists := m.fulltext[key]; exists {
		return gderrors.ConstraintViolation(label, prop, "full-text index already exists")
	}
	m.fulltext[key] = &ftIndex{postings: make(map[string]map[int64]struct{}), idTokens: make(map[int64][]string)}
	m.ftByLabel[label] = append(m.ftByLabel[label], key)
	return nil
}

// RegisterRange creates a sorted range index over (label, prop).
func (m *Manager) RegisterRange(label, prop string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := ftDef{label: label, prop: prop}
	if _, exists := m.rangeIdx[key]; exists {
		return gderrors.ConstraintViolation(label, prop, "range index already exists")
	}
	m.rangeIdx[key] = &rangeIndex{}
	m.rangeByLbl[label] = append(m.rangeByLbl[label], key)
	return nil
}

// OnInsert adds id to every index bucket the node's labels and
// properties make it eligible for (spec §4.3.1–§4.3.4).
func (m *Manager) OnInsert(n *graph.Node) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.insertLocked(n)
}

// OnDelete removes id from every index bucket it was ever added to.
func (m *Manager) OnDelete(n *graph.Node) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleteLocked(n)
}

// OnUpdate removes old's contributions and inserts new's. Called with the
// pre- and post-mutation node snapshots.
func (m *Manager) OnUpdate(old, updated *graph.Node) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleteLocked(old)
	m.insertLocked(updated)
}

func (m *Manager) insertLocked(n *graph.Node) {
	for _, label := range n.Labels {
		b, ok := m.label[label]
		if !ok {
			b = make(map[int64]struct{})
			m.label[label] = b
		}
		b[n.ID] = struct{}{}

		for prop, val := range n.Props {
			m.addExact(label, prop, val, n.ID)
		}
		for _, name := range m.compositesBy[label] {
			m.addComposite(name, n)
		}
		for _, key := range m.ftByLabel[label] {
			if val, ok := n.Props[key.prop]; ok {
				if text, isText := val.AsText(); isText {
					m.addFullText(key, text, n.ID)
				}
			}
		}
		for _, key := range m.rangeByLbl[label] {
			if val, ok := n.Props[key.prop]; ok {
				m.addRange(key, val, n.ID)
			}
		}
	}
}

func (m *Manager) deleteLocked(n *graph.Node) {
	for _, label := range n.Labels {
		if b, ok := m.label[label]; ok {
			delete(b, n.ID)
			if len(b) == 0 {
				delete(m.label, label)
			}
		}

		for prop, val := range n.Props {
			m.removeExact(label, prop, val, n.ID)
		}
		for _, name := range m.compositesBy[label] {
			m.removeComposite(name, n.ID)
		}
		for _, key := range m.ftByLabel[label] {
			m.removeFullText(key, n.ID)
		}
		for _, key := range m.rangeByLbl[label] {
			m.removeRange(key, n.ID)
		}
	}
}

func valueKey(v values.Value) string {
	return fmt.Sprintf("%d:%s", v.Kind(), v.String())
}

func (m *Manager) addExact(label, prop string, v values.Value, id int64) {
	k := exactKey{label: label, prop: prop, val: valueKey(v)}
	b, ok := m.exact[k]
	if !ok {
		b = make(map[int64]struct{})
		m.exact[k] = b
	}
	b[id] = struct{}{}
}

func (m *Manager) removeExact(label, prop string, v values.Value, id int64) {
	k := exactKey{label: label, prop: prop, val: valueKey(v)}
	if b, ok := m.exact[k]; ok {
		delete(b, id)
		if len(b) == 0 {
			delete(m.exact, k)
		}
	}
}

// FindByLabel returns every id currently carrying label, or nil if none.
func (m *Manager) FindByLabel(label string) []int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.label[label]
	if !ok {
		return nil
	}
	return idSlice(b)
}

// FindExact returns the ids with (label, prop) == v, or nil if none.
func (m *Manager) FindExact(label, prop string, v values.Value) []int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.exact[exactKey{label: label, prop: prop, val: valueKey(v)}]
	if !ok {
		return nil
	}
	return idSlice(b)
}

func compositeKey(props []string, n *graph.Node) (string, bool) {
	parts := make([]string, len(props))
	for i, p := range props {
		v, ok := n.Props[p]
		if !ok {
			return "", false
		}
		parts[i] = valueKey(v)
	}
	return strings.Join(parts, "\x1f"), true
}

func (m *Manager) addComposite(name string, n *graph.Node) {
	ci := m.composites[name]
	key, ok := compositeKey(ci.def.props, n)
	if !ok {
		return
	}
	b, ok := ci.buckets[key]
	if !ok {
		b = make(map[int64]struct{})
		ci.buckets[key] = b
	}
	b[n.ID] = struct{}{}
}

func (m *Manager) removeComposite(name string, id int64) {
	ci := m.composites[name]
	for k, b := range ci.buckets {
		delete(b, id)
		if len(b) == 0 {
			delete(ci.buckets, k)
		}
	}
}

// FindComposite looks up the composite index by name with the given
// ordered value sequence, matching the registration's prop order.
func (m *Manager) FindComposite(name string, vals []values.Value) ([]int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ci, ok := m.composites[name]
	if !ok {
		return nil, gderrors.ExecutionError(fmt.Sprintf("no composite index named %q", name))
	}
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = valueKey(v)
	}
	b, ok := ci.buckets[strings.Join(parts, "\x1f")]
	if !ok {
		return nil, nil
	}
	return idSlice(b), nil
}

// tokenize lowercases unicode-aware and splits on whitespace/ASCII
// punctuation, dropping empty tokens (spec §4.3.3).
func tokenize(caser cases.Caser, s string) []string {
	lowered := caser.String(s)
	var tokens []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			tokens = append(tokens, cur.String())
			cur.Reset()
		}
	}
	for _, r := range lowered {
		if unicode.IsSpace(r) || (r < unicode.MaxASCII && unicode.IsPunct(rune(r))) {
			flush()
			continue
		}
		cur.WriteRune(r)
	}
	flush()
	return tokens
}

func (m *Manager) addFullText(key ftDef, text string, id int64) {
	idx := m.fulltext[key]
	tokens := tokenize(m.caser, text)
	idx.idTokens[id] = tokens
	for _, tok := range tokens {
		b, ok := idx.postings[tok]
		if !ok {
			b = make(map[int64]struct{})
			idx.postings[tok] = b
		}
		b[id] = struct{}{}
	}
}

func (m *Manager) removeFullText(key ftDef, id int64) {
	idx := m.fulltext[key]
	for _, tok := range idx.idTokens[id] {
		if b, ok := idx.postings[tok]; ok {
			delete(b, id)
			if len(b) == 0 {
				delete(idx.postings, tok)
			}
		}
	}
	delete(idx.idTokens, id)
}

// Search returns ids whose indexed text matched any query token (OR).
func (m *Manager) Search(label, prop, query string) []int64 {
	return m.searchTokens(label, prop, query, false)
}

// SearchAnd returns ids whose indexed text matched every query token (AND).
func (m *Manager) SearchAnd(label, prop, query string) []int64 {
	return m.searchTokens(label, prop, query, true)
}

func (m *Manager) searchTokens(label, prop, query string, and bool) []int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	idx, ok := m.fulltext[ftDef{label: label, prop: prop}]
	if !ok {
		return nil
	}
	tokens := tokenize(m.caser, query)
	if len(tokens) == 0 {
		return nil
	}

	var acc map[int64]struct{}
	for i, tok := range tokens {
		b := idx.postings[tok]
		if !and {
			if acc == nil {
				acc = make(map[int64]struct{})
			}
			for id := range b {
				acc[id] = struct{}{}
			}
			continue
		}
		if i == 0 {
			acc = make(map[int64]struct{}, len(b))
			for id := range b {
				acc[id] = struct{}{}
			}
			continue
		}
		next := make(map[int64]struct{})
		for id := range acc {
			if _, ok := b[id]; ok {
				next[id] = struct{}{}
			}
		}
		acc = next
	}
	return idSlice(acc)
}

func (m *Manager) addRange(key ftDef, v values.Value, id int64) {
	idx := m.rangeIdx[key]
	pos := sort.Search(len(idx.entries), func(i int) bool { return idx.entries[i].val.Compare(v) >= 0 })
	idx.entries = append(idx.entries, rangeEntry{})
	copy(idx.entries[pos+1:], idx.entries[pos:])
	idx.entries[pos] = rangeEntry{val: v, id: id}
}

func (m *Manager) removeRange(key ftDef, id int64) {
	idx := m.rangeIdx[key]
	out := idx.entries[:0]
	for _, e := range idx.entries {
		if e.id != id {
			out = append(out, e)
		}
	}
	idx.entries = out
}

// RangeGT returns ids with value strictly greater than v, in value order.
func (m *Manager) RangeGT(label, prop string, v values.Value) []int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	idx, ok := m.rangeIdx[ftDef{label: label, prop: prop}]
	if !ok {
		return nil
	}
	start := sort.Search(len(idx.entries), func(i int) bool { return idx.entries[i].val.Compare(v) > 0 })
	return entryIDs(idx.entries[start:])
}

// RangeLT returns ids with value strictly less than v, in value order.
func (m *Manager) RangeLT(label, prop string, v values.Value) []int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	idx, ok := m.rangeIdx[ftDef{label: label, prop: prop}]
	if !ok {
		return nil
	}
	end := sort.Search(len(idx.entries), func(i int) bool { return idx.entries[i].val.Compare(v) >= 0 })
	return entryIDs(idx.entries[:end])
}

// RangeBetween returns ids with lo <= value <= hi, in value order.
func (m *Manager) RangeBetween(label, prop string, lo, hi values.Value) []int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	idx, ok := m.rangeIdx[ftDef{label: label, prop: prop}]
	if !ok {
		return nil
	}
	start := sort.Search(len(idx.entries), func(i int) bool { return idx.entries[i].val.Compare(lo) >= 0 })
	end := sort.Search(len(idx.entries), func(i int) bool { return idx.entries[i].val.Compare(hi) > 0 })
	if start >= end {
		return nil
	}
	return entryIDs(idx.entries[start:end])
}

func entryIDs(entries []rangeEntry) []int64 {
	if len(entries) == 0 {
		return nil
	}
	out := make([]int64, len(entries))
	for i, e := range entries {
		out[i] = e.id
	}
	return out
}

func idSlice(set map[int64]struct{}) []int64 {
	if len(set) == 0 {
		return nil
	}
	out := make([]int64, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
