package cache

import (
	"container/list"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/cuemby/graphdb/pkg/graph"
)

// Stats mirrors spec §4.5's required per-cache report.
type Stats struct {
	Hits, Misses, Entries int64
	EstimatedBytes        int64
}

type entry struct {
	key        string
	value      any
	insertedAt time.Time
	size       int64
	tags       []string // query-cache invalidation tags; unused elsewhere
}

// boundedCache is the shared LRU+TTL mechanism behind all four spec §4.5
// caches. Eviction is LRU-like on overflow; expired entries are evicted
// lazily on access (spec's "evicted on access" wording).
type boundedCache struct {
	mu         sync.Mutex
	maxEntries int
	ttl        time.Duration

	items map[string]*list.Element // Value is *entry
	order *list.List

	byTag map[string]map[string]struct{} // tag -> set of keys

	hitCount, missCount int64 // read by Stats; prometheus counters below mirror these for scraping

	hits, misses, evictions prometheus.Counter
	entriesGauge            prometheus.Gauge
	bytesGauge              prometheus.Gauge
}

func newBoundedCache(name string, maxEntries int, ttl time.Duration, reg prometheus.Registerer) *boundedCache {
	c := &boundedCache{
		maxEntries: maxEntries,
		ttl:        ttl,
		items:      make(map[string]*list.Element),
		order:      list.New(),
		byTag:      make(map[string]map[string]struct{}),
		hits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: fmt.Sprintf("graphdb_cache_%s_hits_total", name),
			Help: fmt.Sprintf("Hits against the %s cache.", name),
		}),
		misses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: fmt.Sprintf("graphdb_cache_%s_misses_total", name),
			Help: fmt.Sprintf("Misses against the %s cache.", name),
		}),
		evictions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: fmt.Sprintf("graphdb_cache_%s_evictions_total", name),
			Help: fmt.Sprintf("Evictions from the %s cache.", name),
		}),
		entriesGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: fmt.Sprintf("graphdb_cache_%s_entries", name),
			Help: fmt.Sprintf("Current entry count in the %s cache.", name),
		}),
		bytesGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: fmt.Sprintf("graphdb_cache_%s_bytes", name),
			Help: fmt.Sprintf("Estimated byte size of the %s cache.", name),
		}),
	}
	if reg != nil {
		reg.MustRegister(c.hits, c.misses, c.evictions, c.entriesGauge, c.bytesGauge)
	}
	return c
}

func estimateSize(key string, value any) int64 {
	data, err := json.Marshal(value)
	if err != nil {
		return int64(len(key)) + 64
	}
	return int64(len(key) + len(data))
}

func (c *boundedCache) get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		c.misses.Inc()
		atomic.AddInt64(&c.missCount, 1)
		return nil, false
	}
	e := el.Value.(*entry)
	if c.ttl > 0 && time.Since(e.insertedAt) > c.ttl {
		c.removeElementLocked(el)
		c.misses.Inc()
		atomic.AddInt64(&c.missCount, 1)
		return nil, false
	}
	c.order.MoveToFront(el)
	c.hits.Inc()
	atomic.AddInt64(&c.hitCount, 1)
	return e.value, true
}

func (c *boundedCache) put(key string, value any, tags []string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		c.removeElementLocked(el)
	}

	e := &entry{key: key, value: value, insertedAt: time.Now(), size: estimateSize(key, value), tags: tags}
	el := c.order.PushFront(e)
	c.items[key] = el
	for _, tag := range tags {
		set, ok := c.byTag[tag]
		if !ok {
			set = make(map[string]struct{})
			c.byTag[tag] = set
		}
		set[key] = struct{}{}
	}

	if c.maxEntries > 0 {
		for len(c.items) > c.maxEntries {
			back := c.order.Back()
			if back == nil {
				break
			}
			c.removeElementLocked(back)
			c.evictions.Inc()
		}
	}
	c.refreshGaugesLocked()
}

func (c *boundedCache) removeElementLocked(el *list.Element) {
	e := el.Value.(*entry)
	delete(c.items, e.key)
	c.order.Remove(el)
	for _, tag := range e.tags {
		if set, ok := c.byTag[tag]; ok {
			delete(set, e.key)
			if len(set) == 0 {
				delete(c.byTag, tag)
			}
		}
	}
}

func (c *boundedCache) remove(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.items[key]; ok {
		c.removeElementLocked(el)
		c.refreshGaugesLocked()
	}
}

// removeByTag evicts every entry carrying tag, used by the query cache's
// label/property-scoped invalidation (spec §4.5).
func (c *boundedCache) removeByTag(tag string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	set, ok := c.byTag[tag]
	if !ok {
		return
	}
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	for _, k := range keys {
		if el, ok := c.items[k]; ok {
			c.removeElementLocked(el)
		}
	}
	c.refreshGaugesLocked()
}

func (c *boundedCache) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[string]*list.Element)
	c.order = list.New()
	c.byTag = make(map[string]map[string]struct{})
	c.refreshGaugesLocked()
}

func (c *boundedCache) refreshGaugesLocked() {
	c.entriesGauge.Set(float64(len(c.items)))
	var total int64
	for _, el := range c.items {
		total += el.Value.(*entry).size
	}
	c.bytesGauge.Set(float64(total))
}

func (c *boundedCache) stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	var bytes int64
	for _, el := range c.items {
		bytes += el.Value.(*entry).size
	}
	return Stats{
		Hits:           atomic.LoadInt64(&c.hitCount),
		Misses:         atomic.LoadInt64(&c.missCount),
		Entries:        int64(len(c.items)),
		EstimatedBytes: bytes,
	}
}

// NodeCache caches full node records keyed by id.
type NodeCache struct{ c *boundedCache }

func NewNodeCache(maxEntries int, ttl time.Duration, reg prometheus.Registerer) *NodeCache {
	return &NodeCache{c: newBoundedCache("node", maxEntries, ttl, reg)}
}

func (nc *NodeCache) Get(id int64) (*graph.Node, bool) {
	v, ok := nc.c.get(nodeKey(id))
	if !ok {
		return nil, false
	}
	return v.(*graph.Node), true
}

func (nc *NodeCache) Put(n *graph.Node) { nc.c.put(nodeKey(n.ID), n, nil) }
func (nc *NodeCache) Invalidate(id int64) { nc.c.remove(nodeKey(id)) }
func (nc *NodeCache) ClearAll()           { nc.c.clear() }
func (nc *NodeCache) Stats() Stats        { return nc.c.stats() }

func nodeKey(id int64) string { return fmt.Sprintf("n:%d", id) }

// AdjacencyCache caches the incident relationship-id list for (node,
// direction) pairs.
type AdjacencyCache struct{ c *boundedCache }

func NewAdjacencyCache(maxEntries int, ttl time.Duration, reg prometheus.Registerer) *AdjacencyCache {
	return &AdjacencyCache{c: newBoundedCache("adjacency", maxEntries, ttl, reg)}
}

func (ac *AdjacencyCache) Get(id int64, dir graph.Direction) ([]int64, bool) {
	v, ok := ac.c.get(adjKey(id, dir))
	if !ok {
		return nil, false
	}
	return v.([]int64), true
}

func (ac *AdjacencyCache) Put(id int64, dir graph.Direction, ids []int64) {
	ac.c.put(adjKey(id, dir), ids, nil)
}

// InvalidateNode drops both directions' entries for id, per spec §4.5's
// "both directions of its adjacency entry."
func (ac *AdjacencyCache) InvalidateNode(id int64) {
	ac.c.remove(adjKey(id, graph.Out))
	ac.c.remove(adjKey(id, graph.In))
}

func (ac *AdjacencyCache) ClearAll() { ac.c.clear() }
func (ac *AdjacencyCache) Stats() Stats { return ac.c.stats() }

func adjKey(id int64, dir graph.Direction) string { return fmt.Sprintf("a:%d:%d", id, dir) }

// QueryCache caches fluent-pipeline/Cypher results keyed by a fingerprint
// string. Entries are tagged by the labels/properties their query
// touches so a mutation can invalidate precisely (spec §4.5); tags may
// also be left empty, in which case the entry is only dropped by
// ClearAll.
type QueryCache struct{ c *boundedCache }

func NewQueryCache(maxEntries int, ttl time.Duration, reg prometheus.Registerer) *QueryCache {
	return &QueryCache{c: newBoundedCache("query", maxEntries, ttl, reg)}
}

func (qc *QueryCache) Get(fingerprint string) (any, bool) { return qc.c.get(fingerprint) }

func (qc *QueryCache) Put(fingerprint string, value any, touchedLabels, touchedProps []string) {
	tags := make([]string, 0, len(touchedLabels)+len(touchedProps))
	for _, l := range touchedLabels {
		tags = append(tags, "label:"+l)
	}
	for _, p := range touchedProps {
		tags = append(tags, "prop:"+p)
	}
	qc.c.put(fingerprint, value, tags)
}

// InvalidateTouching drops every cached result whose query referenced
// label or one of props.
func (qc *QueryCache) InvalidateTouching(label string, props []string) {
	qc.c.removeByTag("label:" + label)
	for _, p := range props {
		qc.c.removeByTag("prop:" + p)
	}
}

func (qc *QueryCache) ClearAll() { qc.c.clear() }
func (qc *QueryCache) Stats() Stats { return qc.c.stats() }

// IndexCache caches secondary-index lookup results keyed by (index kind,
// key tuple).
type IndexCache struct{ c *boundedCache }

func NewIndexCache(maxEntries int, ttl time.Duration, reg prometheus.Registerer) *IndexCache {
	return &IndexCache{c: newBoundedCache("index", maxEntries, ttl, reg)}
}

func (ic *IndexCache) Get(indexKind, keyTuple string) ([]int64, bool) {
	v, ok := ic.c.get(idxKey(indexKind, keyTuple))
	if !ok {
		return nil, false
	}
	return v.([]int64), true
}

func (ic *IndexCache) Put(indexKind, keyTuple string, ids []int64) {
	ic.c.put(idxKey(indexKind, keyTuple), ids, nil)
}

func (ic *IndexCache) ClearAll() { ic.c.clear() }
func (ic *IndexCache) Stats() Stats { return ic.c.stats() }

func idxKey(kind, keyTuple string) string { return kind + "\x1f" + keyTuple }
