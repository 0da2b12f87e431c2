// Package cache implements the four bounded, TTL-aware caches of spec
// §4.5: node, adjacency, query, and index. Each is independently sized
// and reports hits, misses, current entries, and estimated bytes via
// prometheus counters/gauges, mirroring the teacher's metrics package.
package cache
