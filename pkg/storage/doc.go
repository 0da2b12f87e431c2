// Package storage defines the abstract storage contract (Engine) and
// provides two concrete implementations for graphdb's persistence layer:
// a pure in-memory backend and a bbolt-backed persistent backend sharing
// one interface.
//
// # Architecture
//
//	┌─────────────────────────────────────┐
//	│      pkg/graphdb (facade, C8)         │
//	└──────────────────┬────────────────────┘
//	                   ▼
//	┌─────────────────────────────────────┐
//	│           Engine interface            │
//	│  PutNode / GetNode / DeleteNode       │
//	│  PutRel / GetRel / DeleteRel          │
//	│  UpdateNodeProps / UpdateRelProps     │
//	│  Out / In / IterNodes / IterRels      │
//	│  Begin / Commit / Rollback / Flush    │
//	└───────┬───────────────────┬──────────┘
//	        ▼                   ▼
//	┌───────────────┐   ┌──────────────────┐
//	│  MemoryEngine  │   │   BoltEngine      │
//	│  dense id maps │   │  go.etcd.io/bbolt │
//	│  + adjacency   │   │  key-prefixed     │
//	│    slices      │   │  buckets          │
//	└───────────────┘   └──────────────────┘
//
// # Key layout (BoltEngine, mirrors spec §6)
//
//	N/<u64 id>                serialized (labels, props)
//	R/<u64 id>                serialized (start, end, type, props)
//	AO/<u64 node>/<u64 rel>    empty marker (out-adjacency)
//	AI/<u64 node>/<u64 rel>    empty marker (in-adjacency)
//	M/next_node_id             u64 counter
//	M/next_rel_id              u64 counter
//
// Ids are stored big-endian so bucket scans naturally yield id order.
//
// Both backends are polymorphic over the same Engine contract; the
// facade in pkg/graphdb never type-switches on which backend it holds.
package storage
