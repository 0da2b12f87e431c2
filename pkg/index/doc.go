// Package index maintains the secondary indexes kept consistent with
// primary storage on every mutation: single-property exact (hash),
// composite, full-text (inverted), and range (ordered).
//
//	┌───────────────────────────────────────────┐
//	│                Manager (C5)                  │
//	├────────────┬────────────┬──────────┬─────────┤
//	│ exact       │ composite  │ fulltext │ range   │
//	│ (l,p,v)→ids │ key→ids    │ tok→ids  │ sorted  │
//	└────────────┴────────────┴──────────┴─────────┘
//
// All four sub-indexes are guarded by one RWMutex; writers call OnInsert/
// OnUpdate/OnDelete from the facade inside its own mutation path so the
// indexes and primary storage never observe an inconsistent intermediate
// state.
package index
