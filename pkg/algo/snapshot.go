package algo

import (
	"github.com/cuemby/graphdb/pkg/graph"
	"github.com/cuemby/graphdb/pkg/graphdb"
)

// Edge is one directed adjacency entry in a Snapshot.
type Edge struct {
	To     int64
	Weight float64
}

// Snapshot is a point-in-time adjacency view of the whole graph, taken
// once through C8 so every algorithm in this package sees a consistent
// graph rather than re-querying the engine at every step (spec §4.8:
// "none mutate").
type Snapshot struct {
	Nodes []int64
	Out   map[int64][]Edge
	In    map[int64][]Edge
}

// takeSnapshot materializes every node and relationship via C8's full
// scans. Relationship weight is its numeric "weight" property, or 1 if
// absent (spec §4.8's Dijkstra contract).
func takeSnapshot(db *graphdb.Database) (*Snapshot, error) {
	s := &Snapshot{Out: make(map[int64][]Edge), In: make(map[int64][]Edge)}

	if err := db.IterNodes(func(n *graph.Node) error {
		s.Nodes = append(s.Nodes, n.ID)
		if _, ok := s.Out[n.ID]; !ok {
			s.Out[n.ID] = nil
		}
		if _, ok := s.In[n.ID]; !ok {
			s.In[n.ID] = nil
		}
		return nil
	}); err != nil {
		return nil, err
	}

	if err := db.IterRels(func(r *graph.Relationship) error {
		w := 1.0
		if wv, ok := r.Props["weight"]; ok {
			if num, isNum := wv.Numeric(); isNum {
				w = num
			}
		}
		s.Out[r.Start] = append(s.Out[r.Start], Edge{To: r.End, Weight: w})
		s.In[r.End] = append(s.In[r.End], Edge{To: r.Start, Weight: w})
		return nil
	}); err != nil {
		return nil, err
	}
	return s, nil
}

// Neighbors returns id's undirected neighbor set (out and in combined,
// deduplicated), the view connected components, k-core, triangle count,
// and Louvain operate over.
func (s *Snapshot) Neighbors(id int64) []int64 {
	seen := make(map[int64]struct{})
	var out []int64
	add := func(n int64) {
		if _, ok := seen[n]; !ok {
			seen[n] = struct{}{}
			out = append(out, n)
		}
	}
	for _, e := range s.Out[id] {
		add(e.To)
	}
	for _, e := range s.In[id] {
		add(e.To)
	}
	return out
}
