package algo

import "github.com/cuemby/graphdb/pkg/graphdb"

// TriangleStats is the result of TriangleCount: a total triangle count,
// per-node triangle participation and local clustering coefficient, and
// the graph's global clustering coefficient (spec §4.8).
type TriangleStats struct {
	Total            int
	PerNode          map[int64]int
	LocalClustering  map[int64]float64
	GlobalClustering float64
}

// TriangleCount enumerates ordered triples (u<v<w) with all three edges
// present, ignoring direction (spec §4.8). Local clustering coefficient
// for v is 2*T(v) / (deg(v)*(deg(v)-1)); global clustering is the
// average local coefficient over nodes with degree >= 2.
func TriangleCount(db *graphdb.Database) (*TriangleStats, error) {
	snap, err := takeSnapshot(db)
	if err != nil {
		return nil, err
	}

	neighborSet := make(map[int64]map[int64]struct{}, len(snap.Nodes))
	for _, id := range snap.Nodes {
		set := make(map[int64]struct{})
		for _, nb := range snap.Neighbors(id) {
			set[nb] = struct{}{}
		}
		neighborSet[id] = set
	}

	perNode := make(map[int64]int, len(snap.Nodes))
	total := 0
	for _, u := range snap.Nodes {
		for v := range neighborSet[u] {
			if v <= u {
				continue
			}
			for w := range neighborSet[v] {
				if w <= v {
					continue
				}
				if _, ok := neighborSet[u][w]; !ok {
					continue
				}
				total++
				perNode[u]++
				perNode[v]++
				perNode[w]++
			}
		}
	}

	local := make(map[int64]float64, len(snap.Nodes))
	var sumLocal float64
	var counted int
	for _, id := range snap.Nodes {
		deg := len(neighborSet[id])
		if deg < 2 {
			local[id] = 0
			continue
		}
		c := 2 * float64(perNode[id]) / float64(deg*(deg-1))
		local[id] = c
		sumLocal += c
		counted++
	}

	var global float64
	if counted > 0 {
		global = sumLocal / float64(counted)
	}

	return &TriangleStats{Total: total, PerNode: perNode, LocalClustering: local, GlobalClustering: global}, nil
}
