package algo

import "github.com/cuemby/graphdb/pkg/graphdb"

type unionFind struct {
	parent map[int64]int64
	rank   map[int64]int
}

func newUnionFind(ids []int64) *unionFind {
	uf := &unionFind{parent: make(map[int64]int64, len(ids)), rank: make(map[int64]int, len(ids))}
	for _, id := range ids {
		uf.parent[id] = id
	}
	return uf
}

func (uf *unionFind) find(x int64) int64 {
	for uf.parent[x] != x {
		uf.parent[x] = uf.parent[uf.parent[x]]
		x = uf.parent[x]
	}
	return x
}

func (uf *unionFind) union(a, b int64) {
	ra, rb := uf.find(a), uf.find(b)
	if ra == rb {
		return
	}
	if uf.rank[ra] < uf.rank[rb] {
		ra, rb = rb, ra
	}
	uf.parent[rb] = ra
	if uf.rank[ra] == uf.rank[rb] {
		uf.rank[ra]++
	}
}

// ConnectedComponents assigns every node a component id via undirected
// union-find over edges (spec §4.8). Component ids are one representative
// node id per component, not sequential integers.
func ConnectedComponents(db *graphdb.Database) (map[int64]int64, error) {
	snap, err := takeSnapshot(db)
	if err != nil {
		return nil, err
	}
	uf := newUnionFind(snap.Nodes)
	for _, id := range snap.Nodes {
		for _, e := range snap.Out[id] {
			uf.union(id, e.To)
		}
	}
	out := make(map[int64]int64, len(snap.Nodes))
	for _, id := range snap.Nodes {
		out[id] = uf.find(id)
	}
	return out, nil
}

// SCC assigns every node a strongly-connected-component id via Tarjan's
// algorithm over directed out-edges (spec §4.8).
func SCC(db *graphdb.Database) (map[int64]int64, error) {
	snap, err := takeSnapshot(db)
	if err != nil {
		return nil, err
	}

	index := map[int64]int{}
	lowlink := map[int64]int{}
	onStack := map[int64]bool{}
	var stack []int64
	counter := 0
	result := make(map[int64]int64, len(snap.Nodes))

	var strongconnect func(v int64)
	strongconnect = func(v int64) {
		index[v] = counter
		lowlink[v] = counter
		counter++
		stack = append(stack, v)
		onStack[v] = true

		for _, e := range snap.Out[v] {
			w := e.To
			if _, seen := index[w]; !seen {
				strongconnect(w)
				if lowlink[w] < lowlink[v] {
					lowlink[v] = lowlink[w]
				}
			} else if onStack[w] {
				if index[w] < lowlink[v] {
					lowlink[v] = index[w]
				}
			}
		}

		if lowlink[v] == index[v] {
			for {
				n := len(stack) - 1
				w := stack[n]
				stack = stack[:n]
				onStack[w] = false
				result[w] = v
				if w == v {
					break
				}
			}
		}
	}

	for _, id := range snap.Nodes {
		if _, seen := index[id]; !seen {
			strongconnect(id)
		}
	}
	return result, nil
}

// KCore iteratively peels the lowest-degree node until every remaining
// node has undirected degree >= k (spec §4.8). The return maps each
// surviving node to its core-peeling round (0-indexed); peeled nodes are
// absent.
func KCore(db *graphdb.Database, k int) (map[int64]int, error) {
	snap, err := takeSnapshot(db)
	if err != nil {
		return nil, err
	}
	degree := make(map[int64]int, len(snap.Nodes))
	neighbors := make(map[int64][]int64, len(snap.Nodes))
	for _, id := range snap.Nodes {
		ns := snap.Neighbors(id)
		neighbors[id] = ns
		degree[id] = len(ns)
	}

	removed := make(map[int64]bool, len(snap.Nodes))
	round := make(map[int64]int, len(snap.Nodes))
	r := 0
	for {
		var toRemove []int64
		for _, id := range snap.Nodes {
			if !removed[id] && degree[id] < k {
				toRemove = append(toRemove, id)
			}
		}
		if len(toRemove) == 0 {
			break
		}
		for _, id := range toRemove {
			removed[id] = true
			round[id] = r
			for _, nb := range neighbors[id] {
				if !removed[nb] {
					degree[nb]--
				}
			}
		}
		r++
	}

	out := make(map[int64]int, len(snap.Nodes))
	for _, id := range snap.Nodes {
		if !removed[id] {
			out[id] = r
		}
	}
	return out, nil
}

// MaxCoreNumber returns the largest k for which KCore leaves at least one
// surviving node.
func MaxCoreNumber(db *graphdb.Database) (int, error) {
	snap, err := takeSnapshot(db)
	if err != nil {
		return 0, err
	}
	maxDeg := 0
	for _, id := range snap.Nodes {
		if d := len(snap.Neighbors(id)); d > maxDeg {
			maxDeg = d
		}
	}
	best := 0
	for k := 1; k <= maxDeg; k++ {
		survivors, err := KCore(db, k)
		if err != nil {
			return 0, err
		}
		if len(survivors) == 0 {
			break
		}
		best = k
	}
	return best, nil
}

// Louvain performs iterated local modularity optimization over the
// undirected view of the graph, capped at maxLevels passes. Each pass
// greedily moves every node into whichever neighboring community
// (including its own) it shares the most edges with; single-level
// refinement only, no graph coarsening between passes.
func Louvain(db *graphdb.Database, maxLevels int) (map[int64]int64, error) {
	snap, err := takeSnapshot(db)
	if err != nil {
		return nil, err
	}
	m := 0.0
	degree := make(map[int64]float64, len(snap.Nodes))
	for _, id := range snap.Nodes {
		d := float64(len(snap.Neighbors(id)))
		degree[id] = d
		m += d
	}
	m /= 2
	if m == 0 {
		community := make(map[int64]int64, len(snap.Nodes))
		for _, id := range snap.Nodes {
			community[id] = id
		}
		return community, nil
	}

	community := make(map[int64]int64, len(snap.Nodes))
	for _, id := range snap.Nodes {
		community[id] = id
	}

	for level := 0; level < maxLevels; level++ {
		changed := false
		for _, id := range snap.Nodes {
			neighbors := snap.Neighbors(id)
			gains := map[int64]float64{}
			for _, nb := range neighbors {
				gains[community[nb]]++
			}

			best := community[id]
			bestGain := gains[community[id]]
			for c, g := range gains {
				if g > bestGain {
					bestGain = g
					best = c
				}
			}
			if best != community[id] {
				community[id] = best
				changed = true
			}
		}
		if !changed {
			break
		}
	}
	return community, nil
}
