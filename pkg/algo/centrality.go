package algo

import "github.com/cuemby/graphdb/pkg/graphdb"

// DegreeCentrality returns each node's normalized out-degree,
// out-degree/(N-1) (spec §4.8). A single-node graph reports 0 for its
// only node (no denominator to normalize against).
func DegreeCentrality(db *graphdb.Database) (map[int64]float64, error) {
	snap, err := takeSnapshot(db)
	if err != nil {
		return nil, err
	}
	n := len(snap.Nodes)
	out := make(map[int64]float64, n)
	for _, id := range snap.Nodes {
		if n <= 1 {
			out[id] = 0
			continue
		}
		out[id] = float64(len(snap.Out[id])) / float64(n-1)
	}
	return out, nil
}

// BetweennessCentrality computes each node's betweenness via Brandes'
// algorithm (spec §4.8) over directed out-edges, unweighted.
func BetweennessCentrality(db *graphdb.Database) (map[int64]float64, error) {
	snap, err := takeSnapshot(db)
	if err != nil {
		return nil, err
	}
	cb := make(map[int64]float64, len(snap.Nodes))
	for _, id := range snap.Nodes {
		cb[id] = 0
	}

	for _, s := range snap.Nodes {
		stack := []int64{}
		preds := map[int64][]int64{}
		sigma := map[int64]float64{s: 1}
		dist := map[int64]int{s: 0}
		queue := []int64{s}

		for len(queue) > 0 {
			v := queue[0]
			queue = queue[1:]
			stack = append(stack, v)
			for _, e := range snap.Out[v] {
				w := e.To
				if _, ok := dist[w]; !ok {
					dist[w] = dist[v] + 1
					queue = append(queue, w)
				}
				if dist[w] == dist[v]+1 {
					sigma[w] += sigma[v]
					preds[w] = append(preds[w], v)
				}
			}
		}

		delta := map[int64]float64{}
		for i := len(stack) - 1; i >= 0; i-- {
			w := stack[i]
			for _, v := range preds[w] {
				delta[v] += (sigma[v] / sigma[w]) * (1 + delta[w])
			}
			if w != s {
				cb[w] += delta[w]
			}
		}
	}
	return cb, nil
}

// PageRank runs the power-iteration PageRank algorithm for a fixed
// iteration count, damping d (spec §4.8). Dangling nodes (no out-edges)
// distribute their mass uniformly across every node, so the result
// always sums to 1 within floating tolerance.
func PageRank(db *graphdb.Database, d float64, iterations int) (map[int64]float64, error) {
	snap, err := takeSnapshot(db)
	if err != nil {
		return nil, err
	}
	n := len(snap.Nodes)
	if n == 0 {
		return map[int64]float64{}, nil
	}

	rank := make(map[int64]float64, n)
	for _, id := range snap.Nodes {
		rank[id] = 1 / float64(n)
	}

	for iter := 0; iter < iterations; iter++ {
		next := make(map[int64]float64, n)
		var danglingMass float64
		for _, id := range snap.Nodes {
			if len(snap.Out[id]) == 0 {
				danglingMass += rank[id]
			}
		}
		base := (1 - d) / float64(n)
		for _, id := range snap.Nodes {
			next[id] = base + d*danglingMass/float64(n)
		}
		for _, id := range snap.Nodes {
			outDeg := len(snap.Out[id])
			if outDeg == 0 {
				continue
			}
			share := d * rank[id] / float64(outDeg)
			for _, e := range snap.Out[id] {
				next[e.To] += share
			}
		}
		rank = next
	}
	return rank, nil
}
