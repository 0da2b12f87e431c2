package algo

import (
	"container/heap"
	"math"

	"github.com/cuemby/graphdb/pkg/graphdb"
)

// BFS returns the shortest (by hop count) path from s to t, including
// both endpoints, over directed out-edges. The second return is false if
// t is unreachable. s == t returns the singleton path (spec §4.8).
func BFS(db *graphdb.Database, s, t int64) ([]int64, bool, error) {
	snap, err := takeSnapshot(db)
	if err != nil {
		return nil, false, err
	}
	if s == t {
		return []int64{s}, true, nil
	}

	visited := map[int64]bool{s: true}
	prev := map[int64]int64{}
	queue := []int64{s}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, e := range snap.Out[cur] {
			if visited[e.To] {
				continue
			}
			visited[e.To] = true
			prev[e.To] = cur
			if e.To == t {
				return reconstruct(prev, s, t), true, nil
			}
			queue = append(queue, e.To)
		}
	}
	return nil, false, nil
}

func reconstruct(prev map[int64]int64, s, t int64) []int64 {
	path := []int64{t}
	for cur := t; cur != s; {
		cur = prev[cur]
		path = append([]int64{cur}, path...)
	}
	return path
}

// AllShortestPaths returns every distinct minimum-length directed path
// from s to t (spec §4.8), via layered-predecessor BFS: every node
// records all predecessors that first reached it at its shortest
// distance, then paths are reconstructed by walking predecessor sets
// backward from t.
func AllShortestPaths(db *graphdb.Database, s, t int64) ([][]int64, error) {
	snap, err := takeSnapshot(db)
	if err != nil {
		return nil, err
	}
	if s == t {
		return [][]int64{{s}}, nil
	}

	dist := map[int64]int{s: 0}
	preds := map[int64][]int64{}
	queue := []int64{s}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, e := range snap.Out[cur] {
			nd := dist[cur] + 1
			if d, ok := dist[e.To]; !ok {
				dist[e.To] = nd
				preds[e.To] = []int64{cur}
				queue = append(queue, e.To)
			} else if d == nd {
				preds[e.To] = append(preds[e.To], cur)
			}
		}
	}

	if _, ok := dist[t]; !ok {
		return nil, nil
	}

	var paths [][]int64
	var build func(node int64, suffix []int64)
	build = func(node int64, suffix []int64) {
		path := append([]int64{node}, suffix...)
		if node == s {
			paths = append(paths, path)
			return
		}
		for _, p := range preds[node] {
			build(p, path)
		}
	}
	build(t, nil)
	return paths, nil
}

type pqItem struct {
	node     int64
	priority float64
}

type priorityQueue []*pqItem

func (pq priorityQueue) Len() int            { return len(pq) }
func (pq priorityQueue) Less(i, j int) bool  { return pq[i].priority < pq[j].priority }
func (pq priorityQueue) Swap(i, j int)       { pq[i], pq[j] = pq[j], pq[i] }
func (pq *priorityQueue) Push(x interface{}) { *pq = append(*pq, x.(*pqItem)) }
func (pq *priorityQueue) Pop() interface{} {
	old := *pq
	n := len(old)
	item := old[n-1]
	*pq = old[:n-1]
	return item
}

// Dijkstra returns the minimum-cost path from s to t and its total cost,
// over directed out-edges weighted per Snapshot (spec §4.8: weight 1
// unless a numeric "weight" property is present).
func Dijkstra(db *graphdb.Database, s, t int64) ([]int64, float64, bool, error) {
	path, cost, found, err := shortestWeighted(db, s, t, func(int64) float64 { return 0 })
	return path, cost, found, err
}

// AStar is Dijkstra guided by a caller-supplied admissible heuristic h.
// EuclideanHeuristic and ManhattanHeuristic build h over node x/y
// properties (spec §4.8).
func AStar(db *graphdb.Database, s, t int64, h func(node int64) float64) ([]int64, float64, bool, error) {
	return shortestWeighted(db, s, t, h)
}

func shortestWeighted(db *graphdb.Database, s, t int64, h func(int64) float64) ([]int64, float64, bool, error) {
	snap, err := takeSnapshot(db)
	if err != nil {
		return nil, 0, false, err
	}
	if s == t {
		return []int64{s}, 0, true, nil
	}

	dist := map[int64]float64{s: 0}
	prev := map[int64]int64{}
	visited := map[int64]bool{}

	pq := &priorityQueue{{node: s, priority: h(s)}}
	heap.Init(pq)

	for pq.Len() > 0 {
		cur := heap.Pop(pq).(*pqItem).node
		if visited[cur] {
			continue
		}
		visited[cur] = true
		if cur == t {
			return reconstruct(prev, s, t), dist[t], true, nil
		}
		for _, e := range snap.Out[cur] {
			nd := dist[cur] + e.Weight
			if d, ok := dist[e.To]; !ok || nd < d {
				dist[e.To] = nd
				prev[e.To] = cur
				heap.Push(pq, &pqItem{node: e.To, priority: nd + h(e.To)})
			}
		}
	}
	return nil, 0, false, nil
}

// NodeXY resolves a node's x/y properties as floats, used by
// Euclidean/ManhattanHeuristic. Missing or non-numeric coordinates read
// as 0.
func nodeXY(db *graphdb.Database, id int64) (x, y float64) {
	n, err := db.GetNode(id)
	if err != nil {
		return 0, 0
	}
	if v, ok := n.Props["x"]; ok {
		if f, isNum := v.Numeric(); isNum {
			x = f
		}
	}
	if v, ok := n.Props["y"]; ok {
		if f, isNum := v.Numeric(); isNum {
			y = f
		}
	}
	return x, y
}

// EuclideanHeuristic builds an A* heuristic estimating straight-line
// distance to target over each node's x/y properties.
func EuclideanHeuristic(db *graphdb.Database, target int64) func(int64) float64 {
	tx, ty := nodeXY(db, target)
	return func(node int64) float64 {
		x, y := nodeXY(db, node)
		dx, dy := x-tx, y-ty
		return math.Sqrt(dx*dx + dy*dy)
	}
}

// ManhattanHeuristic builds an A* heuristic estimating grid distance to
// target over each node's x/y properties.
func ManhattanHeuristic(db *graphdb.Database, target int64) func(int64) float64 {
	tx, ty := nodeXY(db, target)
	return func(node int64) float64 {
		x, y := nodeXY(db, node)
		return math.Abs(x-tx) + math.Abs(y-ty)
	}
}
