package graphdb

import (
	"sync"

	"github.com/cuemby/graphdb/internal/gdlog"
	"github.com/cuemby/graphdb/pkg/graph"
)

// NodeResult pairs a NodeSpec's outcome with its original index, since
// ParallelCreateNodes's goroutines complete out of submission order.
type NodeResult struct {
	Index int
	Node  *graph.Node
	Err   error
}

// ParallelCreateNodes fans specs out across concurrency goroutines (spec
// §4.2.6). Each goroutine holds asyncMu for its whole CreateNode call
// (constraint check, write, index and cache updates), since neither the
// memory nor the bbolt engine tolerates concurrent writers, so node
// creations themselves do not overlap. Results are returned in
// submission order regardless of completion order.
func (db *Database) ParallelCreateNodes(specs []NodeSpec, concurrency int) []NodeResult {
	if concurrency <= 0 {
		concurrency = 1
	}
	results := make([]NodeResult, len(specs))
	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup

	for i, spec := range specs {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, spec NodeSpec) {
			defer wg.Done()
			defer func() { <-sem }()

			db.asyncMu.Lock()
			n, err := db.CreateNode(spec.Labels, spec.Props, nil)
			db.asyncMu.Unlock()

			if err != nil {
				gdlog.WithComponent("graphdb").Error().Err(err).Int("index", i).Msg("parallel create_node failed")
			}
			results[i] = NodeResult{Index: i, Node: n, Err: err}
		}(i, spec)
	}
	wg.Wait()
	return results
}

// ChunkResult reports the outcome of one chunk processed by
// StreamCreateNodes.
type ChunkResult struct {
	Nodes []*graph.Node
	Err   error
}

// StreamCreateNodes creates specs chunkSize at a time, sending a
// ChunkResult for each completed chunk on the returned channel before
// starting the next one. The unbuffered send is the suspension point: a
// slow consumer naturally backpressures chunk production (spec §4.2.6's
// "may suspend between chunks"). The channel is closed once every chunk
// has been sent or an error stops the stream early.
func (db *Database) StreamCreateNodes(specs []NodeSpec, chunkSize int) <-chan ChunkResult {
	if chunkSize <= 0 {
		chunkSize = 1
	}
	out := make(chan ChunkResult)

	go func() {
		defer close(out)
		db.asyncMu.Lock()
		defer db.asyncMu.Unlock()

		for start := 0; start < len(specs); start += chunkSize {
			end := start + chunkSize
			if end > len(specs) {
				end = len(specs)
			}

			chunk := make([]*graph.Node, 0, end-start)
			var chunkErr error
			for _, spec := range specs[start:end] {
				n, err := db.CreateNode(spec.Labels, spec.Props, nil)
				if err != nil {
					chunkErr = err
					break
				}
				chunk = append(chunk, n)
			}

			out <- ChunkResult{Nodes: chunk, Err: chunkErr}
			if chunkErr != nil {
				return
			}
		}
	}()

	return out
}
