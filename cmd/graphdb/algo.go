package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/cuemby/graphdb/pkg/algo"
)

var algoCmd = &cobra.Command{
	Use:   "algo",
	Short: "Run a graph algorithm against a graphdb data directory",
	Long: `Algo opens the configured backend and runs one of the built-in
graph algorithms: degree, betweenness, pagerank, components, scc, kcore,
louvain, bfs, dijkstra, astar, or triangles.`,
	RunE: runAlgo,
}

func init() {
	algoCmd.Flags().String("name", "", "Algorithm to run (required)")
	algoCmd.Flags().Int64("source", 0, "Source node id (bfs, dijkstra, astar)")
	algoCmd.Flags().Int64("target", 0, "Target node id (bfs, dijkstra, astar)")
	algoCmd.Flags().Float64("damping", 0.85, "Damping factor (pagerank)")
	algoCmd.Flags().Int("iterations", 20, "Iteration count (pagerank)")
	algoCmd.Flags().Int("k", 2, "Core number k (kcore)")
	algoCmd.Flags().Int("levels", 4, "Max aggregation levels (louvain)")
	_ = algoCmd.MarkFlagRequired("name")
}

func runAlgo(cmd *cobra.Command, args []string) error {
	name, _ := cmd.Flags().GetString("name")

	db, err := openDatabase()
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	switch name {
	case "degree":
		scores, err := algo.DegreeCentrality(db)
		if err != nil {
			return err
		}
		printScores(scores)
	case "betweenness":
		scores, err := algo.BetweennessCentrality(db)
		if err != nil {
			return err
		}
		printScores(scores)
	case "pagerank":
		damping, _ := cmd.Flags().GetFloat64("damping")
		iterations, _ := cmd.Flags().GetInt("iterations")
		scores, err := algo.PageRank(db, damping, iterations)
		if err != nil {
			return err
		}
		printScores(scores)
	case "components":
		labels, err := algo.ConnectedComponents(db)
		if err != nil {
			return err
		}
		printLabels(labels)
	case "scc":
		labels, err := algo.SCC(db)
		if err != nil {
			return err
		}
		printLabels(labels)
	case "kcore":
		k, _ := cmd.Flags().GetInt("k")
		cores, err := algo.KCore(db, k)
		if err != nil {
			return err
		}
		for _, id := range sortedIntKeys(cores) {
			fmt.Printf("%d\t%d\n", id, cores[id])
		}
	case "louvain":
		levels, _ := cmd.Flags().GetInt("levels")
		communities, err := algo.Louvain(db, levels)
		if err != nil {
			return err
		}
		printLabels(communities)
	case "bfs":
		source, _ := cmd.Flags().GetInt64("source")
		target, _ := cmd.Flags().GetInt64("target")
		path, found, err := algo.BFS(db, source, target)
		if err != nil {
			return err
		}
		printPath(path, found, 0, false)
	case "dijkstra":
		source, _ := cmd.Flags().GetInt64("source")
		target, _ := cmd.Flags().GetInt64("target")
		path, cost, found, err := algo.Dijkstra(db, source, target)
		if err != nil {
			return err
		}
		printPath(path, found, cost, true)
	case "astar":
		source, _ := cmd.Flags().GetInt64("source")
		target, _ := cmd.Flags().GetInt64("target")
		h := algo.EuclideanHeuristic(db, target)
		path, cost, found, err := algo.AStar(db, source, target, h)
		if err != nil {
			return err
		}
		printPath(path, found, cost, true)
	case "triangles":
		stats, err := algo.TriangleCount(db)
		if err != nil {
			return err
		}
		fmt.Printf("triangles: %d\nglobal clustering coefficient: %f\n", stats.Total, stats.GlobalClustering)
	default:
		return fmt.Errorf("unknown algorithm: %s", name)
	}
	return nil
}

func printScores(scores map[int64]float64) {
	for _, id := range sortedIntKeys(scores) {
		fmt.Printf("%d\t%f\n", id, scores[id])
	}
}

func printLabels(labels map[int64]int64) {
	for _, id := range sortedIntKeys(labels) {
		fmt.Printf("%d\t%d\n", id, labels[id])
	}
}

func printPath(path []int64, found bool, cost float64, weighted bool) {
	if !found {
		fmt.Println("(no path)")
		return
	}
	fmt.Println(path)
	if weighted {
		fmt.Printf("cost: %f\n", cost)
	}
}

// sortedIntKeys accepts any map keyed by int64 so the three reporting
// helpers above can share one deterministic ordering routine.
func sortedIntKeys[V any](m map[int64]V) []int64 {
	keys := make([]int64, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
