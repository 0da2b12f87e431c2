// Package algo implements the read-only graph algorithm library (C11):
// shortest paths, centrality measures, community detection, and
// structural statistics, all computed over a single consistent Snapshot
// taken through C8 rather than re-querying the engine at every step.
package algo
