package api

// QueryRequest carries a single Cypher statement to execute.
type QueryRequest struct {
	Cypher string `json:"cypher"`
}

// QueryResponse mirrors cypher.Result in a wire-friendly shape: values
// are rendered with their String() form rather than carrying the tagged
// union cypher.Row uses internally.
type QueryResponse struct {
	Kind    string              `json:"kind"`
	Columns []string            `json:"columns,omitempty"`
	Rows    []map[string]string `json:"rows,omitempty"`

	CreatedNodes int64 `json:"createdNodes,omitempty"`
	CreatedRels  int64 `json:"createdRels,omitempty"`
	UpdatedNodes int64 `json:"updatedNodes,omitempty"`
	DeletedNodes int64 `json:"deletedNodes,omitempty"`
	DeletedRels  int64 `json:"deletedRels,omitempty"`
}

// StatsRequest has no fields; reserved for future filtering.
type StatsRequest struct{}

// StatsResponse is the wire form of concurrent.Stats.
type StatsResponse struct {
	NodeCount int64 `json:"nodeCount"`
	RelCount  int64 `json:"relCount"`

	NodeCacheHits    int64 `json:"nodeCacheHits"`
	NodeCacheMisses  int64 `json:"nodeCacheMisses"`
	QueryCacheHits   int64 `json:"queryCacheHits"`
	QueryCacheMisses int64 `json:"queryCacheMisses"`
}
