// Package api is a thin gRPC demo server exposing the Cypher executor
// and engine stats of a graphdb.Database over the network. It exists to
// show the engine can be wrapped behind a service boundary; it carries
// none of the cluster membership or mTLS machinery a multi-node system
// needs, since a single embedded engine has no peers to authenticate.
package api

import (
	"context"
	"fmt"
	"net"

	"google.golang.org/grpc"

	"github.com/cuemby/graphdb/internal/gdlog"
	"github.com/cuemby/graphdb/pkg/concurrent"
	"github.com/cuemby/graphdb/pkg/cypher"
)

// Server implements GraphServiceServer over a concurrent.Handle, so the
// same engine can also be driven in-process while serve runs.
type Server struct {
	handle *concurrent.Handle
	grpc   *grpc.Server
}

// NewServer wraps handle in a gRPC server with a logging interceptor.
func NewServer(handle *concurrent.Handle) *Server {
	s := &Server{handle: handle}
	s.grpc = grpc.NewServer(grpc.UnaryInterceptor(LoggingInterceptor()))
	RegisterGraphServiceServer(s.grpc, s)
	return s
}

// Start listens on addr and serves until Stop is called or Serve errors.
func (s *Server) Start(addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	return s.Serve(lis)
}

// Serve runs the server on an already-bound listener, e.g. one a test
// opened on an ephemeral port to learn the address before dialing it.
func (s *Server) Serve(lis net.Listener) error {
	gdlog.WithComponent("api").Info().Str("addr", lis.Addr().String()).Msg("gRPC server listening")
	return s.grpc.Serve(lis)
}

// Stop gracefully stops the server, letting in-flight RPCs finish.
func (s *Server) Stop() {
	if s.grpc != nil {
		s.grpc.GracefulStop()
	}
}

// Query runs a single Cypher statement and renders the result for the
// wire (see messages.go's comment on why this isn't cypher.Result itself).
func (s *Server) Query(ctx context.Context, req *QueryRequest) (*QueryResponse, error) {
	result, err := cypher.NewExecutor(s.handle.Database()).Execute(req.Cypher)
	if err != nil {
		return nil, err
	}

	resp := &QueryResponse{
		Columns:      result.Columns,
		CreatedNodes: int64(len(result.Created.Nodes)),
		CreatedRels:  int64(len(result.Created.Rels)),
		UpdatedNodes: int64(len(result.Updated.Nodes)),
		DeletedNodes: int64(len(result.Deleted.Nodes)),
		DeletedRels:  int64(len(result.Deleted.Rels)),
	}
	switch result.Kind {
	case cypher.KindCreated:
		resp.Kind = "created"
	case cypher.KindUpdated:
		resp.Kind = "updated"
	case cypher.KindDeleted:
		resp.Kind = "deleted"
	case cypher.KindTxStarted:
		resp.Kind = "tx_started"
	case cypher.KindTxCommitted:
		resp.Kind = "tx_committed"
	case cypher.KindTxRolledBack:
		resp.Kind = "tx_rolled_back"
	default:
		resp.Kind = "rows"
	}

	for _, row := range result.Rows {
		wire := make(map[string]string, len(row))
		for col, v := range row {
			wire[col] = v.String()
		}
		resp.Rows = append(resp.Rows, wire)
	}
	return resp, nil
}

// Stats reports a consistent engine-wide snapshot (concurrent.Handle.Stats).
func (s *Server) Stats(ctx context.Context, req *StatsRequest) (*StatsResponse, error) {
	stats, err := s.handle.Stats()
	if err != nil {
		return nil, err
	}
	return &StatsResponse{
		NodeCount:        stats.NodeCount,
		RelCount:         stats.RelCount,
		NodeCacheHits:    stats.NodeCache.Hits,
		NodeCacheMisses:  stats.NodeCache.Misses,
		QueryCacheHits:   stats.QueryCache.Hits,
		QueryCacheMisses: stats.QueryCache.Misses,
	}, nil
}
