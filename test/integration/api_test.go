package integration

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/cuemby/graphdb/api"
	"github.com/cuemby/graphdb/pkg/concurrent"
	"github.com/cuemby/graphdb/pkg/graphdb"
)

// TestServeRoundTrip exercises the full stack: a Database wrapped in a
// concurrent.Handle, served over a real TCP listener, driven by a plain
// grpc.ClientConn using the json codec (no generated stubs).
func TestServeRoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	db, err := graphdb.NewDatabase(graphdb.DefaultConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	srv := api.NewServer(concurrent.NewHandle(db))

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient(
		lis.Addr().String(),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(api.CodecName)),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	created := new(api.QueryResponse)
	err = conn.Invoke(ctx, "/"+api.ServiceName+"/Query", &api.QueryRequest{
		Cypher: "CREATE (n:Person {name: 'Grace'})",
	}, created)
	require.NoError(t, err)
	assert.Equal(t, "created", created.Kind)
	assert.EqualValues(t, 1, created.CreatedNodes)

	stats := new(api.StatsResponse)
	err = conn.Invoke(ctx, "/"+api.ServiceName+"/Stats", &api.StatsRequest{}, stats)
	require.NoError(t, err)
	assert.EqualValues(t, 1, stats.NodeCount)
}
