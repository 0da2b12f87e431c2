package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/cuemby/graphdb/api"
	"github.com/cuemby/graphdb/internal/gdlog"
	"github.com/cuemby/graphdb/pkg/concurrent"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the configured backend over gRPC",
	Long: `Serve opens the configured backend, wraps it in a concurrent.Handle,
and exposes Query and Stats RPCs over gRPC until interrupted.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("addr", ":7687", "Address to listen on")
}

func runServe(cmd *cobra.Command, args []string) error {
	addr, _ := cmd.Flags().GetString("addr")

	db, err := openDatabase()
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	handle := concurrent.NewHandle(db)
	srv := api.NewServer(handle)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start(addr) }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case <-sigCh:
		gdlog.Info("shutting down")
		srv.Stop()
		return nil
	}
}
