package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cuemby/graphdb/internal/config"
	"github.com/cuemby/graphdb/internal/gdlog"
	"github.com/cuemby/graphdb/pkg/graphdb"
)

var (
	// Version information (set via ldflags during build)
	Version = "dev"
	Commit  = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "graphdb",
	Short: "graphdb - an embedded property-graph database",
	Long: `graphdb is an embedded property-graph database: in-process storage,
secondary indexes, a Cypher query frontend, and a graph algorithm library,
all addressable from a single Go process or this CLI.`,
	Version: Version,
}

var cfg config.Config

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf("graphdb version %s\nCommit: %s\n", Version, Commit))

	rootCmd.PersistentFlags().String("config", "", "Path to a graphdb.yaml configuration file")
	rootCmd.PersistentFlags().String("data-dir", "", "Data directory (bolt backend only)")
	rootCmd.PersistentFlags().String("backend", "", "Storage backend: memory or bolt")
	rootCmd.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Output logs in JSON format")

	cobra.OnInitialize(initConfig)

	rootCmd.AddCommand(openCmd)
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(algoCmd)
	rootCmd.AddCommand(serveCmd)
}

// initConfig loads the YAML config (if any) and layers the persistent
// flags on top, then wires logging before any subcommand runs.
func initConfig() {
	path, _ := rootCmd.PersistentFlags().GetString("config")
	loaded, err := config.Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	cfg = loaded

	if v, _ := rootCmd.PersistentFlags().GetString("backend"); v != "" {
		cfg.Backend = v
	}
	if v, _ := rootCmd.PersistentFlags().GetString("data-dir"); v != "" {
		cfg.DataDir = v
	}
	if v, _ := rootCmd.PersistentFlags().GetString("log-level"); v != "" {
		cfg.Log.Level = v
	}
	if v, _ := rootCmd.PersistentFlags().GetBool("log-json"); v {
		cfg.Log.JSON = v
	}

	cfg.InitLogging()
	gdlog.Debug("configuration loaded")
}

// openDatabase creates the bolt data directory if needed (NewBoltEngine
// requires it to already exist) and opens the configured backend.
func openDatabase() (*graphdb.Database, error) {
	if cfg.Backend == "bolt" && cfg.DataDir != "" {
		if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir %s: %w", cfg.DataDir, err)
		}
	}
	return graphdb.NewDatabase(cfg.Engine())
}
