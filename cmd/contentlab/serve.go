package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jonathan/contentlab/internal/config"
	"github.com/jonathan/contentlab/internal/db"
	"github.com/jonathan/contentlab/internal/fetch"
	"github.com/jonathan/contentlab/internal/orchestrator"
	"github.com/jonathan/contentlab/internal/server"
)

var (
	servePort   int
	serveConfig string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long:  `Start an HTTP server that exposes REST endpoints for managing content models, running scrape, generation, and rating batches, and testing search visibility.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (overrides config)")
	serveCmd.Flags().StringVar(&serveConfig, "config", "", "Path to a JSON config file")
	rootCmd.AddCommand(serveCmd)
}

func runServe(_ *cobra.Command, _ []string) error {
	cfg := &config.Config{}
	if serveConfig != "" {
		loaded, err := config.LoadConfig(serveConfig)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if err := cfg.ApplyEnv(); err != nil {
		return err
	}
	if servePort != 0 {
		cfg.Port = servePort
	}
	cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx := context.Background()
	database, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer database.Close()

	if err := database.Init(ctx); err != nil {
		return fmt.Errorf("failed to initialize database schema: %w", err)
	}

	fetcher := fetch.New(fetch.Options{
		Timeout:    time.Duration(cfg.FetchTimeoutSeconds) * time.Second,
		UseBrowser: cfg.UseBrowser,
		Verbose:    cfg.Verbose,
	})
	orch := orchestrator.New(fetcher, nil, nil)

	return server.New(cfg, database, orch).Start()
}
