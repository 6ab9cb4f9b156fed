// Package main provides the entry point for the Content Lab HTTP API server.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "contentlab",
	Short: "Content Lab HTTP API Server",
	Long:  "Content Lab manages URL-indexed content experiments: scraping page content, generating alternative variants, rating them, and testing search visibility via REST API.",
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
