package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"linelog/internal/cache"
	"linelog/internal/config"
	"linelog/internal/gitquery"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the trace cache",
}

var cachePruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Remove cached traces for stale head revisions",
	Long: `Remove cached traces recorded against head revisions other than the
repository's current head. Stale entries can never be hit again.`,
	Run: runCachePrune,
}

func init() {
	cacheCmd.AddCommand(cachePruneCmd)
	rootCmd.AddCommand(cacheCmd)
}

func runCachePrune(cmd *cobra.Command, args []string) {
	repoRoot := mustResolveRepoRoot()

	cfg, err := config.LoadConfig(repoRoot)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	logger := newLoggerFromConfig(repoRoot, cfg)
	if !cfg.Cache.Enabled {
		fmt.Println("Cache is disabled; nothing to prune.")
		return
	}

	client, err := gitquery.NewClient(repoRoot, 10*time.Second, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	head, err := client.Head(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	store, err := cache.OpenStore(resolveStatePath(repoRoot, cfg.Cache.Path), logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	n, err := store.Prune(head)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Pruned %d stale cache entries; current head %s retained.\n", n, shortRev(head))
}
