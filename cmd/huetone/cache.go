package main

import (
	"context"
	"fmt"

	cachepkg "github.com/huetone-ai/huetone/pkg/cache"
	"github.com/huetone-ai/huetone/pkg/config"
	"github.com/spf13/cobra"
)

func newCacheCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the durable artifact cache",
	}

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Show cache statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			c := cachepkg.New(cfg.Cache.Path, cfg.Cache.TTL)
			defer func() { _ = c.Close() }()

			stats := c.Stats(context.Background())
			fmt.Printf("Entries:  %d\nHits:     %d\nMisses:   %d\n", stats.Entries, stats.Hits, stats.Misses)
			if stats.Degraded {
				fmt.Println("Warning: durable store unavailable, memory fallback active.")
			}
			return nil
		},
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Clear all cache entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			c := cachepkg.New(cfg.Cache.Path, cfg.Cache.TTL)
			defer func() { _ = c.Close() }()

			if err := c.Clear(context.Background()); err != nil {
				return err
			}
			fmt.Println("All cache entries cleared.")
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "huetone.yaml", "path to config file")
	cmd.AddCommand(statsCmd, clearCmd)
	return cmd
}
