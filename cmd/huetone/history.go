package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/huetone-ai/huetone/pkg/config"
	"github.com/huetone-ai/huetone/pkg/history"
	"github.com/huetone-ai/huetone/pkg/models"
	"github.com/spf13/cobra"
)

func newHistoryCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Query the visualization request history",
	}

	var (
		imageHash string
		outcome   string
		since     string
		limit     int
	)
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List recent requests",
		RunE: func(cmd *cobra.Command, args []string) error {
			l, cleanup, err := openHistory(configPath)
			if err != nil {
				return err
			}
			defer cleanup()

			opts := models.HistoryQueryOpts{
				ImageHash: imageHash,
				Outcome:   outcome,
				Limit:     limit,
			}
			if since != "" {
				t, err := time.Parse("2006-01-02", since)
				if err != nil {
					return fmt.Errorf("invalid --since date (use YYYY-MM-DD): %w", err)
				}
				opts.Since = t
			}

			entries, err := l.Query(context.Background(), opts)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Println("No history entries found.")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "TIME\tIMAGE\tCOLOR\tOUTCOME\tCACHED\tLATENCY")
			for _, e := range entries {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%t\t%dms\n",
					e.CreatedAt.Format("2006-01-02T15:04:05"), e.ImageHash, e.Color, e.Outcome, e.Cached, e.LatencyMs)
			}
			return w.Flush()
		},
	}
	listCmd.Flags().StringVar(&imageHash, "image", "", "filter by image hash")
	listCmd.Flags().StringVar(&outcome, "outcome", "", "filter by outcome (succeeded, failed, denied, superseded)")
	listCmd.Flags().StringVar(&since, "since", "", "only entries on or after this date (YYYY-MM-DD)")
	listCmd.Flags().IntVar(&limit, "limit", 50, "maximum entries to show")

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Show request counts by outcome and day",
		RunE: func(cmd *cobra.Command, args []string) error {
			l, cleanup, err := openHistory(configPath)
			if err != nil {
				return err
			}
			defer cleanup()

			stats, err := l.Stats(context.Background())
			if err != nil {
				return err
			}
			if len(stats) == 0 {
				fmt.Println("No history entries found.")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "DAY\tOUTCOME\tCOUNT")
			for _, s := range stats {
				fmt.Fprintf(w, "%s\t%s\t%d\n", s.Day, s.Outcome, s.Count)
			}
			return w.Flush()
		},
	}

	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "huetone.yaml", "path to config file")
	cmd.AddCommand(listCmd, statsCmd)
	return cmd
}

func openHistory(configPath string) (*history.Logger, func(), error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	l, err := history.New(cfg.History.Path, cfg.History.RetentionDays)
	if err != nil {
		return nil, nil, err
	}
	return l, func() { _ = l.Close() }, nil
}
