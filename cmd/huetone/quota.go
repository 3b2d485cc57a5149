package main

import (
	"context"
	"fmt"
	"time"

	"github.com/huetone-ai/huetone/pkg/config"
	"github.com/huetone-ai/huetone/pkg/fingerprint"
	"github.com/huetone-ai/huetone/pkg/quota"
	"github.com/huetone-ai/huetone/pkg/quota/store"
	"github.com/spf13/cobra"
)

func newQuotaCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "quota",
		Short: "Inspect and manage session rate-limit state",
	}

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show remaining quota and cooldown",
		RunE: func(cmd *cobra.Command, args []string) error {
			l, cleanup, err := openLimiter(configPath)
			if err != nil {
				return err
			}
			defer cleanup()

			s := l.Status()
			fmt.Printf("Daily remaining:   %d\n", s.DailyRemaining)
			fmt.Printf("Hourly remaining:  %d\n", s.HourlyRemaining)
			if s.CooldownUntil.After(time.Now()) {
				fmt.Printf("Cooldown until:    %s\n", s.CooldownUntil.Format(time.RFC3339))
			}
			fmt.Printf("Daily reset in:    %s\n", s.TimeUntilDailyReset.Round(time.Second))
			return nil
		},
	}

	resetCmd := &cobra.Command{
		Use:   "reset",
		Short: "Clear quota state from both stores",
		RunE: func(cmd *cobra.Command, args []string) error {
			l, cleanup, err := openLimiter(configPath)
			if err != nil {
				return err
			}
			defer cleanup()

			if err := l.Reset(context.Background()); err != nil {
				return err
			}
			fmt.Println("Quota state cleared.")
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "huetone.yaml", "path to config file")
	cmd.AddCommand(statusCmd, resetCmd)
	return cmd
}

func openLimiter(configPath string) (*quota.Limiter, func(), error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}

	primary, err := store.NewBolt(cfg.Quota.PrimaryPath)
	if err != nil {
		return nil, nil, err
	}
	secondary, err := store.NewSQLite(cfg.Quota.SecondaryPath, fingerprint.Derive())
	if err != nil {
		primary.Close()
		return nil, nil, err
	}

	l := quota.New(limitsFrom(cfg), primary, secondary)
	return l, func() { _ = l.Close() }, nil
}

func limitsFrom(cfg *config.Config) quota.Limits {
	return quota.Limits{
		Daily:           cfg.Quota.DailyLimit,
		Hourly:          cfg.Quota.HourlyLimit,
		MinCooldown:     cfg.Quota.MinCooldown,
		CooldownStep:    cfg.Quota.CooldownStep,
		MaxCooldown:     cfg.Quota.MaxCooldown,
		MaxUniqueImages: cfg.Quota.MaxUniqueImagesPerDay,
	}
}
