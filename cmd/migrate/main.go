package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/splax/bookshelf/internal/app/migrate"
	"github.com/splax/bookshelf/pkg/config"
	"github.com/splax/bookshelf/pkg/logger"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		timeout time.Duration
		dir     string
	)
	cfg := config.LoadAPIConfig()

	runner := func() (migrate.Runner, error) {
		log := logger.New("migrate", logger.ParseLevel(cfg.LogLevel))
		return migrate.New(cfg.DatabaseURL, dir, log)
	}

	root := &cobra.Command{
		Use:          "migrate",
		Short:        "Manage the bookshelf database schema",
		SilenceUsage: true,
	}
	root.PersistentFlags().DurationVar(&timeout, "timeout", time.Minute, "command timeout")
	root.PersistentFlags().StringVar(&dir, "dir", cfg.MigrationsDir, "migrations directory")

	root.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			r, err := runner()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			return r.Ensure(ctx)
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show applied and pending migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			r, err := runner()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			statuses, err := r.Status(ctx)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, st := range statuses {
				applied := "pending"
				if !st.AppliedAt.IsZero() {
					applied = st.AppliedAt.UTC().Format(time.RFC3339)
				}
				fmt.Fprintf(out, "%-6d %-10s %s\n", st.Source.Version, st.State, applied)
			}
			return nil
		},
	})

	var target int64
	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back the latest migration, or down to --target",
		RunE: func(cmd *cobra.Command, _ []string) error {
			r, err := runner()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			return r.Down(ctx, target)
		},
	}
	down.Flags().Int64Var(&target, "target", 0, "roll back every migration above this version")
	root.AddCommand(down)

	return root
}
