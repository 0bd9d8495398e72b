package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/amaumene/tvarr/internal/api"
	"github.com/amaumene/tvarr/internal/scheduler"
)

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the scheduler and the HTTP API (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
}

func runServe(ctx context.Context) error {
	a, err := newApp(os.Stdout)
	if err != nil {
		return err
	}
	defer a.Close()

	a.logger.Info("Starting tvarr")

	sched := scheduler.NewScheduler(a.tracker, a.downloads, a.cleanup, a.cfg.CheckInterval, a.cfg.AutoCheck, a.logger)
	if err := sched.Start(); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}
	defer sched.Stop()

	server := api.NewServer(a.cfg, a.db, a.shows, a.tracker, sched, a.logger)

	a.logger.Info("tvarr is running")
	if err := server.Start(ctx); err != nil {
		return err
	}

	a.logger.Info("tvarr stopped")
	return nil
}
