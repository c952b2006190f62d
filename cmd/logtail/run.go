package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/MuchTitan/logtail/internal/config"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func newRunCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Start the agent and tail until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := config.NewPluginEngine(*configPath)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			logrus.Info("Starting logtail")
			if err := engine.Start(); err != nil {
				return err
			}

			runErr := wait(ctx, engine.Errors())

			logrus.Info("Stopping logtail")
			if err := engine.Stop(); err != nil {
				logrus.WithError(err).Error("errors during shutdown")
			}
			return runErr
		},
	}
}

// wait blocks until ctx is done or an input reports a fatal error. Only
// the latter is returned.
func wait(ctx context.Context, errs <-chan error) error {
	select {
	case <-ctx.Done():
		return nil
	case err := <-errs:
		return fmt.Errorf("input failed: %w", err)
	}
}
