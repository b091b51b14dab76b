package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/stockwatch/internal/metrics"
	"github.com/JakeFAU/stockwatch/internal/scheduler"
)

func newWatchCmd() *cobra.Command {
	var schedule string
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Runs monitoring passes on a schedule",
		Long: `Runs a pass immediately and then on the configured cron schedule,
serving Prometheus metrics until interrupted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			cfg := appInstance.Config()
			logger := appInstance.Logger()
			if schedule == "" {
				schedule = cfg.Scheduler.Schedule
			}

			pass, err := appInstance.Pass()
			if err != nil {
				return fmt.Errorf("build pass: %w", err)
			}

			stopMetrics := serveMetrics(cfg.Metrics.Addr, logger)
			defer stopMetrics()

			return scheduler.Watch(cmd.Context(), schedule, pass, logger)
		},
	}
	cmd.Flags().StringVar(&schedule, "schedule", "", "cron schedule overriding scheduler.schedule")
	return cmd
}

// serveMetrics starts the metrics listener when addr is set and returns its shutdown func.
func serveMetrics(addr string, logger *zap.Logger) func() {
	if addr == "" {
		return func() {}
	}
	metrics.Init()
	srv := &http.Server{
		Addr:              addr,
		Handler:           metrics.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("metrics server listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", zap.Error(err))
		}
	}()
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logger.Warn("metrics server shutdown failed", zap.Error(err))
		}
	}
}
