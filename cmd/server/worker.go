package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/AymanNagyAhmed/ekfc-users-ms/internal/platform/metrics"
)

// NewWorkerCmd creates the worker subcommand.
func NewWorkerCmd() *cobra.Command {
	var metricsAddr string

	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Run only the message handlers",
		Long:  `Consume the users and posts queues and answer every message pattern.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWorker(cmd, metricsAddr)
		},
	}
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "address serving /metrics (empty = disabled)")
	return cmd
}

func runWorker(cmd *cobra.Command, metricsAddr string) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.close()

	w, err := a.newWorker(ctx)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return w.Run(gctx, cfg.UsersQueue, cfg.PostsQueue)
	})
	if metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler(a.registry))
		srv := &http.Server{Addr: metricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		g.Go(func() error {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), shutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	if err := g.Wait(); err != nil {
		logger.Error("worker stopped with error", "error", err)
		return err
	}
	logger.Info("worker stopped")
	return nil
}
