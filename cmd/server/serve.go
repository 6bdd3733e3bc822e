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

	"github.com/AymanNagyAhmed/ekfc-users-ms/internal/api"
	"github.com/AymanNagyAhmed/ekfc-users-ms/internal/app/worker"
)

const shutdownTimeout = 15 * time.Second

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	var withWorker bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Long: `Start the HTTP API. With --with-worker the message handlers run in the
same process, consuming the users and posts queues.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, withWorker)
		},
	}
	cmd.Flags().BoolVar(&withWorker, "with-worker", false, "also run the message worker in this process")
	return cmd
}

func runServe(cmd *cobra.Command, withWorker bool) error {
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

	posts, err := a.postGateway(ctx)
	if err != nil {
		return err
	}
	router, err := api.NewRouter(api.Deps{
		Config:      cfg,
		Logger:      logger,
		Metrics:     a.metrics,
		Gatherer:    a.registry,
		DB:          a.pool,
		AuthService: a.auth,
		UserService: a.userS,
		Posts:       posts,
	})
	if err != nil {
		return err
	}

	var w *worker.MessageWorker
	if withWorker {
		if w, err = a.newWorker(ctx); err != nil {
			return err
		}
	}

	server := &http.Server{
		Addr:         ":" + cfg.APIPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: api.RequestTimeout + 5*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("server starting", "port", cfg.APIPort, "prefix", cfg.APIPrefix, "posts_transport", cfg.PostsTransport)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if w != nil {
		g.Go(func() error {
			return w.Run(gctx, cfg.UsersQueue, cfg.PostsQueue)
		})
	}

	if err := g.Wait(); err != nil {
		logger.Error("server stopped with error", "error", err)
		return err
	}
	logger.Info("server stopped gracefully")
	return nil
}
