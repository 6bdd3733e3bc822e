package main

import (
	"context"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/samber/oops"

	"github.com/AymanNagyAhmed/ekfc-users-ms/internal/api/rpc"
	"github.com/AymanNagyAhmed/ekfc-users-ms/internal/app/service"
	"github.com/AymanNagyAhmed/ekfc-users-ms/internal/app/worker"
	"github.com/AymanNagyAhmed/ekfc-users-ms/internal/common/security"
	"github.com/AymanNagyAhmed/ekfc-users-ms/internal/domain/docstore"
	"github.com/AymanNagyAhmed/ekfc-users-ms/internal/domain/repository"
	"github.com/AymanNagyAhmed/ekfc-users-ms/internal/platform/config"
	"github.com/AymanNagyAhmed/ekfc-users-ms/internal/platform/database"
	"github.com/AymanNagyAhmed/ekfc-users-ms/internal/platform/metrics"
	"github.com/AymanNagyAhmed/ekfc-users-ms/internal/platform/queue"
)

// app holds the process-wide dependencies shared by serve and worker.
type app struct {
	cfg    *config.Config
	logger *slog.Logger

	pool     *pgxpool.Pool
	rdb      *redis.Client
	registry *prometheus.Registry
	metrics  *metrics.Collector

	users repository.UserRepository
	auth  *service.AuthService
	userS *service.UserService
	postS *service.PostService
}

// newApp connects the database and builds the services. Redis is connected
// separately by the commands that need it.
func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	if cfg.AutoMigrate {
		if err := migrateUp(cfg.DatabaseURL); err != nil {
			return nil, err
		}
		logger.InfoContext(ctx, "migrations applied")
	}

	pool, err := database.Connect(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, logger: logger, pool: pool, registry: prometheus.NewRegistry()}
	a.metrics = metrics.NewCollector(a.registry)

	store := docstore.New(pool, cfg.DBTimeout)
	users, err := repository.NewDocUserRepository(store)
	if err != nil {
		a.close()
		return nil, err
	}
	posts, err := repository.NewDocPostRepository(store)
	if err != nil {
		a.close()
		return nil, err
	}

	hasher := security.NewBcryptHasher()
	tokens := security.NewTokenService(cfg.JWTSecret, cfg.JWTExpiresIn)
	a.users = users
	a.auth = service.NewAuthService(users, hasher, tokens, service.CookieOptions{
		Path:   cfg.APIPrefix,
		Secure: cfg.IsProduction(),
	})
	a.userS = service.NewUserService(users, hasher)
	a.postS = service.NewPostService(posts)
	return a, nil
}

func (a *app) connectQueue(ctx context.Context) (queue.Broker, error) {
	if a.rdb == nil {
		rdb, err := queue.Connect(ctx, a.cfg)
		if err != nil {
			return nil, err
		}
		a.rdb = rdb
	}
	return queue.NewRedisBroker(a.rdb), nil
}

// postGateway is the local post service or, with the queue transport, a client
// of whichever worker serves the posts queue.
func (a *app) postGateway(ctx context.Context) (service.PostGateway, error) {
	if a.cfg.PostsTransport != config.TransportQueue {
		return a.postS, nil
	}
	broker, err := a.connectQueue(ctx)
	if err != nil {
		return nil, err
	}
	return rpc.NewPostClient(queue.NewClient(broker, a.cfg.PostsQueue, a.cfg.RPCTimeout)), nil
}

// newWorker builds a message worker serving every user and post pattern.
func (a *app) newWorker(ctx context.Context) (*worker.MessageWorker, error) {
	broker, err := a.connectQueue(ctx)
	if err != nil {
		return nil, err
	}
	w := worker.NewMessageWorker(broker, worker.Options{
		Concurrency:    a.cfg.RPCConcurrency,
		HandlerTimeout: a.cfg.RPCTimeout,
		Logger:         a.logger,
		Metrics:        a.metrics,
	})
	h := rpc.Handlers{Auth: a.auth, Users: a.userS, Posts: a.postS}
	h.RegisterUsers(w)
	h.RegisterPosts(w)
	return w, nil
}

func (a *app) close() {
	if a.rdb != nil {
		if err := a.rdb.Close(); err != nil {
			a.logger.Warn("closing redis", "error", err)
		}
	}
	if a.pool != nil {
		a.pool.Close()
	}
}

func migrateUp(databaseURL string) error {
	m, err := database.NewMigrator(databaseURL)
	if err != nil {
		return err
	}
	defer func() { _ = m.Close() }()
	if err := m.Up(); err != nil {
		return oops.With("operation", "apply migrations").Wrap(err)
	}
	return nil
}
