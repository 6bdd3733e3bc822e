package database

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sethvargo/go-retry"

	"github.com/AymanNagyAhmed/ekfc-users-ms/internal/common"
	"github.com/AymanNagyAhmed/ekfc-users-ms/internal/platform/config"
)

// ConnectAttempts bounds how many times Connect retries an unreachable database.
const ConnectAttempts = 5

// Connect opens the shared pool and waits for the database to answer a ping.
func Connect(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, common.ConfigErrorf("invalid database url: %v", err)
	}
	poolCfg.MaxConns = cfg.DBMaxConns
	poolCfg.MaxConnLifetime = 5 * time.Minute
	poolCfg.MaxConnIdleTime = 5 * time.Minute

	var pool *pgxpool.Pool
	backoff := retry.WithMaxRetries(ConnectAttempts, retry.NewExponential(500*time.Millisecond))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		p, err := pgxpool.NewWithConfig(ctx, poolCfg)
		if err != nil {
			return retry.RetryableError(err)
		}
		pingCtx, cancel := context.WithTimeout(ctx, cfg.DBTimeout)
		defer cancel()
		if err := p.Ping(pingCtx); err != nil {
			p.Close()
			slog.WarnContext(ctx, "database not ready, retrying", "error", err)
			return retry.RetryableError(err)
		}
		pool = p
		return nil
	})
	if err != nil {
		return nil, common.Unavailable(err, "connect database")
	}

	slog.InfoContext(ctx, "connected to PostgreSQL", "max_conns", poolCfg.MaxConns)
	return pool, nil
}
