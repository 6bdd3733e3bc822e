// Package docstore is a generic document repository over Postgres JSONB.
//
// Each collection is a table of (id, doc, version, seq, created_at, updated_at).
// Documents are Go structs embedding Base; everything except Base lives in doc.
// Writes run in their own transaction unless WithTx joins a caller's one.
package docstore

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/samber/oops"

	"github.com/AymanNagyAhmed/ekfc-users-ms/internal/common"
)

// Base carries the identity and timestamps of every document.
type Base struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Meta gives generic code access to the embedded Base.
func (b *Base) Meta() *Base { return b }

// Document is the constraint on collection element types: a pointer to a struct embedding Base.
type Document[T any] interface {
	*T
	Meta() *Base
}

// Querier is satisfied by *pgxpool.Pool, pgx.Tx and the pgxmock pool.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// DB is a Querier that can open transactions.
type DB interface {
	Querier
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Store owns the connection handle and the per-call timeout shared by its collections.
type Store struct {
	db      DB
	timeout time.Duration
}

// New creates a Store. A non-positive timeout disables the per-call deadline.
func New(db DB, timeout time.Duration) *Store {
	return &Store{db: db, timeout: timeout}
}

// Begin opens a transaction that callers can pass to collection writes with WithTx.
func (s *Store) Begin(ctx context.Context) (pgx.Tx, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, classify("store", "begin", err, nil)
	}
	return tx, nil
}

// RunInTx runs fn in one transaction, committing when fn succeeds and rolling back otherwise.
func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context, tx pgx.Tx) error) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return classify("store", "begin", err, nil)
	}
	done := false
	defer func() {
		if !done {
			rollback(ctx, tx)
		}
	}()

	if err := fn(ctx, tx); err != nil {
		return err
	}
	done = true
	if err := tx.Commit(ctx); err != nil {
		return classify("store", "commit", err, nil)
	}
	return nil
}

func (s *Store) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

// Option adjusts a single collection call.
type Option func(*options)

type options struct {
	tx     pgx.Tx
	limit  int
	offset int
}

// WithTx makes the call part of tx; the caller commits or rolls back.
func WithTx(tx pgx.Tx) Option {
	return func(o *options) { o.tx = tx }
}

// Limit caps FindMany results.
func Limit(n int) Option {
	return func(o *options) { o.limit = n }
}

// Offset skips the first n FindMany results.
func Offset(n int) Option {
	return func(o *options) { o.offset = n }
}

func collect(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func rollback(ctx context.Context, tx pgx.Tx) {
	rbCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	if err := tx.Rollback(rbCtx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		slog.WarnContext(ctx, "transaction rollback failed", "error", err)
	}
}

// classify turns driver failures into coded errors. Errors that are already coded pass through.
func classify(collection, operation string, err error, conflicts map[string]string) error {
	if err == nil {
		return nil
	}
	if _, ok := oops.AsOops(err); ok {
		return err
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
		msg, ok := conflicts[pgErr.ConstraintName]
		if !ok {
			msg = "Duplicate value violates a unique constraint"
		}
		return oops.
			With("collection", collection).
			With("constraint", pgErr.ConstraintName).
			Wrap(common.Conflict(msg))
	}

	var connErr *pgconn.ConnectError
	var netErr net.Error
	if common.IsTimeout(err) || errors.As(err, &connErr) || errors.As(err, &netErr) {
		return common.Unavailable(err, collection+"."+operation)
	}
	return common.Unexpected(err, collection+"."+operation)
}
