package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/cityops/traffic-light-monitor/internal/errs"
)

// acquireAttempts bounds the connection retry loop
const acquireAttempts = 5

// Executor runs statements against an open session, routing through the
// session transaction when one is open
type Executor interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Provider hands out sessions scoped to one logical operation. No caller
// holds a session across operations.
type Provider struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewProvider creates a session provider over the shared pool
func NewProvider(pool *pgxpool.Pool, logger *zap.Logger) *Provider {
	return &Provider{pool: pool, logger: logger}
}

// Session owns one pooled connection, and the enclosing transaction when
// acquired without autocommit
type Session struct {
	conn   *pgxpool.Conn
	tx     pgx.Tx
	logger *zap.Logger
}

// Acquire obtains a connection, retrying up to the attempt bound. A fatal
// error (cancelled or expired context) aborts the retries immediately;
// transient failures are logged with their attempt index and retried.
// With autoCommit false the session opens a transaction that Commit or
// Release must settle.
func (p *Provider) Acquire(ctx context.Context, autoCommit bool) (*Session, error) {
	var lastErr error
	for attempt := 1; attempt <= acquireAttempts; attempt++ {
		p.logger.Info("attempt to connect to the database", zap.Int("attempt", attempt))

		conn, err := p.pool.Acquire(ctx)
		if err != nil {
			lastErr = err
			if ctx.Err() != nil {
				p.logger.Error("fatal error getting connection", zap.Int("attempt", attempt), zap.Error(err))
				return nil, fmt.Errorf("%w: %v", errs.ErrConnection, err)
			}
			p.logger.Error("error getting connection", zap.Int("attempt", attempt), zap.Error(err))
			continue
		}

		s := &Session{conn: conn, logger: p.logger}
		if !autoCommit {
			tx, err := conn.Begin(ctx)
			if err != nil {
				conn.Release()
				return nil, fmt.Errorf("%w: begin: %v", errs.ErrConnection, err)
			}
			s.tx = tx
		}

		p.logger.Debug("connection obtained", zap.Int("attempt", attempt))
		return s, nil
	}
	return nil, fmt.Errorf("%w after %d attempts: %v", errs.ErrConnection, acquireAttempts, lastErr)
}

// Exec runs a statement on the session
func (s *Session) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if s.tx != nil {
		return s.tx.Exec(ctx, sql, args...)
	}
	return s.conn.Exec(ctx, sql, args...)
}

// Query runs a query on the session
func (s *Session) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	if s.tx != nil {
		return s.tx.Query(ctx, sql, args...)
	}
	return s.conn.Query(ctx, sql, args...)
}

// QueryRow runs a single-row query on the session
func (s *Session) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if s.tx != nil {
		return s.tx.QueryRow(ctx, sql, args...)
	}
	return s.conn.QueryRow(ctx, sql, args...)
}

// Commit closes the session transaction. A no-op in autocommit mode.
func (s *Session) Commit(ctx context.Context) error {
	if s.tx == nil {
		return nil
	}
	if err := s.tx.Commit(ctx); err != nil {
		s.logger.Error("error closing the transaction", zap.Error(err))
		return fmt.Errorf("%w: commit: %v", errs.ErrStorage, err)
	}
	s.tx = nil
	s.logger.Debug("transaction closed")
	return nil
}

// Rollback cancels the session transaction. Failures are logged, never
// propagated.
func (s *Session) Rollback(ctx context.Context) {
	if s.tx == nil {
		return
	}
	if err := s.tx.Rollback(ctx); err != nil && err != pgx.ErrTxClosed {
		s.logger.Error("error canceling the transaction", zap.Error(err))
	}
	s.tx = nil
}

// Release returns the connection to the pool. Unconditional cleanup:
// safe on a nil or already-released session, rolls back any transaction
// still open, and never panics past the caller.
func (s *Session) Release(ctx context.Context) {
	if s == nil || s.conn == nil {
		return
	}
	if s.tx != nil {
		s.Rollback(ctx)
	}
	s.conn.Release()
	s.conn = nil
	s.logger.Debug("connection released")
}
