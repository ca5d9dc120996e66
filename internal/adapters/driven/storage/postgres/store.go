// Package postgres provides a PostgreSQL implementation of the item and
// scheduler stores for deployments that share one database between several
// appwatch processes.
//
// Transact locks the item row with SELECT ... FOR UPDATE, so commits for the
// same item are serialised across processes as well as within one.
package postgres

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/appwatch-labs/appwatch/internal/core/ports/driven"
	"github.com/appwatch-labs/appwatch/internal/logger"
)

//go:embed schema.sql
var schema string

// Connection defaults.
const (
	defaultMaxConns        = 4
	defaultInitialInterval = 500 * time.Millisecond
	defaultMaxInterval     = 5 * time.Second
	defaultConnectTimeout  = 30 * time.Second
)

// Options tunes the connection pool and startup retry.
type Options struct {
	// MaxConns caps the pool size. Zero selects a small default.
	MaxConns int32

	// ConnectTimeout bounds the startup retry loop. Zero selects 30s.
	ConnectTimeout time.Duration
}

// Store is a PostgreSQL-backed storage exposing the item and scheduler
// stores over one connection pool.
type Store struct {
	pool *pgxpool.Pool
}

// Connect opens a pool for dsn, retrying with exponential backoff until the
// server answers or the connect timeout passes, then ensures the schema.
func Connect(ctx context.Context, dsn string, opts Options) (*Store, error) {
	if dsn == "" {
		return nil, errors.New("postgres dsn is required")
	}

	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parsing postgres dsn: %w", err)
	}
	cfg.MaxConns = opts.MaxConns
	if cfg.MaxConns <= 0 {
		cfg.MaxConns = defaultMaxConns
	}

	timeout := opts.ConnectTimeout
	if timeout <= 0 {
		timeout = defaultConnectTimeout
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = defaultInitialInterval
	bo.MaxInterval = defaultMaxInterval
	bo.MaxElapsedTime = timeout

	var pool *pgxpool.Pool
	err = backoff.RetryNotify(func() error {
		p, err := pgxpool.NewWithConfig(ctx, cfg)
		if err != nil {
			return err
		}
		if err := p.Ping(ctx); err != nil {
			p.Close()
			return err
		}
		pool = p
		return nil
	}, backoff.WithContext(bo, ctx), func(err error, wait time.Duration) {
		logger.Warn("postgres not ready, retrying in %s: %v", wait.Round(time.Millisecond), err)
	})
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}

	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Debug("connected to postgres (max %d connections)", cfg.MaxConns)
	return &Store{pool: pool}, nil
}

// Close closes the pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// ItemStore returns an ItemStore interface backed by this store.
func (s *Store) ItemStore() driven.ItemStore {
	return &itemStore{pool: s.pool}
}

// SchedulerStore returns a SchedulerStore interface backed by this store.
func (s *Store) SchedulerStore() driven.SchedulerStore {
	return &schedulerStore{pool: s.pool}
}
