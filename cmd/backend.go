package cmd

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/JakeFAU/rootscan/internal/config"
	"github.com/JakeFAU/rootscan/internal/scanner"
	memstore "github.com/JakeFAU/rootscan/internal/storage/memory"
	"github.com/JakeFAU/rootscan/internal/storage/postgres"
	"github.com/JakeFAU/rootscan/internal/store"
)

// backend bundles the record store and run ledger used by one command.
type backend struct {
	records scanner.Store
	runs    store.RunRepository
	close   func()
}

func openMemoryBackend(logger *zap.Logger) *backend {
	logger.Warn("dry run: records are kept in memory and discarded on exit")
	return &backend{
		records: memstore.NewRecordStore(),
		runs:    memstore.NewRunStore(),
		close:   func() {},
	}
}

// pgPool is the part of *pgxpool.Pool the Postgres stores use.
type pgPool interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	QueryRow(context.Context, string, ...any) pgx.Row
	Close()
}

// openPostgresBackend connects, ensures both tables exist, and sizes the pool
// to the worker count plus one unless db.max_conns says otherwise.
func openPostgresBackend(ctx context.Context, cfg config.Config, workers int, logger *zap.Logger) (*backend, error) {
	maxConns := cfg.DB.MaxConns
	if maxConns == 0 {
		maxConns = int32(min(workers+1, 1<<15)) //nolint:gosec // bounded above
	}
	pool, err := connectPostgres(ctx, cfg, maxConns, logger)
	if err != nil {
		return nil, err
	}
	return newPostgresBackend(ctx, pool, true)
}

// openPostgresReader connects without touching the schema, for commands that
// only read.
func openPostgresReader(ctx context.Context, cfg config.Config, logger *zap.Logger) (*backend, error) {
	pool, err := connectPostgres(ctx, cfg, 2, logger)
	if err != nil {
		return nil, err
	}
	return newPostgresBackend(ctx, pool, false)
}

func connectPostgres(ctx context.Context, cfg config.Config, maxConns int32, logger *zap.Logger) (*pgxpool.Pool, error) {
	if err := cfg.ValidateDB(); err != nil {
		return nil, err
	}
	pool, err := postgres.Open(ctx, postgres.Config{
		Host:     cfg.DB.Host,
		Port:     cfg.DB.Port,
		Database: cfg.DB.Name,
		User:     cfg.DB.User,
		Password: cfg.DB.Password,
		SSLMode:  cfg.DB.SSLMode,
		MaxConns: maxConns,
		MinConns: min(cfg.DB.MinConns, maxConns),
	})
	if err != nil {
		return nil, err
	}
	logger.Info("connected to postgres",
		zap.String("host", cfg.DB.Host),
		zap.Uint16("port", cfg.DB.Port),
		zap.String("database", cfg.DB.Name),
		zap.Int32("max_conns", maxConns))
	return pool, nil
}

// newPostgresBackend builds the stores on pool, creating the tables first when
// ensureSchema is set. The pool is closed on error.
func newPostgresBackend(ctx context.Context, pool pgPool, ensureSchema bool) (*backend, error) {
	if ensureSchema {
		if err := postgres.EnsureSchema(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
		if err := postgres.EnsureRunsSchema(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
	}
	records, err := postgres.NewRecordStore(pool)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("record store: %w", err)
	}
	runs, err := postgres.NewRunStore(pool)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("run store: %w", err)
	}
	return &backend{records: records, runs: runs, close: records.Close}, nil
}
