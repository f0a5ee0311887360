// Package postgres provides the Postgres-backed record store for scan outcomes.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JakeFAU/rootscan/internal/scanner"
)

// Table holds one row per scanned domain.
const Table = "root_documents"

const createTableDDL = `
CREATE TABLE IF NOT EXISTS root_documents (
	domain                  TEXT PRIMARY KEY,
	ip_addr                 TEXT,
	port                    SMALLINT,
	req_num                 SERIAL,
	success                 BOOL NOT NULL,
	date                    TEXT,
	status                  SMALLINT,
	resulting_url           TEXT,
	server                  TEXT,
	content_security_policy TEXT,
	content_type            TEXT,
	body                    TEXT
)`

const insertSuccessSQL = `INSERT INTO root_documents (domain, ip_addr, port, success, date, status, resulting_url, server, content_security_policy, content_type, body) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11) ON CONFLICT DO NOTHING`

const insertFailureSQL = `INSERT INTO root_documents (domain, success) VALUES ($1, false) ON CONFLICT DO NOTHING`

// Config describes how to reach the database.
type Config struct {
	Host            string
	Port            uint16
	Database        string
	User            string
	Password        string
	SSLMode         string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// DSN renders the connection settings as a postgres:// URL.
func (c Config) DSN() string {
	port := c.Port
	if port == 0 {
		port = 5432
	}
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.User, c.Password),
		Host:   net.JoinHostPort(c.Host, strconv.Itoa(int(port))),
		Path:   "/" + c.Database,
	}
	if c.SSLMode != "" {
		u.RawQuery = url.Values{"sslmode": {c.SSLMode}}.Encode()
	}
	return u.String()
}

// Open connects a pgx pool and verifies it with a ping.
func Open(ctx context.Context, cfg Config) (*pgxpool.Pool, error) {
	if cfg.Host == "" || cfg.Database == "" || cfg.User == "" {
		return nil, errors.New("database host, name and user are required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		poolCfg.MaxConnIdleTime = cfg.MaxConnIdleTime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return pool, nil
}

type execer interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
}

type execCloser interface {
	execer
	Close()
}

// EnsureSchema creates the root_documents table when it is missing.
func EnsureSchema(ctx context.Context, db execer) error {
	if _, err := db.Exec(ctx, createTableDDL); err != nil {
		return fmt.Errorf("create %s table: %w", Table, err)
	}
	return nil
}

// RecordStore writes scan outcomes with insert-or-ignore semantics: the first
// row written for a domain is never replaced.
type RecordStore struct {
	pool execCloser
}

// NewRecordStore wraps an open pool (a *pgxpool.Pool in production).
func NewRecordStore(pool execCloser) (*RecordStore, error) {
	if pool == nil {
		return nil, errors.New("pool is required")
	}
	return &RecordStore{pool: pool}, nil
}

// Store inserts the outcome. Conflicts are reported as ignored; errors are
// reported as dropped and never retried.
func (s *RecordStore) Store(ctx context.Context, outcome scanner.Outcome) scanner.StoreResult {
	if s == nil || s.pool == nil {
		return scanner.Dropped(errors.New("record store is not configured"))
	}
	var (
		tag pgconn.CommandTag
		err error
	)
	if outcome.Success {
		tag, err = s.pool.Exec(ctx, insertSuccessSQL,
			outcome.Domain,
			outcome.IPAddr,
			portParam(outcome.Port),
			true,
			outcome.Date,
			outcome.Status,
			outcome.ResultingURL,
			outcome.Server,
			outcome.ContentSecurityPolicy,
			outcome.ContentType,
			outcome.Body,
		)
		if err != nil {
			return scanner.Dropped(fmt.Errorf("insert success row: %w", err))
		}
	} else {
		tag, err = s.pool.Exec(ctx, insertFailureSQL, outcome.Domain)
		if err != nil {
			return scanner.Dropped(fmt.Errorf("insert failure row: %w", err))
		}
	}
	if tag.RowsAffected() == 0 {
		return scanner.Ignored()
	}
	return scanner.Stored()
}

// Close releases the underlying pool.
func (s *RecordStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// portParam maps the 16-bit port onto SMALLINT; ports above 32767 wrap negative.
func portParam(p *uint16) *int16 {
	if p == nil {
		return nil
	}
	v := int16(*p) //nolint:gosec // deliberate two's-complement storage
	return &v
}
