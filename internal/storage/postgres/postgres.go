// Package postgres implements write-only trade archiving on PostgreSQL.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"pump-trade-feed/internal/storage/migrations"
)

const (
	applicationName = "pump-trade-feed"

	// The archive has a single writer; larger pools only hold idle conns.
	defaultMaxConns = 4
)

// SQLSTATE codes the archive maps to storage errors.
const (
	pgErrUniqueViolation = "23505"
	pgErrCheckViolation  = "23514"
)

// Pool is the archive's connection pool.
type Pool struct {
	*pgxpool.Pool
}

// NewPool parses dsn, connects and pings. application_name defaults to the
// service name and the pool is capped at defaultMaxConns unless the DSN sets
// pool_max_conns itself.
func NewPool(ctx context.Context, dsn string) (*Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}

	params := cfg.ConnConfig.RuntimeParams
	if params["application_name"] == "" {
		params["application_name"] = applicationName
	}
	if !strings.Contains(dsn, "pool_max_conns") && cfg.MaxConns > defaultMaxConns {
		cfg.MaxConns = defaultMaxConns
	}

	inner, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := inner.Ping(ctx); err != nil {
		inner.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Pool{Pool: inner}, nil
}

// Migrate applies the embedded archive schema.
func (p *Pool) Migrate(ctx context.Context) error {
	return migrations.Apply(ctx, migrations.Postgres, func(ctx context.Context, stmt string) error {
		_, err := p.Exec(ctx, stmt)
		return err
	})
}

// pgErrorCode returns the SQLSTATE of err, or "" when err is not a server error.
func pgErrorCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}
