package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/privya-inc/privya-engine/pkg/adapters/datasource"
	"github.com/privya-inc/privya-engine/pkg/retry"
)

// Connection is a read-only PostgreSQL connection backed by a pgx pool.
type Connection struct {
	pool *pgxpool.Pool
}

// Connect opens a pooled connection and verifies it with a ping. Transient
// ping failures are retried with backoff.
func Connect(ctx context.Context, cfg *Config) (*Connection, error) {
	pool, err := pgxpool.New(ctx, cfg.connectionString())
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := retry.DoIfRetryable(ctx, nil, func() error { return pool.Ping(ctx) }); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Connection{pool: pool}, nil
}

// pgxRows adapts pgx.Rows to the datasource cursor interface.
type pgxRows struct {
	rows pgx.Rows
}

func (r *pgxRows) Next() bool             { return r.rows.Next() }
func (r *pgxRows) Scan(dest ...any) error { return r.rows.Scan(dest...) }
func (r *pgxRows) Err() error             { return r.rows.Err() }
func (r *pgxRows) Close()                 { r.rows.Close() }

// Query runs a SELECT and returns a cursor.
func (c *Connection) Query(ctx context.Context, sql string, args ...any) (datasource.Rows, error) {
	rows, err := c.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres query: %w", err)
	}
	return &pgxRows{rows: rows}, nil
}

// QueryValue runs a single-value query.
func (c *Connection) QueryValue(ctx context.Context, sql string, args ...any) (any, error) {
	var v any
	if err := c.pool.QueryRow(ctx, sql, args...).Scan(&v); err != nil {
		return nil, fmt.Errorf("postgres query value: %w", err)
	}
	return v, nil
}

// ProductName identifies the dialect.
func (c *Connection) ProductName() string { return "PostgreSQL" }

// Close releases the pool.
func (c *Connection) Close() error {
	c.pool.Close()
	return nil
}

var _ datasource.Connection = (*Connection)(nil)
