package mysql

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/go-sql-driver/mysql" // registers the "mysql" driver

	"github.com/privya-inc/privya-engine/pkg/adapters/datasource"
	"github.com/privya-inc/privya-engine/pkg/retry"
)

// Connection is a read-only MySQL connection backed by database/sql.
type Connection struct {
	db *sql.DB
}

// Connect opens the connection and verifies it with a ping. Transient ping
// failures are retried with backoff.
func Connect(ctx context.Context, cfg *Config) (*Connection, error) {
	db, err := sql.Open("mysql", cfg.dsn())
	if err != nil {
		return nil, fmt.Errorf("open mysql connection: %w", err)
	}
	if err := retry.DoIfRetryable(ctx, nil, func() error { return db.PingContext(ctx) }); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping mysql: %w", err)
	}
	return &Connection{db: db}, nil
}

// Query runs a SELECT and returns a cursor.
func (c *Connection) Query(ctx context.Context, query string, args ...any) (datasource.Rows, error) {
	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("mysql query: %w", err)
	}
	return datasource.WrapSQLRows(rows), nil
}

// QueryValue runs a single-value query.
func (c *Connection) QueryValue(ctx context.Context, query string, args ...any) (any, error) {
	var v any
	if err := c.db.QueryRowContext(ctx, query, args...).Scan(&v); err != nil {
		return nil, fmt.Errorf("mysql query value: %w", err)
	}
	return v, nil
}

// ProductName identifies the dialect.
func (c *Connection) ProductName() string { return "MySQL" }

// Close releases the pool.
func (c *Connection) Close() error { return c.db.Close() }

var _ datasource.Connection = (*Connection)(nil)
