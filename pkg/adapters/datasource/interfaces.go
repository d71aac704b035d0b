// Package datasource defines the narrow interfaces the scanning engine uses
// to talk to customer databases, plus a registry of driver adapters. The
// engine only ever reads; no adapter exposes write operations.
package datasource

import (
	"context"

	"github.com/privya-inc/privya-engine/pkg/models"
)

// Rows is a minimal cursor over a query result. It mirrors database/sql
// semantics so both database/sql and pgx results adapt trivially.
type Rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close()
}

// Connection is a read-only handle on one scanned database. Each
// implementation owns its pool and must be closed when the scan ends.
type Connection interface {
	// Query runs a SELECT and returns a cursor. Implementations must honor
	// context cancellation for in-flight statements.
	Query(ctx context.Context, sql string, args ...any) (Rows, error)

	// QueryValue runs a single-value query (COUNT probes).
	QueryValue(ctx context.Context, sql string, args ...any) (any, error)

	// ProductName returns the database product name used for dialect
	// resolution, e.g. "PostgreSQL" or "Microsoft SQL Server".
	ProductName() string

	// Close releases the underlying pool.
	Close() error
}

// Connector resolves a connection id to an open Connection. The host owns
// credential storage and pooling policy.
type Connector interface {
	Open(ctx context.Context, connectionID string) (Connection, error)
}

// MetadataExtractor produces a fully-populated schema graph for one
// database: schemas, tables, columns, comments, and foreign keys. The
// orchestrator never issues metadata SQL itself.
type MetadataExtractor interface {
	ExtractSchema(ctx context.Context, conn Connection, includedSchemas []string) (*models.SchemaGraph, error)
}
