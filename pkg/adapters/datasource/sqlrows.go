package datasource

import "database/sql"

// sqlRows adapts *sql.Rows to the Rows cursor interface.
type sqlRows struct {
	rows *sql.Rows
}

// WrapSQLRows adapts a database/sql result to the Rows interface. Used by
// adapters built on database/sql drivers.
func WrapSQLRows(rows *sql.Rows) Rows {
	return &sqlRows{rows: rows}
}

func (r *sqlRows) Next() bool             { return r.rows.Next() }
func (r *sqlRows) Scan(dest ...any) error { return r.rows.Scan(dest...) }
func (r *sqlRows) Err() error             { return r.rows.Err() }
func (r *sqlRows) Close()                 { _ = r.rows.Close() }
