package dialect

import (
	"fmt"
	"strings"

	"github.com/privya-inc/privya-engine/pkg/models"
)

// PostgreSQL generates PostgreSQL SQL.
type PostgreSQL struct{}

func (PostgreSQL) Name() string { return "postgresql" }

// QuoteIdentifier wraps the name in double quotes, doubling embedded quotes.
func (PostgreSQL) QuoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func (d PostgreSQL) SamplingQuery(schema, table, column string, n int, method models.SamplingMethod) string {
	target := qualify(d, schema, table)
	col := d.QuoteIdentifier(column)
	if method == models.SamplingFirstN {
		return fmt.Sprintf("SELECT %s FROM %s LIMIT %d", col, target, n)
	}
	return fmt.Sprintf("SELECT %s FROM %s ORDER BY RANDOM() LIMIT %d", col, target, n)
}

func (d PostgreSQL) CountQuery(schema, table string) string {
	return fmt.Sprintf("SELECT COUNT(*) FROM %s", qualify(d, schema, table))
}

func (PostgreSQL) ColumnCommentQuery() string {
	return `SELECT c.relname, a.attname, d.description
FROM pg_description d
JOIN pg_class c ON c.oid = d.objoid
JOIN pg_attribute a ON a.attrelid = c.oid AND a.attnum = d.objsubid
JOIN pg_namespace n ON n.oid = c.relnamespace
WHERE n.nspname = $1 AND d.objsubid > 0`
}

func (PostgreSQL) TableCommentQuery() string {
	return `SELECT c.relname, d.description
FROM pg_description d
JOIN pg_class c ON c.oid = d.objoid
JOIN pg_namespace n ON n.oid = c.relnamespace
WHERE n.nspname = $1 AND d.objsubid = 0 AND c.relkind = 'r'`
}

func (PostgreSQL) ForeignKeyQuery() string {
	return `SELECT
	tc.constraint_name,
	ccu.table_name AS referenced_table,
	ccu.column_name AS referenced_column,
	tc.table_name,
	kcu.column_name,
	rc.update_rule,
	rc.delete_rule
FROM information_schema.table_constraints tc
JOIN information_schema.key_column_usage kcu
	ON kcu.constraint_name = tc.constraint_name
	AND kcu.constraint_schema = tc.constraint_schema
JOIN information_schema.constraint_column_usage ccu
	ON ccu.constraint_name = tc.constraint_name
	AND ccu.constraint_schema = tc.constraint_schema
JOIN information_schema.referential_constraints rc
	ON rc.constraint_name = tc.constraint_name
	AND rc.constraint_schema = tc.constraint_schema
WHERE tc.constraint_type = 'FOREIGN KEY' AND tc.table_schema = $1`
}
