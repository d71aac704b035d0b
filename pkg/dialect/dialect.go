// Package dialect generates the per-database SQL the scanner needs: random
// sampling queries, row count probes, and the metadata enhancement queries
// for column comments and foreign keys.
package dialect

import (
	"strings"

	"github.com/privya-inc/privya-engine/pkg/apperrors"
	"github.com/privya-inc/privya-engine/pkg/models"
)

// Dialect produces SQL for one database product. Implementations are
// stateless and safe for concurrent use.
type Dialect interface {
	// Name returns the canonical dialect name.
	Name() string

	// QuoteIdentifier quotes a schema, table, or column name.
	QuoteIdentifier(name string) string

	// SamplingQuery returns SQL selecting exactly n values from a column.
	// The method selects row ordering; STRATIFIED falls back to RANDOM.
	SamplingQuery(schema, table, column string, n int, method models.SamplingMethod) string

	// CountQuery returns SQL counting the rows of a table.
	CountQuery(schema, table string) string

	// ColumnCommentQuery returns SQL selecting (table_name, column_name,
	// comment) for every commented column of a schema. The schema name is
	// bound as the single query parameter.
	ColumnCommentQuery() string

	// TableCommentQuery returns SQL selecting (table_name, comment) for
	// every commented table of a schema. The schema name is bound as the
	// single query parameter.
	TableCommentQuery() string

	// ForeignKeyQuery returns SQL selecting foreign key relationships
	// (constraint name, referenced table/column, referencing table/column,
	// update rule, delete rule) for a schema. The schema name is bound as
	// the single query parameter.
	ForeignKeyQuery() string
}

// qualify joins an optionally empty schema with a table name, quoting both.
func qualify(d Dialect, schema, table string) string {
	if schema == "" {
		return d.QuoteIdentifier(table)
	}
	return d.QuoteIdentifier(schema) + "." + d.QuoteIdentifier(table)
}

var registered = []Dialect{
	MySQL{},
	PostgreSQL{},
	Oracle{},
	SQLServer{},
}

// ForProduct resolves a dialect from a database product name, first by exact
// match and then by substring match, both case-insensitive. Unknown products
// fail with ErrUnsupportedDialect.
func ForProduct(productName string) (Dialect, error) {
	name := strings.ToLower(strings.TrimSpace(productName))
	if name == "" {
		return nil, apperrors.ErrUnsupportedDialect
	}

	for _, d := range registered {
		for _, alias := range productAliases(d) {
			if name == alias {
				return d, nil
			}
		}
	}
	for _, d := range registered {
		for _, alias := range productAliases(d) {
			if strings.Contains(name, alias) {
				return d, nil
			}
		}
	}
	return nil, apperrors.ErrUnsupportedDialect
}

func productAliases(d Dialect) []string {
	switch d.(type) {
	case MySQL:
		return []string{"mysql", "mariadb"}
	case PostgreSQL:
		return []string{"postgresql", "postgres"}
	case Oracle:
		return []string{"oracle"}
	case SQLServer:
		return []string{"microsoft sql server", "sqlserver", "sql server", "mssql"}
	default:
		return nil
	}
}
