package dialect

import (
	"fmt"
	"strings"

	"github.com/privya-inc/privya-engine/pkg/models"
)

// MySQL generates MySQL / MariaDB SQL.
type MySQL struct{}

func (MySQL) Name() string { return "mysql" }

// QuoteIdentifier wraps the name in backticks, doubling embedded backticks.
func (MySQL) QuoteIdentifier(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

func (d MySQL) SamplingQuery(schema, table, column string, n int, method models.SamplingMethod) string {
	target := qualify(d, schema, table)
	col := d.QuoteIdentifier(column)
	if method == models.SamplingFirstN {
		return fmt.Sprintf("SELECT %s FROM %s LIMIT %d", col, target, n)
	}
	return fmt.Sprintf("SELECT %s FROM %s ORDER BY RAND() LIMIT %d", col, target, n)
}

func (d MySQL) CountQuery(schema, table string) string {
	return fmt.Sprintf("SELECT COUNT(*) FROM %s", qualify(d, schema, table))
}

func (MySQL) ColumnCommentQuery() string {
	return `SELECT TABLE_NAME, COLUMN_NAME, COLUMN_COMMENT
FROM information_schema.COLUMNS
WHERE TABLE_SCHEMA = ? AND COLUMN_COMMENT <> ''`
}

func (MySQL) TableCommentQuery() string {
	return `SELECT TABLE_NAME, TABLE_COMMENT
FROM information_schema.TABLES
WHERE TABLE_SCHEMA = ? AND TABLE_COMMENT <> ''`
}

func (MySQL) ForeignKeyQuery() string {
	return `SELECT
	kcu.CONSTRAINT_NAME,
	kcu.REFERENCED_TABLE_NAME,
	kcu.REFERENCED_COLUMN_NAME,
	kcu.TABLE_NAME,
	kcu.COLUMN_NAME,
	rc.UPDATE_RULE,
	rc.DELETE_RULE
FROM information_schema.KEY_COLUMN_USAGE kcu
JOIN information_schema.REFERENTIAL_CONSTRAINTS rc
	ON rc.CONSTRAINT_SCHEMA = kcu.CONSTRAINT_SCHEMA
	AND rc.CONSTRAINT_NAME = kcu.CONSTRAINT_NAME
WHERE kcu.TABLE_SCHEMA = ? AND kcu.REFERENCED_TABLE_NAME IS NOT NULL`
}
