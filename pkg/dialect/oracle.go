package dialect

import (
	"fmt"

	"github.com/privya-inc/privya-engine/pkg/models"
)

// Oracle generates Oracle SQL. Identifiers are emitted bare: Oracle folds
// unquoted identifiers to upper case, and quoting would force exact-case
// matching against arbitrarily-cased catalog names.
type Oracle struct{}

func (Oracle) Name() string { return "oracle" }

func (Oracle) QuoteIdentifier(name string) string { return name }

func (d Oracle) SamplingQuery(schema, table, column string, n int, method models.SamplingMethod) string {
	target := qualify(d, schema, table)
	if method == models.SamplingFirstN {
		return fmt.Sprintf("SELECT %s FROM %s WHERE rownum <= %d", column, target, n)
	}
	return fmt.Sprintf(
		"SELECT %s FROM (SELECT %s FROM %s ORDER BY dbms_random.value) WHERE rownum <= %d",
		column, column, target, n)
}

func (d Oracle) CountQuery(schema, table string) string {
	return fmt.Sprintf("SELECT COUNT(*) FROM %s", qualify(d, schema, table))
}

func (Oracle) ColumnCommentQuery() string {
	return `SELECT TABLE_NAME, COLUMN_NAME, COMMENTS
FROM ALL_COL_COMMENTS
WHERE OWNER = :1 AND COMMENTS IS NOT NULL`
}

func (Oracle) TableCommentQuery() string {
	return `SELECT TABLE_NAME, COMMENTS
FROM ALL_TAB_COMMENTS
WHERE OWNER = :1 AND COMMENTS IS NOT NULL`
}

func (Oracle) ForeignKeyQuery() string {
	return `SELECT
	c.CONSTRAINT_NAME,
	rcc.TABLE_NAME AS REFERENCED_TABLE,
	rcc.COLUMN_NAME AS REFERENCED_COLUMN,
	cc.TABLE_NAME,
	cc.COLUMN_NAME,
	'NO ACTION' AS UPDATE_RULE,
	c.DELETE_RULE
FROM ALL_CONSTRAINTS c
JOIN ALL_CONS_COLUMNS cc
	ON cc.OWNER = c.OWNER AND cc.CONSTRAINT_NAME = c.CONSTRAINT_NAME
JOIN ALL_CONS_COLUMNS rcc
	ON rcc.OWNER = c.R_OWNER AND rcc.CONSTRAINT_NAME = c.R_CONSTRAINT_NAME
	AND rcc.POSITION = cc.POSITION
WHERE c.CONSTRAINT_TYPE = 'R' AND c.OWNER = :1`
}
