package dialect

import (
	"fmt"
	"strings"

	"github.com/privya-inc/privya-engine/pkg/models"
)

// SQLServer generates Microsoft SQL Server SQL.
type SQLServer struct{}

func (SQLServer) Name() string { return "sqlserver" }

// QuoteIdentifier wraps the name in brackets, doubling embedded closers.
func (SQLServer) QuoteIdentifier(name string) string {
	return "[" + strings.ReplaceAll(name, "]", "]]") + "]"
}

func (d SQLServer) SamplingQuery(schema, table, column string, n int, method models.SamplingMethod) string {
	target := qualify(d, schema, table)
	col := d.QuoteIdentifier(column)
	if method == models.SamplingFirstN {
		return fmt.Sprintf("SELECT TOP (%d) %s FROM %s", n, col, target)
	}
	return fmt.Sprintf("SELECT TOP (%d) %s FROM %s ORDER BY NEWID()", n, col, target)
}

func (d SQLServer) CountQuery(schema, table string) string {
	return fmt.Sprintf("SELECT COUNT(*) FROM %s", qualify(d, schema, table))
}

func (SQLServer) ColumnCommentQuery() string {
	return `SELECT t.name, c.name, CAST(ep.value AS NVARCHAR(MAX))
FROM sys.extended_properties ep
JOIN sys.tables t ON t.object_id = ep.major_id
JOIN sys.columns c ON c.object_id = ep.major_id AND c.column_id = ep.minor_id
JOIN sys.schemas s ON s.schema_id = t.schema_id
WHERE ep.name = 'MS_Description' AND ep.minor_id > 0 AND s.name = @p1`
}

func (SQLServer) TableCommentQuery() string {
	return `SELECT t.name, CAST(ep.value AS NVARCHAR(MAX))
FROM sys.extended_properties ep
JOIN sys.tables t ON t.object_id = ep.major_id
JOIN sys.schemas s ON s.schema_id = t.schema_id
WHERE ep.name = 'MS_Description' AND ep.minor_id = 0 AND s.name = @p1`
}

func (SQLServer) ForeignKeyQuery() string {
	return `SELECT
	fk.name AS constraint_name,
	rt.name AS referenced_table,
	rc.name AS referenced_column,
	pt.name AS table_name,
	pc.name AS column_name,
	fk.update_referential_action_desc,
	fk.delete_referential_action_desc
FROM sys.foreign_keys fk
JOIN sys.foreign_key_columns fkc ON fkc.constraint_object_id = fk.object_id
JOIN sys.tables pt ON pt.object_id = fkc.parent_object_id
JOIN sys.columns pc ON pc.object_id = fkc.parent_object_id AND pc.column_id = fkc.parent_column_id
JOIN sys.tables rt ON rt.object_id = fkc.referenced_object_id
JOIN sys.columns rc ON rc.object_id = fkc.referenced_object_id AND rc.column_id = fkc.referenced_column_id
JOIN sys.schemas s ON s.schema_id = pt.schema_id
WHERE s.name = @p1`
}
