package mssql

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/privya-inc/privya-engine/pkg/adapters/datasource"
	"github.com/privya-inc/privya-engine/pkg/dialect"
	"github.com/privya-inc/privya-engine/pkg/models"
)

// Extractor builds the schema graph for a SQL Server database.
type Extractor struct {
	dialect dialect.SQLServer
}

// NewExtractor creates a SQL Server metadata extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

const schemasQuery = `
	SELECT DB_NAME(), s.name
	FROM sys.schemas s
	WHERE s.name NOT IN ('sys', 'INFORMATION_SCHEMA', 'guest',
		'db_owner', 'db_accessadmin', 'db_securityadmin', 'db_ddladmin',
		'db_backupoperator', 'db_datareader', 'db_datawriter',
		'db_denydatareader', 'db_denydatawriter')
	ORDER BY s.name
`

const tablesQuery = `
	SELECT t.name, COALESCE(SUM(p.rows), 0)
	FROM sys.tables t
	JOIN sys.schemas s ON s.schema_id = t.schema_id
	LEFT JOIN sys.partitions p ON p.object_id = t.object_id AND p.index_id IN (0, 1)
	WHERE s.name = @p1
	GROUP BY t.name
	ORDER BY t.name
`

const columnsQuery = `
	SELECT
		t.name,
		c.name,
		ty.name,
		c.is_nullable,
		COALESCE(c.max_length, 0),
		c.column_id,
		CASE WHEN pk.column_id IS NOT NULL THEN 1 ELSE 0 END
	FROM sys.columns c
	JOIN sys.tables t ON t.object_id = c.object_id
	JOIN sys.schemas s ON s.schema_id = t.schema_id
	JOIN sys.types ty ON ty.user_type_id = c.user_type_id
	LEFT JOIN (
		SELECT ic.object_id, ic.column_id
		FROM sys.index_columns ic
		JOIN sys.indexes i ON i.object_id = ic.object_id AND i.index_id = ic.index_id
		WHERE i.is_primary_key = 1
	) pk ON pk.object_id = c.object_id AND pk.column_id = c.column_id
	WHERE s.name = @p1
	ORDER BY t.name, c.column_id
`

// ExtractSchema builds the full schema graph. When includedSchemas is empty
// every non-system schema is extracted.
func (e *Extractor) ExtractSchema(ctx context.Context, conn datasource.Connection, includedSchemas []string) (*models.SchemaGraph, error) {
	graph := models.NewSchemaGraph()

	included := make(map[string]struct{}, len(includedSchemas))
	for _, s := range includedSchemas {
		included[s] = struct{}{}
	}

	rows, err := conn.Query(ctx, schemasQuery)
	if err != nil {
		return nil, fmt.Errorf("query schemas: %w", err)
	}
	type schemaRow struct{ catalog, name string }
	var schemas []schemaRow
	for rows.Next() {
		var r schemaRow
		if err := rows.Scan(&r.catalog, &r.name); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan schema: %w", err)
		}
		if len(included) > 0 {
			if _, ok := included[r.name]; !ok {
				continue
			}
		}
		schemas = append(schemas, r)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterate schemas: %w", err)
	}
	rows.Close()

	for _, sr := range schemas {
		schema := graph.AddSchema(sr.catalog, sr.name)
		if err := e.extractTables(ctx, conn, graph, schema); err != nil {
			return nil, err
		}
		if err := e.extractRelationships(ctx, conn, graph, schema); err != nil {
			return nil, err
		}
	}

	return graph, nil
}

func (e *Extractor) extractTables(ctx context.Context, conn datasource.Connection, graph *models.SchemaGraph, schema *models.Schema) error {
	tableComments, err := commentMap(ctx, conn, e.dialect.TableCommentQuery(), schema.Name, false)
	if err != nil {
		return err
	}
	columnComments, err := commentMap(ctx, conn, e.dialect.ColumnCommentQuery(), schema.Name, true)
	if err != nil {
		return err
	}

	rows, err := conn.Query(ctx, tablesQuery, schema.Name)
	if err != nil {
		return fmt.Errorf("query tables for %s: %w", schema.Name, err)
	}
	tablesByName := make(map[string]*models.Table)
	for rows.Next() {
		var name string
		var rowCount int64
		if err := rows.Scan(&name, &rowCount); err != nil {
			rows.Close()
			return fmt.Errorf("scan table: %w", err)
		}
		t := graph.AddTable(schema.ID, name, tableComments[name])
		rc := rowCount
		t.RowCount = &rc
		tablesByName[name] = t
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return fmt.Errorf("iterate tables: %w", err)
	}
	rows.Close()

	rows, err = conn.Query(ctx, columnsQuery, schema.Name)
	if err != nil {
		return fmt.Errorf("query columns for %s: %w", schema.Name, err)
	}
	defer rows.Close()
	for rows.Next() {
		var tableName string
		var col models.Column
		var isPK int
		if err := rows.Scan(&tableName, &col.Name, &col.DataType, &col.Nullable,
			&col.Size, &col.OrdinalPosition, &isPK); err != nil {
			return fmt.Errorf("scan column: %w", err)
		}
		table, ok := tablesByName[tableName]
		if !ok {
			continue
		}
		col.PrimaryKey = isPK == 1
		col.Comments = columnComments[tableName+"."+col.Name]
		graph.AddColumn(table.ID, col)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate columns: %w", err)
	}
	return nil
}

// commentMap loads table or column comments keyed by "table" or
// "table.column".
func commentMap(ctx context.Context, conn datasource.Connection, query, schemaName string, perColumn bool) (map[string]string, error) {
	rows, err := conn.Query(ctx, query, schemaName)
	if err != nil {
		return nil, fmt.Errorf("query comments for %s: %w", schemaName, err)
	}
	defer rows.Close()

	comments := make(map[string]string)
	for rows.Next() {
		if perColumn {
			var table, column, comment string
			if err := rows.Scan(&table, &column, &comment); err != nil {
				return nil, fmt.Errorf("scan comment: %w", err)
			}
			comments[table+"."+column] = comment
		} else {
			var table, comment string
			if err := rows.Scan(&table, &comment); err != nil {
				return nil, fmt.Errorf("scan comment: %w", err)
			}
			comments[table] = comment
		}
	}
	return comments, rows.Err()
}

func (e *Extractor) extractRelationships(ctx context.Context, conn datasource.Connection, graph *models.SchemaGraph, schema *models.Schema) error {
	columnID := func(tableName, columnName string) (uuid.UUID, uuid.UUID, bool) {
		for _, t := range graph.TablesOf(schema.ID) {
			if t.Name != tableName {
				continue
			}
			for _, c := range graph.ColumnsOf(t.ID) {
				if c.Name == columnName {
					return t.ID, c.ID, true
				}
			}
		}
		return uuid.Nil, uuid.Nil, false
	}

	rows, err := conn.Query(ctx, e.dialect.ForeignKeyQuery(), schema.Name)
	if err != nil {
		return fmt.Errorf("query foreign keys for %s: %w", schema.Name, err)
	}
	defer rows.Close()

	for rows.Next() {
		var constraint, refTable, refColumn, table, column, updateRule, deleteRule string
		if err := rows.Scan(&constraint, &refTable, &refColumn, &table, &column,
			&updateRule, &deleteRule); err != nil {
			return fmt.Errorf("scan foreign key: %w", err)
		}

		srcTable, srcCol, ok := columnID(refTable, refColumn)
		if !ok {
			continue
		}
		tgtTable, tgtCol, ok := columnID(table, column)
		if !ok {
			continue
		}

		graph.AddRelationship(models.Relationship{
			SourceTableID:  srcTable,
			SourceColumnID: srcCol,
			TargetTableID:  tgtTable,
			TargetColumnID: tgtCol,
			ConstraintName: constraint,
			UpdateRule:     updateRule,
			DeleteRule:     deleteRule,
		})
	}
	return rows.Err()
}

var _ datasource.MetadataExtractor = (*Extractor)(nil)
