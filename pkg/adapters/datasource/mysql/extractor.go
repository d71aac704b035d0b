package mysql

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/privya-inc/privya-engine/pkg/adapters/datasource"
	"github.com/privya-inc/privya-engine/pkg/dialect"
	"github.com/privya-inc/privya-engine/pkg/models"
)

// Extractor builds the schema graph for a MySQL database. MySQL schemas and
// databases are the same object, so the catalog is reported as "def" per
// information_schema convention.
type Extractor struct {
	dialect dialect.MySQL
}

// NewExtractor creates a MySQL metadata extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

const schemasQuery = `
	SELECT CATALOG_NAME, SCHEMA_NAME
	FROM information_schema.SCHEMATA
	WHERE SCHEMA_NAME NOT IN ('mysql', 'information_schema', 'performance_schema', 'sys')
	ORDER BY SCHEMA_NAME
`

const tablesQuery = `
	SELECT TABLE_NAME, COALESCE(TABLE_ROWS, 0), COALESCE(TABLE_COMMENT, '')
	FROM information_schema.TABLES
	WHERE TABLE_TYPE = 'BASE TABLE' AND TABLE_SCHEMA = ?
	ORDER BY TABLE_NAME
`

const columnsQuery = `
	SELECT
		TABLE_NAME,
		COLUMN_NAME,
		DATA_TYPE,
		IS_NULLABLE = 'YES',
		COALESCE(CHARACTER_MAXIMUM_LENGTH, 0),
		ORDINAL_POSITION,
		COLUMN_KEY = 'PRI',
		COALESCE(COLUMN_COMMENT, '')
	FROM information_schema.COLUMNS
	WHERE TABLE_SCHEMA = ?
	ORDER BY TABLE_NAME, ORDINAL_POSITION
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
	rows, err := conn.Query(ctx, tablesQuery, schema.Name)
	if err != nil {
		return fmt.Errorf("query tables for %s: %w", schema.Name, err)
	}
	tablesByName := make(map[string]*models.Table)
	for rows.Next() {
		var name, comment string
		var rowCount int64
		if err := rows.Scan(&name, &rowCount, &comment); err != nil {
			rows.Close()
			return fmt.Errorf("scan table: %w", err)
		}
		t := graph.AddTable(schema.ID, name, comment)
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
		if err := rows.Scan(&tableName, &col.Name, &col.DataType, &col.Nullable,
			&col.Size, &col.OrdinalPosition, &col.PrimaryKey, &col.Comments); err != nil {
			return fmt.Errorf("scan column: %w", err)
		}
		table, ok := tablesByName[tableName]
		if !ok {
			continue
		}
		graph.AddColumn(table.ID, col)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate columns: %w", err)
	}
	return nil
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
