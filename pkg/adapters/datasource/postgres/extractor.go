package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/privya-inc/privya-engine/pkg/adapters/datasource"
	"github.com/privya-inc/privya-engine/pkg/dialect"
	"github.com/privya-inc/privya-engine/pkg/models"
)

// Extractor builds the schema graph for a PostgreSQL database: user
// schemas, tables with row estimates and comments, columns with types and
// primary key flags, and foreign key relationships.
type Extractor struct {
	dialect dialect.PostgreSQL
}

// NewExtractor creates a PostgreSQL metadata extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

const schemasQuery = `
	SELECT current_database(), nspname
	FROM pg_namespace
	WHERE nspname NOT IN ('pg_catalog', 'information_schema', 'pg_toast')
	  AND nspname NOT LIKE 'pg_temp%'
	ORDER BY nspname
`

const tablesQuery = `
	SELECT
		t.table_name,
		COALESCE(c.reltuples::bigint, 0) AS row_count
	FROM information_schema.tables t
	LEFT JOIN pg_class c ON c.relname = t.table_name
	LEFT JOIN pg_namespace n ON n.oid = c.relnamespace AND n.nspname = t.table_schema
	WHERE t.table_type = 'BASE TABLE' AND t.table_schema = $1
	ORDER BY t.table_name
`

const columnsQuery = `
	SELECT
		c.table_name,
		c.column_name,
		c.data_type,
		c.is_nullable = 'YES' AS is_nullable,
		COALESCE(c.character_maximum_length, 0) AS size,
		c.ordinal_position,
		COALESCE(pk.is_pk, false) AS is_primary_key
	FROM information_schema.columns c
	LEFT JOIN (
		SELECT t.relname AS table_name, a.attname AS column_name, true AS is_pk
		FROM pg_index ix
		JOIN pg_class t ON t.oid = ix.indrelid
		JOIN pg_namespace n ON n.oid = t.relnamespace
		JOIN pg_attribute a ON a.attrelid = t.oid AND a.attnum = ANY(ix.indkey)
		WHERE ix.indisprimary = true AND n.nspname = $1
	) pk ON c.table_name = pk.table_name AND c.column_name = pk.column_name
	WHERE c.table_schema = $1
	ORDER BY c.table_name, c.ordinal_position
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
	tableComments, err := e.tableComments(ctx, conn, schema.Name)
	if err != nil {
		return err
	}
	columnComments, err := e.columnComments(ctx, conn, schema.Name)
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
		if err := rows.Scan(&tableName, &col.Name, &col.DataType, &col.Nullable,
			&col.Size, &col.OrdinalPosition, &col.PrimaryKey); err != nil {
			return fmt.Errorf("scan column: %w", err)
		}
		table, ok := tablesByName[tableName]
		if !ok {
			continue // view or table filtered out above
		}
		col.Comments = columnComments[tableName+"."+col.Name]
		graph.AddColumn(table.ID, col)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate columns: %w", err)
	}
	return nil
}

func (e *Extractor) tableComments(ctx context.Context, conn datasource.Connection, schemaName string) (map[string]string, error) {
	rows, err := conn.Query(ctx, e.dialect.TableCommentQuery(), schemaName)
	if err != nil {
		return nil, fmt.Errorf("query table comments for %s: %w", schemaName, err)
	}
	defer rows.Close()

	comments := make(map[string]string)
	for rows.Next() {
		var table, comment string
		if err := rows.Scan(&table, &comment); err != nil {
			return nil, fmt.Errorf("scan table comment: %w", err)
		}
		comments[table] = comment
	}
	return comments, rows.Err()
}

func (e *Extractor) columnComments(ctx context.Context, conn datasource.Connection, schemaName string) (map[string]string, error) {
	rows, err := conn.Query(ctx, e.dialect.ColumnCommentQuery(), schemaName)
	if err != nil {
		return nil, fmt.Errorf("query column comments for %s: %w", schemaName, err)
	}
	defer rows.Close()

	comments := make(map[string]string)
	for rows.Next() {
		var table, column, comment string
		if err := rows.Scan(&table, &column, &comment); err != nil {
			return nil, fmt.Errorf("scan column comment: %w", err)
		}
		comments[table+"."+column] = comment
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
