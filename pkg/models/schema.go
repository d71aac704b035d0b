package models

import (
	"github.com/google/uuid"
)

// Schema represents one database schema discovered by metadata extraction.
// Unique by (Catalog, Name) within a scan.
type Schema struct {
	ID      uuid.UUID `json:"id"`
	Catalog string    `json:"catalog"`
	Name    string    `json:"name"`
}

// Table represents a discovered database table.
type Table struct {
	ID       uuid.UUID `json:"id"`
	SchemaID uuid.UUID `json:"schema_id"`
	Name     string    `json:"name"`
	Remarks  string    `json:"remarks,omitempty"`
	RowCount *int64    `json:"row_count,omitempty"`
}

// Column represents a table column. Immutable after metadata extraction.
type Column struct {
	ID              uuid.UUID `json:"id"`
	TableID         uuid.UUID `json:"table_id"`
	Name            string    `json:"name"`
	TypeCode        int       `json:"type_code"` // driver-reported numeric type code
	DataType        string    `json:"data_type"` // database type name, e.g. "varchar"
	Comments        string    `json:"comments,omitempty"`
	Size            int       `json:"size"`
	Nullable        bool      `json:"nullable"`
	PrimaryKey      bool      `json:"primary_key"`
	OrdinalPosition int       `json:"ordinal_position"`
}

// Relationship represents a foreign key constraint. By convention the source
// is the referenced (primary key) side and the target is the referencing
// (foreign key) side.
type Relationship struct {
	ID             uuid.UUID `json:"id"`
	SourceTableID  uuid.UUID `json:"source_table_id"`
	SourceColumnID uuid.UUID `json:"source_column_id"`
	TargetTableID  uuid.UUID `json:"target_table_id"`
	TargetColumnID uuid.UUID `json:"target_column_id"`
	ConstraintName string    `json:"constraint_name"`
	UpdateRule     string    `json:"update_rule,omitempty"`
	DeleteRule     string    `json:"delete_rule,omitempty"`
}

// SchemaGraph holds every entity discovered for one scan, keyed by stable id.
// Tables do not own their columns or relationships; views over the arenas
// below keep the ownership graph acyclic.
type SchemaGraph struct {
	Schemas       map[uuid.UUID]*Schema
	Tables        map[uuid.UUID]*Table
	Columns       map[uuid.UUID]*Column
	Relationships []Relationship
}

// NewSchemaGraph creates an empty schema graph.
func NewSchemaGraph() *SchemaGraph {
	return &SchemaGraph{
		Schemas: make(map[uuid.UUID]*Schema),
		Tables:  make(map[uuid.UUID]*Table),
		Columns: make(map[uuid.UUID]*Column),
	}
}

// AddSchema registers a schema and returns it.
func (g *SchemaGraph) AddSchema(catalog, name string) *Schema {
	s := &Schema{ID: uuid.New(), Catalog: catalog, Name: name}
	g.Schemas[s.ID] = s
	return s
}

// AddTable registers a table under a schema and returns it.
func (g *SchemaGraph) AddTable(schemaID uuid.UUID, name, remarks string) *Table {
	t := &Table{ID: uuid.New(), SchemaID: schemaID, Name: name, Remarks: remarks}
	g.Tables[t.ID] = t
	return t
}

// AddColumn registers a column under a table and returns it.
func (g *SchemaGraph) AddColumn(tableID uuid.UUID, col Column) *Column {
	c := col
	c.ID = uuid.New()
	c.TableID = tableID
	g.Columns[c.ID] = &c
	return &c
}

// AddRelationship registers a foreign key relationship. Each relationship
// appears exactly once in the arena and is visible from both endpoints via
// ImportedKeys and ExportedKeys.
func (g *SchemaGraph) AddRelationship(rel Relationship) Relationship {
	rel.ID = uuid.New()
	g.Relationships = append(g.Relationships, rel)
	return rel
}

// TablesOf returns the tables belonging to a schema.
func (g *SchemaGraph) TablesOf(schemaID uuid.UUID) []*Table {
	var tables []*Table
	for _, t := range g.Tables {
		if t.SchemaID == schemaID {
			tables = append(tables, t)
		}
	}
	return tables
}

// ColumnsOf returns the columns belonging to a table.
func (g *SchemaGraph) ColumnsOf(tableID uuid.UUID) []*Column {
	var cols []*Column
	for _, c := range g.Columns {
		if c.TableID == tableID {
			cols = append(cols, c)
		}
	}
	return cols
}

// ImportedKeys returns relationships where the table is the referencing
// (foreign key) side.
func (g *SchemaGraph) ImportedKeys(tableID uuid.UUID) []Relationship {
	var rels []Relationship
	for _, r := range g.Relationships {
		if r.TargetTableID == tableID {
			rels = append(rels, r)
		}
	}
	return rels
}

// ExportedKeys returns relationships where the table is the referenced
// (primary key) side.
func (g *SchemaGraph) ExportedKeys(tableID uuid.UUID) []Relationship {
	var rels []Relationship
	for _, r := range g.Relationships {
		if r.SourceTableID == tableID {
			rels = append(rels, r)
		}
	}
	return rels
}

// QualifiedColumnName returns "schema.table.column" for logging and reports.
func (g *SchemaGraph) QualifiedColumnName(columnID uuid.UUID) string {
	col, ok := g.Columns[columnID]
	if !ok {
		return ""
	}
	table, ok := g.Tables[col.TableID]
	if !ok {
		return col.Name
	}
	schema, ok := g.Schemas[table.SchemaID]
	if !ok {
		return table.Name + "." + col.Name
	}
	return schema.Name + "." + table.Name + "." + col.Name
}
