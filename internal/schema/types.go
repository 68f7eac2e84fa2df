package schema

import "time"

// SourceDBML identifies schemas produced from schema description text.
const SourceDBML = "dbml"

// ModelVersion is the version stamped into Metadata.
const ModelVersion = "1.0.0"

// Relationship types
const (
	OneToOne   = "one-to-one"
	OneToMany  = "one-to-many"
	ManyToOne  = "many-to-one"
	ManyToMany = "many-to-many"
)

// Schema represents a complete database schema
type Schema struct {
	ID            string         `json:"id" yaml:"id"`
	Name          string         `json:"name" yaml:"name"`
	Description   *string        `json:"description,omitempty" yaml:"description,omitempty"`
	DatabaseType  string         `json:"databaseType,omitempty" yaml:"databaseType,omitempty"`
	Tables        []Table        `json:"tables" yaml:"tables"`
	Relationships []Relationship `json:"relationships" yaml:"relationships"`
	Enums         []Enum         `json:"enums" yaml:"enums"`
	Indexes       []Index        `json:"indexes" yaml:"indexes"`
	TableGroups   []TableGroup   `json:"tableGroups" yaml:"tableGroups"`
	Metadata      Metadata       `json:"metadata" yaml:"metadata"`
}

// Metadata describes where a schema came from
type Metadata struct {
	Source    string    `json:"source" yaml:"source"`
	Version   string    `json:"version" yaml:"version"`
	CreatedAt time.Time `json:"createdAt" yaml:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" yaml:"updatedAt"`
}

// Table represents a database table. Name may be schema-qualified ("auth.users").
type Table struct {
	ID          string    `json:"id" yaml:"id"`
	Name        string    `json:"name" yaml:"name"`
	Alias       *string   `json:"alias,omitempty" yaml:"alias,omitempty"`
	Columns     []Column  `json:"columns" yaml:"columns"`
	Note        *string   `json:"note,omitempty" yaml:"note,omitempty"`
	HeaderColor *string   `json:"headerColor,omitempty" yaml:"headerColor,omitempty"`
	Position    *Position `json:"position,omitempty" yaml:"position,omitempty"`
	Size        *Size     `json:"size,omitempty" yaml:"size,omitempty"`
}

// Position is a canvas location, filled in by layout consumers.
type Position struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Size is a canvas extent, filled in by layout consumers.
type Size struct {
	Width  float64 `json:"width" yaml:"width"`
	Height float64 `json:"height" yaml:"height"`
}

// Column represents a table column
type Column struct {
	ID            string      `json:"id" yaml:"id"`
	Name          string      `json:"name" yaml:"name"`
	Type          ColumnType  `json:"type" yaml:"type"`
	Nullable      bool        `json:"nullable" yaml:"nullable"`
	PrimaryKey    bool        `json:"primaryKey" yaml:"primaryKey"`
	Unique        bool        `json:"unique" yaml:"unique"`
	AutoIncrement bool        `json:"autoIncrement" yaml:"autoIncrement"`
	DefaultValue  *string     `json:"defaultValue,omitempty" yaml:"defaultValue,omitempty"`
	DefaultKind   DefaultKind `json:"defaultKind,omitempty" yaml:"defaultKind,omitempty"`
	Note          *string     `json:"note,omitempty" yaml:"note,omitempty"`
	References    *Reference  `json:"references,omitempty" yaml:"references,omitempty"`
}

// ColumnType is a column's type name with optional size or precision/scale
type ColumnType struct {
	Name      string `json:"name" yaml:"name"`
	Size      *int   `json:"size,omitempty" yaml:"size,omitempty"`
	Precision *int   `json:"precision,omitempty" yaml:"precision,omitempty"`
	Scale     *int   `json:"scale,omitempty" yaml:"scale,omitempty"`
}

// DefaultKind records which literal form a default value was written in
type DefaultKind string

const (
	DefaultString     DefaultKind = "string"
	DefaultNumber     DefaultKind = "number"
	DefaultBoolean    DefaultKind = "boolean"
	DefaultNull       DefaultKind = "null"
	DefaultExpression DefaultKind = "expression"
	DefaultIdentifier DefaultKind = "identifier"
)

// Reference is a (table, column) endpoint. Table is empty when the source
// named only a column.
type Reference struct {
	Table  string `json:"table" yaml:"table"`
	Column string `json:"column" yaml:"column"`
}

// Relationship represents a foreign key relationship
type Relationship struct {
	ID               string  `json:"id" yaml:"id"`
	RelationshipType string  `json:"relationshipType" yaml:"relationshipType"`
	FromTable        string  `json:"fromTable" yaml:"fromTable"`
	FromColumn       string  `json:"fromColumn" yaml:"fromColumn"`
	ToTable          string  `json:"toTable" yaml:"toTable"`
	ToColumn         string  `json:"toColumn" yaml:"toColumn"`
	Cardinality      string  `json:"cardinality,omitempty" yaml:"cardinality,omitempty"` // 1:1, 1:N, N:1, N:N
	OnUpdate         *string `json:"onUpdate,omitempty" yaml:"onUpdate,omitempty"`
	OnDelete         *string `json:"onDelete,omitempty" yaml:"onDelete,omitempty"`
	Name             *string `json:"name,omitempty" yaml:"name,omitempty"`
	Note             *string `json:"note,omitempty" yaml:"note,omitempty"`
}

// Enum represents a named enumeration type
type Enum struct {
	ID     string      `json:"id" yaml:"id"`
	Name   string      `json:"name" yaml:"name"`
	Values []EnumValue `json:"values" yaml:"values"`
	Note   *string     `json:"note,omitempty" yaml:"note,omitempty"`
}

// EnumValue is a single enum member
type EnumValue struct {
	Name string  `json:"name" yaml:"name"`
	Note *string `json:"note,omitempty" yaml:"note,omitempty"`
}

// Index represents a database index. Columns always has at least one entry.
type Index struct {
	ID        string   `json:"id" yaml:"id"`
	Name      string   `json:"name" yaml:"name"`
	TableName string   `json:"tableName" yaml:"tableName"`
	Columns   []string `json:"columns" yaml:"columns"`
	Type      *string  `json:"type,omitempty" yaml:"type,omitempty"`
	Unique    bool     `json:"unique" yaml:"unique"`
	Note      *string  `json:"note,omitempty" yaml:"note,omitempty"`
}

// TableGroup groups tables for display
type TableGroup struct {
	ID     string   `json:"id" yaml:"id"`
	Name   string   `json:"name" yaml:"name"`
	Color  *string  `json:"color,omitempty" yaml:"color,omitempty"`
	Tables []string `json:"tables" yaml:"tables"`
	Note   *string  `json:"note,omitempty" yaml:"note,omitempty"`
}
