// Package schema holds the schema model produced by the parser and the introspectors.
package schema

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// NewID returns a fresh random identifier for a model object.
func NewID() string {
	return uuid.NewString()
}

// New returns an empty schema stamped with the given source and time.
func New(source string, now time.Time) *Schema {
	return &Schema{
		ID:            NewID(),
		Tables:        []Table{},
		Relationships: []Relationship{},
		Enums:         []Enum{},
		Indexes:       []Index{},
		TableGroups:   []TableGroup{},
		Metadata: Metadata{
			Source:    source,
			Version:   ModelVersion,
			CreatedAt: now,
			UpdatedAt: now,
		},
	}
}

// FindTable returns the table with the given name, or nil.
func (s *Schema) FindTable(name string) *Table {
	for i := range s.Tables {
		if s.Tables[i].Name == name {
			return &s.Tables[i]
		}
	}
	return nil
}

// TableIndexes returns the indexes declared on a table.
func (s *Schema) TableIndexes(tableName string) []Index {
	var out []Index
	for _, idx := range s.Indexes {
		if idx.TableName == tableName {
			out = append(out, idx)
		}
	}
	return out
}

// OutgoingRelationships returns relationships whose from side is the table.
func (s *Schema) OutgoingRelationships(tableName string) []Relationship {
	var out []Relationship
	for _, rel := range s.Relationships {
		if rel.FromTable == tableName {
			out = append(out, rel)
		}
	}
	return out
}

// IncomingRelationships returns relationships pointing at the table.
func (s *Schema) IncomingRelationships(tableName string) []Relationship {
	var out []Relationship
	for _, rel := range s.Relationships {
		if rel.ToTable == tableName {
			out = append(out, rel)
		}
	}
	return out
}

// PrimaryKey returns the primary key column names of a table in declaration order.
func (t *Table) PrimaryKey() []string {
	var pk []string
	for _, col := range t.Columns {
		if col.PrimaryKey {
			pk = append(pk, col.Name)
		}
	}
	return pk
}

// Cardinality maps a relationship type to its short notation.
func Cardinality(relationshipType string) string {
	switch relationshipType {
	case OneToOne:
		return "1:1"
	case OneToMany:
		return "1:N"
	case ManyToOne:
		return "N:1"
	case ManyToMany:
		return "N:N"
	}
	return ""
}

// CountNodes returns the number of structural nodes in the schema's JSON form:
// every object counts once and every array entry counts once.
func CountNodes(s *Schema) int {
	if s == nil {
		return 0
	}
	data, err := json.Marshal(s)
	if err != nil {
		return 0
	}
	var tree any
	if err := json.Unmarshal(data, &tree); err != nil {
		return 0
	}
	return countNodes(tree)
}

func countNodes(v any) int {
	switch n := v.(type) {
	case map[string]any:
		count := 1
		for _, child := range n {
			switch child.(type) {
			case map[string]any, []any:
				count += countNodes(child)
			}
		}
		return count
	case []any:
		count := 0
		for _, elem := range n {
			switch elem.(type) {
			case map[string]any, []any:
				count += countNodes(elem)
			default:
				count++
			}
		}
		return count
	}
	return 0
}
