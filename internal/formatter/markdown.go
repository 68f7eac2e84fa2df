package formatter

import (
	"fmt"
	"io"
	"strings"

	"github.com/tordrt/schemadsl/internal/schema"
)

// MarkdownFormatter renders a schema as a markdown document: a title, one
// section per table and an enum list at the end
type MarkdownFormatter struct {
	writer io.Writer
}

// NewMarkdownFormatter creates a new markdown formatter
func NewMarkdownFormatter(w io.Writer) *MarkdownFormatter {
	return &MarkdownFormatter{writer: w}
}

// Format writes the whole document
func (f *MarkdownFormatter) Format(s *schema.Schema) error {
	var b strings.Builder
	title := s.Name
	if title == "" {
		title = "Database Schema"
	}
	b.WriteString("# " + title + "\n\n")
	if s.Description != nil {
		b.WriteString(*s.Description + "\n\n")
	}

	for _, table := range s.Tables {
		markdownTable(&b, table, s)
	}
	if len(s.Enums) > 0 {
		b.WriteString("## Enums\n\n")
		for _, enum := range s.Enums {
			b.WriteString(markdownEnum(enum) + "\n")
		}
	}

	_, err := io.WriteString(f.writer, b.String())
	return err
}

// FormatTable writes the section of one table.
func (f *MarkdownFormatter) FormatTable(table schema.Table, s *schema.Schema) error {
	var b strings.Builder
	markdownTable(&b, table, s)
	_, err := io.WriteString(f.writer, b.String())
	return err
}

// FormatIncoming writes the "Referenced by" list for the relationships
// pointing at a table.
func (f *MarkdownFormatter) FormatIncoming(rels []schema.Relationship) error {
	items := make([]string, len(rels))
	for i, rel := range rels {
		items[i] = fmt.Sprintf("%s → %s (%s)", endpoint(rel.FromTable, rel.FromColumn), rel.ToColumn, FormatCardinality(rel))
	}
	var b strings.Builder
	markdownList(&b, "Referenced by", items)
	_, err := io.WriteString(f.writer, b.String())
	return err
}

func markdownTable(b *strings.Builder, table schema.Table, s *schema.Schema) {
	b.WriteString("## " + table.Name + "\n\n")
	if table.Note != nil {
		b.WriteString(*table.Note + "\n\n")
	}

	columns := make([]string, len(table.Columns))
	for i, col := range table.Columns {
		columns[i] = markdownColumn(col)
	}
	// Columns is written even for an empty table
	b.WriteString("### Columns\n\n")
	for _, item := range columns {
		b.WriteString("- " + item + "\n")
	}
	b.WriteByte('\n')

	var items []string
	for _, idx := range s.TableIndexes(table.Name) {
		items = append(items, markdownIndex(idx))
	}
	markdownList(b, "Idx", items)

	items = items[:0]
	for _, rel := range s.OutgoingRelationships(table.Name) {
		items = append(items, fmt.Sprintf("%s → %s (%s)", rel.FromColumn, endpoint(rel.ToTable, rel.ToColumn), FormatCardinality(rel)))
	}
	markdownList(b, "References", items)
}

// markdownList writes a level-3 heading and a bullet per item. Nothing is
// written for an empty list.
func markdownList(b *strings.Builder, heading string, items []string) {
	if len(items) == 0 {
		return
	}
	b.WriteString("### " + heading + "\n\n")
	for _, item := range items {
		b.WriteString("- " + item + "\n")
	}
	b.WriteByte('\n')
}

// markdownColumn renders "**name:** type, FLAGS (note)".
func markdownColumn(col schema.Column) string {
	parts := []string{typeText(col.Type)}
	if col.PrimaryKey {
		parts = append(parts, "PK")
	}
	if col.AutoIncrement {
		parts = append(parts, "AUTO_INCREMENT")
	}
	if col.Unique {
		parts = append(parts, "UNIQUE")
	}
	if !col.Nullable {
		parts = append(parts, "NOT NULL")
	}
	if col.DefaultValue != nil {
		parts = append(parts, "DEFAULT "+*col.DefaultValue)
	}

	item := "**" + col.Name + ":** " + strings.Join(parts, ", ")
	if col.Note != nil {
		item += " (" + *col.Note + ")"
	}
	return item
}

func markdownIndex(idx schema.Index) string {
	name := idx.Name
	if name == "" {
		name = "(unnamed)"
	}
	item := name + " on (" + strings.Join(idx.Columns, ", ") + ")"
	if idx.Unique {
		item += ", unique"
	}
	if idx.Type != nil {
		item += ", " + *idx.Type
	}
	return item
}

func markdownEnum(enum schema.Enum) string {
	names := make([]string, len(enum.Values))
	for i, v := range enum.Values {
		names[i] = v.Name
	}
	return "- **" + enum.Name + ":** " + strings.Join(names, " | ")
}

// FormatCardinality describes a relationship in words, e.g. "many-to-one, N:1".
func FormatCardinality(rel schema.Relationship) string {
	if rel.Cardinality == "" {
		return rel.RelationshipType
	}
	return rel.RelationshipType + ", " + rel.Cardinality
}
