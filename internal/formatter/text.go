package formatter

import (
	"fmt"
	"io"
	"strings"

	"github.com/tordrt/schemadsl/internal/schema"
)

// TextFormatter writes a plain listing of tables: one header line per table,
// one line per column, then RELATIONS and INDEXES blocks when present
type TextFormatter struct {
	writer io.Writer
}

// NewTextFormatter creates a new text formatter
func NewTextFormatter(w io.Writer) *TextFormatter {
	return &TextFormatter{writer: w}
}

// Format writes every table, separated by blank lines
func (f *TextFormatter) Format(s *schema.Schema) error {
	enums := enumLabels(s)
	var b strings.Builder
	for i, table := range s.Tables {
		if i > 0 {
			b.WriteByte('\n')
		}
		writeTextTable(&b, table, s, enums)
	}
	_, err := io.WriteString(f.writer, b.String())
	return err
}

// FormatTable writes one table with its relations and indexes.
func (f *TextFormatter) FormatTable(table schema.Table, s *schema.Schema) error {
	var b strings.Builder
	writeTextTable(&b, table, s, enumLabels(s))
	_, err := io.WriteString(f.writer, b.String())
	return err
}

func writeTextTable(b *strings.Builder, table schema.Table, s *schema.Schema, enums map[string]string) {
	b.WriteString("TABLE " + table.Name)
	if pk := table.PrimaryKey(); len(pk) > 0 {
		fmt.Fprintf(b, " (PK: %s)", strings.Join(pk, ", "))
	}
	b.WriteByte('\n')

	for _, col := range table.Columns {
		b.WriteString("  " + textColumn(col, enums) + "\n")
	}

	var lines []string
	for _, rel := range s.OutgoingRelationships(table.Name) {
		lines = append(lines, fmt.Sprintf("%s → %s (%s)", rel.FromColumn, endpoint(rel.ToTable, rel.ToColumn), rel.Cardinality))
	}
	textBlock(b, "RELATIONS", lines)

	lines = lines[:0]
	for _, idx := range s.TableIndexes(table.Name) {
		line := fmt.Sprintf("%s (%s)", idx.Name, strings.Join(idx.Columns, ", "))
		if idx.Unique {
			line += " UNIQUE"
		}
		lines = append(lines, line)
	}
	textBlock(b, "INDEXES", lines)
}

func textBlock(b *strings.Builder, title string, lines []string) {
	if len(lines) == 0 {
		return
	}
	b.WriteString("\n  " + title + ":\n")
	for _, line := range lines {
		b.WriteString("    " + line + "\n")
	}
}

// textColumn renders "name: type [values] flags". Enum-typed columns carry
// their labels inline as (a|b).
func textColumn(col schema.Column, enums map[string]string) string {
	fields := []string{col.Name + ":", typeText(col.Type)}
	if labels, ok := enums[col.Type.Name]; ok {
		fields = append(fields, "("+labels+")")
	}

	for _, flag := range []struct {
		on   bool
		text string
	}{
		{col.Unique, "UNIQUE"},
		{!col.Nullable, "NOT NULL"},
		{col.AutoIncrement, "AUTOINCREMENT"},
	} {
		if flag.on {
			fields = append(fields, flag.text)
		}
	}
	if col.DefaultValue != nil {
		fields = append(fields, "DEFAULT "+*col.DefaultValue)
	}
	return strings.Join(fields, " ")
}

// enumLabels maps each enum name to its labels joined with "|".
func enumLabels(s *schema.Schema) map[string]string {
	labels := make(map[string]string, len(s.Enums))
	for _, enum := range s.Enums {
		if _, dup := labels[enum.Name]; dup {
			continue
		}
		names := make([]string, len(enum.Values))
		for i, v := range enum.Values {
			names[i] = v.Name
		}
		labels[enum.Name] = strings.Join(names, "|")
	}
	return labels
}
