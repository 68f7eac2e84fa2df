// Package formatter writes schemas out as schema text, markdown or compact text.
package formatter

import (
	"fmt"
	"io"

	"github.com/tordrt/schemadsl/internal/schema"
)

// Output formats
const (
	FormatDBML     = "dbml"
	FormatMarkdown = "markdown"
	FormatText     = "text"
)

// Formatter writes a schema.
type Formatter interface {
	Format(s *schema.Schema) error
}

// New returns the single-file formatter for format.
func New(format string, w io.Writer) (Formatter, error) {
	switch format {
	case FormatDBML:
		return NewSchemaTextFormatter(w), nil
	case FormatMarkdown:
		return NewMarkdownFormatter(w), nil
	case FormatText:
		return NewTextFormatter(w), nil
	}
	return nil, fmt.Errorf("unknown output format %q (want %s, %s or %s)", format, FormatDBML, FormatMarkdown, FormatText)
}

// fileExtension returns the file name extension used for format.
func fileExtension(format string) string {
	switch format {
	case FormatDBML:
		return ".dbml"
	case FormatMarkdown:
		return ".md"
	}
	return ".txt"
}

// relationOp returns the schema text operator for a relationship type.
func relationOp(relType string) string {
	switch relType {
	case schema.OneToOne:
		return "-"
	case schema.ManyToOne:
		return "<"
	case schema.ManyToMany:
		return "<>"
	}
	return ">"
}

// endpoint renders a relationship end as table.column, or column alone when the
// table is unknown.
func endpoint(table, column string) string {
	if table == "" {
		return column
	}
	return table + "." + column
}
