package formatter

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/tordrt/schemadsl/internal/schema"
)

// overviewFile is the base name of the index file written next to the table files
const overviewFile = "_overview"

// MultiFileFormatter writes an overview file plus one file per table into a directory
type MultiFileFormatter struct {
	OutputDir    string
	OutputFormat string // FormatDBML, FormatMarkdown or FormatText
}

// NewMultiFileFormatter creates a new multi-file formatter
func NewMultiFileFormatter(outputDir, format string) (*MultiFileFormatter, error) {
	if !slices.Contains([]string{FormatDBML, FormatMarkdown, FormatText}, format) {
		return nil, fmt.Errorf("unknown output format %q", format)
	}
	return &MultiFileFormatter{OutputDir: outputDir, OutputFormat: format}, nil
}

// Format writes the overview first, then the tables in schema order. For
// FormatDBML the concatenated files parse back to the whole schema.
func (f *MultiFileFormatter) Format(s *schema.Schema) error {
	if err := os.MkdirAll(f.OutputDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	if err := f.create(overviewFile, func(w io.Writer) error { return f.overview(w, s) }); err != nil {
		return fmt.Errorf("failed to write overview: %w", err)
	}
	for _, table := range s.Tables {
		if err := f.create(table.Name, func(w io.Writer) error { return f.table(w, table, s) }); err != nil {
			return fmt.Errorf("failed to write %s: %w", table.Name, err)
		}
	}
	return nil
}

// create writes one file through a buffer and reports the first write,
// flush or close error.
func (f *MultiFileFormatter) create(name string, write func(io.Writer) error) error {
	path := filepath.Join(f.OutputDir, fileName(name)+fileExtension(f.OutputFormat))
	file, err := os.Create(path)
	if err != nil {
		return err
	}

	w := bufio.NewWriter(file)
	err = write(w)
	if err == nil {
		err = w.Flush()
	}
	if err != nil {
		_ = file.Close()
		return err
	}
	return file.Close()
}

func (f *MultiFileFormatter) overview(w io.Writer, s *schema.Schema) error {
	if f.OutputFormat == FormatDBML {
		// Everything except the tables: project, enums, refs and groups
		rest := *s
		rest.Tables = nil
		return NewSchemaTextFormatter(w).Format(&rest)
	}

	var b strings.Builder
	markdown := f.OutputFormat == FormatMarkdown
	pattern := "<table_name>" + fileExtension(f.OutputFormat)
	if markdown {
		fmt.Fprintf(&b, "# Schema Overview\n\nEach table has a corresponding file: `%s`\n\n## Tables\n\n", pattern)
	} else {
		fmt.Fprintf(&b, "SCHEMA OVERVIEW\nEach table has a file: %s\n\n", pattern)
	}

	for _, table := range sortedTables(s) {
		line := table.Name
		sep := ","
		if markdown {
			line = "- **" + table.Name + "**"
			sep = ", "
		}
		if targets := referencedTables(s, table.Name); len(targets) > 0 {
			line += " (references: " + strings.Join(targets, sep) + ")"
		}
		b.WriteString(line + "\n")
	}

	if markdown && len(s.Enums) > 0 {
		b.WriteString("\n## Enums\n\n")
		for _, enum := range s.Enums {
			b.WriteString(markdownEnum(enum) + "\n")
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func (f *MultiFileFormatter) table(w io.Writer, table schema.Table, s *schema.Schema) error {
	switch f.OutputFormat {
	case FormatDBML:
		return NewSchemaTextFormatter(w).FormatTable(table, s.TableIndexes(table.Name))
	case FormatMarkdown:
		md := NewMarkdownFormatter(w)
		if err := md.FormatTable(table, s); err != nil {
			return err
		}
		return md.FormatIncoming(s.IncomingRelationships(table.Name))
	default:
		return NewTextFormatter(w).FormatTable(table, s)
	}
}

func sortedTables(s *schema.Schema) []schema.Table {
	tables := slices.Clone(s.Tables)
	slices.SortFunc(tables, func(a, b schema.Table) int { return strings.Compare(a.Name, b.Name) })
	return tables
}

// referencedTables lists the distinct tables a table points at, in relationship order.
func referencedTables(s *schema.Schema, tableName string) []string {
	var targets []string
	for _, rel := range s.OutgoingRelationships(tableName) {
		if !slices.Contains(targets, rel.ToTable) {
			targets = append(targets, rel.ToTable)
		}
	}
	return targets
}

// fileName makes a table name safe to use as a file name.
func fileName(name string) string {
	return strings.NewReplacer("/", "_", `\`, "_", " ", "_").Replace(name)
}
