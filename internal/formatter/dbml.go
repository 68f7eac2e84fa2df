package formatter

import (
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/tordrt/schemadsl/internal/lexer"
	"github.com/tordrt/schemadsl/internal/schema"
)

var (
	identPattern     = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$]*$`)
	typePattern      = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$]*(\.[A-Za-z_$][A-Za-z0-9_$]*)*(\([A-Za-z0-9_, ]*\))?(\[\])?$`)
	numberPattern    = regexp.MustCompile(`^-?[0-9]+(\.[0-9]+)?$`)
	stringEscaper    = strings.NewReplacer(`\`, `\\`, `'`, `\'`, "\n", `\n`, "\r", `\r`, "\t", `\t`)
	backtickStripper = strings.NewReplacer("`", "")
)

// SchemaTextFormatter writes a schema as schema description text that the parser
// reads back into an equivalent schema.
type SchemaTextFormatter struct {
	writer io.Writer
}

// NewSchemaTextFormatter creates a new schema text formatter
func NewSchemaTextFormatter(w io.Writer) *SchemaTextFormatter {
	return &SchemaTextFormatter{writer: w}
}

// Format writes the project block, enums, tables, refs and table groups in that order.
func (f *SchemaTextFormatter) Format(s *schema.Schema) error {
	var b strings.Builder
	section := func() {
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
	}

	if s.Name != "" || s.DatabaseType != "" || s.Description != nil {
		section()
		writeProject(&b, s)
	}
	for _, enum := range s.Enums {
		section()
		writeEnum(&b, enum)
	}
	for _, table := range s.Tables {
		section()
		writeTable(&b, table, s.TableIndexes(table.Name))
	}
	if len(s.Relationships) > 0 {
		section()
		for _, rel := range s.Relationships {
			writeRef(&b, rel)
		}
	}
	for _, group := range s.TableGroups {
		section()
		writeTableGroup(&b, group)
	}

	_, err := io.WriteString(f.writer, b.String())
	return err
}

// FormatTable writes one table with its indexes.
func (f *SchemaTextFormatter) FormatTable(table schema.Table, indexes []schema.Index) error {
	var b strings.Builder
	writeTable(&b, table, indexes)
	_, err := io.WriteString(f.writer, b.String())
	return err
}

func writeProject(b *strings.Builder, s *schema.Schema) {
	header := "Project"
	if s.Name != "" {
		header += " " + quoteName(s.Name)
	}
	fmt.Fprintf(b, "%s {\n", header)
	if s.DatabaseType != "" {
		fmt.Fprintf(b, "  database_type: %s\n", quoteString(s.DatabaseType))
	}
	if s.Description != nil {
		fmt.Fprintf(b, "  Note: %s\n", quoteString(*s.Description))
	}
	fmt.Fprintln(b, "}")
}

func writeEnum(b *strings.Builder, enum schema.Enum) {
	fmt.Fprintf(b, "Enum %s {\n", quotePath(enum.Name))
	for _, v := range enum.Values {
		if v.Note != nil {
			fmt.Fprintf(b, "  %s [note: %s]\n", quoteName(v.Name), quoteString(*v.Note))
		} else {
			fmt.Fprintf(b, "  %s\n", quoteName(v.Name))
		}
	}
	if enum.Note != nil {
		fmt.Fprintf(b, "  Note: %s\n", quoteString(*enum.Note))
	}
	fmt.Fprintln(b, "}")
}

func writeTable(b *strings.Builder, table schema.Table, indexes []schema.Index) {
	header := "Table " + quotePath(table.Name)
	if table.Alias != nil {
		header += " as " + quoteName(*table.Alias)
	}
	if table.HeaderColor != nil {
		header += " [headercolor: " + settingValue(*table.HeaderColor) + "]"
	}
	fmt.Fprintf(b, "%s {\n", header)

	for _, col := range table.Columns {
		line := "  " + quoteName(col.Name) + " " + typeText(col.Type)
		if settings := columnSettings(col); len(settings) > 0 {
			line += " [" + strings.Join(settings, ", ") + "]"
		}
		fmt.Fprintln(b, line)
	}

	if table.Note != nil {
		fmt.Fprintf(b, "\n  Note: %s\n", quoteString(*table.Note))
	}

	if len(indexes) > 0 {
		b.WriteByte('\n')
		fmt.Fprintln(b, "  indexes {")
		for _, idx := range indexes {
			fmt.Fprintf(b, "    %s\n", indexText(idx))
		}
		fmt.Fprintln(b, "  }")
	}
	fmt.Fprintln(b, "}")
}

func writeRef(b *strings.Builder, rel schema.Relationship) {
	line := "Ref"
	if rel.Name != nil {
		line += " " + quoteName(*rel.Name)
	}
	line += ": " + quoteEndpoint(rel.FromTable, rel.FromColumn) +
		" " + relationOp(rel.RelationshipType) + " " +
		quoteEndpoint(rel.ToTable, rel.ToColumn)

	var settings []string
	if rel.OnDelete != nil {
		settings = append(settings, "delete: "+*rel.OnDelete)
	}
	if rel.OnUpdate != nil {
		settings = append(settings, "update: "+*rel.OnUpdate)
	}
	if rel.Note != nil {
		settings = append(settings, "note: "+quoteString(*rel.Note))
	}
	if len(settings) > 0 {
		line += " [" + strings.Join(settings, ", ") + "]"
	}
	fmt.Fprintln(b, line)
}

func writeTableGroup(b *strings.Builder, group schema.TableGroup) {
	header := "TableGroup " + quotePath(group.Name)
	if group.Color != nil {
		header += " [color: " + settingValue(*group.Color) + "]"
	}
	fmt.Fprintf(b, "%s {\n", header)
	for _, table := range group.Tables {
		fmt.Fprintf(b, "  %s\n", quotePath(table))
	}
	if group.Note != nil {
		fmt.Fprintf(b, "  Note: %s\n", quoteString(*group.Note))
	}
	fmt.Fprintln(b, "}")
}

func columnSettings(col schema.Column) []string {
	var settings []string
	if col.PrimaryKey {
		settings = append(settings, "pk")
	}
	if col.AutoIncrement {
		settings = append(settings, "increment")
	}
	if col.Unique {
		settings = append(settings, "unique")
	}
	if !col.Nullable {
		settings = append(settings, "not null")
	}
	if col.DefaultValue != nil {
		settings = append(settings, "default: "+defaultText(*col.DefaultValue, col.DefaultKind))
	}
	if col.Note != nil {
		settings = append(settings, "note: "+quoteString(*col.Note))
	}
	return settings
}

// defaultText renders a default value in the literal form it was declared in.
// Introspected defaults carry no kind and are classified by their text.
func defaultText(value string, kind schema.DefaultKind) string {
	if kind == "" {
		switch lower := strings.ToLower(value); {
		case numberPattern.MatchString(value):
			kind = schema.DefaultNumber
		case lower == "true" || lower == "false":
			kind = schema.DefaultBoolean
		case lower == "null":
			kind = schema.DefaultNull
		default:
			kind = schema.DefaultExpression
		}
	}

	switch kind {
	case schema.DefaultString:
		return quoteString(value)
	case schema.DefaultNumber, schema.DefaultBoolean, schema.DefaultIdentifier:
		return value
	case schema.DefaultNull:
		return "null"
	}
	return "`" + backtickStripper.Replace(value) + "`"
}

func indexText(idx schema.Index) string {
	var cols string
	if len(idx.Columns) == 1 {
		cols = quoteName(idx.Columns[0])
	} else {
		quoted := make([]string, len(idx.Columns))
		for i, c := range idx.Columns {
			quoted[i] = quoteName(c)
		}
		cols = "(" + strings.Join(quoted, ", ") + ")"
	}

	var settings []string
	switch {
	case idx.Type != nil && *idx.Type == "primary":
		settings = append(settings, "pk")
	case idx.Unique:
		settings = append(settings, "unique")
	}
	if idx.Name != "" {
		settings = append(settings, "name: "+quoteString(idx.Name))
	}
	if idx.Type != nil && *idx.Type != "primary" {
		settings = append(settings, "type: "+quoteName(*idx.Type))
	}
	if idx.Note != nil {
		settings = append(settings, "note: "+quoteString(*idx.Note))
	}
	if len(settings) == 0 {
		return cols
	}
	return cols + " [" + strings.Join(settings, ", ") + "]"
}

func typeText(typ schema.ColumnType) string {
	name := typ.Name
	switch {
	case typ.Size != nil:
		name = fmt.Sprintf("%s(%d)", name, *typ.Size)
	case typ.Precision != nil && typ.Scale != nil:
		name = fmt.Sprintf("%s(%d,%d)", name, *typ.Precision, *typ.Scale)
	case typ.Precision != nil:
		name = fmt.Sprintf("%s(%d)", name, *typ.Precision)
	}
	if typePattern.MatchString(name) && !reservedLiteral(name) {
		return name
	}
	return quoteString(name)
}

// quoteName writes a name bare when it lexes as a single name token, and quoted otherwise.
func quoteName(name string) string {
	if identPattern.MatchString(name) && !reservedLiteral(name) {
		return name
	}
	return `"` + strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(name) + `"`
}

// quotePath quotes each segment of a dotted name.
func quotePath(name string) string {
	segments := strings.Split(name, ".")
	for i, seg := range segments {
		segments[i] = quoteName(seg)
	}
	return strings.Join(segments, ".")
}

func quoteEndpoint(table, column string) string {
	if table == "" {
		return quoteName(column)
	}
	return quotePath(table) + "." + quoteName(column)
}

// reservedLiteral reports names the lexer reads as true, false or null.
func reservedLiteral(name string) bool {
	switch lexer.LookupKeyword(name) {
	case lexer.Boolean, lexer.Null:
		return true
	}
	return false
}

func quoteString(s string) string {
	return "'" + stringEscaper.Replace(s) + "'"
}

func settingValue(v string) string {
	if strings.HasPrefix(v, "#") && identPattern.MatchString("x"+v[1:]) {
		return v
	}
	return quoteString(v)
}
