package formatter

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/tordrt/schemadsl/internal/lexer"
	"github.com/tordrt/schemadsl/internal/parser"
	"github.com/tordrt/schemadsl/internal/schema"
)

const shopSchema = `Project shop {
  database_type: 'PostgreSQL'
  Note: 'Online store'
}

Enum order_status {
  pending [note: 'awaiting payment']
  shipped
  "on hold"
  Note: 'order lifecycle'
}

Table users as U [headercolor: #3498DB] {
  id integer [pk, increment]
  email varchar(255) [unique, not null, note: 'login']
  "display name" text [default: 'anonymous']
  score decimal(10,2) [default: -1]
  active boolean [default: true]
  created_at timestamp [default: ` + "`now()`" + `]
  deleted_at timestamp [default: null]
  tags text[]
  Note: 'People who can log in'

  indexes {
    email [unique, name: 'idx_users_email']
    (id, created_at) [type: btree]
  }
}

Table auth.sessions {
  id uuid [pk]
  user_id integer
  kind order_status [default: pending]
}

Ref fk_sessions_user: auth.sessions.user_id > users.id [delete: cascade, update: set null]
Ref: users.id - auth.sessions.id

TableGroup core [color: #ff0000] {
  users
  auth.sessions
  Note: 'main tables'
}
`

func parseSchema(t *testing.T, src string) *schema.Schema {
	t.Helper()
	tokens, lexErrs := lexer.Tokenize(src)
	if len(lexErrs) > 0 {
		t.Fatalf("lexical errors: %v", lexErrs)
	}
	s, diags, err := parser.Parse(tokens, parser.Options{})
	if err != nil {
		t.Fatalf("parser.Parse() error = %v", err)
	}
	if len(diags) > 0 {
		t.Fatalf("diagnostics: %v\n%s", diags, src)
	}
	return s
}

// clearIDs zeroes generated ids and timestamps so two schemas can be compared.
func clearIDs(s *schema.Schema) {
	s.ID = ""
	s.Metadata.CreatedAt = time.Time{}
	s.Metadata.UpdatedAt = time.Time{}
	for i := range s.Tables {
		s.Tables[i].ID = ""
		for j := range s.Tables[i].Columns {
			s.Tables[i].Columns[j].ID = ""
		}
	}
	for i := range s.Relationships {
		s.Relationships[i].ID = ""
	}
	for i := range s.Enums {
		s.Enums[i].ID = ""
	}
	for i := range s.Indexes {
		s.Indexes[i].ID = ""
	}
	for i := range s.TableGroups {
		s.TableGroups[i].ID = ""
	}
}

func TestSchemaTextRoundTrip(t *testing.T) {
	original := parseSchema(t, shopSchema)

	var buf bytes.Buffer
	if err := NewSchemaTextFormatter(&buf).Format(original); err != nil {
		t.Fatalf("Format() error = %v", err)
	}
	reparsed := parseSchema(t, buf.String())

	clearIDs(original)
	clearIDs(reparsed)
	if !reflect.DeepEqual(original, reparsed) {
		t.Errorf("round trip changed the schema; formatted text:\n%s", buf.String())
	}
}

func TestSchemaTextIsStable(t *testing.T) {
	var first, second bytes.Buffer
	_ = NewSchemaTextFormatter(&first).Format(parseSchema(t, shopSchema))
	_ = NewSchemaTextFormatter(&second).Format(parseSchema(t, first.String()))
	if first.String() != second.String() {
		t.Errorf("formatting is not stable:\n%s\n---\n%s", first.String(), second.String())
	}
}

func TestQuoteName(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"users", "users"},
		{"key", "key"},
		{"first name", `"first name"`},
		{"null", `"null"`},
		{"True", `"True"`},
		{`say "hi"`, `"say \"hi\""`},
		{"9lives", `"9lives"`},
	}
	for _, tt := range tests {
		if got := quoteName(tt.name); got != tt.want {
			t.Errorf("quoteName(%q) = %s, want %s", tt.name, got, tt.want)
		}
	}
}

func TestDefaultTextClassifiesIntrospectedValues(t *testing.T) {
	tests := []struct {
		value string
		want  string
	}{
		{"0", "0"},
		{"-2.5", "-2.5"},
		{"FALSE", "FALSE"},
		{"NULL", "null"},
		{"nextval('users_id_seq'::regclass)", "`nextval('users_id_seq'::regclass)`"},
		{"CURRENT_TIMESTAMP", "`CURRENT_TIMESTAMP`"},
	}
	for _, tt := range tests {
		if got := defaultText(tt.value, ""); got != tt.want {
			t.Errorf("defaultText(%q) = %s, want %s", tt.value, got, tt.want)
		}
	}
}

func TestTypeText(t *testing.T) {
	size := 20
	tests := []struct {
		typ  schema.ColumnType
		want string
	}{
		{schema.ColumnType{Name: "varchar", Size: &size}, "varchar(20)"},
		{schema.ColumnType{Name: "nvarchar(max)"}, "nvarchar(max)"},
		{schema.ColumnType{Name: "int[]"}, "int[]"},
		{schema.ColumnType{Name: "public.mood"}, "public.mood"},
		{schema.ColumnType{Name: "timestamp with time zone"}, "'timestamp with time zone'"},
	}
	for _, tt := range tests {
		if got := typeText(tt.typ); got != tt.want {
			t.Errorf("typeText(%+v) = %s, want %s", tt.typ, got, tt.want)
		}
	}
}

func TestMarkdownFormatter(t *testing.T) {
	s := parseSchema(t, shopSchema)

	var buf bytes.Buffer
	if err := NewMarkdownFormatter(&buf).Format(s); err != nil {
		t.Fatalf("Format() error = %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"# shop",
		"Online store",
		"## users",
		"### Columns",
		"- **id:** integer, PK, AUTO_INCREMENT",
		"- **email:** varchar(255), UNIQUE, NOT NULL (login)",
		"### Idx",
		"- idx_users_email on (email), unique",
		"## auth.sessions",
		"### References",
		"- user_id → users.id (one-to-many, 1:N)",
		"## Enums",
		"- **order_status:** pending | shipped | on hold",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("markdown output missing %q\n%s", want, out)
		}
	}
}

func TestTextFormatter(t *testing.T) {
	s := parseSchema(t, shopSchema)

	var buf bytes.Buffer
	if err := NewTextFormatter(&buf).Format(s); err != nil {
		t.Fatalf("Format() error = %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"TABLE users (PK: id)",
		"  email: varchar(255) UNIQUE NOT NULL",
		"  kind: order_status (pending|shipped|on hold) DEFAULT pending",
		"  RELATIONS:",
		"    user_id → users.id (1:N)",
		"  INDEXES:",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("text output missing %q\n%s", want, out)
		}
	}
}

func TestMultiFileFormatter(t *testing.T) {
	s := parseSchema(t, shopSchema)

	t.Run("dbml", func(t *testing.T) {
		dir := t.TempDir()
		f, err := NewMultiFileFormatter(dir, FormatDBML)
		if err != nil {
			t.Fatal(err)
		}
		if err := f.Format(s); err != nil {
			t.Fatalf("Format() error = %v", err)
		}

		var all strings.Builder
		for _, name := range []string{"_overview.dbml", "users.dbml", "auth.sessions.dbml"} {
			data, err := os.ReadFile(filepath.Join(dir, name))
			if err != nil {
				t.Fatalf("missing %s: %v", name, err)
			}
			all.Write(data)
			all.WriteString("\n")
		}

		combined := parseSchema(t, all.String())
		if len(combined.Tables) != 2 || len(combined.Relationships) != 2 || len(combined.Enums) != 1 {
			t.Errorf("combined files: %d tables, %d refs, %d enums", len(combined.Tables), len(combined.Relationships), len(combined.Enums))
		}
	})

	t.Run("markdown", func(t *testing.T) {
		dir := t.TempDir()
		f, err := NewMultiFileFormatter(dir, FormatMarkdown)
		if err != nil {
			t.Fatal(err)
		}
		if err := f.Format(s); err != nil {
			t.Fatalf("Format() error = %v", err)
		}

		overview, err := os.ReadFile(filepath.Join(dir, "_overview.md"))
		if err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(string(overview), "- **auth.sessions** (references: users)") {
			t.Errorf("overview missing references:\n%s", overview)
		}

		users, err := os.ReadFile(filepath.Join(dir, "users.md"))
		if err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(string(users), "### Referenced by") {
			t.Errorf("users.md missing incoming references:\n%s", users)
		}
	})

	if _, err := NewMultiFileFormatter(t.TempDir(), "pdf"); err == nil {
		t.Error("expected an error for an unknown format")
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := New("pdf", &bytes.Buffer{}); err == nil {
		t.Error("expected an error")
	}
	for _, format := range []string{FormatDBML, FormatMarkdown, FormatText} {
		if _, err := New(format, &bytes.Buffer{}); err != nil {
			t.Errorf("New(%q) error = %v", format, err)
		}
	}
}

type failingWriter struct{}

var errDiskFull = errors.New("disk full")

func (failingWriter) Write([]byte) (int, error) { return 0, errDiskFull }

func TestFormattersReportWriteErrors(t *testing.T) {
	s := parseSchema(t, shopSchema)

	for _, format := range []string{FormatDBML, FormatMarkdown, FormatText} {
		t.Run(format, func(t *testing.T) {
			f, err := New(format, failingWriter{})
			if err != nil {
				t.Fatal(err)
			}
			if err := f.Format(s); !errors.Is(err, errDiskFull) {
				t.Errorf("Format() error = %v, want %v", err, errDiskFull)
			}
		})
	}

	table := s.Tables[0]
	if err := NewSchemaTextFormatter(failingWriter{}).FormatTable(table, s.TableIndexes(table.Name)); !errors.Is(err, errDiskFull) {
		t.Errorf("FormatTable() error = %v", err)
	}
}
