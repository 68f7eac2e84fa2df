// Package db reads table definitions out of a live database catalog and
// turns them into the same schema model the parser produces.
package db

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/tordrt/schemadsl/internal/schema"
)

// Database engines accepted by Introspect
const (
	Postgres  = "postgres"
	MySQL     = "mysql"
	SQLite    = "sqlite"
	SQLServer = "sqlserver"
)

// Options selects what gets extracted
type Options struct {
	Tables        []string // empty means every base table
	ExcludeTables []string
	SchemaName    string // defaults per engine: public, the DSN database, main, dbo
}

// SchemaExtractor is implemented by every engine's extractor.
type SchemaExtractor interface {
	ExtractSchema(ctx context.Context, tables []string) (*schema.Schema, error)
}

// Introspect connects to databaseURL, extracts its schema and applies the
// table filters.
func Introspect(ctx context.Context, databaseURL string, opts Options) (*schema.Schema, error) {
	dbType, connStr, err := ParseURL(databaseURL)
	if err != nil {
		return nil, err
	}

	var s *schema.Schema
	switch dbType {
	case Postgres:
		s, err = introspectPostgres(ctx, connStr, opts)
	case MySQL:
		s, err = introspectMySQL(ctx, connStr, opts)
	case SQLite:
		s, err = introspectSQLite(ctx, connStr, opts)
	case SQLServer:
		s, err = introspectSQLServer(ctx, connStr, opts)
	default:
		return nil, fmt.Errorf("unsupported database type: %s", dbType)
	}
	if err != nil {
		return nil, err
	}

	filterExcludedTables(s, opts.ExcludeTables)
	return s, nil
}

// urlSchemes maps each accepted URL prefix to its engine. The prefix is
// stripped for drivers that take a bare DSN or path.
var urlSchemes = []struct {
	prefix string
	engine string
	strip  bool
}{
	{"postgres://", Postgres, false},
	{"postgresql://", Postgres, false},
	{"mysql://", MySQL, true},
	{"sqlite://", SQLite, true},
	{"sqlserver://", SQLServer, false},
}

// ParseURL detects the database type and returns the connection string its
// driver expects.
func ParseURL(url string) (dbType, connectionStr string, err error) {
	if url == "" {
		return "", "", fmt.Errorf("database URL is required")
	}
	for _, scheme := range urlSchemes {
		rest, ok := strings.CutPrefix(url, scheme.prefix)
		if !ok {
			continue
		}
		if scheme.strip {
			return scheme.engine, rest, nil
		}
		return scheme.engine, url, nil
	}
	return "", "", fmt.Errorf("invalid database URL scheme (must start with postgres://, mysql://, sqlite:// or sqlserver://)")
}

func introspectPostgres(ctx context.Context, connStr string, opts Options) (*schema.Schema, error) {
	client, err := NewPostgresClient(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	defer func() { _ = client.Close(ctx) }()

	schemaName := opts.SchemaName
	if schemaName == "" {
		schemaName = "public"
	}
	return NewPostgresExtractor(client, schemaName).ExtractSchema(ctx, opts.Tables)
}

func introspectMySQL(ctx context.Context, connStr string, opts Options) (*schema.Schema, error) {
	client, err := NewMySQLClient(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MySQL: %w", err)
	}
	defer func() { _ = client.Close() }()

	schemaName := opts.SchemaName
	if schemaName == "" {
		schemaName, err = ParseDatabaseName(connStr)
		if err != nil {
			return nil, fmt.Errorf("failed to determine database name: %w (please specify a schema name)", err)
		}
	}
	return NewMySQLExtractor(client, schemaName).ExtractSchema(ctx, opts.Tables)
}

func introspectSQLite(ctx context.Context, path string, opts Options) (*schema.Schema, error) {
	client, err := NewSQLiteClient(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to SQLite: %w", err)
	}
	defer func() { _ = client.Close() }()

	return NewSQLiteExtractor(client).ExtractSchema(ctx, opts.Tables)
}

func introspectSQLServer(ctx context.Context, connStr string, opts Options) (*schema.Schema, error) {
	client, err := NewSQLServerClient(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to SQL Server: %w", err)
	}
	defer func() { _ = client.Close() }()

	schemaName := opts.SchemaName
	if schemaName == "" {
		schemaName = "dbo"
	}
	return NewSQLServerExtractor(client, schemaName).ExtractSchema(ctx, opts.Tables)
}

// newSchema returns an empty schema for an engine, e.g. newSchema(Postgres, "PostgreSQL").
func newSchema(source, databaseType string) *schema.Schema {
	s := schema.New(source, time.Now())
	s.DatabaseType = databaseType
	return s
}

// filterExcludedTables drops the excluded tables along with their indexes
// and any relationship touching them.
func filterExcludedTables(s *schema.Schema, exclude []string) {
	if len(exclude) == 0 {
		return
	}
	excluded := func(name string) bool { return slices.Contains(exclude, name) }

	s.Tables = slices.DeleteFunc(s.Tables, func(t schema.Table) bool { return excluded(t.Name) })
	s.Indexes = slices.DeleteFunc(s.Indexes, func(i schema.Index) bool { return excluded(i.TableName) })
	s.Relationships = slices.DeleteFunc(s.Relationships, func(r schema.Relationship) bool {
		return excluded(r.FromTable) || excluded(r.ToTable)
	})
}

// splitType splits a catalog type such as "varchar(255)" or "numeric(10,2)"
// into its name and numeric arguments. Types with non-numeric arguments or
// trailing modifiers ("nvarchar(max)", "int(10) unsigned") keep their full
// text as the name.
func splitType(raw string) schema.ColumnType {
	raw = strings.TrimSpace(raw)
	open := strings.IndexByte(raw, '(')
	if open <= 0 || !strings.HasSuffix(raw, ")") {
		return schema.ColumnType{Name: raw}
	}

	name := strings.TrimSpace(raw[:open])
	args := strings.Split(raw[open+1:len(raw)-1], ",")
	nums := make([]int, 0, len(args))
	for _, arg := range args {
		n, err := strconv.Atoi(strings.TrimSpace(arg))
		if err != nil || n < 0 {
			return schema.ColumnType{Name: raw}
		}
		nums = append(nums, n)
	}

	switch len(nums) {
	case 1:
		return schema.ColumnType{Name: name, Size: &nums[0]}
	case 2:
		return schema.ColumnType{Name: name, Precision: &nums[0], Scale: &nums[1]}
	}
	return schema.ColumnType{Name: raw}
}

// referentialAction normalizes a catalog rule ("SET_NULL", "NO ACTION") to
// the lowercase words used in ref settings. NO ACTION is the default and
// yields nil.
func referentialAction(rule string) *string {
	action := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(rule), "_", " "))
	if action == "" || action == "no action" {
		return nil
	}
	return &action
}

// foreignKey builds the many-to-one relationship for a referencing column.
func foreignKey(fromTable, fromColumn, toTable, toColumn, onDelete, onUpdate string) schema.Relationship {
	return schema.Relationship{
		ID:               schema.NewID(),
		RelationshipType: schema.ManyToOne,
		FromTable:        fromTable,
		FromColumn:       fromColumn,
		ToTable:          toTable,
		ToColumn:         toColumn,
		Cardinality:      schema.Cardinality(schema.ManyToOne),
		OnDelete:         referentialAction(onDelete),
		OnUpdate:         referentialAction(onUpdate),
	}
}

// markUnique flags the named columns of a table as unique.
func markUnique(columns []schema.Column, names map[string]bool) {
	for i := range columns {
		if names[columns[i].Name] {
			columns[i].Unique = true
		}
	}
}
