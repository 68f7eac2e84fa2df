package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/tordrt/schemadsl/internal/schema"
)

// SQLiteClient manages the connection to a SQLite file
type SQLiteClient struct {
	db *sqlx.DB
}

// NewSQLiteClient opens the database file and pings it
func NewSQLiteClient(ctx context.Context, path string) (*SQLiteClient, error) {
	db, err := sqlx.ConnectContext(ctx, "sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}
	return &SQLiteClient{db: db}, nil
}

// Close closes the database connection
func (c *SQLiteClient) Close() error {
	return c.db.Close()
}

// SQLiteExtractor reads a SQLite database through its table-valued pragmas
type SQLiteExtractor struct {
	client *SQLiteClient
}

// NewSQLiteExtractor creates a new SQLite schema extractor
func NewSQLiteExtractor(client *SQLiteClient) *SQLiteExtractor {
	return &SQLiteExtractor{client: client}
}

type sqliteColumnRow struct {
	Name    string  `db:"name"`
	Type    string  `db:"col_type"`
	NotNull int     `db:"not_null"`
	Default *string `db:"dflt_value"`
	PK      int     `db:"pk"`
}

type sqliteIndexRow struct {
	Name   string `db:"name"`
	Unique int    `db:"is_unique"`
	Origin string `db:"origin"` // c (CREATE INDEX), u (UNIQUE), pk
}

type sqliteForeignKeyRow struct {
	Table    string  `db:"ref_table"`
	From     string  `db:"from_col"`
	To       *string `db:"to_col"`
	OnUpdate string  `db:"on_update"`
	OnDelete string  `db:"on_delete"`
}

// ExtractSchema extracts the given tables, or every table in the main schema when
// tables is empty
func (e *SQLiteExtractor) ExtractSchema(ctx context.Context, tables []string) (*schema.Schema, error) {
	s := newSchema(SQLite, "SQLite")

	names := tables
	if len(names) == 0 {
		if err := e.client.db.SelectContext(ctx, &names, `
			SELECT name FROM pragma_table_list
			WHERE schema = 'main' AND type = 'table' AND name NOT LIKE 'sqlite_%'
			ORDER BY name`); err != nil {
			return nil, fmt.Errorf("failed to list tables: %w", err)
		}
	}

	for _, name := range names {
		table, err := e.columns(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("failed to read columns of %s: %w", name, err)
		}

		indexes, err := e.indexes(ctx, table)
		if err != nil {
			return nil, fmt.Errorf("failed to read indexes of %s: %w", name, err)
		}
		s.Tables = append(s.Tables, *table)
		s.Indexes = append(s.Indexes, indexes...)

		rels, err := e.foreignKeys(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("failed to read foreign keys of %s: %w", name, err)
		}
		s.Relationships = append(s.Relationships, rels...)
	}
	return s, nil
}

func (e *SQLiteExtractor) columns(ctx context.Context, tableName string) (*schema.Table, error) {
	var createSQL *string
	if err := e.client.db.GetContext(ctx, &createSQL,
		`SELECT sql FROM sqlite_schema WHERE type = 'table' AND name = ?`, tableName); err != nil {
		return nil, err
	}

	var rows []sqliteColumnRow
	if err := e.client.db.SelectContext(ctx, &rows, `
		SELECT name, type AS col_type, "notnull" AS not_null, dflt_value, pk
		FROM pragma_table_info(?) ORDER BY cid`, tableName); err != nil {
		return nil, err
	}

	table := &schema.Table{ID: schema.NewID(), Name: tableName, Columns: make([]schema.Column, 0, len(rows))}
	pkCount := 0
	for _, row := range rows {
		col := schema.Column{
			ID:         schema.NewID(),
			Name:       row.Name,
			Type:       splitType(strings.ToLower(row.Type)),
			Nullable:   row.NotNull == 0 && row.PK == 0,
			PrimaryKey: row.PK > 0,
		}
		if row.Default != nil {
			value, kind := sqliteDefault(*row.Default)
			col.DefaultValue = &value
			col.DefaultKind = kind
		}
		if row.PK > 0 {
			pkCount++
		}
		table.Columns = append(table.Columns, col)
	}

	// AUTOINCREMENT is only legal on a single INTEGER PRIMARY KEY column
	if createSQL != nil && pkCount == 1 && strings.Contains(strings.ToUpper(*createSQL), "AUTOINCREMENT") {
		for i := range table.Columns {
			if table.Columns[i].PrimaryKey {
				table.Columns[i].AutoIncrement = true
			}
		}
	}
	return table, nil
}

// sqliteDefault interprets dflt_value, which holds the default's SQL text. A quoted
// literal is unquoted and marked as a string.
func sqliteDefault(value string) (string, schema.DefaultKind) {
	if len(value) >= 2 && value[0] == '\'' && value[len(value)-1] == '\'' {
		return strings.ReplaceAll(value[1:len(value)-1], "''", "'"), schema.DefaultString
	}
	return value, ""
}

// indexes returns the table's secondary indexes. Single-column unique
// constraints are folded into the column instead.
func (e *SQLiteExtractor) indexes(ctx context.Context, table *schema.Table) ([]schema.Index, error) {
	var list []sqliteIndexRow
	if err := e.client.db.SelectContext(ctx, &list, `
		SELECT name, "unique" AS is_unique, origin
		FROM pragma_index_list(?) ORDER BY seq`, table.Name); err != nil {
		return nil, err
	}

	uniqueColumns := map[string]bool{}
	var indexes []schema.Index
	for _, row := range list {
		if row.Origin == "pk" {
			continue
		}

		// Expression terms have a NULL name and are left out
		var columns []string
		if err := e.client.db.SelectContext(ctx, &columns, `
			SELECT name FROM pragma_index_info(?)
			WHERE name IS NOT NULL ORDER BY seqno`, row.Name); err != nil {
			return nil, err
		}
		if len(columns) == 0 {
			continue
		}
		if row.Origin == "u" && len(columns) == 1 {
			uniqueColumns[columns[0]] = true
			continue
		}

		idx := schema.Index{
			ID:        schema.NewID(),
			TableName: table.Name,
			Columns:   columns,
			Unique:    row.Unique == 1,
		}
		// Constraint indexes carry generated names that cannot be recreated
		if !strings.HasPrefix(row.Name, "sqlite_autoindex") {
			idx.Name = row.Name
		}
		indexes = append(indexes, idx)
	}

	markUnique(table.Columns, uniqueColumns)
	return indexes, nil
}

func (e *SQLiteExtractor) foreignKeys(ctx context.Context, tableName string) ([]schema.Relationship, error) {
	var rows []sqliteForeignKeyRow
	if err := e.client.db.SelectContext(ctx, &rows, `
		SELECT "table" AS ref_table, "from" AS from_col, "to" AS to_col, on_update, on_delete
		FROM pragma_foreign_key_list(?) ORDER BY id, seq`, tableName); err != nil {
		return nil, err
	}

	rels := make([]schema.Relationship, 0, len(rows))
	for _, row := range rows {
		var to string
		switch {
		case row.To != nil:
			to = *row.To
		default:
			// REFERENCES t without a column list points at t's primary key
			if err := e.client.db.GetContext(ctx, &to,
				`SELECT name FROM pragma_table_info(?) WHERE pk = 1`, row.Table); err != nil {
				return nil, fmt.Errorf("primary key of %s: %w", row.Table, err)
			}
		}
		rels = append(rels, foreignKey(tableName, row.From, row.Table, to, row.OnDelete, row.OnUpdate))
	}
	return rels, nil
}
