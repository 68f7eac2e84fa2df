package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/tordrt/schemadsl/internal/schema"
)

// PostgresClient manages the connection to PostgreSQL
type PostgresClient struct {
	conn *pgx.Conn
}

// NewPostgresClient connects and pings
func NewPostgresClient(ctx context.Context, connString string) (*PostgresClient, error) {
	conn, err := pgx.Connect(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	if err := conn.Ping(ctx); err != nil {
		_ = conn.Close(ctx)
		return nil, fmt.Errorf("failed to ping PostgreSQL: %w", err)
	}
	return &PostgresClient{conn: conn}, nil
}

// Close closes the database connection
func (c *PostgresClient) Close(ctx context.Context) error {
	return c.conn.Close(ctx)
}

func (c *PostgresClient) query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return c.conn.Query(ctx, sql, args...)
}

// pgTable resolves $1 (namespace) and $2 (table) to the table oid. Every
// per-table catalog query below filters on it.
const pgTable = `format('%I.%I', $1::text, $2::text)::regclass`

// PostgresExtractor reads one PostgreSQL schema (namespace) from pg_catalog
type PostgresExtractor struct {
	client *PostgresClient
	schema string
}

// NewPostgresExtractor creates an extractor for schemaName
func NewPostgresExtractor(client *PostgresClient, schemaName string) *PostgresExtractor {
	return &PostgresExtractor{client: client, schema: schemaName}
}

// ExtractSchema reads the given tables, or every ordinary and partitioned table when
// tables is empty. Enum types used by the columns are collected into Enums.
func (e *PostgresExtractor) ExtractSchema(ctx context.Context, tables []string) (*schema.Schema, error) {
	s := newSchema(Postgres, "PostgreSQL")

	names := tables
	if len(names) == 0 {
		var err error
		if names, err = e.tableNames(ctx); err != nil {
			return nil, fmt.Errorf("failed to list tables: %w", err)
		}
	}

	var enumTypes []int64
	seen := map[int64]bool{}
	for _, name := range names {
		table, types, err := e.columns(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("failed to read columns of %s: %w", name, err)
		}
		s.Tables = append(s.Tables, *table)
		for _, oid := range types {
			if !seen[oid] {
				seen[oid] = true
				enumTypes = append(enumTypes, oid)
			}
		}

		rels, err := e.foreignKeys(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("failed to read foreign keys of %s: %w", name, err)
		}
		s.Relationships = append(s.Relationships, rels...)

		indexes, err := e.indexes(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("failed to read indexes of %s: %w", name, err)
		}
		s.Indexes = append(s.Indexes, indexes...)
	}

	enums, err := e.enums(ctx, enumTypes)
	if err != nil {
		return nil, fmt.Errorf("failed to read enum types: %w", err)
	}
	s.Enums = append(s.Enums, enums...)
	return s, nil
}

func (e *PostgresExtractor) tableNames(ctx context.Context) ([]string, error) {
	rows, err := e.client.query(ctx, `
		SELECT c.relname
		FROM pg_class c
		JOIN pg_namespace n ON n.oid = c.relnamespace
		WHERE n.nspname = $1 AND c.relkind IN ('r', 'p') AND NOT c.relispartition
		ORDER BY c.relname`, e.schema)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

// columns reads the table's columns and returns the oids of the enum types
// they use.
func (e *PostgresExtractor) columns(ctx context.Context, tableName string) (*schema.Table, []int64, error) {
	rows, err := e.client.query(ctx, `
		SELECT
			a.attname,
			format_type(a.atttypid, a.atttypmod),
			t.typname,
			t.typtype = 'e',
			a.atttypid::int8,
			NOT a.attnotnull,
			pg_get_expr(d.adbin, d.adrelid),
			a.attidentity <> '',
			EXISTS (
				SELECT 1 FROM pg_constraint k
				WHERE k.conrelid = a.attrelid AND k.contype = 'p' AND a.attnum = ANY(k.conkey)
			),
			EXISTS (
				SELECT 1 FROM pg_constraint k
				WHERE k.conrelid = a.attrelid AND k.contype = 'u' AND k.conkey = ARRAY[a.attnum]
			)
		FROM pg_attribute a
		JOIN pg_type t ON t.oid = a.atttypid
		LEFT JOIN pg_attrdef d ON d.adrelid = a.attrelid AND d.adnum = a.attnum
		WHERE a.attrelid = `+pgTable+` AND a.attnum > 0 AND NOT a.attisdropped
		ORDER BY a.attnum`, e.schema, tableName)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	table := &schema.Table{ID: schema.NewID(), Name: tableName, Columns: []schema.Column{}}
	var enumTypes []int64

	for rows.Next() {
		var (
			name, formatted, typName string
			isEnum, nullable         bool
			typOID                   int64
			defaultExpr              *string
			identity, isPK, unique   bool
		)
		if err := rows.Scan(&name, &formatted, &typName, &isEnum, &typOID, &nullable,
			&defaultExpr, &identity, &isPK, &unique); err != nil {
			return nil, nil, err
		}

		col := schema.Column{
			ID:         schema.NewID(),
			Name:       name,
			Nullable:   nullable,
			PrimaryKey: isPK,
			Unique:     unique && !isPK,
		}
		if isEnum {
			// format_type may schema-qualify the name; the enum is emitted unqualified
			col.Type = schema.ColumnType{Name: typName}
			enumTypes = append(enumTypes, typOID)
		} else {
			col.Type = splitType(postgresType(formatted))
		}

		switch {
		case identity:
			col.AutoIncrement = true
		case defaultExpr != nil && strings.HasPrefix(*defaultExpr, "nextval("):
			// serial columns: the sequence default is implied by increment
			col.AutoIncrement = true
		case defaultExpr != nil:
			col.DefaultValue = defaultExpr
		}
		table.Columns = append(table.Columns, col)
	}
	return table, enumTypes, rows.Err()
}

// postgresTypeAliases shortens the SQL standard spellings format_type produces.
var postgresTypeAliases = map[string]string{
	"character varying":           "varchar",
	"character":                   "char",
	"bit varying":                 "varbit",
	"timestamp with time zone":    "timestamptz",
	"timestamp without time zone": "timestamp",
	"time with time zone":         "timetz",
	"time without time zone":      "time",
}

// postgresType rewrites a format_type result such as "character varying(64)" or
// "timestamp(3) with time zone[]" into the short form "varchar(64)" or
// "timestamptz(3)[]". Type modifiers are moved behind the aliased name.
func postgresType(formatted string) string {
	base, array := strings.CutSuffix(formatted, "[]")

	var args string
	if open := strings.IndexByte(base, '('); open >= 0 {
		if end := strings.IndexByte(base[open:], ')'); end >= 0 {
			args = base[open : open+end+1]
			base = strings.TrimSpace(base[:open] + base[open+end+1:])
		}
	}

	if alias, ok := postgresTypeAliases[base]; ok {
		base = alias
	}
	name := base + args
	if array {
		name += "[]"
	}
	return name
}

// enums loads the labels of the given enum types in declaration order.
func (e *PostgresExtractor) enums(ctx context.Context, typeOIDs []int64) ([]schema.Enum, error) {
	if len(typeOIDs) == 0 {
		return nil, nil
	}

	rows, err := e.client.query(ctx, `
		SELECT t.typname, array_agg(v.enumlabel ORDER BY v.enumsortorder)
		FROM pg_type t
		JOIN pg_enum v ON v.enumtypid = t.oid
		WHERE t.oid::int8 = ANY($1)
		GROUP BY t.typname
		ORDER BY t.typname`, typeOIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var enums []schema.Enum
	for rows.Next() {
		var (
			name   string
			labels []string
		)
		if err := rows.Scan(&name, &labels); err != nil {
			return nil, err
		}
		enum := schema.Enum{ID: schema.NewID(), Name: name}
		for _, label := range labels {
			enum.Values = append(enum.Values, schema.EnumValue{Name: label})
		}
		enums = append(enums, enum)
	}
	return enums, rows.Err()
}

// pgActions maps pg_constraint.confdeltype / confupdtype codes to rule names.
var pgActions = map[string]string{
	"a": "no action",
	"r": "restrict",
	"c": "cascade",
	"n": "set null",
	"d": "set default",
}

// foreignKeys pairs each referencing column with its referenced column by
// position, so composite keys yield one relationship per column pair.
func (e *PostgresExtractor) foreignKeys(ctx context.Context, tableName string) ([]schema.Relationship, error) {
	rows, err := e.client.query(ctx, `
		SELECT a.attname, ft.relname, fa.attname, con.confdeltype::text, con.confupdtype::text
		FROM pg_constraint con
		JOIN pg_class ft ON ft.oid = con.confrelid
		CROSS JOIN LATERAL unnest(con.conkey, con.confkey) WITH ORDINALITY AS k(attnum, fattnum, ord)
		JOIN pg_attribute a ON a.attrelid = con.conrelid AND a.attnum = k.attnum
		JOIN pg_attribute fa ON fa.attrelid = con.confrelid AND fa.attnum = k.fattnum
		WHERE con.contype = 'f' AND con.conrelid = `+pgTable+`
		ORDER BY con.conname, k.ord`, e.schema, tableName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rels []schema.Relationship
	for rows.Next() {
		var fromCol, toTable, toCol, onDelete, onUpdate string
		if err := rows.Scan(&fromCol, &toTable, &toCol, &onDelete, &onUpdate); err != nil {
			return nil, err
		}
		rels = append(rels, foreignKey(tableName, fromCol, toTable, toCol, pgActions[onDelete], pgActions[onUpdate]))
	}
	return rels, rows.Err()
}

// indexes reads every index except the primary key. Expression keys are kept
// as their SQL text.
func (e *PostgresExtractor) indexes(ctx context.Context, tableName string) ([]schema.Index, error) {
	rows, err := e.client.query(ctx, `
		SELECT
			ic.relname,
			ix.indisunique,
			am.amname,
			array_agg(COALESCE(a.attname::text, pg_get_indexdef(ix.indexrelid, k.ord::int, true)) ORDER BY k.ord)
		FROM pg_index ix
		JOIN pg_class ic ON ic.oid = ix.indexrelid
		JOIN pg_am am ON am.oid = ic.relam
		CROSS JOIN LATERAL unnest(ix.indkey::int2[]) WITH ORDINALITY AS k(attnum, ord)
		LEFT JOIN pg_attribute a ON a.attrelid = ix.indrelid AND a.attnum = k.attnum AND k.attnum > 0
		WHERE ix.indrelid = `+pgTable+` AND NOT ix.indisprimary AND k.ord <= ix.indnkeyatts
		GROUP BY ic.relname, ix.indisunique, am.amname
		ORDER BY ic.relname`, e.schema, tableName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var indexes []schema.Index
	for rows.Next() {
		idx := schema.Index{ID: schema.NewID(), TableName: tableName}
		var method string
		if err := rows.Scan(&idx.Name, &idx.Unique, &method, &idx.Columns); err != nil {
			return nil, err
		}
		idx.Type = &method
		indexes = append(indexes, idx)
	}
	return indexes, rows.Err()
}
