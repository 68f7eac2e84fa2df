package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"

	"github.com/tordrt/schemadsl/internal/schema"
)

// MySQLClient manages the connection to MySQL
type MySQLClient struct {
	db *sqlx.DB
}

// NewMySQLClient opens a connection pool and pings it
func NewMySQLClient(ctx context.Context, dsn string) (*MySQLClient, error) {
	db, err := sqlx.ConnectContext(ctx, "mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL connection: %w", err)
	}
	return &MySQLClient{db: db}, nil
}

// Close closes the database connection
func (c *MySQLClient) Close() error {
	return c.db.Close()
}

// selectIn runs a query holding one "IN (?)" placeholder for a slice argument.
func (c *MySQLClient) selectIn(ctx context.Context, dest any, query string, args ...any) error {
	query, args, err := sqlx.In(query, args...)
	if err != nil {
		return err
	}
	return c.db.SelectContext(ctx, dest, c.db.Rebind(query), args...)
}

// ParseDatabaseName returns the database named in a MySQL DSN such as
// "user:pass@tcp(localhost:3306)/shop".
func ParseDatabaseName(dsn string) (string, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "", err
	}
	if cfg.DBName == "" {
		return "", fmt.Errorf("no database name in DSN")
	}
	return cfg.DBName, nil
}

type mysqlColumnRow struct {
	Table      string  `db:"tbl"`
	Name       string  `db:"col"`
	ColumnType string  `db:"col_type"`
	DataType   string  `db:"data_type"`
	Nullable   bool    `db:"nullable"`
	Default    *string `db:"dflt"`
	Key        string  `db:"col_key"`
	Extra      string  `db:"extra"`
}

type mysqlForeignKeyRow struct {
	Table     string `db:"tbl"`
	Column    string `db:"col"`
	RefTable  string `db:"ref_tbl"`
	RefColumn string `db:"ref_col"`
	OnDelete  string `db:"on_delete"`
	OnUpdate  string `db:"on_update"`
}

type mysqlIndexRow struct {
	Table   string  `db:"tbl"`
	Name    string  `db:"idx"`
	Unique  bool    `db:"is_unique"`
	Method  string  `db:"method"`
	Columns *string `db:"cols"` // NULL when every key part is an expression
}

// MySQLExtractor reads one MySQL database from information_schema. Each
// catalog view is queried once for all selected tables.
type MySQLExtractor struct {
	client   *MySQLClient
	database string
}

// NewMySQLExtractor creates an extractor for the named database
func NewMySQLExtractor(client *MySQLClient, database string) *MySQLExtractor {
	return &MySQLExtractor{client: client, database: database}
}

// ExtractSchema extracts the given tables, or every base table when tables is empty
func (e *MySQLExtractor) ExtractSchema(ctx context.Context, tables []string) (*schema.Schema, error) {
	s := newSchema(MySQL, "MySQL")

	names := tables
	if len(names) == 0 {
		if err := e.client.db.SelectContext(ctx, &names, `
			SELECT table_name FROM information_schema.tables
			WHERE table_schema = ? AND table_type = 'BASE TABLE'
			ORDER BY table_name`, e.database); err != nil {
			return nil, fmt.Errorf("failed to list tables: %w", err)
		}
	}
	if len(names) == 0 {
		return s, nil
	}

	var err error
	if s.Tables, s.Enums, err = e.tables(ctx, names); err != nil {
		return nil, fmt.Errorf("failed to read columns: %w", err)
	}
	if s.Relationships, err = e.foreignKeys(ctx, names); err != nil {
		return nil, fmt.Errorf("failed to read foreign keys: %w", err)
	}
	if s.Indexes, err = e.indexes(ctx, names); err != nil {
		return nil, fmt.Errorf("failed to read indexes: %w", err)
	}
	return s, nil
}

// tables returns the named tables in the given order, plus one enum per
// enum-typed column named <table>_<column>_enum. Unknown names are skipped.
func (e *MySQLExtractor) tables(ctx context.Context, names []string) ([]schema.Table, []schema.Enum, error) {
	var rows []mysqlColumnRow
	if err := e.client.selectIn(ctx, &rows, `
		SELECT
			table_name AS tbl,
			column_name AS col,
			column_type AS col_type,
			data_type,
			is_nullable = 'YES' AS nullable,
			column_default AS dflt,
			column_key AS col_key,
			extra
		FROM information_schema.columns
		WHERE table_schema = ? AND table_name IN (?)
		ORDER BY table_name, ordinal_position`, e.database, names); err != nil {
		return nil, nil, err
	}

	byName := make(map[string]*schema.Table, len(names))
	var enums []schema.Enum
	for _, row := range rows {
		table := byName[row.Table]
		if table == nil {
			table = &schema.Table{ID: schema.NewID(), Name: row.Table, Columns: []schema.Column{}}
			byName[row.Table] = table
		}

		col := schema.Column{
			ID:            schema.NewID(),
			Name:          row.Name,
			Type:          splitType(row.ColumnType),
			Nullable:      row.Nullable,
			PrimaryKey:    row.Key == "PRI",
			Unique:        row.Key == "UNI",
			AutoIncrement: strings.Contains(row.Extra, "auto_increment"),
		}
		if row.Default != nil {
			col.DefaultValue = row.Default
			col.DefaultKind = mysqlDefaultKind(row.DataType, row.Extra)
		}

		if row.DataType == "enum" {
			values, err := parseEnumValues(row.ColumnType)
			if err != nil {
				return nil, nil, fmt.Errorf("%s.%s: %w", row.Table, row.Name, err)
			}
			enum := schema.Enum{ID: schema.NewID(), Name: row.Table + "_" + row.Name + "_enum"}
			for _, v := range values {
				enum.Values = append(enum.Values, schema.EnumValue{Name: v})
			}
			enums = append(enums, enum)
			col.Type = schema.ColumnType{Name: enum.Name}
		}
		table.Columns = append(table.Columns, col)
	}

	tables := make([]schema.Table, 0, len(byName))
	for _, name := range names {
		if table, ok := byName[name]; ok {
			tables = append(tables, *table)
			delete(byName, name)
		}
	}
	return tables, enums, nil
}

// mysqlDefaultKind classifies a column default. MySQL reports literal string
// defaults unquoted, so the kind comes from the column's data type.
func mysqlDefaultKind(dataType, extra string) schema.DefaultKind {
	if strings.Contains(extra, "DEFAULT_GENERATED") {
		return schema.DefaultExpression
	}
	switch dataType {
	case "char", "varchar", "tinytext", "text", "mediumtext", "longtext", "enum", "set":
		return schema.DefaultString
	}
	return ""
}

// parseEnumValues reads the labels out of an enum(...) column type. Labels are
// single-quoted and separated by commas; a doubled quote inside a label stands
// for one quote.
func parseEnumValues(columnType string) ([]string, error) {
	body, ok := strings.CutSuffix(columnType, ")")
	if !ok || len(body) < 5 || !strings.EqualFold(body[:5], "enum(") {
		return nil, fmt.Errorf("not an enum column type: %s", columnType)
	}
	body = body[5:]

	var (
		values []string
		label  strings.Builder
		quoted bool
	)
	for i := 0; i < len(body); i++ {
		ch := body[i]
		if !quoted {
			switch ch {
			case '\'':
				quoted = true
			case ',', ' ':
			default:
				return nil, fmt.Errorf("unexpected %q in %s", ch, columnType)
			}
			continue
		}
		if ch != '\'' {
			label.WriteByte(ch)
			continue
		}
		if i+1 < len(body) && body[i+1] == '\'' {
			label.WriteByte('\'')
			i++
			continue
		}
		values = append(values, label.String())
		label.Reset()
		quoted = false
	}
	if quoted {
		return nil, fmt.Errorf("unterminated enum label in %s", columnType)
	}
	return values, nil
}

func (e *MySQLExtractor) foreignKeys(ctx context.Context, names []string) ([]schema.Relationship, error) {
	var rows []mysqlForeignKeyRow
	if err := e.client.selectIn(ctx, &rows, `
		SELECT
			k.table_name AS tbl,
			k.column_name AS col,
			k.referenced_table_name AS ref_tbl,
			k.referenced_column_name AS ref_col,
			r.delete_rule AS on_delete,
			r.update_rule AS on_update
		FROM information_schema.key_column_usage k
		JOIN information_schema.referential_constraints r
			ON r.constraint_schema = k.constraint_schema AND r.constraint_name = k.constraint_name
		WHERE k.table_schema = ? AND k.table_name IN (?) AND k.referenced_table_name IS NOT NULL
		ORDER BY k.table_name, k.constraint_name, k.ordinal_position`, e.database, names); err != nil {
		return nil, err
	}

	rels := make([]schema.Relationship, 0, len(rows))
	for _, row := range rows {
		rels = append(rels, foreignKey(row.Table, row.Column, row.RefTable, row.RefColumn, row.OnDelete, row.OnUpdate))
	}
	return rels, nil
}

// indexes reads secondary indexes. Expression key parts have no column name
// and are left out; an index made only of expressions is skipped.
func (e *MySQLExtractor) indexes(ctx context.Context, names []string) ([]schema.Index, error) {
	var rows []mysqlIndexRow
	if err := e.client.selectIn(ctx, &rows, `
		SELECT
			table_name AS tbl,
			index_name AS idx,
			MIN(non_unique) = 0 AS is_unique,
			LOWER(MIN(index_type)) AS method,
			GROUP_CONCAT(column_name ORDER BY seq_in_index SEPARATOR ',') AS cols
		FROM information_schema.statistics
		WHERE table_schema = ? AND table_name IN (?) AND index_name <> 'PRIMARY'
		GROUP BY table_name, index_name
		ORDER BY table_name, index_name`, e.database, names); err != nil {
		return nil, err
	}

	indexes := make([]schema.Index, 0, len(rows))
	for _, row := range rows {
		if row.Columns == nil {
			continue
		}
		method := row.Method
		indexes = append(indexes, schema.Index{
			ID:        schema.NewID(),
			Name:      row.Name,
			TableName: row.Table,
			Columns:   strings.Split(*row.Columns, ","),
			Unique:    row.Unique,
			Type:      &method,
		})
	}
	return indexes, nil
}
