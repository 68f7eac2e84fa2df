package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/microsoft/go-mssqldb"

	"github.com/tordrt/schemadsl/internal/schema"
)

// SQLServerClient manages the connection to SQL Server
type SQLServerClient struct {
	db *sqlx.DB
}

// NewSQLServerClient opens a connection pool for a sqlserver:// URL and pings it
func NewSQLServerClient(ctx context.Context, connString string) (*SQLServerClient, error) {
	db, err := sqlx.ConnectContext(ctx, "sqlserver", connString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return &SQLServerClient{db: db}, nil
}

// Close closes the database connection
func (c *SQLServerClient) Close() error {
	return c.db.Close()
}

// DB returns the underlying connection pool
func (c *SQLServerClient) DB() *sqlx.DB {
	return c.db
}

type mssqlColumnRow struct {
	Name      string  `db:"column_name"`
	DataType  string  `db:"data_type"`
	Nullable  string  `db:"is_nullable"`
	Default   *string `db:"column_default"`
	MaxLength *int    `db:"max_length"`
	Precision *int    `db:"numeric_precision"`
	Scale     *int    `db:"numeric_scale"`
	Identity  bool    `db:"is_identity"`
}

type mssqlKeyRow struct {
	Column         string `db:"column_name"`
	ConstraintType string `db:"constraint_type"`
}

type mssqlForeignKeyRow struct {
	Column           string `db:"column_name"`
	ReferencedTable  string `db:"referenced_table_name"`
	ReferencedColumn string `db:"referenced_column_name"`
	DeleteRule       string `db:"delete_rule"`
	UpdateRule       string `db:"update_rule"`
}

type mssqlIndexRow struct {
	Name      string `db:"index_name"`
	Unique    bool   `db:"is_unique"`
	IndexType string `db:"index_type"`
	Column    string `db:"column_name"`
}

// SQLServerExtractor reads one SQL Server schema
type SQLServerExtractor struct {
	client     *SQLServerClient
	schemaName string
}

// NewSQLServerExtractor creates an extractor for schemaName
func NewSQLServerExtractor(client *SQLServerClient, schemaName string) *SQLServerExtractor {
	return &SQLServerExtractor{client: client, schemaName: schemaName}
}

// ExtractSchema extracts the given tables, or every base table when tables is empty
func (e *SQLServerExtractor) ExtractSchema(ctx context.Context, tables []string) (*schema.Schema, error) {
	s := newSchema(SQLServer, "SQL Server")

	tableNames, err := e.getTableNames(ctx, tables)
	if err != nil {
		return nil, fmt.Errorf("failed to get table names: %w", err)
	}

	for _, tableName := range tableNames {
		table, err := e.extractTable(ctx, tableName)
		if err != nil {
			return nil, fmt.Errorf("failed to extract table %s: %w", tableName, err)
		}
		s.Tables = append(s.Tables, *table)

		rels, err := e.extractRelations(ctx, tableName)
		if err != nil {
			return nil, fmt.Errorf("failed to extract relations of %s: %w", tableName, err)
		}
		s.Relationships = append(s.Relationships, rels...)

		indexes, err := e.extractIndexes(ctx, tableName)
		if err != nil {
			return nil, fmt.Errorf("failed to extract indexes of %s: %w", tableName, err)
		}
		s.Indexes = append(s.Indexes, indexes...)
	}

	return s, nil
}

func (e *SQLServerExtractor) getTableNames(ctx context.Context, requestedTables []string) ([]string, error) {
	if len(requestedTables) > 0 {
		return requestedTables, nil
	}

	const query = `SELECT TABLE_NAME FROM INFORMATION_SCHEMA.TABLES
		WHERE TABLE_SCHEMA = @p1 AND TABLE_TYPE = 'BASE TABLE'
		ORDER BY TABLE_NAME`

	var tables []string
	if err := e.client.DB().SelectContext(ctx, &tables, query, e.schemaName); err != nil {
		return nil, err
	}
	return tables, nil
}

func (e *SQLServerExtractor) extractTable(ctx context.Context, tableName string) (*schema.Table, error) {
	const columnQuery = `SELECT
			c.COLUMN_NAME AS column_name,
			c.DATA_TYPE AS data_type,
			c.IS_NULLABLE AS is_nullable,
			c.COLUMN_DEFAULT AS column_default,
			c.CHARACTER_MAXIMUM_LENGTH AS max_length,
			c.NUMERIC_PRECISION AS numeric_precision,
			c.NUMERIC_SCALE AS numeric_scale,
			CAST(COLUMNPROPERTY(OBJECT_ID(QUOTENAME(c.TABLE_SCHEMA) + '.' + QUOTENAME(c.TABLE_NAME)), c.COLUMN_NAME, 'IsIdentity') AS bit) AS is_identity
		FROM INFORMATION_SCHEMA.COLUMNS c
		WHERE c.TABLE_SCHEMA = @p1 AND c.TABLE_NAME = @p2
		ORDER BY c.ORDINAL_POSITION`

	var columns []mssqlColumnRow
	if err := e.client.DB().SelectContext(ctx, &columns, columnQuery, e.schemaName, tableName); err != nil {
		return nil, err
	}

	const keyQuery = `SELECT kcu.COLUMN_NAME AS column_name, tc.CONSTRAINT_TYPE AS constraint_type
		FROM INFORMATION_SCHEMA.TABLE_CONSTRAINTS tc
		JOIN INFORMATION_SCHEMA.KEY_COLUMN_USAGE kcu
			ON tc.CONSTRAINT_NAME = kcu.CONSTRAINT_NAME
			AND tc.TABLE_SCHEMA = kcu.TABLE_SCHEMA
		WHERE tc.CONSTRAINT_TYPE IN ('PRIMARY KEY', 'UNIQUE')
			AND tc.TABLE_SCHEMA = @p1
			AND tc.TABLE_NAME = @p2`

	var keys []mssqlKeyRow
	if err := e.client.DB().SelectContext(ctx, &keys, keyQuery, e.schemaName, tableName); err != nil {
		return nil, err
	}

	pkSet := map[string]bool{}
	uniqueSet := map[string]bool{}
	for _, k := range keys {
		if k.ConstraintType == "PRIMARY KEY" {
			pkSet[k.Column] = true
		} else {
			uniqueSet[k.Column] = true
		}
	}

	table := &schema.Table{ID: schema.NewID(), Name: tableName, Columns: make([]schema.Column, 0, len(columns))}
	for _, row := range columns {
		col := schema.Column{
			ID:            schema.NewID(),
			Name:          row.Name,
			Type:          mssqlColumnType(row),
			Nullable:      row.Nullable == "YES",
			PrimaryKey:    pkSet[row.Name],
			AutoIncrement: row.Identity,
		}
		if row.Default != nil {
			value, kind := mssqlDefault(*row.Default)
			col.DefaultValue = &value
			col.DefaultKind = kind
		}
		table.Columns = append(table.Columns, col)
	}
	markUnique(table.Columns, uniqueSet)

	return table, nil
}

// mssqlColumnType attaches length or precision to the bare DATA_TYPE.
// A CHARACTER_MAXIMUM_LENGTH of -1 means (max).
func mssqlColumnType(row mssqlColumnRow) schema.ColumnType {
	typ := schema.ColumnType{Name: row.DataType}
	switch row.DataType {
	case "char", "varchar", "nchar", "nvarchar", "binary", "varbinary":
		if row.MaxLength != nil {
			if *row.MaxLength < 0 {
				typ.Name = row.DataType + "(max)"
			} else {
				typ.Size = row.MaxLength
			}
		}
	case "decimal", "numeric":
		typ.Precision = row.Precision
		if row.Precision != nil {
			typ.Scale = row.Scale
		}
	}
	return typ
}

// mssqlDefault strips the parentheses SQL Server wraps defaults in:
// "((0))" is 0 and "('x')" is the string x.
func mssqlDefault(raw string) (string, schema.DefaultKind) {
	value := strings.TrimSpace(raw)
	for len(value) >= 2 && value[0] == '(' && value[len(value)-1] == ')' {
		value = strings.TrimSpace(value[1 : len(value)-1])
	}
	if strings.HasPrefix(value, "N'") {
		value = value[1:]
	}
	if len(value) >= 2 && value[0] == '\'' && value[len(value)-1] == '\'' {
		return strings.ReplaceAll(value[1:len(value)-1], "''", "'"), schema.DefaultString
	}
	return value, ""
}

func (e *SQLServerExtractor) extractRelations(ctx context.Context, tableName string) ([]schema.Relationship, error) {
	const query = `SELECT
			fk_col.name AS column_name,
			pk_tab.name AS referenced_table_name,
			pk_col.name AS referenced_column_name,
			fk.delete_referential_action_desc AS delete_rule,
			fk.update_referential_action_desc AS update_rule
		FROM sys.foreign_keys fk
		JOIN sys.foreign_key_columns fkc ON fk.object_id = fkc.constraint_object_id
		JOIN sys.tables fk_tab ON fkc.parent_object_id = fk_tab.object_id
		JOIN sys.columns fk_col ON fkc.parent_object_id = fk_col.object_id AND fkc.parent_column_id = fk_col.column_id
		JOIN sys.tables pk_tab ON fkc.referenced_object_id = pk_tab.object_id
		JOIN sys.columns pk_col ON fkc.referenced_object_id = pk_col.object_id AND fkc.referenced_column_id = pk_col.column_id
		JOIN sys.schemas s ON fk_tab.schema_id = s.schema_id
		WHERE s.name = @p1 AND fk_tab.name = @p2
		ORDER BY fk.name, fkc.constraint_column_id`

	var rows []mssqlForeignKeyRow
	if err := e.client.DB().SelectContext(ctx, &rows, query, e.schemaName, tableName); err != nil {
		return nil, err
	}

	rels := make([]schema.Relationship, 0, len(rows))
	for _, row := range rows {
		rels = append(rels, foreignKey(tableName, row.Column, row.ReferencedTable, row.ReferencedColumn, row.DeleteRule, row.UpdateRule))
	}
	return rels, nil
}

func (e *SQLServerExtractor) extractIndexes(ctx context.Context, tableName string) ([]schema.Index, error) {
	const query = `SELECT
			i.name AS index_name,
			i.is_unique AS is_unique,
			LOWER(i.type_desc) AS index_type,
			col.name AS column_name
		FROM sys.indexes i
		JOIN sys.index_columns ic ON i.object_id = ic.object_id AND i.index_id = ic.index_id
		JOIN sys.columns col ON ic.object_id = col.object_id AND ic.column_id = col.column_id
		JOIN sys.tables t ON i.object_id = t.object_id
		JOIN sys.schemas s ON t.schema_id = s.schema_id
		WHERE s.name = @p1 AND t.name = @p2
			AND i.is_primary_key = 0
			AND i.is_unique_constraint = 0
			AND ic.is_included_column = 0
		ORDER BY i.name, ic.key_ordinal`

	var rows []mssqlIndexRow
	if err := e.client.DB().SelectContext(ctx, &rows, query, e.schemaName, tableName); err != nil {
		return nil, err
	}

	// One row per indexed column, grouped by index name
	var indexes []schema.Index
	for _, row := range rows {
		if n := len(indexes); n > 0 && indexes[n-1].Name == row.Name {
			indexes[n-1].Columns = append(indexes[n-1].Columns, row.Column)
			continue
		}
		indexType := row.IndexType
		indexes = append(indexes, schema.Index{
			ID:        schema.NewID(),
			Name:      row.Name,
			TableName: tableName,
			Columns:   []string{row.Column},
			Unique:    row.Unique,
			Type:      &indexType,
		})
	}
	return indexes, nil
}
