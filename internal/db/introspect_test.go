package db

import (
	"context"
	"reflect"
	"testing"
	"time"

	"github.com/tordrt/schemadsl/internal/schema"
)

func TestParseURL(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		wantType string
		wantConn string
		wantErr  bool
	}{
		{"postgres", "postgres://u:p@localhost/shop", Postgres, "postgres://u:p@localhost/shop", false},
		{"postgresql", "postgresql://localhost/shop", Postgres, "postgresql://localhost/shop", false},
		{"mysql strips scheme", "mysql://u:p@tcp(localhost:3306)/shop", MySQL, "u:p@tcp(localhost:3306)/shop", false},
		{"sqlite path", "sqlite://./data/shop.db", SQLite, "./data/shop.db", false},
		{"sqlserver", "sqlserver://sa:pw@localhost:1433?database=shop", SQLServer, "sqlserver://sa:pw@localhost:1433?database=shop", false},
		{"empty", "", "", "", true},
		{"unknown scheme", "oracle://localhost/shop", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotType, gotConn, err := ParseURL(tt.url)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseURL() error = %v, wantErr %v", err, tt.wantErr)
			}
			if gotType != tt.wantType || gotConn != tt.wantConn {
				t.Errorf("ParseURL() = (%q, %q), want (%q, %q)", gotType, gotConn, tt.wantType, tt.wantConn)
			}
		})
	}
}

func TestIntrospectRejectsUnknownScheme(t *testing.T) {
	if _, err := Introspect(context.Background(), "redis://localhost", Options{}); err == nil {
		t.Error("expected an error for an unsupported scheme")
	}
}

func TestSplitType(t *testing.T) {
	size255, prec10, scale2 := 255, 10, 2
	tests := []struct {
		raw  string
		want schema.ColumnType
	}{
		{"integer", schema.ColumnType{Name: "integer"}},
		{"varchar(255)", schema.ColumnType{Name: "varchar", Size: &size255}},
		{"numeric(10,2)", schema.ColumnType{Name: "numeric", Precision: &prec10, Scale: &scale2}},
		{"decimal(10, 2)", schema.ColumnType{Name: "decimal", Precision: &prec10, Scale: &scale2}},
		{"nvarchar(max)", schema.ColumnType{Name: "nvarchar(max)"}},
		{"int(10) unsigned", schema.ColumnType{Name: "int(10) unsigned"}},
		{"enum('a','b')", schema.ColumnType{Name: "enum('a','b')"}},
		{"text[]", schema.ColumnType{Name: "text[]"}},
	}

	for _, tt := range tests {
		if got := splitType(tt.raw); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("splitType(%q) = %+v, want %+v", tt.raw, got, tt.want)
		}
	}
}

func TestReferentialAction(t *testing.T) {
	tests := []struct {
		rule string
		want string // empty means nil
	}{
		{"CASCADE", "cascade"},
		{"SET NULL", "set null"},
		{"SET_DEFAULT", "set default"},
		{"NO ACTION", ""},
		{"NO_ACTION", ""},
		{"", ""},
		{"RESTRICT", "restrict"},
	}

	for _, tt := range tests {
		got := referentialAction(tt.rule)
		switch {
		case tt.want == "" && got != nil:
			t.Errorf("referentialAction(%q) = %q, want nil", tt.rule, *got)
		case tt.want != "" && (got == nil || *got != tt.want):
			t.Errorf("referentialAction(%q) = %v, want %q", tt.rule, got, tt.want)
		}
	}
}

func TestForeignKeyIsManyToOne(t *testing.T) {
	rel := foreignKey("orders", "user_id", "users", "id", "CASCADE", "NO ACTION")
	if rel.RelationshipType != schema.ManyToOne || rel.Cardinality != "N:1" {
		t.Errorf("type = %s, cardinality = %s", rel.RelationshipType, rel.Cardinality)
	}
	if rel.OnDelete == nil || *rel.OnDelete != "cascade" || rel.OnUpdate != nil {
		t.Errorf("actions = %v / %v", rel.OnDelete, rel.OnUpdate)
	}
	if rel.ID == "" {
		t.Error("relationship has no id")
	}
}

func TestFilterExcludedTables(t *testing.T) {
	s := schema.New(Postgres, time.Time{})
	s.Tables = []schema.Table{{Name: "users"}, {Name: "orders"}, {Name: "audit_log"}}
	s.Relationships = []schema.Relationship{
		foreignKey("orders", "user_id", "users", "id", "", ""),
		foreignKey("audit_log", "user_id", "users", "id", "", ""),
	}
	s.Indexes = []schema.Index{
		{Name: "idx_orders_user", TableName: "orders", Columns: []string{"user_id"}},
		{Name: "idx_audit_user", TableName: "audit_log", Columns: []string{"user_id"}},
	}

	filterExcludedTables(s, []string{"audit_log"})

	if len(s.Tables) != 2 || s.Tables[0].Name != "users" || s.Tables[1].Name != "orders" {
		t.Errorf("tables = %+v", s.Tables)
	}
	if len(s.Relationships) != 1 || s.Relationships[0].FromTable != "orders" {
		t.Errorf("relationships = %+v", s.Relationships)
	}
	if len(s.Indexes) != 1 || s.Indexes[0].Name != "idx_orders_user" {
		t.Errorf("indexes = %+v", s.Indexes)
	}

	filterExcludedTables(s, nil)
	if len(s.Tables) != 2 {
		t.Error("an empty exclude list must not change the schema")
	}
}

func TestPostgresType(t *testing.T) {
	tests := []struct {
		formatted string
		want      string
	}{
		{"character varying(64)", "varchar(64)"},
		{"character varying", "varchar"},
		{"character(2)", "char(2)"},
		{"timestamp with time zone", "timestamptz"},
		{"timestamp(3) without time zone", "timestamp(3)"},
		{"time with time zone", "timetz"},
		{"numeric(12,4)", "numeric(12,4)"},
		{"integer[]", "integer[]"},
		{"character varying(10)[]", "varchar(10)[]"},
		{"double precision", "double precision"},
		{"jsonb", "jsonb"},
	}

	for _, tt := range tests {
		if got := postgresType(tt.formatted); got != tt.want {
			t.Errorf("postgresType(%q) = %q, want %q", tt.formatted, got, tt.want)
		}
	}
}

func TestPostgresActions(t *testing.T) {
	rel := foreignKey("posts", "user_id", "users", "id", pgActions["c"], pgActions["a"])
	if rel.OnDelete == nil || *rel.OnDelete != "cascade" {
		t.Errorf("OnDelete = %v, want cascade", rel.OnDelete)
	}
	if rel.OnUpdate != nil {
		t.Errorf("OnUpdate = %q, want nil for no action", *rel.OnUpdate)
	}
	if got := pgActions["n"]; got != "set null" {
		t.Errorf("pgActions[n] = %q", got)
	}
}

func TestParseEnumValues(t *testing.T) {
	tests := []struct {
		columnType string
		want       []string
		wantErr    bool
	}{
		{"enum('small','medium','large')", []string{"small", "medium", "large"}, false},
		{"enum('it''s','a,b')", []string{"it's", "a,b"}, false},
		{"ENUM('x')", []string{"x"}, false},
		{"varchar(10)", nil, true},
		{"enum('open", nil, true},
	}

	for _, tt := range tests {
		got, err := parseEnumValues(tt.columnType)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseEnumValues(%q) error = %v, wantErr %v", tt.columnType, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && !reflect.DeepEqual(got, tt.want) {
			t.Errorf("parseEnumValues(%q) = %q, want %q", tt.columnType, got, tt.want)
		}
	}
}

func TestParseDatabaseName(t *testing.T) {
	name, err := ParseDatabaseName("user:pass@tcp(localhost:3306)/shop?parseTime=true")
	if err != nil || name != "shop" {
		t.Errorf("ParseDatabaseName() = %q, %v", name, err)
	}
	if _, err := ParseDatabaseName("user:pass@tcp(localhost:3306)/"); err == nil {
		t.Error("expected an error for a DSN without a database")
	}
}

func TestMySQLDefaultKind(t *testing.T) {
	if got := mysqlDefaultKind("varchar", ""); got != schema.DefaultString {
		t.Errorf("varchar default kind = %q", got)
	}
	if got := mysqlDefaultKind("timestamp", "DEFAULT_GENERATED"); got != schema.DefaultExpression {
		t.Errorf("generated default kind = %q", got)
	}
	if got := mysqlDefaultKind("int", ""); got != "" {
		t.Errorf("int default kind = %q", got)
	}
}

func TestSQLServerDefaults(t *testing.T) {
	tests := []struct {
		raw      string
		want     string
		wantKind schema.DefaultKind
	}{
		{"((0))", "0", ""},
		{"('active')", "active", schema.DefaultString},
		{"(N'o''brien')", "o'brien", schema.DefaultString},
		{"(getdate())", "getdate()", ""},
		{"(NULL)", "NULL", ""},
	}

	for _, tt := range tests {
		got, kind := mssqlDefault(tt.raw)
		if got != tt.want || kind != tt.wantKind {
			t.Errorf("mssqlDefault(%q) = (%q, %q), want (%q, %q)", tt.raw, got, kind, tt.want, tt.wantKind)
		}
	}
}

func TestSQLServerColumnType(t *testing.T) {
	maxLen, length, prec, scale := -1, 50, 18, 2

	got := mssqlColumnType(mssqlColumnRow{DataType: "nvarchar", MaxLength: &maxLen})
	if got.Name != "nvarchar(max)" || got.Size != nil {
		t.Errorf("nvarchar(max) = %+v", got)
	}

	got = mssqlColumnType(mssqlColumnRow{DataType: "varchar", MaxLength: &length})
	if got.Name != "varchar" || got.Size == nil || *got.Size != 50 {
		t.Errorf("varchar(50) = %+v", got)
	}

	got = mssqlColumnType(mssqlColumnRow{DataType: "decimal", Precision: &prec, Scale: &scale})
	if got.Precision == nil || *got.Precision != 18 || got.Scale == nil || *got.Scale != 2 {
		t.Errorf("decimal(18,2) = %+v", got)
	}

	got = mssqlColumnType(mssqlColumnRow{DataType: "int", Precision: &prec})
	if got.Precision != nil {
		t.Errorf("int must not carry precision: %+v", got)
	}
}

func TestSQLiteDefault(t *testing.T) {
	tests := []struct {
		raw      string
		want     string
		wantKind schema.DefaultKind
	}{
		{"'active'", "active", schema.DefaultString},
		{"'it''s'", "it's", schema.DefaultString},
		{"0", "0", ""},
		{"CURRENT_TIMESTAMP", "CURRENT_TIMESTAMP", ""},
	}

	for _, tt := range tests {
		got, kind := sqliteDefault(tt.raw)
		if got != tt.want || kind != tt.wantKind {
			t.Errorf("sqliteDefault(%q) = %q, %q; want %q, %q", tt.raw, got, kind, tt.want, tt.wantKind)
		}
	}
}
