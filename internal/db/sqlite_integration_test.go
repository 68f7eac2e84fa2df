//go:build integration

package db

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/tordrt/schemadsl/internal/schema"
)

const sqliteFixture = `
CREATE TABLE users (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	username VARCHAR(50) NOT NULL UNIQUE,
	email TEXT NOT NULL,
	status TEXT DEFAULT 'active',
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);
CREATE TABLE products (
	id INTEGER PRIMARY KEY,
	name TEXT NOT NULL,
	category TEXT,
	price DECIMAL(10,2) DEFAULT 0
);
CREATE INDEX idx_category ON products(category);
CREATE TABLE orders (
	id INTEGER PRIMARY KEY,
	user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	product_id INTEGER REFERENCES products,
	UNIQUE (user_id, product_id)
);
`

func newSQLiteFixture(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "shop.db")
	conn, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()
	if _, err := conn.Exec(sqliteFixture); err != nil {
		t.Fatalf("create fixture: %v", err)
	}
	return path
}

func TestSQLiteExtraction(t *testing.T) {
	ctx := context.Background()
	path := newSQLiteFixture(t)

	s, err := Introspect(ctx, "sqlite://"+path, Options{})
	if err != nil {
		t.Fatalf("Introspect() error = %v", err)
	}

	if s.DatabaseType != "SQLite" || s.Metadata.Source != SQLite {
		t.Errorf("database type = %q, source = %q", s.DatabaseType, s.Metadata.Source)
	}
	if len(s.Tables) != 3 {
		t.Fatalf("got %d tables, want 3", len(s.Tables))
	}

	users := s.FindTable("users")
	if users == nil {
		t.Fatal("users table not found")
	}
	if pk := users.PrimaryKey(); len(pk) != 1 || pk[0] != "id" {
		t.Errorf("users primary key = %v", pk)
	}
	if !users.Columns[0].AutoIncrement {
		t.Error("users.id should be auto-increment")
	}
	username := users.Columns[1]
	if !username.Unique || username.Nullable || username.Type.Name != "varchar" || username.Type.Size == nil || *username.Type.Size != 50 {
		t.Errorf("username = %+v", username)
	}
	status := users.Columns[3]
	if status.DefaultValue == nil || *status.DefaultValue != "active" || status.DefaultKind != schema.DefaultString {
		t.Errorf("status default = %v (%s)", status.DefaultValue, status.DefaultKind)
	}

	indexes := s.TableIndexes("products")
	if len(indexes) != 1 || indexes[0].Name != "idx_category" || indexes[0].Columns[0] != "category" {
		t.Errorf("products indexes = %+v", indexes)
	}
	composite := s.TableIndexes("orders")
	if len(composite) != 1 || !composite[0].Unique || len(composite[0].Columns) != 2 {
		t.Errorf("orders indexes = %+v", composite)
	}

	rels := s.OutgoingRelationships("orders")
	if len(rels) != 2 {
		t.Fatalf("orders relationships = %+v", rels)
	}
	for _, rel := range rels {
		switch rel.FromColumn {
		case "user_id":
			if rel.ToTable != "users" || rel.ToColumn != "id" || rel.OnDelete == nil || *rel.OnDelete != "cascade" {
				t.Errorf("user_id relationship = %+v", rel)
			}
		case "product_id":
			// no column list: resolved to the primary key
			if rel.ToTable != "products" || rel.ToColumn != "id" {
				t.Errorf("product_id relationship = %+v", rel)
			}
		default:
			t.Errorf("unexpected relationship %+v", rel)
		}
	}
}

func TestSQLiteSpecificAndExcludedTables(t *testing.T) {
	ctx := context.Background()
	path := newSQLiteFixture(t)

	s, err := Introspect(ctx, "sqlite://"+path, Options{Tables: []string{"users", "orders"}})
	if err != nil {
		t.Fatal(err)
	}
	if len(s.Tables) != 2 {
		t.Errorf("got %d tables, want 2", len(s.Tables))
	}

	s, err = Introspect(ctx, "sqlite://"+path, Options{ExcludeTables: []string{"users"}})
	if err != nil {
		t.Fatal(err)
	}
	if s.FindTable("users") != nil {
		t.Error("users should be excluded")
	}
	for _, rel := range s.Relationships {
		if rel.ToTable == "users" {
			t.Errorf("relationship to excluded table kept: %+v", rel)
		}
	}
}
