package migration

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"

	_ "modernc.org/sqlite"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func files(m map[string]string) fstest.MapFS {
	fsys := fstest.MapFS{}
	for name, content := range m {
		fsys["migrations/"+name] = &fstest.MapFile{Data: []byte(content)}
	}
	return fsys
}

func tableExists(t *testing.T, db *sql.DB, name string) bool {
	t.Helper()
	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", name).Scan(&count); err != nil {
		t.Fatalf("query failed: %v", err)
	}
	return count == 1
}

func TestCurrentVersion(t *testing.T) {
	ctx := context.Background()
	runner := NewRunner(setupTestDB(t), files(nil), "migrations")

	version, err := runner.CurrentVersion(ctx)
	if err != nil {
		t.Fatalf("CurrentVersion failed: %v", err)
	}
	if version != 0 {
		t.Errorf("expected version 0, got %d", version)
	}

	if err := runner.SetVersion(ctx, 5); err != nil {
		t.Fatalf("SetVersion failed: %v", err)
	}
	if version, _ := runner.CurrentVersion(ctx); version != 5 {
		t.Errorf("expected version 5, got %d", version)
	}
}

func TestMigrationsSorted(t *testing.T) {
	runner := NewRunner(setupTestDB(t), files(map[string]string{
		"003_another.sql": "CREATE TABLE test2 (id INTEGER);",
		"001_init.sql":    "CREATE TABLE test1 (id INTEGER);",
		"002_update.sql":  "ALTER TABLE test1 ADD COLUMN name TEXT;",
		"README.md":       "not a migration",
	}), "migrations")

	migrations, err := runner.Migrations()
	if err != nil {
		t.Fatalf("Migrations failed: %v", err)
	}

	want := []struct {
		version int
		name    string
	}{{1, "init"}, {2, "update"}, {3, "another"}}
	if len(migrations) != len(want) {
		t.Fatalf("expected %d migrations, got %d", len(want), len(migrations))
	}
	for i, w := range want {
		if migrations[i].Version != w.version || migrations[i].Name != w.name {
			t.Errorf("migration %d = (%d, %q), want (%d, %q)", i, migrations[i].Version, migrations[i].Name, w.version, w.name)
		}
	}
}

func TestMigrationsInvalidFiles(t *testing.T) {
	tests := []struct {
		name    string
		files   map[string]string
		wantErr string
	}{
		{name: "missing underscore", files: map[string]string{"001init.sql": "SELECT 1;"}, wantErr: "invalid migration filename"},
		{name: "zero version", files: map[string]string{"000_init.sql": "SELECT 1;"}, wantErr: "version must be at least 1"},
		{name: "non numeric", files: map[string]string{"abc_init.sql": "SELECT 1;"}, wantErr: "invalid version number"},
		{name: "duplicate", files: map[string]string{"001_init.sql": "SELECT 1;", "001_other.sql": "SELECT 1;"}, wantErr: "duplicate migration version"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := NewRunner(setupTestDB(t), files(tt.files), "migrations")
			_, err := runner.Migrations()
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Migrations() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestApplyFromScratch(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	runner := NewRunner(db, files(map[string]string{
		"001_users.sql": "CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT);",
		"002_posts.sql": "CREATE TABLE posts (id INTEGER PRIMARY KEY, user_id INTEGER);",
	}), "migrations")

	count, err := runner.Apply(ctx)
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if count != 2 {
		t.Errorf("expected 2 migrations applied, got %d", count)
	}
	if version, _ := runner.CurrentVersion(ctx); version != 2 {
		t.Errorf("expected version 2, got %d", version)
	}
	if !tableExists(t, db, "users") || !tableExists(t, db, "posts") {
		t.Error("tables were not created")
	}

	// Second run is a no-op
	count, err = runner.Apply(ctx)
	if err != nil {
		t.Fatalf("Apply (2nd) failed: %v", err)
	}
	if count != 0 {
		t.Errorf("expected 0 migrations on second run, got %d", count)
	}

	st, err := runner.Status(ctx)
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if !st.UpToDate() {
		t.Errorf("Status() = %+v, want up to date", st)
	}
}

func TestApplyIncremental(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	fsys := files(map[string]string{
		"001_users.sql": "CREATE TABLE users (id INTEGER PRIMARY KEY);",
	})
	runner := NewRunner(db, fsys, "migrations")

	if n, err := runner.Apply(ctx); err != nil || n != 1 {
		t.Fatalf("Apply (1st) = %d, %v", n, err)
	}

	fsys["migrations/002_posts.sql"] = &fstest.MapFile{Data: []byte("CREATE TABLE posts (id INTEGER PRIMARY KEY);")}

	st, err := runner.Status(ctx)
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if len(st.Pending) != 1 || st.Pending[0].Version != 2 {
		t.Errorf("Pending = %+v, want migration 2", st.Pending)
	}

	if n, err := runner.Apply(ctx); err != nil || n != 1 {
		t.Fatalf("Apply (2nd) = %d, %v", n, err)
	}
	if version, _ := runner.CurrentVersion(ctx); version != 2 {
		t.Errorf("expected version 2, got %d", version)
	}
}

func TestApplyRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	runner := NewRunner(db, files(map[string]string{
		"001_init.sql": `
			CREATE TABLE users (id INTEGER PRIMARY KEY);
			THIS IS INVALID SQL;
		`,
	}), "migrations")

	if _, err := runner.Apply(ctx); err == nil {
		t.Fatal("Apply should have failed with invalid SQL")
	}
	if version, _ := runner.CurrentVersion(ctx); version != 0 {
		t.Errorf("expected version 0 after failed migration, got %d", version)
	}
	if tableExists(t, db, "users") {
		t.Error("table should not exist after failed migration")
	}
}

func TestNewerDatabaseRejected(t *testing.T) {
	ctx := context.Background()
	runner := NewRunner(setupTestDB(t), files(map[string]string{
		"001_init.sql": "CREATE TABLE users (id INTEGER PRIMARY KEY);",
	}), "migrations")

	if err := runner.SetVersion(ctx, 10); err != nil {
		t.Fatalf("SetVersion failed: %v", err)
	}

	if _, err := runner.Status(ctx); !errors.Is(err, ErrNewerSchema) {
		t.Errorf("Status() error = %v, want ErrNewerSchema", err)
	}
	if _, err := runner.Apply(ctx); !errors.Is(err, ErrNewerSchema) {
		t.Errorf("Apply() error = %v, want ErrNewerSchema", err)
	}
}
