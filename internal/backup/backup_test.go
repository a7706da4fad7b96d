package backup

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"
	"time"

	_ "modernc.org/sqlite"
)

func setupTestDB(t *testing.T) string {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "habitual.db")

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	defer db.Close()

	if _, err := db.Exec(`CREATE TABLE habits (id TEXT PRIMARY KEY, title TEXT)`); err != nil {
		t.Fatalf("failed to create test table: %v", err)
	}
	if _, err := db.Exec(`INSERT INTO habits (id, title) VALUES ('h1', 'Read'), ('h2', 'Walk')`); err != nil {
		t.Fatalf("failed to insert test data: %v", err)
	}
	return dbPath
}

func countHabits(t *testing.T, path string) int {
	t.Helper()
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("failed to open %s: %v", path, err)
	}
	defer db.Close()
	var n int
	if err := db.QueryRow("SELECT COUNT(*) FROM habits").Scan(&n); err != nil {
		t.Fatalf("failed to count habits: %v", err)
	}
	return n
}

// steppingClock returns a clock that advances one minute per call.
func steppingClock() func() time.Time {
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.Local)
	return func() time.Time {
		now = now.Add(time.Minute)
		return now
	}
}

func TestCreate(t *testing.T) {
	dbPath := setupTestDB(t)
	mgr := NewManager(dbPath)

	info, err := mgr.Create(context.Background())
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	if filepath.Dir(info.Path) != filepath.Join(filepath.Dir(dbPath), DirName) {
		t.Errorf("backup written to %s, want %s", info.Path, mgr.Dir())
	}
	if info.Size == 0 {
		t.Error("backup should not be empty")
	}
	if got := countHabits(t, info.Path); got != 2 {
		t.Errorf("backup has %d habits, want 2", got)
	}
}

func TestCreateMissingDatabase(t *testing.T) {
	mgr := NewManager(filepath.Join(t.TempDir(), "missing.db"))
	if _, err := mgr.Create(context.Background()); err == nil {
		t.Error("Create() on a missing database should fail")
	}
}

func TestRotation(t *testing.T) {
	mgr := NewManager(setupTestDB(t))
	mgr.Now = steppingClock()

	for i := 0; i < MaxBackups+3; i++ {
		if _, err := mgr.Create(context.Background()); err != nil {
			t.Fatalf("Create() #%d failed: %v", i, err)
		}
	}

	list, err := mgr.List()
	if err != nil {
		t.Fatalf("List() failed: %v", err)
	}
	if len(list) != MaxBackups {
		t.Errorf("kept %d backups, want %d", len(list), MaxBackups)
	}
	for i := 1; i < len(list); i++ {
		if list[i].Timestamp.After(list[i-1].Timestamp) {
			t.Errorf("List() not sorted newest first at %d", i)
		}
	}
}

func TestListIgnoresOtherFiles(t *testing.T) {
	mgr := NewManager(setupTestDB(t))
	if _, err := mgr.Create(context.Background()); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"notes.txt", FilePrefix + "garbage" + FileSuffix} {
		if err := os.WriteFile(filepath.Join(mgr.Dir(), name), []byte("x"), 0600); err != nil {
			t.Fatal(err)
		}
	}

	list, err := mgr.List()
	if err != nil {
		t.Fatalf("List() failed: %v", err)
	}
	if len(list) != 1 {
		t.Errorf("List() = %d entries, want 1", len(list))
	}
}

func TestListWithoutDirectory(t *testing.T) {
	mgr := NewManager(filepath.Join(t.TempDir(), "habitual.db"))
	list, err := mgr.List()
	if err != nil || len(list) != 0 {
		t.Errorf("List() = %v, %v; want empty", list, err)
	}
}

func TestUniqueFilenames(t *testing.T) {
	mgr := NewManager(setupTestDB(t))
	fixed := time.Date(2024, 5, 1, 9, 0, 0, 0, time.Local)
	mgr.Now = func() time.Time { return fixed }

	seen := map[string]bool{}
	for i := 0; i < 3; i++ {
		info, err := mgr.Create(context.Background())
		if err != nil {
			t.Fatalf("Create() failed: %v", err)
		}
		if seen[info.Name()] {
			t.Errorf("duplicate backup name %s", info.Name())
		}
		seen[info.Name()] = true
	}

	list, err := mgr.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 3 {
		t.Errorf("List() = %d entries, want 3 (counter suffixes must parse)", len(list))
	}
}

func TestRestore(t *testing.T) {
	dbPath := setupTestDB(t)
	mgr := NewManager(dbPath)
	mgr.Now = steppingClock()
	ctx := context.Background()

	snapshot, err := mgr.Create(ctx)
	if err != nil {
		t.Fatal(err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Exec(`DELETE FROM habits`); err != nil {
		t.Fatal(err)
	}
	db.Close()
	if got := countHabits(t, dbPath); got != 0 {
		t.Fatalf("setup: %d habits left", got)
	}

	previous, err := mgr.Restore(ctx, snapshot.Path)
	if err != nil {
		t.Fatalf("Restore() failed: %v", err)
	}
	if got := countHabits(t, dbPath); got != 2 {
		t.Errorf("after restore: %d habits, want 2", got)
	}

	// The pre-restore snapshot holds the emptied database
	if previous.Path == "" {
		t.Fatal("Restore() should snapshot the current database first")
	}
	if got := countHabits(t, previous.Path); got != 0 {
		t.Errorf("pre-restore snapshot has %d habits, want 0", got)
	}
}

func TestRestoreInvalidFile(t *testing.T) {
	dbPath := setupTestDB(t)
	mgr := NewManager(dbPath)

	bogus := filepath.Join(t.TempDir(), "bogus.db")
	if err := os.WriteFile(bogus, []byte("not a database at all, just text padding it out"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := mgr.Restore(context.Background(), bogus); err == nil {
		t.Error("Restore() of a non-database should fail")
	}
	if _, err := mgr.Restore(context.Background(), filepath.Join(t.TempDir(), "missing.db")); err == nil {
		t.Error("Restore() of a missing file should fail")
	}
	if got := countHabits(t, dbPath); got != 2 {
		t.Errorf("database changed after failed restore: %d habits", got)
	}
}

func TestResolve(t *testing.T) {
	mgr := NewManager(setupTestDB(t))
	info, err := mgr.Create(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	for _, ref := range []string{info.Path, info.Name()} {
		got, err := mgr.Resolve(ref)
		if err != nil || got != info.Path {
			t.Errorf("Resolve(%q) = %q, %v", ref, got, err)
		}
	}
	if _, err := mgr.Resolve("habitual-19990101-000000.db"); err == nil {
		t.Error("Resolve() of an unknown backup should fail")
	}
}
