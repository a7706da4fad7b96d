// Package backup snapshots the local database file and restores snapshots.
package backup

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/julianstephens/habitual/internal/logger"
)

const (
	// MaxBackups is how many snapshots rotation keeps.
	MaxBackups = 14
	// DirName is the snapshot directory, next to the database.
	DirName = "backups"
	// FilePrefix and FileSuffix frame every snapshot name.
	FilePrefix = "habitual-"
	FileSuffix = ".db"

	timestampFormat = "20060102-150405"
)

// ErrNoDatabase is returned when there is nothing to snapshot yet.
var ErrNoDatabase = errors.New("database does not exist")

// Info describes one snapshot.
type Info struct {
	Path      string
	Timestamp time.Time
	Size      int64
}

// Name returns the snapshot's file name.
func (i Info) Name() string {
	return filepath.Base(i.Path)
}

// Manager handles snapshots of one database file.
type Manager struct {
	dbPath string
	dir    string
	// Now stamps new snapshots; defaults to time.Now.
	Now func() time.Time
}

func NewManager(dbPath string) *Manager {
	return &Manager{
		dbPath: dbPath,
		dir:    filepath.Join(filepath.Dir(dbPath), DirName),
		Now:    time.Now,
	}
}

// Dir returns the snapshot directory.
func (m *Manager) Dir() string {
	return m.dir
}

// Create snapshots the database and rotates old snapshots.
func (m *Manager) Create(ctx context.Context) (Info, error) {
	info, err := m.create(ctx)
	if err != nil {
		return Info{}, err
	}
	if err := m.Rotate(); err != nil {
		logger.Warn("Failed to rotate old backups", "error", err)
	}
	return info, nil
}

func (m *Manager) create(ctx context.Context) (Info, error) {
	if _, err := os.Stat(m.dbPath); os.IsNotExist(err) {
		return Info{}, fmt.Errorf("%w: %s", ErrNoDatabase, m.dbPath)
	}
	if err := os.MkdirAll(m.dir, 0700); err != nil {
		return Info{}, fmt.Errorf("failed to create backup directory: %w", err)
	}

	stamp := m.Now()
	path := filepath.Join(m.dir, FilePrefix+stamp.Format(timestampFormat)+FileSuffix)
	for n := 1; fileExists(path); n++ {
		if n > 100 {
			return Info{}, errors.New("failed to generate unique backup filename")
		}
		path = filepath.Join(m.dir, fmt.Sprintf("%s%s-%d%s", FilePrefix, stamp.Format(timestampFormat), n, FileSuffix))
	}

	if err := vacuumInto(ctx, m.dbPath, path); err != nil {
		return Info{}, fmt.Errorf("failed to backup database: %w", err)
	}

	st, err := os.Stat(path)
	if err != nil {
		return Info{}, err
	}
	logger.Info("Created database backup", "path", path)
	return Info{Path: path, Timestamp: stamp.Truncate(time.Second), Size: st.Size()}, nil
}

// vacuumInto writes a consistent copy of src to dst. VACUUM INTO reads
// through the WAL, so the copy includes commits not yet checkpointed.
func vacuumInto(ctx context.Context, src, dst string) error {
	db, err := sql.Open("sqlite", src+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return fmt.Errorf("failed to open source database: %w", err)
	}
	defer db.Close()

	if err := verify(ctx, db); err != nil {
		return fmt.Errorf("source database appears to be corrupted: %w", err)
	}
	if _, err := db.ExecContext(ctx, "VACUUM INTO ?", dst); err != nil {
		return err
	}
	return nil
}

func verify(ctx context.Context, db *sql.DB) error {
	var count int
	return db.QueryRowContext(ctx, "SELECT COUNT(*) FROM sqlite_master").Scan(&count)
}

// List returns the snapshots, newest first. Files that do not look like
// snapshots are ignored.
func (m *Manager) List() ([]Info, error) {
	entries, err := os.ReadDir(m.dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read backup directory: %w", err)
	}

	var out []Info
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, FilePrefix) || !strings.HasSuffix(name, FileSuffix) {
			continue
		}
		stamp, ok := parseStamp(strings.TrimSuffix(strings.TrimPrefix(name, FilePrefix), FileSuffix))
		if !ok {
			continue
		}
		st, err := entry.Info()
		if err != nil {
			continue
		}
		out = append(out, Info{Path: filepath.Join(m.dir, name), Timestamp: stamp, Size: st.Size()})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Path > out[j].Path
		}
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out, nil
}

// parseStamp accepts "YYYYMMDD-HHMMSS" with an optional "-N" counter.
func parseStamp(s string) (time.Time, bool) {
	if len(s) > len(timestampFormat) && s[len(timestampFormat)] == '-' {
		s = s[:len(timestampFormat)]
	}
	t, err := time.ParseInLocation(timestampFormat, s, time.Local)
	return t, err == nil
}

// Rotate removes snapshots beyond MaxBackups, oldest first.
func (m *Manager) Rotate() error {
	list, err := m.List()
	if err != nil {
		return err
	}
	for i := MaxBackups; i < len(list); i++ {
		if err := os.Remove(list[i].Path); err != nil {
			return fmt.Errorf("failed to remove old backup %s: %w", list[i].Name(), err)
		}
	}
	return nil
}

// Resolve finds a snapshot by path or by file name inside Dir.
func (m *Manager) Resolve(ref string) (string, error) {
	if fileExists(ref) {
		return ref, nil
	}
	path := filepath.Join(m.dir, filepath.Base(ref))
	if fileExists(path) {
		return path, nil
	}
	return "", fmt.Errorf("backup %q not found", ref)
}

// Restore replaces the database with the snapshot at path. The database must
// be closed. The current file is snapshotted first and returned so the
// restore can be undone.
func (m *Manager) Restore(ctx context.Context, path string) (Info, error) {
	if err := verifyFile(ctx, path); err != nil {
		return Info{}, fmt.Errorf("backup file is corrupted or invalid: %w", err)
	}

	var previous Info
	if fileExists(m.dbPath) {
		var err error
		// No rotation here so the snapshot being restored is never removed
		if previous, err = m.create(ctx); err != nil {
			return Info{}, fmt.Errorf("failed to backup current database before restore: %w", err)
		}
	}

	tmp := m.dbPath + ".restore.tmp"
	if err := copyFile(path, tmp); err != nil {
		return Info{}, fmt.Errorf("failed to copy backup file: %w", err)
	}
	// Stale WAL pages would be replayed over the restored file
	for _, suffix := range []string{"-wal", "-shm"} {
		if err := os.Remove(m.dbPath + suffix); err != nil && !os.IsNotExist(err) {
			_ = os.Remove(tmp)
			return Info{}, fmt.Errorf("failed to remove %s: %w", suffix, err)
		}
	}
	if err := os.Rename(tmp, m.dbPath); err != nil {
		_ = os.Remove(tmp)
		return Info{}, fmt.Errorf("failed to restore database: %w", err)
	}

	logger.Info("Restored database backup", "from", path)
	return previous, nil
}

func verifyFile(ctx context.Context, path string) error {
	if !fileExists(path) {
		return fmt.Errorf("backup file does not exist: %s", path)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return err
	}
	defer db.Close()
	return verify(ctx, db)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0600)
	if err != nil {
		return err
	}
	if _, err := out.ReadFrom(in); err != nil {
		out.Close()
		return err
	}
	if err := out.Sync(); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
