// Package local is a single-file SQLite stand-in for the hosted backend. It
// keeps the same wire semantics: query filters, event names and error codes.
package local

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"
	_ "modernc.org/sqlite"

	"github.com/julianstephens/habitual/internal/backend"
	"github.com/julianstephens/habitual/internal/backup"
	"github.com/julianstephens/habitual/internal/constants"
	"github.com/julianstephens/habitual/internal/logger"
	"github.com/julianstephens/habitual/internal/migration"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Options tunes a local provider.
type Options struct {
	// Sessions persists the session secret across runs. Nil keeps it in memory.
	Sessions backend.SessionStore
	// Now is the clock; defaults to time.Now.
	Now func() time.Time
	// BcryptCost defaults to bcrypt.DefaultCost.
	BcryptCost   int
	SessionTTL   time.Duration
	PollInterval time.Duration
}

// Provider is the local backend.
type Provider struct {
	db       *sql.DB
	path     string
	sessions backend.SessionStore
	now      func() time.Time
	cost     int
	ttl      time.Duration

	mu     sync.RWMutex
	secret string

	account   *Account
	databases *Databases
	hub       *Hub
}

// Open opens (creating if needed) the database at path and migrates it.
func Open(ctx context.Context, path string, opts Options) (*Provider, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dsn := path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection serializes writers within the process; busy_timeout
	// covers other processes sharing the file.
	db.SetMaxOpenConns(1)

	runner := migration.NewRunner(db, migrationsFS, "migrations")
	if err := snapshotBeforeMigrating(ctx, runner, path); err != nil {
		db.Close()
		return nil, err
	}
	if _, err := runner.Apply(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	p := &Provider{
		db:       db,
		path:     path,
		sessions: opts.Sessions,
		now:      opts.Now,
		cost:     opts.BcryptCost,
		ttl:      opts.SessionTTL,
	}
	if p.sessions == nil {
		p.sessions = &backend.MemorySessionStore{}
	}
	if p.now == nil {
		p.now = time.Now
	}
	if p.cost == 0 {
		p.cost = bcrypt.DefaultCost
	}
	if p.ttl == 0 {
		p.ttl = constants.LocalSessionTTL
	}

	secret, err := p.sessions.Load()
	if err != nil {
		logger.Warn("Failed to restore session", "error", err)
	}
	p.secret = secret

	interval := opts.PollInterval
	if interval == 0 {
		interval = constants.LocalPollInterval
	}
	p.account = &Account{p: p}
	p.databases = &Databases{p: p}
	p.hub = newHub(p, interval)
	return p, nil
}

// snapshotBeforeMigrating backs up an existing database that is about to be
// migrated. Fresh databases have nothing worth keeping.
func snapshotBeforeMigrating(ctx context.Context, runner *migration.Runner, path string) error {
	st, err := runner.Status(ctx)
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	if st.Current == 0 || len(st.Pending) == 0 {
		return nil
	}
	if _, err := backup.NewManager(path).Create(ctx); err != nil {
		return fmt.Errorf("failed to back up database before migrating: %w", err)
	}
	return nil
}

func (p *Provider) Account() backend.Account     { return p.account }
func (p *Provider) Databases() backend.Databases { return p.databases }
func (p *Provider) Realtime() backend.Realtime   { return p.hub }

// Path returns the database file.
func (p *Provider) Path() string { return p.path }

// SchemaStatus reports the migration state of the open database.
func (p *Provider) SchemaStatus(ctx context.Context) (migration.Status, error) {
	return migration.NewRunner(p.db, migrationsFS, "migrations").Status(ctx)
}

func (p *Provider) Close() error {
	p.hub.Close()
	return p.db.Close()
}

func (p *Provider) session() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.secret
}

func (p *Provider) setSession(secret string) {
	p.mu.Lock()
	p.secret = secret
	p.mu.Unlock()
	if err := p.sessions.Save(secret); err != nil {
		logger.Warn("Failed to persist session", "error", err)
	}
}

func errUnauthorized() error {
	return backend.NewError(401, backend.TypeUnauthorized, "User (role: guests) missing scope (account)")
}

// currentUser resolves the session secret to a user id.
func (p *Provider) currentUser(ctx context.Context) (string, error) {
	secret := p.session()
	if secret == "" {
		return "", errUnauthorized()
	}
	var userID string
	err := p.db.QueryRowContext(ctx,
		`SELECT user_id FROM sessions WHERE secret = ? AND expires_at > ?`,
		secret, stamp(p.now()),
	).Scan(&userID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", errUnauthorized()
	}
	if err != nil {
		return "", fmt.Errorf("failed to look up session: %w", err)
	}
	return userID, nil
}

// stamp formats t as a sortable column value.
func stamp(t time.Time) string {
	return t.UTC().Format(constants.DatetimeFormat)
}

// metaStamp formats t the way the hosted backend renders system attributes.
func metaStamp(s string) string {
	t, err := time.Parse(constants.DatetimeFormat, s)
	if err != nil {
		return s
	}
	return t.UTC().Format("2006-01-02T15:04:05.000-07:00")
}
