package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/julianstephens/habitual/internal/backend"
	"github.com/julianstephens/habitual/internal/backend/appwrite"
	"github.com/julianstephens/habitual/internal/backend/local"
	"github.com/julianstephens/habitual/internal/config"
	"github.com/julianstephens/habitual/internal/constants"
	"github.com/julianstephens/habitual/internal/habits"
	"github.com/julianstephens/habitual/internal/keyring"
	"github.com/julianstephens/habitual/internal/logger"
	"github.com/julianstephens/habitual/internal/models"
	"github.com/julianstephens/habitual/internal/session"
)

// ErrNotLoggedIn is returned by commands that need a signed-in user.
var ErrNotLoggedIn = errors.New("not logged in (run 'habitual login' first)")

type Context struct {
	Ctx      context.Context
	Config   *config.Config
	Provider backend.Provider
	Sessions *session.Manager
	Habits   *habits.Service
	// Keyring is where the session secret is persisted. Nil when the provider
	// keeps it in memory.
	Keyring *keyring.SessionStore
	Out     io.Writer
}

// New wires the session manager and habit service around provider.
func New(ctx context.Context, cfg *config.Config, provider backend.Provider) *Context {
	sessions := session.NewManager(provider.Account())
	return &Context{
		Ctx:      ctx,
		Config:   cfg,
		Provider: provider,
		Sessions: sessions,
		Habits: habits.NewService(provider, sessions, habits.Collections{
			DatabaseID:    cfg.DatabaseID,
			HabitsID:      cfg.HabitsCollectionID,
			CompletionsID: cfg.CompletionsCollectionID,
		}),
		Out: os.Stdout,
	}
}

// Open builds the provider cfg selects, with its session kept in the OS
// keyring.
func Open(ctx context.Context, cfg *config.Config) (*Context, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	store := keyring.NewSessionStore(cfg.SessionAccount())
	var sessions backend.SessionStore = store
	if !keyring.IsAvailable() {
		logger.Warn("OS keyring is not available, the session will not outlive this process")
		sessions = &backend.MemorySessionStore{}
		store = nil
	}

	var provider backend.Provider
	switch cfg.Backend {
	case constants.BackendAppwrite:
		p, err := appwrite.New(appwrite.Options{
			Endpoint:  cfg.Endpoint,
			ProjectID: cfg.ProjectID,
			Sessions:  sessions,
		})
		if err != nil {
			return nil, err
		}
		provider = p
	case constants.BackendLocal:
		p, err := local.Open(ctx, cfg.LocalPath, local.Options{Sessions: sessions})
		if err != nil {
			return nil, err
		}
		provider = p
	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}

	c := New(ctx, cfg, provider)
	c.Keyring = store
	return c, nil
}

// Close releases the provider.
func (c *Context) Close() error {
	c.Habits.Stop()
	return c.Provider.Close()
}

// RequireIdentity restores the stored session and returns the signed-in user.
func (c *Context) RequireIdentity() (models.Identity, error) {
	c.Sessions.Refresh(c.Ctx)
	identity, ok := c.Sessions.Identity()
	if !ok {
		return models.Identity{}, ErrNotLoggedIn
	}
	return identity, nil
}

// LoadHabits requires an identity and fetches the user's habits and today's
// completions once.
func (c *Context) LoadHabits() error {
	if _, err := c.RequireIdentity(); err != nil {
		return err
	}
	return c.Habits.Load(c.Ctx)
}

func (c *Context) printf(format string, args ...any) {
	fmt.Fprintf(c.Out, format, args...)
}

func (c *Context) println(args ...any) {
	fmt.Fprintln(c.Out, args...)
}
