// Package session owns the authenticated identity for the lifetime of the
// process. It is created once and handed to everything that needs to know
// who is signed in.
package session

import (
	"context"
	"sync"

	"github.com/julianstephens/habitual/internal/backend"
	"github.com/julianstephens/habitual/internal/constants"
	apperrors "github.com/julianstephens/habitual/internal/errors"
	"github.com/julianstephens/habitual/internal/id"
	"github.com/julianstephens/habitual/internal/logger"
	"github.com/julianstephens/habitual/internal/models"
	"github.com/julianstephens/habitual/internal/validation"
)

// State is a snapshot of the manager.
type State struct {
	Identity models.Identity
	Loading  bool
}

// HasIdentity reports whether someone is signed in.
func (s State) HasIdentity() bool {
	return !s.Identity.IsZero()
}

// Manager holds the current identity.
type Manager struct {
	account backend.Account

	mu        sync.RWMutex
	identity  models.Identity
	loading   bool
	observers map[int]func(State)
	nextID    int
}

// NewManager returns a manager in the loading state. Call Refresh once at
// startup to resolve it.
func NewManager(account backend.Account) *Manager {
	return &Manager{
		account:   account,
		loading:   true,
		observers: make(map[int]func(State)),
	}
}

// State returns the current snapshot.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return State{Identity: m.identity, Loading: m.loading}
}

// Identity returns the signed-in user, if any.
func (m *Manager) Identity() (models.Identity, bool) {
	s := m.State()
	return s.Identity, s.HasIdentity()
}

// Loading reports whether the startup refresh has not finished yet.
func (m *Manager) Loading() bool {
	return m.State().Loading
}

// OnChange registers fn to run after every identity or loading transition.
// The returned function removes it.
func (m *Manager) OnChange(fn func(State)) func() {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.observers[id] = fn
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.observers, id)
		m.mu.Unlock()
	}
}

func (m *Manager) set(identity models.Identity, loading bool) {
	m.mu.Lock()
	m.identity = identity
	m.loading = loading
	state := State{Identity: identity, Loading: loading}
	observers := make([]func(State), 0, len(m.observers))
	for _, fn := range m.observers {
		observers = append(observers, fn)
	}
	m.mu.Unlock()

	for _, fn := range observers {
		fn(state)
	}
}

// Refresh asks the backend who is signed in. Any failure, including having
// no session, leaves the manager signed out. Loading is always cleared.
func (m *Manager) Refresh(ctx context.Context) {
	identity, err := m.account.Get(ctx)
	if err != nil {
		if !backend.IsUnauthorized(err) {
			logger.Warn("Failed to refresh identity", "error", err)
		}
		identity = models.Identity{}
	}
	m.set(identity, false)
}

// SignUp creates an account and signs into it.
func (m *Manager) SignUp(ctx context.Context, email, password string) error {
	if err := validation.ValidateCredentials(validation.Credentials{Email: email, Password: password}); err != nil {
		return err
	}

	userID, err := id.Unique()
	if err != nil {
		return apperrors.Wrap("sign up", err, constants.SignUpFallbackMessage)
	}
	if _, err := m.account.Create(ctx, userID, email, password); err != nil {
		logger.Debug("Sign up failed", "error", err)
		return apperrors.Wrap("sign up", err, constants.SignUpFallbackMessage)
	}
	if err := m.signIn(ctx, email, password); err != nil {
		return apperrors.Wrap("sign up", err, constants.SignUpFallbackMessage)
	}
	return nil
}

// SignIn opens a session and loads the identity behind it.
func (m *Manager) SignIn(ctx context.Context, email, password string) error {
	if err := validation.ValidateCredentials(validation.Credentials{Email: email, Password: password}); err != nil {
		return err
	}
	if err := m.signIn(ctx, email, password); err != nil {
		return apperrors.Wrap("sign in", err, constants.SignInFallbackMessage)
	}
	return nil
}

func (m *Manager) signIn(ctx context.Context, email, password string) error {
	if err := m.account.CreateEmailPasswordSession(ctx, email, password); err != nil {
		logger.Debug("Sign in failed", "error", err)
		return err
	}
	m.Refresh(ctx)
	return nil
}

// LogOut ends the session. The identity is cleared even when the backend
// call fails so the user is never stuck signed in.
func (m *Manager) LogOut(ctx context.Context) {
	if err := m.account.DeleteSession(ctx, backend.CurrentSession); err != nil {
		logger.Warn("Failed to delete session", "error", err)
	}
	m.set(models.Identity{}, false)
}
