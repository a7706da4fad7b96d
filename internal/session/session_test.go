package session

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/julianstephens/habitual/internal/backend"
	"github.com/julianstephens/habitual/internal/backend/local/localtest"
	apperrors "github.com/julianstephens/habitual/internal/errors"
	"github.com/julianstephens/habitual/internal/models"
	"github.com/julianstephens/habitual/internal/validation"
)

// fakeAccount counts calls and fails on demand.
type fakeAccount struct {
	mu        sync.Mutex
	calls     int
	createErr error
	loginErr  error
	deleteErr error
	identity  models.Identity
}

func (f *fakeAccount) Create(ctx context.Context, userID, email, password string) (models.Identity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return models.Identity{ID: userID, Email: email}, f.createErr
}

func (f *fakeAccount) CreateEmailPasswordSession(ctx context.Context, email, password string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.loginErr == nil {
		f.identity = models.Identity{ID: "u1", Email: email}
	}
	return f.loginErr
}

func (f *fakeAccount) Get(ctx context.Context) (models.Identity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.identity.IsZero() {
		return models.Identity{}, backend.NewError(401, backend.TypeUnauthorized, "missing scope")
	}
	return f.identity, nil
}

func (f *fakeAccount) DeleteSession(ctx context.Context, sessionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.deleteErr
}

func TestNewManagerStartsLoading(t *testing.T) {
	m := NewManager(&fakeAccount{})
	assert.True(t, m.Loading())
	_, ok := m.Identity()
	assert.False(t, ok)
}

func TestRefreshWithoutSession(t *testing.T) {
	m := NewManager(&fakeAccount{})

	var states []State
	m.OnChange(func(s State) { states = append(states, s) })

	m.Refresh(context.Background())

	assert.False(t, m.Loading())
	_, ok := m.Identity()
	assert.False(t, ok)
	require.Len(t, states, 1)
	assert.False(t, states[0].Loading)
}

func TestSignUpThenSignInYieldsIdentity(t *testing.T) {
	ctx := context.Background()
	p := localtest.Open(t, nil)
	m := NewManager(p.Account())
	m.Refresh(ctx)

	var last State
	m.OnChange(func(s State) { last = s })

	require.NoError(t, m.SignUp(ctx, "reader@example.com", "secret"))

	identity, ok := m.Identity()
	require.True(t, ok)
	assert.Equal(t, "reader@example.com", identity.Email)
	assert.True(t, last.HasIdentity())

	m.LogOut(ctx)
	_, ok = m.Identity()
	assert.False(t, ok)

	require.NoError(t, m.SignIn(ctx, "reader@example.com", "secret"))
	again, ok := m.Identity()
	require.True(t, ok)
	assert.Equal(t, identity.ID, again.ID)
}

func TestSignUpRejectsShortPasswordLocally(t *testing.T) {
	account := &fakeAccount{}
	m := NewManager(account)

	err := m.SignUp(context.Background(), "reader@example.com", "abc")
	require.Error(t, err)

	var fe *validation.FieldErrors
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "password must be at least 6 characters", apperrors.Message(err, ""))
	assert.Zero(t, account.calls, "no remote call is made")
}

func TestSignInSurfacesProviderMessage(t *testing.T) {
	ctx := context.Background()
	p := localtest.Open(t, nil)
	m := NewManager(p.Account())

	err := m.SignIn(ctx, "nobody@example.com", "secret")
	require.Error(t, err)
	assert.Equal(t, "Invalid credentials. Please check the email and password.", apperrors.Message(err, ""))
	assert.True(t, backend.IsUnauthorized(err), "the provider error stays reachable")

	require.NoError(t, m.SignUp(ctx, "taken@example.com", "secret"))
	m.LogOut(ctx)

	err = m.SignUp(ctx, "taken@example.com", "secret")
	require.Error(t, err)
	assert.Equal(t, "A user with the same id, email, or phone already exists in this project.", apperrors.Message(err, ""))
}

func TestFallbackMessages(t *testing.T) {
	ctx := context.Background()

	m := NewManager(&fakeAccount{createErr: errors.New("dial tcp: connection refused")})
	err := m.SignUp(ctx, "reader@example.com", "secret")
	assert.Equal(t, "Something went wrong while signing up", apperrors.Message(err, ""))

	m = NewManager(&fakeAccount{loginErr: errors.New("tls: handshake failure")})
	err = m.SignIn(ctx, "reader@example.com", "secret")
	assert.Equal(t, "Something went wrong while logging in", apperrors.Message(err, ""))
}

func TestLogOutClearsIdentityWhenRemoteFails(t *testing.T) {
	ctx := context.Background()
	account := &fakeAccount{}
	m := NewManager(account)
	require.NoError(t, m.SignIn(ctx, "reader@example.com", "secret"))
	_, ok := m.Identity()
	require.True(t, ok)

	account.deleteErr = errors.New("network down")
	m.LogOut(ctx)

	_, ok = m.Identity()
	assert.False(t, ok)
}

func TestOnChangeRemove(t *testing.T) {
	m := NewManager(&fakeAccount{})
	calls := 0
	remove := m.OnChange(func(State) { calls++ })
	m.Refresh(context.Background())
	remove()
	m.Refresh(context.Background())
	assert.Equal(t, 1, calls)
}
