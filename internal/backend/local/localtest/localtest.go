// Package localtest opens throwaway local providers for tests.
package localtest

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/julianstephens/habitual/internal/backend/local"
	"github.com/julianstephens/habitual/internal/models"
)

// Password is the password SignedIn registers with.
const Password = "password1"

// Open returns a fresh provider in a temp dir, closed when the test ends.
// now may be nil.
func Open(t testing.TB, now func() time.Time) *local.Provider {
	t.Helper()
	p, err := local.Open(context.Background(), filepath.Join(t.TempDir(), "habitual.db"), local.Options{
		Now:          now,
		BcryptCost:   bcrypt.MinCost,
		PollInterval: 10 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("failed to open local provider: %v", err)
	}
	t.Cleanup(func() { _ = p.Close() })
	return p
}

// SignedIn registers email and opens a session for it.
func SignedIn(t testing.TB, p *local.Provider, email string) models.Identity {
	t.Helper()
	ctx := context.Background()
	if _, err := p.Account().Create(ctx, "", email, Password); err != nil {
		t.Fatalf("failed to create account: %v", err)
	}
	if err := p.Account().CreateEmailPasswordSession(ctx, email, Password); err != nil {
		t.Fatalf("failed to sign in: %v", err)
	}
	identity, err := p.Account().Get(ctx)
	if err != nil {
		t.Fatalf("failed to load identity: %v", err)
	}
	return identity
}
