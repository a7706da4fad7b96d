package keyring

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"

	"github.com/julianstephens/habitual/internal/constants"
)

var (
	// ErrNotFound is returned when no session is stored in the keyring
	ErrNotFound = errors.New("session not found in keyring")
	// ErrKeyringUnavailable is returned when the OS keyring is not available
	ErrKeyringUnavailable = errors.New("OS keyring is not available")
)

func user(account string) string {
	return constants.KeyringUserPrefix + account
}

// GetSession retrieves the session secret stored for account.
// Returns ErrNotFound if nothing is stored.
func GetSession(account string) (string, error) {
	secret, err := keyring.Get(constants.AppName, user(account))
	if err != nil {
		if err == keyring.ErrNotFound {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("%w: %v", ErrKeyringUnavailable, err)
	}
	return secret, nil
}

// SetSession stores the session secret for account.
func SetSession(account, secret string) error {
	if secret == "" {
		return errors.New("session secret cannot be empty")
	}
	if err := keyring.Set(constants.AppName, user(account), secret); err != nil {
		return fmt.Errorf("failed to store session in keyring: %w", err)
	}
	return nil
}

// DeleteSession removes the session secret for account.
func DeleteSession(account string) error {
	err := keyring.Delete(constants.AppName, user(account))
	if err != nil {
		if err == keyring.ErrNotFound {
			return ErrNotFound
		}
		return fmt.Errorf("failed to delete session from keyring: %w", err)
	}
	return nil
}

// IsAvailable checks if the OS keyring is available on the current system.
// This is a best-effort check and may not catch all failure scenarios.
func IsAvailable() bool {
	_, err := keyring.Get(constants.AppName, "test-availability")
	return err == nil || err == keyring.ErrNotFound
}

// SessionStore persists one provider's session secret in the OS keyring.
type SessionStore struct {
	account string
}

// NewSessionStore returns a store keyed by account, typically
// "<backend>-<project>" so that providers never share a secret.
func NewSessionStore(account string) *SessionStore {
	return &SessionStore{account: account}
}

// Load returns the stored secret, or "" when none is stored.
func (s *SessionStore) Load() (string, error) {
	secret, err := GetSession(s.account)
	if errors.Is(err, ErrNotFound) {
		return "", nil
	}
	return secret, err
}

// Save stores secret, or clears the entry when secret is empty.
func (s *SessionStore) Save(secret string) error {
	if secret == "" {
		return s.Clear()
	}
	return SetSession(s.account, secret)
}

// Clear removes the stored secret. Clearing an empty entry is not an error.
func (s *SessionStore) Clear() error {
	if err := DeleteSession(s.account); err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	return nil
}

// Account returns the keyring account this store writes to.
func (s *SessionStore) Account() string {
	return s.account
}
