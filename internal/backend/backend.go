// Package backend defines the provider surface the app consumes: account
// sessions, a document database and a realtime change feed. The appwrite
// package talks to a hosted backend; the local package implements the same
// contract on an embedded SQLite file.
package backend

import (
	"context"
	"encoding/json"

	"github.com/julianstephens/habitual/internal/models"
)

// CurrentSession names the session bound to the calling client.
const CurrentSession = "current"

// Account manages users and sessions.
type Account interface {
	Create(ctx context.Context, userID, email, password string) (models.Identity, error)
	CreateEmailPasswordSession(ctx context.Context, email, password string) error
	Get(ctx context.Context) (models.Identity, error)
	DeleteSession(ctx context.Context, sessionID string) error
}

// DocumentList is the result of a list call. Documents stay raw so callers
// decode them into their own model types.
type DocumentList struct {
	Total     int               `json:"total"`
	Documents []json.RawMessage `json:"documents"`
}

// Databases is the document database.
type Databases interface {
	CreateDocument(ctx context.Context, databaseID, collectionID, documentID string, data any) (json.RawMessage, error)
	ListDocuments(ctx context.Context, databaseID, collectionID string, queries ...Query) (DocumentList, error)
	UpdateDocument(ctx context.Context, databaseID, collectionID, documentID string, data any) (json.RawMessage, error)
	DeleteDocument(ctx context.Context, databaseID, collectionID, documentID string) error
}

// Handler receives realtime events. It is called from the realtime client's
// goroutine and must not block for long.
type Handler func(Event)

// Realtime is the change feed.
type Realtime interface {
	// Subscribe delivers events for any of channels to handler until the
	// returned function is called or ctx is done.
	Subscribe(ctx context.Context, channels []string, handler Handler) (unsubscribe func(), err error)
}

// Provider bundles the three services of one backend.
type Provider interface {
	Account() Account
	Databases() Databases
	Realtime() Realtime
	Close() error
}

// SessionStore persists the session secret between runs.
type SessionStore interface {
	Load() (string, error)
	Save(secret string) error
	Clear() error
}

// MemorySessionStore keeps the secret in memory only.
type MemorySessionStore struct {
	secret string
}

func (m *MemorySessionStore) Load() (string, error) { return m.secret, nil }

func (m *MemorySessionStore) Save(secret string) error {
	m.secret = secret
	return nil
}

func (m *MemorySessionStore) Clear() error {
	m.secret = ""
	return nil
}

// Decode unmarshals a raw document into T.
func Decode[T any](raw json.RawMessage) (T, error) {
	var v T
	err := json.Unmarshal(raw, &v)
	return v, err
}

// DecodeList unmarshals every document of list into T.
func DecodeList[T any](list DocumentList) ([]T, error) {
	out := make([]T, 0, len(list.Documents))
	for _, raw := range list.Documents {
		v, err := Decode[T](raw)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
