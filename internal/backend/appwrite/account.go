package appwrite

import (
	"context"
	"net/http"
	"net/url"

	"github.com/julianstephens/habitual/internal/backend"
	"github.com/julianstephens/habitual/internal/models"
)

// Account is the account service.
type Account struct {
	client *Client
}

func (a *Account) Create(ctx context.Context, userID, email, password string) (models.Identity, error) {
	body := map[string]string{
		"userId":   userID,
		"email":    email,
		"password": password,
	}
	var identity models.Identity
	err := a.client.call(ctx, http.MethodPost, "/account", nil, body, &identity)
	return identity, err
}

func (a *Account) CreateEmailPasswordSession(ctx context.Context, email, password string) error {
	body := map[string]string{
		"email":    email,
		"password": password,
	}
	var session struct {
		Secret string `json:"secret"`
	}
	if err := a.client.call(ctx, http.MethodPost, "/account/sessions/email", nil, body, &session); err != nil {
		return err
	}
	// Server keys get the secret in the body; browsers and clients get a cookie.
	if session.Secret != "" {
		a.client.setSession(session.Secret)
	}
	return nil
}

func (a *Account) Get(ctx context.Context) (models.Identity, error) {
	var identity models.Identity
	err := a.client.call(ctx, http.MethodGet, "/account", nil, nil, &identity)
	return identity, err
}

// DeleteSession ends the session. The stored secret is dropped even when
// the backend already considers it expired.
func (a *Account) DeleteSession(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		sessionID = backend.CurrentSession
	}
	err := a.client.call(ctx, http.MethodDelete, "/account/sessions/"+url.PathEscape(sessionID), nil, nil, nil)
	if err == nil || backend.IsUnauthorized(err) {
		a.client.setSession("")
	}
	return err
}
