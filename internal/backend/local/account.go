package local

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/julianstephens/habitual/internal/backend"
	"github.com/julianstephens/habitual/internal/models"
)

// Account is the local account service.
type Account struct {
	p *Provider
}

// passwordKey digests the password so inputs past bcrypt's 72 byte limit
// still count in full.
func passwordKey(password string) []byte {
	sum := sha256.Sum256([]byte(password))
	return []byte(base64.StdEncoding.EncodeToString(sum[:]))
}

func (a *Account) Create(ctx context.Context, userID, email, password string) (models.Identity, error) {
	if userID == "" || userID == "unique()" {
		userID = uuid.NewString()
	}
	if _, err := mail.ParseAddress(email); err != nil || !strings.Contains(email, "@") {
		return models.Identity{}, backend.NewError(400, backend.TypeArgumentInvalid, "Invalid `email` param: Value must be a valid email address")
	}
	if len(password) < 6 || len(password) > 256 {
		return models.Identity{}, backend.NewError(400, backend.TypeArgumentInvalid, "Invalid `password` param: Password must be between 6 and 256 characters long.")
	}

	hash, err := bcrypt.GenerateFromPassword(passwordKey(password), a.p.cost)
	if err != nil {
		return models.Identity{}, fmt.Errorf("failed to hash password: %w", err)
	}

	tx, err := a.p.db.BeginTx(ctx, nil)
	if err != nil {
		return models.Identity{}, err
	}
	defer tx.Rollback()

	var exists int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE id = ? OR email = ?`, userID, email).Scan(&exists); err != nil {
		return models.Identity{}, fmt.Errorf("failed to check user: %w", err)
	}
	if exists > 0 {
		return models.Identity{}, backend.NewError(409, backend.TypeUserAlreadyExists, "A user with the same id, email, or phone already exists in this project.")
	}

	now := a.p.now()
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO users (id, email, password_hash, created_at) VALUES (?, ?, ?, ?)`,
		userID, email, string(hash), stamp(now),
	); err != nil {
		return models.Identity{}, fmt.Errorf("failed to create user: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return models.Identity{}, err
	}

	return models.Identity{ID: userID, Email: email, Registration: models.NewDatetime(now)}, nil
}

func (a *Account) CreateEmailPasswordSession(ctx context.Context, email, password string) error {
	if _, err := a.p.currentUser(ctx); err == nil {
		return backend.NewError(401, backend.TypeSessionAlreadyExists, "Creation of a session is prohibited when a session is active.")
	}

	var userID, hash string
	err := a.p.db.QueryRowContext(ctx, `SELECT id, password_hash FROM users WHERE email = ?`, email).Scan(&userID, &hash)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && bcrypt.CompareHashAndPassword([]byte(hash), passwordKey(password)) != nil) {
		return backend.NewError(401, backend.TypeUserInvalidCredentials, "Invalid credentials. Please check the email and password.")
	}
	if err != nil {
		return fmt.Errorf("failed to look up user: %w", err)
	}

	now := a.p.now()
	secret := strings.ReplaceAll(uuid.NewString()+uuid.NewString(), "-", "")
	if _, err := a.p.db.ExecContext(ctx,
		`INSERT INTO sessions (id, secret, user_id, created_at, expires_at) VALUES (?, ?, ?, ?, ?)`,
		uuid.NewString(), secret, userID, stamp(now), stamp(now.Add(a.p.ttl)),
	); err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	a.p.setSession(secret)
	return nil
}

func (a *Account) Get(ctx context.Context) (models.Identity, error) {
	userID, err := a.p.currentUser(ctx)
	if err != nil {
		return models.Identity{}, err
	}

	var identity models.Identity
	var created string
	err = a.p.db.QueryRowContext(ctx, `SELECT id, email, name, created_at FROM users WHERE id = ?`, userID).
		Scan(&identity.ID, &identity.Email, &identity.Name, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Identity{}, errUnauthorized()
	}
	if err != nil {
		return models.Identity{}, fmt.Errorf("failed to load user: %w", err)
	}
	if t, err := models.ParseDatetime(created); err == nil {
		identity.Registration = models.NewDatetime(t)
	}
	return identity, nil
}

func (a *Account) DeleteSession(ctx context.Context, sessionID string) error {
	userID, err := a.p.currentUser(ctx)
	if err != nil {
		a.p.setSession("")
		return err
	}

	if sessionID == "" || sessionID == backend.CurrentSession {
		if _, err := a.p.db.ExecContext(ctx, `DELETE FROM sessions WHERE secret = ?`, a.p.session()); err != nil {
			return fmt.Errorf("failed to delete session: %w", err)
		}
		a.p.setSession("")
		return nil
	}

	res, err := a.p.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ? AND user_id = ?`, sessionID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return backend.NewError(404, "user_session_not_found", "The current user session could not be found.")
	}
	return nil
}
