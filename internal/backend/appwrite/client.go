// Package appwrite is the hosted provider: the account and databases REST
// services plus the realtime websocket.
package appwrite

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/julianstephens/habitual/internal/backend"
	"github.com/julianstephens/habitual/internal/logger"
)

// ResponseFormat pins the response schema version the client decodes.
const ResponseFormat = "1.5.0"

// Options configures a Client.
type Options struct {
	Endpoint   string
	ProjectID  string
	HTTPClient *http.Client
	// Sessions persists the session secret across runs. Nil keeps it in memory.
	Sessions backend.SessionStore
}

// Client performs authenticated calls against one project.
type Client struct {
	endpoint string
	project  string
	http     *http.Client
	sessions backend.SessionStore

	mu      sync.RWMutex
	session string
}

// NewClient builds a client and restores any stored session secret.
func NewClient(opts Options) (*Client, error) {
	if opts.Endpoint == "" {
		return nil, fmt.Errorf("appwrite endpoint is required")
	}
	if opts.ProjectID == "" {
		return nil, fmt.Errorf("appwrite project id is required")
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	sessions := opts.Sessions
	if sessions == nil {
		sessions = &backend.MemorySessionStore{}
	}

	secret, err := sessions.Load()
	if err != nil {
		logger.Warn("Failed to restore session", "error", err)
		secret = ""
	}

	return &Client{
		endpoint: strings.TrimRight(opts.Endpoint, "/"),
		project:  opts.ProjectID,
		http:     httpClient,
		sessions: sessions,
		session:  secret,
	}, nil
}

// cookieName is the session cookie the backend sets for this project.
func (c *Client) cookieName() string {
	return "a_session_" + strings.ToLower(c.project)
}

// Session returns the current session secret, if any.
func (c *Client) Session() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session
}

func (c *Client) setSession(secret string) {
	c.mu.Lock()
	changed := c.session != secret
	c.session = secret
	c.mu.Unlock()

	if !changed {
		return
	}
	if err := c.sessions.Save(secret); err != nil {
		logger.Warn("Failed to persist session", "error", err)
	}
}

func (c *Client) call(ctx context.Context, method, path string, query url.Values, body, out any) error {
	u := c.endpoint + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Appwrite-Project", c.project)
	req.Header.Set("X-Appwrite-Response-Format", ResponseFormat)
	if secret := c.Session(); secret != "" {
		req.AddCookie(&http.Cookie{Name: c.cookieName(), Value: secret})
	}

	logger.Debug("Backend request", "method", method, "path", path)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	c.captureSession(resp)

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return decodeError(resp.StatusCode, data)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// captureSession stores a session handed back either as a cookie or, when
// cookies are blocked, in the fallback header.
func (c *Client) captureSession(resp *http.Response) {
	for _, cookie := range resp.Cookies() {
		if cookie.Name != c.cookieName() {
			continue
		}
		if cookie.MaxAge < 0 || cookie.Value == "" || cookie.Value == "deleted" {
			c.setSession("")
		} else {
			c.setSession(cookie.Value)
		}
		return
	}

	fallback := resp.Header.Get("X-Fallback-Cookies")
	if fallback == "" {
		return
	}
	var cookies map[string]string
	if err := json.Unmarshal([]byte(fallback), &cookies); err != nil {
		logger.Debug("Ignoring malformed fallback cookies", "error", err)
		return
	}
	if secret, ok := cookies[c.cookieName()]; ok {
		c.setSession(secret)
	}
}

func decodeError(status int, data []byte) error {
	var e backend.Error
	if err := json.Unmarshal(data, &e); err != nil || e.Message == "" {
		return backend.NewError(status, "", http.StatusText(status))
	}
	if e.Code == 0 {
		e.Code = status
	}
	return &e
}
