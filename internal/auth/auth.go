// Package auth manages the stored access credential for the serpmine
// backend and its refresh flow.
package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// RefreshTimeout bounds one token refresh round trip.
const RefreshTimeout = 30 * time.Second

// Sentinel errors callers distinguish for the interactive recovery path.
var (
	ErrNotAuthenticated = errors.New("not logged in")
	ErrSessionExpired   = errors.New("session expired")
)

// User represents the authenticated user.
type User struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Username string `json:"username"`
}

// Session represents an authentication session.
type Session struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresAt    int64  `json:"expires_at"`
	User         User   `json:"user"`
}

// Credentials stores the complete auth credentials.
type Credentials struct {
	Session   Session `json:"session"`
	CreatedAt int64   `json:"created_at"`
}

// Manager handles credential storage, expiry checks and refresh.
type Manager struct {
	configDir   string
	refreshURL  string
	httpClient  *http.Client
	credentials *Credentials
	mu          sync.RWMutex
}

// NewManager creates an auth manager reading ~/.config/serpmine.
func NewManager(refreshURL string) (*Manager, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get home directory: %w", err)
	}

	configDir := filepath.Join(homeDir, ".config", "serpmine")
	if err := os.MkdirAll(configDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	m := &Manager{
		configDir:  configDir,
		refreshURL: refreshURL,
		httpClient: &http.Client{Timeout: RefreshTimeout},
	}

	// Try to load existing credentials
	_ = m.loadCredentials()

	return m, nil
}

// IsAuthenticated checks whether a non-expired session is present.
func (m *Manager) IsAuthenticated() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.credentials == nil {
		return false
	}

	// Expired with a 5 minute buffer still counts as expired here; the
	// refresh path decides whether it is recoverable.
	expiresAt := time.Unix(m.credentials.Session.ExpiresAt, 0)
	return time.Now().Before(expiresAt.Add(-5 * time.Minute))
}

// GetUser returns the current user if credentials are present.
func (m *Manager) GetUser() *User {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.credentials == nil {
		return nil
	}
	return &m.credentials.Session.User
}

// Token returns the current access token. A missing session is
// ErrNotAuthenticated; an expired one is ErrSessionExpired so the caller
// can run the refresh path and retry.
func (m *Manager) Token() (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.credentials == nil {
		return "", ErrNotAuthenticated
	}
	expiresAt := time.Unix(m.credentials.Session.ExpiresAt, 0)
	if !time.Now().Before(expiresAt) {
		return "", ErrSessionExpired
	}
	return m.credentials.Session.AccessToken, nil
}

// Refresh exchanges the refresh token for a new session and persists it.
func (m *Manager) Refresh(ctx context.Context) error {
	m.mu.RLock()
	if m.credentials == nil {
		m.mu.RUnlock()
		return ErrNotAuthenticated
	}
	refreshToken := m.credentials.Session.RefreshToken
	m.mu.RUnlock()

	payload, err := json.Marshal(map[string]string{"refresh_token": refreshToken})
	if err != nil {
		return fmt.Errorf("encode refresh request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.refreshURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build refresh request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("refresh request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read refresh response: %w", err)
	}
	if resp.StatusCode == http.StatusUnauthorized {
		return ErrSessionExpired
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("refresh failed (%d): %s", resp.StatusCode, string(body))
	}

	var session Session
	if err := json.Unmarshal(body, &session); err != nil {
		return fmt.Errorf("decode refresh response: %w", err)
	}

	return m.SetSession(session)
}

// SetSession stores a session and persists it to disk.
func (m *Manager) SetSession(session Session) error {
	m.mu.Lock()
	m.credentials = &Credentials{
		Session:   session,
		CreatedAt: time.Now().Unix(),
	}
	m.mu.Unlock()

	if err := m.saveCredentials(); err != nil {
		return fmt.Errorf("failed to save credentials: %w", err)
	}
	return nil
}

// Logout clears the current session.
func (m *Manager) Logout() error {
	m.mu.Lock()
	m.credentials = nil
	m.mu.Unlock()

	if err := os.Remove(m.credentialsPath()); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove credentials: %w", err)
	}
	return nil
}

// credentialsPath returns the path to the credentials file.
func (m *Manager) credentialsPath() string {
	return filepath.Join(m.configDir, "credentials.json")
}

// loadCredentials reads the credentials file if present.
func (m *Manager) loadCredentials() error {
	data, err := os.ReadFile(m.credentialsPath())
	if err != nil {
		return err
	}

	var creds Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return fmt.Errorf("decode credentials: %w", err)
	}

	m.mu.Lock()
	m.credentials = &creds
	m.mu.Unlock()
	return nil
}

// saveCredentials writes the credentials file with owner-only permissions.
func (m *Manager) saveCredentials() error {
	m.mu.RLock()
	creds := m.credentials
	m.mu.RUnlock()

	if creds == nil {
		return nil
	}
	data, err := json.MarshalIndent(creds, "", "  ")
	if err != nil {
		return fmt.Errorf("encode credentials: %w", err)
	}
	return os.WriteFile(m.credentialsPath(), data, 0600)
}
