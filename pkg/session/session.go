// Package session persists the authenticated user between CLI runs and
// exposes login, registration, and logout on top of the API client.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"bookworm/pkg/client"
	"bookworm/pkg/domain"
)

const (
	keyToken = "token"
	keyUser  = "user"
)

// ErrNoEntry is returned by Storage.Get when the key has no stored value.
var ErrNoEntry = errors.New("session: entry not found")

// Storage is a small key/value store for session state. Implementations
// must treat missing keys as ErrNoEntry, not as failures.
type Storage interface {
	Get(key string) (string, error)
	Set(key, value string) error
	Delete(key string) error
}

// MemoryStorage keeps session state in memory, for tests.
type MemoryStorage struct {
	mu      sync.Mutex
	entries map[string]string
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{entries: map[string]string{}}
}

func (m *MemoryStorage) Get(key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.entries[key]
	if !ok {
		return "", ErrNoEntry
	}
	return v, nil
}

func (m *MemoryStorage) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = value
	return nil
}

func (m *MemoryStorage) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}

// Manager holds the current session and keeps it in sync with storage.
type Manager struct {
	api     *client.Client
	storage Storage
	logger  *slog.Logger

	mu    sync.Mutex
	token string
	user  *domain.User
}

// NewManager builds a session manager. logger may be nil.
func NewManager(api *client.Client, storage Storage, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{api: api, storage: storage, logger: logger}
}

// Token returns the current session token, or "" when signed out.
func (m *Manager) Token() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token
}

// User returns the current user, or nil when signed out.
func (m *Manager) User() *domain.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.user == nil {
		return nil
	}
	u := *m.user
	return &u
}

// CheckAuth restores the session from storage. A missing or corrupt
// stored session leaves the manager signed out; corruption is logged
// rather than surfaced.
func (m *Manager) CheckAuth() {
	m.mu.Lock()
	defer m.mu.Unlock()

	token, err := m.storage.Get(keyToken)
	if err != nil {
		if !errors.Is(err, ErrNoEntry) {
			m.logger.Warn("session restore failed", "err", err)
		}
		m.token, m.user = "", nil
		return
	}
	raw, err := m.storage.Get(keyUser)
	if err != nil {
		if !errors.Is(err, ErrNoEntry) {
			m.logger.Warn("session restore failed", "err", err)
		}
		m.token, m.user = "", nil
		return
	}

	var user domain.User
	if err := json.Unmarshal([]byte(raw), &user); err != nil || strings.TrimSpace(token) == "" {
		m.logger.Warn("stored session unreadable, signing out", "err", err)
		m.token, m.user = "", nil
		return
	}
	m.token, m.user = token, &user
}

// Register creates an account and signs in as the new user.
func (m *Manager) Register(ctx context.Context, username, email, password string) error {
	resp, err := m.api.Register(ctx, username, email, password)
	if err != nil {
		return err
	}
	return m.adopt(resp)
}

// Login signs in with existing credentials.
func (m *Manager) Login(ctx context.Context, email, password string) error {
	resp, err := m.api.Login(ctx, email, password)
	if err != nil {
		return err
	}
	return m.adopt(resp)
}

// adopt persists the new session, then updates in-memory state. Token
// and user always transition together.
func (m *Manager) adopt(resp client.AuthResponse) error {
	raw, err := json.Marshal(resp.User)
	if err != nil {
		return err
	}
	if err := m.storage.Set(keyToken, resp.Token); err != nil {
		return err
	}
	if err := m.storage.Set(keyUser, string(raw)); err != nil {
		return err
	}
	m.mu.Lock()
	user := resp.User
	m.token, m.user = resp.Token, &user
	m.mu.Unlock()
	return nil
}

// Logout clears the local session unconditionally and revokes the token
// server-side on a best-effort basis.
func (m *Manager) Logout(ctx context.Context) {
	m.mu.Lock()
	token := m.token
	m.token, m.user = "", nil
	m.mu.Unlock()

	if err := m.storage.Delete(keyToken); err != nil {
		m.logger.Warn("clearing stored token failed", "err", err)
	}
	if err := m.storage.Delete(keyUser); err != nil {
		m.logger.Warn("clearing stored user failed", "err", err)
	}

	if token == "" {
		return
	}
	if err := m.api.Logout(ctx, token); err != nil {
		m.logger.Warn("server-side logout failed", "err", err)
	}
}
