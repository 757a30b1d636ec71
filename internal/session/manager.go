package session

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/sandeepkv93/secure-login-portal/internal/observability"
	"github.com/sandeepkv93/secure-login-portal/internal/security"
)

type ManagerConfig struct {
	CookieName   string
	TTL          time.Duration
	StoreTimeout time.Duration
}

type Manager struct {
	store   Store
	cookies *security.CookieManager
	cfg     ManagerConfig
	now     func() time.Time
}

func NewManager(store Store, cookies *security.CookieManager, cfg ManagerConfig) *Manager {
	if cfg.CookieName == "" {
		cfg.CookieName = "login_session"
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 20 * time.Minute
	}
	if cfg.StoreTimeout <= 0 {
		cfg.StoreTimeout = 5 * time.Second
	}
	return &Manager{store: store, cookies: cookies, cfg: cfg, now: time.Now}
}

func (m *Manager) CookieName() string { return m.cfg.CookieName }

// Load returns the session referenced by the request cookie. Missing, expired
// or tampered sessions yield a fresh empty session; only store failures are
// returned as errors.
func (m *Manager) Load(r *http.Request) (*Session, error) {
	token := security.GetCookie(r, m.cfg.CookieName)
	if token == "" {
		return New(), nil
	}

	ctx, cancel := context.WithTimeout(r.Context(), m.cfg.StoreTimeout)
	defer cancel()

	sess, err := m.store.Load(ctx, token)
	switch {
	case err == nil:
		m.record(ctx, "load", "success")
		return sess, nil
	case errors.Is(err, ErrNotFound):
		m.record(ctx, "load", "not_found")
		return New(), nil
	case errors.Is(err, ErrExpired):
		m.record(ctx, "load", "expired")
		return New(), nil
	case errors.Is(err, ErrInvalidToken):
		m.record(ctx, "load", "invalid")
		return New(), nil
	default:
		m.record(ctx, "load", "error")
		return nil, err
	}
}

// Renew assigns a fresh id, dropping the stored entry under the old one.
// Called on privilege change to prevent session fixation.
func (m *Manager) Renew(ctx context.Context, s *Session) error {
	if !s.isNew {
		ctx, cancel := context.WithTimeout(ctx, m.cfg.StoreTimeout)
		defer cancel()
		if err := m.store.Delete(ctx, s); err != nil {
			m.record(ctx, "delete", "error")
			return err
		}
		m.record(ctx, "delete", "success")
	}
	s.ID = newID()
	s.isNew = true
	return nil
}

// Commit persists s with a sliding expiry and writes the session cookie.
func (m *Manager) Commit(ctx context.Context, w http.ResponseWriter, s *Session) error {
	ctx, cancel := context.WithTimeout(ctx, m.cfg.StoreTimeout)
	defer cancel()

	s.ExpiresAt = m.now().Add(m.cfg.TTL).UTC()
	token, err := m.store.Save(ctx, s)
	if err != nil {
		m.record(ctx, "save", "error")
		return err
	}
	m.record(ctx, "save", "success")
	s.isNew = false
	m.cookies.SetSessionCookie(w, m.cfg.CookieName, token, m.cfg.TTL)
	return nil
}

// Destroy removes the stored session and clears the client cookie. The cookie
// is cleared even when the store delete fails.
func (m *Manager) Destroy(ctx context.Context, w http.ResponseWriter, s *Session) error {
	m.cookies.ClearCookie(w, m.cfg.CookieName, true)
	clear(s.Values)
	if s.isNew {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, m.cfg.StoreTimeout)
	defer cancel()
	if err := m.store.Delete(ctx, s); err != nil {
		m.record(ctx, "delete", "error")
		return err
	}
	m.record(ctx, "delete", "success")
	s.isNew = true
	return nil
}

func (m *Manager) record(ctx context.Context, op, status string) {
	observability.RecordSessionStoreOperation(ctx, m.store.Name(), op, status)
}
