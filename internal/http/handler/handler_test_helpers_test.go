package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/sandeepkv93/secure-login-portal/internal/domain"
	"github.com/sandeepkv93/secure-login-portal/internal/http/middleware"
	"github.com/sandeepkv93/secure-login-portal/internal/http/view"
	"github.com/sandeepkv93/secure-login-portal/internal/security"
	"github.com/sandeepkv93/secure-login-portal/internal/session"
)

type stubCredentialService struct {
	findFn   func(email string) (*domain.User, error)
	verifyFn func(plain, hash string) bool
	recordFn func(userID uint) error

	findCalls   int
	burnCalls   int
	recordCalls int
}

func (s *stubCredentialService) FindUserByEmail(_ context.Context, email string) (*domain.User, error) {
	s.findCalls++
	return s.findFn(strings.TrimSpace(email))
}

func (s *stubCredentialService) VerifyPassword(_ context.Context, plain, hash string) bool {
	return s.verifyFn(plain, hash)
}

func (s *stubCredentialService) BurnVerification(context.Context, string) { s.burnCalls++ }

func (s *stubCredentialService) RecordLogin(_ context.Context, userID uint) error {
	s.recordCalls++
	if s.recordFn == nil {
		return nil
	}
	return s.recordFn(userID)
}

func (s *stubCredentialService) CreateUser(context.Context, string, string) (uint, error) {
	return 0, errors.New("not implemented")
}

func (s *stubCredentialService) HashPassword(string) (string, error) {
	return "", errors.New("not implemented")
}

type stubUserService struct {
	getFn     func(id uint) (*domain.User, error)
	profileFn func(userID uint) (*domain.Profile, error)
}

func (s *stubUserService) GetByID(_ context.Context, id uint) (*domain.User, error) {
	return s.getFn(id)
}

func (s *stubUserService) GetProfile(_ context.Context, userID uint) (*domain.Profile, error) {
	if s.profileFn == nil {
		return nil, nil
	}
	return s.profileFn(userID)
}

// brokenSaveStore loads and deletes like a memory store but cannot persist.
type brokenSaveStore struct{ *session.MemoryStore }

func (brokenSaveStore) Save(context.Context, *session.Session) (string, error) {
	return "", errors.New("session backend down")
}

func newSessionManagerForTest(store session.Store) *session.Manager {
	return session.NewManager(store, security.NewCookieManager("", false, "lax"), session.ManagerConfig{
		CookieName: "login_session",
		TTL:        20 * time.Minute,
	})
}

func newRendererForTest(t *testing.T) *view.Renderer {
	t.Helper()
	r, err := view.NewRenderer()
	if err != nil {
		t.Fatalf("new renderer: %v", err)
	}
	return r
}

func loginRequest(email, password string) *http.Request {
	form := url.Values{"Email": {email}, "Password": {password}}
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.RemoteAddr = "192.0.2.10:5555"
	return req.WithContext(middleware.WithCSRFToken(req.Context(), "csrf-test"))
}

func findCookie(rr *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rr.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// authenticatedRequest commits a session for userID and returns a request
// carrying its cookie.
func authenticatedRequest(t *testing.T, mgr *session.Manager, method, target string, userID int64) *http.Request {
	t.Helper()
	sess := session.New()
	sess.Set(session.KeyUserID, userID)
	sess.Set(session.KeyUserEmail, "user@example.com")
	rr := httptest.NewRecorder()
	if err := mgr.Commit(context.Background(), rr, sess); err != nil {
		t.Fatalf("commit session: %v", err)
	}
	req := httptest.NewRequest(method, target, nil)
	req.AddCookie(findCookie(rr, mgr.CookieName()))
	return req.WithContext(middleware.WithCSRFToken(req.Context(), "csrf-test"))
}
