package handler

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sandeepkv93/secure-login-portal/internal/domain"
	"github.com/sandeepkv93/secure-login-portal/internal/http/view"
	"github.com/sandeepkv93/secure-login-portal/internal/service"
	"github.com/sandeepkv93/secure-login-portal/internal/session"
)

func TestDashboardRedirectsWithoutSession(t *testing.T) {
	users := &stubUserService{getFn: func(uint) (*domain.User, error) {
		t.Fatal("user lookup must not happen without a session")
		return nil, nil
	}}
	h := NewDashboardHandler(users, newSessionManagerForTest(session.NewMemoryStore()), newRendererForTest(t))

	rr := httptest.NewRecorder()
	h.Dashboard(rr, httptest.NewRequest(http.MethodGet, DashboardPath, nil))

	if rr.Code != http.StatusFound || rr.Header().Get("Location") != LoginPath {
		t.Fatalf("expected 302 to %s, got %d %q", LoginPath, rr.Code, rr.Header().Get("Location"))
	}
}

func TestDashboardRendersUserAndProfile(t *testing.T) {
	mgr := newSessionManagerForTest(session.NewMemoryStore())
	lastLogin := time.Date(2025, 5, 6, 7, 8, 0, 0, time.UTC)
	mobile := "22334455"
	users := &stubUserService{
		getFn: func(id uint) (*domain.User, error) {
			return &domain.User{ID: id, Email: "jens@example.dk", IsActive: true, LastLogin: &lastLogin}, nil
		},
		profileFn: func(userID uint) (*domain.Profile, error) {
			return &domain.Profile{UserID: userID, Name: "Jens Hansen", Mobile: &mobile}, nil
		},
	}
	h := NewDashboardHandler(users, mgr, newRendererForTest(t))

	rr := httptest.NewRecorder()
	h.Dashboard(rr, authenticatedRequest(t, mgr, http.MethodGet, DashboardPath, 42))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	body := rr.Body.String()
	for _, want := range []string{"jens@example.dk", "Jens Hansen", "22334455", "06-05-2025 07:08", `value="csrf-test"`} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected %q in dashboard:\n%s", want, body)
		}
	}
}

func TestDashboardWithoutProfileRendersEmptySection(t *testing.T) {
	mgr := newSessionManagerForTest(session.NewMemoryStore())
	users := &stubUserService{getFn: func(id uint) (*domain.User, error) {
		return &domain.User{ID: id, Email: "jens@example.dk", IsActive: true}, nil
	}}
	h := NewDashboardHandler(users, mgr, newRendererForTest(t))

	rr := httptest.NewRecorder()
	h.Dashboard(rr, authenticatedRequest(t, mgr, http.MethodGet, DashboardPath, 42))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "Ingen profiloplysninger.") {
		t.Fatalf("expected empty profile section:\n%s", rr.Body.String())
	}
}

func TestDashboardStaleSessionIsDestroyed(t *testing.T) {
	for name, getFn := range map[string]func(uint) (*domain.User, error){
		"missing user":  func(uint) (*domain.User, error) { return nil, service.ErrUserNotFound },
		"inactive user": func(id uint) (*domain.User, error) { return &domain.User{ID: id, IsActive: false}, nil },
	} {
		t.Run(name, func(t *testing.T) {
			store := session.NewMemoryStore()
			mgr := newSessionManagerForTest(store)
			h := NewDashboardHandler(&stubUserService{getFn: getFn}, mgr, newRendererForTest(t))

			rr := httptest.NewRecorder()
			h.Dashboard(rr, authenticatedRequest(t, mgr, http.MethodGet, DashboardPath, 99))

			if rr.Code != http.StatusFound || rr.Header().Get("Location") != LoginPath {
				t.Fatalf("expected 302 to %s, got %d", LoginPath, rr.Code)
			}
			if store.Len() != 0 {
				t.Fatal("expected stale session to be destroyed")
			}
			if c := findCookie(rr, "login_session"); c == nil || c.MaxAge >= 0 {
				t.Fatal("expected session cookie to be cleared")
			}
		})
	}
}

func TestDashboardStoreFailureRendersGenericError(t *testing.T) {
	mgr := newSessionManagerForTest(session.NewMemoryStore())
	users := &stubUserService{
		getFn: func(id uint) (*domain.User, error) {
			return &domain.User{ID: id, Email: "jens@example.dk", IsActive: true}, nil
		},
		profileFn: func(uint) (*domain.Profile, error) { return nil, service.ErrStoreUnavailable },
	}
	h := NewDashboardHandler(users, mgr, newRendererForTest(t))

	rr := httptest.NewRecorder()
	h.Dashboard(rr, authenticatedRequest(t, mgr, http.MethodGet, DashboardPath, 42))

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), MsgGenericError) {
		t.Fatalf("expected generic error page:\n%s", rr.Body.String())
	}
}

func TestDashboardRenderFailureReturnsPlain500(t *testing.T) {
	for name, getFn := range map[string]func(uint) (*domain.User, error){
		"dashboard page": func(id uint) (*domain.User, error) {
			return &domain.User{ID: id, Email: "jens@example.dk", IsActive: true}, nil
		},
		"error page": func(uint) (*domain.User, error) { return nil, errors.New("db down") },
	} {
		mgr := newSessionManagerForTest(session.NewMemoryStore())
		h := NewDashboardHandler(&stubUserService{getFn: getFn}, mgr, &view.Renderer{})

		rr := httptest.NewRecorder()
		h.Dashboard(rr, authenticatedRequest(t, mgr, http.MethodGet, DashboardPath, 42))

		if rr.Code != http.StatusInternalServerError {
			t.Fatalf("%s: expected 500, got %d", name, rr.Code)
		}
		if !strings.Contains(rr.Body.String(), http.StatusText(http.StatusInternalServerError)) {
			t.Fatalf("%s: expected status text body, got %q", name, rr.Body.String())
		}
	}
}
