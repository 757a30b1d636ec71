package middleware

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/sandeepkv93/secure-login-portal/internal/security"
)

func newCSRFHandlerForTest(t *testing.T, seen *string) http.Handler {
	t.Helper()
	cookies := security.NewCookieManager("", false, "lax")
	return CSRF(cookies)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if seen != nil {
			*seen = CSRFToken(r)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
}

func postForm(values url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func TestCSRFIssuesTokenOnSafeRequest(t *testing.T) {
	var seen string
	h := newCSRFHandlerForTest(t, &seen)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/Login", nil))

	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rr.Code)
	}
	var issued *http.Cookie
	for _, c := range rr.Result().Cookies() {
		if c.Name == CSRFCookieName {
			issued = c
		}
	}
	if issued == nil || issued.Value == "" {
		t.Fatal("expected csrf cookie to be issued")
	}
	if !issued.HttpOnly {
		t.Fatal("csrf cookie must be HttpOnly; forms carry the token in a hidden field")
	}
	if seen != issued.Value {
		t.Fatalf("handler token %q does not match cookie %q", seen, issued.Value)
	}
}

func TestCSRFReusesExistingCookie(t *testing.T) {
	var seen string
	h := newCSRFHandlerForTest(t, &seen)

	req := httptest.NewRequest(http.MethodGet, "/Login", nil)
	req.AddCookie(&http.Cookie{Name: CSRFCookieName, Value: "existing"})
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if len(rr.Result().Cookies()) != 0 {
		t.Fatal("expected no new cookie when one is present")
	}
	if seen != "existing" {
		t.Fatalf("expected existing token, got %q", seen)
	}
}

func TestCSRFRejectsMissingCookie(t *testing.T) {
	h := newCSRFHandlerForTest(t, nil)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, postForm(url.Values{CSRFFormField: {"token"}}))

	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403 without csrf cookie, got %d", rr.Code)
	}
}

func TestCSRFRejectsMismatch(t *testing.T) {
	h := newCSRFHandlerForTest(t, nil)

	req := postForm(url.Values{CSRFFormField: {"form-value"}})
	req.AddCookie(&http.Cookie{Name: CSRFCookieName, Value: "cookie-value"})
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for csrf mismatch, got %d", rr.Code)
	}
}

func TestCSRFAcceptsMatchingFormFieldOrHeader(t *testing.T) {
	h := newCSRFHandlerForTest(t, nil)

	req := postForm(url.Values{CSRFFormField: {"match"}, "Email": {"a@b.dk"}})
	req.AddCookie(&http.Cookie{Name: CSRFCookieName, Value: "match"})
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204 for matching form token, got %d", rr.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/logout", nil)
	req.AddCookie(&http.Cookie{Name: CSRFCookieName, Value: "match"})
	req.Header.Set(CSRFHeader, "match")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204 for matching header token, got %d", rr.Code)
	}
}

func TestCSRFPathGroup(t *testing.T) {
	cases := map[string]string{
		"/":                    "root",
		"/login":               "login",
		"/Login":               "login",
		"/logout":              "logout",
		"/Dashboard/Dashboard": "dashboard",
	}
	for input, expected := range cases {
		if got := csrfPathGroup(input); got != expected {
			t.Fatalf("csrfPathGroup(%q)=%q want %q", input, got, expected)
		}
	}
}
