package middleware

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/sandeepkv93/secure-login-portal/internal/observability"
	"github.com/sandeepkv93/secure-login-portal/internal/security"
)

const (
	CSRFCookieName = "csrf_token"
	CSRFFormField  = "csrf_token"
	CSRFHeader     = "X-CSRF-Token"

	csrfTokenBytes = 32
	csrfCookieTTL  = 12 * time.Hour
)

type csrfTokenKey struct{}

// CSRFToken returns the token issued for this request, for embedding in forms.
func CSRFToken(r *http.Request) string {
	v, _ := r.Context().Value(csrfTokenKey{}).(string)
	return v
}

// WithCSRFToken stores token on ctx. Handlers under test use it to render forms
// without the middleware.
func WithCSRFToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, csrfTokenKey{}, token)
}

// CSRF implements the double-submit cookie pattern for HTML forms. Safe methods
// get a token cookie issued when absent; unsafe methods must echo the cookie
// value in the csrf_token form field or the X-CSRF-Token header.
func CSRF(cookies *security.CookieManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookieToken := security.GetCookie(r, CSRFCookieName)
			pathGroup := csrfPathGroup(r.URL.Path)

			switch strings.ToUpper(r.Method) {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				if cookieToken == "" {
					token, err := security.NewRandomString(csrfTokenBytes)
					if err != nil {
						slog.ErrorContext(r.Context(), "issue csrf token", "error", err)
						http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
						return
					}
					cookies.SetCSRFCookie(w, CSRFCookieName, token, csrfCookieTTL)
					cookieToken = token
				}
				next.ServeHTTP(w, r.WithContext(WithCSRFToken(r.Context(), cookieToken)))
				return
			}

			if cookieToken == "" {
				observability.RecordCSRFValidation(r.Context(), "missing_cookie", pathGroup)
				http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
				return
			}
			submitted := r.Header.Get(CSRFHeader)
			if submitted == "" {
				submitted = r.PostFormValue(CSRFFormField)
			}
			if submitted == "" || subtle.ConstantTimeCompare([]byte(submitted), []byte(cookieToken)) != 1 {
				observability.RecordCSRFValidation(r.Context(), "mismatch", pathGroup)
				http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
				return
			}
			observability.RecordCSRFValidation(r.Context(), "valid", pathGroup)
			next.ServeHTTP(w, r.WithContext(WithCSRFToken(r.Context(), cookieToken)))
		})
	}
}

func csrfPathGroup(rawPath string) string {
	p := strings.Trim(path.Clean(rawPath), "/")
	if p == "." || p == "" {
		return "root"
	}
	return strings.ToLower(strings.SplitN(p, "/", 2)[0])
}
