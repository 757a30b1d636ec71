package security

import (
	"net/http"
	"strings"
	"time"
)

type CookieManager struct {
	Domain   string
	Secure   bool
	SameSite http.SameSite
}

func NewCookieManager(domain string, secure bool, sameSite string) *CookieManager {
	return &CookieManager{Domain: domain, Secure: secure, SameSite: parseSameSite(sameSite)}
}

func parseSameSite(v string) http.SameSite {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}

// SetSessionCookie writes the HttpOnly cookie carrying the session token.
func (m *CookieManager) SetSessionCookie(w http.ResponseWriter, name, token string, ttl time.Duration) {
	http.SetCookie(w, m.cookie(name, token, int(ttl.Seconds()), true))
}

// SetCSRFCookie writes the double-submit token. Pages receive the token in a
// hidden form field, so scripts never need the cookie.
func (m *CookieManager) SetCSRFCookie(w http.ResponseWriter, name, token string, ttl time.Duration) {
	http.SetCookie(w, m.cookie(name, token, int(ttl.Seconds()), true))
}

func (m *CookieManager) ClearCookie(w http.ResponseWriter, name string, httpOnly bool) {
	http.SetCookie(w, m.cookie(name, "", -1, httpOnly))
}

func (m *CookieManager) cookie(name, value string, maxAge int, httpOnly bool) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   m.Domain,
		MaxAge:   maxAge,
		HttpOnly: httpOnly,
		Secure:   m.Secure,
		SameSite: m.SameSite,
	}
}

func GetCookie(r *http.Request, name string) string {
	c, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return c.Value
}
