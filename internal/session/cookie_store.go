package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// maxCookieTokenLen keeps the encoded session under common 4KB cookie limits.
const maxCookieTokenLen = 3800

var ErrSessionTooLarge = errors.New("session too large for cookie store")

type cookieClaims struct {
	Values map[string]any `json:"vals"`
	jwt.RegisteredClaims
}

// CookieStore keeps the whole session client-side in an HS256 signed token.
// Delete cannot revoke an issued token; it stays valid until expiry.
type CookieStore struct {
	secret []byte
	now    func() time.Time
}

func NewCookieStore(secret string) *CookieStore {
	return &CookieStore{secret: []byte(secret), now: time.Now}
}

func (s *CookieStore) Name() string { return "cookie" }

func (s *CookieStore) Load(_ context.Context, token string) (*Session, error) {
	if token == "" {
		return nil, ErrNotFound
	}
	claims := &cookieClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now), jwt.WithExpirationRequired())
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !parsed.Valid || claims.ID == "" {
		return nil, ErrInvalidToken
	}
	if claims.Values == nil {
		claims.Values = map[string]any{}
	}
	return &Session{ID: claims.ID, Values: claims.Values, ExpiresAt: claims.ExpiresAt.Time}, nil
}

func (s *CookieStore) Save(_ context.Context, sess *Session) (string, error) {
	claims := cookieClaims{
		Values: sess.Values,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        sess.ID,
			IssuedAt:  jwt.NewNumericDate(s.now()),
			ExpiresAt: jwt.NewNumericDate(sess.ExpiresAt),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign session: %w", err)
	}
	if len(token) > maxCookieTokenLen {
		return "", ErrSessionTooLarge
	}
	return token, nil
}

func (s *CookieStore) Delete(context.Context, *Session) error { return nil }
