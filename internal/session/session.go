package session

import (
	"context"
	"encoding/json"
	"errors"
	"maps"
	"time"

	"github.com/google/uuid"
)

const (
	KeyUserID    = "UserId"
	KeyUserEmail = "UserEmail"
)

var (
	ErrNotFound     = errors.New("session not found")
	ErrExpired      = errors.New("session expired")
	ErrInvalidToken = errors.New("invalid session token")
)

// Session is the per-client key/value bag. It is loaded by Manager.Load and
// written back only by Manager.Commit.
type Session struct {
	ID        string
	Values    map[string]any
	ExpiresAt time.Time

	isNew bool
}

func New() *Session {
	return &Session{ID: newID(), Values: map[string]any{}, isNew: true}
}

func newID() string { return uuid.NewString() }

// IsNew reports whether the session was created for this request rather than
// loaded from a store.
func (s *Session) IsNew() bool { return s.isNew }

func (s *Session) Set(key string, value any) { s.Values[key] = value }

func (s *Session) Get(key string) (any, bool) {
	v, ok := s.Values[key]
	return v, ok
}

func (s *Session) Delete(key string) { delete(s.Values, key) }

func (s *Session) GetString(key string) (string, bool) {
	v, ok := s.Values[key].(string)
	return v, ok
}

// GetInt64 tolerates the numeric representations produced by the JSON based
// stores.
func (s *Session) GetInt64(key string) (int64, bool) {
	switch v := s.Values[key].(type) {
	case int:
		return int64(v), true
	case int64:
		return v, true
	case uint:
		return int64(v), true
	case float64:
		if v != float64(int64(v)) {
			return 0, false
		}
		return int64(v), true
	case json.Number:
		n, err := v.Int64()
		return n, err == nil
	default:
		return 0, false
	}
}

func (s *Session) expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

func (s *Session) clone() *Session {
	return &Session{ID: s.ID, Values: maps.Clone(s.Values), ExpiresAt: s.ExpiresAt}
}

// Store persists sessions. Save returns the opaque token to place in the
// client cookie; Load resolves that token back into a session.
type Store interface {
	Name() string
	Load(ctx context.Context, token string) (*Session, error)
	Save(ctx context.Context, s *Session) (string, error)
	Delete(ctx context.Context, s *Session) error
}

type record struct {
	Values    map[string]any `json:"values"`
	ExpiresAt time.Time      `json:"expires_at"`
}

func encodeRecord(s *Session) ([]byte, error) {
	return json.Marshal(record{Values: s.Values, ExpiresAt: s.ExpiresAt})
}

func decodeRecord(id string, data []byte) (*Session, error) {
	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, err
	}
	if rec.Values == nil {
		rec.Values = map[string]any{}
	}
	return &Session{ID: id, Values: rec.Values, ExpiresAt: rec.ExpiresAt}, nil
}
