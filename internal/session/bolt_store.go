package session

import (
	"context"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

var bucketSessions = []byte("sessions")

// BoltStore keeps sessions in a local bbolt file. It suits single-node
// deployments that must survive restarts without running Redis.
type BoltStore struct {
	db  *bbolt.DB
	now func() time.Time
}

func NewBoltStore(path string) (*BoltStore, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open session file: %w", err)
	}
	if err := db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketSessions)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create sessions bucket: %w", err)
	}
	return &BoltStore{db: db, now: time.Now}, nil
}

func (s *BoltStore) Name() string { return "bolt" }

func (s *BoltStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *BoltStore) Load(_ context.Context, token string) (*Session, error) {
	if token == "" {
		return nil, ErrNotFound
	}
	var data []byte
	if err := s.db.View(func(tx *bbolt.Tx) error {
		if v := tx.Bucket(bucketSessions).Get([]byte(token)); v != nil {
			data = append([]byte(nil), v...)
		}
		return nil
	}); err != nil {
		return nil, fmt.Errorf("read session: %w", err)
	}
	if data == nil {
		return nil, ErrNotFound
	}

	sess, err := decodeRecord(token, data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if sess.expired(s.now()) {
		_ = s.delete(token)
		return nil, ErrExpired
	}
	return sess, nil
}

func (s *BoltStore) Save(_ context.Context, sess *Session) (string, error) {
	data, err := encodeRecord(sess)
	if err != nil {
		return "", err
	}
	if err := s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketSessions).Put([]byte(sess.ID), data)
	}); err != nil {
		return "", fmt.Errorf("write session: %w", err)
	}
	return sess.ID, nil
}

func (s *BoltStore) Delete(_ context.Context, sess *Session) error {
	return s.delete(sess.ID)
}

func (s *BoltStore) delete(id string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketSessions).Delete([]byte(id))
	})
}

// Sweep removes expired sessions and reports how many were dropped.
func (s *BoltStore) Sweep() (int, error) {
	now := s.now()
	removed := 0
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketSessions)
		var stale [][]byte
		if err := b.ForEach(func(k, v []byte) error {
			sess, err := decodeRecord(string(k), v)
			if err != nil || sess.expired(now) {
				stale = append(stale, append([]byte(nil), k...))
			}
			return nil
		}); err != nil {
			return err
		}
		for _, k := range stale {
			if err := b.Delete(k); err != nil {
				return err
			}
		}
		removed = len(stale)
		return nil
	})
	return removed, err
}
