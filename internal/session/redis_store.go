package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type RedisStore struct {
	client redis.UniversalClient
	prefix string
	now    func() time.Time
}

func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "sess"
	}
	return &RedisStore{client: client, prefix: prefix, now: time.Now}
}

func (s *RedisStore) Name() string { return "redis" }

func (s *RedisStore) key(id string) string { return s.prefix + ":" + id }

func (s *RedisStore) Load(ctx context.Context, token string) (*Session, error) {
	if token == "" {
		return nil, ErrNotFound
	}
	data, err := s.client.Get(ctx, s.key(token)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("redis session get: %w", err)
	}
	sess, err := decodeRecord(token, data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if sess.expired(s.now()) {
		return nil, ErrExpired
	}
	return sess, nil
}

func (s *RedisStore) Save(ctx context.Context, sess *Session) (string, error) {
	ttl := sess.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return "", ErrExpired
	}
	data, err := encodeRecord(sess)
	if err != nil {
		return "", err
	}
	if err := s.client.Set(ctx, s.key(sess.ID), data, ttl).Err(); err != nil {
		return "", fmt.Errorf("redis session set: %w", err)
	}
	return sess.ID, nil
}

func (s *RedisStore) Delete(ctx context.Context, sess *Session) error {
	if err := s.client.Del(ctx, s.key(sess.ID)).Err(); err != nil {
		return fmt.Errorf("redis session del: %w", err)
	}
	return nil
}
