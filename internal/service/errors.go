package service

import (
	"errors"
	"fmt"
)

var (
	// ErrUserNotFound covers unknown and inactive accounts alike.
	ErrUserNotFound     = errors.New("user not found")
	ErrConflict         = errors.New("email already registered")
	ErrStoreUnavailable = errors.New("user store unavailable")
	ErrInvalidInput     = errors.New("invalid input")
)

func storeUnavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStoreUnavailable, err)
}
