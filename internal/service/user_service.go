package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sandeepkv93/secure-login-portal/internal/domain"
	"github.com/sandeepkv93/secure-login-portal/internal/repository"
)

type UserService struct {
	repo    repository.UserRepository
	timeout time.Duration
}

func NewUserService(repo repository.UserRepository, storeTimeout time.Duration) *UserService {
	if storeTimeout <= 0 {
		storeTimeout = 5 * time.Second
	}
	return &UserService{repo: repo, timeout: storeTimeout}
}

func (s *UserService) GetByID(ctx context.Context, id uint) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	u, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, storeUnavailable("get user", err)
	}
	return u, nil
}

// GetProfile returns nil without error when the user has no profile.
func (s *UserService) GetProfile(ctx context.Context, userID uint) (*domain.Profile, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	p, err := s.repo.FindProfileByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrProfileNotFound) {
			return nil, nil
		}
		return nil, storeUnavailable("get profile", err)
	}
	return p, nil
}

type ProfileInput struct {
	Name    string
	Address string
	Mobile  string
}

func (s *UserService) CreateProfile(ctx context.Context, userID uint, in ProfileInput) error {
	name := strings.TrimSpace(in.Name)
	if name == "" || len(name) > 255 || len(in.Address) > 500 || len(in.Mobile) > 20 {
		return ErrInvalidInput
	}
	p := &domain.Profile{UserID: userID, Name: name, Address: optional(in.Address), Mobile: optional(in.Mobile)}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := s.repo.CreateProfile(ctx, p); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return ErrUserNotFound
		}
		return storeUnavailable("create profile", err)
	}
	return nil
}

func (s *UserService) Deactivate(ctx context.Context, email string) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := s.repo.SetActiveByEmail(ctx, strings.TrimSpace(email), false); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return ErrUserNotFound
		}
		return storeUnavailable("deactivate user", err)
	}
	return nil
}

func optional(v string) *string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return &v
}
