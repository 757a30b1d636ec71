package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/sandeepkv93/secure-login-portal/internal/domain"
	"github.com/sandeepkv93/secure-login-portal/internal/observability"
	"github.com/sandeepkv93/secure-login-portal/internal/repository"
	"github.com/sandeepkv93/secure-login-portal/internal/security"
)

const dummyPassword = "timing-equalisation-only"

type newUserInput struct {
	Email        string `validate:"required,email,max=255"`
	PasswordHash string `validate:"required"`
}

type CredentialService struct {
	repo     repository.UserRepository
	validate *validator.Validate
	timeout  time.Duration
	logger   *slog.Logger
	now      func() time.Time

	dummyOnce sync.Once
	dummyHash string
}

func NewCredentialService(repo repository.UserRepository, storeTimeout time.Duration, logger *slog.Logger) *CredentialService {
	if storeTimeout <= 0 {
		storeTimeout = 5 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CredentialService{
		repo:     repo,
		validate: validator.New(),
		timeout:  storeTimeout,
		logger:   logger,
		now:      time.Now,
	}
}

// FindUserByEmail looks up an active user by exact email. Surrounding
// whitespace is ignored; case is significant.
func (s *CredentialService) FindUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	ctx, span := observability.Tracer().Start(ctx, "credential.find_user_by_email")
	defer span.End()

	email = strings.TrimSpace(email)
	if email == "" {
		return nil, ErrUserNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	u, err := s.repo.FindActiveByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			span.SetAttributes(attribute.Bool("user.found", false))
			return nil, ErrUserNotFound
		}
		return nil, failSpan(span, storeUnavailable("find user by email", err))
	}
	span.SetAttributes(attribute.Bool("user.found", true))
	return u, nil
}

// VerifyPassword reports whether plain matches storedHash. Malformed hashes
// never match.
func (s *CredentialService) VerifyPassword(ctx context.Context, plain, storedHash string) bool {
	scheme := "argon2id"
	if security.IsBcryptHash(storedHash) {
		scheme = "bcrypt"
	}
	start := time.Now()
	ok, err := security.VerifyPassword(storedHash, plain)
	observability.RecordPasswordVerifyDuration(ctx, scheme, time.Since(start))
	if err != nil {
		s.logger.WarnContext(ctx, "stored password hash is malformed", "scheme", scheme, "error", err)
		return false
	}
	return ok
}

// BurnVerification runs one verification against a fixed hash so that an
// unknown email costs the same as a wrong password.
func (s *CredentialService) BurnVerification(ctx context.Context, plain string) {
	s.dummyOnce.Do(func() {
		h, err := security.HashPassword(dummyPassword)
		if err != nil {
			s.logger.Error("build dummy password hash", "error", err)
			return
		}
		s.dummyHash = h
	})
	if s.dummyHash == "" {
		return
	}
	_, _ = security.VerifyPassword(s.dummyHash, plain)
}

// RecordLogin stamps last_login with the current UTC time. A missing user is
// logged and ignored.
func (s *CredentialService) RecordLogin(ctx context.Context, userID uint) error {
	ctx, span := observability.Tracer().Start(ctx, "credential.record_login",
		trace.WithAttributes(attribute.Int64("user.id", int64(userID))))
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	err := s.repo.UpdateLastLogin(ctx, userID, s.now().UTC())
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrUserNotFound):
		s.logger.WarnContext(ctx, "record login for missing user", "user_id", userID)
		return nil
	default:
		return failSpan(span, storeUnavailable("record login", err))
	}
}

// CreateUser inserts an active user and returns its id. A duplicate email
// yields ErrConflict.
func (s *CredentialService) CreateUser(ctx context.Context, email, passwordHash string) (uint, error) {
	ctx, span := observability.Tracer().Start(ctx, "credential.create_user")
	defer span.End()

	in := newUserInput{Email: strings.TrimSpace(email), PasswordHash: passwordHash}
	if err := s.validate.Struct(in); err != nil {
		return 0, fmt.Errorf("%w: %s", ErrInvalidInput, describeValidation(err))
	}

	now := s.now().UTC()
	u := &domain.User{
		Email:        in.Email,
		PasswordHash: in.PasswordHash,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := s.repo.Create(ctx, u); err != nil {
		if errors.Is(err, repository.ErrEmailTaken) {
			return 0, ErrConflict
		}
		return 0, failSpan(span, storeUnavailable("create user", err))
	}
	span.SetAttributes(attribute.Int64("user.id", int64(u.ID)))
	return u.ID, nil
}

func (s *CredentialService) HashPassword(plain string) (string, error) {
	if plain == "" {
		return "", fmt.Errorf("%w: password is required", ErrInvalidInput)
	}
	return security.HashPassword(plain)
}

func describeValidation(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, strings.ToLower(fe.Field())+" failed "+fe.Tag())
	}
	return strings.Join(parts, ", ")
}

func failSpan(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
