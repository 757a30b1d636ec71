package service

import (
	"context"

	"github.com/sandeepkv93/secure-login-portal/internal/domain"
)

type CredentialServiceInterface interface {
	FindUserByEmail(ctx context.Context, email string) (*domain.User, error)
	VerifyPassword(ctx context.Context, plain, storedHash string) bool
	BurnVerification(ctx context.Context, plain string)
	RecordLogin(ctx context.Context, userID uint) error
	CreateUser(ctx context.Context, email, passwordHash string) (uint, error)
	HashPassword(plain string) (string, error)
}

type UserServiceInterface interface {
	GetByID(ctx context.Context, id uint) (*domain.User, error)
	GetProfile(ctx context.Context, userID uint) (*domain.Profile, error)
}
