package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/sandeepkv93/secure-login-portal/internal/domain"
	"github.com/sandeepkv93/secure-login-portal/internal/observability"
)

var (
	ErrUserNotFound    = errors.New("user not found")
	ErrProfileNotFound = errors.New("profile not found")
	ErrEmailTaken      = errors.New("email already registered")
)

//go:generate mockgen -source=user_repository.go -destination=gomock/user_repository_mock.go -package=gomock

type UserRepository interface {
	FindActiveByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByID(ctx context.Context, id uint) (*domain.User, error)
	UpdateLastLogin(ctx context.Context, id uint, at time.Time) error
	Create(ctx context.Context, user *domain.User) error
	SetActiveByEmail(ctx context.Context, email string, active bool) error
	FindProfileByUserID(ctx context.Context, userID uint) (*domain.Profile, error)
	CreateProfile(ctx context.Context, profile *domain.Profile) error
}

type GormUserRepository struct{ db *gorm.DB }

func NewUserRepository(db *gorm.DB) UserRepository { return &GormUserRepository{db: db} }

func (r *GormUserRepository) FindActiveByEmail(ctx context.Context, email string) (*domain.User, error) {
	var u domain.User
	err := r.db.WithContext(ctx).Where("email = ? AND is_active = ?", email, true).First(&u).Error
	if err != nil {
		return nil, r.lookupErr(ctx, "find_active_by_email", err, ErrUserNotFound)
	}
	observability.RecordRepositoryOperation(ctx, "user", "find_active_by_email", "success")
	return &u, nil
}

func (r *GormUserRepository) FindByID(ctx context.Context, id uint) (*domain.User, error) {
	var u domain.User
	if err := r.db.WithContext(ctx).First(&u, id).Error; err != nil {
		return nil, r.lookupErr(ctx, "find_by_id", err, ErrUserNotFound)
	}
	observability.RecordRepositoryOperation(ctx, "user", "find_by_id", "success")
	return &u, nil
}

func (r *GormUserRepository) UpdateLastLogin(ctx context.Context, id uint, at time.Time) error {
	at = at.UTC()
	res := r.db.WithContext(ctx).Model(&domain.User{}).Where("uid = ?", id).
		Updates(map[string]any{"last_login": at, "updated_at": at})
	if res.Error != nil {
		observability.RecordRepositoryOperation(ctx, "user", "update_last_login", "error")
		return res.Error
	}
	if res.RowsAffected == 0 {
		observability.RecordRepositoryOperation(ctx, "user", "update_last_login", "not_found")
		return ErrUserNotFound
	}
	observability.RecordRepositoryOperation(ctx, "user", "update_last_login", "success")
	return nil
}

func (r *GormUserRepository) Create(ctx context.Context, user *domain.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		if isUniqueViolation(err) {
			observability.RecordRepositoryOperation(ctx, "user", "create", "conflict")
			return ErrEmailTaken
		}
		observability.RecordRepositoryOperation(ctx, "user", "create", "error")
		return err
	}
	observability.RecordRepositoryOperation(ctx, "user", "create", "success")
	return nil
}

func (r *GormUserRepository) SetActiveByEmail(ctx context.Context, email string, active bool) error {
	res := r.db.WithContext(ctx).Model(&domain.User{}).Where("email = ?", email).
		Updates(map[string]any{"is_active": active, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		observability.RecordRepositoryOperation(ctx, "user", "set_active", "error")
		return res.Error
	}
	if res.RowsAffected == 0 {
		observability.RecordRepositoryOperation(ctx, "user", "set_active", "not_found")
		return ErrUserNotFound
	}
	observability.RecordRepositoryOperation(ctx, "user", "set_active", "success")
	return nil
}

func (r *GormUserRepository) FindProfileByUserID(ctx context.Context, userID uint) (*domain.Profile, error) {
	var p domain.Profile
	if err := r.db.WithContext(ctx).Where("uid = ?", userID).First(&p).Error; err != nil {
		return nil, r.lookupErr(ctx, "find_profile", err, ErrProfileNotFound)
	}
	observability.RecordRepositoryOperation(ctx, "user", "find_profile", "success")
	return &p, nil
}

func (r *GormUserRepository) CreateProfile(ctx context.Context, profile *domain.Profile) error {
	if err := r.db.WithContext(ctx).Create(profile).Error; err != nil {
		if isForeignKeyViolation(err) {
			observability.RecordRepositoryOperation(ctx, "user", "create_profile", "not_found")
			return ErrUserNotFound
		}
		observability.RecordRepositoryOperation(ctx, "user", "create_profile", "error")
		return err
	}
	observability.RecordRepositoryOperation(ctx, "user", "create_profile", "success")
	return nil
}

func (r *GormUserRepository) lookupErr(ctx context.Context, op string, err, notFound error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		observability.RecordRepositoryOperation(ctx, "user", op, "not_found")
		return notFound
	}
	observability.RecordRepositoryOperation(ctx, "user", op, "error")
	return err
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func isForeignKeyViolation(err error) bool {
	if errors.Is(err, gorm.ErrForeignKeyViolated) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23503"
	}
	return false
}
