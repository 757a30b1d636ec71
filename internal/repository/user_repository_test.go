package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/sandeepkv93/secure-login-portal/internal/database"
	"github.com/sandeepkv93/secure-login-portal/internal/domain"
)

func newRepositoryDBForTest(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(database.SQLiteDSN(dsn)), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if _, err := database.Migrate(context.Background(), db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func mustCreateUser(t *testing.T, repo UserRepository, email string, active bool) *domain.User {
	t.Helper()
	u := &domain.User{Email: email, PasswordHash: "hash", IsActive: active}
	if err := repo.Create(context.Background(), u); err != nil {
		t.Fatalf("create user %s: %v", email, err)
	}
	if u.ID == 0 {
		t.Fatal("expected generated uid")
	}
	return u
}

func TestUserRepositoryFindActiveByEmail(t *testing.T) {
	repo := NewUserRepository(newRepositoryDBForTest(t))
	ctx := context.Background()

	created := mustCreateUser(t, repo, "a@b.dk", true)
	mustCreateUser(t, repo, "gone@b.dk", false)

	got, err := repo.FindActiveByEmail(ctx, "a@b.dk")
	if err != nil {
		t.Fatalf("find active: %v", err)
	}
	if got.ID != created.ID || !got.IsActive || got.LastLogin != nil {
		t.Fatalf("unexpected user: %+v", got)
	}

	if _, err := repo.FindActiveByEmail(ctx, "gone@b.dk"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected inactive user to be not found, got %v", err)
	}
	if _, err := repo.FindActiveByEmail(ctx, "A@B.DK"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected case-sensitive match, got %v", err)
	}
}

func TestUserRepositoryCreateDuplicateEmail(t *testing.T) {
	repo := NewUserRepository(newRepositoryDBForTest(t))
	mustCreateUser(t, repo, "dup@b.dk", true)

	err := repo.Create(context.Background(), &domain.User{Email: "dup@b.dk", PasswordHash: "x", IsActive: true})
	if !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
}

func TestUserRepositoryUpdateLastLogin(t *testing.T) {
	repo := NewUserRepository(newRepositoryDBForTest(t))
	ctx := context.Background()
	u := mustCreateUser(t, repo, "login@b.dk", true)

	at := time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC)
	if err := repo.UpdateLastLogin(ctx, u.ID, at); err != nil {
		t.Fatalf("update last login: %v", err)
	}
	got, err := repo.FindByID(ctx, u.ID)
	if err != nil {
		t.Fatalf("find by id: %v", err)
	}
	if got.LastLogin == nil || !got.LastLogin.Equal(at) {
		t.Fatalf("expected last_login %s, got %v", at, got.LastLogin)
	}

	if err := repo.UpdateLastLogin(ctx, 9999, at); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestUserRepositoryProfiles(t *testing.T) {
	repo := NewUserRepository(newRepositoryDBForTest(t))
	ctx := context.Background()
	u := mustCreateUser(t, repo, "profile@b.dk", true)

	if _, err := repo.FindProfileByUserID(ctx, u.ID); !errors.Is(err, ErrProfileNotFound) {
		t.Fatalf("expected ErrProfileNotFound, got %v", err)
	}

	mobile := "+4512345678"
	if err := repo.CreateProfile(ctx, &domain.Profile{UserID: u.ID, Name: "Ada", Mobile: &mobile}); err != nil {
		t.Fatalf("create profile: %v", err)
	}
	p, err := repo.FindProfileByUserID(ctx, u.ID)
	if err != nil {
		t.Fatalf("find profile: %v", err)
	}
	if p.Name != "Ada" || p.Address != nil || p.Mobile == nil || *p.Mobile != mobile {
		t.Fatalf("unexpected profile: %+v", p)
	}
}

func TestUserRepositoryCreateProfileRequiresExistingUser(t *testing.T) {
	db := newRepositoryDBForTest(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	if err := repo.CreateProfile(ctx, &domain.Profile{UserID: 9999, Name: "Ghost"}); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound for unknown user, got %v", err)
	}
	var count int64
	if err := db.Model(&domain.Profile{}).Count(&count).Error; err != nil {
		t.Fatalf("count profiles: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected no orphan profile, found %d", count)
	}
}

func TestUserRepositoryDeletingUserCascadesToProfile(t *testing.T) {
	db := newRepositoryDBForTest(t)
	repo := NewUserRepository(db)
	ctx := context.Background()
	u := mustCreateUser(t, repo, "cascade@b.dk", true)
	if err := repo.CreateProfile(ctx, &domain.Profile{UserID: u.ID, Name: "Cas"}); err != nil {
		t.Fatalf("create profile: %v", err)
	}

	if err := db.Exec("DELETE FROM users WHERE uid = ?", u.ID).Error; err != nil {
		t.Fatalf("delete user: %v", err)
	}
	if _, err := repo.FindProfileByUserID(ctx, u.ID); !errors.Is(err, ErrProfileNotFound) {
		t.Fatalf("expected profile removed with its user, got %v", err)
	}
}

func TestUserRepositorySetActiveByEmail(t *testing.T) {
	repo := NewUserRepository(newRepositoryDBForTest(t))
	ctx := context.Background()
	mustCreateUser(t, repo, "toggle@b.dk", true)

	if err := repo.SetActiveByEmail(ctx, "toggle@b.dk", false); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	if _, err := repo.FindActiveByEmail(ctx, "toggle@b.dk"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected deactivated user hidden, got %v", err)
	}
	if err := repo.SetActiveByEmail(ctx, "missing@b.dk", false); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}
