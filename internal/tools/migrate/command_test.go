package migrate

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"gorm.io/gorm"

	"github.com/sandeepkv93/secure-login-portal/internal/config"
	"github.com/sandeepkv93/secure-login-portal/internal/database"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.ReplaceAll(t.Name(), "/", "_")
	db, err := database.Open(&config.Config{
		DatabaseURL: fmt.Sprintf("sqlite://file:%s?mode=memory&cache=shared", name),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func TestPlanStatusUpLifecycle(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	planned, err := plan(ctx, db)
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	if len(planned) != 3 || !strings.HasPrefix(planned[0], "would apply 00001") {
		t.Fatalf("unexpected plan: %v", planned)
	}
	if db.Migrator().HasTable("users") {
		t.Fatal("plan must not mutate the schema")
	}

	applied, err := up(ctx, db)
	if err != nil {
		t.Fatalf("up: %v", err)
	}
	if len(applied) != 2 || !strings.HasPrefix(applied[0], "applied 00001") {
		t.Fatalf("unexpected up details: %v", applied)
	}

	again, err := up(ctx, db)
	if err != nil {
		t.Fatalf("second up: %v", err)
	}
	if len(again) != 1 || again[0] != "schema is up to date" {
		t.Fatalf("expected idempotent up, got %v", again)
	}

	states, err := status(ctx, db)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	for _, line := range states {
		if !strings.Contains(line, " applied ") {
			t.Fatalf("expected every migration applied, got %v", states)
		}
	}

	planned, err = plan(ctx, db)
	if err != nil {
		t.Fatalf("plan after up: %v", err)
	}
	if len(planned) != 1 || planned[0] != "nothing to apply" {
		t.Fatalf("unexpected plan after up: %v", planned)
	}
}

func TestRootCommandRegistersSubcommands(t *testing.T) {
	cmd := NewRootCommand()
	for _, name := range []string{"up", "status", "plan"} {
		if sub, _, err := cmd.Find([]string{name}); err != nil || sub.Name() != name {
			t.Fatalf("missing subcommand %s: %v", name, err)
		}
	}
	for _, flag := range []string{"env-file", "timeout", "ci"} {
		if cmd.PersistentFlags().Lookup(flag) == nil {
			t.Fatalf("missing flag %s", flag)
		}
	}
}
