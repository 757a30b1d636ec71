package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/sandeepkv93/secure-login-portal/internal/config"
	"github.com/sandeepkv93/secure-login-portal/internal/observability"
	"github.com/sandeepkv93/secure-login-portal/internal/session"
)

func freeAddr(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := l.Addr().String()
	_ = l.Close()
	return addr
}

func TestRunServesUntilContextCancelledAndClosesStores(t *testing.T) {
	store, err := session.NewBoltStore(filepath.Join(t.TempDir(), "sessions.db"))
	if err != nil {
		t.Fatalf("bolt store: %v", err)
	}
	addr := freeAddr(t)
	srv := &http.Server{
		Addr: addr,
		Handler: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		}),
		ReadHeaderTimeout: time.Second,
	}
	cfg := &config.Config{ShutdownTimeout: 2 * time.Second, SessionStore: config.SessionStoreBolt}
	a := New(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)), srv, nil, nil, nil, store, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	var resp *http.Response
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		resp, err = http.Get("http://" + addr + "/")
		if err == nil {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	if err != nil {
		t.Fatalf("server never came up: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.StatusCode)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run returned error: %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("run did not return after cancel")
	}

	if _, err := store.Sweep(); err == nil {
		t.Fatal("expected bolt store to be closed after shutdown")
	}
}

func TestRunReturnsListenError(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer l.Close()

	srv := &http.Server{Addr: l.Addr().String(), ReadHeaderTimeout: time.Second}
	a := New(&config.Config{}, slog.New(slog.NewTextHandler(io.Discard, nil)), srv, nil, nil, nil, session.NewMemoryStore(), nil)
	if err := a.Run(context.Background()); err == nil {
		t.Fatal("expected address-in-use error")
	}
}

func TestShutdownClosesAppResourcesBeforeEarlierRegistrations(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := session.NewRedisStore(client, "test:sessions:")

	runtime := observability.NewRuntime(slog.New(slog.NewTextHandler(io.Discard, nil)))
	var order []string
	runtime.OnShutdown("first_registered", func(context.Context) error {
		order = append(order, "first_registered")
		if err := client.Ping(context.Background()).Err(); !errors.Is(err, redis.ErrClosed) {
			t.Errorf("expected redis closed before earlier registrations, got %v", err)
		}
		return nil
	})

	srv := &http.Server{Addr: "127.0.0.1:0", ReadHeaderTimeout: time.Second}
	a := New(&config.Config{}, slog.New(slog.NewTextHandler(io.Discard, nil)), srv, runtime, nil, client, store, nil)
	if err := a.Shutdown(); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	if len(order) != 1 {
		t.Fatalf("expected earlier registration closed last, got %v", order)
	}
	if err := client.Ping(context.Background()).Err(); !errors.Is(err, redis.ErrClosed) {
		t.Fatalf("expected redis client closed, got %v", err)
	}
}
