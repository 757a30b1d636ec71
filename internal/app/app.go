package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/sandeepkv93/secure-login-portal/internal/config"
	"github.com/sandeepkv93/secure-login-portal/internal/health"
	"github.com/sandeepkv93/secure-login-portal/internal/observability"
	"github.com/sandeepkv93/secure-login-portal/internal/session"
)

type App struct {
	Config        *config.Config
	Logger        *slog.Logger
	Server        *http.Server
	Observability *observability.Runtime
	DB            *gorm.DB
	Redis         redis.UniversalClient
	Sessions      session.Store
	Readiness     *health.ProbeRunner
}

func New(
	cfg *config.Config,
	logger *slog.Logger,
	server *http.Server,
	runtime *observability.Runtime,
	db *gorm.DB,
	redisClient redis.UniversalClient,
	sessions session.Store,
	readiness *health.ProbeRunner,
) *App {
	if runtime == nil {
		runtime = observability.NewRuntime(logger)
	}
	a := &App{
		Config:        cfg,
		Logger:        logger,
		Server:        server,
		Observability: runtime,
		DB:            db,
		Redis:         redisClient,
		Sessions:      sessions,
		Readiness:     readiness,
	}
	a.registerClosers()
	return a
}

// registerClosers hands resource teardown to the runtime. Later registrations
// close first, so the session store goes before Redis and the database.
func (a *App) registerClosers() {
	if a.DB != nil {
		a.Observability.OnShutdown("database", func(context.Context) error {
			sqlDB, err := a.DB.DB()
			if err != nil {
				return nil
			}
			return sqlDB.Close()
		})
	}
	if a.Redis != nil {
		a.Observability.OnShutdown("redis", func(context.Context) error {
			return a.Redis.Close()
		})
	}
	if c, ok := a.Sessions.(io.Closer); ok {
		a.Observability.OnShutdown("session_store", func(context.Context) error {
			return c.Close()
		})
	}
}

type sweeper interface {
	Sweep() (int, error)
}

// Run serves until ctx is cancelled or the listener fails, then shuts down.
func (a *App) Run(ctx context.Context) error {
	janitorCtx, stopJanitor := context.WithCancel(ctx)
	janitorDone := make(chan struct{})
	go func() {
		defer close(janitorDone)
		a.sweepSessions(janitorCtx)
	}()

	errCh := make(chan error, 1)
	go func() {
		a.Logger.Info("server starting", "addr", a.Server.Addr, "session_store", a.Config.SessionStore)
		if err := a.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	var serveErr error
	select {
	case <-ctx.Done():
		a.Logger.Info("shutdown requested")
	case serveErr = <-errCh:
		if serveErr != nil {
			a.Logger.Error("server stopped", "error", serveErr)
		}
	}
	stopJanitor()
	<-janitorDone
	return errors.Join(serveErr, a.Shutdown())
}

// sweepSessions drops expired entries from stores that do not expire them on
// their own.
func (a *App) sweepSessions(ctx context.Context) {
	s, ok := a.Sessions.(sweeper)
	if !ok {
		return
	}
	interval := a.Config.SessionTTL / 2
	if interval < time.Minute {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := s.Sweep()
			if err != nil {
				a.Logger.Warn("session sweep failed", "error", err)
				continue
			}
			if removed > 0 {
				a.Logger.Debug("expired sessions removed", "count", removed)
			}
		}
	}
}

// Shutdown drains HTTP first, then lets the runtime close stores and flush
// telemetry. Each stage has its own budget inside the overall timeout.
func (a *App) Shutdown() error {
	total := durationOr(a.Config.ShutdownTimeout, 20*time.Second)
	totalCtx, totalCancel := context.WithTimeout(context.Background(), total)
	defer totalCancel()

	var errs []error

	httpCtx, httpCancel := context.WithTimeout(totalCtx, durationOr(a.Config.ShutdownHTTPDrainTimeout, 10*time.Second))
	if err := a.Server.Shutdown(httpCtx); err != nil {
		a.Logger.Error("failed to shutdown http server", "error", err)
		errs = append(errs, err)
	}
	httpCancel()

	obsCtx, obsCancel := context.WithTimeout(totalCtx, durationOr(a.Config.ShutdownObservabilityTimeout, 8*time.Second))
	if err := a.Observability.Shutdown(obsCtx); err != nil {
		a.Logger.Error("failed to shutdown runtime", "error", err)
		errs = append(errs, err)
	}
	obsCancel()

	return errors.Join(errs...)
}

func durationOr(v, def time.Duration) time.Duration {
	if v <= 0 {
		return def
	}
	return v
}
