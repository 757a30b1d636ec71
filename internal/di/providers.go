package di

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/wire"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/sandeepkv93/secure-login-portal/internal/app"
	"github.com/sandeepkv93/secure-login-portal/internal/config"
	"github.com/sandeepkv93/secure-login-portal/internal/database"
	"github.com/sandeepkv93/secure-login-portal/internal/health"
	"github.com/sandeepkv93/secure-login-portal/internal/http/handler"
	"github.com/sandeepkv93/secure-login-portal/internal/http/middleware"
	"github.com/sandeepkv93/secure-login-portal/internal/http/router"
	"github.com/sandeepkv93/secure-login-portal/internal/http/view"
	"github.com/sandeepkv93/secure-login-portal/internal/observability"
	"github.com/sandeepkv93/secure-login-portal/internal/repository"
	"github.com/sandeepkv93/secure-login-portal/internal/security"
	"github.com/sandeepkv93/secure-login-portal/internal/service"
	"github.com/sandeepkv93/secure-login-portal/internal/session"
)

var ConfigSet = wire.NewSet(config.Load)

var ObservabilitySet = wire.NewSet(
	provideObservabilityRuntime,
	provideAppLogger,
)

var RuntimeInfraSet = wire.NewSet(
	provideRuntimeDB,
	provideRedisClient,
	provideSessionStore,
	provideReadinessProbeRunner,
)

var RepositorySet = wire.NewSet(repository.NewUserRepository)

var SecuritySet = wire.NewSet(provideCookieManager)

var ServiceSet = wire.NewSet(
	provideCredentialService,
	provideUserService,
	wire.Bind(new(service.CredentialServiceInterface), new(*service.CredentialService)),
	wire.Bind(new(service.UserServiceInterface), new(*service.UserService)),
)

var HTTPSet = wire.NewSet(
	provideSessionManager,
	view.NewRenderer,
	handler.NewAuthHandler,
	handler.NewDashboardHandler,
	handler.NewHealthHandler,
	provideGlobalRateLimiter,
	provideAuthRateLimiter,
	provideRouterDependencies,
	router.NewRouter,
	provideHTTPServer,
)

var AppSet = wire.NewSet(app.New)

func provideObservabilityRuntime(cfg *config.Config) (*observability.Runtime, error) {
	bootstrapLogger := observability.NewBootstrapLogger(cfg)
	return observability.InitRuntime(context.Background(), cfg, bootstrapLogger)
}

func provideAppLogger(cfg *config.Config, runtime *observability.Runtime) *slog.Logger {
	return observability.InitLogger(cfg, runtime.LoggerProvider)
}

func provideRuntimeDB(cfg *config.Config, logger *slog.Logger) (*gorm.DB, error) {
	db, err := database.Open(cfg)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	applied, err := database.Migrate(ctx, db)
	if err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	for _, m := range applied {
		logger.Info("migration applied", "version", m.Version, "path", m.Path, "duration_ms", m.Duration.Milliseconds())
	}
	return db, nil
}

func redisRequired(cfg *config.Config) bool {
	return cfg.SessionStore == config.SessionStoreRedis || cfg.RateLimitRedisEnabled
}

func provideRedisClient(cfg *config.Config, logger *slog.Logger) redis.UniversalClient {
	if !redisRequired(cfg) {
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	observability.InstrumentRedisClient(client, logger)
	return client
}

func provideSessionStore(cfg *config.Config, redisClient redis.UniversalClient) (session.Store, error) {
	switch cfg.SessionStore {
	case config.SessionStoreMemory:
		return session.NewMemoryStore(), nil
	case config.SessionStoreRedis:
		if redisClient == nil {
			return nil, fmt.Errorf("session store redis: client not configured")
		}
		return session.NewRedisStore(redisClient, cfg.RedisSessionPrefix), nil
	case config.SessionStoreCookie:
		return session.NewCookieStore(cfg.SessionSecret), nil
	case config.SessionStoreBolt:
		return session.NewBoltStore(cfg.SessionBoltPath)
	default:
		return nil, fmt.Errorf("unsupported session store %q", cfg.SessionStore)
	}
}

func provideReadinessProbeRunner(cfg *config.Config, db *gorm.DB, redisClient redis.UniversalClient) *health.ProbeRunner {
	checkers := []health.Checker{
		health.NewDBChecker(db),
		health.NewSchemaChecker(db),
	}
	if redisRequired(cfg) {
		checkers = append(checkers, health.NewRedisChecker(redisClient))
	}
	return health.NewProbeRunner(cfg.ReadinessProbeTimeout, cfg.ServerStartGracePeriod, checkers...)
}

func provideCookieManager(cfg *config.Config) *security.CookieManager {
	return security.NewCookieManager(cfg.CookieDomain, cfg.CookieSecure, cfg.CookieSameSite)
}

func provideCredentialService(cfg *config.Config, repo repository.UserRepository, logger *slog.Logger) *service.CredentialService {
	return service.NewCredentialService(repo, cfg.StoreTimeout, logger)
}

func provideUserService(cfg *config.Config, repo repository.UserRepository) *service.UserService {
	return service.NewUserService(repo, cfg.StoreTimeout)
}

func provideSessionManager(cfg *config.Config, store session.Store, cookies *security.CookieManager) *session.Manager {
	return session.NewManager(store, cookies, session.ManagerConfig{
		CookieName:   cfg.SessionCookie,
		TTL:          cfg.SessionTTL,
		StoreTimeout: cfg.StoreTimeout,
	})
}

func provideGlobalRateLimiter(cfg *config.Config, redisClient redis.UniversalClient) router.GlobalRateLimiterFunc {
	if cfg.RateLimitRedisEnabled && redisClient != nil {
		redisLimiter := middleware.NewRedisFixedWindowLimiter(redisClient, cfg.RateLimitRedisPrefix+":api")
		return middleware.NewDistributedRateLimiter(
			redisLimiter,
			cfg.APIRateLimitPerMin,
			time.Minute,
			middleware.FailOpen,
			"api",
		).Middleware()
	}
	return middleware.NewRateLimiter(cfg.APIRateLimitPerMin, time.Minute).Middleware()
}

func provideAuthRateLimiter(cfg *config.Config, redisClient redis.UniversalClient) router.AuthRateLimiterFunc {
	var limiter middleware.Limiter = middleware.NewLocalFixedWindowLimiter()
	if cfg.RateLimitRedisEnabled && redisClient != nil {
		limiter = middleware.NewRedisFixedWindowLimiter(redisClient, cfg.RateLimitRedisPrefix+":auth")
	}
	return middleware.NewDistributedRateLimiterWithKey(
		limiter,
		cfg.AuthRateLimitPerMin,
		time.Minute,
		middleware.FailClosed,
		"auth",
		middleware.LoginKeyFunc,
	).Middleware()
}

func provideRouterDependencies(
	authHandler *handler.AuthHandler,
	dashboardHandler *handler.DashboardHandler,
	healthHandler *handler.HealthHandler,
	cookies *security.CookieManager,
	globalRateLimiter router.GlobalRateLimiterFunc,
	authRateLimiter router.AuthRateLimiterFunc,
	cfg *config.Config,
) router.Dependencies {
	return router.Dependencies{
		AuthHandler:       authHandler,
		DashboardHandler:  dashboardHandler,
		HealthHandler:     healthHandler,
		Cookies:           cookies,
		AuthRateLimitRPM:  cfg.AuthRateLimitPerMin,
		APIRateLimitRPM:   cfg.APIRateLimitPerMin,
		GlobalRateLimiter: globalRateLimiter,
		AuthRateLimiter:   authRateLimiter,
		EnableOTelHTTP:    cfg.OTELMetricsEnabled || cfg.OTELTracingEnabled,
	}
}

func provideHTTPServer(cfg *config.Config, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.HTTPAddress(),
		Handler:           h,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
