package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/sandeepkv93/secure-login-portal/internal/http/handler"
	"github.com/sandeepkv93/secure-login-portal/internal/http/middleware"
	"github.com/sandeepkv93/secure-login-portal/internal/security"
)

const maxFormBytes = 64 << 10

type Dependencies struct {
	AuthHandler       *handler.AuthHandler
	DashboardHandler  *handler.DashboardHandler
	HealthHandler     *handler.HealthHandler
	Cookies           *security.CookieManager
	AuthRateLimitRPM  int
	APIRateLimitRPM   int
	GlobalRateLimiter GlobalRateLimiterFunc
	AuthRateLimiter   AuthRateLimiterFunc
	EnableOTelHTTP    bool
}

type GlobalRateLimiterFunc func(http.Handler) http.Handler
type AuthRateLimiterFunc func(http.Handler) http.Handler

func NewRouter(dep Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.StructuredRequestLogger)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.BodyLimit(maxFormBytes))
	if dep.GlobalRateLimiter != nil {
		r.Use(dep.GlobalRateLimiter)
	} else {
		r.Use(middleware.NewRateLimiter(dep.APIRateLimitRPM, time.Minute).Middleware())
	}

	authLimiter := dep.AuthRateLimiter
	if authLimiter == nil {
		authLimiter = middleware.NewDistributedRateLimiterWithKey(
			middleware.NewLocalFixedWindowLimiter(), dep.AuthRateLimitRPM, time.Minute,
			middleware.FailClosed, "auth", middleware.LoginKeyFunc,
		).Middleware()
	}

	r.Get("/health/live", dep.HealthHandler.Live)
	r.Get("/health/ready", dep.HealthHandler.Ready)

	r.Group(func(r chi.Router) {
		r.Use(middleware.CSRF(dep.Cookies))

		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, handler.DashboardPath, http.StatusFound)
		})
		for _, p := range []string{"/login", handler.LoginPath} {
			r.Get(p, dep.AuthHandler.LoginForm)
			r.With(authLimiter).Post(p, dep.AuthHandler.Login)
		}
		r.Get(handler.DashboardPath, dep.DashboardHandler.Dashboard)
		r.Post("/logout", dep.AuthHandler.Logout)
	})

	var h http.Handler = r
	if dep.EnableOTelHTTP {
		h = otelhttp.NewHandler(r, "http.server")
	}
	return h
}
