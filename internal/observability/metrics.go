package observability

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/exemplar"
	"go.opentelemetry.io/otel/sdk/resource"

	"github.com/sandeepkv93/secure-login-portal/internal/config"
)

const meterName = "secure-login-portal"

type AppMetrics struct {
	loginAttempts       metric.Int64Counter
	logoutAttempts      metric.Int64Counter
	dashboardViews      metric.Int64Counter
	authReqDuration     metric.Float64Histogram
	passwordVerify      metric.Float64Histogram
	csrfValidation      metric.Int64Counter
	middlewareEvents    metric.Int64Counter
	rateLimitDecisions  metric.Int64Counter
	rateLimitRetryAfter metric.Float64Histogram
	sessionStoreOps     metric.Int64Counter
	repositoryOps       metric.Int64Counter
	healthCheckResults  metric.Int64Counter
	healthCheckDuration metric.Float64Histogram
	toolCommandRuns     metric.Int64Counter
	toolCommandDuration metric.Float64Histogram
}

var (
	metricsMu  sync.RWMutex
	appMetrics *AppMetrics
)

func InitMetrics(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*sdkmetric.MeterProvider, error) {
	if !cfg.OTELMetricsEnabled {
		mp := sdkmetric.NewMeterProvider()
		otel.SetMeterProvider(mp)
		logger.Info("otel metrics disabled")
		return mp, nil
	}

	opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(cfg.OTELExporterOTLPEndpoint)}
	if cfg.OTELExporterOTLPInsecure {
		opts = append(opts, otlpmetricgrpc.WithInsecure())
	}
	exporter, err := otlpmetricgrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create otlp metric exporter: %w", err)
	}

	res, err := newResource(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create metric resource: %w", err)
	}

	latencyBuckets := sdkmetric.Stream{
		Aggregation: sdkmetric.AggregationExplicitBucketHistogram{
			Boundaries: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
	}
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(cfg.OTELMetricsExportInterval))),
		sdkmetric.WithExemplarFilter(exemplar.TraceBasedFilter),
		sdkmetric.WithView(
			sdkmetric.NewView(sdkmetric.Instrument{Name: "auth.request.duration"}, latencyBuckets),
			sdkmetric.NewView(sdkmetric.Instrument{Name: "auth.password.verify.duration"}, latencyBuckets),
		),
	)
	otel.SetMeterProvider(mp)

	m, err := newAppMetrics(mp.Meter(meterName))
	if err != nil {
		return nil, err
	}
	metricsMu.Lock()
	appMetrics = m
	metricsMu.Unlock()
	logger.Info("otel metrics enabled", "endpoint", cfg.OTELExporterOTLPEndpoint)
	return mp, nil
}

func newResource(ctx context.Context, cfg *config.Config) (*resource.Resource, error) {
	return resource.New(ctx,
		resource.WithAttributes(
			attribute.String("service.name", cfg.OTELServiceName),
			attribute.String("deployment.environment", cfg.OTELEnvironment),
		),
	)
}

func newAppMetrics(meter metric.Meter) (*AppMetrics, error) {
	var firstErr error
	counter := func(name, desc string) metric.Int64Counter {
		c, err := meter.Int64Counter(name, metric.WithDescription(desc))
		if err != nil && firstErr == nil {
			firstErr = fmt.Errorf("create counter %s: %w", name, err)
		}
		return c
	}
	seconds := func(name, desc string) metric.Float64Histogram {
		h, err := meter.Float64Histogram(name, metric.WithUnit("s"), metric.WithDescription(desc))
		if err != nil && firstErr == nil {
			firstErr = fmt.Errorf("create histogram %s: %w", name, err)
		}
		return h
	}

	m := &AppMetrics{
		loginAttempts:       counter("auth.login.attempts", "Login attempts by outcome"),
		logoutAttempts:      counter("auth.logout.attempts", "Logout requests by status"),
		dashboardViews:      counter("dashboard.views", "Dashboard requests by outcome"),
		authReqDuration:     seconds("auth.request.duration", "Duration of auth endpoint requests in seconds"),
		passwordVerify:      seconds("auth.password.verify.duration", "Password hash verification time"),
		csrfValidation:      counter("security.csrf.validation.events", "CSRF token checks"),
		middlewareEvents:    counter("http.middleware.validation.events", "Request validation events raised by middleware"),
		rateLimitDecisions:  counter("http.rate_limit.decisions", "Rate limiter allow/deny decisions"),
		rateLimitRetryAfter: seconds("http.rate_limit.retry_after", "Retry-After advertised on rejected requests"),
		sessionStoreOps:     counter("session.store.operations", "Session store calls by backend and status"),
		repositoryOps:       counter("repository.operations", "Repository calls by operation and status"),
		healthCheckResults:  counter("health.check.results", "Readiness check outcomes"),
		healthCheckDuration: seconds("health.check.duration", "Readiness check latency"),
		toolCommandRuns:     counter("tool.command.runs", "Operator CLI command runs"),
		toolCommandDuration: seconds("tool.command.duration", "Operator CLI command duration"),
	}
	if firstErr != nil {
		return nil, firstErr
	}
	return m, nil
}

func currentMetrics() *AppMetrics {
	metricsMu.RLock()
	defer metricsMu.RUnlock()
	return appMetrics
}

func RecordAuthLogin(ctx context.Context, outcome string) {
	m := currentMetrics()
	if m == nil {
		return
	}
	m.loginAttempts.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

func RecordAuthLogout(ctx context.Context, status string) {
	m := currentMetrics()
	if m == nil {
		return
	}
	m.logoutAttempts.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
}

func RecordDashboardView(ctx context.Context, outcome string) {
	m := currentMetrics()
	if m == nil {
		return
	}
	m.dashboardViews.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

func RecordAuthRequestDuration(ctx context.Context, endpoint, status string, duration time.Duration) {
	m := currentMetrics()
	if m == nil {
		return
	}
	m.authReqDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("endpoint", endpoint),
		attribute.String("status", status),
	))
}

func RecordPasswordVerifyDuration(ctx context.Context, scheme string, duration time.Duration) {
	m := currentMetrics()
	if m == nil {
		return
	}
	m.passwordVerify.Record(ctx, duration.Seconds(), metric.WithAttributes(attribute.String("scheme", scheme)))
}

func RecordCSRFValidation(ctx context.Context, outcome, pathGroup string) {
	m := currentMetrics()
	if m == nil {
		return
	}
	m.csrfValidation.Add(ctx, 1, metric.WithAttributes(
		attribute.String("outcome", outcome),
		attribute.String("path_group", pathGroup),
	))
}

func RecordMiddlewareValidationEvent(ctx context.Context, middleware, outcome string) {
	m := currentMetrics()
	if m == nil {
		return
	}
	m.middlewareEvents.Add(ctx, 1, metric.WithAttributes(
		attribute.String("middleware", middleware),
		attribute.String("outcome", outcome),
	))
}

func RecordRateLimitDecision(ctx context.Context, scope, outcome, mode, keyType string) {
	m := currentMetrics()
	if m == nil {
		return
	}
	m.rateLimitDecisions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("scope", scope),
		attribute.String("outcome", outcome),
		attribute.String("mode", mode),
		attribute.String("key_type", keyType),
	))
}

func RecordRateLimitRetryAfter(ctx context.Context, scope string, retryAfter time.Duration) {
	m := currentMetrics()
	if m == nil {
		return
	}
	m.rateLimitRetryAfter.Record(ctx, retryAfter.Seconds(), metric.WithAttributes(attribute.String("scope", scope)))
}

func RecordSessionStoreOperation(ctx context.Context, backend, operation, status string) {
	m := currentMetrics()
	if m == nil {
		return
	}
	m.sessionStoreOps.Add(ctx, 1, metric.WithAttributes(
		attribute.String("backend", backend),
		attribute.String("operation", operation),
		attribute.String("status", status),
	))
}

func RecordRepositoryOperation(ctx context.Context, repository, operation, status string) {
	m := currentMetrics()
	if m == nil {
		return
	}
	m.repositoryOps.Add(ctx, 1, metric.WithAttributes(
		attribute.String("repository", repository),
		attribute.String("operation", operation),
		attribute.String("status", status),
	))
}

func RecordHealthCheckResult(ctx context.Context, check, outcome string) {
	m := currentMetrics()
	if m == nil {
		return
	}
	m.healthCheckResults.Add(ctx, 1, metric.WithAttributes(
		attribute.String("check", check),
		attribute.String("outcome", outcome),
	))
}

func RecordHealthCheckDuration(ctx context.Context, check string, duration time.Duration) {
	m := currentMetrics()
	if m == nil {
		return
	}
	m.healthCheckDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attribute.String("check", check)))
}

func RecordToolCommandRun(ctx context.Context, tool, command, status string) {
	m := currentMetrics()
	if m == nil {
		return
	}
	m.toolCommandRuns.Add(ctx, 1, metric.WithAttributes(
		attribute.String("tool", tool),
		attribute.String("command", command),
		attribute.String("status", status),
	))
}

func RecordToolCommandDuration(ctx context.Context, tool, command, status string, duration time.Duration) {
	m := currentMetrics()
	if m == nil {
		return
	}
	m.toolCommandDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("tool", tool),
		attribute.String("command", command),
		attribute.String("status", status),
	))
}
