package routes

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/washlytics/tenant-onboarding/internal/infra/config"
	"github.com/washlytics/tenant-onboarding/internal/transport/http/handlers"
	"github.com/washlytics/tenant-onboarding/internal/transport/http/middleware"
	"github.com/washlytics/tenant-onboarding/internal/usecase"
)

// ServiceSet groups the services the HTTP layer depends on.
type ServiceSet struct {
	Onboarding *usecase.OnboardingService
	PhoneAuth  *usecase.PhoneAuthService
}

// Dependencies encapsulates the objects required to register routes.
type Dependencies struct {
	Config      *config.AppConfig
	Logger      *zap.Logger
	RateLimiter *middleware.RateLimiter
	Metrics     *middleware.HTTPMetrics
	Services    ServiceSet
	Database    DatabaseChecker
	Cache       CacheChecker
}

// DatabaseChecker exposes readiness behaviour for database connections.
type DatabaseChecker interface {
	Ping(ctx context.Context) error
}

// CacheChecker exposes readiness behaviour for cache backends.
type CacheChecker interface {
	HealthCheck(ctx context.Context) error
}

// Register configures the Gin engine with routes and middleware.
func Register(deps Dependencies) *gin.Engine {
	if deps.Config.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.TraceID())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(deps.Logger))
	r.Use(middleware.CORS(deps.Config.CORS.AllowedOrigins))

	if deps.Metrics != nil {
		r.Use(deps.Metrics.Handler())
	}

	healthOptions := make([]handlers.HealthOption, 0, 2)

	if deps.Database != nil {
		healthOptions = append(healthOptions, handlers.WithReadinessCheck("database", deps.Database.Ping))
	}

	if deps.Cache != nil {
		healthOptions = append(healthOptions, handlers.WithReadinessCheck("redis", deps.Cache.HealthCheck))
	}

	healthHandler := handlers.NewHealthHandler(healthOptions...)

	r.GET("/healthz", healthHandler.Status)
	r.GET("/readyz", healthHandler.Readiness)

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	{
		isDev := deps.Config.App.Env == "development"

		tenantGroup := api.Group("/tenants")
		tenantHandler := handlers.NewTenantHandler(deps.Services.Onboarding)
		if mw := buildRateLimit(deps, "tenant_availability_ip", deps.Config.RateLimit.AvailabilityMaxAttempts, time.Minute); mw != nil {
			tenantGroup.Use(mw...)
		}
		tenantHandler.RegisterRoutes(tenantGroup)

		authGroup := api.Group("/auth")

		phoneHandler := handlers.NewPhoneAuthHandler(deps.Services.PhoneAuth, isDev)
		phoneHandler.RegisterRoutes(authGroup,
			buildRateLimit(deps, "send_verification_ip", deps.Config.RateLimit.SendCodeMaxAttempts, time.Hour),
			buildRateLimit(deps, "verify_code_ip", deps.Config.RateLimit.VerifyCodeMaxAttempts, time.Minute),
			buildRateLimit(deps, "create_account_ip", deps.Config.RateLimit.RegisterMaxAttempts, time.Hour),
		)

		registrationHandler := handlers.NewRegistrationHandler(deps.Services.Onboarding, isDev)
		registrationHandler.RegisterRoutes(authGroup,
			buildRateLimit(deps, "register_ip", deps.Config.RateLimit.RegisterMaxAttempts, time.Hour),
		)
	}

	handlers.RegisterSwagger(r)

	return r
}

func buildRateLimit(deps Dependencies, name string, limit int, fallbackWindow time.Duration) []gin.HandlerFunc {
	if deps.RateLimiter == nil || deps.Config == nil || limit <= 0 {
		return nil
	}

	window := deps.Config.RateLimit.WindowDuration
	if window <= 0 {
		window = fallbackWindow
	}

	rule := middleware.RateLimitRule{
		Name:   name,
		Limit:  limit,
		Window: window,
	}

	return []gin.HandlerFunc{deps.RateLimiter.RateLimit(rule)}
}
