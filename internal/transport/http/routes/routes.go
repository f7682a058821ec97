package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/arklim/social-platform-trust/internal/core/domain"
	"github.com/arklim/social-platform-trust/internal/infra/config"
	"github.com/arklim/social-platform-trust/internal/transport/http/handlers"
	"github.com/arklim/social-platform-trust/internal/transport/http/middleware"
	"github.com/arklim/social-platform-trust/internal/usecase"
)

// ServiceSet groups the services the HTTP layer depends on.
type ServiceSet struct {
	Auth         *usecase.AuthService
	Registration *usecase.RegistrationService
	Trust        *usecase.ContextTrustService
	Communities  *usecase.CommunityService
	Moderation   *usecase.ModerationService
}

// Dependencies encapsulates the objects required to register routes.
// Gatherer backs /metrics and defaults to the global prometheus registry.
type Dependencies struct {
	Config        *config.AppConfig
	Logger        *zap.Logger
	RateLimiter   *middleware.RateLimiter
	Authenticator *middleware.Authenticator
	Metrics       *middleware.HTTPMetrics
	Gatherer      prometheus.Gatherer
	Services      ServiceSet
	Database      DatabaseChecker
	Cache         CacheChecker
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
	if deps.Config != nil && deps.Config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.EnrichContext())
	r.Use(middleware.Logger(deps.Logger))
	r.Use(deps.Metrics.Handler())

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

	gatherer := deps.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, handlers.NewErrorResponse(c, "route not found"))
	})

	api := r.Group("/api/v1")
	{
		authGroup := api.Group("/auth")
		authHandler := handlers.NewAuthHandler(deps.Services.Auth, deps.Services.Registration, deps.Logger)
		authHandler.RegisterRoutes(authGroup,
			buildRateLimit(deps, "auth_register_ip", registerLimit(deps.Config)),
			buildRateLimit(deps, "auth_login_ip", loginLimit(deps.Config)),
		)

		if deps.Authenticator == nil {
			return r
		}

		protected := api.Group("")
		protected.Use(deps.Authenticator.RequireAuth())

		if deps.Services.Trust != nil {
			handlers.NewContextHandler(deps.Services.Trust, deps.Logger).RegisterRoutes(protected)
		}
		if deps.Services.Communities != nil {
			handlers.NewCommunityHandler(deps.Services.Communities, deps.Logger).RegisterRoutes(protected)
		}
		if deps.Services.Moderation != nil {
			moderationHandler := handlers.NewModerationHandler(deps.Services.Moderation, deps.Logger)
			moderationHandler.RegisterRoutes(protected)
			moderationHandler.RegisterAdminRoutes(protected, deps.Authenticator.RequireRole(domain.UserRoleAdmin))
		}
	}

	return r
}

func loginLimit(cfg *config.AppConfig) int {
	if cfg == nil {
		return 0
	}
	return cfg.RateLimit.LoginMaxAttempts
}

func registerLimit(cfg *config.AppConfig) int {
	if cfg == nil {
		return 0
	}
	return cfg.RateLimit.RegisterMaxAttempts
}

func buildRateLimit(deps Dependencies, name string, limit int) gin.HandlerFunc {
	if deps.RateLimiter == nil || deps.Config == nil || limit <= 0 {
		return nil
	}

	window := deps.Config.RateLimit.WindowDuration
	if window <= 0 {
		window = time.Minute
	}

	return deps.RateLimiter.RateLimit(middleware.RateLimitRule{
		Name:       name,
		Limit:      limit,
		Window:     window,
		Identifier: middleware.ClientIPIdentifier(),
	})
}
