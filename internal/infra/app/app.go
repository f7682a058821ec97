package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/arklim/social-platform-trust/internal/core/port"
	"github.com/arklim/social-platform-trust/internal/infra/config"
	"github.com/arklim/social-platform-trust/internal/infra/database"
	kafkainfra "github.com/arklim/social-platform-trust/internal/infra/kafka"
	"github.com/arklim/social-platform-trust/internal/infra/logger"
	redisinfra "github.com/arklim/social-platform-trust/internal/infra/redis"
	"github.com/arklim/social-platform-trust/internal/infra/security"
	"github.com/arklim/social-platform-trust/internal/infra/telemetry"
	postgresrepo "github.com/arklim/social-platform-trust/internal/repository/postgres"
	redisrepo "github.com/arklim/social-platform-trust/internal/repository/redis"
	"github.com/arklim/social-platform-trust/internal/transport/http/middleware"
	"github.com/arklim/social-platform-trust/internal/transport/http/routes"
	"github.com/arklim/social-platform-trust/internal/usecase"
)

type Application struct {
	cfg      *config.AppConfig
	engine   *gin.Engine
	logger   *zap.Logger
	pool     *pgxpool.Pool
	redis    *redisinfra.Client
	producer *kafkainfra.Producer
}

func New(ctx context.Context, cfg *config.AppConfig) (*Application, error) {
	log, err := logger.New(cfg.App.Env)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	pool, err := database.NewPostgresPool(ctx, cfg.Postgres, cfg.App.Name, log)
	if err != nil {
		return nil, fmt.Errorf("init postgres: %w", err)
	}

	if cfg.App.MigrateOnStart {
		if err := database.Migrate(ctx, pool, database.Migrations(), log); err != nil {
			pool.Close()
			return nil, fmt.Errorf("apply migrations: %w", err)
		}
	}

	hasher, err := security.NewArgon2Hasher(security.Argon2Config{
		Memory:      cfg.Argon2.Memory,
		Iterations:  cfg.Argon2.Iterations,
		Parallelism: cfg.Argon2.Parallelism,
		SaltLength:  cfg.Argon2.SaltLength,
		KeyLength:   cfg.Argon2.KeyLength,
	})
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("configure argon2: %w", err)
	}

	tokens, err := security.NewTokenManager(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.AccessTokenTTL)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("init token manager: %w", err)
	}

	redisClient, err := redisinfra.NewClient(ctx, cfg.Redis, log)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("init redis: %w", err)
	}

	preferenceCache := redisrepo.NewPreferenceCache(redisClient.Client(), cfg.Redis.PreferencePrefix)
	attemptLimiter := redisrepo.NewAttemptLimiter(redisClient.Client(), cfg.Redis.RateLimitPrefix)

	repos := postgresrepo.NewRepositories(pool, cfg.Postgres.QueryTimeout)

	var (
		eventPublisher port.EventPublisher
		producer       *kafkainfra.Producer
	)
	if cfg.Kafka.Enabled && len(cfg.Kafka.Brokers) > 0 {
		producer, err = kafkainfra.NewProducer(cfg.Kafka, log)
		if err != nil {
			log.Warn("failed to init kafka producer, using stub publisher", zap.Error(err))
			eventPublisher = kafkainfra.NewStubPublisher(log)
		} else {
			eventPublisher = kafkainfra.NewEventPublisher(producer, cfg.App, log)
			log.Info("kafka event publisher initialized", zap.Strings("brokers", cfg.Kafka.Brokers))
		}
	} else {
		log.Info("kafka disabled, using stub publisher")
		eventPublisher = kafkainfra.NewStubPublisher(log)
	}

	metrics := telemetry.NewMetrics(prometheus.DefaultRegisterer)
	httpMetrics, err := middleware.NewHTTPMetrics(middleware.HTTPMetricsOptions{})
	if err != nil {
		_ = redisClient.Close()
		pool.Close()
		return nil, fmt.Errorf("init http metrics: %w", err)
	}

	trustService := usecase.NewContextTrustService(
		repos.Contexts,
		repos.Preferences,
		cfg.Trust.MaxUnverifiedAttempts,
		log,
		usecase.WithPreferenceCache(preferenceCache, cfg.Redis.PreferenceTTL),
		usecase.WithTrustEvents(eventPublisher),
		usecase.WithTrustObserver(metrics),
	)
	authService := usecase.NewAuthService(repos.Users, hasher, tokens, trustService, log)
	registrationService := usecase.NewRegistrationService(repos.Users, hasher, security.DefaultPasswordPolicy(), trustService, log)
	communityService := usecase.NewCommunityService(repos.Communities, repos.Users, repos.Posts, log)
	moderationService := usecase.NewModerationService(
		repos.Communities,
		repos.Users,
		repos.Posts,
		repos.Reports,
		log,
		usecase.WithModerationEvents(eventPublisher),
		usecase.WithModerationObserver(metrics),
	)

	if cfg.Auth.TrustUserIDHeader {
		log.Warn("user-id header accepted as caller identity", zap.String("env", cfg.App.Env))
	}

	engine := routes.Register(routes.Dependencies{
		Config:        cfg,
		Logger:        log,
		RateLimiter:   middleware.NewRateLimiter(attemptLimiter, log),
		Authenticator: middleware.NewAuthenticator(tokens, repos.Users, cfg.Auth.TrustUserIDHeader, log),
		Metrics:       httpMetrics,
		Database:      database.NewHealth(pool, cfg.Postgres.QueryTimeout),
		Cache:         redisClient,
		Services: routes.ServiceSet{
			Auth:         authService,
			Registration: registrationService,
			Trust:        trustService,
			Communities:  communityService,
			Moderation:   moderationService,
		},
	})

	return &Application{
		cfg:      cfg,
		engine:   engine,
		logger:   log,
		pool:     pool,
		redis:    redisClient,
		producer: producer,
	}, nil
}

func (a *Application) Run(ctx context.Context) error {
	defer func() {
		_ = a.logger.Sync()
	}()
	defer func() {
		if a.pool != nil {
			a.pool.Close()
		}
	}()
	defer func() {
		if a.redis != nil {
			_ = a.redis.Close()
		}
	}()
	defer func() {
		if a.producer != nil {
			if err := a.producer.Close(); err != nil {
				a.logger.Warn("failed to close kafka producer", zap.Error(err))
			}
		}
	}()

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", a.cfg.App.Host, a.cfg.App.Port),
		Handler:           a.engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	a.logger.Info("starting trust API",
		zap.String("env", a.cfg.App.Env),
		zap.String("address", srv.Addr),
	)

	serverErrCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrCh <- fmt.Errorf("run server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown server: %w", err)
		}
		a.logger.Info("trust API stopped")
		return nil
	case err := <-serverErrCh:
		return err
	}
}
