package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/washlytics/tenant-onboarding/internal/core/port"
	"github.com/washlytics/tenant-onboarding/internal/infra/config"
	"github.com/washlytics/tenant-onboarding/internal/infra/database"
	kafkainfra "github.com/washlytics/tenant-onboarding/internal/infra/kafka"
	"github.com/washlytics/tenant-onboarding/internal/infra/logger"
	redisinfra "github.com/washlytics/tenant-onboarding/internal/infra/redis"
	"github.com/washlytics/tenant-onboarding/internal/infra/security"
	smsinfra "github.com/washlytics/tenant-onboarding/internal/infra/sms"
	"github.com/washlytics/tenant-onboarding/internal/infra/telemetry"
	postgresrepo "github.com/washlytics/tenant-onboarding/internal/repository/postgres"
	redisrepo "github.com/washlytics/tenant-onboarding/internal/repository/redis"
	"github.com/washlytics/tenant-onboarding/internal/transport/http/middleware"
	"github.com/washlytics/tenant-onboarding/internal/transport/http/routes"
	"github.com/washlytics/tenant-onboarding/internal/usecase"
)

type Application struct {
	cfg    *config.AppConfig
	engine *gin.Engine
	logger *zap.Logger
	pool   *pgxpool.Pool
	redis  *redisinfra.Client
	kafka  *kafkainfra.Producer
}

func New(ctx context.Context, cfg *config.AppConfig) (*Application, error) {
	log, err := logger.New(cfg.App.Env)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	if _, err := telemetry.Attach(ctx, cfg); err != nil {
		return nil, fmt.Errorf("init telemetry: %w", err)
	}

	pool, err := database.NewPostgresPool(ctx, cfg.Postgres, log)
	if err != nil {
		return nil, fmt.Errorf("init postgres: %w", err)
	}

	argonCfg := security.Argon2Config{
		Memory:      cfg.Argon2.Memory,
		Iterations:  cfg.Argon2.Iterations,
		Parallelism: cfg.Argon2.Parallelism,
		SaltLength:  cfg.Argon2.SaltLength,
		KeyLength:   cfg.Argon2.KeyLength,
	}
	if err := security.ConfigureArgon2(argonCfg); err != nil {
		return nil, fmt.Errorf("configure argon2: %w", err)
	}

	loginTokens, err := buildLoginTokenManager(cfg, log)
	if err != nil {
		return nil, err
	}

	redisClient, err := redisinfra.NewClient(cfg.Redis, log)
	if err != nil {
		return nil, fmt.Errorf("init redis: %w", err)
	}

	repos := postgresrepo.NewRepositories(pool)
	uow := postgresrepo.NewUnitOfWork(pool, repos)

	verificationStore := redisrepo.NewVerificationRepository(redisClient.Client(), cfg.Redis.VerificationPrefix)
	idempotencyStore := redisrepo.NewIdempotencyRepository(redisClient.Client(), cfg.Redis.IdempotencyPrefix)

	rateLimitStore := redisrepo.NewRateLimitRepository(redisClient.Client(), cfg.Redis.RateLimitPrefix)
	rateLimiter := middleware.NewRateLimiter(rateLimitStore, log)

	var kafkaProducer *kafkainfra.Producer
	var eventPublisher port.EventPublisher
	if len(cfg.Kafka.Brokers) > 0 {
		producer, err := kafkainfra.NewProducer(cfg.Kafka, log)
		if err != nil {
			log.Warn("failed to init kafka producer, using stub publisher", zap.Error(err))
			eventPublisher = kafkainfra.NewStubPublisher(log)
		} else {
			kafkaProducer = producer
			eventPublisher = kafkainfra.NewEventPublisher(producer, cfg.App, log)
			log.Info("kafka event publisher initialized", zap.Strings("brokers", cfg.Kafka.Brokers))
		}
	} else {
		log.Info("kafka brokers not configured, using stub publisher")
		eventPublisher = kafkainfra.NewStubPublisher(log)
	}

	var smsSender port.SMSSender
	if cfg.SMS.GatewayURL != "" {
		smsSender = smsinfra.NewGatewaySender(cfg.SMS, log)
		log.Info("sms gateway sender initialized", zap.String("gateway_url", cfg.SMS.GatewayURL))
	} else {
		smsSender = smsinfra.NewLogSender(log, cfg.App.Env)
		log.Info("sms gateway not configured, using log sender")
	}

	onboardingService := usecase.NewOnboardingService(
		repos.Tenants,
		repos.Users,
		uow,
		verificationStore,
		eventPublisher,
		security.DefaultPasswordValidator(),
	).WithLogger(log).
		WithVerificationTTL(cfg.Verification.EmailTTL)

	phoneAuthService := usecase.NewPhoneAuthService(
		repos.Users,
		repos.Tenants,
		uow,
		verificationStore,
		smsSender,
		loginTokens,
		eventPublisher,
		usecase.VerificationConfig{
			CodeLength:  cfg.Verification.CodeLength,
			CodeTTL:     cfg.Verification.CodeTTL,
			MaxAttempts: cfg.Verification.MaxAttempts,
		},
	).WithLogger(log).
		WithIdempotencyStore(idempotencyStore)

	metrics, err := middleware.NewHTTPMetrics(middleware.HTTPMetricsOptions{})
	if err != nil {
		_ = redisClient.Close()
		return nil, fmt.Errorf("init http metrics: %w", err)
	}

	engine := routes.Register(routes.Dependencies{
		Config:      cfg,
		Logger:      log,
		RateLimiter: rateLimiter,
		Metrics:     metrics,
		Database:    pool,
		Cache:       redisClient,
		Services: routes.ServiceSet{
			Onboarding: onboardingService,
			PhoneAuth:  phoneAuthService,
		},
	})

	return &Application{
		cfg:    cfg,
		engine: engine,
		logger: log,
		pool:   pool,
		redis:  redisClient,
		kafka:  kafkaProducer,
	}, nil
}

func buildLoginTokenManager(cfg *config.AppConfig, log *zap.Logger) (*security.LoginTokenManager, error) {
	secret := cfg.LoginToken.Secret
	if secret == "" {
		if cfg.App.Env == "production" {
			return nil, fmt.Errorf("login token secret is required in production")
		}
		generated, err := security.GenerateSecureToken(32)
		if err != nil {
			return nil, fmt.Errorf("generate login token secret: %w", err)
		}
		secret = generated
		log.Warn("login token secret not configured, generated ephemeral secret; tokens will not survive restarts")
	}

	manager, err := security.NewLoginTokenManager(secret, cfg.LoginToken.Issuer, cfg.LoginToken.TTL)
	if err != nil {
		return nil, fmt.Errorf("init login token manager: %w", err)
	}
	return manager, nil
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
		if a.kafka != nil {
			_ = a.kafka.Close()
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

	a.logger.Info("starting onboarding API",
		zap.String("env", a.cfg.App.Env),
		zap.String("address", srv.Addr),
	)

	serverErrCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
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
		return nil
	case err := <-serverErrCh:
		return err
	}
}
