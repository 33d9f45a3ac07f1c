package di

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/wire"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"clinic-federation-service/internal/app"
	"clinic-federation-service/internal/config"
	"clinic-federation-service/internal/database"
	"clinic-federation-service/internal/http/handler"
	"clinic-federation-service/internal/http/middleware"
	"clinic-federation-service/internal/http/router"
	"clinic-federation-service/internal/observability"
	"clinic-federation-service/internal/provisioning"
	"clinic-federation-service/internal/repository"
	"clinic-federation-service/internal/security"
	"clinic-federation-service/internal/service"
)

var ConfigSet = wire.NewSet(config.Load)

var ObservabilitySet = wire.NewSet(provideLogger)

var RuntimeInfraSet = wire.NewSet(provideOpenDB, provideRedisClient)

var RepositorySet = wire.NewSet(
	repository.NewNodeRepository,
	repository.NewExchangeTokenRepository,
	repository.NewSessionRepository,
)

var SecuritySet = wire.NewSet(
	provideJWTManager,
	provideCookieManager,
	wire.Bind(new(service.CredentialCodec), new(*security.JWTManager)),
)

var ServiceSet = wire.NewSet(
	provideProvisioningClient,
	wire.Bind(new(service.ProvisioningClient), new(*provisioning.Client)),
	provideInviteNotifier,
	wire.Bind(new(service.InviteNotifier), new(*service.DevInviteNotifier)),
	provideNodeLifecycleService,
	provideSessionService,
	provideExchangeTokenService,
	provideStorageService,
	wire.Bind(new(middleware.SessionValidator), new(*service.SessionService)),
)

var HTTPSet = wire.NewSet(
	handler.NewNodeHandler,
	handler.NewAuthHandler,
	provideExchangeLimiter,
	provideRouterDependencies,
	router.New,
	provideHTTPServer,
)

var AppSet = wire.NewSet(provideSweeper, app.New)

func provideLogger(cfg *config.Config) *slog.Logger {
	return observability.NewLogger(cfg.Env, cfg.LogLevel)
}

func provideOpenDB(cfg *config.Config) (*gorm.DB, error) {
	return database.Open(cfg)
}

func provideRedisClient(cfg *config.Config) redis.UniversalClient {
	return redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
}

func provideJWTManager(cfg *config.Config) *security.JWTManager {
	return security.NewJWTManager(cfg.JWTIssuer, cfg.JWTAudience, cfg.JWTSecret)
}

func provideCookieManager(cfg *config.Config) *security.CookieManager {
	return security.NewCookieManager("", cfg.Env == "production", "lax")
}

func provideProvisioningClient(cfg *config.Config) *provisioning.Client {
	return provisioning.NewClient(provisioning.Config{
		Timeout:  cfg.RemoteTimeout,
		Username: cfg.RemoteUser,
		Password: cfg.RemotePassword,
	})
}

func provideInviteNotifier(logger *slog.Logger) *service.DevInviteNotifier {
	return service.NewDevInviteNotifier(logger)
}

func provideNodeLifecycleService(
	nodes repository.NodeRepository,
	remote service.ProvisioningClient,
	notifier service.InviteNotifier,
	logger *slog.Logger,
	cfg *config.Config,
) *service.NodeLifecycleService {
	return service.NewNodeLifecycleService(nodes, remote, notifier, logger, cfg.ActivationTokenTTL, cfg.ActivationURLBase)
}

func provideSessionService(
	sessions repository.SessionRepository,
	codec service.CredentialCodec,
	logger *slog.Logger,
	cfg *config.Config,
) *service.SessionService {
	return service.NewSessionService(sessions, codec, logger, cfg.TokenPepper, cfg.SessionTTL)
}

func provideExchangeTokenService(
	tokens repository.ExchangeTokenRepository,
	logger *slog.Logger,
	cfg *config.Config,
) *service.ExchangeTokenService {
	return service.NewExchangeTokenService(tokens, logger, cfg.TokenPepper, cfg.ExchangeTTL)
}

func provideStorageService(cfg *config.Config) (service.StorageService, error) {
	return service.NewMinIOStorageService(
		cfg.MinIOEndpoint,
		cfg.MinIOAccessKey,
		cfg.MinIOSecretKey,
		cfg.MinIOBucket,
		cfg.MinIOUseSSL,
	)
}

// provideExchangeLimiter guards the one-time token redemption endpoint. It
// fails closed: if Redis is unreachable, exchange attempts are rejected
// rather than allowed to probe tokens unthrottled. Requests are keyed by the
// authenticated subject when one is present, by client IP otherwise.
func provideExchangeLimiter(client redis.UniversalClient, cfg *config.Config, jwtMgr *security.JWTManager) *middleware.RateLimiter {
	return middleware.NewDistributedRateLimiterWithKey(
		middleware.NewRedisFixedWindowLimiter(client, "rl:exchange"),
		cfg.ExchangeRateLimitPerMin,
		time.Minute,
		middleware.FailClosed,
		"exchange",
		middleware.SubjectOrIPKeyFunc(jwtMgr),
	)
}

func provideRouterDependencies(
	nodeHandler *handler.NodeHandler,
	authHandler *handler.AuthHandler,
	validator middleware.SessionValidator,
	limiter *middleware.RateLimiter,
	cfg *config.Config,
) router.Dependencies {
	return router.Dependencies{
		NodeHandler:      nodeHandler,
		AuthHandler:      authHandler,
		SessionValidator: validator,
		ExchangeLimiter:  limiter,
		HandoffSecret:    cfg.HandoffSecret,
	}
}

func provideHTTPServer(cfg *config.Config, mux *chi.Mux) *http.Server {
	return &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler:           mux,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

func provideSweeper(
	exchangeSvc *service.ExchangeTokenService,
	sessionSvc *service.SessionService,
	logger *slog.Logger,
	cfg *config.Config,
) *app.Sweeper {
	return app.NewSweeper(cfg.SweepInterval, logger, exchangeSvc, sessionSvc)
}

// MigrationRunner applies schema migrations and exits, used by the migrate
// subcommand.
type MigrationRunner struct {
	db *gorm.DB
}

func NewMigrationRunner(db *gorm.DB) *MigrationRunner {
	return &MigrationRunner{db: db}
}

func (m *MigrationRunner) Run() error {
	return database.Migrate(m.db)
}
