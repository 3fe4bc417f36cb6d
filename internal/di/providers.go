package di

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/wire"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/blogverse/blogverse/internal/app"
	"github.com/blogverse/blogverse/internal/config"
	"github.com/blogverse/blogverse/internal/database"
	"github.com/blogverse/blogverse/internal/health"
	"github.com/blogverse/blogverse/internal/http/handler"
	"github.com/blogverse/blogverse/internal/http/router"
	"github.com/blogverse/blogverse/internal/observability"
	"github.com/blogverse/blogverse/internal/repository"
	"github.com/blogverse/blogverse/internal/security"
	"github.com/blogverse/blogverse/internal/service"
)

var ConfigSet = wire.NewSet(config.Load)

var ObservabilitySet = wire.NewSet(
	provideObservabilityRuntime,
	provideAppLogger,
)

var RuntimeInfraSet = wire.NewSet(
	provideRuntimeDB,
	provideRedisClient,
	provideReadinessProbeRunner,
)

var RepositorySet = wire.NewSet(
	repository.NewUserRepository,
	repository.NewCredentialTokenRepository,
	repository.NewStoryRepository,
	repository.NewCommentRepository,
	repository.NewFollowRepository,
	repository.NewTagRepository,
	repository.NewAtomic,
)

var SecuritySet = wire.NewSet(provideJWTManager)

var ServiceSet = wire.NewSet(
	service.NewCredentialTokenStore,
	provideEmailNotifier,
	service.NewAuthService,
	provideAvatarStorage,
	provideUserService,
	service.NewStoryService,
	service.NewCommentService,
	service.NewFollowService,
	provideTagService,
)

var HTTPSet = wire.NewSet(
	handler.NewAuthHandler,
	handler.NewUserHandler,
	handler.NewStoryHandler,
	handler.NewCommentHandler,
	handler.NewFollowHandler,
	handler.NewTagHandler,
	provideRouterDependencies,
	router.NewRouter,
	provideHTTPServer,
)

var AppSet = wire.NewSet(app.New)

// MigrationRunner applies schema and seed data outside the server process.
type MigrationRunner struct {
	db *gorm.DB
}

func NewMigrationRunner(db *gorm.DB) *MigrationRunner {
	return &MigrationRunner{db: db}
}

func (m *MigrationRunner) Run() (*database.SeedReport, error) {
	if err := database.Migrate(m.db); err != nil {
		return nil, err
	}
	return database.SeedSync(m.db)
}

func provideObservabilityRuntime(cfg *config.Config) (*observability.Runtime, error) {
	bootstrapLogger := observability.NewBootstrapLogger(cfg)
	return observability.InitRuntime(context.Background(), cfg, bootstrapLogger)
}

func provideAppLogger(cfg *config.Config, runtime *observability.Runtime) *slog.Logger {
	return observability.InitLogger(cfg, runtime.LoggerProvider)
}

func provideOpenDB(cfg *config.Config) (*gorm.DB, error) {
	return database.Open(cfg)
}

func provideRuntimeDB(cfg *config.Config) (*gorm.DB, error) {
	db, err := database.Open(cfg)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(db); err != nil {
		return nil, err
	}
	if err := database.Seed(db); err != nil {
		return nil, err
	}
	return db, nil
}

func provideRedisClient(cfg *config.Config) *redis.Client {
	if !cfg.RedisEnabled {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
}

func provideJWTManager(cfg *config.Config) *security.JWTManager {
	return security.NewJWTManager(cfg.JWTIssuer, cfg.JWTAudience, cfg.JWTSecret, cfg.JWTTTL)
}

// provideEmailNotifier picks SMTP when configured, otherwise the
// development notifier that logs the links instead of sending them.
func provideEmailNotifier(cfg *config.Config, logger *slog.Logger) (service.EmailNotifier, error) {
	if cfg.SMTPEnabled {
		return service.NewSMTPEmailNotifier(cfg)
	}
	return service.NewDevEmailNotifier(logger), nil
}

func provideAvatarStorage(cfg *config.Config) (*service.MinIOAvatarStorage, error) {
	if !cfg.MinIOEnabled {
		return nil, nil
	}
	return service.NewMinIOAvatarStorage(
		cfg.MinIOEndpoint,
		cfg.MinIOAccessKey,
		cfg.MinIOSecretKey,
		cfg.MinIOBucket,
		cfg.MinIOUseSSL,
	)
}

func provideUserService(users repository.UserRepository, storage *service.MinIOAvatarStorage, logger *slog.Logger) *service.UserService {
	// A nil *MinIOAvatarStorage must stay a nil interface, or the service
	// would try to call through it.
	if storage == nil {
		return service.NewUserService(users, nil, logger)
	}
	return service.NewUserService(users, storage, logger)
}

func provideTagService(tags repository.TagRepository, cfg *config.Config, cache *redis.Client, logger *slog.Logger) *service.TagService {
	return service.NewTagService(tags, cache, cfg.TagCacheTTL, logger)
}

func provideRouterDependencies(
	authHandler *handler.AuthHandler,
	userHandler *handler.UserHandler,
	storyHandler *handler.StoryHandler,
	commentHandler *handler.CommentHandler,
	followHandler *handler.FollowHandler,
	tagHandler *handler.TagHandler,
	jwt *security.JWTManager,
	readiness *health.ProbeRunner,
	cfg *config.Config,
) router.Dependencies {
	return router.Dependencies{
		AuthHandler:    authHandler,
		UserHandler:    userHandler,
		StoryHandler:   storyHandler,
		CommentHandler: commentHandler,
		FollowHandler:  followHandler,
		TagHandler:     tagHandler,
		JWTManager:     jwt,
		CORSOrigins:    cfg.CORSAllowedOrigins,
		Readiness:      readiness,
		EnableOTelHTTP: cfg.OTELMetricsEnabled || cfg.OTELTracingEnabled,
	}
}

func provideHTTPServer(cfg *config.Config, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           h,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

func provideReadinessProbeRunner(cfg *config.Config, db *gorm.DB, redisClient *redis.Client, storage *service.MinIOAvatarStorage) *health.ProbeRunner {
	checkers := make([]health.Checker, 0, 3)
	if c := health.NewDBChecker(db); c != nil {
		checkers = append(checkers, c)
	}
	if redisClient != nil {
		if c := health.NewRedisChecker(redisClient); c != nil {
			checkers = append(checkers, c)
		}
	}
	if storage != nil {
		if c := health.NewMinIOChecker(storage.Client(), storage.Bucket()); c != nil {
			checkers = append(checkers, c)
		}
	}
	return health.NewProbeRunner(cfg.ReadinessProbeTimeout, checkers...)
}
