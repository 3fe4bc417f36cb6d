package app

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/blogverse/blogverse/internal/config"
	"github.com/blogverse/blogverse/internal/observability"
)

// App bundles everything main needs to run and later tear down.
type App struct {
	Config        *config.Config
	Logger        *slog.Logger
	Server        *http.Server
	Observability *observability.Runtime
	DB            *gorm.DB
	Redis         *redis.Client
}

func New(
	cfg *config.Config,
	logger *slog.Logger,
	server *http.Server,
	runtime *observability.Runtime,
	db *gorm.DB,
	redisClient *redis.Client,
) *App {
	return &App{
		Config:        cfg,
		Logger:        logger,
		Server:        server,
		Observability: runtime,
		DB:            db,
		Redis:         redisClient,
	}
}

func (a *App) ShutdownTimeout() time.Duration {
	if a.Config != nil && a.Config.ShutdownTimeout > 0 {
		return a.Config.ShutdownTimeout
	}
	return 20 * time.Second
}
