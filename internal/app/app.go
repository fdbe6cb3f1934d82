package app

import (
	"log/slog"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/sandeepkv93/secure-session-auth-service/internal/config"
	"github.com/sandeepkv93/secure-session-auth-service/internal/health"
	"github.com/sandeepkv93/secure-session-auth-service/internal/observability"
	"github.com/sandeepkv93/secure-session-auth-service/internal/service"
)

// App holds the wired services for one process. Resource lifetimes belong to
// the cleanup returned alongside it by di.InitializeApp.
type App struct {
	Config        *config.Config
	Logger        *slog.Logger
	DB            *gorm.DB
	Redis         redis.UniversalClient
	Auth          *service.AuthService
	Users         *service.UserService
	Sessions      *service.SessionService
	Readiness     *health.ProbeRunner
	Observability *observability.Runtime
}

func New(
	cfg *config.Config,
	logger *slog.Logger,
	db *gorm.DB,
	redisClient redis.UniversalClient,
	auth *service.AuthService,
	users *service.UserService,
	sessions *service.SessionService,
	readiness *health.ProbeRunner,
	runtime *observability.Runtime,
) *App {
	return &App{
		Config:        cfg,
		Logger:        logger,
		DB:            db,
		Redis:         redisClient,
		Auth:          auth,
		Users:         users,
		Sessions:      sessions,
		Readiness:     readiness,
		Observability: runtime,
	}
}
