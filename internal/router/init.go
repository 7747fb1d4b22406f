package router

import (
	"github.com/redis/go-redis/v9"

	userapp "github.com/oksasatya/go-ddd-user-management/internal/application"
	"github.com/oksasatya/go-ddd-user-management/internal/container"
	handlers "github.com/oksasatya/go-ddd-user-management/internal/interface/http"
	"github.com/oksasatya/go-ddd-user-management/internal/interface/middleware"
	"github.com/oksasatya/go-ddd-user-management/internal/router/modules"
)

// InitModules builds services and handlers from the container and registers every module.
// Call once during startup, before RegisterAll.
func InitModules(r *Registry, c *container.Container) {
	cfg := c.Config

	var limiter *redis.Client
	if cfg.RateLimitEnabled {
		limiter = c.Redis
	}

	// untyped nil keeps the handler's nil check meaningful when no broker is configured
	var pub handlers.JobPublisher
	if c.Publisher != nil {
		pub = c.Publisher
	}

	service := userapp.NewService(c.Repo)
	auth := userapp.NewAuthService(c.Users, c.JWT, c.Redis, c.Logger)

	r.Use(
		middleware.TrimStrings("password", "password_confirmation"),
		middleware.Identify(c.Redis, c.JWT),
	)

	r.Add(modules.NewUserModule(handlers.NewUserHandler(service, c.Users, pub, c.Logger, cfg), limiter))
	r.Add(modules.NewAuthModule(handlers.NewAuthHandler(service, auth, pub, c.Logger, cfg), c.Redis, c.JWT, limiter))
	if c.Search != nil {
		r.Add(modules.NewSearchModule(handlers.NewSearchHandler(c.Search, c.Logger), limiter))
	}
	if cfg.DebugMetricsEnabled {
		r.Add(modules.NewDebugModule(limiter))
	}
}
