package modules

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	handlers "github.com/oksasatya/go-ddd-user-management/internal/interface/http"
	"github.com/oksasatya/go-ddd-user-management/internal/interface/middleware"
	"github.com/oksasatya/go-ddd-user-management/pkg/helpers"
)

type AuthModule struct {
	Handler *handlers.AuthHandler
	Session *redis.Client
	JWT     *helpers.JWTManager
	Limiter *redis.Client
}

func NewAuthModule(h *handlers.AuthHandler, session *redis.Client, jwt *helpers.JWTManager, limiter *redis.Client) *AuthModule {
	return &AuthModule{Handler: h, Session: session, JWT: jwt, Limiter: limiter}
}

func (m *AuthModule) Register(rg *gin.RouterGroup) {
	// Public with rate limiting
	loginLimiter := middleware.RateLimit(m.Limiter, 10, time.Minute, middleware.KeyByIPAndPath(), nil)
	registerLimiter := middleware.RateLimit(m.Limiter, 5, time.Minute, middleware.KeyByIPAndPath(), nil)

	rg.GET("/login", m.Handler.LoginForm)
	rg.POST("/login", loginLimiter, m.Handler.Login)
	rg.GET("/register", m.Handler.RegisterForm)
	rg.POST("/register", registerLimiter, m.Handler.Register)
	rg.POST("/logout", m.Handler.Logout)

	// Protected
	auth := rg.Group("/")
	auth.Use(middleware.Auth(m.Session, m.JWT, "/login"))
	auth.Use(middleware.RateLimit(m.Limiter, 120, time.Minute, middleware.KeyByUserID(), nil))
	{
		auth.GET("/home", m.Handler.Home)
	}
}
