package modules

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	handlers "github.com/oksasatya/go-ddd-user-management/internal/interface/http"
	"github.com/oksasatya/go-ddd-user-management/internal/interface/middleware"
)

// UserModule wires the user CRUD pages:
// GET /users, GET /users/create, POST /users, GET /users/:id, GET /users/edit/:id,
// PUT|PATCH /users/:id, DELETE /users/:id
type UserModule struct {
	Handler *handlers.UserHandler
	Redis   *redis.Client
}

func NewUserModule(h *handlers.UserHandler, rdb *redis.Client) *UserModule {
	return &UserModule{Handler: h, Redis: rdb}
}

func (m *UserModule) Register(rg *gin.RouterGroup) {
	// writes are limited per IP; reads are not
	writeLimiter := middleware.RateLimit(m.Redis, 60, time.Minute, middleware.KeyByIP(), middleware.AllowPrivateIP())

	rg.GET("/", func(c *gin.Context) { c.Redirect(http.StatusFound, "/users") })

	rg.GET("/users", m.Handler.Index)
	rg.GET("/users/create", m.Handler.Create)
	rg.POST("/users", writeLimiter, m.Handler.Store)
	rg.GET("/users/:id", m.Handler.Show)
	rg.GET("/users/edit/:id", m.Handler.Edit)
	rg.PUT("/users/:id", writeLimiter, m.Handler.Update)
	rg.PATCH("/users/:id", writeLimiter, m.Handler.Update)
	rg.DELETE("/users/:id", writeLimiter, m.Handler.Destroy)
}
