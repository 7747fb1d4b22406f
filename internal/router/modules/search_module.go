package modules

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	handlers "github.com/oksasatya/go-ddd-user-management/internal/interface/http"
	"github.com/oksasatya/go-ddd-user-management/internal/interface/middleware"
)

// SearchModule exposes GET /users/search backed by Elasticsearch.
type SearchModule struct {
	Handler *handlers.SearchHandler
	Redis   *redis.Client
}

func NewSearchModule(h *handlers.SearchHandler, rdb *redis.Client) *SearchModule {
	return &SearchModule{Handler: h, Redis: rdb}
}

func (m *SearchModule) Register(rg *gin.RouterGroup) {
	rl := middleware.RateLimit(m.Redis, 120, time.Minute, middleware.KeyByUserID(), nil)
	rg.GET("/users/search", rl, m.Handler.Search)
}
