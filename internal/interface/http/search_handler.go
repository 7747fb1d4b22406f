package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-ddd-user-management/internal/infrastructure/search"
	"github.com/oksasatya/go-ddd-user-management/pkg/helpers"
	"github.com/oksasatya/go-ddd-user-management/pkg/response"
)

type UserSearcher interface {
	Search(ctx context.Context, q string, size int) ([]search.UserDocument, error)
}

type SearchHandler struct {
	Searcher UserSearcher
	Logger   *logrus.Logger
}

func NewSearchHandler(s UserSearcher, logger *logrus.Logger) *SearchHandler {
	return &SearchHandler{Searcher: s, Logger: logger}
}

// Search GET /users/search?q=...&size=...
func (h *SearchHandler) Search(c *gin.Context) {
	q := strings.TrimSpace(c.Query("q"))
	if q == "" {
		response.Error[any](c, http.StatusBadRequest, "query is required", map[string]string{"q": "is required"})
		return
	}
	size, _ := strconv.Atoi(c.Query("size"))

	docs, err := h.Searcher.Search(c.Request.Context(), q, size)
	if err != nil {
		helpers.LogError(h.Logger, "user search failed", err, logrus.Fields{"q": q})
		response.Error[any](c, http.StatusBadGateway, "search unavailable", nil)
		return
	}
	response.Success(c, http.StatusOK, docs, "users", map[string]any{"count": len(docs)})
}
