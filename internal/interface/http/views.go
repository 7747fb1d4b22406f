package handlers

import (
	"embed"
	"errors"
	"html/template"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-ddd-user-management/internal/domain/entity"
	repo "github.com/oksasatya/go-ddd-user-management/internal/domain/repository"
	"github.com/oksasatya/go-ddd-user-management/internal/interface/middleware"
	"github.com/oksasatya/go-ddd-user-management/pkg/helpers"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// Templates parses the embedded HTML views; install with gin.Engine.SetHTMLTemplate.
func Templates() *template.Template {
	return template.Must(template.New("views").ParseFS(templateFS, "templates/*.tmpl"))
}

// page is the data every view renders from.
type page struct {
	Title     string
	AuthName  string
	Errors    map[string]string
	Old       map[string]string
	Users     []*entity.User
	User      *entity.User
	UserCount int64
	Status    int
	Message   string
}

func newPage(c *gin.Context, title string) page {
	return page{Title: title, AuthName: c.GetString(middleware.CtxUserNameKey)}
}

func render(c *gin.Context, status int, name string, p page) {
	c.HTML(status, name, p)
}

// renderError maps a service error onto the error page: NotFound is 404, anything else 500.
func renderError(c *gin.Context, logger *logrus.Logger, err error) {
	p := newPage(c, "Error")
	if errors.Is(err, repo.ErrNotFound) {
		p.Status, p.Message = http.StatusNotFound, "The requested user does not exist."
		render(c, p.Status, "errors/error", p)
		return
	}
	if logger != nil {
		helpers.LogError(logger, "request failed", err, logrus.Fields{
			"path":       c.Request.URL.Path,
			"method":     c.Request.Method,
			"request_id": c.GetString("request_id"),
		})
	}
	p.Status, p.Message = http.StatusInternalServerError, "Something went wrong."
	render(c, p.Status, "errors/error", p)
}

func notFound(c *gin.Context) {
	renderError(c, nil, repo.ErrNotFound)
}
