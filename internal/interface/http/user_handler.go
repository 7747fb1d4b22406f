package handlers

import (
	"context"
	"errors"
	"expvar"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-ddd-user-management/config"
	userapp "github.com/oksasatya/go-ddd-user-management/internal/application"
	"github.com/oksasatya/go-ddd-user-management/internal/domain/entity"
	repo "github.com/oksasatya/go-ddd-user-management/internal/domain/repository"
	"github.com/oksasatya/go-ddd-user-management/pkg/helpers"
	"github.com/oksasatya/go-ddd-user-management/pkg/mailer"
	tpl "github.com/oksasatya/go-ddd-user-management/pkg/mailer/templates"
	"github.com/oksasatya/go-ddd-user-management/pkg/validation"
)

var (
	usersCreated = expvar.NewInt("users_created_total")
	usersUpdated = expvar.NewInt("users_updated_total")
	usersDeleted = expvar.NewInt("users_deleted_total")
)

// JobPublisher puts background jobs on a queue. *helpers.RabbitPublisher implements it.
type JobPublisher interface {
	PublishJSON(ctx context.Context, body any) error
}

type UserHandler struct {
	Svc     *userapp.Service
	Counter repo.UserCounter
	Pub     JobPublisher
	Logger  *logrus.Logger
	Cfg     *config.Config
}

func NewUserHandler(svc *userapp.Service, counter repo.UserCounter, pub JobPublisher, logger *logrus.Logger, cfg *config.Config) *UserHandler {
	return &UserHandler{Svc: svc, Counter: counter, Pub: pub, Logger: logger, Cfg: cfg}
}

type createUserRequest struct {
	Name                 string `form:"name" binding:"required,username"`
	Email                string `form:"email" binding:"required,email,max=255"`
	Password             string `form:"password" binding:"required,max=72"`
	PasswordConfirmation string `form:"password_confirmation" binding:"required,eqfield=Password"`
}

type updateUserRequest struct {
	Name  *string `form:"name" binding:"omitnil,username"`
	Email *string `form:"email" binding:"omitnil,email,max=255"`
}

// Index GET /users
func (h *UserHandler) Index(c *gin.Context) {
	ctx := c.Request.Context()
	users, err := h.Svc.Index(ctx)
	if err != nil {
		renderError(c, h.Logger, err)
		return
	}
	count, err := h.Counter.Count(ctx)
	if err != nil {
		renderError(c, h.Logger, err)
		return
	}
	p := newPage(c, "Users")
	p.Users, p.UserCount = users, count
	render(c, http.StatusOK, "users/index", p)
}

// Create GET /users/create
func (h *UserHandler) Create(c *gin.Context) {
	render(c, http.StatusOK, "users/create", newPage(c, "Create User"))
}

// Store POST /users
func (h *UserHandler) Store(c *gin.Context) {
	var req createUserRequest
	if err := c.ShouldBind(&req); err != nil {
		h.formInvalid(c, "users/create", "Create User", nil, validation.ToDetails(err))
		return
	}

	u, err := h.Svc.Store(c.Request.Context(), entity.StoreUserInput{Name: req.Name, Email: req.Email, Password: req.Password})
	if err != nil {
		if details, ok := writeErrorDetails(err); ok {
			h.formInvalid(c, "users/create", "Create User", nil, details)
			return
		}
		renderError(c, h.Logger, err)
		return
	}
	usersCreated.Add(1)
	helpers.LogInfo(h.Logger, "user created", logrus.Fields{"user_id": u.ID, "request_id": c.GetString("request_id")})
	enqueueWelcome(c, h.Pub, h.Cfg, h.Logger, u)

	c.Redirect(http.StatusSeeOther, "/users")
}

// Show GET /users/:id
func (h *UserHandler) Show(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		notFound(c)
		return
	}
	u, err := h.Svc.Show(c.Request.Context(), id)
	if err != nil {
		renderError(c, h.Logger, err)
		return
	}
	p := newPage(c, u.Name)
	p.User = u
	render(c, http.StatusOK, "users/show", p)
}

// Edit GET /users/edit/:id
func (h *UserHandler) Edit(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		notFound(c)
		return
	}
	u, err := h.Svc.Show(c.Request.Context(), id)
	if err != nil {
		renderError(c, h.Logger, err)
		return
	}
	p := newPage(c, "Edit User")
	p.User = u
	render(c, http.StatusOK, "users/edit", p)
}

// Update PUT/PATCH /users/:id
func (h *UserHandler) Update(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		notFound(c)
		return
	}
	ctx := c.Request.Context()

	var req updateUserRequest
	if err := c.ShouldBind(&req); err != nil {
		h.updateInvalid(c, id, validation.ToDetails(err))
		return
	}

	u, err := h.Svc.Update(ctx, entity.UpdateUserInput{Name: req.Name, Email: req.Email}, id)
	if err != nil {
		if details, ok := writeErrorDetails(err); ok {
			h.updateInvalid(c, id, details)
			return
		}
		renderError(c, h.Logger, err)
		return
	}
	usersUpdated.Add(1)
	helpers.LogInfo(h.Logger, "user updated", logrus.Fields{"user_id": u.ID, "request_id": c.GetString("request_id")})

	c.Redirect(http.StatusSeeOther, "/users/"+strconv.FormatInt(u.ID, 10))
}

// Destroy DELETE /users/:id
func (h *UserHandler) Destroy(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		notFound(c)
		return
	}
	u, err := h.Svc.Destroy(c.Request.Context(), id)
	if err != nil {
		renderError(c, h.Logger, err)
		return
	}
	usersDeleted.Add(1)
	helpers.LogInfo(h.Logger, "user deleted", logrus.Fields{"user_id": u.ID, "request_id": c.GetString("request_id")})

	c.Redirect(http.StatusSeeOther, "/users")
}

func (h *UserHandler) updateInvalid(c *gin.Context, id int64, details map[string]string) {
	u, err := h.Svc.Show(c.Request.Context(), id)
	if err != nil {
		renderError(c, h.Logger, err)
		return
	}
	h.formInvalid(c, "users/edit", "Edit User", u, details)
}

// formInvalid redisplays a form with the submitted values and per-field messages.
func (h *UserHandler) formInvalid(c *gin.Context, view, title string, u *entity.User, details map[string]string) {
	p := newPage(c, title)
	p.User = u
	p.Errors = details
	p.Old = map[string]string{
		"name":  c.PostForm("name"),
		"email": c.PostForm("email"),
	}
	render(c, http.StatusUnprocessableEntity, view, p)
}

// enqueueWelcome publishes the welcome email job for a new user. Failures are logged only.
func enqueueWelcome(c *gin.Context, pub JobPublisher, cfg *config.Config, logger *logrus.Logger, u *entity.User) {
	if pub == nil || cfg == nil || !cfg.MailSendEnabled {
		return
	}
	data := tpl.WelcomeData{
		Name:        u.Name,
		Email:       u.Email,
		AppName:     cfg.AppName,
		CompanyName: cfg.CompanyName,
		LoginURL:    cfg.AppURL + "/login",
	}
	job := mailer.EmailJob{To: u.Email, Template: tpl.Welcome, Data: data.Map()}
	if err := pub.PublishJSON(c.Request.Context(), job); err != nil && logger != nil {
		helpers.LogError(logger, "enqueue welcome email failed", err, logrus.Fields{"user_id": u.ID})
	}
}

// writeErrorDetails turns the store errors a user can fix into form messages.
func writeErrorDetails(err error) (map[string]string, bool) {
	switch {
	case errors.Is(err, repo.ErrDuplicateEmail):
		return map[string]string{"email": "has already been taken"}, true
	case errors.Is(err, helpers.ErrPasswordTooLong):
		return map[string]string{"password": "must be at most 72 bytes"}, true
	case errors.Is(err, entity.ErrRequiredField):
		return map[string]string{"form": err.Error()}, true
	}
	return nil, false
}

func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
