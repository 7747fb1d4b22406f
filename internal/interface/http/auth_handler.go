package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-ddd-user-management/config"
	userapp "github.com/oksasatya/go-ddd-user-management/internal/application"
	"github.com/oksasatya/go-ddd-user-management/internal/domain/entity"
	"github.com/oksasatya/go-ddd-user-management/internal/interface/middleware"
	"github.com/oksasatya/go-ddd-user-management/pkg/helpers"
	"github.com/oksasatya/go-ddd-user-management/pkg/validation"
)

type AuthHandler struct {
	Svc     *userapp.Service
	Auth    *userapp.AuthService
	Pub     JobPublisher
	Logger  *logrus.Logger
	Cfg     *config.Config
	Cookies *helpers.Manager
}

func NewAuthHandler(svc *userapp.Service, auth *userapp.AuthService, pub JobPublisher, logger *logrus.Logger, cfg *config.Config) *AuthHandler {
	return &AuthHandler{
		Svc:     svc,
		Auth:    auth,
		Pub:     pub,
		Logger:  logger,
		Cfg:     cfg,
		Cookies: helpers.NewCookie(cfg.CookieDomain, cfg.CookieSecure),
	}
}

type loginRequest struct {
	Email    string `form:"email" binding:"required,email"`
	Password string `form:"password" binding:"required"`
}

// LoginForm GET /login
func (h *AuthHandler) LoginForm(c *gin.Context) {
	render(c, http.StatusOK, "auth/login", newPage(c, "Login"))
}

// Login POST /login
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBind(&req); err != nil {
		h.invalid(c, http.StatusUnprocessableEntity, "auth/login", "Login", validation.ToDetails(err))
		return
	}
	u, tok, err := h.Auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, userapp.ErrInvalidCredentials) {
			h.invalid(c, http.StatusUnauthorized, "auth/login", "Login", map[string]string{"form": "These credentials do not match our records."})
			return
		}
		renderError(c, h.Logger, err)
		return
	}
	h.Cookies.SetAccess(c, tok.Token, tok.ExpiresAt)
	helpers.LogInfo(h.Logger, "user logged in", logrus.Fields{"user_id": u.ID, "ip": c.ClientIP()})
	c.Redirect(http.StatusSeeOther, "/home")
}

// RegisterForm GET /register
func (h *AuthHandler) RegisterForm(c *gin.Context) {
	render(c, http.StatusOK, "auth/register", newPage(c, "Register"))
}

// Register POST /register creates the user and signs them in.
func (h *AuthHandler) Register(c *gin.Context) {
	var req createUserRequest
	if err := c.ShouldBind(&req); err != nil {
		h.invalid(c, http.StatusUnprocessableEntity, "auth/register", "Register", validation.ToDetails(err))
		return
	}
	ctx := c.Request.Context()
	u, err := h.Svc.Store(ctx, entity.StoreUserInput{Name: req.Name, Email: req.Email, Password: req.Password})
	if err != nil {
		if details, ok := writeErrorDetails(err); ok {
			h.invalid(c, http.StatusUnprocessableEntity, "auth/register", "Register", details)
			return
		}
		renderError(c, h.Logger, err)
		return
	}
	usersCreated.Add(1)
	enqueueWelcome(c, h.Pub, h.Cfg, h.Logger, u)

	tok, err := h.Auth.IssueToken(ctx, u)
	if err != nil {
		// the account exists; let the user sign in normally
		c.Redirect(http.StatusSeeOther, "/login")
		return
	}
	h.Cookies.SetAccess(c, tok.Token, tok.ExpiresAt)
	helpers.LogInfo(h.Logger, "user registered", logrus.Fields{"user_id": u.ID})
	c.Redirect(http.StatusSeeOther, "/home")
}

// Logout POST /logout
func (h *AuthHandler) Logout(c *gin.Context) {
	if uid, ok := middleware.UserIDFromCtx(c); ok {
		if err := h.Auth.Logout(c.Request.Context(), uid); err != nil {
			helpers.LogError(h.Logger, "drop session failed", err, logrus.Fields{"user_id": uid})
		}
	}
	h.Cookies.Clear(c)
	c.Redirect(http.StatusSeeOther, "/login")
}

// Home GET /home
func (h *AuthHandler) Home(c *gin.Context) {
	render(c, http.StatusOK, "home", newPage(c, "Home"))
}

func (h *AuthHandler) invalid(c *gin.Context, status int, view, title string, details map[string]string) {
	p := newPage(c, title)
	p.Errors = details
	p.Old = map[string]string{
		"name":  c.PostForm("name"),
		"email": c.PostForm("email"),
	}
	render(c, status, view, p)
}
