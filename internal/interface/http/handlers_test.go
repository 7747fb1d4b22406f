package handlers_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/oksasatya/go-ddd-user-management/config"
	userapp "github.com/oksasatya/go-ddd-user-management/internal/application"
	"github.com/oksasatya/go-ddd-user-management/internal/domain/entity"
	"github.com/oksasatya/go-ddd-user-management/internal/domain/repository"
	"github.com/oksasatya/go-ddd-user-management/internal/infrastructure/migration"
	"github.com/oksasatya/go-ddd-user-management/internal/infrastructure/sqlite"
	handlers "github.com/oksasatya/go-ddd-user-management/internal/interface/http"
	"github.com/oksasatya/go-ddd-user-management/internal/interface/middleware"
	"github.com/oksasatya/go-ddd-user-management/internal/router/modules"
	"github.com/oksasatya/go-ddd-user-management/pkg/helpers"
	"github.com/oksasatya/go-ddd-user-management/pkg/mailer"
	tpl "github.com/oksasatya/go-ddd-user-management/pkg/mailer/templates"
	"github.com/oksasatya/go-ddd-user-management/pkg/validation"
)

func init() {
	gin.SetMode(gin.TestMode)
	validation.Init()
	helpers.PasswordCost = bcrypt.MinCost
}

type fakePublisher struct {
	mu   sync.Mutex
	jobs []mailer.EmailJob
}

func (f *fakePublisher) PublishJSON(_ context.Context, body any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.jobs = append(f.jobs, body.(mailer.EmailJob))
	return nil
}

type app struct {
	handler http.Handler
	repo    *sqlite.UserRepository
	pub     *fakePublisher
}

func newApp(t *testing.T) *app {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	db, err := sqlite.Open(filepath.Join(t.TempDir(), "users.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, migration.Up(db, migration.DriverSQLite, logger))
	repo := sqlite.NewUserRepository(db)

	cfg := &config.Config{AppName: "Users", AppURL: "http://localhost:8080", MailSendEnabled: true}
	jwt := helpers.NewJWTManager("test-secret", time.Hour)
	pub := &fakePublisher{}

	svc := userapp.NewService(repo)
	auth := userapp.NewAuthService(repo, jwt, nil, logger)

	r := gin.New()
	r.SetHTMLTemplate(handlers.Templates())
	r.Use(
		middleware.RequestIDMiddleware(),
		middleware.TrimStrings("password", "password_confirmation"),
		middleware.Identify(nil, jwt),
	)
	modules.NewUserModule(handlers.NewUserHandler(svc, repo, pub, logger, cfg), nil).Register(&r.RouterGroup)
	modules.NewAuthModule(handlers.NewAuthHandler(svc, auth, pub, logger, cfg), nil, jwt, nil).Register(&r.RouterGroup)

	return &app{handler: middleware.MethodOverride(r), repo: repo, pub: pub}
}

func (a *app) get(path string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	a.handler.ServeHTTP(w, req)
	return w
}

func (a *app) post(path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	a.handler.ServeHTTP(w, req)
	return w
}

func (a *app) seed(t *testing.T, name, email string) *entity.User {
	t.Helper()
	u, err := a.repo.Store(context.Background(), entity.StoreUserInput{Name: name, Email: email, Password: "secret"})
	require.NoError(t, err)
	return u
}

func aliceForm() url.Values {
	return url.Values{
		"name":                  {"Alice"},
		"email":                 {"a@x.com"},
		"password":              {"secret"},
		"password_confirmation": {"secret"},
	}
}

func TestIndexListsUsersWithCount(t *testing.T) {
	a := newApp(t)
	a.seed(t, "Alice", "a@x.com")
	a.seed(t, "Bob", "b@x.com")

	w := a.get("/users")
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "<b>Total Users:</b> 2")
	assert.Contains(t, body, "Alice")
	assert.Contains(t, body, "Bob")
	assert.Contains(t, body, `href="/users/edit/1"`)
}

func TestRootRedirectsToIndex(t *testing.T) {
	a := newApp(t)
	w := a.get("/")
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/users", w.Header().Get("Location"))
}

func TestCreateForm(t *testing.T) {
	a := newApp(t)
	w := a.get("/users/create")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `name="password_confirmation"`)
}

func TestStore(t *testing.T) {
	a := newApp(t)

	w := a.post("/users", aliceForm())
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/users", w.Header().Get("Location"))

	u, err := a.repo.Show(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "Alice", u.Name)
	assert.True(t, u.CheckPassword("secret"))

	require.Len(t, a.pub.jobs, 1)
	assert.Equal(t, "a@x.com", a.pub.jobs[0].To)
	assert.Equal(t, tpl.Welcome, a.pub.jobs[0].Template)
	assert.Equal(t, "http://localhost:8080/login", a.pub.jobs[0].Data["LoginURL"])
}

func TestStoreValidation(t *testing.T) {
	a := newApp(t)

	form := aliceForm()
	form.Set("name", "")
	form.Set("email", "not-an-email")
	form.Set("password_confirmation", "other")

	w := a.post("/users", form)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "is required")
	assert.Contains(t, body, "must be a valid email")
	assert.Contains(t, body, "does not match password")
	assert.Contains(t, body, `value="not-an-email"`)

	n, err := a.repo.Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, a.pub.jobs)
}

func TestStoreDuplicateEmail(t *testing.T) {
	a := newApp(t)
	a.seed(t, "Alice", "a@x.com")

	form := aliceForm()
	form.Set("name", "Eve")
	w := a.post("/users", form)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "has already been taken")

	n, err := a.repo.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestShowAndEdit(t *testing.T) {
	a := newApp(t)
	u := a.seed(t, "Alice", "a@x.com")

	w := a.get("/users/1")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Email: a@x.com")
	assert.NotContains(t, w.Body.String(), u.Password)

	w = a.get("/users/edit/1")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `value="Alice"`)
	assert.Contains(t, w.Body.String(), `name="_method" value="PUT"`)
}

func TestUnknownUserIsNotFound(t *testing.T) {
	a := newApp(t)

	for _, path := range []string{"/users/42", "/users/edit/42", "/users/abc"} {
		w := a.get(path)
		assert.Equal(t, http.StatusNotFound, w.Code, path)
	}

	w := a.post("/users/42", url.Values{"_method": {"PUT"}, "name": {"x"}, "email": {"x@x.com"}})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = a.post("/users/42", url.Values{"_method": {"DELETE"}})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUpdateThroughMethodOverride(t *testing.T) {
	a := newApp(t)
	a.seed(t, "Alice", "a@x.com")

	w := a.post("/users/1", url.Values{"_method": {"PUT"}, "name": {"Alicia"}, "email": {"a@x.com"}})
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/users/1", w.Header().Get("Location"))

	u, err := a.repo.Show(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "Alicia", u.Name)
	assert.Equal(t, "a@x.com", u.Email)
}

func TestPatchKeepsMissingFields(t *testing.T) {
	a := newApp(t)
	a.seed(t, "Alice", "a@x.com")

	w := a.post("/users/1", url.Values{"_method": {"PATCH"}, "email": {"alice@x.com"}})
	assert.Equal(t, http.StatusSeeOther, w.Code)

	u, err := a.repo.Show(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "Alice", u.Name)
	assert.Equal(t, "alice@x.com", u.Email)
}

func TestUpdateValidation(t *testing.T) {
	a := newApp(t)
	a.seed(t, "Alice", "a@x.com")
	a.seed(t, "Bob", "b@x.com")

	w := a.post("/users/2", url.Values{"_method": {"PUT"}, "name": {""}, "email": {"b@x.com"}})
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "must be between 1 and 255 characters long")

	w = a.post("/users/2", url.Values{"_method": {"PUT"}, "name": {"Bob"}, "email": {"a@x.com"}})
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "has already been taken")

	u, err := a.repo.Show(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, "Bob", u.Name)
	assert.Equal(t, "b@x.com", u.Email)
}

func TestDestroyThroughMethodOverride(t *testing.T) {
	a := newApp(t)
	a.seed(t, "Alice", "a@x.com")

	w := a.post("/users/1", url.Values{"_method": {"DELETE"}})
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/users", w.Header().Get("Location"))

	_, err := a.repo.Show(context.Background(), 1)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	w = a.get("/users")
	assert.Contains(t, w.Body.String(), "<b>Total Users:</b> 0")
}

func accessCookie(t *testing.T, w *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range w.Result().Cookies() {
		if c.Name == helpers.AccessCookie {
			return c
		}
	}
	t.Fatalf("no %s cookie set", helpers.AccessCookie)
	return nil
}

func TestRegisterLoginLogout(t *testing.T) {
	a := newApp(t)

	w := a.get("/home")
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/login", w.Header().Get("Location"))

	w = a.post("/register", aliceForm())
	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/home", w.Header().Get("Location"))
	cookie := accessCookie(t, w)

	w = a.get("/home", cookie)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "You are logged in as Alice.")

	w = a.post("/login", url.Values{"email": {"a@x.com"}, "password": {"wrong"}})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "These credentials do not match our records.")

	w = a.post("/login", url.Values{"email": {"a@x.com"}, "password": {"secret"}})
	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/home", w.Header().Get("Location"))
	accessCookie(t, w)

	w = a.post("/logout", nil)
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/login", w.Header().Get("Location"))
	assert.Equal(t, -1, accessCookie(t, w).MaxAge)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	a := newApp(t)
	a.seed(t, "Alice", "a@x.com")

	w := a.post("/register", aliceForm())
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "has already been taken")
}

func TestStoreTrimsNameAndEmail(t *testing.T) {
	a := newApp(t)

	form := aliceForm()
	form.Set("name", "  Alice  ")
	form.Set("email", " a@x.com ")
	w := a.post("/users", form)
	require.Equal(t, http.StatusSeeOther, w.Code)

	u, err := a.repo.Show(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "Alice", u.Name)
	assert.Equal(t, "a@x.com", u.Email)
}

func TestMultibytePasswordOverBcryptLimit(t *testing.T) {
	a := newApp(t)

	// 40 characters, 80 bytes
	pw := strings.Repeat("é", 40)
	form := aliceForm()
	form.Set("password", pw)
	form.Set("password_confirmation", pw)

	for _, path := range []string{"/users", "/register"} {
		w := a.post(path, form)
		require.Equal(t, http.StatusUnprocessableEntity, w.Code, path)
		assert.Contains(t, w.Body.String(), "must be at most 72 bytes", path)
		assert.Contains(t, w.Body.String(), `value="a@x.com"`, path)
	}

	n, err := a.repo.Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestMalformedBodyShowsMessage(t *testing.T) {
	a := newApp(t)

	req := httptest.NewRequest(http.MethodPost, "/users", strings.NewReader(`{"name": x}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	a.handler.ServeHTTP(w, req)

	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "invalid json")
}
