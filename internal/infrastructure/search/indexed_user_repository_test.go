package search_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/go-ddd-user-management/internal/domain/entity"
	"github.com/oksasatya/go-ddd-user-management/internal/infrastructure/migration"
	"github.com/oksasatya/go-ddd-user-management/internal/infrastructure/search"
	"github.com/oksasatya/go-ddd-user-management/internal/infrastructure/sqlite"
)

type esCall struct {
	method, path, body string
}

type fakeES struct {
	mu    sync.Mutex
	calls []esCall
}

func (f *fakeES) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	f.mu.Lock()
	f.calls = append(f.calls, esCall{r.Method, r.URL.Path, string(body)})
	f.mu.Unlock()

	w.Header().Set("X-Elastic-Product", "Elasticsearch")
	w.Header().Set("Content-Type", "application/json")
	switch {
	case strings.HasSuffix(r.URL.Path, "/_search"):
		_, _ = io.WriteString(w, `{"hits":{"hits":[{"_id":"1","_source":{"id":1,"name":"Alice","email":"a@x.com"}}]}}`)
	case r.Method == http.MethodDelete:
		_, _ = io.WriteString(w, `{"result":"deleted"}`)
	default:
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"result":"created"}`)
	}
}

func (f *fakeES) recorded() []esCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]esCall(nil), f.calls...)
}

func newIndexedRepo(t *testing.T) (*search.IndexedUserRepository, *fakeES) {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	db, err := sqlite.Open(filepath.Join(t.TempDir(), "users.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, migration.Up(db, migration.DriverSQLite, logger))

	fake := &fakeES{}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	es, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{srv.URL}})
	require.NoError(t, err)

	return search.NewIndexedUserRepository(sqlite.NewUserRepository(db), es, "users", logger), fake
}

func TestWritesAreMirrored(t *testing.T) {
	repo, fake := newIndexedRepo(t)
	ctx := context.Background()

	u, err := repo.Store(ctx, entity.StoreUserInput{Name: "Alice", Email: "a@x.com", Password: "secret"})
	require.NoError(t, err)

	name := "Alicia"
	_, err = repo.Update(ctx, entity.UpdateUserInput{Name: &name}, u.ID)
	require.NoError(t, err)

	_, err = repo.Destroy(ctx, u.ID)
	require.NoError(t, err)

	calls := fake.recorded()
	require.Len(t, calls, 3)
	assert.Equal(t, http.MethodPut, calls[0].method)
	assert.Equal(t, "/users/_doc/1", calls[0].path)
	assert.NotContains(t, calls[0].body, "password")

	var doc search.UserDocument
	require.NoError(t, json.Unmarshal([]byte(calls[1].body), &doc))
	assert.Equal(t, "Alicia", doc.Name)
	assert.Equal(t, "a@x.com", doc.Email)

	assert.Equal(t, http.MethodDelete, calls[2].method)
	assert.Equal(t, "/users/_doc/1", calls[2].path)
}

func TestFailedWritesAreNotMirrored(t *testing.T) {
	repo, fake := newIndexedRepo(t)

	_, err := repo.Show(context.Background(), 99)
	assert.Error(t, err)
	_, err = repo.Destroy(context.Background(), 99)
	assert.Error(t, err)

	assert.Empty(t, fake.recorded())
}

func TestSearch(t *testing.T) {
	repo, fake := newIndexedRepo(t)

	docs, err := repo.Search(context.Background(), "ali", 0)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "Alice", docs[0].Name)

	calls := fake.recorded()
	require.Len(t, calls, 1)
	assert.Equal(t, "/users/_search", calls[0].path)
	assert.Contains(t, calls[0].body, `"size":10`)
	assert.Contains(t, calls[0].body, `"query":"ali"`)
}

func TestSearchCapsSize(t *testing.T) {
	repo, fake := newIndexedRepo(t)

	_, err := repo.Search(context.Background(), "ali", 500)
	require.NoError(t, err)
	assert.Contains(t, fake.recorded()[0].body, `"size":50`)
}

func TestEnsureIndexCreatesMissingIndex(t *testing.T) {
	repo, fake := newIndexedRepo(t)

	require.NoError(t, repo.EnsureIndex(context.Background()))

	calls := fake.recorded()
	require.Len(t, calls, 2)
	assert.Equal(t, http.MethodHead, calls[0].method)
	assert.Equal(t, "/users", calls[0].path)
	assert.Equal(t, http.MethodPut, calls[1].method)
	assert.Contains(t, calls[1].body, `"mappings"`)
}
