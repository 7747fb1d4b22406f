package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-ddd-user-management/internal/domain/entity"
	"github.com/oksasatya/go-ddd-user-management/internal/domain/repository"
)

const requestTimeout = 3 * time.Second

// UserDocument is the indexed projection of a user. The password hash is never indexed.
type UserDocument struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func newDocument(u *entity.User) UserDocument {
	return UserDocument{ID: u.ID, Name: u.Name, Email: u.Email, CreatedAt: u.CreatedAt, UpdatedAt: u.UpdatedAt}
}

// IndexedUserRepository wraps another repository and mirrors every successful write
// into an Elasticsearch index. Reads go to the wrapped repository.
// Index failures are logged and never fail the write.
type IndexedUserRepository struct {
	next   repository.UserRepository
	es     *elasticsearch.Client
	index  string
	logger *logrus.Logger
}

var _ repository.UserRepository = (*IndexedUserRepository)(nil)

func NewIndexedUserRepository(next repository.UserRepository, es *elasticsearch.Client, index string, logger *logrus.Logger) *IndexedUserRepository {
	return &IndexedUserRepository{next: next, es: es, index: index, logger: logger}
}

func (r *IndexedUserRepository) Index(ctx context.Context) ([]*entity.User, error) {
	return r.next.Index(ctx)
}

func (r *IndexedUserRepository) Store(ctx context.Context, in entity.StoreUserInput) (*entity.User, error) {
	u, err := r.next.Store(ctx, in)
	if err != nil {
		return nil, err
	}
	r.put(ctx, u)
	return u, nil
}

func (r *IndexedUserRepository) Show(ctx context.Context, id int64) (*entity.User, error) {
	return r.next.Show(ctx, id)
}

func (r *IndexedUserRepository) Update(ctx context.Context, in entity.UpdateUserInput, id int64) (*entity.User, error) {
	u, err := r.next.Update(ctx, in, id)
	if err != nil {
		return nil, err
	}
	r.put(ctx, u)
	return u, nil
}

func (r *IndexedUserRepository) Destroy(ctx context.Context, id int64) (*entity.User, error) {
	u, err := r.next.Destroy(ctx, id)
	if err != nil {
		return nil, err
	}
	r.remove(ctx, id)
	return u, nil
}

func (r *IndexedUserRepository) put(ctx context.Context, u *entity.User) {
	b, err := json.Marshal(newDocument(u))
	if err != nil {
		r.logger.WithError(err).WithField("user_id", u.ID).Warn("es encode failed")
		return
	}
	req := esapi.IndexRequest{
		Index:      r.index,
		DocumentID: strconv.FormatInt(u.ID, 10),
		Body:       bytes.NewReader(b),
		Refresh:    "false",
	}
	r.do(ctx, req, u.ID, "es index")
}

func (r *IndexedUserRepository) remove(ctx context.Context, id int64) {
	req := esapi.DeleteRequest{Index: r.index, DocumentID: strconv.FormatInt(id, 10)}
	r.do(ctx, req, id, "es delete")
}

func (r *IndexedUserRepository) do(ctx context.Context, req esapi.Request, id int64, op string) {
	c, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	res, err := req.Do(c, r.es)
	if err != nil {
		r.logger.WithError(err).WithField("user_id", id).Warn(op + " failed")
		return
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() && res.StatusCode != 404 {
		r.logger.WithField("status", res.Status()).WithField("user_id", id).Warn(op + " response error")
	}
}

const indexMapping = `{
  "mappings": {
    "properties": {
      "id":         {"type": "long"},
      "name":       {"type": "text"},
      "email":      {"type": "text", "fields": {"raw": {"type": "keyword"}}},
      "created_at": {"type": "date"},
      "updated_at": {"type": "date"}
    }
  }
}`

// EnsureIndex creates the users index with its mapping unless it already exists.
func (r *IndexedUserRepository) EnsureIndex(ctx context.Context) error {
	c, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	res, err := esapi.IndicesExistsRequest{Index: []string{r.index}}.Do(c, r.es)
	if err != nil {
		return fmt.Errorf("es index exists: %w", err)
	}
	_ = res.Body.Close()
	if res.StatusCode == 200 {
		return nil
	}

	res, err = esapi.IndicesCreateRequest{Index: r.index, Body: strings.NewReader(indexMapping)}.Do(c, r.es)
	if err != nil {
		return fmt.Errorf("es create index: %w", err)
	}
	defer func() { _ = res.Body.Close() }()
	// 400 resource_already_exists when another instance won the race
	if res.IsError() && res.StatusCode != 400 {
		return fmt.Errorf("es create index: %s", res.Status())
	}
	return nil
}

// Search runs a multi_match query on name and email.
func (r *IndexedUserRepository) Search(ctx context.Context, q string, size int) ([]UserDocument, error) {
	switch {
	case size <= 0:
		size = 10
	case size > 50:
		size = 50
	}
	query := map[string]any{
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":  q,
				"fields": []string{"email^2", "name"},
			},
		},
		"size": size,
	}
	b, err := json.Marshal(query)
	if err != nil {
		return nil, err
	}

	c, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	res, err := r.es.Search(
		r.es.Search.WithContext(c),
		r.es.Search.WithIndex(r.index),
		r.es.Search.WithBody(strings.NewReader(string(b))),
	)
	if err != nil {
		return nil, fmt.Errorf("es search: %w", err)
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() {
		return nil, fmt.Errorf("es search: %s", res.Status())
	}

	var parsed struct {
		Hits struct {
			Hits []struct {
				Source UserDocument `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode es search: %w", err)
	}

	out := make([]UserDocument, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		out = append(out, h.Source)
	}
	return out, nil
}
