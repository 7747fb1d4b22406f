package container

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/elastic/go-elasticsearch/v8"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-ddd-user-management/config"
	repo "github.com/oksasatya/go-ddd-user-management/internal/domain/repository"
	"github.com/oksasatya/go-ddd-user-management/internal/infrastructure/migration"
	pginfra "github.com/oksasatya/go-ddd-user-management/internal/infrastructure/postgres"
	"github.com/oksasatya/go-ddd-user-management/internal/infrastructure/search"
	"github.com/oksasatya/go-ddd-user-management/internal/infrastructure/sqlite"
	"github.com/oksasatya/go-ddd-user-management/pkg/helpers"
)

// Container holds the components built once at startup and handed to the router.
// Nothing in it is global; main builds one and passes it down.
type Container struct {
	Config *config.Config
	Logger *logrus.Logger

	// Users is the database backend. Repo is what the user service talks to:
	// the same backend, wrapped with search indexing when Elasticsearch is configured.
	Users  repo.UserStore
	Repo   repo.UserRepository
	Search *search.IndexedUserRepository

	Redis     *redis.Client
	JWT       *helpers.JWTManager
	Publisher *helpers.RabbitPublisher
	ES        *elasticsearch.Client

	closers []func()
}

// New connects the storage backend selected by cfg.DBDriver, runs migrations, and builds
// the optional Redis, Elasticsearch and RabbitMQ clients. Optional services that fail to
// come up are logged and left nil.
func New(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (*Container, error) {
	c := &Container{Config: cfg, Logger: logger}

	users, err := c.openUsers(ctx)
	if err != nil {
		c.Close()
		return nil, err
	}
	c.Users = users
	c.Repo = users

	c.Redis = helpers.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if c.Redis != nil {
		c.closers = append(c.closers, func() { _ = c.Redis.Close() })
	}

	c.JWT = helpers.NewJWTManager(cfg.JWTAccessSecret, cfg.AccessTTL)

	if cfg.SearchEnabled() {
		es, err := helpers.NewESClient(cfg.ESAddrs(), cfg.ElasticsearchUser, cfg.ElasticsearchPass)
		if err != nil {
			helpers.LogError(logger, "elasticsearch disabled", err, nil)
		} else {
			c.ES = es
			c.Search = search.NewIndexedUserRepository(users, es, cfg.ESUsersIndex, logger)
			c.Repo = c.Search
			if err := c.Search.EnsureIndex(ctx); err != nil {
				helpers.LogError(logger, "elasticsearch index not ready", err, logrus.Fields{"index": cfg.ESUsersIndex})
			}
		}
	}

	if cfg.MailSendEnabled && cfg.RabbitMQURL != "" {
		pub, err := helpers.NewRabbitPublisher(cfg.RabbitMQURL, cfg.RabbitMQEmailQueue)
		if err != nil {
			helpers.LogError(logger, "rabbitmq publisher disabled", err, logrus.Fields{"queue": cfg.RabbitMQEmailQueue})
		} else {
			c.Publisher = pub
			c.closers = append(c.closers, pub.Close)
		}
	}

	return c, nil
}

func (c *Container) openUsers(ctx context.Context) (repo.UserStore, error) {
	cfg := c.Config
	switch cfg.DBDriver {
	case migration.DriverPostgres:
		db, err := sql.Open("pgx", cfg.PostgresDSN())
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		err = migration.Up(db, migration.DriverPostgres, c.Logger)
		_ = db.Close()
		if err != nil {
			return nil, fmt.Errorf("migrate postgres: %w", err)
		}
		pool, err := pginfra.NewPool(ctx, cfg.PostgresDSN(), cfg.AppName, cfg.DBMaxConns, cfg.DBMinConns, cfg.DBMaxConnLife)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		c.closers = append(c.closers, pool.Close)
		return pginfra.NewUserRepository(pool), nil

	case migration.DriverSQLite:
		db, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		c.closers = append(c.closers, func() { _ = db.Close() })
		if err := migration.Up(db, migration.DriverSQLite, c.Logger); err != nil {
			return nil, fmt.Errorf("migrate sqlite: %w", err)
		}
		return sqlite.NewUserRepository(db), nil
	}
	return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
}

// Close releases connections in reverse order of creation.
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	c.closers = nil
}
