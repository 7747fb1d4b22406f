package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	msqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/oksasatya/go-ddd-user-management/internal/domain/entity"
	"github.com/oksasatya/go-ddd-user-management/internal/domain/repository"
)

const userColumns = `id, name, email, password, created_at, updated_at`

// UserRepository implements repository.UserStore on top of SQLite.
type UserRepository struct {
	db        *sql.DB
	writeLock *sync.Mutex // go-sqlite does not support concurrent writes
}

var _ repository.UserStore = (*UserRepository)(nil)

// Open opens the SQLite database at path, creating its directory, and checks the connection.
func Open(path string) (*sql.DB, error) {
	if dir := filepath.Dir(path); path != ":memory:" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	db.SetConnMaxLifetime(5 * time.Minute)
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}
	return db, nil
}

// NewUserRepository expects the users table to exist (see migration.Up).
func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db, writeLock: new(sync.Mutex)}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(row scanner) (*entity.User, error) {
	var (
		u                entity.User
		created, updated int64
	)
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Password, &created, &updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.Join(repository.ErrNotFound, err)
		}
		return nil, err
	}
	u.CreatedAt = time.Unix(created, 0).UTC()
	u.UpdatedAt = time.Unix(updated, 0).UTC()
	return &u, nil
}

func mapWriteErr(err error) error {
	var liteErr *msqlite.Error
	if errors.As(err, &liteErr) {
		code := liteErr.Code()
		if code == sqlite3.SQLITE_CONSTRAINT_UNIQUE ||
			(code&0xff == sqlite3.SQLITE_CONSTRAINT && strings.Contains(liteErr.Error(), "UNIQUE")) {
			return errors.Join(repository.ErrDuplicateEmail, err)
		}
	}
	return err
}

func (r *UserRepository) Index(ctx context.Context) ([]*entity.User, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer func() { _ = rows.Close() }()

	users := make([]*entity.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	return users, nil
}

func (r *UserRepository) Store(ctx context.Context, in entity.StoreUserInput) (*entity.User, error) {
	u, err := entity.NewUser(in)
	if err != nil {
		return nil, err
	}
	u.CreatedAt = u.CreatedAt.Truncate(time.Second)
	u.UpdatedAt = u.CreatedAt

	r.writeLock.Lock()
	defer r.writeLock.Unlock()

	res, err := r.db.ExecContext(ctx,
		"INSERT INTO users (name, email, password, created_at, updated_at) VALUES (?, ?, ?, ?, ?)",
		u.Name, u.Email, u.Password, u.CreatedAt.Unix(), u.UpdatedAt.Unix(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", mapWriteErr(err))
	}
	if u.ID, err = res.LastInsertId(); err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return u, nil
}

func (r *UserRepository) Show(ctx context.Context, id int64) (*entity.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	u, err := scanUser(row)
	if err != nil {
		return nil, fmt.Errorf("query user %d: %w", id, err)
	}
	return u, nil
}

func (r *UserRepository) Update(ctx context.Context, in entity.UpdateUserInput, id int64) (*entity.User, error) {
	r.writeLock.Lock()
	defer r.writeLock.Unlock()

	u, err := r.Show(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := u.Fill(in); err != nil {
		return nil, err
	}
	u.UpdatedAt = u.UpdatedAt.Truncate(time.Second)

	if _, err := r.db.ExecContext(ctx,
		"UPDATE users SET name = ?, email = ?, password = ?, updated_at = ? WHERE id = ?",
		u.Name, u.Email, u.Password, u.UpdatedAt.Unix(), u.ID,
	); err != nil {
		return nil, fmt.Errorf("update user %d: %w", id, mapWriteErr(err))
	}
	return u, nil
}

func (r *UserRepository) Destroy(ctx context.Context, id int64) (*entity.User, error) {
	r.writeLock.Lock()
	defer r.writeLock.Unlock()

	u, err := r.Show(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := r.db.ExecContext(ctx, "DELETE FROM users WHERE id = ?", id); err != nil {
		return nil, fmt.Errorf("delete user %d: %w", id, err)
	}
	return u, nil
}

func (r *UserRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, "SELECT count(*) FROM users").Scan(&n); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email)
	u, err := scanUser(row)
	if err != nil {
		return nil, fmt.Errorf("query user by email: %w", err)
	}
	return u, nil
}
