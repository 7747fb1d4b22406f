package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oksasatya/go-ddd-user-management/internal/domain/entity"
	"github.com/oksasatya/go-ddd-user-management/internal/domain/repository"
)

const uniqueViolation = "23505"

const userColumns = `id, name, email, password, created_at, updated_at`

type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

func scanUser(row pgx.Row) (*entity.User, error) {
	u := &entity.User{}
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Password, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return u, nil
}

func mapWriteErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return errors.Join(repository.ErrDuplicateEmail, err)
	}
	return err
}

func (r *UserRepository) Index(ctx context.Context) ([]*entity.User, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

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
	// timestamptz keeps microseconds
	u.CreatedAt = u.CreatedAt.Truncate(time.Microsecond)
	u.UpdatedAt = u.UpdatedAt.Truncate(time.Microsecond)
	row := r.pool.QueryRow(ctx, `
		INSERT INTO users (name, email, password, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, u.Name, u.Email, u.Password, u.CreatedAt, u.UpdatedAt)
	if err := row.Scan(&u.ID); err != nil {
		return nil, fmt.Errorf("insert user: %w", mapWriteErr(err))
	}
	return u, nil
}

func (r *UserRepository) Show(ctx context.Context, id int64) (*entity.User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	u, err := scanUser(row)
	if err != nil {
		return nil, fmt.Errorf("query user %d: %w", id, err)
	}
	return u, nil
}

func (r *UserRepository) Update(ctx context.Context, in entity.UpdateUserInput, id int64) (*entity.User, error) {
	u, err := r.Show(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := u.Fill(in); err != nil {
		return nil, err
	}
	u.UpdatedAt = u.UpdatedAt.Truncate(time.Microsecond)

	res, err := r.pool.Exec(ctx, `
		UPDATE users
		SET name = $1, email = $2, password = $3, updated_at = $4
		WHERE id = $5
	`, u.Name, u.Email, u.Password, u.UpdatedAt, u.ID)
	if err != nil {
		return nil, fmt.Errorf("update user %d: %w", id, mapWriteErr(err))
	}
	if res.RowsAffected() == 0 {
		return nil, fmt.Errorf("update user %d: %w", id, repository.ErrNotFound)
	}
	return u, nil
}

func (r *UserRepository) Destroy(ctx context.Context, id int64) (*entity.User, error) {
	u, err := r.Show(ctx, id)
	if err != nil {
		return nil, err
	}
	res, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("delete user %d: %w", id, err)
	}
	if res.RowsAffected() == 0 {
		return nil, fmt.Errorf("delete user %d: %w", id, repository.ErrNotFound)
	}
	return u, nil
}

func (r *UserRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	u, err := scanUser(row)
	if err != nil {
		return nil, fmt.Errorf("query user by email: %w", err)
	}
	return u, nil
}

var _ repository.UserStore = (*UserRepository)(nil)
