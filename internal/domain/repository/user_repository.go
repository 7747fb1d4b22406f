package repository

import (
	"context"
	"errors"

	"github.com/oksasatya/go-ddd-user-management/internal/domain/entity"
)

var (
	// ErrNotFound is returned when no user exists for the requested identity.
	ErrNotFound = errors.New("user not found")
	// ErrDuplicateEmail is returned when the email is already used by another user.
	ErrDuplicateEmail = errors.New("email has already been taken")
)

// UserRepository is the set of user operations every storage backend provides.
// Implementations are interchangeable wherever the interface is accepted.
type UserRepository interface {
	Index(ctx context.Context) ([]*entity.User, error)
	Store(ctx context.Context, in entity.StoreUserInput) (*entity.User, error)
	Show(ctx context.Context, id int64) (*entity.User, error)
	Update(ctx context.Context, in entity.UpdateUserInput, id int64) (*entity.User, error)
	Destroy(ctx context.Context, id int64) (*entity.User, error)
}

// UserCounter reports the number of stored users.
type UserCounter interface {
	Count(ctx context.Context) (int64, error)
}

// UserFinder looks users up by their unique email.
type UserFinder interface {
	FindByEmail(ctx context.Context, email string) (*entity.User, error)
}

// UserStore is what a concrete database backend implements.
type UserStore interface {
	UserRepository
	UserCounter
	UserFinder
}
