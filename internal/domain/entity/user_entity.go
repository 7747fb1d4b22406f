package entity

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oksasatya/go-ddd-user-management/pkg/helpers"
)

// ErrRequiredField is returned when a mandatory user attribute is empty.
var ErrRequiredField = errors.New("required field missing")

// User is the aggregate root for user domain
// Passwords are stored as bcrypt hashes in Password field
type User struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Password  string    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// StoreUserInput carries the attributes of a user to be created.
// Password is plain text; it is hashed by NewUser.
type StoreUserInput struct {
	Name     string
	Email    string
	Password string
}

// UpdateUserInput is a partial set of attributes. Nil fields are left untouched.
type UpdateUserInput struct {
	Name     *string
	Email    *string
	Password *string
}

func blank(s string) bool { return strings.TrimSpace(s) == "" }

// NewUser validates the input and builds an unsaved user with a hashed password.
// Values are stored as given; request input is trimmed by middleware.TrimStrings.
func NewUser(in StoreUserInput) (*User, error) {
	switch {
	case blank(in.Name):
		return nil, fmt.Errorf("%w: name", ErrRequiredField)
	case blank(in.Email):
		return nil, fmt.Errorf("%w: email", ErrRequiredField)
	case in.Password == "":
		return nil, fmt.Errorf("%w: password", ErrRequiredField)
	}
	hash, err := helpers.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	now := time.Now().UTC()
	return &User{
		Name:      in.Name,
		Email:     in.Email,
		Password:  hash,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Fill overlays the provided fields onto u. Fields absent from in keep their value.
// A provided field may not be blank, since every user attribute is required.
// On error u is left unchanged.
func (u *User) Fill(in UpdateUserInput) error {
	next := *u
	if in.Name != nil {
		if next.Name = *in.Name; blank(next.Name) {
			return fmt.Errorf("%w: name", ErrRequiredField)
		}
	}
	if in.Email != nil {
		if next.Email = *in.Email; blank(next.Email) {
			return fmt.Errorf("%w: email", ErrRequiredField)
		}
	}
	if in.Password != nil {
		if *in.Password == "" {
			return fmt.Errorf("%w: password", ErrRequiredField)
		}
		hash, err := helpers.HashPassword(*in.Password)
		if err != nil {
			return fmt.Errorf("hash password: %w", err)
		}
		next.Password = hash
	}
	next.UpdatedAt = time.Now().UTC()
	*u = next
	return nil
}

// CheckPassword reports whether plain matches the stored hash.
func (u *User) CheckPassword(plain string) bool {
	return helpers.CompareHashAndPassword(u.Password, plain)
}
