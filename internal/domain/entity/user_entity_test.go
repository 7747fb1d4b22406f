package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strptr(s string) *string { return &s }

func TestNewUser(t *testing.T) {
	t.Run("hashes password", func(t *testing.T) {
		u, err := NewUser(StoreUserInput{Name: " Alice ", Email: "a@x.com", Password: "secret"})
		require.NoError(t, err)

		assert.Equal(t, " Alice ", u.Name)
		assert.Equal(t, "a@x.com", u.Email)
		assert.NotEqual(t, "secret", u.Password)
		assert.True(t, u.CheckPassword("secret"))
		assert.False(t, u.CheckPassword("nope"))
		assert.False(t, u.CreatedAt.IsZero())
	})

	t.Run("missing fields", func(t *testing.T) {
		cases := []StoreUserInput{
			{Email: "a@x.com", Password: "secret"},
			{Name: "Alice", Password: "secret"},
			{Name: "Alice", Email: "a@x.com"},
			{Name: "   ", Email: "a@x.com", Password: "secret"},
		}
		for _, in := range cases {
			_, err := NewUser(in)
			assert.ErrorIs(t, err, ErrRequiredField)
		}
	})
}

func TestUserFill(t *testing.T) {
	u, err := NewUser(StoreUserInput{Name: "Alice", Email: "a@x.com", Password: "secret"})
	require.NoError(t, err)
	oldHash := u.Password

	require.NoError(t, u.Fill(UpdateUserInput{Name: strptr("Alicia")}))
	assert.Equal(t, "Alicia", u.Name)
	assert.Equal(t, "a@x.com", u.Email)
	assert.Equal(t, oldHash, u.Password)

	require.NoError(t, u.Fill(UpdateUserInput{Password: strptr("changed")}))
	assert.True(t, u.CheckPassword("changed"))

	err = u.Fill(UpdateUserInput{Email: strptr("  ")})
	assert.ErrorIs(t, err, ErrRequiredField)
	assert.Equal(t, "a@x.com", u.Email)
}
