package application

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/oksasatya/go-ddd-user-management/internal/domain/entity"
)

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) user(args mock.Arguments) (*entity.User, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.User), args.Error(1)
}

func (m *MockUserRepository) Index(ctx context.Context) ([]*entity.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entity.User), args.Error(1)
}

func (m *MockUserRepository) Store(ctx context.Context, in entity.StoreUserInput) (*entity.User, error) {
	return m.user(m.Called(ctx, in))
}

func (m *MockUserRepository) Show(ctx context.Context, id int64) (*entity.User, error) {
	return m.user(m.Called(ctx, id))
}

func (m *MockUserRepository) Update(ctx context.Context, in entity.UpdateUserInput, id int64) (*entity.User, error) {
	return m.user(m.Called(ctx, in, id))
}

func (m *MockUserRepository) Destroy(ctx context.Context, id int64) (*entity.User, error) {
	return m.user(m.Called(ctx, id))
}

type MockUserFinder struct {
	mock.Mock
}

func (m *MockUserFinder) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.User), args.Error(1)
}
