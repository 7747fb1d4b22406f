package application

import (
	"context"

	"github.com/oksasatya/go-ddd-user-management/internal/domain/entity"
	repo "github.com/oksasatya/go-ddd-user-management/internal/domain/repository"
)

// Service exposes user operations to the delivery layer.
// It forwards every call to Repo; swapping the backend means passing a different repository.
type Service struct {
	Repo repo.UserRepository
}

func NewService(repo repo.UserRepository) *Service {
	return &Service{Repo: repo}
}

func (s *Service) Index(ctx context.Context) ([]*entity.User, error) {
	return s.Repo.Index(ctx)
}

func (s *Service) Store(ctx context.Context, in entity.StoreUserInput) (*entity.User, error) {
	return s.Repo.Store(ctx, in)
}

func (s *Service) Show(ctx context.Context, id int64) (*entity.User, error) {
	return s.Repo.Show(ctx, id)
}

func (s *Service) Update(ctx context.Context, in entity.UpdateUserInput, id int64) (*entity.User, error) {
	return s.Repo.Update(ctx, in, id)
}

func (s *Service) Destroy(ctx context.Context, id int64) (*entity.User, error) {
	return s.Repo.Destroy(ctx, id)
}

var _ repo.UserRepository = (*Service)(nil)
