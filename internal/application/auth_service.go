package application

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-ddd-user-management/internal/domain/entity"
	repo "github.com/oksasatya/go-ddd-user-management/internal/domain/repository"
	"github.com/oksasatya/go-ddd-user-management/pkg/helpers"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

// AuthService backs the login, register and logout routes.
type AuthService struct {
	Users  repo.UserFinder
	JWT    *helpers.JWTManager
	Redis  *redis.Client
	Logger *logrus.Logger
}

type AccessToken struct {
	Token     string
	ExpiresAt time.Time
}

func NewAuthService(users repo.UserFinder, jwt *helpers.JWTManager, rdb *redis.Client, logger *logrus.Logger) *AuthService {
	return &AuthService{Users: users, JWT: jwt, Redis: rdb, Logger: logger}
}

func nowRFC3339() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

// Authenticate validates email/password and returns the user without issuing tokens.
func (s *AuthService) Authenticate(ctx context.Context, email, password string) (*entity.User, error) {
	u, err := s.Users.FindByEmail(ctx, email)
	if err != nil || u == nil {
		if err != nil && !errors.Is(err, repo.ErrNotFound) && s.Logger != nil {
			s.Logger.WithError(err).Warn("lookup user by email failed")
		}
		return nil, ErrInvalidCredentials
	}
	if !u.CheckPassword(password) {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

// IssueToken generates an access token and records the session in Redis when available.
func (s *AuthService) IssueToken(ctx context.Context, u *entity.User) (AccessToken, error) {
	sid := uuid.NewString()
	token, exp, err := s.JWT.GenerateAccessToken(u.ID, u.Name, sid)
	if err != nil {
		if s.Logger != nil {
			s.Logger.WithError(err).WithField("user_id", u.ID).Error("generate access token failed")
		}
		return AccessToken{}, err
	}

	if s.Redis != nil {
		key := helpers.SessionKey(u.ID)
		pipe := s.Redis.Pipeline()
		pipe.HSet(ctx, key, map[string]any{
			"user_id":    u.ID,
			"email":      u.Email,
			"name":       u.Name,
			"sid":        sid,
			"created_at": nowRFC3339(),
		})
		pipe.Expire(ctx, key, time.Until(exp))
		if _, err := pipe.Exec(ctx); err != nil {
			if s.Logger != nil {
				s.Logger.WithError(err).WithField("key", key).Warn("redis pipeline failed")
			}
			return AccessToken{}, err
		}
	}
	return AccessToken{Token: token, ExpiresAt: exp}, nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*entity.User, AccessToken, error) {
	u, err := s.Authenticate(ctx, email, password)
	if err != nil {
		return nil, AccessToken{}, err
	}
	tok, err := s.IssueToken(ctx, u)
	if err != nil {
		return nil, AccessToken{}, err
	}
	return u, tok, nil
}

// Logout drops the Redis session so outstanding tokens stop working.
func (s *AuthService) Logout(ctx context.Context, userID int64) error {
	if s.Redis == nil {
		return nil
	}
	return s.Redis.Del(ctx, helpers.SessionKey(userID)).Err()
}
