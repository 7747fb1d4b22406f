package main

import (
	"context"
	"errors"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-ddd-user-management/config"
	userapp "github.com/oksasatya/go-ddd-user-management/internal/application"
	"github.com/oksasatya/go-ddd-user-management/internal/container"
	"github.com/oksasatya/go-ddd-user-management/internal/domain/entity"
	repo "github.com/oksasatya/go-ddd-user-management/internal/domain/repository"
	"github.com/oksasatya/go-ddd-user-management/pkg/helpers"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	cfg.MailSendEnabled = false // seeding never sends mail
	logger := helpers.NewLogger(cfg.AppName+"-seed", cfg.Env, cfg.LogLevel)

	ctx := context.Background()
	c, err := container.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("failed to build application: %v", err)
	}
	defer c.Close()

	svc := userapp.NewService(c.Repo)

	in := entity.StoreUserInput{Name: "demoUser", Email: "demo@example.com", Password: "password123"}
	u, err := svc.Store(ctx, in)
	if errors.Is(err, repo.ErrDuplicateEmail) {
		helpers.LogInfo(logger, "demo user already exists", logrus.Fields{"email": in.Email})
		return
	}
	if err != nil {
		logger.Fatalf("failed to seed user: %v", err)
	}
	helpers.LogInfo(logger, "seeded user", logrus.Fields{"id": u.ID, "email": u.Email, "name": u.Name, "password": in.Password})
}
