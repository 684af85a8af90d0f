package main

import (
	"context"
	"log"

	"github.com/AnthoniusHendriyanto/identity-core/config"
	"github.com/AnthoniusHendriyanto/identity-core/db"
	"github.com/AnthoniusHendriyanto/identity-core/internal/identity/handler"
	repo "github.com/AnthoniusHendriyanto/identity-core/internal/identity/repository/postgres"
	"github.com/AnthoniusHendriyanto/identity-core/internal/identity/service"
	"github.com/gofiber/fiber/v2"
)

func main() {
	cfg := config.Load()

	dbPool, err := db.NewPostgresPool(context.Background(), cfg.DBURL)
	if err != nil {
		log.Fatalf("failed to set up database pool: %v", err)
	}
	defer dbPool.Close()

	userRepo := repo.NewPostgresRepository(dbPool)
	tokenService := service.NewTokenService(cfg.AccessTokenSecret, cfg.RefreshTokenSecret,
		cfg.AccessExpiryMin, cfg.RefreshExpiryMin)
	hasher := service.NewBcryptHasher()
	passwordValidator := service.NewDefaultPasswordValidator()
	rbacService := service.NewRBACService(cfg.RoleMatchPolicy)
	userService := service.NewUserService(userRepo, tokenService, hasher, passwordValidator, cfg)
	refreshService := service.NewRefreshService(userRepo, tokenService, userService, cfg)
	resetService := service.NewResetService(userRepo, hasher, passwordValidator, cfg)
	authHandler := handler.NewAuthHandler(userService, refreshService, resetService, tokenService, rbacService)

	app := fiber.New()
	handler.RegisterRoutes(app, authHandler)

	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatalf("server stopped: %v", err)
	}
}
