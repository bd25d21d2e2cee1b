package main

import (
	"context"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/promptforge/auth-service/config"
	"github.com/promptforge/auth-service/db"
	"github.com/promptforge/auth-service/internal/auth/handler"
	repo "github.com/promptforge/auth-service/internal/auth/repository/postgres"
	"github.com/promptforge/auth-service/internal/auth/service"
)

func main() {
	cfg := config.Load()

	ctx := context.Background()

	dbPool, err := db.NewPostgresPool(ctx, cfg.DBURL)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer dbPool.Close()

	userRepo := repo.NewPostgresRepository(dbPool)
	tokenService := service.NewTokenService(cfg.JWTSecret, cfg.AccessExpiry)
	userService := service.NewUserService(userRepo, tokenService)
	authHandler := handler.NewAuthHandler(userService, tokenService)

	go sweepDeadTokens(ctx, userService, time.Duration(cfg.CleanupIntervalMin)*time.Minute)

	app := fiber.New()
	handler.RegisterRoutes(app, authHandler)

	log.Fatal(app.Listen(":" + cfg.Port))
}

// sweepDeadTokens deletes expired and revoked refresh tokens on a schedule.
// Failures only cost storage, so they are logged and ignored.
func sweepDeadTokens(ctx context.Context, userService *service.UserService, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for range ticker.C {
		count, err := userService.CleanupExpiredTokens(ctx)
		if err != nil {
			log.Printf("warn: token cleanup failed: %v", err)
			continue
		}
		if count > 0 {
			log.Printf("token cleanup removed %d rows", count)
		}
	}
}
