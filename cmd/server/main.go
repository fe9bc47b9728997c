package main

import (
	"context"
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/auth-token-service/internal/auth"
	"github.com/iliyamo/auth-token-service/internal/config"
	"github.com/iliyamo/auth-token-service/internal/database"
	"github.com/iliyamo/auth-token-service/internal/handler"
	"github.com/iliyamo/auth-token-service/internal/maintenance"
	"github.com/iliyamo/auth-token-service/internal/notifier"
	"github.com/iliyamo/auth-token-service/internal/queue"
	"github.com/iliyamo/auth-token-service/internal/repository"
	"github.com/iliyamo/auth-token-service/internal/router"
	"github.com/iliyamo/auth-token-service/internal/token"
)

func main() {
	_ = godotenv.Load() // .env is optional; real env always wins
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	users := repository.NewUserRepo(db)
	store := repository.NewCredentialRepo(db)
	issuer := token.NewIssuer(cfg.JWTSecret)

	renewals := auth.NewRenewalManager(store, users, issuer, cfg.AccessTTL, cfg.RenewalTTL)
	recovery := auth.NewRecoveryManager(store, notifier.NewAMQPNotifier(), cfg.RecoveryTTL, cfg.BcryptCost)
	svc := auth.NewService(users, renewals, recovery, cfg.BcryptCost)

	go func() {
		if err := queue.StartRecoveryMailConsumer(); err != nil {
			log.Printf("recovery-consumer stopped: %v", err)
		}
	}()

	sweeper := maintenance.NewSweeper(store, cfg.SweepInterval)
	go sweeper.Run(context.Background())

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Printf("redis unavailable; rate limiting disabled")
	}

	e := echo.New()
	router.Register(e, handler.NewAuthHandler(svc, users, cfg.BcryptCost), issuer, config.LoadRateLimitConfig(), rdb)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
