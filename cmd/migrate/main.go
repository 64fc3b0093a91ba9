package main

import (
	"context"
	"os"

	"github.com/sumohast/bale-shop-bot/config"
	"github.com/sumohast/bale-shop-bot/internal/database"
	"github.com/sumohast/bale-shop-bot/internal/logger"
	"github.com/sumohast/bale-shop-bot/internal/migrate"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()
	isDev := os.Getenv("ENV") == "development"
	if err := logger.Init(isDev); err != nil {
		panic(err)
	}

	defer logger.Sync()

	log := logger.L()

	cfg := config.Load(log)
	db := database.ConnectDB(&cfg.DB, log)
	defer database.CloseDB(db, log)

	ctx := context.Background()

	if err := migrate.Run(ctx, db, log, migrate.DefaultOptions()); err != nil {
		log.Fatal("Ошибка при выполнении миграции", zap.Error(err))
	}

	if os.Getenv("SEED_DEMO_DATA") == "true" {
		if err := migrate.Seed(ctx, db, log); err != nil {
			log.Fatal("Ошибка при заполнении демо-данных", zap.Error(err))
		}
	}

	log.Info("Миграция успешно завершена")
}
