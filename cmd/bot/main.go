package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sumohast/bale-shop-bot/config"
	"github.com/sumohast/bale-shop-bot/internal/bot"
	"github.com/sumohast/bale-shop-bot/internal/cache"
	"github.com/sumohast/bale-shop-bot/internal/database"
	"github.com/sumohast/bale-shop-bot/internal/logger"
	"github.com/sumohast/bale-shop-bot/internal/repository"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
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

	repos := repository.New(db)

	if cfg.Redis.Enabled {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			log.Warn("Redis недоступен, кэш товаров отключён", zap.Error(err))
		} else {
			ttl := time.Duration(cfg.Redis.TTLSeconds) * time.Second
			repos.Products = cache.NewCachedProductRepo(repos.Products, rdb, ttl)
			log.Info("кэш товаров включён", zap.String("addr", cfg.Redis.Addr))
		}
	}

	gw, api, err := bot.NewTelegramGateway(cfg.Bot.Token, cfg.Bot.APIEndpoint)
	if err != nil {
		log.Fatal("не удалось подключиться к Bot API", zap.Error(err))
	}

	b := bot.New(cfg, gw, api, repos)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := b.Run(ctx); err != nil {
		log.Fatal("бот завершился с ошибкой", zap.Error(err))
	}
}
