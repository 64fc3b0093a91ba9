package config

import (
	"os"
	"strconv"

	"go.uber.org/zap"
)

type Config struct {
	Bot   Bot
	DB    DB
	Shop  Shop
	Redis Redis
}

type Bot struct {
	Token       string
	APIEndpoint string
	AdminChatID int64
	PollTimeout int // секунды long polling
	// задержка между сообщениями рассылки, защита от flood-лимитов шлюза
	BroadcastDelayMs int
}

type DB struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

type Shop struct {
	Name              string
	Currency          string
	TaxPercent        int
	LowStockThreshold int
}

type Redis struct {
	Enabled    bool
	Addr       string
	Password   string
	DB         int
	TTLSeconds int
}

func Load(log *zap.Logger) *Config {
	return &Config{
		Bot: Bot{
			Token:            getEnv("BOT_TOKEN", log),
			APIEndpoint:      getEnvDefault("BOT_API_ENDPOINT", "https://tapi.bale.ai/bot%s/%s"),
			AdminChatID:      parseInt64(getEnv("ADMIN_CHAT_ID", log), log),
			PollTimeout:      atoiDefault(os.Getenv("POLL_TIMEOUT"), 30),
			BroadcastDelayMs: atoiDefault(os.Getenv("BROADCAST_DELAY_MS"), 100),
		},
		DB: DB{
			Host:     getEnv("DB_HOST", log),
			Port:     getEnv("DB_PORT", log),
			User:     getEnv("DB_USER", log),
			Password: getEnv("DB_PASSWORD", log),
			Name:     getEnv("DB_NAME", log),
			SSLMode:  getEnvDefault("DB_SSLMODE", "disable"),
		},
		Shop: Shop{
			Name:              getEnvDefault("SHOP_NAME", "فروشگاه من"),
			Currency:          getEnvDefault("SHOP_CURRENCY", "تومان"),
			TaxPercent:        atoiDefault(os.Getenv("TAX_PERCENTAGE"), 9),
			LowStockThreshold: atoiDefault(os.Getenv("LOW_STOCK_THRESHOLD"), 10),
		},
		Redis: Redis{
			Enabled:    os.Getenv("REDIS_ENABLED") == "true",
			Addr:       getEnvDefault("REDIS_ADDR", "localhost:6379"),
			Password:   os.Getenv("REDIS_PASSWORD"),
			DB:         atoiDefault(os.Getenv("REDIS_DB"), 0),
			TTLSeconds: atoiDefault(os.Getenv("CACHE_TTL_SECONDS"), 300),
		},
	}
}

func getEnv(key string, log *zap.Logger) string {
	if val, exists := os.LookupEnv(key); exists {
		return val
	}
	log.Error("Обязательная переменная окружения не установлена", zap.String("key", key))
	panic("missing required environment variable: " + key)
}

func getEnvDefault(key, def string) string {
	if val, exists := os.LookupEnv(key); exists && val != "" {
		return val
	}
	return def
}

func atoiDefault(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

func parseInt64(s string, log *zap.Logger) int64 {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		log.Error("Некорректное числовое значение переменной окружения", zap.String("value", s))
		panic("invalid int64 environment value: " + s)
	}
	return n
}
