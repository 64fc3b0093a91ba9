package cache_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/sumohast/bale-shop-bot/internal/cache"
	"github.com/sumohast/bale-shop-bot/internal/migrate"
	"github.com/sumohast/bale-shop-bot/internal/models"
	"github.com/sumohast/bale-shop-bot/internal/repository"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func setup(t *testing.T) (*cache.CachedProductRepo, *repository.Repository, *miniredis.Miniredis) {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "shop.db")
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, migrate.AutoMigrate(db))
	repo := repository.New(db)

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cached := cache.NewCachedProductRepo(repo.Products, rdb, 5*time.Minute)
	return cached, repo, mr
}

func seedProduct(t *testing.T, repo *repository.Repository) *models.Product {
	t.Helper()
	ctx := context.Background()
	cat := &models.Category{Title: "تست", IsActive: true}
	require.NoError(t, repo.Categories.Create(ctx, cat))
	p := &models.Product{CategoryID: cat.ID, Name: "کالا", Price: 1000, Stock: 5, IsActive: true}
	require.NoError(t, repo.Products.Create(ctx, p))
	return p
}

func TestCachedGetByID_ServesFromRedis(t *testing.T) {
	cached, repo, mr := setup(t)
	ctx := context.Background()
	p := seedProduct(t, repo)

	got, err := cached.GetByID(ctx, p.ID)
	require.NoError(t, err)
	require.Equal(t, "کالا", got.Name)

	// товар теперь лежит в Redis и отдаётся оттуда даже после правки базы
	require.NoError(t, repo.Products.UpdateFields(ctx, p.ID, map[string]any{"name": "другое"}))
	got, err = cached.GetByID(ctx, p.ID)
	require.NoError(t, err)
	require.Equal(t, "کالا", got.Name)

	// сброс ключа возвращает чтение в базу
	mr.FlushAll()
	got, err = cached.GetByID(ctx, p.ID)
	require.NoError(t, err)
	require.Equal(t, "другое", got.Name)
}

func TestCachedUpdate_Invalidates(t *testing.T) {
	cached, repo, _ := setup(t)
	ctx := context.Background()
	p := seedProduct(t, repo)

	_, err := cached.GetByID(ctx, p.ID)
	require.NoError(t, err)

	require.NoError(t, cached.UpdateFields(ctx, p.ID, map[string]any{"price": int64(2000)}))
	got, err := cached.GetByID(ctx, p.ID)
	require.NoError(t, err)
	require.Equal(t, int64(2000), got.Price)
}

func TestCachedDecrementStock_Invalidates(t *testing.T) {
	cached, repo, _ := setup(t)
	ctx := context.Background()
	p := seedProduct(t, repo)

	_, err := cached.GetByID(ctx, p.ID)
	require.NoError(t, err)

	ok, err := cached.DecrementStock(ctx, p.ID, 2)
	require.NoError(t, err)
	require.True(t, ok)

	got, err := cached.GetByID(ctx, p.ID)
	require.NoError(t, err)
	require.Equal(t, 3, got.Stock)
}

func TestCachedByCategory(t *testing.T) {
	cached, repo, _ := setup(t)
	ctx := context.Background()
	p := seedProduct(t, repo)

	list, err := cached.ByCategory(ctx, p.CategoryID)
	require.NoError(t, err)
	require.Len(t, list, 1)

	// повторное чтение из кэша даёт тот же список
	list, err = cached.ByCategory(ctx, p.CategoryID)
	require.NoError(t, err)
	require.Len(t, list, 1)

	// деактивация инвалидирует список категории
	require.NoError(t, cached.SetActive(ctx, p.ID, false))
	list, err = cached.ByCategory(ctx, p.CategoryID)
	require.NoError(t, err)
	require.Empty(t, list)
}
