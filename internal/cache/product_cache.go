// Package cache содержит кэширующие обёртки над репозиториями.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sumohast/bale-shop-bot/internal/logger"
	"github.com/sumohast/bale-shop-bot/internal/models"
	"github.com/sumohast/bale-shop-bot/internal/repository"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// CachedProductRepo — read-through кэш карточек товара поверх ProductRepo.
// Любая запись инвалидирует затронутые ключи; ошибки Redis не фатальны,
// чтение просто уходит в базу.
type CachedProductRepo struct {
	repository.ProductRepo

	rdb *redis.Client
	ttl time.Duration
}

func NewCachedProductRepo(inner repository.ProductRepo, rdb *redis.Client, ttl time.Duration) *CachedProductRepo {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &CachedProductRepo{ProductRepo: inner, rdb: rdb, ttl: ttl}
}

func productKey(id uint) string          { return fmt.Sprintf("product:%d", id) }
func categoryKey(categoryID uint) string { return fmt.Sprintf("products:category:%d", categoryID) }

func (c *CachedProductRepo) GetByID(ctx context.Context, id uint) (*models.Product, error) {
	key := productKey(id)
	raw, err := c.rdb.Get(ctx, key).Bytes()
	if err == nil {
		var p models.Product
		if err := json.Unmarshal(raw, &p); err == nil {
			return &p, nil
		}
		// битый ключ — выбрасываем и идём в базу
		c.rdb.Del(ctx, key)
	} else if !errors.Is(err, redis.Nil) {
		logger.L().Warn("redis get failed", zap.String("key", key), zap.Error(err))
	}

	p, err := c.ProductRepo.GetByID(ctx, id)
	if err != nil || p == nil {
		return p, err
	}
	if raw, err := json.Marshal(p); err == nil {
		if err := c.rdb.Set(ctx, key, raw, c.ttl).Err(); err != nil {
			logger.L().Warn("redis set failed", zap.String("key", key), zap.Error(err))
		}
	}
	return p, nil
}

func (c *CachedProductRepo) ByCategory(ctx context.Context, categoryID uint) ([]models.Product, error) {
	key := categoryKey(categoryID)
	raw, err := c.rdb.Get(ctx, key).Bytes()
	if err == nil {
		var list []models.Product
		if err := json.Unmarshal(raw, &list); err == nil {
			return list, nil
		}
		c.rdb.Del(ctx, key)
	} else if !errors.Is(err, redis.Nil) {
		logger.L().Warn("redis get failed", zap.String("key", key), zap.Error(err))
	}

	list, err := c.ProductRepo.ByCategory(ctx, categoryID)
	if err != nil {
		return nil, err
	}
	if raw, err := json.Marshal(list); err == nil {
		if err := c.rdb.Set(ctx, key, raw, c.ttl).Err(); err != nil {
			logger.L().Warn("redis set failed", zap.String("key", key), zap.Error(err))
		}
	}
	return list, nil
}

func (c *CachedProductRepo) invalidate(ctx context.Context, id uint) {
	keys := []string{productKey(id)}
	if p, err := c.ProductRepo.GetByID(ctx, id); err == nil && p != nil {
		keys = append(keys, categoryKey(p.CategoryID))
	}
	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		logger.L().Warn("redis del failed", zap.Uint("product_id", id), zap.Error(err))
	}
}

func (c *CachedProductRepo) invalidateAll(ctx context.Context) {
	iter := c.rdb.Scan(ctx, 0, "products:category:*", 0).Iterator()
	for iter.Next(ctx) {
		c.rdb.Del(ctx, iter.Val())
	}
	if err := iter.Err(); err != nil {
		logger.L().Warn("redis scan failed", zap.Error(err))
	}
}

func (c *CachedProductRepo) Create(ctx context.Context, p *models.Product) error {
	if err := c.ProductRepo.Create(ctx, p); err != nil {
		return err
	}
	c.rdb.Del(ctx, categoryKey(p.CategoryID))
	return nil
}

func (c *CachedProductRepo) UpdateFields(ctx context.Context, id uint, fields map[string]any) error {
	if err := c.ProductRepo.UpdateFields(ctx, id, fields); err != nil {
		return err
	}
	c.invalidate(ctx, id)
	if _, ok := fields["category_id"]; ok {
		// товар мог переехать между категориями — проще сбросить все списки
		c.invalidateAll(ctx)
	}
	return nil
}

func (c *CachedProductRepo) SetActive(ctx context.Context, id uint, active bool) error {
	if err := c.ProductRepo.SetActive(ctx, id, active); err != nil {
		return err
	}
	c.invalidate(ctx, id)
	return nil
}

func (c *CachedProductRepo) HardDelete(ctx context.Context, id uint) error {
	c.invalidate(ctx, id)
	return c.ProductRepo.HardDelete(ctx, id)
}

func (c *CachedProductRepo) DecrementStock(ctx context.Context, id uint, qty int) (bool, error) {
	ok, err := c.ProductRepo.DecrementStock(ctx, id, qty)
	if ok {
		c.invalidate(ctx, id)
	}
	return ok, err
}

func (c *CachedProductRepo) RestoreStock(ctx context.Context, id uint, qty int) error {
	if err := c.ProductRepo.RestoreStock(ctx, id, qty); err != nil {
		return err
	}
	c.invalidate(ctx, id)
	return nil
}
