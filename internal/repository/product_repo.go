package repository

import (
	"context"
	"errors"

	"github.com/sumohast/bale-shop-bot/internal/models"

	"gorm.io/gorm"
)

type ProductStats struct {
	Active     int64
	OutOfStock int64
	LowStock   int64
}

type ProductRepo interface {
	Create(ctx context.Context, p *models.Product) error
	GetByID(ctx context.Context, id uint) (*models.Product, error)
	ByCategory(ctx context.Context, categoryID uint) ([]models.Product, error)
	ListActive(ctx context.Context) ([]models.Product, error)
	ListAll(ctx context.Context) ([]models.Product, error)
	Featured(ctx context.Context, limit int) ([]models.Product, error)
	Search(ctx context.Context, keyword string) ([]models.Product, error)
	LowStock(ctx context.Context, threshold int) ([]models.Product, error)
	Stats(ctx context.Context, lowStockThreshold int) (ProductStats, error)
	UpdateFields(ctx context.Context, id uint, fields map[string]any) error
	SetActive(ctx context.Context, id uint, active bool) error
	HardDelete(ctx context.Context, id uint) error
	IncViewCount(ctx context.Context, id uint) error

	// DecrementStock атомарно: stock -= qty, sold_count += qty, если хватает.
	// false означает нехватку остатка (ни одна строка не затронута).
	DecrementStock(ctx context.Context, id uint, qty int) (bool, error)
	// RestoreStock — обратная операция при отмене заказа.
	RestoreStock(ctx context.Context, id uint, qty int) error
}

type productRepo struct{ db *gorm.DB }

func NewProductRepo(db *gorm.DB) ProductRepo { return &productRepo{db: db} }

func (r *productRepo) Create(ctx context.Context, p *models.Product) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *productRepo) GetByID(ctx context.Context, id uint) (*models.Product, error) {
	var p models.Product
	err := r.db.WithContext(ctx).First(&p, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &p, err
}

func (r *productRepo) ByCategory(ctx context.Context, categoryID uint) ([]models.Product, error) {
	var list []models.Product
	err := r.db.WithContext(ctx).
		Where("category_id = ? AND is_active = ?", categoryID, true).
		Order("is_featured DESC, created_at DESC").
		Find(&list).Error
	return list, err
}

func (r *productRepo) ListActive(ctx context.Context) ([]models.Product, error) {
	var list []models.Product
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("is_featured DESC, created_at DESC").
		Find(&list).Error
	return list, err
}

func (r *productRepo) ListAll(ctx context.Context) ([]models.Product, error) {
	var list []models.Product
	err := r.db.WithContext(ctx).
		Order("is_active DESC, is_featured DESC, created_at DESC").
		Find(&list).Error
	return list, err
}

func (r *productRepo) Featured(ctx context.Context, limit int) ([]models.Product, error) {
	if limit <= 0 {
		limit = 10
	}
	var list []models.Product
	err := r.db.WithContext(ctx).
		Where("is_featured = ? AND is_active = ?", true, true).
		Order("created_at DESC").Limit(limit).
		Find(&list).Error
	return list, err
}

func (r *productRepo) Search(ctx context.Context, keyword string) ([]models.Product, error) {
	var list []models.Product
	pattern := "%" + keyword + "%"
	err := r.db.WithContext(ctx).
		Where("(name LIKE ? OR description LIKE ?) AND is_active = ?", pattern, pattern, true).
		Find(&list).Error
	return list, err
}

func (r *productRepo) LowStock(ctx context.Context, threshold int) ([]models.Product, error) {
	var list []models.Product
	err := r.db.WithContext(ctx).
		Where("stock <= ? AND is_active = ?", threshold, true).
		Order("stock ASC").
		Find(&list).Error
	return list, err
}

func (r *productRepo) Stats(ctx context.Context, lowStockThreshold int) (ProductStats, error) {
	var s ProductStats
	db := r.db.WithContext(ctx).Model(&models.Product{})

	if err := db.Session(&gorm.Session{}).Where("is_active = ?", true).Count(&s.Active).Error; err != nil {
		return s, err
	}
	if err := db.Session(&gorm.Session{}).Where("stock = 0 AND is_active = ?", true).Count(&s.OutOfStock).Error; err != nil {
		return s, err
	}
	err := db.Session(&gorm.Session{}).
		Where("stock > 0 AND stock <= ? AND is_active = ?", lowStockThreshold, true).
		Count(&s.LowStock).Error
	return s, err
}

func (r *productRepo) UpdateFields(ctx context.Context, id uint, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Model(&models.Product{}).Where("id = ?", id).Updates(fields).Error
}

func (r *productRepo) SetActive(ctx context.Context, id uint, active bool) error {
	return r.db.WithContext(ctx).Model(&models.Product{}).Where("id = ?", id).Update("is_active", active).Error
}

func (r *productRepo) HardDelete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&models.Product{}, "id = ?", id).Error
}

func (r *productRepo) IncViewCount(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Model(&models.Product{}).Where("id = ?", id).
		UpdateColumn("view_count", gorm.Expr("view_count + 1")).Error
}

func (r *productRepo) DecrementStock(ctx context.Context, id uint, qty int) (bool, error) {
	// условный UPDATE вместо read-then-write: гонка двух оформлений не может
	// увести остаток в минус
	tx := r.db.WithContext(ctx).Exec(`
UPDATE products
SET stock = stock - ?,
    sold_count = sold_count + ?
WHERE id = ?
  AND stock >= ?
`, qty, qty, id, qty)
	return tx.RowsAffected > 0, tx.Error
}

func (r *productRepo) RestoreStock(ctx context.Context, id uint, qty int) error {
	// sold_count не уходит в минус, даже если счётчик правили руками
	return r.db.WithContext(ctx).Exec(`
UPDATE products
SET stock = stock + ?,
    sold_count = CASE WHEN sold_count >= ? THEN sold_count - ? ELSE 0 END
WHERE id = ?
`, qty, qty, qty, id).Error
}
