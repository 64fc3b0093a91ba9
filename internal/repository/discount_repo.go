package repository

import (
	"context"
	"errors"
	"time"

	"github.com/sumohast/bale-shop-bot/internal/models"

	"gorm.io/gorm"
)

type DiscountUsageStats struct {
	Code      string
	UsedCount int
	Limit     *int
}

type DiscountRepo interface {
	Create(ctx context.Context, dc *models.DiscountCode) error
	GetByID(ctx context.Context, id uint) (*models.DiscountCode, error)
	// GetActiveByCode находит код, действующий на момент now (окно start/end).
	GetActiveByCode(ctx context.Context, code string, now time.Time) (*models.DiscountCode, error)
	ListActive(ctx context.Context) ([]models.DiscountCode, error)
	ListAll(ctx context.Context) ([]models.DiscountCode, error)
	SetActive(ctx context.Context, id uint, active bool) error
	HasUsage(ctx context.Context, codeID, userID uint) (bool, error)
	// RecordUsage пишет факт применения и наращивает used_count одним махом;
	// нарушение уникального индекса пробрасывается наверх.
	RecordUsage(ctx context.Context, codeID, userID uint, orderID *uint) error
	ReleaseUsage(ctx context.Context, codeID, userID uint) error
	UsageStats(ctx context.Context) ([]DiscountUsageStats, error)
}

type discountRepo struct{ db *gorm.DB }

func NewDiscountRepo(db *gorm.DB) DiscountRepo { return &discountRepo{db: db} }

func (r *discountRepo) Create(ctx context.Context, dc *models.DiscountCode) error {
	return r.db.WithContext(ctx).Create(dc).Error
}

func (r *discountRepo) GetByID(ctx context.Context, id uint) (*models.DiscountCode, error) {
	var dc models.DiscountCode
	err := r.db.WithContext(ctx).First(&dc, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &dc, err
}

func (r *discountRepo) GetActiveByCode(ctx context.Context, code string, now time.Time) (*models.DiscountCode, error) {
	var dc models.DiscountCode
	err := r.db.WithContext(ctx).
		Where("code = ? AND is_active = ?", code, true).
		Where("start_date <= ?", now).
		Where("end_date IS NULL OR end_date >= ?", now).
		First(&dc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &dc, err
}

func (r *discountRepo) ListActive(ctx context.Context) ([]models.DiscountCode, error) {
	var list []models.DiscountCode
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("created_at DESC").
		Find(&list).Error
	return list, err
}

func (r *discountRepo) ListAll(ctx context.Context) ([]models.DiscountCode, error) {
	var list []models.DiscountCode
	err := r.db.WithContext(ctx).Order("created_at DESC").Find(&list).Error
	return list, err
}

func (r *discountRepo) SetActive(ctx context.Context, id uint, active bool) error {
	return r.db.WithContext(ctx).Model(&models.DiscountCode{}).Where("id = ?", id).
		Update("is_active", active).Error
}

func (r *discountRepo) HasUsage(ctx context.Context, codeID, userID uint) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.DiscountUsage{}).
		Where("discount_code_id = ? AND user_id = ?", codeID, userID).
		Count(&n).Error
	return n > 0, err
}

func (r *discountRepo) RecordUsage(ctx context.Context, codeID, userID uint, orderID *uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&models.DiscountUsage{
			DiscountCodeID: codeID,
			UserID:         userID,
			OrderID:        orderID,
		}).Error; err != nil {
			return err
		}
		return tx.Model(&models.DiscountCode{}).Where("id = ?", codeID).
			UpdateColumn("used_count", gorm.Expr("used_count + 1")).Error
	})
}

func (r *discountRepo) ReleaseUsage(ctx context.Context, codeID, userID uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("discount_code_id = ? AND user_id = ?", codeID, userID).
			Delete(&models.DiscountUsage{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		return tx.Model(&models.DiscountCode{}).
			Where("id = ? AND used_count > 0", codeID).
			UpdateColumn("used_count", gorm.Expr("used_count - 1")).Error
	})
}

func (r *discountRepo) UsageStats(ctx context.Context) ([]DiscountUsageStats, error) {
	var codes []models.DiscountCode
	if err := r.db.WithContext(ctx).Order("used_count DESC").Find(&codes).Error; err != nil {
		return nil, err
	}
	stats := make([]DiscountUsageStats, 0, len(codes))
	for _, c := range codes {
		stats = append(stats, DiscountUsageStats{Code: c.Code, UsedCount: c.UsedCount, Limit: c.UsageLimit})
	}
	return stats, nil
}
