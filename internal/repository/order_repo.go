package repository

import (
	"context"
	"errors"
	"time"

	"github.com/sumohast/bale-shop-bot/internal/models"

	"gorm.io/gorm"
)

type OrderFilter struct {
	Status        models.OrderStatus
	PaymentStatus models.PaymentState
	UserID        uint
	Limit         int
}

type OrderStats struct {
	Total     int64
	Pending   int64
	Delivered int64
	Cancelled int64
	Revenue   int64
	Today     int64
}

type OrderRepo interface {
	Create(ctx context.Context, o *models.Order) error
	CreateItems(ctx context.Context, items []models.OrderItem) error
	GetByID(ctx context.Context, id uint) (*models.Order, error)
	GetByTrackingCode(ctx context.Context, code string) (*models.Order, error)
	TrackingCodeExists(ctx context.Context, code string) (bool, error)
	ListByUser(ctx context.Context, userID uint, limit int) ([]models.Order, error)
	List(ctx context.Context, f OrderFilter) ([]models.Order, error)
	Items(ctx context.Context, orderID uint) ([]models.OrderItem, error)
	UpdateStatus(ctx context.Context, id uint, status models.OrderStatus, adminNotes *string) error
	UpdatePaymentStatus(ctx context.Context, id uint, state models.PaymentState) error
	Stats(ctx context.Context, now time.Time) (OrderStats, error)
}

type orderRepo struct{ db *gorm.DB }

func NewOrderRepo(db *gorm.DB) OrderRepo { return &orderRepo{db: db} }

func (r *orderRepo) Create(ctx context.Context, o *models.Order) error {
	return r.db.WithContext(ctx).Create(o).Error
}

func (r *orderRepo) CreateItems(ctx context.Context, items []models.OrderItem) error {
	if len(items) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&items).Error
}

func (r *orderRepo) GetByID(ctx context.Context, id uint) (*models.Order, error) {
	var o models.Order
	err := r.db.WithContext(ctx).Preload("Items").First(&o, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &o, err
}

func (r *orderRepo) GetByTrackingCode(ctx context.Context, code string) (*models.Order, error) {
	var o models.Order
	err := r.db.WithContext(ctx).Preload("Items").First(&o, "tracking_code = ?", code).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &o, err
}

func (r *orderRepo) TrackingCodeExists(ctx context.Context, code string) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Order{}).
		Where("tracking_code = ?", code).Count(&n).Error
	return n > 0, err
}

func (r *orderRepo) ListByUser(ctx context.Context, userID uint, limit int) ([]models.Order, error) {
	if limit <= 0 {
		limit = 20
	}
	var list []models.Order
	err := r.db.WithContext(ctx).Preload("Items").
		Where("user_id = ?", userID).
		Order("created_at DESC").Limit(limit).
		Find(&list).Error
	return list, err
}

func (r *orderRepo) List(ctx context.Context, f OrderFilter) ([]models.Order, error) {
	q := r.db.WithContext(ctx).Model(&models.Order{})
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.PaymentStatus != "" {
		q = q.Where("payment_status = ?", f.PaymentStatus)
	}
	if f.UserID != 0 {
		q = q.Where("user_id = ?", f.UserID)
	}
	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	var list []models.Order
	err := q.Preload("Items").Order("created_at DESC").Limit(limit).Find(&list).Error
	return list, err
}

func (r *orderRepo) Items(ctx context.Context, orderID uint) ([]models.OrderItem, error) {
	var items []models.OrderItem
	err := r.db.WithContext(ctx).Where("order_id = ?", orderID).Find(&items).Error
	return items, err
}

func (r *orderRepo) UpdateStatus(ctx context.Context, id uint, status models.OrderStatus, adminNotes *string) error {
	fields := map[string]any{"status": status}
	if adminNotes != nil {
		fields["admin_notes"] = *adminNotes
	}
	return r.db.WithContext(ctx).Model(&models.Order{}).Where("id = ?", id).Updates(fields).Error
}

func (r *orderRepo) UpdatePaymentStatus(ctx context.Context, id uint, state models.PaymentState) error {
	return r.db.WithContext(ctx).Model(&models.Order{}).Where("id = ?", id).
		Update("payment_status", state).Error
}

func (r *orderRepo) Stats(ctx context.Context, now time.Time) (OrderStats, error) {
	var s OrderStats
	base := r.db.WithContext(ctx).Model(&models.Order{})

	if err := base.Session(&gorm.Session{}).Count(&s.Total).Error; err != nil {
		return s, err
	}
	if err := base.Session(&gorm.Session{}).Where("status = ?", models.OrderStatusPending).Count(&s.Pending).Error; err != nil {
		return s, err
	}
	if err := base.Session(&gorm.Session{}).Where("status = ?", models.OrderStatusDelivered).Count(&s.Delivered).Error; err != nil {
		return s, err
	}
	if err := base.Session(&gorm.Session{}).Where("status = ?", models.OrderStatusCancelled).Count(&s.Cancelled).Error; err != nil {
		return s, err
	}

	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	if err := base.Session(&gorm.Session{}).Where("created_at >= ?", dayStart).Count(&s.Today).Error; err != nil {
		return s, err
	}

	// выручка — только оплаченные и не отменённые заказы
	var revenue *int64
	err := base.Session(&gorm.Session{}).
		Select("SUM(final_price)").
		Where("payment_status = ? AND status <> ?", models.PaymentPaid, models.OrderStatusCancelled).
		Scan(&revenue).Error
	if err != nil {
		return s, err
	}
	if revenue != nil {
		s.Revenue = *revenue
	}
	return s, nil
}
