package repository

import (
	"context"
	"errors"
	"time"

	"github.com/sumohast/bale-shop-bot/internal/models"

	"gorm.io/gorm"
)

type PaymentStats struct {
	Pending  int64
	Verified int64
	Rejected int64
}

type PaymentRepo interface {
	Create(ctx context.Context, p *models.Payment) error
	GetByID(ctx context.Context, id uint) (*models.Payment, error)
	ByOrder(ctx context.Context, orderID uint) (*models.Payment, error)
	// SaveReceipt привязывает файл чека к платежу заказа (создаёт платёж,
	// если его ещё нет) и переводит его в pending_verification.
	SaveReceipt(ctx context.Context, orderID, userID uint, amount int64, fileID string, now time.Time) (*models.Payment, error)
	Verify(ctx context.Context, id uint, adminChatID int64, approved bool, notes *string, now time.Time) error
	PendingVerifications(ctx context.Context, limit int) ([]models.Payment, error)
	Stats(ctx context.Context) (PaymentStats, error)
}

type paymentRepo struct{ db *gorm.DB }

func NewPaymentRepo(db *gorm.DB) PaymentRepo { return &paymentRepo{db: db} }

func (r *paymentRepo) Create(ctx context.Context, p *models.Payment) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *paymentRepo) GetByID(ctx context.Context, id uint) (*models.Payment, error) {
	var p models.Payment
	err := r.db.WithContext(ctx).Preload("Order").Preload("User").First(&p, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &p, err
}

func (r *paymentRepo) ByOrder(ctx context.Context, orderID uint) (*models.Payment, error) {
	var p models.Payment
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at DESC").
		First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &p, err
}

func (r *paymentRepo) SaveReceipt(ctx context.Context, orderID, userID uint, amount int64, fileID string, now time.Time) (*models.Payment, error) {
	var p models.Payment
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("order_id = ?", orderID).Order("created_at DESC").First(&p).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			p = models.Payment{
				OrderID: orderID,
				UserID:  userID,
				Amount:  amount,
				Method:  "manual",
			}
			if err := tx.Create(&p).Error; err != nil {
				return err
			}
		} else if err != nil {
			return err
		}
		return tx.Model(&p).Updates(map[string]any{
			"receipt_file_id": fileID,
			"status":          models.ReceiptPendingVerification,
			"submitted_at":    now,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *paymentRepo) Verify(ctx context.Context, id uint, adminChatID int64, approved bool, notes *string, now time.Time) error {
	status := models.ReceiptVerified
	if !approved {
		status = models.ReceiptRejected
	}
	fields := map[string]any{
		"status":      status,
		"verified_by": adminChatID,
		"verified_at": now,
	}
	if approved {
		fields["paid_at"] = now
	}
	if notes != nil {
		fields["admin_notes"] = *notes
	}
	return r.db.WithContext(ctx).Model(&models.Payment{}).Where("id = ?", id).Updates(fields).Error
}

func (r *paymentRepo) PendingVerifications(ctx context.Context, limit int) ([]models.Payment, error) {
	if limit <= 0 {
		limit = 20
	}
	var list []models.Payment
	err := r.db.WithContext(ctx).
		Preload("Order").Preload("User").
		Where("status = ?", models.ReceiptPendingVerification).
		Order("submitted_at ASC").Limit(limit).
		Find(&list).Error
	return list, err
}

func (r *paymentRepo) Stats(ctx context.Context) (PaymentStats, error) {
	var s PaymentStats
	base := r.db.WithContext(ctx).Model(&models.Payment{})

	if err := base.Session(&gorm.Session{}).Where("status = ?", models.ReceiptPendingVerification).Count(&s.Pending).Error; err != nil {
		return s, err
	}
	if err := base.Session(&gorm.Session{}).Where("status = ?", models.ReceiptVerified).Count(&s.Verified).Error; err != nil {
		return s, err
	}
	err := base.Session(&gorm.Session{}).Where("status = ?", models.ReceiptRejected).Count(&s.Rejected).Error
	return s, err
}
