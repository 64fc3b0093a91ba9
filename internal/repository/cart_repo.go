package repository

import (
	"context"
	"errors"

	"github.com/sumohast/bale-shop-bot/internal/models"

	"gorm.io/gorm"
)

// CartSummary — корзина с подсчитанным итогом по действующим ценам.
type CartSummary struct {
	Items    []models.CartItem
	Subtotal int64
	Count    int
}

type CartRepo interface {
	// Add кладёт товар в корзину; повторное добавление наращивает количество.
	Add(ctx context.Context, userID, productID uint, qty int) error
	Decrease(ctx context.Context, userID, productID uint) error
	Remove(ctx context.Context, userID, productID uint) error
	Clear(ctx context.Context, userID uint) error
	Items(ctx context.Context, userID uint) ([]models.CartItem, error)
	Summary(ctx context.Context, userID uint) (CartSummary, error)
}

type cartRepo struct{ db *gorm.DB }

func NewCartRepo(db *gorm.DB) CartRepo { return &cartRepo{db: db} }

func (r *cartRepo) Add(ctx context.Context, userID, productID uint, qty int) error {
	if qty <= 0 {
		qty = 1
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var item models.CartItem
		err := tx.Where("user_id = ? AND product_id = ?", userID, productID).First(&item).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return tx.Create(&models.CartItem{
				UserID:    userID,
				ProductID: productID,
				Quantity:  qty,
			}).Error
		}
		if err != nil {
			return err
		}
		return tx.Model(&item).UpdateColumn("quantity", gorm.Expr("quantity + ?", qty)).Error
	})
}

func (r *cartRepo) Decrease(ctx context.Context, userID, productID uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var item models.CartItem
		err := tx.Where("user_id = ? AND product_id = ?", userID, productID).First(&item).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if item.Quantity <= 1 {
			return tx.Delete(&item).Error
		}
		return tx.Model(&item).UpdateColumn("quantity", gorm.Expr("quantity - 1")).Error
	})
}

func (r *cartRepo) Remove(ctx context.Context, userID, productID uint) error {
	return r.db.WithContext(ctx).
		Where("user_id = ? AND product_id = ?", userID, productID).
		Delete(&models.CartItem{}).Error
}

func (r *cartRepo) Clear(ctx context.Context, userID uint) error {
	return r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.CartItem{}).Error
}

func (r *cartRepo) Items(ctx context.Context, userID uint) ([]models.CartItem, error) {
	var items []models.CartItem
	err := r.db.WithContext(ctx).
		Preload("Product").
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&items).Error
	return items, err
}

func (r *cartRepo) Summary(ctx context.Context, userID uint) (CartSummary, error) {
	items, err := r.Items(ctx, userID)
	if err != nil {
		return CartSummary{}, err
	}
	s := CartSummary{Items: make([]models.CartItem, 0, len(items))}
	for _, it := range items {
		// снятые с продажи товары в итог не входят
		if !it.Product.IsActive {
			continue
		}
		s.Items = append(s.Items, it)
		s.Subtotal += it.Product.EffectivePrice() * int64(it.Quantity)
		s.Count += it.Quantity
	}
	return s, nil
}
