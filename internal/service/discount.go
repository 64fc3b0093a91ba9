package service

import (
	"context"
	"time"

	"github.com/sumohast/bale-shop-bot/internal/models"
	"github.com/sumohast/bale-shop-bot/internal/repository"
)

// AppliedDiscount — результат проверки кода, хранится в черновике оформления
// до создания заказа; запись об использовании появляется только после коммита.
type AppliedDiscount struct {
	CodeID uint
	Code   string
	Amount int64
}

type DiscountService struct {
	repo *repository.Repository
	now  func() time.Time
}

func NewDiscountService(repo *repository.Repository) *DiscountService {
	return &DiscountService{repo: repo, now: time.Now}
}

// Validate проверяет код в строгом порядке: окно действия → глобальный лимит →
// минимальная корзина → повторное использование. Первый проваленный шаг
// обрывает проверку.
func (s *DiscountService) Validate(ctx context.Context, code string, userID uint, subtotal int64) (*AppliedDiscount, error) {
	dc, err := s.repo.Discounts.GetActiveByCode(ctx, code, s.now())
	if err != nil {
		return nil, err
	}
	if dc == nil {
		return nil, ErrDiscountInvalid
	}
	if dc.UsageLimit != nil && dc.UsedCount >= *dc.UsageLimit {
		return nil, ErrDiscountExhausted
	}
	if subtotal < dc.MinPurchase {
		return nil, &MinPurchaseError{Min: dc.MinPurchase}
	}
	used, err := s.repo.Discounts.HasUsage(ctx, dc.ID, userID)
	if err != nil {
		return nil, err
	}
	if used {
		return nil, ErrDiscountUsed
	}
	return &AppliedDiscount{CodeID: dc.ID, Code: dc.Code, Amount: Amount(dc, subtotal)}, nil
}

// Amount считает размер скидки: проценты с потолком max_discount, фиксированная
// сумма как есть (итоговая цена всё равно не уходит в минус — см. FinalPrice).
func Amount(dc *models.DiscountCode, subtotal int64) int64 {
	switch dc.Type {
	case models.DiscountPercentage:
		amount := (subtotal*dc.Value + 50) / 100
		if dc.MaxDiscount != nil && amount > *dc.MaxDiscount {
			amount = *dc.MaxDiscount
		}
		return amount
	case models.DiscountFixed:
		return dc.Value
	}
	return 0
}
