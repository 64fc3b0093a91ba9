package service

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/sumohast/bale-shop-bot/internal/logger"
	"github.com/sumohast/bale-shop-bot/internal/models"
	"github.com/sumohast/bale-shop-bot/internal/repository"

	"go.uber.org/zap"
)

// CheckoutInput — снимок данных покупателя, накопленных диалогом оформления.
type CheckoutInput struct {
	FullName   string
	Phone      string
	Address    string
	PostalCode *string

	Discount *AppliedDiscount
	Notes    *string
}

type OrderService struct {
	repo       *repository.Repository
	taxPercent int64
	now        func() time.Time
}

func NewOrderService(repo *repository.Repository, taxPercent int64) *OrderService {
	return &OrderService{repo: repo, taxPercent: taxPercent, now: time.Now}
}

const trackingRetries = 3

// CreateOrder создаёт заказ одной транзакцией: строка заказа, снимки позиций
// и списание остатков либо фиксируются целиком, либо не происходят вовсе.
// Запись об использовании скидки и очистку корзины делает вызывающая сторона
// уже после коммита.
func (s *OrderService) CreateOrder(ctx context.Context, userID uint, in CheckoutInput, cart []models.CartItem) (*models.Order, error) {
	if len(cart) == 0 {
		return nil, ErrEmptyCart
	}

	var subtotal int64
	for _, line := range cart {
		subtotal += line.Product.EffectivePrice() * int64(line.Quantity)
	}
	var requested int64
	if in.Discount != nil {
		requested = in.Discount.Amount
	}
	discount, tax, final := FinalPrice(subtotal, requested, s.taxPercent)

	var codeID *uint
	if in.Discount != nil {
		v := in.Discount.CodeID
		codeID = &v
	}
	order := &models.Order{
		UserID:         userID,
		FullName:       in.FullName,
		Phone:          in.Phone,
		Address:        in.Address,
		PostalCode:     in.PostalCode,
		TotalPrice:     subtotal,
		DiscountCodeID: codeID,
		DiscountAmount: discount,
		TaxAmount:      tax,
		FinalPrice:     final,
		Status:         models.OrderStatusPending,
		PaymentStatus:  models.PaymentUnpaid,
		CustomerNotes:  in.Notes,
	}

	err := s.repo.WithTx(ctx, func(tx *repository.Repository) error {
		code, err := s.freshTrackingCode(ctx, tx)
		if err != nil {
			return err
		}
		order.TrackingCode = code
		if err := tx.Orders.Create(ctx, order); err != nil {
			return err
		}

		items := make([]models.OrderItem, 0, len(cart))
		for _, line := range cart {
			// свежее чтение внутри транзакции: корзина могла устареть
			p, err := tx.Products.GetByID(ctx, line.ProductID)
			if err != nil {
				return err
			}
			if p == nil || !p.IsActive {
				return ErrProductUnavailable
			}
			ok, err := tx.Products.DecrementStock(ctx, p.ID, line.Quantity)
			if err != nil {
				return err
			}
			if !ok {
				return ErrOutOfStock
			}
			items = append(items, models.OrderItem{
				OrderID:       order.ID,
				ProductID:     p.ID,
				ProductName:   p.Name,
				Quantity:      line.Quantity,
				Price:         p.Price,
				DiscountPrice: p.DiscountPrice,
			})
		}
		if err := tx.Orders.CreateItems(ctx, items); err != nil {
			return err
		}
		order.Items = items
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.L().Info("заказ создан",
		zap.Uint("order_id", order.ID),
		zap.String("tracking_code", order.TrackingCode),
		zap.Int64("final_price", order.FinalPrice))
	return order, nil
}

func (s *OrderService) freshTrackingCode(ctx context.Context, tx *repository.Repository) (string, error) {
	for i := 0; i < trackingRetries; i++ {
		code := NewTrackingCode(s.now())
		exists, err := tx.Orders.TrackingCodeExists(ctx, code)
		if err != nil {
			return "", err
		}
		if !exists {
			return code, nil
		}
	}
	return "", ErrTrackingCollision
}

// CancelOrder — атомарная обратная операция: вернуть остатки, снять продажи,
// освободить использованный код скидки, пометить заказ отменённым с причиной.
func (s *OrderService) CancelOrder(ctx context.Context, orderID uint, reason string) (*models.Order, error) {
	var cancelled *models.Order
	err := s.repo.WithTx(ctx, func(tx *repository.Repository) error {
		order, err := tx.Orders.GetByID(ctx, orderID)
		if err != nil {
			return err
		}
		if order == nil {
			return ErrOrderNotFound
		}
		if order.Status.Terminal() {
			return ErrOrderTerminal
		}
		// позиции читаются внутри транзакции, а не из прелоада снаружи
		items, err := tx.Orders.Items(ctx, order.ID)
		if err != nil {
			return err
		}
		for _, it := range items {
			if err := tx.Products.RestoreStock(ctx, it.ProductID, it.Quantity); err != nil {
				return err
			}
		}
		if order.DiscountCodeID != nil {
			if err := tx.Discounts.ReleaseUsage(ctx, *order.DiscountCodeID, order.UserID); err != nil {
				return err
			}
		}
		notes := reason
		if err := tx.Orders.UpdateStatus(ctx, order.ID, models.OrderStatusCancelled, &notes); err != nil {
			return err
		}
		order.Status = models.OrderStatusCancelled
		order.AdminNotes = &notes
		cancelled = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	logger.L().Info("заказ отменён", zap.Uint("order_id", orderID), zap.String("reason", reason))
	return cancelled, nil
}

// SetStatus — простое нетранзакционное обновление; уведомление пользователю
// отправляет вызывающая сторона асинхронно.
func (s *OrderService) SetStatus(ctx context.Context, orderID uint, status models.OrderStatus) (*models.Order, error) {
	order, err := s.repo.Orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	if order.Status.Terminal() {
		return nil, ErrOrderTerminal
	}
	if err := s.repo.Orders.UpdateStatus(ctx, orderID, status, nil); err != nil {
		return nil, err
	}
	order.Status = status
	return order, nil
}

func (s *OrderService) MarkPaid(ctx context.Context, orderID uint) error {
	return s.repo.Orders.UpdatePaymentStatus(ctx, orderID, models.PaymentPaid)
}

// Track находит заказ по числовому id либо по коду отслеживания.
func (s *OrderService) Track(ctx context.Context, query string) (*models.Order, error) {
	query = strings.TrimSpace(query)
	if id, err := strconv.ParseUint(query, 10, 64); err == nil {
		return s.repo.Orders.GetByID(ctx, uint(id))
	}
	return s.repo.Orders.GetByTrackingCode(ctx, strings.ToUpper(query))
}

func (s *OrderService) ListByUser(ctx context.Context, userID uint, limit int) ([]models.Order, error) {
	return s.repo.Orders.ListByUser(ctx, userID, limit)
}

func (s *OrderService) Stats(ctx context.Context) (repository.OrderStats, error) {
	return s.repo.Orders.Stats(ctx, s.now())
}
