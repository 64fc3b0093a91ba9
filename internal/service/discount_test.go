package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/sumohast/bale-shop-bot/internal/models"
	"github.com/sumohast/bale-shop-bot/internal/repository"
	"github.com/sumohast/bale-shop-bot/internal/service"

	"github.com/stretchr/testify/require"
)

func seedDiscount(t *testing.T, repo *repository.Repository, dc *models.DiscountCode) *models.DiscountCode {
	t.Helper()
	if dc.StartDate.IsZero() {
		dc.StartDate = time.Now().Add(-time.Hour)
	}
	require.NoError(t, repo.Discounts.Create(context.Background(), dc))
	return dc
}

func TestDiscountValidate_HappyPath(t *testing.T) {
	repo := setupRepo(t)
	svc := service.NewDiscountService(repo)
	ctx := context.Background()

	user := seedUser(t, repo, 2001)
	max := int64(100000)
	seedDiscount(t, repo, &models.DiscountCode{
		Code: "WELCOME10", Type: models.DiscountPercentage, Value: 10,
		MinPurchase: 100000, MaxDiscount: &max, IsActive: true,
	})

	applied, err := svc.Validate(ctx, "WELCOME10", user.ID, 200000)
	require.NoError(t, err)
	require.Equal(t, "WELCOME10", applied.Code)
	require.Equal(t, int64(20000), applied.Amount)
}

func TestDiscountValidate_Order(t *testing.T) {
	repo := setupRepo(t)
	svc := service.NewDiscountService(repo)
	ctx := context.Background()
	user := seedUser(t, repo, 2002)

	// неизвестный код
	_, err := svc.Validate(ctx, "NOPE", user.ID, 100000)
	require.ErrorIs(t, err, service.ErrDiscountInvalid)

	// выключенный код
	seedDiscount(t, repo, &models.DiscountCode{Code: "OFF", Type: models.DiscountFixed, Value: 1000, IsActive: false})
	_, err = svc.Validate(ctx, "OFF", user.ID, 100000)
	require.ErrorIs(t, err, service.ErrDiscountInvalid)

	// истёкшее окно
	past := time.Now().Add(-time.Minute)
	seedDiscount(t, repo, &models.DiscountCode{
		Code: "EXPIRED", Type: models.DiscountFixed, Value: 1000, IsActive: true,
		StartDate: time.Now().Add(-time.Hour), EndDate: &past,
	})
	_, err = svc.Validate(ctx, "EXPIRED", user.ID, 100000)
	require.ErrorIs(t, err, service.ErrDiscountInvalid)

	// исчерпанный глобальный лимит
	limit := 1
	full := seedDiscount(t, repo, &models.DiscountCode{
		Code: "FULL", Type: models.DiscountFixed, Value: 1000, IsActive: true, UsageLimit: &limit,
	})
	other := seedUser(t, repo, 2003)
	require.NoError(t, repo.Discounts.RecordUsage(ctx, full.ID, other.ID, nil))
	_, err = svc.Validate(ctx, "FULL", user.ID, 100000)
	require.ErrorIs(t, err, service.ErrDiscountExhausted)

	// минимальная корзина: в ошибке виден порог
	seedDiscount(t, repo, &models.DiscountCode{
		Code: "BIGMIN", Type: models.DiscountFixed, Value: 1000, IsActive: true, MinPurchase: 500000,
	})
	_, err = svc.Validate(ctx, "BIGMIN", user.ID, 100000)
	var minErr *service.MinPurchaseError
	require.ErrorAs(t, err, &minErr)
	require.Equal(t, int64(500000), minErr.Min)

	// повторное использование тем же пользователем
	once := seedDiscount(t, repo, &models.DiscountCode{
		Code: "ONCE", Type: models.DiscountFixed, Value: 1000, IsActive: true,
	})
	require.NoError(t, repo.Discounts.RecordUsage(ctx, once.ID, user.ID, nil))
	_, err = svc.Validate(ctx, "ONCE", user.ID, 100000)
	require.ErrorIs(t, err, service.ErrDiscountUsed)
}

func TestDiscountValidate_MaxDiscountCap(t *testing.T) {
	repo := setupRepo(t)
	svc := service.NewDiscountService(repo)
	ctx := context.Background()

	user := seedUser(t, repo, 2005)
	max := int64(100000)
	seedDiscount(t, repo, &models.DiscountCode{
		Code: "CAP20", Type: models.DiscountPercentage, Value: 20,
		MaxDiscount: &max, IsActive: true,
	})

	// 20% от 1 000 000 — это 200 000, но потолок режет до 100 000
	applied, err := svc.Validate(ctx, "CAP20", user.ID, 1000000)
	require.NoError(t, err)
	require.Equal(t, int64(100000), applied.Amount)
}

func TestRecordUsage_UniquePerUser(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()
	user := seedUser(t, repo, 2004)
	dc := seedDiscount(t, repo, &models.DiscountCode{
		Code: "UNIQ", Type: models.DiscountFixed, Value: 1000, IsActive: true,
	})

	require.NoError(t, repo.Discounts.RecordUsage(ctx, dc.ID, user.ID, nil))
	// уникальный индекс (code, user) режет повторную запись
	require.Error(t, repo.Discounts.RecordUsage(ctx, dc.ID, user.ID, nil))

	fresh, err := repo.Discounts.GetByID(ctx, dc.ID)
	require.NoError(t, err)
	require.Equal(t, 1, fresh.UsedCount)
}
