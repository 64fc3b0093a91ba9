package service_test

import (
	"context"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/sumohast/bale-shop-bot/internal/migrate"
	"github.com/sumohast/bale-shop-bot/internal/models"
	"github.com/sumohast/bale-shop-bot/internal/repository"
	"github.com/sumohast/bale-shop-bot/internal/service"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func setupRepo(t *testing.T) *repository.Repository {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "shop.db")
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, migrate.AutoMigrate(db))
	return repository.New(db)
}

func seedProduct(t *testing.T, repo *repository.Repository, name string, price int64, stock int) *models.Product {
	t.Helper()
	ctx := context.Background()
	cat := &models.Category{Title: "دسته تست", IsActive: true}
	require.NoError(t, repo.Categories.Create(ctx, cat))
	p := &models.Product{
		CategoryID: cat.ID,
		Name:       name,
		Price:      price,
		Stock:      stock,
		IsActive:   true,
	}
	require.NoError(t, repo.Products.Create(ctx, p))
	return p
}

func seedUser(t *testing.T, repo *repository.Repository, chatID int64) *models.User {
	t.Helper()
	u, err := repo.Users.GetOrCreate(context.Background(), chatID, repository.UserInfo{})
	require.NoError(t, err)
	return u
}

func cartOf(t *testing.T, repo *repository.Repository, userID uint) []models.CartItem {
	t.Helper()
	summary, err := repo.Cart.Summary(context.Background(), userID)
	require.NoError(t, err)
	return summary.Items
}

func TestCreateOrder_Atomic(t *testing.T) {
	repo := setupRepo(t)
	svc := service.NewOrderService(repo, 9)
	ctx := context.Background()

	user := seedUser(t, repo, 1001)
	p := seedProduct(t, repo, "کتاب", 100000, 5)
	require.NoError(t, repo.Cart.Add(ctx, user.ID, p.ID, 2))

	in := service.CheckoutInput{
		FullName: "علی احمدی",
		Phone:    "09123456789",
		Address:  "تهران، خیابان ولیعصر، پلاک ۱۰",
	}
	order, err := svc.CreateOrder(ctx, user.ID, in, cartOf(t, repo, user.ID))
	require.NoError(t, err)
	require.NotZero(t, order.ID)
	require.Equal(t, int64(200000), order.TotalPrice)
	require.Equal(t, int64(18000), order.TaxAmount)
	require.Equal(t, int64(218000), order.FinalPrice)
	require.Equal(t, models.OrderStatusPending, order.Status)
	require.Nil(t, order.PostalCode)
	require.NotEmpty(t, order.TrackingCode)
	require.Len(t, order.Items, 1)
	require.Equal(t, "کتاب", order.Items[0].ProductName)

	// остаток списан, продажи засчитаны
	fresh, err := repo.Products.GetByID(ctx, p.ID)
	require.NoError(t, err)
	require.Equal(t, 3, fresh.Stock)
	require.Equal(t, 2, fresh.SoldCount)
}

func TestCreateOrder_InsufficientStockRollsBack(t *testing.T) {
	repo := setupRepo(t)
	svc := service.NewOrderService(repo, 9)
	ctx := context.Background()

	user := seedUser(t, repo, 1002)
	ok := seedProduct(t, repo, "موجود", 50000, 10)
	scarce := seedProduct(t, repo, "نایاب", 80000, 1)
	require.NoError(t, repo.Cart.Add(ctx, user.ID, ok.ID, 1))
	require.NoError(t, repo.Cart.Add(ctx, user.ID, scarce.ID, 3))

	in := service.CheckoutInput{FullName: "رضا", Phone: "09123456789", Address: "آدرس کامل تستی"}
	_, err := svc.CreateOrder(ctx, user.ID, in, cartOf(t, repo, user.ID))
	require.ErrorIs(t, err, service.ErrOutOfStock)

	// ничего не зафиксировано: ни заказа, ни списаний
	orders, err := repo.Orders.ListByUser(ctx, user.ID, 10)
	require.NoError(t, err)
	require.Empty(t, orders)

	fresh, err := repo.Products.GetByID(ctx, ok.ID)
	require.NoError(t, err)
	require.Equal(t, 10, fresh.Stock)
	require.Equal(t, 0, fresh.SoldCount)
}

func TestCreateOrder_EmptyCart(t *testing.T) {
	repo := setupRepo(t)
	svc := service.NewOrderService(repo, 9)
	user := seedUser(t, repo, 1003)

	_, err := svc.CreateOrder(context.Background(), user.ID, service.CheckoutInput{}, nil)
	require.ErrorIs(t, err, service.ErrEmptyCart)
}

func TestCreateOrder_DiscountClampedToSubtotal(t *testing.T) {
	repo := setupRepo(t)
	svc := service.NewOrderService(repo, 9)
	ctx := context.Background()

	user := seedUser(t, repo, 1004)
	p := seedProduct(t, repo, "ارزان", 30000, 5)
	require.NoError(t, repo.Cart.Add(ctx, user.ID, p.ID, 1))

	in := service.CheckoutInput{
		FullName: "سارا",
		Phone:    "09123456789",
		Address:  "آدرس کامل تستی",
		Discount: &service.AppliedDiscount{CodeID: 1, Code: "SUMMER50", Amount: 50000},
	}
	order, err := svc.CreateOrder(ctx, user.ID, in, cartOf(t, repo, user.ID))
	require.NoError(t, err)
	require.Equal(t, int64(30000), order.DiscountAmount)
	require.Equal(t, int64(0), order.FinalPrice)
}

func TestCancelOrder_RestoresStock(t *testing.T) {
	repo := setupRepo(t)
	svc := service.NewOrderService(repo, 9)
	ctx := context.Background()

	user := seedUser(t, repo, 1005)
	p := seedProduct(t, repo, "کالا", 60000, 4)
	require.NoError(t, repo.Cart.Add(ctx, user.ID, p.ID, 3))

	in := service.CheckoutInput{FullName: "مینا", Phone: "09123456789", Address: "آدرس کامل تستی"}
	order, err := svc.CreateOrder(ctx, user.ID, in, cartOf(t, repo, user.ID))
	require.NoError(t, err)

	cancelled, err := svc.CancelOrder(ctx, order.ID, "موجودی انبار اشتباه بود")
	require.NoError(t, err)
	require.Equal(t, models.OrderStatusCancelled, cancelled.Status)
	require.NotNil(t, cancelled.AdminNotes)

	fresh, err := repo.Products.GetByID(ctx, p.ID)
	require.NoError(t, err)
	require.Equal(t, 4, fresh.Stock)
	require.Equal(t, 0, fresh.SoldCount)

	// повторная отмена запрещена
	_, err = svc.CancelOrder(ctx, order.ID, "دوباره")
	require.ErrorIs(t, err, service.ErrOrderTerminal)
}

func TestCancelOrder_ReleasesDiscountUsage(t *testing.T) {
	repo := setupRepo(t)
	svc := service.NewOrderService(repo, 9)
	ctx := context.Background()

	user := seedUser(t, repo, 1008)
	p := seedProduct(t, repo, "کالا", 200000, 5)
	require.NoError(t, repo.Cart.Add(ctx, user.ID, p.ID, 1))
	dc := seedDiscount(t, repo, &models.DiscountCode{
		Code: "BACK10", Type: models.DiscountFixed, Value: 20000, IsActive: true,
	})

	in := service.CheckoutInput{
		FullName: "لیلا", Phone: "09123456789", Address: "آدرس کامل تستی",
		Discount: &service.AppliedDiscount{CodeID: dc.ID, Code: dc.Code, Amount: 20000},
	}
	order, err := svc.CreateOrder(ctx, user.ID, in, cartOf(t, repo, user.ID))
	require.NoError(t, err)
	require.NotNil(t, order.DiscountCodeID)
	oid := order.ID
	require.NoError(t, repo.Discounts.RecordUsage(ctx, dc.ID, user.ID, &oid))

	_, err = svc.CancelOrder(ctx, order.ID, "انصراف مشتری")
	require.NoError(t, err)

	// код снова доступен этому пользователю
	used, err := repo.Discounts.HasUsage(ctx, dc.ID, user.ID)
	require.NoError(t, err)
	require.False(t, used)
	fresh, err := repo.Discounts.GetByID(ctx, dc.ID)
	require.NoError(t, err)
	require.Equal(t, 0, fresh.UsedCount)
}

func TestSetStatus_TerminalGuard(t *testing.T) {
	repo := setupRepo(t)
	svc := service.NewOrderService(repo, 9)
	ctx := context.Background()

	user := seedUser(t, repo, 1006)
	p := seedProduct(t, repo, "کالا", 10000, 2)
	require.NoError(t, repo.Cart.Add(ctx, user.ID, p.ID, 1))

	in := service.CheckoutInput{FullName: "نیما", Phone: "09123456789", Address: "آدرس کامل تستی"}
	order, err := svc.CreateOrder(ctx, user.ID, in, cartOf(t, repo, user.ID))
	require.NoError(t, err)

	updated, err := svc.SetStatus(ctx, order.ID, models.OrderStatusDelivered)
	require.NoError(t, err)
	require.Equal(t, models.OrderStatusDelivered, updated.Status)

	_, err = svc.SetStatus(ctx, order.ID, models.OrderStatusShipped)
	require.ErrorIs(t, err, service.ErrOrderTerminal)
}

func TestTrack_ByIDAndCode(t *testing.T) {
	repo := setupRepo(t)
	svc := service.NewOrderService(repo, 9)
	ctx := context.Background()

	user := seedUser(t, repo, 1007)
	p := seedProduct(t, repo, "کالا", 10000, 2)
	require.NoError(t, repo.Cart.Add(ctx, user.ID, p.ID, 1))

	in := service.CheckoutInput{FullName: "آرش", Phone: "09123456789", Address: "آدرس کامل تستی"}
	order, err := svc.CreateOrder(ctx, user.ID, in, cartOf(t, repo, user.ID))
	require.NoError(t, err)

	byCode, err := svc.Track(ctx, order.TrackingCode)
	require.NoError(t, err)
	require.NotNil(t, byCode)
	require.Equal(t, order.ID, byCode.ID)

	byID, err := svc.Track(ctx, "  "+strconv.Itoa(int(order.ID))+"  ")
	require.NoError(t, err)
	require.NotNil(t, byID)
	require.Equal(t, order.TrackingCode, byID.TrackingCode)

	missing, err := svc.Track(ctx, "TR-NOPE")
	require.NoError(t, err)
	require.Nil(t, missing)
}
