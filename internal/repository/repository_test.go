package repository_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/sumohast/bale-shop-bot/internal/migrate"
	"github.com/sumohast/bale-shop-bot/internal/models"
	"github.com/sumohast/bale-shop-bot/internal/repository"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "shop.db")
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := migrate.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func mustProduct(t *testing.T, repo *repository.Repository, stock int) *models.Product {
	t.Helper()
	ctx := context.Background()
	cat := &models.Category{Title: "تست", IsActive: true}
	if err := repo.Categories.Create(ctx, cat); err != nil {
		t.Fatalf("create category: %v", err)
	}
	p := &models.Product{CategoryID: cat.ID, Name: "کالا", Price: 1000, Stock: stock, IsActive: true}
	if err := repo.Products.Create(ctx, p); err != nil {
		t.Fatalf("create product: %v", err)
	}
	return p
}

func TestUserRepo_GetOrCreate(t *testing.T) {
	repo := repository.New(setupDB(t))
	ctx := context.Background()

	name := "Ali"
	u1, err := repo.Users.GetOrCreate(ctx, 42, repository.UserInfo{FirstName: &name})
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	u2, err := repo.Users.GetOrCreate(ctx, 42, repository.UserInfo{})
	if err != nil {
		t.Fatalf("GetOrCreate second: %v", err)
	}
	if u1.ID != u2.ID {
		t.Fatalf("expected same user, got %d and %d", u1.ID, u2.ID)
	}

	missing, err := repo.Users.GetByChatID(ctx, 999)
	if err != nil || missing != nil {
		t.Fatalf("GetByChatID missing: %v %v", missing, err)
	}
}

func TestProductRepo_DecrementStock(t *testing.T) {
	repo := repository.New(setupDB(t))
	ctx := context.Background()
	p := mustProduct(t, repo, 3)

	ok, err := repo.Products.DecrementStock(ctx, p.ID, 2)
	if err != nil || !ok {
		t.Fatalf("DecrementStock: ok=%v err=%v", ok, err)
	}
	// остатка не хватает — условный UPDATE не трогает строк
	ok, err = repo.Products.DecrementStock(ctx, p.ID, 2)
	if err != nil {
		t.Fatalf("DecrementStock second: %v", err)
	}
	if ok {
		t.Fatalf("expected conditional decrement to fail at stock=1")
	}

	got, _ := repo.Products.GetByID(ctx, p.ID)
	if got.Stock != 1 || got.SoldCount != 2 {
		t.Fatalf("stock mismatch: %+v", got)
	}

	if err := repo.Products.RestoreStock(ctx, p.ID, 2); err != nil {
		t.Fatalf("RestoreStock: %v", err)
	}
	got, _ = repo.Products.GetByID(ctx, p.ID)
	if got.Stock != 3 || got.SoldCount != 0 {
		t.Fatalf("restore mismatch: %+v", got)
	}
}

func TestProductRepo_RestoreStockFloorsSoldCount(t *testing.T) {
	repo := repository.New(setupDB(t))
	ctx := context.Background()
	p := mustProduct(t, repo, 5)

	// возврат без предшествующей продажи: счётчик остаётся на нуле
	if err := repo.Products.RestoreStock(ctx, p.ID, 2); err != nil {
		t.Fatalf("RestoreStock: %v", err)
	}
	got, _ := repo.Products.GetByID(ctx, p.ID)
	if got.Stock != 7 || got.SoldCount != 0 {
		t.Fatalf("expected stock=7 sold_count=0, got stock=%d sold_count=%d", got.Stock, got.SoldCount)
	}
}

func TestCreatedInactiveStaysInactive(t *testing.T) {
	repo := repository.New(setupDB(t))
	ctx := context.Background()

	// сущность, созданная выключенной, должна и сохраниться выключенной
	dc := &models.DiscountCode{
		Code: "OFF", Type: models.DiscountFixed, Value: 1000,
		IsActive: false, StartDate: time.Now().Add(-time.Hour),
	}
	if err := repo.Discounts.Create(ctx, dc); err != nil {
		t.Fatalf("create discount: %v", err)
	}
	fresh, err := repo.Discounts.GetByID(ctx, dc.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if fresh.IsActive {
		t.Fatalf("discount created inactive was stored active")
	}
	if got, err := repo.Discounts.GetActiveByCode(ctx, "OFF", time.Now()); err != nil || got != nil {
		t.Fatalf("GetActiveByCode: %v %v", got, err)
	}

	cat := &models.Category{Title: "خاموش", IsActive: false}
	if err := repo.Categories.Create(ctx, cat); err != nil {
		t.Fatalf("create category: %v", err)
	}
	p := &models.Product{CategoryID: cat.ID, Name: "پنهان", Price: 1000, IsActive: false}
	if err := repo.Products.Create(ctx, p); err != nil {
		t.Fatalf("create product: %v", err)
	}
	active, err := repo.Products.ListActive(ctx)
	if err != nil {
		t.Fatalf("ListActive: %v", err)
	}
	if len(active) != 0 {
		t.Fatalf("inactive product leaked into active list: %+v", active)
	}
}

func TestCartRepo_AddIncrementAndSummary(t *testing.T) {
	repo := repository.New(setupDB(t))
	ctx := context.Background()
	u, _ := repo.Users.GetOrCreate(ctx, 7, repository.UserInfo{})
	p := mustProduct(t, repo, 10)

	if err := repo.Cart.Add(ctx, u.ID, p.ID, 1); err != nil {
		t.Fatalf("Add: %v", err)
	}
	// повторное добавление наращивает количество той же строки
	if err := repo.Cart.Add(ctx, u.ID, p.ID, 2); err != nil {
		t.Fatalf("Add again: %v", err)
	}
	summary, err := repo.Cart.Summary(ctx, u.ID)
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if len(summary.Items) != 1 || summary.Count != 3 || summary.Subtotal != 3000 {
		t.Fatalf("summary mismatch: %+v", summary)
	}

	if err := repo.Cart.Decrease(ctx, u.ID, p.ID); err != nil {
		t.Fatalf("Decrease: %v", err)
	}
	summary, _ = repo.Cart.Summary(ctx, u.ID)
	if summary.Count != 2 {
		t.Fatalf("count after decrease: %+v", summary)
	}

	// уменьшение до нуля удаляет строку
	repo.Cart.Decrease(ctx, u.ID, p.ID)
	repo.Cart.Decrease(ctx, u.ID, p.ID)
	summary, _ = repo.Cart.Summary(ctx, u.ID)
	if len(summary.Items) != 0 {
		t.Fatalf("expected empty cart: %+v", summary)
	}
}

func TestCartRepo_SummarySkipsInactive(t *testing.T) {
	repo := repository.New(setupDB(t))
	ctx := context.Background()
	u, _ := repo.Users.GetOrCreate(ctx, 8, repository.UserInfo{})
	p := mustProduct(t, repo, 5)

	if err := repo.Cart.Add(ctx, u.ID, p.ID, 1); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := repo.Products.SetActive(ctx, p.ID, false); err != nil {
		t.Fatalf("SetActive: %v", err)
	}
	summary, err := repo.Cart.Summary(ctx, u.ID)
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if len(summary.Items) != 0 || summary.Subtotal != 0 {
		t.Fatalf("inactive product must not count: %+v", summary)
	}
}

func TestOrderRepo_TrackingAndStatus(t *testing.T) {
	repo := repository.New(setupDB(t))
	ctx := context.Background()
	u, _ := repo.Users.GetOrCreate(ctx, 9, repository.UserInfo{})

	o := &models.Order{
		UserID: u.ID, FullName: "علی", Phone: "09123456789", Address: "آدرس کامل تستی",
		TotalPrice: 1000, FinalPrice: 1090, TaxAmount: 90,
		Status: models.OrderStatusPending, PaymentStatus: models.PaymentUnpaid,
		TrackingCode: "TR-TEST-1",
	}
	if err := repo.Orders.Create(ctx, o); err != nil {
		t.Fatalf("Create: %v", err)
	}

	exists, err := repo.Orders.TrackingCodeExists(ctx, "TR-TEST-1")
	if err != nil || !exists {
		t.Fatalf("TrackingCodeExists: %v %v", exists, err)
	}

	got, err := repo.Orders.GetByTrackingCode(ctx, "TR-TEST-1")
	if err != nil || got == nil || got.ID != o.ID {
		t.Fatalf("GetByTrackingCode: %+v %v", got, err)
	}

	notes := "отметка"
	if err := repo.Orders.UpdateStatus(ctx, o.ID, models.OrderStatusConfirmed, &notes); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	got, _ = repo.Orders.GetByID(ctx, o.ID)
	if got.Status != models.OrderStatusConfirmed || got.AdminNotes == nil {
		t.Fatalf("status mismatch: %+v", got)
	}

	if err := repo.Orders.UpdatePaymentStatus(ctx, o.ID, models.PaymentPaid); err != nil {
		t.Fatalf("UpdatePaymentStatus: %v", err)
	}
	got, _ = repo.Orders.GetByID(ctx, o.ID)
	if got.PaymentStatus != models.PaymentPaid {
		t.Fatalf("payment status mismatch: %+v", got)
	}
}

func TestOrderRepo_Stats(t *testing.T) {
	repo := repository.New(setupDB(t))
	ctx := context.Background()
	u, _ := repo.Users.GetOrCreate(ctx, 10, repository.UserInfo{})

	mk := func(code string, status models.OrderStatus, pay models.PaymentState, final int64) {
		o := &models.Order{
			UserID: u.ID, FullName: "x", Phone: "09123456789", Address: "آدرس کامل تستی",
			FinalPrice: final, Status: status, PaymentStatus: pay, TrackingCode: code,
		}
		if err := repo.Orders.Create(ctx, o); err != nil {
			t.Fatalf("Create %s: %v", code, err)
		}
	}
	mk("TR-A", models.OrderStatusPending, models.PaymentUnpaid, 1000)
	mk("TR-B", models.OrderStatusDelivered, models.PaymentPaid, 2000)
	mk("TR-C", models.OrderStatusCancelled, models.PaymentPaid, 3000)

	stats, err := repo.Orders.Stats(ctx, time.Now())
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Total != 3 || stats.Pending != 1 || stats.Delivered != 1 || stats.Cancelled != 1 {
		t.Fatalf("counters mismatch: %+v", stats)
	}
	// выручка не включает отменённые даже при оплате
	if stats.Revenue != 2000 {
		t.Fatalf("revenue mismatch: %+v", stats)
	}
}

func TestPaymentRepo_SaveReceiptAndVerify(t *testing.T) {
	repo := repository.New(setupDB(t))
	ctx := context.Background()
	u, _ := repo.Users.GetOrCreate(ctx, 11, repository.UserInfo{})
	o := &models.Order{
		UserID: u.ID, FullName: "x", Phone: "09123456789", Address: "آدرس کامل تستی",
		FinalPrice: 5000, Status: models.OrderStatusPending, PaymentStatus: models.PaymentUnpaid,
		TrackingCode: "TR-PAY",
	}
	if err := repo.Orders.Create(ctx, o); err != nil {
		t.Fatalf("Create order: %v", err)
	}

	now := time.Now()
	p, err := repo.Payments.SaveReceipt(ctx, o.ID, u.ID, o.FinalPrice, "file-1", now)
	if err != nil {
		t.Fatalf("SaveReceipt: %v", err)
	}
	// повторная загрузка чека обновляет тот же платёж
	p2, err := repo.Payments.SaveReceipt(ctx, o.ID, u.ID, o.FinalPrice, "file-2", now)
	if err != nil {
		t.Fatalf("SaveReceipt again: %v", err)
	}
	if p.ID != p2.ID {
		t.Fatalf("expected same payment, got %d and %d", p.ID, p2.ID)
	}

	pending, err := repo.Payments.PendingVerifications(ctx, 10)
	if err != nil || len(pending) != 1 {
		t.Fatalf("PendingVerifications: %d %v", len(pending), err)
	}

	if err := repo.Payments.Verify(ctx, p.ID, 777, true, nil, now); err != nil {
		t.Fatalf("Verify: %v", err)
	}
	got, _ := repo.Payments.GetByID(ctx, p.ID)
	if got.Status != models.ReceiptVerified || got.PaidAt == nil || got.VerifiedBy == nil || *got.VerifiedBy != 777 {
		t.Fatalf("verify mismatch: %+v", got)
	}
}

func TestWithTx_RollsBackEverything(t *testing.T) {
	repo := repository.New(setupDB(t))
	ctx := context.Background()
	p := mustProduct(t, repo, 5)

	wantErr := context.Canceled
	err := repo.WithTx(ctx, func(tx *repository.Repository) error {
		if ok, err := tx.Products.DecrementStock(ctx, p.ID, 2); err != nil || !ok {
			t.Fatalf("in-tx decrement: ok=%v err=%v", ok, err)
		}
		return wantErr
	})
	if err == nil {
		t.Fatalf("expected error from tx")
	}

	got, _ := repo.Products.GetByID(ctx, p.ID)
	if got.Stock != 5 {
		t.Fatalf("rollback failed, stock=%d", got.Stock)
	}
}
