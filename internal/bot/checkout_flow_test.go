package bot

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/sumohast/bale-shop-bot/config"
	"github.com/sumohast/bale-shop-bot/internal/migrate"
	"github.com/sumohast/bale-shop-bot/internal/models"
	"github.com/sumohast/bale-shop-bot/internal/repository"
	"github.com/sumohast/bale-shop-bot/internal/service"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type sentMessage struct {
	ChatID int64
	Text   string
	Markup interface{}
}

// fakeGateway копит исходящие сообщения вместо похода в Bot API.
type fakeGateway struct {
	messages []sentMessage
	photos   []sentMessage
}

func (f *fakeGateway) SendMessage(chatID int64, text string, markup interface{}) (int, error) {
	f.messages = append(f.messages, sentMessage{ChatID: chatID, Text: text, Markup: markup})
	return len(f.messages), nil
}

func (f *fakeGateway) SendPhoto(chatID int64, photoURL, caption string, markup interface{}) error {
	f.photos = append(f.photos, sentMessage{ChatID: chatID, Text: caption, Markup: markup})
	return nil
}

func (f *fakeGateway) DeleteMessage(int64, int) error            { return nil }
func (f *fakeGateway) AnswerCallback(string, string, bool) error { return nil }

func (f *fakeGateway) last() sentMessage {
	if len(f.messages) == 0 {
		return sentMessage{}
	}
	return f.messages[len(f.messages)-1]
}

func newTestBot(t *testing.T) (*Bot, *fakeGateway, *repository.Repository) {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "shop.db")
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, migrate.AutoMigrate(db))

	repo := repository.New(db)
	cfg := &config.Config{
		Bot:  config.Bot{AdminChatID: 99999, BroadcastDelayMs: 0},
		Shop: config.Shop{Name: "فروشگاه تست", Currency: "تومان", TaxPercent: 9, LowStockThreshold: 2},
	}
	gw := &fakeGateway{}
	b := &Bot{
		cfg:    cfg,
		gw:     gw,
		repo:   repo,
		orders: service.NewOrderService(repo, 9),
		disc:   service.NewDiscountService(repo),
		states: NewStateStore(),
		spawn:  func(fn func()) { fn() }, // синхронно, чтобы ассерты видели эффект
		sleep:  func(time.Duration) {},
		now:    time.Now,
	}
	return b, gw, repo
}

func seedCatalog(t *testing.T, repo *repository.Repository, price int64, stock int) *models.Product {
	t.Helper()
	ctx := context.Background()
	cat := &models.Category{Title: "کتاب", IsActive: true}
	require.NoError(t, repo.Categories.Create(ctx, cat))
	p := &models.Product{CategoryID: cat.ID, Name: "رمان", Price: price, Stock: stock, IsActive: true}
	require.NoError(t, repo.Products.Create(ctx, p))
	return p
}

func testUser(t *testing.T, repo *repository.Repository, chatID int64) *models.User {
	t.Helper()
	u, err := repo.Users.GetOrCreate(context.Background(), chatID, repository.UserInfo{})
	require.NoError(t, err)
	return u
}

func TestCheckoutFlow_Deterministic(t *testing.T) {
	b, gw, repo := newTestBot(t)
	ctx := context.Background()
	user := testUser(t, repo, 100)
	p := seedCatalog(t, repo, 100000, 5)
	require.NoError(t, repo.Cart.Add(ctx, user.ID, p.ID, 1))

	b.startCheckout(ctx, user)
	require.Equal(t, StepCheckoutName, b.states.Get(100).Step)

	// ровно одна последовательность валидных ответов даёт ровно один заказ
	for _, input := range []string{"ValidName", "09123456789", "A full valid address of 10+ chars", "0"} {
		b.handleText(ctx, user, input)
	}

	orders, err := repo.Orders.ListByUser(ctx, user.ID, 10)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	require.Nil(t, orders[0].PostalCode)
	require.Equal(t, "ValidName", orders[0].FullName)
	require.Equal(t, "09123456789", orders[0].Phone)

	// состояние очищено, корзина пуста
	require.Equal(t, StepNone, b.states.Get(100).Step)
	summary, err := repo.Cart.Summary(ctx, user.ID)
	require.NoError(t, err)
	require.Empty(t, summary.Items)

	// платёж заведён сразу вместе с заказом
	payment, err := repo.Payments.ByOrder(ctx, orders[0].ID)
	require.NoError(t, err)
	require.NotNil(t, payment)
	require.Equal(t, models.ReceiptPending, payment.Status)
	require.Equal(t, orders[0].FinalPrice, payment.Amount)

	// телефон из оформления сохранён в профиле
	freshUser, err := repo.Users.GetByID(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, freshUser.Phone)
	require.Equal(t, "09123456789", *freshUser.Phone)

	// админ получил уведомление о новом заказе
	found := false
	for _, m := range gw.messages {
		if m.ChatID == 99999 {
			found = true
		}
	}
	require.True(t, found, "admin notification expected")
}

func TestCheckoutFlow_InvalidInputDoesNotAdvance(t *testing.T) {
	b, _, repo := newTestBot(t)
	ctx := context.Background()
	user := testUser(t, repo, 101)
	p := seedCatalog(t, repo, 50000, 3)
	require.NoError(t, repo.Cart.Add(ctx, user.ID, p.ID, 1))

	b.startCheckout(ctx, user)

	b.handleText(ctx, user, "X") // слишком короткое имя
	require.Equal(t, StepCheckoutName, b.states.Get(101).Step)

	b.handleText(ctx, user, "ValidName")
	require.Equal(t, StepCheckoutPhone, b.states.Get(101).Step)

	b.handleText(ctx, user, "12345")
	require.Equal(t, StepCheckoutPhone, b.states.Get(101).Step)

	b.handleText(ctx, user, "+989123456789")
	require.Equal(t, StepCheckoutAddress, b.states.Get(101).Step)
	require.Equal(t, "09123456789", b.states.Get(101).Checkout.Phone)

	b.handleText(ctx, user, "short")
	require.Equal(t, StepCheckoutAddress, b.states.Get(101).Step)

	b.handleText(ctx, user, "A full valid address of 10+ chars")
	require.Equal(t, StepCheckoutPostal, b.states.Get(101).Step)

	// пятизначный индекс отклоняется, шаг стоит на месте
	b.handleText(ctx, user, "12345")
	require.Equal(t, StepCheckoutPostal, b.states.Get(101).Step)
	orders, _ := repo.Orders.ListByUser(ctx, user.ID, 10)
	require.Empty(t, orders)

	b.handleText(ctx, user, "1234567890")
	orders, _ = repo.Orders.ListByUser(ctx, user.ID, 10)
	require.Len(t, orders, 1)
	require.NotNil(t, orders[0].PostalCode)
	require.Equal(t, "1234567890", *orders[0].PostalCode)
}

func TestCheckoutFlow_EmptyCartAborts(t *testing.T) {
	b, gw, repo := newTestBot(t)
	ctx := context.Background()
	user := testUser(t, repo, 102)

	b.startCheckout(ctx, user)
	require.Equal(t, StepNone, b.states.Get(102).Step)
	require.Contains(t, gw.last().Text, "خالی")
}

func TestDiscountFlow_StagedThenRecordedPostCommit(t *testing.T) {
	b, _, repo := newTestBot(t)
	ctx := context.Background()
	user := testUser(t, repo, 103)
	p := seedCatalog(t, repo, 200000, 5)
	require.NoError(t, repo.Cart.Add(ctx, user.ID, p.ID, 1))

	dc := &models.DiscountCode{
		Code: "WELCOME10", Type: models.DiscountPercentage, Value: 10,
		IsActive: true, StartDate: time.Now().Add(-time.Hour),
	}
	require.NoError(t, repo.Discounts.Create(ctx, dc))

	b.states.Set(103, func(st *State) { st.Step = StepEnterDiscount })
	b.handleText(ctx, user, "welcome10")

	st := b.states.Get(103)
	require.NotNil(t, st.Checkout.Discount)
	require.Equal(t, int64(20000), st.Checkout.Discount.Amount)

	// до заказа записи об использовании нет
	used, err := repo.Discounts.HasUsage(ctx, dc.ID, user.ID)
	require.NoError(t, err)
	require.False(t, used)

	b.startCheckout(ctx, user)
	for _, input := range []string{"ValidName", "09123456789", "A full valid address of 10+ chars", "0"} {
		b.handleText(ctx, user, input)
	}

	orders, _ := repo.Orders.ListByUser(ctx, user.ID, 10)
	require.Len(t, orders, 1)
	require.Equal(t, int64(20000), orders[0].DiscountAmount)

	used, err = repo.Discounts.HasUsage(ctx, dc.ID, user.ID)
	require.NoError(t, err)
	require.True(t, used)
}

func TestDiscountFlow_Rejections(t *testing.T) {
	b, gw, repo := newTestBot(t)
	ctx := context.Background()
	user := testUser(t, repo, 104)
	p := seedCatalog(t, repo, 50000, 5)
	require.NoError(t, repo.Cart.Add(ctx, user.ID, p.ID, 1))

	require.NoError(t, repo.Discounts.Create(ctx, &models.DiscountCode{
		Code: "BIGMIN", Type: models.DiscountFixed, Value: 10000,
		MinPurchase: 900000, IsActive: true, StartDate: time.Now().Add(-time.Hour),
	}))

	b.states.Set(104, func(st *State) { st.Step = StepEnterDiscount })
	b.handleText(ctx, user, "NOPE123")
	require.Contains(t, gw.last().Text, "نامعتبر")
	require.Nil(t, b.states.Get(104).Checkout.Discount)

	b.handleText(ctx, user, "BIGMIN")
	// сообщение о минимальной корзине содержит порог
	require.Contains(t, gw.last().Text, "900,000")
	require.Nil(t, b.states.Get(104).Checkout.Discount)
}

func TestReceiptFlow_VerifyMarksOrderPaid(t *testing.T) {
	b, _, repo := newTestBot(t)
	ctx := context.Background()
	user := testUser(t, repo, 105)
	p := seedCatalog(t, repo, 70000, 5)
	require.NoError(t, repo.Cart.Add(ctx, user.ID, p.ID, 1))

	b.startCheckout(ctx, user)
	for _, input := range []string{"ValidName", "09123456789", "A full valid address of 10+ chars", "0"} {
		b.handleText(ctx, user, input)
	}
	orders, _ := repo.Orders.ListByUser(ctx, user.ID, 10)
	require.Len(t, orders, 1)
	order := orders[0]

	b.startReceiptUpload(ctx, user, order.ID)
	require.Equal(t, StepAwaitingReceipt, b.states.Get(105).Step)

	b.handlePhoto(ctx, user, "receipt-file-id")
	require.Equal(t, StepNone, b.states.Get(105).Step)

	payment, err := repo.Payments.ByOrder(ctx, order.ID)
	require.NoError(t, err)
	require.NotNil(t, payment)
	require.Equal(t, models.ReceiptPendingVerification, payment.Status)

	admin := testUser(t, repo, 99999)
	b.verifyPayment(ctx, admin, "cb-1", payment.ID, true)

	fresh, _ := repo.Orders.GetByID(ctx, order.ID)
	require.Equal(t, models.PaymentPaid, fresh.PaymentStatus)
	verified, _ := repo.Payments.GetByID(ctx, payment.ID)
	require.Equal(t, models.ReceiptVerified, verified.Status)
}

func TestDiscountFlow_StorageFailureClearsState(t *testing.T) {
	b, gw, repo := newTestBot(t)
	ctx := context.Background()
	user := testUser(t, repo, 106)
	p := seedCatalog(t, repo, 50000, 5)
	require.NoError(t, repo.Cart.Add(ctx, user.ID, p.ID, 1))

	b.states.Set(106, func(st *State) { st.Step = StepEnterDiscount })
	require.NoError(t, repo.DB.Exec("DROP TABLE discount_codes").Error)

	b.handleText(ctx, user, "ANYCODE")
	// сбой хранилища не оставляет чат застрявшим на шаге ввода
	require.Equal(t, StepNone, b.states.Get(106).Step)
	require.Contains(t, gw.last().Text, "خطایی")
}

func TestCatalog_FeaturedAndSearch(t *testing.T) {
	b, gw, repo := newTestBot(t)
	ctx := context.Background()
	user := testUser(t, repo, 107)
	p := seedCatalog(t, repo, 120000, 5)
	require.NoError(t, repo.Products.UpdateFields(ctx, p.ID, map[string]any{"is_featured": true}))

	b.handleText(ctx, user, btnFeatured)
	require.Contains(t, gw.last().Text, "پیشنهاد")
	require.NotNil(t, gw.last().Markup)

	b.handleText(ctx, user, btnSearch)
	require.Equal(t, StepSearchQuery, b.states.Get(107).Step)
	b.handleText(ctx, user, "رمان")
	require.Equal(t, StepNone, b.states.Get(107).Step)
	require.Contains(t, gw.last().Text, "نتایج جستجو")

	b.handleText(ctx, user, btnSearch)
	b.handleText(ctx, user, "چیزی که نیست")
	require.Contains(t, gw.last().Text, "یافت نشد")
}

func TestAdminLowStockView(t *testing.T) {
	b, gw, repo := newTestBot(t)
	ctx := context.Background()
	admin := testUser(t, repo, 99999)
	seedCatalog(t, repo, 50000, 1) // порог в тестовом конфиге — 2

	handled := b.handleAdminMenu(ctx, admin, btnAdminStock)
	require.True(t, handled)
	require.Contains(t, gw.last().Text, "موجودی کم")
	require.Contains(t, gw.last().Text, "رمان")
}

func TestBroadcast_CountsFailures(t *testing.T) {
	b, gw, repo := newTestBot(t)
	ctx := context.Background()
	for i := int64(1); i <= 3; i++ {
		testUser(t, repo, 200+i)
	}
	blocked := testUser(t, repo, 300)
	require.NoError(t, repo.Users.SetBlocked(ctx, blocked.ID, true))

	sent, failed := b.broadcast(ctx, "پیام تستی")
	require.Equal(t, 3, sent)
	require.Equal(t, 0, failed)

	// заблокированный получатель пропущен
	for _, m := range gw.messages {
		require.NotEqual(t, int64(300), m.ChatID)
	}
}
