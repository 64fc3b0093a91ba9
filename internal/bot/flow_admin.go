package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sumohast/bale-shop-bot/internal/logger"
	"github.com/sumohast/bale-shop-bot/internal/models"
	"github.com/sumohast/bale-shop-bot/internal/repository"
	"github.com/sumohast/bale-shop-bot/internal/validate"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

const adminPageSize = 10

// handleAdminMenu сопоставляет текст с админскими кнопками; true — обработано.
func (b *Bot) handleAdminMenu(ctx context.Context, user *models.User, text string) bool {
	chatID := user.ChatID
	switch text {
	case btnAdminStats:
		b.states.Clear(chatID)
		b.showStats(ctx, chatID)
	case btnAdminOrders:
		b.states.Clear(chatID)
		b.showAdminOrders(ctx, chatID, 1)
	case btnAdminUsers:
		b.states.Clear(chatID)
		b.showAdminUsers(ctx, chatID, 1)
	case btnAdminProducts:
		b.states.Clear(chatID)
		b.showAdminProducts(ctx, chatID, 1)
	case btnAdminStock:
		b.states.Clear(chatID)
		b.showLowStock(ctx, chatID)
	case btnAdminAddProduct:
		b.startProductCreate(ctx, user)
	case btnAdminCategories:
		b.states.Clear(chatID)
		b.showAdminCategories(ctx, chatID)
	case btnAdminDiscounts:
		b.states.Clear(chatID)
		b.showAdminDiscounts(ctx, chatID)
	case btnAdminPayments:
		b.states.Clear(chatID)
		b.showPendingPayments(ctx, chatID)
	case btnAdminBroadcast:
		b.states.Set(chatID, func(st *State) { *st = State{Step: StepBroadcastText} })
		b.gw.SendMessage(chatID, "📣 متن پیام همگانی را وارد کنید:", nil)
	case btnBackToUserMenu:
		b.states.Clear(chatID)
		b.gw.SendMessage(chatID, "منوی اصلی:", b.mainKeyboard())
	default:
		return false
	}
	return true
}

func (b *Bot) showStats(ctx context.Context, chatID int64) {
	users, err := b.repo.Users.Stats(ctx, b.nowUTC())
	if err != nil {
		logger.L().Error("статистика пользователей", zap.Error(err))
		b.gw.SendMessage(chatID, "❌ خطا در دریافت آمار.", nil)
		return
	}
	orders, err := b.orders.Stats(ctx)
	if err != nil {
		logger.L().Error("статистика заказов", zap.Error(err))
		b.gw.SendMessage(chatID, "❌ خطا در دریافت آمار.", nil)
		return
	}
	products, err := b.repo.Products.Stats(ctx, b.cfg.Shop.LowStockThreshold)
	if err != nil {
		logger.L().Error("статистика товаров", zap.Error(err))
		b.gw.SendMessage(chatID, "❌ خطا در دریافت آمار.", nil)
		return
	}
	payments, err := b.repo.Payments.Stats(ctx)
	if err != nil {
		logger.L().Error("статистика платежей", zap.Error(err))
		b.gw.SendMessage(chatID, "❌ خطا در دریافت آمار.", nil)
		return
	}
	usage, err := b.repo.Discounts.UsageStats(ctx)
	if err != nil {
		logger.L().Error("статистика кодов скидки", zap.Error(err))
		b.gw.SendMessage(chatID, "❌ خطا در دریافت آمار.", nil)
		return
	}

	var sb strings.Builder
	sb.WriteString("📊 آمار کلی سیستم\n\n")
	sb.WriteString("👥 کاربران:\n")
	fmt.Fprintf(&sb, "   • کل: %d\n   • امروز: %d\n   • این هفته: %d\n   • مسدود: %d\n\n",
		users.Total, users.Today, users.Week, users.Blocked)
	sb.WriteString("📦 سفارش‌ها:\n")
	fmt.Fprintf(&sb, "   • کل: %d\n   • امروز: %d\n   • در انتظار: %d\n   • تحویل شده: %d\n   • لغو شده: %d\n",
		orders.Total, orders.Today, orders.Pending, orders.Delivered, orders.Cancelled)
	fmt.Fprintf(&sb, "   • درآمد کل: %s %s\n\n", formatPrice(orders.Revenue), b.cfg.Shop.Currency)
	sb.WriteString("🛍 محصولات:\n")
	fmt.Fprintf(&sb, "   • فعال: %d\n   • ناموجود: %d\n   • موجودی کم: %d\n\n",
		products.Active, products.OutOfStock, products.LowStock)
	sb.WriteString("💳 فیش‌ها:\n")
	fmt.Fprintf(&sb, "   • در انتظار بررسی: %d\n   • تایید شده: %d\n   • رد شده: %d\n",
		payments.Pending, payments.Verified, payments.Rejected)
	if len(usage) > 0 {
		sb.WriteString("\n🏷 پراستفاده‌ترین کدها:\n")
		for i, u := range usage {
			if i == 5 {
				break
			}
			limit := "∞"
			if u.Limit != nil {
				limit = strconv.Itoa(*u.Limit)
			}
			fmt.Fprintf(&sb, "   • %s: %d/%s\n", u.Code, u.UsedCount, limit)
		}
	}
	b.gw.SendMessage(chatID, sb.String(), nil)
}

func (b *Bot) showAdminOrders(ctx context.Context, chatID int64, page int) {
	orders, err := b.repo.Orders.List(ctx, repository.OrderFilter{Limit: adminPageSize * page})
	if err != nil {
		logger.L().Error("список заказов", zap.Error(err))
		b.gw.SendMessage(chatID, "❌ خطا در دریافت سفارش‌ها.", nil)
		return
	}
	start := (page - 1) * adminPageSize
	if start >= len(orders) {
		start = 0
		page = 1
	}
	pageOrders := orders[start:]

	var sb strings.Builder
	fmt.Fprintf(&sb, "📋 مدیریت سفارش‌ها (صفحه %d)\n\n", page)
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(pageOrders)+1)
	for _, o := range pageOrders {
		fmt.Fprintf(&sb, "#%d | %s | %s | %s\n", o.ID, o.TrackingCode, statusFa(o.Status), formatPrice(o.FinalPrice))
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(
				fmt.Sprintf("سفارش #%d", o.ID), fmt.Sprintf("order_view_%d", o.ID)),
		))
	}
	if len(orders) >= adminPageSize*page {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("صفحه بعد ▶️", fmt.Sprintf("page_orders_%d", page+1)),
		))
	}
	b.gw.SendMessage(chatID, sb.String(), tgbotapi.NewInlineKeyboardMarkup(rows...))
}

// adminOrderView — карточка заказа для админа с кнопками смены статуса.
func (b *Bot) adminOrderView(ctx context.Context, chatID int64, orderID uint) {
	o, err := b.repo.Orders.GetByID(ctx, orderID)
	if err != nil || o == nil {
		b.gw.SendMessage(chatID, "سفارش یافت نشد.", nil)
		return
	}
	var sb strings.Builder
	sb.WriteString(b.renderOrder(o))
	fmt.Fprintf(&sb, "\n👤 %s | 📱 %s\n🏠 %s\n", o.FullName, o.Phone, o.Address)
	if o.PostalCode != nil {
		fmt.Fprintf(&sb, "📮 %s\n", *o.PostalCode)
	}
	if o.AdminNotes != nil {
		fmt.Fprintf(&sb, "📝 %s\n", *o.AdminNotes)
	}

	var rows [][]tgbotapi.InlineKeyboardButton
	if !o.Status.Terminal() {
		rows = append(rows,
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("✅ تایید", fmt.Sprintf("ostatus_confirmed_%d", o.ID)),
				tgbotapi.NewInlineKeyboardButtonData("📦 آماده‌سازی", fmt.Sprintf("ostatus_preparing_%d", o.ID)),
			),
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("🚚 ارسال شد", fmt.Sprintf("ostatus_shipped_%d", o.ID)),
				tgbotapi.NewInlineKeyboardButtonData("🏁 تحویل شد", fmt.Sprintf("ostatus_delivered_%d", o.ID)),
			),
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("❌ لغو سفارش", fmt.Sprintf("ocancel_%d", o.ID)),
			),
		)
	}
	var markup interface{}
	if rows != nil {
		markup = tgbotapi.NewInlineKeyboardMarkup(rows...)
	}
	b.gw.SendMessage(chatID, sb.String(), markup)
}

func (b *Bot) showAdminUsers(ctx context.Context, chatID int64, page int) {
	users, err := b.repo.Users.List(ctx, adminPageSize, (page-1)*adminPageSize)
	if err != nil {
		logger.L().Error("список пользователей", zap.Error(err))
		b.gw.SendMessage(chatID, "❌ خطا در دریافت کاربران.", nil)
		return
	}
	total, _ := b.repo.Users.Count(ctx)

	var sb strings.Builder
	fmt.Fprintf(&sb, "👥 لیست کاربران (صفحه %d، کل %d)\n\n", page, total)
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(users)+1)
	for _, u := range users {
		flag := "✅"
		if u.IsBlocked {
			flag = "🚫"
		}
		if u.IsAdmin {
			flag += "👑"
		}
		fmt.Fprintf(&sb, "%s %s (chat %d)\n", flag, u.DisplayName(), u.ChatID)
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(
				fmt.Sprintf("%s مسدود/آزاد %s", flag, u.DisplayName()), fmt.Sprintf("ublock_%d", u.ID)),
			tgbotapi.NewInlineKeyboardButtonData("👑", fmt.Sprintf("uadmin_%d", u.ID)),
			tgbotapi.NewInlineKeyboardButtonData("🗑", fmt.Sprintf("udelete_%d", u.ID)),
		))
	}
	if int64(page*adminPageSize) < total {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("صفحه بعد ▶️", fmt.Sprintf("page_users_%d", page+1)),
		))
	}
	b.gw.SendMessage(chatID, sb.String(), tgbotapi.NewInlineKeyboardMarkup(rows...))
}

func (b *Bot) showAdminProducts(ctx context.Context, chatID int64, page int) {
	products, err := b.repo.Products.ListAll(ctx)
	if err != nil {
		logger.L().Error("список товаров", zap.Error(err))
		b.gw.SendMessage(chatID, "❌ خطا در دریافت محصولات.", nil)
		return
	}
	start := (page - 1) * adminPageSize
	if start >= len(products) {
		start = 0
		page = 1
	}
	end := start + adminPageSize
	if end > len(products) {
		end = len(products)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "📦 لیست محصولات (صفحه %d)\n\n", page)
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, adminPageSize+1)
	for _, p := range products[start:end] {
		status := "فعال"
		if !p.IsActive {
			status = "غیرفعال"
		}
		fmt.Fprintf(&sb, "• %s\n   قیمت: %s | موجودی: %d | %s\n\n",
			p.Name, formatPrice(p.Price), p.Stock, status)
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✏️ "+p.Name, fmt.Sprintf("pedit_%d", p.ID)),
			tgbotapi.NewInlineKeyboardButtonData("🔁", fmt.Sprintf("ptoggle_%d", p.ID)),
			tgbotapi.NewInlineKeyboardButtonData("🗑", fmt.Sprintf("pdelete_%d", p.ID)),
		))
	}
	if end < len(products) {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("صفحه بعد ▶️", fmt.Sprintf("page_products_%d", page+1)),
		))
	}
	b.gw.SendMessage(chatID, sb.String(), tgbotapi.NewInlineKeyboardMarkup(rows...))
}

// showLowStock — склад глазами админа: что заканчивается первым.
func (b *Bot) showLowStock(ctx context.Context, chatID int64) {
	products, err := b.repo.Products.LowStock(ctx, b.cfg.Shop.LowStockThreshold)
	if err != nil {
		logger.L().Error("товары с низким остатком", zap.Error(err))
		b.gw.SendMessage(chatID, "❌ خطا در دریافت موجودی.", nil)
		return
	}
	if len(products) == 0 {
		b.gw.SendMessage(chatID, "📦 موجودی همه محصولات کافی است. ✅", nil)
		return
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "📦 محصولات با موجودی کم (حد: %d)\n\n", b.cfg.Shop.LowStockThreshold)
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(products))
	for _, p := range products {
		flag := "⚠️"
		if p.Stock == 0 {
			flag = "🚨"
		}
		fmt.Fprintf(&sb, "%s %s — موجودی: %d | فروش: %d\n", flag, p.Name, p.Stock, p.SoldCount)
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✏️ "+p.Name, fmt.Sprintf("pedit_%d", p.ID)),
		))
	}
	b.gw.SendMessage(chatID, sb.String(), tgbotapi.NewInlineKeyboardMarkup(rows...))
}

func (b *Bot) showAdminCategories(ctx context.Context, chatID int64) {
	cats, err := b.repo.Categories.ListAll(ctx)
	if err != nil {
		logger.L().Error("список категорий", zap.Error(err))
		b.gw.SendMessage(chatID, "❌ خطا در دریافت دسته‌بندی‌ها.", nil)
		return
	}
	var sb strings.Builder
	sb.WriteString("🗂 مدیریت دسته‌بندی‌ها\n\nبرای افزودن دسته جدید: /newcategory\n\n")
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(cats))
	for _, c := range cats {
		status := "فعال"
		if !c.IsActive {
			status = "غیرفعال"
		}
		fmt.Fprintf(&sb, "• %s (%s)\n", c.Title, status)
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🔁 "+c.Title, fmt.Sprintf("ctoggle_%d", c.ID)),
		))
	}
	var markup interface{}
	if len(rows) > 0 {
		markup = tgbotapi.NewInlineKeyboardMarkup(rows...)
	}
	b.gw.SendMessage(chatID, sb.String(), markup)
}

func (b *Bot) showAdminDiscounts(ctx context.Context, chatID int64) {
	codes, err := b.repo.Discounts.ListAll(ctx)
	if err != nil {
		logger.L().Error("список кодов скидки", zap.Error(err))
		b.gw.SendMessage(chatID, "❌ خطا در دریافت کدها.", nil)
		return
	}
	var sb strings.Builder
	sb.WriteString("🏷 کدهای تخفیف\n\nبرای ساخت کد جدید: /newdiscount\n\n")
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(codes))
	for _, c := range codes {
		limit := "∞"
		if c.UsageLimit != nil {
			limit = strconv.Itoa(*c.UsageLimit)
		}
		status := "فعال"
		if !c.IsActive {
			status = "غیرفعال"
		}
		fmt.Fprintf(&sb, "• %s (%s %s) — %d/%s استفاده، %s\n",
			c.Code, formatPrice(c.Value), discountTypeFa(c.Type), c.UsedCount, limit, status)
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🔁 "+c.Code, fmt.Sprintf("dtoggle_%d", c.ID)),
		))
	}
	var markup interface{}
	if len(rows) > 0 {
		markup = tgbotapi.NewInlineKeyboardMarkup(rows...)
	}
	b.gw.SendMessage(chatID, sb.String(), markup)
}

func discountTypeFa(t models.DiscountType) string {
	if t == models.DiscountPercentage {
		return "درصد"
	}
	return "تومان"
}

func (b *Bot) showPendingPayments(ctx context.Context, chatID int64) {
	payments, err := b.repo.Payments.PendingVerifications(ctx, adminPageSize)
	if err != nil {
		logger.L().Error("очередь чеков", zap.Error(err))
		b.gw.SendMessage(chatID, "❌ خطا در دریافت فیش‌ها.", nil)
		return
	}
	if len(payments) == 0 {
		b.gw.SendMessage(chatID, "💳 فیش در انتظار بررسی وجود ندارد.", nil)
		return
	}
	for _, p := range payments {
		caption := fmt.Sprintf("💳 فیش سفارش #%d\n👤 %s\n💰 %s %s",
			p.OrderID, p.User.DisplayName(), formatPrice(p.Amount), b.cfg.Shop.Currency)
		markup := tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("✅ تایید", fmt.Sprintf("payok_%d", p.ID)),
				tgbotapi.NewInlineKeyboardButtonData("❌ رد", fmt.Sprintf("payno_%d", p.ID)),
			),
		)
		if p.ReceiptFileID != nil {
			b.gw.SendPhoto(chatID, *p.ReceiptFileID, caption, markup)
		} else {
			b.gw.SendMessage(chatID, caption, markup)
		}
	}
}

// --- создание товара: линейная цепочка со staged-черновиком ---

func (b *Bot) startProductCreate(ctx context.Context, user *models.User) {
	cats, err := b.repo.Categories.ListActive(ctx)
	if err != nil || len(cats) == 0 {
		b.gw.SendMessage(user.ChatID, "ابتدا یک دسته‌بندی فعال بسازید (/newcategory).", nil)
		return
	}
	var sb strings.Builder
	sb.WriteString("➕ افزودن محصول جدید\n\nشماره دسته‌بندی را وارد کنید:\n\n")
	for i, c := range cats {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, c.Title)
	}
	b.states.Set(user.ChatID, func(st *State) { *st = State{Step: StepProductCategory} })
	b.gw.SendMessage(user.ChatID, sb.String(), nil)
}

func (b *Bot) stepProductCreate(ctx context.Context, user *models.User, st *State, text string) {
	chatID := user.ChatID
	switch st.Step {
	case StepProductCategory:
		cats, err := b.repo.Categories.ListActive(ctx)
		if err != nil {
			b.gw.SendMessage(chatID, "❌ خطایی رخ داد.", nil)
			return
		}
		idx, err := strconv.Atoi(strings.TrimSpace(text))
		if err != nil || idx < 1 || idx > len(cats) {
			b.gw.SendMessage(chatID, "❗️ شماره دسته‌بندی معتبر نیست. دوباره وارد کنید:", nil)
			return
		}
		catID := cats[idx-1].ID
		b.states.Set(chatID, func(st *State) {
			st.Product.CategoryID = catID
			st.Step = StepProductName
		})
		b.gw.SendMessage(chatID, "🛍 نام محصول را وارد کنید:", nil)

	case StepProductName:
		name := validate.SanitizeText(text)
		if len([]rune(name)) < 2 {
			b.gw.SendMessage(chatID, "❗️ نام محصول خیلی کوتاه است:", nil)
			return
		}
		b.states.Set(chatID, func(st *State) {
			st.Product.Name = name
			st.Step = StepProductPrice
		})
		b.gw.SendMessage(chatID, "💰 قیمت محصول را به تومان وارد کنید:", nil)

	case StepProductPrice:
		price, ok := validate.Price(text)
		if !ok {
			b.gw.SendMessage(chatID, "❗️ قیمت باید عدد مثبت باشد:", nil)
			return
		}
		b.states.Set(chatID, func(st *State) {
			st.Product.Price = price
			st.Step = StepProductStock
		})
		b.gw.SendMessage(chatID, "📦 موجودی محصول را وارد کنید:", nil)

	case StepProductStock:
		qty, ok := validate.Quantity(text)
		if !ok {
			b.gw.SendMessage(chatID, "❗️ موجودی باید عدد صفر یا مثبت باشد:", nil)
			return
		}
		b.states.Set(chatID, func(st *State) {
			st.Product.Stock = qty
			st.Step = StepProductDescription
		})
		b.gw.SendMessage(chatID, "📝 توضیحات محصول (یا 0 برای رد شدن):", nil)

	case StepProductDescription:
		desc := validate.Optional(validate.SanitizeText(text))
		b.states.Set(chatID, func(st *State) {
			st.Product.Description = desc
			st.Step = StepProductImage
		})
		b.gw.SendMessage(chatID, "🖼 آدرس تصویر محصول (یا 0 برای رد شدن):", nil)

	case StepProductImage:
		img := validate.Optional(text)
		draft := st.Product
		draft.ImageURL = img
		b.states.Clear(chatID)

		p := &models.Product{
			CategoryID:  draft.CategoryID,
			Name:        draft.Name,
			Price:       draft.Price,
			Stock:       draft.Stock,
			Description: draft.Description,
			ImageURL:    img,
			IsActive:    true,
		}
		if err := b.repo.Products.Create(ctx, p); err != nil {
			logger.L().Error("создание товара", zap.Error(err))
			b.gw.SendMessage(chatID, "❌ افزودن محصول ناموفق بود.", b.adminKeyboard())
			return
		}
		b.gw.SendMessage(chatID,
			fmt.Sprintf("✅ محصول با موفقیت اضافه شد!\n\n🆔 شناسه: %d\n📦 نام: %s", p.ID, p.Name),
			b.adminKeyboard())
	}
}

// --- редактирование товара: выбор поля, один шаг нового значения, коммит ---

var productEditFields = []struct {
	Key, Label string
}{
	{"name", "نام"},
	{"price", "قیمت"},
	{"discount_price", "قیمت با تخفیف (0 = حذف)"},
	{"stock", "موجودی"},
	{"description", "توضیحات"},
	{"image_url", "تصویر"},
}

func (b *Bot) startProductEdit(ctx context.Context, user *models.User, productID uint) {
	p, err := b.repo.Products.GetByID(ctx, productID)
	if err != nil || p == nil {
		b.gw.SendMessage(user.ChatID, "محصول یافت نشد.", nil)
		return
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "✏️ ویرایش «%s»\n\nشماره فیلد را وارد کنید:\n\n", p.Name)
	for i, f := range productEditFields {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, f.Label)
	}
	b.states.Set(user.ChatID, func(st *State) {
		*st = State{Step: StepProductEditField, Product: ProductDraft{ID: productID}}
	})
	b.gw.SendMessage(user.ChatID, sb.String(), nil)
}

func (b *Bot) stepProductEdit(ctx context.Context, user *models.User, st *State, text string) {
	chatID := user.ChatID
	field := st.Product.EditField
	productID := st.Product.ID

	var fields map[string]any
	switch field {
	case "name":
		name := validate.SanitizeText(text)
		if len([]rune(name)) < 2 {
			b.gw.SendMessage(chatID, "❗️ نام خیلی کوتاه است:", nil)
			return
		}
		fields = map[string]any{"name": name}
	case "price":
		price, ok := validate.Price(text)
		if !ok {
			b.gw.SendMessage(chatID, "❗️ قیمت باید عدد مثبت باشد:", nil)
			return
		}
		fields = map[string]any{"price": price}
	case "discount_price":
		if validate.IsSkip(text) {
			fields = map[string]any{"discount_price": nil}
			break
		}
		price, ok := validate.Price(text)
		if !ok {
			b.gw.SendMessage(chatID, "❗️ قیمت باید عدد مثبت باشد (یا 0 برای حذف):", nil)
			return
		}
		fields = map[string]any{"discount_price": price}
	case "stock":
		qty, ok := validate.Quantity(text)
		if !ok {
			b.gw.SendMessage(chatID, "❗️ موجودی باید عدد صفر یا مثبت باشد:", nil)
			return
		}
		fields = map[string]any{"stock": qty}
	case "description":
		fields = map[string]any{"description": validate.Optional(validate.SanitizeText(text))}
	case "image_url":
		fields = map[string]any{"image_url": validate.Optional(text)}
	default:
		b.states.Clear(chatID)
		b.gw.SendMessage(chatID, "❌ فیلد ناشناخته.", b.adminKeyboard())
		return
	}

	b.states.Clear(chatID)
	if err := b.repo.Products.UpdateFields(ctx, productID, fields); err != nil {
		logger.L().Error("обновление товара", zap.Uint("product_id", productID), zap.Error(err))
		b.gw.SendMessage(chatID, "❌ ویرایش ناموفق بود.", b.adminKeyboard())
		return
	}
	b.gw.SendMessage(chatID, "✅ محصول ویرایش شد.", b.adminKeyboard())
}

// выбор номера поля приходит тем же текстовым каналом
func (b *Bot) stepProductEditField(_ context.Context, user *models.User, st *State, text string) {
	idx, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil || idx < 1 || idx > len(productEditFields) {
		b.gw.SendMessage(user.ChatID, "❗️ شماره فیلد معتبر نیست:", nil)
		return
	}
	f := productEditFields[idx-1]
	b.states.Set(user.ChatID, func(st *State) {
		st.Product.EditField = f.Key
		st.Step = StepProductEditValue
	})
	b.gw.SendMessage(user.ChatID, fmt.Sprintf("مقدار جدید برای «%s» را وارد کنید:", f.Label), nil)
}

// --- создание категории ---

func (b *Bot) startCategoryCreate(user *models.User) {
	b.states.Set(user.ChatID, func(st *State) { *st = State{Step: StepCategoryTitle} })
	b.gw.SendMessage(user.ChatID, "🗂 عنوان دسته‌بندی را وارد کنید:", nil)
}

func (b *Bot) stepCategoryCreate(ctx context.Context, user *models.User, st *State, text string) {
	chatID := user.ChatID
	switch st.Step {
	case StepCategoryTitle:
		title := validate.SanitizeText(text)
		if len([]rune(title)) < 2 {
			b.gw.SendMessage(chatID, "❗️ عنوان خیلی کوتاه است:", nil)
			return
		}
		b.states.Set(chatID, func(st *State) {
			st.Category.Title = title
			st.Step = StepCategoryIcon
		})
		b.gw.SendMessage(chatID, "🎨 یک ایموجی برای دسته وارد کنید (یا 0 برای رد شدن):", nil)

	case StepCategoryIcon:
		icon := validate.Optional(text)
		b.states.Set(chatID, func(st *State) {
			st.Category.Icon = icon
			st.Step = StepCategoryDescription
		})
		b.gw.SendMessage(chatID, "📝 توضیحات دسته (یا 0 برای رد شدن):", nil)

	case StepCategoryDescription:
		draft := st.Category
		draft.Description = validate.Optional(validate.SanitizeText(text))
		b.states.Clear(chatID)

		c := &models.Category{
			Title:       draft.Title,
			Icon:        draft.Icon,
			Description: draft.Description,
			IsActive:    true,
		}
		if err := b.repo.Categories.Create(ctx, c); err != nil {
			logger.L().Error("создание категории", zap.Error(err))
			b.gw.SendMessage(chatID, "❌ افزودن دسته ناموفق بود.", b.adminKeyboard())
			return
		}
		b.gw.SendMessage(chatID, fmt.Sprintf("✅ دسته «%s» اضافه شد.", c.Title), b.adminKeyboard())
	}
}

// --- создание кода скидки ---

func (b *Bot) startDiscountCreate(user *models.User) {
	b.states.Set(user.ChatID, func(st *State) { *st = State{Step: StepDiscountCode} })
	b.gw.SendMessage(user.ChatID, "🏷 کد تخفیف را وارد کنید (حروف لاتین و عدد):", nil)
}

func (b *Bot) stepDiscountCreate(ctx context.Context, user *models.User, st *State, text string) {
	chatID := user.ChatID
	switch st.Step {
	case StepDiscountCode:
		code, ok := validate.DiscountCodeFormat(text)
		if !ok {
			b.gw.SendMessage(chatID, "❗️ فرمت کد معتبر نیست (۳ تا ۲۰ کاراکتر لاتین):", nil)
			return
		}
		b.states.Set(chatID, func(st *State) {
			st.Discount.Code = code
			st.Step = StepDiscountType
		})
		b.gw.SendMessage(chatID, "نوع تخفیف؟ 1 = درصدی، 2 = مبلغ ثابت:", nil)

	case StepDiscountType:
		var t string
		switch strings.TrimSpace(text) {
		case "1":
			t = string(models.DiscountPercentage)
		case "2":
			t = string(models.DiscountFixed)
		default:
			b.gw.SendMessage(chatID, "❗️ فقط 1 یا 2:", nil)
			return
		}
		b.states.Set(chatID, func(st *State) {
			st.Discount.Type = t
			st.Step = StepDiscountValue
		})
		if t == string(models.DiscountPercentage) {
			b.gw.SendMessage(chatID, "درصد تخفیف (۱ تا ۱۰۰):", nil)
		} else {
			b.gw.SendMessage(chatID, "مبلغ تخفیف به تومان:", nil)
		}

	case StepDiscountValue:
		var value int64
		var ok bool
		if st.Discount.Type == string(models.DiscountPercentage) {
			value, ok = validate.Percent(text)
		} else {
			value, ok = validate.Price(text)
		}
		if !ok {
			b.gw.SendMessage(chatID, "❗️ مقدار معتبر نیست:", nil)
			return
		}
		b.states.Set(chatID, func(st *State) {
			st.Discount.Value = value
			st.Step = StepDiscountMinPurchase
		})
		b.gw.SendMessage(chatID, "حداقل مبلغ خرید (یا 0 برای رد شدن):", nil)

	case StepDiscountMinPurchase:
		var min int64
		if !validate.IsSkip(text) {
			v, ok := validate.Price(text)
			if !ok {
				b.gw.SendMessage(chatID, "❗️ مبلغ معتبر نیست (یا 0):", nil)
				return
			}
			min = v
		}
		next := StepDiscountUsageLimit
		prompt := "سقف تعداد استفاده (یا 0 برای نامحدود):"
		if st.Discount.Type == string(models.DiscountPercentage) {
			next = StepDiscountMaxAmount
			prompt = "سقف مبلغ تخفیف به تومان (یا 0 برای رد شدن):"
		}
		b.states.Set(chatID, func(st *State) {
			st.Discount.MinPurchase = min
			st.Step = next
		})
		b.gw.SendMessage(chatID, prompt, nil)

	case StepDiscountMaxAmount:
		var max *int64
		if !validate.IsSkip(text) {
			v, ok := validate.Price(text)
			if !ok {
				b.gw.SendMessage(chatID, "❗️ مبلغ معتبر نیست (یا 0):", nil)
				return
			}
			max = &v
		}
		b.states.Set(chatID, func(st *State) {
			st.Discount.MaxDiscount = max
			st.Step = StepDiscountUsageLimit
		})
		b.gw.SendMessage(chatID, "سقف تعداد استفاده (یا 0 برای نامحدود):", nil)

	case StepDiscountUsageLimit:
		var limit *int
		if !validate.IsSkip(text) {
			v, ok := validate.Quantity(text)
			if !ok || v == 0 {
				b.gw.SendMessage(chatID, "❗️ عدد معتبر نیست (یا 0):", nil)
				return
			}
			limit = &v
		}
		b.states.Set(chatID, func(st *State) {
			st.Discount.UsageLimit = limit
			st.Step = StepDiscountEndDate
		})
		b.gw.SendMessage(chatID, "تاریخ پایان به شکل YYYY-MM-DD (یا 0 برای نامحدود):", nil)

	case StepDiscountEndDate:
		var end *time.Time
		if !validate.IsSkip(text) {
			t, err := time.Parse("2006-01-02", strings.TrimSpace(text))
			if err != nil {
				b.gw.SendMessage(chatID, "❗️ فرمت تاریخ معتبر نیست (مثال: 2026-12-31):", nil)
				return
			}
			end = &t
		}
		draft := st.Discount
		b.states.Clear(chatID)

		dc := &models.DiscountCode{
			Code:        draft.Code,
			Type:        models.DiscountType(draft.Type),
			Value:       draft.Value,
			MinPurchase: draft.MinPurchase,
			MaxDiscount: draft.MaxDiscount,
			UsageLimit:  draft.UsageLimit,
			IsActive:    true,
			StartDate:   b.nowUTC(),
			EndDate:     end,
		}
		if err := b.repo.Discounts.Create(ctx, dc); err != nil {
			logger.L().Error("создание кода скидки", zap.String("code", draft.Code), zap.Error(err))
			b.gw.SendMessage(chatID, "❌ ساخت کد ناموفق بود (شاید تکراری است).", b.adminKeyboard())
			return
		}
		b.gw.SendMessage(chatID, fmt.Sprintf("✅ کد تخفیف «%s» ساخته شد.", dc.Code), b.adminKeyboard())
		b.spawn(func() { b.announceDiscount(context.Background(), dc) })
	}
}

// --- рассылка ---

func (b *Bot) stepBroadcast(ctx context.Context, user *models.User, text string) {
	b.states.Clear(user.ChatID)
	text = strings.TrimSpace(text)
	if text == "" {
		b.gw.SendMessage(user.ChatID, "❗️ متن پیام خالی است.", b.adminKeyboard())
		return
	}
	sent, failed := b.broadcast(ctx, "📣 "+text)
	b.gw.SendMessage(user.ChatID,
		fmt.Sprintf("📣 پیام همگانی ارسال شد.\n✅ موفق: %d\n❌ ناموفق: %d", sent, failed),
		b.adminKeyboard())
}

// broadcast шлёт всем пользователям по очереди с паузой против flood-лимитов;
// ошибка по одному получателю не прерывает цикл.
func (b *Bot) broadcast(ctx context.Context, text string) (sent, failed int) {
	const batch = 200
	delay := time.Duration(b.cfg.Bot.BroadcastDelayMs) * time.Millisecond
	for offset := 0; ; offset += batch {
		users, err := b.repo.Users.List(ctx, batch, offset)
		if err != nil {
			logger.L().Error("выборка получателей рассылки", zap.Error(err))
			return sent, failed
		}
		if len(users) == 0 {
			return sent, failed
		}
		for _, u := range users {
			if u.IsBlocked {
				continue
			}
			if _, err := b.gw.SendMessage(u.ChatID, text, nil); err != nil {
				failed++
			} else {
				sent++
			}
			b.sleep(delay)
		}
	}
}

// --- причина отмены заказа ---

func (b *Bot) stepCancelReason(ctx context.Context, user *models.User, st *State, text string) {
	orderID := st.OrderID
	b.states.Clear(user.ChatID)
	reason := validate.SanitizeText(text)
	if reason == "" {
		reason = "لغو توسط مدیر"
	}
	order, err := b.orders.CancelOrder(ctx, orderID, reason)
	if err != nil {
		logger.L().Error("отмена заказа", zap.Uint("order_id", orderID), zap.Error(err))
		b.gw.SendMessage(user.ChatID, "❌ لغو سفارش ناموفق بود.", b.adminKeyboard())
		return
	}
	b.gw.SendMessage(user.ChatID, fmt.Sprintf("✅ سفارش #%d لغو شد.", order.ID), b.adminKeyboard())
	b.spawn(func() { b.notifyOrderStatus(context.Background(), order) })
}
