package bot

import (
	"context"
	"fmt"
	"strings"

	"github.com/sumohast/bale-shop-bot/internal/logger"
	"github.com/sumohast/bale-shop-bot/internal/models"
	"github.com/sumohast/bale-shop-bot/internal/service"
	"github.com/sumohast/bale-shop-bot/internal/validate"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

func (b *Bot) showCategories(ctx context.Context, chatID int64) {
	cats, err := b.repo.Categories.ListActive(ctx)
	if err != nil {
		logger.L().Error("список категорий", zap.Error(err))
		b.gw.SendMessage(chatID, "❌ خطا در دریافت دسته‌بندی‌ها.", nil)
		return
	}
	if len(cats) == 0 {
		b.gw.SendMessage(chatID, "فعلاً محصولی موجود نیست. 🙏", nil)
		return
	}
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(cats))
	for _, c := range cats {
		label := c.Title
		if c.Icon != nil {
			label = *c.Icon + " " + label
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, fmt.Sprintf("category_%d", c.ID)),
		))
	}
	b.gw.SendMessage(chatID, "🗂 دسته‌بندی مورد نظر را انتخاب کنید:", tgbotapi.NewInlineKeyboardMarkup(rows...))
}

func (b *Bot) showCategoryProducts(ctx context.Context, chatID int64, categoryID uint) {
	products, err := b.repo.Products.ByCategory(ctx, categoryID)
	if err != nil {
		logger.L().Error("товары категории", zap.Uint("category_id", categoryID), zap.Error(err))
		b.gw.SendMessage(chatID, "❌ خطا در دریافت محصولات.", nil)
		return
	}
	if len(products) == 0 {
		b.gw.SendMessage(chatID, "در این دسته‌بندی محصولی موجود نیست.", nil)
		return
	}
	rows := b.productRows(products)
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("🔙 بازگشت", "back_main"),
	))
	b.gw.SendMessage(chatID, "🛍 محصولات:", tgbotapi.NewInlineKeyboardMarkup(rows...))
}

// productRows — кнопки карточек товаров, общий вид для категории, избранного
// и результатов поиска.
func (b *Bot) productRows(products []models.Product) [][]tgbotapi.InlineKeyboardButton {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(products)+1)
	for _, p := range products {
		label := fmt.Sprintf("%s — %s %s", p.Name, formatPrice(p.EffectivePrice()), b.cfg.Shop.Currency)
		if p.Stock <= 0 {
			label = "❌ " + p.Name + " (ناموجود)"
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, fmt.Sprintf("product_%d", p.ID)),
		))
	}
	return rows
}

func (b *Bot) showFeatured(ctx context.Context, chatID int64) {
	products, err := b.repo.Products.Featured(ctx, 10)
	if err != nil {
		logger.L().Error("избранные товары", zap.Error(err))
		b.gw.SendMessage(chatID, "❌ خطا در دریافت محصولات.", nil)
		return
	}
	if len(products) == 0 {
		b.gw.SendMessage(chatID, "فعلاً پیشنهاد ویژه‌ای موجود نیست.", nil)
		return
	}
	b.gw.SendMessage(chatID, "⭐ پیشنهادهای ویژه:",
		tgbotapi.NewInlineKeyboardMarkup(b.productRows(products)...))
}

// stepSearch — одношаговый поиск по названию и описанию.
func (b *Bot) stepSearch(ctx context.Context, user *models.User, text string) {
	b.states.Clear(user.ChatID)
	query := validate.SanitizeText(text)
	if len([]rune(query)) < 2 {
		b.gw.SendMessage(user.ChatID, "❗️ عبارت جستجو خیلی کوتاه است.", b.mainKeyboard())
		return
	}
	products, err := b.repo.Products.Search(ctx, query)
	if err != nil {
		logger.L().Error("поиск товаров", zap.String("query", query), zap.Error(err))
		b.gw.SendMessage(user.ChatID, "❌ خطایی رخ داد.", b.mainKeyboard())
		return
	}
	if len(products) == 0 {
		b.gw.SendMessage(user.ChatID, "🔍 محصولی با این مشخصات یافت نشد.", b.mainKeyboard())
		return
	}
	b.gw.SendMessage(user.ChatID, fmt.Sprintf("🔍 نتایج جستجو برای «%s»:", query),
		tgbotapi.NewInlineKeyboardMarkup(b.productRows(products)...))
}

func (b *Bot) showProduct(ctx context.Context, chatID int64, productID uint) {
	p, err := b.repo.Products.GetByID(ctx, productID)
	if err != nil {
		logger.L().Error("карточка товара", zap.Uint("product_id", productID), zap.Error(err))
		return
	}
	if p == nil || !p.IsActive {
		b.gw.SendMessage(chatID, "این محصول در دسترس نیست.", nil)
		return
	}
	if err := b.repo.Products.IncViewCount(ctx, p.ID); err != nil {
		logger.L().Warn("счётчик просмотров", zap.Uint("product_id", p.ID), zap.Error(err))
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "🛍 %s\n\n", p.Name)
	if p.Description != nil {
		fmt.Fprintf(&sb, "%s\n\n", *p.Description)
	}
	if p.HasDiscount() {
		fmt.Fprintf(&sb, "💰 قیمت: ~%s~ %s %s (%d%% تخفیف)\n",
			formatPrice(p.Price), formatPrice(p.EffectivePrice()), b.cfg.Shop.Currency,
			service.DiscountPercent(p.Price, *p.DiscountPrice))
	} else {
		fmt.Fprintf(&sb, "💰 قیمت: %s %s\n", formatPrice(p.Price), b.cfg.Shop.Currency)
	}
	if p.Stock > 0 {
		fmt.Fprintf(&sb, "📦 موجودی: %d", p.Stock)
	} else {
		sb.WriteString("📦 ناموجود")
	}

	var markup interface{}
	if p.Stock > 0 {
		markup = tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("➕ افزودن به سبد", fmt.Sprintf("buy_%d", p.ID)),
			),
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("🛒 مشاهده سبد", "cart"),
			),
		)
	}
	if p.ImageURL != nil && *p.ImageURL != "" {
		b.gw.SendPhoto(chatID, *p.ImageURL, sb.String(), markup)
		return
	}
	b.gw.SendMessage(chatID, sb.String(), markup)
}

func (b *Bot) showCart(ctx context.Context, user *models.User) {
	chatID := user.ChatID
	summary, err := b.repo.Cart.Summary(ctx, user.ID)
	if err != nil {
		logger.L().Error("корзина", zap.Uint("user_id", user.ID), zap.Error(err))
		b.gw.SendMessage(chatID, "❌ خطا در دریافت سبد خرید.", nil)
		return
	}
	if len(summary.Items) == 0 {
		b.gw.SendMessage(chatID, "🛒 سبد خرید شما خالی است!\n\nبرای خرید از منوی محصولات استفاده کنید.", nil)
		return
	}

	st := b.states.Get(chatID)
	discount := st.Checkout.Discount

	var sb strings.Builder
	sb.WriteString("🛒 سبد خرید شما:\n\n")
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(summary.Items)+4)
	for i, it := range summary.Items {
		price := it.Product.EffectivePrice()
		fmt.Fprintf(&sb, "%d. %s\n   💰 %s × %d = %s\n\n",
			i+1, it.Product.Name, formatPrice(price), it.Quantity, formatPrice(price*int64(it.Quantity)))
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("➕", fmt.Sprintf("cart_inc_%d", it.ProductID)),
			tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("%d", it.Quantity), "noop"),
			tgbotapi.NewInlineKeyboardButtonData("➖", fmt.Sprintf("cart_dec_%d", it.ProductID)),
			tgbotapi.NewInlineKeyboardButtonData("🗑", fmt.Sprintf("cart_del_%d", it.ProductID)),
		))
	}

	fmt.Fprintf(&sb, "📦 تعداد اقلام: %d\n", summary.Count)
	fmt.Fprintf(&sb, "💵 جمع کل: %s %s\n", formatPrice(summary.Subtotal), b.cfg.Shop.Currency)
	if discount != nil {
		_, tax, final := service.FinalPrice(summary.Subtotal, discount.Amount, int64(b.cfg.Shop.TaxPercent))
		fmt.Fprintf(&sb, "🎁 تخفیف (%s): %s-\n", discount.Code, formatPrice(discount.Amount))
		fmt.Fprintf(&sb, "📊 مالیات: %s\n", formatPrice(tax))
		fmt.Fprintf(&sb, "💳 مبلغ نهایی: %s %s\n", formatPrice(final), b.cfg.Shop.Currency)
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("❌ حذف کد تخفیف", "discount_remove"),
		))
	} else {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🎁 کد تخفیف دارم", "discount_enter"),
		))
	}
	rows = append(rows,
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ ثبت سفارش", "checkout"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🗑 خالی کردن سبد", "cart_clear"),
		),
	)
	b.gw.SendMessage(chatID, sb.String(), tgbotapi.NewInlineKeyboardMarkup(rows...))
}

func (b *Bot) showMyOrders(ctx context.Context, user *models.User) {
	orders, err := b.orders.ListByUser(ctx, user.ID, 10)
	if err != nil {
		logger.L().Error("заказы пользователя", zap.Uint("user_id", user.ID), zap.Error(err))
		b.gw.SendMessage(user.ChatID, "❌ خطا در دریافت سفارش‌ها.", nil)
		return
	}
	if len(orders) == 0 {
		b.gw.SendMessage(user.ChatID, "📦 شما هنوز سفارشی ثبت نکرده‌اید.", nil)
		return
	}
	var sb strings.Builder
	sb.WriteString("📦 سفارش‌های شما:\n\n")
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(orders))
	for _, o := range orders {
		fmt.Fprintf(&sb, "🔖 %s\n   %s | %s %s\n\n",
			o.TrackingCode, statusFa(o.Status), formatPrice(o.FinalPrice), b.cfg.Shop.Currency)
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(
				fmt.Sprintf("جزئیات سفارش #%d", o.ID), fmt.Sprintf("order_view_%d", o.ID)),
		))
	}
	b.gw.SendMessage(user.ChatID, sb.String(), tgbotapi.NewInlineKeyboardMarkup(rows...))
}

// renderOrder — общая карточка заказа для пользователя и поиска по коду.
func (b *Bot) renderOrder(o *models.Order) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "📦 سفارش #%d\n\n", o.ID)
	fmt.Fprintf(&sb, "🔖 کد پیگیری: %s\n", o.TrackingCode)
	fmt.Fprintf(&sb, "📊 وضعیت: %s\n", statusFa(o.Status))
	fmt.Fprintf(&sb, "💳 پرداخت: %s\n\n", paymentFa(o.PaymentStatus))
	sb.WriteString("📦 اقلام سفارش:\n")
	for _, it := range o.Items {
		fmt.Fprintf(&sb, "• %s × %d = %s\n",
			it.ProductName, it.Quantity, formatPrice(it.EffectivePrice()*int64(it.Quantity)))
	}
	fmt.Fprintf(&sb, "\n💰 جمع: %s\n", formatPrice(o.TotalPrice))
	if o.DiscountAmount > 0 {
		fmt.Fprintf(&sb, "🎁 تخفیف: %s-\n", formatPrice(o.DiscountAmount))
	}
	fmt.Fprintf(&sb, "📊 مالیات: %s\n", formatPrice(o.TaxAmount))
	fmt.Fprintf(&sb, "💵 مبلغ نهایی: %s %s\n", formatPrice(o.FinalPrice), b.cfg.Shop.Currency)
	return sb.String()
}

func (b *Bot) showOrder(ctx context.Context, user *models.User, orderID uint) {
	o, err := b.repo.Orders.GetByID(ctx, orderID)
	if err != nil {
		logger.L().Error("карточка заказа", zap.Uint("order_id", orderID), zap.Error(err))
		return
	}
	if o == nil || o.UserID != user.ID {
		b.gw.SendMessage(user.ChatID, "سفارش یافت نشد.", nil)
		return
	}
	var markup interface{}
	if o.PaymentStatus == models.PaymentUnpaid && !o.Status.Terminal() {
		markup = tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("💳 ارسال فیش پرداخت", fmt.Sprintf("order_receipt_%d", o.ID)),
			),
		)
	}
	b.gw.SendMessage(user.ChatID, b.renderOrder(o), markup)
}

func (b *Bot) showAbout(chatID int64) {
	msg := fmt.Sprintf("ℹ️ درباره %s\n\n%s یک فروشگاه آنلاین است که با بهترین کیفیت و قیمت در خدمت شماست.\n\n✨ ویژگی‌ها:\n• محصولات با کیفیت\n• قیمت مناسب\n• ارسال سریع\n• پشتیبانی 24 ساعته",
		b.cfg.Shop.Name, b.cfg.Shop.Name)
	b.gw.SendMessage(chatID, msg, nil)
}
