package bot

import (
	"context"
	"errors"
	"fmt"

	"github.com/sumohast/bale-shop-bot/internal/logger"
	"github.com/sumohast/bale-shop-bot/internal/models"
	"github.com/sumohast/bale-shop-bot/internal/service"
	"github.com/sumohast/bale-shop-bot/internal/validate"

	"go.uber.org/zap"
)

func (b *Bot) startCheckout(ctx context.Context, user *models.User) {
	summary, err := b.repo.Cart.Summary(ctx, user.ID)
	if err != nil {
		logger.L().Error("корзина при оформлении", zap.Uint("user_id", user.ID), zap.Error(err))
		b.gw.SendMessage(user.ChatID, "❌ خطایی رخ داد. لطفاً دوباره تلاش کنید.", nil)
		return
	}
	if len(summary.Items) == 0 {
		b.gw.SendMessage(user.ChatID, "🛒 سبد خرید شما خالی است!", b.mainKeyboard())
		return
	}
	// скидка, применённая из корзины, переезжает в черновик оформления
	prev := b.states.Get(user.ChatID).Checkout.Discount
	b.states.Set(user.ChatID, func(st *State) {
		st.Step = StepCheckoutName
		st.Checkout = CheckoutDraft{Discount: prev}
	})
	b.gw.SendMessage(user.ChatID, "📝 نام و نام خانوادگی گیرنده را وارد کنید:", nil)
}

// stepCheckout ведёт линейную цепочку имя → телефон → адрес → индекс.
// Невалидный ввод повторяет запрос, шаг не двигается.
func (b *Bot) stepCheckout(ctx context.Context, user *models.User, st *State, text string) {
	chatID := user.ChatID
	switch st.Step {
	case StepCheckoutName:
		name, ok := validate.Name(text)
		if !ok {
			b.gw.SendMessage(chatID, "❗️ نام معتبر نیست. حداقل ۲ حرف و فقط حروف وارد کنید:", nil)
			return
		}
		b.states.Set(chatID, func(st *State) {
			st.Checkout.FullName = name
			st.Step = StepCheckoutPhone
		})
		b.gw.SendMessage(chatID, "📱 شماره موبایل را وارد کنید (مثال: 09123456789):", nil)

	case StepCheckoutPhone:
		phone, ok := validate.Phone(text)
		if !ok {
			b.gw.SendMessage(chatID, "❗️ شماره موبایل معتبر نیست. دوباره وارد کنید:", nil)
			return
		}
		b.states.Set(chatID, func(st *State) {
			st.Checkout.Phone = phone
			st.Step = StepCheckoutAddress
		})
		b.gw.SendMessage(chatID, "🏠 آدرس کامل را وارد کنید (حداقل ۱۰ حرف):", nil)

	case StepCheckoutAddress:
		addr, ok := validate.Address(text)
		if !ok {
			b.gw.SendMessage(chatID, "❗️ آدرس خیلی کوتاه است. آدرس کامل‌تری وارد کنید:", nil)
			return
		}
		b.states.Set(chatID, func(st *State) {
			st.Checkout.Address = validate.SanitizeText(addr)
			st.Step = StepCheckoutPostal
		})
		b.gw.SendMessage(chatID, "📮 کد پستی ۱۰ رقمی را وارد کنید (برای رد شدن 0 بفرستید):", nil)

	case StepCheckoutPostal:
		postal, ok := validate.PostalCode(text)
		if !ok {
			b.gw.SendMessage(chatID, "❗️ کد پستی باید دقیقاً ۱۰ رقم باشد (یا 0 برای رد شدن):", nil)
			return
		}
		draft := st.Checkout
		draft.PostalCode = postal
		b.finishCheckout(ctx, user, draft)
	}
}

// finishCheckout — терминальный переход: движок заказа, затем пост-коммитные
// шаги (запись использования скидки, очистка корзины) уже вне транзакции.
func (b *Bot) finishCheckout(ctx context.Context, user *models.User, draft CheckoutDraft) {
	chatID := user.ChatID
	b.states.Clear(chatID)

	items, err := b.repo.Cart.Summary(ctx, user.ID)
	if err != nil {
		logger.L().Error("корзина на финальном шаге", zap.Uint("user_id", user.ID), zap.Error(err))
		b.gw.SendMessage(chatID, "❌ خطایی رخ داد. لطفاً دوباره تلاش کنید.", b.mainKeyboard())
		return
	}

	in := service.CheckoutInput{
		FullName:   draft.FullName,
		Phone:      draft.Phone,
		Address:    draft.Address,
		PostalCode: draft.PostalCode,
		Discount:   draft.Discount,
	}
	order, err := b.orders.CreateOrder(ctx, user.ID, in, items.Items)
	switch {
	case errors.Is(err, service.ErrEmptyCart):
		b.gw.SendMessage(chatID, "🛒 سبد خرید شما خالی است!", b.mainKeyboard())
		return
	case errors.Is(err, service.ErrOutOfStock), errors.Is(err, service.ErrProductUnavailable):
		b.gw.SendMessage(chatID, "❗️ موجودی یکی از محصولات کافی نیست. سبد خرید را بررسی کنید.", b.mainKeyboard())
		return
	case err != nil:
		logger.L().Error("создание заказа", zap.Uint("user_id", user.ID), zap.Error(err))
		b.gw.SendMessage(chatID, "❌ ثبت سفارش ناموفق بود. لطفاً دوباره تلاش کنید.", b.mainKeyboard())
		return
	}

	if draft.Discount != nil {
		oid := order.ID
		if err := b.repo.Discounts.RecordUsage(ctx, draft.Discount.CodeID, user.ID, &oid); err != nil {
			// заказ уже есть; повторное применение всё равно отрежет индекс
			logger.L().Warn("запись использования скидки",
				zap.Uint("order_id", order.ID), zap.Error(err))
		}
	}
	if err := b.repo.Cart.Clear(ctx, user.ID); err != nil {
		logger.L().Warn("очистка корзины", zap.Uint("user_id", user.ID), zap.Error(err))
	}
	// телефон из оформления переезжает в профиль, чтобы не спрашивать заново
	if err := b.repo.Users.UpdateFields(ctx, user.ID, map[string]any{"phone": draft.Phone}); err != nil {
		logger.L().Warn("обновление профиля", zap.Uint("user_id", user.ID), zap.Error(err))
	}
	// платёж заводится сразу: чек потом просто привяжется к нему
	if err := b.repo.Payments.Create(ctx, &models.Payment{
		OrderID: order.ID,
		UserID:  user.ID,
		Amount:  order.FinalPrice,
		Status:  models.ReceiptPending,
		Method:  "manual",
	}); err != nil {
		logger.L().Warn("создание платежа", zap.Uint("order_id", order.ID), zap.Error(err))
	}

	msg := fmt.Sprintf("✅ سفارش شما با موفقیت ثبت شد!\n\n🔖 کد پیگیری: %s\n💰 مبلغ نهایی: %s %s\n\nپس از پرداخت، فیش را از طریق «سفارش‌های من» ارسال کنید.",
		order.TrackingCode, formatPrice(order.FinalPrice), b.cfg.Shop.Currency)
	b.gw.SendMessage(chatID, msg, b.mainKeyboard())

	b.spawn(func() { b.notifyAdminNewOrder(order, user) })
	b.spawn(func() { b.checkLowStock(context.Background(), order) })
}

// stepDiscount — одношаговый ввод кода из корзины.
func (b *Bot) stepDiscount(ctx context.Context, user *models.User, st *State, text string) {
	chatID := user.ChatID
	code, ok := validate.DiscountCodeFormat(text)
	if !ok {
		b.gw.SendMessage(chatID, "❗️ فرمت کد تخفیف معتبر نیست. دوباره وارد کنید:", nil)
		return
	}

	summary, err := b.repo.Cart.Summary(ctx, user.ID)
	if err != nil {
		logger.L().Error("корзина при применении скидки", zap.Uint("user_id", user.ID), zap.Error(err))
		// сбой хранилища не должен оставлять чат застрявшим на шаге ввода
		b.states.Clear(chatID)
		b.gw.SendMessage(chatID, "❌ خطایی رخ داد.", b.mainKeyboard())
		return
	}

	applied, err := b.disc.Validate(ctx, code, user.ID, summary.Subtotal)
	var minErr *service.MinPurchaseError
	switch {
	case errors.Is(err, service.ErrDiscountInvalid):
		b.gw.SendMessage(chatID, "❌ کد تخفیف نامعتبر یا منقضی شده است.", nil)
		return
	case errors.Is(err, service.ErrDiscountExhausted):
		b.gw.SendMessage(chatID, "❌ ظرفیت استفاده از این کد تمام شده است.", nil)
		return
	case errors.As(err, &minErr):
		b.gw.SendMessage(chatID, fmt.Sprintf("❌ حداقل خرید برای این کد %s %s است.",
			formatPrice(minErr.Min), b.cfg.Shop.Currency), nil)
		return
	case errors.Is(err, service.ErrDiscountUsed):
		b.gw.SendMessage(chatID, "❌ شما قبلاً از این کد استفاده کرده‌اید.", nil)
		return
	case err != nil:
		logger.L().Error("проверка кода скидки", zap.String("code", code), zap.Error(err))
		b.states.Clear(chatID)
		b.gw.SendMessage(chatID, "❌ خطایی رخ داد.", b.mainKeyboard())
		return
	}

	b.states.Set(chatID, func(st *State) {
		st.Step = StepNone
		st.Checkout.Discount = applied
	})
	b.gw.SendMessage(chatID, fmt.Sprintf("✅ کد تخفیف اعمال شد: %s %s-",
		formatPrice(applied.Amount), b.cfg.Shop.Currency), nil)
	b.showCart(ctx, user)
}

func (b *Bot) removeDiscount(ctx context.Context, user *models.User) {
	b.states.Set(user.ChatID, func(st *State) { st.Checkout.Discount = nil })
	b.showCart(ctx, user)
}

func (b *Bot) stepTrack(ctx context.Context, user *models.User, text string) {
	b.states.Clear(user.ChatID)
	o, err := b.orders.Track(ctx, text)
	if err != nil {
		logger.L().Error("поиск заказа", zap.Error(err))
		b.gw.SendMessage(user.ChatID, "❌ خطایی رخ داد.", b.mainKeyboard())
		return
	}
	if o == nil || o.UserID != user.ID {
		b.gw.SendMessage(user.ChatID, "🔍 سفارشی با این مشخصات یافت نشد.", b.mainKeyboard())
		return
	}
	b.gw.SendMessage(user.ChatID, b.renderOrder(o), nil)
}

// handlePhoto — приём фото чека во время awaiting_receipt.
func (b *Bot) handlePhoto(ctx context.Context, user *models.User, fileID string) {
	st := b.states.Get(user.ChatID)
	if st.Step != StepAwaitingReceipt || st.OrderID == 0 {
		b.gw.SendMessage(user.ChatID, "از دکمه‌های منو استفاده کنید. 👇", b.mainKeyboard())
		return
	}
	orderID := st.OrderID
	b.states.Clear(user.ChatID)

	o, err := b.repo.Orders.GetByID(ctx, orderID)
	if err != nil || o == nil || o.UserID != user.ID {
		b.gw.SendMessage(user.ChatID, "سفارش یافت نشد.", b.mainKeyboard())
		return
	}
	p, err := b.repo.Payments.SaveReceipt(ctx, o.ID, user.ID, o.FinalPrice, fileID, b.nowUTC())
	if err != nil {
		logger.L().Error("сохранение чека", zap.Uint("order_id", o.ID), zap.Error(err))
		b.gw.SendMessage(user.ChatID, "❌ ذخیره فیش ناموفق بود. دوباره تلاش کنید.", b.mainKeyboard())
		return
	}
	b.gw.SendMessage(user.ChatID, "✅ فیش پرداخت دریافت شد و در انتظار بررسی است.", b.mainKeyboard())
	b.spawn(func() { b.notifyAdminReceipt(o, user, p.ID, fileID) })
}

func (b *Bot) startReceiptUpload(ctx context.Context, user *models.User, orderID uint) {
	o, err := b.repo.Orders.GetByID(ctx, orderID)
	if err != nil || o == nil || o.UserID != user.ID {
		b.gw.SendMessage(user.ChatID, "سفارش یافت نشد.", nil)
		return
	}
	if o.PaymentStatus != models.PaymentUnpaid {
		b.gw.SendMessage(user.ChatID, "این سفارش قبلاً پرداخت شده است.", nil)
		return
	}
	b.states.Set(user.ChatID, func(st *State) {
		*st = State{Step: StepAwaitingReceipt, OrderID: orderID}
	})
	b.gw.SendMessage(user.ChatID,
		fmt.Sprintf("💳 مبلغ %s %s را واریز کرده و عکس فیش را همینجا ارسال کنید.",
			formatPrice(o.FinalPrice), b.cfg.Shop.Currency), nil)
}
