package bot

import (
	"context"
	"fmt"

	"github.com/sumohast/bale-shop-bot/internal/logger"
	"github.com/sumohast/bale-shop-bot/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

func (b *Bot) handleCallback(ctx context.Context, cq *tgbotapi.CallbackQuery) {
	if cq.Message == nil {
		return
	}
	chatID := cq.Message.Chat.ID
	user, err := b.resolveUser(ctx, chatID, cq.From)
	if err != nil {
		logger.L().Error("пользователь в callback", zap.Int64("chat_id", chatID), zap.Error(err))
		return
	}
	if user.IsBlocked {
		b.gw.AnswerCallback(cq.ID, "", false)
		return
	}
	b.execCallback(ctx, user, cq.ID, cq.Data)
}

// execCallback исполняет типизированную команду кнопки. Транспорт требует
// подтвердить каждый callback, даже неизвестный.
func (b *Bot) execCallback(ctx context.Context, user *models.User, callbackID, data string) {
	cmd := parseCallback(data)
	chatID := user.ChatID
	ack := func(text string) { b.gw.AnswerCallback(callbackID, text, false) }

	if cmd.Kind.adminOnly() && !b.isAdmin(user) {
		b.gw.AnswerCallback(callbackID, "⛔️ دسترسی ندارید.", true)
		return
	}

	switch cmd.Kind {
	case cbUnknown, cbNoop:
		ack("")

	case cbCategoryView:
		ack("")
		b.showCategoryProducts(ctx, chatID, cmd.ID)

	case cbProductView:
		ack("")
		b.showProduct(ctx, chatID, cmd.ID)

	case cbAddToCart:
		p, err := b.repo.Products.GetByID(ctx, cmd.ID)
		if err != nil || p == nil || !p.IsActive || p.Stock <= 0 {
			b.gw.AnswerCallback(callbackID, "❌ محصول موجود نیست.", true)
			return
		}
		if err := b.repo.Cart.Add(ctx, user.ID, cmd.ID, 1); err != nil {
			logger.L().Error("добавление в корзину", zap.Uint("product_id", cmd.ID), zap.Error(err))
			b.gw.AnswerCallback(callbackID, "❌ خطایی رخ داد.", true)
			return
		}
		ack("✅ به سبد اضافه شد")

	case cbCartView:
		ack("")
		b.showCart(ctx, user)

	case cbCartInc:
		if err := b.repo.Cart.Add(ctx, user.ID, cmd.ID, 1); err != nil {
			logger.L().Warn("увеличение позиции", zap.Error(err))
		}
		ack("")
		b.showCart(ctx, user)

	case cbCartDec:
		if err := b.repo.Cart.Decrease(ctx, user.ID, cmd.ID); err != nil {
			logger.L().Warn("уменьшение позиции", zap.Error(err))
		}
		ack("")
		b.showCart(ctx, user)

	case cbCartDel:
		if err := b.repo.Cart.Remove(ctx, user.ID, cmd.ID); err != nil {
			logger.L().Warn("удаление позиции", zap.Error(err))
		}
		ack("🗑 حذف شد")
		b.showCart(ctx, user)

	case cbCartClear:
		if err := b.repo.Cart.Clear(ctx, user.ID); err != nil {
			logger.L().Warn("очистка корзины", zap.Error(err))
		}
		b.states.Set(chatID, func(st *State) { st.Checkout.Discount = nil })
		ack("🗑 سبد خالی شد")
		b.gw.SendMessage(chatID, "🛒 سبد خرید شما خالی شد.", b.mainKeyboard())

	case cbCheckoutStart:
		ack("")
		b.startCheckout(ctx, user)

	case cbDiscountEnter:
		ack("")
		b.states.Set(chatID, func(st *State) { st.Step = StepEnterDiscount })
		b.gw.SendMessage(chatID, "🎁 کد تخفیف را وارد کنید:", nil)

	case cbDiscountRemove:
		ack("")
		b.removeDiscount(ctx, user)

	case cbOrderView:
		ack("")
		if b.isAdmin(user) {
			b.adminOrderView(ctx, chatID, cmd.ID)
			return
		}
		b.showOrder(ctx, user, cmd.ID)

	case cbOrderReceipt:
		ack("")
		b.startReceiptUpload(ctx, user, cmd.ID)

	case cbAdminOrderStatus:
		b.adminSetOrderStatus(ctx, user, callbackID, cmd.ID, models.OrderStatus(cmd.Arg))

	case cbAdminOrderCancel:
		ack("")
		b.states.Set(chatID, func(st *State) {
			*st = State{Step: StepCancelReason, OrderID: cmd.ID}
		})
		b.gw.SendMessage(chatID, "📝 علت لغو سفارش را وارد کنید:", nil)

	case cbAdminUserBlock:
		target, err := b.repo.Users.GetByID(ctx, cmd.ID)
		if err != nil || target == nil {
			b.gw.AnswerCallback(callbackID, "کاربر یافت نشد.", true)
			return
		}
		if err := b.repo.Users.SetBlocked(ctx, target.ID, !target.IsBlocked); err != nil {
			logger.L().Error("блокировка пользователя", zap.Uint("user_id", target.ID), zap.Error(err))
			b.gw.AnswerCallback(callbackID, "❌ خطایی رخ داد.", true)
			return
		}
		if target.IsBlocked {
			ack("✅ کاربر آزاد شد")
		} else {
			ack("🚫 کاربر مسدود شد")
		}
		b.showAdminUsers(ctx, chatID, 1)

	case cbAdminUserPromote:
		target, err := b.repo.Users.GetByID(ctx, cmd.ID)
		if err != nil || target == nil {
			b.gw.AnswerCallback(callbackID, "کاربر یافت نشد.", true)
			return
		}
		if err := b.repo.Users.SetAdmin(ctx, target.ID, !target.IsAdmin); err != nil {
			logger.L().Error("смена прав администратора", zap.Uint("user_id", target.ID), zap.Error(err))
			b.gw.AnswerCallback(callbackID, "❌ خطایی رخ داد.", true)
			return
		}
		if target.IsAdmin {
			ack("👤 دسترسی مدیر گرفته شد")
		} else {
			ack("👑 کاربر مدیر شد")
		}
		b.showAdminUsers(ctx, chatID, 1)

	case cbAdminUserDelete:
		if err := b.repo.Users.HardDelete(ctx, cmd.ID); err != nil {
			logger.L().Error("удаление пользователя", zap.Uint("user_id", cmd.ID), zap.Error(err))
			b.gw.AnswerCallback(callbackID, "❌ خطایی رخ داد.", true)
			return
		}
		ack("🗑 کاربر حذف شد")
		b.showAdminUsers(ctx, chatID, 1)

	case cbAdminProductEdit:
		ack("")
		b.startProductEdit(ctx, user, cmd.ID)

	case cbAdminProductToggle:
		p, err := b.repo.Products.GetByID(ctx, cmd.ID)
		if err != nil || p == nil {
			b.gw.AnswerCallback(callbackID, "محصول یافت نشد.", true)
			return
		}
		if err := b.repo.Products.SetActive(ctx, p.ID, !p.IsActive); err != nil {
			logger.L().Error("переключение товара", zap.Uint("product_id", p.ID), zap.Error(err))
			b.gw.AnswerCallback(callbackID, "❌ خطایی رخ داد.", true)
			return
		}
		ack("🔁 وضعیت محصول تغییر کرد")
		b.showAdminProducts(ctx, chatID, 1)

	case cbAdminProductDelete:
		if err := b.repo.Products.HardDelete(ctx, cmd.ID); err != nil {
			logger.L().Error("удаление товара", zap.Uint("product_id", cmd.ID), zap.Error(err))
			b.gw.AnswerCallback(callbackID, "❌ خطایی رخ داد.", true)
			return
		}
		ack("🗑 محصول حذف شد")
		b.showAdminProducts(ctx, chatID, 1)

	case cbAdminCategoryToggle:
		c, err := b.repo.Categories.GetByID(ctx, cmd.ID)
		if err != nil || c == nil {
			b.gw.AnswerCallback(callbackID, "دسته یافت نشد.", true)
			return
		}
		if err := b.repo.Categories.SetActive(ctx, c.ID, !c.IsActive); err != nil {
			logger.L().Error("переключение категории", zap.Uint("category_id", c.ID), zap.Error(err))
			b.gw.AnswerCallback(callbackID, "❌ خطایی رخ داد.", true)
			return
		}
		ack("🔁 وضعیت دسته تغییر کرد")
		b.showAdminCategories(ctx, chatID)

	case cbAdminDiscountToggle:
		dc, err := b.repo.Discounts.GetByID(ctx, cmd.ID)
		if err != nil || dc == nil {
			b.gw.AnswerCallback(callbackID, "کد یافت نشد.", true)
			return
		}
		if err := b.repo.Discounts.SetActive(ctx, dc.ID, !dc.IsActive); err != nil {
			logger.L().Error("переключение кода", zap.Uint("discount_id", dc.ID), zap.Error(err))
			b.gw.AnswerCallback(callbackID, "❌ خطایی رخ داد.", true)
			return
		}
		ack("🔁 وضعیت کد تغییر کرد")
		b.showAdminDiscounts(ctx, chatID)

	case cbPaymentVerify:
		b.verifyPayment(ctx, user, callbackID, cmd.ID, true)

	case cbPaymentReject:
		b.verifyPayment(ctx, user, callbackID, cmd.ID, false)

	case cbPage:
		ack("")
		switch cmd.Arg {
		case "users":
			b.showAdminUsers(ctx, chatID, cmd.Page)
		case "products":
			b.showAdminProducts(ctx, chatID, cmd.Page)
		case "orders":
			b.showAdminOrders(ctx, chatID, cmd.Page)
		}

	case cbBackMain:
		ack("")
		b.showCategories(ctx, chatID)

	default:
		ack("")
	}
}

func (k cbKind) adminOnly() bool {
	switch k {
	case cbAdminOrderStatus, cbAdminOrderCancel, cbAdminUserBlock, cbAdminUserPromote, cbAdminUserDelete,
		cbAdminProductToggle, cbAdminProductDelete, cbAdminProductEdit,
		cbAdminCategoryToggle, cbAdminDiscountToggle, cbPaymentVerify, cbPaymentReject,
		cbPage:
		return true
	}
	return false
}

func (b *Bot) adminSetOrderStatus(ctx context.Context, user *models.User, callbackID string, orderID uint, status models.OrderStatus) {
	switch status {
	case models.OrderStatusConfirmed, models.OrderStatusPreparing,
		models.OrderStatusShipped, models.OrderStatusDelivered:
	default:
		b.gw.AnswerCallback(callbackID, "وضعیت ناشناخته.", true)
		return
	}
	order, err := b.orders.SetStatus(ctx, orderID, status)
	if err != nil {
		logger.L().Error("смена статуса заказа", zap.Uint("order_id", orderID), zap.Error(err))
		b.gw.AnswerCallback(callbackID, "❌ تغییر وضعیت ناموفق بود.", true)
		return
	}
	b.gw.AnswerCallback(callbackID, fmt.Sprintf("✅ وضعیت به «%s» تغییر کرد", statusFa(status)), false)
	b.spawn(func() { b.notifyOrderStatus(context.Background(), order) })
	b.adminOrderView(ctx, user.ChatID, orderID)
}

func (b *Bot) verifyPayment(ctx context.Context, user *models.User, callbackID string, paymentID uint, approved bool) {
	p, err := b.repo.Payments.GetByID(ctx, paymentID)
	if err != nil || p == nil {
		b.gw.AnswerCallback(callbackID, "فیش یافت نشد.", true)
		return
	}
	if p.Status != models.ReceiptPendingVerification {
		b.gw.AnswerCallback(callbackID, "این فیش قبلاً بررسی شده است.", true)
		return
	}
	if err := b.repo.Payments.Verify(ctx, p.ID, user.ChatID, approved, nil, b.nowUTC()); err != nil {
		logger.L().Error("проверка чека", zap.Uint("payment_id", p.ID), zap.Error(err))
		b.gw.AnswerCallback(callbackID, "❌ خطایی رخ داد.", true)
		return
	}
	if approved {
		if err := b.orders.MarkPaid(ctx, p.OrderID); err != nil {
			logger.L().Error("отметка оплаты заказа", zap.Uint("order_id", p.OrderID), zap.Error(err))
		}
		b.gw.AnswerCallback(callbackID, "✅ پرداخت تایید شد", false)
	} else {
		b.gw.AnswerCallback(callbackID, "❌ فیش رد شد", false)
	}
	b.spawn(func() { b.notifyPaymentResult(context.Background(), p, approved) })
}
