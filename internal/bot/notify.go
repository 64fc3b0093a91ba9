package bot

import (
	"context"
	"fmt"

	"github.com/sumohast/bale-shop-bot/internal/logger"
	"github.com/sumohast/bale-shop-bot/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// Уведомления best-effort: любая ошибка только логируется и никогда не
// откатывает вызвавшую операцию.

func (b *Bot) notifyOrderStatus(ctx context.Context, order *models.Order) {
	user, err := b.repo.Users.GetByID(ctx, order.UserID)
	if err != nil || user == nil {
		logger.L().Warn("получатель уведомления не найден", zap.Uint("order_id", order.ID))
		return
	}
	var text string
	switch order.Status {
	case models.OrderStatusConfirmed:
		text = fmt.Sprintf("✅ سفارش %s شما تایید شد.", order.TrackingCode)
	case models.OrderStatusPreparing:
		text = fmt.Sprintf("📦 سفارش %s شما در حال آماده‌سازی است.", order.TrackingCode)
	case models.OrderStatusShipped:
		text = fmt.Sprintf("🚚 سفارش %s شما ارسال شد.", order.TrackingCode)
	case models.OrderStatusDelivered:
		text = fmt.Sprintf("🏁 سفارش %s شما تحویل داده شد. از خرید شما متشکریم! 🙏", order.TrackingCode)
	case models.OrderStatusCancelled:
		reason := ""
		if order.AdminNotes != nil {
			reason = "\nعلت: " + *order.AdminNotes
		}
		text = fmt.Sprintf("❌ سفارش %s شما لغو شد.%s", order.TrackingCode, reason)
	default:
		return
	}
	if _, err := b.gw.SendMessage(user.ChatID, text, nil); err != nil {
		logger.L().Warn("уведомление о статусе не доставлено",
			zap.Uint("order_id", order.ID), zap.Error(err))
	}
}

func (b *Bot) notifyAdminNewOrder(order *models.Order, user *models.User) {
	text := fmt.Sprintf("🔔 سفارش جدید!\n\n📦 #%d | %s\n👤 %s (%s)\n📱 %s\n💰 %s %s",
		order.ID, order.TrackingCode, order.FullName, user.DisplayName(), order.Phone,
		formatPrice(order.FinalPrice), b.cfg.Shop.Currency)
	markup := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("مشاهده سفارش", fmt.Sprintf("order_view_%d", order.ID)),
		),
	)
	if _, err := b.gw.SendMessage(b.cfg.Bot.AdminChatID, text, markup); err != nil {
		logger.L().Warn("уведомление админа о заказе не доставлено",
			zap.Uint("order_id", order.ID), zap.Error(err))
	}
}

func (b *Bot) notifyAdminReceipt(order *models.Order, user *models.User, paymentID uint, fileID string) {
	caption := fmt.Sprintf("💳 فیش پرداخت جدید\n\n📦 سفارش #%d | %s\n👤 %s\n💰 %s %s",
		order.ID, order.TrackingCode, user.DisplayName(),
		formatPrice(order.FinalPrice), b.cfg.Shop.Currency)
	markup := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ تایید", fmt.Sprintf("payok_%d", paymentID)),
			tgbotapi.NewInlineKeyboardButtonData("❌ رد", fmt.Sprintf("payno_%d", paymentID)),
		),
	)
	if err := b.gw.SendPhoto(b.cfg.Bot.AdminChatID, fileID, caption, markup); err != nil {
		logger.L().Warn("чек не доставлен админу", zap.Uint("payment_id", paymentID), zap.Error(err))
	}
}

func (b *Bot) notifyPaymentResult(ctx context.Context, p *models.Payment, approved bool) {
	user, err := b.repo.Users.GetByID(ctx, p.UserID)
	if err != nil || user == nil {
		return
	}
	var text string
	if approved {
		text = fmt.Sprintf("✅ پرداخت سفارش #%d تایید شد. سفارش شما به زودی آماده می‌شود.", p.OrderID)
	} else {
		text = fmt.Sprintf("❌ فیش پرداخت سفارش #%d تایید نشد. لطفاً با پشتیبانی تماس بگیرید.", p.OrderID)
	}
	if _, err := b.gw.SendMessage(user.ChatID, text, nil); err != nil {
		logger.L().Warn("результат проверки чека не доставлен",
			zap.Uint("payment_id", p.ID), zap.Error(err))
	}
}

// checkLowStock шлёт админу предупреждение по товарам, упавшим ниже порога
// после только что созданного заказа.
func (b *Bot) checkLowStock(ctx context.Context, order *models.Order) {
	for _, it := range order.Items {
		p, err := b.repo.Products.GetByID(ctx, it.ProductID)
		if err != nil || p == nil {
			continue
		}
		if p.Stock > 0 && p.Stock <= b.cfg.Shop.LowStockThreshold {
			text := fmt.Sprintf("⚠️ موجودی کم!\n\n📦 %s\nموجودی فعلی: %d", p.Name, p.Stock)
			b.gw.SendMessage(b.cfg.Bot.AdminChatID, text, nil)
		} else if p.Stock == 0 {
			text := fmt.Sprintf("🚨 ناموجود شد!\n\n📦 %s", p.Name)
			b.gw.SendMessage(b.cfg.Bot.AdminChatID, text, nil)
		}
	}
}

func (b *Bot) announceDiscount(ctx context.Context, dc *models.DiscountCode) {
	var text string
	if dc.Type == models.DiscountPercentage {
		text = fmt.Sprintf("🎁 کد تخفیف جدید!\n\n🏷 %s — %d%% تخفیف\nهمین حالا استفاده کنید!", dc.Code, dc.Value)
	} else {
		text = fmt.Sprintf("🎁 کد تخفیف جدید!\n\n🏷 %s — %s %s تخفیف\nهمین حالا استفاده کنید!",
			dc.Code, formatPrice(dc.Value), b.cfg.Shop.Currency)
	}
	sent, failed := b.broadcast(ctx, text)
	logger.L().Info("анонс кода скидки разослан",
		zap.String("code", dc.Code), zap.Int("sent", sent), zap.Int("failed", failed))
}
