package bot

import (
	"strconv"

	"github.com/sumohast/bale-shop-bot/internal/models"
)

// Надписи reply-клавиатуры; роутер сопоставляет входящий текст с ними
// точным сравнением.
const (
	btnProducts   = "🛍 محصولات"
	btnFeatured   = "⭐ پیشنهاد ویژه"
	btnSearch     = "🔍 جستجو"
	btnCart       = "🛒 سبد خرید"
	btnMyOrders   = "📦 سفارش‌های من"
	btnTrackOrder = "🔍 پیگیری سفارش"
	btnAbout      = "ℹ️ درباره ما"
	btnSupport    = "☎️ پشتیبانی"

	btnAdminStats      = "📊 آمار کلی"
	btnAdminOrders     = "📋 مدیریت سفارش‌ها"
	btnAdminUsers      = "👥 مدیریت کاربران"
	btnAdminProducts   = "📦 مدیریت محصولات"
	btnAdminStock      = "📦 مدیریت موجودی"
	btnAdminAddProduct = "➕ افزودن محصول"
	btnAdminCategories = "🗂 مدیریت دسته‌بندی‌ها"
	btnAdminDiscounts  = "🏷 مدیریت کدهای تخفیف"
	btnAdminPayments   = "💳 فیش‌های در انتظار"
	btnAdminBroadcast  = "📣 پیام همگانی"
	btnBackToUserMenu  = "🔙 بازگشت به منوی کاربر"
)

// formatPrice — разделители тысяч для сумм в туманах.
func formatPrice(v int64) string {
	s := strconv.FormatInt(v, 10)
	neg := false
	if len(s) > 0 && s[0] == '-' {
		neg = true
		s = s[1:]
	}
	n := len(s)
	if n <= 3 {
		if neg {
			return "-" + s
		}
		return s
	}
	out := make([]byte, 0, n+n/3)
	for i, c := range []byte(s) {
		if i > 0 && (n-i)%3 == 0 {
			out = append(out, ',')
		}
		out = append(out, c)
	}
	if neg {
		return "-" + string(out)
	}
	return string(out)
}

func statusFa(s models.OrderStatus) string {
	switch s {
	case models.OrderStatusPending:
		return "در انتظار تایید"
	case models.OrderStatusConfirmed:
		return "تایید شده"
	case models.OrderStatusPreparing:
		return "در حال آماده‌سازی"
	case models.OrderStatusShipped:
		return "ارسال شده"
	case models.OrderStatusDelivered:
		return "تحویل داده شده"
	case models.OrderStatusCancelled:
		return "لغو شده"
	}
	return string(s)
}

func paymentFa(s models.PaymentState) string {
	switch s {
	case models.PaymentUnpaid:
		return "پرداخت نشده"
	case models.PaymentPaid:
		return "پرداخت شده"
	case models.PaymentRefunded:
		return "بازگشت داده شده"
	}
	return string(s)
}
