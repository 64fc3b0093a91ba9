package service

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Tax — процент от суммы с округлением к ближайшему (половина вверх),
// в целых туманах.
func Tax(amount int64, percent int64) int64 {
	if amount <= 0 || percent <= 0 {
		return 0
	}
	return (amount*percent + 50) / 100
}

// FinalPrice применяет ценовой закон: скидка не больше промежуточного итога,
// налог считается от уже уценённой суммы, итог не бывает отрицательным.
func FinalPrice(subtotal, discount, taxPercent int64) (clampedDiscount, tax, final int64) {
	if discount < 0 {
		discount = 0
	}
	if discount > subtotal {
		discount = subtotal
	}
	taxable := subtotal - discount
	tax = Tax(taxable, taxPercent)
	return discount, tax, taxable + tax
}

// DiscountPercent — процент уценки карточки товара для витрины.
func DiscountPercent(price, discountPrice int64) int {
	if price <= 0 || discountPrice <= 0 || discountPrice >= price {
		return 0
	}
	return int(((price - discountPrice) * 100) / price)
}

// NewTrackingCode выдаёт код вида TR-<мс в base36>-<кусок uuid>. Уникальность
// гарантирует индекс в базе, движок заказа повторяет попытку при коллизии.
func NewTrackingCode(now time.Time) string {
	ts := strconv.FormatInt(now.UnixMilli(), 36)
	frag := strings.ReplaceAll(uuid.NewString(), "-", "")[:6]
	return strings.ToUpper(fmt.Sprintf("TR-%s-%s", ts, frag))
}
