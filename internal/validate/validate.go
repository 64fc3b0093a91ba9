// Package validate — чистые проверки пользовательского ввода для пошаговых
// диалогов. Все функции без состояния и без побочных эффектов.
package validate

import (
	"regexp"
	"strconv"
	"strings"
)

// Skip — значение-пропуск для необязательных полей во всех диалогах.
const Skip = "0"

// IsSkip — ввод совпадает со значением-пропуском.
func IsSkip(s string) bool { return strings.TrimSpace(s) == Skip }

// Optional возвращает nil при пропуске, иначе указатель на обрезанную строку.
func Optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == Skip || s == "" {
		return nil
	}
	return &s
}

var (
	nameRe   = regexp.MustCompile(`^[A-Za-z\x{0600}-\x{06FF}\x{200C}\s]+$`)
	phoneRe  = regexp.MustCompile(`^0?9\d{9}$`)
	postalRe = regexp.MustCompile(`^\d{10}$`)
	codeRe   = regexp.MustCompile(`^[A-Za-z0-9_-]{3,20}$`)
)

// Name: длина ≥2 после обрезки, только буквы (латиница или персидский) и пробелы.
func Name(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if len([]rune(s)) < 2 || !nameRe.MatchString(s) {
		return "", false
	}
	return s, true
}

// Phone нормализует +98/98 к местному виду с ведущим 0 и проверяет
// иранский мобильный формат.
func Phone(s string) (string, bool) {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, " ", "")
	s = strings.TrimPrefix(s, "+98")
	if strings.HasPrefix(s, "98") && len(s) == 12 {
		s = s[2:]
	}
	if !phoneRe.MatchString(s) {
		return "", false
	}
	if !strings.HasPrefix(s, "0") {
		s = "0" + s
	}
	return s, true
}

// Address: после обрезки не короче 10 символов.
func Address(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if len([]rune(s)) < 10 {
		return "", false
	}
	return s, true
}

// PostalCode: ровно 10 цифр либо значение-пропуск (тогда nil).
func PostalCode(s string) (*string, bool) {
	s = strings.TrimSpace(s)
	if s == Skip {
		return nil, true
	}
	if !postalRe.MatchString(s) {
		return nil, false
	}
	return &s, true
}

// Price: целое положительное число (туманы).
func Price(s string) (int64, bool) {
	s = strings.TrimSpace(s)
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil || v <= 0 {
		return 0, false
	}
	return v, true
}

// Quantity: целое в разумных пределах склада.
func Quantity(s string) (int, bool) {
	s = strings.TrimSpace(s)
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 || v > 1_000_000 {
		return 0, false
	}
	return v, true
}

// DiscountCodeFormat: 3–20 символов латиницы/цифр/дефисов, хранится в верхнем
// регистре.
func DiscountCodeFormat(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if !codeRe.MatchString(s) {
		return "", false
	}
	return strings.ToUpper(s), true
}

// SanitizeText убирает угловые скобки и ограничивает длину свободного текста.
func SanitizeText(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, "<", "")
	s = strings.ReplaceAll(s, ">", "")
	if r := []rune(s); len(r) > 1000 {
		s = string(r[:1000])
	}
	return s
}

// Percent: 1..100 для процентных скидок.
func Percent(s string) (int64, bool) {
	v, ok := Price(s)
	if !ok || v > 100 {
		return 0, false
	}
	return v, true
}
