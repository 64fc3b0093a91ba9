package migrate

import (
	"context"
	"time"

	"github.com/sumohast/bale-shop-bot/internal/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

func strPtr(s string) *string { return &s }
func i64Ptr(n int64) *int64   { return &n }
func intPtr(n int) *int       { return &n }

// Seed наполняет пустую базу демо-каталогом и кодами скидок.
func Seed(ctx context.Context, db *gorm.DB, log *zap.Logger) error {
	var count int64
	if err := db.WithContext(ctx).Model(&models.Category{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		log.Info("База уже содержит данные, сидирование пропущено")
		return nil
	}

	cats := []models.Category{
		{Title: "لوازم الکترونیکی", Description: strPtr("موبایل، لپتاپ، تبلت و ..."), Icon: strPtr("📱"), SortOrder: 1},
		{Title: "پوشاک", Description: strPtr("لباس، کفش، اکسسوری"), Icon: strPtr("👕"), SortOrder: 2},
		{Title: "کتاب و لوازم‌التحریر", Description: strPtr("کتاب، دفتر، خودکار"), Icon: strPtr("📚"), SortOrder: 3},
		{Title: "خانه و آشپزخانه", Description: strPtr("لوازم خانگی و آشپزخانه"), Icon: strPtr("🏠"), SortOrder: 4},
		{Title: "ورزش و سرگرمی", Description: strPtr("لوازم ورزشی و تفریحی"), Icon: strPtr("⚽"), SortOrder: 5},
	}
	for i := range cats {
		cats[i].IsActive = true
	}
	if err := db.WithContext(ctx).Create(&cats).Error; err != nil {
		return err
	}

	products := []models.Product{
		{CategoryID: cats[0].ID, Name: "گوشی سامسونگ A54", Description: strPtr("گوشی هوشمند سامسونگ با صفحه نمایش 6.4 اینچ"), Price: 12500000, DiscountPrice: i64Ptr(11900000), Stock: 15, IsFeatured: true},
		{CategoryID: cats[0].ID, Name: "لپتاپ ایسوس VivoBook", Description: strPtr("لپتاپ 15.6 اینچ با پردازنده i5"), Price: 25000000, Stock: 8, IsFeatured: true},
		{CategoryID: cats[0].ID, Name: "تبلت سامسونگ Tab A8", Description: strPtr("تبلت 10.5 اینچی با حافظه 64 گیگ"), Price: 7500000, DiscountPrice: i64Ptr(7200000), Stock: 20},
		{CategoryID: cats[1].ID, Name: "تیشرت مردانه", Description: strPtr("تیشرت نخی با کیفیت بالا"), Price: 250000, Stock: 50},
		{CategoryID: cats[1].ID, Name: "کفش اسپرت نایک", Description: strPtr("کفش ورزشی مناسب پیاده‌روی"), Price: 1800000, DiscountPrice: i64Ptr(1650000), Stock: 25, IsFeatured: true},
		{CategoryID: cats[2].ID, Name: "کتاب آموزش برنامه‌نویسی", Description: strPtr("آموزش جامع Go"), Price: 450000, Stock: 100},
		{CategoryID: cats[2].ID, Name: "دفتر 100 برگ", Description: strPtr("دفتر تک‌خط با جلد سخت"), Price: 35000, Stock: 200},
		{CategoryID: cats[3].ID, Name: "قابلمه استیل", Description: strPtr("قابلمه 5 لیتری با درب شیشه‌ای"), Price: 890000, DiscountPrice: i64Ptr(799000), Stock: 30},
		{CategoryID: cats[3].ID, Name: "ست قاشق و چنگال", Description: strPtr("ست 24 پارچه استیل"), Price: 1250000, Stock: 15},
		{CategoryID: cats[4].ID, Name: "توپ فوتبال", Description: strPtr("توپ فوتبال حرفه‌ای سایز 5"), Price: 350000, DiscountPrice: i64Ptr(320000), Stock: 40},
	}
	for i := range products {
		products[i].IsActive = true
	}
	if err := db.WithContext(ctx).Create(&products).Error; err != nil {
		return err
	}

	now := time.Now()
	in30 := now.AddDate(0, 0, 30)
	in60 := now.AddDate(0, 0, 60)
	codes := []models.DiscountCode{
		{Code: "WELCOME10", Description: strPtr("تخفیف 10 درصدی ویژه کاربران جدید"), Type: models.DiscountPercentage, Value: 10, MinPurchase: 100000, MaxDiscount: i64Ptr(100000), UsageLimit: intPtr(100), IsActive: true, StartDate: now, EndDate: &in30},
		{Code: "SUMMER50", Description: strPtr("تخفیف 50 هزار تومانی تابستانه"), Type: models.DiscountFixed, Value: 50000, MinPurchase: 200000, UsageLimit: intPtr(50), IsActive: true, StartDate: now, EndDate: &in60},
		{Code: "VIP20", Description: strPtr("تخفیف 20 درصدی ویژه مشتریان VIP"), Type: models.DiscountPercentage, Value: 20, MinPurchase: 500000, MaxDiscount: i64Ptr(200000), IsActive: true, StartDate: now},
	}
	if err := db.WithContext(ctx).Create(&codes).Error; err != nil {
		return err
	}

	log.Info("Демо-данные успешно добавлены",
		zap.Int("categories", len(cats)),
		zap.Int("products", len(products)),
		zap.Int("discount_codes", len(codes)),
	)
	return nil
}
