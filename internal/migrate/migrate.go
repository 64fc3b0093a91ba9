package migrate

import (
	"context"

	"github.com/sumohast/bale-shop-bot/internal/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Options struct {
	CreateChecks           bool // CHECK-constraint для целостности
	CreateUpdatedAtTrigger bool // триггер обновления updated_at
}

func DefaultOptions() Options {
	return Options{
		CreateChecks:           true,
		CreateUpdatedAtTrigger: true,
	}
}

// AutoMigrate создаёт таблицы и индексы из тегов моделей. Диалект-нейтрально,
// используется и в тестах на sqlite.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Category{},
		&models.Product{},
		&models.CartItem{},
		&models.Order{},
		&models.OrderItem{},
		&models.DiscountCode{},
		&models.DiscountUsage{},
		&models.Payment{},
	)
}

// Run — полная миграция для Postgres: таблицы, CHECK-ограничения, триггеры.
func Run(ctx context.Context, db *gorm.DB, log *zap.Logger, opt Options) error {
	log.Info("Начало миграции базы данных магазина")

	if err := AutoMigrate(db.WithContext(ctx)); err != nil {
		log.Error("Не удалось создать таблицы", zap.Error(err))
		return err
	}
	log.Info("Таблицы успешно созданы")

	if opt.CreateChecks {
		log.Info("Создание CHECK-ограничений")
		checks := []string{
			`ALTER TABLE products DROP CONSTRAINT IF EXISTS chk_products_stock;
			 ALTER TABLE products ADD CONSTRAINT chk_products_stock CHECK (stock >= 0)`,
			`ALTER TABLE products DROP CONSTRAINT IF EXISTS chk_products_price;
			 ALTER TABLE products ADD CONSTRAINT chk_products_price CHECK (price >= 0)`,
			`ALTER TABLE cart_items DROP CONSTRAINT IF EXISTS chk_cart_items_quantity;
			 ALTER TABLE cart_items ADD CONSTRAINT chk_cart_items_quantity CHECK (quantity >= 1)`,
			`ALTER TABLE order_items DROP CONSTRAINT IF EXISTS chk_order_items_quantity;
			 ALTER TABLE order_items ADD CONSTRAINT chk_order_items_quantity CHECK (quantity >= 1)`,
			`ALTER TABLE orders DROP CONSTRAINT IF EXISTS chk_orders_status;
			 ALTER TABLE orders ADD CONSTRAINT chk_orders_status CHECK (status IN
			 ('pending','confirmed','preparing','shipped','delivered','cancelled'))`,
			`ALTER TABLE orders DROP CONSTRAINT IF EXISTS chk_orders_payment_status;
			 ALTER TABLE orders ADD CONSTRAINT chk_orders_payment_status CHECK (payment_status IN
			 ('unpaid','paid','refunded'))`,
			`ALTER TABLE discount_codes DROP CONSTRAINT IF EXISTS chk_discount_codes_type;
			 ALTER TABLE discount_codes ADD CONSTRAINT chk_discount_codes_type CHECK (type IN
			 ('percentage','fixed'))`,
			`ALTER TABLE payments DROP CONSTRAINT IF EXISTS chk_payments_status;
			 ALTER TABLE payments ADD CONSTRAINT chk_payments_status CHECK (status IN
			 ('pending','pending_verification','verified','rejected'))`,
		}
		for _, stmt := range checks {
			if err := db.WithContext(ctx).Exec(stmt).Error; err != nil {
				log.Error("Не удалось создать CHECK-ограничение", zap.Error(err))
				return err
			}
		}
		log.Info("CHECK-ограничения успешно созданы")
	}

	if opt.CreateUpdatedAtTrigger {
		log.Info("Создание триггера updated_at")
		if err := db.WithContext(ctx).Exec(`
CREATE OR REPLACE FUNCTION set_updated_at() RETURNS trigger AS $$
BEGIN NEW.updated_at = now(); RETURN NEW; END; $$ LANGUAGE plpgsql;

DROP TRIGGER IF EXISTS trg_orders_updated ON orders;
CREATE TRIGGER trg_orders_updated
BEFORE UPDATE ON orders
FOR EACH ROW EXECUTE FUNCTION set_updated_at();

DROP TRIGGER IF EXISTS trg_products_updated ON products;
CREATE TRIGGER trg_products_updated
BEFORE UPDATE ON products
FOR EACH ROW EXECUTE FUNCTION set_updated_at();
`).Error; err != nil {
			log.Error("Не удалось создать триггер updated_at", zap.Error(err))
			return err
		}
		log.Info("Триггеры успешно созданы")
	}

	log.Info("Миграция успешно завершена")
	return nil
}
