package models

import (
	"time"
)

// Статус заказа — строковый тип, как в остальных перечислениях.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusPreparing OrderStatus = "preparing"
	OrderStatusShipped   OrderStatus = "shipped"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// Terminal — из этого статуса дальнейшие переходы запрещены.
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

type PaymentState string

const (
	PaymentUnpaid   PaymentState = "unpaid"
	PaymentPaid     PaymentState = "paid"
	PaymentRefunded PaymentState = "refunded"
)

type ReceiptStatus string

const (
	ReceiptPending             ReceiptStatus = "pending"
	ReceiptPendingVerification ReceiptStatus = "pending_verification"
	ReceiptVerified            ReceiptStatus = "verified"
	ReceiptRejected            ReceiptStatus = "rejected"
)

type DiscountType string

const (
	DiscountPercentage DiscountType = "percentage"
	DiscountFixed      DiscountType = "fixed"
)

type User struct {
	ID        uint    `gorm:"primaryKey"`
	ChatID    int64   `gorm:"uniqueIndex;not null"`
	Username  *string `gorm:"type:varchar(255)"`
	FirstName *string `gorm:"type:varchar(255)"`
	LastName  *string `gorm:"type:varchar(255)"`
	Phone     *string `gorm:"type:varchar(20)"`
	IsAdmin   bool    `gorm:"not null;default:false"`
	IsBlocked bool    `gorm:"not null;default:false;index"`

	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (User) TableName() string { return "users" }

func (u *User) DisplayName() string {
	if u.FirstName != nil && *u.FirstName != "" {
		return *u.FirstName
	}
	if u.Username != nil && *u.Username != "" {
		return *u.Username
	}
	return "کاربر"
}

type Category struct {
	ID          uint    `gorm:"primaryKey"`
	Title       string  `gorm:"type:varchar(255);not null"`
	Description *string `gorm:"type:text"`
	Icon        *string `gorm:"type:varchar(50)"`
	// без default-тега: GORM выкидывает false из INSERT при наличии default,
	// и сущность, созданная выключенной, молча становилась бы активной
	IsActive  bool `gorm:"not null;index"`
	SortOrder int  `gorm:"not null;default:0;index"`

	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (Category) TableName() string { return "categories" }

type Product struct {
	ID            uint    `gorm:"primaryKey"`
	CategoryID    uint    `gorm:"not null;index"`
	Name          string  `gorm:"type:varchar(255);not null"`
	Description   *string `gorm:"type:text"`
	Price         int64   `gorm:"not null"`
	DiscountPrice *int64
	Stock         int     `gorm:"not null;default:0"`
	ImageURL      *string `gorm:"type:text"`
	IsActive      bool    `gorm:"not null;index"`
	IsFeatured    bool    `gorm:"not null;default:false;index"`
	SoldCount     int     `gorm:"not null;default:0"`
	ViewCount     int     `gorm:"not null;default:0"`

	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (Product) TableName() string { return "products" }

// HasDiscount: скидочная цена учитывается только если она строго меньше обычной.
func (p *Product) HasDiscount() bool {
	return p.DiscountPrice != nil && *p.DiscountPrice > 0 && *p.DiscountPrice < p.Price
}

func (p *Product) EffectivePrice() int64 {
	if p.HasDiscount() {
		return *p.DiscountPrice
	}
	return p.Price
}

type CartItem struct {
	ID        uint `gorm:"primaryKey"`
	UserID    uint `gorm:"not null;index;uniqueIndex:ux_cart_user_product"`
	ProductID uint `gorm:"not null;uniqueIndex:ux_cart_user_product"`
	Quantity  int  `gorm:"not null;default:1"`

	Product Product `gorm:"foreignKey:ProductID"`

	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (CartItem) TableName() string { return "cart_items" }

type Order struct {
	ID     uint `gorm:"primaryKey"`
	UserID uint `gorm:"not null;index"`

	// снимок данных покупателя на момент оформления
	FullName   string  `gorm:"type:varchar(255);not null"`
	Phone      string  `gorm:"type:varchar(20);not null"`
	Address    string  `gorm:"type:text;not null"`
	PostalCode *string `gorm:"type:varchar(20)"`

	TotalPrice     int64 `gorm:"not null"`
	DiscountCodeID *uint `gorm:"index"`
	DiscountAmount int64 `gorm:"not null;default:0"`
	TaxAmount      int64 `gorm:"not null;default:0"`
	FinalPrice     int64 `gorm:"not null"`

	Status        OrderStatus  `gorm:"type:varchar(20);not null;default:'pending';index"`
	PaymentStatus PaymentState `gorm:"type:varchar(20);not null;default:'unpaid';index"`
	TrackingCode  string       `gorm:"type:varchar(100);uniqueIndex;not null"`
	CustomerNotes *string      `gorm:"type:text"`
	AdminNotes    *string      `gorm:"type:text"`

	Items []OrderItem `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`

	CreatedAt time.Time `gorm:"not null;index"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (Order) TableName() string { return "orders" }

// OrderItem — неизменяемый снимок товара на момент заказа.
type OrderItem struct {
	ID            uint   `gorm:"primaryKey"`
	OrderID       uint   `gorm:"not null;index"`
	ProductID     uint   `gorm:"not null"`
	ProductName   string `gorm:"type:varchar(255);not null"`
	Quantity      int    `gorm:"not null"`
	Price         int64  `gorm:"not null"`
	DiscountPrice *int64

	CreatedAt time.Time `gorm:"not null"`
}

func (OrderItem) TableName() string { return "order_items" }

func (it *OrderItem) EffectivePrice() int64 {
	if it.DiscountPrice != nil && *it.DiscountPrice > 0 && *it.DiscountPrice < it.Price {
		return *it.DiscountPrice
	}
	return it.Price
}

type DiscountCode struct {
	ID          uint         `gorm:"primaryKey"`
	Code        string       `gorm:"type:varchar(20);uniqueIndex;not null"`
	Description *string      `gorm:"type:text"`
	Type        DiscountType `gorm:"type:varchar(20);not null;default:'percentage'"`
	Value       int64        `gorm:"not null"`
	MinPurchase int64        `gorm:"not null;default:0"`
	MaxDiscount *int64
	UsageLimit  *int
	UsedCount   int       `gorm:"not null;default:0"`
	IsActive    bool      `gorm:"not null;index"`
	StartDate   time.Time `gorm:"not null"`
	EndDate     *time.Time

	CreatedAt time.Time `gorm:"not null"`
}

func (DiscountCode) TableName() string { return "discount_codes" }

// DiscountUsage — append-only; уникальный индекс (code, user) и есть настоящая
// гарантия «один раз на пользователя», проверка в сервисе — только быстрый путь.
type DiscountUsage struct {
	ID             uint  `gorm:"primaryKey"`
	DiscountCodeID uint  `gorm:"not null;uniqueIndex:ux_discount_usage_code_user"`
	UserID         uint  `gorm:"not null;uniqueIndex:ux_discount_usage_code_user"`
	OrderID        *uint `gorm:"index"`

	CreatedAt time.Time `gorm:"not null"`
}

func (DiscountUsage) TableName() string { return "discount_usage" }

type Payment struct {
	ID            uint          `gorm:"primaryKey"`
	OrderID       uint          `gorm:"not null;index"`
	UserID        uint          `gorm:"not null;index"`
	Amount        int64         `gorm:"not null"`
	Status        ReceiptStatus `gorm:"type:varchar(30);not null;default:'pending';index"`
	Method        string        `gorm:"type:varchar(50);not null;default:'manual'"`
	ReceiptFileID *string       `gorm:"type:text"`
	SubmittedAt   *time.Time
	VerifiedBy    *int64
	VerifiedAt    *time.Time
	AdminNotes    *string `gorm:"type:text"`
	PaidAt        *time.Time

	Order Order `gorm:"foreignKey:OrderID"`
	User  User  `gorm:"foreignKey:UserID"`

	CreatedAt time.Time `gorm:"not null"`
}

func (Payment) TableName() string { return "payments" }
