package bot

import (
	"sync"
	"time"

	"github.com/sumohast/bale-shop-bot/internal/service"
)

// Step — этап многоходового диалога. Переходы только вперёд, откат — это
// явная отмена со сбросом состояния.
type Step string

const (
	StepNone Step = ""

	StepCheckoutName    Step = "checkout_name"
	StepCheckoutPhone   Step = "checkout_phone"
	StepCheckoutAddress Step = "checkout_address"
	StepCheckoutPostal  Step = "checkout_postal"

	StepEnterDiscount   Step = "enter_discount"
	StepTrackOrder      Step = "track_order"
	StepSearchQuery     Step = "search_query"
	StepAwaitingReceipt Step = "awaiting_receipt"

	StepProductCategory    Step = "product_category"
	StepProductName        Step = "product_name"
	StepProductPrice       Step = "product_price"
	StepProductStock       Step = "product_stock"
	StepProductDescription Step = "product_description"
	StepProductImage       Step = "product_image"

	StepProductEditField Step = "product_edit_field"
	StepProductEditValue Step = "product_edit_value"

	StepCategoryTitle       Step = "category_title"
	StepCategoryIcon        Step = "category_icon"
	StepCategoryDescription Step = "category_description"

	StepDiscountCode        Step = "discount_code"
	StepDiscountType        Step = "discount_type"
	StepDiscountValue       Step = "discount_value"
	StepDiscountMinPurchase Step = "discount_min_purchase"
	StepDiscountMaxAmount   Step = "discount_max_amount"
	StepDiscountUsageLimit  Step = "discount_usage_limit"
	StepDiscountEndDate     Step = "discount_end_date"

	StepBroadcastText Step = "broadcast_text"

	StepCancelReason Step = "cancel_reason"
)

// CheckoutDraft накапливает данные покупателя по шагам; скидка лежит здесь же
// до коммита заказа.
type CheckoutDraft struct {
	FullName   string
	Phone      string
	Address    string
	PostalCode *string
	Discount   *service.AppliedDiscount
}

type ProductDraft struct {
	ID          uint // 0 — создание, иначе редактирование
	CategoryID  uint
	Name        string
	Price       int64
	Stock       int
	Description *string
	ImageURL    *string
	EditField   string
}

type CategoryDraft struct {
	Title       string
	Icon        *string
	Description *string
}

type DiscountDraft struct {
	Code        string
	Type        string
	Value       int64
	MinPurchase int64
	MaxDiscount *int64
	UsageLimit  *int
	EndDate     *time.Time
}

// State — разговорное состояние одного чата. Черновики типизированы по
// диалогам, свободного мешка полей нет.
type State struct {
	Step Step

	Checkout CheckoutDraft
	Product  ProductDraft
	Category CategoryDraft
	Discount DiscountDraft

	// контекст текущего действия вне черновиков
	OrderID uint
	Page    int

	UpdatedAt time.Time
}

// StateStore — потокобезопасная карта chat id → состояние. Мьютекс нужен на
// случай параллельной обработки обновлений разных чатов.
type StateStore struct {
	mu     sync.Mutex
	states map[int64]*State
	now    func() time.Time
}

func NewStateStore() *StateStore {
	return &StateStore{states: make(map[int64]*State), now: time.Now}
}

// Get возвращает состояние чата, создавая пустое при первом обращении.
func (s *StateStore) Get(chatID int64) *State {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.states[chatID]
	if !ok {
		st = &State{Step: StepNone, UpdatedAt: s.now()}
		s.states[chatID] = st
	}
	return st
}

// Set переводит чат на шаг, изменяя состояние под замком.
func (s *StateStore) Set(chatID int64, fn func(st *State)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.states[chatID]
	if !ok {
		st = &State{}
		s.states[chatID] = st
	}
	fn(st)
	st.UpdatedAt = s.now()
}

func (s *StateStore) Clear(chatID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.states, chatID)
}

// Expire удаляет диалоги, брошенные дольше ttl назад.
func (s *StateStore) Expire(ttl time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := s.now().Add(-ttl)
	n := 0
	for chatID, st := range s.states {
		if st.UpdatedAt.Before(cutoff) {
			delete(s.states, chatID)
			n++
		}
	}
	return n
}
