// Package bot — диалоговый слой магазина: поллинг обновлений, роутинг текста
// и inline-кнопок, пошаговые диалоги оформления и админки.
package bot

import (
	"context"
	"fmt"
	"time"

	"github.com/sumohast/bale-shop-bot/config"
	"github.com/sumohast/bale-shop-bot/internal/logger"
	"github.com/sumohast/bale-shop-bot/internal/models"
	"github.com/sumohast/bale-shop-bot/internal/repository"
	"github.com/sumohast/bale-shop-bot/internal/service"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

type Bot struct {
	cfg    *config.Config
	gw     Gateway
	api    *tgbotapi.BotAPI
	repo   *repository.Repository
	orders *service.OrderService
	disc   *service.DiscountService
	states *StateStore

	// точки подмены в тестах: асинхронный запуск, пауза рассылки, часы
	spawn func(fn func())
	sleep func(d time.Duration)
	now   func() time.Time
}

func (b *Bot) nowUTC() time.Time { return b.now().UTC() }

func New(cfg *config.Config, gw Gateway, api *tgbotapi.BotAPI, repo *repository.Repository) *Bot {
	return &Bot{
		cfg:    cfg,
		gw:     gw,
		api:    api,
		repo:   repo,
		orders: service.NewOrderService(repo, int64(cfg.Shop.TaxPercent)),
		disc:   service.NewDiscountService(repo),
		states: NewStateStore(),
		spawn:  func(fn func()) { go fn() },
		sleep:  time.Sleep,
		now:    time.Now,
	}
}

// Run крутит long polling до отмены контекста. Обновления обрабатываются
// строго последовательно, порядок шагов внутри одного чата гарантирован.
func (b *Bot) Run(ctx context.Context) error {
	logger.L().Info("бот запущен",
		zap.String("username", b.api.Self.UserName),
		zap.Int("poll_timeout", b.cfg.Bot.PollTimeout))

	u := tgbotapi.NewUpdate(0)
	u.Timeout = b.cfg.Bot.PollTimeout
	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			logger.L().Info("бот остановлен")
			return nil
		case upd, ok := <-updates:
			if !ok {
				return nil
			}
			b.dispatch(ctx, upd)
		}
	}
}

// dispatch — граница восстановления: паника одного обновления не валит
// процесс, пользователь получает извинение, его диалог сбрасывается.
func (b *Bot) dispatch(ctx context.Context, upd tgbotapi.Update) {
	var chatID int64
	switch {
	case upd.Message != nil:
		chatID = upd.Message.Chat.ID
	case upd.CallbackQuery != nil && upd.CallbackQuery.Message != nil:
		chatID = upd.CallbackQuery.Message.Chat.ID
	default:
		return
	}

	defer func() {
		if r := recover(); r != nil {
			logger.L().Error("паника при обработке обновления",
				zap.Int64("chat_id", chatID), zap.Any("panic", r))
			b.states.Clear(chatID)
			b.gw.SendMessage(chatID, "❌ خطایی رخ داد. لطفاً دوباره تلاش کنید.", b.mainKeyboard())
		}
	}()

	if upd.Message != nil {
		b.handleMessage(ctx, upd.Message)
		return
	}
	b.handleCallback(ctx, upd.CallbackQuery)
}

func (b *Bot) resolveUser(ctx context.Context, chatID int64, from *tgbotapi.User) (*models.User, error) {
	info := repository.UserInfo{}
	if from != nil {
		if from.UserName != "" {
			v := from.UserName
			info.Username = &v
		}
		if from.FirstName != "" {
			v := from.FirstName
			info.FirstName = &v
		}
		if from.LastName != "" {
			v := from.LastName
			info.LastName = &v
		}
	}
	return b.repo.Users.GetOrCreate(ctx, chatID, info)
}

func (b *Bot) isAdmin(u *models.User) bool {
	return u.IsAdmin || u.ChatID == b.cfg.Bot.AdminChatID
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	user, err := b.resolveUser(ctx, msg.Chat.ID, msg.From)
	if err != nil {
		logger.L().Error("не удалось получить пользователя", zap.Int64("chat_id", msg.Chat.ID), zap.Error(err))
		return
	}
	if user.IsBlocked {
		return
	}

	if len(msg.Photo) > 0 {
		// самое большое превью — последний элемент
		fileID := msg.Photo[len(msg.Photo)-1].FileID
		b.handlePhoto(ctx, user, fileID)
		return
	}
	b.handleText(ctx, user, msg.Text)
}

func (b *Bot) handleText(ctx context.Context, user *models.User, text string) {
	chatID := user.ChatID

	switch text {
	case "/start":
		b.states.Clear(chatID)
		greeting := fmt.Sprintf("سلام %s! 👋\n\nبه %s خوش آمدید.\n\n🛍 از منوی زیر برای شروع خرید استفاده کنید:",
			user.DisplayName(), b.cfg.Shop.Name)
		b.gw.SendMessage(chatID, greeting, b.mainKeyboard())
		return
	case "/admin":
		if !b.isAdmin(user) {
			b.gw.SendMessage(chatID, "⛔️ دسترسی ندارید.", nil)
			return
		}
		b.states.Clear(chatID)
		b.gw.SendMessage(chatID, "🔐 پنل مدیریت", b.adminKeyboard())
		return
	case "/newcategory":
		if b.isAdmin(user) {
			b.startCategoryCreate(user)
			return
		}
	case "/newdiscount":
		if b.isAdmin(user) {
			b.startDiscountCreate(user)
			return
		}
	}

	switch text {
	case btnProducts:
		b.states.Clear(chatID)
		b.showCategories(ctx, chatID)
		return
	case btnFeatured:
		b.states.Clear(chatID)
		b.showFeatured(ctx, chatID)
		return
	case btnSearch:
		b.states.Set(chatID, func(st *State) { *st = State{Step: StepSearchQuery} })
		b.gw.SendMessage(chatID, "🔍 نام محصول مورد نظر را وارد کنید:", nil)
		return
	case btnCart:
		b.states.Clear(chatID)
		b.showCart(ctx, user)
		return
	case btnMyOrders:
		b.states.Clear(chatID)
		b.showMyOrders(ctx, user)
		return
	case btnTrackOrder:
		b.states.Set(chatID, func(st *State) { *st = State{Step: StepTrackOrder} })
		b.gw.SendMessage(chatID, "🔍 شماره سفارش یا کد پیگیری را وارد کنید:", nil)
		return
	case btnAbout:
		b.showAbout(chatID)
		return
	case btnSupport:
		b.gw.SendMessage(chatID, "☎️ برای پشتیبانی با ادمین در تماس باشید.", nil)
		return
	}

	if b.isAdmin(user) && b.handleAdminMenu(ctx, user, text) {
		return
	}

	st := b.states.Get(chatID)
	if st.Step != StepNone {
		b.handleStep(ctx, user, st, text)
		return
	}

	b.gw.SendMessage(chatID, "از دکمه‌های منو استفاده کنید. 👇", b.mainKeyboard())
}

// handleStep — машина состояний: текущий шаг плюс входной текст дают либо
// повторный запрос, либо продвижение диалога.
func (b *Bot) handleStep(ctx context.Context, user *models.User, st *State, text string) {
	switch st.Step {
	case StepCheckoutName, StepCheckoutPhone, StepCheckoutAddress, StepCheckoutPostal:
		b.stepCheckout(ctx, user, st, text)
	case StepEnterDiscount:
		b.stepDiscount(ctx, user, st, text)
	case StepTrackOrder:
		b.stepTrack(ctx, user, text)
	case StepSearchQuery:
		b.stepSearch(ctx, user, text)
	case StepProductCategory, StepProductName, StepProductPrice, StepProductStock,
		StepProductDescription, StepProductImage:
		b.stepProductCreate(ctx, user, st, text)
	case StepProductEditField:
		b.stepProductEditField(ctx, user, st, text)
	case StepProductEditValue:
		b.stepProductEdit(ctx, user, st, text)
	case StepCategoryTitle, StepCategoryIcon, StepCategoryDescription:
		b.stepCategoryCreate(ctx, user, st, text)
	case StepDiscountCode, StepDiscountType, StepDiscountValue, StepDiscountMinPurchase,
		StepDiscountMaxAmount, StepDiscountUsageLimit, StepDiscountEndDate:
		b.stepDiscountCreate(ctx, user, st, text)
	case StepBroadcastText:
		b.stepBroadcast(ctx, user, text)
	case StepCancelReason:
		b.stepCancelReason(ctx, user, st, text)
	default:
		b.states.Clear(user.ChatID)
		b.gw.SendMessage(user.ChatID, "از دکمه‌های منو استفاده کنید. 👇", b.mainKeyboard())
	}
}

func (b *Bot) mainKeyboard() interface{} {
	return tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnProducts),
			tgbotapi.NewKeyboardButton(btnCart),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnFeatured),
			tgbotapi.NewKeyboardButton(btnSearch),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnMyOrders),
			tgbotapi.NewKeyboardButton(btnTrackOrder),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnAbout),
			tgbotapi.NewKeyboardButton(btnSupport),
		),
	)
}

func (b *Bot) adminKeyboard() interface{} {
	return tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnAdminStats),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnAdminOrders),
			tgbotapi.NewKeyboardButton(btnAdminUsers),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnAdminProducts),
			tgbotapi.NewKeyboardButton(btnAdminAddProduct),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnAdminStock),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnAdminCategories),
			tgbotapi.NewKeyboardButton(btnAdminDiscounts),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnAdminPayments),
			tgbotapi.NewKeyboardButton(btnAdminBroadcast),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnBackToUserMenu),
		),
	)
}
