package bot

import (
	"fmt"
	"strings"

	"github.com/sumohast/bale-shop-bot/internal/logger"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// TelegramGateway — реализация Gateway поверх Bot API (Telegram или Bale,
// адрес сервера задаётся конфигом).
type TelegramGateway struct {
	api *tgbotapi.BotAPI
}

func NewTelegramGateway(token, endpoint string) (*TelegramGateway, *tgbotapi.BotAPI, error) {
	api, err := tgbotapi.NewBotAPIWithAPIEndpoint(token, endpoint)
	if err != nil {
		return nil, nil, fmt.Errorf("bot api init: %w", err)
	}
	return &TelegramGateway{api: api}, api, nil
}

func (g *TelegramGateway) SendMessage(chatID int64, text string, markup interface{}) (int, error) {
	msg := tgbotapi.NewMessage(chatID, truncate(text, messageTextLimit))
	if markup != nil {
		msg.ReplyMarkup = markup
	}
	sent, err := g.api.Send(msg)
	if err != nil {
		return 0, err
	}
	return sent.MessageID, nil
}

func (g *TelegramGateway) SendPhoto(chatID int64, photoRef, caption string, markup interface{}) error {
	// http(s)-ссылка или file_id, полученный от самого Bot API
	var file tgbotapi.RequestFileData
	if strings.HasPrefix(photoRef, "http://") || strings.HasPrefix(photoRef, "https://") {
		file = tgbotapi.FileURL(photoRef)
	} else {
		file = tgbotapi.FileID(photoRef)
	}
	photo := tgbotapi.NewPhoto(chatID, file)
	photo.Caption = truncate(caption, captionLimit)
	if markup != nil {
		photo.ReplyMarkup = markup
	}
	if _, err := g.api.Send(photo); err != nil {
		logger.L().Warn("не удалось отправить фото, шлём текстом",
			zap.Int64("chat_id", chatID), zap.Error(err))
		_, err = g.SendMessage(chatID, caption, markup)
		return err
	}
	return nil
}

func (g *TelegramGateway) DeleteMessage(chatID int64, messageID int) error {
	_, err := g.api.Request(tgbotapi.NewDeleteMessage(chatID, messageID))
	return err
}

func (g *TelegramGateway) AnswerCallback(callbackID, text string, alert bool) error {
	cb := tgbotapi.NewCallback(callbackID, truncate(text, callbackTextLimit))
	cb.ShowAlert = alert
	_, err := g.api.Request(cb)
	return err
}
