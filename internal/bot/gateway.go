package bot

// Лимиты транспорта на длину текста.
const (
	messageTextLimit  = 4096
	captionLimit      = 1024
	callbackTextLimit = 200
)

// Gateway — исходящая сторона мессенджера. Узкий интерфейс, чтобы диалоги
// тестировались подделкой без реального API.
type Gateway interface {
	// SendMessage возвращает id отправленного сообщения.
	SendMessage(chatID int64, text string, markup interface{}) (int, error)
	// SendPhoto принимает URL либо file_id; при ошибке отправки фото
	// откатывается к текстовому сообщению.
	SendPhoto(chatID int64, photoRef, caption string, markup interface{}) error
	DeleteMessage(chatID int64, messageID int) error
	AnswerCallback(callbackID, text string, alert bool) error
}

func truncate(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit])
}
