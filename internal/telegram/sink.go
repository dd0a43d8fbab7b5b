package telegram

// Telegram delivery and chat commands. The engine only sees the Sink;
// the Handler is the thin command surface over the registration
// operations.

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Sink sends tracking notifications to their owning chats.
type Sink struct {
	bot *tgbotapi.BotAPI
}

func NewSink(bot *tgbotapi.BotAPI) *Sink {
	return &Sink{bot: bot}
}

// Send delivers one HTML message to chatID.
func (s *Sink) Send(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	_, err := s.bot.Send(msg)
	return err
}
