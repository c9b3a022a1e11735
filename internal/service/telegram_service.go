package service

import (
	"errors"
	"fmt"

	"coachsync/internal/domain"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// TelegramAPI is the part of *tgbotapi.BotAPI the reminder channel uses.
type TelegramAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramService delivers plain text reminders through a Telegram bot.
type TelegramService struct {
	bot TelegramAPI
}

var _ domain.MessageSender = (*TelegramService)(nil)

func NewTelegramService(bot TelegramAPI) *TelegramService {
	return &TelegramService{bot: bot}
}

// NewTelegramServiceFromToken connects to the Bot API with the given token.
func NewTelegramServiceFromToken(token string) (*TelegramService, error) {
	if token == "" {
		return nil, errors.New("telegram bot token is empty")
	}
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram bot: %w", err)
	}
	return NewTelegramService(bot), nil
}

func (s *TelegramService) SendText(chatID int64, text string) error {
	if chatID == 0 {
		return errors.New("telegram: empty chat id")
	}
	msg := tgbotapi.NewMessage(chatID, text)
	msg.DisableWebPagePreview = true
	if _, err := s.bot.Send(msg); err != nil {
		return fmt.Errorf("telegram send to %d: %w", chatID, err)
	}
	return nil
}
