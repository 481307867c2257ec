package notify

import (
	"context"
	"fmt"

	"labdesk/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// TelegramNotifier sends booking reminders to a coordinator chat.
type TelegramNotifier struct {
	bot    *tgbotapi.BotAPI
	chatID int64
}

// NewTelegramNotifier creates a notifier from a bot token and target chat.
func NewTelegramNotifier(token string, chatID int64) (*TelegramNotifier, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	return &TelegramNotifier{bot: bot, chatID: chatID}, nil
}

// SendReminder posts a short summary of the upcoming booking.
func (n *TelegramNotifier) SendReminder(ctx context.Context, booking models.Booking) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	text := fmt.Sprintf(
		"Reminder: %s at %s on %s",
		booking.PatientName,
		booking.StartTime.Format("15:04"),
		booking.StartTime.Format("2006-01-02"),
	)
	if booking.ExamType != "" {
		text += " (" + booking.ExamType + ")"
	}

	msg := tgbotapi.NewMessage(n.chatID, text)
	if _, err := n.bot.Send(msg); err != nil {
		return fmt.Errorf("send telegram message: %w", err)
	}
	return nil
}
