package messages

import (
	"context"
	"errors"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"medication-tracker/internal/models"
)

// Callback data prefixes shared by the notifier and the bot handlers.
const (
	CallbackTake    = "take:"
	CallbackHistory = "hist:"
	CallbackShare   = "share:"
	CallbackDelete  = "del:"

	CallbackDraftSave   = "draft:save"
	CallbackDraftCancel = "draft:cancel"

	btnTakeDose = "Take dose"
)

// Sender is the subset of *tgbotapi.BotAPI used here.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

var ErrNoChat = errors.New("user has no telegram chat")

// Notifier delivers reminders as Telegram messages with a one-tap
// "take dose" button.
type Notifier struct {
	Bot Sender
}

func NewNotifier(bot Sender) *Notifier {
	return &Notifier{Bot: bot}
}

// PermissionGranted is false when the user muted reminders or never opened
// a chat with the bot.
func (n *Notifier) PermissionGranted(_ context.Context, u models.User) bool {
	return u.NotificationsEnabled && u.ChatID != 0
}

func (n *Notifier) Notify(ctx context.Context, u models.User, note models.Notification) error {
	if u.ChatID == 0 {
		return ErrNoChat
	}
	if !n.PermissionGranted(ctx, u) {
		return nil
	}

	msg := tgbotapi.NewMessage(u.ChatID, FormatNotification(note))
	msg.DisableNotification = !note.Sound
	if note.MedicationID != "" {
		msg.ReplyMarkup = TakeDoseKeyboard(note.MedicationID)
	}
	_, err := n.Bot.Send(msg)
	return err
}

func FormatNotification(note models.Notification) string {
	var b strings.Builder
	b.WriteString("🔔 ")
	b.WriteString(note.Title)
	if note.Body != "" {
		b.WriteString("\n")
		b.WriteString(note.Body)
	}
	return b.String()
}

func TakeDoseKeyboard(medID string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(btnTakeDose, CallbackTake+medID),
		),
	)
}
