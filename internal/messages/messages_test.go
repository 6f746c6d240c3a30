package messages

import (
	"context"
	"errors"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medication-tracker/internal/models"
)

type fakeBot struct {
	sent []tgbotapi.Chattable
	err  error
}

func (b *fakeBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if b.err != nil {
		return tgbotapi.Message{}, b.err
	}
	b.sent = append(b.sent, c)
	return tgbotapi.Message{MessageID: len(b.sent)}, nil
}

func (b *fakeBot) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func TestPermissionGranted(t *testing.T) {
	n := NewNotifier(&fakeBot{})
	ctx := context.Background()

	assert.True(t, n.PermissionGranted(ctx, models.User{ChatID: 7, NotificationsEnabled: true}))
	assert.False(t, n.PermissionGranted(ctx, models.User{ChatID: 7}))
	assert.False(t, n.PermissionGranted(ctx, models.User{NotificationsEnabled: true}))
}

func TestNotifySendsMessageWithTakeButton(t *testing.T) {
	bot := &fakeBot{}
	n := NewNotifier(bot)
	u := models.User{ChatID: 7, NotificationsEnabled: true}

	err := n.Notify(context.Background(), u, models.Notification{
		Title:        "Medication Reminder",
		Body:         "It's time to take your Zinc.",
		MedicationID: "m1",
	})
	require.NoError(t, err)
	require.Len(t, bot.sent, 1)

	msg, ok := bot.sent[0].(tgbotapi.MessageConfig)
	require.True(t, ok)
	assert.Equal(t, int64(7), msg.ChatID)
	assert.Equal(t, "🔔 Medication Reminder\nIt's time to take your Zinc.", msg.Text)
	assert.True(t, msg.DisableNotification, "silent without sound")

	kb, ok := msg.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	require.True(t, ok)
	require.NotNil(t, kb.InlineKeyboard[0][0].CallbackData)
	assert.Equal(t, "take:m1", *kb.InlineKeyboard[0][0].CallbackData)
}

func TestNotifyWithSound(t *testing.T) {
	bot := &fakeBot{}
	n := NewNotifier(bot)

	require.NoError(t, n.Notify(context.Background(), models.User{ChatID: 1, NotificationsEnabled: true}, models.Notification{Title: "x", Sound: true}))
	msg := bot.sent[0].(tgbotapi.MessageConfig)
	assert.False(t, msg.DisableNotification)
	assert.Nil(t, msg.ReplyMarkup)
}

func TestNotifyRevokedIsNoop(t *testing.T) {
	bot := &fakeBot{}
	n := NewNotifier(bot)

	require.NoError(t, n.Notify(context.Background(), models.User{ChatID: 1}, models.Notification{Title: "x"}))
	assert.Empty(t, bot.sent)
}

func TestNotifyWithoutChat(t *testing.T) {
	n := NewNotifier(&fakeBot{})
	err := n.Notify(context.Background(), models.User{NotificationsEnabled: true}, models.Notification{Title: "x"})
	assert.ErrorIs(t, err, ErrNoChat)
}

func TestNotifyPropagatesSendError(t *testing.T) {
	n := NewNotifier(&fakeBot{err: errors.New("Forbidden: bot was blocked by the user")})
	err := n.Notify(context.Background(), models.User{ChatID: 1, NotificationsEnabled: true}, models.Notification{Title: "x"})
	assert.Error(t, err)
}
