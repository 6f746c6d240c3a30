package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"medication-tracker/internal/messages"
	"medication-tracker/internal/models"
	"medication-tracker/internal/prescription"
	"medication-tracker/internal/storage"
)

// Store is what the bot needs from persistence. *storage.DB implements it.
type Store interface {
	UpsertUser(ctx context.Context, u *models.User) error
	GetUserByChat(ctx context.Context, chatID int64) (*models.User, error)
	ClearData(ctx context.Context, userID string) error

	SetUserState(ctx context.Context, userID, state string) error
	GetUserState(ctx context.Context, userID string) (string, error)

	GetMedications(ctx context.Context, userID string) ([]models.Medication, error)
	GetMedication(ctx context.Context, userID, medID string) (models.Medication, error)
	AddMedication(ctx context.Context, userID string, m models.Medication) error
	UpdateMedication(ctx context.Context, userID string, m models.Medication) error
	DeleteMedication(ctx context.Context, userID, medID string) error
}

// FileLinker resolves a Telegram file id to a download URL.
type FileLinker interface {
	GetFileDirectURL(fileID string) (string, error)
}

type Handler struct {
	Bot   messages.Sender
	Files FileLinker
	DB    Store
	// nil disables label scanning
	OCR       prescription.Reader
	Clock     clockwork.Clock
	Log       *zap.SugaredLogger
	DefaultTZ string
	HTTP      *http.Client
}

func NewHandler(bot messages.Sender, db Store, log *zap.SugaredLogger) *Handler {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Handler{
		Bot:       bot,
		DB:        db,
		Clock:     clockwork.NewRealClock(),
		Log:       log.With("service", "handlers"),
		DefaultTZ: "UTC",
		HTTP:      &http.Client{Timeout: 30 * time.Second},
	}
}

// HandleUpdate dispatches one update from the long-poll loop.
func (h *Handler) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			h.Log.Errorw("update panicked", "update_id", upd.UpdateID, "panic", r)
		}
	}()

	switch {
	case upd.Message != nil:
		h.HandleMessage(ctx, upd.Message)
	case upd.CallbackQuery != nil:
		h.HandleCallback(ctx, upd.CallbackQuery)
	}
}

// ensureUser returns the user for a chat, creating it with default settings
// on first contact.
func (h *Handler) ensureUser(ctx context.Context, chatID int64) (*models.User, error) {
	u, err := h.DB.GetUserByChat(ctx, chatID)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}

	u = &models.User{
		ID:                   uuid.NewString(),
		ChatID:               chatID,
		TZ:                   h.DefaultTZ,
		NotificationsEnabled: true,
		Sound:                true,
		CreatedAt:            h.Clock.Now().UTC(),
	}
	if err := h.DB.UpsertUser(ctx, u); err != nil {
		return nil, err
	}
	h.Log.Infow("user created", "user_id", u.ID, "chat_id", chatID)
	return u, nil
}

// now is the current instant in the user's zone.
func (h *Handler) now(u *models.User) time.Time {
	return h.Clock.Now().In(u.Location())
}

func (h *Handler) send(chatID int64, text string) {
	h.sendMsg(tgbotapi.NewMessage(chatID, text))
}

func (h *Handler) sendMsg(msg tgbotapi.MessageConfig) {
	if _, err := h.Bot.Send(msg); err != nil {
		h.Log.Errorw("send failed", "chat_id", msg.ChatID, "error", err)
	}
}

func (h *Handler) fail(chatID int64, op string, err error) {
	h.Log.Errorw(op, "chat_id", chatID, "error", err)
	h.send(chatID, "Something went wrong, please try again.")
}

func mainMenu() tgbotapi.ReplyKeyboardMarkup {
	return tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(menuList),
			tgbotapi.NewKeyboardButton(menuSettings),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(menuNames),
		),
	)
}
