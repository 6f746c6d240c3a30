package handlers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"medication-tracker/internal/messages"
	"medication-tracker/internal/models"
	"medication-tracker/internal/storage"
)

func (h *Handler) HandleCallback(ctx context.Context, cq *tgbotapi.CallbackQuery) {
	// always answer callback to remove 'loading...'
	defer func() {
		if _, err := h.Bot.Request(tgbotapi.NewCallback(cq.ID, "")); err != nil {
			h.Log.Debugw("answer callback", "error", err)
		}
	}()

	if cq.Message == nil || cq.Message.Chat == nil {
		return
	}
	chatID := cq.Message.Chat.ID

	u, err := h.ensureUser(ctx, chatID)
	if err != nil {
		h.fail(chatID, "load user", err)
		return
	}

	data := cq.Data
	switch {
	case data == messages.CallbackDraftSave:
		h.saveDraft(ctx, u)
	case data == messages.CallbackDraftCancel:
		h.dropDraft(ctx, u)
	case strings.HasPrefix(data, messages.CallbackTake):
		h.withMedID(ctx, u, strings.TrimPrefix(data, messages.CallbackTake), h.takeDose)
	case strings.HasPrefix(data, messages.CallbackHistory):
		h.withMedID(ctx, u, strings.TrimPrefix(data, messages.CallbackHistory), func(ctx context.Context, u *models.User, m models.Medication) {
			h.send(u.ChatID, historyText(m))
		})
	case strings.HasPrefix(data, messages.CallbackShare):
		h.withMedID(ctx, u, strings.TrimPrefix(data, messages.CallbackShare), h.shareMed)
	case strings.HasPrefix(data, messages.CallbackDelete):
		h.withMedID(ctx, u, strings.TrimPrefix(data, messages.CallbackDelete), func(ctx context.Context, u *models.User, m models.Medication) {
			if err := h.DB.DeleteMedication(ctx, u.ID, m.ID); err != nil && !errors.Is(err, storage.ErrNotFound) {
				h.fail(u.ChatID, "delete medication", err)
				return
			}
			// replace the card so its buttons cannot be pressed again
			edit := tgbotapi.NewEditMessageText(chatID, cq.Message.MessageID, fmt.Sprintf(txtDeleted, m.Name))
			if _, err := h.Bot.Send(edit); err != nil {
				h.Log.Errorw("edit card", "chat_id", chatID, "error", err)
			}
		})
	default:
		h.Log.Warnw("unknown callback", "chat_id", chatID, "data", data)
	}
}

func (h *Handler) withMedID(ctx context.Context, u *models.User, medID string, fn func(context.Context, *models.User, models.Medication)) {
	m, err := h.DB.GetMedication(ctx, u.ID, medID)
	if errors.Is(err, storage.ErrNotFound) {
		h.send(u.ChatID, txtNoSuchMed)
		return
	}
	if err != nil {
		h.fail(u.ChatID, "load medication", err)
		return
	}
	fn(ctx, u, m)
}

func (h *Handler) saveDraft(ctx context.Context, u *models.User) {
	p, ok, err := h.loadDraft(ctx, u)
	if err != nil {
		h.fail(u.ChatID, "load draft", err)
		return
	}
	if !ok {
		h.send(u.ChatID, txtNoDraft)
		return
	}
	if err := h.DB.SetUserState(ctx, u.ID, ""); err != nil {
		h.fail(u.ChatID, "clear draft", err)
		return
	}
	h.addMedication(ctx, u, p)
}
