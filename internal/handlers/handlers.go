package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"medication-tracker/internal/dose"
	"medication-tracker/internal/models"
)

const (
	stateDraft = "draft:"

	maxImageBytes = 10 << 20
)

func (h *Handler) HandleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.Chat == nil {
		return
	}
	chatID := msg.Chat.ID

	u, err := h.ensureUser(ctx, chatID)
	if err != nil {
		h.fail(chatID, "load user", err)
		return
	}

	switch {
	case msg.IsCommand():
		h.HandleCommand(ctx, u, msg.Command(), msg.CommandArguments())
	case len(msg.Photo) > 0:
		// the last size is the largest
		h.HandleImage(ctx, u, msg.Photo[len(msg.Photo)-1].FileID, "image/jpeg")
	case msg.Document != nil && strings.HasPrefix(msg.Document.MimeType, "image/"):
		h.HandleImage(ctx, u, msg.Document.FileID, msg.Document.MimeType)
	default:
		h.HandleText(ctx, u, msg.Text)
	}
}

// ------------- text -----------------------
func (h *Handler) HandleText(ctx context.Context, u *models.User, text string) {
	switch strings.TrimSpace(text) {
	case menuList:
		h.handleList(ctx, u)
	case menuSettings:
		h.send(u.ChatID, settingsText(u))
	case menuNames:
		h.handleNames(ctx, u)
	default:
		h.send(u.ChatID, txtUnknown)
	}
}

// ------------- label photos ---------------

// HandleImage reads a prescription label and offers the result as a draft.
// Nothing is stored as a medication until the user confirms it.
func (h *Handler) HandleImage(ctx context.Context, u *models.User, fileID, mimeType string) {
	if h.OCR == nil || h.Files == nil {
		h.send(u.ChatID, txtOCRDisabled)
		return
	}

	img, err := h.download(ctx, fileID)
	if err != nil {
		h.Log.Errorw("download label", "user_id", u.ID, "error", err)
		h.send(u.ChatID, txtOCRFailed)
		return
	}

	draft, err := h.OCR.Read(ctx, img, mimeType)
	if err != nil {
		h.Log.Warnw("read label", "user_id", u.ID, "error", err)
		h.send(u.ChatID, txtOCRFailed)
		return
	}

	p := draft.Prescription()
	if err := p.Validate(); err != nil {
		h.send(u.ChatID, fmt.Sprintf(txtDraftBad, userError(err), addLine(p)))
		return
	}

	raw, err := json.Marshal(p)
	if err != nil {
		h.fail(u.ChatID, "encode draft", err)
		return
	}
	if err := h.DB.SetUserState(ctx, u.ID, stateDraft+string(raw)); err != nil {
		h.fail(u.ChatID, "save draft", err)
		return
	}

	reply := tgbotapi.NewMessage(u.ChatID, fmt.Sprintf(txtDraft, addLine(p)))
	reply.ReplyMarkup = draftKeyboard()
	h.sendMsg(reply)
}

func (h *Handler) download(ctx context.Context, fileID string) ([]byte, error) {
	url, err := h.Files.GetFileDirectURL(fileID)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	client := h.HTTP
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download file: status %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
}

// loadDraft reports ok=false when no usable draft is stored. A non-nil
// error means the state could not be read at all.
func (h *Handler) loadDraft(ctx context.Context, u *models.User) (dose.Prescription, bool, error) {
	st, err := h.DB.GetUserState(ctx, u.ID)
	if err != nil {
		return dose.Prescription{}, false, err
	}
	if !strings.HasPrefix(st, stateDraft) {
		return dose.Prescription{}, false, nil
	}
	var p dose.Prescription
	if err := json.Unmarshal([]byte(strings.TrimPrefix(st, stateDraft)), &p); err != nil {
		h.Log.Warnw("bad draft state", "user_id", u.ID, "error", err)
		return dose.Prescription{}, false, nil
	}
	return p, true, nil
}

func (h *Handler) dropDraft(ctx context.Context, u *models.User) {
	if err := h.DB.SetUserState(ctx, u.ID, ""); err != nil {
		h.fail(u.ChatID, "clear draft", err)
		return
	}
	h.send(u.ChatID, txtDraftDrop)
}
