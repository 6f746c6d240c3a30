package handlers

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"

	"medication-tracker/internal/dose"
	"medication-tracker/internal/models"
	"medication-tracker/internal/storage"
)

var errUsage = errors.New("usage")

func (h *Handler) HandleCommand(ctx context.Context, u *models.User, cmd, args string) {
	chatID := u.ChatID
	args = strings.TrimSpace(args)

	switch cmd {
	case "start":
		h.HandleStart(u)
	case "help":
		h.send(chatID, txtHelp)
	case "add":
		h.handleAdd(ctx, u, args)
	case "edit":
		h.handleEdit(ctx, u, args)
	case "list":
		h.handleList(ctx, u)
	case "take":
		h.withMed(ctx, u, args, h.takeDose)
	case "history":
		h.withMed(ctx, u, args, func(ctx context.Context, u *models.User, m models.Medication) {
			h.send(u.ChatID, historyText(m))
		})
	case "share":
		h.withMed(ctx, u, args, h.shareMed)
	case "delete":
		h.withMed(ctx, u, args, h.deleteMed)
	case "names":
		h.handleNames(ctx, u)
	case "settings":
		h.send(chatID, settingsText(u))
	case "autolog":
		h.toggle(ctx, u, args, func(u *models.User, on bool) { u.AutoLog = on })
	case "sound":
		h.toggle(ctx, u, args, func(u *models.User, on bool) { u.Sound = on })
	case "notify":
		h.toggle(ctx, u, args, func(u *models.User, on bool) { u.NotificationsEnabled = on })
	case "tz":
		h.handleTZ(ctx, u, args)
	case "cancel":
		h.dropDraft(ctx, u)
	case "clear":
		h.handleClear(ctx, u)
	default:
		h.send(chatID, txtUnknown)
	}
}

// ---------------- /start --------------------
func (h *Handler) HandleStart(u *models.User) {
	reply := tgbotapi.NewMessage(u.ChatID, fmt.Sprintf(txtWelcome, u.ID))
	reply.ReplyMarkup = mainMenu()
	h.sendMsg(reply)
}

// ---------------- add / edit --------------------

// parsePrescription reads "Name;total;perDay[;perDose[;HH:MM,HH:MM]]".
func parsePrescription(s string) (dose.Prescription, error) {
	parts := strings.Split(s, ";")
	if len(parts) < 3 || len(parts) > 5 {
		return dose.Prescription{}, errUsage
	}
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}

	p := dose.Prescription{Name: parts[0], TabletsPerDose: 1}
	ints := []*int{&p.TotalTablets, &p.DosesPerDay, &p.TabletsPerDose}
	for i := 1; i < len(parts) && i <= 3; i++ {
		n, err := strconv.Atoi(parts[i])
		if err != nil {
			return dose.Prescription{}, errUsage
		}
		*ints[i-1] = n
	}
	if len(parts) == 5 && parts[4] != "" {
		p.Reminders = strings.FieldsFunc(parts[4], func(r rune) bool { return r == ',' || r == ' ' })
	}
	return p, nil
}

func (h *Handler) handleAdd(ctx context.Context, u *models.User, args string) {
	p, err := parsePrescription(args)
	if err != nil {
		h.send(u.ChatID, txtAddUsage)
		return
	}
	h.addMedication(ctx, u, p)
}

func (h *Handler) addMedication(ctx context.Context, u *models.User, p dose.Prescription) {
	start := h.now(u)
	m, err := dose.NewMedication(uuid.NewString(), p, start)
	if err != nil {
		h.send(u.ChatID, userError(err))
		return
	}
	if err := h.DB.AddMedication(ctx, u.ID, m); err != nil {
		h.fail(u.ChatID, "add medication", err)
		return
	}
	h.Log.Infow("medication added", "user_id", u.ID, "medication_id", m.ID)
	h.send(u.ChatID, fmt.Sprintf(txtAdded, m.Name))
	h.sendCard(u.ChatID, h.indexOf(ctx, u, m.ID), dose.Summarize(m, start))
}

func (h *Handler) handleEdit(ctx context.Context, u *models.User, args string) {
	idx, rest, _ := strings.Cut(args, " ")
	p, err := parsePrescription(rest)
	if err != nil {
		h.send(u.ChatID, txtEditUsage)
		return
	}
	h.withMed(ctx, u, idx, func(ctx context.Context, u *models.User, m models.Medication) {
		edited, err := dose.ApplyEdit(m, p)
		if err != nil {
			h.send(u.ChatID, userError(err))
			return
		}
		if err := h.DB.UpdateMedication(ctx, u.ID, edited); err != nil {
			h.fail(u.ChatID, "update medication", err)
			return
		}
		h.send(u.ChatID, fmt.Sprintf(txtUpdated, edited.Name))
	})
}

// ---------------- list --------------------
func (h *Handler) handleList(ctx context.Context, u *models.User) {
	meds, err := h.DB.GetMedications(ctx, u.ID)
	if err != nil {
		h.fail(u.ChatID, "list medications", err)
		return
	}
	if len(meds) == 0 {
		h.send(u.ChatID, txtEmpty)
		return
	}
	now := h.now(u)
	for i, m := range meds {
		h.sendCard(u.ChatID, i+1, dose.Summarize(m, now))
	}
}

func (h *Handler) handleNames(ctx context.Context, u *models.User) {
	meds, err := h.DB.GetMedications(ctx, u.ID)
	if err != nil {
		h.fail(u.ChatID, "list medications", err)
		return
	}
	names := dose.UniqueNames(meds)
	if len(names) == 0 {
		h.send(u.ChatID, txtNoNames)
		return
	}
	h.send(u.ChatID, strings.Join(names, "\n"))
}

// withMed resolves the 1-based /list index in arg and runs fn on it.
func (h *Handler) withMed(ctx context.Context, u *models.User, arg string, fn func(context.Context, *models.User, models.Medication)) {
	n, err := strconv.Atoi(strings.TrimSpace(arg))
	if err != nil {
		h.send(u.ChatID, txtNeedIndex)
		return
	}
	meds, err := h.DB.GetMedications(ctx, u.ID)
	if err != nil {
		h.fail(u.ChatID, "list medications", err)
		return
	}
	if n < 1 || n > len(meds) {
		h.send(u.ChatID, txtNoSuchMed)
		return
	}
	fn(ctx, u, meds[n-1])
}

func (h *Handler) indexOf(ctx context.Context, u *models.User, medID string) int {
	meds, err := h.DB.GetMedications(ctx, u.ID)
	if err != nil {
		return 0
	}
	for i, m := range meds {
		if m.ID == medID {
			return i + 1
		}
	}
	return 0
}

// ---------------- dose actions --------------------

func (h *Handler) takeDose(ctx context.Context, u *models.User, m models.Medication) {
	now := h.now(u)
	updated, err := dose.RecordDose(m, dose.DayKey(now))
	if err != nil {
		h.send(u.ChatID, userError(err))
		return
	}
	if err := h.DB.UpdateMedication(ctx, u.ID, updated); err != nil {
		h.fail(u.ChatID, "record dose", err)
		return
	}
	h.Log.Infow("dose logged", "user_id", u.ID, "medication_id", m.ID, "day", dose.DayKey(now))
	h.send(u.ChatID, fmt.Sprintf(txtLogged, m.Name))
	h.sendCard(u.ChatID, h.indexOf(ctx, u, m.ID), dose.Summarize(updated, now))
}

func (h *Handler) shareMed(ctx context.Context, u *models.User, m models.Medication) {
	h.send(u.ChatID, dose.ShareText(dose.Summarize(m, h.now(u))))
}

func (h *Handler) deleteMed(ctx context.Context, u *models.User, m models.Medication) {
	if err := h.DB.DeleteMedication(ctx, u.ID, m.ID); err != nil && !errors.Is(err, storage.ErrNotFound) {
		h.fail(u.ChatID, "delete medication", err)
		return
	}
	h.send(u.ChatID, fmt.Sprintf(txtDeleted, m.Name))
}

// ---------------- settings --------------------

func (h *Handler) toggle(ctx context.Context, u *models.User, arg string, set func(*models.User, bool)) {
	var on bool
	switch strings.ToLower(arg) {
	case "on", "yes", "1":
		on = true
	case "off", "no", "0":
	default:
		h.send(u.ChatID, txtOnOff)
		return
	}
	set(u, on)
	if err := h.DB.UpsertUser(ctx, u); err != nil {
		h.fail(u.ChatID, "save settings", err)
		return
	}
	h.send(u.ChatID, settingsText(u))
}

func (h *Handler) handleTZ(ctx context.Context, u *models.User, arg string) {
	if _, err := models.ParseTZ(arg); err != nil || arg == "" {
		h.send(u.ChatID, txtBadTZ)
		return
	}
	u.TZ = arg
	if err := h.DB.UpsertUser(ctx, u); err != nil {
		h.fail(u.ChatID, "save settings", err)
		return
	}
	h.send(u.ChatID, fmt.Sprintf(txtTZSet, arg))
}

func (h *Handler) handleClear(ctx context.Context, u *models.User) {
	if err := h.DB.ClearData(ctx, u.ID); err != nil {
		h.fail(u.ChatID, "clear data", err)
		return
	}
	h.Log.Infow("user data cleared", "user_id", u.ID)
	msg := tgbotapi.NewMessage(u.ChatID, txtCleared)
	msg.ReplyMarkup = tgbotapi.NewRemoveKeyboard(false)
	h.sendMsg(msg)
}

// userError turns a domain error into a reply.
func userError(err error) string {
	switch {
	case errors.Is(err, dose.ErrCourseCompleted):
		return txtCompleted
	case errors.Is(err, dose.ErrDailyQuotaMet):
		return txtQuotaMet
	case errors.Is(err, dose.ErrInvalidPrescription):
		return strings.TrimPrefix(err.Error(), dose.ErrInvalidPrescription.Error()+": ")
	}
	return err.Error()
}
