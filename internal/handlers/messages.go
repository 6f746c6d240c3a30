package handlers

import (
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"medication-tracker/internal/dose"
	"medication-tracker/internal/messages"
	"medication-tracker/internal/models"
)

// --- medication card ----------

func cardText(idx int, s dose.Summary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d. 💊 %s\n", idx, s.Name)
	fmt.Fprintf(&b, "Tablets: %d used, %d left (%.0f%%)\n",
		s.TabletsConsumed, max(s.TabletsRemaining, 0), s.Percent)

	if s.Completed {
		b.WriteString("✅ Course completed")
		return b.String()
	}

	fmt.Fprintf(&b, "Today: %d/%d doses of %d tablet(s)\n", s.DosesToday, s.DosesPerDay, s.TabletsPerDose)
	if s.DaysKnown {
		fmt.Fprintf(&b, "Days remaining: %d\n", s.DaysRemaining)
	} else {
		b.WriteString("Days remaining: unknown\n")
	}

	switch s.ReminderStatus {
	case dose.ReminderNone:
		b.WriteString("No reminders set")
	case dose.ReminderQuotaMet:
		b.WriteString("All doses taken today")
	case dose.ReminderNext:
		b.WriteString("Next reminder: " + s.NextReminder)
	case dose.ReminderPassed:
		b.WriteString("Reminders passed for today")
	}
	return b.String()
}

func cardKeyboard(s dose.Summary) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	if s.CanLogDose {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(btnTake, messages.CallbackTake+s.ID),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData(btnHistory, messages.CallbackHistory+s.ID),
		tgbotapi.NewInlineKeyboardButtonData(btnShare, messages.CallbackShare+s.ID),
		tgbotapi.NewInlineKeyboardButtonData(btnDelete, messages.CallbackDelete+s.ID),
	))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func (h *Handler) sendCard(chatID int64, idx int, s dose.Summary) {
	msg := tgbotapi.NewMessage(chatID, cardText(idx, s))
	msg.ReplyMarkup = cardKeyboard(s)
	h.sendMsg(msg)
}

// --- history / settings ----------

func historyText(m models.Medication) string {
	days := dose.History(m)
	if len(days) == 0 {
		return fmt.Sprintf(txtNoHistory, m.Name)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "History for %s:\n", m.Name)
	for _, d := range days {
		fmt.Fprintf(&b, "%s: %d dose(s)\n", d.Day, d.Doses)
	}
	return strings.TrimRight(b.String(), "\n")
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

func settingsText(u *models.User) string {
	return fmt.Sprintf(txtSettings, onOff(u.NotificationsEnabled), onOff(u.Sound), onOff(u.AutoLog), u.TZ)
}

// --- /add line ----------

// addLine renders p as the /add command that would recreate it.
func addLine(p dose.Prescription) string {
	fields := []string{
		p.Name,
		strconv.Itoa(p.TotalTablets),
		strconv.Itoa(p.DosesPerDay),
		strconv.Itoa(p.TabletsPerDose),
	}
	if len(p.Reminders) > 0 {
		fields = append(fields, strings.Join(p.Reminders, ","))
	}
	return "/add " + strings.Join(fields, ";")
}

func draftKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(btnSave, messages.CallbackDraftSave),
			tgbotapi.NewInlineKeyboardButtonData(btnCancel, messages.CallbackDraftCancel),
		),
	)
}
