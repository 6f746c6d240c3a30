package dose

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"medication-tracker/internal/models"
)

type ReminderStatus string

const (
	ReminderNone     ReminderStatus = "none"      // no reminders configured
	ReminderQuotaMet ReminderStatus = "quota_met" // doses for today complete
	ReminderNext     ReminderStatus = "next"
	ReminderPassed   ReminderStatus = "passed" // all times for today have passed
)

// Summary is everything a medication card shows, computed at one instant.
type Summary struct {
	ID               string         `json:"id"`
	Name             string         `json:"name"`
	Today            string         `json:"today"`
	TabletsConsumed  int            `json:"tabletsConsumed"`
	TabletsRemaining int            `json:"tabletsRemaining"`
	Percent          float64        `json:"percent"`
	Completed        bool           `json:"completed"`
	DaysRemaining    int            `json:"daysRemaining"`
	DaysKnown        bool           `json:"daysKnown"`
	DosesToday       int            `json:"dosesToday"`
	DosesPerDay      int            `json:"dosesPerDay"`
	TabletsPerDose   int            `json:"tabletsPerDose"`
	CanLogDose       bool           `json:"canLogDose"`
	ReminderStatus   ReminderStatus `json:"reminderStatus,omitempty"`
	NextReminder     string         `json:"nextReminder,omitempty"`
}

// Summarize evaluates m at now, in now's location.
func Summarize(m models.Medication, now time.Time) Summary {
	today := DayKey(now)
	days, known := DaysRemaining(m, today)
	s := Summary{
		ID:               m.ID,
		Name:             m.Name,
		Today:            today,
		TabletsConsumed:  TabletsConsumed(m),
		TabletsRemaining: TabletsRemaining(m),
		Percent:          PercentProgress(m),
		Completed:        IsCompleted(m),
		DaysRemaining:    days,
		DaysKnown:        known,
		DosesToday:       DosesTakenToday(m, today),
		DosesPerDay:      m.DosesPerDay,
		TabletsPerDose:   m.PerDose(),
		CanLogDose:       CanLogDoseNow(m, today),
	}
	if s.Completed {
		return s
	}

	switch next, ok := NextReminder(m, TimeOfDay(now), today); {
	case s.DosesToday >= m.DosesPerDay:
		s.ReminderStatus = ReminderQuotaMet
	case len(m.Reminders) == 0:
		s.ReminderStatus = ReminderNone
	case ok:
		s.ReminderStatus = ReminderNext
		s.NextReminder = next
	default:
		s.ReminderStatus = ReminderPassed
	}
	return s
}

// ShareText is the progress line users share with others.
func ShareText(s Summary) string {
	return fmt.Sprintf("Medication Progress for %s: I have %d tablets left and %d days to go!",
		s.Name, max(s.TabletsRemaining, 0), s.DaysRemaining)
}

type DayCount struct {
	Day   string `json:"day"`
	Doses int    `json:"doses"`
}

// History lists ledger entries newest first.
func History(m models.Medication) []DayCount {
	out := make([]DayCount, 0, len(m.DosesTaken))
	for day, n := range m.DosesTaken {
		if n <= 0 {
			continue
		}
		out = append(out, DayCount{Day: day, Doses: n})
	}
	// Day keys are zero-padded, so string order is calendar order.
	sort.Slice(out, func(i, j int) bool { return out[i].Day > out[j].Day })
	return out
}

// UniqueNames returns the sorted, de-duplicated names of meds.
func UniqueNames(meds []models.Medication) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(meds))
	for _, m := range meds {
		n := strings.TrimSpace(m.Name)
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
