// Package dose derives progress metrics from a medication's dose ledger.
//
// Every function here is pure: inputs are never modified and "today" or
// "now" are supplied by the caller, never read from the system clock.
package dose

import (
	"errors"
	"sort"
	"time"

	"medication-tracker/internal/models"
)

const (
	dayKeyLayout    = "2006-01-02"
	timeOfDayLayout = "15:04"
)

var (
	ErrCourseCompleted = errors.New("course already completed")
	ErrDailyQuotaMet   = errors.New("all doses for today already taken")
)

// DayKey formats t as a ledger key in t's own location.
func DayKey(t time.Time) string {
	return t.Format(dayKeyLayout)
}

// TimeOfDay formats t as "HH:MM" in t's own location.
func TimeOfDay(t time.Time) string {
	return t.Format(timeOfDayLayout)
}

// DosesLogged is the number of dose events across the whole ledger.
func DosesLogged(m models.Medication) int {
	total := 0
	for _, n := range m.DosesTaken {
		total += n
	}
	return total
}

// TabletsConsumed is DosesLogged multiplied by tablets per dose.
func TabletsConsumed(m models.Medication) int {
	return DosesLogged(m) * m.PerDose()
}

// TabletsRemaining may be negative when the ledger was over-logged.
func TabletsRemaining(m models.Medication) int {
	return m.TotalTablets - TabletsConsumed(m)
}

func IsCompleted(m models.Medication) bool {
	return TabletsRemaining(m) <= 0
}

// PercentProgress is in [0, 100]; a non-positive total reports 0.
func PercentProgress(m models.Medication) float64 {
	if m.TotalTablets <= 0 {
		return 0
	}
	p := float64(TabletsConsumed(m)) / float64(m.TotalTablets) * 100
	switch {
	case p < 0:
		return 0
	case p > 100:
		return 100
	}
	return p
}

func DosesTakenToday(m models.Medication, today string) int {
	return m.DosesTaken[today]
}

// DaysRemaining counts today as a day when doses are still owed. ok is
// false when a full day consumes no tablets and the answer is unbounded.
func DaysRemaining(m models.Medication, today string) (days int, ok bool) {
	remaining := TabletsRemaining(m)
	if remaining <= 0 {
		return 0, true
	}

	perDay := m.DosesPerDay * m.PerDose()
	if perDay <= 0 {
		return 0, false
	}

	owedDoses := m.DosesPerDay - DosesTakenToday(m, today)
	if owedDoses < 0 {
		owedDoses = 0
	}
	owedTablets := owedDoses * m.PerDose()

	if remaining <= owedTablets {
		return 1, true
	}
	after := remaining - owedTablets
	return 1 + (after+perDay-1)/perDay, true
}

func CanLogDoseNow(m models.Medication, today string) bool {
	return !IsCompleted(m) && DosesTakenToday(m, today) < m.DosesPerDay
}

// RecordDose returns a copy of m with one more dose logged for today. When
// no dose may be logged, m is returned unchanged with the reason.
func RecordDose(m models.Medication, today string) (models.Medication, error) {
	if IsCompleted(m) {
		return m, ErrCourseCompleted
	}
	if DosesTakenToday(m, today) >= m.DosesPerDay {
		return m, ErrDailyQuotaMet
	}

	taken := make(map[string]int, len(m.DosesTaken)+1)
	for k, v := range m.DosesTaken {
		taken[k] = v
	}
	taken[today]++

	out := m
	out.DosesTaken = taken
	return out, nil
}

// NextReminder returns the earliest reminder strictly after now. There is
// none once today's quota is met, when all reminders have passed, or when
// none are configured.
func NextReminder(m models.Medication, now, today string) (string, bool) {
	if DosesTakenToday(m, today) >= m.DosesPerDay {
		return "", false
	}
	for _, t := range sortedReminders(m.Reminders) {
		if t > now {
			return t, true
		}
	}
	return "", false
}

// HasReminderAt reports whether at is one of m's reminder times. Both sides
// are compared in HH:MM form, so "9:00" matches "09:00"; unparsable entries
// never match.
func HasReminderAt(m models.Medication, at string) bool {
	want, err := NormalizeTime(at)
	if err != nil {
		return false
	}
	for _, r := range m.Reminders {
		if got, err := NormalizeTime(r); err == nil && got == want {
			return true
		}
	}
	return false
}

func sortedReminders(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	sort.Strings(out)
	return out
}
