package models

import "time"

// Medication is one prescription course tracked for a user.
type Medication struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	TotalTablets int    `json:"totalTablets"`
	DosesPerDay  int    `json:"dosesPerDay"`
	// Older records were stored without this field; zero reads as 1.
	TabletsPerDose int            `json:"tabletsPerDose,omitempty"`
	StartDate      time.Time      `json:"startDate"`
	DosesTaken     map[string]int `json:"dosesTaken"` // YYYY-MM-DD -> dose events
	Reminders      []string       `json:"reminders,omitempty"` // "HH:MM"
}

// PerDose returns the tablets consumed by one dose event.
func (m Medication) PerDose() int {
	if m.TabletsPerDose <= 0 {
		return 1
	}
	return m.TabletsPerDose
}

// User holds reminder settings for one account.
type User struct {
	ID                   string    `db:"id"                    json:"id"`
	ChatID               int64     `db:"chat_id"               json:"chat_id,omitempty"`
	TZ                   string    `db:"tz"                    json:"tz"`
	NotificationsEnabled bool      `db:"notifications_enabled" json:"notifications_enabled"`
	AutoLog              bool      `db:"auto_log"              json:"auto_log"`
	Sound                bool      `db:"sound"                 json:"sound"`
	CreatedAt            time.Time `db:"created_at"            json:"created_at"`
}

// Location resolves the user's time zone (IANA name or "+03:00" offset),
// falling back to UTC.
func (u User) Location() *time.Location {
	loc, err := ParseTZ(u.TZ)
	if err != nil {
		return time.UTC
	}
	return loc
}

// ParseTZ accepts an IANA zone name or a fixed "±HH:MM" offset.
func ParseTZ(tz string) (*time.Location, error) {
	if tz == "" {
		return time.UTC, nil
	}
	if tz[0] == '+' || tz[0] == '-' {
		t, err := time.Parse("-07:00", tz)
		if err != nil {
			return nil, err
		}
		_, offset := t.Zone()
		return time.FixedZone(tz, offset), nil
	}
	return time.LoadLocation(tz)
}

// Notification is a reminder ready for delivery.
type Notification struct {
	Title string
	Body  string
	Sound bool
	// MedicationID lets the transport attach a "take dose" action.
	MedicationID string
}
