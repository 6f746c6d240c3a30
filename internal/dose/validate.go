package dose

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"medication-tracker/internal/models"
)

var ErrInvalidPrescription = errors.New("invalid prescription")

// Prescription is the user-editable part of a medication, as entered in a
// form or prefilled from a scanned label.
type Prescription struct {
	Name           string   `json:"name"`
	TotalTablets   int      `json:"totalTablets"`
	DosesPerDay    int      `json:"dosesPerDay"`
	TabletsPerDose int      `json:"tabletsPerDose"`
	Reminders      []string `json:"reminders"`
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidPrescription, fmt.Sprintf(format, args...))
}

// Validate checks the rules every stored medication must satisfy.
func (p Prescription) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return invalid("name is required")
	}
	if p.TotalTablets <= 0 || p.DosesPerDay <= 0 || p.TabletsPerDose <= 0 {
		return invalid("tablet and dose counts must be greater than zero")
	}
	if p.DosesPerDay*p.TabletsPerDose > p.TotalTablets {
		return invalid("daily intake cannot exceed the total number of tablets")
	}
	for _, r := range p.Reminders {
		if _, err := NormalizeTime(r); err != nil {
			return invalid("reminder %q: %v", r, err)
		}
	}
	return nil
}

// NormalizeTime parses "H:MM" or "HH:MM" and returns the zero-padded form.
func NormalizeTime(s string) (string, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return "", fmt.Errorf("want HH:MM")
	}
	return t.Format("15:04"), nil
}

// normalizeReminders assumes the prescription already validated.
func normalizeReminders(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, r := range in {
		n, _ := NormalizeTime(r)
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// NewMedication is the single entry point for creating medications, used by
// manual entry and by scanned prescriptions alike.
func NewMedication(id string, p Prescription, start time.Time) (models.Medication, error) {
	if strings.TrimSpace(id) == "" {
		return models.Medication{}, invalid("id is required")
	}
	if err := p.Validate(); err != nil {
		return models.Medication{}, err
	}
	return models.Medication{
		ID:             id,
		Name:           strings.TrimSpace(p.Name),
		TotalTablets:   p.TotalTablets,
		DosesPerDay:    p.DosesPerDay,
		TabletsPerDose: p.TabletsPerDose,
		StartDate:      start,
		DosesTaken:     map[string]int{},
		Reminders:      normalizeReminders(p.Reminders),
	}, nil
}

// ApplyEdit replaces the prescription parameters of m, keeping its identity
// and ledger.
func ApplyEdit(m models.Medication, p Prescription) (models.Medication, error) {
	if err := p.Validate(); err != nil {
		return m, err
	}
	out := m
	out.Name = strings.TrimSpace(p.Name)
	out.TotalTablets = p.TotalTablets
	out.DosesPerDay = p.DosesPerDay
	out.TabletsPerDose = p.TabletsPerDose
	out.Reminders = normalizeReminders(p.Reminders)
	return out, nil
}

// PrescriptionOf extracts the editable fields of m.
func PrescriptionOf(m models.Medication) Prescription {
	return Prescription{
		Name:           m.Name,
		TotalTablets:   m.TotalTablets,
		DosesPerDay:    m.DosesPerDay,
		TabletsPerDose: m.PerDose(),
		Reminders:      append([]string(nil), m.Reminders...),
	}
}
