package dose

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrescriptionValidate(t *testing.T) {
	tests := []struct {
		name    string
		p       Prescription
		wantErr bool
	}{
		{"ok", Prescription{Name: "Ibuprofen", TotalTablets: 20, DosesPerDay: 2, TabletsPerDose: 1}, false},
		{"ok with reminders", Prescription{Name: "Ibuprofen", TotalTablets: 20, DosesPerDay: 2, TabletsPerDose: 1, Reminders: []string{"9:00", "21:15"}}, false},
		{"daily intake equals total", Prescription{Name: "x", TotalTablets: 4, DosesPerDay: 2, TabletsPerDose: 2}, false},
		{"blank name", Prescription{Name: "  ", TotalTablets: 20, DosesPerDay: 2, TabletsPerDose: 1}, true},
		{"zero total", Prescription{Name: "x", TotalTablets: 0, DosesPerDay: 2, TabletsPerDose: 1}, true},
		{"zero per day", Prescription{Name: "x", TotalTablets: 10, DosesPerDay: 0, TabletsPerDose: 1}, true},
		{"zero per dose", Prescription{Name: "x", TotalTablets: 10, DosesPerDay: 1, TabletsPerDose: 0}, true},
		{"daily intake exceeds total", Prescription{Name: "x", TotalTablets: 5, DosesPerDay: 3, TabletsPerDose: 2}, true},
		{"bad reminder", Prescription{Name: "x", TotalTablets: 10, DosesPerDay: 1, TabletsPerDose: 1, Reminders: []string{"25:00"}}, true},
		{"garbage reminder", Prescription{Name: "x", TotalTablets: 10, DosesPerDay: 1, TabletsPerDose: 1, Reminders: []string{"soon"}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.p.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidPrescription)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestNewMedication(t *testing.T) {
	start := time.Date(2024, 2, 1, 10, 0, 0, 0, time.UTC)
	m, err := NewMedication("id-1", Prescription{
		Name:           "  Vitamin D ",
		TotalTablets:   60,
		DosesPerDay:    2,
		TabletsPerDose: 1,
		Reminders:      []string{"21:00", "9:00", "09:00"},
	}, start)
	require.NoError(t, err)

	assert.Equal(t, "id-1", m.ID)
	assert.Equal(t, "Vitamin D", m.Name)
	assert.Equal(t, start, m.StartDate)
	assert.NotNil(t, m.DosesTaken)
	assert.Empty(t, m.DosesTaken)
	assert.Equal(t, []string{"09:00", "21:00"}, m.Reminders)
}

func TestNewMedicationRejectsInvalid(t *testing.T) {
	_, err := NewMedication("id-1", Prescription{Name: "x", TotalTablets: 1, DosesPerDay: 2, TabletsPerDose: 1}, time.Now())
	assert.ErrorIs(t, err, ErrInvalidPrescription)

	_, err = NewMedication("", Prescription{Name: "x", TotalTablets: 10, DosesPerDay: 1, TabletsPerDose: 1}, time.Now())
	assert.ErrorIs(t, err, ErrInvalidPrescription)
}

func TestApplyEditKeepsLedger(t *testing.T) {
	m := med(30, 2, 1, map[string]int{"2024-01-01": 2})
	edited, err := ApplyEdit(m, Prescription{Name: "Renamed", TotalTablets: 40, DosesPerDay: 1, TabletsPerDose: 2, Reminders: []string{"08:00"}})
	require.NoError(t, err)

	assert.Equal(t, m.ID, edited.ID)
	assert.Equal(t, "Renamed", edited.Name)
	assert.Equal(t, 40, edited.TotalTablets)
	assert.Equal(t, m.DosesTaken, edited.DosesTaken)
	assert.Equal(t, 36, TabletsRemaining(edited))

	_, err = ApplyEdit(m, Prescription{Name: "x"})
	assert.Error(t, err)
}

func TestPrescriptionOfDefaultsPerDose(t *testing.T) {
	p := PrescriptionOf(med(10, 1, 0, nil))
	assert.Equal(t, 1, p.TabletsPerDose)
	assert.NoError(t, p.Validate())
}
