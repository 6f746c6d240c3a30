package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"medication-tracker/internal/dose"
	"medication-tracker/internal/models"
	"medication-tracker/internal/storage"
)

type userRequest struct {
	TZ                   *string `json:"tz"`
	NotificationsEnabled *bool   `json:"notifications_enabled"`
	AutoLog              *bool   `json:"auto_log"`
	Sound                *bool   `json:"sound"`
}

// medicationInput is one entry of a whole-list save. ID, startDate and
// dosesTaken are optional so the same shape serves new and existing entries.
type medicationInput struct {
	ID string `json:"id"`
	dose.Prescription
	StartDate  *time.Time     `json:"startDate"`
	DosesTaken map[string]int `json:"dosesTaken"`
}

type shareResponse struct {
	Text string `json:"text"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *server) internal(w http.ResponseWriter, op string, err error) {
	s.log.Errorw(op, "error", err)
	http.Error(w, "internal error", http.StatusInternalServerError)
}

// ---------- users ----------

func (s *server) putUser(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	var req userRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	u, err := s.store.GetUser(r.Context(), userID)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		u = &models.User{
			ID:                   userID,
			TZ:                   "UTC",
			NotificationsEnabled: true,
			Sound:                true,
			CreatedAt:            s.clock.Now().UTC(),
		}
	case err != nil:
		s.internal(w, "load user", err)
		return
	}

	if req.TZ != nil {
		if _, err := models.ParseTZ(*req.TZ); err != nil {
			http.Error(w, "tz must be an IANA zone or ±HH:MM", http.StatusBadRequest)
			return
		}
		u.TZ = *req.TZ
	}
	if req.NotificationsEnabled != nil {
		u.NotificationsEnabled = *req.NotificationsEnabled
	}
	if req.AutoLog != nil {
		u.AutoLog = *req.AutoLog
	}
	if req.Sound != nil {
		u.Sound = *req.Sound
	}

	if err := s.store.UpsertUser(r.Context(), u); err != nil {
		s.internal(w, "upsert user", err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (s *server) getUser(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, userFrom(r.Context()))
}

// ---------- medication list ----------

func (s *server) listMedications(w http.ResponseWriter, r *http.Request) {
	u := userFrom(r.Context())
	meds, err := s.store.GetMedications(r.Context(), u.ID)
	if err != nil {
		s.internal(w, "list medications", err)
		return
	}
	writeJSON(w, http.StatusOK, meds)
}

func (s *server) listNames(w http.ResponseWriter, r *http.Request) {
	u := userFrom(r.Context())
	meds, err := s.store.GetMedications(r.Context(), u.ID)
	if err != nil {
		s.internal(w, "list medications", err)
		return
	}
	writeJSON(w, http.StatusOK, dose.UniqueNames(meds))
}

// saveMedications replaces the whole list. Every entry is validated first;
// one bad entry rejects the request and nothing is written.
func (s *server) saveMedications(w http.ResponseWriter, r *http.Request) {
	u := userFrom(r.Context())

	var in []medicationInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	now := s.clock.Now().In(u.Location())
	meds := make([]models.Medication, 0, len(in))
	seen := map[string]bool{}
	for i, item := range in {
		m, err := item.toMedication(now)
		if err != nil {
			http.Error(w, fmt.Sprintf("medication %d: %v", i, err), http.StatusBadRequest)
			return
		}
		if seen[m.ID] {
			http.Error(w, fmt.Sprintf("medication %d: duplicate id %s", i, m.ID), http.StatusBadRequest)
			return
		}
		seen[m.ID] = true
		meds = append(meds, m)
	}

	if err := s.store.SaveMedications(r.Context(), u.ID, meds); err != nil {
		s.internal(w, "save medications", err)
		return
	}
	s.log.Infow("medications saved", "user_id", u.ID, "count", len(meds))
	writeJSON(w, http.StatusOK, meds)
}

func (in medicationInput) toMedication(now time.Time) (models.Medication, error) {
	id := in.ID
	if id == "" {
		id = uuid.NewString()
	}
	// older stored records have no tabletsPerDose
	if in.TabletsPerDose == 0 {
		in.TabletsPerDose = 1
	}
	start := now
	if in.StartDate != nil {
		start = *in.StartDate
	}
	m, err := dose.NewMedication(id, in.Prescription, start)
	if err != nil {
		return m, err
	}
	for day, n := range in.DosesTaken {
		if _, err := time.Parse("2006-01-02", day); err != nil {
			return m, fmt.Errorf("dosesTaken key %q: want YYYY-MM-DD", day)
		}
		if n < 0 {
			return m, fmt.Errorf("dosesTaken[%s] is negative", day)
		}
		m.DosesTaken[day] = n
	}
	return m, nil
}

// ---------- single medication ----------

func (s *server) createMedication(w http.ResponseWriter, r *http.Request) {
	u := userFrom(r.Context())

	var p dose.Prescription
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	m, err := dose.NewMedication(uuid.NewString(), p, s.clock.Now().In(u.Location()))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := s.store.AddMedication(r.Context(), u.ID, m); err != nil {
		s.internal(w, "add medication", err)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

// medication loads {medID} or answers 404.
func (s *server) medication(w http.ResponseWriter, r *http.Request) (*models.User, models.Medication, bool) {
	u := userFrom(r.Context())
	m, err := s.store.GetMedication(r.Context(), u.ID, chi.URLParam(r, "medID"))
	if errors.Is(err, storage.ErrNotFound) {
		http.Error(w, "medication not found", http.StatusNotFound)
		return u, m, false
	}
	if err != nil {
		s.internal(w, "load medication", err)
		return u, m, false
	}
	return u, m, true
}

func (s *server) getMedication(w http.ResponseWriter, r *http.Request) {
	if _, m, ok := s.medication(w, r); ok {
		writeJSON(w, http.StatusOK, m)
	}
}

func (s *server) updateMedication(w http.ResponseWriter, r *http.Request) {
	u, m, ok := s.medication(w, r)
	if !ok {
		return
	}

	var p dose.Prescription
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	edited, err := dose.ApplyEdit(m, p)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := s.store.UpdateMedication(r.Context(), u.ID, edited); err != nil {
		s.internal(w, "update medication", err)
		return
	}
	writeJSON(w, http.StatusOK, edited)
}

func (s *server) deleteMedication(w http.ResponseWriter, r *http.Request) {
	u := userFrom(r.Context())
	err := s.store.DeleteMedication(r.Context(), u.ID, chi.URLParam(r, "medID"))
	if errors.Is(err, storage.ErrNotFound) {
		http.Error(w, "medication not found", http.StatusNotFound)
		return
	}
	if err != nil {
		s.internal(w, "delete medication", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) recordDose(w http.ResponseWriter, r *http.Request) {
	u, m, ok := s.medication(w, r)
	if !ok {
		return
	}

	now := s.clock.Now().In(u.Location())
	updated, err := dose.RecordDose(m, dose.DayKey(now))
	if errors.Is(err, dose.ErrCourseCompleted) || errors.Is(err, dose.ErrDailyQuotaMet) {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	if err != nil {
		s.internal(w, "record dose", err)
		return
	}
	if err := s.store.UpdateMedication(r.Context(), u.ID, updated); err != nil {
		s.internal(w, "record dose", err)
		return
	}
	writeJSON(w, http.StatusOK, dose.Summarize(updated, now))
}

func (s *server) progress(w http.ResponseWriter, r *http.Request) {
	if u, m, ok := s.medication(w, r); ok {
		writeJSON(w, http.StatusOK, dose.Summarize(m, s.clock.Now().In(u.Location())))
	}
}

func (s *server) history(w http.ResponseWriter, r *http.Request) {
	if _, m, ok := s.medication(w, r); ok {
		writeJSON(w, http.StatusOK, dose.History(m))
	}
}

func (s *server) share(w http.ResponseWriter, r *http.Request) {
	if u, m, ok := s.medication(w, r); ok {
		sum := dose.Summarize(m, s.clock.Now().In(u.Location()))
		writeJSON(w, http.StatusOK, shareResponse{Text: dose.ShareText(sum)})
	}
}
