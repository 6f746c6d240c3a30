package api_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"medication-tracker/internal/api"
	"medication-tracker/internal/dose"
	"medication-tracker/internal/models"
	"medication-tracker/internal/storage"
)

var nineAM = time.Date(2024, 1, 2, 9, 30, 0, 0, time.UTC)

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	db, err := storage.New(filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	ts := httptest.NewServer(api.NewRouter(api.Options{
		Store: db,
		Clock: clockwork.NewFakeClockAt(nineAM),
		Log:   zaptest.NewLogger(t).Sugar(),
	}))
	t.Cleanup(ts.Close)
	return ts
}

func TestHTTP_EndToEnd_MedicationLifecycle(t *testing.T) {
	ts := newServer(t)
	const uid = "user-1"

	// 1) profile upsert
	{
		st, body := doReq(t, ts.URL, "PUT", "/users/"+uid, uid, map[string]any{"tz": "+02:00", "auto_log": true})
		require.Equal(t, http.StatusOK, st, string(body))

		var u models.User
		require.NoError(t, json.Unmarshal(body, &u))
		assert.Equal(t, "+02:00", u.TZ)
		assert.True(t, u.AutoLog)
		assert.True(t, u.NotificationsEnabled)
	}

	// 2) create
	var med models.Medication
	{
		st, body := doReq(t, ts.URL, "POST", "/users/"+uid+"/medications", uid, map[string]any{
			"name": "Zinc", "totalTablets": 10, "dosesPerDay": 2, "tabletsPerDose": 1,
			"reminders": []string{"21:00", "9:00"},
		})
		require.Equal(t, http.StatusCreated, st, string(body))
		require.NoError(t, json.Unmarshal(body, &med))
		assert.NotEmpty(t, med.ID)
		assert.Equal(t, []string{"09:00", "21:00"}, med.Reminders)
	}
	medPath := "/users/" + uid + "/medications/" + med.ID

	// 3) log both doses of the day, the third is refused
	for i := 0; i < 2; i++ {
		st, body := doReq(t, ts.URL, "POST", medPath+"/doses", uid, nil)
		require.Equal(t, http.StatusOK, st, string(body))
	}
	{
		st, _ := doReq(t, ts.URL, "POST", medPath+"/doses", uid, nil)
		assert.Equal(t, http.StatusConflict, st)
	}

	// 4) progress at 11:30 local time
	{
		st, body := doReq(t, ts.URL, "GET", medPath+"/progress", uid, nil)
		require.Equal(t, http.StatusOK, st)

		var s dose.Summary
		require.NoError(t, json.Unmarshal(body, &s))
		assert.Equal(t, "2024-01-02", s.Today)
		assert.Equal(t, 8, s.TabletsRemaining)
		assert.InDelta(t, 20.0, s.Percent, 0.001)
		assert.Equal(t, 5, s.DaysRemaining)
		assert.False(t, s.CanLogDose)
		assert.Equal(t, dose.ReminderQuotaMet, s.ReminderStatus)
	}

	// 5) history and share
	{
		st, body := doReq(t, ts.URL, "GET", medPath+"/history", uid, nil)
		require.Equal(t, http.StatusOK, st)
		assert.JSONEq(t, `[{"day":"2024-01-02","doses":2}]`, string(body))

		st, body = doReq(t, ts.URL, "GET", medPath+"/share", uid, nil)
		require.Equal(t, http.StatusOK, st)
		assert.JSONEq(t, `{"text":"Medication Progress for Zinc: I have 8 tablets left and 5 days to go!"}`, string(body))
	}

	// 6) edit keeps the ledger
	{
		st, body := doReq(t, ts.URL, "PUT", medPath, uid, map[string]any{
			"name": "Zinc 25", "totalTablets": 20, "dosesPerDay": 2, "tabletsPerDose": 1,
		})
		require.Equal(t, http.StatusOK, st, string(body))

		var m models.Medication
		require.NoError(t, json.Unmarshal(body, &m))
		assert.Equal(t, map[string]int{"2024-01-02": 2}, m.DosesTaken)
		assert.Empty(t, m.Reminders)
	}

	// 7) names, then delete
	{
		st, body := doReq(t, ts.URL, "GET", "/users/"+uid+"/medication-names", uid, nil)
		require.Equal(t, http.StatusOK, st)
		assert.JSONEq(t, `["Zinc 25"]`, string(body))

		st, _ = doReq(t, ts.URL, "DELETE", medPath, uid, nil)
		assert.Equal(t, http.StatusNoContent, st)

		st, _ = doReq(t, ts.URL, "GET", medPath, uid, nil)
		assert.Equal(t, http.StatusNotFound, st)

		st, _ = doReq(t, ts.URL, "DELETE", medPath, uid, nil)
		assert.Equal(t, http.StatusNotFound, st)
	}
}

func TestHTTP_SaveWholeList(t *testing.T) {
	ts := newServer(t)
	const uid = "user-1"
	mustPutUser(t, ts.URL, uid)

	list := []map[string]any{
		{"id": "b", "name": "Iron", "totalTablets": 30, "dosesPerDay": 1, "tabletsPerDose": 1,
			"startDate": "2023-12-01T08:00:00Z", "dosesTaken": map[string]int{"2023-12-01": 1}},
		{"name": "Zinc", "totalTablets": 10, "dosesPerDay": 0, "tabletsPerDose": 1},
	}
	// one invalid entry rejects the whole list
	st, _ := doReq(t, ts.URL, "PUT", "/users/"+uid+"/medications", uid, list)
	assert.Equal(t, http.StatusBadRequest, st)
	_, body := doReq(t, ts.URL, "GET", "/users/"+uid+"/medications", uid, nil)
	assert.JSONEq(t, `[]`, string(body))

	list[1]["dosesPerDay"] = 1
	st, body = doReq(t, ts.URL, "PUT", "/users/"+uid+"/medications", uid, list)
	require.Equal(t, http.StatusOK, st, string(body))

	st, body = doReq(t, ts.URL, "GET", "/users/"+uid+"/medications", uid, nil)
	require.Equal(t, http.StatusOK, st)
	var meds []models.Medication
	require.NoError(t, json.Unmarshal(body, &meds))
	require.Len(t, meds, 2)
	assert.Equal(t, "b", meds[0].ID)
	assert.Equal(t, 1, meds[0].DosesTaken["2023-12-01"])
	assert.Equal(t, "Zinc", meds[1].Name)
	assert.True(t, meds[1].StartDate.Equal(nineAM))

	// replacing with an empty list clears it
	st, _ = doReq(t, ts.URL, "PUT", "/users/"+uid+"/medications", uid, []any{})
	require.Equal(t, http.StatusOK, st)
	_, body = doReq(t, ts.URL, "GET", "/users/"+uid+"/medications", uid, nil)
	assert.JSONEq(t, `[]`, string(body))
}

func TestHTTP_SaveWholeListAcceptsRecordsWithoutTabletsPerDose(t *testing.T) {
	ts := newServer(t)
	const uid = "user-1"
	mustPutUser(t, ts.URL, uid)

	list := []map[string]any{{
		"id": "m1", "name": "Aspirin", "totalTablets": 30, "dosesPerDay": 2,
		"startDate": "2024-01-01T08:00:00Z", "dosesTaken": map[string]int{"2024-01-01": 2},
		"reminders": []string{"09:00"},
	}}
	st, body := doReq(t, ts.URL, "PUT", "/users/"+uid+"/medications", uid, list)
	require.Equal(t, http.StatusOK, st, string(body))

	st, body = doReq(t, ts.URL, "GET", "/users/"+uid+"/medications/m1/progress", uid, nil)
	require.Equal(t, http.StatusOK, st)
	var s dose.Summary
	require.NoError(t, json.Unmarshal(body, &s))
	assert.Equal(t, 28, s.TabletsRemaining)

	st, body = doReq(t, ts.URL, "GET", "/users/"+uid+"/medications/m1", uid, nil)
	require.Equal(t, http.StatusOK, st)
	var m models.Medication
	require.NoError(t, json.Unmarshal(body, &m))
	assert.Equal(t, 1, m.TabletsPerDose)
	assert.Equal(t, 2, m.DosesTaken["2024-01-01"])
}

func TestHTTP_SaveWholeListRejectsBadLedger(t *testing.T) {
	ts := newServer(t)
	const uid = "user-1"
	mustPutUser(t, ts.URL, uid)

	for _, bad := range []map[string]any{
		{"id": "a", "name": "Zinc", "totalTablets": 10, "dosesPerDay": 1, "tabletsPerDose": 1, "dosesTaken": map[string]int{"yesterday": 1}},
		{"id": "a", "name": "Zinc", "totalTablets": 10, "dosesPerDay": 1, "tabletsPerDose": 1, "dosesTaken": map[string]int{"2024-01-01": -1}},
		{"id": "a", "name": "", "totalTablets": 10, "dosesPerDay": 1, "tabletsPerDose": 1},
	} {
		st, _ := doReq(t, ts.URL, "PUT", "/users/"+uid+"/medications", uid, []any{bad})
		assert.Equal(t, http.StatusBadRequest, st)
	}

	dup := map[string]any{"id": "a", "name": "Zinc", "totalTablets": 10, "dosesPerDay": 1, "tabletsPerDose": 1}
	st, _ := doReq(t, ts.URL, "PUT", "/users/"+uid+"/medications", uid, []any{dup, dup})
	assert.Equal(t, http.StatusBadRequest, st)
}

func TestHTTP_Auth(t *testing.T) {
	ts := newServer(t)
	mustPutUser(t, ts.URL, "owner")

	st, _ := doReq(t, ts.URL, "GET", "/users/owner/medications", "", nil)
	assert.Equal(t, http.StatusUnauthorized, st)

	st, _ = doReq(t, ts.URL, "GET", "/users/owner/medications", "intruder", nil)
	assert.Equal(t, http.StatusForbidden, st)

	// a user without a profile has nothing to list
	st, _ = doReq(t, ts.URL, "GET", "/users/ghost/medications", "ghost", nil)
	assert.Equal(t, http.StatusNotFound, st)

	st, body := doReq(t, ts.URL, "GET", "/health", "", nil)
	assert.Equal(t, http.StatusOK, st)
	assert.Equal(t, "ok", string(body))
}

func TestHTTP_Validation(t *testing.T) {
	ts := newServer(t)
	const uid = "user-1"
	mustPutUser(t, ts.URL, uid)

	st, _ := doReq(t, ts.URL, "PUT", "/users/"+uid, uid, map[string]any{"tz": "Mars/Olympus"})
	assert.Equal(t, http.StatusBadRequest, st)

	st, body := doReq(t, ts.URL, "POST", "/users/"+uid+"/medications", uid, map[string]any{
		"name": "Zinc", "totalTablets": 2, "dosesPerDay": 3, "tabletsPerDose": 1,
	})
	assert.Equal(t, http.StatusBadRequest, st)
	assert.Contains(t, string(body), "daily intake")

	st, _ = doReq(t, ts.URL, "POST", "/users/"+uid+"/medications/nope/doses", uid, nil)
	assert.Equal(t, http.StatusNotFound, st)
}

func mustPutUser(t *testing.T, baseURL, uid string) {
	t.Helper()
	st, body := doReq(t, baseURL, "PUT", "/users/"+uid, uid, map[string]any{})
	require.Equal(t, http.StatusOK, st, string(body))
}

func doReq(t *testing.T, baseURL, method, path, userID string, body any) (int, []byte) {
	t.Helper()

	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rdr = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, baseURL+path, rdr)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if userID != "" {
		req.Header.Set(api.UserHeader, userID)
	}

	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer res.Body.Close()

	b, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	return res.StatusCode, bytes.TrimSpace(b)
}
