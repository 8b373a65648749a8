package handler_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"workclock/internal/clock"
	"workclock/internal/database"
	"workclock/internal/handler"
	"workclock/internal/ledger"
	"workclock/internal/models"
	"workclock/internal/queue"
	"workclock/internal/repository"
	"workclock/internal/router"
	"workclock/internal/timer"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type testServer struct {
	server *httptest.Server
	clock  *clock.Manual
}

func setupServer(t *testing.T) *testServer {
	t.Helper()

	db, err := database.New(filepath.Join(t.TempDir(), "test.db"), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	sessions := repository.NewSessionRepository(db.DB)
	entries := repository.NewEntryRepository(db.DB)
	writeQueue := queue.NewWriteQueue(db.DB, zap.NewNop())
	entryLedger := ledger.New(entries, writeQueue, zap.NewNop())

	clk := clock.NewManual(time.Date(2025, 3, 12, 8, 0, 0, 0, time.UTC))
	machine := timer.NewMachine(clk, sessions, entryLedger, writeQueue, zap.NewNop())

	timerHandler := handler.NewTimerHandler(machine, zap.NewNop())
	entryHandler := handler.NewEntryHandler(entryLedger, zap.NewNop())

	server := httptest.NewServer(router.New(timerHandler, entryHandler, zap.NewNop()))
	t.Cleanup(server.Close)

	return &testServer{server: server, clock: clk}
}

func (ts *testServer) request(t *testing.T, method, path string, body interface{}) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req, err := http.NewRequest(method, ts.server.URL+path, &buf)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decode(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func startBody(owner string) map[string]interface{} {
	return map[string]interface{}{
		"owner_id":            owner,
		"arrival_time":        "08:00",
		"required_work_hours": 8,
	}
}

func ownerBody(owner string) map[string]interface{} {
	return map[string]interface{}{"owner_id": owner}
}

func TestTimerLifecycleOverHTTP(t *testing.T) {
	ts := setupServer(t)

	resp := ts.request(t, http.MethodPost, "/api/v1/timer/start", startBody("owner"))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var session models.Session
	decode(t, resp, &session)
	assert.True(t, session.IsRunning)

	// Pause at noon
	ts.clock.Set(time.Date(2025, 3, 12, 12, 0, 0, 0, time.UTC))
	resp = ts.request(t, http.MethodPost, "/api/v1/timer/pause", ownerBody("owner"))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decode(t, resp, &session)
	assert.True(t, session.IsPaused)
	assert.Equal(t, (4 * time.Hour).Milliseconds(), session.TotalWorkedMs)

	// Pausing twice is a state error
	resp = ts.request(t, http.MethodPost, "/api/v1/timer/pause", ownerBody("owner"))
	resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	ts.clock.Set(time.Date(2025, 3, 12, 12, 30, 0, 0, time.UTC))
	resp = ts.request(t, http.MethodPost, "/api/v1/timer/resume", ownerBody("owner"))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	ts.clock.Set(time.Date(2025, 3, 12, 16, 30, 0, 0, time.UTC))
	resp = ts.request(t, http.MethodGet, "/api/v1/timer/stats?owner_id=owner", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var stats timer.Stats
	decode(t, resp, &stats)
	assert.Equal(t, (8 * time.Hour).Milliseconds(), stats.WorkedMs)
	assert.Equal(t, (30 * time.Minute).Milliseconds(), stats.PausedMs)
	assert.True(t, stats.Complete)

	resp = ts.request(t, http.MethodPost, "/api/v1/timer/complete", ownerBody("owner"))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	// Idle afterward
	resp = ts.request(t, http.MethodPost, "/api/v1/timer/pause", ownerBody("owner"))
	resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = ts.request(t, http.MethodGet, "/api/v1/timer/stats?owner_id=owner", nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestStartValidation(t *testing.T) {
	ts := setupServer(t)

	body := startBody("owner")
	body["required_work_hours"] = 0
	resp := ts.request(t, http.MethodPost, "/api/v1/timer/start", body)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestManualPauseInterval(t *testing.T) {
	ts := setupServer(t)

	resp := ts.request(t, http.MethodPost, "/api/v1/timer/start", startBody("owner"))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp = ts.request(t, http.MethodPost, "/api/v1/timer/manual-pause", map[string]interface{}{
		"owner_id":       "owner",
		"interval_from":  "12:00",
		"interval_until": "12:45",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var session models.Session
	decode(t, resp, &session)
	assert.Equal(t, (45 * time.Minute).Milliseconds(), session.TotalPausedMs)

	// Malformed lunch interval: end before start
	resp = ts.request(t, http.MethodPost, "/api/v1/timer/manual-pause", map[string]interface{}{
		"owner_id":       "owner",
		"interval_from":  "13:00",
		"interval_until": "12:30",
	})
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestEntryHistoryOverHTTP(t *testing.T) {
	ts := setupServer(t)

	resp := ts.request(t, http.MethodPost, "/api/v1/timer/start", startBody("owner"))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	ts.clock.Set(time.Date(2025, 3, 12, 16, 0, 0, 0, time.UTC))
	resp = ts.request(t, http.MethodPost, "/api/v1/timer/complete", ownerBody("owner"))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = ts.request(t, http.MethodGet, "/api/v1/entries?owner_id=owner", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var entries []models.Entry
	decode(t, resp, &entries)
	require.Len(t, entries, 1)
	assert.Equal(t, models.EntryStatusCompleted, entries[0].Status)
	require.NotNil(t, entries[0].CheckOut)
	assert.Equal(t, (8 * time.Hour).Milliseconds(), entries[0].TotalWorkedMs)

	resp = ts.request(t, http.MethodPut, "/api/v1/entries/rename?id="+entries[0].ID, map[string]interface{}{
		"name": "office day",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var renamed models.Entry
	decode(t, resp, &renamed)
	require.NotNil(t, renamed.Name)
	assert.Equal(t, "office day", *renamed.Name)

	resp = ts.request(t, http.MethodDelete, "/api/v1/entries/delete?id="+entries[0].ID, nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = ts.request(t, http.MethodDelete, "/api/v1/entries/delete?id="+entries[0].ID, nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
