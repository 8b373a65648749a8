package repository

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"workclock/internal/apperr"
	"workclock/internal/database"
	"workclock/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupDB(t *testing.T) *database.DB {
	t.Helper()

	db, err := database.New(filepath.Join(t.TempDir(), "test.db"), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return db
}

func testSession(id, owner string) *models.Session {
	arrival := time.Date(2025, 3, 12, 8, 0, 0, 0, time.UTC)
	now := arrival.Add(90 * time.Minute)
	return &models.Session{
		ID:                  id,
		OwnerID:             owner,
		Date:                "2025-03-12",
		ArrivalTime:         "08:00",
		RequiredWorkHours:   8,
		RequiredWorkMinutes: 0,
		IsActive:            true,
		IsRunning:           true,
		StartTime:           &arrival,
		CurrentSessionStart: &now,
		TotalWorkedMs:       (90 * time.Minute).Milliseconds(),
	}
}

func TestSessionCreateAndGetActive(t *testing.T) {
	db := setupDB(t)
	repo := NewSessionRepository(db.DB)

	session := testSession("s1", "owner")
	require.NoError(t, repo.Create(session))

	got, err := repo.GetActive("owner", "2025-03-12")
	require.NoError(t, err)

	assert.Equal(t, session.ID, got.ID)
	assert.Equal(t, session.OwnerID, got.OwnerID)
	assert.Equal(t, session.ArrivalTime, got.ArrivalTime)
	assert.Equal(t, session.RequiredWorkHours, got.RequiredWorkHours)
	assert.True(t, got.IsActive)
	assert.True(t, got.IsRunning)
	assert.False(t, got.IsPaused)
	assert.Equal(t, session.TotalWorkedMs, got.TotalWorkedMs)
	require.NotNil(t, got.StartTime)
	assert.WithinDuration(t, *session.StartTime, *got.StartTime, time.Second)
	require.NotNil(t, got.CurrentSessionStart)
	assert.WithinDuration(t, *session.CurrentSessionStart, *got.CurrentSessionStart, time.Second)
	assert.Nil(t, got.PauseStartTime)
}

func TestSessionGetActiveNone(t *testing.T) {
	db := setupDB(t)
	repo := NewSessionRepository(db.DB)

	_, err := repo.GetActive("owner", "2025-03-12")
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
}

func TestSessionGetActiveIgnoresInactive(t *testing.T) {
	db := setupDB(t)
	repo := NewSessionRepository(db.DB)

	session := testSession("s1", "owner")
	session.IsActive = false
	session.IsRunning = false
	require.NoError(t, repo.Create(session))

	_, err := repo.GetActive("owner", "2025-03-12")
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
}

func TestSessionUpdatePauseTransition(t *testing.T) {
	db := setupDB(t)
	repo := NewSessionRepository(db.DB)

	session := testSession("s1", "owner")
	require.NoError(t, repo.Create(session))

	pauseStart := time.Date(2025, 3, 12, 12, 0, 0, 0, time.UTC)
	worked := (4 * time.Hour).Milliseconds()
	running, paused := false, true
	err := repo.Update("s1", &models.UpdateSessionRequest{
		IsRunning:                &running,
		IsPaused:                 &paused,
		ClearCurrentSessionStart: true,
		PauseStartTime:           &pauseStart,
		TotalWorkedMs:            &worked,
	})
	require.NoError(t, err)

	got, err := repo.GetByID("s1")
	require.NoError(t, err)
	assert.False(t, got.IsRunning)
	assert.True(t, got.IsPaused)
	assert.Nil(t, got.CurrentSessionStart)
	require.NotNil(t, got.PauseStartTime)
	assert.WithinDuration(t, pauseStart, *got.PauseStartTime, time.Second)
	assert.Equal(t, worked, got.TotalWorkedMs)
	// Untouched fields keep their values
	assert.Equal(t, session.TotalPausedMs, got.TotalPausedMs)
	assert.Equal(t, session.ArrivalTime, got.ArrivalTime)
}

func TestSessionUpdateUnknownID(t *testing.T) {
	db := setupDB(t)
	repo := NewSessionRepository(db.DB)

	active := false
	err := repo.Update("missing", &models.UpdateSessionRequest{IsActive: &active})
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
}
