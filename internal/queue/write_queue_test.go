package queue

import (
	"path/filepath"
	"testing"
	"time"

	"workclock/internal/database"
	"workclock/internal/models"
	"workclock/internal/repository"

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

func sessionIntent(id string, workedMs int64) WriteIntent {
	return WriteIntent{
		Target:   TargetSession,
		TargetID: id,
		SessionUpdate: &models.UpdateSessionRequest{
			TotalWorkedMs: &workedMs,
		},
	}
}

func sessionSnapshot(id, owner string) *models.Session {
	arrival := time.Date(2025, 3, 12, 8, 0, 0, 0, time.UTC)
	return &models.Session{
		ID:                  id,
		OwnerID:             owner,
		Date:                "2025-03-12",
		ArrivalTime:         "08:00",
		RequiredWorkHours:   8,
		IsActive:            true,
		IsRunning:           true,
		StartTime:           &arrival,
		CurrentSessionStart: &arrival,
	}
}

func TestEnqueueDequeueRoundTrip(t *testing.T) {
	db := setupDB(t)
	wq := NewWriteQueue(db.DB, zap.NewNop())

	require.NoError(t, wq.Enqueue(sessionIntent("s1", 1000)))
	require.NoError(t, wq.Enqueue(sessionIntent("s2", 2000)))

	count, err := wq.GetPendingCount()
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	writes, err := wq.Dequeue(10)
	require.NoError(t, err)
	require.Len(t, writes, 2)
	assert.Equal(t, TargetSession, writes[0].Intent.Target)
	assert.Equal(t, "s1", writes[0].Intent.TargetID)
	require.NotNil(t, writes[0].Intent.SessionUpdate)
	require.NotNil(t, writes[0].Intent.SessionUpdate.TotalWorkedMs)
	assert.Equal(t, int64(1000), *writes[0].Intent.SessionUpdate.TotalWorkedMs)
}

func TestRemoveAndRetryBookkeeping(t *testing.T) {
	db := setupDB(t)
	wq := NewWriteQueue(db.DB, zap.NewNop())

	require.NoError(t, wq.Enqueue(sessionIntent("s1", 1000)))
	require.NoError(t, wq.Enqueue(sessionIntent("s2", 2000)))

	writes, err := wq.Dequeue(10)
	require.NoError(t, err)
	require.Len(t, writes, 2)

	require.NoError(t, wq.Remove([]int64{writes[0].ID}))
	require.NoError(t, wq.IncrementRetry([]int64{writes[1].ID}))

	remaining, err := wq.Dequeue(10)
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, writes[1].ID, remaining[0].ID)
	assert.Equal(t, 1, remaining[0].RetryCount)
}

func TestProcessorRepaysParkedSessionWrite(t *testing.T) {
	db := setupDB(t)
	wq := NewWriteQueue(db.DB, zap.NewNop())
	sessions := repository.NewSessionRepository(db.DB)
	entries := repository.NewEntryRepository(db.DB)

	require.NoError(t, sessions.Create(sessionSnapshot("s1", "owner")))

	require.NoError(t, wq.Enqueue(sessionIntent("s1", 5000)))

	p := NewProcessor(wq, sessions, entries, time.Minute, zap.NewNop())
	p.processQueue()

	got, err := sessions.GetByID("s1")
	require.NoError(t, err)
	assert.Equal(t, int64(5000), got.TotalWorkedMs)

	count, err := wq.GetPendingCount()
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

// A session whose initial insert never reached the store exists only as a
// parked snapshot. Draining the queue must recreate the row before replaying
// the updates parked behind it.
func TestProcessorRecreatesSessionFromParkedSnapshot(t *testing.T) {
	db := setupDB(t)
	wq := NewWriteQueue(db.DB, zap.NewNop())
	sessions := repository.NewSessionRepository(db.DB)
	entries := repository.NewEntryRepository(db.DB)

	snapshot := sessionSnapshot("s1", "owner")
	require.NoError(t, wq.Enqueue(WriteIntent{
		Target:        TargetSession,
		TargetID:      "s1",
		SessionCreate: snapshot,
	}))
	require.NoError(t, wq.Enqueue(sessionIntent("s1", 5000)))

	p := NewProcessor(wq, sessions, entries, time.Minute, zap.NewNop())
	p.processQueue()

	got, err := sessions.GetByID("s1")
	require.NoError(t, err)
	assert.True(t, got.IsActive)
	assert.Equal(t, "owner", got.OwnerID)
	assert.Equal(t, int64(5000), got.TotalWorkedMs)

	count, err := wq.GetPendingCount()
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

// Replaying a create whose row already landed must count as applied, not spin
// on the primary key conflict.
func TestProcessorCreateReplayOnExistingRow(t *testing.T) {
	db := setupDB(t)
	wq := NewWriteQueue(db.DB, zap.NewNop())
	sessions := repository.NewSessionRepository(db.DB)
	entries := repository.NewEntryRepository(db.DB)

	snapshot := sessionSnapshot("s1", "owner")
	require.NoError(t, sessions.Create(snapshot))
	require.NoError(t, wq.Enqueue(WriteIntent{
		Target:        TargetSession,
		TargetID:      "s1",
		SessionCreate: snapshot,
	}))

	p := NewProcessor(wq, sessions, entries, time.Minute, zap.NewNop())
	p.processQueue()

	count, err := wq.GetPendingCount()
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	_, err = sessions.GetByID("s1")
	require.NoError(t, err)
}

func TestProcessorRecreatesEntryFromParkedSnapshot(t *testing.T) {
	db := setupDB(t)
	wq := NewWriteQueue(db.DB, zap.NewNop())
	sessions := repository.NewSessionRepository(db.DB)
	entries := repository.NewEntryRepository(db.DB)

	require.NoError(t, sessions.Create(sessionSnapshot("s1", "owner")))

	checkIn := time.Date(2025, 3, 12, 8, 0, 0, 0, time.UTC)
	require.NoError(t, wq.Enqueue(WriteIntent{
		Target:   TargetEntry,
		TargetID: "e1",
		EntryCreate: &models.Entry{
			ID:        "e1",
			OwnerID:   "owner",
			SessionID: "s1",
			Date:      checkIn,
			CheckIn:   checkIn,
			Status:    models.EntryStatusActive,
		},
	}))

	p := NewProcessor(wq, sessions, entries, time.Minute, zap.NewNop())
	p.processQueue()

	got, err := entries.GetByID("e1")
	require.NoError(t, err)
	assert.Equal(t, "s1", got.SessionID)

	count, err := wq.GetPendingCount()
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestProcessorDropsWriteForMissingTarget(t *testing.T) {
	db := setupDB(t)
	wq := NewWriteQueue(db.DB, zap.NewNop())
	sessions := repository.NewSessionRepository(db.DB)
	entries := repository.NewEntryRepository(db.DB)

	require.NoError(t, wq.Enqueue(sessionIntent("vanished", 5000)))

	p := NewProcessor(wq, sessions, entries, time.Minute, zap.NewNop())
	p.processQueue()

	count, err := wq.GetPendingCount()
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestCleanupOldWritesKeepsFreshOnes(t *testing.T) {
	db := setupDB(t)
	wq := NewWriteQueue(db.DB, zap.NewNop())

	require.NoError(t, wq.Enqueue(sessionIntent("s1", 1000)))

	// Fresh and under the retry threshold: survives cleanup
	require.NoError(t, wq.CleanupOldWrites(time.Hour))

	count, err := wq.GetPendingCount()
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
