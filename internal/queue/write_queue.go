package queue

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"workclock/internal/models"

	"go.uber.org/zap"
)

type WriteTarget string

const (
	TargetSession WriteTarget = "session"
	TargetEntry   WriteTarget = "entry"
)

// WriteIntent is a persistence mutation that could not be applied when its
// state transition happened. The in-memory state has already advanced; the
// intent is parked here until the store accepts it. A failed initial insert
// carries the full record snapshot so the row can be recreated on replay.
type WriteIntent struct {
	Target        WriteTarget                  `json:"target"`
	TargetID      string                       `json:"target_id"`
	SessionCreate *models.Session              `json:"session_create,omitempty"`
	SessionUpdate *models.UpdateSessionRequest `json:"session_update,omitempty"`
	EntryCreate   *models.Entry                `json:"entry_create,omitempty"`
	EntryUpdate   *models.UpdateEntryRequest   `json:"entry_update,omitempty"`
}

// PendingWrite is a queued intent with its row id.
type PendingWrite struct {
	ID         int64
	RetryCount int
	Intent     WriteIntent
}

// WriteQueue manages the durable queue of pending persistence writes.
type WriteQueue struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewWriteQueue(db *sql.DB, logger *zap.Logger) *WriteQueue {
	return &WriteQueue{
		db:     db,
		logger: logger,
	}
}

// Enqueue parks a failed write for later retry.
func (wq *WriteQueue) Enqueue(intent WriteIntent) error {
	payload, err := json.Marshal(intent)
	if err != nil {
		return fmt.Errorf("failed to marshal write intent: %w", err)
	}

	_, err = wq.db.Exec(`
		INSERT INTO pending_writes (target, target_id, payload, created_at, retry_count)
		VALUES (?, ?, ?, ?, 0)
	`, string(intent.Target), intent.TargetID, string(payload), time.Now())
	if err != nil {
		return fmt.Errorf("failed to enqueue write: %w", err)
	}

	wq.logger.Debug("Write intent enqueued",
		zap.String("target", string(intent.Target)),
		zap.String("target_id", intent.TargetID),
	)

	return nil
}

// Dequeue retrieves a batch of pending writes, oldest first. The id
// tiebreak keeps a create ahead of updates parked in the same instant.
func (wq *WriteQueue) Dequeue(limit int) ([]PendingWrite, error) {
	rows, err := wq.db.Query(`
		SELECT id, payload, retry_count
		FROM pending_writes
		ORDER BY created_at ASC, id ASC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending writes: %w", err)
	}
	defer rows.Close()

	var writes []PendingWrite
	for rows.Next() {
		var pw PendingWrite
		var payload string

		if err := rows.Scan(&pw.ID, &payload, &pw.RetryCount); err != nil {
			wq.logger.Error("Failed to scan row", zap.Error(err))
			continue
		}

		if err := json.Unmarshal([]byte(payload), &pw.Intent); err != nil {
			wq.logger.Error("Failed to unmarshal write intent", zap.Error(err), zap.Int64("id", pw.ID))
			// Remove corrupted intent
			wq.db.Exec("DELETE FROM pending_writes WHERE id = ?", pw.ID)
			continue
		}

		writes = append(writes, pw)
	}

	return writes, rows.Err()
}

// Remove deletes applied writes by their row ids.
func (wq *WriteQueue) Remove(ids []int64) error {
	if len(ids) == 0 {
		return nil
	}

	query := "DELETE FROM pending_writes WHERE id IN ("
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		if i > 0 {
			query += ","
		}
		query += "?"
		args[i] = id
	}
	query += ")"

	result, err := wq.db.Exec(query, args...)
	if err != nil {
		return fmt.Errorf("failed to remove writes: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	wq.logger.Debug("Writes removed from queue",
		zap.Int64("count", rowsAffected),
	)

	return nil
}

// IncrementRetry bumps the retry count for writes that failed again.
func (wq *WriteQueue) IncrementRetry(ids []int64) error {
	if len(ids) == 0 {
		return nil
	}

	query := "UPDATE pending_writes SET retry_count = retry_count + 1, last_attempt = ? WHERE id IN ("
	args := make([]interface{}, len(ids)+1)
	args[0] = time.Now()
	for i, id := range ids {
		if i > 0 {
			query += ","
		}
		query += "?"
		args[i+1] = id
	}
	query += ")"

	_, err := wq.db.Exec(query, args...)
	if err != nil {
		return fmt.Errorf("failed to increment retry: %w", err)
	}

	return nil
}

// GetPendingCount returns the number of parked writes.
func (wq *WriteQueue) GetPendingCount() (int, error) {
	var count int
	err := wq.db.QueryRow(`SELECT COUNT(*) FROM pending_writes`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get pending count: %w", err)
	}
	return count, nil
}

// CleanupOldWrites drops writes older than the given age that have already
// been retried more than 10 times.
func (wq *WriteQueue) CleanupOldWrites(olderThan time.Duration) error {
	cutoff := time.Now().Add(-olderThan)
	result, err := wq.db.Exec(`
		DELETE FROM pending_writes
		WHERE created_at < ? AND retry_count > 10
	`, cutoff)
	if err != nil {
		return fmt.Errorf("failed to cleanup old writes: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected > 0 {
		wq.logger.Info("Cleaned up old writes",
			zap.Int64("count", rowsAffected),
		)
	}

	return nil
}
