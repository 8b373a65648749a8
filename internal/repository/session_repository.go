package repository

import (
	"database/sql"
	"fmt"

	"workclock/internal/apperr"
	"workclock/internal/models"
)

type SessionRepository struct {
	db *sql.DB
}

func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

func (r *SessionRepository) Create(session *models.Session) error {
	query := `
		INSERT INTO sessions (
			id, owner_id, date, arrival_time,
			required_work_hours, required_work_minutes,
			is_active, is_running, is_paused,
			start_time, current_session_start, pause_start_time,
			total_worked_ms, total_paused_ms
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.Exec(
		query,
		session.ID,
		session.OwnerID,
		session.Date,
		session.ArrivalTime,
		session.RequiredWorkHours,
		session.RequiredWorkMinutes,
		session.IsActive,
		session.IsRunning,
		session.IsPaused,
		session.StartTime,
		session.CurrentSessionStart,
		session.PauseStartTime,
		session.TotalWorkedMs,
		session.TotalPausedMs,
	)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	return nil
}

func (r *SessionRepository) GetByID(id string) (*models.Session, error) {
	query := `
		SELECT id, owner_id, date, arrival_time,
			required_work_hours, required_work_minutes,
			is_active, is_running, is_paused,
			start_time, current_session_start, pause_start_time,
			total_worked_ms, total_paused_ms
		FROM sessions
		WHERE id = ?
	`

	return r.scanOne(r.db.QueryRow(query, id))
}

// GetActive returns the active session for an owner on a given date, or a
// NotFound error when there is none.
func (r *SessionRepository) GetActive(ownerID, date string) (*models.Session, error) {
	query := `
		SELECT id, owner_id, date, arrival_time,
			required_work_hours, required_work_minutes,
			is_active, is_running, is_paused,
			start_time, current_session_start, pause_start_time,
			total_worked_ms, total_paused_ms
		FROM sessions
		WHERE owner_id = ? AND date = ? AND is_active = 1
		ORDER BY created_at DESC
		LIMIT 1
	`

	return r.scanOne(r.db.QueryRow(query, ownerID, date))
}

func (r *SessionRepository) scanOne(row *sql.Row) (*models.Session, error) {
	var session models.Session
	err := row.Scan(
		&session.ID,
		&session.OwnerID,
		&session.Date,
		&session.ArrivalTime,
		&session.RequiredWorkHours,
		&session.RequiredWorkMinutes,
		&session.IsActive,
		&session.IsRunning,
		&session.IsPaused,
		&session.StartTime,
		&session.CurrentSessionStart,
		&session.PauseStartTime,
		&session.TotalWorkedMs,
		&session.TotalPausedMs,
	)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("session: %w", apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	return &session, nil
}

func (r *SessionRepository) Update(id string, update *models.UpdateSessionRequest) error {
	setParts := []string{"updated_at = CURRENT_TIMESTAMP"}
	args := []interface{}{}

	if update.IsActive != nil {
		setParts = append(setParts, "is_active = ?")
		args = append(args, *update.IsActive)
	}
	if update.IsRunning != nil {
		setParts = append(setParts, "is_running = ?")
		args = append(args, *update.IsRunning)
	}
	if update.IsPaused != nil {
		setParts = append(setParts, "is_paused = ?")
		args = append(args, *update.IsPaused)
	}
	if update.ClearCurrentSessionStart {
		setParts = append(setParts, "current_session_start = NULL")
	} else if update.CurrentSessionStart != nil {
		setParts = append(setParts, "current_session_start = ?")
		args = append(args, *update.CurrentSessionStart)
	}
	if update.ClearPauseStartTime {
		setParts = append(setParts, "pause_start_time = NULL")
	} else if update.PauseStartTime != nil {
		setParts = append(setParts, "pause_start_time = ?")
		args = append(args, *update.PauseStartTime)
	}
	if update.TotalWorkedMs != nil {
		setParts = append(setParts, "total_worked_ms = ?")
		args = append(args, *update.TotalWorkedMs)
	}
	if update.TotalPausedMs != nil {
		setParts = append(setParts, "total_paused_ms = ?")
		args = append(args, *update.TotalPausedMs)
	}

	setClause := setParts[0]
	for i := 1; i < len(setParts); i++ {
		setClause += ", " + setParts[i]
	}

	query := fmt.Sprintf(`
		UPDATE sessions
		SET %s
		WHERE id = ?
	`, setClause)

	args = append(args, id)

	result, err := r.db.Exec(query, args...)
	if err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("session %s: %w", id, apperr.ErrNotFound)
	}

	return nil
}
