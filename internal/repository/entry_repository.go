package repository

import (
	"database/sql"
	"fmt"

	"workclock/internal/apperr"
	"workclock/internal/models"
)

type EntryRepository struct {
	db *sql.DB
}

func NewEntryRepository(db *sql.DB) *EntryRepository {
	return &EntryRepository{db: db}
}

func (r *EntryRepository) Create(entry *models.Entry) error {
	query := `
		INSERT INTO entries (
			id, owner_id, session_id, name, date, check_in, check_out,
			total_worked_ms, total_paused_ms, status
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.Exec(
		query,
		entry.ID,
		entry.OwnerID,
		entry.SessionID,
		entry.Name,
		entry.Date,
		entry.CheckIn,
		entry.CheckOut,
		entry.TotalWorkedMs,
		entry.TotalPausedMs,
		entry.Status,
	)
	if err != nil {
		return fmt.Errorf("failed to create entry: %w", err)
	}

	return nil
}

func (r *EntryRepository) GetByID(id string) (*models.Entry, error) {
	query := `
		SELECT id, owner_id, session_id, name, date, check_in, check_out,
			total_worked_ms, total_paused_ms, status
		FROM entries
		WHERE id = ?
	`

	var entry models.Entry
	err := r.db.QueryRow(query, id).Scan(
		&entry.ID,
		&entry.OwnerID,
		&entry.SessionID,
		&entry.Name,
		&entry.Date,
		&entry.CheckIn,
		&entry.CheckOut,
		&entry.TotalWorkedMs,
		&entry.TotalPausedMs,
		&entry.Status,
	)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("entry %s: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get entry: %w", err)
	}

	return &entry, nil
}

// GetBySessionID returns the entry mirroring a session.
func (r *EntryRepository) GetBySessionID(sessionID string) (*models.Entry, error) {
	query := `
		SELECT id, owner_id, session_id, name, date, check_in, check_out,
			total_worked_ms, total_paused_ms, status
		FROM entries
		WHERE session_id = ?
		ORDER BY created_at DESC
		LIMIT 1
	`

	var entry models.Entry
	err := r.db.QueryRow(query, sessionID).Scan(
		&entry.ID,
		&entry.OwnerID,
		&entry.SessionID,
		&entry.Name,
		&entry.Date,
		&entry.CheckIn,
		&entry.CheckOut,
		&entry.TotalWorkedMs,
		&entry.TotalPausedMs,
		&entry.Status,
	)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("entry for session %s: %w", sessionID, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get entry: %w", err)
	}

	return &entry, nil
}

// ListByOwner returns the owner's entries, newest first.
func (r *EntryRepository) ListByOwner(ownerID string, limit, offset int) ([]*models.Entry, error) {
	query := `
		SELECT id, owner_id, session_id, name, date, check_in, check_out,
			total_worked_ms, total_paused_ms, status
		FROM entries
		WHERE owner_id = ?
		ORDER BY check_in DESC
		LIMIT ? OFFSET ?
	`

	rows, err := r.db.Query(query, ownerID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query entries: %w", err)
	}
	defer rows.Close()

	var entries []*models.Entry
	for rows.Next() {
		var entry models.Entry
		err := rows.Scan(
			&entry.ID,
			&entry.OwnerID,
			&entry.SessionID,
			&entry.Name,
			&entry.Date,
			&entry.CheckIn,
			&entry.CheckOut,
			&entry.TotalWorkedMs,
			&entry.TotalPausedMs,
			&entry.Status,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}
		entries = append(entries, &entry)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return entries, nil
}

func (r *EntryRepository) Update(id string, update *models.UpdateEntryRequest) error {
	setParts := []string{"updated_at = CURRENT_TIMESTAMP"}
	args := []interface{}{}

	if update.Name != nil {
		setParts = append(setParts, "name = ?")
		args = append(args, *update.Name)
	}
	if update.CheckOut != nil {
		setParts = append(setParts, "check_out = ?")
		args = append(args, *update.CheckOut)
	}
	if update.TotalWorkedMs != nil {
		setParts = append(setParts, "total_worked_ms = ?")
		args = append(args, *update.TotalWorkedMs)
	}
	if update.TotalPausedMs != nil {
		setParts = append(setParts, "total_paused_ms = ?")
		args = append(args, *update.TotalPausedMs)
	}
	if update.Status != nil {
		setParts = append(setParts, "status = ?")
		args = append(args, string(*update.Status))
	}

	setClause := setParts[0]
	for i := 1; i < len(setParts); i++ {
		setClause += ", " + setParts[i]
	}

	query := fmt.Sprintf(`
		UPDATE entries
		SET %s
		WHERE id = ?
	`, setClause)

	args = append(args, id)

	result, err := r.db.Exec(query, args...)
	if err != nil {
		return fmt.Errorf("failed to update entry: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("entry %s: %w", id, apperr.ErrNotFound)
	}

	return nil
}

func (r *EntryRepository) Delete(id string) error {
	result, err := r.db.Exec("DELETE FROM entries WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete entry: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("entry %s: %w", id, apperr.ErrNotFound)
	}

	return nil
}
