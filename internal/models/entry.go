package models

import "time"

// EntryStatus mirrors the associated session's lifecycle state.
type EntryStatus string

const (
	EntryStatusActive    EntryStatus = "active"
	EntryStatusPaused    EntryStatus = "paused"
	EntryStatusCompleted EntryStatus = "completed"
)

// Entry is the durable history record mirroring a Session. CheckOut is set
// exactly when the entry completes; completed entries are immutable history.
type Entry struct {
	ID            string      `json:"id"`
	OwnerID       string      `json:"owner_id"`
	SessionID     string      `json:"session_id"`
	Name          *string     `json:"name,omitempty"`
	Date          time.Time   `json:"date"`
	CheckIn       time.Time   `json:"check_in"`
	CheckOut      *time.Time  `json:"check_out,omitempty"`
	TotalWorkedMs int64       `json:"total_worked_ms"`
	TotalPausedMs int64       `json:"total_paused_ms"`
	Status        EntryStatus `json:"status"`
}

type CreateEntryRequest struct {
	OwnerID       string    `json:"owner_id"`
	SessionID     string    `json:"session_id"`
	Date          time.Time `json:"date"`
	CheckIn       time.Time `json:"check_in"`
	TotalWorkedMs int64     `json:"total_worked_ms"`
	TotalPausedMs int64     `json:"total_paused_ms"`
}

// UpdateEntryRequest is a partial update; nil fields are left untouched.
// Replaying the same update is idempotent (last write wins). CheckOut only
// ever moves from null to set, so no clear flag is needed.
type UpdateEntryRequest struct {
	Name          *string      `json:"name,omitempty"`
	CheckOut      *time.Time   `json:"check_out,omitempty"`
	TotalWorkedMs *int64       `json:"total_worked_ms,omitempty"`
	TotalPausedMs *int64       `json:"total_paused_ms,omitempty"`
	Status        *EntryStatus `json:"status,omitempty"`
}
