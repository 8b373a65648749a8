package models

import "time"

// Session is the live record of one workday's timer state. Interval
// boundaries are stored as absolute instants; elapsed figures are always
// recomputed from them, never accumulated by a timer tick.
type Session struct {
	ID                  string     `json:"id"`
	OwnerID             string     `json:"owner_id"`
	Date                string     `json:"date"`         // YYYY-MM-DD
	ArrivalTime         string     `json:"arrival_time"` // HH:MM
	RequiredWorkHours   int        `json:"required_work_hours"`
	RequiredWorkMinutes int        `json:"required_work_minutes"`
	IsActive            bool       `json:"is_active"`
	IsRunning           bool       `json:"is_running"`
	IsPaused            bool       `json:"is_paused"`
	// StartTime is the resolved arrival instant, set once at creation
	StartTime           *time.Time `json:"start_time,omitempty"`
	CurrentSessionStart *time.Time `json:"current_session_start,omitempty"`
	PauseStartTime      *time.Time `json:"pause_start_time,omitempty"`
	TotalWorkedMs       int64      `json:"total_worked_ms"`
	TotalPausedMs       int64      `json:"total_paused_ms"`
}

// RequiredDuration returns the configured work requirement.
func (s *Session) RequiredDuration() time.Duration {
	return time.Duration(s.RequiredWorkHours)*time.Hour +
		time.Duration(s.RequiredWorkMinutes)*time.Minute
}

type CreateSessionRequest struct {
	OwnerID             string `json:"owner_id"`
	ArrivalTime         string `json:"arrival_time"`
	RequiredWorkHours   int    `json:"required_work_hours"`
	RequiredWorkMinutes int    `json:"required_work_minutes"`
}

// UpdateSessionRequest is a partial update; nil fields are left untouched.
// Each state transition fills exactly the fields it changes. The Clear flags
// null out their anchor column, since a nil pointer already means "skip".
type UpdateSessionRequest struct {
	IsActive                 *bool      `json:"is_active,omitempty"`
	IsRunning                *bool      `json:"is_running,omitempty"`
	IsPaused                 *bool      `json:"is_paused,omitempty"`
	CurrentSessionStart      *time.Time `json:"current_session_start,omitempty"`
	ClearCurrentSessionStart bool       `json:"clear_current_session_start,omitempty"`
	PauseStartTime           *time.Time `json:"pause_start_time,omitempty"`
	ClearPauseStartTime      bool       `json:"clear_pause_start_time,omitempty"`
	TotalWorkedMs            *int64     `json:"total_worked_ms,omitempty"`
	TotalPausedMs            *int64     `json:"total_paused_ms,omitempty"`
}

// ManualPauseRequest credits forgotten break time, either as a duration in
// minutes or as a lunch-style From/To interval (HH:MM each).
type ManualPauseRequest struct {
	OwnerID       string  `json:"owner_id"`
	PauseMinutes  int     `json:"pause_minutes,omitempty"`
	IntervalFrom  *string `json:"interval_from,omitempty"`
	IntervalUntil *string `json:"interval_until,omitempty"`
}
