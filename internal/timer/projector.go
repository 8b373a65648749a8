package timer

import (
	"time"

	"workclock/internal/models"
)

// Stats are the user-facing figures derived from a session at one instant.
type Stats struct {
	SessionID   string    `json:"session_id"`
	WorkedMs    int64     `json:"worked_ms"`
	PausedMs    int64     `json:"paused_ms"`
	RemainingMs int64     `json:"remaining_ms"`
	LeaveTime   time.Time `json:"leave_time"`
	Progress    float64   `json:"progress"`
	Complete    bool      `json:"complete"`
}

// Project computes all derived figures from raw session state and the
// current time. Pure: no side effects, safe at any cadence. Open intervals
// are valued as now minus their persisted anchor, which is what makes the
// engine correct across process restarts and device sleep.
func Project(session *models.Session, now time.Time) Stats {
	worked := session.TotalWorkedMs
	if session.IsRunning && session.CurrentSessionStart != nil {
		worked += now.Sub(*session.CurrentSessionStart).Milliseconds()
	}

	paused := session.TotalPausedMs
	if session.IsPaused && session.PauseStartTime != nil {
		paused += now.Sub(*session.PauseStartTime).Milliseconds()
	}

	requiredMs := session.RequiredDuration().Milliseconds()

	remaining := requiredMs - worked
	if remaining < 0 {
		remaining = 0
	}

	var leaveTime time.Time
	if session.StartTime != nil {
		leaveTime = session.StartTime.
			Add(session.RequiredDuration()).
			Add(time.Duration(paused) * time.Millisecond)
	}

	var progress float64
	if requiredMs > 0 {
		progress = 100 * float64(worked) / float64(requiredMs)
		if progress > 100 {
			progress = 100
		}
	}

	return Stats{
		SessionID:   session.ID,
		WorkedMs:    worked,
		PausedMs:    paused,
		RemainingMs: remaining,
		LeaveTime:   leaveTime,
		Progress:    progress,
		Complete:    worked >= requiredMs,
	}
}
