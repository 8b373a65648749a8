package timer

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"workclock/internal/apperr"
	"workclock/internal/clock"
	"workclock/internal/models"
	"workclock/internal/queue"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SessionStore is the persistence surface the machine writes through.
type SessionStore interface {
	Create(session *models.Session) error
	GetActive(ownerID, date string) (*models.Session, error)
	Update(id string, update *models.UpdateSessionRequest) error
}

// EntryLedger mirrors every accounting transition into durable history.
type EntryLedger interface {
	CreateForSession(session *models.Session, checkIn time.Time) (*models.Entry, error)
	SyncSession(session *models.Session, status models.EntryStatus, checkOut *time.Time) error
}

// IntentQueue parks session writes that the store rejected.
type IntentQueue interface {
	Enqueue(intent queue.WriteIntent) error
}

// Machine owns the lifecycle of each owner's single active session:
// Idle -> Running <-> Paused -> Completed. Transitions mutate the in-memory
// session first and mirror the change to the store and the ledger within the
// same operation; a failed write is logged and parked, never rolled back.
type Machine struct {
	clock  clock.Clock
	store  SessionStore
	ledger EntryLedger
	queue  IntentQueue
	logger *zap.Logger

	mu     sync.Mutex
	active map[string]*models.Session // keyed by owner id
}

func NewMachine(
	clk clock.Clock,
	store SessionStore,
	ledger EntryLedger,
	intentQueue IntentQueue,
	logger *zap.Logger,
) *Machine {
	return &Machine{
		clock:  clk,
		store:  store,
		ledger: ledger,
		queue:  intentQueue,
		logger: logger,
		active: make(map[string]*models.Session),
	}
}

// Create starts a new session for the owner. Worked time is seeded from the
// arrival instant, so arriving before starting the timer is not lost.
func (m *Machine) Create(req *models.CreateSessionRequest) (*models.Session, error) {
	if req.OwnerID == "" {
		return nil, fmt.Errorf("owner id is required: %w", apperr.ErrValidation)
	}

	required := time.Duration(req.RequiredWorkHours)*time.Hour +
		time.Duration(req.RequiredWorkMinutes)*time.Minute
	if req.RequiredWorkHours < 0 || req.RequiredWorkMinutes < 0 || required <= 0 {
		return nil, fmt.Errorf("required work duration must be positive: %w", apperr.ErrValidation)
	}

	now := m.clock.Now()
	arrival, err := ParseArrival(req.ArrivalTime, now)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	existing, err := m.loadLocked(req.OwnerID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("session already active for owner: %w", apperr.ErrInvalidState)
	}

	workedMs := now.Sub(arrival).Milliseconds()
	if workedMs < 0 {
		workedMs = 0
	}

	session := &models.Session{
		ID:                  uuid.NewString(),
		OwnerID:             req.OwnerID,
		Date:                now.Format("2006-01-02"),
		ArrivalTime:         req.ArrivalTime,
		RequiredWorkHours:   req.RequiredWorkHours,
		RequiredWorkMinutes: req.RequiredWorkMinutes,
		IsActive:            true,
		IsRunning:           true,
		IsPaused:            false,
		StartTime:           &arrival,
		CurrentSessionStart: &now,
		TotalWorkedMs:       workedMs,
		TotalPausedMs:       0,
	}

	if err := m.store.Create(session); err != nil {
		// Optimistic: the in-memory session stands. The full snapshot is
		// parked so the row is recreated before any queued updates replay.
		m.logger.Warn("Failed to persist new session, queueing write",
			zap.Error(err),
			zap.String("session_id", session.ID),
		)
		snapshot := *session
		if queueErr := m.queue.Enqueue(queue.WriteIntent{
			Target:        queue.TargetSession,
			TargetID:      session.ID,
			SessionCreate: &snapshot,
		}); queueErr != nil {
			m.logger.Error("Failed to queue session create", zap.Error(queueErr))
		}
	}

	if _, err := m.ledger.CreateForSession(session, now); err != nil {
		m.logger.Error("Failed to create ledger entry", zap.Error(err),
			zap.String("session_id", session.ID),
		)
	}

	m.active[req.OwnerID] = session

	m.logger.Info("Session created",
		zap.String("session_id", session.ID),
		zap.String("owner_id", session.OwnerID),
		zap.String("arrival_time", session.ArrivalTime),
		zap.Int64("seeded_worked_ms", workedMs),
	)

	return session, nil
}

// Pause folds the open work interval into the worked total and opens a
// pause interval.
func (m *Machine) Pause(ownerID string) (*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, err := m.requireActiveLocked(ownerID)
	if err != nil {
		return nil, err
	}
	if !session.IsRunning || session.CurrentSessionStart == nil {
		return nil, fmt.Errorf("session is not running: %w", apperr.ErrInvalidState)
	}

	now := m.clock.Now()
	session.TotalWorkedMs += now.Sub(*session.CurrentSessionStart).Milliseconds()
	session.CurrentSessionStart = nil
	session.PauseStartTime = &now
	session.IsRunning = false
	session.IsPaused = true

	running, paused := false, true
	m.persistSession(session.ID, &models.UpdateSessionRequest{
		IsRunning:                &running,
		IsPaused:                 &paused,
		ClearCurrentSessionStart: true,
		PauseStartTime:           &now,
		TotalWorkedMs:            &session.TotalWorkedMs,
	})
	m.syncLedger(session, models.EntryStatusPaused, nil)

	m.logger.Info("Session paused",
		zap.String("session_id", session.ID),
		zap.Int64("total_worked_ms", session.TotalWorkedMs),
	)

	return session, nil
}

// Resume folds the open pause interval into the paused total and opens a
// work interval.
func (m *Machine) Resume(ownerID string) (*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, err := m.requireActiveLocked(ownerID)
	if err != nil {
		return nil, err
	}
	if !session.IsPaused || session.PauseStartTime == nil {
		return nil, fmt.Errorf("session is not paused: %w", apperr.ErrInvalidState)
	}

	now := m.clock.Now()
	session.TotalPausedMs += now.Sub(*session.PauseStartTime).Milliseconds()
	session.PauseStartTime = nil
	session.CurrentSessionStart = &now
	session.IsRunning = true
	session.IsPaused = false

	running, paused := true, false
	m.persistSession(session.ID, &models.UpdateSessionRequest{
		IsRunning:           &running,
		IsPaused:            &paused,
		ClearPauseStartTime: true,
		CurrentSessionStart: &now,
		TotalPausedMs:       &session.TotalPausedMs,
	})
	m.syncLedger(session, models.EntryStatusActive, nil)

	m.logger.Info("Session resumed",
		zap.String("session_id", session.ID),
		zap.Int64("total_paused_ms", session.TotalPausedMs),
	)

	return session, nil
}

// AddManualPause credits forgotten break time directly to the paused total
// without changing the run/pause state.
func (m *Machine) AddManualPause(ownerID string, d time.Duration) (*models.Session, error) {
	if d <= 0 {
		return nil, fmt.Errorf("manual pause duration must be positive: %w", apperr.ErrValidation)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	session, err := m.requireActiveLocked(ownerID)
	if err != nil {
		return nil, err
	}
	if !session.IsRunning && !session.IsPaused {
		return nil, fmt.Errorf("session is neither running nor paused: %w", apperr.ErrInvalidState)
	}

	session.TotalPausedMs += d.Milliseconds()

	m.persistSession(session.ID, &models.UpdateSessionRequest{
		TotalPausedMs: &session.TotalPausedMs,
	})
	m.syncLedger(session, entryStatusFor(session), nil)

	m.logger.Info("Manual pause added",
		zap.String("session_id", session.ID),
		zap.Duration("duration", d),
		zap.Int64("total_paused_ms", session.TotalPausedMs),
	)

	return session, nil
}

// Complete folds the open interval into its accumulator, deactivates the
// session, and finalizes its ledger entry. The owner is Idle afterward.
func (m *Machine) Complete(ownerID string) (*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, err := m.requireActiveLocked(ownerID)
	if err != nil {
		return nil, err
	}
	if !session.IsRunning && !session.IsPaused {
		return nil, fmt.Errorf("session is neither running nor paused: %w", apperr.ErrInvalidState)
	}

	now := m.clock.Now()
	if session.IsRunning && session.CurrentSessionStart != nil {
		session.TotalWorkedMs += now.Sub(*session.CurrentSessionStart).Milliseconds()
	}
	if session.IsPaused && session.PauseStartTime != nil {
		session.TotalPausedMs += now.Sub(*session.PauseStartTime).Milliseconds()
	}
	session.CurrentSessionStart = nil
	session.PauseStartTime = nil
	session.IsActive = false
	session.IsRunning = false
	session.IsPaused = false

	inactive := false
	m.persistSession(session.ID, &models.UpdateSessionRequest{
		IsActive:                 &inactive,
		IsRunning:                &inactive,
		IsPaused:                 &inactive,
		ClearCurrentSessionStart: true,
		ClearPauseStartTime:      true,
		TotalWorkedMs:            &session.TotalWorkedMs,
		TotalPausedMs:            &session.TotalPausedMs,
	})
	m.syncLedger(session, models.EntryStatusCompleted, &now)

	delete(m.active, ownerID)

	m.logger.Info("Session completed",
		zap.String("session_id", session.ID),
		zap.Int64("total_worked_ms", session.TotalWorkedMs),
		zap.Int64("total_paused_ms", session.TotalPausedMs),
	)

	return session, nil
}

// Stats projects the owner's active session at the current instant.
func (m *Machine) Stats(ownerID string) (Stats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, err := m.loadLocked(ownerID)
	if err != nil {
		return Stats{}, err
	}
	if session == nil {
		return Stats{}, fmt.Errorf("no active session for owner: %w", apperr.ErrNotFound)
	}

	return Project(session, m.clock.Now()), nil
}

// ActiveSessions returns copies of all in-memory sessions, for display
// re-projection.
func (m *Machine) ActiveSessions() []*models.Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	sessions := make([]*models.Session, 0, len(m.active))
	for _, session := range m.active {
		copied := *session
		sessions = append(sessions, &copied)
	}
	return sessions
}

// loadLocked returns the owner's active session, rehydrating from the store
// if this process has not seen it yet. Returns nil when the owner is Idle.
// Caller must hold m.mu.
func (m *Machine) loadLocked(ownerID string) (*models.Session, error) {
	if session, ok := m.active[ownerID]; ok {
		return session, nil
	}

	date := m.clock.Now().Format("2006-01-02")
	session, err := m.store.GetActive(ownerID, date)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to rehydrate session: %w: %w", err, apperr.ErrPersistence)
	}

	m.active[ownerID] = session
	m.logger.Info("Session rehydrated from store",
		zap.String("session_id", session.ID),
		zap.String("owner_id", ownerID),
	)

	return session, nil
}

func (m *Machine) requireActiveLocked(ownerID string) (*models.Session, error) {
	session, err := m.loadLocked(ownerID)
	if err != nil {
		return nil, err
	}
	if session == nil || !session.IsActive {
		return nil, fmt.Errorf("no active session for owner: %w", apperr.ErrInvalidState)
	}
	return session, nil
}

// persistSession mirrors a transition to the store. Failure never rolls the
// in-memory state back; the write is parked for the background processor.
func (m *Machine) persistSession(id string, update *models.UpdateSessionRequest) {
	if err := m.store.Update(id, update); err != nil {
		m.logger.Warn("Failed to persist session update, queueing write",
			zap.Error(err),
			zap.String("session_id", id),
		)
		if queueErr := m.queue.Enqueue(queue.WriteIntent{
			Target:        queue.TargetSession,
			TargetID:      id,
			SessionUpdate: update,
		}); queueErr != nil {
			m.logger.Error("Failed to queue session write", zap.Error(queueErr))
		}
	}
}

func (m *Machine) syncLedger(session *models.Session, status models.EntryStatus, checkOut *time.Time) {
	if err := m.ledger.SyncSession(session, status, checkOut); err != nil {
		m.logger.Warn("Failed to sync ledger entry",
			zap.Error(err),
			zap.String("session_id", session.ID),
		)
	}
}

func entryStatusFor(session *models.Session) models.EntryStatus {
	if session.IsPaused {
		return models.EntryStatusPaused
	}
	return models.EntryStatusActive
}
