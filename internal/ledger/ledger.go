package ledger

import (
	"errors"
	"fmt"
	"time"

	"workclock/internal/apperr"
	"workclock/internal/models"
	"workclock/internal/queue"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// EntryStore is the persistence surface the ledger writes through.
type EntryStore interface {
	Create(entry *models.Entry) error
	GetByID(id string) (*models.Entry, error)
	GetBySessionID(sessionID string) (*models.Entry, error)
	ListByOwner(ownerID string, limit, offset int) ([]*models.Entry, error)
	Update(id string, update *models.UpdateEntryRequest) error
	Delete(id string) error
}

// IntentQueue parks entry writes that the store rejected.
type IntentQueue interface {
	Enqueue(intent queue.WriteIntent) error
}

// Ledger maintains the durable history record mirroring each session. Every
// accounting transition is followed by a Sync carrying the same totals and
// an equivalent status; once an entry completes it is immutable history.
type Ledger struct {
	store  EntryStore
	queue  IntentQueue
	logger *zap.Logger
}

func New(store EntryStore, intentQueue IntentQueue, logger *zap.Logger) *Ledger {
	return &Ledger{
		store:  store,
		queue:  intentQueue,
		logger: logger,
	}
}

// CreateForSession creates the history record alongside a new session. A
// store failure parks the full entry snapshot for replay; the entry is
// returned either way so the session's history is never silently skipped.
func (l *Ledger) CreateForSession(session *models.Session, checkIn time.Time) (*models.Entry, error) {
	entry := &models.Entry{
		ID:            uuid.NewString(),
		OwnerID:       session.OwnerID,
		SessionID:     session.ID,
		Date:          checkIn,
		CheckIn:       checkIn,
		TotalWorkedMs: session.TotalWorkedMs,
		TotalPausedMs: session.TotalPausedMs,
		Status:        models.EntryStatusActive,
	}

	if err := l.store.Create(entry); err != nil {
		l.logger.Warn("Failed to create ledger entry, queueing write",
			zap.Error(err),
			zap.String("entry_id", entry.ID),
		)
		snapshot := *entry
		if queueErr := l.queue.Enqueue(queue.WriteIntent{
			Target:      queue.TargetEntry,
			TargetID:    entry.ID,
			EntryCreate: &snapshot,
		}); queueErr != nil {
			l.logger.Error("Failed to queue entry create", zap.Error(queueErr))
			return nil, fmt.Errorf("failed to create ledger entry: %w", err)
		}
		return entry, nil
	}

	l.logger.Debug("Ledger entry created",
		zap.String("entry_id", entry.ID),
		zap.String("session_id", session.ID),
	)

	return entry, nil
}

// SyncSession mirrors a session's totals and status onto its entry. A store
// failure is absorbed: the intent is parked for retry and the caller's
// transition stands. Syncing a completed entry is refused.
func (l *Ledger) SyncSession(session *models.Session, status models.EntryStatus, checkOut *time.Time) error {
	entry, err := l.store.GetBySessionID(session.ID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return err
		}
		l.logger.Warn("Failed to load ledger entry for sync", zap.Error(err))
		return nil
	}

	if entry.Status == models.EntryStatusCompleted {
		return fmt.Errorf("entry %s is completed history: %w", entry.ID, apperr.ErrInvalidState)
	}

	update := &models.UpdateEntryRequest{
		TotalWorkedMs: &session.TotalWorkedMs,
		TotalPausedMs: &session.TotalPausedMs,
		Status:        &status,
	}
	if checkOut != nil {
		update.CheckOut = checkOut
	}

	if err := l.store.Update(entry.ID, update); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return err
		}

		l.logger.Warn("Failed to sync ledger entry, queueing write",
			zap.Error(err),
			zap.String("entry_id", entry.ID),
		)
		if queueErr := l.queue.Enqueue(queue.WriteIntent{
			Target:      queue.TargetEntry,
			TargetID:    entry.ID,
			EntryUpdate: update,
		}); queueErr != nil {
			l.logger.Error("Failed to queue entry write", zap.Error(queueErr))
		}
	}

	return nil
}

// Rename sets the display name on a history entry.
func (l *Ledger) Rename(id, name string) (*models.Entry, error) {
	if _, err := l.store.GetByID(id); err != nil {
		return nil, wrapStoreErr(err)
	}

	if err := l.store.Update(id, &models.UpdateEntryRequest{Name: &name}); err != nil {
		return nil, wrapStoreErr(err)
	}

	entry, err := l.store.GetByID(id)
	if err != nil {
		return nil, wrapStoreErr(err)
	}
	return entry, nil
}

// Delete removes a history entry. Ledger-only: the accounting state of any
// session is untouched.
func (l *Ledger) Delete(id string) error {
	if err := l.store.Delete(id); err != nil {
		return wrapStoreErr(err)
	}
	return nil
}

// List returns the owner's history, newest first.
func (l *Ledger) List(ownerID string, limit, offset int) ([]*models.Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	entries, err := l.store.ListByOwner(ownerID, limit, offset)
	if err != nil {
		return nil, wrapStoreErr(err)
	}
	return entries, nil
}

// wrapStoreErr classifies store failures: missing rows keep their not-found
// identity, everything else is a persistence failure.
func wrapStoreErr(err error) error {
	if errors.Is(err, apperr.ErrNotFound) {
		return err
	}
	return fmt.Errorf("%w: %w", err, apperr.ErrPersistence)
}
