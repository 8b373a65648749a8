package queue

import (
	"errors"
	"sync"
	"time"

	"workclock/internal/apperr"
	"workclock/internal/models"

	"go.uber.org/zap"
)

// SessionWriter applies parked session writes.
type SessionWriter interface {
	Create(session *models.Session) error
	GetByID(id string) (*models.Session, error)
	Update(id string, update *models.UpdateSessionRequest) error
}

// EntryWriter applies parked entry writes.
type EntryWriter interface {
	Create(entry *models.Entry) error
	GetByID(id string) (*models.Entry, error)
	Update(id string, update *models.UpdateEntryRequest) error
}

// Processor drains the write queue in the background. Updates are
// last-write-wins, so replaying an intent that already applied is harmless.
type Processor struct {
	queue    *WriteQueue
	sessions SessionWriter
	entries  EntryWriter
	interval time.Duration
	logger   *zap.Logger

	stopChan chan struct{}
	wg       sync.WaitGroup
}

func NewProcessor(
	queue *WriteQueue,
	sessions SessionWriter,
	entries EntryWriter,
	interval time.Duration,
	logger *zap.Logger,
) *Processor {
	return &Processor{
		queue:    queue,
		sessions: sessions,
		entries:  entries,
		interval: interval,
		logger:   logger,
		stopChan: make(chan struct{}),
	}
}

// Start begins the retry loop.
func (p *Processor) Start() {
	p.wg.Add(1)
	go p.run()
}

// Stop drains the queue one final time and stops the loop.
func (p *Processor) Stop() {
	close(p.stopChan)
	p.wg.Wait()
}

func (p *Processor) run() {
	defer p.wg.Done()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			p.processQueue()
		case <-p.stopChan:
			p.processQueue()
			return
		}
	}
}

func (p *Processor) processQueue() {
	pendingCount, err := p.queue.GetPendingCount()
	if err != nil {
		p.logger.Error("Failed to get pending count", zap.Error(err))
		return
	}

	if pendingCount == 0 {
		return
	}

	p.logger.Debug("Processing pending writes",
		zap.Int("pending_count", pendingCount),
	)

	writes, err := p.queue.Dequeue(100)
	if err != nil {
		p.logger.Error("Failed to dequeue writes", zap.Error(err))
		return
	}

	var applied, failed []int64
	// Targets whose parked create failed again this pass; their updates must
	// be retried, not dropped as stale.
	blocked := make(map[string]bool)
	for _, pw := range writes {
		if err := p.apply(pw.Intent); err != nil {
			// A vanished target means the intent is stale history
			if errors.Is(err, apperr.ErrNotFound) && !blocked[pw.Intent.TargetID] {
				p.logger.Warn("Dropping write for missing target",
					zap.String("target", string(pw.Intent.Target)),
					zap.String("target_id", pw.Intent.TargetID),
				)
				applied = append(applied, pw.ID)
				continue
			}

			if pw.Intent.SessionCreate != nil || pw.Intent.EntryCreate != nil {
				blocked[pw.Intent.TargetID] = true
			}
			p.logger.Warn("Failed to replay write",
				zap.Error(err),
				zap.String("target_id", pw.Intent.TargetID),
				zap.Int("retry_count", pw.RetryCount),
			)
			failed = append(failed, pw.ID)
			continue
		}
		applied = append(applied, pw.ID)
	}

	if err := p.queue.Remove(applied); err != nil {
		p.logger.Error("Failed to remove applied writes", zap.Error(err))
	} else if len(applied) > 0 {
		p.logger.Info("Replayed pending writes",
			zap.Int("count", len(applied)),
		)
	}

	if err := p.queue.IncrementRetry(failed); err != nil {
		p.logger.Error("Failed to increment retry count", zap.Error(err))
	}
}

func (p *Processor) apply(intent WriteIntent) error {
	switch intent.Target {
	case TargetSession:
		if intent.SessionCreate != nil {
			return p.applySessionCreate(intent.SessionCreate)
		}
		if intent.SessionUpdate == nil {
			return nil
		}
		return p.sessions.Update(intent.TargetID, intent.SessionUpdate)
	case TargetEntry:
		if intent.EntryCreate != nil {
			return p.applyEntryCreate(intent.EntryCreate)
		}
		if intent.EntryUpdate == nil {
			return nil
		}
		return p.entries.Update(intent.TargetID, intent.EntryUpdate)
	default:
		p.logger.Warn("Unknown write target", zap.String("target", string(intent.Target)))
		return nil
	}
}

// Replayed creates must be idempotent: a row that already exists means an
// earlier replay landed before its queue entry was removed.
func (p *Processor) applySessionCreate(session *models.Session) error {
	if err := p.sessions.Create(session); err != nil {
		if _, getErr := p.sessions.GetByID(session.ID); getErr == nil {
			return nil
		}
		return err
	}
	return nil
}

func (p *Processor) applyEntryCreate(entry *models.Entry) error {
	if err := p.entries.Create(entry); err != nil {
		if _, getErr := p.entries.GetByID(entry.ID); getErr == nil {
			return nil
		}
		return err
	}
	return nil
}
