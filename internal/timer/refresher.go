package timer

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Refresher re-projects every active session on a fixed cadence. Purely for
// display and logging: projection is anchor-relative, so the cadence has no
// bearing on accounting correctness.
type Refresher struct {
	machine  *Machine
	interval time.Duration
	logger   *zap.Logger

	stopChan chan struct{}
	wg       sync.WaitGroup

	mu        sync.Mutex
	announced map[string]bool // session ids already reported complete
}

func NewRefresher(machine *Machine, interval time.Duration, logger *zap.Logger) *Refresher {
	return &Refresher{
		machine:   machine,
		interval:  interval,
		logger:    logger,
		stopChan:  make(chan struct{}),
		announced: make(map[string]bool),
	}
}

// Start begins the re-projection loop.
func (r *Refresher) Start() {
	r.wg.Add(1)
	go r.run()
}

// Stop stops the loop and waits for it to exit.
func (r *Refresher) Stop() {
	close(r.stopChan)
	r.wg.Wait()
	r.logger.Info("Refresher stopped")
}

func (r *Refresher) run() {
	defer r.wg.Done()

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.refresh()
		case <-r.stopChan:
			return
		}
	}
}

func (r *Refresher) refresh() {
	now := r.machine.clock.Now()

	sessions := r.machine.ActiveSessions()
	current := make(map[string]bool, len(sessions))
	for _, session := range sessions {
		current[session.ID] = true
		stats := Project(session, now)

		r.logger.Debug("Session progress",
			zap.String("session_id", session.ID),
			zap.Int64("worked_ms", stats.WorkedMs),
			zap.Int64("remaining_ms", stats.RemainingMs),
			zap.Float64("progress", stats.Progress),
		)

		if !stats.Complete {
			continue
		}

		r.mu.Lock()
		seen := r.announced[session.ID]
		r.announced[session.ID] = true
		r.mu.Unlock()

		if !seen {
			r.logger.Info("Required work satisfied",
				zap.String("session_id", session.ID),
				zap.String("owner_id", session.OwnerID),
				zap.Time("leave_time", stats.LeaveTime),
			)
		}
	}

	// Forget sessions that have left the machine, so the map tracks only
	// what is currently active.
	r.mu.Lock()
	for id := range r.announced {
		if !current[id] {
			delete(r.announced, id)
		}
	}
	r.mu.Unlock()
}
