package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"workclock/internal/apperr"
	"workclock/internal/models"
	"workclock/internal/timer"

	"go.uber.org/zap"
)

// TimerHandler exposes the session state machine over HTTP. It is thin
// presentation glue; all accounting rules live in the timer package.
type TimerHandler struct {
	machine *timer.Machine
	logger  *zap.Logger
}

func NewTimerHandler(machine *timer.Machine, logger *zap.Logger) *TimerHandler {
	return &TimerHandler{
		machine: machine,
		logger:  logger,
	}
}

func (h *TimerHandler) Start(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req models.CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error("Failed to decode request", zap.Error(err))
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	session, err := h.machine.Create(&req)
	if err != nil {
		h.writeError(w, err, "Failed to create session")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(session)
}

func (h *TimerHandler) Pause(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.machine.Pause)
}

func (h *TimerHandler) Resume(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.machine.Resume)
}

func (h *TimerHandler) Complete(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.machine.Complete)
}

func (h *TimerHandler) ManualPause(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req models.ManualPauseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error("Failed to decode request", zap.Error(err))
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	duration := time.Duration(req.PauseMinutes) * time.Minute
	if req.IntervalFrom != nil && req.IntervalUntil != nil {
		d, err := timer.IntervalDuration(*req.IntervalFrom, *req.IntervalUntil)
		if err != nil {
			h.writeError(w, err, "Invalid pause interval")
			return
		}
		duration = d
	}

	session, err := h.machine.AddManualPause(req.OwnerID, duration)
	if err != nil {
		h.writeError(w, err, "Failed to add manual pause")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(session)
}

func (h *TimerHandler) Stats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	ownerID := r.URL.Query().Get("owner_id")
	if ownerID == "" {
		http.Error(w, "Missing owner_id parameter", http.StatusBadRequest)
		return
	}

	stats, err := h.machine.Stats(ownerID)
	if err != nil {
		h.writeError(w, err, "Failed to project stats")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(stats)
}

// transition handles the pause/resume/complete operations, which all share
// the same request shape.
func (h *TimerHandler) transition(
	w http.ResponseWriter,
	r *http.Request,
	op func(ownerID string) (*models.Session, error),
) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		OwnerID string `json:"owner_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error("Failed to decode request", zap.Error(err))
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.OwnerID == "" {
		http.Error(w, "Missing owner_id", http.StatusBadRequest)
		return
	}

	session, err := op(req.OwnerID)
	if err != nil {
		h.writeError(w, err, "Transition failed")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(session)
}

func (h *TimerHandler) writeError(w http.ResponseWriter, err error, msg string) {
	switch {
	case errors.Is(err, apperr.ErrValidation):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, apperr.ErrInvalidState):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, apperr.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, apperr.ErrPersistence):
		h.logger.Error(msg, zap.Error(err))
		http.Error(w, "Storage unavailable", http.StatusBadGateway)
	default:
		h.logger.Error(msg, zap.Error(err))
		http.Error(w, msg, http.StatusBadGateway)
	}
}
