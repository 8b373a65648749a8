package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"workclock/internal/apperr"
	"workclock/internal/ledger"

	"go.uber.org/zap"
)

// EntryHandler exposes the history ledger over HTTP.
type EntryHandler struct {
	ledger *ledger.Ledger
	logger *zap.Logger
}

func NewEntryHandler(entryLedger *ledger.Ledger, logger *zap.Logger) *EntryHandler {
	return &EntryHandler{
		ledger: entryLedger,
		logger: logger,
	}
}

func (h *EntryHandler) List(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	ownerID := r.URL.Query().Get("owner_id")
	if ownerID == "" {
		http.Error(w, "Missing owner_id parameter", http.StatusBadRequest)
		return
	}

	limit := 50
	offset := 0
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil {
			limit = l
		}
	}
	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		if o, err := strconv.Atoi(offsetStr); err == nil {
			offset = o
		}
	}

	entries, err := h.ledger.List(ownerID, limit, offset)
	if err != nil {
		h.logger.Error("Failed to list entries", zap.Error(err))
		http.Error(w, "Failed to list entries", entryErrorStatus(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(entries)
}

func (h *EntryHandler) Rename(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id := r.URL.Query().Get("id")
	if id == "" {
		http.Error(w, "Missing id parameter", http.StatusBadRequest)
		return
	}

	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error("Failed to decode request", zap.Error(err))
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	entry, err := h.ledger.Rename(id, req.Name)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			http.Error(w, "Entry not found", http.StatusNotFound)
			return
		}
		h.logger.Error("Failed to rename entry", zap.Error(err))
		http.Error(w, "Failed to rename entry", entryErrorStatus(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(entry)
}

func (h *EntryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id := r.URL.Query().Get("id")
	if id == "" {
		http.Error(w, "Missing id parameter", http.StatusBadRequest)
		return
	}

	if err := h.ledger.Delete(id); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			http.Error(w, "Entry not found", http.StatusNotFound)
			return
		}
		h.logger.Error("Failed to delete entry", zap.Error(err))
		http.Error(w, "Failed to delete entry", entryErrorStatus(err))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func entryErrorStatus(err error) int {
	if errors.Is(err, apperr.ErrPersistence) {
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}
