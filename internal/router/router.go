package router

import (
	"net/http"

	"workclock/internal/handler"

	"go.uber.org/zap"
)

func New(timerHandler *handler.TimerHandler, entryHandler *handler.EntryHandler, logger *zap.Logger) http.Handler {
	mux := http.NewServeMux()

	// Health check endpoint
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	// Timer endpoints
	mux.HandleFunc("/api/v1/timer/start", timerHandler.Start)
	mux.HandleFunc("/api/v1/timer/pause", timerHandler.Pause)
	mux.HandleFunc("/api/v1/timer/resume", timerHandler.Resume)
	mux.HandleFunc("/api/v1/timer/manual-pause", timerHandler.ManualPause)
	mux.HandleFunc("/api/v1/timer/complete", timerHandler.Complete)
	mux.HandleFunc("/api/v1/timer/stats", timerHandler.Stats)

	// History endpoints
	mux.HandleFunc("/api/v1/entries", entryHandler.List)
	mux.HandleFunc("/api/v1/entries/rename", entryHandler.Rename)
	mux.HandleFunc("/api/v1/entries/delete", entryHandler.Delete)

	// Logging middleware
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger.Info("HTTP request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("remote_addr", r.RemoteAddr),
		)
		mux.ServeHTTP(w, r)
	})
}
