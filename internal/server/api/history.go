package api

import (
	"log"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/ayusman/airbot/internal/dispatch"
	"github.com/ayusman/airbot/internal/gesture"
	"github.com/ayusman/airbot/internal/store"
)

// History limits.
const (
	DefaultHistoryLimit = 50
	MaxHistoryLimit     = 500

	// historyKeep is how many rows survive a prune; pruning runs every
	// pruneEvery records.
	historyKeep = 1000
	pruneEvery  = 100
)

// HistoryHandler serves the persisted dispatch history and records new
// dispatches into it.
type HistoryHandler struct {
	store *store.Store

	mu       sync.Mutex
	recorded int
}

// NewHistoryHandler creates a new HistoryHandler.
func NewHistoryHandler(s *store.Store) *HistoryHandler {
	return &HistoryHandler{store: s}
}

type historyEntryResponse struct {
	ID           string    `json:"id"`
	Gesture      string    `json:"gesture"`
	Name         string    `json:"name"`
	Action       string    `json:"action"`
	Error        string    `json:"error,omitempty"`
	DispatchedAt time.Time `json:"dispatched_at"`
}

type historyResponse struct {
	Entries []historyEntryResponse `json:"entries"`
}

// ServeHTTP handles GET /api/history?limit=N, newest first.
func (h *HistoryHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	limit := DefaultHistoryLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		limit = min(n, MaxHistoryLimit)
	}

	records, err := h.store.History().Recent(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load history")
		return
	}

	response := historyResponse{Entries: make([]historyEntryResponse, 0, len(records))}
	for _, rec := range records {
		entry := historyEntryResponse{
			ID:           rec.ID,
			Gesture:      rec.Gesture,
			Action:       rec.Action,
			Error:        rec.Error,
			DispatchedAt: rec.DispatchedAt,
		}
		if g, err := gesture.ParseGesture(rec.Gesture); err == nil {
			entry.Name = g.String()
		}
		response.Entries = append(response.Entries, entry)
	}

	writeJSON(w, http.StatusOK, response)
}

// Record persists an accepted dispatch. It is meant for App.OnDispatch.
func (h *HistoryHandler) Record(res dispatch.Result) {
	rec := &store.DispatchRecord{
		Gesture:      res.Gesture.Slug(),
		Action:       string(res.Action),
		DispatchedAt: res.At,
	}
	if res.Err != nil {
		rec.Error = res.Err.Error()
	}

	if err := h.store.History().Record(rec); err != nil {
		log.Printf("Error recording dispatch: %v", err)
		return
	}

	h.mu.Lock()
	h.recorded++
	prune := h.recorded%pruneEvery == 0
	h.mu.Unlock()

	if prune {
		if _, err := h.store.History().Prune(historyKeep); err != nil {
			log.Printf("Error pruning history: %v", err)
		}
	}
}
