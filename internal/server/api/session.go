package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/ayusman/airbot/internal/app"
)

// SessionHandler serves status, the action log and session control.
type SessionHandler struct {
	app *app.App
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(a *app.App) *SessionHandler {
	return &SessionHandler{app: a}
}

// ServeHTTP routes:
//
//	GET  /api/status
//	GET  /api/log
//	POST /api/session/start
//	POST /api/session/stop
//	PUT  /api/session/enabled
func (h *SessionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/api/status":
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		writeJSON(w, http.StatusOK, h.app.Status())
	case "/api/log":
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.log(w, r)
	case "/api/session/start":
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.start(w, r)
	case "/api/session/stop":
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.app.Stop()
		writeJSON(w, http.StatusOK, h.app.Status())
	case "/api/session/enabled":
		if r.Method != http.MethodPut {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.setEnabled(w, r)
	default:
		http.NotFound(w, r)
	}
}

type logEntryResponse struct {
	Time    time.Time `json:"time"`
	Gesture string    `json:"gesture"`
	Action  string    `json:"action"`
	Error   string    `json:"error,omitempty"`
	Line    string    `json:"line"`
}

type logResponse struct {
	Entries []logEntryResponse `json:"entries"`
}

// log handles GET /api/log, oldest entry first.
func (h *SessionHandler) log(w http.ResponseWriter, r *http.Request) {
	entries := h.app.Dispatcher().Log().Entries()

	response := logResponse{Entries: make([]logEntryResponse, 0, len(entries))}
	for _, e := range entries {
		response.Entries = append(response.Entries, logEntryResponse{
			Time:    e.Time,
			Gesture: e.Gesture.Slug(),
			Action:  string(e.Action),
			Error:   e.Err,
			Line:    e.String(),
		})
	}

	writeJSON(w, http.StatusOK, response)
}

// start handles POST /api/session/start.
func (h *SessionHandler) start(w http.ResponseWriter, r *http.Request) {
	if err := h.app.Start(); err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, h.app.Status())
}

type enabledRequest struct {
	Enabled *bool `json:"enabled"`
}

// setEnabled handles PUT /api/session/enabled.
func (h *SessionHandler) setEnabled(w http.ResponseWriter, r *http.Request) {
	var req enabledRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.Enabled == nil {
		writeError(w, http.StatusBadRequest, "enabled is required")
		return
	}

	h.app.SetEnabled(*req.Enabled)
	writeJSON(w, http.StatusOK, h.app.Status())
}
