package api

import (
	"net/http"

	"github.com/ayusman/airbot/internal/dispatch"
	"github.com/ayusman/airbot/internal/gesture"
	"github.com/ayusman/airbot/internal/keys"
)

// GestureHandler serves the gesture instruction table.
type GestureHandler struct {
	keymap *keys.Keymap
}

// NewGestureHandler creates a new GestureHandler. The keymap supplies the
// key each gesture currently sends.
func NewGestureHandler(km *keys.Keymap) *GestureHandler {
	return &GestureHandler{keymap: km}
}

type gestureResponse struct {
	Fingers     string `json:"fingers"`
	Gesture     string `json:"gesture"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Action      string `json:"action"`
	Chord       string `json:"chord,omitempty"`
}

type listGesturesResponse struct {
	Gestures []gestureResponse `json:"gestures"`
}

// ServeHTTP handles GET /api/gestures.
func (h *GestureHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := listGesturesResponse{
		Gestures: make([]gestureResponse, 0, len(gesture.Patterns)),
	}
	for _, p := range gesture.Patterns {
		action := dispatch.ActionFor(p.Gesture)
		g := gestureResponse{
			Fingers:     p.Fingers.String(),
			Gesture:     p.Gesture.Slug(),
			Name:        p.Gesture.String(),
			Description: p.Description,
			Action:      string(action),
		}
		if h.keymap != nil {
			if chord, ok := h.keymap.Lookup(action); ok {
				g.Chord = chord.String()
			}
		}
		response.Gestures = append(response.Gestures, g)
	}

	writeJSON(w, http.StatusOK, response)
}
