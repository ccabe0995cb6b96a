package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/ayusman/airbot/internal/dispatch"
	"github.com/ayusman/airbot/internal/keys"
	"github.com/ayusman/airbot/internal/store"
)

// KeymapHandler handles HTTP requests for key bindings.
type KeymapHandler struct {
	keymap *keys.Keymap
	store  *store.Store
}

// NewKeymapHandler creates a new KeymapHandler. A nil store keeps changes
// in memory only.
func NewKeymapHandler(km *keys.Keymap, s *store.Store) *KeymapHandler {
	return &KeymapHandler{keymap: km, store: s}
}

// ServeHTTP implements the http.Handler interface and routes requests to appropriate methods.
func (h *KeymapHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Expected paths: /api/keymap or /api/keymap/{action}
	path := itemPath(r, "/api/keymap")

	if path == "" {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.list(w, r)
		return
	}

	action, err := dispatch.ParseAction(path)
	if err != nil {
		writeError(w, http.StatusNotFound, "Unknown action")
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.get(w, r, action)
	case http.MethodPut:
		h.update(w, r, action)
	case http.MethodDelete:
		h.restore(w, r, action)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// Request and response types

type updateBindingRequest struct {
	// Chord is the "shift+n" form. When empty, Key and Modifiers are used.
	Chord     string   `json:"chord"`
	Key       string   `json:"key"`
	Modifiers []string `json:"modifiers"`
}

type bindingResponse struct {
	Action    string   `json:"action"`
	Chord     string   `json:"chord"`
	Key       string   `json:"key"`
	Modifiers []string `json:"modifiers,omitempty"`
	Default   string   `json:"default"`
	Custom    bool     `json:"custom"`
}

type listBindingsResponse struct {
	Bindings []bindingResponse `json:"bindings"`
}

func toBindingResponse(a dispatch.Action, c keys.Chord) bindingResponse {
	def := keys.DefaultChords[a]
	return bindingResponse{
		Action:    string(a),
		Chord:     c.String(),
		Key:       c.Key,
		Modifiers: c.Modifiers,
		Default:   def.String(),
		Custom:    c.String() != def.String(),
	}
}

// list handles GET /api/keymap.
func (h *KeymapHandler) list(w http.ResponseWriter, r *http.Request) {
	all := h.keymap.All()

	response := listBindingsResponse{
		Bindings: make([]bindingResponse, 0, len(dispatch.Actions)),
	}
	for _, a := range dispatch.Actions {
		if c, ok := all[a]; ok {
			response.Bindings = append(response.Bindings, toBindingResponse(a, c))
		}
	}

	writeJSON(w, http.StatusOK, response)
}

// get handles GET /api/keymap/{action}.
func (h *KeymapHandler) get(w http.ResponseWriter, r *http.Request, a dispatch.Action) {
	c, ok := h.keymap.Lookup(a)
	if !ok {
		writeError(w, http.StatusNotFound, "Action not bound")
		return
	}
	writeJSON(w, http.StatusOK, toBindingResponse(a, c))
}

// update handles PUT /api/keymap/{action}.
func (h *KeymapHandler) update(w http.ResponseWriter, r *http.Request, a dispatch.Action) {
	var req updateBindingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	var chord keys.Chord
	if req.Chord != "" {
		var err error
		if chord, err = keys.ParseChord(req.Chord); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	} else {
		chord = keys.Chord{Key: req.Key, Modifiers: req.Modifiers}
	}

	if err := h.keymap.Set(a, chord); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	chord, _ = h.keymap.Lookup(a)

	if h.store != nil {
		binding := &store.Binding{Action: string(a), Key: chord.Key, Modifiers: chord.Modifiers}
		if err := h.store.Keymap().Upsert(binding); err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to save binding")
			return
		}
	}

	writeJSON(w, http.StatusOK, toBindingResponse(a, chord))
}

// restore handles DELETE /api/keymap/{action} and puts the default chord back.
func (h *KeymapHandler) restore(w http.ResponseWriter, r *http.Request, a dispatch.Action) {
	chord, err := h.keymap.Restore(a)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if h.store != nil {
		if err := h.store.Keymap().Delete(string(a)); err != nil && !errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusInternalServerError, "Failed to delete binding")
			return
		}
	}

	writeJSON(w, http.StatusOK, toBindingResponse(a, chord))
}

// RestoreKeymap applies the bindings saved in s to km. Rows that no longer
// name a known action or a valid chord are skipped.
func RestoreKeymap(km *keys.Keymap, s *store.Store) error {
	bindings, err := s.Keymap().List()
	if err != nil {
		return err
	}
	for _, b := range bindings {
		chord := keys.Chord{Key: b.Key, Modifiers: b.Modifiers}
		if err := km.Set(dispatch.Action(b.Action), chord); err != nil {
			log.Printf("Skipping stored binding for %s: %v", b.Action, err)
		}
	}
	return nil
}
