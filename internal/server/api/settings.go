package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/ayusman/airbot/internal/app"
	"github.com/ayusman/airbot/internal/dispatch"
	"github.com/ayusman/airbot/internal/store"
)

// SettingsHandler reads and changes the debounce settings.
type SettingsHandler struct {
	app   *app.App
	store *store.Store
}

// NewSettingsHandler creates a new SettingsHandler. A nil store keeps
// changes in memory only.
func NewSettingsHandler(a *app.App, s *store.Store) *SettingsHandler {
	return &SettingsHandler{app: a, store: s}
}

type settingsRequest struct {
	Cooldown string `json:"cooldown"`
	Policy   string `json:"policy"`
}

type settingsResponse struct {
	Cooldown string `json:"cooldown"`
	Policy   string `json:"policy"`
	// Deferred is true when the values wait for the next session.
	Deferred bool `json:"deferred"`
}

// ServeHTTP handles GET and PUT /api/settings.
func (h *SettingsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, h.current())
	case http.MethodPut:
		h.update(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// current returns the settings the next session will use.
func (h *SettingsHandler) current() settingsResponse {
	st := h.app.Status()
	if st.Pending != nil {
		return settingsResponse{
			Cooldown: st.Pending.Cooldown.String(),
			Policy:   string(st.Pending.Policy),
			Deferred: true,
		}
	}
	return settingsResponse{Cooldown: st.Cooldown, Policy: string(st.Policy)}
}

// update handles PUT /api/settings. Omitted fields keep their value.
func (h *SettingsHandler) update(w http.ResponseWriter, r *http.Request) {
	var req settingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	cur := h.current()
	if req.Cooldown == "" {
		req.Cooldown = cur.Cooldown
	}
	if req.Policy == "" {
		req.Policy = cur.Policy
	}

	cooldown, err := time.ParseDuration(req.Cooldown)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid cooldown")
		return
	}

	cfg := dispatch.Config{Cooldown: cooldown, Policy: dispatch.Policy(req.Policy)}
	if err := h.app.Configure(cfg); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if h.store != nil {
		settings := h.store.Settings()
		if err := settings.Set(store.SettingCooldown, cooldown.String()); err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to save settings")
			return
		}
		if err := settings.Set(store.SettingPolicy, req.Policy); err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to save settings")
			return
		}
	}

	writeJSON(w, http.StatusOK, h.current())
}

// RestoreSettings applies debounce settings saved in s to a. Nothing
// happens when no settings were saved.
func RestoreSettings(a *app.App, s *store.Store) error {
	cfg := a.Dispatcher().Config()
	found := false

	if v, err := s.Settings().Get(store.SettingCooldown); err == nil {
		d, err := time.ParseDuration(v)
		if err != nil {
			return err
		}
		cfg.Cooldown = d
		found = true
	} else if !errors.Is(err, store.ErrNotFound) {
		return err
	}

	if v, err := s.Settings().Get(store.SettingPolicy); err == nil {
		cfg.Policy = dispatch.Policy(v)
		found = true
	} else if !errors.Is(err, store.ErrNotFound) {
		return err
	}

	if !found {
		return nil
	}
	return a.Configure(cfg)
}
