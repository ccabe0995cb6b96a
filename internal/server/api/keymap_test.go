package api

import (
	"errors"
	"net/http"
	"testing"

	"github.com/ayusman/airbot/internal/dispatch"
	"github.com/ayusman/airbot/internal/keys"
	"github.com/ayusman/airbot/internal/store"
)

func TestKeymapHandler_List(t *testing.T) {
	handler := NewKeymapHandler(keys.DefaultKeymap(), nil)

	rec := serve(handler, http.MethodGet, "/api/keymap", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}

	var response listBindingsResponse
	decode(t, rec, &response)

	if len(response.Bindings) != len(dispatch.Actions) {
		t.Fatalf("expected %d bindings, got %d", len(dispatch.Actions), len(response.Bindings))
	}
	for i, a := range dispatch.Actions {
		b := response.Bindings[i]
		if b.Action != string(a) {
			t.Errorf("binding %d: expected action %s, got %s", i, a, b.Action)
		}
		if b.Custom || b.Chord != b.Default {
			t.Errorf("binding %s: expected default chord, got %+v", a, b)
		}
	}
}

func TestKeymapHandler_Get(t *testing.T) {
	handler := NewKeymapHandler(keys.DefaultKeymap(), nil)

	t.Run("returns binding", func(t *testing.T) {
		rec := serve(handler, http.MethodGet, "/api/keymap/previous", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
		}

		var b bindingResponse
		decode(t, rec, &b)
		if b.Chord != "shift+p" || b.Key != "p" || len(b.Modifiers) != 1 || b.Modifiers[0] != "shift" {
			t.Errorf("unexpected binding %+v", b)
		}
	})

	t.Run("unknown action returns 404", func(t *testing.T) {
		rec := serve(handler, http.MethodGet, "/api/keymap/rewind", nil)
		if rec.Code != http.StatusNotFound {
			t.Errorf("expected status %d, got %d", http.StatusNotFound, rec.Code)
		}
	})

	t.Run("list rejects writes", func(t *testing.T) {
		rec := serve(handler, http.MethodPost, "/api/keymap", "{}")
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("expected status %d, got %d", http.StatusMethodNotAllowed, rec.Code)
		}
	})
}

func TestKeymapHandler_Update(t *testing.T) {
	s := newTestStore(t)
	km := keys.DefaultKeymap()
	handler := NewKeymapHandler(km, s)

	tests := []struct {
		name   string
		body   interface{}
		status int
		chord  string
	}{
		{"chord string", map[string]string{"chord": "Control+Right"}, http.StatusOK, "ctrl+right"},
		{"key and modifiers", map[string]interface{}{"key": "l", "modifiers": []string{"option"}}, http.StatusOK, "alt+l"},
		{"plain key", map[string]string{"key": "j"}, http.StatusOK, "j"},
		{"bad modifier", map[string]string{"chord": "hyper+n"}, http.StatusBadRequest, ""},
		{"empty", map[string]string{}, http.StatusBadRequest, ""},
		{"invalid JSON", "not json", http.StatusBadRequest, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(handler, http.MethodPut, "/api/keymap/next", tt.body)
			if rec.Code != tt.status {
				t.Fatalf("expected status %d, got %d: %s", tt.status, rec.Code, rec.Body.String())
			}
			if tt.status != http.StatusOK {
				return
			}

			var b bindingResponse
			decode(t, rec, &b)
			if b.Chord != tt.chord || !b.Custom {
				t.Errorf("expected custom chord %s, got %+v", tt.chord, b)
			}

			stored, err := s.Keymap().Get("next")
			if err != nil {
				t.Fatalf("Get() error = %v", err)
			}
			got := keys.Chord{Key: stored.Key, Modifiers: stored.Modifiers}
			if got.String() != tt.chord {
				t.Errorf("expected stored chord %s, got %s", tt.chord, got)
			}
		})
	}

	if c, _ := km.Lookup(dispatch.ActionNext); c.String() != "j" {
		t.Errorf("expected live keymap to hold the last valid chord, got %s", c)
	}
}

func TestKeymapHandler_Restore(t *testing.T) {
	s := newTestStore(t)
	km := keys.DefaultKeymap()
	handler := NewKeymapHandler(km, s)

	serve(handler, http.MethodPut, "/api/keymap/volume-up", map[string]string{"chord": "shift+up"})

	rec := serve(handler, http.MethodDelete, "/api/keymap/volume-up", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}

	var b bindingResponse
	decode(t, rec, &b)
	if b.Chord != "up" || b.Custom {
		t.Errorf("expected default chord, got %+v", b)
	}
	if _, err := s.Keymap().Get("volume-up"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected stored binding removed, got err = %v", err)
	}

	// Restoring an unchanged action is fine.
	rec = serve(handler, http.MethodDelete, "/api/keymap/volume-up", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
}

func TestRestoreKeymap(t *testing.T) {
	s := newTestStore(t)

	bindings := []*store.Binding{
		{Action: "toggle-play", Key: "space"},
		{Action: "next", Key: "right", Modifiers: []string{"ctrl"}},
		{Action: "rewind", Key: "r"},
		{Action: "previous", Key: "a+b"},
	}
	for _, b := range bindings {
		if err := s.Keymap().Upsert(b); err != nil {
			t.Fatalf("Upsert() error = %v", err)
		}
	}

	km := keys.DefaultKeymap()
	if err := RestoreKeymap(km, s); err != nil {
		t.Fatalf("RestoreKeymap() error = %v", err)
	}

	want := map[dispatch.Action]string{
		dispatch.ActionTogglePlay: "space",
		dispatch.ActionNext:       "ctrl+right",
		dispatch.ActionPrevious:   "shift+p",
		dispatch.ActionVolumeUp:   "up",
	}
	for a, chord := range want {
		if c, _ := km.Lookup(a); c.String() != chord {
			t.Errorf("%s: expected %s, got %s", a, chord, c)
		}
	}
}
