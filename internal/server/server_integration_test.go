package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"gocv.io/x/gocv"

	"github.com/ayusman/airbot/internal/capture"
	"github.com/ayusman/airbot/internal/detector"
	"github.com/ayusman/airbot/internal/keys"
	"github.com/ayusman/airbot/internal/store"
)

type brokenCamera struct{ capture.MockCamera }

func (c *brokenCamera) Open() error { return errors.New("device busy") }

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func doJSON(t *testing.T, client *http.Client, method, url, body string, out interface{}) int {
	t.Helper()

	req, err := http.NewRequest(method, url, bytes.NewBufferString(body))
	if err != nil {
		t.Fatalf("NewRequest() error = %v", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("%s %s error = %v", method, url, err)
	}
	defer resp.Body.Close()

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("%s %s decode error = %v", method, url, err)
		}
	}
	return resp.StatusCode
}

func TestAPI_DashboardWorkflow(t *testing.T) {
	a := newTestApp(t)
	st := newTestStore(t)

	srv := New(Config{App: a, Store: st, Keymap: keys.DefaultKeymap()})
	ts := httptest.NewServer(srv)
	defer ts.Close()

	client := ts.Client()

	// 1. Initial status
	var status struct {
		Running  bool   `json:"running"`
		Enabled  bool   `json:"enabled"`
		Cooldown string `json:"cooldown"`
		Policy   string `json:"policy"`
	}
	if code := doJSON(t, client, http.MethodGet, ts.URL+"/api/status", "", &status); code != http.StatusOK {
		t.Fatalf("GET /api/status status = %d, want %d", code, http.StatusOK)
	}
	if status.Running || !status.Enabled || status.Cooldown != "500ms" || status.Policy != "cooldown-only" {
		t.Errorf("unexpected initial status %+v", status)
	}

	// 2. Change settings
	var settings struct {
		Cooldown string `json:"cooldown"`
		Policy   string `json:"policy"`
		Deferred bool   `json:"deferred"`
	}
	code := doJSON(t, client, http.MethodPut, ts.URL+"/api/settings", `{"cooldown":"1s"}`, &settings)
	if code != http.StatusOK {
		t.Fatalf("PUT /api/settings status = %d, want %d", code, http.StatusOK)
	}
	if settings.Cooldown != "1s" || settings.Policy != "cooldown-only" || settings.Deferred {
		t.Errorf("unexpected settings %+v", settings)
	}
	if v, _ := st.Settings().Get(store.SettingCooldown); v != "1s" {
		t.Errorf("stored cooldown = %q, want 1s", v)
	}

	code = doJSON(t, client, http.MethodPut, ts.URL+"/api/settings", `{"policy":"latest-wins"}`, nil)
	if code != http.StatusBadRequest {
		t.Errorf("PUT bad policy status = %d, want %d", code, http.StatusBadRequest)
	}

	// 3. Rebind next to ctrl+right
	var binding struct {
		Action string `json:"action"`
		Chord  string `json:"chord"`
		Custom bool   `json:"custom"`
	}
	code = doJSON(t, client, http.MethodPut, ts.URL+"/api/keymap/next", `{"chord":"ctrl+right"}`, &binding)
	if code != http.StatusOK {
		t.Fatalf("PUT /api/keymap/next status = %d, want %d", code, http.StatusOK)
	}
	if binding.Chord != "ctrl+right" || !binding.Custom {
		t.Errorf("unexpected binding %+v", binding)
	}

	// 4. Dispatch through the app; history records it
	a.ProcessHands(context.Background(), []detector.HandLandmarks{detector.PinkyLandmarks()}, time.Now())

	var history struct {
		Entries []struct {
			Gesture string `json:"gesture"`
			Name    string `json:"name"`
			Action  string `json:"action"`
		} `json:"entries"`
	}
	if code := doJSON(t, client, http.MethodGet, ts.URL+"/api/history", "", &history); code != http.StatusOK {
		t.Fatalf("GET /api/history status = %d, want %d", code, http.StatusOK)
	}
	if len(history.Entries) != 1 {
		t.Fatalf("len(history) = %d, want 1", len(history.Entries))
	}
	if e := history.Entries[0]; e.Gesture != "next-video" || e.Name != "Next Video" || e.Action != "next" {
		t.Errorf("unexpected history entry %+v", e)
	}

	// 5. The in-memory log shows the same dispatch
	var actionLog struct {
		Entries []struct {
			Line string `json:"line"`
		} `json:"entries"`
	}
	doJSON(t, client, http.MethodGet, ts.URL+"/api/log", "", &actionLog)
	if len(actionLog.Entries) != 1 || !strings.HasSuffix(actionLog.Entries[0].Line, ": Next Video") {
		t.Errorf("unexpected log %+v", actionLog.Entries)
	}

	// 6. Restore the default binding
	code = doJSON(t, client, http.MethodDelete, ts.URL+"/api/keymap/next", "", &binding)
	if code != http.StatusOK || binding.Chord != "shift+n" || binding.Custom {
		t.Errorf("DELETE /api/keymap/next = %d %+v", code, binding)
	}
	if _, err := st.Keymap().Get("next"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("stored binding after restore: err = %v, want ErrNotFound", err)
	}
}

func TestAPI_SessionControl(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	a := newTestApp(t)
	frame := gocv.NewMatWithSize(48, 64, gocv.MatTypeCV8UC3)
	defer frame.Close()
	cam := capture.NewMockCamera([]*gocv.Mat{&frame}, true)
	a.SetCamera(cam)

	ts := httptest.NewServer(New(Config{App: a}))
	defer ts.Close()
	client := ts.Client()

	var status struct {
		Running bool `json:"running"`
		Enabled bool `json:"enabled"`
	}
	if code := doJSON(t, client, http.MethodPost, ts.URL+"/api/session/start", "", &status); code != http.StatusOK {
		t.Fatalf("POST /api/session/start status = %d, want %d", code, http.StatusOK)
	}
	if !status.Running || !cam.IsOpen() {
		t.Errorf("expected running session with open camera, got %+v", status)
	}

	doJSON(t, client, http.MethodPut, ts.URL+"/api/session/enabled", `{"enabled":false}`, &status)
	if status.Enabled {
		t.Error("expected detection disabled")
	}
	if code := doJSON(t, client, http.MethodPut, ts.URL+"/api/session/enabled", `{}`, nil); code != http.StatusBadRequest {
		t.Errorf("PUT without enabled status = %d, want %d", code, http.StatusBadRequest)
	}

	// Settings changed mid-session wait for the next one.
	var settings struct {
		Cooldown string `json:"cooldown"`
		Deferred bool   `json:"deferred"`
	}
	doJSON(t, client, http.MethodPut, ts.URL+"/api/settings", `{"cooldown":"2s"}`, &settings)
	if !settings.Deferred || settings.Cooldown != "2s" {
		t.Errorf("unexpected settings %+v", settings)
	}

	if code := doJSON(t, client, http.MethodPost, ts.URL+"/api/session/stop", "", &status); code != http.StatusOK {
		t.Fatalf("POST /api/session/stop status = %d, want %d", code, http.StatusOK)
	}
	if status.Running || cam.IsOpen() {
		t.Errorf("expected stopped session with closed camera, got %+v", status)
	}

	if code := doJSON(t, client, http.MethodGet, ts.URL+"/api/session/start", "", nil); code != http.StatusMethodNotAllowed {
		t.Errorf("GET /api/session/start status = %d, want %d", code, http.StatusMethodNotAllowed)
	}
}

func TestAPI_SessionStartFailure(t *testing.T) {
	a := newTestApp(t)
	a.SetCamera(&brokenCamera{})

	ts := httptest.NewServer(New(Config{App: a}))
	defer ts.Close()

	var response struct {
		Error string `json:"error"`
	}
	code := doJSON(t, ts.Client(), http.MethodPost, ts.URL+"/api/session/start", "", &response)
	if code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want %d", code, http.StatusServiceUnavailable)
	}
	if !strings.Contains(response.Error, "device busy") {
		t.Errorf("error = %q, want it to mention the camera failure", response.Error)
	}
	if a.Running() {
		t.Error("expected no running session")
	}
}

func TestAPI_EventsWebSocket(t *testing.T) {
	a := newTestApp(t)
	srv := New(Config{App: a})
	ts := httptest.NewServer(srv)
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/events"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for srv.Events().Clients() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("client never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	at := time.Date(2026, 5, 4, 21, 15, 2, 0, time.UTC)
	a.ProcessHands(context.Background(), []detector.HandLandmarks{detector.PeaceLandmarks()}, at)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var event Event
	if err := conn.ReadJSON(&event); err != nil {
		t.Fatalf("ReadJSON() error = %v", err)
	}

	if event.Type != "dispatch" || event.Gesture != "volume-up" || event.Action != "volume-up" {
		t.Errorf("unexpected event %+v", event)
	}
	if event.Line != "21:15:02: Volume Up" {
		t.Errorf("line = %q, want %q", event.Line, "21:15:02: Volume Up")
	}

	srv.Events().Close()
	if _, _, err := conn.ReadMessage(); !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
		t.Errorf("expected normal closure, got %v", err)
	}
}

func TestAPI_HealthCheck(t *testing.T) {
	srv := New(Config{})
	ts := httptest.NewServer(srv)
	defer ts.Close()

	resp, err := ts.Client().Get(ts.URL + "/api/health")
	if err != nil {
		t.Fatalf("GET /api/health error = %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
}

func TestAPI_Stream(t *testing.T) {
	a := newTestApp(t)
	ts := httptest.NewServer(New(Config{App: a}))
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/api/stream", nil)
	resp, err := ts.Client().Do(req)
	if err != nil {
		t.Fatalf("GET /api/stream error = %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "multipart/x-mixed-replace; boundary=frame" {
		t.Errorf("Content-Type = %q", ct)
	}
	if n := a.Frames().Subscribers(); n != 1 {
		t.Fatalf("subscribers = %d, want 1", n)
	}

	a.Frames().PublishJPEG([]byte("jpeg-bytes"))

	want := "--frame\r\nContent-Type: image/jpeg\r\nContent-Length: 10\r\n\r\njpeg-bytes\r\n"
	buf := make([]byte, len(want))
	if _, err := io.ReadFull(resp.Body, buf); err != nil {
		t.Fatalf("read part: %v", err)
	}
	if string(buf) != want {
		t.Errorf("part = %q, want %q", buf, want)
	}
}
