package e2e

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ayusman/kuchipudi/internal/app"
	"github.com/ayusman/kuchipudi/internal/config"
	"github.com/ayusman/kuchipudi/internal/detector"
	"github.com/ayusman/kuchipudi/internal/gesturepipe"
	"github.com/ayusman/kuchipudi/internal/server"
	"github.com/ayusman/kuchipudi/internal/store"
)

// readFrame reads one JSON message from the websocket with a bounded wait.
func readFrame(t *testing.T, conn *websocket.Conn) map[string]interface{} {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("websocket read: %v", err)
	}
	var msg map[string]interface{}
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("unmarshal %q: %v", data, err)
	}
	return msg
}

// readFrameOfType skips frames until one of the wanted type arrives.
func readFrameOfType(t *testing.T, conn *websocket.Conn, want string) map[string]interface{} {
	t.Helper()
	for i := 0; i < 10; i++ {
		msg := readFrame(t, conn)
		if msg["type"] == want {
			return msg
		}
	}
	t.Fatalf("never received a %q frame", want)
	return nil
}

func TestE2E_GestureStream(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test")
	}

	tmpDir := t.TempDir()

	// Short cooldown so the test can emit twice without waiting a second.
	pipelineCfg := config.Default()
	pipelineCfg.StateMachine.CooldownMs = 50

	application := app.New(app.Config{
		PluginDir:    filepath.Join(tmpDir, "plugins"),
		MotionThresh: 0.05,
		Pipeline:     pipelineCfg,
	})
	application.SetDetector(detector.NewMockDetector())

	srv := server.New(server.Config{
		Broadcaster: application.Broadcaster(),
		Events:      application,
	})
	ts := httptest.NewServer(srv)
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/gestures/stream"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("websocket dial: %v", err)
	}
	defer conn.Close()

	// The hello frame arrives first and confirms the subscriber is
	// registered before any gesture is published.
	hello := readFrame(t, conn)
	if hello["type"] != "hello" || hello["version"] != "1.0.0" {
		t.Fatalf("expected hello v1.0.0, got %v", hello)
	}

	// Drive five open-palm frames through the core pipeline, standing in
	// for the vision loop; the fifth fills the stability window.
	hands := []detector.HandLandmarks{detector.OpenPalmLandmarks()}
	for frame := 1; frame <= 5; frame++ {
		application.ProcessHands(hands)
	}

	gestureMsg := readFrameOfType(t, conn, "gesture")
	if gestureMsg["gesture"] != string(gesturepipe.OpenPalm) {
		t.Fatalf("expected OPEN_PALM on the wire, got %v", gestureMsg)
	}
	if gestureMsg["hand_id"] != float64(0) {
		t.Fatalf("expected hand_id 0, got %v", gestureMsg["hand_id"])
	}
	meta, ok := gestureMsg["metadata"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected gesture metadata, got %v", gestureMsg)
	}
	center, ok := meta["hand_center"].([]interface{})
	if !ok || len(center) != 2 {
		t.Fatalf("expected a 2D hand_center, got %v", meta)
	}
	plainX := center[0].(float64)

	// Ping must be echoed as pong.
	conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"ping","timestamp":42}`))
	if pong := readFrameOfType(t, conn, "pong"); pong["timestamp"] == nil {
		t.Fatalf("expected a timestamped pong, got %v", pong)
	}

	// Flip mirror mode: the next event's hand_center.x must be reflected.
	conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"config","mirror_mode":true}`))
	time.Sleep(100 * time.Millisecond) // cooldown expiry + config processing

	for frame := 1; frame <= 5; frame++ {
		application.ProcessHands(hands)
	}
	mirroredMsg := readFrameOfType(t, conn, "gesture")
	mirroredMeta := mirroredMsg["metadata"].(map[string]interface{})
	mirroredX := mirroredMeta["hand_center"].([]interface{})[0].(float64)
	if diff := (plainX + mirroredX) - 1; diff > 1e-6 || diff < -1e-6 {
		t.Fatalf("expected mirrored x to reflect around 0.5: plain=%v mirrored=%v", plainX, mirroredX)
	}

	// The diagnostic event log saw both emissions.
	resp, err := ts.Client().Get(ts.URL + "/api/events")
	if err != nil {
		t.Fatalf("GET /api/events: %v", err)
	}
	defer resp.Body.Close()
	var eventsResp struct {
		Events []struct {
			Gesture string `json:"gesture"`
		} `json:"events"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&eventsResp); err != nil {
		t.Fatalf("decode /api/events: %v", err)
	}
	if len(eventsResp.Events) != 2 {
		t.Fatalf("expected 2 logged events, got %d", len(eventsResp.Events))
	}
}

func TestE2E_GestureAPIWorkflow(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test")
	}

	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "data.db")

	s, err := store.New(dbPath)
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	defer s.Close()

	srv := server.New(server.Config{Store: s})
	ts := httptest.NewServer(srv)
	defer ts.Close()

	client := ts.Client()

	t.Run("CreateGesture", func(t *testing.T) {
		resp, err := client.Post(
			ts.URL+"/api/gestures",
			"application/json",
			strings.NewReader(`{"name": "wave", "type": "dynamic"}`),
		)
		if err != nil {
			t.Fatalf("create gesture error = %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusCreated)
		}
	})

	t.Run("ReservedLabelRejected", func(t *testing.T) {
		// A trained template may not shadow a core gesture label.
		resp, err := client.Post(
			ts.URL+"/api/gestures",
			"application/json",
			strings.NewReader(`{"name": "OPEN_PALM", "type": "static"}`),
		)
		if err != nil {
			t.Fatalf("create gesture error = %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
		}
	})
}

func TestE2E_ActionBinding(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test")
	}

	tmpDir := t.TempDir()
	s, _ := store.New(filepath.Join(tmpDir, "data.db"))
	defer s.Close()

	srv := server.New(server.Config{Store: s})
	ts := httptest.NewServer(srv)
	defer ts.Close()

	client := ts.Client()

	resp, err := client.Post(
		ts.URL+"/api/gestures",
		"application/json",
		strings.NewReader(`{"name": "test-gesture", "type": "static"}`),
	)
	if err != nil {
		t.Fatalf("create gesture error = %v", err)
	}

	var gestureResp struct {
		ID string `json:"id"`
	}
	json.NewDecoder(resp.Body).Decode(&gestureResp)
	resp.Body.Close()

	postAction := func(gestureID string) *http.Response {
		body, _ := json.Marshal(map[string]interface{}{
			"gesture_id":  gestureID,
			"plugin_name": "system-control",
			"action_name": "volume_up",
			"enabled":     true,
		})
		resp, err := client.Post(ts.URL+"/api/actions", "application/json", strings.NewReader(string(body)))
		if err != nil {
			t.Fatalf("create action error = %v", err)
		}
		return resp
	}

	// Bind to the trained template.
	resp = postAction(gestureResp.ID)
	if resp.StatusCode != http.StatusCreated {
		t.Errorf("create action status = %d, want %d", resp.StatusCode, http.StatusCreated)
	}
	resp.Body.Close()

	// Bind to a core gesture label directly: no template row exists for
	// it, but reserved labels are always bindable.
	resp = postAction(string(gesturepipe.SwipeLeft))
	if resp.StatusCode != http.StatusCreated {
		t.Errorf("create core-label action status = %d, want %d", resp.StatusCode, http.StatusCreated)
	}
	resp.Body.Close()

	// An unknown gesture reference is rejected.
	resp = postAction("no-such-gesture")
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("create unknown-gesture action status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
	}
	resp.Body.Close()

	resp, err = client.Get(ts.URL + "/api/actions")
	if err != nil {
		t.Fatalf("list actions error = %v", err)
	}

	var listResp struct {
		Actions []struct {
			ID        string `json:"id"`
			GestureID string `json:"gesture_id"`
		} `json:"actions"`
	}
	json.NewDecoder(resp.Body).Decode(&listResp)
	resp.Body.Close()

	if len(listResp.Actions) != 2 {
		t.Errorf("expected 2 actions, got %d", len(listResp.Actions))
	}
}
