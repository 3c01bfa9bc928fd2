package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Camera.DeviceID != 0 {
		t.Errorf("expected DeviceID 0, got %d", cfg.Camera.DeviceID)
	}
	if cfg.Detector.MaxHands != 2 {
		t.Errorf("expected MaxHands 2, got %d", cfg.Detector.MaxHands)
	}
	if cfg.Detector.MinDetectionConfidence != 0.5 || cfg.Detector.MinTrackingConfidence != 0.5 {
		t.Errorf("expected detector confidences 0.5/0.5, got %f/%f", cfg.Detector.MinDetectionConfidence, cfg.Detector.MinTrackingConfidence)
	}
	if cfg.Detector.ModelComplexity != 1 {
		t.Errorf("expected ModelComplexity 1, got %d", cfg.Detector.ModelComplexity)
	}
	if cfg.Intake.MatchDistance != 0.15 {
		t.Errorf("expected MatchDistance 0.15, got %f", cfg.Intake.MatchDistance)
	}
	if cfg.Intake.MissFramesToRetire != 10 {
		t.Errorf("expected MissFramesToRetire 10, got %d", cfg.Intake.MissFramesToRetire)
	}
	if cfg.Classifier.SwipeWindowSize != 8 || cfg.Classifier.PushWindowSize != 8 {
		t.Errorf("expected window sizes 8/8, got %d/%d", cfg.Classifier.SwipeWindowSize, cfg.Classifier.PushWindowSize)
	}
	if cfg.Classifier.PinchEnter != 0.05 || cfg.Classifier.PinchExit != 0.07 {
		t.Errorf("expected pinch thresholds 0.05/0.07, got %f/%f", cfg.Classifier.PinchEnter, cfg.Classifier.PinchExit)
	}
	if cfg.StateMachine.StabilityFrames != 5 {
		t.Errorf("expected StabilityFrames 5, got %d", cfg.StateMachine.StabilityFrames)
	}
	if cfg.StateMachine.CooldownMs != 1000 {
		t.Errorf("expected CooldownMs 1000, got %d", cfg.StateMachine.CooldownMs)
	}
	if cfg.StateMachine.AllowSameGestureRepeat {
		t.Error("expected AllowSameGestureRepeat to default to false")
	}
	if cfg.Broadcaster.QueueCapacity != 64 {
		t.Errorf("expected QueueCapacity 64, got %d", cfg.Broadcaster.QueueCapacity)
	}
	if cfg.Broadcaster.BindPort != 8765 {
		t.Errorf("expected BindPort 8765, got %d", cfg.Broadcaster.BindPort)
	}
	if cfg.Broadcaster.Addr() != ":8765" {
		t.Errorf("expected Addr ':8765', got %q", cfg.Broadcaster.Addr())
	}
}

func TestValidate_InvalidBindPort(t *testing.T) {
	cfg := Default()
	cfg.Broadcaster.BindPort = 0
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for invalid bind_port")
	}
}

func TestLoad_EmptyPath(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg == nil {
		t.Fatal("expected non-nil config")
	}
}

func TestSave_RoundTrip(t *testing.T) {
	cfg := Default()
	cfg.StateMachine.CooldownMs = 1234
	cfg.Classifier.PinchEnter = 0.04

	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	reloaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if reloaded.StateMachine.CooldownMs != 1234 {
		t.Errorf("expected cooldown_ms 1234, got %d", reloaded.StateMachine.CooldownMs)
	}
	if reloaded.Classifier.PinchEnter != 0.04 {
		t.Errorf("expected pinch_enter 0.04, got %f", reloaded.Classifier.PinchEnter)
	}
}

func TestLoad_NonExistentFile(t *testing.T) {
	cfg, err := Load("/nonexistent/path/config.toml")
	if err != nil {
		t.Fatalf("unexpected error for non-existent file: %v", err)
	}
	if cfg == nil {
		t.Fatal("expected default config for non-existent file")
	}
}

func TestLoad_ValidFile(t *testing.T) {
	content := `
[camera]
device_id = 1
flip = true

[detector]
max_hands = 1
min_detection_confidence = 0.7
min_tracking_confidence = 0.6
model_complexity = 0

[intake]
match_distance = 0.2
miss_frames_to_retire = 15

[classifier]
swipe_window_size = 10
push_window_size = 12
pinch_enter = 0.04
pinch_exit = 0.06

[state_machine]
stability_frames = 3
cooldown_ms = 500
allow_same_gesture_repeat = true

[broadcaster]
queue_capacity = 32
idle_timeout_seconds = 30
status_interval_ms = 2000
`
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test file: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Camera.DeviceID != 1 || !cfg.Camera.Flip {
		t.Errorf("expected camera overrides to apply, got %+v", cfg.Camera)
	}
	if cfg.Detector.MaxHands != 1 || cfg.Detector.ModelComplexity != 0 {
		t.Errorf("expected detector overrides to apply, got %+v", cfg.Detector)
	}
	if cfg.Intake.MatchDistance != 0.2 || cfg.Intake.MissFramesToRetire != 15 {
		t.Errorf("expected intake overrides to apply, got %+v", cfg.Intake)
	}
	if cfg.Classifier.SwipeWindowSize != 10 || cfg.Classifier.PushWindowSize != 12 {
		t.Errorf("expected classifier overrides to apply, got %+v", cfg.Classifier)
	}
	if cfg.StateMachine.StabilityFrames != 3 || cfg.StateMachine.CooldownMs != 500 || !cfg.StateMachine.AllowSameGestureRepeat {
		t.Errorf("expected state_machine overrides to apply, got %+v", cfg.StateMachine)
	}
	if cfg.Broadcaster.QueueCapacity != 32 {
		t.Errorf("expected broadcaster override to apply, got %+v", cfg.Broadcaster)
	}
}

func TestLoad_InvalidTOML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "invalid.toml")
	if err := os.WriteFile(path, []byte("invalid [ toml"), 0644); err != nil {
		t.Fatalf("failed to write test file: %v", err)
	}

	_, err := Load(path)
	if err == nil {
		t.Error("expected error for invalid TOML")
	}
}

func TestValidate_InvalidDetectorMaxHands(t *testing.T) {
	cfg := Default()
	cfg.Detector.MaxHands = 0
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for non-positive max_hands")
	}
}

func TestValidate_InvalidDetectorConfidence(t *testing.T) {
	cfg := Default()
	cfg.Detector.MinDetectionConfidence = 1.5
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for out-of-range min_detection_confidence")
	}
}

func TestValidate_InvalidMatchDistance(t *testing.T) {
	cfg := Default()
	cfg.Intake.MatchDistance = 0
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for non-positive match_distance")
	}
}

func TestValidate_InvalidPinchThresholds(t *testing.T) {
	cfg := Default()
	cfg.Classifier.PinchEnter = 0.08
	cfg.Classifier.PinchExit = 0.07
	if err := cfg.Validate(); err == nil {
		t.Error("expected error when pinch_enter >= pinch_exit")
	}
}

func TestValidate_InvalidStabilityFrames(t *testing.T) {
	cfg := Default()
	cfg.StateMachine.StabilityFrames = 0
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for non-positive stability_frames")
	}
}

func TestValidate_InvalidQueueCapacity(t *testing.T) {
	cfg := Default()
	cfg.Broadcaster.QueueCapacity = 0
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for non-positive queue_capacity")
	}
}

func TestToParams_RoundTrip(t *testing.T) {
	cfg := Default()
	params := cfg.Intake.ToParams()
	if params.MatchDistance != cfg.Intake.MatchDistance || params.MissFramesToRetire != cfg.Intake.MissFramesToRetire {
		t.Errorf("expected ToParams to carry values through unchanged, got %+v", params)
	}
}
