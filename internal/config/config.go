// Package config provides TOML configuration loading for the gesture
// recognition pipeline.
//
// The configuration file supports the following structure:
//
//	[camera]
//	device_id = 0
//	flip = false
//
//	[detector]
//	max_hands = 2
//	min_detection_confidence = 0.5
//	min_tracking_confidence = 0.5
//	model_complexity = 1
//
//	[intake]
//	match_distance = 0.15
//	miss_frames_to_retire = 10
//
//	[classifier]
//	swipe_window_size = 8
//	push_window_size = 8
//	swipe_dx_threshold = 0.08
//	swipe_dy_threshold = 0.08
//	cross_axis_ratio = 0.8
//	push_size_increase_threshold = 0.15
//	push_z_threshold = 0.10
//	pinch_enter = 0.05
//	pinch_exit = 0.07
//	open_palm_finger_threshold = 0.02
//	open_palm_min_fingers = 3
//	closed_fist_distance_threshold = 0.10
//	closed_fist_min_fingers = 4
//
//	[state_machine]
//	stability_frames = 5
//	cooldown_ms = 1000
//	allow_same_gesture_repeat = false
//
//	[broadcaster]
//	bind_host = ""
//	bind_port = 8765
//	queue_capacity = 64
//	idle_timeout_seconds = 60
//	status_interval_ms = 1000
//
// Example usage:
//
//	cfg, err := config.Load("config.toml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	pipeline := gesturepipe.NewPipeline(cfg.Intake.ToParams(), cfg.Classifier.ToParams(), cfg.StateMachine.ToParams())
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/ayusman/kuchipudi/internal/broadcast"
	"github.com/ayusman/kuchipudi/internal/detector"
	"github.com/ayusman/kuchipudi/internal/gesturepipe"
)

// Config is the complete configuration for the gesture recognition pipeline.
type Config struct {
	Camera       CameraConfig       `toml:"camera" json:"camera"`
	Detector     DetectorConfig     `toml:"detector" json:"detector"`
	Intake       IntakeConfig       `toml:"intake" json:"intake"`
	Classifier   ClassifierConfig   `toml:"classifier" json:"classifier"`
	StateMachine StateMachineConfig `toml:"state_machine" json:"state_machine"`
	Broadcaster  BroadcasterConfig  `toml:"broadcaster" json:"broadcaster"`
}

// CameraConfig holds webcam capture settings.
type CameraConfig struct {
	// DeviceID is the camera device index (default: 0).
	DeviceID int `toml:"device_id" json:"device_id"`
	// Flip mirrors the captured frame horizontally before detection.
	Flip bool `toml:"flip" json:"flip"`
}

// DetectorConfig holds the hand-landmark detector's tunables.
type DetectorConfig struct {
	MaxHands               int     `toml:"max_hands" json:"max_hands"`
	MinDetectionConfidence float64 `toml:"min_detection_confidence" json:"min_detection_confidence"`
	MinTrackingConfidence  float64 `toml:"min_tracking_confidence" json:"min_tracking_confidence"`
	ModelComplexity        int     `toml:"model_complexity" json:"model_complexity"`
}

// ToDetectorConfig converts DetectorConfig to detector.Config.
func (c DetectorConfig) ToDetectorConfig() detector.Config {
	return detector.Config{
		MaxHands:        c.MaxHands,
		MinConfidence:   c.MinDetectionConfidence,
		MinTrackingConf: c.MinTrackingConfidence,
		ModelComplexity: c.ModelComplexity,
	}
}

// IntakeConfig holds hand-identity assignment settings.
type IntakeConfig struct {
	MatchDistance      float64 `toml:"match_distance" json:"match_distance"`
	MissFramesToRetire int     `toml:"miss_frames_to_retire" json:"miss_frames_to_retire"`
}

// ToParams converts IntakeConfig to gesturepipe.IntakeParams.
func (c IntakeConfig) ToParams() gesturepipe.IntakeParams {
	return gesturepipe.IntakeParams{
		MatchDistance:      c.MatchDistance,
		MissFramesToRetire: c.MissFramesToRetire,
	}
}

// ClassifierConfig holds the geometric gesture-heuristic thresholds.
type ClassifierConfig struct {
	SwipeWindowSize int `toml:"swipe_window_size" json:"swipe_window_size"`
	PushWindowSize  int `toml:"push_window_size" json:"push_window_size"`

	SwipeDxThreshold float64 `toml:"swipe_dx_threshold" json:"swipe_dx_threshold"`
	SwipeDyThreshold float64 `toml:"swipe_dy_threshold" json:"swipe_dy_threshold"`
	CrossAxisRatio   float64 `toml:"cross_axis_ratio" json:"cross_axis_ratio"`

	PushSizeIncreaseThreshold float64 `toml:"push_size_increase_threshold" json:"push_size_increase_threshold"`
	PushZThreshold            float64 `toml:"push_z_threshold" json:"push_z_threshold"`

	PinchEnter float64 `toml:"pinch_enter" json:"pinch_enter"`
	PinchExit  float64 `toml:"pinch_exit" json:"pinch_exit"`

	OpenPalmFingerThreshold float64 `toml:"open_palm_finger_threshold" json:"open_palm_finger_threshold"`
	OpenPalmMinFingers      int     `toml:"open_palm_min_fingers" json:"open_palm_min_fingers"`

	ClosedFistDistanceThreshold float64 `toml:"closed_fist_distance_threshold" json:"closed_fist_distance_threshold"`
	ClosedFistMinFingers        int     `toml:"closed_fist_min_fingers" json:"closed_fist_min_fingers"`
}

// ToParams converts ClassifierConfig to gesturepipe.ClassifierParams.
func (c ClassifierConfig) ToParams() gesturepipe.ClassifierParams {
	return gesturepipe.ClassifierParams{
		SwipeWindowSize:             c.SwipeWindowSize,
		PushWindowSize:              c.PushWindowSize,
		SwipeDxThreshold:            c.SwipeDxThreshold,
		SwipeDyThreshold:            c.SwipeDyThreshold,
		CrossAxisRatio:              c.CrossAxisRatio,
		PushSizeIncreaseThreshold:   c.PushSizeIncreaseThreshold,
		PushZThreshold:              c.PushZThreshold,
		PinchEnter:                  c.PinchEnter,
		PinchExit:                   c.PinchExit,
		OpenPalmFingerThreshold:     c.OpenPalmFingerThreshold,
		OpenPalmMinFingers:          c.OpenPalmMinFingers,
		ClosedFistDistanceThreshold: c.ClosedFistDistanceThreshold,
		ClosedFistMinFingers:        c.ClosedFistMinFingers,
	}
}

// StateMachineConfig holds per-hand stability/cooldown settings.
type StateMachineConfig struct {
	StabilityFrames        int   `toml:"stability_frames" json:"stability_frames"`
	CooldownMs             int64 `toml:"cooldown_ms" json:"cooldown_ms"`
	AllowSameGestureRepeat bool  `toml:"allow_same_gesture_repeat" json:"allow_same_gesture_repeat"`
	SameGestureLockoutMs   int64 `toml:"same_gesture_lockout_ms" json:"same_gesture_lockout_ms"`
}

// ToParams converts StateMachineConfig to gesturepipe.StateMachineParams.
func (c StateMachineConfig) ToParams() gesturepipe.StateMachineParams {
	return gesturepipe.StateMachineParams{
		StabilityFrames:        c.StabilityFrames,
		CooldownMs:             c.CooldownMs,
		AllowSameGestureRepeat: c.AllowSameGestureRepeat,
		SameGestureLockoutMs:   c.SameGestureLockoutMs,
	}
}

// BroadcasterConfig holds the WebSocket fan-out settings.
type BroadcasterConfig struct {
	BindHost           string `toml:"bind_host" json:"bind_host"`
	BindPort           int    `toml:"bind_port" json:"bind_port"`
	QueueCapacity      int    `toml:"queue_capacity" json:"queue_capacity"`
	IdleTimeoutSeconds int    `toml:"idle_timeout_seconds" json:"idle_timeout_seconds"`
	StatusIntervalMs   int    `toml:"status_interval_ms" json:"status_interval_ms"`
}

// Addr returns the "host:port" string ListenAndServe expects.
func (c BroadcasterConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.BindHost, c.BindPort)
}

// ToSubscriberConfig converts BroadcasterConfig to broadcast.SubscriberConfig.
func (c BroadcasterConfig) ToSubscriberConfig() broadcast.SubscriberConfig {
	return broadcast.SubscriberConfig{
		QueueCapacity: c.QueueCapacity,
		IdleTimeout:   time.Duration(c.IdleTimeoutSeconds) * time.Second,
	}
}

// Default returns the default configuration, matching gesturepipe's and
// broadcast's own package defaults.
func Default() *Config {
	intake := gesturepipe.DefaultIntakeParams()
	classifier := gesturepipe.DefaultClassifierParams()
	sm := gesturepipe.DefaultStateMachineParams()
	sub := broadcast.DefaultSubscriberConfig()
	det := detector.DefaultConfig()

	return &Config{
		Camera: CameraConfig{DeviceID: 0, Flip: false},
		Detector: DetectorConfig{
			MaxHands:               det.MaxHands,
			MinDetectionConfidence: det.MinConfidence,
			MinTrackingConfidence:  det.MinTrackingConf,
			ModelComplexity:        det.ModelComplexity,
		},
		Intake: IntakeConfig{
			MatchDistance:      intake.MatchDistance,
			MissFramesToRetire: intake.MissFramesToRetire,
		},
		Classifier: ClassifierConfig{
			SwipeWindowSize:             classifier.SwipeWindowSize,
			PushWindowSize:              classifier.PushWindowSize,
			SwipeDxThreshold:            classifier.SwipeDxThreshold,
			SwipeDyThreshold:            classifier.SwipeDyThreshold,
			CrossAxisRatio:              classifier.CrossAxisRatio,
			PushSizeIncreaseThreshold:   classifier.PushSizeIncreaseThreshold,
			PushZThreshold:              classifier.PushZThreshold,
			PinchEnter:                  classifier.PinchEnter,
			PinchExit:                   classifier.PinchExit,
			OpenPalmFingerThreshold:     classifier.OpenPalmFingerThreshold,
			OpenPalmMinFingers:          classifier.OpenPalmMinFingers,
			ClosedFistDistanceThreshold: classifier.ClosedFistDistanceThreshold,
			ClosedFistMinFingers:        classifier.ClosedFistMinFingers,
		},
		StateMachine: StateMachineConfig{
			StabilityFrames:        sm.StabilityFrames,
			CooldownMs:             sm.CooldownMs,
			AllowSameGestureRepeat: sm.AllowSameGestureRepeat,
			SameGestureLockoutMs:   sm.SameGestureLockoutMs,
		},
		Broadcaster: BroadcasterConfig{
			BindHost:           "",
			BindPort:           8765,
			QueueCapacity:      sub.QueueCapacity,
			IdleTimeoutSeconds: int(sub.IdleTimeout.Seconds()),
			StatusIntervalMs:   1000,
		},
	}
}

// Load reads and parses a TOML configuration file. If the file does not
// exist, it returns the default configuration.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if _, err := toml.Decode(string(data), cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Save writes the configuration to path as TOML, so a value updated via
// the /api/config endpoint takes effect on the next start without
// hot-reloading the running pipeline.
func (c *Config) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating config file: %w", err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(c); err != nil {
		return fmt.Errorf("encoding config file: %w", err)
	}
	return nil
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if c.Detector.MaxHands <= 0 {
		return fmt.Errorf("detector max_hands must be positive, got %d", c.Detector.MaxHands)
	}
	if c.Detector.MinDetectionConfidence <= 0 || c.Detector.MinDetectionConfidence > 1 {
		return fmt.Errorf("detector min_detection_confidence must be in (0, 1], got %f", c.Detector.MinDetectionConfidence)
	}
	if c.Detector.MinTrackingConfidence <= 0 || c.Detector.MinTrackingConfidence > 1 {
		return fmt.Errorf("detector min_tracking_confidence must be in (0, 1], got %f", c.Detector.MinTrackingConfidence)
	}
	if c.Detector.ModelComplexity != 0 && c.Detector.ModelComplexity != 1 {
		return fmt.Errorf("detector model_complexity must be 0 or 1, got %d", c.Detector.ModelComplexity)
	}
	if c.Intake.MatchDistance <= 0 {
		return fmt.Errorf("intake match_distance must be positive, got %f", c.Intake.MatchDistance)
	}
	if c.Intake.MissFramesToRetire <= 0 {
		return fmt.Errorf("intake miss_frames_to_retire must be positive, got %d", c.Intake.MissFramesToRetire)
	}
	if c.Classifier.SwipeWindowSize <= 0 {
		return fmt.Errorf("classifier swipe_window_size must be positive, got %d", c.Classifier.SwipeWindowSize)
	}
	if c.Classifier.PushWindowSize <= 0 {
		return fmt.Errorf("classifier push_window_size must be positive, got %d", c.Classifier.PushWindowSize)
	}
	if c.Classifier.PinchEnter <= 0 || c.Classifier.PinchExit <= 0 || c.Classifier.PinchEnter >= c.Classifier.PinchExit {
		return fmt.Errorf("classifier pinch_enter must be positive and less than pinch_exit, got enter=%f exit=%f",
			c.Classifier.PinchEnter, c.Classifier.PinchExit)
	}
	if c.StateMachine.StabilityFrames <= 0 {
		return fmt.Errorf("state_machine stability_frames must be positive, got %d", c.StateMachine.StabilityFrames)
	}
	if c.StateMachine.CooldownMs < 0 {
		return fmt.Errorf("state_machine cooldown_ms must not be negative, got %d", c.StateMachine.CooldownMs)
	}
	if c.Broadcaster.QueueCapacity <= 0 {
		return fmt.Errorf("broadcaster queue_capacity must be positive, got %d", c.Broadcaster.QueueCapacity)
	}
	if c.Broadcaster.BindPort <= 0 || c.Broadcaster.BindPort > 65535 {
		return fmt.Errorf("broadcaster bind_port must be a valid TCP port, got %d", c.Broadcaster.BindPort)
	}
	return nil
}
