// Package app provides the main application logic for the Kuchipudi gesture recognition system.
package app

import (
	"log"
	"sync"
	"time"

	"github.com/ayusman/kuchipudi/internal/broadcast"
	"github.com/ayusman/kuchipudi/internal/capture"
	"github.com/ayusman/kuchipudi/internal/config"
	"github.com/ayusman/kuchipudi/internal/detector"
	"github.com/ayusman/kuchipudi/internal/gesture"
	"github.com/ayusman/kuchipudi/internal/gesturepipe"
	"github.com/ayusman/kuchipudi/internal/plugin"
	"github.com/ayusman/kuchipudi/internal/store"
)

// Pipeline timing constants.
const (
	// IdleFPS is the frame rate when no motion is detected.
	IdleFPS = 5
	// ActiveFPS is the frame rate during active detection.
	ActiveFPS = 15
	// IdleTimeoutMs is the time in milliseconds to wait before switching back to idle mode.
	IdleTimeoutMs = 2000
	// PathBufferSize is the maximum number of frames to buffer for dynamic gesture detection.
	PathBufferSize = 60
	// MaxConsecutiveReadFailures is the number of camera read failures in a
	// row after which the vision loop gives up and terminates.
	MaxConsecutiveReadFailures = 30
)

// Config holds configuration options for the application.
type Config struct {
	Store        *store.Store
	PluginDir    string
	CameraID     int
	MotionThresh float64
	// Pipeline carries the gesture-recognition tunables. A nil
	// value falls back to config.Default().
	Pipeline *config.Config
}

// App is the main application that orchestrates gesture detection and action execution.
type App struct {
	config         Config
	camera         capture.Camera
	motion         *capture.MotionDetector
	detector       detector.Detector
	staticMatcher  *gesture.StaticMatcher
	dynamicMatcher *gesture.DynamicMatcher
	pluginMgr      *plugin.Manager
	pluginExec     *plugin.Executor
	enabled        bool
	mu             sync.RWMutex
	stopCh         chan struct{}
	doneCh         chan struct{}
	lastMotionTime time.Time

	// pipeline is the core gesture-recognition pipeline: the
	// single owner of all per-hand state, driven exclusively by the vision
	// loop.
	pipeline    *gesturepipe.Pipeline
	broadcaster *broadcast.Broadcaster
	// clearHistoryCh carries clear_gesture_history requests from subscriber
	// goroutines to the vision loop, which is the only goroutine allowed to
	// touch pipeline state.
	clearHistoryCh chan struct{}

	statsMu       sync.RWMutex
	lastFrameMs   float64 // observed wall-clock time between the last two frames
	lastHandCount int     // snapshot taken by the vision loop after each Step

	eventMu        sync.RWMutex
	onGestureEvent func(gesturepipe.GestureEvent)

	// events is the ring buffer backing the /api/events diagnostic
	// endpoint.
	events eventLog
}

// OnGestureEvent registers a callback invoked from the vision loop for
// every GestureEvent the core pipeline emits, in addition to the
// broadcaster publish and any bound plugin action. Used by local,
// non-websocket consumers such as the system tray.
func (a *App) OnGestureEvent(fn func(gesturepipe.GestureEvent)) {
	a.eventMu.Lock()
	defer a.eventMu.Unlock()
	a.onGestureEvent = fn
}

// New creates a new App instance with the given configuration.
func New(cfg Config) *App {
	motionThreshold := cfg.MotionThresh
	if motionThreshold <= 0 {
		motionThreshold = 1.0 // Default threshold: 1% pixel change
	}

	pipelineCfg := cfg.Pipeline
	if pipelineCfg == nil {
		pipelineCfg = config.Default()
	}

	clearHistoryCh := make(chan struct{}, 1)
	bc := broadcast.New(
		pipelineCfg.Broadcaster.ToSubscriberConfig(),
		time.Duration(pipelineCfg.Broadcaster.StatusIntervalMs)*time.Millisecond,
		func() {
			select {
			case clearHistoryCh <- struct{}{}:
			default:
			}
		},
	)

	a := &App{
		config:         cfg,
		camera:         capture.NewCamera(cfg.CameraID),
		motion:         capture.NewMotionDetector(motionThreshold),
		staticMatcher:  gesture.NewStaticMatcher(),
		dynamicMatcher: gesture.NewDynamicMatcher(),
		pluginMgr:      plugin.NewManager(cfg.PluginDir),
		pluginExec:     plugin.NewExecutor(5000), // 5 second timeout for plugin execution
		enabled:        false,
		stopCh:         nil,
		lastMotionTime: time.Now(),
		pipeline: gesturepipe.NewPipeline(
			pipelineCfg.Intake.ToParams(),
			pipelineCfg.Classifier.ToParams(),
			pipelineCfg.StateMachine.ToParams(),
		),
		broadcaster:    bc,
		clearHistoryCh: clearHistoryCh,
	}

	// Try MediaPipe first, fall back to mock detector
	if mp, err := detector.NewMediaPipeDetector(pipelineCfg.Detector.ToDetectorConfig()); err == nil {
		a.detector = mp
		log.Println("Using MediaPipe hand detection")
	} else {
		log.Printf("MediaPipe not available (%v), using mock detector", err)
		a.detector = detector.NewMockDetector()
	}

	return a
}

// Broadcaster returns the gesture-event fan-out broadcaster so an HTTP
// server can expose it as a WebSocket stream.
func (a *App) Broadcaster() *broadcast.Broadcaster {
	return a.broadcaster
}

// VisionDone reports when the vision loop has exited. After Start, the
// channel closes either on Stop or when the camera fails
// MaxConsecutiveReadFailures times in a row; callers treat an unexpected
// close as fatal.
func (a *App) VisionDone() <-chan struct{} {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.doneCh
}

// SetEnabled enables or disables gesture detection.
func (a *App) SetEnabled(enabled bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.enabled = enabled
}

// IsEnabled returns whether gesture detection is currently enabled.
func (a *App) IsEnabled() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.enabled
}

// SetDetector sets the hand detector implementation to use.
func (a *App) SetDetector(d detector.Detector) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.detector = d
}

// LoadGestures loads gesture templates from the database into the matchers.
func (a *App) LoadGestures() error {
	if a.config.Store == nil {
		return nil
	}

	gestures, err := a.config.Store.Gestures().List()
	if err != nil {
		return err
	}

	for _, g := range gestures {
		template := &gesture.Template{
			ID:        g.ID,
			Name:      g.Name,
			Tolerance: g.Tolerance,
		}

		switch g.Type {
		case store.GestureTypeStatic:
			template.Type = gesture.TypeStatic
			landmarks, err := a.config.Store.Gestures().GetLandmarks(g.ID)
			if err != nil {
				log.Printf("Failed to load landmarks for %s: %v", g.Name, err)
			} else if len(landmarks) > 0 {
				template.Landmarks = storeLandmarksToDetector(landmarks)
			}
			a.staticMatcher.AddTemplate(template)

		case store.GestureTypeDynamic:
			template.Type = gesture.TypeDynamic
			path, err := a.config.Store.Gestures().GetPath(g.ID)
			if err != nil {
				log.Printf("Failed to load path for %s: %v", g.Name, err)
			} else if len(path) > 0 {
				template.Path = storePathToGesture(path)
			}
			a.dynamicMatcher.AddTemplate(template)
		}
	}

	log.Printf("Loaded %d gestures from database", len(gestures))
	return nil
}

// storeLandmarksToDetector converts store.Landmark slice to detector.Point3D slice.
func storeLandmarksToDetector(landmarks []store.Landmark) []detector.Point3D {
	points := make([]detector.Point3D, len(landmarks))
	for i, l := range landmarks {
		points[i] = detector.Point3D{X: l.X, Y: l.Y, Z: l.Z}
	}
	return points
}

// storePathToGesture converts store.PathPoint slice to gesture.PathPoint slice.
func storePathToGesture(path []store.PathPoint) []gesture.PathPoint {
	points := make([]gesture.PathPoint, len(path))
	for i, p := range path {
		points[i] = gesture.PathPoint{X: p.X, Y: p.Y, Timestamp: p.TimestampMs}
	}
	return points
}

// DiscoverPlugins scans the plugin directory and loads available plugins.
func (a *App) DiscoverPlugins() error {
	return a.pluginMgr.Discover()
}

// Start begins the detection pipeline.
func (a *App) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	// Don't start if already running
	if a.stopCh != nil {
		return nil
	}

	// Open the camera
	if err := a.camera.Open(); err != nil {
		return err
	}

	// Set initial FPS to idle mode
	a.camera.SetFPS(IdleFPS)

	// Create stop channel and start the pipeline
	a.stopCh = make(chan struct{})
	a.doneCh = make(chan struct{})
	go func() {
		defer close(a.doneCh)
		a.runPipeline()
	}()
	go a.broadcaster.RunStatusLoop(a.pipelineStats)

	log.Println("Detection pipeline started")
	return nil
}

// Stop halts the detection pipeline and releases resources.
func (a *App) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()

	// Signal the pipeline to stop
	if a.stopCh != nil {
		close(a.stopCh)
		a.stopCh = nil
	}

	// Close the camera
	if err := a.camera.Close(); err != nil {
		log.Printf("Error closing camera: %v", err)
	}

	// Close motion detector
	a.motion.Close()

	// Close the hand detector if set
	if a.detector != nil {
		if err := a.detector.Close(); err != nil {
			log.Printf("Error closing detector: %v", err)
		}
	}

	// Drain the broadcaster: stop the status loop and close every
	// subscriber with a normal close.
	a.broadcaster.Shutdown()

	log.Println("Detection pipeline stopped")
}

// pipelineStats reports the figures the broadcaster's periodic status
// message carries: observed FPS, a latency estimate, and
// the number of currently tracked hands.
func (a *App) pipelineStats() (fps, latencyMs float64, handsDetected int) {
	a.statsMu.RLock()
	dt := a.lastFrameMs
	hands := a.lastHandCount
	a.statsMu.RUnlock()

	if dt <= 0 {
		return 0, 0, hands
	}
	return 1000 / dt, dt, hands
}

// recordFrameLatency is called once per processed frame from the vision
// loop to update the FPS/latency estimate the status message reports.
func (a *App) recordFrameLatency(dtMs float64) {
	a.statsMu.Lock()
	a.lastFrameMs = dtMs
	a.statsMu.Unlock()
}

// recordHandCount snapshots the pipeline's active hand count so status
// and tray consumers never touch vision-loop-owned state directly.
func (a *App) recordHandCount(n int) {
	a.statsMu.Lock()
	a.lastHandCount = n
	a.statsMu.Unlock()
}

// ActiveHandCount returns the number of hands the core pipeline was
// tracking as of the last processed frame, for diagnostic consumers such
// as the system tray.
func (a *App) ActiveHandCount() int {
	a.statsMu.RLock()
	defer a.statsMu.RUnlock()
	return a.lastHandCount
}

// Camera returns the camera instance.
func (a *App) Camera() capture.Camera {
	return a.camera
}

// MotionDetector returns the motion detector instance.
func (a *App) MotionDetector() *capture.MotionDetector {
	return a.motion
}

// StaticMatcher returns the static gesture matcher.
func (a *App) StaticMatcher() *gesture.StaticMatcher {
	return a.staticMatcher
}

// DynamicMatcher returns the dynamic gesture matcher.
func (a *App) DynamicMatcher() *gesture.DynamicMatcher {
	return a.dynamicMatcher
}

// PluginManager returns the plugin manager.
func (a *App) PluginManager() *plugin.Manager {
	return a.pluginMgr
}

// Detector returns the hand detector.
func (a *App) Detector() detector.Detector {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.detector
}
