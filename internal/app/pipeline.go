package app

import (
	"log"
	"time"

	"github.com/ayusman/kuchipudi/internal/detector"
	"github.com/ayusman/kuchipudi/internal/gesture"
	"github.com/ayusman/kuchipudi/internal/gesturepipe"
	"github.com/ayusman/kuchipudi/internal/plugin"
)

// runPipeline is the vision loop: single-threaded, cooperative
// within itself, driving motion-gated frame acquisition, hand detection,
// core gesture recognition, and the supplemental trained-gesture matchers.
//
// Pipeline logic:
//  1. Start in idle mode (idleFPS=5)
//  2. On motion detected, switch to active mode (activeFPS=15)
//  3. Run hand detection
//  4. Feed all observed hands through the core gesturepipe.Pipeline
//     (intake -> classifier -> per-hand state machines) and publish any
//     emitted GestureEvents to the broadcaster and bound plugin actions
//  5. Also match against user-trained static/dynamic gesture templates
//  6. Buffer path for dynamic gestures (last 60 frames)
//  7. After 2s no motion, switch back to idle mode
//  8. Clear path buffer on dynamic match to prevent repeated triggers
func (a *App) runPipeline() {
	// Path buffer for dynamic gesture detection
	pathBuffer := make([]gesture.PathPoint, 0, PathBufferSize)

	// Track whether we're in active mode
	activeMode := false

	// Track the last motion detection time
	lastMotionTime := time.Now()

	// Frame interval based on current FPS
	frameInterval := time.Second / time.Duration(IdleFPS)

	ticker := time.NewTicker(frameInterval)
	defer ticker.Stop()

	lastTick := time.Now()
	readFailures := 0

	for {
		select {
		case <-a.stopCh:
			return
		case <-a.clearHistoryCh:
			// Atomic reset between frames: safe here because the vision loop is
			// the pipeline's sole owner and this select only runs between
			// ticks.
			a.pipeline.ClearHistory()
		case <-ticker.C:
			now := time.Now()
			a.recordFrameLatency(float64(now.Sub(lastTick).Milliseconds()))
			lastTick = now

			// Skip processing if detection is disabled
			if !a.IsEnabled() {
				continue
			}

			// Read a frame from the camera
			frame, err := a.camera.ReadFrame()
			if err != nil {
				readFailures++
				log.Printf("Error reading frame: %v", err)
				if readFailures >= MaxConsecutiveReadFailures {
					log.Printf("Camera failed %d consecutive reads, stopping vision loop", readFailures)
					return
				}
				continue
			}
			readFailures = 0

			// Step 1: Motion detection
			motionDetected, _ := a.motion.Detect(frame)

			if motionDetected {
				lastMotionTime = time.Now()

				// Switch to active mode if not already
				if !activeMode {
					activeMode = true
					a.camera.SetFPS(ActiveFPS)
					frameInterval = time.Second / time.Duration(ActiveFPS)
					ticker.Reset(frameInterval)
					log.Println("Switched to active mode")
				}
			} else if activeMode {
				// Check if we should switch back to idle mode
				if time.Since(lastMotionTime) > time.Duration(IdleTimeoutMs)*time.Millisecond {
					activeMode = false
					a.camera.SetFPS(IdleFPS)
					frameInterval = time.Second / time.Duration(IdleFPS)
					ticker.Reset(frameInterval)
					pathBuffer = pathBuffer[:0] // Clear path buffer
					log.Println("Switched to idle mode")
				}
			}

			// Skip further processing if not in active mode or no detector
			if !activeMode || a.detector == nil {
				frame.Close()
				continue
			}

			// Step 2: Hand detection
			hands, err := a.detector.Detect(frame)
			frame.Close() // Done with the frame

			if err != nil {
				log.Printf("Error detecting hands: %v", err)
				continue
			}

			// Step 3: core gesture recognition over the whole frame's hands.
			coreEvents := a.ProcessHands(hands)

			// The core classifier's temporal gestures (swipe, push-forward)
			// outrank the supplemental template matchers on the same frame:
			// skip template matching entirely when one fired.
			suppressTemplates := gesture.SuppressedBy(coreEvents)

			// Process each detected hand through the supplemental
			// user-trainable matchers.
			for i := range hands {
				hand := &hands[i]

				// Step 4: Static gesture matching
				if !suppressTemplates {
					staticMatches := a.staticMatcher.Match(hand)
					if len(staticMatches) > 0 {
						best := staticMatches[0]
						log.Printf("Static gesture matched: %s (score: %.3f)", best.Template.Name, best.Score)
						a.executeAction(best.Template.ID, best.Template.Name)
					}
				}

				// Step 5: Buffer path for dynamic gesture detection
				// Use the index finger tip position for tracking
				indexTip := hand.Points[detector.IndexTip]
				pathPoint := gesture.PathPoint{
					X:         indexTip.X,
					Y:         indexTip.Y,
					Timestamp: time.Now().UnixMilli(),
				}

				// Add to path buffer
				if len(pathBuffer) >= PathBufferSize {
					// Shift buffer left by 1, removing oldest point
					copy(pathBuffer, pathBuffer[1:])
					pathBuffer = pathBuffer[:PathBufferSize-1]
				}
				pathBuffer = append(pathBuffer, pathPoint)

				// Step 6: Dynamic gesture matching (need at least some points)
				if !suppressTemplates && len(pathBuffer) >= gesture.MinDynamicPathPoints {
					dynamicMatches := a.dynamicMatcher.Match(pathBuffer)
					if len(dynamicMatches) > 0 {
						best := dynamicMatches[0]
						log.Printf("Dynamic gesture matched: %s (score: %.3f)", best.Template.Name, best.Score)
						a.executeAction(best.Template.ID, best.Template.Name)

						// Clear path buffer to prevent repeated triggers
						pathBuffer = pathBuffer[:0]
					}
				}
			}
		}
	}
}

// ProcessHands feeds one frame's detected hands through the core pipeline
// (intake -> classifier -> per-hand state machines) and fans every emitted
// GestureEvent out to the broadcaster, the event log, any bound plugin
// action, and the local callback. It must only be called from the vision
// loop (or from a test standing in for it): the pipeline has a single
// owner. An empty hands slice still steps the pipeline, so intake counts
// the miss and a vanished hand eventually retires.
func (a *App) ProcessHands(hands []detector.HandLandmarks) []gesturepipe.GestureEvent {
	observations := make([]gesturepipe.HandObservation, len(hands))
	for i := range hands {
		observations[i] = handLandmarksToObservation(&hands[i])
	}
	coreEvents := a.pipeline.Step(observations, time.Now().UnixMilli())
	a.recordHandCount(a.pipeline.ActiveHandCount())
	for _, ev := range coreEvents {
		a.broadcaster.Publish(ev)
		a.events.record(ev)
		a.executeAction(string(ev.Label), string(ev.Label))

		a.eventMu.RLock()
		cb := a.onGestureEvent
		a.eventMu.RUnlock()
		if cb != nil {
			cb(ev)
		}
	}
	return coreEvents
}

// handLandmarksToObservation adapts a detector.HandLandmarks into the core
// pipeline's HandObservation. The extractor here reports no tracking id, so
// intake always falls back to wrist-distance matching.
func handLandmarksToObservation(h *detector.HandLandmarks) gesturepipe.HandObservation {
	var obs gesturepipe.HandObservation
	for i, p := range h.Points {
		obs.Points[i] = gesturepipe.Landmark{X: p.X, Y: p.Y, Z: p.Z}
	}
	if h.Handedness == "Left" {
		obs.Handedness = gesturepipe.Left
	} else {
		obs.Handedness = gesturepipe.Right
	}
	obs.Score = h.Score
	return obs
}

// executeAction executes the action associated with a recognized gesture.
// It looks up the action binding in the database and executes the corresponding plugin.
func (a *App) executeAction(gestureID, gestureName string) {
	// Skip if no store configured
	if a.config.Store == nil {
		return
	}

	// Look up action binding
	action, err := a.config.Store.Actions().GetByGestureID(gestureID)
	if err != nil {
		log.Printf("Error looking up action: %v", err)
		return
	}
	if action == nil || !action.Enabled {
		return // No action bound or disabled - silent skip
	}

	// Get plugin
	plug, err := a.pluginMgr.Get(action.PluginName)
	if err != nil {
		log.Printf("Plugin not found: %s", action.PluginName)
		return
	}

	// Build request. action.Config is the binding's stored invocation
	// arguments (e.g. keyboard's {"key": "...", "modifiers": [...]}); plugins
	// read it as Params, not Config - Config is reserved for plugin-wide
	// settings a future executor might inject independent of any one binding.
	req := &plugin.Request{
		Action:  action.ActionName,
		Gesture: gestureName,
		Params:  action.Config,
	}

	// Execute async to not block pipeline
	go func() {
		resp, err := a.pluginExec.Execute(plug, req)
		if err != nil {
			log.Printf("Plugin execution failed: %v", err)
			return
		}
		if !resp.Success {
			log.Printf("Plugin returned error: %s", resp.Error)
		}
	}()
}
