// Package broadcast fans emitted gesture events out to connected
// subscribers over a framed JSON wire protocol, without ever blocking the
// vision loop that produces them.
package broadcast

import "github.com/ayusman/kuchipudi/internal/gesturepipe"

// ProtocolVersion is advertised in the hello message.
const ProtocolVersion = "1.0.0"

// Capabilities advertised in the hello message.
var Capabilities = []string{"gestures", "status"}

// helloMessage is sent once, immediately after a subscriber connects.
type helloMessage struct {
	Type         string   `json:"type"`
	Version      string   `json:"version"`
	Capabilities []string `json:"capabilities"`
}

// gestureMessage wraps a GestureEvent for the wire.
type gestureMessage struct {
	Type       string           `json:"type"`
	Gesture    gesturepipe.Label `json:"gesture"`
	Confidence float64          `json:"confidence"`
	HandId     int              `json:"hand_id"`
	Timestamp  int64            `json:"timestamp"`
	Metadata   gestureMetadata  `json:"metadata"`
}

type gestureMetadata struct {
	HandCenter      [2]float64 `json:"hand_center"`
	HandSize        float64    `json:"hand_size"`
	FingersExtended int        `json:"fingers_extended"`
}

// statusMessage is sent periodically (default every 1s).
type statusMessage struct {
	Type          string  `json:"type"`
	FPS           float64 `json:"fps"`
	LatencyMs     float64 `json:"latency_ms"`
	HandsDetected int     `json:"hands_detected"`
}

// pongMessage answers a client ping.
type pongMessage struct {
	Type      string `json:"type"`
	Timestamp int64  `json:"timestamp"`
}

// inboundMessage is the minimal shape needed to dispatch a client→server
// control message; unrecognized fields are ignored.
type inboundMessage struct {
	Type         string `json:"type"`
	Timestamp    int64  `json:"timestamp"`
	CameraIndex  *int   `json:"camera_index"`
	FlipCamera   *bool  `json:"flip_camera"`
	MirrorMode   *bool  `json:"mirror_mode"`
}

func newHello() helloMessage {
	return helloMessage{Type: "hello", Version: ProtocolVersion, Capabilities: Capabilities}
}

func newGestureMessage(ev gesturepipe.GestureEvent, mirror bool) gestureMessage {
	center := ev.Metadata.HandCenter
	if mirror {
		center[0] = 1 - center[0]
	}
	return gestureMessage{
		Type:       "gesture",
		Gesture:    ev.Label,
		Confidence: round3(ev.Confidence),
		HandId:     int(ev.HandId),
		Timestamp:  ev.TimestampMs,
		Metadata: gestureMetadata{
			HandCenter:      center,
			HandSize:        ev.Metadata.HandSize,
			FingersExtended: ev.Metadata.FingersExtended,
		},
	}
}

func round3(f float64) float64 {
	return float64(int(f*1000+0.5)) / 1000
}
