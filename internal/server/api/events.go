package api

import (
	"net/http"
	"strconv"

	"github.com/ayusman/kuchipudi/internal/gesturepipe"
)

// EventSource is the minimal surface the events endpoint needs from the
// running application: the last N core GestureEvents, newest first.
type EventSource interface {
	RecentEvents(n int) []gesturepipe.GestureEvent
}

// EventsHandler serves recent emitted GestureEvents from an in-memory ring
// buffer, so the pipeline's output can be inspected without opening the
// gesture event websocket.
type EventsHandler struct {
	source EventSource
}

// NewEventsHandler creates an EventsHandler backed by the given source.
func NewEventsHandler(source EventSource) *EventsHandler {
	return &EventsHandler{source: source}
}

type eventResponse struct {
	Gesture    gesturepipe.Label `json:"gesture"`
	Confidence float64           `json:"confidence"`
	HandID     int               `json:"hand_id"`
	Timestamp  int64             `json:"timestamp"`
	Metadata   eventMetadata     `json:"metadata"`
}

type eventMetadata struct {
	HandCenter      [2]float64 `json:"hand_center"`
	HandSize        float64    `json:"hand_size"`
	WristZ          float64    `json:"wrist_z"`
	FingersExtended int        `json:"fingers_extended"`
}

type listEventsResponse struct {
	Events []eventResponse `json:"events"`
}

// ServeHTTP handles GET /api/events?limit=N, defaulting to the full buffer.
func (h *EventsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	events := h.source.RecentEvents(limit)
	resp := listEventsResponse{Events: make([]eventResponse, 0, len(events))}
	for _, ev := range events {
		resp.Events = append(resp.Events, eventResponse{
			Gesture:    ev.Label,
			Confidence: ev.Confidence,
			HandID:     int(ev.HandId),
			Timestamp:  ev.TimestampMs,
			Metadata: eventMetadata{
				HandCenter:      ev.Metadata.HandCenter,
				HandSize:        ev.Metadata.HandSize,
				WristZ:          ev.Metadata.WristZ,
				FingersExtended: ev.Metadata.FingersExtended,
			},
		})
	}

	writeJSON(w, http.StatusOK, resp)
}
