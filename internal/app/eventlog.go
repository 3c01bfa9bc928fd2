package app

import (
	"sync"

	"github.com/ayusman/kuchipudi/internal/gesturepipe"
)

// eventLogCapacity bounds the in-memory ring buffer backing the
// /api/events diagnostic endpoint. It is independent
// of any subscriber's outbound queue capacity.
const eventLogCapacity = 200

// eventLog is a small ring buffer of recently emitted GestureEvents, kept
// so the HTTP diagnostic API can report history without opening a
// websocket. It is written only from the vision loop.
type eventLog struct {
	mu     sync.RWMutex
	events []gesturepipe.GestureEvent
}

func (l *eventLog) record(ev gesturepipe.GestureEvent) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, ev)
	if len(l.events) > eventLogCapacity {
		l.events = l.events[len(l.events)-eventLogCapacity:]
	}
}

// Recent returns up to n of the most recently emitted events, newest
// first. n <= 0 returns the full buffer.
func (l *eventLog) Recent(n int) []gesturepipe.GestureEvent {
	l.mu.RLock()
	defer l.mu.RUnlock()

	total := len(l.events)
	if n <= 0 || n > total {
		n = total
	}

	out := make([]gesturepipe.GestureEvent, n)
	for i := 0; i < n; i++ {
		out[i] = l.events[total-1-i]
	}
	return out
}

// RecentEvents implements server/api.EventSource for the /api/events
// handler.
func (a *App) RecentEvents(n int) []gesturepipe.GestureEvent {
	return a.events.Recent(n)
}
