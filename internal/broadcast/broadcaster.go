package broadcast

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/ayusman/kuchipudi/internal/gesturepipe"
)

// TextMessage and CloseMessage mirror gorilla's wire values without
// importing it here, so Conn stays implementable by any text-frame
// transport.
const (
	TextMessage  = 1
	CloseMessage = 8
)

// closeNormal is close code 1000, big-endian, the payload of a normal
// close frame.
var closeNormal = []byte{0x03, 0xE8}

// Broadcaster is the non-blocking fan-out boundary between the vision loop
// and the concurrent subscriber tasks. Publish is total
// and never awaits subscriber I/O: it only ever touches the active-set
// mutex for the duration of the hand-off loop.
type Broadcaster struct {
	mu          sync.Mutex
	subscribers map[string]*Subscriber

	subscriberConfig SubscriberConfig

	statusInterval time.Duration
	stopStatus     chan struct{}
	statusOnce     sync.Once

	onClearHistory func()
}

// New creates a Broadcaster. onClearHistory is invoked (from a subscriber
// goroutine) whenever any subscriber sends a clear_gesture_history control
// message; the caller is responsible for making that reset atomic with
// respect to the vision loop.
func New(subscriberConfig SubscriberConfig, statusInterval time.Duration, onClearHistory func()) *Broadcaster {
	return &Broadcaster{
		subscribers:      make(map[string]*Subscriber),
		subscriberConfig: subscriberConfig,
		statusInterval:   statusInterval,
		stopStatus:       make(chan struct{}),
		onClearHistory:   onClearHistory,
	}
}

// Connect registers a new subscriber over conn and returns it immediately.
// The caller is expected to invoke Subscriber.Run (typically blocking the
// calling goroutine, e.g. an HTTP handler) to drive its read/write loops;
// Connect itself only establishes bookkeeping and teardown.
func (b *Broadcaster) Connect(conn Conn) *Subscriber {
	sub := NewSubscriber(conn, b.subscriberConfig, b.onClearHistory)

	b.mu.Lock()
	b.subscribers[sub.ID] = sub
	b.mu.Unlock()

	return sub
}

func (b *Broadcaster) remove(id string) {
	b.mu.Lock()
	delete(b.subscribers, id)
	b.mu.Unlock()
}

// Serve registers conn as a subscriber and blocks, driving its read/write
// loops, until it disconnects or is shut down, the shape an HTTP
// WebSocket upgrade handler wants, since net/http already dedicates a
// goroutine per connection.
func (b *Broadcaster) Serve(conn Conn) {
	sub := b.Connect(conn)
	sub.Run()
	b.remove(sub.ID)
}

// Publish hands an emitted GestureEvent off to every connected
// subscriber's outbound queue, or records a drop. It never blocks on
// subscriber I/O and is safe to call from the single vision-loop owner.
func (b *Broadcaster) Publish(ev gesturepipe.GestureEvent) {
	b.mu.Lock()
	subs := make([]*Subscriber, 0, len(b.subscribers))
	for _, s := range b.subscribers {
		subs = append(subs, s)
	}
	b.mu.Unlock()

	for _, s := range subs {
		msg := newGestureMessage(ev, s.mirror.Load())
		data, err := json.Marshal(msg)
		if err != nil {
			continue
		}
		s.enqueue(outboundFrame{kind: kindGesture, data: data})
	}
}

// PublishStatus broadcasts a periodic status frame (fps/latency/hand
// count) to every connected subscriber.
func (b *Broadcaster) PublishStatus(fps, latencyMs float64, handsDetected int) {
	msg, err := json.Marshal(statusMessage{
		Type:          "status",
		FPS:           fps,
		LatencyMs:     latencyMs,
		HandsDetected: handsDetected,
	})
	if err != nil {
		return
	}

	b.mu.Lock()
	subs := make([]*Subscriber, 0, len(b.subscribers))
	for _, s := range b.subscribers {
		subs = append(subs, s)
	}
	b.mu.Unlock()

	for _, s := range subs {
		s.enqueue(outboundFrame{kind: kindStatus, data: msg})
	}
}

// Count returns the number of currently connected subscribers.
func (b *Broadcaster) Count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subscribers)
}

// Shutdown closes every connected subscriber with a normal close,
// as part of graceful shutdown.
func (b *Broadcaster) Shutdown() {
	b.statusOnce.Do(func() { close(b.stopStatus) })

	b.mu.Lock()
	subs := make([]*Subscriber, 0, len(b.subscribers))
	for _, s := range b.subscribers {
		subs = append(subs, s)
	}
	b.mu.Unlock()

	for _, s := range subs {
		s.Close()
	}
}

// RunStatusLoop periodically calls statsFn and publishes the result as a
// status frame until the broadcaster is shut down. Callers run it in its
// own goroutine; it never touches vision-loop state directly.
func (b *Broadcaster) RunStatusLoop(statsFn func() (fps, latencyMs float64, handsDetected int)) {
	interval := b.statusInterval
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopStatus:
			return
		case <-ticker.C:
			fps, latency, hands := statsFn()
			b.PublishStatus(fps, latency, hands)
		}
	}
}
