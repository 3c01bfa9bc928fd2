package broadcast

import (
	"encoding/json"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Conn abstracts the wire transport a Subscriber writes to and reads
// control messages from. *websocket.Conn satisfies it; tests use a fake.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	ReadMessage() (messageType int, data []byte, err error)
	SetReadDeadline(t time.Time) error
	Close() error
}

// outboundKind distinguishes gesture events from status frames so overflow
// handling can prefer dropping status over gestures.
type outboundKind int

const (
	kindGesture outboundKind = iota
	kindStatus
	kindControl
)

type outboundFrame struct {
	kind outboundKind
	data []byte
}

// SubscriberConfig configures a single subscriber connection.
type SubscriberConfig struct {
	QueueCapacity int
	IdleTimeout   time.Duration
}

// DefaultSubscriberConfig returns the default queue and timeout settings.
func DefaultSubscriberConfig() SubscriberConfig {
	return SubscriberConfig{
		QueueCapacity: 64,
		IdleTimeout:   60 * time.Second,
	}
}

// Subscriber is one connected downstream consumer of gesture events. Its
// outbound queue is consumed only by its own writer goroutine, but both
// the Broadcaster (gesture/status frames) and the subscriber's own read
// goroutine (pong replies) produce into it, so enqueue serializes the
// evict-then-enqueue step under a short-held mutex.
type Subscriber struct {
	ID     string
	conn   Conn
	config SubscriberConfig

	qmu       sync.Mutex
	outbound  chan outboundFrame
	mirror    atomic.Bool
	dropCount atomic.Int64

	done chan struct{}

	onClearHistory func()
}

// NewSubscriber creates a Subscriber wrapping the given connection. The
// caller must call Run to start its writer/reader goroutines.
func NewSubscriber(conn Conn, config SubscriberConfig, onClearHistory func()) *Subscriber {
	return &Subscriber{
		ID:             uuid.New().String(),
		conn:           conn,
		config:         config,
		outbound:       make(chan outboundFrame, config.QueueCapacity),
		done:           make(chan struct{}),
		onClearHistory: onClearHistory,
	}
}

// DropCount returns the number of events dropped for this subscriber due
// to queue overflow.
func (s *Subscriber) DropCount() int64 {
	return s.dropCount.Load()
}

// enqueue implements the newest-wins overflow policy: on a
// full queue the oldest frame is dropped and the new one enqueued. Status
// frames never evict a waiting gesture or control frame; they are simply
// dropped on overflow instead, so gesture events always win contention.
func (s *Subscriber) enqueue(frame outboundFrame) {
	s.qmu.Lock()
	defer s.qmu.Unlock()

	select {
	case s.outbound <- frame:
		return
	default:
	}

	if frame.kind == kindStatus {
		return
	}

	// Queue full: evict the oldest entry, then enqueue the newest.
	select {
	case <-s.outbound:
		s.dropCount.Add(1)
	default:
	}

	select {
	case s.outbound <- frame:
	default:
		// Still full (the writer drained and refilled between our two
		// selects); count the incoming frame as dropped rather than block.
		s.dropCount.Add(1)
	}
}

// Run drives the subscriber's write loop and inbound control-message read
// loop until the connection closes or the idle timeout elapses. It blocks
// until the subscriber is done; callers typically invoke it in its own
// goroutine.
func (s *Subscriber) Run() {
	go s.readLoop()
	s.writeLoop()
}

// Close signals the subscriber's loops to stop. The writer goroutine
// sends a normal close frame and closes the connection on its way out, so
// the frame is written before the socket is torn down.
func (s *Subscriber) Close() {
	select {
	case <-s.done:
	default:
		close(s.done)
	}
}

func (s *Subscriber) writeLoop() {
	defer func() {
		s.Close()
		s.conn.Close()
	}()

	hello, _ := json.Marshal(newHello())
	if err := s.conn.WriteMessage(TextMessage, hello); err != nil {
		return
	}

	for {
		select {
		case <-s.done:
			// Best effort normal close frame; the connection is torn down
			// either way.
			s.conn.WriteMessage(CloseMessage, closeNormal)
			return
		case frame := <-s.outbound:
			if err := s.conn.WriteMessage(TextMessage, frame.data); err != nil {
				return
			}
		}
	}
}

func (s *Subscriber) readLoop() {
	defer s.Close()

	for {
		if err := s.conn.SetReadDeadline(time.Now().Add(s.config.IdleTimeout)); err != nil {
			return
		}

		_, data, err := s.conn.ReadMessage()
		if err != nil {
			return
		}

		s.handleInbound(data)
	}
}

func (s *Subscriber) handleInbound(data []byte) {
	var msg inboundMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		log.Printf("broadcast: ignoring unparseable client message: %v", err)
		return
	}

	switch msg.Type {
	case "ping":
		pong, _ := json.Marshal(pongMessage{Type: "pong", Timestamp: time.Now().UnixMilli()})
		s.enqueue(outboundFrame{kind: kindControl, data: pong})
	case "config":
		if msg.MirrorMode != nil {
			s.mirror.Store(*msg.MirrorMode)
		}
		// camera_index / flip_camera are acknowledged but only carried as
		// metadata; they do not reconfigure the pipeline.
	case "clear_gesture_history":
		if s.onClearHistory != nil {
			s.onClearHistory()
		}
	default:
		log.Printf("broadcast: ignoring unrecognized client message type %q", msg.Type)
	}
}
