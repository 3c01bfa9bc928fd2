// Package server provides the HTTP server for the Kuchipudi gesture recognition system.
package server

import (
	"log"
	"net/http"

	"github.com/ayusman/kuchipudi/internal/broadcast"
	"github.com/gorilla/websocket"
)

var gestureUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// GestureStreamHandler upgrades incoming requests to WebSocket connections
// and registers them with the gesture Broadcaster.
type GestureStreamHandler struct {
	broadcaster *broadcast.Broadcaster
}

// NewGestureStreamHandler creates a handler serving the gesture event
// stream from the given Broadcaster.
func NewGestureStreamHandler(b *broadcast.Broadcaster) *GestureStreamHandler {
	return &GestureStreamHandler{broadcaster: b}
}

// ServeHTTP handles the WebSocket upgrade and blocks until the subscriber
// disconnects; the broadcaster owns the subscriber's lifecycle from here.
func (h *GestureStreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := gestureUpgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("gesture stream: websocket upgrade error: %v", err)
		return
	}

	h.broadcaster.Serve(conn)
}
