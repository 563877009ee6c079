package httpd

import (
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10
)

// subscriber is one websocket connection watching a session.
type subscriber struct {
	conn      *websocket.Conn
	send      chan Event
	logger    *log.Logger
	closeOnce sync.Once
}

func newSubscriber(conn *websocket.Conn, logger *log.Logger) *subscriber {
	return &subscriber{
		conn:   conn,
		send:   make(chan Event, 64),
		logger: logger.WithPrefix("ws"),
	}
}

// writePump drains the send channel onto the wire and keeps the
// connection alive with pings. Runs until the send channel closes or a
// write fails.
func (s *subscriber) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = s.conn.Close()
	}()

	for {
		select {
		case event, ok := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := s.conn.WriteJSON(event); err != nil {
				s.logger.Debug("Write failed, dropping subscriber", "error", err)
				return
			}

		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump discards inbound frames; the feed is one-way. It exists to
// process control frames and to notice the peer going away.
func (s *subscriber) readPump(onClose func()) {
	defer onClose()
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *subscriber) close() {
	s.closeOnce.Do(func() {
		close(s.send)
	})
}

// EventHub fans session events out to websocket subscribers. Lost
// events on a slow subscriber are tolerated; the feed is advisory and
// the REST surface remains the source of truth.
type EventHub struct {
	logger *log.Logger

	mu       sync.RWMutex
	sessions map[string]map[*subscriber]struct{}
}

// NewEventHub creates an empty hub.
func NewEventHub(logger *log.Logger) *EventHub {
	return &EventHub{
		logger:   logger.WithPrefix("hub"),
		sessions: make(map[string]map[*subscriber]struct{}),
	}
}

func (h *EventHub) subscribe(sessionID string, sub *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.sessions[sessionID] == nil {
		h.sessions[sessionID] = make(map[*subscriber]struct{})
	}
	h.sessions[sessionID][sub] = struct{}{}
}

func (h *EventHub) unsubscribe(sessionID string, sub *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if subs, ok := h.sessions[sessionID]; ok {
		delete(subs, sub)
		if len(subs) == 0 {
			delete(h.sessions, sessionID)
		}
	}
	sub.close()
}

// Broadcast delivers event to every subscriber of its session. A full
// send buffer drops the event for that subscriber rather than blocking
// a request handler. Sends happen under the read lock: send channels
// are only ever closed under the write lock, so a send can never race
// a close. The sends never block, so holding the lock here is cheap.
func (h *EventHub) Broadcast(event Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for sub := range h.sessions[event.GameID] {
		select {
		case sub.send <- event:
		default:
			h.logger.Debug("Subscriber buffer full, dropping event",
				"session", event.GameID, "type", event.Type)
		}
	}
}

// CloseSession disconnects all subscribers of a terminated session.
func (h *EventHub) CloseSession(sessionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for sub := range h.sessions[sessionID] {
		sub.close()
	}
	delete(h.sessions, sessionID)
}
