package notify

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/finance-tracker/pkg/logger"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const defaultWriteTimeout = 5 * time.Second

// Session is a single websocket connection of a user
type Session struct {
	ID     string
	UserID uint

	conn     *websocket.Conn
	writeMu  sync.Mutex // gorilla allows one concurrent writer
	lastSeen atomic.Int64
}

// Touch records client activity
func (s *Session) Touch() {
	s.lastSeen.Store(time.Now().UnixNano())
}

// LastSeen returns the time of the last client activity
func (s *Session) LastSeen() time.Time {
	return time.Unix(0, s.lastSeen.Load())
}

func (s *Session) writeJSON(v interface{}, deadline time.Time) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.conn.SetWriteDeadline(deadline); err != nil {
		return err
	}
	return s.conn.WriteJSON(v)
}

// Hub tracks open sessions per user and pushes events to them
type Hub struct {
	mu       sync.RWMutex
	sessions map[uint]map[*Session]struct{}

	writeTimeout time.Duration
}

// NewHub creates an empty Hub
func NewHub() *Hub {
	return &Hub{
		sessions:     make(map[uint]map[*Session]struct{}),
		writeTimeout: defaultWriteTimeout,
	}
}

// Register adds a connection for a user
func (h *Hub) Register(userID uint, conn *websocket.Conn) *Session {
	s := &Session{
		ID:     uuid.New().String(),
		UserID: userID,
		conn:   conn,
	}
	s.Touch()

	h.mu.Lock()
	if _, ok := h.sessions[userID]; !ok {
		h.sessions[userID] = make(map[*Session]struct{})
	}
	h.sessions[userID][s] = struct{}{}
	total := len(h.sessions[userID])
	h.mu.Unlock()

	logger.Info("[Hub] session %s opened for user %d (total=%d)", s.ID, userID, total)
	return s
}

// Unregister removes a session and closes its connection. Safe to call twice.
func (h *Hub) Unregister(s *Session) {
	h.mu.Lock()
	conns, ok := h.sessions[s.UserID]
	_, found := conns[s]
	if ok && found {
		delete(conns, s)
		if len(conns) == 0 {
			delete(h.sessions, s.UserID)
		}
	}
	h.mu.Unlock()

	if !found {
		return
	}
	_ = s.conn.Close()
	logger.Info("[Hub] session %s closed for user %d", s.ID, s.UserID)
}

// SessionCount returns the number of open sessions of a user
func (h *Hub) SessionCount(userID uint) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions[userID])
}

// Notify writes the event to every open session of event.UserID.
// Sessions that fail the write are dropped.
func (h *Hub) Notify(ctx context.Context, event Event) error {
	sessions := h.userSessions(event.UserID)
	if len(sessions) == 0 {
		return nil
	}

	deadline := time.Now().Add(h.writeTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	var errs []error
	for _, s := range sessions {
		if err := s.writeJSON(event, deadline); err != nil {
			errs = append(errs, fmt.Errorf("session %s: %w", s.ID, err))
			h.Unregister(s)
		}
	}
	return errors.Join(errs...)
}

// Ping sends a ping to every session and evicts those idle longer than maxIdle.
// It returns the number of evicted sessions.
func (h *Hub) Ping(maxIdle time.Duration) int {
	h.mu.RLock()
	var all []*Session
	for _, conns := range h.sessions {
		for s := range conns {
			all = append(all, s)
		}
	}
	h.mu.RUnlock()

	evicted := 0
	for _, s := range all {
		if time.Since(s.LastSeen()) > maxIdle {
			h.Unregister(s)
			evicted++
			continue
		}
		if err := s.conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(time.Second)); err != nil {
			h.Unregister(s)
			evicted++
		}
	}
	return evicted
}

// CloseAll closes every session
func (h *Hub) CloseAll() {
	h.mu.RLock()
	var all []*Session
	for _, conns := range h.sessions {
		for s := range conns {
			all = append(all, s)
		}
	}
	h.mu.RUnlock()

	for _, s := range all {
		h.Unregister(s)
	}
}

func (h *Hub) userSessions(userID uint) []*Session {
	h.mu.RLock()
	defer h.mu.RUnlock()

	conns := h.sessions[userID]
	out := make([]*Session, 0, len(conns))
	for s := range conns {
		out = append(out, s)
	}
	return out
}
