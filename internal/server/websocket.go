package server

import (
	"errors"
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

// maxConnsPerSession caps simultaneous sockets per logical identity; the
// oldest connection is evicted when a new one would exceed it.
const maxConnsPerSession = 3

type wsConn struct {
	conn      *websocket.Conn
	roomID    string
	sessionID string
}

type wsHub struct {
	mu        sync.Mutex
	groups    map[string]map[*wsConn]struct{}
	bySession map[string][]*wsConn
}

func newWSHub() *wsHub {
	return &wsHub{
		groups:    make(map[string]map[*wsConn]struct{}),
		bySession: make(map[string][]*wsConn),
	}
}

func (h *wsHub) Add(conn *wsConn) {
	var evicted *wsConn
	h.mu.Lock()
	group := h.groups[conn.roomID]
	if group == nil {
		group = make(map[*wsConn]struct{})
		h.groups[conn.roomID] = group
	}
	group[conn] = struct{}{}
	if conn.sessionID != "" {
		existing := h.bySession[conn.sessionID]
		if len(existing) >= maxConnsPerSession {
			evicted = existing[0]
			existing = existing[1:]
		}
		h.bySession[conn.sessionID] = append(existing, conn)
	}
	h.mu.Unlock()
	if evicted != nil {
		// The oldest socket may belong to a different room, so it is
		// unregistered from its own group, not the newcomer's.
		log.Printf("ws evicting oldest connection session_id=%s room_id=%s", conn.sessionID, evicted.roomID)
		h.Remove(evicted)
	}
}

func (h *wsHub) Remove(conn *wsConn) {
	h.mu.Lock()
	group := h.groups[conn.roomID]
	if group != nil {
		delete(group, conn)
		if len(group) == 0 {
			delete(h.groups, conn.roomID)
		}
	}
	if conn.sessionID != "" {
		existing := h.bySession[conn.sessionID]
		for i, candidate := range existing {
			if candidate == conn {
				h.bySession[conn.sessionID] = append(existing[:i:i], existing[i+1:]...)
				break
			}
		}
		if len(h.bySession[conn.sessionID]) == 0 {
			delete(h.bySession, conn.sessionID)
		}
	}
	h.mu.Unlock()
	_ = conn.conn.Close()
}

func (h *wsHub) Send(conn *wsConn, data []byte) error {
	return conn.conn.WriteMessage(websocket.TextMessage, data)
}

// Broadcast fans one frame out to every subscriber of a room. Dead
// connections are dropped; delivery is at-most-once.
func (h *wsHub) Broadcast(roomID string, data []byte) error {
	h.mu.Lock()
	group := h.groups[roomID]
	conns := make([]*wsConn, 0, len(group))
	for conn := range group {
		conns = append(conns, conn)
	}
	h.mu.Unlock()

	for _, conn := range conns {
		if err := h.Send(conn, data); err != nil {
			h.Remove(conn)
		}
	}
	return nil
}

// SessionsOnline reports which of the room's subscribers still hold a socket.
func (h *wsHub) SessionsOnline(roomID string) map[string]struct{} {
	h.mu.Lock()
	defer h.mu.Unlock()
	online := make(map[string]struct{})
	for conn := range h.groups[roomID] {
		if conn.sessionID != "" {
			online[conn.sessionID] = struct{}{}
		}
	}
	return online
}

func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	roomID := r.PathValue("id")
	sessionID := r.URL.Query().Get("session_id")
	room, exists := s.store.GetRoom(roomID)
	if !exists {
		http.NotFound(w, r)
		return
	}
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}
	raw, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	log.Printf("ws connected room_id=%s session_id=%s remote=%s", roomID, sessionID, r.RemoteAddr)
	conn := &wsConn{conn: raw, roomID: roomID, sessionID: sessionID}
	s.ws.Add(conn)
	if data, err := s.snapshotFrame(room); err == nil {
		_ = s.ws.Send(conn, data)
	}
	if sessionID != "" {
		s.touchPresence(roomID, sessionID)
	}
	go s.readWS(conn)
}

// readWS drains the socket until it drops. A closed socket is a presence
// signal: the next presence pass decides whether the session went offline.
func (s *Server) readWS(conn *wsConn) {
	defer func() {
		s.ws.Remove(conn)
		if conn.sessionID != "" {
			s.presencePass(conn.roomID)
		}
	}()
	for {
		if _, _, err := conn.conn.ReadMessage(); err != nil {
			if !errors.Is(err, websocket.ErrCloseSent) {
				log.Printf("ws disconnected room_id=%s session_id=%s error=%v", conn.roomID, conn.sessionID, err)
			}
			return
		}
	}
}
