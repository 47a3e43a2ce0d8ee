package server

import (
	"log"
	"time"
)

// scheduleDeadlineTimer arms the server-authoritative close for a round at
// deadline plus the grace window. The round number guards against a stale
// timer firing after the room has already moved on.
func (s *Server) scheduleDeadlineTimer(room *Room, round *Round) {
	grace := time.Duration(s.cfg.GraceMillis) * time.Millisecond
	delay := time.Until(round.DeadlineAt) + grace
	if delay < 0 {
		delay = 0
	}
	roomID := room.ID
	roundNo := round.Number
	s.timersMu.Lock()
	if existing, ok := s.timers[roomID]; ok {
		existing.Stop()
	}
	s.timers[roomID] = time.AfterFunc(delay, func() {
		log.Printf("round deadline reached room_id=%s round=%d", roomID, roundNo)
		s.maybeCloseRound(roomID, roundNo, closeReasonDeadline)
	})
	s.timersMu.Unlock()
}

func (s *Server) cancelDeadlineTimer(roomID string) {
	s.timersMu.Lock()
	defer s.timersMu.Unlock()
	if timer, ok := s.timers[roomID]; ok {
		timer.Stop()
		delete(s.timers, roomID)
	}
}
