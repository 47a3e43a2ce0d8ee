package server

import (
	"log"
	"time"

	"quizclash/internal/events"
)

// touchPresence refreshes a participant's liveness and runs a presence pass
// for the room.
func (s *Server) touchPresence(roomID, sessionID string) {
	_, err := s.store.UpdateRoom(roomID, func(room *Room) error {
		participant, ok := findParticipant(room, sessionID)
		if !ok {
			return ErrNotParticipant
		}
		participant.LastSeenAt = timeNowUTC()
		return nil
	})
	if err != nil {
		return
	}
	s.presencePass(roomID)
}

// presencePass recomputes the online set, clears ready flags for sessions
// that dropped, reassigns the host if the current one is gone, and
// force-finishes an active room left with at most one online participant.
// Any change to the online set re-triggers the auto-advance coordinator.
func (s *Server) presencePass(roomID string) {
	now := timeNowUTC()
	stale := time.Duration(s.cfg.StaleSeconds) * time.Second
	sockets := s.ws.SessionsOnline(roomID)

	var statusChanges []events.StatusChange
	var readyResets []events.ReadyUpdate
	hostChanged := false
	var newHostSession string
	var hostEvt events.Event
	forceFinished := false
	var finishedEvt events.Event
	var closedRoundDBID uint
	var activeRoundNo int

	room, err := s.store.UpdateRoom(roomID, func(room *Room) error {
		for i := range room.Participants {
			participant := &room.Participants[i]
			_, hasSocket := sockets[participant.SessionID]
			online := hasSocket || now.Sub(participant.LastSeenAt) <= stale
			status := connOffline
			if online {
				status = connOnline
			}
			if participant.ConnectionStatus != status {
				participant.ConnectionStatus = status
				statusChanges = append(statusChanges, events.StatusChange{
					SessionID: participant.SessionID,
					Status:    status,
				})
				if status == connOffline && participant.IsReady {
					participant.IsReady = false
					readyResets = append(readyResets, events.ReadyUpdate{
						SessionID: participant.SessionID,
						IsReady:   false,
					})
				}
			}
		}

		online := onlineParticipants(room)
		if host, ok := findParticipant(room, room.HostSessionID); !ok || host.ConnectionStatus == connOffline {
			if successor := selectSuccessor(online); successor != nil && successor.SessionID != room.HostSessionID {
				for i := range room.Participants {
					room.Participants[i].IsHost = false
				}
				successor.IsHost = true
				room.HostSessionID = successor.SessionID
				// Captured here so nothing reads the participant after
				// the lock is released.
				hostChanged = true
				newHostSession = successor.SessionID
				hostEvt = hostChangedEvent(successor)
			}
		}

		if room.Status == roomActive && len(online) <= 1 {
			room.Status = roomFinished
			room.FinishedReason = finishReasonDisconnected
			if len(online) == 1 {
				room.WinnerSession = online[0].SessionID
			}
			if round := currentRound(room); round != nil && round.Status != roundClosed {
				round.Status = roundClosed
				closedRoundDBID = round.DBID
			}
			forceFinished = true
			finishedEvt = matchFinishedEvent(room)
			return nil
		}
		if room.Status == roomActive && len(statusChanges) > 0 {
			if round := currentRound(room); round != nil && round.Status == roundActive {
				activeRoundNo = round.Number
			}
		}
		return nil
	})
	if err != nil {
		return
	}

	if len(statusChanges) > 0 {
		s.persistParticipants(room)
		s.publish(room, participantStatusEvent(statusChanges))
	}
	if len(readyResets) > 0 {
		s.publish(room, participantReadyEvent(readyResets))
	}
	if hostChanged {
		s.persistParticipants(room)
		s.persistRoomStatus(room)
		log.Printf("host reassigned room_id=%s session_id=%s", room.ID, newHostSession)
		s.publish(room, hostEvt)
	}
	if forceFinished {
		s.persistRoomStatus(room)
		s.persistRoundStatusByID(room, closedRoundDBID, roundClosed)
		s.cancelDeadlineTimer(room.ID)
		log.Printf("room force-finished room_id=%s reason=%s winner=%s", room.ID, room.FinishedReason, room.WinnerSession)
		s.publish(room, finishedEvt)
		return
	}
	if activeRoundNo > 0 {
		// An offline transition can complete an all-answered condition.
		go s.maybeCloseRound(room.ID, activeRoundNo, closeReasonAllAnswered)
	}
}

// selectSuccessor picks the earliest-joined online participant, ties broken
// by higher total score.
func selectSuccessor(online []*Participant) *Participant {
	var best *Participant
	for _, candidate := range online {
		if best == nil {
			best = candidate
			continue
		}
		if candidate.JoinedAt.Before(best.JoinedAt) {
			best = candidate
			continue
		}
		if candidate.JoinedAt.Equal(best.JoinedAt) && candidate.TotalScore > best.TotalScore {
			best = candidate
		}
	}
	return best
}
