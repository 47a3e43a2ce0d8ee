package server

import (
	"log"
	"time"

	"quizclash/internal/db"
	"quizclash/internal/events"
)

const (
	closeReasonAllAnswered = "all_answered"
	closeReasonDeadline    = "deadline"
	closeReasonHost        = "host_request"
)

const (
	incrementMaxAttempts = 3
	incrementBackoff     = 25 * time.Millisecond
)

type scoreDelta struct {
	sessionID string
	dbID      uint
	delta     int
}

// maybeCloseRound is the auto-advance coordinator. It runs outside the
// triggering request's critical path, re-reads the round under the store
// lock, and attempts the closing transition. Exactly one caller wins;
// everyone else returns silently with no mutation.
func (s *Server) maybeCloseRound(roomID string, roundNo int, reason string) {
	announceAll := false
	answered, online := 0, 0
	var roundDBID uint
	var deltas []scoreDelta
	var scoreboard []ScoreboardEntry
	var closedEvent events.Event

	room, err := s.store.UpdateRoom(roomID, func(room *Room) error {
		if room.Status != roomActive {
			return ErrRoundNotActive
		}
		round := roundByNumber(room, roundNo)
		if round == nil {
			return ErrRoundNotFound
		}
		if round.Status != roundActive {
			// Someone else already closed it. Expected, not an error.
			return ErrRoundNotActive
		}
		answered = len(round.Answers)
		online = len(onlineParticipants(room))
		if reason == closeReasonAllAnswered {
			if online == 0 || answered < online {
				return ErrRoundNotActive
			}
			announceAll = true
		}
		// The in-memory CAS: only the closure that observes active flips it.
		round.Status = roundScoreboard
		roundDBID = round.DBID

		// Winner-only work, still under the lock: accrue totals, snapshot
		// the scoreboard and the reveal payload.
		for _, answer := range round.Answers {
			participant, ok := findParticipant(room, answer.SessionID)
			if !ok {
				continue
			}
			participant.TotalScore += answer.FinalScore
			if answer.FinalScore != 0 {
				deltas = append(deltas, scoreDelta{
					sessionID: participant.SessionID,
					dbID:      participant.DBID,
					delta:     answer.FinalScore,
				})
			}
		}
		scoreboard = buildScoreboard(room, round)
		closedEvent = roundClosedEvent(room, round, scoreboard)
		return nil
	})
	if err != nil {
		return
	}

	// Mirror the flip through the database closer. In a single process the
	// store lock already decided the winner; a zero-row result here means
	// another process beat it, which is logged and respected for scoring.
	if s.closer != nil && roundDBID != 0 {
		flipped, closeErr := s.closer.CloseRound(roundDBID)
		if closeErr != nil {
			log.Printf("round close persist failed room_id=%s round=%d error=%v", room.ID, roundNo, closeErr)
		} else if !flipped {
			// Another process already flipped the row. Its increments own
			// the authoritative scores, so undo the accrual this process
			// did under its own lock before abandoning the close.
			log.Printf("round already closed in database room_id=%s round=%d", room.ID, roundNo)
			s.rollbackAccrual(room.ID, deltas)
			return
		}
	}

	s.cancelDeadlineTimer(room.ID)
	if announceAll {
		s.publish(room, allAnsweredEvent(roundNo, answered, online))
	}
	for _, delta := range deltas {
		s.incrementScorePersisted(room, delta)
	}
	log.Printf("round closed room_id=%s round=%d reason=%s answers=%d", room.ID, roundNo, reason, answered)
	s.publish(room, closedEvent)
}

// rollbackAccrual reverses in-memory score deltas when the database closer
// reports the round was closed elsewhere.
func (s *Server) rollbackAccrual(roomID string, deltas []scoreDelta) {
	if len(deltas) == 0 {
		return
	}
	_, err := s.store.UpdateRoom(roomID, func(room *Room) error {
		for _, delta := range deltas {
			if participant, ok := findParticipant(room, delta.sessionID); ok {
				participant.TotalScore -= delta.delta
			}
		}
		return nil
	})
	if err != nil {
		log.Printf("score rollback failed room_id=%s error=%v", roomID, err)
	}
}

// incrementScorePersisted applies the atomic database increment with bounded
// retries. Exhaustion degrades to a log line; it never fails the close flow.
func (s *Server) incrementScorePersisted(room *Room, delta scoreDelta) {
	if s.db == nil || delta.dbID == 0 {
		return
	}
	var err error
	for attempt := 1; attempt <= incrementMaxAttempts; attempt++ {
		if err = db.IncrementScore(s.db, delta.dbID, delta.delta); err == nil {
			return
		}
		time.Sleep(incrementBackoff * time.Duration(attempt))
	}
	log.Printf("score increment degraded room_id=%s session_id=%s delta=%d error=%v", room.ID, delta.sessionID, delta.delta, err)
}

// closeRoundForHost re-validates a host's close request independently of any
// client countdown and reports the resulting scoreboard. Losing the race to
// the coordinator is reported as already closed, not an error.
func (s *Server) closeRoundForHost(roomID, sessionID string) (*Room, []ScoreboardEntry, bool, error) {
	var roundNo int
	_, err := s.store.UpdateRoom(roomID, func(room *Room) error {
		if _, ok := findParticipant(room, sessionID); !ok {
			return ErrNotParticipant
		}
		if room.HostSessionID != sessionID {
			return ErrNotHost
		}
		round := currentRound(room)
		if round == nil {
			return ErrRoundNotFound
		}
		roundNo = round.Number
		return nil
	})
	if err != nil {
		return nil, nil, false, err
	}
	s.maybeCloseRound(roomID, roundNo, closeReasonHost)

	var scoreboard []ScoreboardEntry
	alreadyClosed := false
	room, err := s.store.UpdateRoom(roomID, func(room *Room) error {
		round := roundByNumber(room, roundNo)
		if round == nil {
			return ErrRoundNotFound
		}
		if round.Status == roundActive {
			return ErrRoundNotActive
		}
		alreadyClosed = round.Status == roundClosed
		scoreboard = buildScoreboard(room, round)
		return nil
	})
	if err != nil {
		return nil, nil, false, err
	}
	return room, scoreboard, alreadyClosed, nil
}
