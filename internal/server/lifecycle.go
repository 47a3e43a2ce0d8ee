package server

import (
	"errors"
	"log"
	"time"

	"quizclash/internal/events"
)

var (
	ErrRoomNotFound             = errors.New("room not found")
	ErrRoomFull                 = errors.New("room is full")
	ErrAlreadyStarted           = errors.New("room already started")
	ErrRoomFinished             = errors.New("room already finished")
	ErrInsufficientParticipants = errors.New("need at least 2 online participants")
	ErrParticipantsNotReady     = errors.New("participants not ready")
	ErrRoundNotFound            = errors.New("round not found")
	ErrRoundNotActive           = errors.New("round not active")
	ErrRoundNotScoreboard       = errors.New("round not at scoreboard")
	ErrNotHost                  = errors.New("host only action")
	ErrNotParticipant           = errors.New("not a participant")
	ErrDuplicateAnswer          = errors.New("answer already submitted")
	ErrDeadlinePassed           = errors.New("round deadline passed")
	ErrBadQuestion              = errors.New("malformed question data")
	ErrUnknownChoice            = errors.New("unknown choice id")
)

// startRoom moves a waiting room to active and reveals round 1. Requires the
// caller to be host, at least 2 online participants, and no online
// participant still un-ready.
func (s *Server) startRoom(roomID, sessionID string) (*Room, error) {
	room, err := s.store.UpdateRoom(roomID, func(room *Room) error {
		if room.HostSessionID != sessionID {
			return ErrNotHost
		}
		switch room.Status {
		case roomActive:
			return ErrAlreadyStarted
		case roomFinished:
			return ErrRoomFinished
		}
		online := onlineParticipants(room)
		if len(online) < 2 {
			return ErrInsufficientParticipants
		}
		for _, participant := range online {
			if !participant.IsReady {
				return ErrParticipantsNotReady
			}
		}
		room.Status = roomActive
		if len(room.Rounds) == 0 {
			room.Rounds = append(room.Rounds, Round{
				Number:   1,
				Status:   roundPending,
				Question: s.questionForRound(room, 1),
			})
		}
		revealRoundLocked(room, currentRound(room))
		return nil
	})
	if err != nil {
		return nil, err
	}
	round := currentRound(room)
	s.persistRoomStatus(room)
	s.persistRound(room, round)
	log.Printf("room started room_id=%s participants=%d", room.ID, len(room.Participants))
	s.scheduleDeadlineTimer(room, round)
	s.publish(room, roundRevealedEvent(round))
	return room, nil
}

// revealRound moves a pending round to active and stamps its deadline.
// Re-invoking on an already active round is a no-op success.
func (s *Server) revealRound(roomID, sessionID string, roundNo int) (*Room, error) {
	revealed := false
	room, err := s.store.UpdateRoom(roomID, func(room *Room) error {
		if room.HostSessionID != sessionID {
			return ErrNotHost
		}
		if room.Status != roomActive {
			return ErrRoundNotActive
		}
		round := roundByNumber(room, roundNo)
		if round == nil {
			return ErrRoundNotFound
		}
		switch round.Status {
		case roundActive:
			return nil
		case roundPending:
			revealRoundLocked(room, round)
			revealed = true
			return nil
		default:
			return ErrRoundNotActive
		}
	})
	if err != nil {
		return nil, err
	}
	if revealed {
		round := roundByNumber(room, roundNo)
		s.persistRound(room, round)
		log.Printf("round revealed room_id=%s round=%d", room.ID, roundNo)
		s.scheduleDeadlineTimer(room, round)
		s.publish(room, roundRevealedEvent(round))
	}
	return room, nil
}

func revealRoundLocked(room *Room, round *Round) {
	now := timeNowUTC()
	round.Status = roundActive
	round.RevealedAt = now
	round.DeadlineAt = now.Add(time.Duration(room.RoundTimeSec) * time.Second)
}

// advanceFromScoreboard moves past a closed-out scoreboard: either the next
// round goes active or, with no rounds remaining, the room finishes.
func (s *Server) advanceFromScoreboard(roomID, sessionID string) (*Room, error) {
	var nextRound *Round
	var finishedEvt events.Event
	var closedDBID uint
	finished := false
	room, err := s.store.UpdateRoom(roomID, func(room *Room) error {
		if room.HostSessionID != sessionID {
			return ErrNotHost
		}
		if room.Status != roomActive {
			return ErrRoundNotScoreboard
		}
		round := currentRound(room)
		if round == nil || round.Status != roundScoreboard {
			return ErrRoundNotScoreboard
		}
		round.Status = roundClosed
		closedDBID = round.DBID
		if round.Number >= room.NumQuestions {
			room.Status = roomFinished
			room.FinishedReason = finishReasonCompleted
			if standings := buildStandings(room); len(standings) > 0 {
				room.WinnerSession = standings[0].SessionID
			}
			finished = true
			finishedEvt = matchFinishedEvent(room)
			return nil
		}
		number := round.Number + 1
		room.Rounds = append(room.Rounds, Round{
			Number:   number,
			Status:   roundPending,
			Question: s.questionForRound(room, number),
		})
		revealRoundLocked(room, currentRound(room))
		nextRound = currentRound(room)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.persistRoomStatus(room)
	s.persistRoundStatusByID(room, closedDBID, roundClosed)
	if finished {
		log.Printf("room finished room_id=%s reason=%s", room.ID, room.FinishedReason)
		s.cancelDeadlineTimer(room.ID)
		s.publish(room, finishedEvt)
		return room, nil
	}
	s.persistRound(room, nextRound)
	log.Printf("round revealed room_id=%s round=%d", room.ID, nextRound.Number)
	s.scheduleDeadlineTimer(room, nextRound)
	s.publish(room, roundRevealedEvent(nextRound))
	return room, nil
}

func (s *Server) questionForRound(room *Room, number int) Question {
	if number-1 < len(room.Questions) {
		return room.Questions[number-1]
	}
	bank := defaultQuestions()
	return bank[(number-1)%len(bank)]
}
