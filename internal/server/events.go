package server

import (
	"encoding/json"
	"log"

	"quizclash/internal/events"
)

func roundRevealedEvent(round *Round) events.Event {
	return events.Event{
		Type: events.TypeRoundRevealed,
		Data: events.RoundRevealed{
			RoundNo:    round.Number,
			DeadlineAt: round.DeadlineAt.UnixMilli(),
		},
	}
}

func answerReceivedEvent(roundNo int, sessionID string) events.Event {
	return events.Event{
		Type: events.TypeAnswerReceived,
		Data: events.AnswerReceived{
			RoundNo:       roundNo,
			ParticipantID: sessionID,
		},
	}
}

func allAnsweredEvent(roundNo, answered, participants int) events.Event {
	return events.Event{
		Type: events.TypeAllAnswered,
		Data: events.AllAnswered{
			RoundNo:           roundNo,
			TotalAnswered:     answered,
			TotalParticipants: participants,
		},
	}
}

func roundClosedEvent(room *Room, round *Round, scoreboard []ScoreboardEntry) events.Event {
	question, _ := json.Marshal(round.Question)
	answers := make([]events.RevealedAnswer, 0, len(round.Answers))
	for _, answer := range round.Answers {
		answers = append(answers, events.RevealedAnswer{
			SessionID: answer.SessionID,
			Content:   answer.Content,
			Score:     answer.FinalScore,
			Correct:   answer.Correct,
		})
	}
	return events.Event{
		Type: events.TypeRoundClosed,
		Data: events.RoundClosed{
			RoundNo:       round.Number,
			Stage:         roundScoreboard,
			Scoreboard:    wireScoreboard(scoreboard),
			HasMoreRounds: round.Number < room.NumQuestions,
			Question:      question,
			Answers:       answers,
		},
	}
}

func hostChangedEvent(participant *Participant) events.Event {
	return events.Event{
		Type: events.TypeHostChanged,
		Data: events.HostChanged{
			SessionID:   participant.SessionID,
			DisplayName: participant.DisplayName,
		},
	}
}

func participantStatusEvent(changes []events.StatusChange) events.Event {
	return events.Event{
		Type: events.TypeParticipantStatus,
		Data: events.ParticipantStatus{Changes: changes},
	}
}

func participantReadyEvent(updates []events.ReadyUpdate) events.Event {
	return events.Event{
		Type: events.TypeParticipantReady,
		Data: events.ParticipantReady{Updates: updates},
	}
}

func matchFinishedEvent(room *Room) events.Event {
	return events.Event{
		Type: events.TypeMatchFinished,
		Data: events.MatchFinished{
			Reason:          room.FinishedReason,
			WinnerSessionID: room.WinnerSession,
			Standings:       wireScoreboard(buildStandings(room)),
		},
	}
}

func wireScoreboard(entries []ScoreboardEntry) []events.ScoreboardEntry {
	wire := make([]events.ScoreboardEntry, 0, len(entries))
	for _, entry := range entries {
		wire = append(wire, events.ScoreboardEntry{
			SessionID:   entry.SessionID,
			DisplayName: entry.DisplayName,
			RoundScore:  entry.RoundScore,
			TotalScore:  entry.TotalScore,
			Rank:        entry.Rank,
		})
	}
	return wire
}

// publish records the event against the room and hands it to the per-room
// ordered publisher. Persisted state is the source of truth; the broadcast
// is only a low-latency notification.
func (s *Server) publish(room *Room, ev events.Event) {
	if err := s.persistEvent(room, ev); err != nil {
		log.Printf("event persist failed room_id=%s type=%s error=%v", room.ID, ev.Type, err)
	}
	s.pub.Publish(room.ID, ev)
}
