package server

import (
	"context"
	"time"
)

// submitAnswer runs the two-phase accept: validate under the store lock,
// score (possibly via the evaluator, outside any lock), then insert under
// the lock again after re-checking that the round is still open. The
// coordinator is triggered afterwards, off the caller's critical path.
func (s *Server) submitAnswer(ctx context.Context, roomID string, req answerRequest) (*Answer, int, error) {
	now := timeNowUTC()
	grace := time.Duration(s.cfg.GraceMillis) * time.Millisecond

	var question Question
	var roundNo int
	var elapsed int64
	_, err := s.store.UpdateRoom(roomID, func(room *Room) error {
		if _, ok := findParticipant(room, req.SessionID); !ok {
			return ErrNotParticipant
		}
		if room.Status != roomActive {
			return ErrRoundNotActive
		}
		round := currentRound(room)
		if round == nil || round.Status != roundActive {
			return ErrRoundNotActive
		}
		if now.After(round.DeadlineAt.Add(grace)) {
			return ErrDeadlinePassed
		}
		if _, ok := answerBySession(round, req.SessionID); ok {
			return ErrDuplicateAnswer
		}
		question = round.Question
		roundNo = round.Number
		elapsed = now.Sub(round.RevealedAt).Milliseconds()
		if elapsed < 0 {
			elapsed = 0
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}

	answer := Answer{
		SessionID:   req.SessionID,
		Content:     req.Content,
		ElapsedMS:   elapsed,
		SubmittedAt: now,
	}
	switch question.Type {
	case questionTypeChoice:
		correct, err := choiceIsCorrect(question, req.ChoiceID)
		if err != nil {
			return nil, 0, err
		}
		answer.Content = req.ChoiceID
		answer.Correct = correct
		answer.RuleScore = scoreChoice(correct, elapsed, roundTimeFor(s, roomID))
		answer.FinalScore = answer.RuleScore
	case questionTypeOpen:
		evaluation := s.engine.ScoreOpen(ctx, EvalRequest{
			Question:   question.Text,
			Answer:     req.Content,
			Category:   question.Category,
			Difficulty: question.Difficulty,
			Language:   question.Language,
		})
		answer.DelegateScore = evaluation.Score
		answer.FinalScore = evaluation.Score
		answer.Feedback = evaluation.Feedback
	default:
		return nil, 0, ErrBadQuestion
	}

	// Everything the post-commit work needs is captured inside the
	// closure; room state is never touched outside the store lock.
	var result Answer
	var roundDBID uint
	room, err := s.store.UpdateRoom(roomID, func(room *Room) error {
		round := roundByNumber(room, roundNo)
		if round == nil || round.Status != roundActive {
			return ErrRoundNotActive
		}
		if _, ok := answerBySession(round, req.SessionID); ok {
			return ErrDuplicateAnswer
		}
		round.Answers = append(round.Answers, answer)
		result = answer
		roundDBID = round.DBID
		return nil
	})
	if err != nil {
		return nil, 0, err
	}

	s.persistAnswer(room, roundNo, roundDBID, result)
	s.publish(room, answerReceivedEvent(roundNo, req.SessionID))
	go s.maybeCloseRound(roomID, roundNo, closeReasonAllAnswered)
	return &result, roundNo, nil
}

func choiceIsCorrect(question Question, choiceID string) (bool, error) {
	if len(question.Options) == 0 {
		return false, ErrBadQuestion
	}
	for _, option := range question.Options {
		if option.ID == choiceID {
			return option.Correct, nil
		}
	}
	return false, ErrUnknownChoice
}

func roundTimeFor(s *Server, roomID string) int {
	if room, ok := s.store.GetRoom(roomID); ok {
		return room.RoundTimeSec
	}
	return s.cfg.RoundTimeSeconds
}
