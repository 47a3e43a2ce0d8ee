package server

import "encoding/json"

// snapshot is the authoritative room view served to polling clients and
// pushed to fresh websocket subscribers. Correct flags are stripped from the
// question while the round is still open.
func snapshot(room *Room) map[string]any {
	participants := make([]map[string]any, 0, len(room.Participants))
	for i := range room.Participants {
		participant := &room.Participants[i]
		participants = append(participants, map[string]any{
			"session_id":        participant.SessionID,
			"display_name":      participant.DisplayName,
			"is_host":           participant.IsHost,
			"connection_status": participant.ConnectionStatus,
			"is_ready":          participant.IsReady,
			"total_score":       participant.TotalScore,
		})
	}

	view := map[string]any{
		"room_id":           room.ID,
		"code":              room.Code,
		"status":            room.Status,
		"capacity":          room.Capacity,
		"round_time_sec":    room.RoundTimeSec,
		"num_questions":     room.NumQuestions,
		"host_session_id":   room.HostSessionID,
		"finished_reason":   room.FinishedReason,
		"winner_session_id": room.WinnerSession,
		"participant_count": len(room.Participants),
		"participants":      participants,
	}

	if round := currentRound(room); round != nil {
		answeredSessions := make([]string, 0, len(round.Answers))
		for _, answer := range round.Answers {
			answeredSessions = append(answeredSessions, answer.SessionID)
		}
		roundView := map[string]any{
			"round_no":          round.Number,
			"status":            round.Status,
			"question":          questionView(round),
			"answered_sessions": answeredSessions,
		}
		if !round.DeadlineAt.IsZero() {
			roundView["deadline_at"] = round.DeadlineAt.UnixMilli()
		}
		if round.Status == roundScoreboard || round.Status == roundClosed {
			roundView["scoreboard"] = buildScoreboard(room, round)
		}
		view["round"] = roundView
	}
	if room.Status == roomFinished {
		view["standings"] = buildStandings(room)
	}
	return view
}

// questionView hides the correct option until the round has been closed.
func questionView(round *Round) map[string]any {
	question := round.Question
	options := make([]map[string]any, 0, len(question.Options))
	revealCorrect := round.Status == roundScoreboard || round.Status == roundClosed
	for _, option := range question.Options {
		view := map[string]any{
			"id":   option.ID,
			"text": option.Text,
		}
		if revealCorrect {
			view["correct"] = option.Correct
		}
		options = append(options, view)
	}
	view := map[string]any{
		"type":       question.Type,
		"text":       question.Text,
		"category":   question.Category,
		"difficulty": question.Difficulty,
		"language":   question.Language,
	}
	if len(options) > 0 {
		view["options"] = options
	}
	return view
}

func (s *Server) snapshotFrame(room *Room) ([]byte, error) {
	var view map[string]any
	_, err := s.store.UpdateRoom(room.ID, func(room *Room) error {
		view = snapshot(room)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return json.Marshal(map[string]any{
		"type": "snapshot",
		"data": view,
	})
}
