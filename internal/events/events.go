// Package events defines the broadcast wire contract shared by the server
// publisher and the client reconciliation layer. Payloads form a tagged
// union keyed by event type and are validated when decoded.
package events

import (
	"encoding/json"
	"fmt"
)

const (
	TypeRoundRevealed     = "round_revealed"
	TypeAnswerReceived    = "answer_received"
	TypeAllAnswered       = "all_participants_answered"
	TypeRoundClosed       = "round_closed"
	TypeHostChanged       = "host_changed"
	TypeParticipantStatus = "participant_status"
	TypeParticipantReady  = "participant_ready"
	TypeMatchFinished     = "match_finished"
	TypeSnapshot          = "snapshot"
)

// Event is the broadcast envelope. Seq is assigned by the per-room publisher
// and is monotonically non-decreasing within a room.
type Event struct {
	Type   string `json:"type"`
	Seq    int64  `json:"seq"`
	RoomID string `json:"room_id"`
	Data   any    `json:"data,omitempty"`
}

type RoundRevealed struct {
	RoundNo    int   `json:"round_no"`
	DeadlineAt int64 `json:"deadline_at"`
}

type AnswerReceived struct {
	RoundNo       int    `json:"round_no"`
	ParticipantID string `json:"participant_id"`
}

type AllAnswered struct {
	RoundNo           int `json:"round_no"`
	TotalAnswered     int `json:"total_answered"`
	TotalParticipants int `json:"total_participants"`
}

type ScoreboardEntry struct {
	SessionID   string `json:"session_id"`
	DisplayName string `json:"display_name"`
	RoundScore  int    `json:"round_score"`
	TotalScore  int    `json:"total_score"`
	Rank        int    `json:"rank"`
}

type RevealedAnswer struct {
	SessionID string `json:"session_id"`
	Content   string `json:"content"`
	Score     int    `json:"score"`
	Correct   bool   `json:"correct"`
}

type RoundClosed struct {
	RoundNo       int               `json:"round_no"`
	Stage         string            `json:"stage"`
	Scoreboard    []ScoreboardEntry `json:"scoreboard"`
	HasMoreRounds bool              `json:"has_more_rounds"`
	Question      json.RawMessage   `json:"question,omitempty"`
	Answers       []RevealedAnswer  `json:"answers"`
}

type HostChanged struct {
	SessionID   string `json:"session_id"`
	DisplayName string `json:"display_name"`
}

type StatusChange struct {
	SessionID string `json:"session_id"`
	Status    string `json:"status"`
}

type ParticipantStatus struct {
	Changes []StatusChange `json:"changes"`
}

type ReadyUpdate struct {
	SessionID string `json:"session_id"`
	IsReady   bool   `json:"is_ready"`
}

type ParticipantReady struct {
	Updates []ReadyUpdate `json:"updates"`
}

type MatchFinished struct {
	Reason          string            `json:"reason"`
	WinnerSessionID string            `json:"winner_session_id"`
	Standings       []ScoreboardEntry `json:"standings"`
}

type envelope struct {
	Type   string          `json:"type"`
	Seq    int64           `json:"seq"`
	RoomID string          `json:"room_id"`
	Data   json.RawMessage `json:"data"`
}

// Decode parses a broadcast frame and resolves Data to the payload type for
// its tag. Unknown tags and payloads of the wrong shape are errors; this is
// the deserialization boundary for loosely delivered events.
func Decode(raw []byte) (Event, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Event{}, fmt.Errorf("malformed event frame: %w", err)
	}
	ev := Event{Type: env.Type, Seq: env.Seq, RoomID: env.RoomID}
	var data any
	switch env.Type {
	case TypeRoundRevealed:
		data = &RoundRevealed{}
	case TypeAnswerReceived:
		data = &AnswerReceived{}
	case TypeAllAnswered:
		data = &AllAnswered{}
	case TypeRoundClosed:
		data = &RoundClosed{}
	case TypeHostChanged:
		data = &HostChanged{}
	case TypeParticipantStatus:
		data = &ParticipantStatus{}
	case TypeParticipantReady:
		data = &ParticipantReady{}
	case TypeMatchFinished:
		data = &MatchFinished{}
	case TypeSnapshot:
		var snapshot map[string]any
		if len(env.Data) > 0 {
			if err := json.Unmarshal(env.Data, &snapshot); err != nil {
				return Event{}, fmt.Errorf("malformed snapshot payload: %w", err)
			}
		}
		ev.Data = snapshot
		return ev, nil
	default:
		return Event{}, fmt.Errorf("unknown event type %q", env.Type)
	}
	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, data); err != nil {
			return Event{}, fmt.Errorf("malformed %s payload: %w", env.Type, err)
		}
	}
	ev.Data = data
	return ev, nil
}
