package events

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestDecodeRoundClosed(t *testing.T) {
	frame := []byte(`{
		"type": "round_closed",
		"seq": 7,
		"room_id": "room-1",
		"data": {
			"round_no": 2,
			"stage": "scoreboard",
			"has_more_rounds": true,
			"scoreboard": [
				{"session_id": "s1", "display_name": "Ada", "round_score": 80, "total_score": 150, "rank": 1}
			],
			"answers": [
				{"session_id": "s1", "content": "b", "score": 80, "correct": true}
			],
			"question": {"type": "choice", "text": "Q?"}
		}
	}`)

	ev, err := Decode(frame)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if ev.Type != TypeRoundClosed || ev.Seq != 7 || ev.RoomID != "room-1" {
		t.Fatalf("unexpected envelope %+v", ev)
	}
	payload, ok := ev.Data.(*RoundClosed)
	if !ok {
		t.Fatalf("expected *RoundClosed, got %T", ev.Data)
	}
	if payload.RoundNo != 2 || payload.Stage != "scoreboard" || !payload.HasMoreRounds {
		t.Fatalf("unexpected payload %+v", payload)
	}
	if len(payload.Scoreboard) != 1 || payload.Scoreboard[0].Rank != 1 {
		t.Fatalf("unexpected scoreboard %+v", payload.Scoreboard)
	}
	if len(payload.Answers) != 1 || !payload.Answers[0].Correct {
		t.Fatalf("unexpected answers %+v", payload.Answers)
	}
	if len(payload.Question) == 0 {
		t.Fatalf("expected raw question payload")
	}
}

func TestDecodeRejectsUnknownType(t *testing.T) {
	_, err := Decode([]byte(`{"type": "mystery_event", "seq": 1, "data": {}}`))
	if err == nil {
		t.Fatalf("expected error for unknown type")
	}
	if !strings.Contains(err.Error(), "mystery_event") {
		t.Fatalf("expected type named in error, got %v", err)
	}
}

func TestDecodeRejectsMalformedFrame(t *testing.T) {
	if _, err := Decode([]byte(`{not json`)); err == nil {
		t.Fatalf("expected error for malformed frame")
	}
}

func TestDecodeRejectsWrongShapePayload(t *testing.T) {
	frame := []byte(`{"type": "round_revealed", "seq": 1, "data": {"round_no": "not-a-number"}}`)
	if _, err := Decode(frame); err == nil {
		t.Fatalf("expected error for wrong payload shape")
	}
}

func TestDecodeSnapshot(t *testing.T) {
	frame := []byte(`{"type": "snapshot", "data": {"room_id": "room-1", "status": "waiting"}}`)
	ev, err := Decode(frame)
	if err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	data, ok := ev.Data.(map[string]any)
	if !ok {
		t.Fatalf("expected snapshot map, got %T", ev.Data)
	}
	if data["status"] != "waiting" {
		t.Fatalf("unexpected snapshot %v", data)
	}
}

func TestDecodeRoundTripsPublishedEvent(t *testing.T) {
	ev := Event{
		Type:   TypeMatchFinished,
		Seq:    3,
		RoomID: "room-9",
		Data: MatchFinished{
			Reason:          "completed",
			WinnerSessionID: "s1",
			Standings:       []ScoreboardEntry{{SessionID: "s1", TotalScore: 120, Rank: 1}},
		},
	}
	frame, err := json.Marshal(ev)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	decoded, err := Decode(frame)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	payload, ok := decoded.Data.(*MatchFinished)
	if !ok {
		t.Fatalf("expected *MatchFinished, got %T", decoded.Data)
	}
	if payload.WinnerSessionID != "s1" || payload.Reason != "completed" {
		t.Fatalf("unexpected payload %+v", payload)
	}
	if len(payload.Standings) != 1 || payload.Standings[0].Rank != 1 {
		t.Fatalf("unexpected standings %+v", payload.Standings)
	}
}
