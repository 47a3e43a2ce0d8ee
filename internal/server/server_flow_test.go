package server

import (
	"net/http"
	"testing"
	"time"

	"quizclash/internal/config"
)

func flowQuestions() []map[string]any {
	return []map[string]any{
		{
			"type":       "choice",
			"text":       "Which gas do plants absorb?",
			"category":   "science",
			"difficulty": "easy",
			"language":   "en",
			"options": []map[string]any{
				{"id": "a", "text": "Oxygen"},
				{"id": "b", "text": "Carbon dioxide", "correct": true},
				{"id": "c", "text": "Nitrogen"},
			},
		},
		{
			"type":       "open",
			"text":       "Explain photosynthesis in one sentence.",
			"category":   "science",
			"difficulty": "medium",
			"language":   "en",
		},
	}
}

func TestFullMatchFlow(t *testing.T) {
	srv := New(nil, config.Default())
	t.Cleanup(srv.Stop)
	ts := newTestServer(t, srv.Handler())
	t.Cleanup(ts.Close)

	roomID, code := createRoom(t, ts, map[string]any{
		"capacity":      4,
		"round_seconds": 30,
		"num_questions": 2,
		"questions":     flowQuestions(),
	})
	if code == "" {
		t.Fatalf("expected join code")
	}

	joinParticipant(t, ts, roomID, "s1", "Ada")
	joinParticipant(t, ts, roomID, "s2", "Ben")
	markReady(t, ts, roomID, "s1")
	markReady(t, ts, roomID, "s2")

	resp := doRequest(t, ts, http.MethodPost, "/api/rooms/"+roomID+"/start", map[string]string{"session_id": "s1"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("start: expected %d, got %d", http.StatusOK, resp.StatusCode)
	}

	state := fetchState(t, ts, roomID)
	if state["status"] != "active" {
		t.Fatalf("expected active room, got %v", state["status"])
	}
	round := state["round"].(map[string]any)
	if round["round_no"].(float64) != 1 || round["status"] != "active" {
		t.Fatalf("unexpected round view %v", round)
	}
	question := round["question"].(map[string]any)
	options := question["options"].([]any)
	for _, raw := range options {
		option := raw.(map[string]any)
		if _, leaked := option["correct"]; leaked {
			t.Fatalf("correct flag leaked before close: %v", option)
		}
	}

	// Round 1: both answer the choice question.
	resp = doRequest(t, ts, http.MethodPost, "/api/rooms/"+roomID+"/answers", map[string]string{
		"session_id": "s1",
		"choice_id":  "b",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("answer s1: expected %d, got %d", http.StatusOK, resp.StatusCode)
	}
	body := decodeBody(t, resp)
	if body["correct"] != true {
		t.Fatalf("expected correct answer feedback, got %v", body)
	}
	s1Round1 := int(body["score"].(float64))
	if s1Round1 < 60 || s1Round1 > 100 {
		t.Fatalf("expected score in [60,100], got %d", s1Round1)
	}

	resp = doRequest(t, ts, http.MethodPost, "/api/rooms/"+roomID+"/answers", map[string]string{
		"session_id": "s2",
		"choice_id":  "a",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("answer s2: expected %d, got %d", http.StatusOK, resp.StatusCode)
	}
	if body := decodeBody(t, resp); body["score"].(float64) != 0 {
		t.Fatalf("expected 0 for wrong choice, got %v", body["score"])
	}

	waitFor(t, 2*time.Second, func() bool {
		return roundStatus(t, srv, roomID, 1) == roundScoreboard
	})

	state = fetchState(t, ts, roomID)
	round = state["round"].(map[string]any)
	scoreboard := round["scoreboard"].([]any)
	if len(scoreboard) != 2 {
		t.Fatalf("expected 2 scoreboard entries, got %d", len(scoreboard))
	}
	top := scoreboard[0].(map[string]any)
	if top["session_id"] != "s1" || int(top["total_score"].(float64)) != s1Round1 {
		t.Fatalf("unexpected leader %v", top)
	}
	question = round["question"].(map[string]any)
	for _, raw := range question["options"].([]any) {
		option := raw.(map[string]any)
		if option["id"] == "b" && option["correct"] != true {
			t.Fatalf("expected correct flag revealed after close: %v", option)
		}
	}

	// Advance to round 2 and play the open question.
	resp = doRequest(t, ts, http.MethodPost, "/api/rooms/"+roomID+"/advance", map[string]string{"session_id": "s1"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("advance: expected %d, got %d", http.StatusOK, resp.StatusCode)
	}
	if body := decodeBody(t, resp); body["finished"] != false {
		t.Fatalf("expected unfinished match, got %v", body)
	}

	resp = doRequest(t, ts, http.MethodPost, "/api/rooms/"+roomID+"/answers", map[string]string{
		"session_id": "s1",
		"content":    "Plants convert sunlight, water and carbon dioxide into glucose and oxygen.",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("open answer s1: expected %d, got %d", http.StatusOK, resp.StatusCode)
	}
	openBody := decodeBody(t, resp)
	if openBody["score"].(float64) <= 0 {
		t.Fatalf("expected positive heuristic score, got %v", openBody["score"])
	}
	if _, hasCorrect := openBody["correct"]; hasCorrect {
		t.Fatalf("open answers have no correctness flag: %v", openBody)
	}

	resp = doRequest(t, ts, http.MethodPost, "/api/rooms/"+roomID+"/answers", map[string]string{
		"session_id": "s2",
		"content":    "idk",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("open answer s2: expected %d, got %d", http.StatusOK, resp.StatusCode)
	}

	waitFor(t, 2*time.Second, func() bool {
		return roundStatus(t, srv, roomID, 2) == roundScoreboard
	})

	resp = doRequest(t, ts, http.MethodPost, "/api/rooms/"+roomID+"/advance", map[string]string{"session_id": "s1"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("final advance: expected %d, got %d", http.StatusOK, resp.StatusCode)
	}
	if body := decodeBody(t, resp); body["finished"] != true {
		t.Fatalf("expected finished match, got %v", body)
	}

	state = fetchState(t, ts, roomID)
	if state["status"] != "finished" || state["finished_reason"] != "completed" {
		t.Fatalf("unexpected final state %v %v", state["status"], state["finished_reason"])
	}
	if state["winner_session_id"] != "s1" {
		t.Fatalf("expected s1 to win, got %v", state["winner_session_id"])
	}
	standings := state["standings"].([]any)
	if len(standings) != 2 {
		t.Fatalf("expected 2 standings entries, got %d", len(standings))
	}
	if first := standings[0].(map[string]any); first["session_id"] != "s1" || first["rank"].(float64) != 1 {
		t.Fatalf("unexpected standings leader %v", first)
	}
}

func TestJoinByCode(t *testing.T) {
	srv := New(nil, config.Default())
	ts := newTestServer(t, srv.Handler())
	t.Cleanup(ts.Close)

	roomID, code := createRoom(t, ts, nil)
	resp := doRequest(t, ts, http.MethodPost, "/api/rooms/"+code+"/join", map[string]string{
		"session_id":   "s1",
		"display_name": "Ada",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("join by code: expected %d, got %d", http.StatusOK, resp.StatusCode)
	}
	body := decodeBody(t, resp)
	if body["room_id"] != roomID {
		t.Fatalf("expected code to resolve %s, got %v", roomID, body["room_id"])
	}
	if body["is_host"] != true {
		t.Fatalf("expected first joiner flagged host")
	}
}

func TestHandlerErrorStatuses(t *testing.T) {
	srv := New(nil, config.Default())
	ts := newTestServer(t, srv.Handler())
	t.Cleanup(ts.Close)

	resp := doRequest(t, ts, http.MethodGet, "/api/rooms/room-404/state", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown room, got %d", resp.StatusCode)
	}

	roomID, _ := createRoom(t, ts, nil)
	joinParticipant(t, ts, roomID, "s1", "Ada")
	joinParticipant(t, ts, roomID, "s2", "Ben")

	resp = doRequest(t, ts, http.MethodPost, "/api/rooms/"+roomID+"/start", map[string]string{"session_id": "s2"})
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 for non-host start, got %d", resp.StatusCode)
	}

	resp = doRequest(t, ts, http.MethodPost, "/api/rooms/"+roomID+"/start", map[string]string{"session_id": "s1"})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409 for un-ready start, got %d", resp.StatusCode)
	}

	resp = doRequest(t, ts, http.MethodPost, "/api/rooms/"+roomID+"/answers", map[string]string{
		"session_id": "s1",
		"choice_id":  "a",
	})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409 before any round, got %d", resp.StatusCode)
	}

	resp = doRequest(t, ts, http.MethodPost, "/api/rooms/"+roomID+"/heartbeat", map[string]string{"session_id": "ghost"})
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 for unknown session heartbeat, got %d", resp.StatusCode)
	}

	resp = doRequest(t, ts, http.MethodPost, "/api/rooms/"+roomID+"/join", map[string]string{"display_name": "NoSession"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing session_id, got %d", resp.StatusCode)
	}
}

func TestDuplicateAnswerOverHTTP(t *testing.T) {
	srv := New(nil, config.Default())
	t.Cleanup(srv.Stop)
	ts := newTestServer(t, srv.Handler())
	t.Cleanup(ts.Close)

	roomID, _ := createRoom(t, ts, map[string]any{"num_questions": 2, "questions": flowQuestions()})
	joinParticipant(t, ts, roomID, "s1", "Ada")
	joinParticipant(t, ts, roomID, "s2", "Ben")
	markReady(t, ts, roomID, "s1")
	markReady(t, ts, roomID, "s2")
	doRequest(t, ts, http.MethodPost, "/api/rooms/"+roomID+"/start", map[string]string{"session_id": "s1"})

	first := doRequest(t, ts, http.MethodPost, "/api/rooms/"+roomID+"/answers", map[string]string{
		"session_id": "s1",
		"choice_id":  "b",
	})
	if first.StatusCode != http.StatusOK {
		t.Fatalf("first answer: expected %d, got %d", http.StatusOK, first.StatusCode)
	}
	score := totalScore(t, srv, roomID, "s1")

	second := doRequest(t, ts, http.MethodPost, "/api/rooms/"+roomID+"/answers", map[string]string{
		"session_id": "s1",
		"choice_id":  "b",
	})
	if second.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409 for duplicate answer, got %d", second.StatusCode)
	}
	if got := totalScore(t, srv, roomID, "s1"); got != score {
		t.Fatalf("expected total unchanged by duplicate, got %d then %d", score, got)
	}
}

func TestCreateRoomRejectsMalformedQuestion(t *testing.T) {
	srv := New(nil, config.Default())
	ts := newTestServer(t, srv.Handler())
	t.Cleanup(ts.Close)

	resp := doRequest(t, ts, http.MethodPost, "/api/rooms", map[string]any{
		"questions": []map[string]any{
			{
				"type": "choice",
				"text": "Broken?",
				"options": []map[string]any{
					{"id": "a", "text": "Only option", "correct": true},
				},
			},
		},
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed question, got %d", resp.StatusCode)
	}

	resp = doRequest(t, ts, http.MethodPost, "/api/rooms", map[string]any{
		"questions": []map[string]any{
			{
				"type": "choice",
				"text": "Two correct?",
				"options": []map[string]any{
					{"id": "a", "text": "A", "correct": true},
					{"id": "b", "text": "B", "correct": true},
				},
			},
		},
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for two correct options, got %d", resp.StatusCode)
	}
}
