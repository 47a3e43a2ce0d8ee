package server

import (
	"bytes"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"quizclash/internal/config"
	"quizclash/internal/events"
)

func newTestServer(t *testing.T, handler http.Handler) *httptest.Server {
	t.Helper()
	listener, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Skipf("skipping test; listen unavailable: %v", err)
	}
	ts := &httptest.Server{
		Listener: listener,
		Config:   &http.Server{Handler: handler},
	}
	ts.Start()
	return ts
}

func doRequest(t *testing.T, ts *httptest.Server, method, path string, payload any) *http.Response {
	t.Helper()
	var body *bytes.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		body = bytes.NewReader(data)
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, ts.URL+path, body)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	t.Cleanup(func() {
		_ = resp.Body.Close()
	})
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return body
}

func createRoom(t *testing.T, ts *httptest.Server, payload any) (string, string) {
	t.Helper()
	resp := doRequest(t, ts, http.MethodPost, "/api/rooms", payload)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected status %d, got %d", http.StatusCreated, resp.StatusCode)
	}
	body := decodeBody(t, resp)
	return body["room_id"].(string), body["code"].(string)
}

func joinParticipant(t *testing.T, ts *httptest.Server, roomID, sessionID, name string) {
	t.Helper()
	resp := doRequest(t, ts, http.MethodPost, "/api/rooms/"+roomID+"/join", map[string]string{
		"session_id":   sessionID,
		"display_name": name,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}
}

func markReady(t *testing.T, ts *httptest.Server, roomID, sessionID string) {
	t.Helper()
	resp := doRequest(t, ts, http.MethodPost, "/api/rooms/"+roomID+"/ready", map[string]any{
		"session_id": sessionID,
		"is_ready":   true,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}
}

func fetchState(t *testing.T, ts *httptest.Server, roomID string) map[string]any {
	t.Helper()
	resp := doRequest(t, ts, http.MethodGet, "/api/rooms/"+roomID+"/state", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}
	return decodeBody(t, resp)
}

// setupRoom creates an in-memory room and joins the given sessions directly
// through the store, bypassing HTTP.
func setupRoom(t *testing.T, srv *Server, settings RoomSettings, sessions ...string) string {
	t.Helper()
	room := srv.store.CreateRoom(settings)
	for _, sessionID := range sessions {
		if _, _, err := srv.store.AddParticipant(room.ID, sessionID, "player-"+sessionID); err != nil {
			t.Fatalf("join %s: %v", sessionID, err)
		}
	}
	return room.ID
}

func readyAll(t *testing.T, srv *Server, roomID string) {
	t.Helper()
	if _, err := srv.store.UpdateRoom(roomID, func(room *Room) error {
		for i := range room.Participants {
			room.Participants[i].IsReady = true
		}
		return nil
	}); err != nil {
		t.Fatalf("ready all: %v", err)
	}
}

// startActiveRoom brings a fresh room to an active round 1 with every
// session joined and ready. The first session is the host.
func startActiveRoom(t *testing.T, srv *Server, settings RoomSettings, sessions ...string) string {
	t.Helper()
	roomID := setupRoom(t, srv, settings, sessions...)
	readyAll(t, srv, roomID)
	if _, err := srv.startRoom(roomID, sessions[0]); err != nil {
		t.Fatalf("start room: %v", err)
	}
	t.Cleanup(srv.Stop)
	return roomID
}

func roundStatus(t *testing.T, srv *Server, roomID string, roundNo int) string {
	t.Helper()
	status := ""
	if _, err := srv.store.UpdateRoom(roomID, func(room *Room) error {
		if round := roundByNumber(room, roundNo); round != nil {
			status = round.Status
		}
		return nil
	}); err != nil {
		t.Fatalf("round status: %v", err)
	}
	return status
}

func totalScore(t *testing.T, srv *Server, roomID, sessionID string) int {
	t.Helper()
	_, participant, ok := srv.store.GetParticipant(roomID, sessionID)
	if !ok {
		t.Fatalf("participant %s not found", sessionID)
	}
	return participant.TotalScore
}

func waitFor(t *testing.T, timeout time.Duration, condition func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("condition not met within %s", timeout)
}

// frameRecorder is a publisher sink that captures broadcast frames instead
// of fanning them out over websockets.
type frameRecorder struct {
	mu     sync.Mutex
	frames map[string][][]byte
}

func newFrameRecorder() *frameRecorder {
	return &frameRecorder{frames: make(map[string][][]byte)}
}

func (r *frameRecorder) send(roomID string, data []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := make([]byte, len(data))
	copy(copied, data)
	r.frames[roomID] = append(r.frames[roomID], copied)
	return nil
}

func (r *frameRecorder) roomEvents(t *testing.T, roomID string) []events.Event {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	decoded := make([]events.Event, 0, len(r.frames[roomID]))
	for _, frame := range r.frames[roomID] {
		ev, err := events.Decode(frame)
		if err != nil {
			t.Fatalf("decode frame: %v", err)
		}
		decoded = append(decoded, ev)
	}
	return decoded
}

func (r *frameRecorder) eventsOfType(t *testing.T, roomID, eventType string) []events.Event {
	t.Helper()
	matched := make([]events.Event, 0)
	for _, ev := range r.roomEvents(t, roomID) {
		if ev.Type == eventType {
			matched = append(matched, ev)
		}
	}
	return matched
}

func (r *frameRecorder) countOfType(roomID, eventType string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, frame := range r.frames[roomID] {
		ev, err := events.Decode(frame)
		if err != nil {
			continue
		}
		if ev.Type == eventType {
			count++
		}
	}
	return count
}

// recordingServer wires a fresh server whose publisher delivers into a
// frame recorder.
func recordingServer(cfg config.Config) (*Server, *frameRecorder) {
	srv := New(nil, cfg)
	rec := newFrameRecorder()
	srv.pub = newPublisher(rec.send)
	return srv, rec
}
