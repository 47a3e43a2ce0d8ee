package server

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"quizclash/internal/events"
)

type createRoomRequest struct {
	Capacity     int        `json:"capacity"`
	RoundSeconds int        `json:"round_seconds"`
	NumQuestions int        `json:"num_questions"`
	Questions    []Question `json:"questions"`
}

type joinRequest struct {
	SessionID   string `json:"session_id"`
	DisplayName string `json:"display_name"`
}

type readyRequest struct {
	SessionID string `json:"session_id"`
	IsReady   bool   `json:"is_ready"`
}

type sessionRequest struct {
	SessionID string `json:"session_id"`
}

type revealRequest struct {
	SessionID string `json:"session_id"`
	RoundNo   int    `json:"round_no"`
}

type answerRequest struct {
	SessionID string `json:"session_id"`
	Content   string `json:"content"`
	ChoiceID  string `json:"choice_id"`
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, ErrRoomNotFound), errors.Is(err, ErrRoundNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrNotHost), errors.Is(err, ErrNotParticipant):
		return http.StatusForbidden
	case errors.Is(err, ErrUnknownChoice):
		return http.StatusBadRequest
	case errors.Is(err, ErrBadQuestion):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrRoomFull),
		errors.Is(err, ErrAlreadyStarted),
		errors.Is(err, ErrRoomFinished),
		errors.Is(err, ErrInsufficientParticipants),
		errors.Is(err, ErrParticipantsNotReady),
		errors.Is(err, ErrRoundNotActive),
		errors.Is(err, ErrRoundNotScoreboard),
		errors.Is(err, ErrDuplicateAnswer),
		errors.Is(err, ErrDeadlinePassed):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) handleCreateRoom(w http.ResponseWriter, r *http.Request) {
	var req createRoomRequest
	if err := readJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	settings := RoomSettings{
		Capacity:     s.cfg.MaxParticipants,
		RoundTimeSec: s.cfg.RoundTimeSeconds,
		NumQuestions: s.cfg.NumQuestions,
	}
	if req.Capacity > 0 {
		settings.Capacity = req.Capacity
	}
	if req.RoundSeconds > 0 {
		settings.RoundTimeSec = req.RoundSeconds
	}
	if req.NumQuestions > 0 {
		settings.NumQuestions = req.NumQuestions
	}
	for _, question := range req.Questions {
		if err := validateQuestion(question); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	room := s.store.CreateRoom(settings)
	if len(req.Questions) > 0 {
		_, _ = s.store.UpdateRoom(room.ID, func(room *Room) error {
			room.Questions = req.Questions
			return nil
		})
	}
	if err := s.persistRoom(room); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create room")
		return
	}
	log.Printf("room created room_id=%s code=%s", room.ID, room.Code)
	writeJSON(w, http.StatusCreated, map[string]string{
		"room_id": room.ID,
		"code":    room.Code,
	})
}

func (s *Server) handleJoin(w http.ResponseWriter, r *http.Request) {
	roomID := r.PathValue("id")
	var req joinRequest
	if err := readJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.SessionID) == "" {
		writeError(w, http.StatusBadRequest, "session_id is required")
		return
	}
	name := strings.TrimSpace(req.DisplayName)
	room, participant, err := s.store.AddParticipant(roomID, req.SessionID, name)
	if err != nil {
		writeError(w, statusForError(err), err.Error())
		return
	}
	if err := s.persistParticipant(room, participant); err != nil {
		logPersistError(room, "participant", err)
	}
	log.Printf("participant joined room_id=%s session_id=%s host=%t", room.ID, participant.SessionID, participant.IsHost)
	s.publish(room, participantStatusEvent([]events.StatusChange{{
		SessionID: participant.SessionID,
		Status:    connOnline,
	}}))
	writeJSON(w, http.StatusOK, map[string]any{
		"room_id":    room.ID,
		"session_id": participant.SessionID,
		"is_host":    participant.IsHost,
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	roomID := r.PathValue("id")
	var req readyRequest
	if err := readJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	room, err := s.store.UpdateRoom(roomID, func(room *Room) error {
		participant, ok := findParticipant(room, req.SessionID)
		if !ok {
			return ErrNotParticipant
		}
		if room.Status != roomWaiting {
			return ErrAlreadyStarted
		}
		participant.IsReady = req.IsReady
		participant.LastSeenAt = timeNowUTC()
		return nil
	})
	if err != nil {
		writeError(w, statusForError(err), err.Error())
		return
	}
	s.persistParticipants(room)
	s.publish(room, participantReadyEvent([]events.ReadyUpdate{{
		SessionID: req.SessionID,
		IsReady:   req.IsReady,
	}}))
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	roomID := r.PathValue("id")
	var req sessionRequest
	if err := readJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if _, err := s.startRoom(roomID, req.SessionID); err != nil {
		writeError(w, statusForError(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleReveal(w http.ResponseWriter, r *http.Request) {
	roomID := r.PathValue("id")
	var req revealRequest
	if err := readJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if _, err := s.revealRound(roomID, req.SessionID, req.RoundNo); err != nil {
		writeError(w, statusForError(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleSubmitAnswer(w http.ResponseWriter, r *http.Request) {
	roomID := r.PathValue("id")
	var req answerRequest
	if err := readJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.SessionID) == "" {
		writeError(w, http.StatusBadRequest, "session_id is required")
		return
	}
	answer, roundNo, err := s.submitAnswer(r.Context(), roomID, req)
	if err != nil {
		writeError(w, statusForError(err), err.Error())
		return
	}
	resp := map[string]any{"score": answer.FinalScore}
	if answer.Feedback != "" {
		resp["feedback"] = answer.Feedback
	}
	room, _ := s.store.GetRoom(roomID)
	if room != nil {
		round := roundByNumber(room, roundNo)
		if round != nil && round.Question.Type == questionTypeChoice {
			resp["correct"] = answer.Correct
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCloseRound(w http.ResponseWriter, r *http.Request) {
	roomID := r.PathValue("id")
	var req sessionRequest
	if err := readJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	room, scoreboard, _, err := s.closeRoundForHost(roomID, req.SessionID)
	if err != nil {
		writeError(w, statusForError(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":               true,
		"round_scoreboard": scoreboard,
		"finished":         room.Status == roomFinished,
	})
}

func (s *Server) handleAdvance(w http.ResponseWriter, r *http.Request) {
	roomID := r.PathValue("id")
	var req sessionRequest
	if err := readJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	room, err := s.advanceFromScoreboard(roomID, req.SessionID)
	if err != nil {
		writeError(w, statusForError(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":       true,
		"finished": room.Status == roomFinished,
	})
}

func (s *Server) handleHeartbeat(w http.ResponseWriter, r *http.Request) {
	roomID := r.PathValue("id")
	var req sessionRequest
	if err := readJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	room, participant, ok := s.store.GetParticipant(roomID, req.SessionID)
	if room == nil {
		writeError(w, http.StatusNotFound, ErrRoomNotFound.Error())
		return
	}
	if !ok || participant == nil {
		writeError(w, http.StatusForbidden, ErrNotParticipant.Error())
		return
	}
	s.touchPresence(roomID, req.SessionID)
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	roomID := r.PathValue("id")
	var view map[string]any
	_, err := s.store.UpdateRoom(roomID, func(room *Room) error {
		view = snapshot(room)
		return nil
	})
	if err != nil {
		writeError(w, statusForError(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func validateQuestion(question Question) error {
	if strings.TrimSpace(question.Text) == "" {
		return errors.New("question text is required")
	}
	switch question.Type {
	case questionTypeChoice:
		if len(question.Options) < 2 {
			return errors.New("choice question needs at least 2 options")
		}
		correct := 0
		for _, option := range question.Options {
			if option.Correct {
				correct++
			}
		}
		if correct != 1 {
			return errors.New("choice question needs exactly one correct option")
		}
	case questionTypeOpen:
	default:
		return errors.New("unknown question type")
	}
	return nil
}
