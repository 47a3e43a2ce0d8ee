package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"quizclash/internal/db"
	"quizclash/internal/events"

	"gorm.io/gorm/clause"
)

// The store is authoritative for live rooms; these helpers mirror state into
// Postgres so that a fresh read of the database reconstructs the same truth.
// All of them are no-ops without a database connection.

func (s *Server) persistRoom(room *Room) error {
	if s.db == nil {
		return nil
	}
	record := db.Room{
		Code:          room.Code,
		Status:        room.Status,
		Capacity:      room.Capacity,
		RoundTimeSec:  room.RoundTimeSec,
		NumQuestions:  room.NumQuestions,
		HostSessionID: room.HostSessionID,
	}
	if err := s.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&record).Error; err != nil {
		return err
	}
	room.DBID = record.ID
	newID := fmt.Sprintf("room-%d", record.ID)
	if room.ID != newID {
		s.store.RenameRoom(room, newID)
	}
	return nil
}

func (s *Server) persistRoomStatus(room *Room) {
	if s.db == nil || room.DBID == 0 {
		return
	}
	updates := map[string]any{
		"status":          room.Status,
		"host_session_id": room.HostSessionID,
		"finished_reason": room.FinishedReason,
	}
	if err := s.db.Model(&db.Room{}).Where("id = ?", room.DBID).Updates(updates).Error; err != nil {
		logPersistError(room, "room status", err)
	}
}

func (s *Server) persistParticipant(room *Room, participant *Participant) error {
	if s.db == nil {
		return nil
	}
	if participant.DBID != 0 {
		return nil
	}
	if room.DBID == 0 {
		return errors.New("room not persisted")
	}
	record := db.Participant{
		RoomID:           room.DBID,
		SessionID:        participant.SessionID,
		DisplayName:      participant.DisplayName,
		IsHost:           participant.IsHost,
		ConnectionStatus: participant.ConnectionStatus,
		IsReady:          participant.IsReady,
		TotalScore:       participant.TotalScore,
		JoinedAt:         participant.JoinedAt,
		LastSeenAt:       participant.LastSeenAt,
	}
	if err := s.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&record).Error; err != nil {
		return err
	}
	participant.DBID = record.ID
	return nil
}

func (s *Server) persistParticipants(room *Room) {
	if s.db == nil {
		return
	}
	for i := range room.Participants {
		participant := &room.Participants[i]
		if participant.DBID == 0 {
			if err := s.persistParticipant(room, participant); err != nil {
				logPersistError(room, "participant", err)
				continue
			}
		}
		updates := map[string]any{
			"is_host":           participant.IsHost,
			"connection_status": participant.ConnectionStatus,
			"is_ready":          participant.IsReady,
			"last_seen_at":      participant.LastSeenAt,
		}
		if err := s.db.Model(&db.Participant{}).Where("id = ?", participant.DBID).Updates(updates).Error; err != nil {
			logPersistError(room, "participant", err)
		}
	}
}

func (s *Server) persistRound(room *Room, round *Round) {
	if s.db == nil || round == nil {
		return
	}
	if round.DBID == 0 {
		if room.DBID == 0 {
			return
		}
		question, err := json.Marshal(round.Question)
		if err != nil {
			logPersistError(room, "round", err)
			return
		}
		record := db.Round{
			RoomID:   room.DBID,
			Number:   round.Number,
			Status:   round.Status,
			Question: question,
		}
		if !round.RevealedAt.IsZero() {
			revealed := round.RevealedAt
			deadline := round.DeadlineAt
			record.RevealedAt = &revealed
			record.DeadlineAt = &deadline
		}
		if err := s.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&record).Error; err != nil {
			logPersistError(room, "round", err)
			return
		}
		round.DBID = record.ID
		return
	}
	updates := map[string]any{"status": round.Status}
	if !round.RevealedAt.IsZero() {
		updates["revealed_at"] = round.RevealedAt
		updates["deadline_at"] = round.DeadlineAt
	}
	if err := s.db.Model(&db.Round{}).Where("id = ?", round.DBID).Updates(updates).Error; err != nil {
		logPersistError(room, "round", err)
	}
}

// persistAnswer inserts one answer. The unique (round_id, session_id) index
// backs up the in-memory duplicate rejection.
func (s *Server) persistAnswer(room *Room, roundNo int, roundDBID uint, answer Answer) {
	if s.db == nil || roundDBID == 0 {
		return
	}
	record := db.Answer{
		RoundID:       roundDBID,
		SessionID:     answer.SessionID,
		Content:       answer.Content,
		RuleScore:     answer.RuleScore,
		DelegateScore: answer.DelegateScore,
		FinalScore:    answer.FinalScore,
		IsCorrect:     answer.Correct,
		ElapsedMS:     answer.ElapsedMS,
	}
	if err := s.db.Create(&record).Error; err != nil {
		logPersistError(room, "answer", err)
		return
	}
	_, _ = s.store.UpdateRoom(room.ID, func(room *Room) error {
		if round := roundByNumber(room, roundNo); round != nil {
			if stored, ok := answerBySession(round, answer.SessionID); ok {
				stored.DBID = record.ID
			}
		}
		return nil
	})
}

func (s *Server) persistEvent(room *Room, ev events.Event) error {
	if s.db == nil || room.DBID == 0 {
		return nil
	}
	payload, err := json.Marshal(ev.Data)
	if err != nil {
		return err
	}
	record := db.Event{
		RoomID:  room.DBID,
		Type:    ev.Type,
		Payload: payload,
	}
	if round := currentRound(room); round != nil && round.DBID != 0 {
		roundID := round.DBID
		record.RoundID = &roundID
	}
	return s.db.Create(&record).Error
}

func (s *Server) persistRoundStatusByID(room *Room, roundDBID uint, status string) {
	if s.db == nil || roundDBID == 0 {
		return
	}
	if err := s.db.Model(&db.Round{}).Where("id = ?", roundDBID).Update("status", status).Error; err != nil {
		logPersistError(room, "round status", err)
	}
}

func logPersistError(room *Room, what string, err error) {
	log.Printf("persist failed room_id=%s what=%s error=%v", room.ID, what, err)
}
