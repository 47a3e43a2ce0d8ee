package server

import (
	"fmt"
	"sync"
	"time"
)

// Store holds the live rooms. The store mutex is the process-local
// serialization point for every room mutation; see UpdateRoom.
type Store struct {
	mu     sync.Mutex
	nextID int
	rooms  map[string]*Room
}

func NewStore() *Store {
	return &Store{
		nextID: 1,
		rooms:  make(map[string]*Room),
	}
}

type RoomSettings struct {
	Capacity     int
	RoundTimeSec int
	NumQuestions int
}

func (s *Store) CreateRoom(settings RoomSettings) *Room {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := fmt.Sprintf("room-%d", s.nextID)
	s.nextID++
	room := &Room{
		ID:           id,
		Code:         newJoinCode(),
		Status:       roomWaiting,
		Capacity:     settings.Capacity,
		RoundTimeSec: settings.RoundTimeSec,
		NumQuestions: settings.NumQuestions,
	}
	s.rooms[id] = room
	return room
}

func (s *Store) GetRoom(id string) (*Room, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.rooms[id]
	return room, ok
}

// UpdateRoom runs update while holding the store lock. All round-status
// checks and flips happen inside such closures, which is what makes the
// close protocol a compare-and-swap in the in-memory path.
func (s *Store) UpdateRoom(id string, update func(room *Room) error) (*Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.rooms[id]
	if !ok {
		return nil, ErrRoomNotFound
	}
	if err := update(room); err != nil {
		return nil, err
	}
	return room, nil
}

func (s *Store) FindRoomByCode(code string) (*Room, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, room := range s.rooms {
		if room.Code == code {
			return room, true
		}
	}
	return nil, false
}

func (s *Store) RoomIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.rooms))
	for id := range s.rooms {
		ids = append(ids, id)
	}
	return ids
}

// AddParticipant joins a session to a room by id or join code. A session
// that already joined claims its existing seat instead of erroring, so a
// reconnecting client can re-issue the join call safely.
func (s *Store) AddParticipant(roomIDOrCode, sessionID, displayName string) (*Room, *Participant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	room, ok := s.rooms[roomIDOrCode]
	if !ok {
		for _, candidate := range s.rooms {
			if candidate.Code == roomIDOrCode {
				room = candidate
				ok = true
				break
			}
		}
	}
	if !ok {
		return nil, nil, ErrRoomNotFound
	}

	for i := range room.Participants {
		if room.Participants[i].SessionID == sessionID {
			room.Participants[i].ConnectionStatus = connOnline
			room.Participants[i].LastSeenAt = timeNowUTC()
			if displayName != "" {
				room.Participants[i].DisplayName = displayName
			}
			return room, &room.Participants[i], nil
		}
	}
	if room.Status != roomWaiting {
		return nil, nil, ErrAlreadyStarted
	}
	if room.Capacity > 0 && len(room.Participants) >= room.Capacity {
		return nil, nil, ErrRoomFull
	}

	now := timeNowUTC()
	participant := Participant{
		SessionID:        sessionID,
		DisplayName:      displayName,
		IsHost:           len(room.Participants) == 0,
		ConnectionStatus: connOnline,
		JoinedAt:         now,
		LastSeenAt:       now,
	}
	room.Participants = append(room.Participants, participant)
	if participant.IsHost {
		room.HostSessionID = participant.SessionID
	}
	return room, &room.Participants[len(room.Participants)-1], nil
}

func (s *Store) GetParticipant(roomID, sessionID string) (*Room, *Participant, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.rooms[roomID]
	if !ok {
		return nil, nil, false
	}
	for i := range room.Participants {
		if room.Participants[i].SessionID == sessionID {
			return room, &room.Participants[i], true
		}
	}
	return room, nil, false
}

func findParticipant(room *Room, sessionID string) (*Participant, bool) {
	for i := range room.Participants {
		if room.Participants[i].SessionID == sessionID {
			return &room.Participants[i], true
		}
	}
	return nil, false
}

func currentRound(room *Room) *Round {
	if len(room.Rounds) == 0 {
		return nil
	}
	return &room.Rounds[len(room.Rounds)-1]
}

func roundByNumber(room *Room, number int) *Round {
	if room == nil || number <= 0 {
		return nil
	}
	for i := range room.Rounds {
		if room.Rounds[i].Number == number {
			return &room.Rounds[i]
		}
	}
	return nil
}

func onlineParticipants(room *Room) []*Participant {
	online := make([]*Participant, 0, len(room.Participants))
	for i := range room.Participants {
		if room.Participants[i].ConnectionStatus == connOnline {
			online = append(online, &room.Participants[i])
		}
	}
	return online
}

func answerBySession(round *Round, sessionID string) (*Answer, bool) {
	for i := range round.Answers {
		if round.Answers[i].SessionID == sessionID {
			return &round.Answers[i], true
		}
	}
	return nil, false
}

func timeNowUTC() time.Time {
	return time.Now().UTC()
}

func (s *Store) RenameRoom(room *Room, newID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if room.ID == newID {
		return
	}
	delete(s.rooms, room.ID)
	room.ID = newID
	s.rooms[newID] = room
}
