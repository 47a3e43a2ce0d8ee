package server

import (
	"errors"
	"testing"
)

func testSettings() RoomSettings {
	return RoomSettings{Capacity: 4, RoundTimeSec: 30, NumQuestions: 2}
}

func TestCreateRoomAssignsCode(t *testing.T) {
	store := NewStore()
	room := store.CreateRoom(testSettings())
	if room.ID == "" {
		t.Fatalf("expected room id")
	}
	if len(room.Code) != 6 {
		t.Fatalf("expected 6-character join code, got %q", room.Code)
	}
	if room.Status != roomWaiting {
		t.Fatalf("expected waiting status, got %q", room.Status)
	}

	found, ok := store.FindRoomByCode(room.Code)
	if !ok || found.ID != room.ID {
		t.Fatalf("expected to find room by code")
	}
}

func TestUpdateRoomUnknownID(t *testing.T) {
	store := NewStore()
	_, err := store.UpdateRoom("room-404", func(room *Room) error { return nil })
	if !errors.Is(err, ErrRoomNotFound) {
		t.Fatalf("expected ErrRoomNotFound, got %v", err)
	}
}

func TestAddParticipantFirstJoinerIsHost(t *testing.T) {
	store := NewStore()
	room := store.CreateRoom(testSettings())

	_, first, err := store.AddParticipant(room.ID, "s1", "Ada")
	if err != nil {
		t.Fatalf("join s1: %v", err)
	}
	if !first.IsHost {
		t.Fatalf("expected first joiner to be host")
	}
	if room.HostSessionID != "s1" {
		t.Fatalf("expected host session s1, got %q", room.HostSessionID)
	}

	_, second, err := store.AddParticipant(room.ID, "s2", "Ben")
	if err != nil {
		t.Fatalf("join s2: %v", err)
	}
	if second.IsHost {
		t.Fatalf("expected second joiner not to be host")
	}
}

func TestAddParticipantByJoinCode(t *testing.T) {
	store := NewStore()
	room := store.CreateRoom(testSettings())
	joined, _, err := store.AddParticipant(room.Code, "s1", "Ada")
	if err != nil {
		t.Fatalf("join by code: %v", err)
	}
	if joined.ID != room.ID {
		t.Fatalf("expected join by code to resolve room %s, got %s", room.ID, joined.ID)
	}
}

func TestAddParticipantRejoinClaimsSeat(t *testing.T) {
	store := NewStore()
	room := store.CreateRoom(testSettings())
	if _, _, err := store.AddParticipant(room.ID, "s1", "Ada"); err != nil {
		t.Fatalf("join: %v", err)
	}
	if _, _, err := store.AddParticipant(room.ID, "s2", "Ben"); err != nil {
		t.Fatalf("join: %v", err)
	}

	room.Status = roomActive
	_, rejoined, err := store.AddParticipant(room.ID, "s1", "Ada Again")
	if err != nil {
		t.Fatalf("expected rejoin to succeed after start, got %v", err)
	}
	if rejoined.DisplayName != "Ada Again" {
		t.Fatalf("expected display name update on rejoin, got %q", rejoined.DisplayName)
	}
	if len(room.Participants) != 2 {
		t.Fatalf("expected no duplicate seat, got %d participants", len(room.Participants))
	}

	_, _, err = store.AddParticipant(room.ID, "s3", "Cam")
	if !errors.Is(err, ErrAlreadyStarted) {
		t.Fatalf("expected ErrAlreadyStarted for new joiner, got %v", err)
	}
}

func TestAddParticipantCapacity(t *testing.T) {
	store := NewStore()
	room := store.CreateRoom(RoomSettings{Capacity: 2, RoundTimeSec: 30, NumQuestions: 2})
	if _, _, err := store.AddParticipant(room.ID, "s1", "Ada"); err != nil {
		t.Fatalf("join: %v", err)
	}
	if _, _, err := store.AddParticipant(room.ID, "s2", "Ben"); err != nil {
		t.Fatalf("join: %v", err)
	}
	_, _, err := store.AddParticipant(room.ID, "s3", "Cam")
	if !errors.Is(err, ErrRoomFull) {
		t.Fatalf("expected ErrRoomFull, got %v", err)
	}
}

func TestRoundByNumber(t *testing.T) {
	room := &Room{Rounds: []Round{{Number: 1}, {Number: 2}}}
	if round := roundByNumber(room, 2); round == nil || round.Number != 2 {
		t.Fatalf("expected round 2")
	}
	if round := roundByNumber(room, 3); round != nil {
		t.Fatalf("expected nil for missing round")
	}
	if round := roundByNumber(nil, 1); round != nil {
		t.Fatalf("expected nil for nil room")
	}
}

func TestRenameRoom(t *testing.T) {
	store := NewStore()
	room := store.CreateRoom(testSettings())
	oldID := room.ID
	store.RenameRoom(room, "room-99")
	if _, ok := store.GetRoom(oldID); ok {
		t.Fatalf("expected old id to be gone")
	}
	renamed, ok := store.GetRoom("room-99")
	if !ok || renamed != room {
		t.Fatalf("expected room under new id")
	}
}
