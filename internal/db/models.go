package db

import (
	"time"

	"gorm.io/datatypes"
)

type Room struct {
	ID             uint      `gorm:"primaryKey"`
	Code           string    `gorm:"size:12;uniqueIndex;not null"`
	Status         string    `gorm:"size:16;not null"`
	Capacity       int       `gorm:"not null"`
	RoundTimeSec   int       `gorm:"not null"`
	NumQuestions   int       `gorm:"not null"`
	HostSessionID  string    `gorm:"size:64"`
	FinishedReason string    `gorm:"size:32"`
	CreatedAt      time.Time `gorm:"not null"`
	UpdatedAt      time.Time `gorm:"not null"`
	Rounds         []Round
	Participants   []Participant
	Events         []Event
}

type Round struct {
	ID         uint           `gorm:"primaryKey"`
	RoomID     uint           `gorm:"index;not null;uniqueIndex:idx_rounds_room_number"`
	Number     int            `gorm:"not null;uniqueIndex:idx_rounds_room_number"`
	Status     string         `gorm:"size:16;not null"`
	Question   datatypes.JSON `gorm:"type:jsonb;not null"`
	RevealedAt *time.Time
	DeadlineAt *time.Time
	CreatedAt  time.Time `gorm:"not null"`
	UpdatedAt  time.Time `gorm:"not null"`
	Answers    []Answer
}

type Participant struct {
	ID               uint      `gorm:"primaryKey"`
	RoomID           uint      `gorm:"index;not null;uniqueIndex:idx_participants_room_session"`
	SessionID        string    `gorm:"size:64;not null;uniqueIndex:idx_participants_room_session"`
	DisplayName      string    `gorm:"size:64;not null"`
	IsHost           bool      `gorm:"not null;default:false"`
	ConnectionStatus string    `gorm:"size:16;not null"`
	IsReady          bool      `gorm:"not null;default:false"`
	TotalScore       int       `gorm:"not null;default:0"`
	JoinedAt         time.Time `gorm:"not null"`
	LastSeenAt       time.Time `gorm:"not null"`
	CreatedAt        time.Time `gorm:"not null"`
	UpdatedAt        time.Time `gorm:"not null"`
}

type Answer struct {
	ID            uint      `gorm:"primaryKey"`
	RoundID       uint      `gorm:"index;not null;uniqueIndex:idx_answers_round_session"`
	SessionID     string    `gorm:"size:64;not null;uniqueIndex:idx_answers_round_session"`
	Content       string    `gorm:"size:2000;not null"`
	RuleScore     int       `gorm:"not null;default:0"`
	DelegateScore int       `gorm:"not null;default:0"`
	FinalScore    int       `gorm:"not null;default:0"`
	IsCorrect     bool      `gorm:"not null;default:false"`
	ElapsedMS     int64     `gorm:"not null;default:0"`
	CreatedAt     time.Time `gorm:"not null"`
	UpdatedAt     time.Time `gorm:"not null"`
}

type Event struct {
	ID        uint           `gorm:"primaryKey"`
	RoomID    uint           `gorm:"index;not null"`
	RoundID   *uint          `gorm:"index"`
	Type      string         `gorm:"size:64;not null"`
	Payload   datatypes.JSON `gorm:"type:jsonb;not null"`
	CreatedAt time.Time      `gorm:"not null"`
}
