package server

import "time"

const (
	roomWaiting  = "waiting"
	roomActive   = "active"
	roomFinished = "finished"
)

const (
	roundPending    = "pending"
	roundActive     = "active"
	roundScoreboard = "scoreboard"
	roundClosed     = "closed"
)

const (
	connOnline  = "online"
	connOffline = "offline"
)

const (
	questionTypeChoice = "choice"
	questionTypeOpen   = "open"
)

const (
	finishReasonCompleted    = "completed"
	finishReasonDisconnected = "opponent_disconnected"
	finishReasonHostEnded    = "host_ended"
)

type Room struct {
	ID             string
	DBID           uint
	Code           string
	Status         string
	Capacity       int
	RoundTimeSec   int
	NumQuestions   int
	HostSessionID  string
	FinishedReason string
	WinnerSession  string
	Questions      []Question
	Participants   []Participant
	Rounds         []Round
}

type Participant struct {
	SessionID        string
	DBID             uint
	DisplayName      string
	IsHost           bool
	ConnectionStatus string
	IsReady          bool
	TotalScore       int
	JoinedAt         time.Time
	LastSeenAt       time.Time
}

type Round struct {
	Number     int
	DBID       uint
	Status     string
	Question   Question
	RevealedAt time.Time
	DeadlineAt time.Time
	Answers    []Answer
}

type Question struct {
	Type       string   `json:"type"`
	Text       string   `json:"text"`
	Category   string   `json:"category"`
	Difficulty string   `json:"difficulty"`
	Language   string   `json:"language"`
	Options    []Option `json:"options,omitempty"`
}

type Option struct {
	ID      string `json:"id"`
	Text    string `json:"text"`
	Correct bool   `json:"correct,omitempty"`
}

type Answer struct {
	SessionID     string
	DBID          uint
	Content       string
	RuleScore     int
	DelegateScore int
	FinalScore    int
	Correct       bool
	Feedback      string
	ElapsedMS     int64
	SubmittedAt   time.Time
}

type ScoreboardEntry struct {
	SessionID   string `json:"session_id"`
	DisplayName string `json:"display_name"`
	RoundScore  int    `json:"round_score"`
	TotalScore  int    `json:"total_score"`
	Rank        int    `json:"rank"`
}
