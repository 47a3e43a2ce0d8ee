// Package client implements the subscriber side of a quizclash room: a
// consolidated connection manager with a reconnection strategy, short event
// buffering, and a reconciliation loop that derives the local phase purely
// from server-reported state.
package client

import "hash/fnv"

type Phase string

const (
	PhaseWaiting    Phase = "waiting"
	PhasePlaying    Phase = "playing"
	PhaseAnswering  Phase = "answering"
	PhaseScoreboard Phase = "scoreboard"
	PhaseFinished   Phase = "finished"
)

// ServerState is the slice of an authoritative snapshot that determines the
// local phase.
type ServerState struct {
	RoomID           string
	RoomStatus       string
	RoundNo          int
	RoundStatus      string
	ParticipantCount int
	SessionID        string
	HasAnswered      bool
}

// DerivePhase maps server state to a UI phase. It is a pure function: the
// phase never advances on a local timer or an event alone.
func DerivePhase(state ServerState) Phase {
	switch state.RoomStatus {
	case "finished":
		return PhaseFinished
	case "active":
		switch state.RoundStatus {
		case "active":
			if state.HasAnswered {
				return PhasePlaying
			}
			return PhaseAnswering
		case "scoreboard":
			return PhaseScoreboard
		default:
			return PhasePlaying
		}
	default:
		return PhaseWaiting
	}
}

// Checksum covers exactly the fields phase derivation depends on, so a
// change in any of them is detectable with one comparison.
func Checksum(state ServerState) uint64 {
	h := fnv.New64a()
	write := func(value string) {
		_, _ = h.Write([]byte(value))
		_, _ = h.Write([]byte{0})
	}
	write(state.RoomID)
	write(state.RoomStatus)
	write(state.RoundStatus)
	write(state.SessionID)
	var buf [8]byte
	buf[0] = byte(state.RoundNo)
	buf[1] = byte(state.RoundNo >> 8)
	buf[2] = byte(state.RoundNo >> 16)
	buf[3] = byte(state.RoundNo >> 24)
	buf[4] = byte(state.ParticipantCount)
	buf[5] = byte(state.ParticipantCount >> 8)
	if state.HasAnswered {
		buf[6] = 1
	}
	_, _ = h.Write(buf[:])
	return h.Sum64()
}
