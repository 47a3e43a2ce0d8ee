package client

import (
	"log"
	"time"
)

// Reconciler holds the client's local view and keeps it converging on the
// server's truth. Local phase is only ever replaced by a server-derived
// phase; regressions in round number force a re-fetch instead of applying.
type Reconciler struct {
	phase            Phase
	checksum         uint64
	lastValidRoundNo int
	lastEventAt      time.Time
}

func NewReconciler() *Reconciler {
	return &Reconciler{phase: PhaseWaiting}
}

func (r *Reconciler) Phase() Phase {
	return r.phase
}

func (r *Reconciler) LastValidRoundNo() int {
	return r.lastValidRoundNo
}

// Apply adopts a fresh server state. It reports whether the held phase had
// drifted from the server-derived one; drift is corrected, not negotiated.
func (r *Reconciler) Apply(state ServerState) (Phase, bool) {
	if state.RoundNo < r.lastValidRoundNo {
		// Stale state from a delayed fetch; keep what we have.
		return r.phase, false
	}
	expected := DerivePhase(state)
	sum := Checksum(state)
	corrected := false
	if r.checksum != 0 && sum != r.checksum && expected != r.phase {
		log.Printf("phase corrected from=%s to=%s round=%d", r.phase, expected, state.RoundNo)
		corrected = true
	}
	r.phase = expected
	r.checksum = sum
	if state.RoundNo > r.lastValidRoundNo {
		r.lastValidRoundNo = state.RoundNo
	}
	return r.phase, corrected
}

// AcceptRound is the regression guard for incoming events: a round number
// below the highest accepted one is stale and must trigger a forced re-fetch
// rather than being applied.
func (r *Reconciler) AcceptRound(roundNo int) bool {
	if roundNo < r.lastValidRoundNo {
		log.Printf("stale round ignored got=%d have=%d", roundNo, r.lastValidRoundNo)
		return false
	}
	if roundNo > r.lastValidRoundNo {
		r.lastValidRoundNo = roundNo
	}
	r.lastEventAt = time.Now()
	return true
}

func (r *Reconciler) MarkEvent(at time.Time) {
	r.lastEventAt = at
}

// watchdog intervals per phase: how long without any event before the client
// falls back to polling the authoritative state.
var watchdogIntervals = map[Phase]time.Duration{
	PhaseWaiting:    30 * time.Second,
	PhasePlaying:    30 * time.Second,
	PhaseAnswering:  10 * time.Second,
	PhaseScoreboard: 15 * time.Second,
	PhaseFinished:   0,
}

// NeedsPoll reports whether the event silence has outlived the current
// phase's watchdog interval.
func (r *Reconciler) NeedsPoll(now time.Time) bool {
	interval := watchdogIntervals[r.phase]
	if interval <= 0 {
		return false
	}
	if r.lastEventAt.IsZero() {
		return true
	}
	return now.Sub(r.lastEventAt) > interval
}
