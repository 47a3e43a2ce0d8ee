package server

import "sort"

// buildScoreboard derives the per-round standings after a close: descending
// total score, ties broken by join order. Never persisted; recomputed from
// answers and participant totals each time.
func buildScoreboard(room *Room, round *Round) []ScoreboardEntry {
	entries := make([]ScoreboardEntry, 0, len(room.Participants))
	for i := range room.Participants {
		participant := &room.Participants[i]
		roundScore := 0
		if answer, ok := answerBySession(round, participant.SessionID); ok {
			roundScore = answer.FinalScore
		}
		entries = append(entries, ScoreboardEntry{
			SessionID:   participant.SessionID,
			DisplayName: participant.DisplayName,
			RoundScore:  roundScore,
			TotalScore:  participant.TotalScore,
		})
	}
	rankEntries(entries)
	return entries
}

func buildStandings(room *Room) []ScoreboardEntry {
	entries := make([]ScoreboardEntry, 0, len(room.Participants))
	for i := range room.Participants {
		participant := &room.Participants[i]
		entries = append(entries, ScoreboardEntry{
			SessionID:   participant.SessionID,
			DisplayName: participant.DisplayName,
			TotalScore:  participant.TotalScore,
		})
	}
	rankEntries(entries)
	return entries
}

// rankEntries sorts stably so that equal totals keep join order.
func rankEntries(entries []ScoreboardEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].TotalScore > entries[j].TotalScore
	})
	for i := range entries {
		entries[i].Rank = i + 1
	}
}
