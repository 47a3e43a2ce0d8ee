package server

import "strings"

// scoreChoice rewards speed only on a correct answer:
// 60 + floor(((tMax - min(elapsed, tMax)) / tMax) * 40), clamped to [0,100].
func scoreChoice(correct bool, elapsedMS int64, roundTimeSec int) int {
	if !correct {
		return 0
	}
	tMax := int64(roundTimeSec) * 1000
	if tMax <= 0 {
		return 60
	}
	if elapsedMS < 0 {
		elapsedMS = 0
	}
	if elapsedMS > tMax {
		elapsedMS = tMax
	}
	score := 60 + int(((tMax-elapsedMS)*40)/tMax)
	return clampScore(score)
}

func clampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

var dontKnowPatterns = []string{
	"i don't know",
	"i dont know",
	"dont know",
	"don't know",
	"idk",
	"no idea",
	"dunno",
	"not sure",
	"no se",
	"-",
	"?",
}

// isNonAnswer is the fast path in front of the evaluator: obvious "I don't
// know" responses and answers that are empty once punctuation is stripped
// score 0 without a delegate call.
func isNonAnswer(answer string) bool {
	trimmed := strings.ToLower(strings.TrimSpace(answer))
	if trimmed == "" {
		return true
	}
	for _, pattern := range dontKnowPatterns {
		if trimmed == pattern {
			return true
		}
	}
	stripped := strings.Map(func(r rune) rune {
		if isWordRune(r) {
			return r
		}
		return -1
	}, trimmed)
	if stripped == "" {
		return true
	}
	if len(strings.Fields(trimmed)) < 2 && len(stripped) < 2 {
		return true
	}
	return false
}

func isWordRune(r rune) bool {
	return (r >= 'a' && r <= 'z') ||
		(r >= 'A' && r <= 'Z') ||
		(r >= '0' && r <= '9') ||
		r > 127
}

var categoryKeywords = map[string][]string{
	"science":    {"energy", "cell", "atom", "theory", "experiment", "force", "reaction"},
	"history":    {"war", "empire", "century", "revolution", "king", "treaty", "ancient"},
	"geography":  {"river", "mountain", "capital", "ocean", "continent", "country", "climate"},
	"technology": {"computer", "network", "software", "data", "internet", "algorithm", "system"},
	"sports":     {"team", "player", "goal", "match", "season", "record", "championship"},
	"art":        {"painting", "artist", "style", "museum", "sculpture", "movement", "color"},
}

var structureMarkers = []string{
	"for example",
	"for instance",
	"such as",
	"e.g.",
	"because",
	"first",
	"second",
	"1.",
	"2.",
	"- ",
	"\n",
}

// fallbackScore is the deterministic heuristic used when the evaluator is
// unreachable: base score plus word-count, category-keyword, and structure
// contributions, scaled by difficulty.
func fallbackScore(answer, category, difficulty string) int {
	if isNonAnswer(answer) {
		return 0
	}
	lower := strings.ToLower(answer)

	score := 30
	words := len(strings.Fields(lower))
	if words > 40 {
		words = 40
	}
	score += words

	matched := 0
	for _, keyword := range categoryKeywords[strings.ToLower(category)] {
		if strings.Contains(lower, keyword) {
			matched += 5
		}
	}
	if matched > 20 {
		matched = 20
	}
	score += matched

	for _, marker := range structureMarkers {
		if strings.Contains(lower, marker) {
			score += 10
			break
		}
	}

	multiplier := 100
	switch strings.ToLower(difficulty) {
	case "medium":
		multiplier = 110
	case "hard":
		multiplier = 120
	}
	return clampScore(score * multiplier / 100)
}
