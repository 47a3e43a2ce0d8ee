package server

// defaultQuestions is the built-in bank used when a room is created without
// its own question list.
func defaultQuestions() []Question {
	return []Question{
		{
			Type:       questionTypeChoice,
			Text:       "Which planet has the most moons?",
			Category:   "science",
			Difficulty: "easy",
			Language:   "en",
			Options: []Option{
				{ID: "a", Text: "Mars"},
				{ID: "b", Text: "Saturn", Correct: true},
				{ID: "c", Text: "Venus"},
				{ID: "d", Text: "Mercury"},
			},
		},
		{
			Type:       questionTypeChoice,
			Text:       "In which year did the Berlin Wall fall?",
			Category:   "history",
			Difficulty: "easy",
			Language:   "en",
			Options: []Option{
				{ID: "a", Text: "1985"},
				{ID: "b", Text: "1991"},
				{ID: "c", Text: "1989", Correct: true},
				{ID: "d", Text: "1979"},
			},
		},
		{
			Type:       questionTypeChoice,
			Text:       "What is the longest river in the world?",
			Category:   "geography",
			Difficulty: "medium",
			Language:   "en",
			Options: []Option{
				{ID: "a", Text: "Amazon"},
				{ID: "b", Text: "Nile", Correct: true},
				{ID: "c", Text: "Yangtze"},
				{ID: "d", Text: "Mississippi"},
			},
		},
		{
			Type:       questionTypeOpen,
			Text:       "Explain why the sky appears blue during the day.",
			Category:   "science",
			Difficulty: "medium",
			Language:   "en",
		},
		{
			Type:       questionTypeOpen,
			Text:       "Describe one major consequence of the industrial revolution.",
			Category:   "history",
			Difficulty: "hard",
			Language:   "en",
		},
	}
}
