package assessment

import (
	"math"
	"strings"

	"examprep/internal/model"
)

// ScoreResult grades one answer against the question's answer key.
type ScoreResult struct {
	Answered  bool   `json:"answered"`
	IsCorrect *bool  `json:"isCorrect,omitempty"`
	Reason    string `json:"reason"`
}

func ScoreAnswer(correctOption string, selected *string) ScoreResult {
	correct := strings.ToUpper(strings.TrimSpace(correctOption))
	if !isOption(correct) {
		return ScoreResult{Reason: "malformed_answer_key"}
	}
	if selected == nil || strings.TrimSpace(*selected) == "" {
		return ScoreResult{Answered: false, Reason: "unanswered"}
	}
	choice := strings.ToUpper(strings.TrimSpace(*selected))
	if !isOption(choice) {
		return ScoreResult{Answered: true, IsCorrect: boolPtr(false), Reason: "malformed_payload"}
	}
	if choice == correct {
		return ScoreResult{Answered: true, IsCorrect: boolPtr(true), Reason: "correct"}
	}
	return ScoreResult{Answered: true, IsCorrect: boolPtr(false), Reason: "wrong"}
}

// AttemptScore summarizes a submitted attempt. Score is the percentage of
// the test's questions answered correctly, rounded to two decimals.
type AttemptScore struct {
	TotalQuestions int     `json:"totalQuestions"`
	Answered       int     `json:"answered"`
	Correct        int     `json:"correct"`
	Score          float64 `json:"score"`
}

// ScoreAttempt counts only answers to questions that belong to the test.
func ScoreAttempt(testQuestions []model.TestQuestion, answers []model.AttemptAnswer) AttemptScore {
	inTest := make(map[int64]struct{}, len(testQuestions))
	for _, tq := range testQuestions {
		inTest[tq.QuestionID] = struct{}{}
	}

	out := AttemptScore{TotalQuestions: len(inTest)}
	for _, a := range answers {
		if _, ok := inTest[a.QuestionID]; !ok {
			continue
		}
		if a.SelectedOption != nil && strings.TrimSpace(*a.SelectedOption) != "" {
			out.Answered++
		}
		if a.IsCorrect != nil && *a.IsCorrect {
			out.Correct++
		}
	}
	if out.TotalQuestions > 0 {
		pct := float64(out.Correct) / float64(out.TotalQuestions) * 100
		out.Score = math.Round(pct*100) / 100
	}
	return out
}

func isOption(v string) bool {
	switch v {
	case "A", "B", "C", "D":
		return true
	}
	return false
}

func boolPtr(v bool) *bool {
	return &v
}
