package service

import (
	"quiz_backend/internal/model"
)

// PassingScore is the minimum percentage for an attempt to pass.
const PassingScore = 80.0

// AnswerSubmission is the set of answer ids picked for one question.
type AnswerSubmission struct {
	QuestionID string   `json:"questionId" binding:"required"`
	AnswerIDs  []string `json:"answerIds"`
}

// Scorecard is the outcome of grading a submission against a quiz.
type Scorecard struct {
	Score          float64
	Passed         bool
	CorrectCount   int
	TotalQuestions int
	Details        []model.QuestionResult
	// Answers holds one row per distinct (question, answer) pick, without
	// the attempt id.
	Answers []model.UserAnswer
}

// ScoreSubmission grades submitted against the full question set of a quiz.
// A question is correct only when the picked set equals the correct set.
// Questions outside the quiz are ignored, repeated questions count once (the
// first occurrence wins) and unanswered questions count as wrong.
func ScoreSubmission(questions []model.Question, submitted []AnswerSubmission) *Scorecard {
	byID := make(map[string]*model.Question, len(questions))
	for i := range questions {
		byID[questions[i].ID] = &questions[i]
	}

	card := &Scorecard{
		TotalQuestions: len(questions),
		Details:        make([]model.QuestionResult, 0, len(submitted)),
	}
	seen := make(map[string]bool, len(submitted))

	for _, sub := range submitted {
		q, ok := byID[sub.QuestionID]
		if !ok || seen[sub.QuestionID] {
			continue
		}
		seen[sub.QuestionID] = true

		picked := uniqueStrings(sub.AnswerIDs)
		correctIDs := q.CorrectAnswerIDs()
		isCorrect := sameSet(picked, correctIDs)
		if isCorrect {
			card.CorrectCount++
		}

		card.Details = append(card.Details, model.QuestionResult{
			QuestionID:     q.ID,
			QuestionText:   q.QuestionText,
			UserAnswers:    picked,
			CorrectAnswers: correctIDs,
			IsCorrect:      isCorrect,
		})
		for _, answerID := range picked {
			card.Answers = append(card.Answers, model.UserAnswer{
				QuestionID: q.ID,
				AnswerID:   answerID,
				IsCorrect:  isCorrect,
			})
		}
	}

	if card.TotalQuestions > 0 {
		card.Score = float64(card.CorrectCount) / float64(card.TotalQuestions) * 100
	}
	card.Passed = card.Score >= PassingScore
	return card
}

func uniqueStrings(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, s := range in {
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

// sameSet expects both slices free of duplicates.
func sameSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	set := make(map[string]bool, len(b))
	for _, s := range b {
		set[s] = true
	}
	for _, s := range a {
		if !set[s] {
			return false
		}
	}
	return true
}
