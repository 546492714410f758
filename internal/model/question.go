package model

// swagger:model Question
type Question struct {
	UUIDBase
	QuizID       string `gorm:"type:varchar(36);not null;uniqueIndex:idx_question_quiz_order,priority:1" json:"quizId"`
	QuestionText string `gorm:"type:text;not null" json:"questionText"`
	Order        int    `gorm:"not null;uniqueIndex:idx_question_quiz_order,priority:2" json:"order"`

	Answers []Answer `gorm:"foreignKey:QuestionID;constraint:OnDelete:CASCADE" json:"answers,omitempty"`
}

func (Question) TableName() string {
	return "questions"
}

// CorrectAnswerIDs returns the ids of the answers flagged correct, in answer order.
func (q *Question) CorrectAnswerIDs() []string {
	ids := make([]string, 0, len(q.Answers))
	for _, a := range q.Answers {
		if a.IsCorrect {
			ids = append(ids, a.ID)
		}
	}
	return ids
}

// swagger:model Answer
type Answer struct {
	UUIDBase
	QuestionID string `gorm:"index;type:varchar(36);not null" json:"questionId"`
	AnswerText string `gorm:"size:500;not null" json:"answerText"`
	IsCorrect  bool   `gorm:"default:false" json:"isCorrect"`
	Order      int    `gorm:"not null" json:"order"`
}

func (Answer) TableName() string {
	return "answers"
}
