package model

// QuizLevel is the difficulty ladder of a category. The order of the
// constants below is the progression order.
type QuizLevel string

const (
	LevelBeginner     QuizLevel = "beginner"
	LevelIntermediate QuizLevel = "intermediate"
	LevelAdvanced     QuizLevel = "advanced"
)

var levelRanks = map[QuizLevel]int{
	LevelBeginner:     1,
	LevelIntermediate: 2,
	LevelAdvanced:     3,
}

// Rank returns the position of the level on the ladder, 0 for unknown values.
func (l QuizLevel) Rank() int {
	return levelRanks[l]
}

func (l QuizLevel) IsValid() bool {
	return l.Rank() > 0
}

// Prerequisite returns the level that must be passed before l is unlocked.
func (l QuizLevel) Prerequisite() (QuizLevel, bool) {
	switch l {
	case LevelIntermediate:
		return LevelBeginner, true
	case LevelAdvanced:
		return LevelIntermediate, true
	}
	return "", false
}

// Levels lists the ladder in ascending order.
func Levels() []QuizLevel {
	return []QuizLevel{LevelBeginner, LevelIntermediate, LevelAdvanced}
}

type QuizStatus string

const (
	QuizStatusDraft     QuizStatus = "draft"
	QuizStatusPublished QuizStatus = "published"
)

// swagger:model Quiz
type Quiz struct {
	UUIDBase
	CategoryID string     `gorm:"index;type:varchar(36);not null" json:"categoryId"`
	Title      string     `gorm:"size:255;not null" json:"title"`
	Level      QuizLevel  `gorm:"size:20;not null;index" json:"level"`
	Status     QuizStatus `gorm:"size:20;default:'draft';index" json:"status"`

	Questions []Question `gorm:"foreignKey:QuizID;constraint:OnDelete:CASCADE" json:"questions,omitempty"`
}

func (Quiz) TableName() string {
	return "quizzes"
}

func (q *Quiz) IsPublished() bool {
	return q.Status == QuizStatusPublished
}
