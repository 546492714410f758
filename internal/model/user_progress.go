package model

// UserProgress caches the highest level a user has passed in a category.
//
// swagger:model UserProgress
type UserProgress struct {
	UUIDBase
	UserID       string    `gorm:"type:varchar(36);not null;uniqueIndex:idx_progress_user_category,priority:1" json:"userId"`
	CategoryID   string    `gorm:"type:varchar(36);not null;uniqueIndex:idx_progress_user_category,priority:2" json:"categoryId"`
	CurrentLevel QuizLevel `gorm:"size:20;not null" json:"currentLevel"`
}

func (UserProgress) TableName() string {
	return "user_progress"
}
