package repository

import (
	"context"

	"quiz_backend/internal/model"

	"gorm.io/gorm"
)

type ProgressRepository struct {
	DB *gorm.DB
}

func NewProgressRepository(db *gorm.DB) *ProgressRepository {
	return &ProgressRepository{DB: db}
}

func (r *ProgressRepository) WithTx(tx *gorm.DB) *ProgressRepository {
	return &ProgressRepository{DB: tx}
}

// ProgressWithCategory is a progress row with its category; Category is nil
// when the category was removed.
type ProgressWithCategory struct {
	model.UserProgress
	Category *model.Category
}

func (r *ProgressRepository) Find(ctx context.Context, userID, categoryID string) (*model.UserProgress, error) {
	var p model.UserProgress
	err := r.DB.WithContext(ctx).
		Where("user_id = ? AND category_id = ?", userID, categoryID).
		First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *ProgressRepository) Create(ctx context.Context, p *model.UserProgress) error {
	return r.DB.WithContext(ctx).Create(p).Error
}

// UpdateLevel raises the row to level only when level ranks above the stored
// one, so concurrent writers cannot lower it. Unknown stored levels rank
// below beginner.
func (r *ProgressRepository) UpdateLevel(ctx context.Context, id string, level model.QuizLevel) (bool, error) {
	if !level.IsValid() {
		return false, nil
	}
	notLower := make([]model.QuizLevel, 0, len(model.Levels()))
	for _, l := range model.Levels() {
		if l.Rank() >= level.Rank() {
			notLower = append(notLower, l)
		}
	}
	res := r.DB.WithContext(ctx).Model(&model.UserProgress{}).
		Where("id = ? AND current_level NOT IN ?", id, notLower).
		Update("current_level", level)
	return res.RowsAffected > 0, res.Error
}

func (r *ProgressRepository) ListByUser(ctx context.Context, userID string) ([]model.UserProgress, error) {
	var ps []model.UserProgress
	err := r.DB.WithContext(ctx).Where("user_id = ?", userID).Order("updated_at desc").Find(&ps).Error
	return ps, err
}

func (r *ProgressRepository) ListWithCategory(ctx context.Context, userID string) ([]ProgressWithCategory, error) {
	ps, err := r.ListByUser(ctx, userID)
	if err != nil || len(ps) == 0 {
		return nil, err
	}

	ids := make([]string, 0, len(ps))
	for _, p := range ps {
		ids = append(ids, p.CategoryID)
	}
	var cats []model.Category
	if err := r.DB.WithContext(ctx).Where("id IN ?", ids).Find(&cats).Error; err != nil {
		return nil, err
	}
	byID := make(map[string]*model.Category, len(cats))
	for i := range cats {
		byID[cats[i].ID] = &cats[i]
	}

	out := make([]ProgressWithCategory, 0, len(ps))
	for _, p := range ps {
		out = append(out, ProgressWithCategory{UserProgress: p, Category: byID[p.CategoryID]})
	}
	return out, nil
}

func (r *ProgressRepository) CountByUser(ctx context.Context, userID string) (int64, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&model.UserProgress{}).Where("user_id = ?", userID).Count(&count).Error
	return count, err
}

func (r *ProgressRepository) DeleteByUser(ctx context.Context, userID string) error {
	return r.DB.WithContext(ctx).Unscoped().Where("user_id = ?", userID).Delete(&model.UserProgress{}).Error
}
