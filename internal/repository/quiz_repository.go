package repository

import (
	"context"

	"quiz_backend/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// QuizRepository reads and writes the authored content: categories, quizzes,
// questions and their answers.
type QuizRepository struct {
	DB *gorm.DB
}

func NewQuizRepository(db *gorm.DB) *QuizRepository {
	return &QuizRepository{DB: db}
}

func (r *QuizRepository) WithTx(tx *gorm.DB) *QuizRepository {
	return &QuizRepository{DB: tx}
}

var orderAsc = clause.OrderByColumn{Column: clause.Column{Name: "order"}}

func (r *QuizRepository) FindCategory(ctx context.Context, id string) (*model.Category, error) {
	var c model.Category
	if err := r.DB.WithContext(ctx).First(&c, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *QuizRepository) ListCategories(ctx context.Context, includeInactive bool) ([]model.Category, error) {
	var cs []model.Category
	query := r.DB.WithContext(ctx).Model(&model.Category{})
	if !includeInactive {
		query = query.Where("is_active = ?", true)
	}
	err := query.Order("name asc").Find(&cs).Error
	return cs, err
}

// CreateCategory keeps IsActive=false, which the column default would
// otherwise turn into true.
func (r *QuizRepository) CreateCategory(ctx context.Context, c *model.Category) error {
	db := r.DB.WithContext(ctx)
	if c.IsActive {
		return db.Create(c).Error
	}
	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(c).Error; err != nil {
			return err
		}
		c.IsActive = false
		return tx.Model(c).Update("is_active", false).Error
	})
}

func (r *QuizRepository) CategoryNameExists(ctx context.Context, name string) (bool, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&model.Category{}).Where("name = ?", name).Count(&count).Error
	return count > 0, err
}

func (r *QuizRepository) FindQuiz(ctx context.Context, id string) (*model.Quiz, error) {
	var q model.Quiz
	if err := r.DB.WithContext(ctx).First(&q, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &q, nil
}

func (r *QuizRepository) FindPublishedQuiz(ctx context.Context, id string) (*model.Quiz, error) {
	var q model.Quiz
	err := r.DB.WithContext(ctx).
		Where("id = ? AND status = ?", id, model.QuizStatusPublished).
		First(&q).Error
	if err != nil {
		return nil, err
	}
	return &q, nil
}

func (r *QuizRepository) FindPublishedQuizzesByCategory(ctx context.Context, categoryID string) ([]model.Quiz, error) {
	var qs []model.Quiz
	err := r.DB.WithContext(ctx).
		Where("category_id = ? AND status = ?", categoryID, model.QuizStatusPublished).
		Order("created_at asc").
		Find(&qs).Error
	return qs, err
}

// FindQuestionsWithAnswers loads the quiz's questions by order, each with its
// answers by order.
func (r *QuizRepository) FindQuestionsWithAnswers(ctx context.Context, quizID string) ([]model.Question, error) {
	var qs []model.Question
	err := r.DB.WithContext(ctx).
		Preload("Answers", func(db *gorm.DB) *gorm.DB {
			return db.Order(orderAsc)
		}).
		Where("quiz_id = ?", quizID).
		Order(orderAsc).
		Find(&qs).Error
	return qs, err
}

func (r *QuizRepository) FindQuestionsByQuiz(ctx context.Context, quizID string) ([]model.Question, error) {
	var qs []model.Question
	err := r.DB.WithContext(ctx).Where("quiz_id = ?", quizID).Order(orderAsc).Find(&qs).Error
	return qs, err
}

func (r *QuizRepository) CreateQuiz(ctx context.Context, q *model.Quiz) error {
	return r.DB.WithContext(ctx).Omit(clause.Associations).Create(q).Error
}

// UpdateQuizStatus reports false when no quiz has the id.
func (r *QuizRepository) UpdateQuizStatus(ctx context.Context, id string, status model.QuizStatus) (bool, error) {
	res := r.DB.WithContext(ctx).Model(&model.Quiz{}).Where("id = ?", id).Update("status", status)
	return res.RowsAffected > 0, res.Error
}

func (r *QuizRepository) QuestionOrderExists(ctx context.Context, quizID string, order int) (bool, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&model.Question{}).
		Where("quiz_id = ?", quizID).
		Where(clause.Eq{Column: clause.Column{Name: "order"}, Value: order}).
		Count(&count).Error
	return count > 0, err
}

// CreateQuestionWithAnswers inserts q and q.Answers.
func (r *QuizRepository) CreateQuestionWithAnswers(ctx context.Context, q *model.Question) error {
	return r.DB.WithContext(ctx).Create(q).Error
}

// DeleteQuiz soft-deletes the quiz. Attempts on it are kept and later listed
// without a title.
func (r *QuizRepository) DeleteQuiz(ctx context.Context, id string) (bool, error) {
	res := r.DB.WithContext(ctx).Where("id = ?", id).Delete(&model.Quiz{})
	return res.RowsAffected > 0, res.Error
}
