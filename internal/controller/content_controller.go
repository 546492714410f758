package controller

import (
	"quiz_backend/internal/model"
	"quiz_backend/internal/service"
	"quiz_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type ContentController struct {
	ContentService *service.ContentService
}

func NewContentController(contentService *service.ContentService) *ContentController {
	return &ContentController{ContentService: contentService}
}

// swagger:model CreateCategoryRequest
type CreateCategoryRequest struct {
	Name        string `json:"name" binding:"required,max=100"`
	Description string `json:"description"`
	IconURL     string `json:"iconUrl" binding:"omitempty,url"`
	IsActive    *bool  `json:"isActive"`
}

// swagger:model CreateQuizRequest
type CreateQuizRequest struct {
	CategoryID string           `json:"categoryId" binding:"required,uuid"`
	Title      string           `json:"title" binding:"required,max=255"`
	Level      model.QuizLevel  `json:"level" binding:"required,quizlevel"`
	Status     model.QuizStatus `json:"status" binding:"omitempty,quizstatus"`
}

// swagger:model UpdateQuizStatusRequest
type UpdateQuizStatusRequest struct {
	Status model.QuizStatus `json:"status" binding:"required,quizstatus"`
}

type AnswerInput struct {
	AnswerText string `json:"answerText" binding:"required,max=500"`
	IsCorrect  bool   `json:"isCorrect"`
	Order      int    `json:"order" binding:"gte=0"`
}

// swagger:model AddQuestionRequest
type AddQuestionRequest struct {
	QuestionText string        `json:"questionText" binding:"required"`
	Order        int           `json:"order" binding:"gte=0"`
	Answers      []AnswerInput `json:"answers" binding:"required,min=2,dive"`
}

// ListCategories godoc
// @Summary List categories
// @Description Admins may pass all=true to include inactive categories
// @Tags Content
// @Produce json
// @Security BearerAuth
// @Param all query bool false "Include inactive"
// @Success 200 {object} util.Response{data=[]model.Category}
// @Router /api/categories [get]
func (c *ContentController) ListCategories(ctx *gin.Context) {
	user, ok := currentUser(ctx)
	if !ok {
		return
	}
	includeInactive := user.IsAdmin() && ctx.Query("all") == "true"

	categories, err := c.ContentService.ListCategories(ctx.Request.Context(), includeInactive)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, categories)
}

// CreateCategory godoc
// @Summary Create a category
// @Tags Content
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body CreateCategoryRequest true "Category"
// @Success 201 {object} util.Response{data=model.Category}
// @Failure 409 {object} util.Response "Name already exists"
// @Router /api/categories [post]
func (c *ContentController) CreateCategory(ctx *gin.Context) {
	var req CreateCategoryRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	category := &model.Category{
		Name:        req.Name,
		Description: req.Description,
		IconURL:     req.IconURL,
		IsActive:    req.IsActive == nil || *req.IsActive,
	}
	if err := c.ContentService.CreateCategory(ctx.Request.Context(), category); err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, category)
}

// CreateQuiz godoc
// @Summary Create a quiz
// @Tags Content
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body CreateQuizRequest true "Quiz"
// @Success 201 {object} util.Response{data=model.Quiz}
// @Failure 404 {object} util.Response "Category not found"
// @Router /api/admin/quizzes [post]
func (c *ContentController) CreateQuiz(ctx *gin.Context) {
	var req CreateQuizRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	quiz := &model.Quiz{
		CategoryID: req.CategoryID,
		Title:      req.Title,
		Level:      req.Level,
		Status:     req.Status,
	}
	if err := c.ContentService.CreateQuiz(ctx.Request.Context(), quiz); err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, quiz)
}

// UpdateQuizStatus godoc
// @Summary Publish or unpublish a quiz
// @Tags Content
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param quizId path string true "Quiz ID"
// @Param body body UpdateQuizStatusRequest true "Status"
// @Success 200 {object} util.Response
// @Router /api/admin/quizzes/{quizId}/status [put]
func (c *ContentController) UpdateQuizStatus(ctx *gin.Context) {
	quizID, ok := idParam(ctx, "quizId")
	if !ok {
		return
	}
	var req UpdateQuizStatusRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	if err := c.ContentService.UpdateQuizStatus(ctx.Request.Context(), quizID, req.Status); err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"id": quizID, "status": req.Status})
}

// DeleteQuiz godoc
// @Summary Delete a quiz
// @Description Attempts on the quiz are kept and listed as "Unknown Quiz"
// @Tags Content
// @Produce json
// @Security BearerAuth
// @Param quizId path string true "Quiz ID"
// @Success 200 {object} util.Response
// @Router /api/admin/quizzes/{quizId} [delete]
func (c *ContentController) DeleteQuiz(ctx *gin.Context) {
	quizID, ok := idParam(ctx, "quizId")
	if !ok {
		return
	}
	if err := c.ContentService.DeleteQuiz(ctx.Request.Context(), quizID); err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

// ListQuestions godoc
// @Summary Questions of a quiz with their answer key
// @Tags Content
// @Produce json
// @Security BearerAuth
// @Param quizId path string true "Quiz ID"
// @Success 200 {object} util.Response{data=[]model.Question}
// @Router /api/admin/quizzes/{quizId}/questions [get]
func (c *ContentController) ListQuestions(ctx *gin.Context) {
	quizID, ok := idParam(ctx, "quizId")
	if !ok {
		return
	}
	questions, err := c.ContentService.ListQuestions(ctx.Request.Context(), quizID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, questions)
}

// AddQuestion godoc
// @Summary Add a question with its answers
// @Tags Content
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param quizId path string true "Quiz ID"
// @Param body body AddQuestionRequest true "Question"
// @Success 201 {object} util.Response{data=model.Question}
// @Failure 400 {object} util.Response "No correct answer"
// @Failure 409 {object} util.Response "Order already used"
// @Router /api/admin/quizzes/{quizId}/questions [post]
func (c *ContentController) AddQuestion(ctx *gin.Context) {
	quizID, ok := idParam(ctx, "quizId")
	if !ok {
		return
	}
	var req AddQuestionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	question := &model.Question{
		QuestionText: req.QuestionText,
		Order:        req.Order,
		Answers:      make([]model.Answer, 0, len(req.Answers)),
	}
	for _, a := range req.Answers {
		question.Answers = append(question.Answers, model.Answer{
			AnswerText: a.AnswerText,
			IsCorrect:  a.IsCorrect,
			Order:      a.Order,
		})
	}

	if err := c.ContentService.AddQuestion(ctx.Request.Context(), quizID, question); err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, question)
}
