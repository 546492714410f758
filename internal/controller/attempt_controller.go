package controller

import (
	"quiz_backend/internal/service"
	"quiz_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type AttemptController struct {
	AttemptService *service.AttemptService
}

func NewAttemptController(attemptService *service.AttemptService) *AttemptController {
	return &AttemptController{AttemptService: attemptService}
}

// SubmitAttemptRequest carries the picked answers per question.
// swagger:model SubmitAttemptRequest
type SubmitAttemptRequest struct {
	Answers []service.AnswerSubmission `json:"answers" binding:"dive"`
}

// StartAttempt godoc
// @Summary Start or resume a quiz attempt
// @Description Returns the open attempt of the caller on the quiz, creating one if needed, with the questions to answer
// @Tags Attempts
// @Produce json
// @Security BearerAuth
// @Param quizId path string true "Quiz ID"
// @Success 200 {object} util.Response{data=model.StartAttemptResult}
// @Failure 403 {object} util.Response "Prerequisite level not passed"
// @Failure 404 {object} util.Response "Quiz not found or not published"
// @Router /api/attempts/start/{quizId} [post]
func (c *AttemptController) StartAttempt(ctx *gin.Context) {
	user, ok := currentUser(ctx)
	if !ok {
		return
	}
	quizID, ok := idParam(ctx, "quizId")
	if !ok {
		return
	}

	result, err := c.AttemptService.StartAttempt(ctx.Request.Context(), user.UserID, quizID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, result)
}

// SubmitAttempt godoc
// @Summary Submit answers for an attempt
// @Tags Attempts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param attemptId path string true "Attempt ID"
// @Param body body SubmitAttemptRequest true "Answers"
// @Success 200 {object} util.Response{data=model.SubmissionResult}
// @Failure 403 {object} util.Response "Attempt belongs to another user"
// @Failure 404 {object} util.Response "Attempt not found"
// @Failure 409 {object} util.Response "Attempt already completed"
// @Router /api/attempts/submit/{attemptId} [post]
func (c *AttemptController) SubmitAttempt(ctx *gin.Context) {
	user, ok := currentUser(ctx)
	if !ok {
		return
	}
	attemptID, ok := idParam(ctx, "attemptId")
	if !ok {
		return
	}

	var req SubmitAttemptRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	result, err := c.AttemptService.SubmitAttempt(ctx.Request.Context(), user.UserID, attemptID, req.Answers)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, result)
}

// ListAttempts godoc
// @Summary List the caller's attempts
// @Tags Attempts
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response{data=[]model.AttemptSummary}
// @Router /api/attempts [get]
func (c *AttemptController) ListAttempts(ctx *gin.Context) {
	user, ok := currentUser(ctx)
	if !ok {
		return
	}
	attempts, err := c.AttemptService.ListAttempts(ctx.Request.Context(), user.UserID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, attempts)
}

// GetAttemptDetail godoc
// @Summary Review an attempt
// @Description Every question of the quiz with every answer, flagged with correctness and the caller's picks
// @Tags Attempts
// @Produce json
// @Security BearerAuth
// @Param attemptId path string true "Attempt ID"
// @Success 200 {object} util.Response{data=model.AttemptDetail}
// @Failure 403 {object} util.Response "Attempt belongs to another user"
// @Failure 404 {object} util.Response "Attempt not found"
// @Router /api/attempts/{attemptId} [get]
func (c *AttemptController) GetAttemptDetail(ctx *gin.Context) {
	user, ok := currentUser(ctx)
	if !ok {
		return
	}
	attemptID, ok := idParam(ctx, "attemptId")
	if !ok {
		return
	}

	detail, err := c.AttemptService.GetAttemptDetail(ctx.Request.Context(), user.UserID, attemptID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, detail)
}

// GetUserStats godoc
// @Summary Attempt statistics of the caller
// @Tags Users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response{data=model.UserStats}
// @Router /api/users/me/stats [get]
func (c *AttemptController) GetUserStats(ctx *gin.Context) {
	user, ok := currentUser(ctx)
	if !ok {
		return
	}
	stats, err := c.AttemptService.GetUserStats(ctx.Request.Context(), user.UserID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, stats)
}
