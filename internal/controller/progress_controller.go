package controller

import (
	"quiz_backend/internal/service"
	"quiz_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type ProgressController struct {
	ProgressService *service.ProgressService
}

func NewProgressController(progressService *service.ProgressService) *ProgressController {
	return &ProgressController{ProgressService: progressService}
}

// ListProgress godoc
// @Summary Highest level reached per category
// @Tags Progress
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response{data=[]model.ProgressEntry}
// @Router /api/progress [get]
func (c *ProgressController) ListProgress(ctx *gin.Context) {
	user, ok := currentUser(ctx)
	if !ok {
		return
	}
	entries, err := c.ProgressService.ListProgress(ctx.Request.Context(), user.UserID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, entries)
}

// RebuildProgress godoc
// @Summary Recompute progress from attempt history
// @Tags Progress
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response{data=[]model.ProgressEntry}
// @Router /api/progress/rebuild [post]
func (c *ProgressController) RebuildProgress(ctx *gin.Context) {
	user, ok := currentUser(ctx)
	if !ok {
		return
	}
	entries, err := c.ProgressService.RebuildProgress(ctx.Request.Context(), user.UserID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, entries)
}

// ListAvailableQuizzes godoc
// @Summary Published quizzes of a category with their lock state
// @Tags Progress
// @Produce json
// @Security BearerAuth
// @Param categoryId path string true "Category ID"
// @Success 200 {object} util.Response{data=[]model.AvailableQuiz}
// @Failure 404 {object} util.Response "Category not found"
// @Router /api/categories/{categoryId}/quizzes/available [get]
func (c *ProgressController) ListAvailableQuizzes(ctx *gin.Context) {
	user, ok := currentUser(ctx)
	if !ok {
		return
	}
	categoryID, ok := idParam(ctx, "categoryId")
	if !ok {
		return
	}

	quizzes, err := c.ProgressService.ListAvailableQuizzes(ctx.Request.Context(), categoryID, user)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, quizzes)
}
