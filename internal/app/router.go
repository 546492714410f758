package app

import (
	"quiz_backend/internal/config"
	"quiz_backend/internal/middleware"
	"quiz_backend/internal/model"
	"quiz_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	router.GET("/metrics", monitoring.PrometheusHandler())

	// 1. public
	a.registerPublicRoutes(router, c)

	// 2. learners
	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(cfg))
	{
		a.registerLearnerRoutes(authGroup, c)
	}

	// 3. authoring
	a.registerAdminRoutes(router, c, cfg)
}

func (a *App) registerPublicRoutes(router *gin.Engine, c *controllers) {
	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)
		public.POST("/register", c.auth.Register)
		public.POST("/login", c.auth.Login)
	}
}

func (a *App) registerLearnerRoutes(r *gin.RouterGroup, c *controllers) {
	attempts := r.Group("/attempts")
	{
		attempts.POST("/start/:quizId", c.attempt.StartAttempt)
		attempts.POST("/submit/:attemptId", c.attempt.SubmitAttempt)
		attempts.GET("", c.attempt.ListAttempts)
		attempts.GET("/:attemptId", c.attempt.GetAttemptDetail)
	}

	progress := r.Group("/progress")
	{
		progress.GET("", c.progress.ListProgress)
		progress.POST("/rebuild", c.progress.RebuildProgress)
	}

	r.GET("/categories", c.content.ListCategories)
	r.GET("/categories/:categoryId/quizzes/available", c.progress.ListAvailableQuizzes)
	r.POST("/categories", middleware.RoleMiddleware(model.RoleAdmin), c.content.CreateCategory)

	users := r.Group("/users/me")
	{
		users.GET("", c.auth.GetProfile)
		users.DELETE("", c.auth.DeleteAccount)
		users.GET("/stats", c.attempt.GetUserStats)
	}
}

func (a *App) registerAdminRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	admin := router.Group("/api/admin")
	admin.Use(middleware.AuthMiddleware(cfg), middleware.RoleMiddleware(model.RoleAdmin))
	{
		admin.POST("/quizzes", c.content.CreateQuiz)
		admin.PUT("/quizzes/:quizId/status", c.content.UpdateQuizStatus)
		admin.DELETE("/quizzes/:quizId", c.content.DeleteQuiz)
		admin.GET("/quizzes/:quizId/questions", c.content.ListQuestions)
		admin.POST("/quizzes/:quizId/questions", c.content.AddQuestion)
	}
}
