package app

import (
	"lms_backend/internal/config"
	"lms_backend/internal/middleware"
	"lms_backend/internal/model"
	"lms_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	router.GET("/metrics", monitoring.PrometheusHandler())

	// 1. 公共路由(无需登录)
	a.registerPublicRoutes(router, c, cfg)

	// 2. 需要授权的路由
	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(cfg))
	{
		a.registerStudentRoutes(authGroup, c)
		a.registerTeacherRoutes(authGroup, c)
	}
}

func (a *App) registerPublicRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	public := router.Group("/api")
	{
		public.GET("/health", c.health.Check)
		public.POST("/register", c.auth.Register)
		public.POST("/login", c.auth.Login)

		// 课程浏览对游客开放，带 token 时教师可见自己的草稿
		courses := public.Group("/courses")
		courses.Use(middleware.TryAuthMiddleware(cfg))
		{
			courses.GET("", c.course.List)
			courses.GET("/:id", c.course.Get)
			courses.GET("/:id/lessons", c.course.GetLessons)
		}
	}
}

func (a *App) registerStudentRoutes(group *gin.RouterGroup, c *controllers) {
	me := group.Group("/me")
	{
		me.GET("/profile", c.auth.GetProfile)
		me.GET("/enrollments", c.course.MyEnrollments)
	}

	group.POST("/courses/:id/enroll", c.course.Enroll)

	quizzes := group.Group("/quizzes")
	{
		quizzes.GET("/:id", c.quiz.Get)
		quizzes.GET("/:id/questions", c.quiz.GetQuestions)
		quizzes.GET("/:id/stats", c.attempt.Stats)
		quizzes.POST("/:id/attempts", c.attempt.Start)

		quizzes.GET("/attempts/:id", c.attempt.Get)
		quizzes.POST("/attempts/:id/submit", c.attempt.Submit)
	}
}

func (a *App) registerTeacherRoutes(group *gin.RouterGroup, c *controllers) {
	teacher := group.Group("/teacher")
	teacher.Use(middleware.RoleMiddleware(model.RoleTeacher))
	{
		courses := teacher.Group("/courses")
		{
			courses.POST("", c.course.Create)
			courses.GET("/mine", c.course.Mine)
			courses.PATCH("/:id", c.course.Update)
			courses.POST("/:id/publish", c.course.Publish)
			courses.POST("/:id/unpublish", c.course.Unpublish)
			courses.POST("/:id/hide", c.course.Hide)
			courses.GET("/:id/metrics", c.course.Metrics)
			courses.POST("/:id/lessons", c.course.CreateLesson)
			courses.POST("/:id/lessons/reorder", c.course.ReorderLessons)
			courses.POST("/:id/lessons/:lessonId/video", c.course.UploadVideo)
		}

		quizzes := teacher.Group("/quizzes")
		{
			quizzes.POST("", c.quiz.Create)
			quizzes.POST("/:id/questions", c.quiz.AddQuestion)
			quizzes.PATCH("/questions/:id", c.quiz.UpdateQuestion)
			quizzes.POST("/questions/:id/options", c.quiz.AddOption)
			quizzes.DELETE("/questions/:id/options/:optionId", c.quiz.DeleteOption)
		}
	}
}
