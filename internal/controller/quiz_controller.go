package controller

import (
	"lms_backend/internal/service"
	"lms_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type QuizController struct {
	QuizService *service.QuizService
}

func NewQuizController(quizService *service.QuizService) *QuizController {
	return &QuizController{QuizService: quizService}
}

// Get godoc
// @Summary 测验概要
// @Tags 测验
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} util.Response{data=service.QuizSummary}
// @Failure 404 {object} util.Response
// @Router /api/quizzes/{id} [get]
func (c *QuizController) Get(ctx *gin.Context) {
	id, err := util.ParseUintStrict(ctx.Param("id"))
	if err != nil {
		util.BadRequest(ctx, "invalid quiz id")
		return
	}

	summary, err := c.QuizService.GetQuizSummary(id)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, summary)
}

// GetQuestions godoc
// @Summary 测验题目列表
// @Description 学生视角不返回正确答案标记
// @Tags 测验
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} util.Response{data=[]service.QuestionView}
// @Router /api/quizzes/{id}/questions [get]
func (c *QuizController) GetQuestions(ctx *gin.Context) {
	id, err := util.ParseUintStrict(ctx.Param("id"))
	if err != nil {
		util.BadRequest(ctx, "invalid quiz id")
		return
	}

	claims := util.GetUserFromContext(ctx)
	questions, err := c.QuizService.ListQuestions(id, claims.Role)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, questions)
}

type CreateQuizRequest struct {
	CourseID         uint   `json:"courseId" binding:"required"`
	Title            string `json:"title" binding:"required"`
	TimeLimitMinutes *int   `json:"timeLimitMinutes" binding:"omitempty,min=1"`
	MaxAttempts      *int   `json:"maxAttempts" binding:"omitempty,min=0"`
}

// Create godoc
// @Summary 创建测验
// @Tags 教师
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Success 201 {object} util.Response{data=model.Quiz}
// @Router /api/teacher/quizzes [post]
func (c *QuizController) Create(ctx *gin.Context) {
	var req CreateQuizRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	claims := util.GetUserFromContext(ctx)
	quiz, err := c.QuizService.CreateQuiz(claims.UserID, claims.Role, req.CourseID, req.Title, req.TimeLimitMinutes, req.MaxAttempts)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Created(ctx, quiz)
}

type AddQuestionRequest struct {
	Prompt string `json:"prompt" binding:"required"`
}

func (c *QuizController) AddQuestion(ctx *gin.Context) {
	id, err := util.ParseUintStrict(ctx.Param("id"))
	if err != nil {
		util.BadRequest(ctx, "invalid quiz id")
		return
	}

	var req AddQuestionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	claims := util.GetUserFromContext(ctx)
	question, err := c.QuizService.AddQuestion(claims.UserID, claims.Role, id, req.Prompt)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Created(ctx, question)
}

type UpdateQuestionRequest struct {
	Prompt *string `json:"prompt"`
}

func (c *QuizController) UpdateQuestion(ctx *gin.Context) {
	id, err := util.ParseUintStrict(ctx.Param("id"))
	if err != nil {
		util.BadRequest(ctx, "invalid question id")
		return
	}

	var req UpdateQuestionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	claims := util.GetUserFromContext(ctx)
	question, err := c.QuizService.UpdateQuestion(claims.UserID, claims.Role, id, req.Prompt)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, question)
}

type AddOptionRequest struct {
	Text    string `json:"text" binding:"required"`
	Correct bool   `json:"correct"`
}

func (c *QuizController) AddOption(ctx *gin.Context) {
	id, err := util.ParseUintStrict(ctx.Param("id"))
	if err != nil {
		util.BadRequest(ctx, "invalid question id")
		return
	}

	var req AddOptionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	claims := util.GetUserFromContext(ctx)
	option, err := c.QuizService.AddOption(claims.UserID, claims.Role, id, req.Text, req.Correct)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Created(ctx, option)
}

func (c *QuizController) DeleteOption(ctx *gin.Context) {
	questionID, err := util.ParseUintStrict(ctx.Param("id"))
	if err != nil {
		util.BadRequest(ctx, "invalid question id")
		return
	}
	optionID, err := util.ParseUintStrict(ctx.Param("optionId"))
	if err != nil {
		util.BadRequest(ctx, "invalid option id")
		return
	}

	claims := util.GetUserFromContext(ctx)
	if err := c.QuizService.DeleteOption(claims.UserID, claims.Role, questionID, optionID); err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}
