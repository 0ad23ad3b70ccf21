package controller

import (
	"strconv"

	"lms_backend/internal/model"
	"lms_backend/internal/service"
	"lms_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type CourseController struct {
	CourseService *service.CourseService
}

func NewCourseController(courseService *service.CourseService) *CourseController {
	return &CourseController{CourseService: courseService}
}

// List godoc
// @Summary 公开课程列表
// @Tags 课程
// @Produce  json
// @Param   q query string false "标题/描述搜索"
// @Param   sort query string false "排序字段 title|id"
// @Param   order query string false "asc|desc"
// @Param   page query int false "页码"
// @Param   size query int false "每页条数"
// @Success 200 {object} util.Response{data=util.PageResponse}
// @Router /api/courses [get]
func (c *CourseController) List(ctx *gin.Context) {
	page, _ := strconv.Atoi(ctx.DefaultQuery("page", "1"))
	size, _ := strconv.Atoi(ctx.DefaultQuery("size", "20"))
	if page < 1 {
		page = 1
	}
	if size < 1 || size > 100 {
		size = 20
	}

	result, err := c.CourseService.ListPublished(
		ctx.Request.Context(),
		ctx.Query("q"),
		ctx.DefaultQuery("sort", "title"),
		ctx.DefaultQuery("order", "asc"),
		page, size,
	)
	if err != nil {
		respondError(ctx, err)
		return
	}

	util.Success(ctx, util.PageResponse{
		List:  result.Courses,
		Total: result.Total,
		Page:  page,
		Limit: size,
	})
}

func (c *CourseController) viewer(ctx *gin.Context) (uint, model.UserRole) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		return 0, ""
	}
	return claims.UserID, claims.Role
}

// Get godoc
// @Summary 课程详情与课时列表
// @Tags 课程
// @Produce  json
// @Success 200 {object} util.Response{data=object}
// @Failure 404 {object} util.Response
// @Router /api/courses/{id} [get]
func (c *CourseController) Get(ctx *gin.Context) {
	id, err := util.ParseUintStrict(ctx.Param("id"))
	if err != nil {
		util.BadRequest(ctx, "invalid course id")
		return
	}

	viewerID, role := c.viewer(ctx)
	course, lessons, err := c.CourseService.GetCourse(id, viewerID, role)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"course": course, "lessons": lessons})
}

// GetLessons 课程的有序课时列表
func (c *CourseController) GetLessons(ctx *gin.Context) {
	id, err := util.ParseUintStrict(ctx.Param("id"))
	if err != nil {
		util.BadRequest(ctx, "invalid course id")
		return
	}

	viewerID, role := c.viewer(ctx)
	_, lessons, err := c.CourseService.GetCourse(id, viewerID, role)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, lessons)
}

// Enroll godoc
// @Summary 报名课程
// @Tags 课程
// @Produce  json
// @Security BearerAuth
// @Success 201 {object} util.Response{data=model.Enrollment}
// @Failure 409 {object} util.Response "已报名或课程未开放"
// @Router /api/courses/{id}/enroll [post]
func (c *CourseController) Enroll(ctx *gin.Context) {
	id, err := util.ParseUintStrict(ctx.Param("id"))
	if err != nil {
		util.BadRequest(ctx, "invalid course id")
		return
	}

	claims := util.GetUserFromContext(ctx)
	enrollment, err := c.CourseService.Enroll(claims.UserID, id)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Created(ctx, enrollment)
}

// MyEnrollments 当前用户的报名列表
func (c *CourseController) MyEnrollments(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	items, err := c.CourseService.ListEnrollments(claims.UserID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, items)
}

type CreateCourseRequest struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
}

// Create godoc
// @Summary 创建课程（草稿状态）
// @Tags 教师
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Success 201 {object} util.Response{data=model.Course}
// @Router /api/teacher/courses [post]
func (c *CourseController) Create(ctx *gin.Context) {
	var req CreateCourseRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	claims := util.GetUserFromContext(ctx)
	course, err := c.CourseService.CreateCourse(claims.UserID, req.Title, req.Description)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Created(ctx, course)
}

type UpdateCourseRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
}

func (c *CourseController) Update(ctx *gin.Context) {
	id, err := util.ParseUintStrict(ctx.Param("id"))
	if err != nil {
		util.BadRequest(ctx, "invalid course id")
		return
	}

	var req UpdateCourseRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	claims := util.GetUserFromContext(ctx)
	course, err := c.CourseService.UpdateCourse(ctx.Request.Context(), id, claims.UserID, claims.Role, req.Title, req.Description)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, course)
}

func (c *CourseController) setStatus(ctx *gin.Context, status model.CourseStatus) {
	id, err := util.ParseUintStrict(ctx.Param("id"))
	if err != nil {
		util.BadRequest(ctx, "invalid course id")
		return
	}

	claims := util.GetUserFromContext(ctx)
	course, err := c.CourseService.SetCourseStatus(ctx.Request.Context(), id, claims.UserID, claims.Role, status)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, course)
}

// Publish 上架课程
func (c *CourseController) Publish(ctx *gin.Context) {
	c.setStatus(ctx, model.CoursePublished)
}

// Unpublish 退回草稿
func (c *CourseController) Unpublish(ctx *gin.Context) {
	c.setStatus(ctx, model.CourseDraft)
}

// Hide 隐藏课程，已报名学生也不可见
func (c *CourseController) Hide(ctx *gin.Context) {
	c.setStatus(ctx, model.CourseHidden)
}

// Mine 当前教师的全部课程（含草稿与隐藏）
func (c *CourseController) Mine(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	courses, err := c.CourseService.ListMine(claims.UserID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, courses)
}

// Metrics godoc
// @Summary 课程运营指标
// @Tags 教师
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} util.Response{data=service.CourseMetrics}
// @Router /api/teacher/courses/{id}/metrics [get]
func (c *CourseController) Metrics(ctx *gin.Context) {
	id, err := util.ParseUintStrict(ctx.Param("id"))
	if err != nil {
		util.BadRequest(ctx, "invalid course id")
		return
	}

	claims := util.GetUserFromContext(ctx)
	metrics, err := c.CourseService.GetCourseMetrics(id, claims.UserID, claims.Role)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, metrics)
}

type CreateLessonRequest struct {
	Title   string `json:"title" binding:"required"`
	Content string `json:"content"`
}

func (c *CourseController) CreateLesson(ctx *gin.Context) {
	id, err := util.ParseUintStrict(ctx.Param("id"))
	if err != nil {
		util.BadRequest(ctx, "invalid course id")
		return
	}

	var req CreateLessonRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	claims := util.GetUserFromContext(ctx)
	lesson, err := c.CourseService.CreateLesson(id, claims.UserID, claims.Role, req.Title, req.Content)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Created(ctx, lesson)
}

type ReorderLessonsRequest struct {
	LessonIDs []uint `json:"lessonIds" binding:"required"`
}

// ReorderLessons 重排课时，请求体必须恰好覆盖该课程全部课时
func (c *CourseController) ReorderLessons(ctx *gin.Context) {
	id, err := util.ParseUintStrict(ctx.Param("id"))
	if err != nil {
		util.BadRequest(ctx, "invalid course id")
		return
	}

	var req ReorderLessonsRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	claims := util.GetUserFromContext(ctx)
	lessons, err := c.CourseService.ReorderLessons(id, claims.UserID, claims.Role, req.LessonIDs)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, lessons)
}

// UploadVideo godoc
// @Summary 上传课时视频
// @Tags 教师
// @Accept  multipart/form-data
// @Produce  json
// @Security BearerAuth
// @Param   file formData file true "视频文件"
// @Success 200 {object} util.Response{data=model.Lesson}
// @Router /api/teacher/courses/{id}/lessons/{lessonId}/video [post]
func (c *CourseController) UploadVideo(ctx *gin.Context) {
	courseID, err := util.ParseUintStrict(ctx.Param("id"))
	if err != nil {
		util.BadRequest(ctx, "invalid course id")
		return
	}
	lessonID, err := util.ParseUintStrict(ctx.Param("lessonId"))
	if err != nil {
		util.BadRequest(ctx, "invalid lesson id")
		return
	}

	fileHeader, err := ctx.FormFile("file")
	if err != nil {
		util.BadRequest(ctx, "missing video file")
		return
	}

	claims := util.GetUserFromContext(ctx)
	lesson, err := c.CourseService.UploadLessonVideo(ctx.Request.Context(), courseID, lessonID, claims.UserID, claims.Role, fileHeader)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, lesson)
}
