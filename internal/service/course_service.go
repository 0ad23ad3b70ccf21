package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"time"

	"lms_backend/internal/model"
	"lms_backend/internal/repository"
	"lms_backend/internal/util"
	"lms_backend/pkg/logger"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	courseListCacheTTL = 5 * time.Minute
	courseListVerKey   = "courses:list:ver"
)

type CourseService struct {
	CourseRepo     *repository.CourseRepository
	EnrollmentRepo *repository.EnrollmentRepository
	Storage        *StorageService
	Redis          *redis.Client
}

func NewCourseService(
	courseRepo *repository.CourseRepository,
	enrollmentRepo *repository.EnrollmentRepository,
	storage *StorageService,
	rdb *redis.Client,
) *CourseService {
	return &CourseService{
		CourseRepo:     courseRepo,
		EnrollmentRepo: enrollmentRepo,
		Storage:        storage,
		Redis:          rdb,
	}
}

type CourseListResult struct {
	Courses []model.Course `json:"courses"`
	Total   int64          `json:"total"`
}

// ListPublished 公开课程列表，Redis 缓存带版本号，课程变更时只需递增版本
func (s *CourseService) ListPublished(ctx context.Context, q, sort, order string, page, size int) (*CourseListResult, error) {
	var cacheKey string
	if s.Redis != nil {
		ver, _ := s.Redis.Get(ctx, courseListVerKey).Result()
		cacheKey = fmt.Sprintf("courses:list:v%s:q=%s:sort=%s:%s:p=%d:s=%d", ver, q, sort, order, page, size)
		if cached, err := s.Redis.Get(ctx, cacheKey).Result(); err == nil {
			var result CourseListResult
			if json.Unmarshal([]byte(cached), &result) == nil {
				return &result, nil
			}
		}
	}

	courses, total, err := s.CourseRepo.ListPublished(q, sort, order, page, size)
	if err != nil {
		return nil, storageErr(err)
	}
	result := &CourseListResult{Courses: courses, Total: total}

	if s.Redis != nil {
		if payload, err := json.Marshal(result); err == nil {
			s.Redis.Set(ctx, cacheKey, payload, courseListCacheTTL)
		}
	}
	return result, nil
}

func (s *CourseService) invalidateListCache(ctx context.Context) {
	if s.Redis == nil {
		return
	}
	if err := s.Redis.Incr(ctx, courseListVerKey).Err(); err != nil {
		logger.Log.Warn("课程列表缓存失效失败", zap.Error(err))
	}
}

// GetCourse 课程详情，草稿与隐藏课程只有授课教师和管理员可见
func (s *CourseService) GetCourse(id, viewerID uint, role model.UserRole) (*model.Course, []model.Lesson, error) {
	course, err := s.CourseRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, util.ErrCourseNotFound
		}
		return nil, nil, storageErr(err)
	}

	if course.Status != model.CoursePublished {
		if role != model.RoleAdmin && course.TeacherID != viewerID {
			return nil, nil, util.ErrCourseNotFound
		}
	}

	lessons, err := s.CourseRepo.ListLessons(id)
	if err != nil {
		return nil, nil, storageErr(err)
	}
	return course, lessons, nil
}

// Enroll 报名已发布课程，重复报名返回冲突
func (s *CourseService) Enroll(studentID, courseID uint) (*model.Enrollment, error) {
	course, err := s.CourseRepo.FindByID(courseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrCourseNotFound
		}
		return nil, storageErr(err)
	}
	if course.Status != model.CoursePublished {
		return nil, util.ErrCourseNotOpen
	}

	exists, err := s.EnrollmentRepo.Exists(studentID, courseID)
	if err != nil {
		return nil, storageErr(err)
	}
	if exists {
		return nil, util.ErrAlreadyEnrolled
	}

	enrollment, err := s.EnrollmentRepo.Enroll(studentID, courseID)
	if err != nil {
		return nil, storageErr(err)
	}
	return enrollment, nil
}

func (s *CourseService) ListEnrollments(studentID uint) ([]repository.EnrollmentWithCourse, error) {
	items, err := s.EnrollmentRepo.ListByStudent(studentID)
	if err != nil {
		return nil, storageErr(err)
	}
	return items, nil
}

func (s *CourseService) CreateCourse(teacherID uint, title, description string) (*model.Course, error) {
	course := &model.Course{
		Title:       title,
		Description: description,
		Status:      model.CourseDraft,
		TeacherID:   teacherID,
	}
	if err := s.CourseRepo.Create(course); err != nil {
		return nil, storageErr(err)
	}
	return course, nil
}

// findOwnedCourse 加载课程并校验归属，管理员不受限制
func (s *CourseService) findOwnedCourse(courseID, actorID uint, role model.UserRole) (*model.Course, error) {
	course, err := s.CourseRepo.FindByID(courseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrCourseNotFound
		}
		return nil, storageErr(err)
	}
	if role != model.RoleAdmin && course.TeacherID != actorID {
		return nil, util.ErrPermissionDenied
	}
	return course, nil
}

func (s *CourseService) UpdateCourse(ctx context.Context, courseID, actorID uint, role model.UserRole, title, description *string) (*model.Course, error) {
	course, err := s.findOwnedCourse(courseID, actorID, role)
	if err != nil {
		return nil, err
	}

	if title != nil {
		course.Title = *title
	}
	if description != nil {
		course.Description = *description
	}
	if err := s.CourseRepo.Update(course); err != nil {
		return nil, storageErr(err)
	}
	s.invalidateListCache(ctx)
	return course, nil
}

// SetCourseStatus 发布/下架/隐藏课程
func (s *CourseService) SetCourseStatus(ctx context.Context, courseID, actorID uint, role model.UserRole, status model.CourseStatus) (*model.Course, error) {
	course, err := s.findOwnedCourse(courseID, actorID, role)
	if err != nil {
		return nil, err
	}

	course.Status = status
	if err := s.CourseRepo.Update(course); err != nil {
		return nil, storageErr(err)
	}
	s.invalidateListCache(ctx)
	logger.Log.Info("课程状态变更",
		zap.Uint("courseId", courseID),
		zap.String("status", string(status)))
	return course, nil
}

func (s *CourseService) ListMine(teacherID uint) ([]model.Course, error) {
	courses, err := s.CourseRepo.FindByTeacher(teacherID)
	if err != nil {
		return nil, storageErr(err)
	}
	return courses, nil
}

type CourseMetrics struct {
	EnrollmentCount int64 `json:"enrollmentCount"`
	LessonCount     int64 `json:"lessonCount"`
}

func (s *CourseService) GetCourseMetrics(courseID, actorID uint, role model.UserRole) (*CourseMetrics, error) {
	if _, err := s.findOwnedCourse(courseID, actorID, role); err != nil {
		return nil, err
	}

	enrollments, err := s.EnrollmentRepo.CountByCourse(courseID)
	if err != nil {
		return nil, storageErr(err)
	}
	lessons, err := s.CourseRepo.CountLessons(courseID)
	if err != nil {
		return nil, storageErr(err)
	}
	return &CourseMetrics{EnrollmentCount: enrollments, LessonCount: lessons}, nil
}

func (s *CourseService) CreateLesson(courseID, actorID uint, role model.UserRole, title, content string) (*model.Lesson, error) {
	if _, err := s.findOwnedCourse(courseID, actorID, role); err != nil {
		return nil, err
	}

	count, err := s.CourseRepo.CountLessons(courseID)
	if err != nil {
		return nil, storageErr(err)
	}

	lesson := &model.Lesson{
		CourseID: courseID,
		Title:    title,
		Content:  content,
		Order:    int(count) + 1,
	}
	if err := s.CourseRepo.CreateLesson(lesson); err != nil {
		return nil, storageErr(err)
	}
	return lesson, nil
}

// ReorderLessons 按给定顺序重排课时，必须恰好覆盖该课程的全部课时
func (s *CourseService) ReorderLessons(courseID, actorID uint, role model.UserRole, orderedIDs []uint) ([]model.Lesson, error) {
	if _, err := s.findOwnedCourse(courseID, actorID, role); err != nil {
		return nil, err
	}

	lessons, err := s.CourseRepo.ListLessons(courseID)
	if err != nil {
		return nil, storageErr(err)
	}

	byID := make(map[uint]*model.Lesson, len(lessons))
	for i := range lessons {
		byID[lessons[i].ID] = &lessons[i]
	}
	if len(orderedIDs) != len(lessons) {
		return nil, fmt.Errorf("%w: 课时数量不匹配", util.ErrInvalidRequest)
	}

	seen := make(map[uint]bool, len(orderedIDs))
	for i, id := range orderedIDs {
		lesson, ok := byID[id]
		if !ok || seen[id] {
			return nil, util.ErrLessonNotFound
		}
		seen[id] = true
		lesson.Order = i + 1
	}

	for i := range lessons {
		if err := s.CourseRepo.UpdateLesson(&lessons[i]); err != nil {
			return nil, storageErr(err)
		}
	}

	updated, err := s.CourseRepo.ListLessons(courseID)
	if err != nil {
		return nil, storageErr(err)
	}
	return updated, nil
}

// UploadLessonVideo 上传课时视频：先落临时文件做 MIME 深度校验与时长探测，再交给存储后端
func (s *CourseService) UploadLessonVideo(ctx context.Context, courseID, lessonID, actorID uint, role model.UserRole, fileHeader *multipart.FileHeader) (*model.Lesson, error) {
	if _, err := s.findOwnedCourse(courseID, actorID, role); err != nil {
		return nil, err
	}

	lesson, err := s.CourseRepo.FindLessonByID(lessonID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrLessonNotFound
		}
		return nil, storageErr(err)
	}
	if lesson.CourseID != courseID {
		return nil, util.ErrLessonNotFound
	}

	src, err := fileHeader.Open()
	if err != nil {
		return nil, err
	}
	defer src.Close()

	mimeType, err := util.ValidateMimeType(src, []string{"video/", "application/x-mpegURL"})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", util.ErrInvalidRequest, err)
	}
	if !util.IsVideo(mimeType) {
		return nil, fmt.Errorf("%w: unsupported video type %s", util.ErrInvalidRequest, mimeType)
	}

	ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
	allowed := false
	for _, e := range util.AllowedVideoExtensions {
		if e == ext {
			allowed = true
			break
		}
	}
	if !allowed {
		return nil, fmt.Errorf("%w: unsupported video extension %s", util.ErrInvalidRequest, ext)
	}

	tmpPath := filepath.Join(os.TempDir(), uuid.New().String()+filepath.Ext(fileHeader.Filename))
	if err := saveMultipartFile(fileHeader, tmpPath); err != nil {
		return nil, err
	}
	defer os.Remove(tmpPath)

	info, err := util.GetVideoInfo(tmpPath)
	if err != nil {
		logger.Log.Warn("视频信息探测失败", zap.Uint("lessonId", lessonID), zap.Error(err))
		info = &util.VideoInfo{}
	}

	objectName := fmt.Sprintf("lessons/%d/%s%s", lessonID, uuid.New().String(), filepath.Ext(fileHeader.Filename))
	url, err := s.Storage.UploadFile(ctx, objectName, tmpPath, mimeType)
	if err != nil {
		return nil, storageErr(err)
	}

	lesson.VideoURL = url
	lesson.DurationSeconds = int(info.Duration)
	if err := s.CourseRepo.UpdateLesson(lesson); err != nil {
		return nil, storageErr(err)
	}
	return lesson, nil
}

func saveMultipartFile(fileHeader *multipart.FileHeader, dst string) error {
	src, err := fileHeader.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := out.ReadFrom(src); err != nil {
		return err
	}
	return nil
}
