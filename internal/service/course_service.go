package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Ashik-Muhammed/zygreen/internal/models"
	"github.com/Ashik-Muhammed/zygreen/internal/repository"
	"github.com/Ashik-Muhammed/zygreen/internal/service/integration"
)

type CourseService interface {
	CreateCourse(ctx context.Context, req *models.CreateCourseRequest) (*models.Course, error)
	GetCourse(ctx context.Context, id string, includeUnpublished bool) (*models.CourseWithStats, error)
	ListCourses(ctx context.Context, filter models.CourseFilter, page, limit int) (*models.CoursesResponse, error)
	UpdateCourse(ctx context.Context, id string, req *models.CreateCourseRequest) (*models.Course, error)
	DeleteCourse(ctx context.Context, id string) error
}

type courseService struct {
	courseRepo repository.CourseRepository
	validator  *Validator
	sanitizer  integration.Sanitizer
	logger     zerolog.Logger
	now        func() time.Time
}

func NewCourseService(
	courseRepo repository.CourseRepository,
	validator *Validator,
	sanitizer integration.Sanitizer,
	logger zerolog.Logger,
) CourseService {
	return &courseService{
		courseRepo: courseRepo,
		validator:  validator,
		sanitizer:  sanitizer,
		logger:     logger,
		now:        time.Now,
	}
}

func (s *courseService) CreateCourse(ctx context.Context, req *models.CreateCourseRequest) (*models.Course, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, err
	}

	now := s.now()
	course := &models.Course{
		ID:          uuid.New().String(),
		Title:       req.Title,
		Description: s.sanitizer.Sanitize(req.Description),
		Category:    req.Category,
		Level:       req.Level,
		Published:   req.Published,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.courseRepo.Create(ctx, course); err != nil {
		return nil, fmt.Errorf("failed to create course: %w", err)
	}

	s.logger.Info().
		Str("course_id", course.ID).
		Str("title", course.Title).
		Msg("Course created")

	return course, nil
}

func (s *courseService) GetCourse(ctx context.Context, id string, includeUnpublished bool) (*models.CourseWithStats, error) {
	course, err := s.courseRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get course: %w", err)
	}
	if course == nil || (!course.Published && !includeUnpublished) {
		return nil, ErrCourseNotFound
	}
	return course, nil
}

func (s *courseService) ListCourses(ctx context.Context, filter models.CourseFilter, page, limit int) (*models.CoursesResponse, error) {
	page, limit = normalizePage(page, limit)

	courses, total, err := s.courseRepo.List(ctx, filter, limit, (page-1)*limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list courses: %w", err)
	}
	if courses == nil {
		courses = []models.CourseWithStats{}
	}

	return &models.CoursesResponse{
		Courses: courses,
		Total:   total,
		Page:    page,
		Limit:   limit,
	}, nil
}

func (s *courseService) UpdateCourse(ctx context.Context, id string, req *models.CreateCourseRequest) (*models.Course, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, err
	}

	existing, err := s.courseRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get course: %w", err)
	}
	if existing == nil {
		return nil, ErrCourseNotFound
	}

	course := existing.Course
	course.Title = req.Title
	course.Description = s.sanitizer.Sanitize(req.Description)
	course.Category = req.Category
	course.Level = req.Level
	course.Published = req.Published
	course.UpdatedAt = s.now()

	if err := s.courseRepo.Update(ctx, &course); err != nil {
		return nil, fmt.Errorf("failed to update course: %w", err)
	}

	s.logger.Info().Str("course_id", id).Msg("Course updated")
	return &course, nil
}

func (s *courseService) DeleteCourse(ctx context.Context, id string) error {
	exists, err := s.courseRepo.Exists(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to check course existence: %w", err)
	}
	if !exists {
		return ErrCourseNotFound
	}

	if err := s.courseRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete course: %w", err)
	}

	s.logger.Info().Str("course_id", id).Msg("Course deleted")
	return nil
}

func normalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return page, limit
}
