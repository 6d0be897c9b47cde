package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Ashik-Muhammed/zygreen/internal/assessment"
	"github.com/Ashik-Muhammed/zygreen/internal/models"
	"github.com/Ashik-Muhammed/zygreen/internal/repository"
	"github.com/Ashik-Muhammed/zygreen/internal/service/integration"
)

type AssessmentService interface {
	CreateAssessment(ctx context.Context, req *models.CreateAssessmentRequest) (*models.Assessment, error)
	GetAssessment(ctx context.Context, id string, includeUnpublished bool) (*models.AssessmentWithStats, error)
	ListByCourse(ctx context.Context, courseID string, includeUnpublished bool, page, limit int) (*models.AssessmentsResponse, error)
	UpdateAssessment(ctx context.Context, id string, req *models.CreateAssessmentRequest) (*models.Assessment, error)
	PublishAssessment(ctx context.Context, id string, published bool) (*models.Assessment, error)
	DeleteAssessment(ctx context.Context, id string) error

	// Load fetches an assessment together with the user's submission, which
	// is nil when the user has not started it.
	Load(ctx context.Context, assessmentID, userID string) (*models.Assessment, *models.Submission, error)
	// Access loads the assessment for the caller and runs the availability
	// gate. A blocked result carries the reason and no content.
	Access(ctx context.Context, identity models.Identity, assessmentID string) (*models.AccessResponse, error)
}

type assessmentService struct {
	assessmentRepo repository.AssessmentRepository
	courseRepo     repository.CourseRepository
	submissionRepo repository.SubmissionRepository
	validator      *Validator
	sanitizer      integration.Sanitizer
	logger         zerolog.Logger
	now            func() time.Time
}

func NewAssessmentService(
	assessmentRepo repository.AssessmentRepository,
	courseRepo repository.CourseRepository,
	submissionRepo repository.SubmissionRepository,
	validator *Validator,
	sanitizer integration.Sanitizer,
	logger zerolog.Logger,
) AssessmentService {
	return &assessmentService{
		assessmentRepo: assessmentRepo,
		courseRepo:     courseRepo,
		submissionRepo: submissionRepo,
		validator:      validator,
		sanitizer:      sanitizer,
		logger:         logger,
		now:            time.Now,
	}
}

func (s *assessmentService) CreateAssessment(ctx context.Context, req *models.CreateAssessmentRequest) (*models.Assessment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, err
	}

	exists, err := s.courseRepo.Exists(ctx, req.CourseID)
	if err != nil {
		return nil, fmt.Errorf("failed to check course existence: %w", err)
	}
	if !exists {
		return nil, ErrCourseNotFound
	}

	now := s.now()
	a := &models.Assessment{
		ID:        uuid.New().String(),
		CreatedAt: now,
	}
	s.apply(a, req)
	a.UpdatedAt = now

	if err := a.Check(); err != nil {
		return nil, invalid("%v", err)
	}

	if err := s.assessmentRepo.Create(ctx, a); err != nil {
		return nil, fmt.Errorf("failed to create assessment: %w", err)
	}

	s.logger.Info().
		Str("assessment_id", a.ID).
		Str("course_id", a.CourseID).
		Str("kind", a.Kind.String()).
		Msg("Assessment created")

	return a, nil
}

// apply copies the request onto a, sanitizing rich text and dropping fields
// that do not belong to the assessment kind.
func (s *assessmentService) apply(a *models.Assessment, req *models.CreateAssessmentRequest) {
	a.CourseID = req.CourseID
	a.Kind = models.AssessmentKind(req.Kind)
	a.Title = req.Title
	a.Description = s.sanitizer.Sanitize(req.Description)
	a.Instructions = s.sanitizer.Sanitize(req.Instructions)
	a.DueDate = req.DueDate
	a.AvailableFrom = req.AvailableFrom
	a.AvailableUntil = req.AvailableUntil
	a.TotalPoints = req.TotalPoints
	a.PassingScore = req.PassingScore
	a.Published = req.Published
	a.Questions = nil
	a.TimeLimitMinutes = 0
	a.AttemptsAllowed = 0
	a.MinGroupSize = 0
	a.MaxGroupSize = 0

	switch a.Kind {
	case models.KindQuiz:
		a.Questions = models.Questions(req.Questions)
		a.TimeLimitMinutes = req.TimeLimitMinutes
		a.AttemptsAllowed = req.AttemptsAllowed
		if a.AttemptsAllowed == 0 {
			a.AttemptsAllowed = 1
		}
		if a.TotalPoints == 0 {
			for _, q := range a.Questions {
				a.TotalPoints += q.Points
			}
		}
	case models.KindActivity:
		a.MinGroupSize = req.MinGroupSize
		a.MaxGroupSize = req.MaxGroupSize
	}
}

func (s *assessmentService) GetAssessment(ctx context.Context, id string, includeUnpublished bool) (*models.AssessmentWithStats, error) {
	a, err := s.assessmentRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get assessment: %w", err)
	}
	if a == nil || (!a.Published && !includeUnpublished) {
		return nil, ErrAssessmentNotFound
	}
	if !includeUnpublished {
		a.Assessment = redact(a.Assessment)
	}
	return a, nil
}

func (s *assessmentService) ListByCourse(ctx context.Context, courseID string, includeUnpublished bool, page, limit int) (*models.AssessmentsResponse, error) {
	page, limit = normalizePage(page, limit)

	exists, err := s.courseRepo.Exists(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to check course existence: %w", err)
	}
	if !exists {
		return nil, ErrCourseNotFound
	}

	list, total, err := s.assessmentRepo.GetByCourse(ctx, courseID, !includeUnpublished, limit, (page-1)*limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list assessments: %w", err)
	}
	if list == nil {
		list = []models.AssessmentWithStats{}
	}
	if !includeUnpublished {
		for i := range list {
			list[i].Assessment = redact(list[i].Assessment)
		}
	}

	return &models.AssessmentsResponse{
		Assessments: list,
		Total:       total,
		Page:        page,
		Limit:       limit,
	}, nil
}

func (s *assessmentService) UpdateAssessment(ctx context.Context, id string, req *models.CreateAssessmentRequest) (*models.Assessment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, err
	}

	existing, err := s.assessmentRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get assessment: %w", err)
	}
	if existing == nil {
		return nil, ErrAssessmentNotFound
	}
	if req.CourseID != existing.CourseID {
		return nil, invalid("course_id cannot be changed")
	}

	a := existing.Assessment
	s.apply(&a, req)
	a.UpdatedAt = s.now()

	if err := a.Check(); err != nil {
		return nil, invalid("%v", err)
	}

	if err := s.assessmentRepo.Update(ctx, &a); err != nil {
		return nil, fmt.Errorf("failed to update assessment: %w", err)
	}

	s.logger.Info().Str("assessment_id", id).Msg("Assessment updated")
	return &a, nil
}

func (s *assessmentService) PublishAssessment(ctx context.Context, id string, published bool) (*models.Assessment, error) {
	existing, err := s.assessmentRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get assessment: %w", err)
	}
	if existing == nil {
		return nil, ErrAssessmentNotFound
	}

	a := existing.Assessment
	a.Published = published
	a.UpdatedAt = s.now()

	if err := s.assessmentRepo.Update(ctx, &a); err != nil {
		return nil, fmt.Errorf("failed to update assessment: %w", err)
	}

	s.logger.Info().
		Str("assessment_id", id).
		Bool("published", published).
		Msg("Assessment publish state changed")

	return &a, nil
}

func (s *assessmentService) DeleteAssessment(ctx context.Context, id string) error {
	existing, err := s.assessmentRepo.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to get assessment: %w", err)
	}
	if existing == nil {
		return ErrAssessmentNotFound
	}

	if err := s.assessmentRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete assessment: %w", err)
	}

	s.logger.Info().Str("assessment_id", id).Msg("Assessment deleted")
	return nil
}

func (s *assessmentService) Load(ctx context.Context, assessmentID, userID string) (*models.Assessment, *models.Submission, error) {
	a, err := s.assessmentRepo.GetByID(ctx, assessmentID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get assessment: %w", err)
	}
	if a == nil {
		return nil, nil, ErrAssessmentNotFound
	}

	sub, err := s.submissionRepo.GetByAssessmentAndUser(ctx, assessmentID, userID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get submission: %w", err)
	}

	return &a.Assessment, sub, nil
}

func (s *assessmentService) Access(ctx context.Context, identity models.Identity, assessmentID string) (*models.AccessResponse, error) {
	a, sub, err := s.Load(ctx, assessmentID, identity.UserID)
	if err != nil {
		return nil, err
	}
	if !a.Published && !identity.IsAdmin() {
		return nil, ErrAssessmentNotFound
	}

	decision := assessment.Check(window(a), s.now())
	if !decision.Allowed {
		s.logger.Debug().
			Str("assessment_id", assessmentID).
			Str("user_id", identity.UserID).
			Str("reason", decision.Reason).
			Msg("Assessment access blocked")
		return &models.AccessResponse{Reason: decision.Reason}, nil
	}

	view := *a
	if !identity.IsAdmin() {
		view = redact(view)
	}

	return &models.AccessResponse{
		Allowed:    true,
		Assessment: &view,
		Submission: sub,
	}, nil
}

func window(a *models.Assessment) assessment.Window {
	return assessment.Window{From: a.AvailableFrom, Until: a.AvailableUntil}
}

// redact hides the answer key from learners. A correct option of -1 means
// "not disclosed".
func redact(a models.Assessment) models.Assessment {
	if len(a.Questions) == 0 {
		return a
	}
	questions := make(models.Questions, len(a.Questions))
	for i, q := range a.Questions {
		q.CorrectOption = -1
		questions[i] = q
	}
	a.Questions = questions
	return a
}
