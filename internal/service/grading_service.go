package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/Ashik-Muhammed/zygreen/internal/assessment"
	"github.com/Ashik-Muhammed/zygreen/internal/models"
	"github.com/Ashik-Muhammed/zygreen/internal/repository"
	"github.com/Ashik-Muhammed/zygreen/internal/service/integration"
)

type GradingService interface {
	// Grade scores a turned-in submission. With the eligibility toggle set
	// it runs the course completion check and issues the certificate once
	// every published assessment has been passed.
	Grade(ctx context.Context, grader models.Identity, submissionID string, req *models.GradeSubmissionRequest) (*models.GradeResponse, error)
	CheckCompletion(ctx context.Context, userID, courseID string) (*models.Completion, error)
}

type gradingService struct {
	assessmentRepo repository.AssessmentRepository
	submissionRepo repository.SubmissionRepository
	certificates   CertificateService
	publisher      integration.EventPublisher
	validator      *Validator
	sanitizer      integration.Sanitizer
	logger         zerolog.Logger
	now            func() time.Time
}

func NewGradingService(
	assessmentRepo repository.AssessmentRepository,
	submissionRepo repository.SubmissionRepository,
	certificates CertificateService,
	publisher integration.EventPublisher,
	validator *Validator,
	sanitizer integration.Sanitizer,
	logger zerolog.Logger,
) GradingService {
	return &gradingService{
		assessmentRepo: assessmentRepo,
		submissionRepo: submissionRepo,
		certificates:   certificates,
		publisher:      publisher,
		validator:      validator,
		sanitizer:      sanitizer,
		logger:         logger,
		now:            time.Now,
	}
}

func (s *gradingService) Grade(ctx context.Context, grader models.Identity, submissionID string, req *models.GradeSubmissionRequest) (*models.GradeResponse, error) {
	if !grader.IsAdmin() {
		return nil, ErrForbidden
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, err
	}

	existing, err := s.submissionRepo.GetByID(ctx, submissionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get submission: %w", err)
	}
	if existing == nil {
		return nil, ErrSubmissionNotFound
	}

	got, err := s.assessmentRepo.GetByID(ctx, existing.AssessmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get assessment: %w", err)
	}
	if got == nil {
		return nil, ErrAssessmentNotFound
	}
	a := got.Assessment

	if err := assessment.CheckScore(req.Score, a.TotalPoints); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}
	if req.CertificateEligible && !assessment.Eligible(req.Score, a.PassingScore) {
		return nil, fmt.Errorf("%w: %w", ErrValidation, assessment.ErrNotEligible)
	}
	if !existing.Status.CanTransition(models.SubmissionGraded) {
		return nil, fmt.Errorf("%w: %s to %s", ErrInvalidTransition, existing.Status, models.SubmissionGraded)
	}

	now := s.now()
	sub := *existing
	score := req.Score
	graderID := grader.UserID
	sub.Score = &score
	sub.Feedback = s.sanitizer.Sanitize(req.Feedback)
	sub.CertificateEligible = req.CertificateEligible
	sub.Status = models.SubmissionGraded
	sub.GradedAt = &now
	sub.GradedBy = &graderID
	sub.UpdatedAt = now

	if err := s.submissionRepo.Upsert(ctx, &sub); err != nil {
		return nil, fmt.Errorf("failed to save grade: %w", err)
	}

	passed := sub.Passed(a.PassingScore)
	s.logger.Info().
		Str("submission_id", sub.ID).
		Str("grader_id", graderID).
		Int("score", score).
		Bool("passed", passed).
		Msg("Submission graded")

	event := &models.SubmissionGradedEvent{
		SubmissionID: sub.ID,
		CourseID:     sub.CourseID,
		UserID:       sub.UserID,
		Score:        score,
		Passed:       passed,
		Timestamp:    now.Unix(),
	}
	if err := s.publisher.PublishSubmissionGraded(ctx, event); err != nil {
		s.logger.Error().Err(err).Str("submission_id", sub.ID).Msg("Failed to publish grade event")
	}

	resp := &models.GradeResponse{Submission: &sub}
	if !req.CertificateEligible {
		return resp, nil
	}

	completion, err := s.CheckCompletion(ctx, sub.UserID, sub.CourseID)
	if err != nil {
		return nil, err
	}
	resp.Completion = completion
	if !completion.Complete() {
		return resp, nil
	}

	cert, _, err := s.certificates.Issue(ctx, sub.UserID, sub.CourseID)
	if err != nil {
		return nil, err
	}
	resp.Certificate = cert
	return resp, nil
}

func (s *gradingService) CheckCompletion(ctx context.Context, userID, courseID string) (*models.Completion, error) {
	published, err := s.assessmentRepo.CountPublished(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to count published assessments: %w", err)
	}

	passed, err := s.submissionRepo.CountPassed(ctx, courseID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to count passed submissions: %w", err)
	}

	return &models.Completion{
		CourseID:             courseID,
		UserID:               userID,
		PublishedAssessments: published,
		PassedAssessments:    passed,
	}, nil
}
