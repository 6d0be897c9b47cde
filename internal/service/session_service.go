package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/Ashik-Muhammed/zygreen/internal/assessment"
	"github.com/Ashik-Muhammed/zygreen/internal/models"
	"github.com/Ashik-Muhammed/zygreen/internal/repository"
)

// Dispatcher runs background tasks. The worker pool implements it.
type Dispatcher interface {
	Submit(task func()) bool
}

// SessionService opens and resumes timed attempts. Each open attempt has a
// server-side countdown that turns the stored draft in when time runs out.
type SessionService interface {
	StartAttempt(ctx context.Context, identity models.Identity, assessmentID string) (*models.AttemptResponse, error)
	ResumeAttempt(ctx context.Context, identity models.Identity, assessmentID string) (*models.AttemptResponse, error)
	// RestoreTimers re-arms countdowns for attempts left open by a previous
	// process.
	RestoreTimers(ctx context.Context) (int, error)
}

type sessionService struct {
	assessmentRepo repository.AssessmentRepository
	submissionRepo repository.SubmissionRepository
	submissions    SubmissionService
	timers         *assessment.Timers
	dispatcher     Dispatcher
	autoSubmitTTL  time.Duration
	logger         zerolog.Logger
	now            func() time.Time
}

func NewSessionService(
	assessmentRepo repository.AssessmentRepository,
	submissionRepo repository.SubmissionRepository,
	submissions SubmissionService,
	timers *assessment.Timers,
	dispatcher Dispatcher,
	logger zerolog.Logger,
) SessionService {
	return &sessionService{
		assessmentRepo: assessmentRepo,
		submissionRepo: submissionRepo,
		submissions:    submissions,
		timers:         timers,
		dispatcher:     dispatcher,
		autoSubmitTTL:  30 * time.Second,
		logger:         logger,
		now:            time.Now,
	}
}

func (s *sessionService) StartAttempt(ctx context.Context, identity models.Identity, assessmentID string) (*models.AttemptResponse, error) {
	a, existing, err := s.load(ctx, identity, assessmentID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if d := assessment.Check(window(a), now); !d.Allowed {
		return nil, fmt.Errorf("%w: %s", ErrNotAvailable, d.Reason)
	}

	var sub *models.Submission
	switch {
	case existing == nil:
		sub = &models.Submission{
			ID:            SubmissionID(a.ID, identity.UserID),
			AssessmentID:  a.ID,
			CourseID:      a.CourseID,
			UserID:        identity.UserID,
			AttemptNumber: 1,
			CreatedAt:     now,
		}

	case existing.Status == models.SubmissionDraft && existing.StartedAt != nil:
		// Starting twice resumes the open attempt.
		return s.arm(a, existing, now), nil

	case existing.Status == models.SubmissionDraft:
		sub = existing
		if sub.AttemptNumber < 1 {
			sub.AttemptNumber = 1
		}

	case existing.Status.IsTurnedIn():
		if a.AttemptsAllowed > 0 && existing.AttemptNumber >= a.AttemptsAllowed {
			return nil, ErrAttemptsExhausted
		}
		// A retake is a new attempt on the same row; its answers start empty.
		sub = existing
		sub.AttemptNumber++
		sub.TextAnswer = ""
		sub.Answers = nil
		sub.Files = nil
		sub.Score = nil
		sub.SubmittedAt = nil
		sub.TimeSpentSeconds = 0

	default:
		return nil, ErrAlreadyTurnedIn
	}

	sub.Status = models.SubmissionDraft
	sub.StartedAt = &now
	sub.UpdatedAt = now

	if err := s.submissionRepo.Upsert(ctx, sub); err != nil {
		return nil, fmt.Errorf("failed to start attempt: %w", err)
	}

	s.logger.Info().
		Str("submission_id", sub.ID).
		Str("assessment_id", a.ID).
		Str("user_id", identity.UserID).
		Int("attempt", sub.AttemptNumber).
		Time("deadline", a.Deadline(now)).
		Msg("Attempt started")

	return s.arm(a, sub, now), nil
}

func (s *sessionService) ResumeAttempt(ctx context.Context, identity models.Identity, assessmentID string) (*models.AttemptResponse, error) {
	a, existing, err := s.load(ctx, identity, assessmentID)
	if err != nil {
		return nil, err
	}
	if existing == nil || existing.Status != models.SubmissionDraft || existing.StartedAt == nil {
		return nil, ErrSubmissionNotFound
	}

	return s.arm(a, existing, s.now()), nil
}

func (s *sessionService) RestoreTimers(ctx context.Context) (int, error) {
	open, err := s.openAttempts(ctx)
	if err != nil {
		return 0, err
	}

	restored := 0
	assessments := make(map[string]*models.Assessment)
	for i := range open {
		sub := &open[i]

		a, ok := assessments[sub.AssessmentID]
		if !ok {
			got, err := s.assessmentRepo.GetByID(ctx, sub.AssessmentID)
			if err != nil {
				return restored, fmt.Errorf("failed to get assessment: %w", err)
			}
			if got != nil {
				a = &got.Assessment
			}
			assessments[sub.AssessmentID] = a
		}
		if a == nil {
			continue
		}

		s.arm(a, sub, s.now())
		restored++
	}

	s.logger.Info().Int("attempts", restored).Msg("Attempt timers restored")
	return restored, nil
}

// openAttempts lists every started draft. Arming an expired attempt turns it
// in and drops it from the draft set, so the whole set is read before any
// timer is armed.
func (s *sessionService) openAttempts(ctx context.Context) ([]models.Submission, error) {
	const pageSize = 100
	filter := models.SubmissionFilter{Status: models.SubmissionDraft}

	var open []models.Submission
	for offset := 0; ; offset += pageSize {
		page, total, err := s.submissionRepo.List(ctx, filter, pageSize, offset)
		if err != nil {
			return nil, fmt.Errorf("failed to list open attempts: %w", err)
		}
		for i := range page {
			if page[i].StartedAt != nil {
				open = append(open, page[i].Submission)
			}
		}
		if offset+pageSize >= total || len(page) == 0 {
			return open, nil
		}
	}
}

func (s *sessionService) load(ctx context.Context, identity models.Identity, assessmentID string) (*models.Assessment, *models.Submission, error) {
	got, err := s.assessmentRepo.GetByID(ctx, assessmentID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get assessment: %w", err)
	}
	if got == nil || (!got.Published && !identity.IsAdmin()) {
		return nil, nil, ErrAssessmentNotFound
	}

	sub, err := s.submissionRepo.GetByAssessmentAndUser(ctx, assessmentID, identity.UserID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get submission: %w", err)
	}
	return &got.Assessment, sub, nil
}

// arm (re)starts the attempt's countdown from the time left until its fixed
// deadline. An attempt already past its deadline is turned in right away.
func (s *sessionService) arm(a *models.Assessment, sub *models.Submission, now time.Time) *models.AttemptResponse {
	deadline := a.Deadline(*sub.StartedAt)
	remaining := assessment.Remaining(now, deadline)

	s.timers.Arm(sub.ID, remaining, s.expire(a.ID, sub.UserID, sub.ID))

	return &models.AttemptResponse{
		SubmissionID:  sub.ID,
		AttemptNumber: sub.AttemptNumber,
		StartedAt:     *sub.StartedAt,
		Deadline:      deadline,
		RemainingMs:   remaining.Milliseconds(),
		Expired:       remaining == 0,
	}
}

func (s *sessionService) expire(assessmentID, userID, submissionID string) func() {
	return func() {
		accepted := s.dispatcher.Submit(func() {
			ctx, cancel := context.WithTimeout(context.Background(), s.autoSubmitTTL)
			defer cancel()

			sub, err := s.submissions.AutoSubmit(ctx, assessmentID, userID)
			if err != nil {
				if errors.Is(err, ErrAlreadyTurnedIn) {
					return
				}
				s.logger.Error().Err(err).
					Str("submission_id", submissionID).
					Msg("Failed to auto-submit expired attempt")
				return
			}

			s.logger.Info().
				Str("submission_id", sub.ID).
				Str("status", sub.Status.String()).
				Msg("Expired attempt auto-submitted")
		})
		if !accepted {
			s.logger.Error().
				Str("submission_id", submissionID).
				Msg("Auto-submit dropped, worker pool unavailable")
		}
	}
}
