package service

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Ashik-Muhammed/zygreen/internal/assessment"
	"github.com/Ashik-Muhammed/zygreen/internal/models"
	"github.com/Ashik-Muhammed/zygreen/internal/repository"
	"github.com/Ashik-Muhammed/zygreen/internal/service/integration"
)

// submissionNamespace seeds deterministic submission ids, so every write for
// an (assessment, user) pair upserts the same row.
var submissionNamespace = uuid.MustParse("6f1c2a4e-8d3b-4e7f-9a10-2b3c4d5e6f70")

func SubmissionID(assessmentID, userID string) string {
	return uuid.NewSHA1(submissionNamespace, []byte(assessmentID+"/"+userID)).String()
}

type SubmissionOptions struct {
	AttachmentsPrefix string
	PresignedURLTTL   time.Duration
	MaxUploadSize     int64
}

type FileUpload struct {
	Name        string
	ContentType string
	Size        int64
	Content     io.Reader
}

type SubmissionService interface {
	GetMine(ctx context.Context, identity models.Identity, assessmentID string) (*models.Submission, error)
	GetSubmission(ctx context.Context, identity models.Identity, id string) (*models.Submission, error)
	ListSubmissions(ctx context.Context, filter models.SubmissionFilter, page, limit int) (*models.SubmissionsResponse, error)

	SaveDraft(ctx context.Context, identity models.Identity, assessmentID string, req *models.SaveSubmissionRequest) (*models.Submission, error)
	Submit(ctx context.Context, identity models.Identity, assessmentID string, req *models.SaveSubmissionRequest) (*models.Submission, error)
	// AutoSubmit turns in the stored draft of an attempt whose countdown ran
	// out. It is a no-op when the work was already turned in.
	AutoSubmit(ctx context.Context, assessmentID, userID string) (*models.Submission, error)
	MarkMissing(ctx context.Context, assessmentID, userID string) (*models.Submission, error)

	UploadFile(ctx context.Context, identity models.Identity, file FileUpload) (*models.UploadFileResponse, error)
}

type submissionService struct {
	assessmentRepo repository.AssessmentRepository
	submissionRepo repository.SubmissionRepository
	storage        integration.ObjectStorage
	publisher      integration.EventPublisher
	timers         *assessment.Timers
	validator      *Validator
	opts           SubmissionOptions
	logger         zerolog.Logger
	now            func() time.Time
}

func NewSubmissionService(
	assessmentRepo repository.AssessmentRepository,
	submissionRepo repository.SubmissionRepository,
	storage integration.ObjectStorage,
	publisher integration.EventPublisher,
	timers *assessment.Timers,
	validator *Validator,
	opts SubmissionOptions,
	logger zerolog.Logger,
) SubmissionService {
	return &submissionService{
		assessmentRepo: assessmentRepo,
		submissionRepo: submissionRepo,
		storage:        storage,
		publisher:      publisher,
		timers:         timers,
		validator:      validator,
		opts:           opts,
		logger:         logger,
		now:            time.Now,
	}
}

func (s *submissionService) GetMine(ctx context.Context, identity models.Identity, assessmentID string) (*models.Submission, error) {
	sub, err := s.submissionRepo.GetByAssessmentAndUser(ctx, assessmentID, identity.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to get submission: %w", err)
	}
	if sub == nil {
		return nil, ErrSubmissionNotFound
	}
	return sub, nil
}

func (s *submissionService) GetSubmission(ctx context.Context, identity models.Identity, id string) (*models.Submission, error) {
	sub, err := s.submissionRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get submission: %w", err)
	}
	if sub == nil || (sub.UserID != identity.UserID && !identity.IsAdmin()) {
		return nil, ErrSubmissionNotFound
	}
	return sub, nil
}

func (s *submissionService) ListSubmissions(ctx context.Context, filter models.SubmissionFilter, page, limit int) (*models.SubmissionsResponse, error) {
	page, limit = normalizePage(page, limit)
	if filter.Status != "" && !models.IsValidSubmissionStatus(string(filter.Status)) {
		return nil, invalid("unknown status %q", filter.Status)
	}

	list, total, err := s.submissionRepo.List(ctx, filter, limit, (page-1)*limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list submissions: %w", err)
	}
	if list == nil {
		list = []models.SubmissionWithDetails{}
	}

	return &models.SubmissionsResponse{
		Submissions: list,
		Total:       total,
		Page:        page,
		Limit:       limit,
	}, nil
}

func (s *submissionService) SaveDraft(ctx context.Context, identity models.Identity, assessmentID string, req *models.SaveSubmissionRequest) (*models.Submission, error) {
	a, existing, err := s.open(ctx, identity, assessmentID, req)
	if err != nil {
		return nil, err
	}

	now := s.now()
	sub := s.prepare(a, identity.UserID, existing, now)
	b := assessment.NewBuilder(existing)
	fill(b, req)
	b.Apply(sub)
	sub.Status = models.SubmissionDraft

	if err := s.submissionRepo.Upsert(ctx, sub); err != nil {
		return nil, fmt.Errorf("failed to save draft: %w", err)
	}

	s.logger.Debug().
		Str("submission_id", sub.ID).
		Str("assessment_id", a.ID).
		Str("user_id", identity.UserID).
		Msg("Draft saved")

	return sub, nil
}

func (s *submissionService) Submit(ctx context.Context, identity models.Identity, assessmentID string, req *models.SaveSubmissionRequest) (*models.Submission, error) {
	a, existing, err := s.open(ctx, identity, assessmentID, req)
	if err != nil {
		return nil, err
	}

	now := s.now()
	sub := s.prepare(a, identity.UserID, existing, now)
	deadline := deadlineOf(a, sub)

	// A manual submit ends the attempt's countdown. Without one, the timer
	// is considered expired exactly when its deadline has passed.
	found, expired := s.timers.Cancel(sub.ID)
	if !found {
		expired = !deadline.IsZero() && !now.Before(deadline)
	}
	status := assessment.ResolveStatus(now, deadline, expired)

	b := assessment.NewBuilder(existing)
	fill(b, req)
	return s.write(ctx, a, existing, sub, b, status, false)
}

func (s *submissionService) AutoSubmit(ctx context.Context, assessmentID, userID string) (*models.Submission, error) {
	got, err := s.assessmentRepo.GetByID(ctx, assessmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get assessment: %w", err)
	}
	if got == nil {
		return nil, ErrAssessmentNotFound
	}
	a := &got.Assessment

	existing, err := s.submissionRepo.GetByAssessmentAndUser(ctx, assessmentID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get submission: %w", err)
	}
	if existing == nil {
		return nil, ErrSubmissionNotFound
	}
	s.timers.Cancel(existing.ID)
	if existing.Status != models.SubmissionDraft {
		return existing, nil
	}

	now := s.now()
	sub := s.prepare(a, userID, existing, now)
	status := assessment.ResolveStatus(now, deadlineOf(a, sub), true)

	return s.write(ctx, a, existing, sub, assessment.NewBuilder(existing), status, true)
}

func (s *submissionService) MarkMissing(ctx context.Context, assessmentID, userID string) (*models.Submission, error) {
	got, err := s.assessmentRepo.GetByID(ctx, assessmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get assessment: %w", err)
	}
	if got == nil {
		return nil, ErrAssessmentNotFound
	}

	existing, err := s.submissionRepo.GetByAssessmentAndUser(ctx, assessmentID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get submission: %w", err)
	}
	if existing != nil && !existing.Status.CanTransition(models.SubmissionMissing) {
		return nil, fmt.Errorf("%w: %s to %s", ErrInvalidTransition, existing.Status, models.SubmissionMissing)
	}

	sub := s.prepare(&got.Assessment, userID, existing, s.now())
	sub.Status = models.SubmissionMissing
	s.timers.Cancel(sub.ID)

	if err := s.submissionRepo.Upsert(ctx, sub); err != nil {
		return nil, fmt.Errorf("failed to mark submission missing: %w", err)
	}

	s.logger.Info().
		Str("submission_id", sub.ID).
		Str("user_id", userID).
		Msg("Submission marked missing")

	return sub, nil
}

func (s *submissionService) UploadFile(ctx context.Context, identity models.Identity, file FileUpload) (*models.UploadFileResponse, error) {
	if file.Name == "" {
		return nil, invalid("file name is required")
	}
	if file.Size <= 0 {
		return nil, invalid("file is empty")
	}
	if s.opts.MaxUploadSize > 0 && file.Size > s.opts.MaxUploadSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrUploadTooLarge, file.Size)
	}

	key := integration.ObjectKey(s.opts.AttachmentsPrefix, identity.UserID, file.Name, s.now())
	if err := s.storage.Upload(ctx, key, file.Content, file.Size, file.ContentType); err != nil {
		return nil, fmt.Errorf("failed to store file: %w", err)
	}

	signed, err := s.storage.PresignedURL(ctx, key, s.opts.PresignedURLTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to sign file url: %w", err)
	}

	s.logger.Info().
		Str("user_id", identity.UserID).
		Str("key", key).
		Int64("size", file.Size).
		Msg("Attachment uploaded")

	return &models.UploadFileResponse{
		Attachment: models.Attachment{
			ID:   uuid.New().String(),
			Name: file.Name,
			URL:  signed,
			Type: file.ContentType,
		},
		Size: file.Size,
	}, nil
}

// open validates the request, loads the assessment for the learner and runs
// the availability gate.
func (s *submissionService) open(ctx context.Context, identity models.Identity, assessmentID string, req *models.SaveSubmissionRequest) (*models.Assessment, *models.Submission, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, nil, err
	}

	got, err := s.assessmentRepo.GetByID(ctx, assessmentID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get assessment: %w", err)
	}
	if got == nil || (!got.Published && !identity.IsAdmin()) {
		return nil, nil, ErrAssessmentNotFound
	}
	a := &got.Assessment

	if d := assessment.Check(window(a), s.now()); !d.Allowed {
		return nil, nil, fmt.Errorf("%w: %s", ErrNotAvailable, d.Reason)
	}

	if a.Kind == models.KindQuiz {
		for q, opt := range req.Answers {
			if q < 0 || q >= len(a.Questions) {
				return nil, nil, invalid("answer for unknown question %d", q)
			}
			if n := len(a.Questions[q].Options); n > 0 && (opt < 0 || opt >= n) {
				return nil, nil, invalid("option %d out of range for question %d", opt, q)
			}
		}
	} else if len(req.Answers) > 0 {
		return nil, nil, invalid("answers are only accepted for quizzes")
	}

	for _, file := range req.Files {
		if !ownedUpload(file.URL, s.opts.AttachmentsPrefix, identity.UserID) {
			return nil, nil, invalid("file %q was not uploaded by this user", file.Name)
		}
	}

	existing, err := s.submissionRepo.GetByAssessmentAndUser(ctx, assessmentID, identity.UserID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get submission: %w", err)
	}

	// Learners only write drafts. Turned-in work changes through grading or
	// a retake opened by StartAttempt.
	if existing != nil && existing.Status != models.SubmissionDraft {
		return nil, nil, ErrAlreadyTurnedIn
	}
	if a.TimeLimitMinutes > 0 && (existing == nil || existing.StartedAt == nil) {
		return nil, nil, ErrAttemptNotStarted
	}
	return a, existing, nil
}

// ownedUpload reports whether rawURL addresses an object UploadFile stored
// for userID under prefix.
func ownedUpload(rawURL, prefix, userID string) bool {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return false
	}
	owned := path.Join("/", prefix, userID) + "/"
	return strings.Contains(path.Clean(u.Path), owned)
}

// prepare returns a copy of existing, or a fresh first-attempt submission.
func (s *submissionService) prepare(a *models.Assessment, userID string, existing *models.Submission, now time.Time) *models.Submission {
	if existing != nil {
		sub := *existing
		sub.UpdatedAt = now
		return &sub
	}
	return &models.Submission{
		ID:            SubmissionID(a.ID, userID),
		AssessmentID:  a.ID,
		CourseID:      a.CourseID,
		UserID:        userID,
		Status:        models.SubmissionDraft,
		AttemptNumber: 1,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// write hands the built answer in with status. Concurrent writers are not
// reconciled; the last upsert wins.
func (s *submissionService) write(
	ctx context.Context,
	a *models.Assessment,
	existing *models.Submission,
	sub *models.Submission,
	b *assessment.Builder,
	status models.SubmissionStatus,
	automatic bool,
) (*models.Submission, error) {
	if existing != nil && !existing.Status.CanTransition(status) {
		if existing.Status == models.SubmissionGraded || existing.Status == models.SubmissionMissing {
			return nil, ErrAlreadyTurnedIn
		}
		return nil, fmt.Errorf("%w: %s to %s", ErrInvalidTransition, existing.Status, status)
	}

	now := s.now()
	b.Apply(sub)
	sub.Status = status
	sub.SubmittedAt = &now
	sub.UpdatedAt = now
	if sub.StartedAt != nil {
		sub.TimeSpentSeconds = int(now.Sub(*sub.StartedAt).Seconds())
	}
	if a.Kind == models.KindQuiz && len(a.Questions) > 0 {
		provisional := assessment.AutoScore(a.Questions, sub.Answers)
		sub.Score = &provisional
	}

	if err := s.submissionRepo.Upsert(ctx, sub); err != nil {
		return nil, fmt.Errorf("failed to save submission: %w", err)
	}

	s.logger.Info().
		Str("submission_id", sub.ID).
		Str("assessment_id", a.ID).
		Str("user_id", sub.UserID).
		Str("status", status.String()).
		Bool("automatic", automatic).
		Msg("Submission turned in")

	event := &models.SubmissionTurnedInEvent{
		SubmissionID: sub.ID,
		AssessmentID: a.ID,
		CourseID:     a.CourseID,
		UserID:       sub.UserID,
		Status:       status.String(),
		Automatic:    automatic,
		Timestamp:    now.Unix(),
	}
	if err := s.publisher.PublishSubmissionTurnedIn(ctx, event); err != nil {
		s.logger.Error().Err(err).Str("submission_id", sub.ID).Msg("Failed to publish submission event")
	}

	return sub, nil
}

// deadlineOf is the fixed deadline of the submission's current attempt.
func deadlineOf(a *models.Assessment, sub *models.Submission) time.Time {
	if sub.StartedAt != nil {
		return a.Deadline(*sub.StartedAt)
	}
	return a.DueDate
}

func fill(b *assessment.Builder, req *models.SaveSubmissionRequest) {
	b.SetText(req.TextAnswer)
	for q, opt := range req.Answers {
		b.SetAnswer(q, opt)
	}
	if req.Files != nil {
		b.ReplaceFiles(req.Files)
	}
}
