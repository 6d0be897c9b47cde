package service

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/Ashik-Muhammed/zygreen/internal/assessment"
	"github.com/Ashik-Muhammed/zygreen/internal/models"
	"github.com/Ashik-Muhammed/zygreen/internal/service/integration"
)

var (
	t0      = time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)
	admin   = models.Identity{UserID: "11111111-1111-1111-1111-111111111111", Role: models.RoleAdmin}
	student = models.Identity{UserID: "22222222-2222-2222-2222-222222222222", Role: models.RoleStudent}
)

const courseID = "33333333-3333-3333-3333-333333333333"

type fixture struct {
	clock        *fixedClock
	courses      *fakeCourseRepo
	assessments  *fakeAssessmentRepo
	submissions  *fakeSubmissionRepo
	certificates *fakeCertificateRepo
	storage      *fakeStorage
	publisher    *fakePublisher
	renderer     *fakeRenderer
	timers       *assessment.Timers

	courseSvc      CourseService
	assessmentSvc  AssessmentService
	submissionSvc  SubmissionService
	sessionSvc     SessionService
	gradingSvc     GradingService
	certificateSvc CertificateService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	f := &fixture{
		clock:        &fixedClock{now: t0},
		courses:      newFakeCourseRepo(&models.Course{ID: courseID, Title: "Go 101", Published: true}),
		assessments:  newFakeAssessmentRepo(),
		certificates: newFakeCertificateRepo(),
		storage:      newFakeStorage(),
		publisher:    &fakePublisher{},
		renderer:     &fakeRenderer{},
		// Countdowns never tick on their own in tests; expiry is driven
		// through the clock and ResumeAttempt.
		timers: assessment.NewTimers(ctx, time.Hour),
	}
	f.submissions = newFakeSubmissionRepo(f.assessments)

	logger := zerolog.Nop()
	validator := NewValidator()
	sanitizer := integration.NewHTMLSanitizer()

	f.courseSvc = NewCourseService(f.courses, validator, sanitizer, logger)
	f.courseSvc.(*courseService).now = f.clock.Now

	f.assessmentSvc = NewAssessmentService(f.assessments, f.courses, f.submissions, validator, sanitizer, logger)
	f.assessmentSvc.(*assessmentService).now = f.clock.Now

	f.submissionSvc = NewSubmissionService(f.assessments, f.submissions, f.storage, f.publisher, f.timers, validator, SubmissionOptions{
		AttachmentsPrefix: "attachments",
		PresignedURLTTL:   time.Hour,
		MaxUploadSize:     1024,
	}, logger)
	f.submissionSvc.(*submissionService).now = f.clock.Now

	f.sessionSvc = NewSessionService(f.assessments, f.submissions, f.submissionSvc, f.timers, inlineDispatcher{}, logger)
	f.sessionSvc.(*sessionService).now = f.clock.Now

	f.certificateSvc = NewCertificateService(f.certificates, f.courses, f.renderer, f.storage, f.publisher, validator, CertificateOptions{
		StoragePrefix:   "certificates",
		PresignedURLTTL: time.Hour,
	}, logger)
	f.certificateSvc.(*certificateService).now = f.clock.Now

	f.gradingSvc = NewGradingService(f.assessments, f.submissions, f.certificateSvc, f.publisher, validator, sanitizer, logger)
	f.gradingSvc.(*gradingService).now = f.clock.Now

	return f
}

func (f *fixture) addAssessment(a models.Assessment) *models.Assessment {
	if a.CourseID == "" {
		a.CourseID = courseID
	}
	if a.Kind == "" {
		a.Kind = models.KindAssignment
	}
	if a.TotalPoints == 0 {
		a.TotalPoints = 100
	}
	if a.DueDate.IsZero() {
		a.DueDate = t0.Add(7 * 24 * time.Hour)
	}
	f.assessments.Create(context.Background(), &a)
	return &a
}

func timedQuiz(id string) models.Assessment {
	return models.Assessment{
		ID:               id,
		Kind:             models.KindQuiz,
		Title:            "Timed quiz",
		Published:        true,
		TotalPoints:      10,
		PassingScore:     7,
		TimeLimitMinutes: 30,
		AttemptsAllowed:  2,
		Questions: models.Questions{
			{Type: models.QuestionMultipleChoice, Prompt: "2+2", Options: []string{"3", "4"}, CorrectOption: 1, Points: 5},
			{Type: models.QuestionTrueFalse, Prompt: "Go has generics", Options: []string{"false", "true"}, CorrectOption: 1, Points: 5},
		},
	}
}
