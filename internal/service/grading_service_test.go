package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ashik-Muhammed/zygreen/internal/assessment"
	"github.com/Ashik-Muhammed/zygreen/internal/models"
	"github.com/Ashik-Muhammed/zygreen/internal/service/integration"
)

func turnIn(t *testing.T, f *fixture, assessmentID string) *models.Submission {
	t.Helper()
	sub, err := f.submissionSvc.Submit(context.Background(), student, assessmentID, &models.SaveSubmissionRequest{TextAnswer: "work"})
	require.NoError(t, err)
	return sub
}

func TestGradeValidatesScore(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.addAssessment(models.Assessment{ID: "essay", Published: true, TotalPoints: 100, PassingScore: 70})
	sub := turnIn(t, f, a.ID)

	tests := []struct {
		name    string
		req     models.GradeSubmissionRequest
		wantErr error
	}{
		{name: "above total", req: models.GradeSubmissionRequest{Score: 101}, wantErr: assessment.ErrScoreOutOfRange},
		{name: "negative", req: models.GradeSubmissionRequest{Score: -1}, wantErr: ErrValidation},
		{name: "eligible below passing", req: models.GradeSubmissionRequest{Score: 65, CertificateEligible: true}, wantErr: assessment.ErrNotEligible},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.gradingSvc.Grade(ctx, admin, sub.ID, &tt.req)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}

	resp, err := f.gradingSvc.Grade(ctx, admin, sub.ID, &models.GradeSubmissionRequest{Score: 75, CertificateEligible: true, Feedback: "<b>Good</b><script>x()</script>"})
	require.NoError(t, err)
	assert.Equal(t, models.SubmissionGraded, resp.Submission.Status)
	assert.Equal(t, "<b>Good</b>", resp.Submission.Feedback)
	require.NotNil(t, resp.Submission.GradedBy)
	assert.Equal(t, admin.UserID, *resp.Submission.GradedBy)
	assert.Equal(t, t0, *resp.Submission.GradedAt)
}

func TestGradeRequiresAdminAndTurnedInWork(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.addAssessment(models.Assessment{ID: "essay", Published: true})

	draft, err := f.submissionSvc.SaveDraft(ctx, student, a.ID, &models.SaveSubmissionRequest{TextAnswer: "wip"})
	require.NoError(t, err)

	_, err = f.gradingSvc.Grade(ctx, student, draft.ID, &models.GradeSubmissionRequest{Score: 50})
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.gradingSvc.Grade(ctx, admin, draft.ID, &models.GradeSubmissionRequest{Score: 50})
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = f.gradingSvc.Grade(ctx, admin, "missing", &models.GradeSubmissionRequest{Score: 50})
	assert.ErrorIs(t, err, ErrSubmissionNotFound)
}

func TestCertificateIssuedOnlyWhenEveryPublishedAssessmentPassed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first := f.addAssessment(models.Assessment{ID: "a1", Published: true, PassingScore: 70})
	second := f.addAssessment(models.Assessment{ID: "a2", Published: true, PassingScore: 70})
	f.addAssessment(models.Assessment{ID: "a3", Published: false, PassingScore: 70})

	sub1 := turnIn(t, f, first.ID)
	sub2 := turnIn(t, f, second.ID)

	resp, err := f.gradingSvc.Grade(ctx, admin, sub1.ID, &models.GradeSubmissionRequest{Score: 80, CertificateEligible: true})
	require.NoError(t, err)
	require.NotNil(t, resp.Completion)
	assert.Equal(t, 2, resp.Completion.PublishedAssessments)
	assert.Equal(t, 1, resp.Completion.PassedAssessments)
	assert.Nil(t, resp.Certificate)
	assert.Equal(t, 0, f.certificates.count())

	resp, err = f.gradingSvc.Grade(ctx, admin, sub2.ID, &models.GradeSubmissionRequest{Score: 70, CertificateEligible: true})
	require.NoError(t, err)
	assert.True(t, resp.Completion.Complete())
	require.NotNil(t, resp.Certificate)
	assert.Equal(t, student.UserID, resp.Certificate.UserID)
	assert.Equal(t, courseID, resp.Certificate.CourseID)
	assert.Equal(t, t0, resp.Certificate.IssuedAt)
	assert.Nil(t, resp.Certificate.ExpiresAt)
	require.Len(t, f.publisher.certificates, 1)

	again, err := f.gradingSvc.Grade(ctx, admin, sub2.ID, &models.GradeSubmissionRequest{Score: 90, CertificateEligible: true})
	require.NoError(t, err)
	require.NotNil(t, again.Certificate)
	assert.Equal(t, resp.Certificate.ID, again.Certificate.ID, "regrading keeps the existing certificate")
	assert.Equal(t, 1, f.certificates.count())
	assert.Len(t, f.publisher.certificates, 1)
	assert.Len(t, f.publisher.graded, 3)
}

func TestGradeWithoutToggleSkipsCompletion(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.addAssessment(models.Assessment{ID: "only", Published: true, PassingScore: 50})
	sub := turnIn(t, f, a.ID)

	resp, err := f.gradingSvc.Grade(ctx, admin, sub.ID, &models.GradeSubmissionRequest{Score: 100})
	require.NoError(t, err)
	assert.Nil(t, resp.Completion)
	assert.Nil(t, resp.Certificate)
	assert.Equal(t, 0, f.certificates.count())

	completion, err := f.gradingSvc.CheckCompletion(ctx, student.UserID, courseID)
	require.NoError(t, err)
	assert.True(t, completion.Complete(), "completion counts passing grades regardless of the toggle")
}

func TestGenerateCertificate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	req := &models.GenerateCertificateRequest{CourseID: courseID}

	_, err := f.certificateSvc.Generate(ctx, models.Identity{}, req)
	assert.ErrorIs(t, err, ErrUnauthenticated)

	_, err = f.certificateSvc.Generate(ctx, student, req)
	assert.ErrorIs(t, err, ErrCertificateNotFound)

	_, err = f.certificateSvc.Generate(ctx, student, &models.GenerateCertificateRequest{CourseID: "44444444-4444-4444-4444-444444444444"})
	assert.ErrorIs(t, err, ErrCourseNotFound)

	_, err = f.certificateSvc.Generate(ctx, student, &models.GenerateCertificateRequest{CourseID: "nope"})
	assert.ErrorIs(t, err, ErrValidation)

	cert, created, err := f.certificateSvc.Issue(ctx, student.UserID, courseID)
	require.NoError(t, err)
	require.True(t, created)

	resp, err := f.certificateSvc.Generate(ctx, student, req)
	require.NoError(t, err)
	assert.Equal(t, "https://files.test/certificates/"+student.UserID+"/"+cert.ID+".pdf?signed", resp.URL)

	again, err := f.certificateSvc.Generate(ctx, student, req)
	require.NoError(t, err)
	assert.Equal(t, resp.URL, again.URL)
	assert.Equal(t, 1, f.renderer.calls, "a rendered certificate is only re-signed")

	stored, err := f.certificateSvc.GetCertificate(ctx, cert.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.PDFURL)
	assert.Equal(t, resp.URL, *stored.PDFURL)
}

func TestGenerateCertificateRendererFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.renderer.err = integration.ErrRendererFailed

	_, _, err := f.certificateSvc.Issue(ctx, student.UserID, courseID)
	require.NoError(t, err)

	_, err = f.certificateSvc.Generate(ctx, student, &models.GenerateCertificateRequest{CourseID: courseID})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrPDFUnavailable))
	assert.True(t, errors.Is(err, integration.ErrRendererFailed))
}

func TestGetCertificateMissingIsNil(t *testing.T) {
	f := newFixture(t)

	cert, err := f.certificateSvc.GetCertificate(context.Background(), "44444444-4444-4444-4444-444444444444")
	require.NoError(t, err)
	assert.Nil(t, cert)

	cert, err = f.certificateSvc.GetCertificate(context.Background(), "not-a-uuid")
	require.NoError(t, err)
	assert.Nil(t, cert)
}

func TestCertificateValidity(t *testing.T) {
	f := newFixture(t)
	f.certificateSvc.(*certificateService).opts.Validity = 365 * 24 * time.Hour

	cert, _, err := f.certificateSvc.Issue(context.Background(), student.UserID, courseID)
	require.NoError(t, err)
	require.NotNil(t, cert.ExpiresAt)
	assert.Equal(t, t0.AddDate(1, 0, 0), *cert.ExpiresAt)
}
