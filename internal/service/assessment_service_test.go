package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ashik-Muhammed/zygreen/internal/assessment"
	"github.com/Ashik-Muhammed/zygreen/internal/models"
)

func quizRequest() *models.CreateAssessmentRequest {
	return &models.CreateAssessmentRequest{
		CourseID:         courseID,
		Kind:             "quiz",
		Title:            "Week 1 quiz",
		Instructions:     `<p>Answer all questions.</p><script>alert(1)</script>`,
		DueDate:          t0.Add(48 * time.Hour),
		TotalPoints:      0,
		PassingScore:     5,
		Published:        true,
		TimeLimitMinutes: 15,
		MinGroupSize:     3,
		Questions: []models.Question{
			{Type: models.QuestionMultipleChoice, Prompt: "Pick b", Options: []string{"a", "b"}, CorrectOption: 1, Points: 4},
			{Type: models.QuestionShortAnswer, Prompt: "Explain", Points: 6},
		},
	}
}

func TestCreateAssessment(t *testing.T) {
	f := newFixture(t)

	a, err := f.assessmentSvc.CreateAssessment(context.Background(), quizRequest())
	require.NoError(t, err)

	assert.Equal(t, "<p>Answer all questions.</p>", a.Instructions)
	assert.Equal(t, 10, a.TotalPoints, "quiz points default to the sum of question points")
	assert.Equal(t, 1, a.AttemptsAllowed)
	assert.Zero(t, a.MinGroupSize, "group sizes only apply to activities")
	assert.Equal(t, t0, a.CreatedAt)
}

func TestCreateAssessmentRejects(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(r *models.CreateAssessmentRequest)
		wantErr error
	}{
		{name: "unknown kind", mutate: func(r *models.CreateAssessmentRequest) { r.Kind = "exam" }, wantErr: ErrValidation},
		{name: "short title", mutate: func(r *models.CreateAssessmentRequest) { r.Title = "x" }, wantErr: ErrValidation},
		{name: "passing above total", mutate: func(r *models.CreateAssessmentRequest) { r.PassingScore = 11 }, wantErr: ErrValidation},
		{name: "bad correct option", mutate: func(r *models.CreateAssessmentRequest) { r.Questions[0].CorrectOption = 2 }, wantErr: ErrValidation},
		{name: "question without prompt", mutate: func(r *models.CreateAssessmentRequest) { r.Questions[0].Prompt = "" }, wantErr: ErrValidation},
		{name: "unknown course", mutate: func(r *models.CreateAssessmentRequest) { r.CourseID = "44444444-4444-4444-4444-444444444444" }, wantErr: ErrCourseNotFound},
		{name: "inverted window", mutate: func(r *models.CreateAssessmentRequest) {
			from, until := t0.Add(time.Hour), t0
			r.AvailableFrom, r.AvailableUntil = &from, &until
		}, wantErr: ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			req := quizRequest()
			tt.mutate(req)
			_, err := f.assessmentSvc.CreateAssessment(context.Background(), req)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestAccessGate(t *testing.T) {
	t1 := t0.Add(time.Hour)
	t2 := t0.Add(3 * time.Hour)

	tests := []struct {
		name       string
		now        time.Time
		wantAllow  bool
		wantReason string
	}{
		{name: "before window", now: t0, wantReason: assessment.ReasonNotYetAvailable},
		{name: "at open", now: t1, wantAllow: true},
		{name: "inside", now: t1.Add(time.Hour), wantAllow: true},
		{name: "after window", now: t2.Add(time.Minute), wantReason: assessment.ReasonWindowClosed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			quiz := timedQuiz("quiz-1")
			quiz.AvailableFrom, quiz.AvailableUntil = &t1, &t2
			f.addAssessment(quiz)
			f.clock.Set(tt.now)

			resp, err := f.assessmentSvc.Access(context.Background(), student, "quiz-1")
			require.NoError(t, err)
			assert.Equal(t, tt.wantAllow, resp.Allowed)
			assert.Equal(t, tt.wantReason, resp.Reason)
			if !tt.wantAllow {
				assert.Nil(t, resp.Assessment, "a blocked request carries no content")
				return
			}
			require.NotNil(t, resp.Assessment)
			for _, q := range resp.Assessment.Questions {
				assert.Equal(t, -1, q.CorrectOption)
			}
			assert.Nil(t, resp.Submission)
		})
	}
}

func TestAccessReturnsExistingSubmission(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addAssessment(models.Assessment{ID: "essay", Published: true})

	_, err := f.submissionSvc.SaveDraft(ctx, student, "essay", &models.SaveSubmissionRequest{TextAnswer: "draft"})
	require.NoError(t, err)

	resp, err := f.assessmentSvc.Access(ctx, student, "essay")
	require.NoError(t, err)
	require.NotNil(t, resp.Submission)
	assert.Equal(t, "draft", resp.Submission.TextAnswer)

	_, err = f.assessmentSvc.Access(ctx, student, "nope")
	assert.ErrorIs(t, err, ErrAssessmentNotFound)
}

func TestUnpublishedAssessmentsAreAdminOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	quiz := timedQuiz("draft-quiz")
	quiz.Published = false
	f.addAssessment(quiz)

	_, err := f.assessmentSvc.Access(ctx, student, "draft-quiz")
	assert.ErrorIs(t, err, ErrAssessmentNotFound)

	resp, err := f.assessmentSvc.Access(ctx, admin, "draft-quiz")
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Assessment.Questions[0].CorrectOption, "admins see the answer key")

	list, err := f.assessmentSvc.ListByCourse(ctx, courseID, false, 1, 20)
	require.NoError(t, err)
	assert.Empty(t, list.Assessments)

	published, err := f.assessmentSvc.PublishAssessment(ctx, "draft-quiz", true)
	require.NoError(t, err)
	assert.True(t, published.Published)

	list, err = f.assessmentSvc.ListByCourse(ctx, courseID, false, 1, 20)
	require.NoError(t, err)
	require.Len(t, list.Assessments, 1)
	assert.Equal(t, -1, list.Assessments[0].Questions[0].CorrectOption)
}

func TestUpdateAndDeleteAssessment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a, err := f.assessmentSvc.CreateAssessment(ctx, quizRequest())
	require.NoError(t, err)

	req := quizRequest()
	req.Title = "Week 1 quiz (revised)"
	req.TimeLimitMinutes = 20
	f.clock.Set(t0.Add(time.Hour))
	updated, err := f.assessmentSvc.UpdateAssessment(ctx, a.ID, req)
	require.NoError(t, err)
	assert.Equal(t, "Week 1 quiz (revised)", updated.Title)
	assert.Equal(t, 20, updated.TimeLimitMinutes)
	assert.Equal(t, t0, updated.CreatedAt)
	assert.Equal(t, t0.Add(time.Hour), updated.UpdatedAt)

	req.CourseID = "44444444-4444-4444-4444-444444444444"
	_, err = f.assessmentSvc.UpdateAssessment(ctx, a.ID, req)
	assert.ErrorIs(t, err, ErrValidation)

	require.NoError(t, f.assessmentSvc.DeleteAssessment(ctx, a.ID))
	assert.ErrorIs(t, f.assessmentSvc.DeleteAssessment(ctx, a.ID), ErrAssessmentNotFound)
}

func TestCourseService(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.courseSvc.CreateCourse(ctx, &models.CreateCourseRequest{Title: "x"})
	assert.ErrorIs(t, err, ErrValidation)

	hidden, err := f.courseSvc.CreateCourse(ctx, &models.CreateCourseRequest{
		Title:       "Distributed systems",
		Description: `<i>hard</i><script>alert(1)</script>`,
		Level:       "advanced",
	})
	require.NoError(t, err)
	assert.Equal(t, `<i>hard</i>`, hidden.Description)

	_, err = f.courseSvc.GetCourse(ctx, hidden.ID, false)
	assert.ErrorIs(t, err, ErrCourseNotFound)
	got, err := f.courseSvc.GetCourse(ctx, hidden.ID, true)
	require.NoError(t, err)
	assert.Equal(t, "Distributed systems", got.Title)

	catalog, err := f.courseSvc.ListCourses(ctx, models.CourseFilter{PublishedOnly: true}, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, catalog.Total)
	assert.Equal(t, 1, catalog.Page)
	assert.Equal(t, 20, catalog.Limit)

	updated, err := f.courseSvc.UpdateCourse(ctx, hidden.ID, &models.CreateCourseRequest{Title: "Distributed systems", Published: true})
	require.NoError(t, err)
	assert.True(t, updated.Published)

	require.NoError(t, f.courseSvc.DeleteCourse(ctx, hidden.ID))
	assert.ErrorIs(t, f.courseSvc.DeleteCourse(ctx, hidden.ID), ErrCourseNotFound)
}
