package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

type SubmissionStatus string

const (
	SubmissionDraft     SubmissionStatus = "draft"
	SubmissionSubmitted SubmissionStatus = "submitted"
	SubmissionLate      SubmissionStatus = "late"
	SubmissionGraded    SubmissionStatus = "graded"
	SubmissionMissing   SubmissionStatus = "missing"
)

func (s SubmissionStatus) String() string {
	return string(s)
}

func IsValidSubmissionStatus(status string) bool {
	switch SubmissionStatus(status) {
	case SubmissionDraft, SubmissionSubmitted, SubmissionLate, SubmissionGraded, SubmissionMissing:
		return true
	default:
		return false
	}
}

// IsTurnedIn reports whether the learner has handed the work in.
func (s SubmissionStatus) IsTurnedIn() bool {
	return s == SubmissionSubmitted || s == SubmissionLate
}

var submissionTransitions = map[SubmissionStatus][]SubmissionStatus{
	SubmissionDraft:     {SubmissionDraft, SubmissionSubmitted, SubmissionLate, SubmissionMissing},
	SubmissionSubmitted: {SubmissionGraded},
	SubmissionLate:      {SubmissionGraded},
	SubmissionMissing:   {SubmissionGraded},
	SubmissionGraded:    {SubmissionGraded},
}

// CanTransition reports whether status may move from s to next. Statuses only
// move forward: draft, then submitted or late, then graded. Turned-in work is
// never rewritten; a retake reopens the row as a new draft attempt. Regrading
// a graded submission is allowed.
func (s SubmissionStatus) CanTransition(next SubmissionStatus) bool {
	for _, allowed := range submissionTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

type Attachment struct {
	ID   string `json:"id" validate:"required"`
	Name string `json:"name" validate:"required,max=255"`
	URL  string `json:"url" validate:"required,url"`
	Type string `json:"type" validate:"max=255"`
}

type Attachments []Attachment

func (a Attachments) Value() (driver.Value, error) {
	if a == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(a)
}

func (a *Attachments) Scan(src interface{}) error {
	return scanJSON(src, a)
}

// QuizAnswers maps a question index to the chosen option index.
type QuizAnswers map[int]int

func (q QuizAnswers) Value() (driver.Value, error) {
	if q == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(q)
}

func (q *QuizAnswers) Scan(src interface{}) error {
	return scanJSON(src, q)
}

type Submission struct {
	ID                  string           `json:"id" db:"id"`
	AssessmentID        string           `json:"assessment_id" db:"assessment_id"`
	CourseID            string           `json:"course_id" db:"course_id"`
	UserID              string           `json:"user_id" db:"user_id"`
	TextAnswer          string           `json:"text_answer" db:"text_answer"`
	Answers             QuizAnswers      `json:"answers,omitempty" db:"answers"`
	Files               Attachments      `json:"files" db:"files"`
	Status              SubmissionStatus `json:"status" db:"status"`
	Score               *int             `json:"score,omitempty" db:"score"`
	Feedback            string           `json:"feedback,omitempty" db:"feedback"`
	CertificateEligible bool             `json:"certificate_eligible" db:"certificate_eligible"`
	AttemptNumber       int              `json:"attempt_number" db:"attempt_number"`
	TimeSpentSeconds    int              `json:"time_spent_seconds" db:"time_spent_seconds"`
	StartedAt           *time.Time       `json:"started_at,omitempty" db:"started_at"`
	SubmittedAt         *time.Time       `json:"submitted_at,omitempty" db:"submitted_at"`
	GradedAt            *time.Time       `json:"graded_at,omitempty" db:"graded_at"`
	GradedBy            *string          `json:"graded_by,omitempty" db:"graded_by"`
	CreatedAt           time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt           time.Time        `json:"updated_at" db:"updated_at"`
}

// Passed reports whether a graded submission meets the passing score.
func (s *Submission) Passed(passingScore int) bool {
	return s.Status == SubmissionGraded && s.Score != nil && *s.Score >= passingScore
}

type SubmissionWithDetails struct {
	Submission
	UserName        string `json:"user_name" db:"user_name"`
	UserEmail       string `json:"user_email" db:"user_email"`
	AssessmentTitle string `json:"assessment_title" db:"assessment_title"`
}

// SubmissionFilter is an equality filter over the submissions table.
type SubmissionFilter struct {
	CourseID     string
	UserID       string
	AssessmentID string
	Status       SubmissionStatus
}
