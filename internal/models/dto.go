package models

import "time"

// Data Transfer Objects

type CreateCourseRequest struct {
	Title       string `json:"title" validate:"required,min=3,max=255"`
	Description string `json:"description" validate:"max=5000"`
	Category    string `json:"category" validate:"max=100"`
	Level       string `json:"level" validate:"omitempty,oneof=beginner intermediate advanced"`
	Published   bool   `json:"published"`
}

type CoursesResponse struct {
	Courses []CourseWithStats `json:"courses"`
	Total   int               `json:"total"`
	Page    int               `json:"page"`
	Limit   int               `json:"limit"`
}

type CreateUserRequest struct {
	Name  string `json:"name" validate:"required,min=2,max=255"`
	Email string `json:"email" validate:"required,email,max=255"`
	Role  string `json:"role" validate:"required,oneof=admin student"`
}

type CreateAssessmentRequest struct {
	CourseID         string     `json:"course_id" validate:"required,uuid"`
	Kind             string     `json:"kind" validate:"required,oneof=assignment quiz activity"`
	Title            string     `json:"title" validate:"required,min=3,max=255"`
	Description      string     `json:"description" validate:"max=5000"`
	Instructions     string     `json:"instructions" validate:"max=20000"`
	DueDate          time.Time  `json:"due_date" validate:"required"`
	AvailableFrom    *time.Time `json:"available_from"`
	AvailableUntil   *time.Time `json:"available_until"`
	TotalPoints      int        `json:"total_points" validate:"min=0,max=10000"`
	PassingScore     int        `json:"passing_score" validate:"min=0"`
	Published        bool       `json:"published"`
	Questions        []Question `json:"questions" validate:"dive"`
	TimeLimitMinutes int        `json:"time_limit_minutes" validate:"min=0,max=1440"`
	AttemptsAllowed  int        `json:"attempts_allowed" validate:"min=0,max=100"`
	MinGroupSize     int        `json:"min_group_size" validate:"min=0"`
	MaxGroupSize     int        `json:"max_group_size" validate:"min=0"`
}

type PublishAssessmentRequest struct {
	Published bool `json:"published"`
}

type AssessmentsResponse struct {
	Assessments []AssessmentWithStats `json:"assessments"`
	Total       int                   `json:"total"`
	Page        int                   `json:"page"`
	Limit       int                   `json:"limit"`
}

// AccessResponse is what a learner sees when opening an assessment.
type AccessResponse struct {
	Allowed    bool        `json:"allowed"`
	Reason     string      `json:"reason,omitempty"`
	Assessment *Assessment `json:"assessment,omitempty"`
	Submission *Submission `json:"submission,omitempty"`
}

type SaveSubmissionRequest struct {
	TextAnswer string       `json:"text_answer" validate:"max=100000"`
	Answers    map[int]int  `json:"answers"`
	Files      []Attachment `json:"files" validate:"max=20,dive"`
}

type AttemptResponse struct {
	SubmissionID  string    `json:"submission_id"`
	AttemptNumber int       `json:"attempt_number"`
	StartedAt     time.Time `json:"started_at"`
	Deadline      time.Time `json:"deadline"`
	RemainingMs   int64     `json:"remaining_ms"`
	Expired       bool      `json:"expired"`
}

type GradeSubmissionRequest struct {
	Score               int    `json:"score" validate:"min=0"`
	Feedback            string `json:"feedback" validate:"max=20000"`
	CertificateEligible bool   `json:"certificate_eligible"`
}

type GradeResponse struct {
	Submission  *Submission  `json:"submission"`
	Completion  *Completion  `json:"completion,omitempty"`
	Certificate *Certificate `json:"certificate,omitempty"`
}

type SubmissionsResponse struct {
	Submissions []SubmissionWithDetails `json:"submissions"`
	Total       int                     `json:"total"`
	Page        int                     `json:"page"`
	Limit       int                     `json:"limit"`
}

type UploadFileResponse struct {
	Attachment Attachment `json:"attachment"`
	Size       int64      `json:"size"`
}

type GenerateCertificateRequest struct {
	CourseID string `json:"course_id" validate:"required,uuid"`
}

type GenerateCertificateResponse struct {
	URL string `json:"url"`
}
