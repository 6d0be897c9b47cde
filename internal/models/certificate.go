package models

import (
	"time"
)

type Certificate struct {
	ID        string     `json:"id" db:"id"`
	UserID    string     `json:"user_id" db:"user_id"`
	CourseID  string     `json:"course_id" db:"course_id"`
	IssuedAt  time.Time  `json:"issued_at" db:"issued_at"`
	PDFURL    *string    `json:"pdf_url" db:"pdf_url"`
	PDFKey    *string    `json:"-" db:"pdf_key"`
	ExpiresAt *time.Time `json:"expires_at" db:"expires_at"`
}

type CertificateWithDetails struct {
	Certificate
	UserName    string `json:"user_name" db:"user_name"`
	CourseTitle string `json:"course_title" db:"course_title"`
}

// Completion is the outcome of the per-course completion check.
type Completion struct {
	CourseID             string `json:"course_id"`
	UserID               string `json:"user_id"`
	PublishedAssessments int    `json:"published_assessments"`
	PassedAssessments    int    `json:"passed_assessments"`
}

func (c Completion) Complete() bool {
	return c.PublishedAssessments > 0 && c.PassedAssessments == c.PublishedAssessments
}
