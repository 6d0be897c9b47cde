package models

import (
	"time"
)

type Course struct {
	ID          string    `json:"id" db:"id"`
	Title       string    `json:"title" db:"title"`
	Description string    `json:"description" db:"description"`
	Category    string    `json:"category" db:"category"`
	Level       string    `json:"level" db:"level"`
	Published   bool      `json:"published" db:"published"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

type CourseWithStats struct {
	Course
	TotalAssessments     int `json:"total_assessments" db:"total_assessments"`
	PublishedAssessments int `json:"published_assessments" db:"published_assessments"`
}

// CourseFilter narrows the catalog listing. Empty fields match everything.
type CourseFilter struct {
	Category      string
	Level         string
	Search        string
	PublishedOnly bool
}
