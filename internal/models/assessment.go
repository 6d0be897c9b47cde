package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

type AssessmentKind string

const (
	KindAssignment AssessmentKind = "assignment"
	KindQuiz       AssessmentKind = "quiz"
	KindActivity   AssessmentKind = "activity"
)

func (k AssessmentKind) String() string {
	return string(k)
}

func IsValidAssessmentKind(kind string) bool {
	switch AssessmentKind(kind) {
	case KindAssignment, KindQuiz, KindActivity:
		return true
	default:
		return false
	}
}

type QuestionType string

const (
	QuestionMultipleChoice QuestionType = "multiple_choice"
	QuestionTrueFalse      QuestionType = "true_false"
	QuestionShortAnswer    QuestionType = "short_answer"
)

type Question struct {
	Type          QuestionType `json:"type" validate:"required,oneof=multiple_choice true_false short_answer"`
	Prompt        string       `json:"prompt" validate:"required"`
	Options       []string     `json:"options"`
	CorrectOption int          `json:"correct_option" validate:"min=0"`
	Points        int          `json:"points" validate:"min=0"`
}

// Questions is stored as a JSONB array.
type Questions []Question

func (q Questions) Value() (driver.Value, error) {
	if q == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(q)
}

func (q *Questions) Scan(src interface{}) error {
	return scanJSON(src, q)
}

type Assessment struct {
	ID               string         `json:"id" db:"id"`
	CourseID         string         `json:"course_id" db:"course_id"`
	Kind             AssessmentKind `json:"kind" db:"kind"`
	Title            string         `json:"title" db:"title"`
	Description      string         `json:"description" db:"description"`
	Instructions     string         `json:"instructions" db:"instructions"`
	DueDate          time.Time      `json:"due_date" db:"due_date"`
	AvailableFrom    *time.Time     `json:"available_from,omitempty" db:"available_from"`
	AvailableUntil   *time.Time     `json:"available_until,omitempty" db:"available_until"`
	TotalPoints      int            `json:"total_points" db:"total_points"`
	PassingScore     int            `json:"passing_score" db:"passing_score"`
	Published        bool           `json:"published" db:"published"`
	Questions        Questions      `json:"questions,omitempty" db:"questions"`
	TimeLimitMinutes int            `json:"time_limit_minutes" db:"time_limit_min"`
	AttemptsAllowed  int            `json:"attempts_allowed" db:"attempts_allowed"`
	MinGroupSize     int            `json:"min_group_size,omitempty" db:"min_group_size"`
	MaxGroupSize     int            `json:"max_group_size,omitempty" db:"max_group_size"`
	CreatedAt        time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at" db:"updated_at"`
}

func (a *Assessment) TimeLimit() time.Duration {
	return time.Duration(a.TimeLimitMinutes) * time.Minute
}

// Deadline is the fixed instant an attempt started at startedAt must finish by.
// Timed quizzes end at the earlier of the time limit and the due date.
func (a *Assessment) Deadline(startedAt time.Time) time.Time {
	if a.TimeLimitMinutes <= 0 {
		return a.DueDate
	}
	limit := startedAt.Add(a.TimeLimit())
	if !a.DueDate.IsZero() && a.DueDate.Before(limit) {
		return a.DueDate
	}
	return limit
}

// Check verifies cross-field constraints that struct tags cannot express.
func (a *Assessment) Check() error {
	if a.PassingScore > a.TotalPoints {
		return fmt.Errorf("passing score %d exceeds total points %d", a.PassingScore, a.TotalPoints)
	}
	if a.AvailableFrom != nil && a.AvailableUntil != nil && !a.AvailableFrom.Before(*a.AvailableUntil) {
		return errors.New("available_from must be before available_until")
	}
	if a.Kind == KindActivity && a.MaxGroupSize > 0 && a.MinGroupSize > a.MaxGroupSize {
		return errors.New("min_group_size exceeds max_group_size")
	}
	if a.Kind == KindQuiz {
		for i, q := range a.Questions {
			if q.Type != QuestionShortAnswer && (q.CorrectOption < 0 || q.CorrectOption >= len(q.Options)) {
				return fmt.Errorf("question %d: correct option %d out of range", i, q.CorrectOption)
			}
		}
	}
	return nil
}

type AssessmentWithStats struct {
	Assessment
	TotalSubmissions  int `json:"total_submissions" db:"total_submissions"`
	GradedSubmissions int `json:"graded_submissions" db:"graded_submissions"`
}

func scanJSON(src interface{}, dst interface{}) error {
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		return json.Unmarshal(v, dst)
	case string:
		return json.Unmarshal([]byte(v), dst)
	default:
		return fmt.Errorf("unsupported JSON source type %T", src)
	}
}
