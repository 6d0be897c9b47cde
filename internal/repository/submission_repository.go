package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/Ashik-Muhammed/zygreen/internal/models"
)

type SubmissionRepository interface {
	Upsert(ctx context.Context, submission *models.Submission) error
	GetByID(ctx context.Context, id string) (*models.Submission, error)
	GetByAssessmentAndUser(ctx context.Context, assessmentID, userID string) (*models.Submission, error)
	List(ctx context.Context, filter models.SubmissionFilter, limit, offset int) ([]models.SubmissionWithDetails, int, error)
	CountPassed(ctx context.Context, courseID, userID string) (int, error)
}

type submissionRepository struct {
	*PostgresRepository
}

func NewSubmissionRepository(db *sql.DB, logger zerolog.Logger) SubmissionRepository {
	return &submissionRepository{
		PostgresRepository: NewPostgresRepository(db, logger),
	}
}

const submissionColumns = `
	s.id, s.assessment_id, s.course_id, s.user_id, s.text_answer, s.answers, s.files, s.status,
	s.score, s.feedback, s.certificate_eligible, s.attempt_number, s.time_spent_seconds,
	s.started_at, s.submitted_at, s.graded_at, s.graded_by, s.created_at, s.updated_at
`

// Upsert writes the whole submission keyed by id. Concurrent writers are not
// reconciled: the last write wins.
func (r *submissionRepository) Upsert(ctx context.Context, s *models.Submission) error {
	query := `
		INSERT INTO submissions (
			id, assessment_id, course_id, user_id, text_answer, answers, files, status,
			score, feedback, certificate_eligible, attempt_number, time_spent_seconds,
			started_at, submitted_at, graded_at, graded_by, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
		ON CONFLICT (id) DO UPDATE SET
			text_answer = EXCLUDED.text_answer,
			answers = EXCLUDED.answers,
			files = EXCLUDED.files,
			status = EXCLUDED.status,
			score = EXCLUDED.score,
			feedback = EXCLUDED.feedback,
			certificate_eligible = EXCLUDED.certificate_eligible,
			attempt_number = EXCLUDED.attempt_number,
			time_spent_seconds = EXCLUDED.time_spent_seconds,
			started_at = EXCLUDED.started_at,
			submitted_at = EXCLUDED.submitted_at,
			graded_at = EXCLUDED.graded_at,
			graded_by = EXCLUDED.graded_by,
			updated_at = EXCLUDED.updated_at
	`

	_, err := r.db.ExecContext(ctx, query,
		s.ID,
		s.AssessmentID,
		s.CourseID,
		s.UserID,
		s.TextAnswer,
		s.Answers,
		s.Files,
		s.Status,
		s.Score,
		s.Feedback,
		s.CertificateEligible,
		s.AttemptNumber,
		s.TimeSpentSeconds,
		s.StartedAt,
		s.SubmittedAt,
		s.GradedAt,
		s.GradedBy,
		s.CreatedAt,
		s.UpdatedAt,
	)

	return err
}

func (r *submissionRepository) GetByID(ctx context.Context, id string) (*models.Submission, error) {
	query := `SELECT ` + submissionColumns + ` FROM submissions s WHERE s.id = $1`

	submission := &models.Submission{}
	err := scanSubmission(r.db.QueryRowContext(ctx, query, id), submission)
	if err == sql.ErrNoRows {
		return nil, nil
	}

	return submission, err
}

func (r *submissionRepository) GetByAssessmentAndUser(ctx context.Context, assessmentID, userID string) (*models.Submission, error) {
	query := `SELECT ` + submissionColumns + ` FROM submissions s WHERE s.assessment_id = $1 AND s.user_id = $2`

	submission := &models.Submission{}
	err := scanSubmission(r.db.QueryRowContext(ctx, query, assessmentID, userID), submission)
	if err == sql.ErrNoRows {
		return nil, nil
	}

	return submission, err
}

func (r *submissionRepository) List(ctx context.Context, filter models.SubmissionFilter, limit, offset int) ([]models.SubmissionWithDetails, int, error) {
	where, args := submissionWhere(filter)

	var total int
	countQuery := `SELECT COUNT(*) FROM submissions s` + where
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `
		SELECT ` + submissionColumns + `,
			u.name AS user_name, u.email AS user_email, a.title AS assessment_title
		FROM submissions s
		JOIN users u ON s.user_id = u.id
		JOIN assessments a ON s.assessment_id = a.id
	` + where + fmt.Sprintf(`
		ORDER BY s.updated_at DESC
		LIMIT $%d OFFSET $%d
	`, len(args)+1, len(args)+2)

	rows, err := r.db.QueryContext(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var submissions []models.SubmissionWithDetails
	for rows.Next() {
		var s models.SubmissionWithDetails
		err := rows.Scan(
			&s.ID, &s.AssessmentID, &s.CourseID, &s.UserID, &s.TextAnswer, &s.Answers, &s.Files, &s.Status,
			&s.Score, &s.Feedback, &s.CertificateEligible, &s.AttemptNumber, &s.TimeSpentSeconds,
			&s.StartedAt, &s.SubmittedAt, &s.GradedAt, &s.GradedBy, &s.CreatedAt, &s.UpdatedAt,
			&s.UserName, &s.UserEmail, &s.AssessmentTitle,
		)
		if err != nil {
			return nil, 0, err
		}
		submissions = append(submissions, s)
	}

	return submissions, total, rows.Err()
}

// CountPassed counts graded submissions of published assessments in the
// course that reach the assessment's passing score.
func (r *submissionRepository) CountPassed(ctx context.Context, courseID, userID string) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM submissions s
		JOIN assessments a ON s.assessment_id = a.id
		WHERE s.course_id = $1
			AND s.user_id = $2
			AND s.status = 'graded'
			AND a.published = TRUE
			AND s.score >= a.passing_score
	`

	var count int
	err := r.db.QueryRowContext(ctx, query, courseID, userID).Scan(&count)
	return count, err
}

func scanSubmission(row rowScanner, s *models.Submission) error {
	return row.Scan(
		&s.ID,
		&s.AssessmentID,
		&s.CourseID,
		&s.UserID,
		&s.TextAnswer,
		&s.Answers,
		&s.Files,
		&s.Status,
		&s.Score,
		&s.Feedback,
		&s.CertificateEligible,
		&s.AttemptNumber,
		&s.TimeSpentSeconds,
		&s.StartedAt,
		&s.SubmittedAt,
		&s.GradedAt,
		&s.GradedBy,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
}

func submissionWhere(filter models.SubmissionFilter) (string, []interface{}) {
	var (
		conds []string
		args  []interface{}
	)

	add := func(column, value string) {
		if value == "" {
			return
		}
		args = append(args, value)
		conds = append(conds, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	add("s.course_id", filter.CourseID)
	add("s.user_id", filter.UserID)
	add("s.assessment_id", filter.AssessmentID)
	add("s.status", filter.Status.String())

	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}
