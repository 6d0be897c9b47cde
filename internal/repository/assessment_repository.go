package repository

import (
	"context"
	"database/sql"

	"github.com/rs/zerolog"

	"github.com/Ashik-Muhammed/zygreen/internal/models"
)

type AssessmentRepository interface {
	Create(ctx context.Context, assessment *models.Assessment) error
	GetByID(ctx context.Context, id string) (*models.AssessmentWithStats, error)
	GetByCourse(ctx context.Context, courseID string, publishedOnly bool, limit, offset int) ([]models.AssessmentWithStats, int, error)
	Update(ctx context.Context, assessment *models.Assessment) error
	Delete(ctx context.Context, id string) error
	CountPublished(ctx context.Context, courseID string) (int, error)
}

type assessmentRepository struct {
	*PostgresRepository
}

func NewAssessmentRepository(db *sql.DB, logger zerolog.Logger) AssessmentRepository {
	return &assessmentRepository{
		PostgresRepository: NewPostgresRepository(db, logger),
	}
}

const assessmentStatsSelect = `
	SELECT
		a.id, a.course_id, a.kind, a.title, a.description, a.instructions, a.due_date,
		a.available_from, a.available_until, a.total_points, a.passing_score, a.published,
		a.questions, a.time_limit_min, a.attempts_allowed, a.min_group_size, a.max_group_size,
		a.created_at, a.updated_at,
		COUNT(s.id) AS total_submissions,
		COUNT(CASE WHEN s.status = 'graded' THEN 1 END) AS graded_submissions
	FROM assessments a
	LEFT JOIN submissions s ON s.assessment_id = a.id
`

func (r *assessmentRepository) Create(ctx context.Context, a *models.Assessment) error {
	query := `
		INSERT INTO assessments (
			id, course_id, kind, title, description, instructions, due_date,
			available_from, available_until, total_points, passing_score, published,
			questions, time_limit_min, attempts_allowed, min_group_size, max_group_size,
			created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
	`

	_, err := r.db.ExecContext(ctx, query,
		a.ID,
		a.CourseID,
		a.Kind,
		a.Title,
		a.Description,
		a.Instructions,
		a.DueDate,
		a.AvailableFrom,
		a.AvailableUntil,
		a.TotalPoints,
		a.PassingScore,
		a.Published,
		a.Questions,
		a.TimeLimitMinutes,
		a.AttemptsAllowed,
		a.MinGroupSize,
		a.MaxGroupSize,
		a.CreatedAt,
		a.UpdatedAt,
	)

	return err
}

func (r *assessmentRepository) GetByID(ctx context.Context, id string) (*models.AssessmentWithStats, error) {
	query := assessmentStatsSelect + `
		WHERE a.id = $1
		GROUP BY a.id
	`

	assessment := &models.AssessmentWithStats{}
	err := scanAssessment(r.db.QueryRowContext(ctx, query, id), assessment)
	if err == sql.ErrNoRows {
		return nil, nil
	}

	return assessment, err
}

func (r *assessmentRepository) GetByCourse(ctx context.Context, courseID string, publishedOnly bool, limit, offset int) ([]models.AssessmentWithStats, int, error) {
	countQuery := `SELECT COUNT(*) FROM assessments WHERE course_id = $1 AND ($2 = FALSE OR published = TRUE)`
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, courseID, publishedOnly).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := assessmentStatsSelect + `
		WHERE a.course_id = $1 AND ($2 = FALSE OR a.published = TRUE)
		GROUP BY a.id
		ORDER BY a.due_date ASC
		LIMIT $3 OFFSET $4
	`

	rows, err := r.db.QueryContext(ctx, query, courseID, publishedOnly, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var assessments []models.AssessmentWithStats
	for rows.Next() {
		var assessment models.AssessmentWithStats
		if err := scanAssessment(rows, &assessment); err != nil {
			return nil, 0, err
		}
		assessments = append(assessments, assessment)
	}

	return assessments, total, rows.Err()
}

func (r *assessmentRepository) Update(ctx context.Context, a *models.Assessment) error {
	query := `
		UPDATE assessments
		SET kind = $1, title = $2, description = $3, instructions = $4, due_date = $5,
			available_from = $6, available_until = $7, total_points = $8, passing_score = $9,
			published = $10, questions = $11, time_limit_min = $12, attempts_allowed = $13,
			min_group_size = $14, max_group_size = $15, updated_at = $16
		WHERE id = $17
	`

	_, err := r.db.ExecContext(ctx, query,
		a.Kind,
		a.Title,
		a.Description,
		a.Instructions,
		a.DueDate,
		a.AvailableFrom,
		a.AvailableUntil,
		a.TotalPoints,
		a.PassingScore,
		a.Published,
		a.Questions,
		a.TimeLimitMinutes,
		a.AttemptsAllowed,
		a.MinGroupSize,
		a.MaxGroupSize,
		a.UpdatedAt,
		a.ID,
	)

	return err
}

func (r *assessmentRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM assessments WHERE id = $1`, id)
	return err
}

func (r *assessmentRepository) CountPublished(ctx context.Context, courseID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM assessments WHERE course_id = $1 AND published = TRUE`,
		courseID,
	).Scan(&count)
	return count, err
}

func scanAssessment(row rowScanner, a *models.AssessmentWithStats) error {
	return row.Scan(
		&a.ID,
		&a.CourseID,
		&a.Kind,
		&a.Title,
		&a.Description,
		&a.Instructions,
		&a.DueDate,
		&a.AvailableFrom,
		&a.AvailableUntil,
		&a.TotalPoints,
		&a.PassingScore,
		&a.Published,
		&a.Questions,
		&a.TimeLimitMinutes,
		&a.AttemptsAllowed,
		&a.MinGroupSize,
		&a.MaxGroupSize,
		&a.CreatedAt,
		&a.UpdatedAt,
		&a.TotalSubmissions,
		&a.GradedSubmissions,
	)
}
