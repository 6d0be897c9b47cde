package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/Ashik-Muhammed/zygreen/internal/models"
)

type CourseRepository interface {
	Create(ctx context.Context, course *models.Course) error
	GetByID(ctx context.Context, id string) (*models.CourseWithStats, error)
	List(ctx context.Context, filter models.CourseFilter, limit, offset int) ([]models.CourseWithStats, int, error)
	Update(ctx context.Context, course *models.Course) error
	Delete(ctx context.Context, id string) error
	Exists(ctx context.Context, id string) (bool, error)
}

type courseRepository struct {
	*PostgresRepository
}

func NewCourseRepository(db *sql.DB, logger zerolog.Logger) CourseRepository {
	return &courseRepository{
		PostgresRepository: NewPostgresRepository(db, logger),
	}
}

const courseStatsSelect = `
	SELECT
		c.id, c.title, c.description, c.category, c.level, c.published, c.created_at, c.updated_at,
		COUNT(a.id) AS total_assessments,
		COUNT(CASE WHEN a.published THEN 1 END) AS published_assessments
	FROM courses c
	LEFT JOIN assessments a ON a.course_id = c.id
`

func (r *courseRepository) Create(ctx context.Context, course *models.Course) error {
	query := `
		INSERT INTO courses (id, title, description, category, level, published, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.ExecContext(ctx, query,
		course.ID,
		course.Title,
		course.Description,
		course.Category,
		course.Level,
		course.Published,
		course.CreatedAt,
		course.UpdatedAt,
	)

	return err
}

func (r *courseRepository) GetByID(ctx context.Context, id string) (*models.CourseWithStats, error) {
	query := courseStatsSelect + `
		WHERE c.id = $1
		GROUP BY c.id
	`

	course := &models.CourseWithStats{}
	err := scanCourse(r.db.QueryRowContext(ctx, query, id), course)
	if err == sql.ErrNoRows {
		return nil, nil
	}

	return course, err
}

func (r *courseRepository) List(ctx context.Context, filter models.CourseFilter, limit, offset int) ([]models.CourseWithStats, int, error) {
	where, args := courseWhere(filter)

	var total int
	countQuery := `SELECT COUNT(*) FROM courses c` + where
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := courseStatsSelect + where + fmt.Sprintf(`
		GROUP BY c.id
		ORDER BY c.created_at DESC
		LIMIT $%d OFFSET $%d
	`, len(args)+1, len(args)+2)

	rows, err := r.db.QueryContext(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var courses []models.CourseWithStats
	for rows.Next() {
		var course models.CourseWithStats
		if err := scanCourse(rows, &course); err != nil {
			return nil, 0, err
		}
		courses = append(courses, course)
	}

	return courses, total, rows.Err()
}

func (r *courseRepository) Update(ctx context.Context, course *models.Course) error {
	query := `
		UPDATE courses
		SET title = $1, description = $2, category = $3, level = $4, published = $5, updated_at = $6
		WHERE id = $7
	`

	_, err := r.db.ExecContext(ctx, query,
		course.Title,
		course.Description,
		course.Category,
		course.Level,
		course.Published,
		course.UpdatedAt,
		course.ID,
	)

	return err
}

func (r *courseRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM courses WHERE id = $1`, id)
	return err
}

func (r *courseRepository) Exists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM courses WHERE id = $1)`, id).Scan(&exists)
	return exists, err
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanCourse(row rowScanner, course *models.CourseWithStats) error {
	return row.Scan(
		&course.ID,
		&course.Title,
		&course.Description,
		&course.Category,
		&course.Level,
		&course.Published,
		&course.CreatedAt,
		&course.UpdatedAt,
		&course.TotalAssessments,
		&course.PublishedAssessments,
	)
}

func courseWhere(filter models.CourseFilter) (string, []interface{}) {
	var (
		conds []string
		args  []interface{}
	)

	if filter.PublishedOnly {
		conds = append(conds, "c.published = TRUE")
	}
	if filter.Category != "" {
		args = append(args, filter.Category)
		conds = append(conds, fmt.Sprintf("c.category = $%d", len(args)))
	}
	if filter.Level != "" {
		args = append(args, filter.Level)
		conds = append(conds, fmt.Sprintf("c.level = $%d", len(args)))
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		conds = append(conds, fmt.Sprintf("(c.title ILIKE $%d OR c.description ILIKE $%d)", len(args), len(args)))
	}

	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}
