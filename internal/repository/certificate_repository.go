package repository

import (
	"context"
	"database/sql"

	"github.com/rs/zerolog"

	"github.com/Ashik-Muhammed/zygreen/internal/models"
)

type CertificateRepository interface {
	// CreateIfAbsent inserts the certificate unless one already exists for the
	// same user and course. It returns the stored certificate and whether it
	// was created by this call.
	CreateIfAbsent(ctx context.Context, certificate *models.Certificate) (*models.Certificate, bool, error)
	GetByID(ctx context.Context, id string) (*models.CertificateWithDetails, error)
	GetByUserAndCourse(ctx context.Context, userID, courseID string) (*models.Certificate, error)
	GetByUser(ctx context.Context, userID string) ([]models.CertificateWithDetails, error)
	UpdatePDF(ctx context.Context, id, key, url string) error
}

type certificateRepository struct {
	*PostgresRepository
}

func NewCertificateRepository(db *sql.DB, logger zerolog.Logger) CertificateRepository {
	return &certificateRepository{
		PostgresRepository: NewPostgresRepository(db, logger),
	}
}

func (r *certificateRepository) CreateIfAbsent(ctx context.Context, c *models.Certificate) (*models.Certificate, bool, error) {
	query := `
		INSERT INTO certificates (id, user_id, course_id, issued_at, pdf_url, pdf_key, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id, course_id) DO NOTHING
	`

	res, err := r.db.ExecContext(ctx, query,
		c.ID,
		c.UserID,
		c.CourseID,
		c.IssuedAt,
		c.PDFURL,
		c.PDFKey,
		c.ExpiresAt,
	)
	if err != nil {
		return nil, false, err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return nil, false, err
	}
	if affected == 1 {
		return c, true, nil
	}

	existing, err := r.GetByUserAndCourse(ctx, c.UserID, c.CourseID)
	return existing, false, err
}

func (r *certificateRepository) GetByID(ctx context.Context, id string) (*models.CertificateWithDetails, error) {
	query := `
		SELECT c.id, c.user_id, c.course_id, c.issued_at, c.pdf_url, c.pdf_key, c.expires_at,
			u.name AS user_name, co.title AS course_title
		FROM certificates c
		JOIN users u ON c.user_id = u.id
		JOIN courses co ON c.course_id = co.id
		WHERE c.id = $1
	`

	cert := &models.CertificateWithDetails{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&cert.ID,
		&cert.UserID,
		&cert.CourseID,
		&cert.IssuedAt,
		&cert.PDFURL,
		&cert.PDFKey,
		&cert.ExpiresAt,
		&cert.UserName,
		&cert.CourseTitle,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}

	return cert, err
}

func (r *certificateRepository) GetByUserAndCourse(ctx context.Context, userID, courseID string) (*models.Certificate, error) {
	query := `
		SELECT id, user_id, course_id, issued_at, pdf_url, pdf_key, expires_at
		FROM certificates
		WHERE user_id = $1 AND course_id = $2
	`

	cert := &models.Certificate{}
	err := r.db.QueryRowContext(ctx, query, userID, courseID).Scan(
		&cert.ID,
		&cert.UserID,
		&cert.CourseID,
		&cert.IssuedAt,
		&cert.PDFURL,
		&cert.PDFKey,
		&cert.ExpiresAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}

	return cert, err
}

func (r *certificateRepository) GetByUser(ctx context.Context, userID string) ([]models.CertificateWithDetails, error) {
	query := `
		SELECT c.id, c.user_id, c.course_id, c.issued_at, c.pdf_url, c.pdf_key, c.expires_at,
			u.name AS user_name, co.title AS course_title
		FROM certificates c
		JOIN users u ON c.user_id = u.id
		JOIN courses co ON c.course_id = co.id
		WHERE c.user_id = $1
		ORDER BY c.issued_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var certs []models.CertificateWithDetails
	for rows.Next() {
		var cert models.CertificateWithDetails
		err := rows.Scan(
			&cert.ID,
			&cert.UserID,
			&cert.CourseID,
			&cert.IssuedAt,
			&cert.PDFURL,
			&cert.PDFKey,
			&cert.ExpiresAt,
			&cert.UserName,
			&cert.CourseTitle,
		)
		if err != nil {
			return nil, err
		}
		certs = append(certs, cert)
	}

	return certs, rows.Err()
}

func (r *certificateRepository) UpdatePDF(ctx context.Context, id, key, url string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE certificates SET pdf_key = $1, pdf_url = $2 WHERE id = $3`,
		key, url, id,
	)
	return err
}
