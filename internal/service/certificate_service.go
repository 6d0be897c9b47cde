package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Ashik-Muhammed/zygreen/internal/models"
	"github.com/Ashik-Muhammed/zygreen/internal/repository"
	"github.com/Ashik-Muhammed/zygreen/internal/service/integration"
)

type CertificateOptions struct {
	// Validity is how long a certificate stays valid; zero means forever.
	Validity        time.Duration
	StoragePrefix   string
	PresignedURLTTL time.Duration
}

type CertificateService interface {
	// Issue creates the certificate for (user, course) unless it exists.
	// It reports whether this call created it.
	Issue(ctx context.Context, userID, courseID string) (*models.Certificate, bool, error)
	// GetCertificate returns nil without error when no certificate matches.
	GetCertificate(ctx context.Context, id string) (*models.CertificateWithDetails, error)
	ListMine(ctx context.Context, identity models.Identity) ([]models.CertificateWithDetails, error)
	// Generate returns a download URL for the caller's certificate of
	// courseID, rendering the PDF on first use.
	Generate(ctx context.Context, identity models.Identity, req *models.GenerateCertificateRequest) (*models.GenerateCertificateResponse, error)
	RenderPDF(ctx context.Context, certificateID string) (string, error)
}

type certificateService struct {
	certificateRepo repository.CertificateRepository
	courseRepo      repository.CourseRepository
	renderer        integration.CertificateRenderer
	storage         integration.ObjectStorage
	publisher       integration.EventPublisher
	validator       *Validator
	opts            CertificateOptions
	logger          zerolog.Logger
	now             func() time.Time
}

func NewCertificateService(
	certificateRepo repository.CertificateRepository,
	courseRepo repository.CourseRepository,
	renderer integration.CertificateRenderer,
	storage integration.ObjectStorage,
	publisher integration.EventPublisher,
	validator *Validator,
	opts CertificateOptions,
	logger zerolog.Logger,
) CertificateService {
	return &certificateService{
		certificateRepo: certificateRepo,
		courseRepo:      courseRepo,
		renderer:        renderer,
		storage:         storage,
		publisher:       publisher,
		validator:       validator,
		opts:            opts,
		logger:          logger,
		now:             time.Now,
	}
}

func (s *certificateService) Issue(ctx context.Context, userID, courseID string) (*models.Certificate, bool, error) {
	now := s.now()
	cert := &models.Certificate{
		ID:       uuid.New().String(),
		UserID:   userID,
		CourseID: courseID,
		IssuedAt: now,
	}
	if s.opts.Validity > 0 {
		expires := now.Add(s.opts.Validity)
		cert.ExpiresAt = &expires
	}

	stored, created, err := s.certificateRepo.CreateIfAbsent(ctx, cert)
	if err != nil {
		return nil, false, fmt.Errorf("failed to issue certificate: %w", err)
	}
	if !created {
		s.logger.Debug().
			Str("certificate_id", stored.ID).
			Str("user_id", userID).
			Str("course_id", courseID).
			Msg("Certificate already issued")
		return stored, false, nil
	}

	s.logger.Info().
		Str("certificate_id", stored.ID).
		Str("user_id", userID).
		Str("course_id", courseID).
		Msg("Certificate issued")

	event := &models.CertificateIssuedEvent{
		CertificateID: stored.ID,
		CourseID:      courseID,
		UserID:        userID,
		Timestamp:     now.Unix(),
	}
	if err := s.publisher.PublishCertificateIssued(ctx, event); err != nil {
		s.logger.Error().Err(err).Str("certificate_id", stored.ID).Msg("Failed to publish certificate event")
	}

	return stored, true, nil
}

func (s *certificateService) GetCertificate(ctx context.Context, id string) (*models.CertificateWithDetails, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, nil
	}
	cert, err := s.certificateRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get certificate: %w", err)
	}
	return cert, nil
}

func (s *certificateService) ListMine(ctx context.Context, identity models.Identity) ([]models.CertificateWithDetails, error) {
	list, err := s.certificateRepo.GetByUser(ctx, identity.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to list certificates: %w", err)
	}
	if list == nil {
		list = []models.CertificateWithDetails{}
	}
	return list, nil
}

func (s *certificateService) Generate(ctx context.Context, identity models.Identity, req *models.GenerateCertificateRequest) (*models.GenerateCertificateResponse, error) {
	if identity.UserID == "" {
		return nil, ErrUnauthenticated
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, err
	}

	exists, err := s.courseRepo.Exists(ctx, req.CourseID)
	if err != nil {
		return nil, fmt.Errorf("failed to check course existence: %w", err)
	}
	if !exists {
		return nil, ErrCourseNotFound
	}

	cert, err := s.certificateRepo.GetByUserAndCourse(ctx, identity.UserID, req.CourseID)
	if err != nil {
		return nil, fmt.Errorf("failed to get certificate: %w", err)
	}
	if cert == nil {
		return nil, ErrCertificateNotFound
	}

	url, err := s.RenderPDF(ctx, cert.ID)
	if err != nil {
		return nil, err
	}
	return &models.GenerateCertificateResponse{URL: url}, nil
}

// RenderPDF stores the certificate PDF once and returns a fresh signed URL
// for it. Calling it again for a rendered certificate only re-signs.
func (s *certificateService) RenderPDF(ctx context.Context, certificateID string) (string, error) {
	cert, err := s.certificateRepo.GetByID(ctx, certificateID)
	if err != nil {
		return "", fmt.Errorf("failed to get certificate: %w", err)
	}
	if cert == nil {
		return "", ErrCertificateNotFound
	}

	if cert.PDFKey != nil && *cert.PDFKey != "" {
		url, err := s.storage.PresignedURL(ctx, *cert.PDFKey, s.opts.PresignedURLTTL)
		if err == nil {
			return url, nil
		}
		if !errors.Is(err, integration.ErrObjectNotFound) {
			return "", fmt.Errorf("failed to sign certificate url: %w", err)
		}
		s.logger.Warn().Str("certificate_id", cert.ID).Msg("Certificate PDF missing from storage, rendering again")
	}

	pdf, err := s.renderer.Render(ctx, integration.CertificateDocument{
		CertificateID: cert.ID,
		StudentName:   cert.UserName,
		CourseTitle:   cert.CourseTitle,
		IssuedAt:      cert.IssuedAt,
		ExpiresAt:     cert.ExpiresAt,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrPDFUnavailable, err)
	}

	key := path.Join(s.opts.StoragePrefix, cert.UserID, cert.ID+".pdf")
	if err := s.storage.Upload(ctx, key, bytes.NewReader(pdf), int64(len(pdf)), "application/pdf"); err != nil {
		return "", fmt.Errorf("failed to store certificate PDF: %w", err)
	}

	url, err := s.storage.PresignedURL(ctx, key, s.opts.PresignedURLTTL)
	if err != nil {
		return "", fmt.Errorf("failed to sign certificate url: %w", err)
	}

	if err := s.certificateRepo.UpdatePDF(ctx, cert.ID, key, url); err != nil {
		return "", fmt.Errorf("failed to save certificate PDF location: %w", err)
	}

	s.logger.Info().
		Str("certificate_id", cert.ID).
		Str("key", key).
		Int("bytes", len(pdf)).
		Msg("Certificate PDF rendered")

	return url, nil
}
