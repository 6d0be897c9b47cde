package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

var (
	ErrRendererRejected = errors.New("certificate renderer rejected the document")
	ErrRendererFailed   = errors.New("certificate renderer failed")
)

// CertificateDocument is everything the PDF renderer needs to draw a certificate.
type CertificateDocument struct {
	CertificateID string     `json:"certificate_id"`
	StudentName   string     `json:"student_name"`
	CourseTitle   string     `json:"course_title"`
	IssuedAt      time.Time  `json:"issued_at"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
}

type CertificateRenderer interface {
	Render(ctx context.Context, doc CertificateDocument) ([]byte, error)
}

type rendererClient struct {
	baseURL        string
	renderEndpoint string
	retryCount     int
	retryDelay     time.Duration
	client         *http.Client
	logger         zerolog.Logger
}

func NewRendererClient(baseURL, renderEndpoint string, timeout time.Duration, retryCount int, retryDelay time.Duration, logger zerolog.Logger) CertificateRenderer {
	return &rendererClient{
		baseURL:        baseURL,
		renderEndpoint: renderEndpoint,
		retryCount:     retryCount,
		retryDelay:     retryDelay,
		client: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

func (c *rendererClient) Render(ctx context.Context, doc CertificateDocument) ([]byte, error) {
	body, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal document: %w", err)
	}

	url := c.baseURL + c.renderEndpoint
	var lastErr error

	for i := 0; i <= c.retryCount; i++ {
		if i > 0 {
			c.logger.Warn().Int("attempt", i).Str("certificate_id", doc.CertificateID).Msg("Retrying certificate render")
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.retryDelay * time.Duration(i)):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/pdf")

		resp, err := c.client.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("failed to call renderer: %w", err)
			continue
		}

		pdf, err := io.ReadAll(resp.Body)
		resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusOK:
			if err != nil {
				lastErr = fmt.Errorf("failed to read renderer response: %w", err)
				continue
			}
			return pdf, nil
		case resp.StatusCode >= 400 && resp.StatusCode < 500:
			// Client errors will not improve on retry.
			return nil, fmt.Errorf("%w: status %d: %s", ErrRendererRejected, resp.StatusCode, string(pdf))
		default:
			lastErr = fmt.Errorf("renderer returned status %d: %s", resp.StatusCode, string(pdf))
		}
	}

	return nil, fmt.Errorf("%w after %d attempts: %v", ErrRendererFailed, c.retryCount+1, lastErr)
}
