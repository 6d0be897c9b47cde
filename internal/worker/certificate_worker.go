package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Ashik-Muhammed/zygreen/internal/models"
	"github.com/Ashik-Muhammed/zygreen/internal/service"
	"github.com/Ashik-Muhammed/zygreen/internal/service/integration"
	"github.com/Ashik-Muhammed/zygreen/internal/worker/queue"
)

// PDFRenderer is the slice of the certificate service the worker needs.
type PDFRenderer interface {
	RenderPDF(ctx context.Context, certificateID string) (string, error)
}

type Stats struct {
	ActiveWorkers  int `json:"active_workers"`
	TotalProcessed int `json:"total_processed"`
	FailedJobs     int `json:"failed_jobs"`
}

// CertificateWorker renders PDFs for certificate.issued events off the
// request path.
type CertificateWorker struct {
	pool       *WorkerPool
	consumer   queue.Consumer
	renderer   PDFRenderer
	jobTimeout time.Duration
	logger     zerolog.Logger

	statsMu sync.Mutex
	stats   Stats
	done    chan struct{}
}

func NewCertificateWorker(
	pool *WorkerPool,
	consumer queue.Consumer,
	renderer PDFRenderer,
	jobTimeout time.Duration,
	logger zerolog.Logger,
) *CertificateWorker {
	if jobTimeout <= 0 {
		jobTimeout = time.Minute
	}
	return &CertificateWorker{
		pool:       pool,
		consumer:   consumer,
		renderer:   renderer,
		jobTimeout: jobTimeout,
		logger:     logger,
		done:       make(chan struct{}),
	}
}

func (w *CertificateWorker) Start(ctx context.Context) error {
	w.logger.Info().Msg("Starting certificate worker...")

	if err := w.pool.Start(ctx); err != nil {
		return fmt.Errorf("failed to start worker pool: %w", err)
	}

	msgs, err := w.consumer.Consume(ctx)
	if err != nil {
		return fmt.Errorf("failed to start consuming messages: %w", err)
	}

	go w.processMessages(ctx, msgs)
	return nil
}

// Stop closes the consumer and waits for the dispatch loop to exit. The
// pool is owned by the caller.
func (w *CertificateWorker) Stop() error {
	if err := w.consumer.Close(); err != nil {
		w.logger.Error().Err(err).Msg("Failed to close queue consumer")
	}
	<-w.done

	stats := w.Stats()
	w.logger.Info().
		Int("total_processed", stats.TotalProcessed).
		Int("failed_jobs", stats.FailedJobs).
		Msg("Certificate worker stopped")
	return nil
}

func (w *CertificateWorker) Stats() Stats {
	w.statsMu.Lock()
	defer w.statsMu.Unlock()
	stats := w.stats
	stats.ActiveWorkers = w.pool.GetActiveWorkers()
	return stats
}

func (w *CertificateWorker) processMessages(ctx context.Context, msgs <-chan queue.Message) {
	defer close(w.done)

	for msg := range msgs {
		msg := msg
		accepted := w.pool.Submit(func() {
			w.handle(ctx, msg)
		})
		if !accepted {
			if err := msg.Nack(false, true); err != nil {
				w.logger.Error().Err(err).Msg("Failed to nack message")
			}
		}
	}
}

func (w *CertificateWorker) handle(ctx context.Context, msg queue.Message) {
	jobCtx, cancel := context.WithTimeout(ctx, w.jobTimeout)
	defer cancel()

	err := w.process(jobCtx, msg)
	if err == nil {
		if ackErr := msg.Ack(false); ackErr != nil {
			w.logger.Error().Err(ackErr).Msg("Failed to ack message")
		}
		w.statsMu.Lock()
		w.stats.TotalProcessed++
		w.statsMu.Unlock()
		return
	}

	w.statsMu.Lock()
	w.stats.FailedJobs++
	w.statsMu.Unlock()

	// A transient failure gets one redelivery; after that the PDF is left
	// for the on-demand generate endpoint.
	if isPermanentError(err) || msg.Redelivered {
		w.logger.Error().Err(err).Bool("redelivered", msg.Redelivered).Msg("Dropping certificate render")
		if ackErr := msg.Ack(false); ackErr != nil {
			w.logger.Error().Err(ackErr).Msg("Failed to ack message")
		}
		return
	}

	w.logger.Warn().Err(err).Msg("Certificate render failed, requeueing")
	if nackErr := msg.Nack(false, true); nackErr != nil {
		w.logger.Error().Err(nackErr).Msg("Failed to nack message")
	}
}

func (w *CertificateWorker) process(ctx context.Context, msg queue.Message) error {
	var event models.CertificateIssuedEvent
	if err := json.Unmarshal(msg.Body, &event); err != nil {
		return permanent(fmt.Errorf("failed to unmarshal event: %w", err))
	}
	if strings.TrimSpace(event.CertificateID) == "" {
		return permanent(errors.New("empty certificate_id"))
	}

	url, err := w.renderer.RenderPDF(ctx, event.CertificateID)
	if err != nil {
		if errors.Is(err, service.ErrCertificateNotFound) || errors.Is(err, integration.ErrRendererRejected) {
			return permanent(err)
		}
		return err
	}

	w.logger.Info().
		Str("certificate_id", event.CertificateID).
		Str("user_id", event.UserID).
		Str("url", url).
		Msg("Certificate PDF rendered")
	return nil
}

type permanentError struct {
	err error
}

func (e permanentError) Error() string { return e.err.Error() }
func (e permanentError) Unwrap() error { return e.err }

func permanent(err error) error {
	return permanentError{err: err}
}

func isPermanentError(err error) bool {
	var p permanentError
	return errors.As(err, &p)
}
