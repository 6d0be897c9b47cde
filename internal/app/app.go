package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/Ashik-Muhammed/zygreen/internal/assessment"
	"github.com/Ashik-Muhammed/zygreen/internal/config"
	"github.com/Ashik-Muhammed/zygreen/internal/delivery/httpd"
	"github.com/Ashik-Muhammed/zygreen/internal/middleware"
	"github.com/Ashik-Muhammed/zygreen/internal/repository"
	"github.com/Ashik-Muhammed/zygreen/internal/service"
	"github.com/Ashik-Muhammed/zygreen/internal/service/integration"
	"github.com/Ashik-Muhammed/zygreen/internal/worker"
	"github.com/Ashik-Muhammed/zygreen/internal/worker/queue"
)

type App struct {
	server     *http.Server
	logger     zerolog.Logger
	config     *config.Config
	db         *sql.DB
	timers     *assessment.Timers
	pool       *worker.WorkerPool
	sessions   service.SessionService
	certWorker *worker.CertificateWorker
	publisher  integration.EventPublisher
}

// New wires the application. ctx is the process root context: attempt
// countdowns and the certificate consumer live as long as it does.
func New(ctx context.Context, cfg *config.Config, log zerolog.Logger, db *sql.DB) (*App, error) {
	storage, err := integration.NewMinIOStorage(
		cfg.Storage.Endpoint,
		cfg.Storage.AccessKey,
		cfg.Storage.SecretKey,
		cfg.Storage.Bucket,
		cfg.Storage.Region,
		cfg.Storage.UseSSL,
		cfg.Storage.ConnectTimeout,
		log,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create object storage: %w", err)
	}

	publisher, amqpConn, err := integration.NewRabbitMQClient(
		cfg.RabbitMQ.URL,
		cfg.RabbitMQ.Exchange,
		cfg.RabbitMQ.CertificateKey,
		cfg.RabbitMQ.RenderQueue,
		log,
	)
	if err != nil {
		log.Warn().Err(err).Msg("RabbitMQ unavailable, events disabled and certificates rendered on demand")
		publisher = integration.NewNoopPublisher(log)
		amqpConn = nil
	}

	renderer := integration.NewRendererClient(
		cfg.Renderer.URL,
		cfg.Renderer.RenderEndpoint,
		cfg.Renderer.Timeout,
		cfg.Renderer.RetryCount,
		cfg.Renderer.RetryDelay,
		log,
	)
	sanitizer := integration.NewHTMLSanitizer()
	validator := service.NewValidator()

	userRepo := repository.NewUserRepository(db, log)
	courseRepo := repository.NewCourseRepository(db, log)
	assessmentRepo := repository.NewAssessmentRepository(db, log)
	submissionRepo := repository.NewSubmissionRepository(db, log)
	certificateRepo := repository.NewCertificateRepository(db, log)

	timers := assessment.NewTimers(ctx, cfg.Assessments.TickInterval)
	pool := worker.NewWorkerPool(cfg.Worker.MaxWorkers, log)

	courseService := service.NewCourseService(courseRepo, validator, sanitizer, log)
	userService := service.NewUserService(userRepo, validator, log)
	assessmentService := service.NewAssessmentService(assessmentRepo, courseRepo, submissionRepo, validator, sanitizer, log)
	submissionService := service.NewSubmissionService(
		assessmentRepo,
		submissionRepo,
		storage,
		publisher,
		timers,
		validator,
		service.SubmissionOptions{
			AttachmentsPrefix: cfg.Storage.AttachmentsPrefix,
			PresignedURLTTL:   cfg.Storage.PresignedURLTTL,
			MaxUploadSize:     cfg.Server.MaxUploadSize,
		},
		log,
	)
	sessionService := service.NewSessionService(assessmentRepo, submissionRepo, submissionService, timers, pool, log)
	certificateService := service.NewCertificateService(
		certificateRepo,
		courseRepo,
		renderer,
		storage,
		publisher,
		validator,
		service.CertificateOptions{
			Validity:        cfg.Assessments.CertificateValid,
			StoragePrefix:   cfg.Storage.CertificatePrefix,
			PresignedURLTTL: cfg.Storage.PresignedURLTTL,
		},
		log,
	)
	gradingService := service.NewGradingService(assessmentRepo, submissionRepo, certificateService, publisher, validator, sanitizer, log)

	var certWorker *worker.CertificateWorker
	if amqpConn != nil {
		consumer, err := queue.NewRabbitMQConsumer(amqpConn, cfg.RabbitMQ.RenderQueue, cfg.RabbitMQ.ConsumerTag, cfg.Worker.MaxWorkers, log)
		if err != nil {
			return nil, fmt.Errorf("failed to create certificate consumer: %w", err)
		}
		certWorker = worker.NewCertificateWorker(pool, consumer, certificateService, cfg.Renderer.Timeout*time.Duration(cfg.Renderer.RetryCount+1), log)
	}

	auth := middleware.NewAuthenticator(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.Leeway)

	handler := httpd.NewHandler(httpd.Services{
		Courses:      courseService,
		Users:        userService,
		Assessments:  assessmentService,
		Sessions:     sessionService,
		Submissions:  submissionService,
		Grading:      gradingService,
		Certificates: certificateService,
	}, auth, cfg.Server.MaxUploadSize, log)

	router := chi.NewRouter()

	router.Use(chimw.RequestID)
	router.Use(chimw.RealIP)
	router.Use(middleware.RequestLogger(log))
	router.Use(middleware.Recovery(log))
	router.Use(chimw.Timeout(cfg.Server.RequestTimeout))
	router.Use(middleware.NewCORS(
		cfg.CORS.AllowedOrigins,
		cfg.CORS.AllowedMethods,
		cfg.CORS.AllowedHeaders,
		cfg.CORS.ExposedHeaders,
		cfg.CORS.AllowCredentials,
		cfg.CORS.MaxAge,
	))

	handler.RegisterRoutes(router)

	server := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return &App{
		server:     server,
		logger:     log,
		config:     cfg,
		db:         db,
		timers:     timers,
		pool:       pool,
		sessions:   sessionService,
		certWorker: certWorker,
		publisher:  publisher,
	}, nil
}

// Run starts background processing, re-arms countdowns of attempts that were
// in flight before a restart, then serves HTTP until Shutdown.
func (a *App) Run(ctx context.Context) error {
	if err := a.pool.Start(ctx); err != nil {
		return fmt.Errorf("failed to start worker pool: %w", err)
	}

	if a.certWorker != nil {
		if err := a.certWorker.Start(ctx); err != nil {
			return fmt.Errorf("failed to start certificate worker: %w", err)
		}
	}

	restored, err := a.sessions.RestoreTimers(ctx)
	if err != nil {
		a.logger.Error().Err(err).Msg("Failed to restore attempt timers")
	} else {
		a.logger.Info().Int("timers", restored).Msg("Attempt timers restored")
	}

	a.logger.Info().Msgf("Starting zygreen on %s", a.config.Server.Address)
	if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info().Msg("Shutting down zygreen...")

	serverErr := a.server.Shutdown(ctx)
	if serverErr != nil {
		a.logger.Error().Err(serverErr).Msg("Failed to shutdown HTTP server")
	}

	a.timers.StopAll()

	if a.certWorker != nil {
		if err := a.certWorker.Stop(); err != nil {
			a.logger.Error().Err(err).Msg("Failed to stop certificate worker")
		}
	}

	if err := a.pool.Stop(); err != nil {
		a.logger.Error().Err(err).Msg("Failed to stop worker pool")
	}

	if err := a.publisher.Close(); err != nil {
		a.logger.Error().Err(err).Msg("Failed to close event publisher")
	}

	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Error().Err(err).Msg("Failed to close database connection")
		}
	}

	a.logger.Info().Msg("zygreen stopped")
	return serverErr
}
