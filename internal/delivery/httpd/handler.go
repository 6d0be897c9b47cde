package httpd

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/Ashik-Muhammed/zygreen/internal/middleware"
	"github.com/Ashik-Muhammed/zygreen/internal/models"
	"github.com/Ashik-Muhammed/zygreen/internal/service"
)

type Handler struct {
	courseService      service.CourseService
	userService        service.UserService
	assessmentService  service.AssessmentService
	sessionService     service.SessionService
	submissionService  service.SubmissionService
	gradingService     service.GradingService
	certificateService service.CertificateService
	auth               *middleware.Authenticator
	maxUploadSize      int64
	logger             zerolog.Logger
}

type Services struct {
	Courses      service.CourseService
	Users        service.UserService
	Assessments  service.AssessmentService
	Sessions     service.SessionService
	Submissions  service.SubmissionService
	Grading      service.GradingService
	Certificates service.CertificateService
}

func NewHandler(
	services Services,
	auth *middleware.Authenticator,
	maxUploadSize int64,
	logger zerolog.Logger,
) *Handler {
	return &Handler{
		courseService:      services.Courses,
		userService:        services.Users,
		assessmentService:  services.Assessments,
		sessionService:     services.Sessions,
		submissionService:  services.Submissions,
		gradingService:     services.Grading,
		certificateService: services.Certificates,
		auth:               auth,
		maxUploadSize:      maxUploadSize,
		logger:             logger,
	}
}

func (h *Handler) RegisterRoutes(router chi.Router) {
	router.Get("/health", h.HealthCheck)

	router.Route("/api/v1", func(api chi.Router) {
		api.Route("/certificates", func(r chi.Router) {
			r.Get("/{id}", h.GetCertificate)

			r.Group(func(r chi.Router) {
				r.Use(h.auth.Authenticate)
				r.Get("/", h.ListMyCertificates)
				r.Post("/generate", h.GenerateCertificate)
			})
		})

		api.Group(func(api chi.Router) {
			api.Use(h.auth.Authenticate)

			api.Route("/users", func(r chi.Router) {
				r.Get("/me", h.GetMe)
				r.With(middleware.RequireAdmin).Post("/", h.CreateUser)
			})

			api.Route("/courses", func(r chi.Router) {
				r.Get("/", h.ListCourses)
				r.Get("/{id}", h.GetCourse)
				r.Get("/{id}/assessments", h.ListCourseAssessments)

				r.Group(func(r chi.Router) {
					r.Use(middleware.RequireAdmin)
					r.Post("/", h.CreateCourse)
					r.Put("/{id}", h.UpdateCourse)
					r.Delete("/{id}", h.DeleteCourse)
					r.Get("/{id}/submissions", h.ListCourseSubmissions)
				})
			})

			api.Route("/assessments", func(r chi.Router) {
				r.Get("/{id}", h.GetAssessment)
				r.Get("/{id}/access", h.AccessAssessment)
				r.Post("/{id}/attempts", h.StartAttempt)
				r.Get("/{id}/attempts", h.ResumeAttempt)
				r.Get("/{id}/submission", h.GetMySubmission)
				r.Put("/{id}/submission", h.SaveDraft)
				r.Post("/{id}/submission", h.SubmitSubmission)

				r.Group(func(r chi.Router) {
					r.Use(middleware.RequireAdmin)
					r.Post("/", h.CreateAssessment)
					r.Put("/{id}", h.UpdateAssessment)
					r.Put("/{id}/publish", h.PublishAssessment)
					r.Delete("/{id}", h.DeleteAssessment)
					r.Get("/{id}/submissions", h.ListAssessmentSubmissions)
					r.Post("/{id}/missing", h.MarkMissing)
				})
			})

			api.Post("/files", h.UploadFile)

			api.Route("/submissions", func(r chi.Router) {
				r.Get("/{id}", h.GetSubmission)
				r.With(middleware.RequireAdmin).Post("/{id}/grade", h.GradeSubmission)
			})
		})
	})
}

func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"status":    "healthy",
		"service":   "zygreen",
		"timestamp": time.Now().UTC(),
	}

	writeJSON(w, http.StatusOK, response)
}

// handleServiceError maps service sentinels onto HTTP statuses. Anything
// unrecognised is logged and reported as a 500.
func (h *Handler) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrUnauthenticated):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, service.ErrForbidden),
		errors.Is(err, service.ErrNotAvailable):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, service.ErrUserNotFound),
		errors.Is(err, service.ErrCourseNotFound),
		errors.Is(err, service.ErrAssessmentNotFound),
		errors.Is(err, service.ErrSubmissionNotFound),
		errors.Is(err, service.ErrCertificateNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrAlreadyTurnedIn),
		errors.Is(err, service.ErrInvalidTransition),
		errors.Is(err, service.ErrAttemptsExhausted),
		errors.Is(err, service.ErrAttemptNotStarted),
		errors.Is(err, service.ErrEmailTaken):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrUploadTooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, err.Error())
	case errors.Is(err, service.ErrPDFUnavailable):
		h.logger.Error().Err(err).Str("path", r.URL.Path).Msg("Certificate PDF unavailable")
		writeError(w, http.StatusBadGateway, "certificate PDF is unavailable, try again later")
	default:
		h.logger.Error().Err(err).Str("method", r.Method).Str("path", r.URL.Path).Msg("Service error")
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}

func identity(r *http.Request) models.Identity {
	id, _ := middleware.IdentityFrom(r.Context())
	return id
}

// decode reads a JSON body into dst and writes a 400 on failure.
func decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			writeError(w, http.StatusBadRequest, "Request body is required")
			return false
		}
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

func getIntQueryParam(r *http.Request, key string, defaultValue int) int {
	value := r.URL.Query().Get(key)
	if value == "" {
		return defaultValue
	}

	intValue, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}

	return intValue
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]interface{}{
		"error":   http.StatusText(status),
		"message": message,
	})
}

func writeSuccess(w http.ResponseWriter, data interface{}) {
	writeStatus(w, http.StatusOK, data)
}

func writeStatus(w http.ResponseWriter, status int, data interface{}) {
	response := map[string]interface{}{
		"success": true,
		"data":    data,
	}
	writeJSON(w, status, response)
}
