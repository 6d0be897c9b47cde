package httpd

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Ashik-Muhammed/zygreen/internal/models"
)

func (h *Handler) CreateAssessment(w http.ResponseWriter, r *http.Request) {
	var req models.CreateAssessmentRequest
	if !decode(w, r, &req) {
		return
	}

	a, err := h.assessmentService.CreateAssessment(r.Context(), &req)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	writeStatus(w, http.StatusCreated, a)
}

func (h *Handler) GetAssessment(w http.ResponseWriter, r *http.Request) {
	assessmentID := chi.URLParam(r, "id")

	a, err := h.assessmentService.GetAssessment(r.Context(), assessmentID, identity(r).IsAdmin())
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	writeSuccess(w, a)
}

func (h *Handler) UpdateAssessment(w http.ResponseWriter, r *http.Request) {
	assessmentID := chi.URLParam(r, "id")

	var req models.CreateAssessmentRequest
	if !decode(w, r, &req) {
		return
	}

	a, err := h.assessmentService.UpdateAssessment(r.Context(), assessmentID, &req)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	writeSuccess(w, a)
}

func (h *Handler) PublishAssessment(w http.ResponseWriter, r *http.Request) {
	assessmentID := chi.URLParam(r, "id")

	var req models.PublishAssessmentRequest
	if !decode(w, r, &req) {
		return
	}

	a, err := h.assessmentService.PublishAssessment(r.Context(), assessmentID, req.Published)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	writeSuccess(w, a)
}

func (h *Handler) DeleteAssessment(w http.ResponseWriter, r *http.Request) {
	assessmentID := chi.URLParam(r, "id")

	if err := h.assessmentService.DeleteAssessment(r.Context(), assessmentID); err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	writeSuccess(w, map[string]interface{}{
		"message": "Assessment deleted successfully",
	})
}

// AccessAssessment runs the availability gate. A blocked gate is still a 200
// with allowed=false and the reason to show the learner.
func (h *Handler) AccessAssessment(w http.ResponseWriter, r *http.Request) {
	assessmentID := chi.URLParam(r, "id")

	response, err := h.assessmentService.Access(r.Context(), identity(r), assessmentID)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	writeSuccess(w, response)
}

func (h *Handler) StartAttempt(w http.ResponseWriter, r *http.Request) {
	assessmentID := chi.URLParam(r, "id")

	attempt, err := h.sessionService.StartAttempt(r.Context(), identity(r), assessmentID)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	writeSuccess(w, attempt)
}

func (h *Handler) ResumeAttempt(w http.ResponseWriter, r *http.Request) {
	assessmentID := chi.URLParam(r, "id")

	attempt, err := h.sessionService.ResumeAttempt(r.Context(), identity(r), assessmentID)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	writeSuccess(w, attempt)
}

func (h *Handler) ListAssessmentSubmissions(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := models.SubmissionFilter{
		AssessmentID: chi.URLParam(r, "id"),
		UserID:       query.Get("user_id"),
	}
	if status := query.Get("status"); status != "" {
		if !models.IsValidSubmissionStatus(status) {
			writeError(w, http.StatusBadRequest, "unknown submission status")
			return
		}
		filter.Status = models.SubmissionStatus(status)
	}
	h.listSubmissions(w, r, filter)
}

type markMissingRequest struct {
	UserID string `json:"user_id"`
}

func (h *Handler) MarkMissing(w http.ResponseWriter, r *http.Request) {
	assessmentID := chi.URLParam(r, "id")

	var req markMissingRequest
	if !decode(w, r, &req) {
		return
	}
	if req.UserID == "" {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	submission, err := h.submissionService.MarkMissing(r.Context(), assessmentID, req.UserID)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	writeSuccess(w, submission)
}
