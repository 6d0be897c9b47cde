package httpd

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Ashik-Muhammed/zygreen/internal/models"
	"github.com/Ashik-Muhammed/zygreen/internal/service"
)

// multipartOverhead is headroom for form boundaries and headers on top of
// the file itself.
const multipartOverhead = 1 << 20

func (h *Handler) GetMySubmission(w http.ResponseWriter, r *http.Request) {
	assessmentID := chi.URLParam(r, "id")

	submission, err := h.submissionService.GetMine(r.Context(), identity(r), assessmentID)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	writeSuccess(w, submission)
}

func (h *Handler) SaveDraft(w http.ResponseWriter, r *http.Request) {
	assessmentID := chi.URLParam(r, "id")

	var req models.SaveSubmissionRequest
	if !decode(w, r, &req) {
		return
	}

	submission, err := h.submissionService.SaveDraft(r.Context(), identity(r), assessmentID, &req)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	writeSuccess(w, submission)
}

func (h *Handler) SubmitSubmission(w http.ResponseWriter, r *http.Request) {
	assessmentID := chi.URLParam(r, "id")

	var req models.SaveSubmissionRequest
	if !decode(w, r, &req) {
		return
	}

	submission, err := h.submissionService.Submit(r.Context(), identity(r), assessmentID, &req)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	writeSuccess(w, submission)
}

func (h *Handler) GetSubmission(w http.ResponseWriter, r *http.Request) {
	submissionID := chi.URLParam(r, "id")

	submission, err := h.submissionService.GetSubmission(r.Context(), identity(r), submissionID)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	writeSuccess(w, submission)
}

func (h *Handler) GradeSubmission(w http.ResponseWriter, r *http.Request) {
	submissionID := chi.URLParam(r, "id")

	var req models.GradeSubmissionRequest
	if !decode(w, r, &req) {
		return
	}

	response, err := h.gradingService.Grade(r.Context(), identity(r), submissionID, &req)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	writeSuccess(w, response)
}

func (h *Handler) UploadFile(w http.ResponseWriter, r *http.Request) {
	if h.maxUploadSize > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize+multipartOverhead)
	}

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "file is too large")
			return
		}
		writeError(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file field is required")
		return
	}
	defer file.Close()

	response, err := h.submissionService.UploadFile(r.Context(), identity(r), service.FileUpload{
		Name:        header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Content:     file,
	})
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	writeStatus(w, http.StatusCreated, response)
}

func (h *Handler) listSubmissions(w http.ResponseWriter, r *http.Request, filter models.SubmissionFilter) {
	page := getIntQueryParam(r, "page", 1)
	limit := getIntQueryParam(r, "limit", 20)

	response, err := h.submissionService.ListSubmissions(r.Context(), filter, page, limit)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	writeSuccess(w, response)
}
