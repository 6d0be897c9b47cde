package httpd

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Ashik-Muhammed/zygreen/internal/models"
)

func (h *Handler) CreateCourse(w http.ResponseWriter, r *http.Request) {
	var req models.CreateCourseRequest
	if !decode(w, r, &req) {
		return
	}

	course, err := h.courseService.CreateCourse(r.Context(), &req)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	writeStatus(w, http.StatusCreated, course)
}

func (h *Handler) GetCourse(w http.ResponseWriter, r *http.Request) {
	courseID := chi.URLParam(r, "id")

	course, err := h.courseService.GetCourse(r.Context(), courseID, identity(r).IsAdmin())
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	writeSuccess(w, course)
}

// ListCourses serves the catalog. Students only ever see published courses.
func (h *Handler) ListCourses(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := models.CourseFilter{
		Category:      query.Get("category"),
		Level:         query.Get("level"),
		Search:        query.Get("search"),
		PublishedOnly: !identity(r).IsAdmin() || query.Get("published") == "true",
	}
	page := getIntQueryParam(r, "page", 1)
	limit := getIntQueryParam(r, "limit", 20)

	response, err := h.courseService.ListCourses(r.Context(), filter, page, limit)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	writeSuccess(w, response)
}

func (h *Handler) UpdateCourse(w http.ResponseWriter, r *http.Request) {
	courseID := chi.URLParam(r, "id")

	var req models.CreateCourseRequest
	if !decode(w, r, &req) {
		return
	}

	course, err := h.courseService.UpdateCourse(r.Context(), courseID, &req)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	writeSuccess(w, course)
}

func (h *Handler) DeleteCourse(w http.ResponseWriter, r *http.Request) {
	courseID := chi.URLParam(r, "id")

	if err := h.courseService.DeleteCourse(r.Context(), courseID); err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	writeSuccess(w, map[string]interface{}{
		"message": "Course deleted successfully",
	})
}

func (h *Handler) ListCourseAssessments(w http.ResponseWriter, r *http.Request) {
	courseID := chi.URLParam(r, "id")
	page := getIntQueryParam(r, "page", 1)
	limit := getIntQueryParam(r, "limit", 20)

	response, err := h.assessmentService.ListByCourse(r.Context(), courseID, identity(r).IsAdmin(), page, limit)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	writeSuccess(w, response)
}

func (h *Handler) ListCourseSubmissions(w http.ResponseWriter, r *http.Request) {
	filter := models.SubmissionFilter{
		CourseID: chi.URLParam(r, "id"),
		UserID:   r.URL.Query().Get("user_id"),
	}
	h.listSubmissions(w, r, filter)
}

func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req models.CreateUserRequest
	if !decode(w, r, &req) {
		return
	}

	user, err := h.userService.CreateUser(r.Context(), &req)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	writeStatus(w, http.StatusCreated, user)
}

func (h *Handler) GetMe(w http.ResponseWriter, r *http.Request) {
	user, err := h.userService.GetUser(r.Context(), identity(r).UserID)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	writeSuccess(w, user)
}
