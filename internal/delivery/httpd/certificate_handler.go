package httpd

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Ashik-Muhammed/zygreen/internal/models"
)

// GetCertificate is public so issued certificates can be verified by id.
// Unknown ids yield data: null rather than a 404.
func (h *Handler) GetCertificate(w http.ResponseWriter, r *http.Request) {
	certificateID := chi.URLParam(r, "id")

	cert, err := h.certificateService.GetCertificate(r.Context(), certificateID)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	writeSuccess(w, cert)
}

func (h *Handler) ListMyCertificates(w http.ResponseWriter, r *http.Request) {
	certs, err := h.certificateService.ListMine(r.Context(), identity(r))
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	writeSuccess(w, map[string]interface{}{
		"certificates": certs,
		"total":        len(certs),
	})
}

func (h *Handler) GenerateCertificate(w http.ResponseWriter, r *http.Request) {
	var req models.GenerateCertificateRequest
	if !decode(w, r, &req) {
		return
	}

	response, err := h.certificateService.Generate(r.Context(), identity(r), &req)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	writeSuccess(w, response)
}
