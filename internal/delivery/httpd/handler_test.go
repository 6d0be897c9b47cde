package httpd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ashik-Muhammed/zygreen/internal/middleware"
	"github.com/Ashik-Muhammed/zygreen/internal/models"
	"github.com/Ashik-Muhammed/zygreen/internal/service"
)

const assessmentID = "44444444-4444-4444-4444-444444444444"

var (
	adminID   = models.Identity{UserID: "11111111-1111-1111-1111-111111111111", Role: models.RoleAdmin}
	studentID = models.Identity{UserID: "22222222-2222-2222-2222-222222222222", Role: models.RoleStudent}
)

type stubSubmissions struct {
	service.SubmissionService
	err      error
	uploaded service.FileUpload
	seen     models.Identity
}

func (s *stubSubmissions) Submit(_ context.Context, id models.Identity, aID string, req *models.SaveSubmissionRequest) (*models.Submission, error) {
	s.seen = id
	if s.err != nil {
		return nil, s.err
	}
	return &models.Submission{AssessmentID: aID, UserID: id.UserID, Status: models.SubmissionSubmitted, TextAnswer: req.TextAnswer}, nil
}

func (s *stubSubmissions) UploadFile(_ context.Context, _ models.Identity, file service.FileUpload) (*models.UploadFileResponse, error) {
	s.uploaded = file
	body, _ := io.ReadAll(file.Content)
	return &models.UploadFileResponse{Attachment: models.Attachment{Name: file.Name}, Size: int64(len(body))}, nil
}

type stubCertificates struct {
	service.CertificateService
}

func (stubCertificates) GetCertificate(context.Context, string) (*models.CertificateWithDetails, error) {
	return nil, nil
}

type stubAssessments struct {
	service.AssessmentService
}

func (stubAssessments) DeleteAssessment(context.Context, string) error {
	return nil
}

type testServer struct {
	auth        *middleware.Authenticator
	submissions *stubSubmissions
	router      chi.Router
}

func newTestServer(t *testing.T, maxUpload int64) *testServer {
	t.Helper()
	auth := middleware.NewAuthenticator("test-secret", "zygreen", 0)
	submissions := &stubSubmissions{}
	h := NewHandler(Services{
		Assessments:  stubAssessments{},
		Submissions:  submissions,
		Certificates: stubCertificates{},
	}, auth, maxUpload, zerolog.Nop())

	router := chi.NewRouter()
	h.RegisterRoutes(router)
	return &testServer{auth: auth, submissions: submissions, router: router}
}

func (s *testServer) do(t *testing.T, method, path string, who *models.Identity, body io.Reader, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if who != nil {
		token, err := s.auth.Issue(*who, time.Hour)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestHealthCheck(t *testing.T) {
	srv := newTestServer(t, 0)
	rec := srv.do(t, http.MethodGet, "/health", nil, nil, "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", decodeBody(t, rec)["status"])
}

func TestSubmitUsesCallerIdentity(t *testing.T) {
	srv := newTestServer(t, 0)
	rec := srv.do(t, http.MethodPost, "/api/v1/assessments/"+assessmentID+"/submission", &studentID,
		strings.NewReader(`{"text_answer":"my essay"}`), "application/json")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, studentID, srv.submissions.seen)

	data := decodeBody(t, rec)["data"].(map[string]interface{})
	assert.Equal(t, "submitted", data["status"])
	assert.Equal(t, "my essay", data["text_answer"])
}

func TestServiceErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "validation", err: fmt.Errorf("%w: title is required", service.ErrValidation), want: http.StatusBadRequest},
		{name: "gate closed", err: service.ErrNotAvailable, want: http.StatusForbidden},
		{name: "not found", err: service.ErrAssessmentNotFound, want: http.StatusNotFound},
		{name: "already turned in", err: service.ErrAlreadyTurnedIn, want: http.StatusConflict},
		{name: "attempts exhausted", err: service.ErrAttemptsExhausted, want: http.StatusConflict},
		{name: "attempt not started", err: service.ErrAttemptNotStarted, want: http.StatusConflict},
		{name: "too large", err: service.ErrUploadTooLarge, want: http.StatusRequestEntityTooLarge},
		{name: "pdf", err: fmt.Errorf("%w: renderer down", service.ErrPDFUnavailable), want: http.StatusBadGateway},
		{name: "unknown", err: fmt.Errorf("failed to upsert submission: boom"), want: http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, 0)
			srv.submissions.err = tt.err

			rec := srv.do(t, http.MethodPost, "/api/v1/assessments/"+assessmentID+"/submission", &studentID,
				strings.NewReader(`{}`), "application/json")

			assert.Equal(t, tt.want, rec.Code)
			assert.Equal(t, http.StatusText(tt.want), decodeBody(t, rec)["error"])
		})
	}
}

func TestInvalidBodyIsBadRequest(t *testing.T) {
	srv := newTestServer(t, 0)

	rec := srv.do(t, http.MethodPost, "/api/v1/assessments/"+assessmentID+"/submission", &studentID,
		strings.NewReader(`{"text_answer":`), "application/json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = srv.do(t, http.MethodPost, "/api/v1/assessments/"+assessmentID+"/submission", &studentID, nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRouteProtection(t *testing.T) {
	srv := newTestServer(t, 0)
	path := "/api/v1/assessments/" + assessmentID

	assert.Equal(t, http.StatusUnauthorized, srv.do(t, http.MethodDelete, path, nil, nil, "").Code)
	assert.Equal(t, http.StatusForbidden, srv.do(t, http.MethodDelete, path, &studentID, nil, "").Code)
	assert.Equal(t, http.StatusOK, srv.do(t, http.MethodDelete, path, &adminID, nil, "").Code)
}

func TestCertificateLookupIsPublicAndNull(t *testing.T) {
	srv := newTestServer(t, 0)
	rec := srv.do(t, http.MethodGet, "/api/v1/certificates/does-not-exist", nil, nil, "")

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, true, body["success"])
	assert.Contains(t, body, "data")
	assert.Nil(t, body["data"])
}

func multipartBody(t *testing.T, field, name string, content []byte) (io.Reader, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile(field, name)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestUploadFile(t *testing.T) {
	srv := newTestServer(t, 1<<20)

	body, contentType := multipartBody(t, "file", "essay.pdf", []byte("%PDF-1.4 hello"))
	rec := srv.do(t, http.MethodPost, "/api/v1/files", &studentID, body, contentType)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "essay.pdf", srv.submissions.uploaded.Name)
	data := decodeBody(t, rec)["data"].(map[string]interface{})
	assert.EqualValues(t, len("%PDF-1.4 hello"), data["size"])
}

func TestUploadFileRejects(t *testing.T) {
	srv := newTestServer(t, 1024)

	body, contentType := multipartBody(t, "attachment", "essay.pdf", []byte("x"))
	rec := srv.do(t, http.MethodPost, "/api/v1/files", &studentID, body, contentType)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	big, contentType := multipartBody(t, "file", "big.bin", bytes.Repeat([]byte("a"), 2<<20+1024))
	rec = srv.do(t, http.MethodPost, "/api/v1/files", &studentID, big, contentType)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}
