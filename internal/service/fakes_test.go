package service

import (
	"bytes"
	"context"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/Ashik-Muhammed/zygreen/internal/models"
	"github.com/Ashik-Muhammed/zygreen/internal/service/integration"
)

type fakeCourseRepo struct {
	mu      sync.Mutex
	courses map[string]*models.Course
}

func newFakeCourseRepo(courses ...*models.Course) *fakeCourseRepo {
	r := &fakeCourseRepo{courses: make(map[string]*models.Course)}
	for _, c := range courses {
		r.courses[c.ID] = c
	}
	return r
}

func (r *fakeCourseRepo) Create(_ context.Context, c *models.Course) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *c
	r.courses[c.ID] = &cp
	return nil
}

func (r *fakeCourseRepo) GetByID(_ context.Context, id string) (*models.CourseWithStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.courses[id]
	if !ok {
		return nil, nil
	}
	return &models.CourseWithStats{Course: *c}, nil
}

func (r *fakeCourseRepo) List(_ context.Context, filter models.CourseFilter, limit, offset int) ([]models.CourseWithStats, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.CourseWithStats
	for _, c := range r.courses {
		if filter.PublishedOnly && !c.Published {
			continue
		}
		out = append(out, models.CourseWithStats{Course: *c})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	total := len(out)
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return out[offset:end], total, nil
}

func (r *fakeCourseRepo) Update(_ context.Context, c *models.Course) error {
	return r.Create(context.Background(), c)
}

func (r *fakeCourseRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.courses, id)
	return nil
}

func (r *fakeCourseRepo) Exists(_ context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.courses[id]
	return ok, nil
}

type fakeAssessmentRepo struct {
	mu          sync.Mutex
	assessments map[string]*models.Assessment
}

func newFakeAssessmentRepo(list ...*models.Assessment) *fakeAssessmentRepo {
	r := &fakeAssessmentRepo{assessments: make(map[string]*models.Assessment)}
	for _, a := range list {
		r.assessments[a.ID] = a
	}
	return r
}

func (r *fakeAssessmentRepo) Create(_ context.Context, a *models.Assessment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *a
	r.assessments[a.ID] = &cp
	return nil
}

func (r *fakeAssessmentRepo) GetByID(_ context.Context, id string) (*models.AssessmentWithStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.assessments[id]
	if !ok {
		return nil, nil
	}
	return &models.AssessmentWithStats{Assessment: *a}, nil
}

func (r *fakeAssessmentRepo) GetByCourse(_ context.Context, courseID string, publishedOnly bool, limit, offset int) ([]models.AssessmentWithStats, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.AssessmentWithStats
	for _, a := range r.assessments {
		if a.CourseID != courseID || (publishedOnly && !a.Published) {
			continue
		}
		out = append(out, models.AssessmentWithStats{Assessment: *a})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, len(out), nil
}

func (r *fakeAssessmentRepo) Update(ctx context.Context, a *models.Assessment) error {
	return r.Create(ctx, a)
}

func (r *fakeAssessmentRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.assessments, id)
	return nil
}

func (r *fakeAssessmentRepo) CountPublished(_ context.Context, courseID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, a := range r.assessments {
		if a.CourseID == courseID && a.Published {
			n++
		}
	}
	return n, nil
}

type fakeSubmissionRepo struct {
	mu          sync.Mutex
	submissions map[string]*models.Submission
	assessments *fakeAssessmentRepo
	upserts     int
}

func newFakeSubmissionRepo(assessments *fakeAssessmentRepo) *fakeSubmissionRepo {
	return &fakeSubmissionRepo{
		submissions: make(map[string]*models.Submission),
		assessments: assessments,
	}
}

func (r *fakeSubmissionRepo) Upsert(_ context.Context, s *models.Submission) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *s
	r.submissions[s.ID] = &cp
	r.upserts++
	return nil
}

func (r *fakeSubmissionRepo) GetByID(_ context.Context, id string) (*models.Submission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.submissions[id]
	if !ok {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (r *fakeSubmissionRepo) GetByAssessmentAndUser(_ context.Context, assessmentID, userID string) (*models.Submission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.submissions {
		if s.AssessmentID == assessmentID && s.UserID == userID {
			cp := *s
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeSubmissionRepo) List(_ context.Context, filter models.SubmissionFilter, limit, offset int) ([]models.SubmissionWithDetails, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.SubmissionWithDetails
	for _, s := range r.submissions {
		if filter.CourseID != "" && s.CourseID != filter.CourseID {
			continue
		}
		if filter.UserID != "" && s.UserID != filter.UserID {
			continue
		}
		if filter.AssessmentID != "" && s.AssessmentID != filter.AssessmentID {
			continue
		}
		if filter.Status != "" && s.Status != filter.Status {
			continue
		}
		out = append(out, models.SubmissionWithDetails{Submission: *s})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	total := len(out)
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return out[offset:end], total, nil
}

func (r *fakeSubmissionRepo) CountPassed(ctx context.Context, courseID, userID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, s := range r.submissions {
		if s.CourseID != courseID || s.UserID != userID {
			continue
		}
		a, _ := r.assessments.GetByID(ctx, s.AssessmentID)
		if a != nil && a.Published && s.Passed(a.PassingScore) {
			n++
		}
	}
	return n, nil
}

type fakeCertificateRepo struct {
	mu    sync.Mutex
	certs map[string]*models.Certificate
}

func newFakeCertificateRepo() *fakeCertificateRepo {
	return &fakeCertificateRepo{certs: make(map[string]*models.Certificate)}
}

func (r *fakeCertificateRepo) CreateIfAbsent(_ context.Context, c *models.Certificate) (*models.Certificate, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.certs {
		if existing.UserID == c.UserID && existing.CourseID == c.CourseID {
			cp := *existing
			return &cp, false, nil
		}
	}
	cp := *c
	r.certs[c.ID] = &cp
	return c, true, nil
}

func (r *fakeCertificateRepo) GetByID(_ context.Context, id string) (*models.CertificateWithDetails, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.certs[id]
	if !ok {
		return nil, nil
	}
	return &models.CertificateWithDetails{Certificate: *c, UserName: "Ada", CourseTitle: "Go 101"}, nil
}

func (r *fakeCertificateRepo) GetByUserAndCourse(_ context.Context, userID, courseID string) (*models.Certificate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.certs {
		if c.UserID == userID && c.CourseID == courseID {
			cp := *c
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeCertificateRepo) GetByUser(_ context.Context, userID string) ([]models.CertificateWithDetails, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.CertificateWithDetails
	for _, c := range r.certs {
		if c.UserID == userID {
			out = append(out, models.CertificateWithDetails{Certificate: *c})
		}
	}
	return out, nil
}

func (r *fakeCertificateRepo) UpdatePDF(_ context.Context, id, key, url string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.certs[id]; ok {
		c.PDFKey = &key
		c.PDFURL = &url
	}
	return nil
}

func (r *fakeCertificateRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.certs)
}

type fakeStorage struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{objects: make(map[string][]byte)}
}

func (s *fakeStorage) Upload(_ context.Context, key string, data io.Reader, _ int64, _ string) error {
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, data); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = buf.Bytes()
	return nil
}

func (s *fakeStorage) PresignedURL(_ context.Context, key string, _ time.Duration) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.objects[key]; !ok {
		return "", integration.ErrObjectNotFound
	}
	return "https://files.test/" + key + "?signed", nil
}

func (s *fakeStorage) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	return nil
}

type fakePublisher struct {
	mu           sync.Mutex
	turnedIn     []models.SubmissionTurnedInEvent
	graded       []models.SubmissionGradedEvent
	certificates []models.CertificateIssuedEvent
}

func (p *fakePublisher) PublishSubmissionTurnedIn(_ context.Context, e *models.SubmissionTurnedInEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.turnedIn = append(p.turnedIn, *e)
	return nil
}

func (p *fakePublisher) PublishSubmissionGraded(_ context.Context, e *models.SubmissionGradedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.graded = append(p.graded, *e)
	return nil
}

func (p *fakePublisher) PublishCertificateIssued(_ context.Context, e *models.CertificateIssuedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.certificates = append(p.certificates, *e)
	return nil
}

func (p *fakePublisher) Close() error { return nil }

type fakeRenderer struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (r *fakeRenderer) Render(_ context.Context, doc integration.CertificateDocument) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if r.err != nil {
		return nil, r.err
	}
	return []byte("%PDF-1.4 " + doc.StudentName), nil
}

// inlineDispatcher runs tasks synchronously on the caller's goroutine.
type inlineDispatcher struct{}

func (inlineDispatcher) Submit(task func()) bool {
	task()
	return true
}

type fixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fixedClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}
