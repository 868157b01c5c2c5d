package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/learnhub/enrollment-hub/internal/application/command"
	"github.com/learnhub/enrollment-hub/internal/application/query"
	"github.com/learnhub/enrollment-hub/internal/domain/shared"
	"github.com/learnhub/enrollment-hub/internal/infrastructure/persistence/memory"
	"github.com/learnhub/enrollment-hub/internal/infrastructure/persistence/projections"
	"github.com/learnhub/enrollment-hub/pkg/keylock"
)

type nopPublisher struct{}

func (nopPublisher) Publish(event shared.Event) error { return nil }

// newTestServer wires a server over in-memory stores and catalog fixtures.
func newTestServer(t *testing.T, config Config) *Server {
	t.Helper()

	enrollments := memory.NewEnrollmentRepository()
	certificates := memory.NewCertificateRepository()
	integrityRepo := memory.NewIntegrityRepository()
	progressStore := memory.NewProgressStore()
	scoreStore := memory.NewScoreStore()
	catalogReader := memory.NewCatalogReaderWithFixtures()

	locks := keylock.New()
	var publisher nopPublisher

	return NewServer(config, Dependencies{
		EnrollHandler: command.NewEnrollHandler(enrollments, catalogReader, locks, publisher),
		DropHandler:   command.NewDropHandler(enrollments, locks, publisher),
		RecordContentProgressHandler: command.NewRecordContentProgressHandler(
			enrollments, progressStore, locks, publisher),
		SubmitAssessmentHandler: command.NewSubmitAssessmentHandler(
			enrollments, scoreStore, catalogReader, locks, publisher),
		IssueCertificateHandler: command.NewIssueCertificateHandler(
			certificates, enrollments, locks, publisher,
			command.DefaultIssueCertificateHandlerConfig()),
		GetOverallProgressHandler: query.NewGetOverallProgressHandler(enrollments, progressStore),
		GetCertificateHandler:     query.NewGetCertificateHandler(certificates),
		GetLearningPatternHandler: query.NewGetLearningPatternHandler(integrityRepo),
		GetUsageSummaryHandler: query.NewGetUsageSummaryHandler(
			enrollments, certificates, nil, query.DefaultGetUsageSummaryHandlerConfig()),
		DashboardView: projections.NewCourseDashboardView(),
	})
}

func doRequest(t *testing.T, s *Server, method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	s.httpServer.Handler.ServeHTTP(rec, req)
	return rec
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestServer_EnrollLifecycle(t *testing.T) {
	s := newTestServer(t, DefaultConfig())

	enroll := map[string]string{"user_id": "user-1", "course_id": "go-101"}

	rec := doRequest(t, s, http.MethodPost, "/api/v1/enrollments", enroll, nil)
	assert.Equal(t, http.StatusCreated, rec.Code)

	// A second enroll while active is a conflict.
	rec = doRequest(t, s, http.MethodPost, "/api/v1/enrollments", enroll, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = doRequest(t, s, http.MethodDelete, "/api/v1/enrollments/user-1/go-101", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	// Re-enroll after a drop reactivates instead of conflicting.
	rec = doRequest(t, s, http.MethodPost, "/api/v1/enrollments", enroll, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeJSON(t, rec)
	assert.Equal(t, true, resp["reactivated"])
}

func TestServer_ProgressRoundTrip(t *testing.T) {
	s := newTestServer(t, DefaultConfig())

	rec := doRequest(t, s, http.MethodPost, "/api/v1/enrollments",
		map[string]string{"user_id": "user-1", "course_id": "go-101"}, nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doRequest(t, s, http.MethodPost, "/api/v1/enrollments/user-1/go-101/progress",
		map[string]interface{}{
			"module_id": "m1", "content_id": "c1",
			"progress": 50, "time_spent_seconds": 300,
		}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeJSON(t, rec)
	assert.Equal(t, false, resp["course_completed"])
	assert.Equal(t, float64(50), resp["overall_progress"])

	rec = doRequest(t, s, http.MethodGet, "/api/v1/enrollments/user-1/go-101/progress", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestServer_BadRequestOnInvalidBody(t *testing.T) {
	s := newTestServer(t, DefaultConfig())

	rec := doRequest(t, s, http.MethodPost, "/api/v1/enrollments",
		map[string]string{"user_id": "user-1"}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/enrollments",
		bytes.NewBufferString("not json"))
	rec = httptest.NewRecorder()
	s.httpServer.Handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_NotFoundMapping(t *testing.T) {
	s := newTestServer(t, DefaultConfig())

	rec := doRequest(t, s, http.MethodGet, "/api/v1/enrollments/user-1/go-101/certificate", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// Unknown course on enroll is also a 404, from the catalog.
	rec = doRequest(t, s, http.MethodPost, "/api/v1/enrollments",
		map[string]string{"user_id": "user-1", "course_id": "no-such-course"}, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_APIKeyGuardsWrites(t *testing.T) {
	config := DefaultConfig()
	config.APIKeys = []string{"service-key"}
	s := newTestServer(t, config)

	enroll := map[string]string{"user_id": "user-1", "course_id": "go-101"}

	rec := doRequest(t, s, http.MethodPost, "/api/v1/enrollments", enroll, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doRequest(t, s, http.MethodPost, "/api/v1/enrollments", enroll,
		map[string]string{config.APIKeyHeader: "service-key"})
	assert.Equal(t, http.StatusCreated, rec.Code)

	// Reads stay open; they are served to the gateway unauthenticated.
	rec = doRequest(t, s, http.MethodGet, "/api/v1/users/user-1/usage", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestServer_HealthEndpoints(t *testing.T) {
	s := newTestServer(t, DefaultConfig())

	for _, path := range []string{"/health", "/healthz", "/ready", "/live"} {
		rec := doRequest(t, s, http.MethodGet, path, nil, nil)
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
}

func TestServer_DashboardEndpoint(t *testing.T) {
	s := newTestServer(t, DefaultConfig())

	rec := doRequest(t, s, http.MethodGet, "/api/v1/dashboards", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, s, http.MethodGet, "/api/v1/courses/go-101/dashboard", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code, "no events folded yet")
}
