// Package http implements the REST API for the enrollment hub.
package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/learnhub/enrollment-hub/internal/application/command"
	"github.com/learnhub/enrollment-hub/internal/application/query"
	"github.com/learnhub/enrollment-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH & STATUS HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleRoot serves the root endpoint with basic API information.
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	info := map[string]interface{}{
		"name":        "Enrollment Hub API",
		"version":     "v1",
		"description": "Course enrollment lifecycle: enrollments, progress, assessments, certificates",
		"endpoints": map[string]string{
			"health":      "/health",
			"enrollments": "/api/v1/enrollments",
			"dashboards":  "/api/v1/dashboards",
		},
	}

	writeJSON(w, http.StatusOK, info)
}

// handleHealth handles the health check endpoint.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.deps.HealthChecker != nil {
		status := s.deps.HealthChecker.Check(r.Context())
		if !status.Healthy {
			writeJSON(w, http.StatusServiceUnavailable, status)
			return
		}
		writeJSON(w, http.StatusOK, status)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "healthy",
		"uptime":  s.Uptime().String(),
		"version": "v1",
	})
}

// handleReady handles the readiness probe endpoint (for Kubernetes).
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.deps.HealthChecker != nil {
		status := s.deps.HealthChecker.Check(r.Context())
		if !status.Ready {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not_ready",
				"reason": status.Message,
			})
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// handleLive handles the liveness probe endpoint (for Kubernetes).
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

// ══════════════════════════════════════════════════════════════════════════════
// ENROLLMENT COMMAND HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// enrollRequest is the POST /api/v1/enrollments body.
type enrollRequest struct {
	UserID   string `json:"user_id"`
	CourseID string `json:"course_id"`
}

// handleEnroll handles POST /api/v1/enrollments
func (s *Server) handleEnroll(w http.ResponseWriter, r *http.Request) {
	if s.deps.EnrollHandler == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Enroll handler not configured")
		return
	}

	var req enrollRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	cmd := command.EnrollCommand{
		UserID:        req.UserID,
		CourseID:      req.CourseID,
		CorrelationID: getRequestID(r.Context()),
	}
	if err := cmd.Validate(); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	result, err := s.deps.EnrollHandler.Handle(r.Context(), cmd)
	if err != nil {
		s.writeDomainError(w, r, err, "failed to enroll")
		return
	}

	status := http.StatusCreated
	if result.Reactivated {
		status = http.StatusOK
	}
	writeJSON(w, status, map[string]interface{}{
		"user_id":     result.Enrollment.UserID,
		"course_id":   result.Enrollment.CourseID,
		"status":      result.Enrollment.Status,
		"reactivated": result.Reactivated,
		"enrolled_at": result.EnrolledAt,
	})
}

// handleDrop handles DELETE /api/v1/enrollments/{user_id}/{course_id}
func (s *Server) handleDrop(w http.ResponseWriter, r *http.Request) {
	if s.deps.DropHandler == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Drop handler not configured")
		return
	}

	cmd := command.DropCommand{
		UserID:        r.PathValue("user_id"),
		CourseID:      r.PathValue("course_id"),
		CorrelationID: getRequestID(r.Context()),
	}
	if err := cmd.Validate(); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	result, err := s.deps.DropHandler.Handle(r.Context(), cmd)
	if err != nil {
		s.writeDomainError(w, r, err, "failed to drop enrollment")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"user_id":    result.Enrollment.UserID,
		"course_id":  result.Enrollment.CourseID,
		"status":     result.Enrollment.Status,
		"dropped_at": result.DroppedAt,
	})
}

// recordProgressRequest is the progress POST body.
type recordProgressRequest struct {
	ModuleID         string `json:"module_id"`
	ContentID        string `json:"content_id"`
	Progress         int    `json:"progress"`
	TimeSpentSeconds int64  `json:"time_spent_seconds"`
	Action           string `json:"action,omitempty"`
}

// handleRecordProgress handles POST /api/v1/enrollments/{user_id}/{course_id}/progress
func (s *Server) handleRecordProgress(w http.ResponseWriter, r *http.Request) {
	if s.deps.RecordContentProgressHandler == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Progress handler not configured")
		return
	}

	var req recordProgressRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	cmd := command.RecordContentProgressCommand{
		UserID:           r.PathValue("user_id"),
		CourseID:         r.PathValue("course_id"),
		ModuleID:         req.ModuleID,
		ContentID:        req.ContentID,
		Progress:         req.Progress,
		TimeSpentSeconds: req.TimeSpentSeconds,
		Action:           command.ContentAction(req.Action),
		CorrelationID:    getRequestID(r.Context()),
	}
	if err := cmd.Validate(); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	result, err := s.deps.RecordContentProgressHandler.Handle(r.Context(), cmd)
	if err != nil {
		s.writeDomainError(w, r, err, "failed to record progress")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"module_id":        result.Record.Key.ModuleID,
		"content_id":       result.Record.Key.ContentID,
		"status":           result.Record.Status,
		"overall_progress": result.OverallProgress,
		"course_completed": result.CourseCompleted,
		"recorded_at":      result.RecordedAt,
	})
}

// submitAssessmentRequest is the assessment POST body.
type submitAssessmentRequest struct {
	Answers []struct {
		QuestionID string `json:"question_id"`
		Value      string `json:"value"`
	} `json:"answers"`
	CompletionTimeSeconds int64 `json:"completion_time_seconds"`
}

// handleSubmitAssessment handles POST /api/v1/enrollments/{user_id}/{course_id}/assessments/{assessment_id}
func (s *Server) handleSubmitAssessment(w http.ResponseWriter, r *http.Request) {
	if s.deps.SubmitAssessmentHandler == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Assessment handler not configured")
		return
	}

	var req submitAssessmentRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	answers := make([]command.AnswerInput, 0, len(req.Answers))
	for _, a := range req.Answers {
		answers = append(answers, command.AnswerInput{
			QuestionID: a.QuestionID,
			Value:      a.Value,
		})
	}

	cmd := command.SubmitAssessmentCommand{
		UserID:                r.PathValue("user_id"),
		CourseID:              r.PathValue("course_id"),
		AssessmentID:          r.PathValue("assessment_id"),
		Answers:               answers,
		CompletionTimeSeconds: req.CompletionTimeSeconds,
		CorrelationID:         getRequestID(r.Context()),
	}
	if err := cmd.Validate(); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	result, err := s.deps.SubmitAssessmentHandler.Handle(r.Context(), cmd)
	if err != nil {
		s.writeDomainError(w, r, err, "failed to submit assessment")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"score":         result.Score,
		"passed":        result.Passed,
		"earned_points": result.EarnedPoints,
		"max_points":    result.MaxPoints,
		"feedback":      result.Feedback,
		"attempt":       result.Attempt,
		"submitted_at":  result.SubmittedAt,
	})
}

// handleIssueCertificate handles POST /api/v1/enrollments/{user_id}/{course_id}/certificate
func (s *Server) handleIssueCertificate(w http.ResponseWriter, r *http.Request) {
	if s.deps.IssueCertificateHandler == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Certificate handler not configured")
		return
	}

	cmd := command.IssueCertificateCommand{
		UserID:        r.PathValue("user_id"),
		CourseID:      r.PathValue("course_id"),
		CorrelationID: getRequestID(r.Context()),
	}
	if err := cmd.Validate(); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	result, err := s.deps.IssueCertificateHandler.Handle(r.Context(), cmd)
	if err != nil {
		s.writeDomainError(w, r, err, "failed to issue certificate")
		return
	}

	status := http.StatusCreated
	if result.AlreadyIssued {
		// Idempotent re-request: same certificate, same response shape.
		status = http.StatusOK
	}
	writeJSON(w, status, map[string]interface{}{
		"user_id":            result.Certificate.UserID,
		"course_id":          result.Certificate.CourseID,
		"certificate_number": result.Certificate.Number,
		"issued_at":          result.Certificate.IssuedAt,
		"already_issued":     result.AlreadyIssued,
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// READ SIDE HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleGetProgress handles GET /api/v1/enrollments/{user_id}/{course_id}/progress
func (s *Server) handleGetProgress(w http.ResponseWriter, r *http.Request) {
	if s.deps.GetOverallProgressHandler == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Progress query not configured")
		return
	}

	q := query.GetOverallProgressQuery{
		UserID:       r.PathValue("user_id"),
		CourseID:     r.PathValue("course_id"),
		IncludeItems: getQueryParamBool(r, "include_items"),
	}

	result, err := s.deps.GetOverallProgressHandler.Handle(r.Context(), q)
	if err != nil {
		s.writeDomainError(w, r, err, "failed to get progress")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleGetCertificate handles GET /api/v1/enrollments/{user_id}/{course_id}/certificate
func (s *Server) handleGetCertificate(w http.ResponseWriter, r *http.Request) {
	if s.deps.GetCertificateHandler == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Certificate query not configured")
		return
	}

	q := query.GetCertificateQuery{
		UserID:   r.PathValue("user_id"),
		CourseID: r.PathValue("course_id"),
	}

	result, err := s.deps.GetCertificateHandler.Handle(r.Context(), q)
	if err != nil {
		s.writeDomainError(w, r, err, "failed to get certificate")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleGetCertificateByNumber handles GET /api/v1/certificates/{number}
// Public verification endpoint: certificate numbers are self-checking, so
// anyone holding a number can confirm it without authentication.
func (s *Server) handleGetCertificateByNumber(w http.ResponseWriter, r *http.Request) {
	if s.deps.GetCertificateHandler == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Certificate query not configured")
		return
	}

	q := query.GetCertificateQuery{
		Number: r.PathValue("number"),
	}

	result, err := s.deps.GetCertificateHandler.Handle(r.Context(), q)
	if err != nil {
		s.writeDomainError(w, r, err, "failed to get certificate")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleGetLearningPattern handles GET /api/v1/enrollments/{user_id}/{course_id}/pattern
func (s *Server) handleGetLearningPattern(w http.ResponseWriter, r *http.Request) {
	if s.deps.GetLearningPatternHandler == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Pattern query not configured")
		return
	}

	q := query.GetLearningPatternQuery{
		UserID:   r.PathValue("user_id"),
		CourseID: r.PathValue("course_id"),
	}

	result, err := s.deps.GetLearningPatternHandler.Handle(r.Context(), q)
	if err != nil {
		s.writeDomainError(w, r, err, "failed to get learning pattern")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleGetUsageSummary handles GET /api/v1/users/{user_id}/usage
func (s *Server) handleGetUsageSummary(w http.ResponseWriter, r *http.Request) {
	if s.deps.GetUsageSummaryHandler == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Usage query not configured")
		return
	}

	q := query.GetUsageSummaryQuery{
		UserID:       r.PathValue("user_id"),
		ForceRefresh: getQueryParamBool(r, "refresh"),
	}

	result, err := s.deps.GetUsageSummaryHandler.Handle(r.Context(), q)
	if err != nil {
		s.writeDomainError(w, r, err, "failed to get usage summary")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// ══════════════════════════════════════════════════════════════════════════════
// DASHBOARD HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleGetCourseDashboard handles GET /api/v1/courses/{course_id}/dashboard
func (s *Server) handleGetCourseDashboard(w http.ResponseWriter, r *http.Request) {
	if s.deps.DashboardView == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Dashboard view not configured")
		return
	}

	courseID := r.PathValue("course_id")
	dashboard, ok := s.deps.DashboardView.GetCourse(courseID)
	if !ok {
		writeJSONError(w, http.StatusNotFound, "not_found", "No dashboard data for course")
		return
	}

	writeJSON(w, http.StatusOK, dashboard)
}

// handleListDashboards handles GET /api/v1/dashboards
func (s *Server) handleListDashboards(w http.ResponseWriter, r *http.Request) {
	if s.deps.DashboardView == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Dashboard view not configured")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"courses":      s.deps.DashboardView.ListCourses(),
		"version":      s.deps.DashboardView.Version(),
		"last_updated": s.deps.DashboardView.LastUpdated(),
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// SHARED HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// decodeBody decodes a JSON request body, writing a 400 on failure.
func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	defer r.Body.Close()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Failed to read request body")
		return false
	}
	if len(body) == 0 {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Request body is required")
		return false
	}
	if err := json.Unmarshal(body, dst); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON payload")
		return false
	}
	return true
}

// writeDomainError maps domain error kinds onto HTTP statuses. Anything not
// recognizably a client problem is a 500 with the detail kept in the log,
// not the response.
func (s *Server) writeDomainError(w http.ResponseWriter, r *http.Request, err error, logMsg string) {
	switch {
	case shared.IsNotFound(err):
		writeJSONError(w, http.StatusNotFound, "not_found", err.Error())
	case shared.IsAlreadyExists(err):
		writeJSONError(w, http.StatusConflict, "conflict", err.Error())
	case errors.Is(err, shared.ErrInvalidState) || errors.Is(err, shared.ErrStateTransition):
		writeJSONError(w, http.StatusConflict, "invalid_state", err.Error())
	case shared.IsValidation(err) || errors.Is(err, shared.ErrInvalidFormat):
		writeJSONError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, shared.ErrRateLimited):
		writeJSONError(w, http.StatusTooManyRequests, "rate_limited", err.Error())
	case shared.IsExternalService(err):
		s.logger.Error(logMsg, "error", err, "request_id", getRequestID(r.Context()))
		writeJSONError(w, http.StatusBadGateway, "upstream_error", "A dependent service is unavailable")
	default:
		s.logger.Error(logMsg, "error", err, "request_id", getRequestID(r.Context()))
		writeJSONError(w, http.StatusInternalServerError, "internal_error", "An unexpected error occurred")
	}
}
