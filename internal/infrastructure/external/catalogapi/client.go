// Package catalogapi implements the Course Catalog API client.
// This package handles all communication with the Course Catalog service:
// fetching course structure and assessment definitions. The enrollment
// hub never writes to the catalog.
package catalogapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/learnhub/enrollment-hub/internal/domain/assessment"
	"github.com/learnhub/enrollment-hub/internal/domain/catalog"
	"github.com/learnhub/enrollment-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// ClientConfig contains configuration for the catalog API client.
type ClientConfig struct {
	// BaseURL is the catalog API base URL
	BaseURL string

	// APIKey is the API key for authentication
	APIKey string

	// Timeout is the HTTP request timeout
	Timeout time.Duration

	// RateLimiterConfig for API rate limiting
	RateLimiterConfig RateLimiterConfig

	// CircuitBreakerConfig for fault tolerance
	CircuitBreakerConfig CircuitBreakerConfig

	// RetryConfig for retry behavior
	RetryConfig RetryConfig

	// Logger for structured logging
	Logger *slog.Logger

	// Debug enables debug logging
	Debug bool
}

// DefaultClientConfig returns sensible defaults.
func DefaultClientConfig(baseURL string) ClientConfig {
	return ClientConfig{
		BaseURL:              baseURL,
		Timeout:              15 * time.Second,
		RateLimiterConfig:    DefaultRateLimiterConfig(),
		CircuitBreakerConfig: DefaultCircuitBreakerConfig(),
		RetryConfig:          DefaultRetryConfig(),
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// CLIENT
// ══════════════════════════════════════════════════════════════════════════════

// Client is the Course Catalog API client. It implements catalog.Reader.
type Client struct {
	config         ClientConfig
	httpClient     *http.Client
	logger         *slog.Logger
	rateLimiter    *RateLimiter
	circuitBreaker *CircuitBreaker
	mapper         *Mapper
}

// compile-time check
var _ catalog.Reader = (*Client)(nil)

// NewClient creates a new catalog API client.
func NewClient(config ClientConfig) *Client {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		logger:         config.Logger,
		rateLimiter:    NewRateLimiter(config.RateLimiterConfig),
		circuitBreaker: NewCircuitBreaker(config.CircuitBreakerConfig),
		mapper:         NewMapper(),
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// COURSE OPERATIONS
// ══════════════════════════════════════════════════════════════════════════════

// GetCourseStructure fetches a course layout. Implements catalog.Reader.
func (c *Client) GetCourseStructure(ctx context.Context, courseID shared.CourseID) (*catalog.CourseStructure, error) {
	path := fmt.Sprintf("/api/v1/courses/%s/structure", url.PathEscape(courseID.String()))

	var response APIResponse[CourseStructureDTO]
	if err := c.doRequest(ctx, http.MethodGet, path, nil, &response); err != nil {
		if isNotFoundError(err) {
			return nil, catalog.ErrCourseNotFound
		}
		return nil, fmt.Errorf("get course structure %s: %w", courseID, err)
	}

	if !response.Success {
		return nil, fmt.Errorf("get course structure %s: api error: %s", courseID, response.Error)
	}

	return c.mapper.CourseStructureFromDTO(&response.Data)
}

// GetAssessment fetches an assessment definition. Implements catalog.Reader.
func (c *Client) GetAssessment(ctx context.Context, id shared.AssessmentID) (*assessment.Assessment, error) {
	path := fmt.Sprintf("/api/v1/assessments/%s", url.PathEscape(id.String()))

	var response APIResponse[AssessmentDTO]
	if err := c.doRequest(ctx, http.MethodGet, path, nil, &response); err != nil {
		if isNotFoundError(err) {
			return nil, assessment.ErrAssessmentNotFound
		}
		return nil, fmt.Errorf("get assessment %s: %w", id, err)
	}

	if !response.Success {
		return nil, fmt.Errorf("get assessment %s: api error: %s", id, response.Error)
	}

	return c.mapper.AssessmentFromDTO(&response.Data)
}

// ListCourses fetches course summaries, handling pagination.
func (c *Client) ListCourses(ctx context.Context) ([]CourseSummaryDTO, error) {
	var all []CourseSummaryDTO
	page := 1
	perPage := 100

	for {
		params := url.Values{}
		params.Set("page", strconv.Itoa(page))
		params.Set("per_page", strconv.Itoa(perPage))

		var response APIResponse[[]CourseSummaryDTO]
		if err := c.doRequest(ctx, http.MethodGet, "/api/v1/courses?"+params.Encode(), nil, &response); err != nil {
			return nil, fmt.Errorf("list courses page %d: %w", page, err)
		}
		if !response.Success {
			return nil, fmt.Errorf("list courses: api error: %s", response.Error)
		}

		all = append(all, response.Data...)

		if len(response.Data) < perPage || (response.Meta != nil && page >= response.Meta.TotalPages) {
			break
		}
		page++
	}

	return all, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// HTTP REQUEST HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// doRequest performs an HTTP request with rate limiting, circuit breaking, and retries.
func (c *Client) doRequest(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	// Check circuit breaker
	if err := c.circuitBreaker.Allow(); err != nil {
		return fmt.Errorf("circuit breaker: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= c.config.RetryConfig.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := c.config.RetryConfig.CalculateBackoff(attempt)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
		}

		// Wait for rate limiter
		if err := c.rateLimiter.Allow(ctx); err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}

		err := c.doSingleRequest(ctx, method, path, body, result)
		if err == nil {
			c.circuitBreaker.RecordSuccess()
			return nil
		}

		lastErr = err

		// Check if error is retryable
		if !c.isRetryable(err) {
			c.circuitBreaker.RecordFailure()
			return err
		}

		// Handle rate limit response
		var rateLimitErr *RateLimitError
		if errors.As(err, &rateLimitErr) {
			c.rateLimiter.RecordRateLimitHit(rateLimitErr.RetryAfter)
		}
	}

	c.circuitBreaker.RecordFailure()
	return fmt.Errorf("request failed after %d retries: %w", c.config.RetryConfig.MaxRetries, lastErr)
}

// doSingleRequest performs a single HTTP request.
func (c *Client) doSingleRequest(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	fullURL := c.config.BaseURL + path

	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, bodyReader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	if c.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}

	if c.config.Debug {
		c.logger.Debug("catalog api request", "method", method, "path", path)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	// Handle rate limiting
	if resp.StatusCode == http.StatusTooManyRequests {
		retryAfter := 30 * time.Second
		if ra := resp.Header.Get("Retry-After"); ra != "" {
			if seconds, err := strconv.Atoi(ra); err == nil {
				retryAfter = time.Duration(seconds) * time.Second
			}
		}
		return &RateLimitError{
			RetryAfter: retryAfter,
			Message:    "rate limit exceeded",
		}
	}

	// Handle error responses
	if resp.StatusCode >= 400 {
		apiErr := &APIErrorDTO{Status: resp.StatusCode}
		if err := json.Unmarshal(respBody, apiErr); err != nil || apiErr.Message == "" {
			apiErr.Code = "HTTP_ERROR"
			apiErr.Message = fmt.Sprintf("status %d", resp.StatusCode)
		}
		return apiErr
	}

	// Unmarshal response
	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}

	return nil
}

// isRetryable checks if an error is retryable.
func (c *Client) isRetryable(err error) bool {
	if err == nil {
		return false
	}

	// Rate limit errors are retryable
	var rateLimitErr *RateLimitError
	if errors.As(err, &rateLimitErr) {
		return true
	}

	// API errors - only server-side failures are retryable
	var apiErr *APIErrorDTO
	if errors.As(err, &apiErr) {
		return apiErr.Status >= 500
	}

	// Network errors are generally retryable
	errStr := err.Error()
	for _, marker := range []string{"timeout", "connection refused", "temporary", "reset", "EOF"} {
		if strings.Contains(errStr, marker) {
			return true
		}
	}
	return false
}

// isNotFoundError reports whether the error is a catalog 404.
func isNotFoundError(err error) bool {
	var apiErr *APIErrorDTO
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH AND STATUS
// ══════════════════════════════════════════════════════════════════════════════

// IsHealthy checks if the catalog API is reachable.
func (c *Client) IsHealthy(ctx context.Context) bool {
	var response APIResponse[map[string]interface{}]
	err := c.doSingleRequest(ctx, http.MethodGet, "/api/v1/health", nil, &response)
	return err == nil && response.Success
}

// ClientStatus is the current status of the client.
type ClientStatus struct {
	RateLimiter    RateLimiterStatus
	CircuitBreaker CircuitBreakerStatus
	IsHealthy      bool
}

// Status returns the current status of the client.
func (c *Client) Status(ctx context.Context) ClientStatus {
	return ClientStatus{
		RateLimiter:    c.rateLimiter.Status(),
		CircuitBreaker: c.circuitBreaker.Status(),
		IsHealthy:      c.IsHealthy(ctx),
	}
}

// Reset resets the rate limiter and circuit breaker.
func (c *Client) Reset() {
	c.rateLimiter.Reset()
	c.circuitBreaker.Reset()
}
