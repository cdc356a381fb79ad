// Package authority is the client for the trusted remote aggregation
// service. Contexts that must not trust a locally computed course grade
// (transcript issuance, external reporting) fetch the server-authoritative
// result here; for identical inputs the two paths produce identical
// numbers, but only this one is non-bypassable.
package authority

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/northcampus/gradebook-backend/internal/observability"
	"github.com/northcampus/gradebook-backend/internal/platform/ctxutil"
	"github.com/northcampus/gradebook-backend/internal/platform/envutil"
	"github.com/northcampus/gradebook-backend/internal/platform/httpx"
	"github.com/northcampus/gradebook-backend/internal/platform/logger"
)

// CourseGradeResult is the authoritative aggregation outcome.
type CourseGradeResult struct {
	OverallScore  int       `json:"overall_score"`
	OverallPassed bool      `json:"overall_passed"`
	CalculatedAt  time.Time `json:"calculated_at"`
}

// TrustedCourseGradeSource fetches a non-bypassable course grade for a
// (learner, course) pair.
type TrustedCourseGradeSource interface {
	FetchCourseGrade(ctx context.Context, learnerID, courseID uuid.UUID) (*CourseGradeResult, error)
}

type Config struct {
	BaseURL    string
	Token      string
	Timeout    time.Duration
	MaxRetries int
}

func ConfigFromEnv() Config {
	timeoutSec := envutil.Int("AUTHORITY_TIMEOUT_SECONDS", 10)
	maxRetries := envutil.Int("AUTHORITY_MAX_RETRIES", 3)

	return Config{
		BaseURL:    strings.TrimSpace(os.Getenv("AUTHORITY_BASE_URL")),
		Token:      strings.TrimSpace(os.Getenv("AUTHORITY_TOKEN")),
		Timeout:    time.Duration(timeoutSec) * time.Second,
		MaxRetries: maxRetries,
	}
}

func NewFromEnv(log *logger.Logger, metrics *observability.Metrics) (TrustedCourseGradeSource, error) {
	return New(log, metrics, ConfigFromEnv())
}

func New(log *logger.Logger, metrics *observability.Metrics, cfg Config) (TrustedCourseGradeSource, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("missing AUTHORITY_BASE_URL")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}

	return &client{
		log:        log.With("client", "AuthorityClient"),
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		metrics:    metrics,
	}, nil
}

type client struct {
	log        *logger.Logger
	cfg        Config
	httpClient *http.Client
	metrics    *observability.Metrics
}

func (c *client) FetchCourseGrade(ctx context.Context, learnerID, courseID uuid.UUID) (*CourseGradeResult, error) {
	if c == nil || c.httpClient == nil {
		return nil, fmt.Errorf("authority client unavailable")
	}
	if learnerID == uuid.Nil || courseID == uuid.Nil {
		return nil, fmt.Errorf("authority: learner and course ids required")
	}

	start := time.Now()
	endpoint := fmt.Sprintf("%s/learners/%s/courses/%s/grade", c.cfg.BaseURL, learnerID, courseID)
	out, err := c.doGet(ctx, endpoint)
	c.observe("fetch_course_grade", err, time.Since(start))
	return out, err
}

func (c *client) observe(op string, err error, dur time.Duration) {
	if c.metrics == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
		var he *HTTPError
		if errors.As(err, &he) {
			status = fmt.Sprintf("http_%d", he.StatusCode)
		}
	}
	c.metrics.ObserveAuthorityRequest(op, status, dur)
}

// HTTPError is a non-2xx authority response.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	if e == nil {
		return "authority: <nil error>"
	}
	msg := strings.TrimSpace(e.Body)
	if msg == "" {
		msg = "<empty body>"
	}
	if len(msg) > 2000 {
		msg = msg[:2000] + "..."
	}
	return fmt.Sprintf("authority http %d: %s", e.StatusCode, msg)
}

func (e *HTTPError) HTTPStatusCode() int {
	if e == nil {
		return 0
	}
	return e.StatusCode
}

func (c *client) doGet(ctx context.Context, urlStr string) (*CourseGradeResult, error) {
	backoff := 500 * time.Millisecond

	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if ctx != nil && ctx.Err() != nil {
			return nil, ctx.Err()
		}

		out, resp, err := c.doGetOnce(ctx, urlStr)
		if err == nil {
			return out, nil
		}

		if !httpx.IsRetryableError(err) || attempt == c.cfg.MaxRetries {
			return nil, err
		}

		sleepFor := httpx.RetryAfterDuration(resp, backoff, 5*time.Second)
		sleepFor = httpx.JitterSleep(sleepFor)

		c.log.Warn("authority request retrying",
			"url", urlStr,
			"attempt", attempt+1,
			"max_retries", c.cfg.MaxRetries,
			"sleep", sleepFor.String(),
			"error", err.Error(),
		)

		time.Sleep(sleepFor)
		backoff *= 2
	}

	return nil, fmt.Errorf("unreachable retry loop")
}

func (c *client) doGetOnce(ctx context.Context, urlStr string) (*CourseGradeResult, *http.Response, error) {
	req, err := http.NewRequestWithContext(ctxutil.Default(ctx), http.MethodGet, urlStr, nil)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Accept", "application/json")
	if c.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, resp, err
	}

	raw, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return nil, resp, readErr
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, resp, &HTTPError{StatusCode: resp.StatusCode, Body: string(raw)}
	}

	var out CourseGradeResult
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, resp, fmt.Errorf("authority decode error: %w", err)
	}
	return &out, resp, nil
}
