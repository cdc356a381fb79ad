package authority

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"

	repotest "github.com/northcampus/gradebook-backend/internal/data/repos/testutil"
)

func TestFetchCourseGradeDecodesResult(t *testing.T) {
	learnerID := uuid.New()
	courseID := uuid.New()
	calculatedAt := time.Now().UTC().Truncate(time.Second)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		wantPath := fmt.Sprintf("/learners/%s/courses/%s/grade", learnerID, courseID)
		if r.URL.Path != wantPath {
			t.Errorf("path: want=%s got=%s", wantPath, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("authorization header: got=%q", got)
		}
		_ = json.NewEncoder(w).Encode(CourseGradeResult{
			OverallScore:  84,
			OverallPassed: true,
			CalculatedAt:  calculatedAt,
		})
	}))
	defer srv.Close()

	src, err := New(repotest.Logger(t), nil, Config{BaseURL: srv.URL, Token: "secret"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	got, err := src.FetchCourseGrade(context.Background(), learnerID, courseID)
	if err != nil {
		t.Fatalf("FetchCourseGrade: %v", err)
	}
	if got.OverallScore != 84 || !got.OverallPassed {
		t.Fatalf("result: %+v", got)
	}
	if !got.CalculatedAt.Equal(calculatedAt) {
		t.Fatalf("calculated_at: want=%s got=%s", calculatedAt, got.CalculatedAt)
	}
}

func TestFetchCourseGradeRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "try later", http.StatusServiceUnavailable)
			return
		}
		_ = json.NewEncoder(w).Encode(CourseGradeResult{OverallScore: 72})
	}))
	defer srv.Close()

	src, err := New(repotest.Logger(t), nil, Config{BaseURL: srv.URL, MaxRetries: 3})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	got, err := src.FetchCourseGrade(context.Background(), uuid.New(), uuid.New())
	if err != nil {
		t.Fatalf("FetchCourseGrade after retries: %v", err)
	}
	if got.OverallScore != 72 {
		t.Fatalf("result: %+v", got)
	}
	if n := calls.Load(); n != 3 {
		t.Fatalf("server calls: want=3 got=%d", n)
	}
}

func TestFetchCourseGradeClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "no such learner", http.StatusNotFound)
	}))
	defer srv.Close()

	src, err := New(repotest.Logger(t), nil, Config{BaseURL: srv.URL, MaxRetries: 3})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	_, err = src.FetchCourseGrade(context.Background(), uuid.New(), uuid.New())
	if err == nil {
		t.Fatalf("expected error")
	}
	var he *HTTPError
	if !errors.As(err, &he) || he.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 HTTPError, got %v", err)
	}
	if n := calls.Load(); n != 1 {
		t.Fatalf("client errors must not retry: calls=%d", n)
	}
}

func TestNewRequiresBaseURL(t *testing.T) {
	if _, err := New(repotest.Logger(t), nil, Config{}); err == nil {
		t.Fatalf("expected missing base URL error")
	}
}

func TestFetchCourseGradeValidatesIDs(t *testing.T) {
	src, err := New(repotest.Logger(t), nil, Config{BaseURL: "http://authority.invalid"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := src.FetchCourseGrade(context.Background(), uuid.Nil, uuid.New()); err == nil {
		t.Fatalf("expected id validation error")
	}
}
