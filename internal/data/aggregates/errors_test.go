package aggregates

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	domainagg "github.com/northcampus/gradebook-backend/internal/domain/aggregates"
	"github.com/northcampus/gradebook-backend/internal/domain/grading"
)

func TestMapError_Validation(t *testing.T) {
	err := MapError("op", ValidationError("bad input"))
	if !domainagg.IsCode(err, domainagg.CodeValidation) {
		t.Fatalf("expected validation code, got %q (%v)", domainagg.CodeOf(err), err)
	}
}

func TestMapError_Conflict(t *testing.T) {
	err := MapError("op", ConflictError("already superseded"))
	if !domainagg.IsCode(err, domainagg.CodeConflict) {
		t.Fatalf("expected conflict code, got %q (%v)", domainagg.CodeOf(err), err)
	}
}

func TestMapError_Policy(t *testing.T) {
	err := MapError("op", PolicyError("module weights sum to 90, expected 100"))
	if !domainagg.IsCode(err, domainagg.CodePolicy) {
		t.Fatalf("expected policy code, got %q (%v)", domainagg.CodeOf(err), err)
	}
}

func TestMapError_NotFound(t *testing.T) {
	err := MapError("op", gorm.ErrRecordNotFound)
	if !domainagg.IsCode(err, domainagg.CodeNotFound) {
		t.Fatalf("expected not_found code, got %q (%v)", domainagg.CodeOf(err), err)
	}
}

func TestMapError_NoModules(t *testing.T) {
	err := MapError("op", grading.ErrNoModules)
	if !domainagg.IsCode(err, domainagg.CodePreconditionFailed) {
		t.Fatalf("expected precondition_failed code, got %q (%v)", domainagg.CodeOf(err), err)
	}
}

func TestMapError_ContextCanceled(t *testing.T) {
	err := MapError("op", context.Canceled)
	if !domainagg.IsCode(err, domainagg.CodeRetryable) {
		t.Fatalf("expected retryable code, got %q (%v)", domainagg.CodeOf(err), err)
	}
}

func TestMapError_PassthroughAggregateError(t *testing.T) {
	in := domainagg.NewError(domainagg.CodeRetryable, "op", "retry", errors.New("boom"))
	out := MapError("other", in)
	if out != in {
		t.Fatalf("expected passthrough aggregate error")
	}
}

func TestMapError_PostgresCodes(t *testing.T) {
	cases := []struct {
		pgCode string
		want   domainagg.ErrorCode
	}{
		{"23505", domainagg.CodeConflict},
		{"23503", domainagg.CodePreconditionFailed},
		{"40001", domainagg.CodeRetryable},
		{"40P01", domainagg.CodeRetryable},
		{"55P03", domainagg.CodeRetryable},
	}
	for _, tc := range cases {
		err := MapError("op", fmt.Errorf("insert grade_record: %w", &pgconn.PgError{Code: tc.pgCode}))
		if !domainagg.IsCode(err, tc.want) {
			t.Fatalf("pg code %s: want=%s got=%q (%v)", tc.pgCode, tc.want, domainagg.CodeOf(err), err)
		}
	}
}

func TestMapError_MessageFallbacks(t *testing.T) {
	if err := MapError("op", errors.New("ERROR: duplicate key value violates unique constraint")); !domainagg.IsCode(err, domainagg.CodeConflict) {
		t.Fatalf("duplicate key fallback: got %q (%v)", domainagg.CodeOf(err), err)
	}
	if err := MapError("op", errors.New("deadlock detected")); !domainagg.IsCode(err, domainagg.CodeRetryable) {
		t.Fatalf("deadlock fallback: got %q (%v)", domainagg.CodeOf(err), err)
	}
	if err := MapError("op", errors.New("something unexpected")); !domainagg.IsCode(err, domainagg.CodeInternal) {
		t.Fatalf("unknown fallback: got %q (%v)", domainagg.CodeOf(err), err)
	}
}
