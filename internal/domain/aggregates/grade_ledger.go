package aggregates

import (
	"context"

	"github.com/google/uuid"
	"github.com/northcampus/gradebook-backend/internal/domain/grading"
)

var GradeLedgerAggregateContract = Contract{
	Name:             "Grading.GradeLedgerAggregate",
	WriteTxOwnership: WriteTxOwnedByAggregate,
	ReadPolicy:       ReadPolicyInvariantScoped,
	Notes: "Owns the append-only grade_record ledger: entry, correction supersession " +
		"and visibility flips. Supersession is one-way and set exactly once.",
}

// GradeLedgerAggregate owns GradeRecord lifecycle invariants.
//
// Write method failures should return *aggregates.Error with codes:
// CodeValidation, CodeNotFound, CodeConflict, CodeInvariantViolation, CodeRetryable, CodeInternal.
type GradeLedgerAggregate interface {
	Aggregate

	// EnterGrade appends a brand-new current record for a (learner, module) pair.
	EnterGrade(ctx context.Context, in EnterGradeInput) (EnterGradeResult, error)

	// CorrectGrade atomically appends a correction record and retires the original.
	CorrectGrade(ctx context.Context, in CorrectGradeInput) (CorrectGradeResult, error)

	// SetGradeVisibility flips student visibility on an existing record.
	SetGradeVisibility(ctx context.Context, in SetGradeVisibilityInput) (SetGradeVisibilityResult, error)
}

type EnterGradeInput struct {
	LearnerID uuid.UUID
	CourseID  uuid.UUID
	ModuleID  uuid.UUID
	// Score is the raw mark; it is rounded and clamped into [0,100] at write.
	Score        float64
	PassingScore int
	GraderID     uuid.UUID
	GraderName   string
	Notes        string
}

type EnterGradeResult struct {
	Record *grading.GradeRecord
}

type CorrectGradeInput struct {
	OriginalGradeID  string
	NewScore         float64
	PassingScore     int
	CorrectionReason string
	GraderID         uuid.UUID
	GraderName       string
	Notes            string
}

type CorrectGradeResult struct {
	// Record is the new current record carrying CorrectionOf.
	Record *grading.GradeRecord
	// SupersededID is the retired original.
	SupersededID string
	// Attempts counts optimistic transaction tries, 1 when no contention.
	Attempts int
}

type SetGradeVisibilityInput struct {
	GradeID   string
	Visible   bool
	ActorID   uuid.UUID
	ActorName string
}

type SetGradeVisibilityResult struct {
	Record *grading.GradeRecord
}
