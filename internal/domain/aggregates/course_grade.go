package aggregates

import (
	"context"

	"github.com/google/uuid"
	"github.com/northcampus/gradebook-backend/internal/domain/grading"
)

var CourseGradeAggregateContract = Contract{
	Name:             "Grading.CourseGradeAggregate",
	WriteTxOwnership: WriteTxOwnedByAggregate,
	ReadPolicy:       ReadPolicyInvariantScoped,
	Notes: "Owns course_grade_snapshot persistence: one atomic upsert per explicit " +
		"calculate-and-save, never a partial write.",
}

// CourseGradeAggregate owns CourseGradeSnapshot persistence invariants.
//
// Write method failures should return *aggregates.Error with codes:
// CodeValidation, CodeNotFound, CodePreconditionFailed, CodePolicy, CodeRetryable, CodeInternal.
type CourseGradeAggregate interface {
	Aggregate

	// CalculateAndSave recomputes the course grade from current ledger state
	// and upserts the snapshot. It refuses with CodePolicy when module
	// weights do not sum to 100, and with CodePreconditionFailed when the
	// course has no modules.
	CalculateAndSave(ctx context.Context, in CalculateAndSaveInput) (CalculateAndSaveResult, error)
}

type CalculateAndSaveInput struct {
	LearnerID uuid.UUID
	CourseID  uuid.UUID
	ActorID   uuid.UUID
	ActorName string
}

type CalculateAndSaveResult struct {
	Snapshot    *grading.CourseGradeSnapshot
	Calculation *grading.CourseGradeCalculation
}
