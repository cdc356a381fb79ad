package aggregates

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/northcampus/gradebook-backend/internal/data/repos"
	types "github.com/northcampus/gradebook-backend/internal/domain"
	domainagg "github.com/northcampus/gradebook-backend/internal/domain/aggregates"
	"github.com/northcampus/gradebook-backend/internal/domain/grading"
	"github.com/northcampus/gradebook-backend/internal/platform/dbctx"
)

type GradeLedgerAggregateDeps struct {
	Base BaseDeps

	Grades repos.GradeRecordRepo
}

type gradeLedgerAggregate struct {
	deps GradeLedgerAggregateDeps
}

func NewGradeLedgerAggregate(deps GradeLedgerAggregateDeps) domainagg.GradeLedgerAggregate {
	deps.Base = deps.Base.withDefaults()
	return &gradeLedgerAggregate{deps: deps}
}

func (a *gradeLedgerAggregate) Contract() domainagg.Contract {
	return domainagg.GradeLedgerAggregateContract
}

func (a *gradeLedgerAggregate) EnterGrade(ctx context.Context, in domainagg.EnterGradeInput) (domainagg.EnterGradeResult, error) {
	const op = "Grading.Ledger.EnterGrade"
	var out domainagg.EnterGradeResult
	if in.LearnerID == uuid.Nil {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "missing learner_id", nil)
	}
	if in.CourseID == uuid.Nil {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "missing course_id", nil)
	}
	if in.ModuleID == uuid.Nil {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "missing module_id", nil)
	}
	if in.GraderID == uuid.Nil {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "missing grader_id", nil)
	}
	graderName := strings.TrimSpace(in.GraderName)
	if graderName == "" {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "missing grader_name", nil)
	}
	if in.PassingScore < 0 || in.PassingScore > 100 {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "passing_score must be between 0 and 100", nil)
	}
	if a.deps.Grades == nil {
		return out, domainagg.NewError(domainagg.CodeInternal, op, "grade ledger repos not configured", nil)
	}

	score := grading.ClampScore(in.Score)

	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		gradedAt := time.Now().UTC()
		rec := &types.GradeRecord{
			ID:               grading.NewGradeRecordID(in.LearnerID, in.ModuleID, gradedAt),
			LearnerID:        in.LearnerID,
			ModuleID:         in.ModuleID,
			CourseID:         in.CourseID,
			Score:            score,
			PassingScore:     in.PassingScore,
			Passed:           grading.EvaluatePassed(score, in.PassingScore),
			GraderID:         in.GraderID,
			GraderName:       graderName,
			GradedAt:         gradedAt,
			Notes:            strings.TrimSpace(in.Notes),
			VisibleToStudent: true,
		}
		if _, err := a.deps.Grades.Create(dbc, []*types.GradeRecord{rec}); err != nil {
			return err
		}
		out.Record = rec
		return nil
	})
	if err != nil {
		return domainagg.EnterGradeResult{}, err
	}
	return out, nil
}

func (a *gradeLedgerAggregate) CorrectGrade(ctx context.Context, in domainagg.CorrectGradeInput) (domainagg.CorrectGradeResult, error) {
	const op = "Grading.Ledger.CorrectGrade"
	var out domainagg.CorrectGradeResult
	originalID := strings.TrimSpace(in.OriginalGradeID)
	if originalID == "" {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "missing original_grade_id", nil)
	}
	reason := strings.TrimSpace(in.CorrectionReason)
	if reason == "" {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "missing correction_reason", nil)
	}
	if in.GraderID == uuid.Nil {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "missing grader_id", nil)
	}
	graderName := strings.TrimSpace(in.GraderName)
	if graderName == "" {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "missing grader_name", nil)
	}
	if in.PassingScore < 0 || in.PassingScore > 100 {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "passing_score must be between 0 and 100", nil)
	}
	if a.deps.Grades == nil {
		return out, domainagg.NewError(domainagg.CodeInternal, op, "grade ledger repos not configured", nil)
	}

	score := grading.ClampScore(in.NewScore)

	// One attempt is one whole read-compute-write transaction. Both writes
	// commit together or the attempt leaves no trace.
	attempts, err := executeOptimisticWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		original, err := a.deps.Grades.LockByID(dbc, originalID)
		if err != nil {
			return err
		}
		if original == nil {
			return domainagg.NewError(domainagg.CodeNotFound, op, fmt.Sprintf("grade record not found: %s", originalID), nil)
		}
		if original.SupersededBy != nil {
			return ConflictError(fmt.Sprintf("grade record already superseded by %s; correct the current record instead", *original.SupersededBy))
		}

		gradedAt := time.Now().UTC()
		replacement := &types.GradeRecord{
			ID:               grading.NewGradeRecordID(original.LearnerID, original.ModuleID, gradedAt),
			LearnerID:        original.LearnerID,
			ModuleID:         original.ModuleID,
			CourseID:         original.CourseID,
			Score:            score,
			PassingScore:     in.PassingScore,
			Passed:           grading.EvaluatePassed(score, in.PassingScore),
			GraderID:         in.GraderID,
			GraderName:       graderName,
			GradedAt:         gradedAt,
			Notes:            strings.TrimSpace(in.Notes),
			VisibleToStudent: true,
			CorrectionOf:     &original.ID,
			CorrectionReason: reason,
		}
		if _, err := a.deps.Grades.Create(dbc, []*types.GradeRecord{replacement}); err != nil {
			return err
		}

		ok, err := a.deps.Base.Guard.SupersedeIfCurrent(dbc, original.ID, replacement.ID)
		if err != nil {
			return err
		}
		if !ok {
			// The row was current under lock but the conditional write
			// missed. Retry re-reads and settles on a terminal outcome.
			return RetryableError("grade record changed while correcting")
		}

		out.Record = replacement
		out.SupersededID = original.ID
		return nil
	})
	out.Attempts = attempts
	if err != nil {
		return domainagg.CorrectGradeResult{Attempts: attempts}, err
	}
	return out, nil
}

func (a *gradeLedgerAggregate) SetGradeVisibility(ctx context.Context, in domainagg.SetGradeVisibilityInput) (domainagg.SetGradeVisibilityResult, error) {
	const op = "Grading.Ledger.SetGradeVisibility"
	var out domainagg.SetGradeVisibilityResult
	gradeID := strings.TrimSpace(in.GradeID)
	if gradeID == "" {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "missing grade_id", nil)
	}
	if in.ActorID == uuid.Nil {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "missing actor_id", nil)
	}
	if strings.TrimSpace(in.ActorName) == "" {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "missing actor_name", nil)
	}
	if a.deps.Grades == nil {
		return out, domainagg.NewError(domainagg.CodeInternal, op, "grade ledger repos not configured", nil)
	}

	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		rec, err := a.deps.Grades.LockByID(dbc, gradeID)
		if err != nil {
			return err
		}
		if rec == nil {
			return domainagg.NewError(domainagg.CodeNotFound, op, fmt.Sprintf("grade record not found: %s", gradeID), nil)
		}
		if rec.VisibleToStudent != in.Visible {
			err := a.deps.Grades.UpdateFields(dbc, rec.ID, map[string]interface{}{
				"visible_to_student": in.Visible,
				"updated_at":         time.Now().UTC(),
			})
			if err != nil {
				return err
			}
			rec.VisibleToStudent = in.Visible
		}
		out.Record = rec
		return nil
	})
	if err != nil {
		return domainagg.SetGradeVisibilityResult{}, err
	}
	return out, nil
}
