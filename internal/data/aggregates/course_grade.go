package aggregates

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/northcampus/gradebook-backend/internal/data/repos"
	domainagg "github.com/northcampus/gradebook-backend/internal/domain/aggregates"
	"github.com/northcampus/gradebook-backend/internal/domain/grading"
	"github.com/northcampus/gradebook-backend/internal/platform/dbctx"
)

type CourseGradeAggregateDeps struct {
	Base BaseDeps

	Modules   repos.CourseModuleRepo
	Grades    repos.GradeRecordRepo
	Snapshots repos.CourseGradeSnapshotRepo

	// Policy defaults to grading.DefaultCalcPolicy when zero.
	Policy grading.CalcPolicy
}

type courseGradeAggregate struct {
	deps CourseGradeAggregateDeps
}

func NewCourseGradeAggregate(deps CourseGradeAggregateDeps) domainagg.CourseGradeAggregate {
	deps.Base = deps.Base.withDefaults()
	if deps.Policy.OverallPassingScore == 0 && deps.Policy.WeightTolerance == 0 {
		deps.Policy = grading.DefaultCalcPolicy()
	}
	return &courseGradeAggregate{deps: deps}
}

func (a *courseGradeAggregate) Contract() domainagg.Contract {
	return domainagg.CourseGradeAggregateContract
}

func (a *courseGradeAggregate) CalculateAndSave(ctx context.Context, in domainagg.CalculateAndSaveInput) (domainagg.CalculateAndSaveResult, error) {
	const op = "Grading.CourseGrade.CalculateAndSave"
	var out domainagg.CalculateAndSaveResult
	if in.LearnerID == uuid.Nil {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "missing learner_id", nil)
	}
	if in.CourseID == uuid.Nil {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "missing course_id", nil)
	}
	if in.ActorID == uuid.Nil {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "missing actor_id", nil)
	}
	if strings.TrimSpace(in.ActorName) == "" {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "missing actor_name", nil)
	}
	if a.deps.Modules == nil || a.deps.Grades == nil || a.deps.Snapshots == nil {
		return out, domainagg.NewError(domainagg.CodeInternal, op, "course grade repos not configured", nil)
	}

	// Reads and upsert share one transaction so the snapshot reflects a
	// consistent ledger state.
	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		modules, err := a.deps.Modules.ListByCourseID(dbc, in.CourseID)
		if err != nil {
			return err
		}
		current, err := a.deps.Grades.ListCurrentByLearnerCourse(dbc, in.LearnerID, in.CourseID)
		if err != nil {
			return err
		}
		calc, err := grading.BuildCalculation(in.LearnerID, in.CourseID, modules, current, a.deps.Policy, time.Now())
		if err != nil {
			return err
		}
		// Official records must come from correctly weighted courses; the
		// preview path tolerates the warning, persisting does not.
		if calc.WeightWarning != "" {
			return PolicyError("refusing to save official course grade: " + calc.WeightWarning)
		}
		snap, err := calc.ToSnapshot()
		if err != nil {
			return err
		}
		if _, err := a.deps.Snapshots.Upsert(dbc, snap); err != nil {
			return err
		}
		out.Snapshot = snap
		out.Calculation = calc
		return nil
	})
	if err != nil {
		return domainagg.CalculateAndSaveResult{}, err
	}
	return out, nil
}
