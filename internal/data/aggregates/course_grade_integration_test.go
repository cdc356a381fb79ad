package aggregates

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"

	catalogrepos "github.com/northcampus/gradebook-backend/internal/data/repos/catalog"
	gradingrepos "github.com/northcampus/gradebook-backend/internal/data/repos/grading"
	repotest "github.com/northcampus/gradebook-backend/internal/data/repos/testutil"
	types "github.com/northcampus/gradebook-backend/internal/domain"
	domainagg "github.com/northcampus/gradebook-backend/internal/domain/aggregates"
	"github.com/northcampus/gradebook-backend/internal/platform/dbctx"
	"gorm.io/gorm"
)

func newCourseGradeAggregateForTest(t *testing.T, tx *gorm.DB) (domainagg.CourseGradeAggregate, gradingrepos.CourseGradeSnapshotRepo) {
	t.Helper()
	log := repotest.Logger(t)
	modules := catalogrepos.NewCourseModuleRepo(tx, log)
	grades := gradingrepos.NewGradeRecordRepo(tx, log)
	snapshots := gradingrepos.NewCourseGradeSnapshotRepo(tx, log)

	agg := NewCourseGradeAggregate(CourseGradeAggregateDeps{
		Base: BaseDeps{
			DB:     tx,
			Runner: NewGormTxRunner(tx),
			Guard:  NewLedgerGuard(tx),
		},
		Modules:   modules,
		Grades:    grades,
		Snapshots: snapshots,
	})
	return agg, snapshots
}

func TestCourseGradeCalculateAndSaveHappyPath(t *testing.T) {
	db := repotest.DB(t)
	tx := repotest.Tx(t, db)
	agg, snapshots := newCourseGradeAggregateForTest(t, tx)

	ctx := context.Background()
	learnerID := uuid.New()
	course := repotest.SeedCourse(t, ctx, tx, "NURS-410")
	clinical := repotest.SeedModule(t, ctx, tx, course.ID, 1, 50, true, 70)
	theory := repotest.SeedModule(t, ctx, tx, course.ID, 2, 50, false, 70)
	repotest.SeedGradeRecord(t, ctx, tx, learnerID, clinical, 80)
	repotest.SeedGradeRecord(t, ctx, tx, learnerID, theory, 90)

	res, err := agg.CalculateAndSave(ctx, domainagg.CalculateAndSaveInput{
		LearnerID: learnerID,
		CourseID:  course.ID,
		ActorID:   uuid.New(),
		ActorName: "Registrar Adams",
	})
	if err != nil {
		t.Fatalf("CalculateAndSave: %v", err)
	}
	if res.Snapshot == nil || res.Calculation == nil {
		t.Fatalf("expected snapshot and calculation in result")
	}
	if res.Snapshot.OverallScore != 85 {
		t.Fatalf("overall score: want=85 got=%d", res.Snapshot.OverallScore)
	}
	if !res.Snapshot.OverallPassed {
		t.Fatalf("85 with all critical modules passed should pass the course")
	}
	if !res.Snapshot.AllCriticalModulesPassed || res.Snapshot.CriticalModulesPassed != 1 {
		t.Fatalf("critical tally: %+v", res.Snapshot)
	}
	if !res.Snapshot.IsComplete || res.Snapshot.CompletionPercent != 100 {
		t.Fatalf("completion: %+v", res.Snapshot)
	}

	stored, err := snapshots.GetByPair(dbctx.Context{Ctx: ctx}, learnerID, course.ID)
	if err != nil {
		t.Fatalf("GetByPair: %v", err)
	}
	if stored == nil || stored.ID != res.Snapshot.ID {
		t.Fatalf("persisted snapshot mismatch: got=%v", stored)
	}

	var breakdown []types.ModuleBreakdownEntry
	if err := json.Unmarshal(stored.ModuleBreakdown, &breakdown); err != nil {
		t.Fatalf("unmarshal module_breakdown: %v", err)
	}
	if len(breakdown) != 2 {
		t.Fatalf("breakdown length: want=2 got=%d", len(breakdown))
	}
	if breakdown[0].ModuleID != clinical.ID || !breakdown[0].IsCritical {
		t.Fatalf("breakdown should follow module order, got=%+v", breakdown[0])
	}
	if breakdown[1].Score == nil || *breakdown[1].Score != 90 {
		t.Fatalf("theory breakdown score: got=%+v", breakdown[1])
	}
}

func TestCourseGradeCalculateAndSaveRefusesBadWeights(t *testing.T) {
	db := repotest.DB(t)
	tx := repotest.Tx(t, db)
	agg, snapshots := newCourseGradeAggregateForTest(t, tx)

	ctx := context.Background()
	learnerID := uuid.New()
	course := repotest.SeedCourse(t, ctx, tx, "NURS-420")
	m1 := repotest.SeedModule(t, ctx, tx, course.ID, 1, 60, false, 70)
	repotest.SeedModule(t, ctx, tx, course.ID, 2, 30, false, 70)
	repotest.SeedGradeRecord(t, ctx, tx, learnerID, m1, 95)

	_, err := agg.CalculateAndSave(ctx, domainagg.CalculateAndSaveInput{
		LearnerID: learnerID,
		CourseID:  course.ID,
		ActorID:   uuid.New(),
		ActorName: "Registrar Adams",
	})
	if err == nil {
		t.Fatalf("expected refusal when weights sum to 90")
	}
	if !domainagg.IsCode(err, domainagg.CodePolicy) {
		t.Fatalf("expected policy code, got=%v", err)
	}

	stored, getErr := snapshots.GetByPair(dbctx.Context{Ctx: ctx}, learnerID, course.ID)
	if getErr != nil {
		t.Fatalf("GetByPair: %v", getErr)
	}
	if stored != nil {
		t.Fatalf("refused calculation must persist nothing, got=%+v", stored)
	}
}

func TestCourseGradeCalculateAndSaveNoModules(t *testing.T) {
	db := repotest.DB(t)
	tx := repotest.Tx(t, db)
	agg, _ := newCourseGradeAggregateForTest(t, tx)

	ctx := context.Background()
	course := repotest.SeedCourse(t, ctx, tx, "NURS-430")

	_, err := agg.CalculateAndSave(ctx, domainagg.CalculateAndSaveInput{
		LearnerID: uuid.New(),
		CourseID:  course.ID,
		ActorID:   uuid.New(),
		ActorName: "Registrar Adams",
	})
	if !domainagg.IsCode(err, domainagg.CodePreconditionFailed) {
		t.Fatalf("expected precondition_failed for course without modules, got=%v", err)
	}
}

func TestCourseGradeCalculateAndSaveOverwritesOnRecalculate(t *testing.T) {
	db := repotest.DB(t)
	tx := repotest.Tx(t, db)
	agg, snapshots := newCourseGradeAggregateForTest(t, tx)

	ctx := context.Background()
	learnerID := uuid.New()
	course := repotest.SeedCourse(t, ctx, tx, "NURS-440")
	m1 := repotest.SeedModule(t, ctx, tx, course.ID, 1, 50, false, 70)
	m2 := repotest.SeedModule(t, ctx, tx, course.ID, 2, 50, false, 70)
	repotest.SeedGradeRecord(t, ctx, tx, learnerID, m1, 80)

	in := domainagg.CalculateAndSaveInput{
		LearnerID: learnerID,
		CourseID:  course.ID,
		ActorID:   uuid.New(),
		ActorName: "Registrar Adams",
	}

	first, err := agg.CalculateAndSave(ctx, in)
	if err != nil {
		t.Fatalf("first CalculateAndSave: %v", err)
	}
	if first.Snapshot.OverallScore != 40 {
		t.Fatalf("half graded course: want=40 got=%d", first.Snapshot.OverallScore)
	}
	if first.Snapshot.OverallPassed {
		t.Fatalf("40 should not pass")
	}
	if first.Snapshot.IsComplete || first.Snapshot.GradedModules != 1 {
		t.Fatalf("completion after one grade: %+v", first.Snapshot)
	}

	repotest.SeedGradeRecord(t, ctx, tx, learnerID, m2, 90)

	second, err := agg.CalculateAndSave(ctx, in)
	if err != nil {
		t.Fatalf("second CalculateAndSave: %v", err)
	}
	if second.Snapshot.ID != first.Snapshot.ID {
		t.Fatalf("recalculation must reuse the snapshot key: %s vs %s", second.Snapshot.ID, first.Snapshot.ID)
	}
	if second.Snapshot.OverallScore != 85 || !second.Snapshot.OverallPassed {
		t.Fatalf("recalculated snapshot: %+v", second.Snapshot)
	}

	stored, err := snapshots.GetByPair(dbctx.Context{Ctx: ctx}, learnerID, course.ID)
	if err != nil {
		t.Fatalf("GetByPair: %v", err)
	}
	if stored == nil || stored.OverallScore != 85 || !stored.IsComplete {
		t.Fatalf("stored snapshot should hold the latest calculation, got=%+v", stored)
	}
}

func TestCourseGradeCalculateAndSaveValidation(t *testing.T) {
	agg := NewCourseGradeAggregate(CourseGradeAggregateDeps{
		Base: BaseDeps{Runner: spyTxRunner{}},
	})

	_, err := agg.CalculateAndSave(context.Background(), domainagg.CalculateAndSaveInput{
		CourseID:  uuid.New(),
		ActorID:   uuid.New(),
		ActorName: "Registrar Adams",
	})
	if !domainagg.IsCode(err, domainagg.CodeValidation) {
		t.Fatalf("expected validation error for missing learner, got=%v", err)
	}
}
