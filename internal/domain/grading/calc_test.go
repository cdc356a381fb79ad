package grading

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/northcampus/gradebook-backend/internal/domain/catalog"
)

func calcModule(courseID uuid.UUID, title string, weight float64, critical bool, passingScore int) *catalog.CourseModule {
	return &catalog.CourseModule{
		ID:           uuid.New(),
		CourseID:     courseID,
		Title:        title,
		Weight:       weight,
		Critical:     critical,
		PassingScore: passingScore,
	}
}

func calcRecord(learnerID uuid.UUID, m *catalog.CourseModule, score int) *GradeRecord {
	gradedAt := time.Now().UTC()
	return &GradeRecord{
		ID:           NewGradeRecordID(learnerID, m.ID, gradedAt),
		LearnerID:    learnerID,
		ModuleID:     m.ID,
		CourseID:     m.CourseID,
		Score:        score,
		PassingScore: m.PassingScore,
		Passed:       EvaluatePassed(score, m.PassingScore),
		GradedAt:     gradedAt,
	}
}

func TestBuildCalculation_WeightedAverageAllPassing(t *testing.T) {
	learnerID := uuid.New()
	courseID := uuid.New()
	m1 := calcModule(courseID, "Foundations", 40, false, 70)
	m2 := calcModule(courseID, "Practice", 30, false, 70)
	m3 := calcModule(courseID, "Capstone", 30, false, 70)
	current := map[uuid.UUID]*GradeRecord{
		m1.ID: calcRecord(learnerID, m1, 90),
		m2.ID: calcRecord(learnerID, m2, 80),
		m3.ID: calcRecord(learnerID, m3, 70),
	}

	calc, err := BuildCalculation(learnerID, courseID, []*catalog.CourseModule{m1, m2, m3}, current, DefaultCalcPolicy(), time.Now())
	if err != nil {
		t.Fatalf("BuildCalculation: %v", err)
	}
	if calc.OverallScore != 81 {
		t.Fatalf("expected overall score 81, got %d", calc.OverallScore)
	}
	if !calc.OverallPassed {
		t.Fatalf("expected overall passed")
	}
	if calc.WeightWarning != "" {
		t.Fatalf("unexpected weight warning: %q", calc.WeightWarning)
	}
	if !calc.IsComplete || calc.CompletionPercent != 100 {
		t.Fatalf("expected complete course, got complete=%v percent=%d", calc.IsComplete, calc.CompletionPercent)
	}
}

func TestBuildCalculation_FailedCriticalModuleFailsCourse(t *testing.T) {
	learnerID := uuid.New()
	courseID := uuid.New()
	major := calcModule(courseID, "Theory", 70, false, 70)
	critical := calcModule(courseID, "Safety", 30, true, 70)
	current := map[uuid.UUID]*GradeRecord{
		major.ID:    calcRecord(learnerID, major, 95),
		critical.ID: calcRecord(learnerID, critical, 60),
	}

	calc, err := BuildCalculation(learnerID, courseID, []*catalog.CourseModule{major, critical}, current, DefaultCalcPolicy(), time.Now())
	if err != nil {
		t.Fatalf("BuildCalculation: %v", err)
	}
	if calc.OverallScore != 85 {
		t.Fatalf("expected overall score 85, got %d", calc.OverallScore)
	}
	if calc.TotalCriticalModules != 1 || calc.CriticalModulesPassed != 0 {
		t.Fatalf("expected critical 0/1, got %d/%d", calc.CriticalModulesPassed, calc.TotalCriticalModules)
	}
	if calc.OverallPassed {
		t.Fatalf("expected overall failed despite weighted average %d", calc.OverallScore)
	}
	if calc.AllCriticalModulesPassed {
		t.Fatalf("expected all_critical_modules_passed=false")
	}
}

func TestBuildCalculation_UngradedModuleContributesZero(t *testing.T) {
	learnerID := uuid.New()
	courseID := uuid.New()
	graded := calcModule(courseID, "Graded", 50, false, 70)
	ungraded := calcModule(courseID, "Pending", 50, false, 70)
	current := map[uuid.UUID]*GradeRecord{
		graded.ID: calcRecord(learnerID, graded, 100),
	}

	calc, err := BuildCalculation(learnerID, courseID, []*catalog.CourseModule{graded, ungraded}, current, DefaultCalcPolicy(), time.Now())
	if err != nil {
		t.Fatalf("BuildCalculation: %v", err)
	}
	if calc.OverallScore != 50 {
		t.Fatalf("expected overall score 50, got %d", calc.OverallScore)
	}
	if calc.CompletionPercent != 50 || calc.IsComplete {
		t.Fatalf("expected 50%% complete, got percent=%d complete=%v", calc.CompletionPercent, calc.IsComplete)
	}
	if calc.GradedModules != 1 || calc.TotalModules != 2 {
		t.Fatalf("expected 1/2 graded, got %d/%d", calc.GradedModules, calc.TotalModules)
	}

	var pendingEntry *ModuleBreakdownEntry
	for i := range calc.Breakdown {
		if calc.Breakdown[i].ModuleID == ungraded.ID {
			pendingEntry = &calc.Breakdown[i]
		}
	}
	if pendingEntry == nil {
		t.Fatalf("expected ungraded module in breakdown")
	}
	if pendingEntry.Score != nil || pendingEntry.WeightedScore != nil || pendingEntry.Passed != nil {
		t.Fatalf("expected nil score fields for ungraded module")
	}
}

func TestBuildCalculation_WeightSumOffProducesWarningNotError(t *testing.T) {
	learnerID := uuid.New()
	courseID := uuid.New()
	m1 := calcModule(courseID, "Only", 60, false, 70)
	current := map[uuid.UUID]*GradeRecord{
		m1.ID: calcRecord(learnerID, m1, 80),
	}

	calc, err := BuildCalculation(learnerID, courseID, []*catalog.CourseModule{m1}, current, DefaultCalcPolicy(), time.Now())
	if err != nil {
		t.Fatalf("BuildCalculation: %v", err)
	}
	if calc.WeightWarning == "" {
		t.Fatalf("expected weight warning for 60 weight sum")
	}
	if calc.OverallScore != 48 {
		t.Fatalf("expected overall score 48 (80x60/100), got %d", calc.OverallScore)
	}
}

func TestBuildCalculation_WeightSumWithinToleranceNoWarning(t *testing.T) {
	learnerID := uuid.New()
	courseID := uuid.New()
	m1 := calcModule(courseID, "A", 33.336, false, 70)
	m2 := calcModule(courseID, "B", 33.332, false, 70)
	m3 := calcModule(courseID, "C", 33.333, false, 70)

	calc, err := BuildCalculation(learnerID, courseID, []*catalog.CourseModule{m1, m2, m3}, nil, DefaultCalcPolicy(), time.Now())
	if err != nil {
		t.Fatalf("BuildCalculation: %v", err)
	}
	if calc.WeightWarning != "" {
		t.Fatalf("expected no warning for sum 100.001, got %q", calc.WeightWarning)
	}
}

func TestBuildCalculation_NoModules(t *testing.T) {
	_, err := BuildCalculation(uuid.New(), uuid.New(), nil, nil, DefaultCalcPolicy(), time.Now())
	if !errors.Is(err, ErrNoModules) {
		t.Fatalf("expected ErrNoModules, got %v", err)
	}
}

func TestBuildCalculation_NothingGraded(t *testing.T) {
	learnerID := uuid.New()
	courseID := uuid.New()
	m1 := calcModule(courseID, "A", 50, true, 70)
	m2 := calcModule(courseID, "B", 50, false, 70)

	calc, err := BuildCalculation(learnerID, courseID, []*catalog.CourseModule{m1, m2}, nil, DefaultCalcPolicy(), time.Now())
	if err != nil {
		t.Fatalf("BuildCalculation: %v", err)
	}
	if calc.OverallScore != 0 || calc.GradedModules != 0 || calc.CompletionPercent != 0 {
		t.Fatalf("expected zeroed aggregates, got score=%d graded=%d percent=%d", calc.OverallScore, calc.GradedModules, calc.CompletionPercent)
	}
	// Zero graded critical modules means the critical gate is failed, not
	// vacuously passed.
	if calc.AllCriticalModulesPassed {
		t.Fatalf("expected critical gate failed with ungraded critical module")
	}
	if calc.OverallPassed {
		t.Fatalf("expected overall failed")
	}
}

func TestToSnapshot_RoundTripsBreakdown(t *testing.T) {
	learnerID := uuid.New()
	courseID := uuid.New()
	m1 := calcModule(courseID, "First", 40, true, 70)
	m2 := calcModule(courseID, "Second", 60, false, 70)
	current := map[uuid.UUID]*GradeRecord{
		m1.ID: calcRecord(learnerID, m1, 75),
	}

	calc, err := BuildCalculation(learnerID, courseID, []*catalog.CourseModule{m1, m2}, current, DefaultCalcPolicy(), time.Now())
	if err != nil {
		t.Fatalf("BuildCalculation: %v", err)
	}
	snap, err := calc.ToSnapshot()
	if err != nil {
		t.Fatalf("ToSnapshot: %v", err)
	}
	if snap.ID != SnapshotID(learnerID, courseID) {
		t.Fatalf("unexpected snapshot id %q", snap.ID)
	}
	if snap.OverallScore != calc.OverallScore || snap.IsComplete != calc.IsComplete {
		t.Fatalf("snapshot aggregates diverge from calculation")
	}

	var decoded []ModuleBreakdownEntry
	if err := json.Unmarshal(snap.ModuleBreakdown, &decoded); err != nil {
		t.Fatalf("unmarshal breakdown: %v", err)
	}
	if len(decoded) != 2 {
		t.Fatalf("expected 2 breakdown entries, got %d", len(decoded))
	}
	if decoded[0].ModuleID != m1.ID || decoded[1].ModuleID != m2.ID {
		t.Fatalf("breakdown order not preserved")
	}
	if decoded[0].Score == nil || *decoded[0].Score != 75 {
		t.Fatalf("expected graded entry score 75")
	}
	if decoded[1].Score != nil {
		t.Fatalf("expected ungraded entry nil score")
	}
}

func TestClampScore_RoundsAndClamps(t *testing.T) {
	cases := []struct {
		raw  float64
		want int
	}{
		{-12, 0},
		{0, 0},
		{59.4, 59},
		{59.5, 60},
		{84.5, 85},
		{100, 100},
		{104.9, 100},
	}
	for _, tc := range cases {
		if got := ClampScore(tc.raw); got != tc.want {
			t.Fatalf("ClampScore(%v) = %d, want %d", tc.raw, got, tc.want)
		}
	}
}
