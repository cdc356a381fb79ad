package grading

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/northcampus/gradebook-backend/internal/domain/catalog"
	"gorm.io/datatypes"
)

// ErrNoModules is returned when a course grade is requested for a course
// with no modules.
var ErrNoModules = errors.New("course has no modules")

// CalcPolicy carries the tunable thresholds of the course grade rule.
type CalcPolicy struct {
	// OverallPassingScore is the weighted-average line a learner must reach
	// in addition to passing every critical module.
	OverallPassingScore int
	// WeightTolerance is the allowed deviation of a course's module weight
	// sum from 100 before a warning is raised.
	WeightTolerance float64
}

// DefaultCalcPolicy mirrors the compiled grading policy shipped with the
// service.
func DefaultCalcPolicy() CalcPolicy {
	return CalcPolicy{OverallPassingScore: 70, WeightTolerance: 0.01}
}

// CourseGradeCalculation is the full in-memory result of one aggregation
// run. It is what previews return; persisting it goes through ToSnapshot.
type CourseGradeCalculation struct {
	LearnerID                uuid.UUID              `json:"learner_id"`
	CourseID                 uuid.UUID              `json:"course_id"`
	OverallScore             int                    `json:"overall_score"`
	OverallPassed            bool                   `json:"overall_passed"`
	TotalCriticalModules     int                    `json:"total_critical_modules"`
	CriticalModulesPassed    int                    `json:"critical_modules_passed"`
	AllCriticalModulesPassed bool                   `json:"all_critical_modules_passed"`
	Breakdown                []ModuleBreakdownEntry `json:"module_breakdown"`
	TotalModules             int                    `json:"total_modules"`
	GradedModules            int                    `json:"graded_modules"`
	CompletionPercent        int                    `json:"completion_percent"`
	IsComplete               bool                   `json:"is_complete"`
	WeightWarning            string                 `json:"weight_warning,omitempty"`
	CalculatedAt             time.Time              `json:"calculated_at"`
}

// BuildCalculation runs the course grade rule over the course's modules and
// the learner's current grades. An ungraded module contributes zero to the
// weighted sum rather than being skipped. A weight sum off 100 produces a
// non-fatal warning so previews stay computable for courses under
// construction; persisting is the caller's policy decision.
func BuildCalculation(
	learnerID, courseID uuid.UUID,
	modules []*catalog.CourseModule,
	current map[uuid.UUID]*GradeRecord,
	policy CalcPolicy,
	at time.Time,
) (*CourseGradeCalculation, error) {
	if len(modules) == 0 {
		return nil, ErrNoModules
	}

	calc := &CourseGradeCalculation{
		LearnerID:    learnerID,
		CourseID:     courseID,
		Breakdown:    make([]ModuleBreakdownEntry, 0, len(modules)),
		TotalModules: len(modules),
		CalculatedAt: at.UTC(),
	}

	weightSum := 0.0
	weightedTotal := 0.0
	for _, m := range modules {
		if m == nil {
			continue
		}
		weightSum += m.Weight

		entry := ModuleBreakdownEntry{
			ModuleID:     m.ID,
			ModuleTitle:  m.Title,
			Weight:       m.Weight,
			IsCritical:   m.Critical,
			PassingScore: m.PassingScore,
		}
		if m.Critical {
			calc.TotalCriticalModules++
		}

		if rec := current[m.ID]; rec != nil {
			score := rec.Score
			weighted := float64(score) * m.Weight / 100
			passed := rec.Passed
			entry.Score = &score
			entry.WeightedScore = &weighted
			entry.Passed = &passed
			weightedTotal += weighted
			calc.GradedModules++
			if m.Critical && passed {
				calc.CriticalModulesPassed++
			}
		}
		calc.Breakdown = append(calc.Breakdown, entry)
	}

	if math.Abs(weightSum-100) > policy.WeightTolerance {
		calc.WeightWarning = fmt.Sprintf(
			"module weights sum to %.2f, expected 100 (±%.2f)",
			weightSum, policy.WeightTolerance,
		)
	}

	calc.OverallScore = int(math.Round(weightedTotal))
	calc.CompletionPercent = int(math.Round(float64(calc.GradedModules) / float64(calc.TotalModules) * 100))
	calc.IsComplete = calc.GradedModules == calc.TotalModules
	calc.AllCriticalModulesPassed = calc.CriticalModulesPassed == calc.TotalCriticalModules
	calc.OverallPassed = calc.AllCriticalModulesPassed && calc.OverallScore >= policy.OverallPassingScore
	return calc, nil
}

// ToSnapshot converts a calculation into its persisted form. The breakdown
// is serialized in module order.
func (c *CourseGradeCalculation) ToSnapshot() (*CourseGradeSnapshot, error) {
	if c == nil {
		return nil, errors.New("nil calculation")
	}
	raw, err := json.Marshal(c.Breakdown)
	if err != nil {
		return nil, fmt.Errorf("marshal module breakdown: %w", err)
	}
	return &CourseGradeSnapshot{
		ID:                       SnapshotID(c.LearnerID, c.CourseID),
		LearnerID:                c.LearnerID,
		CourseID:                 c.CourseID,
		OverallScore:             c.OverallScore,
		OverallPassed:            c.OverallPassed,
		TotalCriticalModules:     c.TotalCriticalModules,
		CriticalModulesPassed:    c.CriticalModulesPassed,
		AllCriticalModulesPassed: c.AllCriticalModulesPassed,
		ModuleBreakdown:          datatypes.JSON(raw),
		TotalModules:             c.TotalModules,
		GradedModules:            c.GradedModules,
		CompletionPercent:        c.CompletionPercent,
		IsComplete:               c.IsComplete,
		CalculatedAt:             c.CalculatedAt,
	}, nil
}
