package grading

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// CourseGradeSnapshot is the persisted result of one explicit "calculate and
// save" run for a (learner, course) pair. It is written as a single atomic
// upsert keyed by SnapshotID and never partially updated.
type CourseGradeSnapshot struct {
	ID                       string         `gorm:"type:text;primaryKey" json:"id"`
	LearnerID                uuid.UUID      `gorm:"type:uuid;not null;index:idx_course_snapshot_pair,unique,priority:1" json:"learner_id"`
	CourseID                 uuid.UUID      `gorm:"type:uuid;not null;index:idx_course_snapshot_pair,unique,priority:2" json:"course_id"`
	OverallScore             int            `gorm:"not null" json:"overall_score"`
	OverallPassed            bool           `gorm:"not null" json:"overall_passed"`
	TotalCriticalModules     int            `gorm:"not null" json:"total_critical_modules"`
	CriticalModulesPassed    int            `gorm:"not null" json:"critical_modules_passed"`
	AllCriticalModulesPassed bool           `gorm:"not null" json:"all_critical_modules_passed"`
	ModuleBreakdown          datatypes.JSON `gorm:"type:jsonb;column:module_breakdown" json:"module_breakdown"`
	TotalModules             int            `gorm:"not null" json:"total_modules"`
	GradedModules            int            `gorm:"not null" json:"graded_modules"`
	CompletionPercent        int            `gorm:"not null" json:"completion_percent"`
	IsComplete               bool           `gorm:"not null" json:"is_complete"`
	CalculatedAt             time.Time      `gorm:"not null" json:"calculated_at"`
	CreatedAt                time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt                time.Time      `gorm:"not null;default:now()" json:"updated_at"`
}

func (CourseGradeSnapshot) TableName() string { return "course_grade_snapshot" }

// SnapshotID builds the deterministic snapshot key for a (learner, course)
// pair.
func SnapshotID(learnerID, courseID uuid.UUID) string {
	return fmt.Sprintf("%s_%s", learnerID, courseID)
}

// ModuleBreakdownEntry is one per-module line of a course grade calculation,
// serialized into CourseGradeSnapshot.ModuleBreakdown in module order.
// Score, WeightedScore and Passed are nil for modules the learner has not
// been graded on yet.
type ModuleBreakdownEntry struct {
	ModuleID      uuid.UUID `json:"module_id"`
	ModuleTitle   string    `json:"module_title"`
	Score         *int      `json:"score"`
	Weight        float64   `json:"weight"`
	WeightedScore *float64  `json:"weighted_score"`
	IsCritical    bool      `json:"is_critical"`
	Passed        *bool     `json:"passed"`
	PassingScore  int       `json:"passing_score"`
}
