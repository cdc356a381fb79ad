package grading

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// GradeRecord is one scored attempt in the append-only ledger. Records are
// never deleted. After creation the only permitted mutations are setting
// SupersededBy exactly once (none to value, by a correction) and flipping
// VisibleToStudent. Passed is evaluated against PassingScore at write time
// and frozen; later threshold changes do not rewrite history.
type GradeRecord struct {
	ID               string     `gorm:"type:text;primaryKey" json:"id"`
	LearnerID        uuid.UUID  `gorm:"type:uuid;not null;index:idx_grade_record_current,priority:1" json:"learner_id"`
	ModuleID         uuid.UUID  `gorm:"type:uuid;not null;index:idx_grade_record_current,priority:2;index:idx_grade_record_module,priority:1" json:"module_id"`
	CourseID         uuid.UUID  `gorm:"type:uuid;not null;index" json:"course_id"`
	Score            int        `gorm:"not null" json:"score"`
	PassingScore     int        `gorm:"not null" json:"passing_score"`
	Passed           bool       `gorm:"not null" json:"passed"`
	GraderID         uuid.UUID  `gorm:"type:uuid;not null" json:"grader_id"`
	GraderName       string     `gorm:"not null" json:"grader_name"`
	GradedAt         time.Time  `gorm:"not null;index:idx_grade_record_current,priority:4,sort:desc;index:idx_grade_record_module,priority:3,sort:desc" json:"graded_at"`
	Notes            string     `json:"notes,omitempty"`
	VisibleToStudent bool       `gorm:"not null;default:true" json:"visible_to_student"`
	SupersededBy     *string    `gorm:"type:text;index:idx_grade_record_current,priority:3;index:idx_grade_record_module,priority:2" json:"superseded_by,omitempty"`
	CorrectionOf     *string    `gorm:"type:text" json:"correction_of,omitempty"`
	CorrectionReason string     `json:"correction_reason,omitempty"`
	CreatedAt        time.Time  `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt        time.Time  `gorm:"not null;default:now()" json:"updated_at"`
}

func (GradeRecord) TableName() string { return "grade_record" }

// IsCurrent reports whether this record is the live grade for its
// (learner, module) pair.
func (g *GradeRecord) IsCurrent() bool {
	return g != nil && g.SupersededBy == nil
}

// IsCorrection reports whether this record was created by correcting an
// earlier one.
func (g *GradeRecord) IsCorrection() bool {
	return g != nil && g.CorrectionOf != nil
}

// NewGradeRecordID builds the deterministic ledger id for a record graded at
// the given instant. Ids are never reused; the timestamp discriminator keeps
// repeated gradings of the same pair distinct.
func NewGradeRecordID(learnerID, moduleID uuid.UUID, gradedAt time.Time) string {
	return fmt.Sprintf("%s_%s_%d", learnerID, moduleID, gradedAt.UTC().UnixNano())
}
