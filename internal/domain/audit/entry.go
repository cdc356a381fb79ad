package audit

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// ActionType is the closed set of auditable actions. New values are added
// here and nowhere else; entries with unknown types are rejected at the
// trail boundary.
type ActionType string

const (
	ActionLogin  ActionType = "LOGIN"
	ActionLogout ActionType = "LOGOUT"

	ActionCourseCreate ActionType = "COURSE_CREATE"
	ActionCourseUpdate ActionType = "COURSE_UPDATE"
	ActionCourseDelete ActionType = "COURSE_DELETE"

	ActionModuleCreate ActionType = "MODULE_CREATE"
	ActionModuleUpdate ActionType = "MODULE_UPDATE"
	ActionModuleDelete ActionType = "MODULE_DELETE"

	ActionBlockCreate ActionType = "BLOCK_CREATE"
	ActionBlockUpdate ActionType = "BLOCK_UPDATE"
	ActionBlockDelete ActionType = "BLOCK_DELETE"

	ActionGradeEntry  ActionType = "GRADE_ENTRY"
	ActionGradeChange ActionType = "GRADE_CHANGE"

	ActionEnrollmentCreate ActionType = "ENROLLMENT_CREATE"
	ActionEnrollmentUpdate ActionType = "ENROLLMENT_UPDATE"

	ActionAssessmentSubmit ActionType = "ASSESSMENT_SUBMIT"
	ActionAssessmentGrade  ActionType = "ASSESSMENT_GRADE"
)

var knownActionTypes = map[ActionType]struct{}{
	ActionLogin:            {},
	ActionLogout:           {},
	ActionCourseCreate:     {},
	ActionCourseUpdate:     {},
	ActionCourseDelete:     {},
	ActionModuleCreate:     {},
	ActionModuleUpdate:     {},
	ActionModuleDelete:     {},
	ActionBlockCreate:      {},
	ActionBlockUpdate:      {},
	ActionBlockDelete:      {},
	ActionGradeEntry:       {},
	ActionGradeChange:      {},
	ActionEnrollmentCreate: {},
	ActionEnrollmentUpdate: {},
	ActionAssessmentSubmit: {},
	ActionAssessmentGrade:  {},
}

// Valid reports whether t is a member of the closed action set.
func (t ActionType) Valid() bool {
	_, ok := knownActionTypes[t]
	return ok
}

// LogEntry is one write-once audit record. There is no update or delete
// path anywhere in the system.
type LogEntry struct {
	ID         uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	ActorID    uuid.UUID      `gorm:"type:uuid;not null;index" json:"actor_id"`
	ActorName  string         `gorm:"not null" json:"actor_name"`
	ActionType ActionType     `gorm:"not null;index" json:"action_type"`
	TargetID   string         `gorm:"index" json:"target_id"`
	Details    string         `gorm:"not null;type:text" json:"details"`
	Metadata   datatypes.JSON `gorm:"type:jsonb;column:metadata" json:"metadata"`
	Timestamp  time.Time      `gorm:"not null;index:idx_audit_log_timestamp,sort:desc" json:"timestamp"`
	CreatedAt  time.Time      `gorm:"not null;default:now()" json:"created_at"`
}

func (LogEntry) TableName() string { return "audit_log" }
