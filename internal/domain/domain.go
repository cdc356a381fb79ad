package domain

import (
	"github.com/northcampus/gradebook-backend/internal/domain/audit"
	"github.com/northcampus/gradebook-backend/internal/domain/catalog"
	"github.com/northcampus/gradebook-backend/internal/domain/grading"
)

type Course = catalog.Course
type CourseModule = catalog.CourseModule
type Enrollment = catalog.Enrollment

type GradeRecord = grading.GradeRecord
type CourseGradeSnapshot = grading.CourseGradeSnapshot
type CourseGradeCalculation = grading.CourseGradeCalculation
type ModuleBreakdownEntry = grading.ModuleBreakdownEntry

type AuditLogEntry = audit.LogEntry
type AuditActionType = audit.ActionType

const (
	EnrollmentStatusActive    = catalog.EnrollmentStatusActive
	EnrollmentStatusCompleted = catalog.EnrollmentStatusCompleted
	EnrollmentStatusWithdrawn = catalog.EnrollmentStatusWithdrawn
)

// AllModels lists every persisted model in migration order.
func AllModels() []interface{} {
	return []interface{}{
		&catalog.Course{},
		&catalog.CourseModule{},
		&catalog.Enrollment{},
		&grading.GradeRecord{},
		&grading.CourseGradeSnapshot{},
		&audit.LogEntry{},
	}
}
