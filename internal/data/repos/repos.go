package repos

import (
	"gorm.io/gorm"

	"github.com/northcampus/gradebook-backend/internal/data/repos/audit"
	"github.com/northcampus/gradebook-backend/internal/data/repos/catalog"
	"github.com/northcampus/gradebook-backend/internal/data/repos/grading"
	"github.com/northcampus/gradebook-backend/internal/platform/logger"
)

type CourseRepo = catalog.CourseRepo
type CourseModuleRepo = catalog.CourseModuleRepo
type EnrollmentRepo = catalog.EnrollmentRepo

type GradeRecordRepo = grading.GradeRecordRepo
type CourseGradeSnapshotRepo = grading.CourseGradeSnapshotRepo

type AuditLogRepo = audit.AuditLogRepo
type AuditFilter = audit.Filter

func NewCourseRepo(db *gorm.DB, baseLog *logger.Logger) CourseRepo {
	return catalog.NewCourseRepo(db, baseLog)
}
func NewCourseModuleRepo(db *gorm.DB, baseLog *logger.Logger) CourseModuleRepo {
	return catalog.NewCourseModuleRepo(db, baseLog)
}
func NewEnrollmentRepo(db *gorm.DB, baseLog *logger.Logger) EnrollmentRepo {
	return catalog.NewEnrollmentRepo(db, baseLog)
}
func NewGradeRecordRepo(db *gorm.DB, baseLog *logger.Logger) GradeRecordRepo {
	return grading.NewGradeRecordRepo(db, baseLog)
}
func NewCourseGradeSnapshotRepo(db *gorm.DB, baseLog *logger.Logger) CourseGradeSnapshotRepo {
	return grading.NewCourseGradeSnapshotRepo(db, baseLog)
}
func NewAuditLogRepo(db *gorm.DB, baseLog *logger.Logger) AuditLogRepo {
	return audit.NewAuditLogRepo(db, baseLog)
}
