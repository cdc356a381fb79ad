package app

import (
	"gorm.io/gorm"

	"github.com/northcampus/gradebook-backend/internal/data/repos"
	"github.com/northcampus/gradebook-backend/internal/platform/logger"
)

type Repos struct {
	Course       repos.CourseRepo
	CourseModule repos.CourseModuleRepo
	Enrollment   repos.EnrollmentRepo

	GradeRecord         repos.GradeRecordRepo
	CourseGradeSnapshot repos.CourseGradeSnapshotRepo

	AuditLog repos.AuditLogRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		Course:              repos.NewCourseRepo(db, log),
		CourseModule:        repos.NewCourseModuleRepo(db, log),
		Enrollment:          repos.NewEnrollmentRepo(db, log),
		GradeRecord:         repos.NewGradeRecordRepo(db, log),
		CourseGradeSnapshot: repos.NewCourseGradeSnapshotRepo(db, log),
		AuditLog:            repos.NewAuditLogRepo(db, log),
	}
}
