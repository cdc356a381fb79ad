package testutil

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/northcampus/gradebook-backend/internal/domain"
	"github.com/northcampus/gradebook-backend/internal/domain/grading"
)

func SeedCourse(tb testing.TB, ctx context.Context, tx *gorm.DB, code string) *types.Course {
	tb.Helper()
	c := &types.Course{
		ID:        uuid.New(),
		Code:      code,
		Title:     "Course " + code,
		Published: true,
	}
	if err := tx.WithContext(ctx).Create(c).Error; err != nil {
		tb.Fatalf("seed course: %v", err)
	}
	return c
}

func SeedModule(tb testing.TB, ctx context.Context, tx *gorm.DB, courseID uuid.UUID, position int, weight float64, critical bool, passingScore int) *types.CourseModule {
	tb.Helper()
	m := &types.CourseModule{
		ID:           uuid.New(),
		CourseID:     courseID,
		Title:        fmt.Sprintf("Module %d", position),
		Position:     position,
		Weight:       weight,
		Critical:     critical,
		PassingScore: passingScore,
	}
	if err := tx.WithContext(ctx).Create(m).Error; err != nil {
		tb.Fatalf("seed module: %v", err)
	}
	return m
}

func SeedEnrollment(tb testing.TB, ctx context.Context, tx *gorm.DB, learnerID, courseID uuid.UUID) *types.Enrollment {
	tb.Helper()
	e := &types.Enrollment{
		ID:         uuid.New(),
		LearnerID:  learnerID,
		CourseID:   courseID,
		Status:     types.EnrollmentStatusActive,
		EnrolledAt: time.Now().UTC(),
	}
	if err := tx.WithContext(ctx).Create(e).Error; err != nil {
		tb.Fatalf("seed enrollment: %v", err)
	}
	return e
}

// SeedGradeRecord writes a current record for (learner, module) directly,
// bypassing the ledger aggregate.
func SeedGradeRecord(tb testing.TB, ctx context.Context, tx *gorm.DB, learnerID uuid.UUID, m *types.CourseModule, score int) *types.GradeRecord {
	tb.Helper()
	gradedAt := time.Now().UTC()
	rec := &types.GradeRecord{
		ID:               grading.NewGradeRecordID(learnerID, m.ID, gradedAt),
		LearnerID:        learnerID,
		ModuleID:         m.ID,
		CourseID:         m.CourseID,
		Score:            score,
		PassingScore:     m.PassingScore,
		Passed:           grading.EvaluatePassed(score, m.PassingScore),
		GraderID:         uuid.New(),
		GraderName:       "Seed Grader",
		GradedAt:         gradedAt,
		VisibleToStudent: true,
	}
	if err := tx.WithContext(ctx).Create(rec).Error; err != nil {
		tb.Fatalf("seed grade record: %v", err)
	}
	return rec
}
