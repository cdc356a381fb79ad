package grading

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/northcampus/gradebook-backend/internal/domain"
	"github.com/northcampus/gradebook-backend/internal/platform/dbctx"
	"github.com/northcampus/gradebook-backend/internal/platform/logger"
)

type CourseGradeSnapshotRepo interface {
	// Upsert writes a snapshot whole, replacing any previous snapshot for
	// the same (learner, course) pair in one statement.
	Upsert(dbc dbctx.Context, row *types.CourseGradeSnapshot) (*types.CourseGradeSnapshot, error)

	GetByPair(dbc dbctx.Context, learnerID, courseID uuid.UUID) (*types.CourseGradeSnapshot, error)
	ListByLearner(dbc dbctx.Context, learnerID uuid.UUID) ([]*types.CourseGradeSnapshot, error)
	ListByCourse(dbc dbctx.Context, courseID uuid.UUID) ([]*types.CourseGradeSnapshot, error)
}

type courseGradeSnapshotRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCourseGradeSnapshotRepo(db *gorm.DB, baseLog *logger.Logger) CourseGradeSnapshotRepo {
	return &courseGradeSnapshotRepo{db: db, log: baseLog.With("repo", "CourseGradeSnapshotRepo")}
}

func (r *courseGradeSnapshotRepo) Upsert(dbc dbctx.Context, row *types.CourseGradeSnapshot) (*types.CourseGradeSnapshot, error) {
	if row == nil || row.ID == "" {
		return nil, nil
	}
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	row.UpdatedAt = time.Now().UTC()
	err := t.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"overall_score",
				"overall_passed",
				"total_critical_modules",
				"critical_modules_passed",
				"all_critical_modules_passed",
				"module_breakdown",
				"total_modules",
				"graded_modules",
				"completion_percent",
				"is_complete",
				"calculated_at",
				"updated_at",
			}),
		}).
		Create(row).Error
	if err != nil {
		return nil, err
	}
	return row, nil
}

func (r *courseGradeSnapshotRepo) GetByPair(dbc dbctx.Context, learnerID, courseID uuid.UUID) (*types.CourseGradeSnapshot, error) {
	if learnerID == uuid.Nil || courseID == uuid.Nil {
		return nil, nil
	}
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var row types.CourseGradeSnapshot
	err := t.WithContext(dbc.Ctx).
		Where("learner_id = ? AND course_id = ?", learnerID, courseID).
		Limit(1).
		Find(&row).Error
	if err != nil {
		return nil, err
	}
	if row.ID == "" {
		return nil, nil
	}
	return &row, nil
}

func (r *courseGradeSnapshotRepo) ListByLearner(dbc dbctx.Context, learnerID uuid.UUID) ([]*types.CourseGradeSnapshot, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*types.CourseGradeSnapshot
	if learnerID == uuid.Nil {
		return out, nil
	}
	err := t.WithContext(dbc.Ctx).
		Where("learner_id = ?", learnerID).
		Order("calculated_at DESC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *courseGradeSnapshotRepo) ListByCourse(dbc dbctx.Context, courseID uuid.UUID) ([]*types.CourseGradeSnapshot, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*types.CourseGradeSnapshot
	if courseID == uuid.Nil {
		return out, nil
	}
	err := t.WithContext(dbc.Ctx).
		Where("course_id = ?", courseID).
		Order("calculated_at DESC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}
