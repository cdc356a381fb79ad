package catalog

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/northcampus/gradebook-backend/internal/domain"
	"github.com/northcampus/gradebook-backend/internal/platform/dbctx"
	"github.com/northcampus/gradebook-backend/internal/platform/logger"
)

type CourseModuleRepo interface {
	Create(dbc dbctx.Context, rows []*types.CourseModule) ([]*types.CourseModule, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.CourseModule, error)

	// ListByCourseID returns the course's modules in position order, the
	// order module breakdowns preserve.
	ListByCourseID(dbc dbctx.Context, courseID uuid.UUID) ([]*types.CourseModule, error)

	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
	SoftDeleteByID(dbc dbctx.Context, id uuid.UUID) error
}

type courseModuleRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCourseModuleRepo(db *gorm.DB, baseLog *logger.Logger) CourseModuleRepo {
	return &courseModuleRepo{db: db, log: baseLog.With("repo", "CourseModuleRepo")}
}

func (r *courseModuleRepo) Create(dbc dbctx.Context, rows []*types.CourseModule) ([]*types.CourseModule, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if len(rows) == 0 {
		return []*types.CourseModule{}, nil
	}
	if err := t.WithContext(dbc.Ctx).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *courseModuleRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.CourseModule, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var row types.CourseModule
	if err := t.WithContext(dbc.Ctx).Where("id = ?", id).Limit(1).Find(&row).Error; err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

func (r *courseModuleRepo) ListByCourseID(dbc dbctx.Context, courseID uuid.UUID) ([]*types.CourseModule, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*types.CourseModule
	if courseID == uuid.Nil {
		return out, nil
	}
	err := t.WithContext(dbc.Ctx).
		Where("course_id = ?", courseID).
		Order("position ASC, created_at ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *courseModuleRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	if id == uuid.Nil || len(updates) == 0 {
		return nil
	}
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	return t.WithContext(dbc.Ctx).
		Model(&types.CourseModule{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *courseModuleRepo) SoftDeleteByID(dbc dbctx.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return nil
	}
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	return t.WithContext(dbc.Ctx).Where("id = ?", id).Delete(&types.CourseModule{}).Error
}
