package audit

import (
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/northcampus/gradebook-backend/internal/domain"
	"github.com/northcampus/gradebook-backend/internal/platform/dbctx"
	"github.com/northcampus/gradebook-backend/internal/platform/logger"
)

// Filter narrows ListRecent. Zero values mean "no filter".
type Filter struct {
	ActorID    uuid.UUID
	ActionType types.AuditActionType
	TargetID   string
}

// AuditLogRepo is insert-and-read only. The audit_log table has no update
// or delete path.
type AuditLogRepo interface {
	Create(dbc dbctx.Context, row *types.AuditLogEntry) (*types.AuditLogEntry, error)
	ListRecent(dbc dbctx.Context, filter Filter, limit int) ([]*types.AuditLogEntry, error)
}

type auditLogRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAuditLogRepo(db *gorm.DB, baseLog *logger.Logger) AuditLogRepo {
	return &auditLogRepo{db: db, log: baseLog.With("repo", "AuditLogRepo")}
}

func (r *auditLogRepo) Create(dbc dbctx.Context, row *types.AuditLogEntry) (*types.AuditLogEntry, error) {
	if row == nil {
		return nil, nil
	}
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if err := t.WithContext(dbc.Ctx).Create(row).Error; err != nil {
		return nil, err
	}
	return row, nil
}

func (r *auditLogRepo) ListRecent(dbc dbctx.Context, filter Filter, limit int) ([]*types.AuditLogEntry, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if limit <= 0 {
		limit = 50
	}
	q := t.WithContext(dbc.Ctx).Model(&types.AuditLogEntry{})
	if filter.ActorID != uuid.Nil {
		q = q.Where("actor_id = ?", filter.ActorID)
	}
	if filter.ActionType != "" {
		q = q.Where("action_type = ?", filter.ActionType)
	}
	if target := strings.TrimSpace(filter.TargetID); target != "" {
		q = q.Where("target_id = ?", target)
	}
	var out []*types.AuditLogEntry
	if err := q.Order("timestamp DESC").Limit(limit).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
