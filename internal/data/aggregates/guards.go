package aggregates

import (
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/northcampus/gradebook-backend/internal/platform/dbctx"
)

// LedgerGuard provides the conditional-write primitives the grade ledger's
// optimistic protocol is built on.
type LedgerGuard struct {
	db *gorm.DB
}

func NewLedgerGuard(db *gorm.DB) LedgerGuard {
	return LedgerGuard{db: db}
}

func (g LedgerGuard) baseDB(dbc dbctx.Context) (*gorm.DB, error) {
	if dbc.Tx != nil {
		return dbc.Tx.WithContext(dbc.Ctx), nil
	}
	if g.db != nil {
		return g.db.WithContext(dbc.Ctx), nil
	}
	return nil, ValidationError("missing db transaction context")
}

// SupersedeIfCurrent sets superseded_by on a grade record only while the
// record is still current. The transition is one-way: a row whose
// superseded_by is already set never matches, so the link can only be
// written once.
func (g LedgerGuard) SupersedeIfCurrent(dbc dbctx.Context, id, successorID string) (bool, error) {
	id = strings.TrimSpace(id)
	successorID = strings.TrimSpace(successorID)
	if id == "" || successorID == "" {
		return false, ValidationError("id and successorID are required for SupersedeIfCurrent")
	}
	if id == successorID {
		return false, ValidationError("a grade record cannot supersede itself")
	}
	db, err := g.baseDB(dbc)
	if err != nil {
		return false, err
	}
	res := db.Table("grade_record").
		Where("id = ? AND superseded_by IS NULL", id).
		Updates(map[string]any{
			"superseded_by": successorID,
			"updated_at":    time.Now().UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
