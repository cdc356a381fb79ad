package aggregates

import (
	"context"
	"errors"
	"testing"

	"github.com/northcampus/gradebook-backend/internal/platform/dbctx"
)

func TestSupersedeIfCurrentInputValidation(t *testing.T) {
	g := LedgerGuard{}
	dbc := dbctx.Context{Ctx: context.Background()}

	if _, err := g.SupersedeIfCurrent(dbc, "", "successor"); !errors.Is(err, ErrValidation) {
		t.Fatalf("empty id: expected validation error, got=%v", err)
	}
	if _, err := g.SupersedeIfCurrent(dbc, "original", ""); !errors.Is(err, ErrValidation) {
		t.Fatalf("empty successor: expected validation error, got=%v", err)
	}
	if _, err := g.SupersedeIfCurrent(dbc, "same", "same"); !errors.Is(err, ErrValidation) {
		t.Fatalf("self supersede: expected validation error, got=%v", err)
	}
	if _, err := g.SupersedeIfCurrent(dbc, "original", "successor"); !errors.Is(err, ErrValidation) {
		t.Fatalf("missing db: expected validation error, got=%v", err)
	}
}
