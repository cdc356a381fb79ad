package aggregates

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"

	domainagg "github.com/northcampus/gradebook-backend/internal/domain/aggregates"
	"github.com/northcampus/gradebook-backend/internal/platform/dbctx"
	"github.com/northcampus/gradebook-backend/internal/platform/logger"
)

// defaultMaxTxAttempts bounds optimistic transaction retries before a
// contention failure is surfaced as a terminal conflict.
const defaultMaxTxAttempts = 3

const retryBackoffStep = 25 * time.Millisecond

type BaseDeps struct {
	DB     *gorm.DB
	Log    *logger.Logger
	Runner TxRunner
	Hooks  Hooks
	Guard  LedgerGuard

	// MaxTxAttempts overrides defaultMaxTxAttempts when > 0.
	MaxTxAttempts int
}

func (d BaseDeps) withDefaults() BaseDeps {
	if d.Runner == nil {
		d.Runner = NewGormTxRunner(d.DB)
	}
	if d.Hooks == nil {
		d.Hooks = noopHooks{}
	}
	if d.Guard.db == nil {
		d.Guard = NewLedgerGuard(d.DB)
	}
	if d.MaxTxAttempts <= 0 {
		d.MaxTxAttempts = defaultMaxTxAttempts
	}
	return d
}

// executeWrite runs fn in a single transaction attempt and maps the outcome
// into aggregate error codes plus hook signals.
func executeWrite(ctx context.Context, deps BaseDeps, op string, fn func(dbc dbctx.Context) error) error {
	start := time.Now()
	deps = deps.withDefaults()
	op = strings.TrimSpace(op)
	if op == "" {
		op = "aggregate.write"
	}
	err := deps.Runner.InTx(ctx, fn)
	mapped := MapError(op, err)

	status := "success"
	if mapped != nil {
		status = aggregateErrorStatus(mapped)
		if domainagg.IsCode(mapped, domainagg.CodeConflict) {
			deps.Hooks.IncConflict(op)
		}
		if domainagg.IsCode(mapped, domainagg.CodeRetryable) {
			deps.Hooks.IncRetry(op)
		}
	}
	deps.Hooks.ObserveOperation(op, status, time.Since(start))
	return mapped
}

// executeOptimisticWrite runs fn as an optimistic read-modify-write unit:
// each attempt is one whole transaction, retried on retryable failures up
// to the bounded attempt budget. Exhausting the budget on contention
// surfaces a terminal conflict, never a retryable error.
func executeOptimisticWrite(ctx context.Context, deps BaseDeps, op string, fn func(dbc dbctx.Context) error) (int, error) {
	start := time.Now()
	deps = deps.withDefaults()
	op = strings.TrimSpace(op)
	if op == "" {
		op = "aggregate.optimistic_write"
	}

	attempts := 0
	var mapped error
	for attempts < deps.MaxTxAttempts {
		attempts++
		mapped = MapError(op, deps.Runner.InTx(ctx, fn))
		if mapped == nil || !domainagg.IsCode(mapped, domainagg.CodeRetryable) {
			break
		}
		if ctx.Err() != nil {
			break
		}
		if attempts < deps.MaxTxAttempts {
			deps.Hooks.IncRetry(op)
			if deps.Log != nil {
				deps.Log.Warn("optimistic write contended, retrying",
					"op", op,
					"attempt", attempts,
					"error", mapped.Error(),
				)
			}
			select {
			case <-time.After(time.Duration(attempts) * retryBackoffStep):
			case <-ctx.Done():
			}
		}
	}

	if mapped != nil && domainagg.IsCode(mapped, domainagg.CodeRetryable) && ctx.Err() == nil {
		mapped = domainagg.Wrap(domainagg.CodeConflict, op, mapped)
	}

	status := "success"
	if mapped != nil {
		status = aggregateErrorStatus(mapped)
		if domainagg.IsCode(mapped, domainagg.CodeConflict) {
			deps.Hooks.IncConflict(op)
		}
	}
	deps.Hooks.ObserveOperation(op, status, time.Since(start))
	return attempts, mapped
}

func aggregateErrorStatus(err error) string {
	if err == nil {
		return "success"
	}
	code := strings.TrimSpace(string(domainagg.CodeOf(err)))
	if code == "" {
		code = strings.TrimSpace(string(domainagg.CodeOf(MapError("aggregate.status", err))))
	}
	if code == "" {
		return "failure"
	}
	return code
}
