package aggregates

import (
	"context"
	"testing"
	"time"

	domainagg "github.com/northcampus/gradebook-backend/internal/domain/aggregates"
	"github.com/northcampus/gradebook-backend/internal/platform/dbctx"
)

func TestExecuteWriteObservesSuccessStatus(t *testing.T) {
	hooks := &spyHooks{}
	runner := spyTxRunner{}

	err := executeWrite(context.Background(), BaseDeps{
		Runner: runner,
		Hooks:  hooks,
	}, "aggregate.test.success", func(_ dbctx.Context) error { return nil })
	if err != nil {
		t.Fatalf("executeWrite success: %v", err)
	}
	if len(hooks.Operations) != 1 {
		t.Fatalf("operations count: want=1 got=%d", len(hooks.Operations))
	}
	if hooks.Operations[0].Status != "success" {
		t.Fatalf("operation status: want=success got=%s", hooks.Operations[0].Status)
	}
}

func TestExecuteWriteObservesInvariantViolationStatus(t *testing.T) {
	hooks := &spyHooks{}
	runner := spyTxRunner{}

	err := executeWrite(context.Background(), BaseDeps{
		Runner: runner,
		Hooks:  hooks,
	}, "aggregate.test.invariant", func(_ dbctx.Context) error {
		return InvariantError("invariant broken")
	})
	if err == nil {
		t.Fatalf("expected error")
	}
	if !domainagg.IsCode(err, domainagg.CodeInvariantViolation) {
		t.Fatalf("expected invariant violation code, got=%v", err)
	}
	if len(hooks.Operations) != 1 {
		t.Fatalf("operations count: want=1 got=%d", len(hooks.Operations))
	}
	if hooks.Operations[0].Status != string(domainagg.CodeInvariantViolation) {
		t.Fatalf("operation status: want=%s got=%s", domainagg.CodeInvariantViolation, hooks.Operations[0].Status)
	}
}

func TestExecuteWriteTracksConflictAndRetryCounters(t *testing.T) {
	t.Run("conflict", func(t *testing.T) {
		hooks := &spyHooks{}
		runner := spyTxRunner{}
		err := executeWrite(context.Background(), BaseDeps{
			Runner: runner,
			Hooks:  hooks,
		}, "aggregate.test.conflict", func(_ dbctx.Context) error {
			return ConflictError("already superseded")
		})
		if err == nil {
			t.Fatalf("expected error")
		}
		if !domainagg.IsCode(err, domainagg.CodeConflict) {
			t.Fatalf("expected conflict code, got=%v", err)
		}
		if len(hooks.Conflicts) != 1 || hooks.Conflicts[0] != "aggregate.test.conflict" {
			t.Fatalf("conflict hooks: %+v", hooks.Conflicts)
		}
		if len(hooks.Retries) != 0 {
			t.Fatalf("retry hooks should be empty, got=%+v", hooks.Retries)
		}
		if len(hooks.Operations) != 1 || hooks.Operations[0].Status != string(domainagg.CodeConflict) {
			t.Fatalf("unexpected op status: %+v", hooks.Operations)
		}
	})

	t.Run("retryable", func(t *testing.T) {
		hooks := &spyHooks{}
		runner := spyTxRunner{}
		err := executeWrite(context.Background(), BaseDeps{
			Runner: runner,
			Hooks:  hooks,
		}, "aggregate.test.retry", func(_ dbctx.Context) error {
			return RetryableError("temporary lock timeout")
		})
		if err == nil {
			t.Fatalf("expected error")
		}
		if !domainagg.IsCode(err, domainagg.CodeRetryable) {
			t.Fatalf("expected retryable code, got=%v", err)
		}
		if len(hooks.Retries) != 1 || hooks.Retries[0] != "aggregate.test.retry" {
			t.Fatalf("retry hooks: %+v", hooks.Retries)
		}
		if len(hooks.Conflicts) != 0 {
			t.Fatalf("conflict hooks should be empty, got=%+v", hooks.Conflicts)
		}
		if len(hooks.Operations) != 1 || hooks.Operations[0].Status != string(domainagg.CodeRetryable) {
			t.Fatalf("unexpected op status: %+v", hooks.Operations)
		}
	})
}

func TestExecuteOptimisticWriteSingleAttemptOnSuccess(t *testing.T) {
	hooks := &spyHooks{}
	runner := spyTxRunner{}

	attempts, err := executeOptimisticWrite(context.Background(), BaseDeps{
		Runner: runner,
		Hooks:  hooks,
	}, "aggregate.test.optimistic", func(_ dbctx.Context) error { return nil })
	if err != nil {
		t.Fatalf("executeOptimisticWrite: %v", err)
	}
	if attempts != 1 {
		t.Fatalf("attempts: want=1 got=%d", attempts)
	}
	if len(hooks.Retries) != 0 {
		t.Fatalf("retry hooks should be empty, got=%+v", hooks.Retries)
	}
	if len(hooks.Operations) != 1 || hooks.Operations[0].Status != "success" {
		t.Fatalf("unexpected op status: %+v", hooks.Operations)
	}
}

func TestExecuteOptimisticWriteRetriesThenSucceeds(t *testing.T) {
	hooks := &spyHooks{}
	runner := spyTxRunner{}

	calls := 0
	attempts, err := executeOptimisticWrite(context.Background(), BaseDeps{
		Runner: runner,
		Hooks:  hooks,
	}, "aggregate.test.optimistic", func(_ dbctx.Context) error {
		calls++
		if calls < 3 {
			return RetryableError("row changed while correcting")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("executeOptimisticWrite after retries: %v", err)
	}
	if attempts != 3 {
		t.Fatalf("attempts: want=3 got=%d", attempts)
	}
	if len(hooks.Retries) != 2 {
		t.Fatalf("retry hooks: want=2 got=%+v", hooks.Retries)
	}
	if len(hooks.Conflicts) != 0 {
		t.Fatalf("conflict hooks should be empty, got=%+v", hooks.Conflicts)
	}
	if len(hooks.Operations) != 1 || hooks.Operations[0].Status != "success" {
		t.Fatalf("unexpected op status: %+v", hooks.Operations)
	}
}

func TestExecuteOptimisticWriteExhaustionBecomesConflict(t *testing.T) {
	t.Run("default budget", func(t *testing.T) {
		hooks := &spyHooks{}
		runner := spyTxRunner{}

		attempts, err := executeOptimisticWrite(context.Background(), BaseDeps{
			Runner: runner,
			Hooks:  hooks,
		}, "aggregate.test.optimistic", func(_ dbctx.Context) error {
			return RetryableError("row changed while correcting")
		})
		if err == nil {
			t.Fatalf("expected error after exhausting attempts")
		}
		if !domainagg.IsCode(err, domainagg.CodeConflict) {
			t.Fatalf("exhausted retries should surface a conflict, got=%v", err)
		}
		if attempts != defaultMaxTxAttempts {
			t.Fatalf("attempts: want=%d got=%d", defaultMaxTxAttempts, attempts)
		}
		if len(hooks.Retries) != defaultMaxTxAttempts-1 {
			t.Fatalf("retry hooks: want=%d got=%+v", defaultMaxTxAttempts-1, hooks.Retries)
		}
		if len(hooks.Conflicts) != 1 {
			t.Fatalf("conflict hooks: want=1 got=%+v", hooks.Conflicts)
		}
		if len(hooks.Operations) != 1 || hooks.Operations[0].Status != string(domainagg.CodeConflict) {
			t.Fatalf("unexpected op status: %+v", hooks.Operations)
		}
	})

	t.Run("single attempt budget", func(t *testing.T) {
		hooks := &spyHooks{}
		runner := spyTxRunner{}

		attempts, err := executeOptimisticWrite(context.Background(), BaseDeps{
			Runner:        runner,
			Hooks:         hooks,
			MaxTxAttempts: 1,
		}, "aggregate.test.optimistic", func(_ dbctx.Context) error {
			return RetryableError("row changed while correcting")
		})
		if err == nil {
			t.Fatalf("expected error after exhausting attempts")
		}
		if !domainagg.IsCode(err, domainagg.CodeConflict) {
			t.Fatalf("exhausted retries should surface a conflict, got=%v", err)
		}
		if attempts != 1 {
			t.Fatalf("attempts: want=1 got=%d", attempts)
		}
		if len(hooks.Retries) != 0 {
			t.Fatalf("retry hooks should be empty, got=%+v", hooks.Retries)
		}
	})
}

func TestExecuteOptimisticWriteTerminalErrorSkipsRetry(t *testing.T) {
	hooks := &spyHooks{}
	runner := spyTxRunner{}

	attempts, err := executeOptimisticWrite(context.Background(), BaseDeps{
		Runner: runner,
		Hooks:  hooks,
	}, "aggregate.test.optimistic", func(_ dbctx.Context) error {
		return ConflictError("grade record already superseded")
	})
	if err == nil {
		t.Fatalf("expected error")
	}
	if !domainagg.IsCode(err, domainagg.CodeConflict) {
		t.Fatalf("expected conflict code, got=%v", err)
	}
	if attempts != 1 {
		t.Fatalf("terminal errors never retry: attempts want=1 got=%d", attempts)
	}
	if len(hooks.Retries) != 0 {
		t.Fatalf("retry hooks should be empty, got=%+v", hooks.Retries)
	}
	if len(hooks.Conflicts) != 1 {
		t.Fatalf("conflict hooks: want=1 got=%+v", hooks.Conflicts)
	}
}

func TestExecuteOptimisticWriteCancelledContextStaysRetryable(t *testing.T) {
	hooks := &spyHooks{}
	runner := spyTxRunner{}

	ctx, cancel := context.WithCancel(context.Background())
	attempts, err := executeOptimisticWrite(ctx, BaseDeps{
		Runner: runner,
		Hooks:  hooks,
	}, "aggregate.test.optimistic", func(_ dbctx.Context) error {
		cancel()
		return RetryableError("row changed while correcting")
	})
	if err == nil {
		t.Fatalf("expected error")
	}
	if !domainagg.IsCode(err, domainagg.CodeRetryable) {
		t.Fatalf("caller gave up, error should stay retryable, got=%v", err)
	}
	if attempts != 1 {
		t.Fatalf("attempts: want=1 got=%d", attempts)
	}
	if len(hooks.Conflicts) != 0 {
		t.Fatalf("conflict hooks should be empty, got=%+v", hooks.Conflicts)
	}
}

// compile-time guard to catch accidental status format regressions.
func TestAggregateErrorStatus(t *testing.T) {
	if got := aggregateErrorStatus(nil); got != "success" {
		t.Fatalf("nil status: want=success got=%s", got)
	}
	if got := aggregateErrorStatus(InvariantError("x")); got != string(domainagg.CodeInvariantViolation) {
		t.Fatalf("invariant status: got=%s", got)
	}
	if got := aggregateErrorStatus(ConflictError("x")); got != string(domainagg.CodeConflict) {
		t.Fatalf("conflict status: got=%s", got)
	}
	if got := aggregateErrorStatus(PolicyError("x")); got != string(domainagg.CodePolicy) {
		t.Fatalf("policy status: got=%s", got)
	}
	if got := aggregateErrorStatus(RetryableError("x")); got != string(domainagg.CodeRetryable) {
		t.Fatalf("retry status: got=%s", got)
	}
	if got := aggregateErrorStatus(context.DeadlineExceeded); got != string(domainagg.CodeRetryable) {
		t.Fatalf("deadline status: got=%s", got)
	}
}

type spyTxRunner struct{}

func (spyTxRunner) InTx(ctx context.Context, fn func(dbc dbctx.Context) error) error {
	if fn == nil {
		return nil
	}
	return fn(dbctx.Context{Ctx: ctx})
}

type spyHooks struct {
	Operations []spyOperation
	Conflicts  []string
	Retries    []string
}

type spyOperation struct {
	Name   string
	Status string
}

func (h *spyHooks) ObserveOperation(name, status string, _ time.Duration) {
	h.Operations = append(h.Operations, spyOperation{Name: name, Status: status})
}

func (h *spyHooks) IncConflict(name string) {
	h.Conflicts = append(h.Conflicts, name)
}

func (h *spyHooks) IncRetry(name string) {
	h.Retries = append(h.Retries, name)
}
