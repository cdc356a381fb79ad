package audit

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/northcampus/gradebook-backend/internal/data/repos"
	types "github.com/northcampus/gradebook-backend/internal/domain"
	"github.com/northcampus/gradebook-backend/internal/observability"
	"github.com/northcampus/gradebook-backend/internal/platform/dbctx"
	"github.com/northcampus/gradebook-backend/internal/platform/logger"
)

const (
	// DefaultQueueDepth bounds the async Submit queue. A full queue drops
	// the event (counted) rather than blocking the business operation.
	DefaultQueueDepth = 256

	defaultWriteTimeout = 5 * time.Second
)

// Event is one auditable action as reported by a caller. The Trail owns
// id and timestamp assignment.
type Event struct {
	ActorID    uuid.UUID
	ActorName  string
	ActionType types.AuditActionType
	TargetID   string
	Details    string
	Metadata   map[string]any
}

// Query narrows Recent. Zero values mean "no filter".
type Query struct {
	ActorID    uuid.UUID
	ActionType types.AuditActionType
	TargetID   string
	Limit      int
}

// Config tunes the Trail. Zero values fall back to compiled defaults.
type Config struct {
	RingCapacity int
	QueueDepth   int
	WriteTimeout time.Duration
}

// Trail is the fail-safe, append-only audit sink shared by every component.
//
// Record never fails its caller: the entry lands in the in-memory ring
// first, then a durable write is attempted; a durable failure is reported
// on an internal error channel the Trail drains itself, and the caller
// merely receives nil instead of an entry id. Submit is the fully
// asynchronous variant used on business write paths; callers hold no
// handle to the queued task.
type Trail struct {
	log     *logger.Logger
	repo    repos.AuditLogRepo
	metrics *observability.Metrics

	ring         *ring
	writeTimeout time.Duration

	tasks chan Event
	errs  chan trailFailure

	stop      chan struct{}
	tasksDone chan struct{}
	wg        sync.WaitGroup
	closing   sync.Once
}

type trailFailure struct {
	action types.AuditActionType
	err    error
}

// NewTrail builds the trail and starts its drain workers. Callers own the
// lifecycle: Close flushes the queue and stops the workers.
func NewTrail(repo repos.AuditLogRepo, baseLog *logger.Logger, metrics *observability.Metrics, cfg Config) *Trail {
	queueDepth := cfg.QueueDepth
	if queueDepth <= 0 {
		queueDepth = DefaultQueueDepth
	}
	writeTimeout := cfg.WriteTimeout
	if writeTimeout <= 0 {
		writeTimeout = defaultWriteTimeout
	}

	t := &Trail{
		log:          baseLog.With("component", "AuditTrail"),
		repo:         repo,
		metrics:      metrics,
		ring:         newRing(cfg.RingCapacity),
		writeTimeout: writeTimeout,
		tasks:        make(chan Event, queueDepth),
		errs:         make(chan trailFailure, queueDepth),
		stop:         make(chan struct{}),
		tasksDone:    make(chan struct{}),
	}

	t.wg.Add(2)
	go t.drainTasks()
	go t.drainErrors()
	return t
}

// Record writes one audit entry best-effort and returns its id, or nil when
// the durable write failed or the event was malformed. It must never cause
// its caller to fail; callers must not branch on the returned id for the
// success of their own operation.
func (t *Trail) Record(ctx context.Context, ev Event) *uuid.UUID {
	if t == nil {
		return nil
	}
	entry, ok := t.buildEntry(ev)
	if !ok {
		return nil
	}

	// Ring first: local observability survives a durable-store outage.
	t.ring.Append(entry)
	t.observeAttempt(ev.ActionType)

	if t.repo == nil {
		t.reportFailure(ev.ActionType, errNoStore)
		return nil
	}

	if ctx == nil {
		ctx = context.Background()
	}
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), t.writeTimeout)
	defer cancel()

	if _, err := t.repo.Create(dbctx.Context{Ctx: writeCtx}, entry); err != nil {
		t.reportFailure(ev.ActionType, err)
		return nil
	}
	t.observeWritten(ev.ActionType)
	id := entry.ID
	return &id
}

// Submit queues the event for asynchronous recording and returns
// immediately. A full queue drops the event rather than blocking; the drop
// is counted and logged.
func (t *Trail) Submit(ev Event) {
	if t == nil {
		return
	}
	select {
	case <-t.stop:
		return
	default:
	}
	select {
	case t.tasks <- ev:
		t.observeQueueDepth()
	default:
		t.log.Warn("audit queue full, dropping event",
			"action_type", string(ev.ActionType),
			"target_id", ev.TargetID,
		)
		if t.metrics != nil {
			t.metrics.IncAuditFailed(string(ev.ActionType))
		}
	}
}

// Recent returns the newest matching entries, newest first. A durable-store
// read failure falls back to the in-memory ring instead of raising.
func (t *Trail) Recent(ctx context.Context, q Query) []*types.AuditLogEntry {
	if t == nil {
		return nil
	}
	limit := q.Limit
	if limit <= 0 {
		limit = 50
	}

	if t.repo != nil {
		rows, err := t.repo.ListRecent(dbctx.Context{Ctx: ctx}, repos.AuditFilter{
			ActorID:    q.ActorID,
			ActionType: q.ActionType,
			TargetID:   q.TargetID,
		}, limit)
		if err == nil {
			return rows
		}
		t.log.Warn("audit read falling back to ring buffer", "error", err)
	}

	out := make([]*types.AuditLogEntry, 0, limit)
	for _, e := range t.ring.Snapshot() {
		if q.ActorID != uuid.Nil && e.ActorID != q.ActorID {
			continue
		}
		if q.ActionType != "" && e.ActionType != q.ActionType {
			continue
		}
		if target := strings.TrimSpace(q.TargetID); target != "" && e.TargetID != target {
			continue
		}
		out = append(out, e)
		if len(out) == limit {
			break
		}
	}
	return out
}

// Close drains queued events, stops the workers, and returns once every
// in-flight write has settled.
func (t *Trail) Close() {
	if t == nil {
		return
	}
	t.closing.Do(func() {
		close(t.stop)
		close(t.tasks)
	})
	t.wg.Wait()
}

func (t *Trail) drainTasks() {
	defer t.wg.Done()
	for ev := range t.tasks {
		// Background context: the submitting request is long gone.
		t.Record(context.Background(), ev)
		t.observeQueueDepth()
	}
	close(t.tasksDone)
}

// drainErrors keeps durable-write failures visible to operators without
// ever surfacing them to the callers whose operations triggered them.
// The errs channel is never closed, so a straggling Record can always
// report without panicking.
func (t *Trail) drainErrors() {
	defer t.wg.Done()
	for {
		select {
		case f := <-t.errs:
			t.logFailure(f)
		case <-t.tasksDone:
			for {
				select {
				case f := <-t.errs:
					t.logFailure(f)
				default:
					return
				}
			}
		}
	}
}

func (t *Trail) logFailure(f trailFailure) {
	t.log.Error("audit durable write failed",
		"action_type", string(f.action),
		"error", f.err,
	)
	if t.metrics != nil {
		t.metrics.IncAuditFailed(string(f.action))
	}
}

func (t *Trail) buildEntry(ev Event) (*types.AuditLogEntry, bool) {
	if ev.ActorID == uuid.Nil {
		t.log.Warn("audit event missing actor id", "action_type", string(ev.ActionType))
		return nil, false
	}
	if !ev.ActionType.Valid() {
		t.log.Warn("audit event with unknown action type", "action_type", string(ev.ActionType))
		return nil, false
	}

	entry := &types.AuditLogEntry{
		ID:         uuid.New(),
		ActorID:    ev.ActorID,
		ActorName:  strings.TrimSpace(ev.ActorName),
		ActionType: ev.ActionType,
		TargetID:   strings.TrimSpace(ev.TargetID),
		Details:    strings.TrimSpace(ev.Details),
		Timestamp:  time.Now().UTC(),
	}
	if len(ev.Metadata) > 0 {
		raw, err := json.Marshal(ev.Metadata)
		if err != nil {
			t.log.Warn("audit metadata not serializable, dropping metadata",
				"action_type", string(ev.ActionType),
				"error", err,
			)
		} else {
			entry.Metadata = datatypes.JSON(raw)
		}
	}
	return entry, true
}

func (t *Trail) reportFailure(action types.AuditActionType, err error) {
	f := trailFailure{action: action, err: err}
	select {
	case <-t.tasksDone:
		// Workers are gone; log directly.
		t.logFailure(f)
		return
	default:
	}
	select {
	case t.errs <- f:
	default:
		// Error channel saturated; log directly rather than block.
		t.logFailure(f)
	}
}

func (t *Trail) observeAttempt(action types.AuditActionType) {
	if t.metrics != nil {
		t.metrics.IncAuditAttempted(string(action))
	}
}

func (t *Trail) observeWritten(action types.AuditActionType) {
	if t.metrics != nil {
		t.metrics.IncAuditWritten(string(action))
	}
}

func (t *Trail) observeQueueDepth() {
	if t.metrics != nil {
		t.metrics.SetAuditQueueDepth(len(t.tasks))
	}
}

var errNoStore = errNoStoreType{}

type errNoStoreType struct{}

func (errNoStoreType) Error() string { return "audit trail has no durable store configured" }
