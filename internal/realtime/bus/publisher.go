package bus

import (
	"context"

	"github.com/google/uuid"

	types "github.com/northcampus/gradebook-backend/internal/domain"
	"github.com/northcampus/gradebook-backend/internal/observability"
	"github.com/northcampus/gradebook-backend/internal/platform/logger"
	"github.com/northcampus/gradebook-backend/internal/realtime"
)

// Publisher turns ledger outcomes into grade events. It never fails its
// caller: a nil publisher or bus is a no-op, publish errors are logged and
// counted only.
type Publisher struct {
	log     *logger.Logger
	bus     Bus
	metrics *observability.Metrics
}

func NewPublisher(b Bus, baseLog *logger.Logger, metrics *observability.Metrics) *Publisher {
	return &Publisher{
		log:     baseLog.With("service", "GradePublisher"),
		bus:     b,
		metrics: metrics,
	}
}

// GradeEntered announces a fresh ledger record on the learner and module
// channels.
func (p *Publisher) GradeEntered(ctx context.Context, rec *types.GradeRecord) {
	if rec == nil {
		return
	}
	p.emit(ctx, realtime.EventGradeEntered, rec.LearnerID, rec.ModuleID, gradePayload(rec))
}

// GradeCorrected announces a completed correction; the payload carries the
// replacement record plus the id it superseded.
func (p *Publisher) GradeCorrected(ctx context.Context, replacement *types.GradeRecord) {
	if replacement == nil {
		return
	}
	data := gradePayload(replacement)
	if replacement.CorrectionOf != nil {
		data["superseded_id"] = *replacement.CorrectionOf
	}
	p.emit(ctx, realtime.EventGradeCorrected, replacement.LearnerID, replacement.ModuleID, data)
}

// VisibilityChanged announces a visibility flip on the learner channel.
func (p *Publisher) VisibilityChanged(ctx context.Context, rec *types.GradeRecord) {
	if rec == nil {
		return
	}
	p.emit(ctx, realtime.EventGradeVisibility, rec.LearnerID, rec.ModuleID, map[string]any{
		"record_id":          rec.ID,
		"module_id":          rec.ModuleID,
		"visible_to_student": rec.VisibleToStudent,
	})
}

// SnapshotSaved announces an officially saved course grade.
func (p *Publisher) SnapshotSaved(ctx context.Context, snap *types.CourseGradeSnapshot) {
	if p == nil || p.bus == nil || snap == nil {
		return
	}
	p.publish(ctx, realtime.Message{
		Channel: realtime.LearnerChannel(snap.LearnerID),
		Event:   realtime.EventSnapshotSaved,
		Data: map[string]any{
			"snapshot_id":    snap.ID,
			"course_id":      snap.CourseID,
			"overall_score":  snap.OverallScore,
			"overall_passed": snap.OverallPassed,
			"is_complete":    snap.IsComplete,
			"calculated_at":  snap.CalculatedAt,
		},
	})
}

func (p *Publisher) emit(ctx context.Context, ev realtime.Event, learnerID, moduleID uuid.UUID, data map[string]any) {
	if p == nil || p.bus == nil {
		return
	}
	p.publish(ctx, realtime.Message{Channel: realtime.LearnerChannel(learnerID), Event: ev, Data: data})
	p.publish(ctx, realtime.Message{Channel: realtime.ModuleChannel(moduleID), Event: ev, Data: data})
}

func (p *Publisher) publish(ctx context.Context, msg realtime.Message) {
	if err := p.bus.Publish(ctx, msg); err != nil {
		p.log.Warn("grade event publish failed",
			"event", string(msg.Event),
			"channel", msg.Channel,
			"error", err,
		)
		if p.metrics != nil {
			p.metrics.IncBusFailed(string(msg.Event))
		}
		return
	}
	if p.metrics != nil {
		p.metrics.IncBusPublished(string(msg.Event))
	}
}

func gradePayload(rec *types.GradeRecord) map[string]any {
	return map[string]any{
		"record_id":          rec.ID,
		"module_id":          rec.ModuleID,
		"course_id":          rec.CourseID,
		"score":              rec.Score,
		"passed":             rec.Passed,
		"visible_to_student": rec.VisibleToStudent,
		"graded_at":          rec.GradedAt,
	}
}
