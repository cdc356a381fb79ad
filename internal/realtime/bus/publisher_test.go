package bus

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"

	repotest "github.com/northcampus/gradebook-backend/internal/data/repos/testutil"
	types "github.com/northcampus/gradebook-backend/internal/domain"
	"github.com/northcampus/gradebook-backend/internal/realtime"
)

type recordingBus struct {
	mu   sync.Mutex
	msgs []realtime.Message
	err  error
}

func (b *recordingBus) Publish(_ context.Context, msg realtime.Message) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return b.err
	}
	b.msgs = append(b.msgs, msg)
	return nil
}

func (b *recordingBus) StartForwarder(context.Context, func(m realtime.Message)) error { return nil }

func (b *recordingBus) Close() error { return nil }

func (b *recordingBus) messages() []realtime.Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]realtime.Message, len(b.msgs))
	copy(out, b.msgs)
	return out
}

func testRecord(learnerID uuid.UUID) *types.GradeRecord {
	return &types.GradeRecord{
		ID:               "rec-1",
		LearnerID:        learnerID,
		ModuleID:         uuid.New(),
		CourseID:         uuid.New(),
		Score:            88,
		Passed:           true,
		VisibleToStudent: true,
	}
}

func TestGradeEnteredPublishesBothChannels(t *testing.T) {
	fake := &recordingBus{}
	pub := NewPublisher(fake, repotest.Logger(t), nil)

	learnerID := uuid.New()
	rec := testRecord(learnerID)
	pub.GradeEntered(context.Background(), rec)

	msgs := fake.messages()
	if len(msgs) != 2 {
		t.Fatalf("messages: want=2 got=%d", len(msgs))
	}
	if msgs[0].Channel != realtime.LearnerChannel(learnerID) {
		t.Fatalf("first channel: got=%s", msgs[0].Channel)
	}
	if msgs[1].Channel != realtime.ModuleChannel(rec.ModuleID) {
		t.Fatalf("second channel: got=%s", msgs[1].Channel)
	}
	for _, m := range msgs {
		if m.Event != realtime.EventGradeEntered {
			t.Fatalf("event: got=%s", m.Event)
		}
		data, ok := m.Data.(map[string]any)
		if !ok {
			t.Fatalf("data type: %T", m.Data)
		}
		if data["record_id"] != "rec-1" || data["score"] != 88 || data["passed"] != true {
			t.Fatalf("payload: %+v", data)
		}
	}
}

func TestGradeCorrectedCarriesSupersededID(t *testing.T) {
	fake := &recordingBus{}
	pub := NewPublisher(fake, repotest.Logger(t), nil)

	prior := "rec-0"
	rec := testRecord(uuid.New())
	rec.CorrectionOf = &prior
	pub.GradeCorrected(context.Background(), rec)

	msgs := fake.messages()
	if len(msgs) != 2 {
		t.Fatalf("messages: want=2 got=%d", len(msgs))
	}
	data := msgs[0].Data.(map[string]any)
	if data["superseded_id"] != prior {
		t.Fatalf("superseded_id: got=%v", data["superseded_id"])
	}
	if msgs[0].Event != realtime.EventGradeCorrected {
		t.Fatalf("event: got=%s", msgs[0].Event)
	}
}

func TestVisibilityChangedPayload(t *testing.T) {
	fake := &recordingBus{}
	pub := NewPublisher(fake, repotest.Logger(t), nil)

	rec := testRecord(uuid.New())
	rec.VisibleToStudent = false
	pub.VisibilityChanged(context.Background(), rec)

	msgs := fake.messages()
	if len(msgs) != 2 {
		t.Fatalf("messages: want=2 got=%d", len(msgs))
	}
	data := msgs[0].Data.(map[string]any)
	if data["visible_to_student"] != false {
		t.Fatalf("visibility payload: %+v", data)
	}
}

func TestSnapshotSavedPublishesLearnerChannel(t *testing.T) {
	fake := &recordingBus{}
	pub := NewPublisher(fake, repotest.Logger(t), nil)

	learnerID := uuid.New()
	pub.SnapshotSaved(context.Background(), &types.CourseGradeSnapshot{
		ID:            "snap-1",
		LearnerID:     learnerID,
		CourseID:      uuid.New(),
		OverallScore:  81,
		OverallPassed: true,
	})

	msgs := fake.messages()
	if len(msgs) != 1 {
		t.Fatalf("messages: want=1 got=%d", len(msgs))
	}
	if msgs[0].Channel != realtime.LearnerChannel(learnerID) {
		t.Fatalf("channel: got=%s", msgs[0].Channel)
	}
	if msgs[0].Event != realtime.EventSnapshotSaved {
		t.Fatalf("event: got=%s", msgs[0].Event)
	}
}

func TestPublisherAbsorbsBusFailure(t *testing.T) {
	fake := &recordingBus{err: errors.New("redis gone")}
	pub := NewPublisher(fake, repotest.Logger(t), nil)

	pub.GradeEntered(context.Background(), testRecord(uuid.New()))
	if msgs := fake.messages(); len(msgs) != 0 {
		t.Fatalf("failed publishes must not be recorded, got=%d", len(msgs))
	}
}

func TestPublisherNilSafety(t *testing.T) {
	var pub *Publisher
	pub.GradeEntered(context.Background(), testRecord(uuid.New()))
	pub.SnapshotSaved(context.Background(), nil)

	// A publisher without a bus is a configured no-op.
	quiet := NewPublisher(nil, repotest.Logger(t), nil)
	quiet.GradeEntered(context.Background(), testRecord(uuid.New()))
	quiet.GradeCorrected(context.Background(), nil)
}
