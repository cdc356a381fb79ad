package bus

import (
	"context"

	"github.com/northcampus/gradebook-backend/internal/realtime"
)

// Bus carries grade events between the service and its subscribers.
type Bus interface {
	Publish(ctx context.Context, msg realtime.Message) error
	StartForwarder(ctx context.Context, onMsg func(m realtime.Message)) error
	Close() error
}
