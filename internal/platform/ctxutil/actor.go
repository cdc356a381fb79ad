package ctxutil

import (
	"context"

	"github.com/google/uuid"
)

type actorDataKey struct{}

// ActorData identifies the authenticated grader or registrar behind a
// request. Authentication itself happens upstream; this core only consumes
// the verified claims.
type ActorData struct {
	ActorID   uuid.UUID
	ActorName string
	Roles     []string
}

func WithActorData(ctx context.Context, ad *ActorData) context.Context {
	return context.WithValue(ctx, actorDataKey{}, ad)
}

func GetActorData(ctx context.Context) *ActorData {
	val := ctx.Value(actorDataKey{})
	if ad, ok := val.(*ActorData); ok {
		return ad
	}
	return nil
}

// HasRole reports whether the actor carries the named role claim.
func (a *ActorData) HasRole(role string) bool {
	if a == nil {
		return false
	}
	for _, r := range a.Roles {
		if r == role {
			return true
		}
	}
	return false
}
