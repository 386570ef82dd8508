// Package actorcontext carries the authenticated member identity through a
// request. The upstream auth layer is trusted to have verified it.
package actorcontext

import (
	"context"

	"github.com/bwmarrin/snowflake"
)

type actorKey struct{}

// Actor is the authenticated caller of an operation.
type Actor struct {
	MemberID snowflake.ID
	Email    string
	Name     string
}

// WithActor stores the actor in the context.
func WithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// FromContext returns the actor from context, if set.
func FromContext(ctx context.Context) (Actor, bool) {
	if ctx == nil {
		return Actor{}, false
	}
	actor, ok := ctx.Value(actorKey{}).(Actor)
	if !ok || actor.MemberID == 0 {
		return Actor{}, false
	}
	return actor, true
}
