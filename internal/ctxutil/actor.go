// Package ctxutil carries request-scoped values that every layer may read.
// It imports nothing from this module.
package ctxutil

import "context"

type actorKey struct{}

// WithActorID records the user on whose behalf store writes are made.
func WithActorID(ctx context.Context, actorID string) context.Context {
	return context.WithValue(ctx, actorKey{}, actorID)
}

// ActorFromContext returns the acting user id, or "" when none was set.
func ActorFromContext(ctx context.Context) string {
	id, _ := ctx.Value(actorKey{}).(string)
	return id
}
