package telemetry

import (
	"context"

	"github.com/google/uuid"
)

type turnIDKey struct{}

// NewTurnID returns a fresh, globally unique turn identifier.
func NewTurnID() string { return "turn-" + uuid.NewString() }

// WithTurnID returns a child of ctx carrying id. A nil ctx means context.Background().
func WithTurnID(ctx context.Context, id string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, turnIDKey{}, id)
}

// TurnIDFromContext returns the turn id carried by ctx. Empty ids count as missing.
func TurnIDFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	id, ok := ctx.Value(turnIDKey{}).(string)
	return id, ok && id != ""
}

// EnsureTurnID returns ctx unchanged when it already carries a turn id, or
// a child carrying a new one.
func EnsureTurnID(ctx context.Context) (context.Context, string) {
	if id, ok := TurnIDFromContext(ctx); ok {
		return ctx, id
	}
	id := NewTurnID()
	return WithTurnID(ctx, id), id
}
