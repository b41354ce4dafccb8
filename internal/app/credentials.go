package app

import (
	"context"
	"fmt"

	"github.com/example/bulkcase/internal/ctxutil"
	"github.com/example/bulkcase/internal/ports/secondary"
)

// Credentials are the identity a run acts under. They are fetched once per
// orchestrator invocation or task run and passed explicitly from there on.
type Credentials struct {
	ServiceToken string
	Actor        secondary.Actor
}

// LoadCredentials fetches the service credential and system actor.
func LoadCredentials(ctx context.Context, identity secondary.IdentityProvider) (Credentials, error) {
	token, err := identity.ServiceCredential(ctx)
	if err != nil {
		return Credentials{}, fmt.Errorf("failed to get service credential: %w", err)
	}
	actor, err := identity.SystemActor(ctx)
	if err != nil {
		return Credentials{}, fmt.Errorf("failed to get system actor: %w", err)
	}
	return Credentials{ServiceToken: token, Actor: *actor}, nil
}

// withActor stamps the acting user into ctx for the audit log.
func (c Credentials) withActor(ctx context.Context) context.Context {
	if c.Actor.ID == "" {
		return ctx
	}
	return ctxutil.WithActorID(ctx, c.Actor.ID)
}
