package secondary

import "context"

// IdentityProvider defines the secondary port for the credentials the engine
// acts under. Callers fetch these once per run, not per case.
type IdentityProvider interface {
	// ServiceCredential returns the service-to-service credential.
	ServiceCredential(ctx context.Context) (string, error)

	// SystemActor returns the details of the system user that submits updates.
	SystemActor(ctx context.Context) (*Actor, error)
}

// Actor identifies who a submit is made on behalf of.
type Actor struct {
	ID    string
	Name  string
	Roles []string
}
