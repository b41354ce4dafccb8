// Package persistence contains adapters backed by local configuration.
package persistence

import (
	"context"
	"fmt"
	"os"

	"github.com/example/bulkcase/internal/config"
	"github.com/example/bulkcase/internal/ports/secondary"
)

// ConfigIdentityProvider implements secondary.IdentityProvider from the
// identity section of the configuration.
type ConfigIdentityProvider struct {
	cfg    config.IdentityConfig
	getenv func(string) string
}

// NewConfigIdentityProvider creates a new ConfigIdentityProvider.
func NewConfigIdentityProvider(cfg config.IdentityConfig) *ConfigIdentityProvider {
	return &ConfigIdentityProvider{cfg: cfg, getenv: os.Getenv}
}

// ServiceCredential returns the configured service credential.
func (p *ConfigIdentityProvider) ServiceCredential(ctx context.Context) (string, error) {
	if p.cfg.ServiceCredentialEnv != "" {
		if v := p.getenv(p.cfg.ServiceCredentialEnv); v != "" {
			return v, nil
		}
		return "", fmt.Errorf("service credential variable %s is not set", p.cfg.ServiceCredentialEnv)
	}
	if p.cfg.ServiceCredential == "" {
		return "", fmt.Errorf("no service credential configured")
	}
	return p.cfg.ServiceCredential, nil
}

// SystemActor returns the configured system user.
func (p *ConfigIdentityProvider) SystemActor(ctx context.Context) (*secondary.Actor, error) {
	if p.cfg.SystemUserID == "" {
		return nil, fmt.Errorf("no system user configured")
	}
	roles := append([]string(nil), p.cfg.SystemUserRoles...)
	return &secondary.Actor{
		ID:    p.cfg.SystemUserID,
		Name:  p.cfg.SystemUserName,
		Roles: roles,
	}, nil
}

// Ensure ConfigIdentityProvider implements the interface
var _ secondary.IdentityProvider = (*ConfigIdentityProvider)(nil)
