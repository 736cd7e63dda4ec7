package service

import (
	"context"

	"github.com/petehayes102/hostagent/command"
)

// Service is the idempotent, provider-backed handle described in spec
// §4.6, grounded on the original source's Service<H> (service/mod.rs).
type Service struct {
	Provider Provider
	Name     string
}

// New builds a Service bound to provider.
func New(provider Provider, name string) Service {
	return Service{Provider: provider, Name: name}
}

// Running reports whether the service is currently running.
func (s Service) Running(ctx context.Context) (bool, error) {
	return s.Provider.Running(ctx, s.Name)
}

// Action performs verb against the service. For "start" and "stop" it is
// idempotent: if the service is already in the desired running state, it
// returns a nil Child without delegating, matching spec §4.5's
// idempotence wrapper — "if v ∈ {start, stop} then first check running;
// if the desired state already holds, return None". Every other verb
// (e.g. "restart") always delegates.
func (s Service) Action(ctx context.Context, verb string) (*command.Child, error) {
	if verb == "start" || verb == "stop" {
		running, err := s.Running(ctx)
		if err != nil {
			return nil, err
		}
		if (running && verb == "start") || (!running && verb == "stop") {
			return nil, nil
		}
	}
	return s.Provider.Action(ctx, s.Name, verb)
}

// Enabled reports whether the service is configured to start at boot.
func (s Service) Enabled(ctx context.Context) (bool, error) {
	return s.Provider.Enabled(ctx, s.Name)
}

// Enable configures the service to start at boot, unless it already is.
func (s Service) Enable(ctx context.Context) (bool, error) {
	enabled, err := s.Enabled(ctx)
	if err != nil {
		return false, err
	}
	if enabled {
		return false, nil
	}
	if err := s.Provider.Enable(ctx, s.Name); err != nil {
		return false, err
	}
	return true, nil
}

// Disable configures the service not to start at boot, unless it already
// doesn't.
func (s Service) Disable(ctx context.Context) (bool, error) {
	enabled, err := s.Enabled(ctx)
	if err != nil {
		return false, err
	}
	if !enabled {
		return false, nil
	}
	if err := s.Provider.Disable(ctx, s.Name); err != nil {
		return false, err
	}
	return true, nil
}
