package pkgmgr

import (
	"context"

	"github.com/petehayes102/hostagent/command"
)

// Package is the idempotent, provider-backed handle described in spec
// §4.5, grounded on the original source's Package<H> (package/mod.rs):
// Install/Uninstall only delegate to the underlying provider when the
// package isn't already in the desired state, making the no-op case
// observable to the caller via a nil *command.Child.
type Package struct {
	Provider Provider
	Name     string
}

// New builds a Package bound to provider.
func New(provider Provider, name string) Package {
	return Package{Provider: provider, Name: name}
}

// Installed reports whether the package is currently installed.
func (p Package) Installed(ctx context.Context) (bool, error) {
	return p.Provider.Installed(ctx, p.Name)
}

// Install installs the package if it is not already installed. A nil
// Child with a nil error means the package was already installed and no
// action was taken — the idempotence wrapper from spec §4.5:
// `if installed(name) then None else Some(install(name))`.
func (p Package) Install(ctx context.Context) (*command.Child, error) {
	installed, err := p.Installed(ctx)
	if err != nil {
		return nil, err
	}
	if installed {
		return nil, nil
	}
	return p.Provider.Install(ctx, p.Name)
}

// Uninstall removes the package if it is currently installed, symmetric
// to Install.
func (p Package) Uninstall(ctx context.Context) (*command.Child, error) {
	installed, err := p.Installed(ctx)
	if err != nil {
		return nil, err
	}
	if !installed {
		return nil, nil
	}
	return p.Provider.Uninstall(ctx, p.Name)
}
