package host

import (
	"context"

	"github.com/gravitational/trace"

	"github.com/petehayes102/hostagent/command"
	"github.com/petehayes102/hostagent/pkgmgr"
	"github.com/petehayes102/hostagent/request"
	"github.com/petehayes102/hostagent/service"
	"github.com/petehayes102/hostagent/telemetry"
)

// Local is a Host that talks directly to the machine it runs on, grounded
// on the original source's Local (host/local.rs). Its provider table and
// cached Telemetry are built once in NewLocal and never mutated
// afterward — the Go answer to the Open Question in spec §9 about the
// original's Arc::get_mut retry loop: since nothing here ever needs to
// swap a provider at runtime, there is no mutable shared state to guard
// with a Mutex in the first place, and the retry loop (and the MutRef
// error kind it existed to report) simply has no Go equivalent to build.
type Local struct {
	pkgProvider pkgmgr.Provider
	svcProvider service.Provider
	telemetry   telemetry.Telemetry
}

// NewLocal builds a Local host: it probes Telemetry, then selects a
// Package and Service provider for this machine (the provider selection
// for Service depends on the probed Telemetry, matching launchctl's
// root-vs-user branching).
func NewLocal(ctx context.Context) (*Local, error) {
	tel, err := telemetry.Load()
	if err != nil {
		return nil, trace.Wrap(err, "could not load telemetry for host")
	}

	pkgProvider, err := pkgmgr.Factory()
	if err != nil {
		return nil, err
	}

	svcProvider, err := service.Factory(tel)
	if err != nil {
		return nil, err
	}

	return &Local{pkgProvider: pkgProvider, svcProvider: svcProvider, telemetry: tel}, nil
}

// Command builds a Command bound to no particular host — running it is
// always local, whether the caller got it from a Local host directly or
// indirectly via a CommandExec request's Exec.
func (l *Local) Command(cmd string, shell []string) command.Command {
	return command.New(cmd, shell)
}

// Package returns the named package bound to this host's Package
// provider.
func (l *Local) Package(name string) pkgmgr.Package {
	return pkgmgr.New(l.pkgProvider, name)
}

// Service returns the named service bound to this host's Service
// provider.
func (l *Local) Service(name string) service.Service {
	return service.New(l.svcProvider, name)
}

// Telemetry returns the Telemetry probed when this host was constructed.
func (l *Local) Telemetry() telemetry.Telemetry {
	return l.telemetry
}

// Request runs req directly against this host, the Go equivalent of the
// original's `request.exec(self)` call inside Local's Host::request impl.
func (l *Local) Request(ctx context.Context, req request.Request) (request.Response, error) {
	return req.Exec(ctx, l)
}
