// Package request implements the externally-tagged Request union and its
// local dispatch, the Go unrolling of the original source's buildreq!
// macro (core/src/request.rs) — per spec §9's explicit "avoid macros"
// redesign flag, every variant is hand-written instead of generated.
package request

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/petehayes102/hostagent/command"
	"github.com/petehayes102/hostagent/hosterrors"
	"github.com/petehayes102/hostagent/pkgmgr"
	"github.com/petehayes102/hostagent/service"
	"github.com/petehayes102/hostagent/telemetry"
)

// Executor is what a Request needs in order to run: the same four
// endpoint accessors the original's Local host type exposes
// (command/package/service providers plus cached telemetry). host.Local
// satisfies this structurally, without request importing host — the
// dependency runs the other way, keeping the router a leaf package.
type Executor interface {
	Command(cmd string, shell []string) command.Command
	Package(name string) pkgmgr.Package
	Service(name string) service.Service
	Telemetry() telemetry.Telemetry
}

// Response is the result of running a Request: either a JSON value
// (PackageInstalled's bool, TelemetryLoad's Telemetry, …) or a streaming
// Child (CommandExec, PackageInstall, …), matching the wire Message's own
// HasBody flag — a Remote host can build one generically from whatever
// the wire handed back without knowing which variant it asked for.
type Response struct {
	Value json.RawMessage
	Child *command.Child
}

func valueResponse(v interface{}) (Response, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return Response{}, hosterrors.NewMalformed(err)
	}
	return Response{Value: data}, nil
}

// Request is the closed union of operations an agent can run, matching
// spec §4.2's taxonomy. Exec runs the request against a local Executor —
// this is what both the in-process Local host and the agent server (after
// decoding a variant off the wire) call.
type Request interface {
	Exec(ctx context.Context, ex Executor) (Response, error)
}

// CommandExec runs a shell command. Cmd is the full argv (shell plus the
// command string already appended by command.New) — RequestExec in the
// original source.
type CommandExec struct {
	Cmd []string `json:"cmd"`
}

func (r CommandExec) Exec(ctx context.Context, ex Executor) (Response, error) {
	child, err := command.Spawn(ctx, r.Cmd)
	if err != nil {
		return Response{}, hosterrors.WrapRequest(err, "Command", "exec")
	}
	return Response{Child: child}, nil
}

// PackageInstalled reports whether a package is installed.
type PackageInstalled struct {
	Name string `json:"name"`
}

func (r PackageInstalled) Exec(ctx context.Context, ex Executor) (Response, error) {
	installed, err := ex.Package(r.Name).Installed(ctx)
	if err != nil {
		return Response{}, hosterrors.WrapRequest(err, "Package", "installed")
	}
	return valueResponse(installed)
}

// PackageInstall installs a package unconditionally — idempotence is the
// caller's responsibility (check PackageInstalled first), matching the
// original source's Package::install, which only skips the request
// client-side.
type PackageInstall struct {
	Name string `json:"name"`
}

func (r PackageInstall) Exec(ctx context.Context, ex Executor) (Response, error) {
	pkg := ex.Package(r.Name)
	child, err := pkg.Provider.Install(ctx, r.Name)
	if err != nil {
		return Response{}, hosterrors.WrapRequest(err, "Package", "install")
	}
	return Response{Child: child}, nil
}

// PackageUninstall uninstalls a package unconditionally, symmetric to
// PackageInstall.
type PackageUninstall struct {
	Name string `json:"name"`
}

func (r PackageUninstall) Exec(ctx context.Context, ex Executor) (Response, error) {
	pkg := ex.Package(r.Name)
	child, err := pkg.Provider.Uninstall(ctx, r.Name)
	if err != nil {
		return Response{}, hosterrors.WrapRequest(err, "Package", "uninstall")
	}
	return Response{Child: child}, nil
}

// ServiceRunning reports whether a service is currently running.
type ServiceRunning struct {
	Name string `json:"name"`
}

func (r ServiceRunning) Exec(ctx context.Context, ex Executor) (Response, error) {
	running, err := ex.Service(r.Name).Running(ctx)
	if err != nil {
		return Response{}, hosterrors.WrapRequest(err, "Service", "running")
	}
	return valueResponse(running)
}

// ServiceAction performs a verb (start/stop/restart/…) against a service
// unconditionally, the wire counterpart of Service.Action's idempotence
// wrapper.
type ServiceAction struct {
	Name   string `json:"name"`
	Action string `json:"action"`
}

func (r ServiceAction) Exec(ctx context.Context, ex Executor) (Response, error) {
	svc := ex.Service(r.Name)
	child, err := svc.Provider.Action(ctx, r.Name, r.Action)
	if err != nil {
		return Response{}, hosterrors.WrapRequest(err, "Service", "action")
	}
	return Response{Child: child}, nil
}

// ServiceEnabled reports whether a service is configured to start at boot.
type ServiceEnabled struct {
	Name string `json:"name"`
}

func (r ServiceEnabled) Exec(ctx context.Context, ex Executor) (Response, error) {
	enabled, err := ex.Service(r.Name).Enabled(ctx)
	if err != nil {
		return Response{}, hosterrors.WrapRequest(err, "Service", "enabled")
	}
	return valueResponse(enabled)
}

// ServiceEnable configures a service to start at boot unconditionally. The
// original's response type is unit ("()"); we carry that over as a bare
// `null` value rather than inventing a payload the original never had.
type ServiceEnable struct {
	Name string `json:"name"`
}

func (r ServiceEnable) Exec(ctx context.Context, ex Executor) (Response, error) {
	svc := ex.Service(r.Name)
	if err := svc.Provider.Enable(ctx, r.Name); err != nil {
		return Response{}, hosterrors.WrapRequest(err, "Service", "enable")
	}
	return Response{Value: json.RawMessage("null")}, nil
}

// ServiceDisable configures a service not to start at boot
// unconditionally, symmetric to ServiceEnable.
type ServiceDisable struct {
	Name string `json:"name"`
}

func (r ServiceDisable) Exec(ctx context.Context, ex Executor) (Response, error) {
	svc := ex.Service(r.Name)
	if err := svc.Provider.Disable(ctx, r.Name); err != nil {
		return Response{}, hosterrors.WrapRequest(err, "Service", "disable")
	}
	return Response{Value: json.RawMessage("null")}, nil
}

// TelemetryLoad returns the host's cached Telemetry.
type TelemetryLoad struct{}

func (r TelemetryLoad) Exec(ctx context.Context, ex Executor) (Response, error) {
	return valueResponse(ex.Telemetry())
}

// tagOf returns req's external JSON tag, the Go equivalent of the
// original's #[derive(Serialize)] enum variant name.
func tagOf(req Request) (string, error) {
	switch req.(type) {
	case CommandExec:
		return "CommandExec", nil
	case PackageInstalled:
		return "PackageInstalled", nil
	case PackageInstall:
		return "PackageInstall", nil
	case PackageUninstall:
		return "PackageUninstall", nil
	case ServiceRunning:
		return "ServiceRunning", nil
	case ServiceAction:
		return "ServiceAction", nil
	case ServiceEnabled:
		return "ServiceEnabled", nil
	case ServiceEnable:
		return "ServiceEnable", nil
	case ServiceDisable:
		return "ServiceDisable", nil
	case TelemetryLoad:
		return "TelemetryLoad", nil
	default:
		return "", hosterrors.NewMalformed(fmt.Errorf("unknown request type %T", req))
	}
}

// Marshal encodes req as the externally-tagged {"Variant": {...}} JSON
// spec §4.2 describes, the Go equivalent of the RequestValues enum the
// original's buildreq! macro generates.
func Marshal(req Request) ([]byte, error) {
	tag, err := tagOf(req)
	if err != nil {
		return nil, err
	}
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, hosterrors.NewMalformed(err)
	}
	return json.Marshal(map[string]json.RawMessage{tag: payload})
}

// Unmarshal decodes the externally-tagged JSON produced by Marshal back
// into a concrete Request, the agent server's entry point for dispatching
// an incoming wire message.
func Unmarshal(data []byte) (Request, error) {
	var wrapped map[string]json.RawMessage
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return nil, hosterrors.NewMalformed(err)
	}
	if len(wrapped) != 1 {
		return nil, hosterrors.NewMalformed(fmt.Errorf("expected exactly one request variant, got %d", len(wrapped)))
	}

	for tag, payload := range wrapped {
		switch tag {
		case "CommandExec":
			var r CommandExec
			err := unmarshalVariant(payload, &r)
			return r, err
		case "PackageInstalled":
			var r PackageInstalled
			err := unmarshalVariant(payload, &r)
			return r, err
		case "PackageInstall":
			var r PackageInstall
			err := unmarshalVariant(payload, &r)
			return r, err
		case "PackageUninstall":
			var r PackageUninstall
			err := unmarshalVariant(payload, &r)
			return r, err
		case "ServiceRunning":
			var r ServiceRunning
			err := unmarshalVariant(payload, &r)
			return r, err
		case "ServiceAction":
			var r ServiceAction
			err := unmarshalVariant(payload, &r)
			return r, err
		case "ServiceEnabled":
			var r ServiceEnabled
			err := unmarshalVariant(payload, &r)
			return r, err
		case "ServiceEnable":
			var r ServiceEnable
			err := unmarshalVariant(payload, &r)
			return r, err
		case "ServiceDisable":
			var r ServiceDisable
			err := unmarshalVariant(payload, &r)
			return r, err
		case "TelemetryLoad":
			var r TelemetryLoad
			err := unmarshalVariant(payload, &r)
			return r, err
		default:
			return nil, hosterrors.NewMalformed(fmt.Errorf("unknown request variant %q", tag))
		}
	}
	panic("unreachable: wrapped has exactly one entry")
}

// unmarshalVariant JSON-decodes payload into out, wrapping any failure as
// hosterrors.Malformed.
func unmarshalVariant(payload json.RawMessage, out interface{}) error {
	if err := json.Unmarshal(payload, out); err != nil {
		return hosterrors.NewMalformed(err)
	}
	return nil
}
