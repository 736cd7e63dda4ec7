package request

import (
	"context"
	"encoding/json"
	"reflect"
	"testing"

	"github.com/petehayes102/hostagent/command"
	"github.com/petehayes102/hostagent/pkgmgr"
	"github.com/petehayes102/hostagent/service"
	"github.com/petehayes102/hostagent/telemetry"
)

type fakeExecutor struct {
	pkgProvider *fakePkgProvider
	svcProvider *fakeSvcProvider
	tel         telemetry.Telemetry
}

func (f *fakeExecutor) Command(cmd string, shell []string) command.Command {
	return command.New(cmd, shell)
}
func (f *fakeExecutor) Package(name string) pkgmgr.Package { return pkgmgr.New(f.pkgProvider, name) }
func (f *fakeExecutor) Service(name string) service.Service { return service.New(f.svcProvider, name) }
func (f *fakeExecutor) Telemetry() telemetry.Telemetry       { return f.tel }

type fakePkgProvider struct{ installed bool }

func (p *fakePkgProvider) Name() string { return "fake" }
func (p *fakePkgProvider) Installed(ctx context.Context, name string) (bool, error) {
	return p.installed, nil
}
func (p *fakePkgProvider) Install(ctx context.Context, name string) (*command.Child, error) {
	p.installed = true
	return nil, nil
}
func (p *fakePkgProvider) Uninstall(ctx context.Context, name string) (*command.Child, error) {
	p.installed = false
	return nil, nil
}

type fakeSvcProvider struct {
	running bool
	enabled bool
}

func (s *fakeSvcProvider) Name() string { return "fake" }
func (s *fakeSvcProvider) Running(ctx context.Context, name string) (bool, error) {
	return s.running, nil
}
func (s *fakeSvcProvider) Action(ctx context.Context, name, verb string) (*command.Child, error) {
	s.running = verb == "start"
	return nil, nil
}
func (s *fakeSvcProvider) Enabled(ctx context.Context, name string) (bool, error) {
	return s.enabled, nil
}
func (s *fakeSvcProvider) Enable(ctx context.Context, name string) error {
	s.enabled = true
	return nil
}
func (s *fakeSvcProvider) Disable(ctx context.Context, name string) error {
	s.enabled = false
	return nil
}

func TestMarshalUnmarshal_RoundTrip(t *testing.T) {
	cases := []Request{
		CommandExec{Cmd: []string{"/bin/sh", "-c", "ls"}},
		PackageInstalled{Name: "nginx"},
		PackageInstall{Name: "nginx"},
		PackageUninstall{Name: "nginx"},
		ServiceRunning{Name: "nginx"},
		ServiceAction{Name: "nginx", Action: "restart"},
		ServiceEnabled{Name: "nginx"},
		ServiceEnable{Name: "nginx"},
		ServiceDisable{Name: "nginx"},
		TelemetryLoad{},
	}

	for _, want := range cases {
		data, err := Marshal(want)
		if err != nil {
			t.Fatalf("Marshal(%#v): %v", want, err)
		}
		got, err := Unmarshal(data)
		if err != nil {
			t.Fatalf("Unmarshal(%s): %v", data, err)
		}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("round trip = %#v, want %#v", got, want)
		}
	}
}

func TestUnmarshal_UnknownVariant(t *testing.T) {
	if _, err := Unmarshal([]byte(`{"NoSuchThing":{}}`)); err == nil {
		t.Fatal("expected an error for an unknown variant tag")
	}
}

func TestUnmarshal_WrongArity(t *testing.T) {
	if _, err := Unmarshal([]byte(`{"CommandExec":{},"ServiceEnable":{}}`)); err == nil {
		t.Fatal("expected an error for more than one variant in the envelope")
	}
}

func TestPackageInstalled_Exec(t *testing.T) {
	ex := &fakeExecutor{pkgProvider: &fakePkgProvider{installed: true}}
	resp, err := PackageInstalled{Name: "nginx"}.Exec(context.Background(), ex)
	if err != nil {
		t.Fatalf("Exec: %v", err)
	}
	var installed bool
	if err := json.Unmarshal(resp.Value, &installed); err != nil {
		t.Fatalf("decoding Value: %v", err)
	}
	if !installed {
		t.Errorf("installed = false, want true")
	}
}

func TestCommandExec_Exec_SpawnsGivenArgv(t *testing.T) {
	ex := &fakeExecutor{}
	resp, err := CommandExec{Cmd: []string{"/bin/sh", "-c", "echo hi"}}.Exec(context.Background(), ex)
	if err != nil {
		t.Fatalf("Exec: %v", err)
	}
	if resp.Child == nil {
		t.Fatal("expected a non-nil Child for CommandExec")
	}
	out, err := resp.Child.Result(context.Background())
	if err != nil {
		t.Fatalf("Result: %v", err)
	}
	if out != "hi" {
		t.Errorf("output = %q, want %q", out, "hi")
	}
}

func TestServiceEnable_Exec_ReturnsNullValue(t *testing.T) {
	ex := &fakeExecutor{svcProvider: &fakeSvcProvider{}}
	resp, err := ServiceEnable{Name: "nginx"}.Exec(context.Background(), ex)
	if err != nil {
		t.Fatalf("Exec: %v", err)
	}
	if string(resp.Value) != "null" {
		t.Errorf("Value = %q, want %q", resp.Value, "null")
	}
	if !ex.svcProvider.enabled {
		t.Errorf("expected the provider's Enable to have been called")
	}
}
