package pkgmgr

import (
	"context"
	"testing"

	"github.com/petehayes102/hostagent/command"
)

type fakeProvider struct {
	installed     bool
	installCalls  int
	uninstallCalls int
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) Installed(ctx context.Context, name string) (bool, error) {
	return f.installed, nil
}

func (f *fakeProvider) Install(ctx context.Context, name string) (*command.Child, error) {
	f.installCalls++
	f.installed = true
	return nil, nil
}

func (f *fakeProvider) Uninstall(ctx context.Context, name string) (*command.Child, error) {
	f.uninstallCalls++
	f.installed = false
	return nil, nil
}

func TestPackage_InstallIsANoOpWhenAlreadyInstalled(t *testing.T) {
	fp := &fakeProvider{installed: true}
	pkg := New(fp, "nginx")

	child, err := pkg.Install(context.Background())
	if err != nil {
		t.Fatalf("Install: %v", err)
	}
	if child != nil {
		t.Errorf("expected a nil Child for an already-installed package")
	}
	if fp.installCalls != 0 {
		t.Errorf("installCalls = %d, want 0", fp.installCalls)
	}
}

func TestPackage_InstallDelegatesWhenMissing(t *testing.T) {
	fp := &fakeProvider{installed: false}
	pkg := New(fp, "nginx")

	if _, err := pkg.Install(context.Background()); err != nil {
		t.Fatalf("Install: %v", err)
	}
	if fp.installCalls != 1 {
		t.Errorf("installCalls = %d, want 1", fp.installCalls)
	}

	installed, err := pkg.Installed(context.Background())
	if err != nil {
		t.Fatalf("Installed: %v", err)
	}
	if !installed {
		t.Errorf("Installed = false, want true after Install")
	}
}

func TestPackage_UninstallIsANoOpWhenAlreadyAbsent(t *testing.T) {
	fp := &fakeProvider{installed: false}
	pkg := New(fp, "nginx")

	child, err := pkg.Uninstall(context.Background())
	if err != nil {
		t.Fatalf("Uninstall: %v", err)
	}
	if child != nil {
		t.Errorf("expected a nil Child for an already-absent package")
	}
	if fp.uninstallCalls != 0 {
		t.Errorf("uninstallCalls = %d, want 0", fp.uninstallCalls)
	}
}
