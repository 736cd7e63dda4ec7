// Package pkgmgr implements the Package endpoint described in spec §4.5.
// (Named pkgmgr rather than package because the latter is a Go keyword.)
//
// It is grounded on the original source's package/mod.rs and its six
// providers under package/providers/ (apt.rs et al.), generalized from
// futures-returning trait methods to context-aware Go methods over the
// command package's Spawn/Child.
package pkgmgr

import (
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"strings"

	"github.com/petehayes102/hostagent/command"
	"github.com/petehayes102/hostagent/hosterrors"
	"github.com/petehayes102/hostagent/registry"
)

// Provider is the capability contract each package manager implements,
// matching the original source's PackageProvider trait.
type Provider interface {
	Name() string
	Installed(ctx context.Context, name string) (bool, error)
	Install(ctx context.Context, name string) (*command.Child, error)
	Uninstall(ctx context.Context, name string) (*command.Child, error)
}

func lookPath(bin string) bool {
	_, err := exec.LookPath(bin)
	return err == nil
}

// Factory selects the first available package provider in the priority
// order fixed by spec §4.4: Apt, Dnf, Homebrew, Nix, Pkg, Yum.
func Factory() (Provider, error) {
	return registry.Select("Package", []registry.Candidate[Provider]{
		{Name: "apt", Available: func() bool { return lookPath("apt-get") }, New: func() Provider { return aptProvider{} }},
		{Name: "dnf", Available: func() bool { return lookPath("dnf") }, New: func() Provider { return dnfProvider{} }},
		{Name: "homebrew", Available: func() bool { return lookPath("brew") }, New: func() Provider { return homebrewProvider{} }},
		{Name: "nix", Available: func() bool { return lookPath("nix-env") }, New: func() Provider { return nixProvider{} }},
		{Name: "pkg", Available: func() bool { return lookPath("pkg") }, New: func() Provider { return pkgProvider{} }},
		{Name: "yum", Available: func() bool { return lookPath("yum") }, New: func() Provider { return yumProvider{} }},
	})
}

// runQuery runs a query command to completion and reports whether its
// collected output exits via an error path that indicates a genuine
// system-level failure as opposed to "package not found" — callers decide
// which failure mode applies to their provider. Output is collected with
// LineResult, not Result, so multi-entry listings keep their line
// boundaries intact for the ^/$-anchored regexes in matchInstalled.
func runQuery(ctx context.Context, argv string) (output string, queryErr error) {
	child, err := command.New(argv, nil).Exec(ctx)
	if err != nil {
		return "", err
	}
	output, err = child.LineResult(ctx)
	if err != nil {
		return output, err
	}
	return output, nil
}

// matchInstalled runs argv, requires it to succeed (a non-zero exit means
// the query tool itself is broken, not that the package is absent — spec
// §4.5's "matches a provider-specific regex against stdout; ... or an
// error on failure"), and reports whether pattern matches stdout.
func matchInstalled(ctx context.Context, provider, argv, pattern, name string) (bool, error) {
	re, err := regexp.Compile(fmt.Sprintf(pattern, regexp.QuoteMeta(name)))
	if err != nil {
		return false, hosterrors.NewRegex(err)
	}

	output, err := runQuery(ctx, argv)
	if err != nil {
		if cmdErr, ok := hosterrors.IsCommand(err); ok {
			return false, hosterrors.NewSystemCommand(argv, fmt.Errorf("%s query failed: %s", provider, cmdErr.Output))
		}
		return false, err
	}
	return re.MatchString(output), nil
}

// spawn runs a one-shot install/uninstall command and returns its Child
// directly — these are the streaming (has-body) variants per spec §4.2.
func spawn(ctx context.Context, argv string) (*command.Child, error) {
	return command.New(argv, nil).Exec(ctx)
}

type aptProvider struct{}

func (aptProvider) Name() string { return "apt" }

func (aptProvider) Installed(ctx context.Context, name string) (bool, error) {
	return matchInstalled(ctx, "apt", "dpkg --get-selections", `(?m)%s\s+install$`, name)
}
func (aptProvider) Install(ctx context.Context, name string) (*command.Child, error) {
	return spawn(ctx, fmt.Sprintf("apt-get -y install %s", name))
}
func (aptProvider) Uninstall(ctx context.Context, name string) (*command.Child, error) {
	return spawn(ctx, fmt.Sprintf("apt-get -y remove %s", name))
}

type dnfProvider struct{}

func (dnfProvider) Name() string { return "dnf" }

func (dnfProvider) Installed(ctx context.Context, name string) (bool, error) {
	return matchInstalled(ctx, "dnf", "dnf list installed", `(?m)^%s\.(arch|noarch)\s+`, name)
}
func (dnfProvider) Install(ctx context.Context, name string) (*command.Child, error) {
	return spawn(ctx, fmt.Sprintf("dnf -y install %s", name))
}
func (dnfProvider) Uninstall(ctx context.Context, name string) (*command.Child, error) {
	return spawn(ctx, fmt.Sprintf("dnf -y remove %s", name))
}

type yumProvider struct{}

func (yumProvider) Name() string { return "yum" }

func (yumProvider) Installed(ctx context.Context, name string) (bool, error) {
	return matchInstalled(ctx, "yum", "yum list installed", `(?m)^%s\.(arch|noarch)\s+`, name)
}
func (yumProvider) Install(ctx context.Context, name string) (*command.Child, error) {
	return spawn(ctx, fmt.Sprintf("yum -y install %s", name))
}
func (yumProvider) Uninstall(ctx context.Context, name string) (*command.Child, error) {
	return spawn(ctx, fmt.Sprintf("yum -y remove %s", name))
}

type homebrewProvider struct{}

func (homebrewProvider) Name() string { return "homebrew" }

func (homebrewProvider) Installed(ctx context.Context, name string) (bool, error) {
	return matchInstalled(ctx, "homebrew", "brew list", `(?m)(^|\s+)%s\s+`, name)
}
func (homebrewProvider) Install(ctx context.Context, name string) (*command.Child, error) {
	return spawn(ctx, fmt.Sprintf("brew install %s", name))
}
func (homebrewProvider) Uninstall(ctx context.Context, name string) (*command.Child, error) {
	return spawn(ctx, fmt.Sprintf("brew uninstall %s", name))
}

type nixProvider struct{}

func (nixProvider) Name() string { return "nix" }

// Installed runs a dry-run install and checks whether nix-env reports
// anything left to fetch. Unlike the regex-based providers, a match here
// means "not installed" — so the polarity is inverted relative to
// matchInstalled's contract, and is implemented directly.
func (nixProvider) Installed(ctx context.Context, name string) (bool, error) {
	argv := fmt.Sprintf("nix-env --install --dry-run %s", name)
	output, err := runQuery(ctx, argv)
	if err != nil {
		if cmdErr, ok := hosterrors.IsCommand(err); ok {
			return false, hosterrors.NewSystemCommand(argv, fmt.Errorf("nix query failed: %s", cmdErr.Output))
		}
		return false, err
	}
	return !strings.Contains(output, "these paths will be fetched"), nil
}
func (nixProvider) Install(ctx context.Context, name string) (*command.Child, error) {
	return spawn(ctx, fmt.Sprintf("nix-env --install %s", name))
}
func (nixProvider) Uninstall(ctx context.Context, name string) (*command.Child, error) {
	return spawn(ctx, fmt.Sprintf("nix-env --uninstall %s", name))
}

type pkgProvider struct{}

func (pkgProvider) Name() string { return "pkg" }

// Installed treats the query's exit status alone as the answer (spec
// §4.5's "exit-success alone"): pkg query is per-package, so a non-zero
// exit means "not installed", not a system-level failure.
func (pkgProvider) Installed(ctx context.Context, name string) (bool, error) {
	argv := fmt.Sprintf(`pkg query "%%n" %s`, name)
	_, err := runQuery(ctx, argv)
	if err != nil {
		if _, ok := hosterrors.IsCommand(err); ok {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
func (pkgProvider) Install(ctx context.Context, name string) (*command.Child, error) {
	return spawn(ctx, fmt.Sprintf("pkg install -y %s", name))
}
func (pkgProvider) Uninstall(ctx context.Context, name string) (*command.Child, error) {
	return spawn(ctx, fmt.Sprintf("pkg delete -y %s", name))
}
