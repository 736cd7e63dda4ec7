// Package service implements the Service endpoint described in spec §4.6:
// querying, starting/stopping/restarting, and enabling/disabling a system
// service across the init systems that differ per-OS.
//
// It is grounded on the original source's service/mod.rs and its six
// providers under service/providers/ (systemd.rs, debian.rs, redhat.rs,
// rc.rs, launchctl.rs, homebrew.rs), generalized from futures-returning
// trait methods to context-aware Go methods over the command package.
package service

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strings"

	"github.com/petehayes102/hostagent/command"
	"github.com/petehayes102/hostagent/hosterrors"
	"github.com/petehayes102/hostagent/registry"
	"github.com/petehayes102/hostagent/telemetry"
)

// Provider is the capability contract each init system implements,
// matching the original source's ServiceProvider trait.
type Provider interface {
	Name() string
	Running(ctx context.Context, name string) (bool, error)
	Action(ctx context.Context, name, verb string) (*command.Child, error)
	Enabled(ctx context.Context, name string) (bool, error)
	Enable(ctx context.Context, name string) error
	Disable(ctx context.Context, name string) error
}

func lookPath(bin string) bool {
	_, err := exec.LookPath(bin)
	return err == nil
}

// hasSystemd reports whether PID 1 is systemd, the availability probe
// specified in spec §4.4: "detected by inspecting /proc/1/exe for the
// substring systemd".
func hasSystemd() bool {
	target, err := os.Readlink("/proc/1/exe")
	if err != nil {
		return false
	}
	return strings.Contains(target, "systemd")
}

// Factory selects the first available service provider in the priority
// order fixed by spec §4.4: Systemd, Debian, Homebrew, Launchctl, Rc,
// Redhat.
func Factory(tel telemetry.Telemetry) (Provider, error) {
	launchctlAvailable := tel.OS.Family == telemetry.FamilyDarwin && tel.OS.VersionMinor >= 11

	return registry.Select("Service", []registry.Candidate[Provider]{
		{Name: "systemd", Available: hasSystemd, New: func() Provider { return systemdProvider{} }},
		{Name: "debian", Available: func() bool { return tel.OS.Family == telemetry.FamilyLinux && tel.OS.LinuxDistro == telemetry.DistroDebian }, New: func() Provider { return debianProvider{} }},
		{Name: "homebrew", Available: func() bool { return lookPath("brew") && launchctlAvailable }, New: func() Provider { return homebrewProvider{launchctlProvider{tel: tel}} }},
		{Name: "launchctl", Available: func() bool { return launchctlAvailable }, New: func() Provider { return launchctlProvider{tel: tel} }},
		{Name: "rc", Available: func() bool { return tel.OS.Family == telemetry.FamilyBSD }, New: func() Provider { return rcProvider{} }},
		{Name: "redhat", Available: func() bool { return tel.OS.Family == telemetry.FamilyLinux && tel.OS.LinuxDistro == telemetry.DistroRHEL }, New: func() Provider { return redhatProvider{} }},
	})
}

func run(ctx context.Context, cmdline string) (*command.Child, error) {
	return command.New(cmdline, nil).Exec(ctx)
}

// runToCompletion collects a command's output with LineResult, not Result,
// so multi-line listings (launchctl's print-disabled) keep real newlines
// for their ^/$-anchored regexes instead of being concatenated into one
// unbroken blob.
func runToCompletion(ctx context.Context, cmdline string) (string, error) {
	child, err := run(ctx, cmdline)
	if err != nil {
		return "", err
	}
	return child.LineResult(ctx)
}

func isRunningBySuccess(ctx context.Context, systemCmd string) (bool, error) {
	child, err := run(ctx, systemCmd)
	if err != nil {
		return false, err
	}
	status, err := child.DiscardAndWait(ctx)
	if err != nil {
		return false, hosterrors.NewSystemCommand(systemCmd, err)
	}
	return status.Success, nil
}

// ---- systemd ----

type systemdProvider struct{}

func (systemdProvider) Name() string { return "systemd" }

func (systemdProvider) Running(ctx context.Context, name string) (bool, error) {
	return isRunningBySuccess(ctx, fmt.Sprintf("systemctl is-active %s", name))
}
func (systemdProvider) Action(ctx context.Context, name, verb string) (*command.Child, error) {
	return run(ctx, fmt.Sprintf("systemctl %s %s", verb, name))
}
func (systemdProvider) Enabled(ctx context.Context, name string) (bool, error) {
	return isRunningBySuccess(ctx, fmt.Sprintf("systemctl is-enabled %s", name))
}
func (systemdProvider) Enable(ctx context.Context, name string) error {
	_, err := runToCompletion(ctx, fmt.Sprintf("systemctl enable %s", name))
	return err
}
func (systemdProvider) Disable(ctx context.Context, name string) error {
	_, err := runToCompletion(ctx, fmt.Sprintf("systemctl disable %s", name))
	return err
}

// ---- debian-init / redhat-init share "service N status" / "service verb N" ----

type debianProvider struct{}

func (debianProvider) Name() string { return "debian" }

func (debianProvider) Running(ctx context.Context, name string) (bool, error) {
	return isRunningBySuccess(ctx, fmt.Sprintf("service %s status", name))
}
func (debianProvider) Action(ctx context.Context, name, verb string) (*command.Child, error) {
	return run(ctx, fmt.Sprintf("service %s %s", verb, name))
}

// Enabled inspects /etc/rc<runlevel>.d for a start symlink matching
// /S[0-9]+N$, the same heuristic as the original source's Debian::enabled.
func (debianProvider) Enabled(ctx context.Context, name string) (bool, error) {
	runlevel, err := currentRunlevel(ctx)
	if err != nil {
		return false, err
	}

	dir := fmt.Sprintf("/etc/rc%s.d", runlevel)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return false, hosterrors.NewSystemFile(dir, err)
	}

	re, err := regexp.Compile(fmt.Sprintf(`S[0-9]+%s$`, regexp.QuoteMeta(name)))
	if err != nil {
		return false, hosterrors.NewRegex(err)
	}
	for _, entry := range entries {
		if re.MatchString(entry.Name()) {
			return true, nil
		}
	}
	return false, nil
}

func (debianProvider) Enable(ctx context.Context, name string) error {
	_, err := runToCompletion(ctx, fmt.Sprintf("update-rc.d enable %s", name))
	return err
}
func (debianProvider) Disable(ctx context.Context, name string) error {
	_, err := runToCompletion(ctx, fmt.Sprintf("update-rc.d disable %s", name))
	return err
}

func currentRunlevel(ctx context.Context) (string, error) {
	output, err := runToCompletion(ctx, "runlevel")
	if err != nil {
		return "", hosterrors.NewSystemCommand("runlevel", err)
	}
	fields := strings.Fields(output)
	if len(fields) == 0 {
		return "", hosterrors.NewSystemFileOutput("runlevel", fmt.Errorf("unexpected output %q", output))
	}
	return fields[len(fields)-1], nil
}

// ---- redhat-init ----

type redhatProvider struct{}

func (redhatProvider) Name() string { return "redhat" }

func (redhatProvider) Running(ctx context.Context, name string) (bool, error) {
	return isRunningBySuccess(ctx, fmt.Sprintf("service %s status", name))
}
func (redhatProvider) Action(ctx context.Context, name, verb string) (*command.Child, error) {
	return run(ctx, fmt.Sprintf("service %s %s", verb, name))
}
func (redhatProvider) Enabled(ctx context.Context, name string) (bool, error) {
	return isRunningBySuccess(ctx, fmt.Sprintf("chkconfig %s", name))
}
func (redhatProvider) Enable(ctx context.Context, name string) error {
	_, err := runToCompletion(ctx, fmt.Sprintf("chkconfig %s on", name))
	return err
}
func (redhatProvider) Disable(ctx context.Context, name string) error {
	_, err := runToCompletion(ctx, fmt.Sprintf("chkconfig %s off", name))
	return err
}

// ---- rc.d (BSD) ----

type rcProvider struct{}

func (rcProvider) Name() string { return "rc" }

func (rcProvider) Running(ctx context.Context, name string) (bool, error) {
	return isRunningBySuccess(ctx, fmt.Sprintf("service %s status", name))
}
func (rcProvider) Action(ctx context.Context, name, verb string) (*command.Child, error) {
	return run(ctx, fmt.Sprintf("service %s %s", verb, name))
}

// Enabled treats any value other than a case-insensitive "no" as enabled,
// matching the original source's explicitly-flagged assumption in rc.rs.
func (rcProvider) Enabled(ctx context.Context, name string) (bool, error) {
	output, err := runToCompletion(ctx, fmt.Sprintf("sysrc %s_enable", name))
	if err != nil {
		if _, ok := hosterrors.IsCommand(err); ok {
			return false, nil
		}
		return false, err
	}
	re, err := regexp.Compile(fmt.Sprintf(`(?i)^%s_enable:\s*no`, regexp.QuoteMeta(name)))
	if err != nil {
		return false, hosterrors.NewRegex(err)
	}
	return !re.MatchString(output), nil
}
func (rcProvider) Enable(ctx context.Context, name string) error {
	_, err := runToCompletion(ctx, fmt.Sprintf(`sysrc %s_enable="YES"`, name))
	return err
}
func (rcProvider) Disable(ctx context.Context, name string) error {
	_, err := runToCompletion(ctx, fmt.Sprintf(`sysrc %s_enable="NO"`, name))
	return err
}

// ---- launchctl (Darwin) ----

type launchctlProvider struct {
	tel telemetry.Telemetry
}

func (l launchctlProvider) domainTarget() string {
	if l.tel.User.IsRoot() {
		return "system"
	}
	return fmt.Sprintf("gui/%d", l.tel.User.UID)
}

func (l launchctlProvider) servicePath() string {
	if l.tel.User.IsRoot() {
		return "/Library/LaunchDaemons"
	}
	return l.tel.User.HomeDir + "/Library/LaunchAgents"
}

func (launchctlProvider) Name() string { return "launchctl" }

func (l launchctlProvider) Running(ctx context.Context, name string) (bool, error) {
	return isRunningBySuccess(ctx, fmt.Sprintf("/bin/launchctl blame %s/%s", l.domainTarget(), name))
}

// Action translates start/stop/restart into the bootstrap/bootout/kickstart
// -k verbs launchctl actually expects, and shells out to the plist path the
// same way the original source's Launchctl::action does.
func (l launchctlProvider) Action(ctx context.Context, name, verb string) (*command.Child, error) {
	switch verb {
	case "start":
		verb = "bootstrap"
	case "stop":
		verb = "bootout"
	case "restart":
		verb = "kickstart -k"
	}
	cmdline := fmt.Sprintf("/bin/launchctl %s %s %s/%s.plist", verb, l.domainTarget(), l.servicePath(), name)
	return run(ctx, cmdline)
}

func (l launchctlProvider) Enabled(ctx context.Context, name string) (bool, error) {
	output, err := runToCompletion(ctx, fmt.Sprintf("/bin/launchctl print-disabled %s", l.domainTarget()))
	if err != nil {
		return false, err
	}
	re, err := regexp.Compile(fmt.Sprintf(`(?m)^\s*"%s" => false`, regexp.QuoteMeta(name)))
	if err != nil {
		return false, hosterrors.NewRegex(err)
	}
	return !re.MatchString(output), nil
}
func (l launchctlProvider) Enable(ctx context.Context, name string) error {
	_, err := runToCompletion(ctx, fmt.Sprintf("/bin/launchctl enable %s/%s", l.domainTarget(), name))
	return err
}
func (l launchctlProvider) Disable(ctx context.Context, name string) error {
	_, err := runToCompletion(ctx, fmt.Sprintf("/bin/launchctl disable %s/%s", l.domainTarget(), name))
	return err
}

func (l launchctlProvider) installPlist(ctx context.Context, name string) error {
	path := fmt.Sprintf("/usr/local/opt/%s/homebrew.mxcl.%s.plist", name, name)
	dest := fmt.Sprintf("%s/%s.plist", l.servicePath(), name)

	if err := os.MkdirAll(l.servicePath(), 0o755); err != nil {
		return hosterrors.NewSystemFile(l.servicePath(), err)
	}
	if _, err := os.Stat(dest); err == nil {
		return nil
	}
	if err := copyFile(path, dest); err != nil {
		return hosterrors.NewSystemFile(path, err)
	}
	return nil
}

func (l launchctlProvider) uninstallPlist(name string) error {
	path := fmt.Sprintf("%s/%s.plist", l.servicePath(), name)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return hosterrors.NewSystemFile(path, err)
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	w := bufio.NewWriter(out)
	if _, err := w.ReadFrom(in); err != nil {
		return err
	}
	return w.Flush()
}

// ---- homebrew (wraps launchctl, installing/uninstalling the service's
// plist around the action, exactly as the original source's Homebrew
// provider does) ----

type homebrewProvider struct {
	inner launchctlProvider
}

func (homebrewProvider) Name() string { return "homebrew" }

func (h homebrewProvider) Running(ctx context.Context, name string) (bool, error) {
	return h.inner.Running(ctx, name)
}

func (h homebrewProvider) Action(ctx context.Context, name, verb string) (*command.Child, error) {
	if verb == "stop" {
		if err := h.inner.uninstallPlist(name); err != nil {
			return nil, err
		}
	} else if err := h.inner.installPlist(ctx, name); err != nil {
		return nil, err
	}
	return h.inner.Action(ctx, name, verb)
}

func (h homebrewProvider) Enabled(ctx context.Context, name string) (bool, error) {
	return h.inner.Enabled(ctx, name)
}
func (h homebrewProvider) Enable(ctx context.Context, name string) error {
	return h.inner.Enable(ctx, name)
}
func (h homebrewProvider) Disable(ctx context.Context, name string) error {
	return h.inner.Disable(ctx, name)
}
