package telemetry

import (
	"bufio"
	"fmt"
	"net"
	"os"
	"os/exec"
	"os/user"
	"runtime"
	"strconv"
	"strings"

	"github.com/gravitational/trace"
	"golang.org/x/sys/unix"

	"github.com/petehayes102/hostagent/hosterrors"
)

// Load probes the local host and returns its Telemetry, the Go analogue of
// the original source's per-OS TelemetryProvider::load(). The CPU, mount,
// memory, network and OS probes are best-effort: a failure to read one of
// those signals (e.g. a filesystem that vanishes between listing and
// statfs) is skipped rather than aborting the whole load, since partial
// telemetry is still useful and the original's own providers tolerate
// missing pnet interfaces the same way. A failure to read the hostname or
// the current user is returned as an error.
func Load() (Telemetry, error) {
	t := Telemetry{
		OS: loadOS(),
	}

	hostname, err := os.Hostname()
	if err != nil {
		return Telemetry{}, hosterrors.NewSystemFile("hostname", err)
	}
	t.Hostname = hostname

	t.CPU = loadCPU()
	t.FS = loadMounts()
	t.MemoryBytes = loadMemoryBytes()
	t.Net = loadNetInterfaces()

	u, err := loadUser()
	if err != nil {
		return Telemetry{}, err
	}
	t.User = u

	return t, nil
}

func loadCPU() CPU {
	return CPU{
		Vendor: runtime.GOARCH,
		Brand:  runtime.GOARCH,
		Cores:  uint32(runtime.NumCPU()),
	}
}

func loadUser() (User, error) {
	u, err := user.Current()
	if err != nil {
		return User{}, trace.Wrap(err, "could not determine current user")
	}
	uid, _ := strconv.Atoi(u.Uid)
	gid, _ := strconv.Atoi(u.Gid)

	group := u.Gid
	if g, err := user.LookupGroupId(u.Gid); err == nil {
		group = g.Name
	}

	return User{
		Name:    u.Username,
		UID:     uint32(uid),
		Group:   group,
		GID:     uint32(gid),
		HomeDir: u.HomeDir,
	}, nil
}

func loadNetInterfaces() []NetIface {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil
	}

	out := make([]NetIface, 0, len(ifaces))
	for _, iface := range ifaces {
		ni := NetIface{Name: iface.Name, MAC: iface.HardwareAddr.String()}
		addrs, err := iface.Addrs()
		if err != nil {
			out = append(out, ni)
			continue
		}
		for _, a := range addrs {
			ni.Addresses = append(ni.Addresses, a.String())
		}
		out = append(out, ni)
	}
	return out
}

func loadMemoryBytes() uint64 {
	var info unix.Sysinfo_t
	if err := unix.Sysinfo(&info); err != nil {
		return 0
	}
	return uint64(info.Totalram) * uint64(info.Unit)
}

func loadMounts() []FSMount {
	f, err := os.Open("/proc/mounts")
	if err != nil {
		return nil
	}
	defer f.Close()

	var mounts []FSMount
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 2 {
			continue
		}
		device, mountpoint := fields[0], fields[1]
		if !strings.HasPrefix(device, "/dev/") {
			continue
		}

		var stat unix.Statfs_t
		if err := unix.Statfs(mountpoint, &stat); err != nil {
			continue
		}
		blockSize := uint64(stat.Bsize)
		sizeKB := (stat.Blocks * blockSize) / 1024
		availKB := (stat.Bavail * blockSize) / 1024
		usedKB := sizeKB - availKB

		var capacity float32
		if sizeKB > 0 {
			capacity = float32(usedKB) / float32(sizeKB)
		}

		mounts = append(mounts, FSMount{
			Device:     device,
			Mountpoint: mountpoint,
			SizeKB:     sizeKB,
			UsedKB:     usedKB,
			AvailKB:    availKB,
			Capacity:   capacity,
		})
	}
	return mounts
}

// loadOS identifies the running OS family/platform/version, the signal
// the Service provider availability predicates key off (spec §4.4):
// Debian/RHEL distro for the debian and redhat init providers, BSD for
// rc.d, and versionMinor ≥ 11 for launchctl's "new enough macOS" gate.
// Package providers are chosen by PATH lookup and do not consult it. Darwin/BSD detection here is
// necessarily aspirational on a Linux build host — this agent's
// production target is Linux and Darwin, and the darwin/bsd branches are
// written for cross-compiled binaries running on those platforms, not
// exercised by this Linux-hosted build.
func loadOS() OS {
	switch runtime.GOOS {
	case "darwin":
		return loadDarwinOS()
	case "freebsd", "openbsd", "netbsd":
		return OS{Arch: runtime.GOARCH, Family: FamilyBSD, Platform: runtime.GOOS}
	default:
		return loadLinuxOS()
	}
}

func loadLinuxOS() OS {
	os := OS{Arch: runtime.GOARCH, Family: FamilyLinux, LinuxDistro: DistroStandalone}

	fields := readOSRelease("/etc/os-release")
	os.Platform = fields["ID"]
	os.VersionStr = fields["VERSION_ID"]

	switch fields["ID"] {
	case "ubuntu", "debian":
		os.LinuxDistro = DistroDebian
	case "rhel", "centos", "fedora", "rocky", "almalinux":
		os.LinuxDistro = DistroRHEL
	}

	major, minor, patch := parseVersion(os.VersionStr)
	os.VersionMajor, os.VersionMinor, os.VersionPatch = major, minor, patch
	return os
}

// loadDarwinOS shells out to sw_vers for the product version string, the
// same read-a-command-output-then-parseVersion shape loadLinuxOS uses for
// /etc/os-release, since macOS has no equivalent file to read directly.
// VersionMinor must be populated here — it's the launchctlAvailable gate
// in service.Factory (spec §4.4's "versionMinor >= 11").
func loadDarwinOS() OS {
	o := OS{Arch: runtime.GOARCH, Family: FamilyDarwin, Platform: "macos"}
	out, err := exec.Command("sw_vers", "-productVersion").Output()
	if err != nil {
		return o
	}
	o.VersionStr = strings.TrimSpace(string(out))
	o.VersionMajor, o.VersionMinor, o.VersionPatch = parseVersion(o.VersionStr)
	return o
}

func readOSRelease(path string) map[string]string {
	f, err := os.Open(path)
	if err != nil {
		return map[string]string{}
	}
	defer f.Close()

	fields := make(map[string]string)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}
		fields[parts[0]] = strings.Trim(parts[1], `"`)
	}
	return fields
}

func parseVersion(s string) (major, minor, patch uint32) {
	parts := strings.SplitN(s, ".", 3)
	if len(parts) > 0 {
		fmt.Sscanf(parts[0], "%d", &major)
	}
	if len(parts) > 1 {
		fmt.Sscanf(parts[1], "%d", &minor)
	}
	if len(parts) > 2 {
		fmt.Sscanf(parts[2], "%d", &patch)
	}
	return
}
