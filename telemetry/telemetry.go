// Package telemetry collects static information about a host — CPU,
// filesystem mounts, hostname, memory, network interfaces, OS identity,
// and the running user — the way the original source's telemetry module
// does, minus its per-distro provider hierarchy (ubuntu.rs, centos.rs,
// freebsd.rs): a single best-effort Load walks the handful of portable
// signals (/etc/os-release, /proc/mounts, statfs, net.Interfaces) rather
// than dispatching through another provider registry, since unlike
// Package/Service there is exactly one telemetry shape per OS rather than
// several competing tools.
package telemetry

// Telemetry is the Go shape of the original source's Telemetry struct
// (telemetry/mod.rs), field-for-field per spec §3, renamed to idiomatic Go
// casing.
type Telemetry struct {
	CPU         CPU         `json:"cpu"`
	FS          []FSMount   `json:"fs"`
	Hostname    string      `json:"hostname"`
	MemoryBytes uint64      `json:"memoryBytes"`
	Net         []NetIface  `json:"net"`
	OS          OS          `json:"os"`
	User        User        `json:"user"`
}

// CPU describes the host's processor.
type CPU struct {
	Vendor string `json:"vendor"`
	Brand  string `json:"brand"`
	Cores  uint32 `json:"cores"`
}

// FSMount describes one mounted filesystem.
type FSMount struct {
	Device     string  `json:"device"`
	Mountpoint string  `json:"mountpoint"`
	SizeKB     uint64  `json:"size"`
	UsedKB     uint64  `json:"used"`
	AvailKB    uint64  `json:"available"`
	Capacity   float32 `json:"capacity"`
}

// NetIface describes one network interface.
type NetIface struct {
	Name      string   `json:"name"`
	MAC       string   `json:"mac,omitempty"`
	Addresses []string `json:"addresses"`
}

// OSFamily is the coarse family an OS belongs to — the axis providers
// switch on when choosing a Service provider (spec §4.4); Package providers
// are chosen by PATH lookup instead.
type OSFamily string

const (
	FamilyBSD    OSFamily = "bsd"
	FamilyDarwin OSFamily = "darwin"
	FamilyLinux  OSFamily = "linux"
)

// LinuxDistro narrows OSFamily == FamilyLinux further, matching the
// original source's LinuxDistro enum (Debian, RHEL, Standalone).
type LinuxDistro string

const (
	DistroDebian     LinuxDistro = "debian"
	DistroRHEL       LinuxDistro = "rhel"
	DistroStandalone LinuxDistro = "standalone"
)

// OS describes the host's operating system.
type OS struct {
	Arch         string      `json:"arch"`
	Family       OSFamily    `json:"family"`
	LinuxDistro  LinuxDistro `json:"linuxDistro,omitempty"`
	Platform     string      `json:"platform"`
	VersionMajor uint32      `json:"versionMajor"`
	VersionMinor uint32      `json:"versionMinor"`
	VersionPatch uint32      `json:"versionPatch"`
	VersionStr   string      `json:"versionString"`
}

// User describes the user the agent process is running as.
type User struct {
	Name    string `json:"name"`
	UID     uint32 `json:"uid"`
	Group   string `json:"group"`
	GID     uint32 `json:"gid"`
	HomeDir string `json:"homeDir"`
}

// IsRoot reports whether this is the root/Administrator account, matching
// the original source's User::is_root.
func (u User) IsRoot() bool { return u.UID == 0 }
