// Package arch maps between Debian (dpkg) and Flatpak architecture names.
package arch

import (
	"context"
	"encoding/binary"
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/sys/unix"

	"github.com/firefly-engineering/flatdeb/internal/worker"
)

var (
	x86Regex = regexp.MustCompile(`^i.86$`)
)

// dpkgToFlatpak lists the dpkg architectures whose Flatpak name differs.
var dpkgToFlatpak = map[string]string{
	"amd64":     "x86_64",
	"arm64":     "aarch64",
	"armel":     "arm",
	"armhf":     "arm",
	"powerpc":   "ppc",
	"powerpc64": "ppc64",
	"powerpcel": "ppcle",
	"ppc64el":   "ppc64le",
}

// DpkgToFlatpak returns the Flatpak architecture name for a dpkg
// architecture. Names that are the same in both schemes pass through.
func DpkgToFlatpak(dpkgArch string) string {
	if name, ok := dpkgToFlatpak[dpkgArch]; ok {
		return name
	}
	return dpkgArch
}

// FlatpakFromUname returns the Flatpak architecture name for a uname(2)
// machine string. littleEndian selects the mipsel variants, which uname
// does not distinguish.
func FlatpakFromUname(machine string, littleEndian bool) string {
	switch {
	case x86Regex.MatchString(machine):
		return "i386"
	case strings.HasPrefix(machine, "arm"):
		if strings.HasSuffix(machine, "b") {
			return "armeb"
		}
		return "arm"
	case machine == "mips" || machine == "mips64":
		if littleEndian {
			return machine + "el"
		}
	}
	return machine
}

// HostFlatpak returns the Flatpak architecture of the machine this process
// runs on.
func HostFlatpak() (string, error) {
	var uts unix.Utsname
	if err := unix.Uname(&uts); err != nil {
		return "", fmt.Errorf("uname: %w", err)
	}
	machine := unix.ByteSliceToString(uts.Machine[:])
	return FlatpakFromUname(machine, nativeLittleEndian()), nil
}

func nativeLittleEndian() bool {
	return binary.NativeEndian.Uint16([]byte{1, 0}) == 1
}

// OtherMultiarch returns the architecture that accompanies dpkgArch in a
// multiarch installation, or "" if there is none.
func OtherMultiarch(dpkgArch string) string {
	switch dpkgArch {
	case "amd64":
		return "i386"
	case "arm64":
		return "armhf"
	default:
		return ""
	}
}

// WorkerDpkg asks w for its native dpkg architecture.
func WorkerDpkg(ctx context.Context, w worker.Worker) (string, error) {
	out, err := w.CheckOutput(ctx, []string{"dpkg-architecture", "-q", "DEB_HOST_ARCH"})
	if err != nil {
		return "", err
	}
	arch := strings.TrimSpace(string(out))
	if arch == "" {
		return "", fmt.Errorf("dpkg-architecture printed no architecture")
	}
	return arch, nil
}

// Caller is the part of a worker Matcher needs.
type Caller interface {
	Call(ctx context.Context, argv []string, opts ...worker.Option) (int, error)
}

// Matcher answers whether architecture specifications such as any-amd64 or
// linux-any describe DpkgArch. Answers are cached per Matcher.
type Matcher struct {
	Worker   Caller
	DpkgArch string

	cache map[string]bool
}

// NewMatcher returns a Matcher that runs dpkg-architecture on w.
func NewMatcher(w Caller, dpkgArch string) *Matcher {
	return &Matcher{Worker: w, DpkgArch: dpkgArch}
}

// Matches reports whether spec matches DpkgArch.
func (m *Matcher) Matches(ctx context.Context, spec string) (bool, error) {
	if match, ok := m.cache[spec]; ok {
		return match, nil
	}

	status, err := m.Worker.Call(ctx, []string{"dpkg-architecture", "--host-arch", m.DpkgArch, "--is", spec})
	if err != nil {
		return false, err
	}

	if m.cache == nil {
		m.cache = make(map[string]bool)
	}
	m.cache[spec] = status == 0
	return status == 0, nil
}
