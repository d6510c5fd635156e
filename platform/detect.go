package platform

import (
	"context"
	"fmt"
	"runtime"
	"strings"

	"github.com/shirou/gopsutil/v4/host"
)

// Host is the platform and architecture pair of a machine, using the same
// identifiers as the matrix.
type Host struct {
	OS   string
	Arch string
}

// Detector is the single boundary where host identifiers come from the
// environment; everything else works on plain strings.
type Detector interface {
	Detect(ctx context.Context) (Host, error)
}

// RuntimeDetector reports the platform the current binary was built for.
type RuntimeDetector struct{}

func (RuntimeDetector) Detect(_ context.Context) (Host, error) {
	return Host{OS: runtime.GOOS, Arch: runtime.GOARCH}, nil
}

// KernelDetector reports the machine architecture of the running kernel,
// which differs from runtime.GOARCH when the process runs under emulation or
// as a 32-bit build on a 64-bit system.
//
// When the kernel can't be queried it falls back to runtime.GOARCH, unless the
// context was cancelled.
type KernelDetector struct {
	// info is swapped in tests.
	info func(ctx context.Context) (*host.InfoStat, error)
}

func (d KernelDetector) Detect(ctx context.Context) (Host, error) {
	detected := Host{OS: runtime.GOOS, Arch: runtime.GOARCH}

	info := d.info
	if info == nil {
		info = host.InfoWithContext
	}

	stat, err := info(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return Host{}, fmt.Errorf("platform detection cancelled: %w", ctx.Err())
		}
		return detected, nil
	}

	if arch := NormalizeArch(stat.KernelArch); arch != "" {
		detected.Arch = arch
	}

	return detected, nil
}

// NormalizeArch maps uname style machine names to GOARCH identifiers.
// Unknown values are returned lowercased and trimmed.
func NormalizeArch(machine string) string {
	machine = strings.ToLower(strings.TrimSpace(machine))

	switch machine {
	case "x86_64", "x64", "amd64":
		return "amd64"
	case "aarch64", "arm64", "armv8", "armv8l":
		return "arm64"
	case "i386", "i486", "i586", "i686", "x86", "386":
		return "386"
	case "armv6l", "armv7l", "armv7", "arm":
		return "arm"
	default:
		return machine
	}
}
