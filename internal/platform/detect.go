package platform

import (
	"context"
	"fmt"
	"runtime"
	"strings"

	"github.com/shirou/gopsutil/v4/host"
)

// muslDistros ship musl as their system C library.
var muslDistros = map[string]bool{
	"alpine":       true,
	"postmarketos": true,
	"chimera":      true,
	"void-musl":    true,
}

// distroFunc reports the distribution ID and family.
type distroFunc func(ctx context.Context) (id, family string, err error)

func gopsutilDistro(ctx context.Context) (string, string, error) {
	id, family, _, err := host.PlatformInformationWithContext(ctx)
	return id, family, err
}

// RealDetector inspects the running host.
type RealDetector struct {
	goos, goarch string
	distro       distroFunc
}

// NewDetector returns a detector for the running host.
func NewDetector() Detector {
	return &RealDetector{goos: runtime.GOOS, goarch: runtime.GOARCH, distro: gopsutilDistro}
}

// Detect fills in the OS and architecture and, on Linux, the C library.
// An unidentified distribution is assumed to use glibc.
func (d *RealDetector) Detect(ctx context.Context) (*Info, error) {
	if _, ok := tripleArch[d.goarch]; !ok {
		return nil, fmt.Errorf("detect platform: no releases for architecture %s", d.goarch)
	}
	info := &Info{OS: d.goos, Arch: d.goarch}
	if !info.IsLinux() {
		return info, nil
	}

	id, family, err := d.distro(ctx)
	if err != nil && ctx.Err() != nil {
		return nil, fmt.Errorf("detect platform: %w", ctx.Err())
	}
	info.Distro = strings.ToLower(strings.TrimSpace(id))
	info.Libc = libcOf(info.Distro, strings.ToLower(strings.TrimSpace(family)))
	return info, nil
}

func libcOf(id, family string) string {
	if muslDistros[id] || family == "alpine" {
		return LibcMusl
	}
	return LibcGNU
}
