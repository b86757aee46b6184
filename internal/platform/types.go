// Package platform detects the host and derives the identifiers releases
// are keyed by: the target triple and the shared library naming convention.
//
// The OS and architecture come from the Go runtime. On Linux the C library
// matters as well, since musl systems need their own build; it is inferred
// from the distribution gopsutil reports. The result is also exposed to Lua
// configuration files as a read-only table.
package platform

import (
	"context"
	"fmt"
)

// C library variants on Linux.
const (
	LibcGNU  = "gnu"
	LibcMusl = "musl"
)

// Info describes a host.
type Info struct {
	OS     string // GOOS: "linux", "darwin" or "windows"
	Arch   string // GOARCH: "amd64" or "arm64"
	Libc   string // LibcGNU or LibcMusl on Linux, empty elsewhere
	Distro string // distribution ID on Linux when known, e.g. "alpine"
}

func (i *Info) IsLinux() bool   { return i.OS == "linux" }
func (i *Info) IsMacOS() bool   { return i.OS == "darwin" }
func (i *Info) IsWindows() bool { return i.OS == "windows" }

// tripleArch maps GOARCH to the architecture part of a target triple.
var tripleArch = map[string]string{
	"amd64": "x86_64",
	"arm64": "aarch64",
}

// Triple returns the target triple releases are keyed by,
// e.g. "x86_64-unknown-linux-gnu".
func (i *Info) Triple() (string, error) {
	arch, ok := tripleArch[i.Arch]
	if !ok {
		return "", fmt.Errorf("no releases for architecture %s", i.Arch)
	}

	switch i.OS {
	case "linux":
		libc := i.Libc
		if libc == "" {
			libc = LibcGNU
		}
		return arch + "-unknown-linux-" + libc, nil
	case "darwin":
		return arch + "-apple-darwin", nil
	case "windows":
		return arch + "-pc-windows-msvc", nil
	}
	return "", fmt.Errorf("no releases for operating system %s", i.OS)
}

// LibraryPrefix is the shared library file name prefix: "lib" except on
// Windows.
func (i *Info) LibraryPrefix() string {
	if i.IsWindows() {
		return ""
	}
	return "lib"
}

// LibrarySuffix is the shared library extension.
func (i *Info) LibrarySuffix() string {
	switch {
	case i.IsWindows():
		return ".dll"
	case i.IsMacOS():
		return ".dylib"
	}
	return ".so"
}

// LibraryName returns the file name of a shared library,
// e.g. "libMaaCore.so" for "MaaCore".
func (i *Info) LibraryName(name string) string {
	return i.LibraryPrefix() + name + i.LibrarySuffix()
}

// ExecutableName returns the file name of an executable.
func (i *Info) ExecutableName(name string) string {
	if i.IsWindows() {
		return name + ".exe"
	}
	return name
}

// Detector finds out which platform maaup runs on.
type Detector interface {
	Detect(ctx context.Context) (*Info, error)
}

// StaticDetector reports a fixed Info. It serves explicit platform
// overrides and tests.
type StaticDetector struct {
	Info Info
}

// Detect returns a copy of s.Info.
func (s StaticDetector) Detect(ctx context.Context) (*Info, error) {
	info := s.Info
	return &info, nil
}
