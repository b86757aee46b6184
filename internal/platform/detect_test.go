package platform

import (
	"context"
	"errors"
	"runtime"
	"testing"
)

func fixedDistro(id, family string, err error) distroFunc {
	return func(ctx context.Context) (string, string, error) {
		return id, family, err
	}
}

func TestRealDetector_Detect(t *testing.T) {
	tests := []struct {
		name     string
		detector *RealDetector
		want     Info
		wantErr  bool
	}{
		{
			name:     "ubuntu",
			detector: &RealDetector{goos: "linux", goarch: "amd64", distro: fixedDistro("Ubuntu", "debian", nil)},
			want:     Info{OS: "linux", Arch: "amd64", Libc: LibcGNU, Distro: "ubuntu"},
		},
		{
			name:     "alpine",
			detector: &RealDetector{goos: "linux", goarch: "arm64", distro: fixedDistro("alpine", "alpine", nil)},
			want:     Info{OS: "linux", Arch: "arm64", Libc: LibcMusl, Distro: "alpine"},
		},
		{
			name:     "postmarketos",
			detector: &RealDetector{goos: "linux", goarch: "arm64", distro: fixedDistro("postmarketos", "", nil)},
			want:     Info{OS: "linux", Arch: "arm64", Libc: LibcMusl, Distro: "postmarketos"},
		},
		{
			name:     "unknown distro assumes glibc",
			detector: &RealDetector{goos: "linux", goarch: "amd64", distro: fixedDistro("", "", errors.New("no os-release"))},
			want:     Info{OS: "linux", Arch: "amd64", Libc: LibcGNU},
		},
		{
			name:     "darwin skips distro",
			detector: &RealDetector{goos: "darwin", goarch: "arm64", distro: fixedDistro("x", "y", nil)},
			want:     Info{OS: "darwin", Arch: "arm64"},
		},
		{
			name:     "unsupported arch",
			detector: &RealDetector{goos: "linux", goarch: "riscv64", distro: fixedDistro("", "", nil)},
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.detector.Detect(context.Background())
			if (err != nil) != tt.wantErr {
				t.Fatalf("Detect() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && *got != tt.want {
				t.Errorf("Detect() = %+v, want %+v", *got, tt.want)
			}
		})
	}
}

func TestRealDetector_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	d := &RealDetector{goos: "linux", goarch: "amd64", distro: func(ctx context.Context) (string, string, error) {
		return "", "", ctx.Err()
	}}
	if _, err := d.Detect(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Detect() error = %v, want context.Canceled", err)
	}
}

func TestNewDetector_Host(t *testing.T) {
	if _, ok := tripleArch[runtime.GOARCH]; !ok {
		t.Skipf("no releases for %s", runtime.GOARCH)
	}
	info, err := NewDetector().Detect(context.Background())
	if err != nil {
		t.Fatalf("Detect() error = %v", err)
	}
	if info.OS != runtime.GOOS || info.Arch != runtime.GOARCH {
		t.Errorf("Detect() = %+v", info)
	}
	if info.IsLinux() != (info.Libc != "") {
		t.Errorf("Libc = %q on %s", info.Libc, info.OS)
	}
}

func TestInfo_Triple(t *testing.T) {
	tests := []struct {
		info    Info
		want    string
		wantErr bool
	}{
		{Info{OS: "linux", Arch: "amd64", Libc: LibcGNU}, "x86_64-unknown-linux-gnu", false},
		{Info{OS: "linux", Arch: "arm64", Libc: LibcGNU}, "aarch64-unknown-linux-gnu", false},
		{Info{OS: "linux", Arch: "amd64", Libc: LibcMusl}, "x86_64-unknown-linux-musl", false},
		{Info{OS: "linux", Arch: "amd64"}, "x86_64-unknown-linux-gnu", false},
		{Info{OS: "darwin", Arch: "arm64"}, "aarch64-apple-darwin", false},
		{Info{OS: "darwin", Arch: "amd64"}, "x86_64-apple-darwin", false},
		{Info{OS: "windows", Arch: "amd64"}, "x86_64-pc-windows-msvc", false},
		{Info{OS: "windows", Arch: "arm64"}, "aarch64-pc-windows-msvc", false},
		{Info{OS: "plan9", Arch: "amd64"}, "", true},
		{Info{OS: "linux", Arch: "riscv64"}, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.info.OS+"/"+tt.info.Arch+"/"+tt.info.Libc, func(t *testing.T) {
			got, err := tt.info.Triple()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Triple() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("Triple() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestInfo_Naming(t *testing.T) {
	tests := []struct {
		os      string
		library string
		exe     string
	}{
		{"linux", "libMaaCore.so", "maa"},
		{"darwin", "libMaaCore.dylib", "maa"},
		{"windows", "MaaCore.dll", "maa.exe"},
	}

	for _, tt := range tests {
		t.Run(tt.os, func(t *testing.T) {
			info := &Info{OS: tt.os, Arch: "amd64"}
			if got := info.LibraryName("MaaCore"); got != tt.library {
				t.Errorf("LibraryName() = %q, want %q", got, tt.library)
			}
			if got := info.ExecutableName("maa"); got != tt.exe {
				t.Errorf("ExecutableName() = %q, want %q", got, tt.exe)
			}
		})
	}
}

func TestStaticDetector(t *testing.T) {
	want := Info{OS: "linux", Arch: "arm64", Libc: LibcMusl}
	d := StaticDetector{Info: want}

	got, err := d.Detect(context.Background())
	if err != nil {
		t.Fatalf("Detect() error = %v", err)
	}
	if *got != want {
		t.Errorf("Detect() = %+v, want %+v", *got, want)
	}

	got.OS = "darwin"
	if d.Info.OS != "linux" {
		t.Error("Detect() returned shared state")
	}
}
