package config

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"

	"github.com/ZebulonRouseFrantzich/maaup/internal/platform"
)

// failingDetector is a platform.Detector that always fails.
type failingDetector struct{ err error }

func (f failingDetector) Detect(ctx context.Context) (*platform.Info, error) {
	return nil, f.err
}

func linuxDetector() platform.Detector {
	return platform.StaticDetector{Info: platform.Info{OS: "linux", Arch: "amd64", Libc: platform.LibcGNU}}
}

func TestParseLua(t *testing.T) {
	tests := []struct {
		name     string
		code     string
		detector platform.Detector
		want     map[string]any
	}{
		{
			name: "scalars",
			code: `maa = { core = { channel = "beta", test_time = 5, components = { resource = false } } }`,
			want: map[string]any{
				"core": map[string]any{
					"channel":    "beta",
					"test_time":  int64(5),
					"components": map[string]any{"resource": false},
				},
			},
		},
		{
			name: "fractional number",
			code: `maa = { network = { ratio = 1.5 } }`,
			want: map[string]any{"network": map[string]any{"ratio": 1.5}},
		},
		{
			name:     "platform conditional",
			code:     `maa = { core = { channel = platform.is_linux and "alpha" or "stable" } }`,
			detector: linuxDetector(),
			want:     map[string]any{"core": map[string]any{"channel": "alpha"}},
		},
		{
			name:     "when drops nil list entries",
			code:     `maa = { files = { "a", platform.when(platform.is_windows, "b"), "c" } }`,
			detector: linuxDetector(),
			want:     map[string]any{"files": []any{"a", "c"}},
		},
		{
			name: "string helpers",
			code: `maa = { cli = { channel = string.lower("STABLE") } }`,
			want: map[string]any{"cli": map[string]any{"channel": "stable"}},
		},
		{
			name: "empty table",
			code: `maa = {}`,
			want: map[string]any{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseLua(context.Background(), tt.code, tt.detector)
			if err != nil {
				t.Fatalf("parseLua() error = %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("parseLua() = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestParseLua_Errors(t *testing.T) {
	tests := []struct {
		name    string
		code    string
		wantMsg string
	}{
		{"syntax error", `maa = {`, "Lua error"},
		{"missing table", `x = 1`, "missing or invalid 'maa' table"},
		{"table is a list", `maa = { "a", "b" }`, "invalid 'maa' table"},
		{"function value", `maa = { f = function() end }`, "unsupported config value"},
		{"numeric map key", `maa = { core = { [2.5] = "x" } }`, "unsupported config value"},
		{"sandbox violation", `os.execute("true")`, "Lua error"},
		{"platform without detector", `maa = { a = platform.os }`, "Lua error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseLua(context.Background(), tt.code, nil)
			var pe *ParseError
			if !errors.As(err, &pe) {
				t.Fatalf("error = %v, want *ParseError", err)
			}
			if !strings.Contains(pe.Message, tt.wantMsg) {
				t.Errorf("Message = %q, want substring %q", pe.Message, tt.wantMsg)
			}
		})
	}
}

func TestParseLua_PlatformTableReadOnly(t *testing.T) {
	_, err := parseLua(context.Background(), `platform.os = "windows"; maa = {}`, linuxDetector())
	if err == nil {
		t.Fatal("expected error writing to platform table")
	}
}

func TestParseLua_DetectorError(t *testing.T) {
	want := errors.New("no host info")
	_, err := parseLua(context.Background(), `maa = {}`, failingDetector{err: want})
	if !errors.Is(err, want) {
		t.Errorf("error = %v, want %v", err, want)
	}
}

func TestParseLua_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := parseLua(ctx, `while true do end`, nil)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}

func TestFormatError(t *testing.T) {
	err := &ParseError{
		Message: "Lua error",
		Detail:  "<string>:1: boom\nstack traceback:\n\t[G]: ?",
	}

	short := FormatError(err, false)
	if strings.Contains(short, "stack traceback") {
		t.Errorf("FormatError(false) = %q, should drop the traceback", short)
	}
	if !strings.Contains(short, "boom") {
		t.Errorf("FormatError(false) = %q, should keep the message", short)
	}

	if long := FormatError(err, true); !strings.Contains(long, "stack traceback") {
		t.Errorf("FormatError(true) = %q, should keep details", long)
	}

	wrapped := FormatError(fmt.Errorf("load maaup.lua: %w", err), false)
	if !strings.HasPrefix(wrapped, "load maaup.lua: Lua error") || strings.Contains(wrapped, "stack traceback") {
		t.Errorf("FormatError(wrapped) = %q", wrapped)
	}

	plain := errors.New("plain")
	if got := FormatError(plain, false); got != "plain" {
		t.Errorf("FormatError(plain) = %q", got)
	}
}
