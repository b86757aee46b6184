package installer

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func TestReplaceExecutable(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "maa")
	if err := os.WriteFile(target, []byte("old"), 0755); err != nil {
		t.Fatal(err)
	}
	src := filepath.Join(dir, "maa.new")
	if err := os.WriteFile(src, []byte("new"), 0644); err != nil {
		t.Fatal(err)
	}

	if err := ReplaceExecutable(src, target); err != nil {
		t.Fatalf("ReplaceExecutable() error = %v", err)
	}
	data, err := os.ReadFile(target)
	if err != nil || string(data) != "new" {
		t.Errorf("target = %q, %v", data, err)
	}
	if runtime.GOOS != "windows" {
		info, err := os.Stat(target)
		if err != nil {
			t.Fatal(err)
		}
		if info.Mode().Perm() != 0755 {
			t.Errorf("mode = %v, want target's 0755", info.Mode().Perm())
		}
	}
}

func TestReplaceExecutable_Symlink(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need privileges on windows")
	}
	dir := t.TempDir()
	real := filepath.Join(dir, "maa-real")
	if err := os.WriteFile(real, []byte("old"), 0755); err != nil {
		t.Fatal(err)
	}
	link := filepath.Join(dir, "maa")
	if err := os.Symlink(real, link); err != nil {
		t.Fatal(err)
	}
	src := filepath.Join(dir, "maa.new")
	if err := os.WriteFile(src, []byte("new"), 0755); err != nil {
		t.Fatal(err)
	}

	if err := ReplaceExecutable(src, link); err != nil {
		t.Fatal(err)
	}
	if data, _ := os.ReadFile(real); string(data) != "new" {
		t.Errorf("symlink target = %q, want new", data)
	}
	if info, err := os.Lstat(link); err != nil || info.Mode()&os.ModeSymlink == 0 {
		t.Error("symlink should be kept")
	}
}

func TestReplaceExecutable_CurrentExecutable(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "maa")
	if err := os.WriteFile(target, []byte("old"), 0755); err != nil {
		t.Fatal(err)
	}
	src := filepath.Join(dir, "maa.new")
	if err := os.WriteFile(src, []byte("new"), 0755); err != nil {
		t.Fatal(err)
	}

	orig := osExecutable
	osExecutable = func() (string, error) { return target, nil }
	t.Cleanup(func() { osExecutable = orig })

	if err := ReplaceExecutable(src, ""); err != nil {
		t.Fatal(err)
	}
	if data, _ := os.ReadFile(target); string(data) != "new" {
		t.Errorf("target = %q, want new", data)
	}
}

func TestReplaceExecutable_Errors(t *testing.T) {
	dir := t.TempDir()

	orig := osExecutable
	osExecutable = func() (string, error) { return "", errors.New("no executable") }
	t.Cleanup(func() { osExecutable = orig })

	if err := ReplaceExecutable(filepath.Join(dir, "src"), ""); err == nil {
		t.Error("expected error when the executable cannot be located")
	}

	target := filepath.Join(dir, "maa")
	if err := os.WriteFile(target, []byte("old"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := ReplaceExecutable(filepath.Join(dir, "missing"), target); err == nil {
		t.Error("expected error for a missing source")
	}
	if data, _ := os.ReadFile(target); string(data) != "old" {
		t.Errorf("target = %q, want it unchanged", data)
	}
}
