package testutil_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ZebulonRouseFrantzich/maaup/internal/testutil"
)

func TestSetupTestEnv(t *testing.T) {
	d := testutil.SetupTestEnv(t)

	for env, want := range map[string]string{
		"MAA_CONFIG_DIR": d.Config,
		"MAA_DATA_DIR":   d.Data,
		"MAA_CACHE_DIR":  d.Cache,
	} {
		if got := os.Getenv(env); got != want {
			t.Errorf("%s = %q, want %q", env, got, want)
		}
		if info, err := os.Stat(want); err != nil || !info.IsDir() {
			t.Errorf("%s directory not created: %v", env, err)
		}
	}

	xdg := os.Getenv("XDG_DATA_HOME")
	if filepath.Dir(xdg) != filepath.Dir(d.Data) {
		t.Errorf("XDG_DATA_HOME = %q, want it next to %q", xdg, d.Data)
	}
}

func TestSetupTestEnv_Isolated(t *testing.T) {
	a := testutil.SetupTestEnv(t)
	var b testutil.Dirs
	t.Run("nested", func(t *testing.T) {
		b = testutil.SetupTestEnv(t)
	})
	if a.Data == b.Data {
		t.Error("each call should get its own directories")
	}
}
