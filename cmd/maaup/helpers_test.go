package main

import (
	"testing"

	"github.com/ZebulonRouseFrantzich/maaup/internal/version"
)

func mustVersion(t *testing.T, s string) version.Version {
	t.Helper()
	v, err := version.Parse(s)
	if err != nil {
		t.Fatal(err)
	}
	return v
}
