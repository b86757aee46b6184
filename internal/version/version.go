// Package version provides semantic versions and the version manifest
// envelope shared by every release channel.
package version

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/mod/semver"
)

// ErrInvalid is wrapped by every parse failure.
var ErrInvalid = errors.New("invalid semantic version")

// Version is an immutable semantic version. The zero value means
// "no version" and sorts before every valid version.
type Version struct {
	v string // canonical form with "v" prefix, e.g. "v1.2.3-beta.1+abc"
}

// Parse parses s, tolerating a single leading "v".
// Short forms such as "1.2" are rejected.
func Parse(s string) (Version, error) {
	v := "v" + strings.TrimPrefix(strings.TrimSpace(s), "v")
	if !semver.IsValid(v) {
		return Version{}, fmt.Errorf("%w: %q", ErrInvalid, s)
	}
	// semver accepts "v1" and "v1.2"; Canonical expands them.
	if semver.Canonical(v) != strings.TrimSuffix(v, semver.Build(v)) {
		return Version{}, fmt.Errorf("%w: %q is not MAJOR.MINOR.PATCH", ErrInvalid, s)
	}
	return Version{v: v}, nil
}

// MustParse is Parse that panics on error. Use for constants only.
func MustParse(s string) Version {
	v, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return v
}

// IsZero reports whether v holds no version.
func (v Version) IsZero() bool {
	return v.v == ""
}

// String returns the version without the "v" prefix.
func (v Version) String() string {
	return strings.TrimPrefix(v.v, "v")
}

// Tag returns the version with the "v" prefix, as release tags use.
func (v Version) Tag() string {
	return v.v
}

// Compare returns -1, 0 or +1 by semantic version precedence.
// Build metadata is ignored.
func (v Version) Compare(o Version) int {
	switch {
	case v.IsZero() && o.IsZero():
		return 0
	case v.IsZero():
		return -1
	case o.IsZero():
		return 1
	}
	return semver.Compare(v.v, o.v)
}

// Prerelease returns the prerelease suffix including the leading "-", or "".
func (v Version) Prerelease() string {
	return semver.Prerelease(v.v)
}

func (v Version) MarshalText() ([]byte, error) {
	if v.IsZero() {
		return nil, errors.New("marshal empty version")
	}
	return []byte(v.v), nil
}

func (v *Version) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}
