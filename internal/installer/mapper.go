package installer

import (
	"path/filepath"
	"strings"
)

// Mapper decides where an archive entry goes. entry is the slash separated
// path inside the archive. ok is false when the entry must be skipped.
type Mapper func(entry string) (dest string, ok bool)

// LibraryMapper routes archive entries into a library root and a resource
// root.
type LibraryMapper struct {
	LibraryDir  string
	ResourceDir string

	// ResourceMarker is the path component that starts the resource tree,
	// usually "resource".
	ResourceMarker string

	Library  bool // extract shared libraries
	Resource bool // extract resource files

	// LibraryPrefix and LibrarySuffix describe the platform's shared library
	// names, e.g. "lib" and ".so". The suffix may appear anywhere after the
	// prefix so that "libfoo.so.1" matches.
	LibraryPrefix string
	LibrarySuffix string
}

// Map implements Mapper. A library match on any component installs the
// entry under its own file name, so files inside a library-named directory
// stay distinct.
func (m LibraryMapper) Map(entry string) (string, bool) {
	parts := strings.Split(strings.Trim(entry, "/"), "/")
	for i, part := range parts {
		if part == "" || part == "." {
			continue
		}
		if m.Resource && m.ResourceMarker != "" && part == m.ResourceMarker {
			rest := parts[i+1:]
			if len(rest) == 0 {
				return "", false
			}
			return filepath.Join(append([]string{m.ResourceDir}, rest...)...), true
		}
		if m.Library && m.LibrarySuffix != "" &&
			strings.HasPrefix(part, m.LibraryPrefix) &&
			strings.Contains(part[len(m.LibraryPrefix):], m.LibrarySuffix) {
			return filepath.Join(m.LibraryDir, parts[len(parts)-1]), true
		}
	}
	return "", false
}
