package installer

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// stagedFile is an extracted entry waiting to be committed.
type stagedFile struct {
	staged string
	dest   string
}

// stager extracts mapped archive entries into a private staging directory.
// Nothing outside the staging directory is touched until commit.
type stager struct {
	dir    string
	mapper Mapper
	files  []stagedFile
	byDest map[string]int
	seq    int
}

func newStager(dir string, mapper Mapper) *stager {
	return &stager{dir: dir, mapper: mapper, byDest: make(map[string]int)}
}

// extractArchive unpacks the archive at path through mapper into dir and returns
// the staged files. The archive format is chosen from the file name.
func extractArchive(path, stageDir string, mapper Mapper) ([]stagedFile, error) {
	s := newStager(stageDir, mapper)
	if err := os.MkdirAll(stageDir, 0755); err != nil {
		return nil, ioError("create staging dir", err)
	}

	name := strings.ToLower(filepath.Base(path))
	var err error
	switch {
	case strings.HasSuffix(name, ".zip"):
		err = s.extractZip(path)
	case strings.HasSuffix(name, ".tar.gz"), strings.HasSuffix(name, ".tgz"):
		err = s.extractTar(path, true)
	case strings.HasSuffix(name, ".tar"):
		err = s.extractTar(path, false)
	default:
		err = &Error{Kind: KindExtract, Desc: fmt.Sprintf("unsupported archive format: %s", filepath.Base(path))}
	}
	if err != nil {
		return nil, err
	}
	return s.files, nil
}

func (s *stager) extractTar(path string, gzipped bool) error {
	archiveFile, err := os.Open(path)
	if err != nil {
		return ioError("open archive", err)
	}
	defer archiveFile.Close()

	var r io.Reader = archiveFile
	if gzipped {
		gzipReader, err := gzip.NewReader(archiveFile)
		if err != nil {
			return &Error{Kind: KindExtract, Desc: "create gzip reader", Err: err}
		}
		defer gzipReader.Close()
		r = gzipReader
	}

	tarReader := tar.NewReader(r)
	for {
		header, err := tarReader.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return &Error{Kind: KindExtract, Desc: "read tar header", Err: err}
		}

		switch header.Typeflag {
		case tar.TypeReg:
			if err := s.stageFile(header.Name, os.FileMode(header.Mode).Perm(), tarReader); err != nil {
				return err
			}
		case tar.TypeSymlink:
			if err := s.stageSymlink(header.Name, header.Linkname); err != nil {
				return err
			}
		default:
			// Directories are created on commit; devices and the like are skipped.
			continue
		}
	}
}

func (s *stager) extractZip(path string) error {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return &Error{Kind: KindExtract, Desc: "open zip archive", Err: err}
	}
	defer zr.Close()

	for _, f := range zr.File {
		mode := f.Mode()
		switch {
		case mode.IsDir():
			continue
		case mode&os.ModeSymlink != 0:
			target, err := readZipEntry(f)
			if err != nil {
				return err
			}
			if err := s.stageSymlink(f.Name, string(target)); err != nil {
				return err
			}
		case mode.IsRegular():
			rc, err := f.Open()
			if err != nil {
				return &Error{Kind: KindExtract, Desc: fmt.Sprintf("open zip entry %s", f.Name), Err: err}
			}
			err = s.stageFile(f.Name, mode.Perm(), rc)
			rc.Close()
			if err != nil {
				return err
			}
		}
	}
	return nil
}

func readZipEntry(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, &Error{Kind: KindExtract, Desc: fmt.Sprintf("open zip entry %s", f.Name), Err: err}
	}
	defer rc.Close()
	data, err := io.ReadAll(io.LimitReader(rc, 4096))
	if err != nil {
		return nil, &Error{Kind: KindExtract, Desc: fmt.Sprintf("read zip entry %s", f.Name), Err: err}
	}
	return data, nil
}

// mapEntry validates an entry name and asks the mapper for its destination.
func (s *stager) mapEntry(name string) (string, bool, error) {
	clean := strings.TrimPrefix(filepath.ToSlash(name), "./")
	if clean == "" {
		return "", false, nil
	}
	// Security check: prevent path traversal
	if !filepath.IsLocal(filepath.FromSlash(clean)) {
		return "", false, &Error{Kind: KindExtract, Desc: fmt.Sprintf("illegal file path: %s", name)}
	}
	dest, ok := s.mapper(clean)
	return dest, ok, nil
}

// next reserves a staging path for dest. A later entry for the same
// destination replaces the earlier one.
func (s *stager) next(dest string) string {
	staged := filepath.Join(s.dir, strconv.Itoa(s.seq))
	s.seq++
	if i, ok := s.byDest[dest]; ok {
		os.Remove(s.files[i].staged)
		s.files[i].staged = staged
		return staged
	}
	s.byDest[dest] = len(s.files)
	s.files = append(s.files, stagedFile{staged: staged, dest: dest})
	return staged
}

func (s *stager) stageFile(name string, perm os.FileMode, r io.Reader) error {
	dest, ok, err := s.mapEntry(name)
	if err != nil || !ok {
		return err
	}
	if perm == 0 {
		perm = 0644
	}

	staged := s.next(dest)
	outFile, err := os.OpenFile(staged, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return ioError(fmt.Sprintf("create file %s", staged), err)
	}
	if _, err := io.Copy(outFile, r); err != nil {
		outFile.Close()
		return &Error{Kind: KindExtract, Desc: fmt.Sprintf("write file %s", name), Err: err}
	}
	if err := outFile.Close(); err != nil {
		return ioError(fmt.Sprintf("close file %s", staged), err)
	}
	// Mode from OpenFile is filtered by umask; archives carry the intended bits.
	if err := os.Chmod(staged, perm); err != nil {
		return ioError(fmt.Sprintf("chmod file %s", staged), err)
	}
	return nil
}

func (s *stager) stageSymlink(name, target string) error {
	dest, ok, err := s.mapEntry(name)
	if err != nil || !ok {
		return err
	}
	if unsafeLinkTarget(target) {
		return &Error{Kind: KindExtract, Desc: fmt.Sprintf("illegal symlink target %q for %s", target, name)}
	}

	staged := s.next(dest)
	if err := os.Symlink(target, staged); err != nil {
		return ioError(fmt.Sprintf("create symlink %s", staged), err)
	}
	return nil
}

// unsafeLinkTarget reports whether a symlink target could point outside
// the extraction root.
func unsafeLinkTarget(target string) bool {
	if target == "" || filepath.IsAbs(target) {
		return true
	}
	for _, part := range strings.Split(filepath.ToSlash(target), "/") {
		if part == ".." {
			return true
		}
	}
	return false
}

// commitStaged moves every staged file to its destination, creating parent
// directories. Each file is replaced by rename, so readers never observe a
// partially written file.
func commitStaged(files []stagedFile) ([]string, error) {
	committed := make([]string, 0, len(files))
	for _, f := range files {
		if err := os.MkdirAll(filepath.Dir(f.dest), 0755); err != nil {
			return committed, ioError(fmt.Sprintf("create parent dir for %s", f.dest), err)
		}
		if err := moveFile(f.staged, f.dest); err != nil {
			return committed, ioError(fmt.Sprintf("install %s", f.dest), err)
		}
		committed = append(committed, f.dest)
	}
	return committed, nil
}

// moveFile renames src to dst. When a plain rename is impossible, for
// example across volumes, the file is copied next to dst and renamed.
func moveFile(src, dst string) error {
	if info, err := os.Lstat(dst); err == nil && info.IsDir() {
		return fmt.Errorf("destination is a directory")
	}

	renameErr := os.Rename(src, dst)
	if renameErr == nil {
		return nil
	}

	tmp := dst + ".new"
	os.Remove(tmp)
	if err := copyEntry(src, tmp); err != nil {
		os.Remove(tmp)
		return errors.Join(renameErr, err)
	}
	if err := os.Rename(tmp, dst); err != nil {
		os.Remove(tmp)
		return err
	}
	os.Remove(src)
	return nil
}

func copyEntry(src, dst string) error {
	info, err := os.Lstat(src)
	if err != nil {
		return err
	}
	if info.Mode()&os.ModeSymlink != 0 {
		target, err := os.Readlink(src)
		if err != nil {
			return err
		}
		return os.Symlink(target, dst)
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Chmod(dst, info.Mode().Perm())
}
