package installer

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// maxCachedBytes bounds manifest and hot-update documents.
const maxCachedBytes = 32 << 20

// FetchCached returns the document at url, cached at path.
//
// A cached copy younger than interval is returned without network I/O.
// Otherwise the request carries the ETag stored at path+".etag"; a 304
// refreshes the cached copy's age and a 200 replaces it. Zero interval
// always goes to the network.
func FetchCached(ctx context.Context, d *Downloader, url, path string, interval time.Duration) ([]byte, error) {
	etagPath := path + ".etag"

	if interval > 0 {
		if info, err := os.Stat(path); err == nil && time.Since(info.ModTime()) < interval {
			data, err := os.ReadFile(path)
			if err == nil {
				d.logger.Debug("using cached document", "path", path, "age", time.Since(info.ModTime()))
				return data, nil
			}
		}
	}

	header := http.Header{}
	if fileExists(path) {
		if etag, err := os.ReadFile(etagPath); err == nil && len(strings.TrimSpace(string(etag))) > 0 {
			header.Set("If-None-Match", strings.TrimSpace(string(etag)))
		}
	}

	resp, err := d.get(ctx, url, header)
	if err != nil {
		return nil, err
	}
	defer resp.Close()

	if resp.StatusCode == http.StatusNotModified {
		now := time.Now()
		if err := os.Chtimes(path, now, now); err != nil {
			return nil, ioError("touch cached document", err)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, ioError("read cached document", err)
		}
		d.logger.Debug("cached document not modified", "url", url)
		return data, nil
	}

	data, err := io.ReadAll(io.LimitReader(d.body(ctx, resp), maxCachedBytes+1))
	if err != nil {
		return nil, &Error{Kind: KindNetwork, Desc: "read response body", Err: err}
	}
	if len(data) > maxCachedBytes {
		return nil, &Error{Kind: KindNetwork, Desc: fmt.Sprintf("response from %s exceeds %d bytes", url, maxCachedBytes)}
	}

	if err := writeFileAtomic(path, data, 0644); err != nil {
		return nil, ioError("write cached document", err)
	}
	if etag := resp.Header.Get("ETag"); etag != "" {
		if err := writeFileAtomic(etagPath, []byte(etag), 0644); err != nil {
			return nil, ioError("write etag", err)
		}
	} else {
		os.Remove(etagPath)
	}

	return data, nil
}

// writeFileAtomic writes data next to path and renames it into place.
func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Chmod(tmpPath, perm); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return nil
}
