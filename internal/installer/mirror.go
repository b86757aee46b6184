package installer

import (
	"context"
	"errors"
	"io"
	"time"
)

// DefaultSpeedTestBytes bounds a speed test when the asset sets no budget.
const DefaultSpeedTestBytes = 10 << 20

type speedResult struct {
	url     string
	bytes   int64
	elapsed time.Duration
}

// faster reports whether r beat o: more bytes within the test window wins,
// equal bytes are decided by elapsed time.
func (r speedResult) faster(o speedResult) bool {
	if r.bytes != o.bytes {
		return r.bytes > o.bytes
	}
	return r.elapsed < o.elapsed
}

// FastestMirror probes canonical and each mirror in turn for at most
// duration or maxBytes and returns the quickest URL. Mirrors that fail are
// skipped. When every probe fails, canonical is returned.
func (d *Downloader) FastestMirror(ctx context.Context, canonical string, opts MirrorOptions, duration time.Duration) string {
	if duration <= 0 || len(opts.URLs) == 0 {
		return canonical
	}
	maxBytes := opts.MaxBytes
	if maxBytes <= 0 {
		maxBytes = DefaultSpeedTestBytes
	}

	var best *speedResult
	for _, url := range append([]string{canonical}, opts.URLs...) {
		if ctx.Err() != nil {
			break
		}
		res, err := d.probe(ctx, url, maxBytes, duration)
		if err != nil {
			d.logger.Debug("mirror probe failed", "url", url, "error", err)
			continue
		}
		d.logger.Debug("mirror probe", "url", url, "bytes", res.bytes, "elapsed", res.elapsed)
		if best == nil || res.faster(*best) {
			best = &res
		}
	}

	if best == nil {
		return canonical
	}
	return best.url
}

func (d *Downloader) probe(ctx context.Context, url string, maxBytes int64, duration time.Duration) (speedResult, error) {
	ctx, cancel := context.WithTimeout(ctx, duration)
	defer cancel()

	start := time.Now()
	resp, err := d.get(ctx, url, nil)
	if err != nil {
		return speedResult{}, err
	}
	defer resp.Close()

	n, err := io.Copy(io.Discard, io.LimitReader(resp.Body, maxBytes))
	elapsed := time.Since(start)
	// Running out of time is the expected end of a probe.
	if err != nil && !errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
		return speedResult{}, err
	}
	return speedResult{url: url, bytes: n, elapsed: elapsed}, nil
}
