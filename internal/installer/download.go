package installer

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/time/rate"
)

const (
	// DefaultConnectTimeout bounds establishing a connection.
	DefaultConnectTimeout = 10 * time.Second
	// DefaultTransferTimeout bounds one whole transfer, body included.
	DefaultTransferTimeout = 30 * time.Minute
	// DefaultUserAgent is the User-Agent header sent with requests.
	DefaultUserAgent = "maaup"

	maxRedirects = 10
)

// Downloader performs HTTP transfers. It never retries; callers re-run the
// whole update instead.
type Downloader struct {
	client          *http.Client
	userAgent       string
	connectTimeout  time.Duration
	transferTimeout time.Duration
	limiter         *rate.Limiter
	logger          Logger
}

// DownloaderOption configures a Downloader.
type DownloaderOption func(*Downloader)

// WithHTTPClient replaces the HTTP client. The connect timeout option is
// ignored for custom clients.
func WithHTTPClient(c *http.Client) DownloaderOption {
	return func(d *Downloader) { d.client = c }
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) DownloaderOption {
	return func(d *Downloader) { d.userAgent = ua }
}

// WithConnectTimeout sets the dial and TLS handshake timeout.
func WithConnectTimeout(t time.Duration) DownloaderOption {
	return func(d *Downloader) { d.connectTimeout = t }
}

// WithTransferTimeout sets the deadline for one whole transfer.
// Zero disables the deadline.
func WithTransferTimeout(t time.Duration) DownloaderOption {
	return func(d *Downloader) { d.transferTimeout = t }
}

// WithRateLimit caps the body read rate in bytes per second.
// Zero or negative disables the cap.
func WithRateLimit(bytesPerSecond int) DownloaderOption {
	return func(d *Downloader) {
		if bytesPerSecond <= 0 {
			d.limiter = nil
			return
		}
		d.limiter = rate.NewLimiter(rate.Limit(bytesPerSecond), max(bytesPerSecond, readBufferSize))
	}
}

// WithDownloadLogger sets the logger.
func WithDownloadLogger(l Logger) DownloaderOption {
	return func(d *Downloader) { d.logger = l }
}

// NewDownloader creates a downloader.
func NewDownloader(opts ...DownloaderOption) *Downloader {
	d := &Downloader{
		userAgent:       DefaultUserAgent,
		connectTimeout:  DefaultConnectTimeout,
		transferTimeout: DefaultTransferTimeout,
		logger:          NopLogger(),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.client == nil {
		d.client = newHTTPClient(d.connectTimeout)
	}
	return d
}

func newHTTPClient(connectTimeout time.Duration) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DialContext = (&net.Dialer{
		Timeout:   connectTimeout,
		KeepAlive: 30 * time.Second,
	}).DialContext
	transport.TLSHandshakeTimeout = connectTimeout

	return &http.Client{
		Transport: transport,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return fmt.Errorf("too many redirects")
			}
			return nil
		},
	}
}

// response wraps a body so that closing it also releases the transfer deadline.
type response struct {
	*http.Response
	cancel context.CancelFunc
}

func (r *response) Close() error {
	err := r.Body.Close()
	r.cancel()
	return err
}

// get issues a GET request. The caller must Close the response.
// Statuses other than 200 and 304 are KindNetwork errors.
func (d *Downloader) get(ctx context.Context, url string, header http.Header) (*response, error) {
	cancel := context.CancelFunc(func() {})
	if d.transferTimeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, d.transferTimeout)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		cancel()
		return nil, &Error{Kind: KindNetwork, Desc: "create request", Err: err}
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("User-Agent", d.userAgent)

	resp, err := d.client.Do(req)
	if err != nil {
		cancel()
		return nil, &Error{Kind: KindNetwork, Desc: fmt.Sprintf("request %s", url), Err: err}
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNotModified {
		resp.Body.Close()
		cancel()
		return nil, &Error{Kind: KindNetwork, Desc: fmt.Sprintf("request %s: unexpected status code: %d", url, resp.StatusCode)}
	}

	return &response{Response: resp, cancel: cancel}, nil
}

// body returns the response body, throttled when a rate limit is set.
func (d *Downloader) body(ctx context.Context, r *response) io.Reader {
	if d.limiter == nil {
		return r.Body
	}
	return &limitedReader{ctx: ctx, r: r.Body, limiter: d.limiter}
}

// Fetch downloads url fully into memory, bounded by limit bytes.
func (d *Downloader) Fetch(ctx context.Context, url string, limit int64) ([]byte, error) {
	resp, err := d.get(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &Error{Kind: KindNetwork, Desc: fmt.Sprintf("request %s: unexpected status code: %d", url, resp.StatusCode)}
	}

	data, err := io.ReadAll(io.LimitReader(d.body(ctx, resp), limit+1))
	if err != nil {
		return nil, &Error{Kind: KindNetwork, Desc: "read response body", Err: err}
	}
	if int64(len(data)) > limit {
		return nil, &Error{Kind: KindNetwork, Desc: fmt.Sprintf("response from %s exceeds %d bytes", url, limit)}
	}
	return data, nil
}

// DownloadToFile streams url into destPath. The body is written to
// destPath+".partial" and renamed into place only when complete.
func (d *Downloader) DownloadToFile(ctx context.Context, url, destPath string) error {
	resp, err := d.get(ctx, url, nil)
	if err != nil {
		return err
	}
	defer resp.Close()

	if resp.StatusCode != http.StatusOK {
		return &Error{Kind: KindNetwork, Desc: fmt.Sprintf("request %s: unexpected status code: %d", url, resp.StatusCode)}
	}

	if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
		return ioError("create dest dir", err)
	}

	tmpPath := destPath + ".partial"
	tmpFile, err := os.Create(tmpPath)
	if err != nil {
		return ioError("create partial file", err)
	}

	cleanupNeeded := true
	defer func() {
		tmpFile.Close()
		if cleanupNeeded {
			os.Remove(tmpPath)
		}
	}()

	start := time.Now()
	n, err := io.Copy(tmpFile, d.body(ctx, resp))
	if err != nil {
		return &Error{Kind: KindNetwork, Desc: "copy response body", Err: err}
	}
	if resp.ContentLength >= 0 && n != resp.ContentLength {
		return &Error{Kind: KindNetwork, Desc: fmt.Sprintf("short body: expected %d bytes, got %d", resp.ContentLength, n)}
	}

	if err := tmpFile.Close(); err != nil {
		return ioError("close partial file", err)
	}
	if err := os.Rename(tmpPath, destPath); err != nil {
		return ioError("rename partial file", err)
	}
	cleanupNeeded = false

	d.logger.Debug("download finished", "url", url, "bytes", n, "elapsed", time.Since(start))
	return nil
}

type limitedReader struct {
	ctx     context.Context
	r       io.Reader
	limiter *rate.Limiter
}

func (l *limitedReader) Read(p []byte) (int, error) {
	if burst := l.limiter.Burst(); len(p) > burst {
		p = p[:burst]
	}
	n, err := l.r.Read(p)
	if n > 0 {
		if werr := l.limiter.WaitN(l.ctx, n); werr != nil {
			return n, werr
		}
	}
	return n, err
}

// fileExists checks if a regular file exists.
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.Mode().IsRegular()
}
