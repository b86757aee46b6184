package installer

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"
)

func TestDownloader_Fetch(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		switch r.URL.Path {
		case "/ok":
			w.Write([]byte(helloWorld))
		case "/redirect":
			http.Redirect(w, r, "/ok", http.StatusFound)
		case "/not-modified":
			w.WriteHeader(http.StatusNotModified)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	d := NewDownloader(WithUserAgent("maaup/test"))

	t.Run("ok", func(t *testing.T) {
		data, err := d.Fetch(context.Background(), srv.URL+"/ok", 1024)
		if err != nil {
			t.Fatalf("Fetch() error = %v", err)
		}
		if string(data) != helloWorld {
			t.Errorf("Fetch() = %q", data)
		}
		if gotUA != "maaup/test" {
			t.Errorf("User-Agent = %q, want maaup/test", gotUA)
		}
	})

	t.Run("redirect", func(t *testing.T) {
		data, err := d.Fetch(context.Background(), srv.URL+"/redirect", 1024)
		if err != nil || string(data) != helloWorld {
			t.Errorf("Fetch() = %q, %v", data, err)
		}
	})

	t.Run("over limit", func(t *testing.T) {
		_, err := d.Fetch(context.Background(), srv.URL+"/ok", 4)
		if KindOf(err) != KindNetwork {
			t.Errorf("Fetch() error = %v, want KindNetwork", err)
		}
	})

	t.Run("not found", func(t *testing.T) {
		_, err := d.Fetch(context.Background(), srv.URL+"/missing", 1024)
		if KindOf(err) != KindNetwork || !strings.Contains(err.Error(), "404") {
			t.Errorf("Fetch() error = %v, want KindNetwork 404", err)
		}
	})

	t.Run("not modified", func(t *testing.T) {
		data, err := d.Fetch(context.Background(), srv.URL+"/not-modified", 1024)
		if KindOf(err) != KindNetwork || data != nil {
			t.Errorf("Fetch() = %q, %v; want KindNetwork for a 304 without a cache", data, err)
		}
	})

	t.Run("bad url", func(t *testing.T) {
		_, err := d.Fetch(context.Background(), "://nope", 1024)
		if KindOf(err) != KindNetwork {
			t.Errorf("Fetch() error = %v, want KindNetwork", err)
		}
	})
}

func TestDownloader_DownloadToFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/file":
			w.Write([]byte(helloWorld))
		case "/short":
			w.Header().Set("Content-Length", "100")
			w.Write([]byte("only ten.."))
		default:
			http.Error(w, "boom", http.StatusInternalServerError)
		}
	}))
	defer srv.Close()

	d := NewDownloader()

	t.Run("success", func(t *testing.T) {
		dest := filepath.Join(t.TempDir(), "sub", "file")
		if err := d.DownloadToFile(context.Background(), srv.URL+"/file", dest); err != nil {
			t.Fatalf("DownloadToFile() error = %v", err)
		}
		data, err := os.ReadFile(dest)
		if err != nil || string(data) != helloWorld {
			t.Errorf("dest = %q, %v", data, err)
		}
		if _, err := os.Stat(dest + ".partial"); !os.IsNotExist(err) {
			t.Error(".partial file left behind")
		}
	})

	for _, path := range []string{"/short", "/error"} {
		t.Run(strings.TrimPrefix(path, "/"), func(t *testing.T) {
			dest := filepath.Join(t.TempDir(), "file")
			err := d.DownloadToFile(context.Background(), srv.URL+path, dest)
			if KindOf(err) != KindNetwork {
				t.Errorf("DownloadToFile() error = %v, want KindNetwork", err)
			}
			if _, err := os.Stat(dest); !os.IsNotExist(err) {
				t.Error("dest should not exist after a failed download")
			}
			if _, err := os.Stat(dest + ".partial"); !os.IsNotExist(err) {
				t.Error(".partial file left behind")
			}
		})
	}
}

func TestDownloader_TransferTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "1000")
		w.Write([]byte("partial"))
		w.(http.Flusher).Flush()
		<-r.Context().Done()
	}))
	defer srv.Close()

	d := NewDownloader(WithTransferTimeout(100 * time.Millisecond))
	err := d.DownloadToFile(context.Background(), srv.URL, filepath.Join(t.TempDir(), "file"))
	if KindOf(err) != KindNetwork {
		t.Errorf("DownloadToFile() error = %v, want KindNetwork", err)
	}
}

func TestDownloader_RateLimit(t *testing.T) {
	const size = 32 * 1024
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", strconv.Itoa(size))
		w.Write(make([]byte, size))
	}))
	defer srv.Close()

	// The burst covers the first 16 KiB, the rest takes about a second.
	d := NewDownloader(WithRateLimit(16 * 1024))
	start := time.Now()
	data, err := d.Fetch(context.Background(), srv.URL, size)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if len(data) != size {
		t.Errorf("got %d bytes, want %d", len(data), size)
	}
	if elapsed := time.Since(start); elapsed < 500*time.Millisecond {
		t.Errorf("rate limited fetch took %v, expected about 1s", elapsed)
	}
}

func TestWithRateLimit_Disabled(t *testing.T) {
	d := NewDownloader(WithRateLimit(100), WithRateLimit(0))
	if d.limiter != nil {
		t.Error("WithRateLimit(0) should remove the limiter")
	}
}
