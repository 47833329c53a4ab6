// Package download provides ports.Downloader implementations: an in-process
// HTTP client for local provisioning and a curl-driven one for remote hosts.
package download

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/felixgeelhaar/labelhost/internal/ports"
)

// DefaultMode is applied when a request leaves Mode unset.
const DefaultMode os.FileMode = 0o755

// ErrChecksumMismatch is returned when downloaded content does not hash to
// the requested digest.
var ErrChecksumMismatch = errors.New("checksum mismatch")

// HTTPDownloader streams a URL to a local file. The file is written next to
// its destination and renamed into place only after it verifies.
type HTTPDownloader struct {
	client   *http.Client
	progress io.Writer
}

// HTTPOption configures an HTTPDownloader.
type HTTPOption func(*HTTPDownloader)

// WithClient sets the HTTP client (default: 10 minute timeout).
func WithClient(c *http.Client) HTTPOption {
	return func(d *HTTPDownloader) {
		d.client = c
	}
}

// WithProgress renders a progress bar to w. Nil disables it.
func WithProgress(w io.Writer) HTTPOption {
	return func(d *HTTPDownloader) {
		d.progress = w
	}
}

// NewHTTPDownloader creates an HTTP downloader.
func NewHTTPDownloader(opts ...HTTPOption) *HTTPDownloader {
	d := &HTTPDownloader{
		client: &http.Client{Timeout: 10 * time.Minute},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Download fetches req.URL to req.Destination.
func (d *HTTPDownloader) Download(ctx context.Context, req ports.DownloadRequest) error {
	dir := filepath.Dir(req.Destination)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create destination directory %s: %w", dir, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, req.URL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := d.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("GET %s: %w", req.URL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: unexpected status %s", req.URL, resp.Status)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(req.Destination)+".download-*")
	if err != nil {
		return fmt.Errorf("create temporary file: %w", err)
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpPath)
		}
	}()

	hasher := sha256.New()
	writers := []io.Writer{tmp, hasher}
	var bar *progressbar.ProgressBar
	if d.progress != nil {
		bar = progressbar.NewOptions64(
			resp.ContentLength,
			progressbar.OptionSetDescription(fmt.Sprintf("Downloading %s", filepath.Base(req.Destination))),
			progressbar.OptionSetWriter(d.progress),
			progressbar.OptionShowBytes(true),
			progressbar.OptionSetWidth(40),
			progressbar.OptionThrottle(65*time.Millisecond),
			progressbar.OptionOnCompletion(func() {
				_, _ = fmt.Fprint(d.progress, "\n")
			}),
			progressbar.OptionSpinnerType(14),
		)
		writers = append(writers, bar)
	}

	if _, err := io.Copy(io.MultiWriter(writers...), resp.Body); err != nil {
		_ = tmp.Close()
		if bar != nil {
			_ = bar.Clear()
		}
		return fmt.Errorf("write %s: %w", req.Destination, err)
	}
	if bar != nil {
		_ = bar.Finish()
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write %s: %w", req.Destination, err)
	}

	if req.SHA256 != "" {
		actual := hex.EncodeToString(hasher.Sum(nil))
		if !strings.EqualFold(actual, req.SHA256) {
			return fmt.Errorf("%w for %s: expected %s, got %s", ErrChecksumMismatch, req.URL, req.SHA256, actual)
		}
	}

	mode := req.Mode
	if mode == 0 {
		mode = DefaultMode
	}
	if err := os.Chmod(tmpPath, mode); err != nil {
		return fmt.Errorf("chmod %s: %w", req.Destination, err)
	}
	if err := os.Rename(tmpPath, req.Destination); err != nil {
		return fmt.Errorf("install %s: %w", req.Destination, err)
	}
	committed = true
	return nil
}

// Ensure HTTPDownloader implements Downloader.
var _ ports.Downloader = (*HTTPDownloader)(nil)
