package mocks

import (
	"context"
	"sync"

	"github.com/felixgeelhaar/labelhost/internal/ports"
)

// Downloader is a test double for ports.Downloader.
type Downloader struct {
	mu       sync.Mutex
	err      error
	requests []ports.DownloadRequest
	onFetch  func(ports.DownloadRequest)
}

// NewDownloader creates a new Downloader mock.
func NewDownloader() *Downloader {
	return &Downloader{}
}

// SetError makes every subsequent Download fail with err.
func (d *Downloader) SetError(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.err = err
}

// OnDownload registers a hook run after each successful download.
func (d *Downloader) OnDownload(fn func(ports.DownloadRequest)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.onFetch = fn
}

// Download records the request.
func (d *Downloader) Download(_ context.Context, req ports.DownloadRequest) error {
	d.mu.Lock()
	d.requests = append(d.requests, req)
	err, hook := d.err, d.onFetch
	d.mu.Unlock()

	if err != nil {
		return err
	}
	if hook != nil {
		hook(req)
	}
	return nil
}

// Requests returns all recorded download requests.
func (d *Downloader) Requests() []ports.DownloadRequest {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]ports.DownloadRequest, len(d.requests))
	copy(out, d.requests)
	return out
}

var _ ports.Downloader = (*Downloader)(nil)
