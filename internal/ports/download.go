package ports

import (
	"context"
	"os"
)

// DownloadRequest describes a file to fetch onto the target host.
type DownloadRequest struct {
	URL         string
	Destination string
	// SHA256 is the expected hex digest. Empty skips verification.
	SHA256 string
	Mode   os.FileMode
}

// Downloader fetches a remote file to a path on the target host.
type Downloader interface {
	Download(ctx context.Context, req DownloadRequest) error
}
