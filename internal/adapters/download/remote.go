package download

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/felixgeelhaar/labelhost/internal/domain/compiler"
	"github.com/felixgeelhaar/labelhost/internal/ports"
)

// RemoteDownloader fetches files on the target host itself with curl, so
// nothing crosses the SSH connection but the command lines.
type RemoteDownloader struct {
	runner ports.CommandRunner
}

// NewRemoteDownloader creates a downloader that drives curl through runner.
func NewRemoteDownloader(runner ports.CommandRunner) *RemoteDownloader {
	return &RemoteDownloader{runner: runner}
}

// Download fetches req.URL to req.Destination on the target host.
func (d *RemoteDownloader) Download(ctx context.Context, req ports.DownloadRequest) error {
	tmp := req.Destination + ".download"

	if _, err := d.run(ctx, "mkdir", "-p", path.Dir(req.Destination)); err != nil {
		return err
	}
	if _, err := d.run(ctx, "curl", "-fsSL", "-o", tmp, req.URL); err != nil {
		d.cleanup(ctx, tmp)
		return err
	}

	if req.SHA256 != "" {
		result, err := d.run(ctx, "sha256sum", tmp)
		if err != nil {
			d.cleanup(ctx, tmp)
			return err
		}
		fields := strings.Fields(result.Stdout)
		if len(fields) == 0 || !strings.EqualFold(fields[0], req.SHA256) {
			d.cleanup(ctx, tmp)
			actual := ""
			if len(fields) > 0 {
				actual = fields[0]
			}
			return fmt.Errorf("%w for %s: expected %s, got %s", ErrChecksumMismatch, req.URL, req.SHA256, actual)
		}
	}

	mode := req.Mode
	if mode == 0 {
		mode = DefaultMode
	}
	if _, err := d.run(ctx, "chmod", fmt.Sprintf("%o", mode.Perm()), tmp); err != nil {
		d.cleanup(ctx, tmp)
		return err
	}
	if _, err := d.run(ctx, "mv", "-f", tmp, req.Destination); err != nil {
		d.cleanup(ctx, tmp)
		return err
	}
	return nil
}

func (d *RemoteDownloader) run(ctx context.Context, command string, args ...string) (ports.CommandResult, error) {
	result, err := d.runner.Run(ctx, command, args...)
	if err != nil {
		return result, fmt.Errorf("%s: %w", ports.CommandCall{Command: command, Args: args}.String(), err)
	}
	if !result.Success() {
		return result, compiler.NewExternalCommandError(command, args, result.ExitCode, result.Stdout, result.Stderr)
	}
	return result, nil
}

func (d *RemoteDownloader) cleanup(ctx context.Context, tmp string) {
	_, _ = d.runner.Run(ctx, "rm", "-f", tmp)
}

// Ensure RemoteDownloader implements Downloader.
var _ ports.Downloader = (*RemoteDownloader)(nil)
