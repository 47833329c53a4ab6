package binary

import (
	"fmt"
	"strings"

	"github.com/felixgeelhaar/labelhost/internal/domain/compiler"
	"github.com/felixgeelhaar/labelhost/internal/ports"
	"github.com/felixgeelhaar/labelhost/internal/provider/commandutil"
	"github.com/felixgeelhaar/labelhost/internal/provider/versionutil"
)

// Spec describes one binary to install.
type Spec struct {
	Name        string
	URL         string
	Destination string
	// SHA256 is optional; when set, Check and the downloader both verify it.
	SHA256 string
	// Version is optional; when set, Check runs the binary with VersionArgs
	// and compares the output.
	Version     string
	VersionArgs []string
}

// DownloadStep installs an executable at a fixed path.
type DownloadStep struct {
	id         compiler.StepID
	spec       Spec
	runner     ports.CommandRunner
	downloader ports.Downloader
}

// NewDownloadStep creates a binary download step.
func NewDownloadStep(spec Spec, runner ports.CommandRunner, downloader ports.Downloader) *DownloadStep {
	return &DownloadStep{
		id:         compiler.MustNewStepID("binary:download:" + spec.Name),
		spec:       spec,
		runner:     runner,
		downloader: downloader,
	}
}

// ID returns the step identifier.
func (s *DownloadStep) ID() compiler.StepID {
	return s.id
}

// Check requires the file to be executable, then matches the checksum and
// version when they are configured.
func (s *DownloadStep) Check(ctx compiler.RunContext) (compiler.StepStatus, error) {
	result, err := commandutil.Probe(ctx, s.runner, "test", "-x", s.spec.Destination)
	if err != nil {
		return compiler.StatusUnknown, err
	}
	if !result.Success() {
		return compiler.StatusNeedsApply, nil
	}

	if s.spec.SHA256 != "" {
		result, err = commandutil.Probe(ctx, s.runner, "sha256sum", s.spec.Destination)
		if err != nil {
			return compiler.StatusUnknown, err
		}
		fields := strings.Fields(result.Stdout)
		if !result.Success() || len(fields) == 0 || !strings.EqualFold(fields[0], s.spec.SHA256) {
			return compiler.StatusNeedsApply, nil
		}
	}

	if s.spec.Version != "" && len(s.spec.VersionArgs) > 0 {
		result, err = commandutil.Probe(ctx, s.runner, s.spec.Destination, s.spec.VersionArgs...)
		if err != nil {
			return compiler.StatusUnknown, err
		}
		if !result.Success() || !versionutil.Matches(result.Stdout, s.spec.Version) {
			return compiler.StatusNeedsApply, nil
		}
	}

	return compiler.StatusSatisfied, nil
}

// Plan returns the diff for this step.
func (s *DownloadStep) Plan(_ compiler.RunContext) (compiler.Diff, error) {
	value := s.spec.Destination
	if s.spec.Version != "" {
		value = fmt.Sprintf("%s@%s", s.spec.Destination, s.spec.Version)
	}
	return compiler.NewDiff(compiler.DiffTypeAdd, "binary", s.spec.Name, "", value).
		WithCommand(fmt.Sprintf("curl -L %s -o %s && chmod +x %s", s.spec.URL, s.spec.Destination, s.spec.Destination)), nil
}

// Apply downloads the binary and marks it executable.
func (s *DownloadStep) Apply(ctx compiler.RunContext) error {
	err := s.downloader.Download(ctx.Context(), ports.DownloadRequest{
		URL:         s.spec.URL,
		Destination: s.spec.Destination,
		SHA256:      s.spec.SHA256,
		Mode:        0o755,
	})
	if err != nil {
		return fmt.Errorf("download %s: %w", s.spec.Name, err)
	}
	return nil
}

// Explain provides a human-readable explanation.
func (s *DownloadStep) Explain(ctx compiler.ExplainContext) compiler.Explanation {
	exp := compiler.NewExplanation(
		fmt.Sprintf("Install %s", s.spec.Name),
		fmt.Sprintf("Downloads %s to %s and makes it executable. Later steps find it through a PATH "+
			"entry scoped to the commands labelhost runs.", s.spec.URL, s.spec.Destination),
		[]string{"https://docs.docker.com/compose/install/standalone/"},
	)
	if s.spec.SHA256 == "" && ctx.Verbose() {
		exp = exp.WithNotes("No checksum is configured; set compose.sha256 to verify the download.")
	}
	return exp
}
