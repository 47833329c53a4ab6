// Package app provides the main application logic for labelhost: it loads
// configuration, compiles the provisioning steps and drives the
// Provisioner, Planner and output.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"

	"github.com/felixgeelhaar/labelhost/internal/adapters/command"
	"github.com/felixgeelhaar/labelhost/internal/adapters/download"
	"github.com/felixgeelhaar/labelhost/internal/adapters/hostinfo"
	"github.com/felixgeelhaar/labelhost/internal/adapters/metrics"
	"github.com/felixgeelhaar/labelhost/internal/domain/compiler"
	"github.com/felixgeelhaar/labelhost/internal/domain/config"
	"github.com/felixgeelhaar/labelhost/internal/domain/execution"
	"github.com/felixgeelhaar/labelhost/internal/ports"
	"github.com/felixgeelhaar/labelhost/internal/provider/binary"
	"github.com/felixgeelhaar/labelhost/internal/provider/compose"
	"github.com/felixgeelhaar/labelhost/internal/provider/git"
	"github.com/felixgeelhaar/labelhost/internal/provider/system"
)

// Options selects the configuration and run mode for one invocation.
type Options struct {
	// ConfigPath is an explicit configuration file. Empty searches Dir.
	ConfigPath string
	// Dir is searched for a default configuration file.
	Dir       string
	DryRun    bool
	SkipAdmin bool
}

// MetadataFactory opens an instance metadata client.
type MetadataFactory func(ctx context.Context) (hostinfo.MetadataClient, error)

// Labelhost is the main application orchestrator.
type Labelhost struct {
	out         io.Writer
	logger      ports.Logger
	loader      *config.Loader
	runner      ports.CommandRunner
	downloader  ports.Downloader
	hasTerminal func() bool
	metadata    MetadataFactory
	styles      Styles
	progress    io.Writer
}

// New creates a Labelhost writing operator output to out.
func New(out io.Writer, logger ports.Logger) *Labelhost {
	tty := isTerminal(os.Stdout) && isTerminal(os.Stdin)
	a := &Labelhost{
		out:         out,
		logger:      logger,
		loader:      config.NewLoader(),
		hasTerminal: func() bool { return tty },
		metadata: func(ctx context.Context) (hostinfo.MetadataClient, error) {
			return hostinfo.NewMetadataClient(ctx)
		},
		styles: PlainStyles(),
	}
	if isTerminal(os.Stdout) {
		a.styles = DefaultStyles()
	}
	if isTerminal(os.Stderr) {
		a.progress = os.Stderr
	}
	return a
}

// WithLoader sets the configuration loader.
func (a *Labelhost) WithLoader(loader *config.Loader) *Labelhost {
	a.loader = loader
	return a
}

// WithRunner forces every command through runner regardless of transport.
func (a *Labelhost) WithRunner(runner ports.CommandRunner) *Labelhost {
	a.runner = runner
	return a
}

// WithDownloader forces downloads through d regardless of transport.
func (a *Labelhost) WithDownloader(d ports.Downloader) *Labelhost {
	a.downloader = d
	return a
}

// WithTerminal overrides terminal detection for the interactive exec step.
func (a *Labelhost) WithTerminal(hasTerminal func() bool) *Labelhost {
	a.hasTerminal = hasTerminal
	return a
}

// WithMetadata overrides how the instance metadata client is opened.
func (a *Labelhost) WithMetadata(factory MetadataFactory) *Labelhost {
	a.metadata = factory
	return a
}

// WithStyles sets the output styles.
func (a *Labelhost) WithStyles(styles Styles) *Labelhost {
	a.styles = styles
	return a
}

// LoadConfig loads and validates configuration, applying option overrides.
func (a *Labelhost) LoadConfig(opts Options) (*config.Config, error) {
	cfg, err := a.loader.Load(opts.ConfigPath, opts.Dir)
	if err != nil {
		return nil, err
	}
	if opts.SkipAdmin {
		cfg.Container.SkipAdmin = true
	}
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// session holds the transport-specific collaborators for one invocation.
type session struct {
	runner     ports.CommandRunner
	downloader ports.Downloader
	closer     io.Closer
}

func (s *session) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}

func (a *Labelhost) openSession(cfg *config.Config) *session {
	s := &session{runner: a.runner, downloader: a.downloader}

	if s.runner == nil {
		switch cfg.Transport {
		case config.TransportSSH:
			ssh := command.NewSSHRunner(command.SSHConfig{
				Host:         cfg.SSH.Host,
				Port:         cfg.SSH.Port,
				User:         cfg.SSH.User,
				IdentityFile: cfg.SSH.IdentityFile,
				Sudo:         cfg.SSH.UseSudo(),
			})
			s.runner = ssh
			s.closer = ssh
		default:
			s.runner = command.NewRealRunner()
		}
	}

	if s.downloader == nil {
		if cfg.Transport == config.TransportSSH {
			s.downloader = download.NewRemoteDownloader(s.runner)
		} else {
			s.downloader = download.NewHTTPDownloader(download.WithProgress(a.progress))
		}
	}
	return s
}

// compile registers the providers in provisioning order and compiles cfg.
func (a *Labelhost) compile(cfg *config.Config, s *session) ([]compiler.Step, error) {
	comp := compiler.NewCompiler()
	comp.RegisterProvider(system.NewProvider(s.runner))
	comp.RegisterProvider(binary.NewProvider(s.runner, s.downloader))
	comp.RegisterProvider(git.NewProvider(s.runner))
	comp.RegisterProvider(compose.NewProvider(s.runner, a.hasTerminal))

	steps, err := comp.Compile(compiler.NewCompileContext(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to compile: %w", err)
	}
	return steps, nil
}

// Steps loads configuration and returns the compiled step list without
// touching the host.
func (a *Labelhost) Steps(opts Options) ([]compiler.Step, error) {
	cfg, err := a.LoadConfig(opts)
	if err != nil {
		return nil, err
	}
	s := a.openSession(cfg)
	defer func() { _ = s.Close() }()
	return a.compile(cfg, s)
}

// Plan checks every step against the host and returns the plan.
func (a *Labelhost) Plan(ctx context.Context, opts Options) (*execution.Plan, error) {
	cfg, err := a.LoadConfig(opts)
	if err != nil {
		return nil, err
	}
	s := a.openSession(cfg)
	defer func() { _ = s.Close() }()

	steps, err := a.compile(cfg, s)
	if err != nil {
		return nil, err
	}

	plan, err := execution.NewPlanner().Plan(ctx, steps)
	if err != nil {
		return nil, fmt.Errorf("failed to plan: %w", err)
	}
	return plan, nil
}

// Apply provisions the host. It returns the report even when a step fails;
// the error is then a *compiler.ProvisioningError.
func (a *Labelhost) Apply(ctx context.Context, opts Options) (*execution.Report, error) {
	cfg, err := a.LoadConfig(opts)
	if err != nil {
		return nil, err
	}
	s := a.openSession(cfg)
	defer func() { _ = s.Close() }()

	steps, err := a.compile(cfg, s)
	if err != nil {
		return nil, err
	}

	a.checkDistribution(ctx, s.runner)

	provisioner, err := execution.NewProvisioner(a.logger)
	if err != nil {
		return nil, err
	}
	provisioner.SetDryRun(opts.DryRun)
	provisioner.AddObserver(newProgressPrinter(a.out, a.styles))

	report, runErr := provisioner.Run(ctx, steps)
	if report == nil {
		return nil, runErr
	}

	if cfg.MetricsFile != "" {
		if err := metrics.NewTextfileWriter(cfg.MetricsFile).Write(report); err != nil {
			a.logger.Warn(ctx, "metrics not written", ports.F("path", cfg.MetricsFile), ports.Err(err))
		}
	}

	a.PrintSummary(report)
	if runErr != nil {
		return report, runErr
	}

	if !report.DryRun() {
		host := a.statusHost(ctx, cfg)
		a.printf("%s\n", a.styles.StatusLine(cfg.App.Name, host, cfg.App.Port))
	}
	return report, nil
}

// Explain prints each step's explanation.
func (a *Labelhost) Explain(opts Options, verbose bool) error {
	steps, err := a.Steps(opts)
	if err != nil {
		return err
	}
	a.PrintExplanations(steps, compiler.NewExplainContext().WithVerbose(verbose))
	return nil
}

// checkDistribution warns when the target is not a yum-family distribution.
// Failing to read os-release is not fatal.
func (a *Labelhost) checkDistribution(ctx context.Context, runner ports.CommandRunner) {
	rel, err := hostinfo.ReadOSRelease(ctx, runner)
	if err != nil {
		a.logger.Debug(ctx, "distribution unknown", ports.Err(err))
		return
	}
	if !rel.YumFamily() {
		a.logger.Warn(ctx, "target is not a yum-based distribution; package steps will likely fail",
			ports.F("distribution", rel.String()))
		return
	}
	a.logger.Debug(ctx, "target distribution", ports.F("distribution", rel.String()))
}

// statusHost resolves the host for the status line: status.host, then the
// instance's public IPv4 when detection is enabled, then the SSH target or
// localhost.
func (a *Labelhost) statusHost(ctx context.Context, cfg *config.Config) string {
	if cfg.Status.Host != "" {
		return cfg.Status.Host
	}

	// The metadata service answers for the machine asking, so it only
	// describes the target when provisioning locally.
	if cfg.Status.DetectPublicIP && cfg.Transport != config.TransportSSH && a.metadata != nil {
		ip, err := a.lookupPublicIP(ctx)
		if err == nil {
			return ip
		}
		a.logger.Debug(ctx, "public address not detected", ports.Err(err))
	}

	if cfg.Transport == config.TransportSSH && cfg.SSH.Host != "" {
		return cfg.SSH.Host
	}
	return "localhost"
}

func (a *Labelhost) lookupPublicIP(ctx context.Context) (string, error) {
	client, err := a.metadata(ctx)
	if err != nil {
		return "", err
	}
	if client == nil {
		return "", errors.New("no metadata client")
	}
	return hostinfo.PublicIPv4(ctx, client)
}

// printf is a helper that writes to the output writer, ignoring errors.
func (a *Labelhost) printf(format string, args ...interface{}) {
	_, _ = fmt.Fprintf(a.out, format, args...)
}

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
