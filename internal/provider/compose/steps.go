package compose

import (
	"errors"
	"fmt"
	"strings"

	"github.com/felixgeelhaar/labelhost/internal/domain/compiler"
	"github.com/felixgeelhaar/labelhost/internal/ports"
	"github.com/felixgeelhaar/labelhost/internal/provider/commandutil"
)

// ErrNoTerminal is returned when the admin bootstrap would need to prompt
// but no terminal is attached.
var ErrNoTerminal = errors.New("the admin bootstrap is interactive and needs a terminal; run from a terminal or pass --skip-admin")

// Project locates a Compose project and the Compose binary.
type Project struct {
	Name   string
	Dir    string
	BinDir string
	Binary string
}

// scope returns ctx with the project directory as working directory and the
// Compose binary's directory on PATH.
func (p Project) scope(ctx compiler.RunContext) compiler.RunContext {
	scoped := ctx.WithWorkDir(p.Dir)
	if p.BinDir != "" {
		scoped = scoped.WithExtraPath(p.BinDir)
	}
	return scoped
}

func (p Project) binary() string {
	if p.Binary == "" {
		return "docker-compose"
	}
	return p.Binary
}

// Keys in the clone's local git config holding the commit the images were
// built from and the commit the running containers were started from.
const (
	builtKey    = "labelhost.built-commit"
	deployedKey = "labelhost.deployed-commit"
)

// head returns the commit checked out in the project directory, or "" when
// the directory is not a clone yet.
func (p Project) head(ctx compiler.RunContext, runner ports.CommandRunner) (string, error) {
	result, err := commandutil.Probe(ctx, runner, "git", "-C", p.Dir, "rev-parse", "HEAD")
	if err != nil || !result.Success() {
		return "", err
	}
	return strings.TrimSpace(result.Stdout), nil
}

// recorded returns the commit stored under key, or "" when none is.
func (p Project) recorded(ctx compiler.RunContext, runner ports.CommandRunner, key string) (string, error) {
	result, err := commandutil.Probe(ctx, runner, "git", "-C", p.Dir, "config", "--local", "--get", key)
	if err != nil || !result.Success() {
		return "", err
	}
	return strings.TrimSpace(result.Stdout), nil
}

// stamped reports whether key records the commit checked out now.
func (p Project) stamped(ctx compiler.RunContext, runner ports.CommandRunner, key string) (bool, error) {
	head, err := p.head(ctx, runner)
	if err != nil || head == "" {
		return false, err
	}
	recorded, err := p.recorded(ctx, runner, key)
	if err != nil {
		return false, err
	}
	return recorded == head, nil
}

// stamp stores commit under key. An empty commit stores nothing, so the
// next run redoes the effect.
func (p Project) stamp(ctx compiler.RunContext, runner ports.CommandRunner, key, commit string) error {
	if commit == "" {
		return nil
	}
	_, err := commandutil.Run(ctx, runner, "git", "-C", p.Dir, "config", "--local", key, commit)
	return err
}

// stampDiff describes moving resource from its recorded commit to the one
// checked out now.
func (p Project) stampDiff(ctx compiler.RunContext, runner ports.CommandRunner, key, resource, value string) (compiler.Diff, error) {
	head, err := p.head(ctx, runner)
	if err != nil {
		return compiler.Diff{}, err
	}
	recorded, err := p.recorded(ctx, runner, key)
	if err != nil {
		return compiler.Diff{}, err
	}
	if head != "" {
		value += " at " + shortSHA(head)
	}
	if recorded == "" {
		return compiler.NewDiff(compiler.DiffTypeAdd, resource, p.Name, "", value), nil
	}
	return compiler.NewDiff(compiler.DiffTypeModify, resource, p.Name, shortSHA(recorded), value), nil
}

func shortSHA(sha string) string {
	if len(sha) > 12 {
		return sha[:12]
	}
	return sha
}

// BuildStep builds the project's images.
type BuildStep struct {
	id      compiler.StepID
	project Project
	runner  ports.CommandRunner
}

// NewBuildStep creates a compose build step.
func NewBuildStep(project Project, runner ports.CommandRunner) *BuildStep {
	return &BuildStep{
		id:      compiler.MustNewStepID("compose:build:" + project.Name),
		project: project,
		runner:  runner,
	}
}

// ID returns the step identifier.
func (s *BuildStep) ID() compiler.StepID {
	return s.id
}

// Check reports satisfied once the images were built from the commit that
// is checked out now.
func (s *BuildStep) Check(ctx compiler.RunContext) (compiler.StepStatus, error) {
	current, err := s.project.stamped(ctx, s.runner, builtKey)
	if err != nil {
		return compiler.StatusUnknown, err
	}
	if current {
		return compiler.StatusSatisfied, nil
	}
	return compiler.StatusNeedsApply, nil
}

// Plan returns the diff for this step.
func (s *BuildStep) Plan(ctx compiler.RunContext) (compiler.Diff, error) {
	diff, err := s.project.stampDiff(ctx, s.runner, builtKey, "images", "built")
	if err != nil {
		return compiler.Diff{}, err
	}
	return diff.WithCommand(fmt.Sprintf("cd %s && %s build", s.project.Dir, s.project.binary())), nil
}

// Apply builds the images and records the commit they were built from.
func (s *BuildStep) Apply(ctx compiler.RunContext) error {
	head, err := s.project.head(ctx, s.runner)
	if err != nil {
		return err
	}
	if _, err := commandutil.Run(s.project.scope(ctx), s.runner, s.project.binary(), "build"); err != nil {
		return err
	}
	return s.project.stamp(ctx, s.runner, builtKey, head)
}

// Explain provides a human-readable explanation.
func (s *BuildStep) Explain(_ compiler.ExplainContext) compiler.Explanation {
	return compiler.NewExplanation(
		fmt.Sprintf("Build the %s images", s.project.Name),
		fmt.Sprintf("Runs %s build in %s. This can take several minutes on a fresh host.", s.project.binary(), s.project.Dir),
		[]string{"https://docs.docker.com/compose/reference/build/"},
	).WithNotes(fmt.Sprintf("The built commit is kept as %s in the clone's git config; checking out another ref rebuilds.", builtKey))
}

// UpStep starts every service of the project in the background.
type UpStep struct {
	id      compiler.StepID
	project Project
	runner  ports.CommandRunner
}

// NewUpStep creates a compose up step.
func NewUpStep(project Project, runner ports.CommandRunner) *UpStep {
	return &UpStep{
		id:      compiler.MustNewStepID("compose:up:" + project.Name),
		project: project,
		runner:  runner,
	}
}

// ID returns the step identifier.
func (s *UpStep) ID() compiler.StepID {
	return s.id
}

// Check reports satisfied when every configured service is running and was
// started from the commit that is checked out now.
func (s *UpStep) Check(ctx compiler.RunContext) (compiler.StepStatus, error) {
	missing, err := s.stoppedServices(ctx)
	if err != nil {
		return compiler.StatusUnknown, err
	}
	if missing == nil || len(missing) > 0 {
		return compiler.StatusNeedsApply, nil
	}
	current, err := s.project.stamped(ctx, s.runner, deployedKey)
	if err != nil {
		return compiler.StatusUnknown, err
	}
	if current {
		return compiler.StatusSatisfied, nil
	}
	return compiler.StatusNeedsApply, nil
}

// Plan returns the diff for this step.
func (s *UpStep) Plan(ctx compiler.RunContext) (compiler.Diff, error) {
	value := "all services running"
	if missing, err := s.stoppedServices(ctx); err == nil && len(missing) > 0 {
		value = strings.Join(missing, ", ") + " running"
	}
	diff, err := s.project.stampDiff(ctx, s.runner, deployedKey, "containers", value)
	if err != nil {
		return compiler.Diff{}, err
	}
	return diff.WithCommand(fmt.Sprintf("cd %s && %s up -d", s.project.Dir, s.project.binary())), nil
}

// Apply starts the services detached, recreating those whose image changed,
// and records the commit they were started from.
func (s *UpStep) Apply(ctx compiler.RunContext) error {
	head, err := s.project.head(ctx, s.runner)
	if err != nil {
		return err
	}
	if _, err := commandutil.Run(s.project.scope(ctx), s.runner, s.project.binary(), "up", "-d"); err != nil {
		return err
	}
	return s.project.stamp(ctx, s.runner, deployedKey, head)
}

// Explain provides a human-readable explanation.
func (s *UpStep) Explain(_ compiler.ExplainContext) compiler.Explanation {
	return compiler.NewExplanation(
		fmt.Sprintf("Start the %s containers", s.project.Name),
		fmt.Sprintf("Runs %s up -d in %s and leaves the services running in the background.", s.project.binary(), s.project.Dir),
		[]string{"https://docs.docker.com/compose/reference/up/"},
	)
}

// stoppedServices returns configured services that are not running. A nil
// slice means the service list could not be read, e.g. before the clone
// exists or before the binary is installed.
func (s *UpStep) stoppedServices(ctx compiler.RunContext) ([]string, error) {
	scoped := s.project.scope(ctx)

	configured, err := commandutil.Probe(scoped, s.runner, s.project.binary(), "config", "--services")
	if err != nil {
		return nil, err
	}
	services := commandutil.NonEmptyLines(configured.Stdout)
	if !configured.Success() || len(services) == 0 {
		return nil, nil
	}

	running, err := commandutil.Probe(scoped, s.runner, s.project.binary(), "ps", "--services", "--filter", "status=running")
	if err != nil {
		return nil, err
	}
	up := make(map[string]bool)
	if running.Success() {
		for _, svc := range commandutil.NonEmptyLines(running.Stdout) {
			up[svc] = true
		}
	}

	missing := make([]string, 0)
	for _, svc := range services {
		if !up[svc] {
			missing = append(missing, svc)
		}
	}
	return missing, nil
}

// ExecSpec describes a command run inside a running container.
type ExecSpec struct {
	Container string
	Command   []string
	// CheckCommand, when set, runs non-interactively first; output
	// containing CheckExpect means the effect is already in place.
	CheckCommand []string
	CheckExpect  string
}

// ExecStep runs an interactive command in a container, such as creating
// the application's first administrator.
type ExecStep struct {
	id          compiler.StepID
	spec        ExecSpec
	runner      ports.CommandRunner
	hasTerminal func() bool
}

// NewExecStep creates a container exec step.
func NewExecStep(spec ExecSpec, runner ports.CommandRunner, hasTerminal func() bool) *ExecStep {
	return &ExecStep{
		id:          compiler.MustNewStepID("container:exec:" + spec.Container),
		spec:        spec,
		runner:      runner,
		hasTerminal: hasTerminal,
	}
}

// ID returns the step identifier.
func (s *ExecStep) ID() compiler.StepID {
	return s.id
}

// Check runs the check command. Without one the step always needs apply.
func (s *ExecStep) Check(ctx compiler.RunContext) (compiler.StepStatus, error) {
	if len(s.spec.CheckCommand) == 0 {
		return compiler.StatusNeedsApply, nil
	}

	args := append([]string{"exec", s.spec.Container}, s.spec.CheckCommand...)
	result, err := commandutil.Probe(ctx, s.runner, "docker", args...)
	if err != nil {
		return compiler.StatusUnknown, err
	}
	if result.Success() && strings.Contains(result.Stdout, s.spec.CheckExpect) {
		return compiler.StatusSatisfied, nil
	}
	return compiler.StatusNeedsApply, nil
}

// Plan returns the diff for this step.
func (s *ExecStep) Plan(_ compiler.RunContext) (compiler.Diff, error) {
	return compiler.NewDiff(compiler.DiffTypeAdd, "container exec", s.spec.Container, "", strings.Join(s.spec.Command, " ")).
		WithCommand(ports.CommandCall{Command: "docker", Args: s.execArgs()}.String()), nil
}

// Apply runs the command with the operator's terminal attached.
func (s *ExecStep) Apply(ctx compiler.RunContext) error {
	if s.hasTerminal == nil || !s.hasTerminal() {
		return ErrNoTerminal
	}
	_, err := commandutil.RunInteractive(ctx, s.runner, "docker", s.execArgs()...)
	return err
}

// Explain provides a human-readable explanation.
func (s *ExecStep) Explain(_ compiler.ExplainContext) compiler.Explanation {
	exp := compiler.NewExplanation(
		fmt.Sprintf("Run %q in %s", strings.Join(s.spec.Command, " "), s.spec.Container),
		"Runs the application's admin bootstrap inside its container and hands the terminal to it, "+
			"so the operator answers its prompts directly.",
		[]string{"https://docs.docker.com/reference/cli/docker/container/exec/"},
	)
	if len(s.spec.CheckCommand) == 0 {
		return exp.WithNotes("No check command is configured, so this step runs on every invocation.")
	}
	return exp.WithNotes("Skip it with --skip-admin when provisioning unattended.")
}

func (s *ExecStep) execArgs() []string {
	return append([]string{"exec", "-it", s.spec.Container}, s.spec.Command...)
}
