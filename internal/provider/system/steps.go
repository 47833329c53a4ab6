package system

import (
	"errors"
	"fmt"
	"strings"

	"github.com/felixgeelhaar/labelhost/internal/domain/compiler"
	"github.com/felixgeelhaar/labelhost/internal/ports"
	"github.com/felixgeelhaar/labelhost/internal/provider/commandutil"
)

// PrivilegeStep verifies that commands run as root. It cannot acquire
// privileges itself, so Apply always fails with a PrivilegeError.
type PrivilegeStep struct {
	id     compiler.StepID
	runner ports.CommandRunner
}

// NewPrivilegeStep creates the privilege check step.
func NewPrivilegeStep(runner ports.CommandRunner) *PrivilegeStep {
	return &PrivilegeStep{
		id:     compiler.MustNewStepID("host:privileges"),
		runner: runner,
	}
}

// ID returns the step identifier.
func (s *PrivilegeStep) ID() compiler.StepID {
	return s.id
}

// Check reports satisfied when the effective uid is 0.
func (s *PrivilegeStep) Check(ctx compiler.RunContext) (compiler.StepStatus, error) {
	uid, err := s.effectiveUID(ctx)
	if err != nil {
		return compiler.StatusUnknown, err
	}
	if uid == "0" {
		return compiler.StatusSatisfied, nil
	}
	return compiler.StatusNeedsApply, nil
}

// Plan returns the diff for this step.
func (s *PrivilegeStep) Plan(ctx compiler.RunContext) (compiler.Diff, error) {
	uid, _ := s.effectiveUID(ctx)
	return compiler.NewDiff(compiler.DiffTypeModify, "privileges", "effective uid", uid, "0"), nil
}

// Apply fails: privileges must be granted by the operator.
func (s *PrivilegeStep) Apply(ctx compiler.RunContext) error {
	uid, err := s.effectiveUID(ctx)
	if err != nil {
		return err
	}
	if uid == "0" {
		return nil
	}
	return &compiler.PrivilegeError{UID: uid}
}

// Explain provides a human-readable explanation.
func (s *PrivilegeStep) Explain(_ compiler.ExplainContext) compiler.Explanation {
	return compiler.NewExplanation(
		"Verify root privileges",
		"Package installation, service management and user management all need root. "+
			"Provisioning stops here, before any change is made, when the effective user is not root.",
		nil,
	)
}

func (s *PrivilegeStep) effectiveUID(ctx compiler.RunContext) (string, error) {
	result, err := commandutil.Probe(ctx, s.runner, "id", "-u")
	if err != nil {
		return "", err
	}
	if !result.Success() {
		return "", compiler.NewExternalCommandError("id", []string{"-u"}, result.ExitCode, result.Stdout, result.Stderr)
	}
	return strings.TrimSpace(result.Stdout), nil
}

// PackageStep installs one package with yum.
type PackageStep struct {
	id     compiler.StepID
	pkg    string
	runner ports.CommandRunner
}

// NewPackageStep creates a package installation step.
func NewPackageStep(pkg string, runner ports.CommandRunner) *PackageStep {
	return &PackageStep{
		id:     compiler.MustNewStepID("yum:install:" + pkg),
		pkg:    pkg,
		runner: runner,
	}
}

// ID returns the step identifier.
func (s *PackageStep) ID() compiler.StepID {
	return s.id
}

// Check queries the rpm database.
func (s *PackageStep) Check(ctx compiler.RunContext) (compiler.StepStatus, error) {
	result, err := commandutil.Probe(ctx, s.runner, "rpm", "-q", s.pkg)
	if err != nil {
		return compiler.StatusUnknown, err
	}
	if result.Success() {
		return compiler.StatusSatisfied, nil
	}
	return compiler.StatusNeedsApply, nil
}

// Plan returns the diff for this step.
func (s *PackageStep) Plan(_ compiler.RunContext) (compiler.Diff, error) {
	return compiler.NewDiff(compiler.DiffTypeAdd, "package", s.pkg, "", "installed").
		WithCommand("yum install -y " + s.pkg), nil
}

// Apply installs the package.
func (s *PackageStep) Apply(ctx compiler.RunContext) error {
	_, err := commandutil.Run(ctx, s.runner, "yum", "install", "-y", s.pkg)
	return err
}

// Explain provides a human-readable explanation.
func (s *PackageStep) Explain(_ compiler.ExplainContext) compiler.Explanation {
	return compiler.NewExplanation(
		fmt.Sprintf("Install %s", s.pkg),
		fmt.Sprintf("Installs the %s package with yum unless rpm already reports it installed.", s.pkg),
		[]string{"https://docs.aws.amazon.com/linux/al2/ug/install-software.html"},
	)
}

// ServiceStartStep starts a system service.
type ServiceStartStep struct {
	id      compiler.StepID
	service string
	runner  ports.CommandRunner
}

// NewServiceStartStep creates a service start step.
func NewServiceStartStep(service string, runner ports.CommandRunner) *ServiceStartStep {
	return &ServiceStartStep{
		id:      compiler.MustNewStepID("service:start:" + service),
		service: service,
		runner:  runner,
	}
}

// ID returns the step identifier.
func (s *ServiceStartStep) ID() compiler.StepID {
	return s.id
}

// Check reports satisfied when the service is running.
func (s *ServiceStartStep) Check(ctx compiler.RunContext) (compiler.StepStatus, error) {
	result, err := commandutil.Probe(ctx, s.runner, "service", s.service, "status")
	if err != nil {
		return compiler.StatusUnknown, err
	}
	if result.Success() {
		return compiler.StatusSatisfied, nil
	}
	return compiler.StatusNeedsApply, nil
}

// Plan returns the diff for this step.
func (s *ServiceStartStep) Plan(_ compiler.RunContext) (compiler.Diff, error) {
	return compiler.NewDiff(compiler.DiffTypeModify, "service", s.service, "stopped", "running").
		WithCommand(fmt.Sprintf("service %s start", s.service)), nil
}

// Apply starts the service.
func (s *ServiceStartStep) Apply(ctx compiler.RunContext) error {
	_, err := commandutil.Run(ctx, s.runner, "service", s.service, "start")
	return err
}

// Explain provides a human-readable explanation.
func (s *ServiceStartStep) Explain(_ compiler.ExplainContext) compiler.Explanation {
	return compiler.NewExplanation(
		fmt.Sprintf("Start the %s service", s.service),
		fmt.Sprintf("Starts %s so containers can be built and run in this session.", s.service),
		nil,
	)
}

// ServiceEnableStep enables a service at boot.
type ServiceEnableStep struct {
	id      compiler.StepID
	service string
	runner  ports.CommandRunner
}

// NewServiceEnableStep creates a service enablement step.
func NewServiceEnableStep(service string, runner ports.CommandRunner) *ServiceEnableStep {
	return &ServiceEnableStep{
		id:      compiler.MustNewStepID("service:enable:" + service),
		service: service,
		runner:  runner,
	}
}

// ID returns the step identifier.
func (s *ServiceEnableStep) ID() compiler.StepID {
	return s.id
}

// Check asks systemd first and falls back to chkconfig's runlevel listing
// on hosts without systemctl.
func (s *ServiceEnableStep) Check(ctx compiler.RunContext) (compiler.StepStatus, error) {
	result, err := commandutil.Probe(ctx, s.runner, "systemctl", "is-enabled", s.service)
	if err != nil {
		return compiler.StatusUnknown, err
	}
	if result.ExitCode != commandutil.ExitCommandNotFound {
		if result.Success() && commandutil.FirstLine(result.Stdout) == "enabled" {
			return compiler.StatusSatisfied, nil
		}
		return compiler.StatusNeedsApply, nil
	}

	result, err = commandutil.Probe(ctx, s.runner, "chkconfig", "--list", s.service)
	if err != nil {
		return compiler.StatusUnknown, err
	}
	if result.Success() && strings.Contains(result.Stdout, "3:on") {
		return compiler.StatusSatisfied, nil
	}
	return compiler.StatusNeedsApply, nil
}

// Plan returns the diff for this step.
func (s *ServiceEnableStep) Plan(_ compiler.RunContext) (compiler.Diff, error) {
	return compiler.NewDiff(compiler.DiffTypeModify, "service", s.service, "disabled", "enabled at boot").
		WithCommand(fmt.Sprintf("chkconfig %s on", s.service)), nil
}

// Apply enables the service with chkconfig, or systemctl when chkconfig
// is not installed.
func (s *ServiceEnableStep) Apply(ctx compiler.RunContext) error {
	_, err := commandutil.Run(ctx, s.runner, "chkconfig", s.service, "on")
	var cmdErr *compiler.ExternalCommandError
	if errors.As(err, &cmdErr) && cmdErr.ExitStatus == commandutil.ExitCommandNotFound {
		_, err = commandutil.Run(ctx, s.runner, "systemctl", "enable", s.service)
	}
	return err
}

// Explain provides a human-readable explanation.
func (s *ServiceEnableStep) Explain(_ compiler.ExplainContext) compiler.Explanation {
	return compiler.NewExplanation(
		fmt.Sprintf("Enable the %s service at boot", s.service),
		fmt.Sprintf("Marks %s to start on boot so the application survives a reboot.", s.service),
		nil,
	)
}

// GroupMembershipStep adds a user to a supplementary group.
type GroupMembershipStep struct {
	id     compiler.StepID
	user   string
	group  string
	runner ports.CommandRunner
}

// NewGroupMembershipStep creates a group membership step.
func NewGroupMembershipStep(user, group string, runner ports.CommandRunner) *GroupMembershipStep {
	return &GroupMembershipStep{
		id:     compiler.MustNewStepID(fmt.Sprintf("user:group:%s:%s", user, group)),
		user:   user,
		group:  group,
		runner: runner,
	}
}

// ID returns the step identifier.
func (s *GroupMembershipStep) ID() compiler.StepID {
	return s.id
}

// Check looks for the group in the user's group list.
func (s *GroupMembershipStep) Check(ctx compiler.RunContext) (compiler.StepStatus, error) {
	result, err := commandutil.Probe(ctx, s.runner, "id", "-nG", s.user)
	if err != nil {
		return compiler.StatusUnknown, err
	}
	if !result.Success() {
		return compiler.StatusNeedsApply, nil
	}
	for _, g := range strings.Fields(result.Stdout) {
		if g == s.group {
			return compiler.StatusSatisfied, nil
		}
	}
	return compiler.StatusNeedsApply, nil
}

// Plan returns the diff for this step.
func (s *GroupMembershipStep) Plan(_ compiler.RunContext) (compiler.Diff, error) {
	return compiler.NewDiff(compiler.DiffTypeAdd, "group membership", s.user, "", s.group).
		WithCommand(fmt.Sprintf("usermod -a -G %s %s", s.group, s.user)), nil
}

// Apply appends the group to the user's supplementary groups.
func (s *GroupMembershipStep) Apply(ctx compiler.RunContext) error {
	_, err := commandutil.Run(ctx, s.runner, "usermod", "-a", "-G", s.group, s.user)
	return err
}

// Explain provides a human-readable explanation.
func (s *GroupMembershipStep) Explain(_ compiler.ExplainContext) compiler.Explanation {
	return compiler.NewExplanation(
		fmt.Sprintf("Add %s to the %s group", s.user, s.group),
		fmt.Sprintf("Lets %s use the container runtime without sudo.", s.user),
		nil,
	).WithNotes("Group changes apply to new login sessions only.")
}
