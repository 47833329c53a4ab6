package compiler

import (
	"errors"
	"fmt"
	"strings"
)

// Error codes for compiler and provisioning failures.
const (
	ErrCodeProviderFailed = "PROVIDER_FAILED"
	ErrCodeStepDuplicate  = "STEP_DUPLICATE"
	ErrCodeCheckFailed    = "CHECK_FAILED"
	ErrCodeApplyFailed    = "APPLY_FAILED"
)

// Phase names the step method that failed.
type Phase string

// Step phases.
const (
	PhaseCheck Phase = "check"
	PhaseApply Phase = "apply"
)

// StepError represents a compile-time error with an actionable suggestion.
type StepError struct {
	Code       string // Error code for categorization
	Message    string // User-friendly error message
	Provider   string // Provider that caused the error
	StepID     string // Step ID if applicable
	Suggestion string // Actionable suggestion to fix the error
	Underlying error  // Wrapped error for error chain
}

// Error returns the formatted error message.
func (e *StepError) Error() string {
	var parts []string

	if e.Provider != "" {
		parts = append(parts, fmt.Sprintf("provider %q", e.Provider))
	}
	if e.StepID != "" {
		parts = append(parts, fmt.Sprintf("step %q", e.StepID))
	}

	msg := e.Message
	if e.Underlying != nil {
		msg = fmt.Sprintf("%s: %v", e.Message, e.Underlying)
	}
	if len(parts) > 0 {
		return fmt.Sprintf("%s: %s", strings.Join(parts, ", "), msg)
	}
	return msg
}

// Unwrap returns the underlying error for error chain support.
func (e *StepError) Unwrap() error {
	return e.Underlying
}

// NewProviderFailedError creates an error for provider compilation failure.
func NewProviderFailedError(provider string, err error) *StepError {
	return &StepError{
		Code:       ErrCodeProviderFailed,
		Message:    "provider failed to compile steps",
		Provider:   provider,
		Suggestion: fmt.Sprintf("Check the %s section of your configuration.", provider),
		Underlying: err,
	}
}

// NewStepDuplicateError creates an error for duplicate step ID.
func NewStepDuplicateError(provider, stepID string) *StepError {
	return &StepError{
		Code:       ErrCodeStepDuplicate,
		Message:    "step with this ID already exists",
		Provider:   provider,
		StepID:     stepID,
		Suggestion: "Remove the duplicate entry from your configuration (e.g. a package listed twice).",
	}
}

// ExternalCommandError reports a tool on the target host exiting non-zero.
type ExternalCommandError struct {
	Command    string
	Args       []string
	ExitStatus int
	Stdout     string
	Stderr     string
}

// NewExternalCommandError builds an ExternalCommandError from a finished command.
func NewExternalCommandError(command string, args []string, exitStatus int, stdout, stderr string) *ExternalCommandError {
	copied := make([]string, len(args))
	copy(copied, args)
	return &ExternalCommandError{
		Command:    command,
		Args:       copied,
		ExitStatus: exitStatus,
		Stdout:     stdout,
		Stderr:     stderr,
	}
}

// CommandLine renders the failed invocation.
func (e *ExternalCommandError) CommandLine() string {
	if len(e.Args) == 0 {
		return e.Command
	}
	return e.Command + " " + strings.Join(e.Args, " ")
}

// Error returns the failing command, its status and the tool's own output.
func (e *ExternalCommandError) Error() string {
	msg := fmt.Sprintf("%q exited with status %d", e.CommandLine(), e.ExitStatus)
	if out := strings.TrimSpace(e.Stderr); out != "" {
		return msg + ": " + out
	}
	if out := strings.TrimSpace(e.Stdout); out != "" {
		return msg + ": " + out
	}
	return msg
}

// PrivilegeError reports that provisioning was started without root rights.
type PrivilegeError struct {
	UID string
}

// Error returns the error message.
func (e *PrivilegeError) Error() string {
	if e.UID == "" {
		return "provisioning requires root privileges"
	}
	return fmt.Sprintf("provisioning requires root privileges (running as uid %s)", e.UID)
}

// ProvisioningError is returned by the provisioner when a step fails.
// It names the step and wraps the underlying cause.
type ProvisioningError struct {
	Step  StepID
	Phase Phase
	Cause error
}

// Error returns the formatted error message.
func (e *ProvisioningError) Error() string {
	return fmt.Sprintf("step %q failed during %s: %v", e.Step.String(), e.Phase, e.Cause)
}

// Unwrap returns the underlying cause.
func (e *ProvisioningError) Unwrap() error {
	return e.Cause
}

// Code returns the error code for the failed phase.
func (e *ProvisioningError) Code() string {
	if e.Phase == PhaseCheck {
		return ErrCodeCheckFailed
	}
	return ErrCodeApplyFailed
}

// Suggestion returns an actionable hint for the operator.
func (e *ProvisioningError) Suggestion() string {
	var privErr *PrivilegeError
	if errors.As(e.Cause, &privErr) {
		return "Re-run as root, e.g. with sudo."
	}
	var cmdErr *ExternalCommandError
	if errors.As(e.Cause, &cmdErr) {
		return fmt.Sprintf("Run '%s' by hand on the target host to see the full output.", cmdErr.CommandLine())
	}
	if e.Phase == PhaseCheck {
		return "The step could not determine its current status. This may be a transient error."
	}
	return "Fix the cause above and run labelhost again; completed steps will be skipped."
}

// Format returns a fully formatted error with all details.
func (e *ProvisioningError) Format() string {
	var b strings.Builder

	fmt.Fprintf(&b, "[%s] step failed during %s", e.Code(), e.Phase)
	fmt.Fprintf(&b, "\n  Step: %s", e.Step.String())
	if s := e.Suggestion(); s != "" {
		fmt.Fprintf(&b, "\n  Suggestion: %s", s)
	}
	if e.Cause != nil {
		fmt.Fprintf(&b, "\n  Cause: %s", e.Cause.Error())
	}

	return b.String()
}

// ExitStatus maps an error to the process exit status: 0 for nil, the exit
// status of the first failing external command when there is one, else 1.
func ExitStatus(err error) int {
	if err == nil {
		return 0
	}
	var cmdErr *ExternalCommandError
	if errors.As(err, &cmdErr) && cmdErr.ExitStatus > 0 && cmdErr.ExitStatus < 256 {
		return cmdErr.ExitStatus
	}
	return 1
}
