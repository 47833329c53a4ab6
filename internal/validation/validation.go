// Package validation checks configuration values that end up on a command
// line, so that a bad value is rejected before it reaches the host.
package validation

import (
	"errors"
	"fmt"
	"net/url"
	"path"
	"regexp"
	"strings"
)

// Common validation errors.
var (
	ErrEmptyInput         = errors.New("input cannot be empty")
	ErrInvalidPackageName = errors.New("invalid package name")
	ErrPathTraversal      = errors.New("path traversal detected")
	ErrInvalidPath        = errors.New("invalid path")
	ErrCommandInjection   = errors.New("potential command injection detected")
	ErrInvalidHostname    = errors.New("invalid hostname")
	ErrInvalidURL         = errors.New("invalid URL")
)

var (
	// packageNameRegex matches yum package names and version pins.
	// Examples: "docker", "git", "python3.11", "gcc-c++", "docker-20.10.25"
	packageNameRegex = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._+:-]*$`)

	// hostnameRegex matches DNS names and IPv4 literals.
	// Examples: "ec2-54-210-167-204.compute-1.amazonaws.com", "10.0.0.12"
	hostnameRegex = regexp.MustCompile(`^[a-zA-Z0-9]([a-zA-Z0-9-]*[a-zA-Z0-9])?(\.[a-zA-Z0-9]([a-zA-Z0-9-]*[a-zA-Z0-9])?)*$`)

	// Characters a shell would interpret.
	shellMeta = []string{";", "&", "|", "$", "`", "(", ")", "{", "}", "<", ">", "!", "\n", "\r", "\\", "'", "\""}
)

// ValidatePackageName validates a package name passed to the package manager.
func ValidatePackageName(name string) error {
	if name == "" {
		return ErrEmptyInput
	}
	if len(name) > 256 {
		return fmt.Errorf("%w: too long (max 256 characters)", ErrInvalidPackageName)
	}
	if strings.HasPrefix(name, "-") {
		return fmt.Errorf("%w: %q looks like an option", ErrInvalidPackageName, name)
	}
	if !packageNameRegex.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidPackageName, name)
	}
	return nil
}

// ValidateURL validates a download URL. Only http and https are accepted.
func ValidateURL(raw string) error {
	if raw == "" {
		return ErrEmptyInput
	}
	if containsShellMeta(raw) {
		return fmt.Errorf("%w: %q", ErrCommandInjection, raw)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: scheme must be http or https", ErrInvalidURL)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: missing host", ErrInvalidURL)
	}
	return nil
}

// ValidateAbsPath validates an absolute path on the target host.
func ValidateAbsPath(p string) error {
	if p == "" {
		return ErrEmptyInput
	}
	if !strings.HasPrefix(p, "/") {
		return fmt.Errorf("%w: %q is not absolute", ErrInvalidPath, p)
	}
	if strings.ContainsRune(p, '\x00') {
		return fmt.Errorf("%w: contains null byte", ErrInvalidPath)
	}
	if containsShellMeta(p) {
		return fmt.Errorf("%w: %q", ErrCommandInjection, p)
	}
	if containsPathTraversal(p) {
		return fmt.Errorf("%w: %q", ErrPathTraversal, p)
	}
	if path.Clean(p) == "/" {
		return fmt.Errorf("%w: refusing to use the root directory", ErrInvalidPath)
	}
	return nil
}

// ValidateHostname validates a DNS name or IPv4 literal.
func ValidateHostname(hostname string) error {
	if hostname == "" {
		return ErrEmptyInput
	}
	if len(hostname) > 253 {
		return fmt.Errorf("%w: too long (max 253 characters)", ErrInvalidHostname)
	}
	if !hostnameRegex.MatchString(hostname) {
		return fmt.Errorf("%w: %q", ErrInvalidHostname, hostname)
	}
	return nil
}

func containsShellMeta(s string) bool {
	for _, char := range shellMeta {
		if strings.Contains(s, char) {
			return true
		}
	}
	return false
}

func containsPathTraversal(p string) bool {
	for _, part := range strings.Split(p, "/") {
		if part == ".." {
			return true
		}
	}
	return false
}
