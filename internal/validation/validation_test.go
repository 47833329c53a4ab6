package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidatePackageName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		pkg     string
		wantErr error
	}{
		{"simple", "docker", nil},
		{"with version", "docker-20.10.25", nil},
		{"with plus", "gcc-c++", nil},
		{"with epoch", "git-2:2.40.1", nil},
		{"empty", "", ErrEmptyInput},
		{"option", "-y", ErrInvalidPackageName},
		{"injection", "git; rm -rf /", ErrInvalidPackageName},
		{"space", "docker git", ErrInvalidPackageName},
		{"too long", strings.Repeat("a", 257), ErrInvalidPackageName},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := ValidatePackageName(tt.pkg)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestValidateURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		url     string
		wantErr error
	}{
		{"https", "https://github.com/docker/compose/releases/download/1.25.0/docker-compose-Linux-x86_64", nil},
		{"http with port", "http://mirror.internal:8080/docker-compose", nil},
		{"empty", "", ErrEmptyInput},
		{"ftp", "ftp://example.com/file", ErrInvalidURL},
		{"no host", "https:///file", ErrInvalidURL},
		{"substitution", "https://example.com/$(uname -s)", ErrCommandInjection},
		{"quote", "https://example.com/a'b", ErrCommandInjection},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := ValidateURL(tt.url)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestValidateAbsPath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		path    string
		wantErr error
	}{
		{"clone dir", "/opt/cvat", nil},
		{"binary", "/usr/local/bin/docker-compose", nil},
		{"dotted name", "/opt/app..v2", nil},
		{"empty", "", ErrEmptyInput},
		{"relative", "cvat", ErrInvalidPath},
		{"root", "/", ErrInvalidPath},
		{"root with slashes", "//", ErrInvalidPath},
		{"traversal", "/opt/../etc", ErrPathTraversal},
		{"injection", "/opt/cvat;reboot", ErrCommandInjection},
		{"null byte", "/opt/\x00cvat", ErrInvalidPath},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := ValidateAbsPath(tt.path)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestValidateHostname(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		hostname string
		wantErr  bool
	}{
		{"dns name", "ec2-54-210-167-204.compute-1.amazonaws.com", false},
		{"ipv4", "54.210.167.204", false},
		{"single label", "builder", false},
		{"empty", "", true},
		{"leading hyphen", "-host", true},
		{"user prefix", "ec2-user@host", true},
		{"space", "my host", true},
		{"too long", strings.Repeat("a", 254), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := ValidateHostname(tt.hostname)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
