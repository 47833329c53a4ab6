package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateGitRef(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		ref    string
		errMsg string
	}{
		// Valid cases
		{"tag", "v2.5.0", ""},
		{"commit", "3b2c1a9f0e8d7c6b5a4f3e2d1c0b9a8f7e6d5c4b", ""},
		{"branch", "release/2.5", ""},
		{"underscore", "release_2_5", ""},

		// Invalid cases - command injection attempts
		{"semicolon injection", "v2.5.0; rm -rf /", "invalid character"},
		{"ampersand injection", "v2.5.0 && evil", "invalid character"},
		{"pipe injection", "v2.5.0 | cat /etc/passwd", "invalid character"},
		{"backtick injection", "v2`whoami`", "invalid character"},
		{"dollar injection", "v2$(whoami)", "invalid character"},
		{"newline injection", "v2\nrm -rf /", "invalid character"},

		// Invalid cases - other
		{"empty", "", "cannot be empty"},
		{"option", "--upload-pack=evil", "cannot start with '-'"},
		{"range", "v1..v2", "cannot contain '..'"},
		{"space", "v2 5", "invalid ref format"},
		{"too long", strings.Repeat("a", 256), "too long"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := ValidateGitRef(tt.ref)
			if tt.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			if assert.Error(t, err) {
				assert.Contains(t, err.Error(), tt.errMsg)
			}
		})
	}
}

func TestValidateGitRemoteURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{"https", "https://github.com/opencv/cvat", false},
		{"https with .git", "https://github.com/opencv/cvat.git", false},
		{"https with port", "https://git.internal:8443/ml/cvat.git", false},
		{"scp style", "git@github.com:opencv/cvat.git", false},
		{"ssh protocol", "ssh://git@github.com/opencv/cvat.git", false},
		{"file url", "file:///srv/mirror/cvat.git", false},
		{"absolute path", "/srv/mirror/cvat.git", false},
		{"empty", "", true},
		{"http", "http://github.com/opencv/cvat", true},
		{"relative path", "mirror/cvat", true},
		{"injection", "https://github.com/opencv/cvat;reboot", true},
		{"ext transport", "ext::sh -c evil", true},
		{"null byte", "https://github.com/\x00", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := ValidateGitRemoteURL(tt.url)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
