// Package hostinfo gathers facts about the target host: its distribution
// from /etc/os-release and, on EC2, its public address from the instance
// metadata service.
package hostinfo

import (
	"context"
	"fmt"
	"strings"

	"gopkg.in/ini.v1"

	"github.com/felixgeelhaar/labelhost/internal/ports"
)

// OSReleasePath is where systemd-era distributions describe themselves.
const OSReleasePath = "/etc/os-release"

// yumFamily lists os-release IDs whose package manager is yum or a
// yum-compatible dnf.
var yumFamily = map[string]bool{
	"amzn":      true,
	"rhel":      true,
	"centos":    true,
	"fedora":    true,
	"rocky":     true,
	"almalinux": true,
	"ol":        true,
}

// OSRelease holds the fields of /etc/os-release labelhost cares about.
type OSRelease struct {
	ID         string
	IDLike     []string
	Name       string
	VersionID  string
	PrettyName string
}

// ParseOSRelease parses os-release content.
func ParseOSRelease(data []byte) (OSRelease, error) {
	f, err := ini.LoadSources(ini.LoadOptions{
		IgnoreInlineComment: true,
		KeyValueDelimiters:  "=",
	}, data)
	if err != nil {
		return OSRelease{}, fmt.Errorf("parse os-release: %w", err)
	}

	sec := f.Section(ini.DefaultSection)
	return OSRelease{
		ID:         strings.ToLower(unquote(sec.Key("ID").String())),
		IDLike:     strings.Fields(strings.ToLower(unquote(sec.Key("ID_LIKE").String()))),
		Name:       unquote(sec.Key("NAME").String()),
		VersionID:  unquote(sec.Key("VERSION_ID").String()),
		PrettyName: unquote(sec.Key("PRETTY_NAME").String()),
	}, nil
}

// ReadOSRelease reads and parses /etc/os-release on the target host.
func ReadOSRelease(ctx context.Context, runner ports.CommandRunner) (OSRelease, error) {
	result, err := runner.Run(ctx, "cat", OSReleasePath)
	if err != nil {
		return OSRelease{}, fmt.Errorf("read %s: %w", OSReleasePath, err)
	}
	if !result.Success() {
		return OSRelease{}, fmt.Errorf("read %s: %s", OSReleasePath, strings.TrimSpace(result.Stderr))
	}
	return ParseOSRelease([]byte(result.Stdout))
}

// YumFamily reports whether the distribution installs packages with yum.
func (r OSRelease) YumFamily() bool {
	if yumFamily[r.ID] {
		return true
	}
	for _, like := range r.IDLike {
		if yumFamily[like] {
			return true
		}
	}
	return false
}

// String returns the most descriptive name available.
func (r OSRelease) String() string {
	switch {
	case r.PrettyName != "":
		return r.PrettyName
	case r.Name != "" && r.VersionID != "":
		return r.Name + " " + r.VersionID
	case r.Name != "":
		return r.Name
	case r.ID != "":
		return r.ID
	}
	return "unknown"
}

func unquote(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && (s[0] == '"' || s[0] == '\'') && s[len(s)-1] == s[0] {
		return s[1 : len(s)-1]
	}
	return s
}
