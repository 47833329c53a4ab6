// Package versionutil compares tool versions reported by version probes.
package versionutil

import (
	"strings"

	"golang.org/x/mod/semver"
)

// Normalize turns "1.25.0", "v1.25.0" or "docker-compose version 1.25.0, build"
// style output into a canonical semver string with a v prefix. It returns
// "" when no valid version is found.
func Normalize(raw string) string {
	for _, field := range strings.FieldsFunc(raw, func(r rune) bool {
		return r == ' ' || r == ',' || r == '\n' || r == '\t'
	}) {
		v := field
		if !strings.HasPrefix(v, "v") {
			v = "v" + v
		}
		if semver.IsValid(v) {
			return semver.Canonical(v)
		}
	}
	return ""
}

// Matches reports whether installed satisfies wanted. Both are normalized
// first; an unparseable wanted version matches anything because there is
// nothing to compare against.
func Matches(installed, wanted string) bool {
	w := Normalize(wanted)
	if w == "" {
		return true
	}
	i := Normalize(installed)
	if i == "" {
		return false
	}
	return semver.Compare(i, w) == 0
}
