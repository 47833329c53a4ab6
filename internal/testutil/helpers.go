// Package testutil provides test helpers and utilities for labelhost tests.
package testutil

import (
	"embed"
	"os"
	"path"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

//go:embed fixtures/*
var fixturesFS embed.FS

// TempConfigDir creates a temporary directory for test configuration files.
// It is removed when the test ends.
func TempConfigDir(t *testing.T) string {
	t.Helper()
	return t.TempDir()
}

// WriteTempFile writes content to a file in the specified directory.
func WriteTempFile(t *testing.T, dir, filename, content string) string {
	t.Helper()

	p := filepath.Join(dir, filename)
	err := os.WriteFile(p, []byte(content), 0o644)
	require.NoError(t, err, "failed to write temp file: %s", filename)

	return p
}

// LoadFixture loads a fixture file from the embedded fixtures directory.
func LoadFixture(t *testing.T, name string) []byte {
	t.Helper()

	content, err := fixturesFS.ReadFile(path.Join("fixtures", name))
	require.NoError(t, err, "failed to load fixture: %s", name)

	return content
}

// WriteFixtureToDir writes a fixture file to a directory.
func WriteFixtureToDir(t *testing.T, dir, fixtureName, destName string) string {
	t.Helper()

	content := LoadFixture(t, fixtureName)
	return WriteTempFile(t, dir, destName, string(content))
}
