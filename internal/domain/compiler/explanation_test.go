package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExplanation(t *testing.T) {
	t.Parallel()

	links := []string{"https://docs.docker.com/compose/"}
	exp := NewExplanation("Install Compose", "Downloads the Compose binary.", links).
		WithNotes("Pin compose.sha256 for reproducible installs.")

	links[0] = "mutated"

	assert.Equal(t, "Install Compose", exp.Summary())
	assert.Equal(t, "Downloads the Compose binary.", exp.Detail())
	assert.Equal(t, []string{"https://docs.docker.com/compose/"}, exp.DocLinks())
	assert.Equal(t, []string{"Pin compose.sha256 for reproducible installs."}, exp.Notes())
	assert.False(t, exp.IsEmpty())
	assert.True(t, Explanation{}.IsEmpty())
}
