package git

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/labelhost/internal/domain/compiler"
	"github.com/felixgeelhaar/labelhost/internal/domain/config"
	"github.com/felixgeelhaar/labelhost/internal/testutil/mocks"
)

func TestProvider_Name(t *testing.T) {
	assert.Equal(t, "git", NewProvider(mocks.NewCommandRunner()).Name())
}

func TestProvider_Compile(t *testing.T) {
	cfg := config.Defaults()
	cfg.Repository.Ref = "v1.1.0"

	steps, err := NewProvider(mocks.NewCommandRunner()).Compile(compiler.NewCompileContext(cfg))
	require.NoError(t, err)
	require.Len(t, steps, 1)
	assert.Equal(t, "git:clone:/opt/cvat", steps[0].ID().String())
}

func TestProvider_Compile_RefRequired(t *testing.T) {
	_, err := NewProvider(mocks.NewCommandRunner()).Compile(compiler.NewCompileContext(config.Defaults()))
	require.Error(t, err)
	assert.True(t, config.IsUserError(err, config.ErrCodeRefRequired))
}
