package cli

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCmd_Use(t *testing.T) {
	assert.Equal(t, "newsdigest", rootCmd.Use)
	assert.True(t, rootCmd.SilenceUsage)
}

func TestRootCmd_HasVerboseFlag(t *testing.T) {
	flag := rootCmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, flag)
	assert.Equal(t, "v", flag.Shorthand)
	assert.Equal(t, "false", flag.DefValue)
}

func TestRootCmd_RegistersCommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"ingest", "run", "runs", "watch", "serve", "mcp", "daemon", "cache", "config", "version"} {
		assert.True(t, names[want], "missing command %q", want)
	}
}

func TestVersionCmd_Executes(t *testing.T) {
	t.Cleanup(resetServices)
	originalVersion := version
	SetVersion("test-version-1.0.0")
	defer func() { version = originalVersion }()

	out, _, err := execute(t, "version")

	require.NoError(t, err)
	assert.Contains(t, out, "newsdigest version test-version-1.0.0")
}

func TestSetVersion_IgnoresEmpty(t *testing.T) {
	originalVersion := version
	defer func() { version = originalVersion }()

	version = "dev"
	SetVersion("")
	assert.Equal(t, "dev", version)
}

func TestVersionCmd_SkipsBootstrap(t *testing.T) {
	t.Cleanup(resetServices)
	calls := 0
	SetBootstrap(func(context.Context) (*Services, func(), error) {
		calls++
		return nil, nil, errors.New("should not be called")
	})

	_, _, err := execute(t, "version")

	require.NoError(t, err)
	assert.Zero(t, calls)
}

func TestBootstrap_RunsOnceAndCleansUp(t *testing.T) {
	t.Cleanup(resetServices)
	env := setupTestServices(t)
	servicesReady = false

	calls, closed := 0, 0
	SetBootstrap(func(context.Context) (*Services, func(), error) {
		calls++
		return &Services{
			Config:    env.cfg,
			Headlines: env.headlines,
			Pipeline:  env.pipeline,
			Runs:      env.runs,
		}, func() { closed++ }, nil
	})

	_, _, err := execute(t, "runs", "list")
	require.NoError(t, err)
	_, _, err = execute(t, "runs", "list")
	require.NoError(t, err)

	assert.Equal(t, 1, calls)
	closeServices()
	assert.Equal(t, 1, closed)
}

func TestBootstrap_ErrorAbortsCommand(t *testing.T) {
	t.Cleanup(resetServices)
	SetBootstrap(func(context.Context) (*Services, func(), error) {
		return nil, nil, errors.New("opening store: disk full")
	})

	_, _, err := execute(t, "runs", "list")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}

func TestCommands_WithoutServices(t *testing.T) {
	tests := []struct {
		args    []string
		wantErr string
	}{
		{[]string{"ingest", "--sample", "3"}, "headline service not configured"},
		{[]string{"run"}, "pipeline service not configured"},
		{[]string{"runs", "list"}, "run service not configured"},
		{[]string{"runs", "latest"}, "run service not configured"},
		{[]string{"cache", "prune"}, "summary cache not configured"},
		{[]string{"config", "validate"}, "config validator not configured"},
		{[]string{"daemon"}, "scheduler not configured"},
		{[]string{"serve"}, "pipeline services not configured"},
	}

	for _, tt := range tests {
		t.Run(tt.args[0], func(t *testing.T) {
			t.Cleanup(resetServices)

			_, _, err := execute(t, tt.args...)

			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
