package cli

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docqa/internal/logger"
)

// executeCommand runs the root command with args and returns its output.
func executeCommand(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	if stdin != "" {
		rootCmd.SetIn(strings.NewReader(stdin))
	}
	rootCmd.SetArgs(args)
	defer func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetIn(nil)
	}()

	err := rootCmd.Execute()
	return buf.String(), err
}

func TestRootCmd_Use(t *testing.T) {
	assert.Equal(t, "docqa", rootCmd.Use)
}

func TestRootCmd_HasCommands(t *testing.T) {
	names := make([]string, 0)
	for _, c := range rootCmd.Commands() {
		names = append(names, c.Name())
	}

	for _, want := range []string{"index", "ask", "document", "settings", "watch", "serve", "mcp", "reset", "version"} {
		assert.Contains(t, names, want)
	}
}

func TestRootCmd_PersistentFlags(t *testing.T) {
	verbose := rootCmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verbose)
	assert.Equal(t, "v", verbose.Shorthand)
	assert.NotNil(t, rootCmd.PersistentFlags().Lookup("config-dir"))
}

func TestRootCmd_InitializerRunsOnce(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	mocks := testMocks

	calls := 0
	SetInitializer(func(_ context.Context, opts Options) (*Services, error) {
		calls++
		assert.Equal(t, "/tmp/docqa-config", opts.ConfigDir)
		return &Services{Document: mocks.document}, nil
	})
	defer SetInitializer(nil)

	_, err := executeCommand(t, "", "--config-dir", "/tmp/docqa-config", "document", "count")
	require.NoError(t, err)
	_, err = executeCommand(t, "", "--config-dir", "/tmp/docqa-config", "document", "count")
	require.NoError(t, err)

	assert.Equal(t, 1, calls)
}

func TestRootCmd_InitializerError(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	SetInitializer(func(context.Context, Options) (*Services, error) {
		return nil, errors.New("no config")
	})
	defer SetInitializer(nil)

	_, err := executeCommand(t, "", "document", "list")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to initialise: no config")
}

func TestRootCmd_VersionSkipsInitializer(t *testing.T) {
	SetInitializer(func(context.Context, Options) (*Services, error) {
		t.Fatal("initializer must not run for version")
		return nil, nil
	})
	defer SetInitializer(nil)

	out, err := executeCommand(t, "", "version")

	require.NoError(t, err)
	assert.Contains(t, out, "docqa version")
}

func TestRootCmd_VerboseFlagEnablesDebug(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	defer logger.SetVerbose(false)

	logger.SetOutput(io.Discard)
	defer logger.SetOutput(os.Stderr)

	_, err := executeCommand(t, "", "--verbose", "document", "count")
	require.NoError(t, err)
	assert.True(t, logger.IsVerbose())
}

func TestSetServices_NilClears(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	SetServices(nil)

	assert.Nil(t, indexService)
	assert.Nil(t, queryService)
	assert.Nil(t, documentService)
	assert.Nil(t, vectorStore)
}
