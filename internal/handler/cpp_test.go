package handler

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCppHandlerPrepareWritesSourceIntoPrivateDir(t *testing.T) {
	h := CppHandler{WorkRoot: t.TempDir()}

	ec, err := h.Prepare(context.Background(), "int main() { return 0; }")
	require.NoError(t, err)
	defer os.RemoveAll(ec.WorkDir)

	info, err := os.Stat(ec.WorkDir)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0700), info.Mode().Perm())

	contents, err := os.ReadFile(ec.SourceFile)
	require.NoError(t, err)
	assert.Equal(t, "int main() { return 0; }", string(contents))

	assert.Equal(t, filepath.Join(ec.WorkDir, sourceFilename), ec.SourceFile)
	assert.Equal(t, filepath.Join(ec.WorkDir, executableFilename), ec.ExecutableFile)
}

func TestCppHandlerCleanupRemovesEverything(t *testing.T) {
	h := CppHandler{}

	ec, err := h.Prepare(context.Background(), "// empty")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(ec.ExecutableFile, []byte("binary"), 0755))

	require.NoError(t, h.Cleanup(context.Background(), ec))

	_, err = os.Stat(ec.WorkDir)
	assert.True(t, os.IsNotExist(err))
}

func TestCppHandlerCleanupToleratesAlreadyMissingFiles(t *testing.T) {
	h := CppHandler{}

	ec, err := h.Prepare(context.Background(), "// empty")
	require.NoError(t, err)
	// Executable was never produced (e.g. compilation failed); Cleanup must
	// not treat that as an error.
	require.NoError(t, h.Cleanup(context.Background(), ec))
}

func TestRetryWithBackoffSucceedsOnLaterAttempt(t *testing.T) {
	attempts := 0
	err := retryWithBackoff(func() error {
		attempts++
		if attempts < 2 {
			return errors.New("transient")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, attempts)
}

func TestRetryWithBackoffGivesUpAfterMaxAttempts(t *testing.T) {
	attempts := 0
	err := retryWithBackoff(func() error {
		attempts++
		return errors.New("permanent")
	})
	require.Error(t, err)
	assert.Equal(t, 3, attempts)
}

func TestGuardArgvShapesExecGuardInvocation(t *testing.T) {
	argv := guardArgv("/usr/local/bin/judge-agent", "basic", "/work/a/output.executable", nil)
	assert.Equal(t, []string{
		"/usr/local/bin/judge-agent",
		execGuardSubcommand,
		"basic",
		"--",
		"/work/a/output.executable",
	}, argv)
}
