package runner

import (
	"context"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func skipOnWindows(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("POSIX shell semantics")
	}
}

func TestRunCapturesCombinedOutput(t *testing.T) {
	skipOnWindows(t)
	result, err := Run(context.Background(), Command{
		Command: "echo out; echo err 1>&2",
	})
	require.NoError(t, err)
	assert.Equal(t, 0, result.ExitCode)
	combined := string(result.Stdout)
	assert.Contains(t, combined, "out")
	assert.Contains(t, combined, "err")
}

func TestRunSeparatesStreamsForStdoutPolicy(t *testing.T) {
	skipOnWindows(t)
	result, err := Run(context.Background(), Command{
		Command:       "echo out; echo err 1>&2",
		OutputSummary: SummaryStdout,
	})
	require.NoError(t, err)
	assert.Equal(t, "out\n", string(result.Stdout))
	assert.Equal(t, "err\n", string(result.Stderr))
	assert.Equal(t, "out\n", result.Summary(SummaryStdout))
	assert.Equal(t, "err\n", result.Summary(SummaryStderr))
}

func TestRunReportsExitCode(t *testing.T) {
	skipOnWindows(t)
	result, err := Run(context.Background(), Command{Command: "exit 3"})
	require.NoError(t, err)
	assert.Equal(t, 3, result.ExitCode)
}

func TestRunFailsOnFirstErrorInShellString(t *testing.T) {
	skipOnWindows(t)
	// errexit makes the false abort the compound command
	result, err := Run(context.Background(), Command{Command: "false; echo should-not-print"})
	require.NoError(t, err)
	assert.NotEqual(t, 0, result.ExitCode)
	assert.NotContains(t, string(result.Stdout), "should-not-print")
}

func TestRunWritesStdin(t *testing.T) {
	skipOnWindows(t)
	result, err := Run(context.Background(), Command{
		Command:       "cat",
		Stdin:         "payload\n",
		OutputSummary: SummaryStdout,
	})
	require.NoError(t, err)
	assert.Equal(t, "payload\n", string(result.Stdout))
}

func TestRunMissingTool(t *testing.T) {
	skipOnWindows(t)
	_, err := Run(context.Background(), Command{
		Shell:   "definitely-not-a-real-shell-binary",
		Command: "true",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrToolMissing)
}

func TestRunTimeout(t *testing.T) {
	skipOnWindows(t)
	start := time.Now()
	_, err := Run(context.Background(), Command{
		Command: "sleep 5",
		Timeout: 100 * time.Millisecond,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTimeout)
	assert.Less(t, time.Since(start), 3*time.Second)
}

func TestRunCancellation(t *testing.T) {
	skipOnWindows(t)
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()
	start := time.Now()
	_, err := Run(ctx, Command{Command: "sleep 10"})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), 8*time.Second)
}

func TestRunCustomShell(t *testing.T) {
	skipOnWindows(t)
	result, err := Run(context.Background(), Command{
		Shell:         "sh -c",
		Command:       "echo custom",
		OutputSummary: SummaryStdout,
	})
	require.NoError(t, err)
	assert.Equal(t, "custom\n", string(result.Stdout))
}

func TestRunEnvAndDir(t *testing.T) {
	skipOnWindows(t)
	dir := t.TempDir()
	result, err := Run(context.Background(), Command{
		Command:       "echo $HK_TEST_VALUE; pwd",
		Dir:           dir,
		Env:           []string{"PATH=/usr/bin:/bin", "HK_TEST_VALUE=42"},
		OutputSummary: SummaryStdout,
	})
	require.NoError(t, err)
	out := string(result.Stdout)
	assert.Contains(t, out, "42")
	assert.Contains(t, out, dir)
}

func TestShellArgvDefault(t *testing.T) {
	if runtime.GOOS == "windows" {
		name, _ := shellArgv("", "x")
		assert.NotEmpty(t, name)
		return
	}
	name, args := shellArgv("", "fmt --check a.js")
	assert.Equal(t, "sh", name)
	assert.Equal(t, []string{"-o", "errexit", "-c", "fmt --check a.js"}, args)
}
