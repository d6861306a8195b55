package toolchain

import (
	"context"
	"os/exec"
	"runtime"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireShell(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
}

func TestExecRunner_Output(t *testing.T) {
	requireShell(t)

	r := NewExecRunner(zerolog.Nop(), 5*time.Second)
	res, err := r.Run(context.Background(), "sh", "-c", "echo out; echo err >&2")
	require.NoError(t, err)

	assert.Equal(t, 0, res.ExitCode)
	assert.Equal(t, "out\n", res.Stdout)
	assert.Equal(t, "err\n", res.Stderr)
}

func TestExecRunner_NonZeroExit(t *testing.T) {
	requireShell(t)

	r := NewExecRunner(zerolog.Nop(), 5*time.Second)
	res, err := r.Run(context.Background(), "sh", "-c", "echo 'nm: fw.elf: file format not recognized' >&2; exit 2")
	require.NoError(t, err)
	assert.Equal(t, 2, res.ExitCode)

	_, err = Invoke(context.Background(), r, "sh", "-c", "echo 'nm: fw.elf: file format not recognized' >&2; exit 2")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrToolInvocationFailed)
	assert.Contains(t, err.Error(), "file format not recognized")
}

func TestExecRunner_Timeout(t *testing.T) {
	requireShell(t)

	r := NewExecRunner(zerolog.Nop(), 100*time.Millisecond)
	_, err := r.Run(context.Background(), "sh", "-c", "sleep 5")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrToolInvocationFailed)

	var invErr *InvocationError
	require.ErrorAs(t, err, &invErr)
	assert.True(t, invErr.TimedOut)
	assert.Equal(t, "sh timed out after 100ms", err.Error())
}

func TestExecRunner_MissingTool(t *testing.T) {
	r := NewExecRunner(zerolog.Nop(), time.Second)
	_, err := r.Run(context.Background(), "elfinsight-no-such-tool-nm")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrToolInvocationFailed)

	var invErr *InvocationError
	require.ErrorAs(t, err, &invErr)
	assert.False(t, invErr.TimedOut)
	assert.Contains(t, err.Error(), "elfinsight-no-such-tool-nm failed to run")
}

func TestExecRunner_Canceled(t *testing.T) {
	requireShell(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := NewExecRunner(zerolog.Nop(), 0)
	_, err := r.Run(ctx, "sh", "-c", "true")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}
