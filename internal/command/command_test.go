package command_test

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/coopdigital/tenant-harness/internal/command"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunCapturesOutput(t *testing.T) {
	runner := command.NewRunner()

	result, err := runner.Run(context.Background(), command.Spec{
		Program: "/bin/sh",
		Args:    []string{"-c", "echo out; echo err 1>&2"},
	})

	require.NoError(t, err)
	assert.Equal(t, 0, result.ExitCode)
	assert.Equal(t, "out\n", result.Stdout)
	assert.Equal(t, "err\n", result.Stderr)
}

func TestRunNonZeroExitIsNotARunnerError(t *testing.T) {
	runner := command.NewRunner()

	result, err := runner.Run(context.Background(), command.Spec{
		Program: "/bin/sh",
		Args:    []string{"-c", "exit 3"},
	})

	require.NoError(t, err, "a non-zero exit is a result, not a runner failure")
	assert.Equal(t, 3, result.ExitCode)
	assert.Error(t, result.Err)
}

func TestRunAppendsExtraEnvToInherited(t *testing.T) {
	runner := command.NewRunner()

	result, err := runner.Run(context.Background(), command.Spec{
		Program:  "/bin/sh",
		Args:     []string{"-c", `printf "%s|%s" "$EXECUTOR" "$PATH"`},
		ExtraEnv: []string{"EXECUTOR=multiprocessing"},
	})

	require.NoError(t, err)
	assert.Equal(t, 0, result.ExitCode)
	assert.Contains(t, result.Stdout, "multiprocessing|")
	assert.NotEqual(t, "multiprocessing|", result.Stdout, "the inherited PATH must still be present")
}

func TestRunProgramNotFound(t *testing.T) {
	runner := command.NewRunner()

	result, err := runner.Run(context.Background(), command.Spec{
		Program: "definitely-not-a-real-test-runner",
	})

	require.Error(t, err)
	assert.Equal(t, -1, result.ExitCode)
}

func TestRunContextCancellation(t *testing.T) {
	runner := command.NewRunner()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	result, err := runner.Run(ctx, command.Spec{
		Program: "/bin/sh",
		Args:    []string{"-c", "sleep 10"},
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, -1, result.ExitCode)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestRunStreamsOutputLive(t *testing.T) {
	runner := command.NewRunner()

	var stream bytes.Buffer
	result, err := runner.Run(context.Background(), command.Spec{
		Program: "/bin/sh",
		Args:    []string{"-c", "echo streamed"},
		Stdout:  &stream,
	})

	require.NoError(t, err)
	assert.Equal(t, "streamed\n", result.Stdout)
	assert.Equal(t, "streamed\n", stream.String(), "live writer receives the same bytes as the capture")
}
