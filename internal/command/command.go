package command

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
)

// Spec describes one external command invocation.
type Spec struct {
	// Program is the executable to run (resolved via PATH when relative).
	Program string
	// Args are the program arguments, excluding the program name itself.
	Args []string
	// Dir is the working directory; empty means inherit the caller's.
	Dir string
	// ExtraEnv holds KEY=VALUE entries appended to the inherited process
	// environment. The child is an external test runner that needs PATH,
	// HOME and database credentials from the parent, so the environment is
	// never replaced wholesale.
	ExtraEnv []string
	// Stdout and Stderr, when non-nil, receive the child's output live in
	// addition to the captured copies in Result.
	Stdout io.Writer
	Stderr io.Writer
}

// Result holds the outcome of executing an external command.
type Result struct {
	// Stdout and Stderr contain the captured output of the command.
	Stdout string
	Stderr string
	// ExitCode is the exit status returned by the command. A value of -1
	// indicates the command never ran to completion (not found, context
	// cancelled, start failure).
	ExitCode int
	// Err records the execution-level problem, if any. A non-zero exit code
	// alone does not populate Err; callers check ExitCode for that.
	Err error
}

// Runner defines the interface for running external commands. It exists so
// the suite driver can be tested against a mock without spawning processes.
type Runner interface {
	// Run executes the command described by spec, respecting ctx for
	// cancellation. A non-zero child exit is not an error from Run's
	// perspective; the caller inspects Result.ExitCode.
	Run(ctx context.Context, spec Spec) (*Result, error)
}

type defaultRunner struct{}

// NewRunner creates the os/exec backed command runner.
func NewRunner() Runner {
	return &defaultRunner{}
}

func (r *defaultRunner) Run(ctx context.Context, spec Spec) (*Result, error) {
	cmd := exec.CommandContext(ctx, spec.Program, spec.Args...)

	var stdoutBuf, stderrBuf bytes.Buffer
	cmd.Stdout = &stdoutBuf
	cmd.Stderr = &stderrBuf
	if spec.Stdout != nil {
		cmd.Stdout = io.MultiWriter(&stdoutBuf, spec.Stdout)
	}
	if spec.Stderr != nil {
		cmd.Stderr = io.MultiWriter(&stderrBuf, spec.Stderr)
	}

	if spec.Dir != "" {
		cmd.Dir = spec.Dir
	}
	if len(spec.ExtraEnv) > 0 {
		cmd.Env = append(os.Environ(), spec.ExtraEnv...)
	}

	result := &Result{
		ExitCode: -1,
	}

	err := cmd.Run()

	result.Stdout = stdoutBuf.String()
	result.Stderr = stderrBuf.String()

	if err != nil {
		if ctx.Err() != nil {
			// Terminated prematurely; the exit code stays -1.
			result.Err = ctx.Err()
			return result, ctx.Err()
		}

		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			// The command ran and exited non-zero. That is a result, not a
			// runner failure.
			result.ExitCode = exitErr.ExitCode()
			result.Err = err
			return result, nil
		}

		// Start failures: program not found, permission denied, bad Dir.
		result.Err = err
		return result, err
	}

	result.ExitCode = 0
	return result, nil
}
