// Package driver executes the suite run matrix: one external test-runner
// invocation per executor mode, strictly in order, fail-fast.
package driver

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/coopdigital/tenant-harness/internal/command"
	harness "github.com/coopdigital/tenant-harness/pkg/harness/v1"
	harnesserrors "github.com/coopdigital/tenant-harness/pkg/harness/v1/errors"
	"github.com/coopdigital/tenant-harness/pkg/harness/v1/events"
	harnesslog "github.com/coopdigital/tenant-harness/pkg/harness/v1/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"
)

// Plan describes the suite run matrix.
type Plan struct {
	// Command is the test-runner program (e.g. "python").
	Command string
	// Args are the leading runner arguments (e.g. "manage.py", "test").
	Args []string
	// Target is the test package path handed to the runner.
	Target string
	// Executors lists the modes to run, in order. Each mode is exported to
	// the child via ExecutorVar before its invocation.
	Executors []string
	// ExecutorVar is the environment variable carrying the mode.
	ExecutorVar string
	// KeepDB appends KeepDBFlag to every invocation so the runner reuses
	// the existing test database.
	KeepDB bool
	// KeepDBFlag is the flag appended when KeepDB is set.
	KeepDBFlag string
	// WorkDir is the working directory for invocations; empty inherits.
	WorkDir string
}

// Invocation returns the full argument list for one run of the plan.
func (p *Plan) Invocation() []string {
	args := make([]string, 0, len(p.Args)+2)
	args = append(args, p.Args...)
	if p.Target != "" {
		args = append(args, p.Target)
	}
	if p.KeepDB {
		args = append(args, p.KeepDBFlag)
	}
	return args
}

// Driver runs a Plan through a command.Runner. There is no retry and no
// parallelism across modes; the first failing invocation aborts the matrix.
type Driver struct {
	runner command.Runner
	log    harnesslog.Logger
	bus    events.Bus
	tracer oteltrace.Tracer
	stdout io.Writer
	stderr io.Writer
}

// New wires a Driver. bus and tracer may be nil (no-op). stdout/stderr, when
// non-nil, receive the child's output live. Panics on a nil runner or logger.
func New(runner command.Runner, log harnesslog.Logger, bus events.Bus, tracer oteltrace.Tracer, stdout, stderr io.Writer) *Driver {
	if runner == nil {
		panic("driver.New requires a non-nil command runner")
	}
	if log == nil {
		panic("driver.New requires a non-nil logger")
	}
	return &Driver{
		runner: runner,
		log:    log.With("component", "Driver"),
		bus:    bus,
		tracer: tracer,
		stdout: stdout,
		stderr: stderr,
	}
}

// Run executes every executor mode of the plan in order. It always returns a
// Report; the error is non-nil when any invocation failed and is a RunError
// naming the failing mode, so the caller can propagate the child exit code.
func (d *Driver) Run(ctx context.Context, plan Plan) (*harness.Report, error) {
	report := &harness.Report{
		Target:    plan.Target,
		StartTime: time.Now(),
		TotalRuns: len(plan.Executors),
		Runs:      make([]harness.RunResult, 0, len(plan.Executors)),
	}
	d.emit(events.Event{
		Type:      events.SuiteStart,
		Timestamp: report.StartTime,
		Payload:   map[string]interface{}{"executors": len(plan.Executors), "keepdb": plan.KeepDB},
	})

	var failure error
	for _, executor := range plan.Executors {
		if failure != nil {
			// Fail-fast: earlier mode failed, later modes never run.
			report.Runs = append(report.Runs, harness.RunResult{
				Executor: executor,
				Status:   harness.StatusSkipped,
			})
			report.SkippedRuns++
			continue
		}

		result, cause := d.runOne(ctx, plan, executor)
		report.Runs = append(report.Runs, result)
		switch result.Status {
		case harness.StatusCompleted:
			report.CompletedRuns++
		case harness.StatusFailed:
			report.FailedRuns++
			failure = harnesserrors.NewRunError(executor, result.ExitCode, cause)
		}
	}

	report.EndTime = time.Now()
	report.Duration = report.EndTime.Sub(report.StartTime)
	if failure != nil {
		report.OverallStatus = harness.StatusFailed
		report.Error = failure.Error()
	} else {
		report.OverallStatus = harness.StatusCompleted
	}
	d.emit(events.Event{
		Type:      events.SuiteEnd,
		Timestamp: report.EndTime,
		Payload:   map[string]interface{}{"status": report.OverallStatus},
	})
	return report, failure
}

// runOne performs a single executor-mode invocation. The returned cause, if
// any, preserves the underlying error chain (including context cancellation)
// for the RunError wrapping done by Run.
func (d *Driver) runOne(ctx context.Context, plan Plan, executor string) (harness.RunResult, error) {
	runResult := harness.RunResult{
		Executor:  executor,
		StartTime: time.Now(),
	}

	var span oteltrace.Span
	if d.tracer != nil {
		ctx, span = d.tracer.Start(ctx, "harness.run",
			oteltrace.WithAttributes(
				attribute.String("suite.executor", executor),
				attribute.String("suite.target", plan.Target),
				attribute.Bool("suite.keepdb", plan.KeepDB),
			))
		defer span.End()
	}

	args := plan.Invocation()
	d.log.Infof("Running suite for executor '%s': %s %v", executor, plan.Command, args)
	d.emit(events.Event{
		Type:      events.RunStart,
		Timestamp: runResult.StartTime,
		Executor:  executor,
	})

	cmdResult, runErr := d.runner.Run(ctx, command.Spec{
		Program:  plan.Command,
		Args:     args,
		Dir:      plan.WorkDir,
		ExtraEnv: []string{plan.ExecutorVar + "=" + executor},
		Stdout:   d.stdout,
		Stderr:   d.stderr,
	})

	runResult.EndTime = time.Now()
	runResult.Duration = runResult.EndTime.Sub(runResult.StartTime)

	var cause error
	switch {
	case runErr != nil:
		// The runner never completed: start failure or cancellation.
		runResult.Status = harness.StatusFailed
		runResult.ExitCode = -1
		runResult.Error = runErr.Error()
		cause = runErr
		d.log.Errorf("Suite run for executor '%s' could not be executed: %v", executor, runErr)
	case cmdResult.ExitCode != 0:
		runResult.Status = harness.StatusFailed
		runResult.ExitCode = cmdResult.ExitCode
		runResult.Error = fmt.Sprintf("test runner exited with non-zero status: %d", cmdResult.ExitCode)
		cause = fmt.Errorf("%s", runResult.Error)
		d.log.Errorf("Suite run for executor '%s' failed with exit code %d", executor, cmdResult.ExitCode)
	default:
		runResult.Status = harness.StatusCompleted
		d.log.Infof("Suite run for executor '%s' completed in %v", executor, runResult.Duration.Truncate(time.Millisecond))
	}

	if span != nil && runResult.Status == harness.StatusFailed {
		span.SetStatus(codes.Error, runResult.Error)
	}

	d.emit(events.Event{
		Type:      events.RunEnd,
		Timestamp: runResult.EndTime,
		Executor:  executor,
		Payload: map[string]interface{}{
			"status":           runResult.Status,
			"exit_code":        runResult.ExitCode,
			"duration_seconds": runResult.Duration.Seconds(),
		},
	})
	return runResult, cause
}

func (d *Driver) emit(event events.Event) {
	if d.bus == nil {
		return
	}
	d.bus.Emit(event)
}
