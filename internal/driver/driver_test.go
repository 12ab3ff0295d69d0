package driver_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/coopdigital/tenant-harness/internal/command"
	"github.com/coopdigital/tenant-harness/internal/driver"
	"github.com/coopdigital/tenant-harness/internal/logger"
	harness "github.com/coopdigital/tenant-harness/pkg/harness/v1"
	harnesserrors "github.com/coopdigital/tenant-harness/pkg/harness/v1/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockRunner records every invocation and replays canned results, so driver
// behavior can be verified without spawning processes.
type mockRunner struct {
	mu      sync.Mutex
	specs   []command.Spec
	results []*command.Result
	errs    []error
}

func (m *mockRunner) Run(ctx context.Context, spec command.Spec) (*command.Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	idx := len(m.specs)
	m.specs = append(m.specs, spec)
	if idx >= len(m.results) {
		return &command.Result{ExitCode: 0}, nil
	}
	return m.results[idx], m.errs[idx]
}

func basePlan() driver.Plan {
	return driver.Plan{
		Command:     "python",
		Args:        []string{"manage.py", "test"},
		Target:      "django_tenants.tests",
		Executors:   []string{"standard", "multiprocessing"},
		ExecutorVar: "EXECUTOR",
		KeepDBFlag:  "--keepdb",
	}
}

func newDriver(runner command.Runner) *driver.Driver {
	return driver.New(runner, logger.NewDefaultLogger("error"), nil, nil, nil, nil)
}

func TestRunExecutesModesInConfiguredOrder(t *testing.T) {
	runner := &mockRunner{
		results: []*command.Result{{ExitCode: 0}, {ExitCode: 0}},
		errs:    []error{nil, nil},
	}

	report, err := newDriver(runner).Run(context.Background(), basePlan())

	require.NoError(t, err)
	require.Len(t, runner.specs, 2)
	assert.Equal(t, []string{"EXECUTOR=standard"}, runner.specs[0].ExtraEnv)
	assert.Equal(t, []string{"EXECUTOR=multiprocessing"}, runner.specs[1].ExtraEnv)

	assert.Equal(t, harness.StatusCompleted, report.OverallStatus)
	assert.Equal(t, 2, report.TotalRuns)
	assert.Equal(t, 2, report.CompletedRuns)
	assert.Zero(t, report.FailedRuns)
	assert.Zero(t, report.SkippedRuns)
}

func TestRunOmitsKeepDBFlagByDefault(t *testing.T) {
	runner := &mockRunner{}

	_, err := newDriver(runner).Run(context.Background(), basePlan())

	require.NoError(t, err)
	for _, spec := range runner.specs {
		assert.NotContains(t, spec.Args, "--keepdb")
	}
}

func TestRunAppendsKeepDBFlagToEveryInvocation(t *testing.T) {
	runner := &mockRunner{}
	plan := basePlan()
	plan.KeepDB = true

	_, err := newDriver(runner).Run(context.Background(), plan)

	require.NoError(t, err)
	require.Len(t, runner.specs, 2)
	for _, spec := range runner.specs {
		assert.Equal(t, []string{"manage.py", "test", "django_tenants.tests", "--keepdb"}, spec.Args)
	}
}

func TestRunFailFastSkipsLaterModes(t *testing.T) {
	runner := &mockRunner{
		results: []*command.Result{{ExitCode: 2}},
		errs:    []error{nil},
	}

	report, err := newDriver(runner).Run(context.Background(), basePlan())

	require.Error(t, err)
	assert.Len(t, runner.specs, 1, "the multiprocessing mode must never be invoked")

	var runErr *harnesserrors.RunError
	require.ErrorAs(t, err, &runErr)
	assert.Equal(t, "standard", runErr.Executor)
	assert.Equal(t, 2, runErr.ExitCode)
	assert.Equal(t, 2, harnesserrors.ExitCode(err), "the child exit code propagates")

	require.Len(t, report.Runs, 2)
	assert.Equal(t, harness.StatusFailed, report.Runs[0].Status)
	assert.Equal(t, harness.StatusSkipped, report.Runs[1].Status)
	assert.Equal(t, harness.StatusFailed, report.OverallStatus)
	assert.Equal(t, 1, report.FailedRuns)
	assert.Equal(t, 1, report.SkippedRuns)
}

func TestRunStartFailureMapsToGenericFailure(t *testing.T) {
	startErr := errors.New("exec: \"python\": executable file not found in $PATH")
	runner := &mockRunner{
		results: []*command.Result{{ExitCode: -1, Err: startErr}},
		errs:    []error{startErr},
	}

	report, err := newDriver(runner).Run(context.Background(), basePlan())

	require.Error(t, err)
	var runErr *harnesserrors.RunError
	require.ErrorAs(t, err, &runErr)
	assert.Equal(t, -1, runErr.ExitCode)
	assert.ErrorIs(t, err, startErr)
	assert.Equal(t, 1, harnesserrors.ExitCode(err))
	assert.Equal(t, harness.StatusFailed, report.OverallStatus)
}

func TestPlanInvocationShape(t *testing.T) {
	plan := basePlan()
	assert.Equal(t, []string{"manage.py", "test", "django_tenants.tests"}, plan.Invocation())

	plan.KeepDB = true
	assert.Equal(t, []string{"manage.py", "test", "django_tenants.tests", "--keepdb"}, plan.Invocation())
}
