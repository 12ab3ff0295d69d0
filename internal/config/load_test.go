package config_test

import (
	"testing"
	"time"

	"github.com/coopdigital/tenant-harness/internal/config"
	harnesserrors "github.com/coopdigital/tenant-harness/pkg/harness/v1/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validPlanYAML = `
schemaVersion: "1.0"
name: tenant suite
database:
  host: db.internal
  port: 5433
  user: tenants
  name: tenants_test
probe:
  strategy: ping
  attempts: 10
  interval: 500ms
  timeout: 2s
suite:
  command: python3
  args: [manage.py, test]
  target: django_tenants.tests
  executors: [standard, multiprocessing]
  keepdb: true
`

func TestLoadPlanValid(t *testing.T) {
	plan, err := config.LoadPlan([]byte(validPlanYAML), "plan.yaml")
	require.NoError(t, err)

	assert.Equal(t, "db.internal", plan.Database.GetHost())
	assert.Equal(t, 5433, plan.Database.GetPort())
	assert.Equal(t, config.StrategyPing, plan.Probe.GetStrategy())
	assert.Equal(t, 10, plan.Probe.GetAttempts())
	assert.Equal(t, 500*time.Millisecond, plan.Probe.GetInterval())
	assert.Equal(t, 2*time.Second, plan.Probe.GetTimeout())
	assert.Equal(t, "python3", plan.Suite.GetCommand())
	assert.Equal(t, []string{"standard", "multiprocessing"}, plan.Suite.GetExecutors())
	assert.True(t, plan.Suite.KeepDB)
	assert.Equal(t, "plan.yaml", plan.FilePath)
}

func TestLoadPlanEmptyContent(t *testing.T) {
	_, err := config.LoadPlan(nil, "empty.yaml")
	require.Error(t, err)
	var configErr *harnesserrors.ConfigError
	assert.ErrorAs(t, err, &configErr)
}

func TestLoadPlanRejectsUnknownFields(t *testing.T) {
	planYAML := `
schemaVersion: "1.0"
databse:
  host: db.internal
`
	_, err := config.LoadPlan([]byte(planYAML), "typo.yaml")
	require.Error(t, err, "unknown top-level fields must be rejected")
}

func TestLoadPlanMissingSchemaVersion(t *testing.T) {
	_, err := config.LoadPlan([]byte("name: no version\n"), "plan.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "schemaVersion")
}

func TestLoadPlanIncompatibleSchemaVersion(t *testing.T) {
	_, err := config.LoadPlan([]byte("schemaVersion: \"2.0\"\n"), "plan.yaml")
	require.Error(t, err)
	var validationErr *harnesserrors.ValidationError
	assert.ErrorAs(t, err, &validationErr)
}

func TestLoadPlanRejectsUnknownStrategy(t *testing.T) {
	planYAML := `
schemaVersion: "1.0"
probe:
  strategy: udp
`
	_, err := config.LoadPlan([]byte(planYAML), "plan.yaml")
	require.Error(t, err)
}

func TestLoadPlanRejectsDuplicateExecutors(t *testing.T) {
	planYAML := `
schemaVersion: "1.0"
suite:
  executors: [standard, standard]
`
	_, err := config.LoadPlan([]byte(planYAML), "plan.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate executor")
}

func TestLoadPlanRejectsBadDuration(t *testing.T) {
	planYAML := `
schemaVersion: "1.0"
probe:
  interval: soon
`
	_, err := config.LoadPlan([]byte(planYAML), "plan.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a valid duration")
}

func TestDefaultPlanGetters(t *testing.T) {
	plan := config.Default()

	assert.Equal(t, config.DefaultDatabaseHost, plan.Database.GetHost())
	assert.Equal(t, config.DefaultDatabasePort, plan.Database.GetPort())
	assert.Equal(t, config.StrategyTCP, plan.Probe.GetStrategy())
	assert.Equal(t, config.DefaultAttempts, plan.Probe.GetAttempts())
	assert.Equal(t, time.Second, plan.Probe.GetInterval())
	assert.Equal(t, "python", plan.Suite.GetCommand())
	assert.Equal(t, []string{"manage.py", "test"}, plan.Suite.GetArgs())
	assert.Equal(t, "django_tenants.tests", plan.Suite.GetTarget())
	assert.Equal(t, []string{"standard", "multiprocessing"}, plan.Suite.GetExecutors())
	assert.Equal(t, "EXECUTOR", plan.Suite.GetExecutorVar())
	assert.Equal(t, "--keepdb", plan.Suite.GetKeepDBFlag())
	assert.False(t, plan.Suite.KeepDB)
}

func envLookup(env map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		value, ok := env[key]
		return value, ok
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	plan := config.Default()
	err := plan.ApplyEnv(envLookup(map[string]string{
		"DATABASE_HOST": "db.internal",
		"DATABASE_PORT": "6543",
		"KEEPDB":        "true",
	}))

	require.NoError(t, err)
	assert.Equal(t, "db.internal", plan.Database.GetHost())
	assert.Equal(t, 6543, plan.Database.GetPort())
	assert.True(t, plan.Suite.KeepDB)
}

func TestApplyEnvKeepDBRequiresExactLiteral(t *testing.T) {
	for _, value := range []string{"True", "TRUE", "1", "yes", ""} {
		plan := config.Default()
		plan.Suite.KeepDB = true // a set-but-not-"true" value must disable it

		require.NoError(t, plan.ApplyEnv(envLookup(map[string]string{"KEEPDB": value})))
		assert.False(t, plan.Suite.KeepDB, "KEEPDB=%q must not enable keep-db", value)
	}
}

func TestApplyEnvUnsetLeavesPlanValues(t *testing.T) {
	plan := config.Default()
	plan.Suite.KeepDB = true
	plan.Database.Host = "from-plan"

	require.NoError(t, plan.ApplyEnv(envLookup(nil)))
	assert.True(t, plan.Suite.KeepDB)
	assert.Equal(t, "from-plan", plan.Database.Host)
}

func TestApplyEnvInvalidPort(t *testing.T) {
	plan := config.Default()
	err := plan.ApplyEnv(envLookup(map[string]string{"DATABASE_PORT": "not-a-port"}))
	require.Error(t, err)
	var configErr *harnesserrors.ConfigError
	assert.ErrorAs(t, err, &configErr)
}
