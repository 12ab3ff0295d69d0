package config

import (
	"strconv"
	"time"

	harnesserrors "github.com/coopdigital/tenant-harness/pkg/harness/v1/errors"
)

// Probe strategy names accepted in a plan.
const (
	StrategyTCP  = "tcp"
	StrategyPing = "ping"
)

// Environment variables consulted by ApplyEnv.
const (
	EnvDatabaseHost = "DATABASE_HOST"
	EnvDatabasePort = "DATABASE_PORT"
	EnvKeepDB       = "KEEPDB"
)

// Built-in defaults, matching the classic test bootstrap.
const (
	DefaultDatabaseHost = "127.0.0.1"
	DefaultDatabasePort = 5432
	DefaultAttempts     = 50
	DefaultInterval     = time.Second
	DefaultTimeout      = time.Second
	DefaultCommand      = "python"
	DefaultTarget       = "django_tenants.tests"
	DefaultExecutorVar  = "EXECUTOR"
	DefaultKeepDBFlag   = "--keepdb"
)

// Plan is the top-level structure of a harness plan YAML file.
type Plan struct {
	Name          string         `yaml:"name,omitempty"`
	SchemaVersion string         `yaml:"schemaVersion"`
	Database      DatabaseConfig `yaml:"database,omitempty"`
	Probe         ProbeConfig    `yaml:"probe,omitempty"`
	Suite         SuiteConfig    `yaml:"suite,omitempty"`

	// FilePath is an internal field storing the source file path for context
	// in logging and error messages. It is not parsed from the YAML.
	FilePath string `yaml:"-"`
}

// DatabaseConfig identifies the endpoint to probe. User, Password and
// DBName only matter for the "ping" strategy.
type DatabaseConfig struct {
	Host     string `yaml:"host,omitempty"`
	Port     int    `yaml:"port,omitempty"`
	User     string `yaml:"user,omitempty"`
	Password string `yaml:"password,omitempty"`
	DBName   string `yaml:"name,omitempty"`
	SSLMode  string `yaml:"sslmode,omitempty"`
}

// GetHost returns the configured host or the default local address.
func (d *DatabaseConfig) GetHost() string {
	if d.Host == "" {
		return DefaultDatabaseHost
	}
	return d.Host
}

// GetPort returns the configured port or the PostgreSQL default.
func (d *DatabaseConfig) GetPort() int {
	if d.Port == 0 {
		return DefaultDatabasePort
	}
	return d.Port
}

// ProbeConfig describes the readiness polling policy.
type ProbeConfig struct {
	// Strategy selects the prober: "tcp" (default) or "ping".
	Strategy string `yaml:"strategy,omitempty"`
	// Attempts is the total probe budget.
	Attempts int `yaml:"attempts,omitempty"`
	// Interval is the wait between attempts, as a Go duration string.
	Interval string `yaml:"interval,omitempty"`
	// Timeout bounds a single attempt, as a Go duration string.
	Timeout string `yaml:"timeout,omitempty"`
}

// GetStrategy returns the configured probe strategy or "tcp".
func (p *ProbeConfig) GetStrategy() string {
	if p.Strategy == "" {
		return StrategyTCP
	}
	return p.Strategy
}

// GetAttempts returns the configured attempt budget or the default (50).
func (p *ProbeConfig) GetAttempts() int {
	if p.Attempts <= 0 {
		return DefaultAttempts
	}
	return p.Attempts
}

// GetInterval returns the configured inter-attempt wait or the default (1 second).
func (p *ProbeConfig) GetInterval() time.Duration {
	if p.Interval == "" {
		return DefaultInterval
	}
	duration, err := time.ParseDuration(p.Interval)
	if err != nil || duration <= 0 {
		return DefaultInterval
	}
	return duration
}

// GetTimeout returns the configured per-attempt timeout or the default (1 second).
func (p *ProbeConfig) GetTimeout() time.Duration {
	if p.Timeout == "" {
		return DefaultTimeout
	}
	duration, err := time.ParseDuration(p.Timeout)
	if err != nil || duration <= 0 {
		return DefaultTimeout
	}
	return duration
}

// SuiteConfig describes the test-runner invocation matrix.
type SuiteConfig struct {
	Command     string   `yaml:"command,omitempty"`
	Args        []string `yaml:"args,omitempty"`
	Target      string   `yaml:"target,omitempty"`
	Executors   []string `yaml:"executors,omitempty"`
	ExecutorVar string   `yaml:"executor_var,omitempty"`
	KeepDB      bool     `yaml:"keepdb,omitempty"`
	KeepDBFlag  string   `yaml:"keepdb_flag,omitempty"`
	WorkDir     string   `yaml:"workdir,omitempty"`
}

// GetCommand returns the configured runner command or the default.
func (s *SuiteConfig) GetCommand() string {
	if s.Command == "" {
		return DefaultCommand
	}
	return s.Command
}

// GetArgs returns the configured leading runner arguments or the default
// "manage.py test" pair.
func (s *SuiteConfig) GetArgs() []string {
	if len(s.Args) == 0 {
		return []string{"manage.py", "test"}
	}
	return s.Args
}

// GetTarget returns the configured test target or the default package path.
func (s *SuiteConfig) GetTarget() string {
	if s.Target == "" {
		return DefaultTarget
	}
	return s.Target
}

// GetExecutors returns the configured executor modes or the fixed default
// order: standard then multiprocessing.
func (s *SuiteConfig) GetExecutors() []string {
	if len(s.Executors) == 0 {
		return []string{"standard", "multiprocessing"}
	}
	return s.Executors
}

// GetExecutorVar returns the environment variable name carrying the mode.
func (s *SuiteConfig) GetExecutorVar() string {
	if s.ExecutorVar == "" {
		return DefaultExecutorVar
	}
	return s.ExecutorVar
}

// GetKeepDBFlag returns the flag appended when KeepDB is set.
func (s *SuiteConfig) GetKeepDBFlag() string {
	if s.KeepDBFlag == "" {
		return DefaultKeepDBFlag
	}
	return s.KeepDBFlag
}

// Default returns a fully-defaulted plan equivalent to running with no plan
// file at all: TCP probe, 50 attempts 1 second apart, the standard and
// multiprocessing executors against the default target.
func Default() *Plan {
	return &Plan{
		SchemaVersion: "1.0",
	}
}

// ApplyEnv overlays environment variables onto the plan. lookup is usually
// os.LookupEnv; tests substitute their own. KEEPDB is compared against the
// exact literal "true": any other set value disables keep-db.
func (p *Plan) ApplyEnv(lookup func(string) (string, bool)) error {
	if host, ok := lookup(EnvDatabaseHost); ok && host != "" {
		p.Database.Host = host
	}
	if portStr, ok := lookup(EnvDatabasePort); ok && portStr != "" {
		port, err := strconv.Atoi(portStr)
		if err != nil || port <= 0 || port > 65535 {
			return harnesserrors.NewConfigError("invalid "+EnvDatabasePort+" value '"+portStr+"'", nil)
		}
		p.Database.Port = port
	}
	if keep, ok := lookup(EnvKeepDB); ok {
		p.Suite.KeepDB = keep == "true"
	}
	return nil
}
