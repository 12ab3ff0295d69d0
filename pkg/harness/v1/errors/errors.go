package errors

import (
	"errors"
	"fmt"
)

// ConfigError represents an error encountered while loading or parsing the
// harness plan or command-line options.
type ConfigError struct {
	Message string
	Cause   error
}

func NewConfigError(message string, cause error) *ConfigError {
	return &ConfigError{Message: message, Cause: cause}
}
func (e *ConfigError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("configuration error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("configuration error: %s", e.Message)
}
func (e *ConfigError) Unwrap() error { return e.Cause }

// ValidationError indicates that a plan (structure, schema version, field
// values) failed validation checks.
type ValidationError struct {
	Message string
	Cause   error
}

func NewValidationError(message string, cause error) *ValidationError {
	return &ValidationError{Message: message, Cause: cause}
}
func (e *ValidationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("validation error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("validation error: %s", e.Message)
}
func (e *ValidationError) Unwrap() error { return e.Cause }

// ProbeError signifies that the database endpoint never became reachable
// within the configured attempt budget.
type ProbeError struct {
	Host     string
	Port     int
	Attempts int
	Cause    error
}

func NewProbeError(host string, port, attempts int, cause error) *ProbeError {
	return &ProbeError{Host: host, Port: port, Attempts: attempts, Cause: cause}
}
func (e *ProbeError) Error() string {
	msg := fmt.Sprintf("database at %s:%d not reachable after %d attempts, giving up", e.Host, e.Port, e.Attempts)
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}
func (e *ProbeError) Unwrap() error { return e.Cause }

// RunError represents a failed suite invocation for a specific executor mode.
// ExitCode holds the child's own exit status, or -1 when the runner could not
// be started at all.
type RunError struct {
	Executor string
	ExitCode int
	Cause    error
}

func NewRunError(executor string, exitCode int, cause error) *RunError {
	return &RunError{Executor: executor, ExitCode: exitCode, Cause: cause}
}
func (e *RunError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("suite run (executor '%s') failed with exit code %d: %v", e.Executor, e.ExitCode, e.Cause)
	}
	return fmt.Sprintf("suite run (executor '%s') failed with exit code %d", e.Executor, e.ExitCode)
}
func (e *RunError) Unwrap() error { return e.Cause }

// IsProbeExhausted reports whether err carries a ProbeError.
func IsProbeExhausted(err error) bool {
	var probeErr *ProbeError
	return errors.As(err, &probeErr)
}

// ExitCode maps an error chain to the process exit status the harness should
// terminate with. A failing suite run propagates the child's own exit code;
// every other failure, including probe exhaustion, maps to 1.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var runErr *RunError
	if errors.As(err, &runErr) && runErr.ExitCode > 0 {
		return runErr.ExitCode
	}
	return 1
}
