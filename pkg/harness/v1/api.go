// Package harness exposes the public result types produced by a harness run.
package harness

import "time"

// Run and suite status values as reported in a Report.
const (
	StatusCompleted = "Completed"
	StatusFailed    = "Failed"
	StatusSkipped   = "Skipped"
)

// RunResult holds the final outcome of a single executor-mode invocation.
type RunResult struct {
	Executor  string        `json:"executor"`
	Status    string        `json:"status"`
	ExitCode  int           `json:"exit_code"`
	Error     string        `json:"error,omitempty"`
	StartTime time.Time     `json:"start_time"`
	EndTime   time.Time     `json:"end_time"`
	Duration  time.Duration `json:"duration"`
}

// Report provides a summary of a completed suite run. Runs preserve the
// configured executor order; modes that never ran because an earlier mode
// failed appear with StatusSkipped and no timing information.
type Report struct {
	Target        string        `json:"target"`
	OverallStatus string        `json:"overall_status"`
	StartTime     time.Time     `json:"start_time"`
	EndTime       time.Time     `json:"end_time"`
	Duration      time.Duration `json:"duration"`
	TotalRuns     int           `json:"total_runs"`
	CompletedRuns int           `json:"completed_runs"`
	FailedRuns    int           `json:"failed_runs"`
	SkippedRuns   int           `json:"skipped_runs"`
	Error         string        `json:"error,omitempty"`
	Runs          []RunResult   `json:"runs"`
}
