package config

import (
	"fmt"
	"time"

	harnesserrors "github.com/coopdigital/tenant-harness/pkg/harness/v1/errors"
)

// ValidatePlanStructure performs logical validation beyond what the JSON
// schema can express. It returns all problems found, not just the first.
func ValidatePlanStructure(plan *Plan) []error {
	var errs []error

	if plan.Database.Port < 0 || plan.Database.Port > 65535 {
		errs = append(errs, harnesserrors.NewValidationError(
			fmt.Sprintf("database port %d is out of range", plan.Database.Port), nil))
	}

	switch plan.Probe.GetStrategy() {
	case StrategyTCP, StrategyPing:
	default:
		errs = append(errs, harnesserrors.NewValidationError(
			fmt.Sprintf("unknown probe strategy '%s' (expected '%s' or '%s')", plan.Probe.Strategy, StrategyTCP, StrategyPing), nil))
	}

	if plan.Probe.Attempts < 0 {
		errs = append(errs, harnesserrors.NewValidationError(
			fmt.Sprintf("probe attempts must be positive, got %d", plan.Probe.Attempts), nil))
	}
	errs = append(errs, validateDuration("probe interval", plan.Probe.Interval)...)
	errs = append(errs, validateDuration("probe timeout", plan.Probe.Timeout)...)

	executors := plan.Suite.GetExecutors()
	seen := make(map[string]struct{}, len(executors))
	for _, executor := range executors {
		if executor == "" {
			errs = append(errs, harnesserrors.NewValidationError("executor mode names cannot be empty", nil))
			continue
		}
		if _, dup := seen[executor]; dup {
			errs = append(errs, harnesserrors.NewValidationError(
				fmt.Sprintf("duplicate executor mode '%s'", executor), nil))
		}
		seen[executor] = struct{}{}
	}

	return errs
}

// validateDuration checks that an optional duration string parses and is
// positive. Empty strings are fine; the getters substitute defaults.
func validateDuration(field, value string) []error {
	if value == "" {
		return nil
	}
	duration, err := time.ParseDuration(value)
	if err != nil {
		return []error{harnesserrors.NewValidationError(
			fmt.Sprintf("%s '%s' is not a valid duration", field, value), err)}
	}
	if duration <= 0 {
		return []error{harnesserrors.NewValidationError(
			fmt.Sprintf("%s must be positive, got %s", field, value), nil)}
	}
	return nil
}
