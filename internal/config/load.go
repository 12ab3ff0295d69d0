package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	harnesserrors "github.com/coopdigital/tenant-harness/pkg/harness/v1/errors"
	"golang.org/x/mod/semver"
	"gopkg.in/yaml.v3"
)

// SupportedSchemaVersionConstraint defines the SemVer major that loaded plans
// must satisfy. A v1 harness only accepts v1 plans.
const SupportedSchemaVersionConstraint = "v1"

// LoadPlan reads the given YAML plan bytes, validates against the embedded
// JSON schema, unmarshals strictly into a Plan, checks schema version
// compatibility, and performs logical validation.
func LoadPlan(planYAML []byte, filePathHint string) (*Plan, error) {
	if len(planYAML) == 0 {
		return nil, harnesserrors.NewConfigError("plan content cannot be empty", nil)
	}

	// Step 1: Validate against the JSON Schema for basic structure and types.
	if err := ValidateWithSchema(planYAML); err != nil {
		return nil, harnesserrors.NewConfigError(fmt.Sprintf("plan '%s' failed schema validation", filePathHint), err)
	}

	// Step 2: Unmarshal using strict decoding to catch unknown fields.
	var plan Plan
	if err := yamlUnmarshalStrict(planYAML, &plan); err != nil {
		return nil, harnesserrors.NewConfigError(fmt.Sprintf("failed to parse plan YAML '%s'", filePathHint), err)
	}
	plan.FilePath = filePathHint

	// Step 3: Check schema version compatibility.
	if plan.SchemaVersion == "" {
		return nil, harnesserrors.NewValidationError(fmt.Sprintf("plan '%s' is missing required 'schemaVersion' field", filePathHint), nil)
	}
	planSemVer := plan.SchemaVersion
	if !strings.HasPrefix(planSemVer, "v") {
		planSemVer = "v" + planSemVer
	}
	if !semver.IsValid(planSemVer) {
		return nil, harnesserrors.NewValidationError(fmt.Sprintf("plan '%s' has invalid 'schemaVersion' format: '%s'", filePathHint, plan.SchemaVersion), nil)
	}
	if semver.Major(planSemVer) != SupportedSchemaVersionConstraint {
		return nil, harnesserrors.NewValidationError(
			fmt.Sprintf("plan '%s' schemaVersion '%s' is not compatible with harness requirement '%s'",
				filePathHint, plan.SchemaVersion, SupportedSchemaVersionConstraint),
			nil,
		)
	}

	// Step 4: Perform detailed logical validation on the Go struct.
	validationErrs := ValidatePlanStructure(&plan)
	if len(validationErrs) > 0 {
		var errorMessages []string
		for _, vErr := range validationErrs {
			errorMessages = append(errorMessages, vErr.Error())
		}
		combinedMessage := fmt.Sprintf("plan '%s' has %d validation error(s):\n- %s",
			filePathHint, len(errorMessages), strings.Join(errorMessages, "\n- "))
		return nil, harnesserrors.NewValidationError(combinedMessage, validationErrs[0])
	}

	return &plan, nil
}

// LoadPlanFromFile is a convenience function to read a plan from disk.
func LoadPlanFromFile(filePath string) (*Plan, error) {
	if filePath == "" {
		return nil, harnesserrors.NewConfigError("plan file path cannot be empty", nil)
	}
	absPath, err := filepath.Abs(filePath)
	if err != nil {
		return nil, harnesserrors.NewConfigError(fmt.Sprintf("failed to get absolute path for '%s'", filePath), err)
	}
	yamlFile, err := os.ReadFile(absPath)
	if err != nil {
		return nil, harnesserrors.NewConfigError(fmt.Sprintf("failed to read plan file '%s'", absPath), err)
	}
	return LoadPlan(yamlFile, absPath)
}

// yamlUnmarshalStrict provides stricter YAML unmarshalling by disallowing
// unknown fields, so typos in plan files surface early.
func yamlUnmarshalStrict(in []byte, out interface{}) error {
	decoder := yaml.NewDecoder(strings.NewReader(string(in)))
	decoder.KnownFields(true)
	if err := decoder.Decode(out); err != nil {
		return fmt.Errorf("YAML parsing error: %w", err)
	}
	return nil
}
