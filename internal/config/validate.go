package config

import (
	"fmt"
	"path/filepath"
	"strings"
)

// ValidationError represents a single validation issue with a config.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// schemaExtensions are the encodings the schema codec understands.
var schemaExtensions = map[string]bool{
	".yaml": true,
	".yml":  true,
	".json": true,
	".toml": true,
}

// Validate checks a GateConfig for structural and semantic errors.
// It returns a slice of all validation errors found (empty if valid).
func Validate(cfg *GateConfig) []ValidationError {
	var errs []ValidationError
	g := cfg.Gate

	if g.TaskFile == "" {
		errs = append(errs, ValidationError{Field: "gate.task_file", Message: "is required"})
	}
	if g.SchemaFile == "" {
		errs = append(errs, ValidationError{Field: "gate.schema_file", Message: "is required"})
	} else if ext := strings.ToLower(filepath.Ext(g.SchemaFile)); !schemaExtensions[ext] {
		errs = append(errs, ValidationError{
			Field:   "gate.schema_file",
			Message: fmt.Sprintf("unsupported extension %q (want .yaml, .yml, .json or .toml)", ext),
		})
	}
	if g.WorkingSetFile == "" {
		errs = append(errs, ValidationError{Field: "gate.working_set_file", Message: "is required"})
	}

	switch g.FailMode {
	case FailModeBlock, FailModeAllow:
	default:
		errs = append(errs, ValidationError{
			Field:   "gate.fail_mode",
			Message: fmt.Sprintf("must be %q or %q, got %q", FailModeBlock, FailModeAllow, g.FailMode),
		})
	}

	for i, cmd := range g.RemediationCommands {
		if strings.TrimSpace(cmd) == "" {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("gate.remediation_commands[%d]", i),
				Message: "must not be empty",
			})
		}
	}

	return errs
}
