package config

// FailMode values: the verdict the gate resolves to when it hits an
// unexpected internal fault. Failing closed is the default.
const (
	FailModeBlock = "block"
	FailModeAllow = "allow"
)

// GateConfig is the top-level configuration structure parsed from YAML.
type GateConfig struct {
	Gate Gate `yaml:"gate"`
}

// Gate defines where the verification evidence lives and what a blocking
// directive should tell the agent to run.
type Gate struct {
	// TaskFile is the checklist file the gate reads as evidence.
	TaskFile string `yaml:"task_file"`
	// SchemaFile is the task-schema document describing the file's shape.
	SchemaFile string `yaml:"schema_file"`
	// WorkingSetFile persists the currently active task codes.
	WorkingSetFile string `yaml:"working_set_file"`
	// RemediationCommands are opaque strings included in blocking
	// directives. They are never executed by this program.
	RemediationCommands []string `yaml:"remediation_commands"`
	// ReportTemplate overrides the built-in completion-report template
	// when non-empty.
	ReportTemplate string `yaml:"report_template"`
	// FailMode is "block" (default) or "allow".
	FailMode string `yaml:"fail_mode"`
}
