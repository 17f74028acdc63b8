// Package schema defines the task-schema document: the declarative description
// of how tasks and status fields are recognised in a project's task file.
// Schemas are validated before use; downstream packages only consume the
// Compiled form produced by Compile.
package schema

// Pattern-role names used in Schema.Patterns. RoleTask and RoleStatusField
// are mandatory; RoleSubtask is optional.
const (
	RoleTask        = "task"
	RoleSubtask     = "subtask"
	RoleStatusField = "status_field"
)

// Semantic field names. Raw labels from the file are mapped onto these via
// Schema.FieldMapping; labels that match no built-in field become custom
// fields named after their normalised label.
const (
	FieldDev              = "dev"
	FieldQA               = "qa"
	FieldUserVerification = "user_verification"
)

// State is a normalised status value within a semantic field's vocabulary.
type State string

// Three-state scheme used by the qa field.
const (
	StateNotVerified     State = "not_verified"
	StateVerifiedSuccess State = "verified_success"
	StateVerifiedFailure State = "verified_failure_pattern"
)

// Progress scheme used by every other field. StateInProgress is optional for
// binary fields.
const (
	StateNotStarted State = "not_started"
	StateInProgress State = "in_progress"
	StateComplete   State = "complete"
)

// SupportedVersions is the set of schema document versions this engine
// understands. Version 1.0 used verbose capture names (task_code,
// task_description, field_label, field_value); 1.1 introduced the short
// forms (code, desc, label, value). Both capture vocabularies are accepted
// regardless of version; see compile.go for the resolution order.
var SupportedVersions = []string{"1.0", "1.1"}

// CurrentVersion is the version emitted by the generator.
const CurrentVersion = "1.1"

// Pattern is a single line-recognition rule: a regular expression, the named
// captures the parser is allowed to rely on, and a line that must match.
type Pattern struct {
	Expression   string   `yaml:"expression" json:"expression" toml:"expression"`
	CaptureNames []string `yaml:"capture_names" json:"capture_names" toml:"capture_names"`
	Example      string   `yaml:"example" json:"example" toml:"example"`
}

// TaskIDFormat describes how task codes look independent of the task-line
// pattern, so codes can be detected inside prose or working-set input.
type TaskIDFormat struct {
	Prefix     string `yaml:"prefix" json:"prefix" toml:"prefix"`
	Digits     int    `yaml:"digits" json:"digits" toml:"digits"`
	Expression string `yaml:"expression" json:"expression" toml:"expression"`
	Example    string `yaml:"example" json:"example" toml:"example"`
}

// SelfTest records the outcome of the generator's reparse check: how much of
// the sample the freshly built schema could actually parse.
type SelfTest struct {
	MatchRate float64 `yaml:"match_rate" json:"match_rate" toml:"match_rate"`
	TaskCount int     `yaml:"task_count" json:"task_count" toml:"task_count"`
	Passed    bool    `yaml:"passed" json:"passed" toml:"passed"`
}

// Metadata carries provenance and confidence diagnostics for generated
// schemas. Hand-authored schemas normally omit it.
type Metadata struct {
	GeneratedFrom string  `yaml:"generated_from,omitempty" json:"generated_from,omitempty" toml:"generated_from,omitempty"`
	Format        string  `yaml:"format,omitempty" json:"format,omitempty" toml:"format,omitempty"`
	SampleLines   int     `yaml:"sample_lines,omitempty" json:"sample_lines,omitempty" toml:"sample_lines,omitempty"`
	Confidence    float64 `yaml:"confidence" json:"confidence" toml:"confidence"`
}

// Schema is the full task-schema document. It is plain data; nothing in it is
// trusted until Validate has passed and Compile has produced a Compiled value.
type Schema struct {
	Version         string                        `yaml:"version" json:"version" toml:"version"`
	Patterns        map[string]Pattern            `yaml:"patterns" json:"patterns" toml:"patterns"`
	FieldMapping    map[string][]string           `yaml:"field_mapping" json:"field_mapping" toml:"field_mapping"`
	StatusSemantics map[string]map[string][]string `yaml:"status_semantics" json:"status_semantics" toml:"status_semantics"`
	TaskIDFormat    TaskIDFormat                  `yaml:"task_id_format" json:"task_id_format" toml:"task_id_format"`
	Validation      *SelfTest                     `yaml:"validation,omitempty" json:"validation,omitempty" toml:"validation,omitempty"`
	Metadata        *Metadata                     `yaml:"metadata,omitempty" json:"metadata,omitempty" toml:"metadata,omitempty"`
}

// versionSupported reports whether v is in SupportedVersions.
func versionSupported(v string) bool {
	for _, s := range SupportedVersions {
		if s == v {
			return true
		}
	}
	return false
}

// requiredStates returns the state keys a field's status_semantics entry must
// cover. The qa field uses the three-state verification scheme; every other
// field needs at least the two ends of the progress scheme.
func requiredStates(field string) []State {
	if field == FieldQA {
		return []State{StateNotVerified, StateVerifiedSuccess, StateVerifiedFailure}
	}
	return []State{StateNotStarted, StateComplete}
}

// ConservativeState returns the "not done" end of a field's scheme: the state
// an unrecognised raw value must classify to. Optimistic defaulting is
// forbidden.
func ConservativeState(field string) State {
	if field == FieldQA {
		return StateNotVerified
	}
	return StateNotStarted
}
