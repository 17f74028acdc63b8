package schema

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"
)

// Severity of a validation issue.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Issue is a single validation finding, suitable for direct display.
type Issue struct {
	Severity Severity `json:"severity"`
	Location string   `json:"location"`
	Message  string   `json:"message"`
}

func (i Issue) String() string {
	if i.Location == "" {
		return fmt.Sprintf("[%s] %s", i.Severity, i.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", i.Severity, i.Location, i.Message)
}

// Result is the outcome of validating a schema document.
type Result struct {
	Valid    bool
	Errors   []Issue
	Warnings []Issue
}

func (r *Result) addError(location, format string, args ...interface{}) {
	r.Valid = false
	r.Errors = append(r.Errors, Issue{Severity: SeverityError, Location: location, Message: fmt.Sprintf(format, args...)})
}

func (r *Result) addWarning(location, format string, args ...interface{}) {
	r.Warnings = append(r.Warnings, Issue{Severity: SeverityWarning, Location: location, Message: fmt.Sprintf(format, args...)})
}

// Err returns a single error summarising the result, or nil if valid.
func (r *Result) Err() error {
	if r.Valid {
		return nil
	}
	if len(r.Errors) == 1 {
		return fmt.Errorf("invalid schema: %s", r.Errors[0])
	}
	return fmt.Errorf("invalid schema: %d error(s), first: %s", len(r.Errors), r.Errors[0])
}

//go:embed document.schema.json
var structuralSchemaDoc string

// structuralSchema validates the coarse document shape (required keys, value
// types) before any semantic checks run. Compiled once at init.
var structuralSchema = func() *jsonschema.Schema {
	c := jsonschema.NewCompiler()
	if err := c.AddResource("document.schema.json", strings.NewReader(structuralSchemaDoc)); err != nil {
		panic(fmt.Sprintf("add embedded schema resource: %v", err))
	}
	return c.MustCompile("document.schema.json")
}()

// Validate checks a schema document for structural completeness and internal
// semantic consistency. It is a pure function of its input: no I/O, no state.
//
// Checks run in order and short-circuit on fatal structural failures:
//  1. document shape (against the embedded JSON Schema) and supported version
//  2. mandatory patterns present and each pattern descriptor individually valid
//  3. field_mapping completeness and raw-label ownership
//  4. status_semantics coverage per field scheme
//  5. task_id_format internal consistency
func Validate(s Schema) Result {
	result := Result{Valid: true}

	// Structural shape. The document struct is marshalled back to JSON and
	// checked against the embedded JSON Schema, which reports missing keys
	// and wrong types with their document paths.
	if ok := validateStructure(s, &result); !ok {
		return result
	}

	// 1. Version.
	if !versionSupported(s.Version) {
		result.addError("version", "unsupported schema version %q (supported: %s)",
			s.Version, strings.Join(SupportedVersions, ", "))
		return result
	}

	// 2. Pattern descriptors.
	for _, role := range []string{RoleTask, RoleStatusField} {
		if _, ok := s.Patterns[role]; !ok {
			result.addError("patterns."+role, "required pattern is missing")
		}
	}
	for _, role := range sortedKeys(s.Patterns) {
		validatePattern(role, s.Patterns[role], &result)
	}

	// 3. Field mapping.
	rawOwner := make(map[string]string) // lowercased raw label -> owning field
	for _, field := range sortedKeys(s.FieldMapping) {
		labels := s.FieldMapping[field]
		loc := "field_mapping." + field
		if len(labels) == 0 {
			result.addError(loc, "must list at least one raw label")
			continue
		}
		for _, label := range labels {
			key := strings.ToLower(strings.TrimSpace(label))
			if key == "" {
				result.addError(loc, "raw label must not be empty")
				continue
			}
			if owner, dup := rawOwner[key]; dup && owner != field {
				result.addError(loc, "raw label %q is already claimed by field %q", label, owner)
				continue
			}
			rawOwner[key] = field
		}
	}
	for _, field := range sortedKeys(s.StatusSemantics) {
		if _, ok := s.FieldMapping[field]; !ok {
			result.addError("field_mapping", "field %q is referenced in status_semantics but has no mapping entry", field)
		}
	}

	// 4. Status semantics.
	for _, field := range sortedKeys(s.FieldMapping) {
		loc := "status_semantics." + field
		states, ok := s.StatusSemantics[field]
		if !ok {
			result.addError(loc, "field has no status_semantics entry")
			continue
		}
		for _, required := range requiredStates(field) {
			if _, ok := states[string(required)]; !ok {
				result.addError(loc, "missing required state %q", required)
			}
		}
		for _, state := range sortedKeys(states) {
			if !knownState(field, state) {
				result.addWarning(loc+"."+state, "unrecognised state key for field %q", field)
			}
			if len(states[state]) == 0 {
				result.addError(loc+"."+state, "state must map to at least one raw value")
			}
		}
	}

	// 5. Task ID format.
	validateTaskIDFormat(s.TaskIDFormat, &result)

	return result
}

// validateStructure runs the embedded JSON Schema over the document. Returns
// false if fatal shape errors were found, in which case semantic checks are
// skipped.
func validateStructure(s Schema, result *Result) bool {
	data, err := json.Marshal(s)
	if err != nil {
		result.addError("", "marshal schema for structural validation: %v", err)
		return false
	}
	var doc interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		result.addError("", "unmarshal schema for structural validation: %v", err)
		return false
	}
	if err := structuralSchema.Validate(doc); err != nil {
		collectStructuralErrors(result, err)
		return false
	}
	return true
}

func collectStructuralErrors(result *Result, err error) {
	ve, ok := err.(*jsonschema.ValidationError)
	if !ok {
		result.addError("", "%v", err)
		return
	}
	flattenStructuralError(result, ve)
}

func flattenStructuralError(result *Result, err *jsonschema.ValidationError) {
	if err == nil {
		return
	}
	if len(err.Causes) == 0 {
		result.addError(pointerToLocation(err.InstanceLocation), "%s", err.Message)
		return
	}
	for _, cause := range err.Causes {
		flattenStructuralError(result, cause)
	}
}

// pointerToLocation converts a JSON pointer like /patterns/task/expression to
// the dotted location form used in Issue.Location.
func pointerToLocation(ptr string) string {
	ptr = strings.TrimPrefix(ptr, "#")
	ptr = strings.TrimPrefix(ptr, "/")
	if ptr == "" {
		return ""
	}
	parts := strings.Split(ptr, "/")
	var location string
	for _, part := range parts {
		part = strings.ReplaceAll(part, "~1", "/")
		part = strings.ReplaceAll(part, "~0", "~")
		if part == "" {
			continue
		}
		if idx, err := strconv.Atoi(part); err == nil {
			location += fmt.Sprintf("[%d]", idx)
			continue
		}
		if location == "" {
			location = part
		} else {
			location += "." + part
		}
	}
	return location
}

// validatePattern checks a single pattern descriptor: the expression must
// compile, every declared capture name must exist as a named group in the
// expression (mismatch is fatal; the reverse is only a warning), and the
// example line must match.
func validatePattern(role string, p Pattern, result *Result) {
	loc := "patterns." + role

	re, err := regexp.Compile(p.Expression)
	if err != nil {
		result.addError(loc+".expression", "does not compile: %v", err)
		return
	}

	actual := make(map[string]bool)
	for _, name := range re.SubexpNames() {
		if name != "" {
			actual[name] = true
		}
	}
	declared := make(map[string]bool)
	for _, name := range p.CaptureNames {
		declared[name] = true
		if !actual[name] {
			result.addError(loc+".capture_names", "declared capture %q is not a named group in the expression", name)
		}
	}
	for name := range actual {
		if !declared[name] {
			result.addWarning(loc+".capture_names", "expression defines capture %q that is not declared", name)
		}
	}

	if p.Example == "" {
		result.addError(loc+".example", "example line is required")
		return
	}
	if !re.MatchString(p.Example) {
		result.addError(loc+".example", "example %q does not match the expression", p.Example)
	}
}

func validateTaskIDFormat(f TaskIDFormat, result *Result) {
	if f.Digits <= 0 {
		result.addError("task_id_format.digits", "digit count must be positive, got %d", f.Digits)
	}
	re, err := regexp.Compile(f.Expression)
	if err != nil {
		result.addError("task_id_format.expression", "does not compile: %v", err)
		return
	}
	if !re.MatchString(f.Example) {
		result.addError("task_id_format.example", "example %q does not match the expression", f.Example)
	}
	if f.Prefix != "" && !strings.HasPrefix(f.Example, f.Prefix) {
		result.addError("task_id_format.example", "example %q does not start with prefix %q", f.Example, f.Prefix)
	}
}

// sortedKeys returns map keys in sorted order so validation output is stable.
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// knownState reports whether a state key belongs to the field's scheme.
func knownState(field, state string) bool {
	if field == FieldQA {
		switch State(state) {
		case StateNotVerified, StateVerifiedSuccess, StateVerifiedFailure:
			return true
		}
		return false
	}
	switch State(state) {
	case StateNotStarted, StateInProgress, StateComplete:
		return true
	}
	return false
}
