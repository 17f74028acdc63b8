package schema

import (
	"regexp"
	"strings"
)

// Capture-name priority lists. Version 1.0 schemas used verbose capture names;
// 1.1 introduced the short forms. When an expression defines both, the short
// name wins. Resolution happens exactly once, at compile time, never per line.
var (
	codeCapturePriority  = []string{"code", "task_code"}
	descCapturePriority  = []string{"desc", "description", "task_description"}
	labelCapturePriority = []string{"label", "field_label", "field_name"}
	valueCapturePriority = []string{"value", "field_value", "status_value"}
)

// Compiled is a schema whose patterns have been compiled and whose lookup
// tables have been built. It can only be obtained through Compile, which
// validates first; holding a *Compiled is proof the schema passed validation.
type Compiled struct {
	Source Schema

	task        *regexp.Regexp
	subtask     *regexp.Regexp
	statusField *regexp.Regexp
	taskID      *regexp.Regexp

	taskCodeIdx    int
	taskDescIdx    int
	subtaskDescIdx int
	labelIdx       int
	valueIdx       int

	labelToField    map[string]string            // lowercased raw label -> semantic field
	exactStates     map[string]map[string]State  // field -> lowercased raw value -> state
	failurePrefixes map[string][]string          // field -> lowercased failure-marker prefixes
}

// Compile validates s and builds its compiled form. The returned Result
// carries every issue found; Compiled is nil unless Result.Valid.
func Compile(s Schema) (*Compiled, Result) {
	result := Validate(s)
	if !result.Valid {
		return nil, result
	}

	c := &Compiled{
		Source:          s,
		labelToField:    make(map[string]string),
		exactStates:     make(map[string]map[string]State),
		failurePrefixes: make(map[string][]string),
	}

	// Validation guarantees these compile.
	c.task = regexp.MustCompile(s.Patterns[RoleTask].Expression)
	c.statusField = regexp.MustCompile(s.Patterns[RoleStatusField].Expression)
	if p, ok := s.Patterns[RoleSubtask]; ok {
		c.subtask = regexp.MustCompile(p.Expression)
		c.subtaskDescIdx = captureIndex(c.subtask, descCapturePriority)
	} else {
		c.subtaskDescIdx = -1
	}
	c.taskID = regexp.MustCompile(s.TaskIDFormat.Expression)

	c.taskCodeIdx = captureIndex(c.task, codeCapturePriority)
	c.taskDescIdx = captureIndex(c.task, descCapturePriority)
	c.labelIdx = captureIndex(c.statusField, labelCapturePriority)
	c.valueIdx = captureIndex(c.statusField, valueCapturePriority)

	for field, labels := range s.FieldMapping {
		for _, label := range labels {
			c.labelToField[strings.ToLower(strings.TrimSpace(label))] = field
		}
	}

	for field, states := range s.StatusSemantics {
		exact := make(map[string]State)
		for state, values := range states {
			if State(state) == StateVerifiedFailure {
				// Failure markers match by prefix so trailing reason text
				// ("Verified Failure - timeout on login") still classifies.
				for _, v := range values {
					c.failurePrefixes[field] = append(c.failurePrefixes[field], strings.ToLower(strings.TrimSpace(v)))
				}
				continue
			}
			for _, v := range values {
				exact[strings.ToLower(strings.TrimSpace(v))] = State(state)
			}
		}
		c.exactStates[field] = exact
	}

	return c, result
}

// captureIndex resolves a capture role against a compiled expression using
// the role's fixed priority list. Returns the subexpression index, or -1 if
// the expression defines none of the candidate names.
func captureIndex(re *regexp.Regexp, priority []string) int {
	names := re.SubexpNames()
	for _, want := range priority {
		for i, name := range names {
			if name == want {
				return i
			}
		}
	}
	return -1
}

// MatchTask matches a line against the task pattern. On success it returns
// the captured task code and description.
func (c *Compiled) MatchTask(line string) (code, desc string, ok bool) {
	m := c.task.FindStringSubmatch(line)
	if m == nil {
		return "", "", false
	}
	if c.taskCodeIdx >= 0 && c.taskCodeIdx < len(m) {
		code = strings.TrimSpace(m[c.taskCodeIdx])
	}
	if c.taskDescIdx >= 0 && c.taskDescIdx < len(m) {
		desc = strings.TrimSpace(m[c.taskDescIdx])
	}
	return code, desc, true
}

// MatchStatusField matches a line against the status_field pattern and
// returns the raw label and raw value captures.
func (c *Compiled) MatchStatusField(line string) (label, value string, ok bool) {
	m := c.statusField.FindStringSubmatch(line)
	if m == nil {
		return "", "", false
	}
	if c.labelIdx >= 0 && c.labelIdx < len(m) {
		label = strings.TrimSpace(m[c.labelIdx])
	}
	if c.valueIdx >= 0 && c.valueIdx < len(m) {
		value = strings.TrimSpace(m[c.valueIdx])
	}
	return label, value, true
}

// MatchSubtask matches a line against the optional subtask pattern. Always
// false when the schema defines no subtask pattern.
func (c *Compiled) MatchSubtask(line string) (desc string, ok bool) {
	if c.subtask == nil {
		return "", false
	}
	m := c.subtask.FindStringSubmatch(line)
	if m == nil {
		return "", false
	}
	if c.subtaskDescIdx >= 0 && c.subtaskDescIdx < len(m) {
		desc = strings.TrimSpace(m[c.subtaskDescIdx])
	}
	return desc, true
}

// Field resolves a raw field label to its semantic field. Unknown labels
// return ok=false; the caller skips those lines rather than erroring.
func (c *Compiled) Field(rawLabel string) (field string, ok bool) {
	field, ok = c.labelToField[strings.ToLower(strings.TrimSpace(rawLabel))]
	return field, ok
}

// ResolveState normalises a raw status value into the field's semantic state.
// Failure-marker prefixes are checked first, then exact (case-insensitive)
// matches; anything unrecognised classifies to the conservative end of the
// field's scheme, never to success.
func (c *Compiled) ResolveState(field, rawValue string) State {
	v := strings.ToLower(strings.TrimSpace(rawValue))
	for _, prefix := range c.failurePrefixes[field] {
		if prefix != "" && strings.HasPrefix(v, prefix) {
			return StateVerifiedFailure
		}
	}
	if state, ok := c.exactStates[field][v]; ok {
		return state
	}
	return ConservativeState(field)
}

// TaskIDPattern returns the compiled task-code expression.
func (c *Compiled) TaskIDPattern() *regexp.Regexp {
	return c.taskID
}
