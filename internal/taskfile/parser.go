// Package taskfile scans a plain-text task file into structured task records
// using a compiled schema's line-recognition patterns.
package taskfile

import (
	"fmt"
	"os"
	"strings"

	"github.com/alex-abrams711/synapse/internal/schema"
)

// FieldValue is one status entry on a task: the raw string from the file and
// the semantic state it normalised to.
type FieldValue struct {
	Raw   string       `json:"raw"`
	State schema.State `json:"state"`
}

// Record is one task found in the file. Records are created fresh on every
// parse and never mutated afterwards.
type Record struct {
	Code        string                `json:"code"`
	Description string                `json:"description"`
	Line        int                   `json:"line"`
	Fields      map[string]FieldValue `json:"fields"`
	Subtasks    []string              `json:"subtasks,omitempty"`
}

// Field returns the value recorded for a semantic field.
func (r *Record) Field(name string) (FieldValue, bool) {
	v, ok := r.Fields[name]
	return v, ok
}

// Parse scans text line by line. A line matching the task pattern opens a new
// record and closes the previous one; status and subtask lines attach to the
// open record. Lines matching nothing are skipped silently — task files
// legitimately contain free prose. Output preserves source order, keeps
// 1-based line numbers, and does not deduplicate repeated codes: surfacing a
// duplicate is the caller's job, papering over it is not.
func Parse(c *schema.Compiled, text string) []Record {
	var records []Record
	var open *Record

	for i, line := range strings.Split(text, "\n") {
		if code, desc, ok := c.MatchTask(line); ok && code != "" {
			records = append(records, Record{
				Code:        code,
				Description: desc,
				Line:        i + 1,
				Fields:      make(map[string]FieldValue),
			})
			open = &records[len(records)-1]
			continue
		}
		if open == nil {
			continue
		}
		if label, value, ok := c.MatchStatusField(line); ok {
			// Unknown raw labels are ignored, not errors: the file may carry
			// fields the schema does not care about.
			field, known := c.Field(label)
			if !known {
				continue
			}
			open.Fields[field] = FieldValue{
				Raw:   value,
				State: c.ResolveState(field, value),
			}
			continue
		}
		if desc, ok := c.MatchSubtask(line); ok {
			open.Subtasks = append(open.Subtasks, desc)
		}
	}
	return records
}

// ParseText validates s, then parses. An invalid schema is refused: the
// records are empty and the returned result carries the fatal issues.
// Parsing never panics or errors beyond that.
func ParseText(s schema.Schema, text string) ([]Record, schema.Result) {
	compiled, result := schema.Compile(s)
	if compiled == nil {
		return nil, result
	}
	return Parse(compiled, text), result
}

// ParseFile reads path once and parses its contents. The os error is
// propagated untouched so callers can distinguish a missing evidence file
// from other failures.
func ParseFile(c *schema.Compiled, path string) ([]Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read task file: %w", err)
	}
	return Parse(c, string(data)), nil
}
