package directive

import (
	"fmt"
	"strings"
)

// blockTemplate is the directive emitted on a blocking verdict. It names the
// not-yet-verified tasks, the remediation commands the agent is expected to
// run, and the completion report it must fill in afterwards. Tasks whose
// verification already failed are settled outcomes and are deliberately not
// re-listed.
const blockTemplate = `VERIFICATION REQUIRED — {{count}} task(s) in the active working set are not yet QA-verified.

Unverified tasks:
{{tasks}}
{{#if commands}}
Run the required verification checks:
{{commands}}
{{/if}}
For each task above, verify the implementation, update its QA status in the task file ("Verified Success" or "Verified Failure - <reason>"), then report:

{{report}}`

// completionReportTemplate is the fixed report the agent fills in once it
// finishes verification. Callers may override it through configuration.
const completionReportTemplate = `## Verification Report
- Task: <code> — <description>
- Checks run: <commands and outcomes>
- QA result: <Verified Success | Verified Failure - reason>
- Evidence: <test output, screenshots, or file references>`

// internalFaultTemplate is used when the gate hits an unexpected internal
// fault and resolves to its fail-closed verdict.
const internalFaultTemplate = `VERIFICATION GATE FAULT — the gate could not complete its evaluation and is failing closed.

Cause: {{cause}}

Do not treat the working set as verified. Fix the underlying problem (task file, schema, or configuration) and re-run the gate.`

// Task is one unverified working-set member to be named in the directive.
type Task struct {
	Code        string
	Description string
}

// BuildBlock assembles the blocking directive for the given unverified tasks.
// commands are opaque caller-supplied strings; reportTemplate overrides the
// built-in completion report when non-empty.
func BuildBlock(tasks []Task, commands []string, reportTemplate string) (string, error) {
	var taskLines []string
	for _, t := range tasks {
		if t.Description == "" {
			taskLines = append(taskLines, fmt.Sprintf("- %s", t.Code))
			continue
		}
		taskLines = append(taskLines, fmt.Sprintf("- %s: %s", t.Code, t.Description))
	}

	var commandLines []string
	for _, c := range commands {
		commandLines = append(commandLines, "- "+c)
	}

	report := reportTemplate
	if report == "" {
		report = completionReportTemplate
	}

	return Render(blockTemplate, Vars{
		"count":    fmt.Sprintf("%d", len(tasks)),
		"tasks":    strings.Join(taskLines, "\n"),
		"commands": strings.Join(commandLines, "\n"),
		"report":   report,
	})
}

// BuildFault assembles the fail-closed directive for an internal fault.
func BuildFault(cause string) string {
	out, err := Render(internalFaultTemplate, Vars{"cause": cause})
	if err != nil {
		// The fault template has no conditionals and one variable; if it
		// still fails, fall back to the bare cause.
		return "VERIFICATION GATE FAULT — failing closed: " + cause
	}
	return out
}
