// Package gate decides whether an active working set of task codes is fully
// QA-verified. The decision is a pure function of the parsed records, the
// working set, and the caller's options: evaluating twice with unchanged
// inputs yields an identical Decision.
package gate

import (
	"fmt"

	"github.com/alex-abrams711/synapse/internal/directive"
	"github.com/alex-abrams711/synapse/internal/schema"
	"github.com/alex-abrams711/synapse/internal/taskfile"
)

// Verdict is the binary outcome of a gate evaluation.
type Verdict string

const (
	VerdictAllow Verdict = "ALLOW"
	VerdictBlock Verdict = "BLOCK"
)

// TaskState is the per-working-set-member verification state, derived solely
// from the task's qa field.
type TaskState string

const (
	// TaskNotFound: the code is absent from the parsed records.
	TaskNotFound TaskState = "NOT_FOUND"
	// TaskMissingField: the record exists but carries no qa entry.
	TaskMissingField TaskState = "MISSING_FIELD"
	// TaskNotVerified: qa is not_verified, or an unrecognised value that
	// defaulted there.
	TaskNotVerified TaskState = "NOT_VERIFIED"
	// TaskVerifiedSuccess: qa verification passed.
	TaskVerifiedSuccess TaskState = "VERIFIED_SUCCESS"
	// TaskVerifiedFailure: qa verification ran and failed. A completed
	// outcome — it does not block.
	TaskVerifiedFailure TaskState = "VERIFIED_FAILURE"
)

// blocks reports whether a state forces the overall verdict to BLOCK.
// Verified failure is a settled outcome, not absence of verification.
func (s TaskState) blocks() bool {
	switch s {
	case TaskNotFound, TaskMissingField, TaskNotVerified:
		return true
	}
	return false
}

// foldRank orders states so that folding duplicate records for one code is
// conservative: the least-verified interpretation wins.
func foldRank(s TaskState) int {
	switch s {
	case TaskNotVerified:
		return 4
	case TaskMissingField:
		return 3
	case TaskVerifiedFailure:
		return 2
	case TaskVerifiedSuccess:
		return 1
	}
	return 0
}

// Decision is the gate's output. Computed fresh per evaluation, never cached.
type Decision struct {
	Verdict   Verdict              `json:"verdict"`
	PerTask   map[string]TaskState `json:"per_task"`
	Directive string               `json:"directive,omitempty"`
}

// Options carries the caller-supplied directive inputs. The commands are
// opaque strings assembled into the directive text, never executed here.
type Options struct {
	RemediationCommands []string
	ReportTemplate      string
}

// Evaluate derives the verdict for a working set against parsed task records.
// The verdict is BLOCK if and only if at least one member is NOT_FOUND,
// MISSING_FIELD or NOT_VERIFIED. An empty working set always allows.
//
// An unexpected internal fault must never leave the caller without a verdict;
// the gate fails closed (BLOCK) on a recovered panic. Blocking on faults was
// chosen over allowing because a false pass defeats the gate's purpose, while
// a false block is visible and recoverable.
func Evaluate(records []taskfile.Record, workingSet []string, opts Options) (decision Decision) {
	defer func() {
		if r := recover(); r != nil {
			decision = faultDecision(workingSet, fmt.Sprintf("%v", r))
		}
	}()
	return evaluate(records, workingSet, opts)
}

func evaluate(records []taskfile.Record, workingSet []string, opts Options) Decision {
	codes := dedupe(workingSet)
	decision := Decision{
		Verdict: VerdictAllow,
		PerTask: make(map[string]TaskState, len(codes)),
	}
	if len(codes) == 0 {
		return decision
	}

	// Index every record per code. Duplicates are kept: a repeated code folds
	// to its least-verified record.
	byCode := make(map[string][]taskfile.Record, len(records))
	for _, r := range records {
		byCode[r.Code] = append(byCode[r.Code], r)
	}

	var unverified []directive.Task
	for _, code := range codes {
		state, desc := memberState(byCode[code])
		decision.PerTask[code] = state
		if state.blocks() {
			decision.Verdict = VerdictBlock
			unverified = append(unverified, directive.Task{Code: code, Description: desc})
		}
	}

	if decision.Verdict == VerdictBlock {
		text, err := directive.BuildBlock(unverified, opts.RemediationCommands, opts.ReportTemplate)
		if err != nil {
			// Template failure must not cost the caller the verdict.
			text = directive.BuildFault(fmt.Sprintf("directive assembly failed: %v", err))
		}
		decision.Directive = text
	}
	return decision
}

// memberState folds all records sharing one code into a single state plus the
// description used in directives.
func memberState(records []taskfile.Record) (TaskState, string) {
	if len(records) == 0 {
		return TaskNotFound, ""
	}
	state := TaskState("")
	desc := records[0].Description
	for _, r := range records {
		rs := recordState(r)
		if foldRank(rs) > foldRank(state) {
			state = rs
			desc = r.Description
		}
	}
	return state, desc
}

// recordState maps one record's qa field to a gate state.
func recordState(r taskfile.Record) TaskState {
	qa, ok := r.Field(schema.FieldQA)
	if !ok {
		return TaskMissingField
	}
	switch qa.State {
	case schema.StateVerifiedSuccess:
		return TaskVerifiedSuccess
	case schema.StateVerifiedFailure:
		return TaskVerifiedFailure
	default:
		return TaskNotVerified
	}
}

// EvaluateFile reads and parses the backing task file, then evaluates.
// A backing file that cannot be read while the working set is non-empty is
// BLOCK: absence of evidence is absence of verification, not a pass.
func EvaluateFile(c *schema.Compiled, path string, workingSet []string, opts Options) Decision {
	codes := dedupe(workingSet)
	if len(codes) == 0 {
		return Decision{Verdict: VerdictAllow, PerTask: map[string]TaskState{}}
	}

	records, err := taskfile.ParseFile(c, path)
	if err != nil {
		decision := Decision{
			Verdict: VerdictBlock,
			PerTask: make(map[string]TaskState, len(codes)),
		}
		for _, code := range codes {
			decision.PerTask[code] = TaskNotFound
		}
		var members []directive.Task
		for _, code := range codes {
			members = append(members, directive.Task{Code: code})
		}
		text, derr := directive.BuildBlock(members, opts.RemediationCommands, opts.ReportTemplate)
		if derr != nil {
			text = directive.BuildFault(fmt.Sprintf("directive assembly failed: %v", derr))
		}
		decision.Directive = fmt.Sprintf("Task file %q could not be read: %v\n\n%s", path, err, text)
		return decision
	}
	return Evaluate(records, codes, opts)
}

// Fault resolves an unanticipated fault (unreadable schema, configuration
// breakage) to a verdict according to the caller's configured fail mode.
// failOpen trades the risk of a false pass for never deadlocking the caller;
// the default everywhere is fail-closed.
func Fault(workingSet []string, cause string, failOpen bool) Decision {
	if failOpen {
		return Decision{
			Verdict:   VerdictAllow,
			PerTask:   map[string]TaskState{},
			Directive: "verification gate fault (fail-open): " + cause,
		}
	}
	return faultDecision(workingSet, cause)
}

// faultDecision is the fail-closed result for a recovered internal fault.
func faultDecision(workingSet []string, cause string) Decision {
	codes := dedupe(workingSet)
	if len(codes) == 0 {
		// An empty working set has nothing to verify even when the gate
		// itself misbehaves.
		return Decision{Verdict: VerdictAllow, PerTask: map[string]TaskState{}}
	}
	decision := Decision{
		Verdict:   VerdictBlock,
		PerTask:   make(map[string]TaskState, len(codes)),
		Directive: directive.BuildFault(cause),
	}
	for _, code := range codes {
		decision.PerTask[code] = TaskNotVerified
	}
	return decision
}

// dedupe collapses repeated codes while preserving the caller's order.
func dedupe(codes []string) []string {
	seen := make(map[string]bool, len(codes))
	var out []string
	for _, c := range codes {
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out
}
