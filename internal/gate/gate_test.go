package gate

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/alex-abrams711/synapse/internal/schema"
	"github.com/alex-abrams711/synapse/internal/taskfile"
)

func record(code, desc string, qaState schema.State) taskfile.Record {
	return taskfile.Record{
		Code:        code,
		Description: desc,
		Fields: map[string]taskfile.FieldValue{
			schema.FieldQA: {Raw: string(qaState), State: qaState},
		},
	}
}

func recordNoQA(code, desc string) taskfile.Record {
	return taskfile.Record{
		Code:        code,
		Description: desc,
		Fields:      map[string]taskfile.FieldValue{},
	}
}

func TestEvaluate_AllVerifiedAllows(t *testing.T) {
	records := []taskfile.Record{
		record("T001", "Login", schema.StateVerifiedSuccess),
		record("T002", "Rate limit", schema.StateVerifiedSuccess),
	}
	d := Evaluate(records, []string{"T001", "T002"}, Options{})

	if d.Verdict != VerdictAllow {
		t.Fatalf("verdict = %s, want ALLOW", d.Verdict)
	}
	if d.Directive != "" {
		t.Errorf("allow decision must carry no directive, got %q", d.Directive)
	}
	want := map[string]TaskState{"T001": TaskVerifiedSuccess, "T002": TaskVerifiedSuccess}
	if !reflect.DeepEqual(d.PerTask, want) {
		t.Errorf("per-task = %v, want %v", d.PerTask, want)
	}
}

func TestEvaluate_UnverifiedBlocks(t *testing.T) {
	records := []taskfile.Record{
		record("T001", "Login", schema.StateVerifiedSuccess),
		record("T002", "Rate limit", schema.StateNotVerified),
	}
	d := Evaluate(records, []string{"T001", "T002"}, Options{RemediationCommands: []string{"go test ./..."}})

	if d.Verdict != VerdictBlock {
		t.Fatalf("verdict = %s, want BLOCK", d.Verdict)
	}
	if d.PerTask["T002"] != TaskNotVerified {
		t.Errorf("T002 = %s, want NOT_VERIFIED", d.PerTask["T002"])
	}
	if !strings.Contains(d.Directive, "T002") {
		t.Errorf("directive must name the unverified task:\n%s", d.Directive)
	}
	if strings.Contains(d.Directive, "T001:") {
		t.Errorf("directive must not list verified tasks:\n%s", d.Directive)
	}
	if !strings.Contains(d.Directive, "go test ./...") {
		t.Errorf("directive must carry the remediation commands:\n%s", d.Directive)
	}
}

func TestEvaluate_NotFoundBlocks(t *testing.T) {
	records := []taskfile.Record{record("T001", "Login", schema.StateVerifiedSuccess)}
	d := Evaluate(records, []string{"T001", "T999"}, Options{})

	if d.Verdict != VerdictBlock {
		t.Fatalf("verdict = %s, want BLOCK", d.Verdict)
	}
	if d.PerTask["T999"] != TaskNotFound {
		t.Errorf("T999 = %s, want NOT_FOUND", d.PerTask["T999"])
	}
}

func TestEvaluate_MissingFieldBlocks(t *testing.T) {
	records := []taskfile.Record{recordNoQA("T001", "No QA entry at all")}
	d := Evaluate(records, []string{"T001"}, Options{})

	if d.Verdict != VerdictBlock {
		t.Fatalf("verdict = %s, want BLOCK", d.Verdict)
	}
	if d.PerTask["T001"] != TaskMissingField {
		t.Errorf("T001 = %s, want MISSING_FIELD", d.PerTask["T001"])
	}
}

// A verified failure is a settled outcome: verification ran and produced an
// answer. It never blocks.
func TestEvaluate_VerifiedFailureAllows(t *testing.T) {
	records := []taskfile.Record{
		record("T001", "Login", schema.StateVerifiedSuccess),
		record("T002", "Rate limit", schema.StateVerifiedFailure),
	}
	d := Evaluate(records, []string{"T001", "T002"}, Options{})

	if d.Verdict != VerdictAllow {
		t.Fatalf("verdict = %s, want ALLOW", d.Verdict)
	}
	if d.PerTask["T002"] != TaskVerifiedFailure {
		t.Errorf("T002 = %s, want VERIFIED_FAILURE", d.PerTask["T002"])
	}
}

func TestEvaluate_EmptyWorkingSetAllows(t *testing.T) {
	records := []taskfile.Record{record("T001", "Unverified", schema.StateNotVerified)}
	for _, set := range [][]string{nil, {}, {""}} {
		d := Evaluate(records, set, Options{})
		if d.Verdict != VerdictAllow {
			t.Errorf("working set %v: verdict = %s, want ALLOW", set, d.Verdict)
		}
		if len(d.PerTask) != 0 {
			t.Errorf("working set %v: per-task = %v, want empty", set, d.PerTask)
		}
	}
}

// Tasks outside the working set never influence the verdict.
func TestEvaluate_IgnoresNonMembers(t *testing.T) {
	records := []taskfile.Record{
		record("T001", "Member", schema.StateVerifiedSuccess),
		record("T002", "Outsider", schema.StateNotVerified),
	}
	d := Evaluate(records, []string{"T001"}, Options{})
	if d.Verdict != VerdictAllow {
		t.Errorf("verdict = %s, want ALLOW", d.Verdict)
	}
	if _, present := d.PerTask["T002"]; present {
		t.Error("non-member must not appear in per-task states")
	}
}

// Duplicate records for one code fold to the least-verified interpretation.
func TestEvaluate_DuplicateRecordsFoldConservatively(t *testing.T) {
	records := []taskfile.Record{
		record("T001", "First occurrence", schema.StateVerifiedSuccess),
		record("T001", "Second occurrence", schema.StateNotVerified),
	}
	d := Evaluate(records, []string{"T001"}, Options{})

	if d.Verdict != VerdictBlock {
		t.Fatalf("verdict = %s, want BLOCK", d.Verdict)
	}
	if d.PerTask["T001"] != TaskNotVerified {
		t.Errorf("T001 = %s, want NOT_VERIFIED", d.PerTask["T001"])
	}
}

func TestEvaluate_DuplicateWorkingSetCodes(t *testing.T) {
	records := []taskfile.Record{record("T001", "Login", schema.StateVerifiedSuccess)}
	d := Evaluate(records, []string{"T001", "T001", "T001"}, Options{})
	if len(d.PerTask) != 1 {
		t.Errorf("repeated working-set codes must collapse, got %v", d.PerTask)
	}
}

func TestEvaluate_Idempotent(t *testing.T) {
	records := []taskfile.Record{
		record("T001", "Login", schema.StateVerifiedSuccess),
		record("T002", "Rate limit", schema.StateNotVerified),
	}
	set := []string{"T001", "T002"}
	opts := Options{RemediationCommands: []string{"make verify"}}

	first := Evaluate(records, set, opts)
	second := Evaluate(records, set, opts)
	if !reflect.DeepEqual(first, second) {
		t.Error("evaluating unchanged inputs twice must yield identical decisions")
	}
}

// Widening an allowed working set can only keep it allowed or flip it to
// blocked, never the other way, and verified members stay verified.
func TestEvaluate_Monotone(t *testing.T) {
	records := []taskfile.Record{
		record("T001", "Login", schema.StateVerifiedSuccess),
		record("T002", "Rate limit", schema.StateNotVerified),
	}
	small := Evaluate(records, []string{"T001"}, Options{})
	large := Evaluate(records, []string{"T001", "T002"}, Options{})

	if small.Verdict != VerdictAllow || large.Verdict != VerdictBlock {
		t.Fatalf("small=%s large=%s", small.Verdict, large.Verdict)
	}
	if large.PerTask["T001"] != small.PerTask["T001"] {
		t.Error("adding a member must not change another member's state")
	}
}

func TestEvaluateFile(t *testing.T) {
	c := compiledTestSchema(t)
	path := filepath.Join(t.TempDir(), "tasks.md")
	content := "- [ ] T001: Login\n  QA: [Verified Success]\n- [ ] T002: Limits\n  QA: [Not Verified]\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	d := EvaluateFile(c, path, []string{"T001"}, Options{})
	if d.Verdict != VerdictAllow {
		t.Errorf("verdict = %s, want ALLOW", d.Verdict)
	}

	d = EvaluateFile(c, path, []string{"T002"}, Options{})
	if d.Verdict != VerdictBlock {
		t.Errorf("verdict = %s, want BLOCK", d.Verdict)
	}
}

func TestEvaluateFile_MissingFileBlocks(t *testing.T) {
	c := compiledTestSchema(t)
	d := EvaluateFile(c, filepath.Join(t.TempDir(), "absent.md"), []string{"T001"}, Options{})

	if d.Verdict != VerdictBlock {
		t.Fatalf("verdict = %s, want BLOCK", d.Verdict)
	}
	if d.PerTask["T001"] != TaskNotFound {
		t.Errorf("T001 = %s, want NOT_FOUND", d.PerTask["T001"])
	}
	if !strings.Contains(d.Directive, "could not be read") {
		t.Errorf("directive should explain the unreadable file:\n%s", d.Directive)
	}
}

func TestEvaluateFile_MissingFileEmptySetAllows(t *testing.T) {
	c := compiledTestSchema(t)
	d := EvaluateFile(c, filepath.Join(t.TempDir(), "absent.md"), nil, Options{})
	if d.Verdict != VerdictAllow {
		t.Errorf("verdict = %s, want ALLOW", d.Verdict)
	}
}

func TestFault_FailClosed(t *testing.T) {
	d := Fault([]string{"T001", "T002"}, "schema unreadable", false)

	if d.Verdict != VerdictBlock {
		t.Fatalf("verdict = %s, want BLOCK", d.Verdict)
	}
	for _, code := range []string{"T001", "T002"} {
		if d.PerTask[code] != TaskNotVerified {
			t.Errorf("%s = %s, want NOT_VERIFIED", code, d.PerTask[code])
		}
	}
	if !strings.Contains(d.Directive, "schema unreadable") {
		t.Errorf("directive should carry the cause:\n%s", d.Directive)
	}
}

func TestFault_FailOpen(t *testing.T) {
	d := Fault([]string{"T001"}, "schema unreadable", true)
	if d.Verdict != VerdictAllow {
		t.Fatalf("verdict = %s, want ALLOW", d.Verdict)
	}
	if !strings.Contains(d.Directive, "fail-open") {
		t.Errorf("fail-open decision should say so:\n%s", d.Directive)
	}
}

func TestFault_EmptySetAllowsEitherWay(t *testing.T) {
	for _, failOpen := range []bool{false, true} {
		d := Fault(nil, "anything", failOpen)
		if d.Verdict != VerdictAllow {
			t.Errorf("failOpen=%v: verdict = %s, want ALLOW", failOpen, d.Verdict)
		}
	}
}

func compiledTestSchema(t *testing.T) *schema.Compiled {
	t.Helper()
	s := schema.Schema{
		Version: "1.1",
		Patterns: map[string]schema.Pattern{
			schema.RoleTask: {
				Expression:   `^- \[[ xX]\] (?P<code>T\d{3}): (?P<desc>.+)$`,
				CaptureNames: []string{"code", "desc"},
				Example:      "- [ ] T001: Implement login",
			},
			schema.RoleStatusField: {
				Expression:   `^\s+(?P<label>[A-Za-z ]+): \[(?P<value>[^\]]*)\]$`,
				CaptureNames: []string{"label", "value"},
				Example:      "  QA: [Not Verified]",
			},
		},
		FieldMapping: map[string][]string{
			schema.FieldDev:              {"Dev"},
			schema.FieldQA:               {"QA"},
			schema.FieldUserVerification: {"User Verification"},
		},
		StatusSemantics: map[string]map[string][]string{
			schema.FieldDev: {
				"not_started": {"Not Started"},
				"complete":    {"Complete"},
			},
			schema.FieldQA: {
				"not_verified":             {"Not Verified"},
				"verified_success":         {"Verified Success"},
				"verified_failure_pattern": {"Verified Failure"},
			},
			schema.FieldUserVerification: {
				"not_started": {"Not Started"},
				"complete":    {"Complete"},
			},
		},
		TaskIDFormat: schema.TaskIDFormat{Prefix: "T", Digits: 3, Expression: `T\d{3}`, Example: "T001"},
	}
	c, result := schema.Compile(s)
	if !result.Valid {
		t.Fatalf("test schema should compile: %v", result.Errors)
	}
	return c
}
