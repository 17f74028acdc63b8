package schema

import (
	"fmt"
	"math"
	"regexp"
	"strings"
)

// DefaultMaxSampleLines bounds how much of a sample file the generator reads,
// keeping cost predictable on large task files.
const DefaultMaxSampleLines = 500

// minFormatRatio is the fraction of non-blank lines a list style must reach
// before the generator commits to it; below this the format is "custom".
const minFormatRatio = 0.05

// selfTestPassRate is the reparse match rate a generated schema must reach
// for its recorded self-test to count as passed.
const selfTestPassRate = 0.9

// File format labels recorded in Metadata.Format.
const (
	FormatChecklist  = "checklist"
	FormatEnumerated = "enumerated"
	FormatCustom     = "custom"
)

// GenerateOptions configures schema generation.
type GenerateOptions struct {
	// MaxSampleLines bounds the sample; 0 means DefaultMaxSampleLines.
	MaxSampleLines int
	// Source is recorded in the generated metadata for provenance.
	Source string
}

var (
	checklistLineRe  = regexp.MustCompile(`^\s*[-*+]\s*\[[ xX~]?\]`)
	enumeratedLineRe = regexp.MustCompile(`^\s*\d+[.)]\s+`)
	idTokenRe        = regexp.MustCompile(`\b([A-Za-z]{1,6})([-_]?)(\d{2,6})\b`)
	labelValueRe     = regexp.MustCompile(`^\s*(?:[-*+]\s*)?([A-Za-z][A-Za-z0-9 _/()-]*?)\s*:\s*\[([^\]]*)\]\s*$`)
)

// Generate infers a schema from a sample of an actual task file. It is
// best-effort and never fails: malformed or empty input yields the minimal
// generic schema pinned to the lowest confidence band.
func Generate(sample string, opts GenerateOptions) Schema {
	maxLines := opts.MaxSampleLines
	if maxLines <= 0 {
		maxLines = DefaultMaxSampleLines
	}
	lines := strings.Split(sample, "\n")
	if len(lines) > maxLines {
		lines = lines[:maxLines]
	}

	format := detectFormat(lines)
	idFormat, detectedLines := inferTaskIDFormat(lines)
	buckets := harvestLabels(lines)

	s := Schema{
		Version:         CurrentVersion,
		Patterns:        buildPatterns(format, idFormat),
		TaskIDFormat:    idFormat,
		FieldMapping:    make(map[string][]string),
		StatusSemantics: make(map[string]map[string][]string),
	}
	seedDefaultFields(&s)
	for _, bucket := range buckets {
		field := classifyFieldLabel(bucket.label)
		addFieldLabel(&s, field, bucket.label)
		for _, value := range bucket.values {
			addFieldValue(&s, field, value)
		}
	}

	// Self-test: reparse the sample with the freshly built schema and record
	// how much of it the task pattern actually recognises.
	parsed := 0
	if compiled, result := Compile(s); result.Valid {
		for _, line := range lines {
			if code, _, ok := compiled.MatchTask(line); ok && code != "" {
				parsed++
			}
		}
	}
	if parsed == 0 {
		return minimalSchema(opts, len(lines))
	}

	matchRate := 1.0
	if detectedLines > 0 {
		matchRate = math.Min(1, float64(parsed)/float64(detectedLines))
	}
	s.Validation = &SelfTest{
		MatchRate: round2(matchRate),
		TaskCount: parsed,
		Passed:    matchRate >= selfTestPassRate,
	}
	// Confidence weighs match rate over sample size; size saturates once the
	// sample holds at least ten recognised tasks.
	sizeScore := math.Min(1, float64(parsed)/10)
	s.Metadata = &Metadata{
		GeneratedFrom: opts.Source,
		Format:        format,
		SampleLines:   len(lines),
		Confidence:    round2(0.6*matchRate + 0.4*sizeScore),
	}
	return s
}

// detectFormat counts checklist-style against enumerated-list lines and picks
// the style with the higher proportional count. Ties favour checklist; if
// neither clears minFormatRatio the format is custom.
func detectFormat(lines []string) string {
	nonBlank, checklist, enumerated := 0, 0, 0
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		nonBlank++
		if checklistLineRe.MatchString(line) {
			checklist++
		} else if enumeratedLineRe.MatchString(line) {
			enumerated++
		}
	}
	if nonBlank == 0 {
		return FormatCustom
	}
	checklistRatio := float64(checklist) / float64(nonBlank)
	enumeratedRatio := float64(enumerated) / float64(nonBlank)
	switch {
	case checklistRatio >= enumeratedRatio && checklistRatio >= minFormatRatio:
		return FormatChecklist
	case enumeratedRatio > checklistRatio && enumeratedRatio >= minFormatRatio:
		return FormatEnumerated
	default:
		return FormatCustom
	}
}

// inferTaskIDFormat finds the most frequent prefix-plus-digit-run token shape
// in the sample. Ties break toward the shape seen first, so inference is
// deterministic. Falls back to T + three digits when nothing qualifies.
// The second return value is the number of sample lines containing the chosen
// shape, used as the denominator of the self-test match rate.
func inferTaskIDFormat(lines []string) (TaskIDFormat, int) {
	type shape struct {
		prefix string
		sep    string
		digits int
	}
	counts := make(map[shape]int)
	var order []shape

	for _, line := range lines {
		for _, m := range idTokenRe.FindAllStringSubmatch(line, -1) {
			sh := shape{prefix: m[1], sep: m[2], digits: len(m[3])}
			if counts[sh] == 0 {
				order = append(order, sh)
			}
			counts[sh]++
		}
	}

	best := shape{prefix: "T", digits: 3}
	bestCount := 0
	for _, sh := range order {
		if counts[sh] > bestCount {
			best = sh
			bestCount = counts[sh]
		}
	}

	expr := regexp.QuoteMeta(best.prefix+best.sep) + fmt.Sprintf(`\d{%d}`, best.digits)
	format := TaskIDFormat{
		Prefix:     best.prefix,
		Digits:     best.digits,
		Expression: expr,
		Example:    fmt.Sprintf("%s%s%0*d", best.prefix, best.sep, best.digits, 1),
	}

	detected := 0
	if bestCount > 0 {
		re := regexp.MustCompile(expr)
		for _, line := range lines {
			if re.MatchString(line) {
				detected++
			}
		}
	}
	return format, detected
}

// labelBucket groups the observed raw values for one raw field label,
// preserving first-seen order.
type labelBucket struct {
	label  string
	values []string
}

// harvestLabels scans for label: [value] occurrences and buckets values by
// raw label (case-insensitive, first spelling wins).
func harvestLabels(lines []string) []labelBucket {
	var buckets []labelBucket
	index := make(map[string]int)

	for _, line := range lines {
		m := labelValueRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		label := strings.TrimSpace(m[1])
		value := strings.TrimSpace(m[2])
		key := strings.ToLower(label)
		i, ok := index[key]
		if !ok {
			index[key] = len(buckets)
			buckets = append(buckets, labelBucket{label: label})
			i = len(buckets) - 1
		}
		if value != "" && !containsFold(buckets[i].values, value) {
			buckets[i].values = append(buckets[i].values, value)
		}
	}
	return buckets
}

// buildPatterns assembles the pattern set for the detected file format, with
// the inferred task-code expression embedded in the task pattern.
func buildPatterns(format string, id TaskIDFormat) map[string]Pattern {
	statusIndented := Pattern{
		Expression:   `^\s+(?:[-*+]\s*)?(?P<label>[A-Za-z][A-Za-z0-9 _/()-]*?)\s*:\s*\[(?P<value>[^\]]*)\]\s*$`,
		CaptureNames: []string{"label", "value"},
		Example:      "  Dev: [Complete]",
	}

	switch format {
	case FormatChecklist:
		return map[string]Pattern{
			RoleTask: {
				Expression:   `^\s*[-*+]\s*\[[^\]]*\]\s*(?P<code>` + id.Expression + `)\s*[:.\-]?\s*(?P<desc>.+)$`,
				CaptureNames: []string{"code", "desc"},
				Example:      fmt.Sprintf("- [ ] %s: Example task", id.Example),
			},
			RoleSubtask: {
				Expression:   `^\s+[-*+]\s*\[[^\]]*\]\s*(?P<desc>.+)$`,
				CaptureNames: []string{"desc"},
				Example:      "  - [ ] Write unit tests",
			},
			RoleStatusField: statusIndented,
		}
	case FormatEnumerated:
		return map[string]Pattern{
			RoleTask: {
				Expression:   `^\s*\d+[.)]\s*(?P<code>` + id.Expression + `)\s*[:.\-]?\s*(?P<desc>.+)$`,
				CaptureNames: []string{"code", "desc"},
				Example:      fmt.Sprintf("1. %s: Example task", id.Example),
			},
			RoleStatusField: statusIndented,
		}
	default:
		return map[string]Pattern{
			RoleTask: {
				Expression:   `^\s*(?P<code>` + id.Expression + `)\s*[:.\-]\s*(?P<desc>.+)$`,
				CaptureNames: []string{"code", "desc"},
				Example:      fmt.Sprintf("%s: Example task", id.Example),
			},
			RoleStatusField: {
				Expression:   `^\s*(?:[-*+]\s*)?(?P<label>[A-Za-z][A-Za-z0-9 _/()-]*?)\s*:\s*\[(?P<value>[^\]]*)\]\s*$`,
				CaptureNames: []string{"label", "value"},
				Example:      "Dev: [Complete]",
			},
		}
	}
}

// seedDefaultFields installs the three built-in semantic fields with their
// canonical labels and state vocabularies. Observed labels and values are
// layered on top, so a generated schema always covers the required states
// even when the sample never exhibits them.
func seedDefaultFields(s *Schema) {
	s.FieldMapping[FieldDev] = []string{"Dev"}
	s.StatusSemantics[FieldDev] = map[string][]string{
		string(StateNotStarted): {"Not Started"},
		string(StateInProgress): {"In Progress"},
		string(StateComplete):   {"Complete"},
	}
	s.FieldMapping[FieldQA] = []string{"QA"}
	s.StatusSemantics[FieldQA] = map[string][]string{
		string(StateNotVerified):     {"Not Verified"},
		string(StateVerifiedSuccess): {"Verified Success"},
		string(StateVerifiedFailure): {FailureMarker},
	}
	s.FieldMapping[FieldUserVerification] = []string{"User Verification"}
	s.StatusSemantics[FieldUserVerification] = map[string][]string{
		string(StateNotStarted): {"Not Started"},
		string(StateInProgress): {"In Progress"},
		string(StateComplete):   {"Complete"},
	}
}

// addFieldLabel records a raw label under its semantic field, creating custom
// fields (with the progress-scheme defaults) on first sight.
func addFieldLabel(s *Schema, field, label string) {
	if _, ok := s.FieldMapping[field]; !ok {
		s.FieldMapping[field] = nil
		s.StatusSemantics[field] = map[string][]string{
			string(StateNotStarted): {"Not Started"},
			string(StateComplete):   {"Complete"},
		}
	}
	if !containsFold(s.FieldMapping[field], label) {
		s.FieldMapping[field] = append(s.FieldMapping[field], label)
	}
}

// addFieldValue classifies an observed raw value and records it under the
// resulting state. QA failure values collapse to their marker prefix instead
// of being enumerated individually.
func addFieldValue(s *Schema, field, value string) {
	state := classifyValue(field, value)
	recorded := value
	if state == StateVerifiedFailure {
		prefix, ok := matchFailureMarker(value)
		if !ok {
			return
		}
		recorded = prefix
	}
	key := string(state)
	if !containsFold(s.StatusSemantics[field][key], recorded) {
		s.StatusSemantics[field][key] = append(s.StatusSemantics[field][key], recorded)
	}
}

// minimalSchema is the failure-policy fallback: generic patterns, default
// task-code shape, built-in fields only, confidence pinned to the lowest band.
func minimalSchema(opts GenerateOptions, sampleLines int) Schema {
	id := TaskIDFormat{Prefix: "T", Digits: 3, Expression: `T\d{3}`, Example: "T001"}
	s := Schema{
		Version:         CurrentVersion,
		Patterns:        buildPatterns(FormatCustom, id),
		TaskIDFormat:    id,
		FieldMapping:    make(map[string][]string),
		StatusSemantics: make(map[string]map[string][]string),
		Validation:      &SelfTest{MatchRate: 0, TaskCount: 0, Passed: false},
		Metadata: &Metadata{
			GeneratedFrom: opts.Source,
			Format:        FormatCustom,
			SampleLines:   sampleLines,
			Confidence:    0.1,
		},
	}
	seedDefaultFields(&s)
	return s
}

func containsFold(values []string, want string) bool {
	for _, v := range values {
		if strings.EqualFold(v, want) {
			return true
		}
	}
	return false
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
