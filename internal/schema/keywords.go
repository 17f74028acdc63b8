package schema

import "strings"

// FailureMarker is the canonical raw prefix for a checked-and-failed QA
// status. Values like "Verified Failure - timeout on login" carry a reason
// after the marker; matching is by prefix.
const FailureMarker = "Verified Failure"

// failureMarkerPrefixes are the raw-value prefixes the generator recognises
// as a QA failure outcome, lowercased, checked in order.
var failureMarkerPrefixes = []string{
	"verified failure",
	"failed -",
	"failed:",
}

// fieldRule maps a keyword set to a semantic field. Rules are evaluated in
// slice order and keywords in list order; the first match wins, so
// classification never depends on map iteration order.
type fieldRule struct {
	field    string
	keywords []string
}

var fieldRules = []fieldRule{
	{field: FieldDev, keywords: []string{"dev", "development", "implementation", "implement"}},
	{field: FieldQA, keywords: []string{"qa", "quality", "test status", "testing"}},
	{field: FieldUserVerification, keywords: []string{"user", "verification", "acceptance", "manual"}},
}

// classifyFieldLabel resolves a raw field label to a semantic field name.
// Labels matching no rule become custom fields named after their normalised
// form ("Code Review" -> "code_review").
func classifyFieldLabel(rawLabel string) string {
	norm := strings.ToLower(strings.TrimSpace(rawLabel))
	for _, rule := range fieldRules {
		for _, kw := range rule.keywords {
			if strings.Contains(norm, kw) {
				return rule.field
			}
		}
	}
	return normalizeLabel(rawLabel)
}

// normalizeLabel lowercases a label and collapses runs of non-alphanumeric
// characters into single underscores.
func normalizeLabel(label string) string {
	var b strings.Builder
	lastUnderscore := true // trims leading separators
	for _, r := range strings.ToLower(strings.TrimSpace(label)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastUnderscore = false
		default:
			if !lastUnderscore {
				b.WriteByte('_')
				lastUnderscore = true
			}
		}
	}
	out := strings.TrimSuffix(b.String(), "_")
	if out == "" {
		return "field"
	}
	return out
}

// matchFailureMarker reports whether a raw value begins with a known failure
// marker, returning the matched portion of the original value so generated
// schemas keep the file's own casing.
func matchFailureMarker(rawValue string) (prefix string, ok bool) {
	v := strings.ToLower(strings.TrimSpace(rawValue))
	for _, marker := range failureMarkerPrefixes {
		if strings.HasPrefix(v, marker) {
			trimmed := strings.TrimSpace(rawValue)
			return strings.TrimRight(trimmed[:len(marker)], " -:"), true
		}
	}
	return "", false
}

var qaSuccessKeywords = []string{"verified success", "success", "passed", "pass", "verified", "approved"}

// classifyQAValue classifies a raw QA status value. Failure markers are
// checked first, then negations, then success keywords; anything else is
// treated as not verified.
func classifyQAValue(rawValue string) State {
	if _, ok := matchFailureMarker(rawValue); ok {
		return StateVerifiedFailure
	}
	v := strings.ToLower(strings.TrimSpace(rawValue))
	if strings.Contains(v, "not") || strings.Contains(v, "pending") || v == "" {
		return StateNotVerified
	}
	for _, kw := range qaSuccessKeywords {
		if strings.Contains(v, kw) {
			return StateVerifiedSuccess
		}
	}
	return StateNotVerified
}

var (
	progressCompleteKeywords   = []string{"done", "complete", "finished", "implemented", "closed", "resolved", "shipped"}
	progressInProgressKeywords = []string{"in progress", "progress", "wip", "doing", "started", "active", "working"}
)

// classifyProgressValue classifies a raw value for a progress-scheme field
// (dev, user_verification, custom fields). Negations win over completion
// keywords so "Not Done" never reads as done.
func classifyProgressValue(rawValue string) State {
	v := strings.ToLower(strings.TrimSpace(rawValue))
	if strings.Contains(v, "not") || v == "" || v == "todo" || v == "pending" || v == "open" {
		return StateNotStarted
	}
	for _, kw := range progressCompleteKeywords {
		if strings.Contains(v, kw) {
			return StateComplete
		}
	}
	for _, kw := range progressInProgressKeywords {
		if strings.Contains(v, kw) {
			return StateInProgress
		}
	}
	return StateNotStarted
}

// classifyValue dispatches on the field's scheme.
func classifyValue(field, rawValue string) State {
	if field == FieldQA {
		return classifyQAValue(rawValue)
	}
	return classifyProgressValue(rawValue)
}
