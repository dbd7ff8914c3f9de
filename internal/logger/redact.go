package logger

import "regexp"

// phiPattern pairs a compiled pattern with its replacement marker.
type phiPattern struct {
	re          *regexp.Regexp
	replacement string
}

// Patterns are ordered: more specific identifiers are replaced before the
// broad name pattern so an SSN never gets half-consumed as a "name".
var phiPatterns = []phiPattern{
	{regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`), "[SSN_REDACTED]"},
	{regexp.MustCompile(`\b\d{10,}\b`), "[PHONE_REDACTED]"},
	{regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`), "[EMAIL_REDACTED]"},
	// Two capitalized words. Deliberately naive: over-redacting log text is
	// acceptable, leaking a patient name is not.
	{regexp.MustCompile(`\b[A-Z][a-z]+ [A-Z][a-z]+\b`), "[NAME_REDACTED]"},
}

// Redact replaces patient-identifying patterns in s with redaction markers.
func Redact(s string) string {
	for _, p := range phiPatterns {
		s = p.re.ReplaceAllString(s, p.replacement)
	}
	return s
}

// redactValue redacts string values; non-string field values pass through.
func redactValue(v interface{}) interface{} {
	if s, ok := v.(string); ok {
		return Redact(s)
	}
	return v
}
