package finding

import (
	"regexp"
	"strconv"
	"strings"
)

// Severity classifies how serious a finding is.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// Weight returns the ordinal rank of a severity, higher meaning more severe.
// Unrecognized values rank below low.
func (s Severity) Weight() int {
	switch s {
	case SeverityCritical:
		return 4
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	}
	return 0
}

func (s Severity) String() string {
	return string(s)
}

// NormalizeAuditSeverity maps an npm audit severity string onto the four-level
// scale. npm reports "moderate" where we say medium, and "info" ranks with
// low. Unknown values map to medium so a new upstream label is surfaced
// rather than buried.
func NormalizeAuditSeverity(level string) Severity {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "critical":
		return SeverityCritical
	case "high":
		return SeverityHigh
	case "moderate", "medium":
		return SeverityMedium
	case "low", "info":
		return SeverityLow
	}
	return SeverityMedium
}

// SeverityFromCVSS buckets a CVSS base score using the standard boundaries:
// >= 9.0 critical, >= 7.0 high, >= 4.0 medium, below that low.
func SeverityFromCVSS(score float64) Severity {
	switch {
	case score >= 9.0:
		return SeverityCritical
	case score >= 7.0:
		return SeverityHigh
	case score >= 4.0:
		return SeverityMedium
	}
	return SeverityLow
}

var reCVSSScore = regexp.MustCompile(`^\d+(\.\d+)?`)

// ParseCVSSScore extracts the numeric score from strings like "9.8" or
// "7.5/AV:N/AC:L". It returns 0 when the string does not start with a number.
func ParseCVSSScore(s string) float64 {
	m := reCVSSScore.FindString(strings.TrimSpace(s))
	if m == "" {
		return 0
	}
	score, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0
	}
	return score
}
