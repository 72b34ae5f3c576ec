package finding

import (
	"fmt"
	"strings"
	"time"
)

// RiskLevel is the discrete classification derived from the risk score.
type RiskLevel string

const (
	RiskSafe     RiskLevel = "safe"
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// ParseRiskLevel maps a user-supplied name onto a RiskLevel.
func ParseRiskLevel(s string) (RiskLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "safe":
		return RiskSafe, nil
	case "low":
		return RiskLow, nil
	case "medium":
		return RiskMedium, nil
	case "high":
		return RiskHigh, nil
	case "critical":
		return RiskCritical, nil
	}
	return "", fmt.Errorf("unknown risk level: %s", s)
}

// AtLeast reports whether l meets or exceeds the threshold level.
// Unknown levels never satisfy a threshold.
func (l RiskLevel) AtLeast(threshold RiskLevel) bool {
	return l.rank() >= 0 && l.rank() >= threshold.rank()
}

func (l RiskLevel) rank() int {
	switch l {
	case RiskSafe:
		return 0
	case RiskLow:
		return 1
	case RiskMedium:
		return 2
	case RiskHigh:
		return 3
	case RiskCritical:
		return 4
	}
	return -1
}

// ScanResult is the complete outcome of one scan. It is assembled once, after
// all sources have reported, and serialized as-is for the JSON report.
type ScanResult struct {
	Path         string    `json:"path"`
	StartedAt    time.Time `json:"startedAt"`
	DurationMS   int64     `json:"durationMs"`
	ScannedFiles int       `json:"scannedFiles"`
	Packages     int       `json:"packages"`

	CodeFindings       []CodeFinding       `json:"codeFindings"`
	DependencyFindings []DependencyFinding `json:"dependencyFindings"`

	RiskScore int       `json:"riskScore"`
	RiskLevel RiskLevel `json:"riskLevel"`
}

// TotalFindings counts code and dependency findings together.
func (r *ScanResult) TotalFindings() int {
	return len(r.CodeFindings) + len(r.DependencyFindings)
}

// CountBySeverity tallies all findings per severity for report summaries.
func (r *ScanResult) CountBySeverity() map[Severity]int {
	counts := make(map[Severity]int)
	for _, f := range r.CodeFindings {
		counts[f.Severity]++
	}
	for _, f := range r.DependencyFindings {
		counts[f.Severity]++
	}
	return counts
}
