// Package risk reduces findings to a single 0-100 score and a discrete risk
// level. The weight tables are fixed at construction; scoring itself is pure
// and deterministic.
package risk

import (
	"strings"

	"skillguard/internal/finding"
)

var defaultCategoryWeights = map[string]int{
	"Shell Execution":    50,
	"Code Injection":     50,
	"File Write":         30,
	"File Delete":        30,
	"File Permissions":   25,
	"Network Access":     20,
	"Environment Access": 10,
}

var defaultCodeSeverityWeights = map[finding.Severity]int{
	finding.SeverityCritical: 50,
	finding.SeverityHigh:     30,
	finding.SeverityMedium:   15,
	finding.SeverityLow:      5,
}

// Dependency findings weigh less than code findings of the same severity: a
// vulnerable dependency is a risk, malicious code in the package itself is a
// certainty.
var defaultDepSeverityWeights = map[finding.Severity]int{
	finding.SeverityCritical: 40,
	finding.SeverityHigh:     25,
	finding.SeverityMedium:   15,
	finding.SeverityLow:      5,
}

// Overrides adjusts individual weights without replacing whole tables.
// Unknown keys are ignored, category keys match case-insensitively (config
// files lowercase them), and negative weights clamp to zero.
type Overrides struct {
	Category     map[string]int
	CodeSeverity map[string]int
	DepSeverity  map[string]int
}

// Scorer computes risk scores from immutable weight tables.
type Scorer struct {
	categoryWeights map[string]int
	codeWeights     map[finding.Severity]int
	depWeights      map[finding.Severity]int
}

// NewScorer returns a Scorer with the default weights.
func NewScorer() *Scorer {
	return NewScorerWithOverrides(Overrides{})
}

// NewScorerWithOverrides returns a Scorer with the default weights patched by
// the given overrides. The tables are copied, so later mutation of the
// override maps has no effect.
func NewScorerWithOverrides(o Overrides) *Scorer {
	s := &Scorer{
		categoryWeights: make(map[string]int, len(defaultCategoryWeights)),
		codeWeights:     make(map[finding.Severity]int, len(defaultCodeSeverityWeights)),
		depWeights:      make(map[finding.Severity]int, len(defaultDepSeverityWeights)),
	}
	for k, v := range defaultCategoryWeights {
		s.categoryWeights[k] = v
	}
	for k, v := range defaultCodeSeverityWeights {
		s.codeWeights[k] = v
	}
	for k, v := range defaultDepSeverityWeights {
		s.depWeights[k] = v
	}

	for cat, w := range o.Category {
		if key, ok := canonicalCategory(cat, s.categoryWeights); ok {
			s.categoryWeights[key] = clampWeight(w)
		}
	}
	for sev, w := range o.CodeSeverity {
		key := finding.Severity(sev)
		if _, ok := s.codeWeights[key]; ok {
			s.codeWeights[key] = clampWeight(w)
		}
	}
	for sev, w := range o.DepSeverity {
		key := finding.Severity(sev)
		if _, ok := s.depWeights[key]; ok {
			s.depWeights[key] = clampWeight(w)
		}
	}
	return s
}

func clampWeight(w int) int {
	if w < 0 {
		return 0
	}
	return w
}

func canonicalCategory(name string, table map[string]int) (string, bool) {
	if _, ok := table[name]; ok {
		return name, true
	}
	for k := range table {
		if strings.EqualFold(k, name) {
			return k, true
		}
	}
	return "", false
}

// Score sums the contribution of every finding and clamps the total to
// [0, 100]. A code finding contributes the larger of its category weight and
// its severity weight, never both; a dependency finding contributes its
// severity weight.
func (s *Scorer) Score(code []finding.CodeFinding, deps []finding.DependencyFinding) int {
	total := 0
	for _, f := range code {
		w := s.categoryWeights[f.Category]
		if sw := s.codeWeights[f.Severity]; sw > w {
			w = sw
		}
		total += w
	}
	for _, f := range deps {
		total += s.depWeights[f.Severity]
	}

	if total > 100 {
		return 100
	}
	if total < 0 {
		return 0
	}
	return total
}

// Level maps a score to its discrete risk level: 0 safe, 1-20 low, 21-50
// medium, 51-75 high, 76-100 critical.
func Level(score int) finding.RiskLevel {
	switch {
	case score <= 0:
		return finding.RiskSafe
	case score <= 20:
		return finding.RiskLow
	case score <= 50:
		return finding.RiskMedium
	case score <= 75:
		return finding.RiskHigh
	}
	return finding.RiskCritical
}
