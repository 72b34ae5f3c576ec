package vuln

import (
	"strings"
	"time"

	"skillguard/internal/finding"
)

// Advisory is one OSV vulnerability record, trimmed to the fields the scan
// consumes.
type Advisory struct {
	ID         string              `json:"id"`
	Summary    string              `json:"summary"`
	Details    string              `json:"details"`
	Aliases    []string            `json:"aliases"`
	Published  time.Time           `json:"published"`
	Severity   []AdvisorySeverity  `json:"severity"`
	Affected   []AffectedPackage   `json:"affected"`
	References []AdvisoryReference `json:"references"`
}

// AdvisorySeverity carries a CVSS entry. Score is free-form: some records
// hold a bare number, others a full vector string.
type AdvisorySeverity struct {
	Type  string `json:"type"`
	Score string `json:"score"`
}

type AffectedPackage struct {
	Ranges []AffectedRange `json:"ranges"`
}

type AffectedRange struct {
	Type   string       `json:"type"`
	Events []RangeEvent `json:"events"`
}

type RangeEvent struct {
	Introduced string `json:"introduced"`
	Fixed      string `json:"fixed"`
}

type AdvisoryReference struct {
	Type string `json:"type"`
	URL  string `json:"url"`
}

// VulnID returns the identity id for deduplication: a CVE when the record id
// or an alias carries one, otherwise the record id itself (GHSA for most npm
// advisories).
func (a Advisory) VulnID() string {
	if strings.HasPrefix(a.ID, "CVE-") {
		return a.ID
	}
	for _, alias := range a.Aliases {
		if strings.HasPrefix(alias, "CVE-") {
			return alias
		}
	}
	return a.ID
}

// CVSSScore returns the numeric CVSS base score, preferring v3 over v2.
// Records whose severity entries only hold vector strings score 0.
func (a Advisory) CVSSScore() float64 {
	var v2 float64
	for _, s := range a.Severity {
		score := finding.ParseCVSSScore(s.Score)
		if score == 0 {
			continue
		}
		switch s.Type {
		case "CVSS_V3":
			return score
		case "CVSS_V2":
			if v2 == 0 {
				v2 = score
			}
		}
	}
	return v2
}

// AdvisoryURL picks the best reference link, preferring ADVISORY entries.
func (a Advisory) AdvisoryURL() string {
	for _, ref := range a.References {
		if ref.Type == "ADVISORY" {
			return ref.URL
		}
	}
	if len(a.References) > 0 {
		return a.References[0].URL
	}
	return ""
}

// FixedVersion returns the first fixed version recorded in the affected
// ranges, or "" when the advisory has no fix.
func (a Advisory) FixedVersion() string {
	for _, aff := range a.Affected {
		for _, r := range aff.Ranges {
			for _, e := range r.Events {
				if e.Fixed != "" {
					return e.Fixed
				}
			}
		}
	}
	return ""
}

// AffectedVersions renders the first introduced/fixed window as a display
// range like ">=4.0.0 <4.17.21". This is presentation only, not a range
// matcher.
func (a Advisory) AffectedVersions() string {
	for _, aff := range a.Affected {
		for _, r := range aff.Ranges {
			var introduced, fixed string
			for _, e := range r.Events {
				if e.Introduced != "" && introduced == "" {
					introduced = e.Introduced
				}
				if e.Fixed != "" && fixed == "" {
					fixed = e.Fixed
				}
			}
			switch {
			case introduced != "" && introduced != "0" && fixed != "":
				return ">=" + introduced + " <" + fixed
			case fixed != "":
				return "<" + fixed
			case introduced != "" && introduced != "0":
				return ">=" + introduced
			}
		}
	}
	return ""
}
