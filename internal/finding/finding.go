package finding

import "strings"

// Sources a dependency finding can originate from.
const (
	SourceThreatDB = "threat-db"
	SourceNPMAudit = "npm-audit"
	SourceOSV      = "osv"
	SourcePattern  = "pattern"
)

// PackageRef identifies one declared or installed dependency. Version is the
// resolved version when it came from a lock file, or a cleaned range when only
// a manifest was available.
type PackageRef struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	Dev     bool   `json:"dev,omitempty"`
}

// CodeFinding is a suspicious construct located in a source file.
type CodeFinding struct {
	File        string   `json:"file"`
	Line        int      `json:"line"`
	Column      int      `json:"column,omitempty"`
	Severity    Severity `json:"severity"`
	Category    string   `json:"category"`
	Description string   `json:"description"`
	Snippet     string   `json:"snippet,omitempty"`
	Language    string   `json:"language,omitempty"`
}

// DependencyFinding is one reported problem with a dependency. Findings are
// value objects: once emitted by a source they are merged and sorted but
// never mutated.
type DependencyFinding struct {
	Name               string   `json:"name"`
	Version            string   `json:"version,omitempty"`
	Severity           Severity `json:"severity"`
	Reason             string   `json:"reason"`
	CVE                string   `json:"cve,omitempty"`
	CVSSScore          float64  `json:"cvssScore,omitempty"`
	VulnerableVersions string   `json:"vulnerableVersions,omitempty"`
	FixAvailable       string   `json:"fixAvailable,omitempty"`
	URL                string   `json:"url,omitempty"`
	Source             string   `json:"source"`
}

// Key is the identity used to deduplicate findings across sources: the
// lowercased package name joined with the vulnerability id. Findings without
// an id (threat table entries, name-pattern matches) fall back to the reason
// text, so distinct reasons for the same package stay distinct.
func (f DependencyFinding) Key() string {
	id := f.CVE
	if id == "" {
		id = f.Reason
	}
	return strings.ToLower(f.Name) + ":" + id
}
