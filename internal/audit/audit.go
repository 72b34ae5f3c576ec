// Package audit shells out to npm audit and converts its JSON report into
// dependency findings. The audit is strictly best-effort: a missing npm
// binary, a timeout, or unparseable output all yield an empty result so the
// rest of the scan can proceed on the remaining sources.
package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"skillguard/internal/finding"
	"skillguard/internal/telemetry"
)

// Runner executes npm audit against a scan target.
type Runner struct {
	// Timeout bounds the audit itself. Large dependency graphs produce
	// multi-megabyte reports, so this is generous.
	Timeout time.Duration
	// LockTimeout bounds lock file synthesis, which only resolves metadata
	// and should be much faster than an install.
	LockTimeout time.Duration
}

// NewRunner returns a Runner with the default timeouts.
func NewRunner() *Runner {
	return &Runner{
		Timeout:     2 * time.Minute,
		LockTimeout: time.Minute,
	}
}

// Run audits the npm project at dir and returns its findings. Targets without
// a package.json are skipped immediately.
func (r *Runner) Run(ctx context.Context, dir string) []finding.DependencyFinding {
	if _, err := os.Stat(filepath.Join(dir, "package.json")); err != nil {
		telemetry.LogDebug("npm audit skipped, no manifest", "dir", dir)
		return nil
	}
	if _, err := exec.LookPath("npm"); err != nil {
		telemetry.LogDebug("npm not found on PATH, audit skipped", "error", err)
		return nil
	}
	if !r.ensureLockFile(ctx, dir) {
		return nil
	}

	out, ok := r.runAudit(ctx, dir)
	if !ok {
		return nil
	}
	return parseReport(out)
}

// ensureLockFile makes sure npm audit has a lock file to work from. npm
// refuses to audit without one, so when the target ships only a manifest we
// resolve a lock file in place without touching node_modules or running
// install scripts.
func (r *Runner) ensureLockFile(ctx context.Context, dir string) bool {
	for _, name := range []string{"package-lock.json", "npm-shrinkwrap.json"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
			return true
		}
	}

	lockCtx, cancel := context.WithTimeout(ctx, r.LockTimeout)
	defer cancel()

	var stderr bytes.Buffer
	cmd := exec.CommandContext(lockCtx, "npm", "install", "--package-lock-only", "--ignore-scripts", "--no-audit", "--no-fund")
	cmd.Dir = dir
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		telemetry.LogDebug("lock file synthesis failed, audit skipped", "dir", dir, "error", err, "stderr", stderr.String())
		return false
	}
	return true
}

func (r *Runner) runAudit(ctx context.Context, dir string) ([]byte, bool) {
	auditCtx, cancel := context.WithTimeout(ctx, r.Timeout)
	defer cancel()

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(auditCtx, "npm", "audit", "--json")
	cmd.Dir = dir
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if auditCtx.Err() != nil {
		telemetry.LogDebug("npm audit timed out", "dir", dir, "timeout", r.Timeout)
		return nil, false
	}
	if err != nil {
		// npm audit exits non-zero whenever it finds vulnerabilities; the
		// report on stdout is still complete.
		telemetry.LogDebug("npm audit exited non-zero", "error", err, "stderr", stderr.String())
	}
	return stdout.Bytes(), true
}

type auditReport struct {
	AuditReportVersion int                  `json:"auditReportVersion"`
	Vulnerabilities    map[string]auditVuln `json:"vulnerabilities"`
}

type auditVuln struct {
	Name         string            `json:"name"`
	Severity     string            `json:"severity"`
	Range        string            `json:"range"`
	Via          []json.RawMessage `json:"via"`
	FixAvailable json.RawMessage   `json:"fixAvailable"`
}

// auditAdvisory is the object form of a "via" entry. String entries merely
// name another vulnerable package and carry no advisory detail.
type auditAdvisory struct {
	Title    string   `json:"title"`
	URL      string   `json:"url"`
	Severity string   `json:"severity"`
	CWE      []string `json:"cwe"`
	CVSS     struct {
		Score        float64 `json:"score"`
		VectorString string  `json:"vectorString"`
	} `json:"cvss"`
	Range string `json:"range"`
}

type auditFix struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

var reCVE = regexp.MustCompile(`CVE-\d{4}-\d+`)

// parseReport converts an npm v7+ audit report into findings, one per
// vulnerable package, keyed off the most informative via advisory.
func parseReport(data []byte) []finding.DependencyFinding {
	var report auditReport
	if err := json.Unmarshal(data, &report); err != nil {
		telemetry.LogDebug("npm audit output was not valid JSON", "error", err)
		return nil
	}

	names := make([]string, 0, len(report.Vulnerabilities))
	for name := range report.Vulnerabilities {
		names = append(names, name)
	}
	sort.Strings(names)

	var findings []finding.DependencyFinding
	for _, name := range names {
		findings = append(findings, findingFromVuln(name, report.Vulnerabilities[name]))
	}
	return findings
}

func findingFromVuln(name string, v auditVuln) finding.DependencyFinding {
	f := finding.DependencyFinding{
		Name:               name,
		Severity:           finding.NormalizeAuditSeverity(v.Severity),
		Reason:             "Vulnerable package (reported by npm audit)",
		VulnerableVersions: v.Range,
		FixAvailable:       fixGuidance(v.FixAvailable),
		Source:             finding.SourceNPMAudit,
	}

	adv := firstAdvisory(v.Via)
	if adv == nil {
		return f
	}

	if adv.Title != "" {
		f.Reason = adv.Title
	}
	if adv.Severity != "" {
		f.Severity = finding.NormalizeAuditSeverity(adv.Severity)
	}
	if adv.Range != "" {
		f.VulnerableVersions = adv.Range
	}
	f.URL = adv.URL
	f.CVSSScore = adv.CVSS.Score
	f.CVE = advisoryID(adv)
	return f
}

// firstAdvisory returns the first via entry that is a real advisory object.
// npm lists direct advisories before transitive package references, so the
// first object is the most specific one.
func firstAdvisory(via []json.RawMessage) *auditAdvisory {
	for _, raw := range via {
		var adv auditAdvisory
		if err := json.Unmarshal(raw, &adv); err != nil {
			continue
		}
		if adv.Title != "" || adv.URL != "" {
			return &adv
		}
	}
	return nil
}

// advisoryID extracts a stable vulnerability id for deduplication: a CVE when
// one appears in the URL or title, otherwise the GHSA id from a GitHub
// advisory URL.
func advisoryID(adv *auditAdvisory) string {
	if m := reCVE.FindString(adv.URL); m != "" {
		return m
	}
	if m := reCVE.FindString(adv.Title); m != "" {
		return m
	}
	if strings.Contains(adv.URL, "github.com/advisories/") {
		return path.Base(adv.URL)
	}
	return ""
}

// fixGuidance renders npm's fixAvailable field, which is either a bool or an
// object naming the package upgrade that resolves the finding.
func fixGuidance(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var fix auditFix
	if err := json.Unmarshal(raw, &fix); err == nil && fix.Name != "" {
		return fmt.Sprintf("Upgrade %s to %s", fix.Name, fix.Version)
	}
	var available bool
	if err := json.Unmarshal(raw, &available); err == nil {
		if available {
			return "Fix available via npm audit fix"
		}
		return "No fix available"
	}
	return ""
}
