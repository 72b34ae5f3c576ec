package report

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"skillguard/internal/finding"
)

func init() {
	// Force a profile so rendered colors do not depend on the test terminal
	lipgloss.SetColorProfile(termenv.TrueColor)
}

func sampleResult() *finding.ScanResult {
	return &finding.ScanResult{
		Path:         "/tmp/skill",
		StartedAt:    time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		DurationMS:   1250,
		ScannedFiles: 12,
		Packages:     34,
		CodeFindings: []finding.CodeFinding{
			{File: "index.js", Line: 3, Column: 1, Severity: finding.SeverityCritical, Category: "Shell Execution", Description: "Executes shell commands synchronously"},
			{File: "util.js", Line: 9, Column: 5, Severity: finding.SeverityMedium, Category: "Network Access", Description: "Performs HTTP requests"},
		},
		DependencyFindings: []finding.DependencyFinding{
			{Name: "lodash", Version: "4.17.20", Severity: finding.SeverityHigh, Reason: "Command injection in template", CVE: "CVE-2021-23337", Source: finding.SourceNPMAudit},
			{Name: "lodahs", Version: "1.0.0", Severity: finding.SeverityCritical, Reason: "Typosquat of lodash", Source: finding.SourceThreatDB},
		},
		RiskScore: 87,
		RiskLevel: finding.RiskCritical,
	}
}

func TestConsoleReport(t *testing.T) {
	var buf bytes.Buffer
	Console(&buf, sampleResult())
	out := buf.String()

	for _, want := range []string{
		"SkillGuard Scan Report",
		"Score 87/100",
		"CRITICAL",
		"/tmp/skill",
		"Files scanned",
		"Code findings (2)",
		"Dependency findings (2)",
		"Shell Execution",
		"index.js:3",
		"lodash@4.17.20",
		"CVE-2021-23337",
		"Typosquat of lodash",
		"critical: 2, high: 1, medium: 1",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("console report missing %q\noutput:\n%s", want, out)
		}
	}

	// Critical headline renders red (196 in 256-color terms, RGB in TrueColor)
	if !strings.Contains(out, "\x1b[") {
		t.Error("expected styled output under a forced color profile")
	}
}

func TestConsoleCleanResult(t *testing.T) {
	var buf bytes.Buffer
	Console(&buf, &finding.ScanResult{Path: "/tmp/skill", RiskLevel: finding.RiskSafe})
	out := buf.String()

	if !strings.Contains(out, "No findings") {
		t.Errorf("clean result should say so, got:\n%s", out)
	}
	if strings.Contains(out, "Code findings") || strings.Contains(out, "Dependency findings") {
		t.Error("clean result should not print finding tables")
	}
}

func TestConsoleTruncatesLongText(t *testing.T) {
	long := strings.Repeat("x", 200)
	res := &finding.ScanResult{
		CodeFindings: []finding.CodeFinding{
			{File: "a.js", Line: 1, Severity: finding.SeverityLow, Category: "Network Access", Description: long},
		},
		RiskLevel: finding.RiskLow,
	}

	var buf bytes.Buffer
	Console(&buf, res)

	if strings.Contains(buf.String(), long) {
		t.Error("long descriptions should be truncated in the table")
	}
	if !strings.Contains(buf.String(), "...") {
		t.Error("truncated descriptions should end with an ellipsis")
	}
}

func TestDisableColor(t *testing.T) {
	DisableColor()
	defer lipgloss.SetColorProfile(termenv.TrueColor)

	var buf bytes.Buffer
	Console(&buf, sampleResult())

	if strings.Contains(buf.String(), "\x1b[") {
		t.Error("no-color output must not contain ANSI escapes")
	}
}

func TestJSONReport(t *testing.T) {
	var buf bytes.Buffer
	if err := JSON(&buf, sampleResult()); err != nil {
		t.Fatalf("JSON() error: %v", err)
	}

	var decoded finding.ScanResult
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("report is not valid JSON: %v", err)
	}
	if decoded.RiskScore != 87 || decoded.RiskLevel != finding.RiskCritical {
		t.Errorf("round-trip lost fields: %+v", decoded)
	}

	// Field names are part of the output contract.
	for _, key := range []string{`"riskScore"`, `"riskLevel"`, `"codeFindings"`, `"dependencyFindings"`, `"scannedFiles"`} {
		if !strings.Contains(buf.String(), key) {
			t.Errorf("JSON report missing key %s", key)
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 60); got != "short" {
		t.Errorf("truncate should leave short strings alone, got %q", got)
	}
	long := strings.Repeat("a", 70)
	got := truncate(long, 60)
	if len(got) != 60 || !strings.HasSuffix(got, "...") {
		t.Errorf("truncate(70 chars, 60) = %q (len %d)", got, len(got))
	}
}
