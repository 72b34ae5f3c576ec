package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"skillguard/internal/finding"
	"skillguard/internal/history"
)

// writeSkillFixture creates a directory with a dangerous script and a lock
// file declaring a known-bad package.
func writeSkillFixture(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	script := `const { execSync } = require("child_process");
execSync("ls -la");
console.log(process.env.HOME);
`
	if err := os.WriteFile(filepath.Join(dir, "index.js"), []byte(script), 0644); err != nil {
		t.Fatal(err)
	}

	lock := `{
  "name": "demo-skill",
  "lockfileVersion": 3,
  "packages": {
    "": {"name": "demo-skill", "version": "1.0.0"},
    "node_modules/lodahs": {"version": "1.0.0"},
    "node_modules/express": {"version": "4.18.2"}
  }
}`
	if err := os.WriteFile(filepath.Join(dir, "package-lock.json"), []byte(lock), 0644); err != nil {
		t.Fatal(err)
	}
	return dir
}

// resetScanFlags restores the scan flag variables after a test.
func resetScanFlags(t *testing.T) {
	t.Helper()
	oldJSON, oldInteractive, oldFailOn, oldNoHistory := scanJSON, scanInteractive, scanFailOn, scanNoHistory
	t.Cleanup(func() {
		scanJSON, scanInteractive, scanFailOn, scanNoHistory = oldJSON, oldInteractive, oldFailOn, oldNoHistory
	})
	scanJSON = false
	scanInteractive = false
	scanFailOn = ""
	scanNoHistory = true
}

func newTestCommand() (*cobra.Command, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	cmd := &cobra.Command{Use: "test"}
	cmd.SetOut(buf)
	cmd.SetContext(context.Background())
	return cmd, buf
}

func TestPerformScanOffline(t *testing.T) {
	defer viper.Reset()
	viper.Reset()
	viper.Set("offline", true)

	dir := writeSkillFixture(t)

	res, err := performScan(context.Background(), dir)
	if err != nil {
		t.Fatalf("performScan failed: %v", err)
	}

	if res.ScannedFiles != 2 {
		t.Errorf("expected index.js and package-lock.json scanned, got %d files", res.ScannedFiles)
	}
	if res.Packages != 2 {
		t.Errorf("expected 2 resolved packages, got %d", res.Packages)
	}
	if len(res.CodeFindings) == 0 {
		t.Fatal("expected code findings for the child_process usage")
	}

	foundShell := false
	for _, f := range res.CodeFindings {
		if f.Category == "Shell Execution" && f.Severity == finding.SeverityCritical {
			foundShell = true
		}
	}
	if !foundShell {
		t.Errorf("expected a critical Shell Execution finding, got %+v", res.CodeFindings)
	}

	foundThreat := false
	for _, f := range res.DependencyFindings {
		if f.Name == "lodahs" && f.Source == finding.SourceThreatDB {
			foundThreat = true
		}
	}
	if !foundThreat {
		t.Errorf("expected lodahs flagged by the threat table, got %+v", res.DependencyFindings)
	}

	if res.RiskLevel != finding.RiskCritical {
		t.Errorf("expected critical risk, got %s (score %d)", res.RiskLevel, res.RiskScore)
	}
}

func TestPerformScanManifestOnly(t *testing.T) {
	defer viper.Reset()
	viper.Reset()
	viper.Set("offline", true)

	// No lock file: the manifest fallback still feeds the threat table.
	dir := t.TempDir()
	manifest := `{"dependencies": {"lodahs": "^1.0.0"}}`
	if err := os.WriteFile(filepath.Join(dir, "package.json"), []byte(manifest), 0644); err != nil {
		t.Fatal(err)
	}

	res, err := performScan(context.Background(), dir)
	if err != nil {
		t.Fatalf("performScan failed: %v", err)
	}

	if len(res.DependencyFindings) != 1 {
		t.Fatalf("expected exactly 1 dependency finding, got %+v", res.DependencyFindings)
	}
	f := res.DependencyFindings[0]
	if f.Name != "lodahs" || f.Severity != finding.SeverityCritical {
		t.Errorf("unexpected finding: %+v", f)
	}
	if !strings.Contains(f.Reason, "Typosquat") {
		t.Errorf("reason should reference typosquatting, got %q", f.Reason)
	}
	if f.Version != "1.0.0" {
		t.Errorf("expected the cleaned range version, got %q", f.Version)
	}
}

func TestPerformScanNoDependencies(t *testing.T) {
	defer viper.Reset()
	viper.Reset()

	dir := t.TempDir()
	clean := "function add(a, b) {\n  return a + b;\n}\nmodule.exports = { add };\n"
	if err := os.WriteFile(filepath.Join(dir, "index.js"), []byte(clean), 0644); err != nil {
		t.Fatal(err)
	}

	// No manifest means the audit skips immediately and the database lookup
	// has no refs, so the scan stays local even without offline mode.
	res, err := performScan(context.Background(), dir)
	if err != nil {
		t.Fatalf("performScan failed: %v", err)
	}

	if res.Packages != 0 {
		t.Errorf("expected no resolved packages, got %d", res.Packages)
	}
	if len(res.DependencyFindings) != 0 {
		t.Errorf("expected no dependency findings, got %+v", res.DependencyFindings)
	}
	if len(res.CodeFindings) != 0 {
		t.Errorf("expected no code findings, got %+v", res.CodeFindings)
	}
	if res.RiskScore != 0 || res.RiskLevel != finding.RiskSafe {
		t.Errorf("expected a safe result, got score %d level %s", res.RiskScore, res.RiskLevel)
	}
}

func TestPerformScanInvalidPath(t *testing.T) {
	_, err := performScan(context.Background(), filepath.Join(t.TempDir(), "does-not-exist"))
	if err == nil {
		t.Error("expected error for a missing path")
	}

	file := filepath.Join(t.TempDir(), "file.js")
	if err := os.WriteFile(file, []byte("1"), 0644); err != nil {
		t.Fatal(err)
	}
	_, err = performScan(context.Background(), file)
	if err == nil || !strings.Contains(err.Error(), "not a directory") {
		t.Errorf("expected directory error for a file path, got %v", err)
	}
}

func TestRunScanJSON(t *testing.T) {
	defer viper.Reset()
	viper.Reset()
	viper.Set("offline", true)
	resetScanFlags(t)
	scanJSON = true

	dir := writeSkillFixture(t)
	cmd, buf := newTestCommand()

	if err := runScan(cmd, []string{dir}); err != nil {
		t.Fatalf("runScan failed: %v", err)
	}

	var res finding.ScanResult
	if err := json.Unmarshal(buf.Bytes(), &res); err != nil {
		t.Fatalf("output is not valid JSON: %v\n%s", err, buf.String())
	}
	if res.RiskLevel != finding.RiskCritical {
		t.Errorf("expected critical risk in JSON output, got %s", res.RiskLevel)
	}
}

func TestRunScanFailOn(t *testing.T) {
	defer viper.Reset()
	viper.Reset()
	viper.Set("offline", true)
	resetScanFlags(t)
	scanJSON = true
	scanFailOn = "high"

	dir := writeSkillFixture(t)
	cmd, _ := newTestCommand()

	err := runScan(cmd, []string{dir})
	if err == nil {
		t.Fatal("expected the scan to fail the high threshold")
	}
	if !strings.Contains(err.Error(), "threshold") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestRunScanFailOnInvalidLevel(t *testing.T) {
	resetScanFlags(t)
	scanFailOn = "urgent"

	cmd, _ := newTestCommand()
	err := runScan(cmd, []string{t.TempDir()})
	if err == nil || !strings.Contains(err.Error(), "unknown risk level") {
		t.Errorf("expected unknown level error, got %v", err)
	}
}

func TestRunScanRecordsHistory(t *testing.T) {
	defer viper.Reset()
	viper.Reset()
	viper.Set("offline", true)
	dbPath := filepath.Join(t.TempDir(), "history.db")
	viper.Set("history.backend", "sqlite")
	viper.Set("history.path", dbPath)

	resetScanFlags(t)
	scanJSON = true
	scanNoHistory = false

	dir := writeSkillFixture(t)
	cmd, _ := newTestCommand()

	if err := runScan(cmd, []string{dir}); err != nil {
		t.Fatalf("runScan failed: %v", err)
	}

	store, err := history.NewStore(history.StoreConfig{Backend: "sqlite", ConnectionString: dbPath})
	if err != nil {
		t.Fatalf("cannot open history store: %v", err)
	}
	defer store.Close()

	records, err := store.RecentScans(5)
	if err != nil {
		t.Fatalf("RecentScans failed: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 recorded scan, got %d", len(records))
	}
	if records[0].RiskLevel != finding.RiskCritical {
		t.Errorf("recorded scan has level %s, want critical", records[0].RiskLevel)
	}
}
