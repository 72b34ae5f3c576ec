package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"skillguard/internal/analysis"
	"skillguard/internal/audit"
	"skillguard/internal/config"
	"skillguard/internal/depscan"
	"skillguard/internal/finding"
	"skillguard/internal/history"
	"skillguard/internal/lockfile"
	"skillguard/internal/notify"
	"skillguard/internal/report"
	"skillguard/internal/risk"
	"skillguard/internal/telemetry"
	"skillguard/internal/threat"
	"skillguard/internal/ui"
	"skillguard/internal/vuln"
)

var (
	scanJSON        bool
	scanInteractive bool
	scanFailOn      string
	scanNoHistory   bool
)

var scanCmd = &cobra.Command{
	Use:   "scan [path]",
	Short: "Scan a skill directory for dangerous code and vulnerable dependencies",
	Long: `Scans the given directory (default: current directory) and produces a report.

The scan walks every recognized source file for dangerous patterns, resolves
the declared npm packages, checks them against the static threat table, runs
npm audit and queries the OSV database, then condenses everything into a
0-100 risk score.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)
	scanCmd.Flags().BoolVar(&scanJSON, "json", false, "Output the result as JSON")
	scanCmd.Flags().BoolVarP(&scanInteractive, "interactive", "i", false, "Browse findings in a TUI after the scan")
	scanCmd.Flags().StringVar(&scanFailOn, "fail-on", "", "Exit with an error when the risk level reaches this threshold (low, medium, high, critical)")
	scanCmd.Flags().BoolVar(&scanNoHistory, "no-history", false, "Do not record this scan in the history database")
}

func runScan(cmd *cobra.Command, args []string) error {
	path := "."
	if len(args) > 0 {
		path = args[0]
	}

	// Validate the threshold before doing any work.
	var failLevel finding.RiskLevel
	if scanFailOn != "" {
		level, err := finding.ParseRiskLevel(scanFailOn)
		if err != nil {
			return err
		}
		failLevel = level
	}

	res, err := performScan(cmd.Context(), path)
	if err != nil {
		return err
	}

	if scanJSON {
		if err := report.JSON(cmd.OutOrStdout(), res); err != nil {
			return err
		}
	} else {
		report.Console(cmd.OutOrStdout(), res)
	}

	if !scanNoHistory {
		recordScan(res)
	}
	announceScan(cmd.Context(), res)

	if scanInteractive && !scanJSON {
		p := tea.NewProgram(ui.NewBrowserModel(res), tea.WithAltScreen())
		if _, err := p.Run(); err != nil {
			return fmt.Errorf("error running finding browser: %w", err)
		}
	}

	if failLevel != "" && res.RiskLevel.AtLeast(failLevel) {
		return fmt.Errorf("risk level %s reached the %s threshold (score %d/100)", res.RiskLevel, failLevel, res.RiskScore)
	}
	return nil
}

// performScan runs the full pipeline against path: code analysis, package
// resolution, dependency reconciliation and scoring.
func performScan(ctx context.Context, path string) (*finding.ScanResult, error) {
	absPath, err := resolveScanPath(path)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	telemetry.LogInfo("starting scan", "path", absPath)

	analyzer := &analysis.Analyzer{MaxFileSize: config.MaxFileSize()}
	codeFindings, scannedFiles, err := analyzer.Analyze(absPath)
	if err != nil {
		return nil, fmt.Errorf("code analysis failed: %w", err)
	}

	refs := lockfile.Packages(absPath)
	depFindings := newReconciler().Reconcile(ctx, absPath, refs)

	scorer := risk.NewScorerWithOverrides(config.ScoringOverrides())
	score := scorer.Score(codeFindings, depFindings)

	res := &finding.ScanResult{
		Path:               absPath,
		StartedAt:          start,
		DurationMS:         time.Since(start).Milliseconds(),
		ScannedFiles:       scannedFiles,
		Packages:           len(refs),
		CodeFindings:       codeFindings,
		DependencyFindings: depFindings,
		RiskScore:          score,
		RiskLevel:          risk.Level(score),
	}

	telemetry.LogInfo("scan finished",
		"path", absPath,
		"score", res.RiskScore,
		"level", res.RiskLevel,
		"findings", res.TotalFindings())
	return res, nil
}

func resolveScanPath(path string) (string, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("cannot resolve path %s: %w", path, err)
	}
	info, err := os.Stat(absPath)
	if err != nil {
		return "", fmt.Errorf("cannot scan %s: %w", absPath, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("cannot scan %s: not a directory", absPath)
	}
	return absPath, nil
}

func newReconciler() *depscan.Reconciler {
	runner := audit.NewRunner()
	runner.Timeout = config.AuditTimeout()
	runner.LockTimeout = config.LockTimeout()

	client := vuln.NewOSVClient()
	client.BatchURL, client.QueryURL = config.OSVEndpoints()

	return &depscan.Reconciler{
		Threats:  threat.NewMatcher(),
		Audit:    runner,
		Database: client,
		Offline:  viper.GetBool("offline"),
	}
}

// recordScan appends the finished scan to the history store. History is an
// amenity: failures are logged and the scan result still stands.
func recordScan(res *finding.ScanResult) {
	store, err := history.NewStore(history.StoreConfig{
		Backend:          viper.GetString("history.backend"),
		ConnectionString: historyTarget(),
	})
	if err != nil {
		telemetry.LogError("cannot open history store", err)
		return
	}
	defer store.Close()

	if err := store.SaveScan(history.NewRecord(res)); err != nil {
		telemetry.LogError("cannot record scan", err)
	}
}

// historyTarget picks the connection string matching the configured backend.
func historyTarget() string {
	switch strings.ToLower(viper.GetString("history.backend")) {
	case "postgres", "postgresql":
		return viper.GetString("history.dsn")
	}
	return viper.GetString("history.path")
}

func announceScan(ctx context.Context, res *finding.ScanResult) {
	manager := notify.NewManager(func(format string, args ...interface{}) {
		telemetry.LogInfo(fmt.Sprintf(format, args...))
	})
	manager.NotifyScan(ctx, res)
}
