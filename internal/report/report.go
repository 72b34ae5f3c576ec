// Package report renders scan results for humans and machines. The console
// report styles headlines with lipgloss and keeps table cells plain so
// tabwriter alignment survives the ANSI escapes; the JSON report is the
// ScanResult encoded verbatim.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"skillguard/internal/finding"
)

var (
	bannerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFF")).
			Background(lipgloss.Color("63")). // Purple
			Bold(true).
			Padding(0, 1)

	sectionStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212")) // Light purple

	levelStyles = map[finding.RiskLevel]lipgloss.Style{
		finding.RiskSafe:     lipgloss.NewStyle().Foreground(lipgloss.Color("46")).Bold(true), // Green
		finding.RiskLow:      lipgloss.NewStyle().Foreground(lipgloss.Color("46")),
		finding.RiskMedium:   lipgloss.NewStyle().Foreground(lipgloss.Color("220")), // Yellow
		finding.RiskHigh:     lipgloss.NewStyle().Foreground(lipgloss.Color("208")), // Orange
		finding.RiskCritical: lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true), // Red
	}
)

// DisableColor drops all styling, for --no-color runs and piped output.
func DisableColor() {
	lipgloss.SetColorProfile(termenv.Ascii)
}

// JSON writes the result as indented JSON.
func JSON(w io.Writer, res *finding.ScanResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}

// Console writes the human-readable report.
func Console(w io.Writer, res *finding.ScanResult) {
	fmt.Fprintln(w, bannerStyle.Render("SkillGuard Scan Report"))

	level := levelStyles[res.RiskLevel].Render(strings.ToUpper(string(res.RiskLevel)))
	fmt.Fprintf(w, "\n%s %s  Score %d/100\n\n", levelIcon(res.RiskLevel), level, res.RiskScore)

	tw := tabwriter.NewWriter(w, 0, 0, 3, ' ', 0)
	fmt.Fprintf(tw, "Path\t%s\n", res.Path)
	fmt.Fprintf(tw, "Files scanned\t%d\n", res.ScannedFiles)
	fmt.Fprintf(tw, "Packages\t%d\n", res.Packages)
	fmt.Fprintf(tw, "Duration\t%s\n", time.Duration(res.DurationMS)*time.Millisecond)
	tw.Flush()

	if counts := res.CountBySeverity(); len(counts) > 0 {
		parts := make([]string, 0, 4)
		for _, sev := range []finding.Severity{finding.SeverityCritical, finding.SeverityHigh, finding.SeverityMedium, finding.SeverityLow} {
			if n := counts[sev]; n > 0 {
				parts = append(parts, fmt.Sprintf("%s: %d", sev, n))
			}
		}
		fmt.Fprintf(w, "\nFindings by severity: %s\n", strings.Join(parts, ", "))
	}

	printCodeFindings(w, res.CodeFindings)
	printDependencyFindings(w, res.DependencyFindings)

	if res.TotalFindings() == 0 {
		fmt.Fprintln(w, "\n✅ No findings. Package looks clean.")
	}
}

func printCodeFindings(w io.Writer, findings []finding.CodeFinding) {
	if len(findings) == 0 {
		return
	}
	fmt.Fprintf(w, "\n%s\n", sectionStyle.Render(fmt.Sprintf("Code findings (%d)", len(findings))))

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SEVERITY\tCATEGORY\tLOCATION\tDESCRIPTION")
	fmt.Fprintln(tw, "--------\t--------\t--------\t-----------")
	for _, f := range findings {
		fmt.Fprintf(tw, "%s\t%s\t%s:%d\t%s\n", f.Severity, f.Category, f.File, f.Line, truncate(f.Description, 60))
	}
	tw.Flush()
}

func printDependencyFindings(w io.Writer, findings []finding.DependencyFinding) {
	if len(findings) == 0 {
		return
	}
	fmt.Fprintf(w, "\n%s\n", sectionStyle.Render(fmt.Sprintf("Dependency findings (%d)", len(findings))))

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SEVERITY\tPACKAGE\tID\tSOURCE\tREASON")
	fmt.Fprintln(tw, "--------\t-------\t--\t------\t------")
	for _, f := range findings {
		id := f.CVE
		if id == "" {
			id = "-"
		}
		pkg := f.Name
		if f.Version != "" {
			pkg += "@" + f.Version
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", f.Severity, pkg, id, f.Source, truncate(f.Reason, 60))
	}
	tw.Flush()
}

func levelIcon(level finding.RiskLevel) string {
	switch level {
	case finding.RiskCritical, finding.RiskHigh:
		return "🔴"
	case finding.RiskMedium:
		return "🟡"
	}
	return "🟢"
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
