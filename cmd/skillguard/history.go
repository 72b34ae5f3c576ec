package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"skillguard/internal/finding"
	"skillguard/internal/history"
)

var (
	historyLimit int
	historyJSON  bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent scans",
	Long:  `Lists the most recent scans recorded in the history database, newest first.`,
	RunE:  runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntVar(&historyLimit, "limit", 10, "Maximum number of scans to show")
	historyCmd.Flags().BoolVar(&historyJSON, "json", false, "Output scans as JSON")
}

func runHistory(cmd *cobra.Command, args []string) error {
	store, err := history.NewStore(history.StoreConfig{
		Backend:          viper.GetString("history.backend"),
		ConnectionString: historyTarget(),
	})
	if err != nil {
		return fmt.Errorf("cannot open history store: %w", err)
	}
	defer store.Close()

	records, err := store.RecentScans(historyLimit)
	if err != nil {
		return fmt.Errorf("cannot read history: %w", err)
	}

	if historyJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(records)
	}

	if len(records) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No scans recorded yet.")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "WHEN\tPATH\tSCORE\tLEVEL\tFINDINGS\tFILES")
	fmt.Fprintln(w, "----\t----\t-----\t-----\t--------\t-----")
	for _, rec := range records {
		fmt.Fprintf(w, "%s\t%s\t%d/100\t%s %s\t%d\t%d\n",
			formatAge(rec.CreatedAt),
			rec.Path,
			rec.RiskScore,
			riskIcon(rec.RiskLevel), rec.RiskLevel,
			rec.CodeFindings+rec.DependencyFindings,
			rec.ScannedFiles)
	}
	return w.Flush()
}

// formatAge renders how long ago a scan ran, compact enough for a table
// cell. Scans older than a month show the date instead.
func formatAge(t time.Time) string {
	if t.IsZero() {
		return "N/A"
	}
	age := time.Since(t)
	if age < 0 {
		age = 0
	}
	switch {
	case age < time.Minute:
		return fmt.Sprintf("%ds ago", int(age.Seconds()))
	case age < time.Hour:
		return fmt.Sprintf("%dm ago", int(age.Minutes()))
	case age < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(age.Hours()))
	case age < 30*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(age.Hours()/24))
	}
	return t.Format("2006-01-02")
}

func riskIcon(level finding.RiskLevel) string {
	switch level {
	case finding.RiskCritical, finding.RiskHigh:
		return "🔴"
	case finding.RiskMedium:
		return "🟡"
	}
	return "🟢"
}
