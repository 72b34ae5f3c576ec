package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"skillguard/internal/lockfile"
)

var depsJSON bool

var depsCmd = &cobra.Command{
	Use:   "deps [path]",
	Short: "Check dependencies only, without scanning source code",
	Long: `Resolves the npm packages declared in the given directory and reconciles
vulnerability findings from the threat table, npm audit and the OSV database.
Source files are not analyzed.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runDeps,
}

func init() {
	rootCmd.AddCommand(depsCmd)
	depsCmd.Flags().BoolVar(&depsJSON, "json", false, "Output findings as JSON")
}

func runDeps(cmd *cobra.Command, args []string) error {
	path := "."
	if len(args) > 0 {
		path = args[0]
	}

	absPath, err := resolveScanPath(path)
	if err != nil {
		return err
	}

	refs := lockfile.Packages(absPath)
	findings := newReconciler().Reconcile(cmd.Context(), absPath, refs)

	if depsJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(findings)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Resolved %d packages, %d vulnerable\n", len(refs), len(findings))

	if len(findings) == 0 {
		fmt.Fprintln(out, "✅ No vulnerable dependencies found.")
		return nil
	}

	fmt.Fprintln(out)
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SEVERITY\tPACKAGE\tID\tSOURCE\tREASON")
	fmt.Fprintln(w, "--------\t-------\t--\t------\t------")
	for _, f := range findings {
		id := f.CVE
		if id == "" {
			id = "-"
		}
		pkg := f.Name
		if f.Version != "" {
			pkg = fmt.Sprintf("%s@%s", f.Name, f.Version)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", f.Severity, pkg, id, f.Source, f.Reason)
	}
	return w.Flush()
}
