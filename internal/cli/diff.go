package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"

	domain "github.com/bryanwahyu/secscan/internal/domain/scans"
	"github.com/bryanwahyu/secscan/internal/infra/report"
)

var (
	baselinePath string
	currentPath  string
	diffJSON     bool
)

var diffCmd = &cobra.Command{
	Use:   "diff",
	Short: "Compare a report against a saved baseline",
	RunE: func(cmd *cobra.Command, args []string) error {
		if baselinePath == "" {
			return &exitError{code: 2, err: fmt.Errorf("--baseline is required")}
		}
		cur := currentPath
		if cur == "" {
			cfg, _, err := loadConfig()
			if err != nil {
				return err
			}
			cur = filepath.Join(cfg.ReportPath(), report.SummaryJSON)
		}

		base, err := report.ReadRun(baselinePath)
		if err != nil {
			return &exitError{code: 2, err: fmt.Errorf("read baseline: %w", err)}
		}
		now, err := report.ReadRun(cur)
		if err != nil {
			return &exitError{code: 2, err: fmt.Errorf("read current: %w", err)}
		}

		d := domain.Compare(*base, *now)
		if diffJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(d)
		}
		printDiff(cmd.OutOrStdout(), d)
		return nil
	},
}

func printDiff(w io.Writer, d domain.Diff) {
	fmt.Fprintf(w, "Score delta: %+d\n", d.ScoreDelta)
	section := func(title string, list []domain.Finding) {
		fmt.Fprintf(w, "\n%s (%d)\n", title, len(list))
		for _, f := range list {
			fmt.Fprintf(w, "  [%s] %s: %s", f.Severity, f.CheckName, f.Description)
			if f.Location != "" {
				fmt.Fprintf(w, " (%s)", f.Location)
			}
			fmt.Fprintln(w)
		}
	}
	section("NEW", d.New)
	section("FIXED", d.Fixed)
	section("UNCHANGED", d.Unchanged)
}

func init() {
	diffCmd.Flags().StringVar(&baselinePath, "baseline", "", "baseline security_summary.json")
	diffCmd.Flags().StringVar(&currentPath, "current", "", "current summary (default: report dir summary)")
	diffCmd.Flags().BoolVar(&diffJSON, "json", false, "print the diff as JSON")
	rootCmd.AddCommand(diffCmd)
}
