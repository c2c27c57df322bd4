package cli

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	appscans "github.com/bryanwahyu/secscan/internal/application/scans"
	domain "github.com/bryanwahyu/secscan/internal/domain/scans"
)

var (
	exportOnly bool
	aiReview   bool
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Run every security check once and write the reports",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadConfig()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a := newApp(ctx, cfg, log)
		defer a.Close()
		if aiReview && a.svc.Reviewer == nil {
			log.Warnf("--ai-review requested but OPENAI_API_KEY is not set; skipping")
		}

		log.Infof("Starting security scan of %s", cfg.Project)
		res, err := a.svc.Run(ctx, appscans.RunOptions{ExportOnly: exportOnly, AIReview: aiReview})
		if err != nil {
			return &exitError{code: 2, err: fmt.Errorf("scan: %w", err)}
		}
		printSummary(cmd.OutOrStdout(), res)
		if code := exitCode(res.Run); code != 0 {
			return &exitError{code: code}
		}
		return nil
	},
}

// exitCode is 1 while open HIGH findings remain.
func exitCode(run domain.ScanRun) int {
	if run.Counts.High > 0 {
		return 1
	}
	return 0
}

func printSummary(w io.Writer, res appscans.RunResult) {
	run := res.Run
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Security Score: %d/100 (%s)\n", run.Score, run.Posture)
	if run.InsufficientData {
		fmt.Fprintln(w, "No checks could be performed; score reflects insufficient data.")
	}
	fmt.Fprintf(w, "Findings: %d high, %d medium, %d low (%d accepted)\n",
		run.Counts.High, run.Counts.Medium, run.Counts.Low, run.Counts.Accepted)
	for _, s := range run.SkippedChecks {
		fmt.Fprintf(w, "Skipped: %s (%s)\n", s.Check, s.Reason)
	}
	fmt.Fprintf(w, "Reports written to %s/\n", res.ReportDir)
	for _, u := range res.ArtifactURLs {
		fmt.Fprintf(w, "Uploaded: %s\n", u)
	}
}

func init() {
	scanCmd.Flags().BoolVar(&exportOnly, "export-only", false, "re-parse captured tool output instead of running tools")
	scanCmd.Flags().BoolVar(&aiReview, "ai-review", false, "ask OpenAI for remediation advice after the scan")
	rootCmd.AddCommand(scanCmd)
}
