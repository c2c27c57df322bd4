package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/bryanwahyu/secscan/internal/config"
	"github.com/bryanwahyu/secscan/internal/logger"
)

var rootCmd = &cobra.Command{
	Use:   "secscan",
	Short: "Security scan orchestrator for Python API projects",
	Long: `secscan runs static analysis, dependency audit, configuration rules and
security-control checks against a project, scores the result and writes
JSON and Markdown reports.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var (
	configPath string
	verbose    bool
)

// exitError carries a process exit code out of a command.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit status %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error { return e.err }

// Execute runs the root command and returns the process exit code:
// 0 success, 1 open HIGH findings, 2 fatal error.
func Execute() int {
	err := rootCmd.Execute()
	if err == nil {
		return 0
	}
	var ee *exitError
	if errors.As(err, &ee) {
		if ee.err != nil {
			fmt.Fprintln(os.Stderr, "Error:", ee.err)
		}
		return ee.code
	}
	fmt.Fprintln(os.Stderr, "Error:", err)
	return 2
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config.yaml (default $CONFIG_PATH or ./config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

func resolveConfigPath() string {
	if configPath != "" {
		return configPath
	}
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		return v
	}
	return "config.yaml"
}

// loadConfig is shared by every subcommand. Failures are fatal (exit 2).
func loadConfig() (*config.Config, *logger.Logger, error) {
	log := logger.New(os.Stdout, verbose)
	path := resolveConfigPath()
	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, &exitError{code: 2, err: fmt.Errorf("config load: %w", err)}
	}
	log.Debugf("config loaded from %s (project=%q root=%s)", path, cfg.Project, cfg.Root)
	return cfg, log, nil
}
