package checkers

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/bryanwahyu/secscan/internal/config"
	domain "github.com/bryanwahyu/secscan/internal/domain/scans"
	"github.com/bryanwahyu/secscan/internal/infra/executor"
	"github.com/bryanwahyu/secscan/internal/logger"
)

// Raw output file names inside the report directory.
const (
	BanditRawName   = "bandit_report.json"
	PipAuditRawName = "pip_audit.json"
)

// Env is what every checker needs to know about the scanned project.
type Env struct {
	Root      string
	ReportDir string
	Replay    bool // re-parse captured raw output instead of running tools
	Log       *logger.Logger
}

func (e Env) path(rel string) string {
	if filepath.IsAbs(rel) {
		return rel
	}
	return filepath.Join(e.Root, rel)
}

type parseFunc func(check string, data []byte) ([]domain.Finding, error)

// toolCheck runs one external JSON-emitting tool and parses its output.
type toolCheck struct {
	name    string
	rawName string
	tool    config.ToolConfig
	exec    domain.Executor
	env     Env
	parse   parseFunc
}

func (c *toolCheck) Name() string { return c.name }

func (c *toolCheck) Run(ctx context.Context) domain.CheckResult {
	data, err := c.output(ctx)
	if err != nil {
		return c.skip(err)
	}
	findings, err := c.parse(c.name, data)
	if err != nil {
		return c.skip(err)
	}
	c.env.Log.Debugf("%s: %d findings", c.name, len(findings))
	return domain.CheckResult{
		Check:    c.name,
		OK:       true,
		Findings: findings,
		RawName:  c.rawName,
		Raw:      data,
	}
}

// skip keeps RawName on live runs so the orchestrator can drop the previous
// run's capture; a replay must never delete the file it replays.
func (c *toolCheck) skip(err error) domain.CheckResult {
	c.env.Log.Warnf("%s skipped: %v", c.name, err)
	res := domain.Skip(c.name, err)
	if !c.env.Replay {
		res.RawName = c.rawName
	}
	return res
}

func (c *toolCheck) output(ctx context.Context) ([]byte, error) {
	if c.env.Replay {
		data, err := os.ReadFile(filepath.Join(c.env.ReportDir, c.rawName))
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", domain.ErrNoCapture, c.rawName)
		}
		return data, err
	}

	args, err := executor.RenderArgs(c.tool.Args, struct{ Target, Root string }{c.tool.Target, c.env.Root})
	if err != nil {
		return nil, err
	}
	c.env.Log.Debugf("running %s %s", c.tool.Binary, strings.Join(args, " "))
	out := c.exec.Execute(ctx, domain.ToolRequest{
		Tool:    c.tool.Binary,
		Args:    args,
		Image:   c.tool.Image,
		WorkDir: c.env.Root,
		OKCodes: c.tool.OKCodes,
	})
	if out.Err != nil {
		return nil, out.Err
	}
	if !out.Success {
		return nil, fmt.Errorf("%w: %s exited with code %d", domain.ErrToolFailed, c.tool.Binary, out.ExitCode)
	}
	c.env.Log.Debugf("%s finished in %dms (exit %d)", c.tool.Binary, out.DurationMS, out.ExitCode)
	return out.Stdout, nil
}

// NewStaticAnalysis wraps bandit.
func NewStaticAnalysis(exec domain.Executor, tool config.ToolConfig, env Env) domain.Checker {
	return &toolCheck{
		name:    domain.CheckStaticAnalysis,
		rawName: BanditRawName,
		tool:    tool,
		exec:    exec,
		env:     env,
		parse:   domain.ParseBanditJSON,
	}
}

// NewDependencies wraps pip-audit. pip-audit carries no severity of its own,
// so every vulnerability gets tool.Severity.
func NewDependencies(exec domain.Executor, tool config.ToolConfig, env Env) domain.Checker {
	sev := severity(tool.Severity)
	if tool.Severity == "" {
		sev = domain.SeverityHigh
	}
	return &toolCheck{
		name:    domain.CheckDependencies,
		rawName: PipAuditRawName,
		tool:    tool,
		exec:    exec,
		env:     env,
		parse: func(check string, data []byte) ([]domain.Finding, error) {
			return domain.ParsePipAuditJSON(check, data, sev)
		},
	}
}

// severity keeps unrecognised labels so the aggregator can warn about them.
func severity(raw string) domain.Severity {
	if s, ok := domain.NormalizeSeverity(raw); ok {
		return s
	}
	return domain.Severity(strings.ToUpper(strings.TrimSpace(raw)))
}
