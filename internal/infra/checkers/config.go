package checkers

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/bryanwahyu/secscan/internal/config"
	domain "github.com/bryanwahyu/secscan/internal/domain/scans"
)

// ConfigCheck evaluates file rules against the project tree. Violations are
// findings; the check itself always completes.
type ConfigCheck struct {
	Rules []config.Rule
	Env   Env
}

func NewConfiguration(rules []config.Rule, env Env) *ConfigCheck {
	return &ConfigCheck{Rules: rules, Env: env}
}

func (c *ConfigCheck) Name() string { return domain.CheckConfiguration }

func (c *ConfigCheck) Run(ctx context.Context) domain.CheckResult {
	e := &ruleEval{env: c.Env, missing: map[string]bool{}, contents: map[string]string{}}
	for _, r := range c.Rules {
		// hasil setengah jalan tidak boleh dilaporkan sebagai OK
		if err := ctx.Err(); err != nil {
			return domain.Skip(c.Name(), fmt.Errorf("interrupted: %w", err))
		}
		e.eval(r)
	}
	c.Env.Log.Debugf("%s: %d rules, %d findings", c.Name(), len(c.Rules), len(e.findings))
	return domain.CheckResult{Check: c.Name(), OK: true, Findings: e.findings}
}

type ruleEval struct {
	env      Env
	findings []domain.Finding
	missing  map[string]bool // paths already reported as missing
	contents map[string]string
}

func (e *ruleEval) add(r config.Rule, sev domain.Severity, desc, loc string) {
	e.findings = append(e.findings, domain.Finding{
		CheckName:   domain.CheckConfiguration,
		Severity:    sev,
		Description: desc,
		Location:    loc,
		RuleID:      r.ID,
		Status:      domain.StatusOpen,
	})
}

// fileMissing reports a missing path once, however many rules reference it.
func (e *ruleEval) fileMissing(r config.Rule) {
	if e.missing[r.Path] {
		return
	}
	e.missing[r.Path] = true
	e.add(r, domain.SeverityMedium, fmt.Sprintf("Expected file missing: %s", r.Path), r.Path)
}

func (e *ruleEval) read(path string) (string, bool, error) {
	if s, ok := e.contents[path]; ok {
		return s, true, nil
	}
	b, err := os.ReadFile(e.env.path(path))
	if errors.Is(err, fs.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	e.contents[path] = string(b)
	return string(b), true, nil
}

func (e *ruleEval) eval(r config.Rule) {
	sev := severity(r.Severity)
	switch r.Kind {
	case "file_exists":
		_, err := os.Stat(e.env.path(r.Path))
		switch {
		case errors.Is(err, fs.ErrNotExist):
			e.missing[r.Path] = true
			e.add(r, sev, r.Description, r.Path)
		case err != nil:
			e.add(r, domain.SeverityMedium, fmt.Sprintf("Could not read %s: %v", r.Path, err), r.Path)
		}

	case "file_contains", "file_not_contains":
		if e.missing[r.Path] {
			return
		}
		body, ok, err := e.read(r.Path)
		if err != nil {
			e.add(r, domain.SeverityMedium, fmt.Sprintf("Could not read %s: %v", r.Path, err), r.Path)
			return
		}
		if !ok {
			e.fileMissing(r)
			return
		}
		idx := strings.Index(body, r.Pattern)
		if r.Kind == "file_contains" && idx < 0 {
			e.add(r, sev, r.Description, r.Path)
		}
		if r.Kind == "file_not_contains" && idx >= 0 {
			line := strings.Count(body[:idx], "\n") + 1
			e.add(r, sev, r.Description, fmt.Sprintf("%s:%d", r.Path, line))
		}

	case "no_secrets":
		dir := e.env.path(r.Path)
		if _, err := os.Stat(dir); errors.Is(err, fs.ErrNotExist) {
			e.fileMissing(r)
			return
		}
		hits, err := scanSecrets(e.env.Root, dir)
		if err != nil {
			e.env.Log.Warnf("secret scan of %s incomplete: %v", r.Path, err)
		}
		for _, h := range hits {
			e.add(r, sev, fmt.Sprintf("%s: %s", r.Description, h.Title), fmt.Sprintf("%s:%d", h.File, h.Line))
		}

	default:
		e.env.Log.Warnf("rule %s: unknown kind %q ignored", r.ID, r.Kind)
	}
}
