package checkers

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/bryanwahyu/secscan/internal/config"
	domain "github.com/bryanwahyu/secscan/internal/domain/scans"
)

// ControlsCheck verifies that each expected security control leaves a marker
// in its source file.
type ControlsCheck struct {
	Controls []config.Control
	Env      Env
}

func NewControls(controls []config.Control, env Env) *ControlsCheck {
	return &ControlsCheck{Controls: controls, Env: env}
}

func (c *ControlsCheck) Name() string { return domain.CheckControls }

func (c *ControlsCheck) Run(ctx context.Context) domain.CheckResult {
	sources := map[string]string{}
	var missing []config.Control
	for _, ctl := range c.Controls {
		if err := ctx.Err(); err != nil {
			return domain.Skip(c.Name(), fmt.Errorf("interrupted: %w", err))
		}
		body, ok := sources[ctl.File]
		if !ok {
			b, err := os.ReadFile(c.Env.path(ctl.File))
			if err != nil {
				c.Env.Log.Debugf("control source %s unreadable: %v", ctl.File, err)
			}
			body = string(b)
			sources[ctl.File] = body
		}
		if !hasMarker(body, ctl.Markers) {
			missing = append(missing, ctl)
		}
	}

	present := len(c.Controls) - len(missing)
	findings := []domain.Finding{{
		CheckName:   domain.CheckControls,
		Severity:    domain.SeverityInfo,
		Description: fmt.Sprintf("%d/%d security controls verified", present, len(c.Controls)),
		Status:      domain.StatusOpen,
	}}
	for _, ctl := range missing {
		findings = append(findings, domain.Finding{
			CheckName:   domain.CheckControls,
			Severity:    domain.SeverityMedium,
			Description: fmt.Sprintf("Missing security control: %s", ctl.Name),
			Location:    ctl.File,
			RuleID:      ctl.Name,
			Status:      domain.StatusOpen,
		})
	}
	return domain.CheckResult{Check: c.Name(), OK: true, Findings: findings}
}

func hasMarker(body string, markers []string) bool {
	for _, m := range markers {
		if m != "" && strings.Contains(body, m) {
			return true
		}
	}
	return false
}
