package mysql

import (
	"encoding/json"
	"fmt"
	"strings"

	domain "github.com/bryanwahyu/secscan/internal/domain/scans"
)

// stringOrDash returns "-" when the input is empty/whitespace
func stringOrDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

func encodeRun(run *domain.ScanRun) (string, string, error) {
	doc, err := json.Marshal(run)
	if err != nil {
		return "", "", fmt.Errorf("encode run: %w", err)
	}
	checks, err := json.Marshal(run.ChecksPerformed)
	if err != nil {
		return "", "", fmt.Errorf("encode checks: %w", err)
	}
	return string(doc), string(checks), nil
}

func decodeRun(doc []byte) (*domain.ScanRun, error) {
	var run domain.ScanRun
	if err := json.Unmarshal(doc, &run); err != nil {
		return nil, fmt.Errorf("decode run: %w", err)
	}
	return &run, nil
}

// splitStatements splits a schema script on ';' since the driver runs one statement per Exec.
func splitStatements(script string) []string {
	var out []string
	for _, s := range strings.Split(script, ";") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
