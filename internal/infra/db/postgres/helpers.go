package postgres

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
