package ai

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/bryanwahyu/secscan/internal/domain/ai"
	domain "github.com/bryanwahyu/secscan/internal/domain/scans"
)

// maxFindings bounds the prompt size for noisy projects.
const maxFindings = 100

type Service struct {
	client ai.Reviewer
}

func NewService(client ai.Reviewer) *Service {
	return &Service{client: client}
}

// Review asks the AI reviewer for advice on run. INFO findings are dropped
// from the payload; they carry no action.
func (s *Service) Review(ctx context.Context, run domain.ScanRun) (string, error) {
	payload := run
	payload.Findings = make([]domain.Finding, 0, len(run.Findings))
	for _, f := range run.Findings {
		if f.Severity == domain.SeverityInfo {
			continue
		}
		if len(payload.Findings) == maxFindings {
			break
		}
		payload.Findings = append(payload.Findings, f)
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encode review payload: %w", err)
	}
	return s.client.Review(ctx, b)
}
