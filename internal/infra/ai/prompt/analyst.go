package prompt

import (
	"encoding/json"
	"fmt"
	"strings"
)

// GetSystemPrompt provides strict directions and schema for JSON output.
func GetSystemPrompt() string {
	return `You are a senior application security analyst reviewing the summary of an automated security scan of a Python LLM API. You must produce one valid JSON object only (no markdown, no commentary) that follows the schema below. Do not include code fences.

Requirements:
- Output must be a single JSON object.
- Use uppercase severity values: HIGH, MEDIUM, LOW.
- priorities is ordered most urgent first; at most 8 items. Each action is one concrete step a developer can take.
- Only discuss findings present in the summary. Do not invent findings. Mention skipped checks as coverage gaps.
- Never repeat credential values even if they appear in the input.

Schema (example with empty values):
{
  "summary": "<string>",
  "priorities": [
    {"title": "<string>", "severity": "<HIGH|MEDIUM|LOW>", "action": "<string>"}
  ],
  "coverage_gaps": ["<string>"],
  "advice": "<string>"
}`
}

// GetUserPrompt wraps the scan summary JSON.
func GetUserPrompt(summary []byte) string {
	return fmt.Sprintf("Review this security scan summary and respond with the JSON per schema.\n\n%s", summary)
}

// Advice matches the schema used by the system prompt.
type Advice struct {
	Summary    string `json:"summary"`
	Priorities []struct {
		Title    string `json:"title"`
		Severity string `json:"severity"`
		Action   string `json:"action"`
	} `json:"priorities"`
	CoverageGaps []string `json:"coverage_gaps"`
	Advice       string   `json:"advice"`
}

// ParseAdvice decodes the model's reply, tolerating stray code fences.
func ParseAdvice(content string) (Advice, error) {
	s := strings.TrimSpace(content)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")

	var a Advice
	if err := json.Unmarshal([]byte(strings.TrimSpace(s)), &a); err != nil {
		return Advice{}, fmt.Errorf("decode advice: %w", err)
	}
	return a, nil
}

// Markdown renders the advice as security_advice.md.
func (a Advice) Markdown() string {
	var b strings.Builder
	b.WriteString("# Security Advice\n\n")
	b.WriteString("_Generated by an AI reviewer from security_summary.json. Advisory only; it does not change the score._\n\n")
	if a.Summary != "" {
		fmt.Fprintf(&b, "## Summary\n\n%s\n\n", a.Summary)
	}
	if len(a.Priorities) > 0 {
		b.WriteString("## Priorities\n\n")
		for i, p := range a.Priorities {
			fmt.Fprintf(&b, "%d. **[%s] %s** - %s\n", i+1, strings.ToUpper(p.Severity), p.Title, p.Action)
		}
		b.WriteString("\n")
	}
	if len(a.CoverageGaps) > 0 {
		b.WriteString("## Coverage Gaps\n\n")
		for _, g := range a.CoverageGaps {
			fmt.Fprintf(&b, "- %s\n", g)
		}
		b.WriteString("\n")
	}
	if a.Advice != "" {
		fmt.Fprintf(&b, "## Advice\n\n%s\n", a.Advice)
	}
	return b.String()
}
