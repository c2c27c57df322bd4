package ai

import "context"

// Reviewer turns a scan summary (JSON) into advisory markdown.
type Reviewer interface {
	Review(ctx context.Context, summary []byte) (string, error)
}
