package ai

import "errors"

// ErrQuotaExceeded indicates the AI provider returned a quota/limit error (HTTP 429 or similar).
var ErrQuotaExceeded = errors.New("ai quota exceeded")

// ErrEmptyResponse means the provider answered without any usable content.
var ErrEmptyResponse = errors.New("ai returned an empty response")
