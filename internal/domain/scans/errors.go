package scans

import "errors"

var (
	// ErrToolUnavailable means the external tool is not installed or not on PATH.
	ErrToolUnavailable = errors.New("tool unavailable")
	// ErrToolFailed means the tool started but exited with an unexpected code.
	ErrToolFailed = errors.New("tool failed")
	// ErrParse means the tool output could not be parsed.
	ErrParse = errors.New("unparsable tool output")
	// ErrNoCapture means export-only replay found no captured output.
	ErrNoCapture = errors.New("no captured output to replay")
)
