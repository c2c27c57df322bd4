package scans

import "errors"

// ErrHistoryDisabled is returned by history queries when no database is configured.
var ErrHistoryDisabled = errors.New("scan history is not configured")

// ErrInterrupted means the context ended before every check finished; no
// report is written for such a run.
var ErrInterrupted = errors.New("scan interrupted")
