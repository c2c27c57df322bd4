package scans

// CheckResult is what a Checker hands back: its findings and whether it ran.
type CheckResult struct {
	Check    string
	OK       bool
	Findings []Finding
	Reason   string // why the check was skipped, empty when OK
	RawName  string // report file name for the captured raw output; on a skip, the stale capture to remove
	Raw      []byte // raw tool output, written to the report dir as-is
}

// Skip builds a not-ok result. It never carries findings.
func Skip(check string, err error) CheckResult {
	reason := "skipped"
	if err != nil {
		reason = err.Error()
	}
	return CheckResult{Check: check, Reason: reason}
}

// ToolRequest untuk Executor
type ToolRequest struct {
	Tool    string   // binary name, e.g. bandit
	Args    []string // already rendered arguments
	Image   string   // container image when executing in docker
	WorkDir string
	OKCodes []int // exit codes that still mean "the tool did its job"
}

// ToolOutcome hasil dari Executor. Available=false means the binary could not
// be started at all; Success=false with Available=true means it ran but failed.
type ToolOutcome struct {
	Available  bool
	Success    bool
	ExitCode   int
	Stdout     []byte
	Stderr     []byte
	Err        error
	DurationMS int64
}
