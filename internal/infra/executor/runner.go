package executor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
	"text/template"
	"time"

	domain "github.com/bryanwahyu/secscan/internal/domain/scans"
)

const (
	ModeLocal  = "local"
	ModeDocker = "docker"
)

// Runner executes external analysis tools either from PATH or inside a
// throwaway docker container with the project root mounted at /src.
type Runner struct {
	Mode string
	Root string

	lookPath func(string) (string, error)
}

func NewRunner(mode, root string) *Runner {
	if mode == "" {
		mode = ModeLocal
	}
	if abs, err := filepath.Abs(root); err == nil {
		root = abs
	}
	return &Runner{Mode: mode, Root: root, lookPath: exec.LookPath}
}

func (r *Runner) Execute(ctx context.Context, req domain.ToolRequest) domain.ToolOutcome {
	start := time.Now()

	name, args, err := r.command(req)
	if err != nil {
		return domain.ToolOutcome{Err: err}
	}

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = req.WorkDir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	// jalankan command
	runErr := cmd.Run()
	out := domain.ToolOutcome{
		Available:  true,
		Stdout:     stdout.Bytes(),
		Stderr:     stderr.Bytes(),
		DurationMS: time.Since(start).Milliseconds(),
	}

	if runErr != nil {
		// ambil exit code
		var ee *exec.ExitError
		if !errors.As(runErr, &ee) {
			out.Available = false
			out.Err = fmt.Errorf("%w: %s: %v", domain.ErrToolUnavailable, req.Tool, runErr)
			return out
		}
		out.ExitCode = ee.ExitCode()
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		out.Err = fmt.Errorf("%w: %s: %v", domain.ErrToolFailed, req.Tool, ctxErr)
		return out
	}

	out.Success = okCode(out.ExitCode, req.OKCodes)
	if !out.Success {
		out.Err = fmt.Errorf("%w: %s exited with code %d: %s",
			domain.ErrToolFailed, req.Tool, out.ExitCode, firstLine(out.Stderr))
	}
	return out
}

// command resolves the program and argv for req in the runner's mode.
func (r *Runner) command(req domain.ToolRequest) (string, []string, error) {
	switch r.Mode {
	case ModeLocal:
		path, err := r.lookPath(req.Tool)
		if err != nil {
			return "", nil, fmt.Errorf("%w: %s not found on PATH", domain.ErrToolUnavailable, req.Tool)
		}
		return path, req.Args, nil
	case ModeDocker:
		if req.Image == "" {
			return "", nil, fmt.Errorf("%w: no image configured for %s", domain.ErrToolUnavailable, req.Tool)
		}
		path, err := r.lookPath("docker")
		if err != nil {
			return "", nil, fmt.Errorf("%w: docker not found on PATH", domain.ErrToolUnavailable)
		}
		return path, r.dockerArgs(req), nil
	default:
		return "", nil, fmt.Errorf("unsupported executor mode: %s", r.Mode)
	}
}

func (r *Runner) dockerArgs(req domain.ToolRequest) []string {
	args := []string{"run", "--rm",
		"-v", fmt.Sprintf("%s:/src", r.Root),
		"-w", "/src",
		req.Image,
	}
	return append(args, req.Args...)
}

func okCode(code int, ok []int) bool {
	if len(ok) == 0 {
		return code == 0
	}
	for _, c := range ok {
		if c == code {
			return true
		}
	}
	return false
}

func firstLine(b []byte) string {
	s := strings.TrimSpace(string(b))
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	if len(s) > 200 {
		s = s[:200]
	}
	return s
}

// RenderArgs expands text/template placeholders such as {{.Target}} in each
// argument. Unknown keys are an error.
func RenderArgs(args []string, data any) ([]string, error) {
	out := make([]string, 0, len(args))
	for _, a := range args {
		tmpl, err := template.New("arg").Option("missingkey=error").Parse(a)
		if err != nil {
			return nil, fmt.Errorf("parse arg %q: %w", a, err)
		}
		var buf bytes.Buffer
		if err := tmpl.Execute(&buf, data); err != nil {
			return nil, fmt.Errorf("render arg %q: %w", a, err)
		}
		out = append(out, buf.String())
	}
	return out, nil
}
