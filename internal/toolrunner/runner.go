// Package toolrunner runs external command-line tools and captures their
// output. All PDF and OCR work in this service is delegated to such tools.
package toolrunner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
)

// Result captures one finished tool invocation.
type Result struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
}

// Runner executes an external program synchronously. Implementations carry no
// state between calls.
type Runner interface {
	// Run executes name with args and waits for it to finish. A missing
	// binary or non-zero exit is returned as an error; Stderr is populated
	// either way so callers can surface diagnostics.
	Run(ctx context.Context, name string, args ...string) (Result, error)
}

// ExecRunner runs tools via os/exec.
type ExecRunner struct{}

// NewExecRunner creates a Runner backed by os/exec.
func NewExecRunner() *ExecRunner {
	return &ExecRunner{}
}

// Run implements Runner.
func (r *ExecRunner) Run(ctx context.Context, name string, args ...string) (Result, error) {
	cmd := exec.CommandContext(ctx, name, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := Result{
		Stdout: stdout.Bytes(),
		Stderr: stderr.Bytes(),
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
			return res, fmt.Errorf("%s exited with code %d: %s", name, res.ExitCode, excerpt(res.Stderr))
		}
		// Binary not found or failed to start.
		res.ExitCode = -1
		return res, fmt.Errorf("failed to execute %s: %w", name, err)
	}

	return res, nil
}

// excerpt trims stderr to a diagnostic-sized snippet.
func excerpt(stderr []byte) string {
	const max = 512
	s := bytes.TrimSpace(stderr)
	if len(s) > max {
		s = s[:max]
	}
	return string(s)
}
