// Package gitcli wraps the version-control command line. Everything goes
// through a Runner so tests can script subprocess behavior without a real
// repository.
package gitcli

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/oneconcern/lfslink/pkg/errors"
)

// Runner executes a subprocess in a directory and returns its standard
// output. A nonzero exit is reported as an *ExitError in the chain.
type Runner interface {
	Run(ctx context.Context, dir string, name string, args ...string) ([]byte, error)
}

// ExitError carries a subprocess exit status and its captured stderr.
type ExitError struct {
	Code   int
	Stderr string
}

func (e *ExitError) Error() string {
	if e.Stderr == "" {
		return fmt.Sprintf("exit status %d", e.Code)
	}
	return fmt.Sprintf("exit status %d: %s", e.Code, e.Stderr)
}

// ExecRunner is the production Runner, backed by os/exec.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, dir string, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		var xerr *exec.ExitError
		if errors.As(err, &xerr) {
			err = &ExitError{Code: xerr.ExitCode(), Stderr: strings.TrimSpace(stderr.String())}
		}
		return stdout.Bytes(), fmt.Errorf("%s %s: %w", name, strings.Join(args, " "), err)
	}
	return stdout.Bytes(), nil
}

// exitCode extracts an ExitError code from an error chain.
func exitCode(err error) (int, bool) {
	var xerr *ExitError
	if errors.As(err, &xerr) {
		return xerr.Code, true
	}
	return 0, false
}
