package system

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
)

// osExecutor implements CommandExecutor using real OS operations.
type osExecutor struct{}

func (e *osExecutor) Run(ctx context.Context, p *Process) (int, error) {
	if len(p.Argv) == 0 {
		return -1, errors.New("empty argv")
	}

	cmd := exec.CommandContext(ctx, p.Argv[0], p.Argv[1:]...)
	cmd.Stdin = p.Stdin
	cmd.Stdout = p.Stdout
	cmd.Stderr = p.Stderr
	if cmd.Stderr == nil {
		cmd.Stderr = os.Stderr
	}
	if len(p.Env) > 0 {
		cmd.Env = append(os.Environ(), p.Env...)
	}

	err := cmd.Run()
	if err == nil {
		return 0, nil
	}

	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		return -1, fmt.Errorf("%s: %w", p.Argv[0], err)
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return -1, fmt.Errorf("%s: %w", p.Argv[0], ctxErr)
	}
	// ExitCode is -1 when the child was killed by a signal
	if status := exitErr.ExitCode(); status >= 0 {
		return status, nil
	}
	return -1, fmt.Errorf("%s: %w", p.Argv[0], err)
}
