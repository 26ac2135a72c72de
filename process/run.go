package process

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"os/exec"
	"syscall"
	"time"

	"github.com/kbukum/automl/errors"
)

// ErrNotStarted marks failures to launch the binary at all, as opposed to a
// process that started and then failed.
var ErrNotStarted = stderrors.New("process did not start")

// stderrTail bounds how much stderr is attached to error details.
const stderrTail = 2048

// Run executes a subprocess and waits for it. When ctx is done the process
// group gets SIGTERM, then SIGKILL after the grace period.
//
// Errors are AppErrors: a launch failure is a resource error wrapping
// ErrNotStarted, a non-zero exit is a resource error carrying the stderr
// tail, and a done context is a timeout or cancellation.
func Run(ctx context.Context, cmd Command) (*Result, error) {
	if cmd.Binary == "" {
		return nil, errors.MissingField("binary")
	}

	grace := cmd.GracePeriod
	if grace == 0 {
		grace = DefaultGracePeriod
	}

	c := exec.CommandContext(ctx, cmd.Binary, cmd.Args...) //nolint:gosec // the worker binary is configured by the caller
	c.Dir = cmd.Dir
	c.Env = mergeEnv(cmd.Env)

	var stdout, stderr bytes.Buffer
	c.Stdout = &stdout
	c.Stderr = &stderr
	if cmd.Stdin != nil {
		c.Stdin = cmd.Stdin
	}

	// Own process group so the whole worker tree is signalled.
	c.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	c.Cancel = func() error {
		if c.Process == nil {
			return nil
		}
		return syscall.Kill(-c.Process.Pid, syscall.SIGTERM)
	}
	c.WaitDelay = grace

	start := time.Now()
	if err := c.Start(); err != nil {
		return &Result{ExitCode: -1}, errors.Resource(
			fmt.Sprintf("starting %s", cmd.Binary),
			fmt.Errorf("%w: %v", ErrNotStarted, err),
		)
	}
	err := c.Wait()

	result := &Result{
		Stdout:   stdout.Bytes(),
		Stderr:   stderr.Bytes(),
		ExitCode: c.ProcessState.ExitCode(),
		Duration: time.Since(start),
	}
	if err == nil {
		return result, nil
	}

	switch ctxErr := ctx.Err(); {
	case stderrors.Is(ctxErr, context.DeadlineExceeded):
		return result, errors.Timeout(cmd.Binary).WithCause(err)
	case ctxErr != nil:
		return result, errors.Cancelled(cmd.Binary).WithCause(err)
	}
	return result, errors.Resource(
		fmt.Sprintf("%s exited with code %d", cmd.Binary, result.ExitCode), err,
	).WithDetail("stderr", result.StderrTail(stderrTail))
}

// NotStarted reports whether err is a launch failure.
func NotStarted(err error) bool {
	return stderrors.Is(err, ErrNotStarted)
}

func mergeEnv(extra []string) []string {
	if len(extra) == 0 {
		return nil // inherit
	}
	return append(os.Environ(), extra...)
}
