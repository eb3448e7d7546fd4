package proc

import (
	"bufio"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"syscall"
	"time"
)

// Spec describes a single subprocess invocation.
type Spec struct {
	Command string
	Args    []string
	Dir     string
	Env     []string      // appended to the inherited environment
	Timeout time.Duration // 0 means no deadline
}

// Result holds the captured output of a completed subprocess.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Duration time.Duration
	TimedOut bool
}

// Runner executes subprocesses with capture and timeout handling. The zero
// value is usable.
type Runner struct{}

// Run executes spec to completion, capturing stdout and stderr. A non-zero
// exit is not an error; it is reported through Result.ExitCode. On timeout
// the whole process group is killed and Result.TimedOut is set.
func (r *Runner) Run(ctx context.Context, spec Spec) (*Result, error) {
	if spec.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, spec.Timeout)
		defer cancel()
	}

	cmd := newCommand(ctx, spec)

	var stdoutBuf, stderrBuf strings.Builder
	cmd.Stdout = &stdoutBuf
	cmd.Stderr = &stderrBuf

	start := time.Now()
	err := cmd.Run()
	res := &Result{
		Stdout:   stdoutBuf.String(),
		Stderr:   stderrBuf.String(),
		Duration: time.Since(start),
	}

	if ctx.Err() == context.DeadlineExceeded {
		res.ExitCode = -1
		res.TimedOut = true
		return res, nil
	}
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			res.ExitCode = exitErr.ExitCode()
			return res, nil
		}
		return res, fmt.Errorf("exec %s: %w", spec.Command, err)
	}
	return res, nil
}

// lineBufferSize bounds the streaming channel so a chatty child cannot
// grow memory without bound while the consumer is busy.
const lineBufferSize = 256

// Stream starts spec and returns a bounded channel of combined
// stdout/stderr lines, plus a wait function that blocks until the process
// exits and reports its result. The channel is closed when output is
// drained. The reader goroutine is decoupled from whatever consumes the
// lines; a slow consumer backpressures the child via the pipe.
func (r *Runner) Stream(ctx context.Context, spec Spec) (<-chan string, func() (*Result, error), error) {
	if spec.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, spec.Timeout)
		// cancel is invoked by the wait function below.
		return r.stream(ctx, cancel, spec)
	}
	return r.stream(ctx, func() {}, spec)
}

func (r *Runner) stream(ctx context.Context, cancel context.CancelFunc, spec Spec) (<-chan string, func() (*Result, error), error) {
	cmd := newCommand(ctx, spec)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return nil, nil, fmt.Errorf("stdout pipe: %w", err)
	}
	cmd.Stderr = cmd.Stdout

	start := time.Now()
	if err := cmd.Start(); err != nil {
		cancel()
		return nil, nil, fmt.Errorf("start %s: %w", spec.Command, err)
	}

	lines := make(chan string, lineBufferSize)
	var captured strings.Builder
	done := make(chan struct{})

	go func() {
		defer close(lines)
		defer close(done)
		scanner := bufio.NewScanner(stdout)
		scanner.Buffer(make([]byte, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := scanner.Text()
			captured.WriteString(line)
			captured.WriteByte('\n')
			lines <- line
		}
	}()

	wait := func() (*Result, error) {
		defer cancel()
		err := cmd.Wait()
		<-done
		res := &Result{
			Stdout:   captured.String(),
			Duration: time.Since(start),
		}
		if ctx.Err() == context.DeadlineExceeded {
			res.ExitCode = -1
			res.TimedOut = true
			return res, nil
		}
		if err != nil {
			if exitErr, ok := err.(*exec.ExitError); ok {
				res.ExitCode = exitErr.ExitCode()
				return res, nil
			}
			return res, fmt.Errorf("wait %s: %w", spec.Command, err)
		}
		return res, nil
	}

	return lines, wait, nil
}

// newCommand builds an exec.Cmd in its own process group so that a
// cancellation kills the child and everything it spawned.
func newCommand(ctx context.Context, spec Spec) *exec.Cmd {
	cmd := exec.CommandContext(ctx, spec.Command, spec.Args...)
	cmd.Dir = spec.Dir
	if len(spec.Env) > 0 {
		cmd.Env = append(cmd.Environ(), spec.Env...)
	}
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		// Negative pid targets the process group.
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
	return cmd
}
