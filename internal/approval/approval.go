// Package approval defines the human approval-gate boundary: given a
// message and a timeout, a gate returns an accept/reject decision.
package approval

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"
)

// Decision is the outcome of one approval request.
type Decision struct {
	Approved bool
	Reason   string // optional human-supplied reason on rejection
}

// Gate requests an external accept/reject decision.
type Gate interface {
	Request(ctx context.Context, gate, message string, timeout time.Duration) (*Decision, error)
}

// TimeoutError reports a gate that received no decision in time.
type TimeoutError struct {
	Gate    string
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("approval gate %q timed out after %s", e.Gate, e.Timeout)
}

// RejectedError reports an explicit rejection.
type RejectedError struct {
	Gate   string
	Reason string
}

func (e *RejectedError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("approval gate %q rejected", e.Gate)
	}
	return fmt.Sprintf("approval gate %q rejected: %s", e.Gate, e.Reason)
}

// AutoGate approves everything. Used for unattended runs.
type AutoGate struct{}

func (AutoGate) Request(ctx context.Context, gate, message string, timeout time.Duration) (*Decision, error) {
	return &Decision{Approved: true}, nil
}

// TerminalGate prompts on an output writer and reads the decision from an
// input reader (normally stdout/stdin).
type TerminalGate struct {
	In  io.Reader
	Out io.Writer
}

// Request prints the message and waits for a y/n answer until timeout.
// Anything after "n " is kept as the rejection reason.
func (g *TerminalGate) Request(ctx context.Context, gate, message string, timeout time.Duration) (*Decision, error) {
	fmt.Fprintf(g.Out, "\n[approval: %s] %s\n", gate, message)
	fmt.Fprintf(g.Out, "approve? [y/n <reason>] (timeout %s): ", timeout)

	type answer struct {
		line string
		err  error
	}
	ch := make(chan answer, 1)
	go func() {
		line, err := bufio.NewReader(g.In).ReadString('\n')
		ch <- answer{line: line, err: err}
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
		return nil, &TimeoutError{Gate: gate, Timeout: timeout}
	case a := <-ch:
		if a.err != nil {
			return nil, fmt.Errorf("read approval input: %w", a.err)
		}
		line := strings.TrimSpace(a.line)
		lower := strings.ToLower(line)
		if lower == "y" || lower == "yes" {
			return &Decision{Approved: true}, nil
		}
		reason := ""
		if fields := strings.SplitN(line, " ", 2); len(fields) == 2 {
			reason = strings.TrimSpace(fields[1])
		}
		return &Decision{Approved: false, Reason: reason}, nil
	}
}
