// Package agent defines the opaque collaborator boundary to the LLM coding
// agent and a subprocess-backed implementation of it.
package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PSthelyBlog/gamesmith/internal/proc"
	"go.uber.org/zap"
)

// Task is one unit of work handed to an agent.
type Task struct {
	Prompt  string
	Dir     string // working directory the agent operates in
	Timeout time.Duration
}

// Result is what an agent returns on success.
type Result struct {
	Output   string
	Duration time.Duration
}

// Agent is the opaque collaborator interface: given a textual task it
// returns textual output or fails.
type Agent interface {
	Name() string
	Execute(ctx context.Context, task Task) (*Result, error)
}

// Error wraps a failure with the originating agent's name.
type Error struct {
	Agent string
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("agent %s: %v", e.Agent, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// CLIAgent invokes a coding-agent CLI (one shot, print mode) per task.
type CLIAgent struct {
	name         string
	command      string
	model        string
	flags        []string
	allowedTools []string
	runner       *proc.Runner
	log          *zap.Logger
}

// CLIOpts configures a CLIAgent.
type CLIOpts struct {
	Name         string
	Command      string
	Model        string
	Flags        []string
	AllowedTools []string
}

// NewCLIAgent creates a subprocess-backed agent.
func NewCLIAgent(opts CLIOpts, log *zap.Logger) *CLIAgent {
	name := opts.Name
	if name == "" {
		name = opts.Command
	}
	return &CLIAgent{
		name:         name,
		command:      opts.Command,
		model:        opts.Model,
		flags:        opts.Flags,
		allowedTools: opts.AllowedTools,
		runner:       &proc.Runner{},
		log:          log,
	}
}

// Name returns the agent's name for error attribution.
func (a *CLIAgent) Name() string {
	return a.name
}

// Execute runs the agent CLI with the task prompt and captures its output.
// A non-zero exit or timeout is an agent failure.
func (a *CLIAgent) Execute(ctx context.Context, task Task) (*Result, error) {
	args := []string{"-p", task.Prompt}
	if a.model != "" {
		args = append(args, "--model", a.model)
	}
	if len(a.allowedTools) > 0 {
		args = append(args, "--allowedTools", strings.Join(a.allowedTools, ","))
	}
	args = append(args, a.flags...)

	a.log.Info("invoking agent",
		zap.String("agent", a.name),
		zap.String("dir", task.Dir),
		zap.Duration("timeout", task.Timeout))

	res, err := a.runner.Run(ctx, proc.Spec{
		Command: a.command,
		Args:    args,
		Dir:     task.Dir,
		Timeout: task.Timeout,
	})
	if err != nil {
		return nil, &Error{Agent: a.name, Err: err}
	}
	if res.TimedOut {
		return nil, &Error{Agent: a.name, Err: fmt.Errorf("timed out after %s", task.Timeout)}
	}
	if res.ExitCode != 0 {
		detail := strings.TrimSpace(res.Stderr)
		if detail == "" {
			detail = strings.TrimSpace(res.Stdout)
		}
		return nil, &Error{Agent: a.name, Err: fmt.Errorf("exit %d: %s", res.ExitCode, truncate(detail, 500))}
	}

	return &Result{Output: res.Stdout, Duration: res.Duration}, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "…"
}
