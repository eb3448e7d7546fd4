// Package publish uploads a finished build to itch.io: a retrying REST
// client for game metadata and a butler CLI wrapper for the upload itself.
package publish

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/PSthelyBlog/gamesmith/internal/proc"
	"go.uber.org/zap"
)

// InvalidTargetError reports a publish target or channel that failed
// allow-list validation.
type InvalidTargetError struct {
	Value  string
	Reason string
}

func (e *InvalidTargetError) Error() string {
	return fmt.Sprintf("invalid publish value %q: %s", e.Value, e.Reason)
}

var (
	targetPattern  = regexp.MustCompile(`^[a-z0-9_-]+/[a-z0-9_-]+$`)
	channelPattern = regexp.MustCompile(`^[a-z0-9_-]+$`)
)

// ValidateTarget checks an itch.io target ("user/game"). Same character
// discipline as run ids: nothing that could reach a shell or a path escapes
// validation.
func ValidateTarget(target string) error {
	switch {
	case target == "":
		return &InvalidTargetError{Value: target, Reason: "empty"}
	case strings.ContainsRune(target, 0):
		return &InvalidTargetError{Value: target, Reason: "contains NUL byte"}
	case strings.Contains(target, ".."):
		return &InvalidTargetError{Value: target, Reason: "contains .."}
	case !targetPattern.MatchString(target):
		return &InvalidTargetError{Value: target, Reason: "must be user/game in lowercase letters, digits, hyphen, underscore"}
	}
	return nil
}

// ValidateChannel checks a butler upload channel name.
func ValidateChannel(channel string) error {
	switch {
	case channel == "":
		return &InvalidTargetError{Value: channel, Reason: "empty"}
	case !channelPattern.MatchString(channel):
		return &InvalidTargetError{Value: channel, Reason: "must contain only lowercase letters, digits, hyphen, underscore"}
	}
	return nil
}

// FailureError reports a publish phase that could not complete.
type FailureError struct {
	Target string
	Err    error
}

func (e *FailureError) Error() string {
	return fmt.Sprintf("publish to %s: %v", e.Target, e.Err)
}

func (e *FailureError) Unwrap() error {
	return e.Err
}

// Publisher pushes builds to itch.io via butler and checks game status via
// the REST API.
type Publisher struct {
	api    *Client
	runner *proc.Runner
	log    *zap.Logger
}

// NewPublisher creates a Publisher. api may be nil when no API key is
// configured; the status check is then skipped.
func NewPublisher(api *Client, log *zap.Logger) *Publisher {
	return &Publisher{api: api, runner: &proc.Runner{}, log: log}
}

// Push validates target and channel, then uploads dir via butler.
// Validation failures are returned before any subprocess or network I/O.
func (p *Publisher) Push(ctx context.Context, dir, target, channel string) error {
	if err := ValidateTarget(target); err != nil {
		return err
	}
	if err := ValidateChannel(channel); err != nil {
		return err
	}

	if p.api != nil {
		resp := p.api.GameStatus(ctx, target)
		if !resp.OK {
			p.log.Warn("itch.io status check failed, continuing with upload",
				zap.String("target", target), zap.String("error", resp.Error))
		}
	}

	p.log.Info("pushing build", zap.String("target", target), zap.String("channel", channel))
	res, err := p.runner.Run(ctx, proc.Spec{
		Command: "butler",
		Args:    []string{"push", dir, target + ":" + channel},
		Timeout: 10 * time.Minute,
	})
	if err != nil {
		return &FailureError{Target: target, Err: err}
	}
	if res.TimedOut {
		return &FailureError{Target: target, Err: fmt.Errorf("butler push timed out")}
	}
	if res.ExitCode != 0 {
		return &FailureError{Target: target, Err: fmt.Errorf("butler exit %d: %s", res.ExitCode, strings.TrimSpace(res.Stderr))}
	}
	return nil
}
