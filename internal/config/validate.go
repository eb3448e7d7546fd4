package config

import (
	"fmt"
	"time"
)

// ValidationError represents a single validation issue with a config.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// validGates is the set of phases that may carry an approval gate.
var validGates = map[string]bool{
	"design":  true,
	"build":   true,
	"qa":      true,
	"publish": true,
}

// Validate checks a Config for structural and semantic errors. It returns a
// slice of all validation errors found (empty if valid). Callers fail fast
// on a non-empty result, before any phase executes.
func Validate(cfg *Config) []ValidationError {
	var errs []ValidationError
	w := cfg.Workflow

	if w.Agent.Command == "" {
		errs = append(errs, ValidationError{Field: "workflow.agent.command", Message: "is required"})
	}
	if w.Game.Dir == "" {
		errs = append(errs, ValidationError{Field: "workflow.game.dir", Message: "is required"})
	}
	if w.Game.Engine == "" {
		errs = append(errs, ValidationError{Field: "workflow.game.engine", Message: "is required"})
	}

	if w.QA.Port < 0 || w.QA.Port > 65535 {
		errs = append(errs, ValidationError{
			Field:   "workflow.qa.port",
			Message: fmt.Sprintf("%d is not a valid port", w.QA.Port),
		})
	}
	if w.KeepRuns < 1 {
		errs = append(errs, ValidationError{Field: "workflow.keep_runs", Message: "must be at least 1"})
	}

	for field, val := range map[string]string{
		"workflow.agent.timeout":      w.Agent.Timeout,
		"workflow.qa.startup_timeout": w.QA.StartupTimeout,
		"workflow.approvals.timeout":  w.Approvals.Timeout,
	} {
		if val == "" {
			continue
		}
		if _, err := time.ParseDuration(val); err != nil {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("invalid duration %q", val),
			})
		}
	}

	for i, gate := range w.Approvals.Gates {
		if !validGates[gate] {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("workflow.approvals.gates[%d]", i),
				Message: fmt.Sprintf("unknown gate phase %q", gate),
			})
		}
	}

	// Publish settings are only required when a target is configured; a run
	// can stop at QA without them.
	if w.Publish.Target != "" && w.Publish.Channel == "" {
		errs = append(errs, ValidationError{Field: "workflow.publish.channel", Message: "is required when publish.target is set"})
	}

	return errs
}
