// Package qa hosts a built game on a local dev server, drives a headless
// browser through a fixed smoke-test battery and a performance pass, and
// aggregates everything into a severity-weighted report.
package qa

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// QAFailedError reports a QA run whose report carries failures. The full
// report travels with the error so callers can inspect which checks failed.
type QAFailedError struct {
	Failures int
	Report   *Report
}

func (e *QAFailedError) Error() string {
	return fmt.Sprintf("qa failed with %d failing check(s)", e.Failures)
}

// Options configures a QA run.
type Options struct {
	GameDir        string
	ServerCommand  string
	ServerArgs     []string
	Port           int
	StartupTimeout time.Duration
	ExtraIgnore    []string // extends the console ignore-list
	SkipPerf       bool
}

// Runner executes full QA runs.
type Runner struct {
	log *zap.Logger
}

// NewRunner creates a QA runner.
func NewRunner(log *zap.Logger) *Runner {
	return &Runner{log: log}
}

// Run starts the dev server, executes the smoke battery and the performance
// pass, writes both report files, and returns the finished report. The
// server is stopped on every exit path. A report whose overall status is
// failed or needs_attention is returned alongside a QAFailedError.
func (r *Runner) Run(ctx context.Context, opts Options) (*Report, error) {
	if opts.StartupTimeout == 0 {
		opts.StartupTimeout = 60 * time.Second
	}

	srv := NewServer(ServerOpts{
		Dir:     opts.GameDir,
		Command: opts.ServerCommand,
		Args:    opts.ServerArgs,
		Port:    opts.Port,
	})
	defer srv.Stop()

	r.log.Info("starting dev server", zap.String("dir", opts.GameDir), zap.String("url", srv.URL()))
	if err := srv.Start(ctx, opts.StartupTimeout); err != nil {
		return nil, fmt.Errorf("dev server: %w", err)
	}

	report := NewReport(opts.GameDir, srv.URL())
	harness := NewHarness(r.log, opts.ExtraIgnore)

	results, console := harness.RunSmokeTests(ctx, srv.URL())
	for _, res := range results {
		report.AddResult(res)
	}
	for _, msg := range console {
		report.AddConsoleMessage(msg)
	}

	if !opts.SkipPerf && harness.Available() {
		report.SetPerformance(harness.MeasurePerformance(ctx, srv.URL()))
	}

	report.DetermineOverallStatus()
	report.GenerateRecommendations()

	jsonPath, mdPath, err := report.Write()
	if err != nil {
		return report, fmt.Errorf("write qa report: %w", err)
	}
	r.log.Info("qa report written",
		zap.String("json", jsonPath),
		zap.String("markdown", mdPath),
		zap.String("overall", string(report.OverallStatus)))

	if report.OverallStatus == OverallFailed || report.OverallStatus == OverallNeedsAttention {
		return report, &QAFailedError{Failures: report.Counts[StatusFailed], Report: report}
	}
	return report, nil
}
