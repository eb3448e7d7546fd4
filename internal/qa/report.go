package qa

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Status is the outcome of a single test.
type Status string

const (
	StatusPassed  Status = "passed"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped"
	StatusError   Status = "error"
)

// Severity ranks a test result's impact, independent of raw pass counts.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
	SeverityInfo     Severity = "info"
)

// marker returns the human-readable prefix for a severity in report text.
func (s Severity) marker() string {
	switch s {
	case SeverityCritical:
		return "[CRITICAL]"
	case SeverityHigh:
		return "[HIGH]"
	case SeverityMedium:
		return "[MEDIUM]"
	case SeverityLow:
		return "[LOW]"
	case SeverityInfo:
		return "[INFO]"
	}
	return "[?]"
}

// OverallStatus is the report-level verdict derived from all results.
type OverallStatus string

const (
	OverallPassed         OverallStatus = "passed"
	OverallNeedsAttention OverallStatus = "needs_attention"
	OverallIncomplete     OverallStatus = "incomplete"
	OverallFailed         OverallStatus = "failed"
	OverallUnknown        OverallStatus = "unknown"
)

// TestResult is the outcome of one check. Immutable once produced.
type TestResult struct {
	Name       string                 `json:"name"`
	Status     Status                 `json:"status"`
	Severity   Severity               `json:"severity"`
	Duration   time.Duration          `json:"-"`
	DurationMs int64                  `json:"duration_ms"`
	Message    string                 `json:"message,omitempty"`
	Details    map[string]interface{} `json:"details,omitempty"`
}

// ConsoleMessage is one captured browser console event.
type ConsoleMessage struct {
	Level string `json:"level"` // "log", "warning", "error"
	Text  string `json:"text"`
	URL   string `json:"url,omitempty"`
	Line  int64  `json:"line,omitempty"`
}

// Performance holds the measured load/runtime characteristics of a build.
type Performance struct {
	Measured   bool    `json:"measured"`
	Error      string  `json:"error,omitempty"`
	LoadTimeMs int64   `json:"load_time_ms"`
	AvgFPS     float64 `json:"avg_fps"`
	MinFPS     float64 `json:"min_fps"`
	MaxFPS     float64 `json:"max_fps"`
	MemoryMB   float64 `json:"memory_mb"`
}

// Report aggregates test results and console output for one QA run.
// Results accumulate monotonically; the overall status is always derived,
// never set directly.
type Report struct {
	GameDir         string           `json:"game_dir"`
	URL             string           `json:"url"`
	StartedAt       string           `json:"started_at"`
	Results         []TestResult     `json:"results"`
	Console         []ConsoleMessage `json:"console"`
	Performance     *Performance     `json:"performance,omitempty"`
	Counts          map[Status]int   `json:"counts"`
	SuccessRate     float64          `json:"success_rate"`
	OverallStatus   OverallStatus    `json:"overall_status"`
	Recommendations []string         `json:"recommendations"`
}

// NewReport creates an empty report for a QA run against url.
func NewReport(gameDir, url string) *Report {
	return &Report{
		GameDir:   gameDir,
		URL:       url,
		StartedAt: time.Now().UTC().Format(time.RFC3339),
		Counts: map[Status]int{
			StatusPassed: 0, StatusFailed: 0, StatusSkipped: 0, StatusError: 0,
		},
		Recommendations: []string{},
	}
}

// AddResult appends a result and bumps the matching status counter.
func (r *Report) AddResult(res TestResult) {
	if res.DurationMs == 0 && res.Duration > 0 {
		res.DurationMs = res.Duration.Milliseconds()
	}
	r.Results = append(r.Results, res)
	r.Counts[res.Status]++
}

// AddConsoleMessage records a console event.
func (r *Report) AddConsoleMessage(msg ConsoleMessage) {
	r.Console = append(r.Console, msg)
}

// AddRecommendation appends text unless it is already present.
func (r *Report) AddRecommendation(text string) {
	for _, existing := range r.Recommendations {
		if existing == text {
			return
		}
	}
	r.Recommendations = append(r.Recommendations, text)
}

// ConsoleErrors returns the error-level console messages recorded so far.
func (r *Report) ConsoleErrors() []ConsoleMessage {
	var errs []ConsoleMessage
	for _, m := range r.Console {
		if m.Level == "error" {
			errs = append(errs, m)
		}
	}
	return errs
}

// criticalFailures returns failed results carrying critical severity.
func (r *Report) criticalFailures() []TestResult {
	var out []TestResult
	for _, res := range r.Results {
		if res.Status == StatusFailed && res.Severity == SeverityCritical {
			out = append(out, res)
		}
	}
	return out
}

// DetermineOverallStatus derives the report verdict from the accumulated
// results. Priority: critical failure, any failure, any error, all passed,
// no results.
func (r *Report) DetermineOverallStatus() OverallStatus {
	if len(r.Results) == 0 {
		r.OverallStatus = OverallUnknown
		r.SuccessRate = 0
		return r.OverallStatus
	}

	r.SuccessRate = float64(r.Counts[StatusPassed]) / float64(len(r.Results)) * 100

	switch {
	case len(r.criticalFailures()) > 0:
		r.OverallStatus = OverallFailed
	case r.Counts[StatusFailed] > 0:
		r.OverallStatus = OverallNeedsAttention
	case r.Counts[StatusError] > 0:
		r.OverallStatus = OverallIncomplete
	default:
		r.OverallStatus = OverallPassed
	}
	return r.OverallStatus
}

// FPS thresholds for synthesized performance results.
const (
	fpsGood = 55.0
	fpsPoor = 30.0
)

// Load-time thresholds in milliseconds.
const (
	loadGoodMs = 3000
	loadSlowMs = 5000
)

// EvaluateFPS synthesizes a test result from a measured average FPS.
func EvaluateFPS(avg float64) TestResult {
	res := TestResult{
		Name:    "frame_rate",
		Message: fmt.Sprintf("average %.1f fps", avg),
		Details: map[string]interface{}{"avg_fps": avg},
	}
	switch {
	case avg >= fpsGood:
		res.Status = StatusPassed
		res.Severity = SeverityMedium
	case avg >= fpsPoor:
		res.Status = StatusFailed
		res.Severity = SeverityMedium
	default:
		res.Status = StatusFailed
		res.Severity = SeverityHigh
	}
	return res
}

// EvaluateLoadTime synthesizes a test result from a measured load time.
func EvaluateLoadTime(ms int64) TestResult {
	res := TestResult{
		Name:    "load_time",
		Message: fmt.Sprintf("loaded in %dms", ms),
		Details: map[string]interface{}{"load_time_ms": ms},
	}
	switch {
	case ms <= loadGoodMs:
		res.Status = StatusPassed
		res.Severity = SeverityLow
	case ms <= loadSlowMs:
		res.Status = StatusFailed
		res.Severity = SeverityLow
	default:
		res.Status = StatusFailed
		res.Severity = SeverityMedium
	}
	return res
}

// SetPerformance attaches the measured performance and, when measurement
// succeeded, synthesizes the FPS and load-time results.
func (r *Report) SetPerformance(p *Performance) {
	r.Performance = p
	if p == nil || !p.Measured {
		return
	}
	r.AddResult(EvaluateFPS(p.AvgFPS))
	r.AddResult(EvaluateLoadTime(p.LoadTimeMs))
}

const memoryLeakThresholdMB = 100

// GenerateRecommendations scans the final results and fills the
// recommendation list. Call after DetermineOverallStatus.
func (r *Report) GenerateRecommendations() {
	critical := r.criticalFailures()
	for _, res := range critical {
		r.AddRecommendation(fmt.Sprintf("Fix critical failure: %s: %s", res.Name, res.Message))
	}

	if n := len(r.ConsoleErrors()); n > 0 {
		r.AddRecommendation(fmt.Sprintf("Address %d console error(s) observed during testing", n))
	}

	if r.Performance != nil && r.Performance.Measured {
		if r.Performance.AvgFPS < fpsGood {
			r.AddRecommendation(fmt.Sprintf("Optimize rendering: average FPS is %.1f (target >= %.0f)", r.Performance.AvgFPS, fpsGood))
		}
		if r.Performance.LoadTimeMs > loadGoodMs {
			r.AddRecommendation(fmt.Sprintf("Reduce load time: %dms (target <= %dms)", r.Performance.LoadTimeMs, loadGoodMs))
		}
		if r.Performance.MemoryMB > memoryLeakThresholdMB {
			r.AddRecommendation(fmt.Sprintf("Investigate possible memory leak: %.1fMB JS heap in use", r.Performance.MemoryMB))
		}
	}

	if r.Counts[StatusFailed] == 0 && len(critical) == 0 {
		r.AddRecommendation("All smoke tests passed. Consider adding deeper gameplay tests")
	}
}

// consoleExcerptLimit bounds the console-error section of the markdown report.
const consoleExcerptLimit = 10

// Markdown renders the human-readable report document.
func (r *Report) Markdown() string {
	var b strings.Builder

	fmt.Fprintf(&b, "# QA Report\n\n")
	fmt.Fprintf(&b, "- Game: %s\n", r.GameDir)
	fmt.Fprintf(&b, "- URL: %s\n", r.URL)
	fmt.Fprintf(&b, "- Started: %s\n", r.StartedAt)
	fmt.Fprintf(&b, "- Overall: **%s**\n\n", r.OverallStatus)

	fmt.Fprintf(&b, "## Summary\n\n")
	fmt.Fprintf(&b, "| Passed | Failed | Skipped | Errors | Success rate |\n")
	fmt.Fprintf(&b, "|---|---|---|---|---|\n")
	fmt.Fprintf(&b, "| %d | %d | %d | %d | %.1f%% |\n\n",
		r.Counts[StatusPassed], r.Counts[StatusFailed], r.Counts[StatusSkipped], r.Counts[StatusError], r.SuccessRate)

	var failed []TestResult
	for _, res := range r.Results {
		if res.Status == StatusFailed || res.Status == StatusError {
			failed = append(failed, res)
		}
	}
	if len(failed) > 0 {
		fmt.Fprintf(&b, "## Failed Tests\n\n")
		for _, res := range failed {
			fmt.Fprintf(&b, "- %s **%s**: %s\n", res.Severity.marker(), res.Name, res.Message)
			if len(res.Details) > 0 {
				fmt.Fprintf(&b, "  - details: %v\n", res.Details)
			}
		}
		b.WriteString("\n")
	}

	if errs := r.ConsoleErrors(); len(errs) > 0 {
		fmt.Fprintf(&b, "## Console Errors\n\n")
		limit := len(errs)
		if limit > consoleExcerptLimit {
			limit = consoleExcerptLimit
		}
		for _, m := range errs[:limit] {
			fmt.Fprintf(&b, "- %s", m.Text)
			if m.URL != "" {
				fmt.Fprintf(&b, " (%s:%d)", m.URL, m.Line)
			}
			b.WriteString("\n")
		}
		if len(errs) > consoleExcerptLimit {
			fmt.Fprintf(&b, "- … and %d more\n", len(errs)-consoleExcerptLimit)
		}
		b.WriteString("\n")
	}

	if r.Performance != nil {
		fmt.Fprintf(&b, "## Performance\n\n")
		if r.Performance.Error != "" {
			fmt.Fprintf(&b, "- measurement error: %s\n", r.Performance.Error)
		}
		if r.Performance.Measured {
			fmt.Fprintf(&b, "- Load time: %dms\n", r.Performance.LoadTimeMs)
			fmt.Fprintf(&b, "- FPS: avg %.1f / min %.1f / max %.1f\n", r.Performance.AvgFPS, r.Performance.MinFPS, r.Performance.MaxFPS)
			if r.Performance.MemoryMB > 0 {
				fmt.Fprintf(&b, "- JS heap: %.1fMB\n", r.Performance.MemoryMB)
			}
		}
		b.WriteString("\n")
	}

	if len(r.Recommendations) > 0 {
		fmt.Fprintf(&b, "## Recommendations\n\n")
		for _, rec := range r.Recommendations {
			fmt.Fprintf(&b, "- %s\n", rec)
		}
		b.WriteString("\n")
	}

	var passed []string
	for _, res := range r.Results {
		if res.Status == StatusPassed {
			passed = append(passed, res.Name)
		}
	}
	if len(passed) > 0 {
		fmt.Fprintf(&b, "## Passed\n\n%s\n", strings.Join(passed, ", "))
	}

	return b.String()
}

// Write persists the report under <gameDir>/qa-reports as a timestamp-named
// JSON file and markdown document. Returns the two paths.
func (r *Report) Write() (jsonPath, mdPath string, err error) {
	dir := filepath.Join(r.GameDir, "qa-reports")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", "", fmt.Errorf("mkdir %s: %w", dir, err)
	}

	ts := time.Now().UTC().Format("20060102_150405")
	jsonPath = filepath.Join(dir, fmt.Sprintf("qa_report_%s.json", ts))
	mdPath = filepath.Join(dir, fmt.Sprintf("qa_report_%s.md", ts))

	if err := writeJSON(jsonPath, r); err != nil {
		return "", "", err
	}
	if err := os.WriteFile(mdPath, []byte(r.Markdown()), 0o644); err != nil {
		return "", "", fmt.Errorf("write %s: %w", mdPath, err)
	}
	return jsonPath, mdPath, nil
}
