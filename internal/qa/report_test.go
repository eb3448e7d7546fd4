package qa

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"testing"
)

func pass(name string) TestResult {
	return TestResult{Name: name, Status: StatusPassed, Severity: SeverityMedium}
}

func fail(name string, sev Severity) TestResult {
	return TestResult{Name: name, Status: StatusFailed, Severity: sev, Message: name + " broke"}
}

func TestDetermineOverallStatus(t *testing.T) {
	tests := []struct {
		name    string
		results []TestResult
		want    OverallStatus
	}{
		{"empty", nil, OverallUnknown},
		{"all passed", []TestResult{pass("a"), pass("b")}, OverallPassed},
		{"non-critical failure", []TestResult{pass("a"), fail("b", SeverityLow)}, OverallNeedsAttention},
		{"error only", []TestResult{pass("a"), {Name: "b", Status: StatusError, Severity: SeverityMedium}}, OverallIncomplete},
		{"skipped does not fail", []TestResult{pass("a"), {Name: "b", Status: StatusSkipped}}, OverallPassed},
		{"critical trumps errors", []TestResult{
			fail("boom", SeverityCritical),
			{Name: "x", Status: StatusError, Severity: SeverityLow},
		}, OverallFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewReport("/tmp/game", "http://localhost:3000")
			for _, res := range tt.results {
				r.AddResult(res)
			}
			if got := r.DetermineOverallStatus(); got != tt.want {
				t.Errorf("DetermineOverallStatus() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestSingleCriticalOutweighsManyPasses(t *testing.T) {
	r := NewReport("/tmp/game", "http://localhost:3000")
	for i := 0; i < 9; i++ {
		r.AddResult(pass(fmt.Sprintf("check%d", i)))
	}
	r.AddResult(fail("game_object", SeverityCritical))

	if got := r.DetermineOverallStatus(); got != OverallFailed {
		t.Errorf("overall = %s, want failed despite 9 passes", got)
	}
	if r.SuccessRate != 90.0 {
		t.Errorf("SuccessRate = %.1f, want 90.0", r.SuccessRate)
	}
}

func TestAddResultCounts(t *testing.T) {
	r := NewReport("/tmp/game", "http://localhost:3000")
	r.AddResult(pass("a"))
	r.AddResult(pass("b"))
	r.AddResult(fail("c", SeverityLow))
	r.AddResult(TestResult{Name: "d", Status: StatusSkipped})

	if r.Counts[StatusPassed] != 2 {
		t.Errorf("passed count = %d, want 2", r.Counts[StatusPassed])
	}
	if r.Counts[StatusFailed] != 1 {
		t.Errorf("failed count = %d, want 1", r.Counts[StatusFailed])
	}
	if r.Counts[StatusSkipped] != 1 {
		t.Errorf("skipped count = %d, want 1", r.Counts[StatusSkipped])
	}
}

func TestEvaluateFPS(t *testing.T) {
	tests := []struct {
		avg      float64
		status   Status
		severity Severity
	}{
		{60, StatusPassed, SeverityMedium},
		{55, StatusPassed, SeverityMedium},
		{40, StatusFailed, SeverityMedium},
		{30, StatusFailed, SeverityMedium},
		{20, StatusFailed, SeverityHigh},
	}
	for _, tt := range tests {
		res := EvaluateFPS(tt.avg)
		if res.Status != tt.status {
			t.Errorf("EvaluateFPS(%.0f).Status = %s, want %s", tt.avg, res.Status, tt.status)
		}
		if res.Severity != tt.severity {
			t.Errorf("EvaluateFPS(%.0f).Severity = %s, want %s", tt.avg, res.Severity, tt.severity)
		}
	}
}

func TestEvaluateLoadTime(t *testing.T) {
	tests := []struct {
		ms       int64
		status   Status
		severity Severity
	}{
		{2000, StatusPassed, SeverityLow},
		{3000, StatusPassed, SeverityLow},
		{4000, StatusFailed, SeverityLow},
		{5000, StatusFailed, SeverityLow},
		{6000, StatusFailed, SeverityMedium},
	}
	for _, tt := range tests {
		res := EvaluateLoadTime(tt.ms)
		if res.Status != tt.status {
			t.Errorf("EvaluateLoadTime(%d).Status = %s, want %s", tt.ms, res.Status, tt.status)
		}
		if res.Severity != tt.severity {
			t.Errorf("EvaluateLoadTime(%d).Severity = %s, want %s", tt.ms, res.Severity, tt.severity)
		}
	}
}

func TestSetPerformanceSynthesizesResults(t *testing.T) {
	r := NewReport("/tmp/game", "http://localhost:3000")
	r.SetPerformance(&Performance{Measured: true, AvgFPS: 58, LoadTimeMs: 1200})

	if len(r.Results) != 2 {
		t.Fatalf("Results has %d entries, want 2 (fps + load time)", len(r.Results))
	}
	if got := r.DetermineOverallStatus(); got != OverallPassed {
		t.Errorf("overall = %s, want passed", got)
	}
}

func TestSetPerformanceUnmeasuredAddsNothing(t *testing.T) {
	r := NewReport("/tmp/game", "http://localhost:3000")
	r.SetPerformance(&Performance{Measured: false, Error: "no browser"})
	if len(r.Results) != 0 {
		t.Errorf("Results has %d entries, want 0", len(r.Results))
	}
}

func TestAddRecommendationDeduplicates(t *testing.T) {
	r := NewReport("/tmp/game", "http://localhost:3000")
	r.AddRecommendation("do the thing")
	r.AddRecommendation("do the thing")
	r.AddRecommendation("do another thing")
	if len(r.Recommendations) != 2 {
		t.Errorf("Recommendations has %d entries, want 2", len(r.Recommendations))
	}
}

func TestGenerateRecommendations(t *testing.T) {
	r := NewReport("/tmp/game", "http://localhost:3000")
	r.AddResult(fail("game_object", SeverityCritical))
	r.AddConsoleMessage(ConsoleMessage{Level: "error", Text: "TypeError: x is undefined"})
	r.SetPerformance(&Performance{Measured: true, AvgFPS: 22, LoadTimeMs: 6500, MemoryMB: 180})
	r.DetermineOverallStatus()
	r.GenerateRecommendations()

	text := strings.Join(r.Recommendations, "\n")
	for _, want := range []string{"critical failure", "console error", "FPS", "load time", "memory leak"} {
		if !strings.Contains(text, want) {
			t.Errorf("recommendations missing %q:\n%s", want, text)
		}
	}
}

func TestGenerateRecommendationsAllGreen(t *testing.T) {
	r := NewReport("/tmp/game", "http://localhost:3000")
	r.AddResult(pass("a"))
	r.DetermineOverallStatus()
	r.GenerateRecommendations()
	if len(r.Recommendations) != 1 || !strings.Contains(r.Recommendations[0], "passed") {
		t.Errorf("Recommendations = %v, want the all-green note", r.Recommendations)
	}
}

func TestConsoleErrorsFiltersLevels(t *testing.T) {
	r := NewReport("/tmp/game", "http://localhost:3000")
	r.AddConsoleMessage(ConsoleMessage{Level: "log", Text: "game started"})
	r.AddConsoleMessage(ConsoleMessage{Level: "warning", Text: "deprecated API"})
	r.AddConsoleMessage(ConsoleMessage{Level: "error", Text: "boom"})

	errs := r.ConsoleErrors()
	if len(errs) != 1 || errs[0].Text != "boom" {
		t.Errorf("ConsoleErrors = %v, want just the error entry", errs)
	}
}

func TestMarkdownSections(t *testing.T) {
	r := NewReport("/tmp/game", "http://localhost:3000")
	r.AddResult(pass("page_load"))
	r.AddResult(fail("game_object", SeverityCritical))
	for i := 0; i < 15; i++ {
		r.AddConsoleMessage(ConsoleMessage{Level: "error", Text: fmt.Sprintf("err %d", i)})
	}
	r.SetPerformance(&Performance{Measured: true, AvgFPS: 58, LoadTimeMs: 900, MemoryMB: 40})
	r.DetermineOverallStatus()
	r.GenerateRecommendations()

	md := r.Markdown()
	for _, want := range []string{
		"# QA Report",
		"## Summary",
		"## Failed Tests",
		"[CRITICAL]",
		"## Console Errors",
		"and 5 more", // excerpt capped at 10 of 15
		"## Performance",
		"## Recommendations",
		"## Passed",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q", want)
		}
	}
}

func TestWriteCreatesReportPair(t *testing.T) {
	dir := t.TempDir()
	r := NewReport(dir, "http://localhost:3000")
	r.AddResult(pass("page_load"))
	r.DetermineOverallStatus()

	jsonPath, mdPath, err := r.Write()
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if !strings.Contains(jsonPath, "qa-reports") || !strings.HasSuffix(jsonPath, ".json") {
		t.Errorf("jsonPath = %q", jsonPath)
	}
	if !strings.HasSuffix(mdPath, ".md") {
		t.Errorf("mdPath = %q", mdPath)
	}

	data, err := os.ReadFile(jsonPath)
	if err != nil {
		t.Fatalf("read json report: %v", err)
	}
	var got Report
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal report: %v", err)
	}
	if got.OverallStatus != OverallPassed {
		t.Errorf("persisted overall = %s, want passed", got.OverallStatus)
	}
}
