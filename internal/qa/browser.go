package qa

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"
	"go.uber.org/zap"
)

// defaultIgnorePatterns filters known-benign console noise. A message
// containing any of these substrings is never recorded.
var defaultIgnorePatterns = []string{
	"favicon.ico",
	"DevTools",
	"chrome-extension://",
	"[HMR]",
	"[vite]",
	"[webpack-dev-server]",
	"Download the React DevTools",
}

// browserCandidates are the binary names probed when locating a browser.
var browserCandidates = []string{
	"google-chrome",
	"google-chrome-stable",
	"chromium",
	"chromium-browser",
	"chrome",
	"headless-shell",
}

// exceptionObservationWindow is how long the harness watches for uncaught
// script errors after the page settles.
const exceptionObservationWindow = 3 * time.Second

// fpsSampleWindowMs is the requestAnimationFrame sampling window.
const fpsSampleWindowMs = 3000

// Harness drives a headless browser against a dev server URL through the
// fixed smoke-test battery and a separate performance pass.
type Harness struct {
	log        *zap.Logger
	ignore     []string
	execPath   string
	navTimeout time.Duration

	mu       sync.Mutex
	console  []ConsoleMessage
	uncaught []string
}

// NewHarness creates a Harness. extraIgnore extends the built-in console
// ignore-list.
func NewHarness(log *zap.Logger, extraIgnore []string) *Harness {
	path, _ := findBrowser()
	return &Harness{
		log:        log,
		ignore:     append(append([]string{}, defaultIgnorePatterns...), extraIgnore...),
		execPath:   path,
		navTimeout: 30 * time.Second,
	}
}

// findBrowser locates a Chrome/Chromium binary on PATH.
func findBrowser() (string, bool) {
	for _, name := range browserCandidates {
		if path, err := exec.LookPath(name); err == nil {
			return path, true
		}
	}
	return "", false
}

// Available reports whether a browser binary was found.
func (h *Harness) Available() bool {
	return h.execPath != ""
}

// ignored reports whether a console message matches the ignore-list.
func (h *Harness) ignored(text string) bool {
	for _, pat := range h.ignore {
		if strings.Contains(text, pat) {
			return true
		}
	}
	return false
}

// record stores a console message unless it is ignore-listed.
func (h *Harness) record(msg ConsoleMessage) {
	if h.ignored(msg.Text) {
		return
	}
	h.mu.Lock()
	h.console = append(h.console, msg)
	h.mu.Unlock()
}

func (h *Harness) consoleErrors() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, m := range h.console {
		if m.Level == "error" {
			n++
		}
	}
	return n
}

func (h *Harness) uncaughtCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.uncaught)
}

// newSession opens a browser tab with console and exception listeners
// attached. The returned cancel must always be called.
func (h *Harness) newSession(ctx context.Context) (context.Context, context.CancelFunc) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.ExecPath(h.execPath),
		chromedp.NoSandbox,
	)
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx)
	cancel := func() {
		tabCancel()
		allocCancel()
	}

	chromedp.ListenTarget(tabCtx, func(ev interface{}) {
		switch ev := ev.(type) {
		case *runtime.EventConsoleAPICalled:
			level := "log"
			switch ev.Type {
			case runtime.APITypeError:
				level = "error"
			case runtime.APITypeWarning:
				level = "warning"
			}
			h.record(ConsoleMessage{Level: level, Text: consoleText(ev)})
		case *runtime.EventExceptionThrown:
			text := ev.ExceptionDetails.Text
			var url string
			var line int64
			if ev.ExceptionDetails.Exception != nil && ev.ExceptionDetails.Exception.Description != "" {
				text = ev.ExceptionDetails.Exception.Description
			}
			url = ev.ExceptionDetails.URL
			line = ev.ExceptionDetails.LineNumber
			h.mu.Lock()
			h.uncaught = append(h.uncaught, text)
			h.mu.Unlock()
			h.record(ConsoleMessage{Level: "error", Text: text, URL: url, Line: line})
		}
	})

	return tabCtx, cancel
}

// consoleText flattens a console call's arguments into one line.
func consoleText(ev *runtime.EventConsoleAPICalled) string {
	var parts []string
	for _, arg := range ev.Args {
		if arg.Value != nil {
			parts = append(parts, strings.Trim(string(arg.Value), `"`))
		} else if arg.Description != "" {
			parts = append(parts, arg.Description)
		}
	}
	return strings.Join(parts, " ")
}

// RunSmokeTests executes the fixed battery against url and returns the
// ordered results plus every console message collected along the way.
// A missing browser yields a single skipped result, not a failure.
func (h *Harness) RunSmokeTests(ctx context.Context, url string) ([]TestResult, []ConsoleMessage) {
	if !h.Available() {
		return []TestResult{{
			Name:     "browser_available",
			Status:   StatusSkipped,
			Severity: SeverityInfo,
			Message:  "no Chrome/Chromium binary found on PATH; browser tests skipped",
		}}, nil
	}

	tabCtx, cancel := h.newSession(ctx)
	defer cancel()

	var results []TestResult
	add := func(start time.Time, name string, sev Severity, pass bool, passMsg, failMsg string) {
		res := TestResult{
			Name:     name,
			Severity: sev,
			Duration: time.Since(start),
			Message:  passMsg,
			Status:   StatusPassed,
		}
		if !pass {
			res.Status = StatusFailed
			res.Message = failMsg
		}
		results = append(results, res)
	}

	// 1. Page load.
	start := time.Now()
	status, err := h.navigate(tabCtx, url)
	if err != nil {
		results = append(results, TestResult{
			Name:     "page_load",
			Status:   StatusError,
			Severity: SeverityCritical,
			Duration: time.Since(start),
			Message:  fmt.Sprintf("navigation failed: %v", err),
		})
		h.log.Warn("page load failed, aborting smoke battery", zap.String("url", url), zap.Error(err))
		return results, h.snapshotConsole()
	}
	add(start, "page_load", SeverityCritical, status >= 200 && status < 400,
		fmt.Sprintf("HTTP %d", status), fmt.Sprintf("HTTP %d response on navigation", status))

	// 2. Rendering surface.
	start = time.Now()
	var area float64
	err = chromedp.Run(tabCtx, chromedp.Evaluate(
		`(() => { const c = document.querySelector('canvas'); return c ? c.clientWidth * c.clientHeight : 0; })()`,
		&area,
	))
	add(start, "canvas_present", SeverityCritical, err == nil && area > 0,
		fmt.Sprintf("canvas area %.0fpx²", area), "no non-zero-area canvas element found")

	// 3. Uncaught script errors during the observation window.
	start = time.Now()
	before := h.uncaughtCount()
	select {
	case <-tabCtx.Done():
	case <-time.After(exceptionObservationWindow):
	}
	newErrs := h.uncaughtCount() - before
	add(start, "no_uncaught_errors", SeverityHigh, newErrs == 0,
		"no uncaught errors observed",
		fmt.Sprintf("%d uncaught error(s) during %s window", newErrs, exceptionObservationWindow))

	// 4. Engine initialization flags.
	start = time.Now()
	var engineUp bool
	err = chromedp.Run(tabCtx, chromedp.Evaluate(
		`typeof window.game !== 'undefined' && window.gameRunning === true`,
		&engineUp,
	))
	add(start, "engine_initialized", SeverityCritical, err == nil && engineUp,
		"window.game present and running", "window.game/window.gameRunning not observable")

	// 5. Console errors accumulated so far.
	start = time.Now()
	errCount := h.consoleErrors()
	add(start, "no_console_errors", SeverityMedium, errCount == 0,
		"console clean", fmt.Sprintf("%d error-level console message(s)", errCount))

	// 6. Input responsiveness.
	start = time.Now()
	before = h.uncaughtCount()
	err = chromedp.Run(tabCtx,
		chromedp.KeyEvent(kb.ArrowUp),
		chromedp.KeyEvent(kb.ArrowDown),
		chromedp.KeyEvent(kb.ArrowLeft),
		chromedp.KeyEvent(kb.ArrowRight),
		chromedp.KeyEvent(" "),
		chromedp.Sleep(500*time.Millisecond),
	)
	inputErrs := h.uncaughtCount() - before
	add(start, "input_responsive", SeverityMedium, err == nil && inputErrs == 0,
		"synthetic key presses produced no errors",
		fmt.Sprintf("key presses raised %d error(s)", inputErrs))

	return results, h.snapshotConsole()
}

// navigate loads url and reports the document response status.
func (h *Harness) navigate(ctx context.Context, url string) (int64, error) {
	navCtx, cancel := context.WithTimeout(ctx, h.navTimeout)
	defer cancel()

	var status int64
	var mu sync.Mutex
	chromedp.ListenTarget(navCtx, func(ev interface{}) {
		if resp, ok := ev.(*network.EventResponseReceived); ok {
			if resp.Type == network.ResourceTypeDocument {
				mu.Lock()
				if status == 0 {
					status = resp.Response.Status
				}
				mu.Unlock()
			}
		}
	})

	err := chromedp.Run(navCtx,
		network.Enable(),
		chromedp.Navigate(url),
		chromedp.WaitReady("body"),
	)
	if err != nil {
		return 0, err
	}
	mu.Lock()
	defer mu.Unlock()
	if status == 0 {
		// Some dev servers serve from cache without a network event.
		status = 200
	}
	return status, nil
}

func (h *Harness) snapshotConsole() []ConsoleMessage {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]ConsoleMessage, len(h.console))
	copy(out, h.console)
	return out
}

// fpsSamplerJS measures frame-time deltas over the sampling window via
// requestAnimationFrame and resolves to {avg, min, max}.
const fpsSamplerJS = `new Promise((resolve) => {
	const deltas = [];
	let last = performance.now();
	const stopAt = last + %d;
	function frame(now) {
		deltas.push(now - last);
		last = now;
		if (now < stopAt) {
			requestAnimationFrame(frame);
		} else {
			const fps = deltas.filter(d => d > 0).map(d => 1000 / d);
			if (fps.length === 0) { resolve({avg: 0, min: 0, max: 0}); return; }
			resolve({
				avg: fps.reduce((a, b) => a + b, 0) / fps.length,
				min: Math.min(...fps),
				max: Math.max(...fps),
			});
		}
	}
	requestAnimationFrame(frame);
})`

// MeasurePerformance runs the independent performance pass: load time,
// FPS sampling, and JS heap usage where the browser exposes it. Failures
// are reported inside the returned value, never raised.
func (h *Harness) MeasurePerformance(ctx context.Context, url string) *Performance {
	if !h.Available() {
		return &Performance{Error: "no Chrome/Chromium binary found on PATH"}
	}

	tabCtx, cancel := h.newSession(ctx)
	defer cancel()

	start := time.Now()
	err := chromedp.Run(tabCtx,
		chromedp.Navigate(url),
		chromedp.WaitVisible("canvas", chromedp.ByQuery),
	)
	if err != nil {
		return &Performance{Error: fmt.Sprintf("load measurement: %v", err)}
	}
	loadMs := time.Since(start).Milliseconds()

	var fps struct {
		Avg float64 `json:"avg"`
		Min float64 `json:"min"`
		Max float64 `json:"max"`
	}
	err = chromedp.Run(tabCtx, chromedp.Evaluate(
		fmt.Sprintf(fpsSamplerJS, fpsSampleWindowMs),
		&fps,
		func(p *runtime.EvaluateParams) *runtime.EvaluateParams {
			return p.WithAwaitPromise(true)
		},
	))
	if err != nil {
		return &Performance{Error: fmt.Sprintf("fps sampling: %v", err), LoadTimeMs: loadMs}
	}

	perf := &Performance{
		Measured:   true,
		LoadTimeMs: loadMs,
		AvgFPS:     fps.Avg,
		MinFPS:     fps.Min,
		MaxFPS:     fps.Max,
	}

	// performance.memory is non-standard; read it opportunistically.
	var heapMB float64
	if err := chromedp.Run(tabCtx, chromedp.Evaluate(
		`performance.memory ? performance.memory.usedJSHeapSize / (1024 * 1024) : 0`,
		&heapMB,
	)); err == nil {
		perf.MemoryMB = heapMB
	}

	return perf
}
