// Package metrics accumulates timing telemetry for a workflow run. Records
// are pure accumulation: nothing here has transition rules, and a collector
// is finalized exactly once.
package metrics

import (
	"fmt"
	"sort"
	"time"
)

// TimingRecord captures one named measurement. Immutable once captured.
type TimingRecord struct {
	Name     string            `json:"name"`
	Start    time.Time         `json:"start"`
	End      time.Time         `json:"end"`
	Duration time.Duration     `json:"duration"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// PhaseMetrics accumulates timings and counters for one phase.
type PhaseMetrics struct {
	Phase    string         `json:"phase"`
	Timings  []TimingRecord `json:"timings"`
	Counters map[string]int `json:"counters"`
}

// Collector owns per-phase metrics plus global (unattributed) timings.
type Collector struct {
	phases    map[string]*PhaseMetrics
	global    []TimingRecord
	open      map[string]time.Time
	startedAt time.Time
	finished  bool
	totalTime time.Duration
}

// NewCollector creates an empty collector.
func NewCollector() *Collector {
	return &Collector{
		phases:    make(map[string]*PhaseMetrics),
		open:      make(map[string]time.Time),
		startedAt: time.Now(),
	}
}

func (c *Collector) phase(name string) *PhaseMetrics {
	pm, ok := c.phases[name]
	if !ok {
		pm = &PhaseMetrics{Phase: name, Counters: make(map[string]int)}
		c.phases[name] = pm
	}
	return pm
}

// StartTimer opens a named timer. Stopping it with an empty phase records a
// global timing.
func (c *Collector) StartTimer(name string) {
	c.open[name] = time.Now()
}

// StopTimer closes a named timer and records it against phase ("" for
// global). Returns the captured record, or an error if the timer was
// never started.
func (c *Collector) StopTimer(name, phase string, metadata map[string]string) (*TimingRecord, error) {
	start, ok := c.open[name]
	if !ok {
		return nil, fmt.Errorf("timer %q not started", name)
	}
	delete(c.open, name)

	end := time.Now()
	rec := TimingRecord{
		Name:     name,
		Start:    start,
		End:      end,
		Duration: end.Sub(start),
		Metadata: metadata,
	}
	if phase == "" {
		c.global = append(c.global, rec)
	} else {
		pm := c.phase(phase)
		pm.Timings = append(pm.Timings, rec)
	}
	return &rec, nil
}

// Increment bumps a per-phase counter.
func (c *Collector) Increment(phase, counter string) {
	c.phase(phase).Counters[counter]++
}

// Finalize closes the collector, fixing the total elapsed time. Later calls
// are no-ops.
func (c *Collector) Finalize() {
	if c.finished {
		return
	}
	c.finished = true
	c.totalTime = time.Since(c.startedAt)
}

// PhaseSummary is one row of the collector's summary output.
type PhaseSummary struct {
	Phase    string         `json:"phase"`
	Total    time.Duration  `json:"total"`
	Timings  int            `json:"timings"`
	Counters map[string]int `json:"counters,omitempty"`
}

// Summary holds the finalized view of a run's metrics.
type Summary struct {
	TotalTime time.Duration  `json:"total_time"`
	Phases    []PhaseSummary `json:"phases"`
	Global    []TimingRecord `json:"global,omitempty"`
}

// Summary renders the collected metrics, phases sorted by name for stable
// output. Valid before Finalize; TotalTime is zero until then.
func (c *Collector) Summary() *Summary {
	out := &Summary{TotalTime: c.totalTime, Global: c.global}
	for _, pm := range c.phases {
		var total time.Duration
		for _, t := range pm.Timings {
			total += t.Duration
		}
		out.Phases = append(out.Phases, PhaseSummary{
			Phase:    pm.Phase,
			Total:    total,
			Timings:  len(pm.Timings),
			Counters: pm.Counters,
		})
	}
	sort.Slice(out.Phases, func(i, j int) bool {
		return out.Phases[i].Phase < out.Phases[j].Phase
	})
	return out
}
