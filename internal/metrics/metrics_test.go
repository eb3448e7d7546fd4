package metrics

import (
	"testing"
	"time"
)

func TestStartStopTimer(t *testing.T) {
	c := NewCollector()
	c.StartTimer("phase:design")
	time.Sleep(10 * time.Millisecond)
	rec, err := c.StopTimer("phase:design", "design", map[string]string{"engine": "phaser"})
	if err != nil {
		t.Fatalf("StopTimer: %v", err)
	}
	if rec.Duration < 10*time.Millisecond {
		t.Errorf("Duration = %s, want >= 10ms", rec.Duration)
	}
	if rec.Metadata["engine"] != "phaser" {
		t.Errorf("Metadata = %v", rec.Metadata)
	}

	s := c.Summary()
	if len(s.Phases) != 1 || s.Phases[0].Phase != "design" {
		t.Fatalf("Phases = %+v", s.Phases)
	}
	if s.Phases[0].Timings != 1 {
		t.Errorf("Timings = %d, want 1", s.Phases[0].Timings)
	}
}

func TestStopUnstartedTimer(t *testing.T) {
	c := NewCollector()
	if _, err := c.StopTimer("ghost", "design", nil); err == nil {
		t.Fatal("expected error for unstarted timer")
	}
}

func TestStopTimerTwice(t *testing.T) {
	c := NewCollector()
	c.StartTimer("t")
	if _, err := c.StopTimer("t", "", nil); err != nil {
		t.Fatalf("StopTimer: %v", err)
	}
	if _, err := c.StopTimer("t", "", nil); err == nil {
		t.Fatal("second StopTimer should fail")
	}
}

func TestGlobalTimings(t *testing.T) {
	c := NewCollector()
	c.StartTimer("startup")
	if _, err := c.StopTimer("startup", "", nil); err != nil {
		t.Fatalf("StopTimer: %v", err)
	}
	s := c.Summary()
	if len(s.Global) != 1 || s.Global[0].Name != "startup" {
		t.Errorf("Global = %+v", s.Global)
	}
	if len(s.Phases) != 0 {
		t.Errorf("Phases = %+v, want empty", s.Phases)
	}
}

func TestIncrement(t *testing.T) {
	c := NewCollector()
	c.Increment("qa", "retries")
	c.Increment("qa", "retries")
	c.Increment("build", "agent_calls")

	s := c.Summary()
	counters := make(map[string]map[string]int)
	for _, p := range s.Phases {
		counters[p.Phase] = p.Counters
	}
	if counters["qa"]["retries"] != 2 {
		t.Errorf("qa retries = %d, want 2", counters["qa"]["retries"])
	}
	if counters["build"]["agent_calls"] != 1 {
		t.Errorf("build agent_calls = %d, want 1", counters["build"]["agent_calls"])
	}
}

func TestFinalizeOnce(t *testing.T) {
	c := NewCollector()
	time.Sleep(5 * time.Millisecond)
	c.Finalize()
	total := c.Summary().TotalTime
	if total < 5*time.Millisecond {
		t.Errorf("TotalTime = %s, want >= 5ms", total)
	}

	time.Sleep(5 * time.Millisecond)
	c.Finalize()
	if got := c.Summary().TotalTime; got != total {
		t.Errorf("second Finalize changed TotalTime: %s -> %s", total, got)
	}
}

func TestSummaryBeforeFinalize(t *testing.T) {
	c := NewCollector()
	if got := c.Summary().TotalTime; got != 0 {
		t.Errorf("TotalTime = %s before Finalize, want 0", got)
	}
}

func TestSummaryPhasesSorted(t *testing.T) {
	c := NewCollector()
	for _, phase := range []string{"qa", "build", "design"} {
		c.Increment(phase, "n")
	}
	s := c.Summary()
	want := []string{"build", "design", "qa"}
	if len(s.Phases) != 3 {
		t.Fatalf("Phases = %+v", s.Phases)
	}
	for i, p := range s.Phases {
		if p.Phase != want[i] {
			t.Errorf("Phases[%d] = %s, want %s", i, p.Phase, want[i])
		}
	}
}
