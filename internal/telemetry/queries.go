package telemetry

import (
	"database/sql"
	"fmt"
	"time"
)

// RunEvent represents a row in the run_events table.
type RunEvent struct {
	ID        int
	RunID     string
	Event     string
	Phase     string
	Detail    string
	Timestamp string
}

// LogRunEvent inserts a workflow event.
func (d *DB) LogRunEvent(runID, event, phase, detail string) error {
	_, err := d.conn.Exec(
		`INSERT INTO run_events (run_id, event, phase, detail) VALUES (?, ?, ?, ?)`,
		runID, event, phase, detail,
	)
	if err != nil {
		return fmt.Errorf("log run event: %w", err)
	}
	return nil
}

// LogPhaseTiming records how long a phase took and whether it succeeded.
func (d *DB) LogPhaseTiming(runID, phase string, success bool, duration time.Duration) error {
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	_, err := d.conn.Exec(
		`INSERT INTO phase_timings (run_id, phase, outcome, duration_ms) VALUES (?, ?, ?, ?)`,
		runID, phase, outcome, duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("log phase timing: %w", err)
	}
	return nil
}

// LogQARun records the summary of one QA run.
func (d *DB) LogQARun(runID, overall string, passed, failed, skipped, errors int, avgFPS float64, loadMs int64) error {
	_, err := d.conn.Exec(
		`INSERT INTO qa_runs (run_id, overall, passed, failed, skipped, errors, avg_fps, load_time_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, overall, passed, failed, skipped, errors, avgFPS, loadMs,
	)
	if err != nil {
		return fmt.Errorf("log qa run: %w", err)
	}
	return nil
}

// RunHistory returns the events for a run, oldest first.
func (d *DB) RunHistory(runID string) ([]RunEvent, error) {
	rows, err := d.conn.Query(
		`SELECT id, run_id, event, phase, detail, timestamp
		 FROM run_events WHERE run_id = ? ORDER BY timestamp, id`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("query run history: %w", err)
	}
	defer rows.Close()

	var events []RunEvent
	for rows.Next() {
		var e RunEvent
		var phase, detail sql.NullString
		if err := rows.Scan(&e.ID, &e.RunID, &e.Event, &phase, &detail, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("scan run event: %w", err)
		}
		e.Phase = phase.String
		e.Detail = detail.String
		events = append(events, e)
	}
	return events, rows.Err()
}

// PhaseStat is one row of aggregated phase statistics.
type PhaseStat struct {
	Phase       string
	Runs        int
	Successes   int
	AvgDuration time.Duration
	MaxDuration time.Duration
}

// PhaseStats aggregates timing statistics per phase across all runs.
func (d *DB) PhaseStats() ([]PhaseStat, error) {
	rows, err := d.conn.Query(`
		SELECT phase,
		       COUNT(*),
		       SUM(CASE WHEN outcome = 'success' THEN 1 ELSE 0 END),
		       AVG(duration_ms),
		       MAX(duration_ms)
		FROM phase_timings
		GROUP BY phase
		ORDER BY phase`)
	if err != nil {
		return nil, fmt.Errorf("query phase stats: %w", err)
	}
	defer rows.Close()

	var stats []PhaseStat
	for rows.Next() {
		var s PhaseStat
		var avgMs, maxMs float64
		if err := rows.Scan(&s.Phase, &s.Runs, &s.Successes, &avgMs, &maxMs); err != nil {
			return nil, fmt.Errorf("scan phase stat: %w", err)
		}
		s.AvgDuration = time.Duration(avgMs) * time.Millisecond
		s.MaxDuration = time.Duration(maxMs) * time.Millisecond
		stats = append(stats, s)
	}
	return stats, rows.Err()
}

// QASummary is one row of recent QA outcomes.
type QASummary struct {
	RunID     string
	Overall   string
	Passed    int
	Failed    int
	AvgFPS    float64
	LoadMs    int64
	Timestamp string
}

// RecentQARuns returns the most recent QA outcomes, newest first.
func (d *DB) RecentQARuns(limit int) ([]QASummary, error) {
	rows, err := d.conn.Query(
		`SELECT run_id, overall, passed, failed, COALESCE(avg_fps, 0), COALESCE(load_time_ms, 0), timestamp
		 FROM qa_runs ORDER BY timestamp DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query qa runs: %w", err)
	}
	defer rows.Close()

	var out []QASummary
	for rows.Next() {
		var q QASummary
		if err := rows.Scan(&q.RunID, &q.Overall, &q.Passed, &q.Failed, &q.AvgFPS, &q.LoadMs, &q.Timestamp); err != nil {
			return nil, fmt.Errorf("scan qa run: %w", err)
		}
		out = append(out, q)
	}
	return out, rows.Err()
}
