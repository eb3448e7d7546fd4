package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/PSthelyBlog/gamesmith/internal/approval"
	"github.com/PSthelyBlog/gamesmith/internal/metrics"
	"github.com/PSthelyBlog/gamesmith/internal/telemetry"
	"go.uber.org/zap"
)

// Hook observes phase boundaries. Implementations are invoked synchronously
// in registration order. A hook error is logged and swallowed unless it is
// an approval decision, which legitimately halts the phase (see Orchestrator).
type Hook interface {
	OnPhaseStart(ctx context.Context, st *State) error
	OnPhaseComplete(ctx context.Context, st *State) error
	OnError(ctx context.Context, st *State, phaseErr error)
}

// CheckpointHook persists the state at every phase boundary so a crashed or
// interrupted run can resume from the last completed phase.
type CheckpointHook struct {
	Store *Store
}

func (h *CheckpointHook) OnPhaseStart(ctx context.Context, st *State) error {
	st.AddCheckpoint(fmt.Sprintf("phase %s started", st.Phase))
	_, err := h.Store.Save(st)
	return err
}

func (h *CheckpointHook) OnPhaseComplete(ctx context.Context, st *State) error {
	st.AddCheckpoint(fmt.Sprintf("phase %s completed", st.Phase))
	_, err := h.Store.Save(st)
	return err
}

func (h *CheckpointHook) OnError(ctx context.Context, st *State, phaseErr error) {
	st.AddCheckpoint(fmt.Sprintf("phase %s failed: %v", st.Phase, phaseErr))
	_, _ = h.Store.Save(st)
}

// LoggingHook emits one structured entry per phase boundary.
type LoggingHook struct {
	Log *zap.Logger
}

func (h *LoggingHook) OnPhaseStart(ctx context.Context, st *State) error {
	h.Log.Info("phase start", zap.String("run", st.ID), zap.String("phase", string(st.Phase)))
	return nil
}

func (h *LoggingHook) OnPhaseComplete(ctx context.Context, st *State) error {
	h.Log.Info("phase complete", zap.String("run", st.ID), zap.String("phase", string(st.Phase)))
	return nil
}

func (h *LoggingHook) OnError(ctx context.Context, st *State, phaseErr error) {
	h.Log.Error("phase failed",
		zap.String("run", st.ID),
		zap.String("phase", string(st.Phase)),
		zap.Error(phaseErr))
}

// PerformanceHook times each phase into a metrics collector and, when a
// telemetry DB is attached, records the timing there too.
type PerformanceHook struct {
	Collector *metrics.Collector
	DB        *telemetry.DB // optional
	Log       *zap.Logger
}

func timerName(st *State) string {
	return "phase:" + string(st.Phase)
}

func (h *PerformanceHook) OnPhaseStart(ctx context.Context, st *State) error {
	h.Collector.StartTimer(timerName(st))
	return nil
}

func (h *PerformanceHook) OnPhaseComplete(ctx context.Context, st *State) error {
	rec, err := h.Collector.StopTimer(timerName(st), string(st.Phase), nil)
	if err != nil {
		return err
	}
	if h.DB != nil {
		if err := h.DB.LogPhaseTiming(st.ID, string(st.Phase), true, rec.Duration); err != nil {
			h.Log.Warn("record phase timing", zap.Error(err))
		}
	}
	return nil
}

func (h *PerformanceHook) OnError(ctx context.Context, st *State, phaseErr error) {
	rec, err := h.Collector.StopTimer(timerName(st), string(st.Phase), nil)
	if err != nil {
		return
	}
	if h.DB != nil {
		if err := h.DB.LogPhaseTiming(st.ID, string(st.Phase), false, rec.Duration); err != nil {
			h.Log.Warn("record phase timing", zap.Error(err))
		}
	}
}

// ApprovalHook requests a human decision before gated phases run. Unlike
// other hooks its rejection or timeout halts progression: the orchestrator
// treats it as a first-class phase failure.
type ApprovalHook struct {
	Gate    approval.Gate
	Gates   map[Phase]bool
	Timeout time.Duration
}

func (h *ApprovalHook) OnPhaseStart(ctx context.Context, st *State) error {
	if !h.Gates[st.Phase] {
		return nil
	}
	gate := string(st.Phase)
	msg := fmt.Sprintf("run %s is about to enter the %s phase (prompt: %q)", st.ID, st.Phase, st.Prompt)
	dec, err := h.Gate.Request(ctx, gate, msg, h.Timeout)
	if err != nil {
		return err
	}
	st.SetApproval(gate, dec.Approved)
	if !dec.Approved {
		return &approval.RejectedError{Gate: gate, Reason: dec.Reason}
	}
	return nil
}

func (h *ApprovalHook) OnPhaseComplete(ctx context.Context, st *State) error { return nil }

func (h *ApprovalHook) OnError(ctx context.Context, st *State, phaseErr error) {}
