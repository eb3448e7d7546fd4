package workflow

import (
	"context"
	"errors"
	"fmt"

	"github.com/PSthelyBlog/gamesmith/internal/approval"
	"github.com/PSthelyBlog/gamesmith/internal/qa"
	"go.uber.org/zap"
)

// PhaseFunc performs the work of one phase against the run's state. The
// orchestrator owns the state for the duration of the call; implementations
// record artifacts through it but never transition phases themselves.
type PhaseFunc func(ctx context.Context, st *State) error

// Orchestrator owns one workflow run: it sequences phases through the
// transition table, wraps every phase in the registered hooks, and delegates
// phase work to external collaborators.
type Orchestrator struct {
	store     *Store
	log       *zap.Logger
	hooks     []Hook
	executors map[Phase]PhaseFunc

	// reworkOnQAFail permits one hop over the qa→build edge before a QA
	// failure becomes terminal.
	reworkOnQAFail bool
	reworked       bool

	state *State
}

// NewOrchestrator creates an Orchestrator with the built-in hooks already
// registered. Additional hooks are appended via AddHook; defaults are never
// replaced.
func NewOrchestrator(store *Store, log *zap.Logger, builtins []Hook) *Orchestrator {
	return &Orchestrator{
		store:     store,
		log:       log,
		hooks:     builtins,
		executors: make(map[Phase]PhaseFunc),
	}
}

// AddHook appends an observer after the built-in hooks.
func (o *Orchestrator) AddHook(h Hook) {
	o.hooks = append(o.hooks, h)
}

// SetExecutor registers the work function for a phase. Phases without an
// executor transition straight through.
func (o *Orchestrator) SetExecutor(p Phase, fn PhaseFunc) {
	o.executors[p] = fn
}

// SetReworkOnQAFail enables one qa→build rework hop on QA failure.
func (o *Orchestrator) SetReworkOnQAFail(v bool) {
	o.reworkOnQAFail = v
}

// State returns the run's current state (nil before Start/Resume).
func (o *Orchestrator) State() *State {
	return o.state
}

// Start creates a fresh run and executes it to a terminal phase.
func (o *Orchestrator) Start(ctx context.Context, prompt, engine string) (*State, error) {
	return o.StartWithID(ctx, NewRunID(), prompt, engine)
}

// StartWithID is Start with a caller-supplied run id.
func (o *Orchestrator) StartWithID(ctx context.Context, id, prompt, engine string) (*State, error) {
	if err := ValidateID(id); err != nil {
		return nil, err
	}
	o.state = NewState(id, prompt, engine)
	if _, err := o.store.Save(o.state); err != nil {
		return nil, err
	}
	o.log.Info("workflow started",
		zap.String("run", id),
		zap.String("engine", engine))
	return o.state, o.run(ctx)
}

// Resume loads the run id and continues from its persisted phase. Returns
// StateNotFoundError when id has no record.
func (o *Orchestrator) Resume(ctx context.Context, id string) (*State, error) {
	st, err := o.store.Load(id)
	if err != nil {
		return nil, err
	}
	return o.resumeFrom(ctx, st)
}

// ResumeLatest continues the most recently modified run. Returns (nil, nil)
// when the store is empty.
func (o *Orchestrator) ResumeLatest(ctx context.Context) (*State, error) {
	st, err := o.store.Latest()
	if err != nil {
		return nil, err
	}
	if st == nil {
		return nil, nil
	}
	return o.resumeFrom(ctx, st)
}

func (o *Orchestrator) resumeFrom(ctx context.Context, st *State) (*State, error) {
	o.state = st
	if IsTerminal(st.Phase) && st.Phase != PhaseFailed {
		o.log.Info("run already complete", zap.String("run", st.ID))
		return st, nil
	}
	if st.Phase == PhaseFailed {
		// Restart from the beginning via the failed→init edge.
		if err := st.TransitionTo(PhaseInit); err != nil {
			return st, err
		}
		if _, err := o.store.Save(st); err != nil {
			return st, err
		}
	}
	o.log.Info("workflow resumed",
		zap.String("run", st.ID),
		zap.String("phase", string(st.Phase)))
	return st, o.run(ctx)
}

// run drives the state from its current phase to a terminal one.
func (o *Orchestrator) run(ctx context.Context) error {
	for !IsTerminal(o.state.Phase) {
		if err := o.executePhase(ctx); err != nil {
			return err
		}
	}
	o.log.Info("workflow finished",
		zap.String("run", o.state.ID),
		zap.String("phase", string(o.state.Phase)))
	return nil
}

// executePhase wraps one phase: start hooks, delegated work, transition,
// completion hooks. On failure it invokes error hooks, records the error,
// and moves the run to failed.
func (o *Orchestrator) executePhase(ctx context.Context) error {
	st := o.state

	if err := o.startHooks(ctx, st); err != nil {
		return o.failPhase(ctx, st, err)
	}

	if fn, ok := o.executors[st.Phase]; ok && fn != nil {
		if err := fn(ctx, st); err != nil {
			if o.shouldRework(err) {
				return o.rework(ctx, st, err)
			}
			return o.failPhase(ctx, st, err)
		}
	}

	next, ok := NextPhase(st.Phase)
	if !ok {
		return o.failPhase(ctx, st, fmt.Errorf("phase %s has no successor", st.Phase))
	}

	for _, h := range o.hooks {
		if err := h.OnPhaseComplete(ctx, st); err != nil {
			o.log.Warn("hook error on phase complete", zap.Error(err))
		}
	}

	if err := st.TransitionTo(next); err != nil {
		return o.failPhase(ctx, st, err)
	}
	if _, err := o.store.Save(st); err != nil {
		return o.failPhase(ctx, st, err)
	}
	return nil
}

// startHooks runs OnPhaseStart on every hook in registration order.
// Approval decisions halt the phase; any other hook error is logged and
// swallowed.
func (o *Orchestrator) startHooks(ctx context.Context, st *State) error {
	for _, h := range o.hooks {
		err := h.OnPhaseStart(ctx, st)
		if err == nil {
			continue
		}
		var rejected *approval.RejectedError
		var timedOut *approval.TimeoutError
		if errors.As(err, &rejected) || errors.As(err, &timedOut) {
			return err
		}
		o.log.Warn("hook error on phase start", zap.Error(err))
	}
	return nil
}

// shouldRework reports whether a QA failure should loop back to build
// instead of failing the run.
func (o *Orchestrator) shouldRework(err error) bool {
	if !o.reworkOnQAFail || o.reworked || o.state.Phase != PhaseQA {
		return false
	}
	var qaErr *qa.QAFailedError
	return errors.As(err, &qaErr)
}

// rework takes the qa→build edge once after a failed QA run.
func (o *Orchestrator) rework(ctx context.Context, st *State, cause error) error {
	o.reworked = true
	st.AddError(fmt.Sprintf("qa failed, reworking: %v", cause))
	o.log.Warn("qa failed, looping back to build",
		zap.String("run", st.ID), zap.Error(cause))

	for _, h := range o.hooks {
		h.OnError(ctx, st, cause)
	}
	if err := st.TransitionTo(PhaseBuild); err != nil {
		return o.failPhase(ctx, st, err)
	}
	if _, err := o.store.Save(st); err != nil {
		return o.failPhase(ctx, st, err)
	}
	return nil
}

// failPhase is the single place a run reaches the failed phase. The failed
// state is always persisted so the run stays loadable and resumable.
func (o *Orchestrator) failPhase(ctx context.Context, st *State, cause error) error {
	for _, h := range o.hooks {
		h.OnError(ctx, st, cause)
	}
	st.AddError(cause.Error())

	if st.Phase != PhaseFailed {
		if err := st.TransitionTo(PhaseFailed); err != nil {
			// Every non-terminal phase has a failure edge; reaching this
			// means the run was already terminal.
			o.log.Error("cannot mark run failed", zap.Error(err))
		}
	}
	if _, err := o.store.Save(st); err != nil {
		o.log.Error("persist failed state", zap.Error(err))
	}
	return cause
}
