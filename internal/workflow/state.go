package workflow

import "time"

// State is the top-level persisted record for a single workflow run.
type State struct {
	ID          string            `json:"id"`
	Phase       Phase             `json:"phase"`
	Prompt      string            `json:"prompt"`
	Engine      string            `json:"engine"`
	Artifacts   map[string]string `json:"artifacts"`
	Approvals   map[string]bool   `json:"approvals"`
	Errors      []string          `json:"errors"`
	Checkpoints []Checkpoint      `json:"checkpoints"`
	CreatedAt   string            `json:"created_at"`
	UpdatedAt   string            `json:"updated_at"`
}

// Checkpoint marks a point in a run's history, independent of the
// persisted state snapshots.
type Checkpoint struct {
	Phase       Phase  `json:"phase"`
	Description string `json:"description"`
	At          string `json:"at"`
}

// NewState creates a fresh run at the init phase. Prompt and engine are
// immutable for the lifetime of the run.
func NewState(id, prompt, engine string) *State {
	now := time.Now().UTC().Format(time.RFC3339)
	return &State{
		ID:          id,
		Phase:       PhaseInit,
		Prompt:      prompt,
		Engine:      engine,
		Artifacts:   make(map[string]string),
		Approvals:   make(map[string]bool),
		Errors:      []string{},
		Checkpoints: []Checkpoint{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// TransitionTo moves the run to phase after checking legality. On an illegal
// edge the state is left unchanged and an InvalidTransitionError is returned.
// This is the only path that writes State.Phase.
func (s *State) TransitionTo(to Phase) error {
	if !CanTransition(s.Phase, to) {
		return &InvalidTransitionError{From: s.Phase, To: to}
	}
	s.Phase = to
	return nil
}

// AddArtifact records (or overwrites) a named artifact path.
func (s *State) AddArtifact(name, path string) {
	if s.Artifacts == nil {
		s.Artifacts = make(map[string]string)
	}
	s.Artifacts[name] = path
}

// AddError appends a message to the run's error history.
func (s *State) AddError(msg string) {
	s.Errors = append(s.Errors, msg)
}

// SetApproval records the decision for a named gate. A retry may overwrite
// an earlier decision.
func (s *State) SetApproval(gate string, approved bool) {
	if s.Approvals == nil {
		s.Approvals = make(map[string]bool)
	}
	s.Approvals[gate] = approved
}

// AddCheckpoint appends a checkpoint marker for the current phase.
func (s *State) AddCheckpoint(description string) {
	s.Checkpoints = append(s.Checkpoints, Checkpoint{
		Phase:       s.Phase,
		Description: description,
		At:          time.Now().UTC().Format(time.RFC3339),
	})
}
