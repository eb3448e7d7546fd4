package workflow

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(t.TempDir())
}

func TestValidateID(t *testing.T) {
	valid := []string{
		"20260118_143052",
		"run-1",
		"a",
		"ABC_def-123",
		strings.Repeat("x", 128),
	}
	for _, id := range valid {
		if err := ValidateID(id); err != nil {
			t.Errorf("ValidateID(%q): %v, want nil", id, err)
		}
	}

	invalid := []string{
		"",
		"../../../etc/passwd",
		"a/b",
		"a\\b",
		"run 1",
		"run.1",
		"run;rm",
		"id\x00null",
		"..",
		strings.Repeat("x", 129),
	}
	for _, id := range invalid {
		err := ValidateID(id)
		if err == nil {
			t.Errorf("ValidateID(%q) should fail", id)
			continue
		}
		var iie *InvalidIdentifierError
		if !errors.As(err, &iie) {
			t.Errorf("ValidateID(%q) error type = %T, want *InvalidIdentifierError", id, err)
		}
	}
}

func TestNewRunIDIsValid(t *testing.T) {
	id := NewRunID()
	if err := ValidateID(id); err != nil {
		t.Errorf("NewRunID() = %q fails validation: %v", id, err)
	}
	if _, err := time.Parse("20060102_150405", id); err != nil {
		t.Errorf("NewRunID() = %q is not a timestamp: %v", id, err)
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	s := newTestStore(t)

	st := NewState("run1", "a breakout clone", "phaser")
	st.AddArtifact("gdd", "/tmp/design.json")
	st.AddError("transient hiccup")
	st.SetApproval("publish", true)
	st.AddCheckpoint("phase init started")
	if err := st.TransitionTo(PhaseDesign); err != nil {
		t.Fatalf("TransitionTo: %v", err)
	}

	path, err := s.Save(st)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("saved file missing: %v", err)
	}

	got, err := s.Load("run1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Phase != PhaseDesign {
		t.Errorf("Phase = %s, want design", got.Phase)
	}
	if got.Prompt != "a breakout clone" {
		t.Errorf("Prompt = %q", got.Prompt)
	}
	if got.Engine != "phaser" {
		t.Errorf("Engine = %q, want phaser", got.Engine)
	}
	if got.Artifacts["gdd"] != "/tmp/design.json" {
		t.Errorf("Artifacts[gdd] = %q", got.Artifacts["gdd"])
	}
	if len(got.Errors) != 1 || got.Errors[0] != "transient hiccup" {
		t.Errorf("Errors = %v", got.Errors)
	}
	if !got.Approvals["publish"] {
		t.Error("Approvals[publish] = false, want true")
	}
	if len(got.Checkpoints) != 1 {
		t.Errorf("Checkpoints has %d entries, want 1", len(got.Checkpoints))
	}
	if got.UpdatedAt == "" {
		t.Error("UpdatedAt should be set by Save")
	}
}

func TestLoadUnknownID(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Load("nope")
	var nfe *StateNotFoundError
	if !errors.As(err, &nfe) {
		t.Fatalf("Load error = %v, want *StateNotFoundError", err)
	}
	if nfe.ID != "nope" {
		t.Errorf("error ID = %q, want nope", nfe.ID)
	}

	// A failed load must not create a record.
	states, err := s.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(states) != 0 {
		t.Errorf("List has %d entries after failed Load, want 0", len(states))
	}
}

func TestLoadRejectsTraversalBeforeIO(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Load("../../../etc/passwd")
	var iie *InvalidIdentifierError
	if !errors.As(err, &iie) {
		t.Fatalf("Load error = %v, want *InvalidIdentifierError", err)
	}
}

func TestSaveOverwrites(t *testing.T) {
	s := newTestStore(t)

	st := NewState("run1", "first prompt", "phaser")
	if _, err := s.Save(st); err != nil {
		t.Fatalf("Save: %v", err)
	}

	st.AddArtifact("gdd", "/tmp/d.json")
	if _, err := s.Save(st); err != nil {
		t.Fatalf("Save again: %v", err)
	}

	got, err := s.Load("run1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Artifacts["gdd"] != "/tmp/d.json" {
		t.Error("second Save did not overwrite the record")
	}

	states, err := s.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(states) != 1 {
		t.Errorf("List has %d entries, want 1", len(states))
	}
}

func TestListAndLatestOrder(t *testing.T) {
	s := newTestStore(t)

	for i := 0; i < 3; i++ {
		st := NewState(fmt.Sprintf("run%d", i), "p", "e")
		// Distinct UpdatedAt seconds so the sort is deterministic.
		st.UpdatedAt = fmt.Sprintf("2026-01-0%dT00:00:00Z", i+1)
		if err := writeJSON(s.statePath(st.ID), st); err != nil {
			t.Fatalf("writeJSON: %v", err)
		}
	}

	states, err := s.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(states) != 3 {
		t.Fatalf("List has %d entries, want 3", len(states))
	}
	if states[0].ID != "run2" || states[2].ID != "run0" {
		t.Errorf("order = %s,%s,%s; want run2,run1,run0",
			states[0].ID, states[1].ID, states[2].ID)
	}

	latest, err := s.Latest()
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if latest.ID != "run2" {
		t.Errorf("Latest = %s, want run2", latest.ID)
	}
}

func TestLatestEmptyStore(t *testing.T) {
	s := newTestStore(t)
	latest, err := s.Latest()
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if latest != nil {
		t.Errorf("Latest = %+v, want nil", latest)
	}
}

func TestListMissingDir(t *testing.T) {
	s := NewStore("/nonexistent/gamesmith-test")
	states, err := s.List()
	if err != nil {
		t.Fatalf("List on missing dir: %v", err)
	}
	if states != nil {
		t.Errorf("List = %v, want nil", states)
	}
}

func TestDeleteIdempotent(t *testing.T) {
	s := newTestStore(t)

	st := NewState("run1", "p", "e")
	if _, err := s.Save(st); err != nil {
		t.Fatalf("Save: %v", err)
	}

	ok, err := s.Delete("run1")
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if !ok {
		t.Error("first Delete = false, want true")
	}

	ok, err = s.Delete("run1")
	if err != nil {
		t.Fatalf("second Delete: %v", err)
	}
	if ok {
		t.Error("second Delete = true, want false")
	}
}

func TestCleanupOld(t *testing.T) {
	s := newTestStore(t)

	for i := 0; i < 5; i++ {
		st := NewState(fmt.Sprintf("run%d", i), "p", "e")
		st.UpdatedAt = fmt.Sprintf("2026-01-0%dT00:00:00Z", i+1)
		if err := writeJSON(s.statePath(st.ID), st); err != nil {
			t.Fatalf("writeJSON: %v", err)
		}
	}

	deleted, err := s.CleanupOld(2)
	if err != nil {
		t.Fatalf("CleanupOld: %v", err)
	}
	if deleted != 3 {
		t.Errorf("deleted = %d, want 3", deleted)
	}

	states, err := s.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(states) != 2 {
		t.Fatalf("List has %d entries, want 2", len(states))
	}
	if states[0].ID != "run4" || states[1].ID != "run3" {
		t.Errorf("kept %s,%s; want run4,run3", states[0].ID, states[1].ID)
	}

	// Second pass deletes nothing.
	deleted, err = s.CleanupOld(2)
	if err != nil {
		t.Fatalf("CleanupOld again: %v", err)
	}
	if deleted != 0 {
		t.Errorf("second cleanup deleted %d, want 0", deleted)
	}
}
