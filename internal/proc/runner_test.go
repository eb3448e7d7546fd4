package proc

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestRunCapturesOutput(t *testing.T) {
	var r Runner
	res, err := r.Run(context.Background(), Spec{
		Command: "sh",
		Args:    []string{"-c", "echo out; echo err >&2"},
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.ExitCode != 0 {
		t.Errorf("ExitCode = %d, want 0", res.ExitCode)
	}
	if res.Stdout != "out\n" {
		t.Errorf("Stdout = %q, want %q", res.Stdout, "out\n")
	}
	if res.Stderr != "err\n" {
		t.Errorf("Stderr = %q, want %q", res.Stderr, "err\n")
	}
	if res.TimedOut {
		t.Error("TimedOut = true, want false")
	}
}

func TestRunNonZeroExitIsNotAnError(t *testing.T) {
	var r Runner
	res, err := r.Run(context.Background(), Spec{
		Command: "sh",
		Args:    []string{"-c", "exit 3"},
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.ExitCode != 3 {
		t.Errorf("ExitCode = %d, want 3", res.ExitCode)
	}
}

func TestRunMissingBinary(t *testing.T) {
	var r Runner
	_, err := r.Run(context.Background(), Spec{Command: "definitely-not-a-binary-xyz"})
	if err == nil {
		t.Fatal("expected error for missing binary")
	}
}

func TestRunTimeout(t *testing.T) {
	var r Runner
	start := time.Now()
	res, err := r.Run(context.Background(), Spec{
		Command: "sleep",
		Args:    []string{"10"},
		Timeout: 200 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !res.TimedOut {
		t.Error("TimedOut = false, want true")
	}
	if res.ExitCode != -1 {
		t.Errorf("ExitCode = %d, want -1", res.ExitCode)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("Run took %s, the process group was not killed promptly", elapsed)
	}
}

func TestRunSetsWorkingDirAndEnv(t *testing.T) {
	var r Runner
	dir := t.TempDir()
	res, err := r.Run(context.Background(), Spec{
		Command: "sh",
		Args:    []string{"-c", "pwd; printf %s \"$GAME_TEST_VAR\""},
		Dir:     dir,
		Env:     []string{"GAME_TEST_VAR=hello"},
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !strings.Contains(res.Stdout, dir) {
		t.Errorf("Stdout = %q, want it to contain %q", res.Stdout, dir)
	}
	if !strings.HasSuffix(res.Stdout, "hello") {
		t.Errorf("Stdout = %q, want env var appended", res.Stdout)
	}
}

func TestStreamDeliversLinesInOrder(t *testing.T) {
	var r Runner
	lines, wait, err := r.Stream(context.Background(), Spec{
		Command: "sh",
		Args:    []string{"-c", "echo one; echo two; echo three"},
	})
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}

	var got []string
	for line := range lines {
		got = append(got, line)
	}
	res, err := wait()
	if err != nil {
		t.Fatalf("wait: %v", err)
	}

	want := []string{"one", "two", "three"}
	if len(got) != len(want) {
		t.Fatalf("got %d lines, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("line[%d] = %q, want %q", i, got[i], want[i])
		}
	}
	if res.Stdout != "one\ntwo\nthree\n" {
		t.Errorf("captured = %q", res.Stdout)
	}
	if res.ExitCode != 0 {
		t.Errorf("ExitCode = %d, want 0", res.ExitCode)
	}
}

func TestStreamMergesStderr(t *testing.T) {
	var r Runner
	lines, wait, err := r.Stream(context.Background(), Spec{
		Command: "sh",
		Args:    []string{"-c", "echo out; echo err >&2"},
	})
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}
	n := 0
	for range lines {
		n++
	}
	if _, err := wait(); err != nil {
		t.Fatalf("wait: %v", err)
	}
	if n != 2 {
		t.Errorf("got %d merged lines, want 2", n)
	}
}

func TestStreamTimeout(t *testing.T) {
	var r Runner
	lines, wait, err := r.Stream(context.Background(), Spec{
		Command: "sh",
		Args:    []string{"-c", "echo started; sleep 10"},
		Timeout: 200 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}
	for range lines {
	}
	res, err := wait()
	if err != nil {
		t.Fatalf("wait: %v", err)
	}
	if !res.TimedOut {
		t.Error("TimedOut = false, want true")
	}
}

func TestStreamMissingBinary(t *testing.T) {
	var r Runner
	_, _, err := r.Stream(context.Background(), Spec{Command: "definitely-not-a-binary-xyz"})
	if err == nil {
		t.Fatal("expected error for missing binary")
	}
}
