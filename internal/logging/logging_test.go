package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewDefaultLevel(t *testing.T) {
	log, err := New(Options{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if !log.Core().Enabled(0) { // InfoLevel
		t.Error("info should be enabled by default")
	}
	if log.Core().Enabled(-1) { // DebugLevel
		t.Error("debug should be disabled by default")
	}
}

func TestNewDebugLevel(t *testing.T) {
	log, err := New(Options{Level: "debug"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if !log.Core().Enabled(-1) {
		t.Error("debug should be enabled")
	}
}

func TestNewBadLevel(t *testing.T) {
	if _, err := New(Options{Level: "chatty"}); err == nil {
		t.Fatal("expected error for unknown level")
	}
}

func TestNewWithFileWritesJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gamesmith.log")
	log, err := New(Options{File: path})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	log.Info("hello from test")
	_ = log.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), `"hello from test"`) {
		t.Errorf("log file content = %q", data)
	}
}
