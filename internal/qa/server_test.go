package qa

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestServerDefaults(t *testing.T) {
	s := NewServer(ServerOpts{Dir: "/tmp/game"})
	if s.opts.Command != "npm" {
		t.Errorf("Command = %q, want npm", s.opts.Command)
	}
	if len(s.opts.Args) != 2 || s.opts.Args[0] != "run" || s.opts.Args[1] != "dev" {
		t.Errorf("Args = %v, want [run dev]", s.opts.Args)
	}
	if s.opts.Port != 3000 {
		t.Errorf("Port = %d, want 3000", s.opts.Port)
	}
	if s.URL() != "http://127.0.0.1:3000/" {
		t.Errorf("URL = %q", s.URL())
	}
}

func TestServerExplicitCommandKeepsArgs(t *testing.T) {
	s := NewServer(ServerOpts{Dir: "/tmp/game", Command: "python3", Args: []string{"-m", "http.server"}, Port: 8080})
	if s.opts.Command != "python3" {
		t.Errorf("Command = %q, want python3", s.opts.Command)
	}
	if s.URL() != "http://127.0.0.1:8080/" {
		t.Errorf("URL = %q", s.URL())
	}
}

func TestServerStartTimeout(t *testing.T) {
	// "sleep" never serves HTTP, so readiness polling must give up.
	s := NewServer(ServerOpts{Dir: t.TempDir(), Command: "sleep", Args: []string{"60"}, Port: 59321})
	s.SetPollInterval(50 * time.Millisecond)
	s.SetStopGrace(100 * time.Millisecond)

	err := s.Start(context.Background(), 300*time.Millisecond)
	var ste *StartupTimeoutError
	if !errors.As(err, &ste) {
		t.Fatalf("err = %v, want *StartupTimeoutError", err)
	}
	if ste.Timeout != 300*time.Millisecond {
		t.Errorf("error timeout = %s, want 300ms", ste.Timeout)
	}
	// Start cleaned up after itself; Stop again must be a no-op.
	s.Stop()
}

func TestServerStartMissingCommand(t *testing.T) {
	s := NewServer(ServerOpts{Dir: t.TempDir(), Command: "definitely-not-a-binary-xyz", Port: 59322})
	if err := s.Start(context.Background(), time.Second); err == nil {
		t.Fatal("expected error starting a nonexistent command")
	}
}

func TestServerStartCancelledContext(t *testing.T) {
	s := NewServer(ServerOpts{Dir: t.TempDir(), Command: "sleep", Args: []string{"60"}, Port: 59323})
	s.SetPollInterval(20 * time.Millisecond)
	s.SetStopGrace(100 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := s.Start(ctx, 5*time.Second)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestServerStopWithoutStart(t *testing.T) {
	s := NewServer(ServerOpts{Dir: "/tmp/game"})
	s.Stop() // must not panic
	s.Stop()
}
