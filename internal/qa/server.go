package qa

import (
	"context"
	"fmt"
	"net/http"
	"os/exec"
	"syscall"
	"time"
)

// StartupTimeoutError reports a dev server that never answered within the
// allowed window.
type StartupTimeoutError struct {
	URL     string
	Timeout time.Duration
}

func (e *StartupTimeoutError) Error() string {
	return fmt.Sprintf("dev server at %s not ready after %s", e.URL, e.Timeout)
}

// ServerOpts configures a dev server launch.
type ServerOpts struct {
	Dir     string   // game build directory
	Command string   // defaults to "npm"
	Args    []string // defaults to ["run", "dev"]
	Port    int      // defaults to 3000
}

// Server manages a package-manager-driven dev server hosting a game build.
// Stop is always safe to call, whether or not Start succeeded.
type Server struct {
	opts         ServerOpts
	cmd          *exec.Cmd
	pollInterval time.Duration
	stopGrace    time.Duration
	client       *http.Client
}

// NewServer creates a Server for the given build directory.
func NewServer(opts ServerOpts) *Server {
	if opts.Command == "" {
		opts.Command = "npm"
		if len(opts.Args) == 0 {
			opts.Args = []string{"run", "dev"}
		}
	}
	if opts.Port == 0 {
		opts.Port = 3000
	}
	return &Server{
		opts:         opts,
		pollInterval: 500 * time.Millisecond,
		stopGrace:    5 * time.Second,
		client:       &http.Client{Timeout: 2 * time.Second},
	}
}

// SetPollInterval overrides the readiness poll interval (for testing).
func (s *Server) SetPollInterval(d time.Duration) {
	s.pollInterval = d
}

// SetStopGrace overrides the SIGTERM grace period (for testing).
func (s *Server) SetStopGrace(d time.Duration) {
	s.stopGrace = d
}

// URL returns the server's root URL.
func (s *Server) URL() string {
	return fmt.Sprintf("http://127.0.0.1:%d/", s.opts.Port)
}

// Start launches the dev server and polls its root URL until an HTTP
// success response is observed or timeout elapses. On timeout the spawned
// process is killed before the error is returned.
func (s *Server) Start(ctx context.Context, timeout time.Duration) error {
	if s.cmd != nil {
		return fmt.Errorf("dev server already started")
	}

	cmd := exec.Command(s.opts.Command, s.opts.Args...)
	cmd.Dir = s.opts.Dir
	cmd.Env = append(cmd.Environ(), fmt.Sprintf("PORT=%d", s.opts.Port))
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start dev server: %w", err)
	}
	s.cmd = cmd

	deadline := time.Now().Add(timeout)
	for {
		if s.ready(ctx) {
			return nil
		}
		if time.Now().After(deadline) || ctx.Err() != nil {
			s.Stop()
			if ctx.Err() != nil {
				return fmt.Errorf("wait for dev server: %w", ctx.Err())
			}
			return &StartupTimeoutError{URL: s.URL(), Timeout: timeout}
		}
		select {
		case <-ctx.Done():
		case <-time.After(s.pollInterval):
		}
	}
}

// ready probes the root URL once.
func (s *Server) ready(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL(), nil)
	if err != nil {
		return false
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode >= 200 && resp.StatusCode < 400
}

// Stop terminates the dev server: SIGTERM to the process group, bounded
// wait, then SIGKILL. Idempotent; a call without a prior Start is a no-op.
func (s *Server) Stop() {
	if s.cmd == nil || s.cmd.Process == nil {
		return
	}
	cmd := s.cmd
	pid := cmd.Process.Pid
	_ = syscall.Kill(-pid, syscall.SIGTERM)

	done := make(chan struct{})
	go func() {
		_ = cmd.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(s.stopGrace):
		_ = syscall.Kill(-pid, syscall.SIGKILL)
		<-done
	}
	s.cmd = nil
}
