package testsupport

import (
	"context"
	"errors"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"mergeq/internal/agent"
	"mergeq/internal/config"
	"mergeq/internal/runner"
)

// SocketPath returns a socket path short enough for sun_path limits, which
// t.TempDir paths often exceed on macOS.
func SocketPath(t testing.TB) string {
	t.Helper()
	dir, err := os.MkdirTemp("", "mq")
	if err != nil {
		t.Fatalf("MkdirTemp: %v", err)
	}
	t.Cleanup(func() { _ = os.RemoveAll(dir) })
	return filepath.Join(dir, "agent.sock")
}

// MissingToken is a runner factory that fails like an agent started without
// a GitHub token.
func MissingToken() (*runner.Runner, error) {
	return nil, errors.New(config.EnvGitHubToken + " is not set")
}

// AllowAll accepts every connection.
func AllowAll() agent.Authenticator {
	return agent.AuthenticatorFunc(func(net.Conn) error { return nil })
}

// RunningAgent is an agent serving on a test socket.
type RunningAgent struct {
	Agent *agent.Agent
	Path  string
	// Done receives the value returned by Run.
	Done <-chan error
}

// StartAgent runs an agent until the test ends. Unset options default to a
// short socket path, MissingToken and AllowAll.
func StartAgent(t testing.TB, opts agent.Options) *RunningAgent {
	t.Helper()
	if opts.SocketPath == "" {
		opts.SocketPath = SocketPath(t)
	}
	if opts.NewRunner == nil {
		opts.NewRunner = MissingToken
	}
	if opts.Authenticator == nil {
		opts.Authenticator = AllowAll()
	}
	a, err := agent.New(opts)
	if err != nil {
		t.Fatalf("agent.New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()
	t.Cleanup(cancel)

	WaitFor(t, 2*time.Second, func() bool {
		conn, err := net.Dial("unix", opts.SocketPath)
		if err != nil {
			return false
		}
		_ = conn.Close()
		return true
	})
	return &RunningAgent{Agent: a, Path: opts.SocketPath, Done: done}
}

// WaitFor polls fn until it returns true or the duration elapses.
func WaitFor(t testing.TB, duration time.Duration, fn func() bool) {
	t.Helper()
	deadline := time.Now().Add(duration)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("condition not met within %s", duration)
}
