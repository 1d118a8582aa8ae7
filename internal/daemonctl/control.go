package daemonctl

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"mergeq/internal/ipc"
)

// ErrAgentNotRunning indicates no agent accepts connections on the socket.
var ErrAgentNotRunning = errors.New("mergeq agent is not running")

// ErrUnsafeIdentity is returned when the caller must not spawn an agent:
// running as root, or with a real uid that differs from the effective one.
var ErrUnsafeIdentity = errors.New("refusing to start agent")

const pollInterval = 50 * time.Millisecond

// LaunchOptions controls agent process launch behavior.
type LaunchOptions struct {
	SocketPath string
	ConfigPath string
}

// Args returns the command line a detached agent is started with.
func (o LaunchOptions) Args() []string {
	args := []string{"agent", "--foreground"}
	if socket := strings.TrimSpace(o.SocketPath); socket != "" {
		args = append(args, "--socket", socket)
	}
	if cfg := strings.TrimSpace(o.ConfigPath); cfg != "" {
		args = append(args, "--config", cfg)
	}
	return args
}

// CheckIdentity fails when the process identity makes a user-scoped agent
// unsafe to start.
func CheckIdentity() error {
	return checkIdentity(unix.Getuid(), unix.Geteuid())
}

func checkIdentity(uid, euid int) error {
	if uid == 0 || euid == 0 {
		return fmt.Errorf("%w: do not run mergeq as root", ErrUnsafeIdentity)
	}
	if uid != euid {
		return fmt.Errorf("%w: uid %d does not match effective uid %d", ErrUnsafeIdentity, uid, euid)
	}
	return nil
}

// Launch starts a detached agent process in its own session. Its standard
// streams are attached to the null device.
func Launch(executablePath string, opts LaunchOptions) error {
	if strings.TrimSpace(executablePath) == "" {
		return fmt.Errorf("resolve executable: executable path is empty")
	}

	proc := exec.Command(executablePath, opts.Args()...)
	proc.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	if err := proc.Start(); err != nil {
		return fmt.Errorf("launch agent: %w", err)
	}
	return proc.Process.Release()
}

// WaitForClient waits for the socket to accept connections and returns a
// client for it.
func WaitForClient(socketPath string, timeout time.Duration) (*ipc.Client, error) {
	deadline := time.Now().Add(timeout)
	var lastErr error
	for {
		client, err := ipc.Dial(socketPath)
		if err == nil {
			return client, nil
		}
		lastErr = err
		if time.Now().After(deadline) {
			break
		}
		time.Sleep(pollInterval)
	}
	return nil, fmt.Errorf("agent failed to start: %w", lastErr)
}

// EnsureStarted launches an agent unless one already answers on the socket.
// It reports whether a new process was launched.
func EnsureStarted(executablePath string, opts LaunchOptions, waitTimeout time.Duration) (bool, error) {
	if _, err := ipc.Dial(opts.SocketPath); err == nil {
		return false, nil
	} else if !ipc.IsUnavailable(err) {
		return false, err
	}
	if err := CheckIdentity(); err != nil {
		return false, err
	}
	if err := Launch(executablePath, opts); err != nil {
		return false, err
	}
	if _, err := WaitForClient(opts.SocketPath, waitTimeout); err != nil {
		return true, err
	}
	return true, nil
}

// Stop asks the agent to quit and waits until its socket is gone.
func Stop(socketPath string, timeout time.Duration) error {
	client, err := ipc.Dial(socketPath)
	if err != nil {
		if ipc.IsUnavailable(err) {
			return ErrAgentNotRunning
		}
		return err
	}
	if err := client.Quit(); err != nil {
		return fmt.Errorf("request quit: %w", err)
	}
	return WaitForShutdown(socketPath, timeout)
}

// WaitForShutdown waits for the socket file to disappear.
func WaitForShutdown(socketPath string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		_, err := os.Stat(socketPath)
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("stat socket: %w", err)
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("agent did not stop within %s", timeout)
		}
		time.Sleep(pollInterval)
	}
}
