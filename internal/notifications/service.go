package notifications

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"strconv"
	"strings"
	"time"
)

// DefaultTimeout is how long a notification stays on screen.
const DefaultTimeout = 6000 * time.Millisecond

const appName = "mergeq"

// Notification is one desktop message.
type Notification struct {
	Title   string
	Body    string
	Icon    string
	Timeout time.Duration
}

// Notifier shows notifications.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// runFunc executes an external command and returns its combined output.
type runFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// NewDesktop returns the notifier for the current platform, or a no-op when
// the platform's notification binary is not installed.
func NewDesktop() Notifier {
	return newDesktop(runtime.GOOS, exec.LookPath, runCommand)
}

func newDesktop(goos string, lookPath func(string) (string, error), run runFunc) Notifier {
	switch goos {
	case "linux", "freebsd", "openbsd", "netbsd", "dragonfly":
		if path, err := lookPath("notify-send"); err == nil {
			return &notifySend{binary: path, run: run}
		}
	case "darwin":
		if path, err := lookPath("osascript"); err == nil {
			return &appleScript{binary: path, run: run}
		}
	}
	return Noop{}
}

// Noop discards notifications.
type Noop struct{}

func (Noop) Notify(context.Context, Notification) error { return nil }

type notifySend struct {
	binary string
	run    runFunc
}

func (n *notifySend) Notify(ctx context.Context, note Notification) error {
	if _, err := n.execute(ctx, n.args(note)); err != nil {
		return err
	}
	return nil
}

func (n *notifySend) args(note Notification) []string {
	timeout := note.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	args := []string{
		"--app-name=" + appName,
		"--expire-time=" + strconv.FormatInt(timeout.Milliseconds(), 10),
	}
	if icon := strings.TrimSpace(note.Icon); icon != "" {
		args = append(args, "--icon="+icon)
	}
	return append(args, "--", note.Title, note.Body)
}

func (n *notifySend) execute(ctx context.Context, args []string) ([]byte, error) {
	out, err := n.run(ctx, n.binary, args...)
	if err != nil {
		return out, fmt.Errorf("notify-send: %w: %s", err, strings.TrimSpace(string(out)))
	}
	return out, nil
}

// appleScript posts through Notification Center. Icons and timeouts are
// controlled by the system there, so both fields are ignored.
type appleScript struct {
	binary string
	run    runFunc
}

func (a *appleScript) Notify(ctx context.Context, note Notification) error {
	out, err := a.run(ctx, a.binary, "-e", a.script(note))
	if err != nil {
		return fmt.Errorf("osascript: %w: %s", err, strings.TrimSpace(string(out)))
	}
	return nil
}

func (a *appleScript) script(note Notification) string {
	return fmt.Sprintf("display notification %s with title %s", quoteAppleScript(note.Body), quoteAppleScript(note.Title))
}

func quoteAppleScript(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return `"` + s + `"`
}
